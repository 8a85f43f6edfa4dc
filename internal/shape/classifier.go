package shape

import (
	"image"
	"log"

	"gocv.io/x/gocv"
)

// Detection is the winning shape of one frame.
type Detection struct {
	Label   Label           `json:"label"`
	Polygon []image.Point   `json:"polygon"`
	Area    float64         `json:"area"`
	Bounds  image.Rectangle `json:"bounds"`
}

// Offset translates the detection by p, e.g. from ROI to frame coordinates.
func (d Detection) Offset(p image.Point) Detection {
	poly := make([]image.Point, len(d.Polygon))
	for i, pt := range d.Polygon {
		poly[i] = pt.Add(p)
	}
	d.Polygon = poly
	d.Bounds = d.Bounds.Add(p)
	return d
}

// Classifier labels contours using a prioritized list of rules.
// It holds no per-frame state.
type Classifier struct {
	config Config
	rules  []Rule
}

// NewClassifier creates a Classifier with the default rule set.
func NewClassifier(config Config) *Classifier {
	config = config.withDefaults()
	return &Classifier{
		config: config,
		rules:  DefaultRules(config),
	}
}

// AddRule appends a rule with the lowest priority.
func (c *Classifier) AddRule(r Rule) {
	if r.Match == nil || r.Label == None {
		return
	}
	c.rules = append(c.rules, r)
}

// Evaluate returns the label of the first matching rule, or None.
func (c *Classifier) Evaluate(f Features) Label {
	for _, r := range c.rules {
		if r.Match(f) {
			return r.Label
		}
	}
	return None
}

// Select labels every candidate and keeps the recognized one with the
// largest area. Ties keep the earlier candidate.
func (c *Classifier) Select(candidates []Features) (Detection, bool) {
	var best Detection
	found := false

	for _, f := range candidates {
		label := c.Evaluate(f)
		if label == None {
			if c.config.Verbose {
				log.Printf("shape: unrecognized polygon %s (area %.0f)", f.Tag(), f.Area)
			}
			continue
		}
		if found && f.Area <= best.Area {
			continue
		}
		best = Detection{
			Label:   label,
			Polygon: f.Polygon,
			Area:    f.Area,
			Bounds:  f.Bounds,
		}
		found = true
	}

	return best, found
}

// Classify extracts features from every contour that passes the area and
// border filters and returns the best recognized shape.
func (c *Classifier) Classify(contours gocv.PointsVector, width, height int) (Detection, bool) {
	if width <= 0 || height <= 0 {
		return Detection{}, false
	}

	var candidates []Features
	for i := 0; i < contours.Size(); i++ {
		f, ok := c.extract(contours.At(i), width, height)
		if !ok {
			continue
		}
		candidates = append(candidates, f)
	}

	return c.Select(candidates)
}

// extract computes the features of one contour. It returns false when the
// contour is filtered out by area or by touching the frame border.
func (c *Classifier) extract(contour gocv.PointVector, width, height int) (Features, bool) {
	if contour.Size() < 3 {
		return Features{}, false
	}

	frameArea := float64(width * height)
	area := gocv.ContourArea(contour)
	if area < c.config.MinAreaRatio*frameArea || area > c.config.MaxAreaRatio*frameArea {
		return Features{}, false
	}

	bounds := gocv.BoundingRect(contour)
	if touchesBorder(bounds, width, height, c.config.BorderMargin) {
		return Features{}, false
	}

	perimeter := gocv.ArcLength(contour, true)
	approx := gocv.ApproxPolyDP(contour, c.config.ApproxFactor*perimeter, true)
	defer approx.Close()

	poly := approx.ToPoints()
	f := Features{
		Vertices:    len(poly),
		Convex:      isConvex(poly),
		Area:        area,
		Perimeter:   perimeter,
		Circularity: circularity(area, perimeter),
		Bounds:      bounds,
		Polygon:     poly,
	}
	if !f.Convex {
		f.Defects = c.countDefects(approx, bounds)
	}

	return f, true
}

// countDefects counts convexity defects between the polygon and its hull
// that are deeper than DefectDepthFactor * max(w, h). Degenerate polygons
// have no defects.
func (c *Classifier) countDefects(poly gocv.PointVector, bounds image.Rectangle) int {
	if poly.Size() < 4 {
		return 0
	}

	hull := gocv.NewMat()
	defer hull.Close()
	if err := gocv.ConvexHull(poly, &hull, false, false); err != nil || hull.Empty() || hull.Rows() < 3 {
		return 0
	}

	defects := gocv.NewMat()
	defer defects.Close()
	if err := gocv.ConvexityDefects(poly, hull, &defects); err != nil || defects.Empty() {
		return 0
	}

	limit := c.config.DefectDepthFactor * float64(max(bounds.Dx(), bounds.Dy()))
	count := 0
	for i := 0; i < defects.Rows(); i++ {
		d := defects.GetVeciAt(i, 0)
		if len(d) < 4 {
			continue
		}
		if float64(d[3]) > limit {
			count++
		}
	}
	return count
}

// touchesBorder reports whether r lies within margin pixels of the frame edge.
func touchesBorder(r image.Rectangle, width, height, margin int) bool {
	return r.Min.X < margin || r.Min.Y < margin ||
		r.Max.X > width-margin || r.Max.Y > height-margin
}
