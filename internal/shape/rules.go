package shape

import (
	"fmt"
	"image"
	"math"
)

// Features describes the geometry of one candidate contour.
type Features struct {
	Vertices    int             // vertex count of the approximated polygon
	Convex      bool            // whether the approximated polygon is convex
	Area        float64         // enclosed area of the raw contour
	Perimeter   float64         // closed arc length of the raw contour
	Circularity float64         // 4*pi*area/perimeter^2
	Defects     int             // convexity defects deeper than the configured limit
	Bounds      image.Rectangle // bounding box of the raw contour
	Polygon     []image.Point   // approximated polygon
}

// Tag names the polygon by vertex count, used for unrecognized shapes.
func (f Features) Tag() string {
	return fmt.Sprintf("num_vert_%d", f.Vertices)
}

// Rule maps a geometric predicate to a label.
type Rule struct {
	Label Label
	Match func(f Features) bool
}

// DefaultRules returns the built-in gesture vocabulary in priority order.
func DefaultRules(cfg Config) []Rule {
	minCircularity := cfg.MinCircularity
	return []Rule{
		{Label: Circle, Match: func(f Features) bool {
			return f.Vertices > 7 && f.Convex && f.Circularity > minCircularity
		}},
		{Label: Arrow, Match: func(f Features) bool {
			return f.Vertices == 4 && !f.Convex
		}},
		{Label: Square, Match: func(f Features) bool {
			return f.Vertices == 4 && f.Convex
		}},
		{Label: Mountain, Match: func(f Features) bool {
			return f.Vertices == 5 && !f.Convex && f.Defects == 1
		}},
		{Label: Peak, Match: func(f Features) bool {
			return f.Vertices == 5 && !f.Convex && f.Defects == 2
		}},
	}
}

// circularity returns 4*pi*area/perimeter^2, or 0 for a zero perimeter.
func circularity(area, perimeter float64) float64 {
	if perimeter <= 0 {
		return 0
	}
	return 4 * math.Pi * area / (perimeter * perimeter)
}

// isConvex reports whether every corner of the closed polygon turns the same
// way, with the semantics of OpenCV's isContourConvex: a straight or
// reversed corner makes the polygon non-convex and the winding number is not
// checked.
func isConvex(pts []image.Point) bool {
	n := len(pts)
	if n == 0 {
		return false
	}

	turns := 0
	for i := 0; i < n; i++ {
		a := pts[(i+n-2)%n]
		b := pts[(i+n-1)%n]
		c := pts[i]

		cross := (b.X-a.X)*(c.Y-b.Y) - (b.Y-a.Y)*(c.X-b.X)
		switch {
		case cross > 0:
			turns |= 1
		case cross < 0:
			turns |= 2
		default:
			turns |= 3
		}
		if turns == 3 {
			return false
		}
	}
	return true
}
