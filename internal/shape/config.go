package shape

// Default classification thresholds. They were tuned empirically for a
// 450x450 region of interest and are exposed through Config.
const (
	DefaultMinAreaRatio      = 0.02
	DefaultMaxAreaRatio      = 0.8
	DefaultBorderMargin      = 2
	DefaultApproxFactor      = 0.02
	DefaultMinCircularity    = 0.7
	DefaultDefectDepthFactor = 20.0
)

// Config holds the geometric thresholds used by the Classifier.
type Config struct {
	// MinAreaRatio and MaxAreaRatio bound a contour's area as a fraction of the frame area.
	MinAreaRatio float64 `json:"min_area_ratio"`
	MaxAreaRatio float64 `json:"max_area_ratio"`

	// BorderMargin rejects contours whose bounding box comes this close to the frame edge.
	BorderMargin int `json:"border_margin"`

	// ApproxFactor scales the perimeter into the polygon approximation tolerance.
	ApproxFactor float64 `json:"approx_factor"`

	// MinCircularity is the exclusive lower bound for CIRCLE.
	MinCircularity float64 `json:"min_circularity"`

	// DefectDepthFactor multiplies max(w, h) of the bounding box into the minimum
	// convexity defect depth. Depths are in OpenCV fixed point (1/256 pixel).
	DefectDepthFactor float64 `json:"defect_depth_factor"`

	// Verbose logs every rejected polygon.
	Verbose bool `json:"verbose"`
}

// DefaultConfig returns a Config with the stock thresholds.
func DefaultConfig() Config {
	return Config{
		MinAreaRatio:      DefaultMinAreaRatio,
		MaxAreaRatio:      DefaultMaxAreaRatio,
		BorderMargin:      DefaultBorderMargin,
		ApproxFactor:      DefaultApproxFactor,
		MinCircularity:    DefaultMinCircularity,
		DefectDepthFactor: DefaultDefectDepthFactor,
	}
}

// withDefaults replaces unset thresholds with their defaults.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinAreaRatio <= 0 {
		c.MinAreaRatio = d.MinAreaRatio
	}
	if c.MaxAreaRatio <= 0 {
		c.MaxAreaRatio = d.MaxAreaRatio
	}
	if c.BorderMargin < 0 {
		c.BorderMargin = d.BorderMargin
	}
	if c.ApproxFactor <= 0 {
		c.ApproxFactor = d.ApproxFactor
	}
	if c.MinCircularity <= 0 {
		c.MinCircularity = d.MinCircularity
	}
	if c.DefectDepthFactor <= 0 {
		c.DefectDepthFactor = d.DefectDepthFactor
	}
	return c
}
