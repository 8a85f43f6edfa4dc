// Package tracker follows the largest moving foreground blob across frames
// with a constant-velocity predict/correct filter.
package tracker

import (
	"image"
	"math"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"
)

// Point is a position in frame pixels.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DistanceTo returns the Euclidean distance between p and q.
func (p Point) DistanceTo(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Filter is a linear predict/correct estimator over a 2D position.
type Filter interface {
	// Predict advances the state by one step and returns the predicted position.
	Predict() Point
	// Correct folds a measured position into the state and returns the estimate.
	Correct(measurement Point) (Point, error)
	// Seed resets the state to p with zero velocity.
	Seed(p Point)
}

// Measurement is the bounding box of the largest foreground blob of a frame.
type Measurement struct {
	Center Point
	Box    image.Rectangle
	Area   float64
}

// Measurer extracts at most one measurement per frame.
type Measurer interface {
	Measure(frame gocv.Mat) (Measurement, bool)
	Close() error
}

// Estimate is the tracker output for one frame.
type Estimate struct {
	Position Point `json:"position"`
	Width    int   `json:"width"`
	Height   int   `json:"height"`
	Active   bool  `json:"active"`
}

// Tracker owns a filter and a measurer. The initial position is captured on
// the first measurement and never changes afterwards.
type Tracker struct {
	filter   Filter
	measurer Measurer
	width    int
	height   int
	initial  Point
	active   bool
}

// New creates a Tracker from its parts.
func New(filter Filter, measurer Measurer, config Config) *Tracker {
	config = config.withDefaults()
	return &Tracker{
		filter:   filter,
		measurer: measurer,
		width:    config.DefaultBoxWidth,
		height:   config.DefaultBoxHeight,
	}
}

// NewDefault creates a Tracker with a Kalman filter and a MOG2 blob measurer.
func NewDefault(config Config) *Tracker {
	return New(NewKalmanFilter(config), NewBlobMeasurer(config), config)
}

// Update measures the frame, predicts, and corrects when a measurement exists.
// Without a measurement the estimate is the raw prediction. A correction error
// is returned alongside the prediction-based estimate.
func (t *Tracker) Update(frame gocv.Mat) (Estimate, error) {
	m, ok := t.measurer.Measure(frame)
	if ok {
		t.width = m.Box.Dx()
		t.height = m.Box.Dy()
	}

	predicted := t.filter.Predict()
	if !ok {
		return t.estimate(predicted), nil
	}

	if !t.active {
		t.filter.Seed(m.Center)
		t.initial = m.Center
		t.active = true
	}

	corrected, err := t.filter.Correct(m.Center)
	if err != nil {
		return t.estimate(predicted), errors.Wrap(err, "can't correct motion filter")
	}
	return t.estimate(corrected), nil
}

// InitialPosition returns the first measured position, if any.
func (t *Tracker) InitialPosition() (Point, bool) {
	return t.initial, t.active
}

// Active reports whether a measurement has ever been acquired.
func (t *Tracker) Active() bool {
	return t.active
}

// Close releases the measurer.
func (t *Tracker) Close() error {
	if t.measurer == nil {
		return nil
	}
	return t.measurer.Close()
}

func (t *Tracker) estimate(p Point) Estimate {
	return Estimate{
		Position: p,
		Width:    t.width,
		Height:   t.height,
		Active:   t.active,
	}
}
