package tracker

import (
	kalman_filter "github.com/LdDl/kalman-filter"
	"github.com/pkg/errors"
)

// KalmanFilter is a constant-velocity Kalman filter over (x, y, vx, vy)
// with (x, y) measurements. It applies no control input.
type KalmanFilter struct {
	config Config
	kf     *kalman_filter.Kalman2D
}

// NewKalmanFilter creates a filter whose state starts at the origin.
func NewKalmanFilter(config Config) *KalmanFilter {
	config = config.withDefaults()
	return &KalmanFilter{
		config: config,
		kf:     newKalman2D(config, 0, 0),
	}
}

func newKalman2D(config Config, x, y float64) *kalman_filter.Kalman2D {
	return kalman_filter.NewKalman2D(
		config.TimeStep,
		0, 0,
		config.AccelerationStd,
		config.MeasurementStd, config.MeasurementStd,
		kalman_filter.WithState2D(x, y),
	)
}

// Predict executes the filter's time update.
func (k *KalmanFilter) Predict() Point {
	k.kf.Predict()
	x, y := k.kf.GetState()
	return Point{X: x, Y: y}
}

// Correct executes the filter's measurement update.
func (k *KalmanFilter) Correct(measurement Point) (Point, error) {
	if err := k.kf.Update(measurement.X, measurement.Y); err != nil {
		return Point{}, errors.Wrap(err, "can't update kalman filter")
	}
	x, y := k.kf.GetState()
	return Point{X: x, Y: y}, nil
}

// Seed discards the current state and restarts at p with zero velocity.
func (k *KalmanFilter) Seed(p Point) {
	k.kf = newKalman2D(k.config, p.X, p.Y)
}
