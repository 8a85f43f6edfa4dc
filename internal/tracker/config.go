package tracker

// Tracker defaults.
const (
	DefaultMinBlobArea     = 3000.0
	DefaultHistory         = 500
	DefaultVarThreshold    = 25.0
	DefaultOpenKernelSize  = 5
	DefaultBoxWidth        = 100
	DefaultBoxHeight       = 100
	DefaultTimeStep        = 1.0
	DefaultAccelerationStd = 2.0
	DefaultMeasurementStd  = 0.01
)

// Config holds background subtraction and filter parameters.
type Config struct {
	// MinBlobArea is the exclusive lower bound on the largest blob's area.
	MinBlobArea float64 `json:"min_blob_area"`

	// History and VarThreshold configure the MOG2 background model.
	History       int     `json:"history"`
	VarThreshold  float64 `json:"var_threshold"`
	DetectShadows bool    `json:"detect_shadows"`

	// OpenKernelSize is the opening kernel applied to the foreground mask.
	OpenKernelSize int `json:"open_kernel_size"`

	// DefaultBoxWidth and DefaultBoxHeight are reported until a blob is seen.
	DefaultBoxWidth  int `json:"default_box_width"`
	DefaultBoxHeight int `json:"default_box_height"`

	// TimeStep is the filter step between frames.
	TimeStep float64 `json:"time_step"`

	// AccelerationStd and MeasurementStd are the filter noise deviations.
	AccelerationStd float64 `json:"acceleration_std"`
	MeasurementStd  float64 `json:"measurement_std"`
}

// DefaultConfig returns the stock tracker configuration.
func DefaultConfig() Config {
	return Config{
		MinBlobArea:      DefaultMinBlobArea,
		History:          DefaultHistory,
		VarThreshold:     DefaultVarThreshold,
		OpenKernelSize:   DefaultOpenKernelSize,
		DefaultBoxWidth:  DefaultBoxWidth,
		DefaultBoxHeight: DefaultBoxHeight,
		TimeStep:         DefaultTimeStep,
		AccelerationStd:  DefaultAccelerationStd,
		MeasurementStd:   DefaultMeasurementStd,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MinBlobArea <= 0 {
		c.MinBlobArea = d.MinBlobArea
	}
	if c.History <= 0 {
		c.History = d.History
	}
	if c.VarThreshold <= 0 {
		c.VarThreshold = d.VarThreshold
	}
	if c.OpenKernelSize <= 0 {
		c.OpenKernelSize = d.OpenKernelSize
	}
	if c.DefaultBoxWidth <= 0 {
		c.DefaultBoxWidth = d.DefaultBoxWidth
	}
	if c.DefaultBoxHeight <= 0 {
		c.DefaultBoxHeight = d.DefaultBoxHeight
	}
	if c.TimeStep <= 0 {
		c.TimeStep = d.TimeStep
	}
	if c.AccelerationStd <= 0 {
		c.AccelerationStd = d.AccelerationStd
	}
	if c.MeasurementStd <= 0 {
		c.MeasurementStd = d.MeasurementStd
	}
	return c
}
