// Package config holds the wakegate runtime configuration.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/ayusman/wakegate/internal/gesture"
	"github.com/ayusman/wakegate/internal/shape"
	"github.com/ayusman/wakegate/internal/tracker"
)

// Display and ROI defaults.
const (
	DefaultSource      = "0"
	DefaultWidth       = 1280
	DefaultHeight      = 720
	DefaultROISize     = 450
	DefaultDatabase    = "wakegate.db"
	DefaultHookTimeout = 5 * time.Second
)

// DefaultSequence is the unlock sequence used when none is configured.
var DefaultSequence = []string{string(shape.Mountain)}

// Config is the full runtime configuration.
type Config struct {
	// Source is a device index or a file path / stream URL.
	Source string `json:"source"`

	// Calibration is an optional lens calibration file.
	Calibration string `json:"calibration,omitempty"`

	// MaxFrameFailures stops the loop after this many consecutive failed
	// reads. Zero retries forever.
	MaxFrameFailures int `json:"max_frame_failures"`

	// Sequence lists the shape names that start the countdown, in order.
	Sequence []string `json:"sequence"`

	// Width and Height are the display frame dimensions.
	Width  int `json:"width"`
	Height int `json:"height"`

	// ROISize is the side of the square searched for shapes. The ROI is
	// centered unless ROIOrigin is set.
	ROISize   int          `json:"roi_size"`
	ROIOrigin *image.Point `json:"roi_origin,omitempty"`

	Countdown     Duration `json:"countdown"`
	UnlockDelay   Duration `json:"unlock_delay"`
	MinMovement   float64  `json:"min_movement"`
	Debounce      Duration `json:"debounce"`
	MismatchGrace Duration `json:"mismatch_grace"`

	Shape   shape.Config   `json:"shape"`
	Tracker tracker.Config `json:"tracker"`

	// Database is the SQLite session history path. Empty disables history.
	Database string `json:"database"`

	// Hook is an executable run on every state transition.
	Hook        string   `json:"hook,omitempty"`
	HookTimeout Duration `json:"hook_timeout"`

	// Listen is the status server address. Empty disables the server.
	Listen string `json:"listen,omitempty"`

	// StaticDir is served at / by the status server when set.
	StaticDir string `json:"static_dir,omitempty"`

	// Headless disables the display window.
	Headless bool `json:"headless"`

	Verbose bool `json:"verbose"`
}

// Default returns the stock configuration.
func Default() Config {
	return Config{
		Source:        DefaultSource,
		Sequence:      append([]string(nil), DefaultSequence...),
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		ROISize:       DefaultROISize,
		Countdown:     Duration{gesture.DefaultCountdown},
		UnlockDelay:   Duration{gesture.DefaultUnlockDelay},
		MinMovement:   gesture.DefaultMinMovement,
		Debounce:      Duration{gesture.DefaultDebounce},
		MismatchGrace: Duration{gesture.DefaultMismatchGrace},
		Shape:         shape.DefaultConfig(),
		Tracker:       tracker.DefaultConfig(),
		Database:      DefaultDatabase,
		HookTimeout:   Duration{DefaultHookTimeout},
	}
}

// Load reads a JSON file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for values the loop cannot run with.
func (c Config) Validate() error {
	if c.Source == "" {
		return errors.New("video source is required")
	}
	if _, err := c.Labels(); err != nil {
		return err
	}
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid display size %dx%d", c.Width, c.Height)
	}
	if c.ROISize <= 0 {
		return fmt.Errorf("invalid roi size %d", c.ROISize)
	}
	frame := image.Rect(0, 0, c.Width, c.Height)
	if roi := c.ROI(); !roi.In(frame) {
		return fmt.Errorf("roi %v does not fit in %dx%d frame", roi, c.Width, c.Height)
	}

	durations := []struct {
		name  string
		value time.Duration
	}{
		{"countdown", c.Countdown.Duration},
		{"unlock_delay", c.UnlockDelay.Duration},
		{"hook_timeout", c.HookTimeout.Duration},
	}
	for _, d := range durations {
		if d.value <= 0 {
			return fmt.Errorf("%s must be positive, got %v", d.name, d.value)
		}
	}
	if c.Debounce.Duration < 0 || c.MismatchGrace.Duration < 0 {
		return errors.New("debounce and mismatch_grace must not be negative")
	}
	if c.MaxFrameFailures < 0 {
		return fmt.Errorf("max_frame_failures must not be negative, got %d", c.MaxFrameFailures)
	}
	if c.MinMovement <= 0 {
		return fmt.Errorf("min_movement must be positive, got %v", c.MinMovement)
	}
	if c.Shape.MinAreaRatio >= c.Shape.MaxAreaRatio && c.Shape.MaxAreaRatio > 0 {
		return fmt.Errorf("shape area ratios %v..%v are empty", c.Shape.MinAreaRatio, c.Shape.MaxAreaRatio)
	}
	return nil
}

// Labels parses the expected sequence.
func (c Config) Labels() ([]shape.Label, error) {
	if len(c.Sequence) == 0 {
		return nil, gesture.ErrEmptySequence
	}
	return shape.ParseSequence(c.Sequence)
}

// ROI returns the shape search region in display coordinates.
func (c Config) ROI() image.Rectangle {
	origin := image.Pt((c.Width-c.ROISize)/2, (c.Height-c.ROISize)/2)
	if c.ROIOrigin != nil {
		origin = *c.ROIOrigin
	}
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(c.ROISize, c.ROISize))}
}

// Gesture returns the sequencer configuration.
func (c Config) Gesture() (gesture.Config, error) {
	labels, err := c.Labels()
	if err != nil {
		return gesture.Config{}, err
	}
	return gesture.Config{
		Sequence:      labels,
		ROI:           c.ROI(),
		Countdown:     c.Countdown.Duration,
		UnlockDelay:   c.UnlockDelay.Duration,
		MinMovement:   c.MinMovement,
		Debounce:      c.Debounce.Duration,
		MismatchGrace: c.MismatchGrace.Duration,
	}, nil
}

// Classifier returns the shape thresholds with the verbose flag applied.
func (c Config) Classifier() shape.Config {
	s := c.Shape
	s.Verbose = s.Verbose || c.Verbose
	return s
}

// Duration is a time.Duration that reads "1.5s" strings or plain seconds from JSON.
type Duration struct {
	time.Duration
}

// MarshalJSON encodes the duration as a string.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts a duration string or a number of seconds.
func (d *Duration) UnmarshalJSON(data []byte) error {
	var v interface{}
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch value := v.(type) {
	case float64:
		d.Duration = time.Duration(value * float64(time.Second))
	case string:
		parsed, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", value, err)
		}
		d.Duration = parsed
	default:
		return fmt.Errorf("invalid duration %s", string(data))
	}
	return nil
}
