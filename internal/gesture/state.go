// Package gesture sequences shape detections and motion tracking into the
// LOCKED -> COUNTDOWN -> TRACKING -> UNLOCKED unlock flow.
package gesture

import (
	"image"
	"time"

	"github.com/ayusman/wakegate/internal/shape"
	"github.com/ayusman/wakegate/internal/tracker"
)

// State is the externally visible state of the Sequencer.
type State string

const (
	// StateLocked waits for the expected shape sequence.
	StateLocked State = "LOCKED"
	// StateCountdown waits a fixed time before tracking starts.
	StateCountdown State = "COUNTDOWN"
	// StateTracking follows the person until they move far enough.
	StateTracking State = "TRACKING"
	// StateUnlocked counts down to termination.
	StateUnlocked State = "UNLOCKED"
)

// Sequencer defaults.
const (
	DefaultCountdown     = 5 * time.Second
	DefaultUnlockDelay   = 5 * time.Second
	DefaultMinMovement   = 700.0
	DefaultDebounce      = 200 * time.Millisecond
	DefaultMismatchGrace = 2 * time.Second
)

// Config holds the sequence and timing rules.
type Config struct {
	// Sequence is the ordered list of shapes that unlocks the countdown.
	Sequence []shape.Label

	// ROI is the region of the frame searched for shapes while locked.
	ROI image.Rectangle

	// Countdown is the delay between a full match and tracking.
	Countdown time.Duration

	// UnlockDelay is the delay between unlocking and termination.
	UnlockDelay time.Duration

	// MinMovement is the distance in pixels from the initial position that unlocks.
	MinMovement float64

	// Debounce is the minimum spacing between two accepted detections.
	Debounce time.Duration

	// MismatchGrace is how long a wrong shape must wait before it resets the sequence.
	MismatchGrace time.Duration
}

// DefaultConfig returns the stock timing with an empty sequence.
func DefaultConfig() Config {
	return Config{
		Countdown:     DefaultCountdown,
		UnlockDelay:   DefaultUnlockDelay,
		MinMovement:   DefaultMinMovement,
		Debounce:      DefaultDebounce,
		MismatchGrace: DefaultMismatchGrace,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.Countdown <= 0 {
		c.Countdown = d.Countdown
	}
	if c.UnlockDelay <= 0 {
		c.UnlockDelay = d.UnlockDelay
	}
	if c.MinMovement <= 0 {
		c.MinMovement = d.MinMovement
	}
	if c.Debounce < 0 {
		c.Debounce = d.Debounce
	}
	if c.MismatchGrace < 0 {
		c.MismatchGrace = d.MismatchGrace
	}
	return c
}

// Transition records a state change.
type Transition struct {
	From State     `json:"from"`
	To   State     `json:"to"`
	At   time.Time `json:"at"`
}

// Snapshot is the per-frame output of the Sequencer.
type Snapshot struct {
	At            time.Time         `json:"at"`
	State         State             `json:"state"`
	Detected      int               `json:"detected"`
	Expected      int               `json:"expected"`
	Detection     *shape.Detection  `json:"detection,omitempty"`
	Matched       bool              `json:"matched"`
	SequenceReset bool              `json:"sequence_reset"`
	Remaining     int               `json:"remaining,omitempty"`
	Estimate      *tracker.Estimate `json:"estimate,omitempty"`
	Initial       *tracker.Point    `json:"initial,omitempty"`
	Progress      float64           `json:"progress"`
	FPS           float64           `json:"fps"`
	Terminate     bool              `json:"terminate"`
}
