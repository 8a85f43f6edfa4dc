package gesture

import (
	"errors"
	"image"
	"log"
	"math"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/wakegate/internal/shape"
	"github.com/ayusman/wakegate/internal/tracker"
)

// ErrEmptySequence is returned when no expected shapes are configured.
var ErrEmptySequence = errors.New("expected sequence is empty")

// ShapeDetector classifies the shape inside a region of a frame.
type ShapeDetector interface {
	Detect(frame gocv.Mat, roi image.Rectangle) (shape.Detection, bool)
}

// MotionTracker follows a moving blob from an initial position.
type MotionTracker interface {
	Update(frame gocv.Mat) (tracker.Estimate, error)
	InitialPosition() (tracker.Point, bool)
	Close() error
}

// TrackerFactory builds a fresh tracker when tracking starts.
type TrackerFactory func() MotionTracker

// Sequencer is the unlock state machine. It is driven one frame at a time
// with explicit timestamps and is not safe for concurrent use.
type Sequencer struct {
	config     Config
	detector   ShapeDetector
	newTracker TrackerFactory
	tracker    MotionTracker

	state      State
	detected   []shape.Label
	lastEvent  time.Time
	stateSince time.Time
	reset      bool
	done       bool

	// OnTransition is called after every state change.
	OnTransition func(Transition)
	// OnReset is called whenever a mismatch clears the detected sequence.
	OnReset func(at time.Time)
}

// NewSequencer creates a Sequencer in the LOCKED state. now is the reference
// for the first debounce and grace intervals.
func NewSequencer(config Config, detector ShapeDetector, newTracker TrackerFactory, now time.Time) (*Sequencer, error) {
	if len(config.Sequence) == 0 {
		return nil, ErrEmptySequence
	}
	if detector == nil {
		return nil, errors.New("shape detector is required")
	}
	if newTracker == nil {
		return nil, errors.New("tracker factory is required")
	}

	config = config.withDefaults()
	config.Sequence = append([]shape.Label(nil), config.Sequence...)

	return &Sequencer{
		config:     config,
		detector:   detector,
		newTracker: newTracker,
		state:      StateLocked,
		detected:   make([]shape.Label, 0, len(config.Sequence)),
		lastEvent:  now,
		stateSince: now,
	}, nil
}

// State returns the current state.
func (s *Sequencer) State() State {
	return s.state
}

// Detected returns a copy of the shapes accepted so far.
func (s *Sequencer) Detected() []shape.Label {
	return append([]shape.Label(nil), s.detected...)
}

// Expected returns a copy of the configured sequence.
func (s *Sequencer) Expected() []shape.Label {
	return append([]shape.Label(nil), s.config.Sequence...)
}

// ROI returns the region searched for shapes.
func (s *Sequencer) ROI() image.Rectangle {
	return s.config.ROI
}

// Done reports whether the unlock delay has elapsed.
func (s *Sequencer) Done() bool {
	return s.done
}

// Step processes one frame observed at now.
func (s *Sequencer) Step(frame gocv.Mat, now time.Time) Snapshot {
	switch s.state {
	case StateLocked:
		return s.stepLocked(frame, now)
	case StateCountdown:
		return s.stepCountdown(now)
	case StateTracking:
		return s.stepTracking(frame, now)
	default:
		return s.stepUnlocked(now)
	}
}

// Close releases the active tracker, if any.
func (s *Sequencer) Close() error {
	if s.tracker == nil {
		return nil
	}
	err := s.tracker.Close()
	s.tracker = nil
	return err
}

func (s *Sequencer) stepLocked(frame gocv.Mat, now time.Time) Snapshot {
	snap := s.snapshot(now)

	if det, ok := s.detector.Detect(frame, s.config.ROI); ok {
		snap.Detection = &det
		snap.Matched = s.observe(det.Label, now)
	}

	snap.Detected = len(s.detected)
	snap.SequenceReset = s.reset

	if len(s.detected) == len(s.config.Sequence) {
		s.detected = s.detected[:0]
		s.reset = false
		s.transition(StateCountdown, now)
		snap.State = s.state
		snap.SequenceReset = false
		snap.Remaining = remainingSeconds(s.config.Countdown, 0)
	}

	return snap
}

// observe applies one recognized label to the detected sequence and reports
// whether it was the expected one.
func (s *Sequencer) observe(label shape.Label, now time.Time) bool {
	expected := s.config.Sequence[len(s.detected)]
	elapsed := now.Sub(s.lastEvent)

	if label == expected {
		if elapsed >= s.config.Debounce {
			s.detected = append(s.detected, label)
			s.lastEvent = now
			s.reset = false
			log.Printf("Sequence progress: %s (%d/%d)", label, len(s.detected), len(s.config.Sequence))
		}
		return true
	}

	if elapsed >= s.config.MismatchGrace {
		s.detected = s.detected[:0]
		s.lastEvent = now
		s.reset = true
		log.Printf("Sequence reset: got %s, expected %s", label, expected)
		if s.OnReset != nil {
			s.OnReset(now)
		}
	}
	return false
}

func (s *Sequencer) stepCountdown(now time.Time) Snapshot {
	snap := s.snapshot(now)
	snap.Remaining = remainingSeconds(s.config.Countdown, now.Sub(s.stateSince))

	if snap.Remaining <= 0 {
		s.tracker = s.newTracker()
		s.transition(StateTracking, now)
		snap.State = s.state
		snap.Remaining = 0
	}
	return snap
}

func (s *Sequencer) stepTracking(frame gocv.Mat, now time.Time) Snapshot {
	snap := s.snapshot(now)

	est, err := s.tracker.Update(frame)
	if err != nil {
		log.Printf("Tracker update: %v", err)
	}
	snap.Estimate = &est

	if !est.Active {
		return snap
	}
	initial, ok := s.tracker.InitialPosition()
	if !ok {
		return snap
	}
	snap.Initial = &initial

	distance := est.Position.DistanceTo(initial)
	snap.Progress = math.Min(distance/s.config.MinMovement, 1.0)

	if distance > s.config.MinMovement {
		if err := s.Close(); err != nil {
			log.Printf("Error closing tracker: %v", err)
		}
		s.transition(StateUnlocked, now)
		snap.State = s.state
		snap.Remaining = remainingSeconds(s.config.UnlockDelay, 0)
	}
	return snap
}

func (s *Sequencer) stepUnlocked(now time.Time) Snapshot {
	snap := s.snapshot(now)
	snap.Remaining = remainingSeconds(s.config.UnlockDelay, now.Sub(s.stateSince))

	if snap.Remaining <= 0 {
		snap.Remaining = 0
		s.done = true
	}
	snap.Terminate = s.done
	return snap
}

func (s *Sequencer) transition(to State, now time.Time) {
	t := Transition{From: s.state, To: to, At: now}
	s.state = to
	s.stateSince = now
	log.Printf("State changed: %s -> %s", t.From, t.To)

	if s.OnTransition != nil {
		s.OnTransition(t)
	}
}

func (s *Sequencer) snapshot(now time.Time) Snapshot {
	return Snapshot{
		At:       now,
		State:    s.state,
		Detected: len(s.detected),
		Expected: len(s.config.Sequence),
	}
}

// remainingSeconds returns ceil(d - elapsed) in whole seconds.
func remainingSeconds(d, elapsed time.Duration) int {
	return int(math.Ceil((d - elapsed).Seconds()))
}
