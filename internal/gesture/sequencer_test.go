package gesture

import (
	"errors"
	"image"
	"testing"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/wakegate/internal/shape"
	"github.com/ayusman/wakegate/internal/tracker"
)

// mockDetector returns the label set before each Step.
type mockDetector struct {
	label shape.Label
	rois  []image.Rectangle
}

func (d *mockDetector) Detect(frame gocv.Mat, roi image.Rectangle) (shape.Detection, bool) {
	d.rois = append(d.rois, roi)
	if d.label == shape.None {
		return shape.Detection{}, false
	}
	return shape.Detection{Label: d.label, Area: 1000}, true
}

// mockTracker replays scripted estimates around a fixed initial position.
type mockTracker struct {
	initial   tracker.Point
	estimates []tracker.Estimate
	err       error
	calls     int
	closed    bool
}

func (m *mockTracker) Update(frame gocv.Mat) (tracker.Estimate, error) {
	est := tracker.Estimate{}
	if m.calls < len(m.estimates) {
		est = m.estimates[m.calls]
	} else if len(m.estimates) > 0 {
		est = m.estimates[len(m.estimates)-1]
	}
	m.calls++
	return est, m.err
}

func (m *mockTracker) InitialPosition() (tracker.Point, bool) {
	if m.calls == 0 || len(m.estimates) == 0 || !m.estimates[0].Active {
		return tracker.Point{}, false
	}
	return m.initial, true
}

func (m *mockTracker) Close() error {
	m.closed = true
	return nil
}

var t0 = time.Date(2026, 1, 1, 7, 0, 0, 0, time.UTC)

type harness struct {
	seq         *Sequencer
	detector    *mockDetector
	tracker     *mockTracker
	newTracker  TrackerFactory
	built       int
	transitions []Transition
	resets      int
	frame       gocv.Mat
}

func newHarness(t *testing.T, sequence []shape.Label, start time.Time) *harness {
	t.Helper()

	h := &harness{
		detector: &mockDetector{},
		tracker:  &mockTracker{},
		frame:    gocv.NewMat(),
	}
	t.Cleanup(func() { h.frame.Close() })

	cfg := DefaultConfig()
	cfg.Sequence = sequence
	cfg.ROI = image.Rect(415, 135, 865, 585)

	seq, err := NewSequencer(cfg, h.detector, func() MotionTracker {
		h.built++
		if h.newTracker != nil {
			return h.newTracker()
		}
		return h.tracker
	}, start)
	if err != nil {
		t.Fatalf("NewSequencer() error = %v", err)
	}
	seq.OnTransition = func(tr Transition) { h.transitions = append(h.transitions, tr) }
	seq.OnReset = func(time.Time) { h.resets++ }
	h.seq = seq
	return h
}

func (h *harness) show(label shape.Label, at time.Time) Snapshot {
	h.detector.label = label
	return h.seq.Step(h.frame, at)
}

// toCountdown drives a single-shape sequence into COUNTDOWN at the returned time.
func (h *harness) toCountdown(t *testing.T) time.Time {
	t.Helper()
	at := t0.Add(time.Second)
	h.show(h.seq.config.Sequence[0], at)
	if h.seq.State() != StateCountdown {
		t.Fatalf("state = %s, want %s", h.seq.State(), StateCountdown)
	}
	return at
}

// toTracking drives the sequencer into TRACKING at the returned time.
func (h *harness) toTracking(t *testing.T) time.Time {
	t.Helper()
	at := h.toCountdown(t).Add(DefaultCountdown)
	h.show(shape.None, at)
	if h.seq.State() != StateTracking {
		t.Fatalf("state = %s, want %s", h.seq.State(), StateTracking)
	}
	return at
}

func TestNewSequencer_Validation(t *testing.T) {
	det := &mockDetector{}
	factory := func() MotionTracker { return &mockTracker{} }

	if _, err := NewSequencer(Config{}, det, factory, t0); !errors.Is(err, ErrEmptySequence) {
		t.Errorf("empty sequence error = %v, want ErrEmptySequence", err)
	}

	cfg := Config{Sequence: []shape.Label{shape.Circle}}
	if _, err := NewSequencer(cfg, nil, factory, t0); err == nil {
		t.Error("expected error for nil detector")
	}
	if _, err := NewSequencer(cfg, det, nil, t0); err == nil {
		t.Error("expected error for nil tracker factory")
	}

	seq, err := NewSequencer(cfg, det, factory, t0)
	if err != nil {
		t.Fatalf("NewSequencer() error = %v", err)
	}
	if seq.State() != StateLocked {
		t.Errorf("initial state = %s, want %s", seq.State(), StateLocked)
	}
	if seq.config.Countdown != DefaultCountdown || seq.config.MinMovement != DefaultMinMovement {
		t.Error("unset durations should fall back to defaults")
	}
}

func TestSequencer_SingleShapeStartsCountdown(t *testing.T) {
	h := newHarness(t, []shape.Label{shape.Mountain}, t0)

	snap := h.show(shape.Mountain, t0.Add(300*time.Millisecond))

	if snap.State != StateCountdown {
		t.Fatalf("state = %s, want %s", snap.State, StateCountdown)
	}
	if snap.Detection == nil || snap.Detection.Label != shape.Mountain {
		t.Errorf("Detection = %+v, want MOUNTAIN", snap.Detection)
	}
	if !snap.Matched {
		t.Error("Matched should be true for the expected shape")
	}
	if snap.Remaining != 5 {
		t.Errorf("Remaining = %d, want 5", snap.Remaining)
	}
	if len(h.transitions) != 1 || h.transitions[0].From != StateLocked || h.transitions[0].To != StateCountdown {
		t.Errorf("transitions = %+v, want LOCKED -> COUNTDOWN", h.transitions)
	}
	if got := h.detector.rois[0]; got != image.Rect(415, 135, 865, 585) {
		t.Errorf("detector ROI = %v, want the configured ROI", got)
	}
}

func TestSequencer_Debounce(t *testing.T) {
	h := newHarness(t, []shape.Label{shape.Circle, shape.Circle, shape.Square}, t0.Add(-time.Second))

	snap := h.show(shape.Circle, t0)
	if snap.Detected != 1 {
		t.Fatalf("Detected = %d, want 1", snap.Detected)
	}

	snap = h.show(shape.Circle, t0.Add(100*time.Millisecond))
	if snap.Detected != 1 {
		t.Errorf("Detected = %d, want 1 (second detection within debounce)", snap.Detected)
	}
	if !snap.Matched {
		t.Error("a debounced expected shape should still be reported as matched")
	}

	snap = h.show(shape.Circle, t0.Add(250*time.Millisecond))
	if snap.Detected != 2 {
		t.Errorf("Detected = %d, want 2 after the debounce interval", snap.Detected)
	}
}

func TestSequencer_MismatchGraceAndReset(t *testing.T) {
	h := newHarness(t, []shape.Label{shape.Circle, shape.Square}, t0.Add(-time.Second))

	h.show(shape.Circle, t0)

	snap := h.show(shape.Arrow, t0.Add(time.Second))
	if snap.Detected != 1 || snap.SequenceReset {
		t.Fatalf("mismatch within grace: Detected = %d, reset = %v; want 1, false", snap.Detected, snap.SequenceReset)
	}
	if snap.Matched {
		t.Error("Matched should be false for a wrong shape")
	}

	snap = h.show(shape.Arrow, t0.Add(2*time.Second))
	if snap.Detected != 0 || !snap.SequenceReset {
		t.Fatalf("mismatch after grace: Detected = %d, reset = %v; want 0, true", snap.Detected, snap.SequenceReset)
	}
	if h.resets != 1 {
		t.Errorf("OnReset called %d times, want 1", h.resets)
	}

	// Further mismatches keep the sequence empty.
	for _, offset := range []time.Duration{2500 * time.Millisecond, 4500 * time.Millisecond, 7 * time.Second} {
		snap = h.show(shape.Peak, t0.Add(offset))
		if snap.Detected != 0 {
			t.Errorf("at +%v: Detected = %d, want 0", offset, snap.Detected)
		}
		if !snap.SequenceReset {
			t.Errorf("at +%v: reset flag should persist until a correct shape", offset)
		}
	}
	if h.seq.State() != StateLocked {
		t.Errorf("state = %s, want %s", h.seq.State(), StateLocked)
	}

	snap = h.show(shape.Circle, t0.Add(8*time.Second))
	if snap.Detected != 1 || snap.SequenceReset {
		t.Errorf("after a correct shape: Detected = %d, reset = %v; want 1, false", snap.Detected, snap.SequenceReset)
	}
}

func TestSequencer_NoDetectionLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t, []shape.Label{shape.Circle, shape.Square}, t0.Add(-time.Second))

	h.show(shape.Circle, t0)
	snap := h.show(shape.None, t0.Add(10*time.Second))

	if snap.Detected != 1 || snap.Detection != nil {
		t.Errorf("Detected = %d, Detection = %+v; want 1, nil", snap.Detected, snap.Detection)
	}
}

func TestSequencer_DetectedIsPrefixOfExpected(t *testing.T) {
	expected := []shape.Label{shape.Circle, shape.Arrow, shape.Square, shape.Mountain}
	h := newHarness(t, expected, t0)

	labels := []shape.Label{
		shape.Circle, shape.Arrow, shape.Peak, shape.Arrow, shape.Square,
		shape.Circle, shape.Circle, shape.Mountain, shape.Arrow, shape.Square,
		shape.Peak, shape.Circle, shape.Arrow, shape.Square,
	}
	at := t0
	for i, l := range labels {
		at = at.Add(time.Duration(150+(i%4)*700) * time.Millisecond)
		h.show(l, at)
		if h.seq.State() != StateLocked {
			break
		}

		detected := h.seq.Detected()
		if len(detected) > len(expected) {
			t.Fatalf("step %d: detected %d shapes, more than expected %d", i, len(detected), len(expected))
		}
		for j, d := range detected {
			if d != expected[j] {
				t.Fatalf("step %d: detected[%d] = %s, want %s", i, j, d, expected[j])
			}
		}
	}
}

func TestSequencer_CountdownToTracking(t *testing.T) {
	h := newHarness(t, []shape.Label{shape.Square}, t0)
	start := h.toCountdown(t)

	snap := h.show(shape.None, start.Add(time.Second))
	if snap.State != StateCountdown || snap.Remaining != 4 {
		t.Errorf("at +1s: state = %s, remaining = %d; want COUNTDOWN, 4", snap.State, snap.Remaining)
	}

	snap = h.show(shape.None, start.Add(4500*time.Millisecond))
	if snap.Remaining != 1 {
		t.Errorf("at +4.5s: remaining = %d, want 1", snap.Remaining)
	}
	if h.built != 0 {
		t.Fatal("tracker should not be built during the countdown")
	}

	snap = h.show(shape.None, start.Add(5*time.Second))
	if snap.State != StateTracking {
		t.Fatalf("at +5s: state = %s, want %s", snap.State, StateTracking)
	}
	if h.built != 1 {
		t.Errorf("tracker built %d times, want 1", h.built)
	}

	snap = h.show(shape.None, start.Add(5100*time.Millisecond))
	if snap.Estimate == nil || snap.Estimate.Active {
		t.Errorf("fresh tracker estimate = %+v, want inactive", snap.Estimate)
	}
}

func TestSequencer_TrackingUnlocks(t *testing.T) {
	h := newHarness(t, []shape.Label{shape.Arrow}, t0)
	h.tracker.initial = tracker.Point{X: 100, Y: 100}
	h.tracker.estimates = []tracker.Estimate{
		{Position: tracker.Point{X: 100, Y: 100}, Active: true},
		{Position: tracker.Point{X: 450, Y: 100}, Active: true},
		{Position: tracker.Point{X: 800, Y: 100}, Active: true},
		{Position: tracker.Point{X: 801, Y: 100}, Active: true},
	}
	at := h.toTracking(t)

	snap := h.show(shape.None, at.Add(100*time.Millisecond))
	if snap.Progress != 0 || snap.Initial == nil {
		t.Errorf("progress = %f, initial = %v; want 0 and set", snap.Progress, snap.Initial)
	}

	snap = h.show(shape.None, at.Add(200*time.Millisecond))
	if snap.Progress != 0.5 {
		t.Errorf("progress = %f, want 0.5", snap.Progress)
	}

	snap = h.show(shape.None, at.Add(300*time.Millisecond))
	if snap.State != StateTracking || snap.Progress != 1.0 {
		t.Errorf("at exactly the threshold: state = %s, progress = %f; want TRACKING, 1.0", snap.State, snap.Progress)
	}

	unlockAt := at.Add(400 * time.Millisecond)
	snap = h.show(shape.None, unlockAt)
	if snap.State != StateUnlocked {
		t.Fatalf("state = %s, want %s", snap.State, StateUnlocked)
	}
	if !h.tracker.closed {
		t.Error("tracker should be released when leaving TRACKING")
	}

	last := h.transitions[len(h.transitions)-1]
	if last.From != StateTracking || last.To != StateUnlocked || !last.At.Equal(unlockAt) {
		t.Errorf("last transition = %+v, want TRACKING -> UNLOCKED at %v", last, unlockAt)
	}
}

// blobAt reports one blob per Update, centered at the scripted x positions.
type blobAt struct {
	xs    []float64
	calls int
}

func (b *blobAt) Measure(frame gocv.Mat) (tracker.Measurement, bool) {
	if b.calls >= len(b.xs) {
		return tracker.Measurement{}, false
	}
	x := b.xs[b.calls]
	b.calls++
	box := image.Rect(int(x)-50, 50, int(x)+50, 150)
	return tracker.Measurement{Center: tracker.Point{X: x, Y: 100}, Box: box, Area: 10000}, true
}

func (b *blobAt) Close() error { return nil }

func TestSequencer_KalmanTrackerUnlocksOnNextUpdate(t *testing.T) {
	h := newHarness(t, []shape.Label{shape.Mountain}, t0)
	h.newTracker = func() MotionTracker {
		cfg := tracker.DefaultConfig()
		return tracker.New(tracker.NewKalmanFilter(cfg), &blobAt{xs: []float64{100, 801}}, cfg)
	}
	at := h.toTracking(t)

	snap := h.show(shape.None, at.Add(100*time.Millisecond))
	if snap.Initial == nil || *snap.Initial != (tracker.Point{X: 100, Y: 100}) {
		t.Fatalf("initial = %v, want (100,100)", snap.Initial)
	}
	if snap.State != StateTracking {
		t.Fatalf("state = %s, want %s", snap.State, StateTracking)
	}

	snap = h.show(shape.None, at.Add(200*time.Millisecond))
	if snap.State != StateUnlocked {
		t.Fatalf("after a 701px move: state = %s, want %s (estimate %+v)", snap.State, StateUnlocked, snap.Estimate)
	}
	if snap.Estimate.Position.X <= 800 || snap.Estimate.Position.X > 801 {
		t.Errorf("corrected x = %f, want within (800, 801]", snap.Estimate.Position.X)
	}
}

func TestSequencer_TrackingWithoutMeasurementHolds(t *testing.T) {
	h := newHarness(t, []shape.Label{shape.Circle}, t0)
	at := h.toTracking(t)

	for i := 1; i <= 20; i++ {
		snap := h.show(shape.None, at.Add(time.Duration(i)*time.Minute))
		if snap.State != StateTracking {
			t.Fatalf("state = %s, want %s while no blob was seen", snap.State, StateTracking)
		}
	}
}

func TestSequencer_TrackerErrorIsNotFatal(t *testing.T) {
	h := newHarness(t, []shape.Label{shape.Circle}, t0)
	h.tracker.initial = tracker.Point{X: 0, Y: 0}
	h.tracker.err = errors.New("correction failed")
	h.tracker.estimates = []tracker.Estimate{
		{Position: tracker.Point{X: 0, Y: 0}, Active: true},
		{Position: tracker.Point{X: 0, Y: 900}, Active: true},
	}
	at := h.toTracking(t)

	h.show(shape.None, at.Add(time.Second))
	snap := h.show(shape.None, at.Add(2*time.Second))
	if snap.State != StateUnlocked {
		t.Errorf("state = %s, want %s", snap.State, StateUnlocked)
	}
}

func TestSequencer_UnlockedTerminates(t *testing.T) {
	h := newHarness(t, []shape.Label{shape.Circle}, t0)
	h.tracker.initial = tracker.Point{X: 0, Y: 0}
	h.tracker.estimates = []tracker.Estimate{
		{Position: tracker.Point{X: 0, Y: 0}, Active: true},
		{Position: tracker.Point{X: 1000, Y: 0}, Active: true},
	}
	at := h.toTracking(t)
	h.show(shape.None, at.Add(time.Second))
	unlockAt := at.Add(2 * time.Second)
	h.show(shape.None, unlockAt)

	snap := h.show(shape.None, unlockAt.Add(time.Second))
	if snap.Terminate || snap.Remaining != 4 {
		t.Errorf("at +1s: terminate = %v, remaining = %d; want false, 4", snap.Terminate, snap.Remaining)
	}

	snap = h.show(shape.None, unlockAt.Add(5*time.Second))
	if !snap.Terminate || !h.seq.Done() {
		t.Error("sequencer should terminate once the unlock delay elapsed")
	}
	if snap.State != StateUnlocked {
		t.Errorf("state = %s, want %s", snap.State, StateUnlocked)
	}

	snap = h.show(shape.None, unlockAt.Add(6*time.Second))
	if !snap.Terminate {
		t.Error("terminate should stay set")
	}

	want := []State{StateCountdown, StateTracking, StateUnlocked}
	if len(h.transitions) != len(want) {
		t.Fatalf("got %d transitions, want %d", len(h.transitions), len(want))
	}
	for i, tr := range h.transitions {
		if tr.To != want[i] {
			t.Errorf("transition %d to %s, want %s", i, tr.To, want[i])
		}
	}
}

func TestRemainingSeconds(t *testing.T) {
	tests := []struct {
		elapsed time.Duration
		want    int
	}{
		{0, 5},
		{1, 5},
		{999 * time.Millisecond, 5},
		{time.Second, 4},
		{4900 * time.Millisecond, 1},
		{5 * time.Second, 0},
		{6 * time.Second, -1},
	}

	for _, tt := range tests {
		if got := remainingSeconds(5*time.Second, tt.elapsed); got != tt.want {
			t.Errorf("remainingSeconds(5s, %v) = %d, want %d", tt.elapsed, got, tt.want)
		}
	}
}
