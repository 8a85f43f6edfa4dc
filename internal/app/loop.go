package app

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/wakegate/internal/capture"
	"github.com/ayusman/wakegate/internal/gesture"
	"github.com/ayusman/wakegate/internal/server"
	"github.com/ayusman/wakegate/internal/store"
)

// FrameRetryDelay is the pause after a failed read.
const FrameRetryDelay = 10 * time.Millisecond

// Run opens the source and processes frames until the unlock delay elapses,
// the quit key is pressed, ctx is cancelled or the source fails for good.
//
// Loop:
// 1. Read a frame; dropped frames are skipped
// 2. Correct the lens and resize to the display size
// 3. Step the sequencer with the frame and the current time
// 4. Draw the overlay, publish the snapshot and show the frame
// 5. Stop on the quit key or when the sequencer terminates
func (a *App) Run(ctx context.Context) error {
	if err := a.source.Open(); err != nil {
		return fmt.Errorf("failed to open video source: %w", err)
	}
	defer a.source.Close()

	first, err := a.source.Read()
	if err != nil {
		return fmt.Errorf("failed to read first frame from %s: %w", a.source.Name(), err)
	}
	sourceSize := image.Pt(first.Cols(), first.Rows())
	first.Close()

	var calibration *capture.Calibration
	if a.config.Calibration != "" {
		cal, err := capture.LoadCalibration(a.config.Calibration)
		if err != nil {
			return err
		}
		calibration = &cal
	}

	normalizer := capture.NewNormalizer(image.Pt(a.config.Width, a.config.Height), calibration)
	defer normalizer.Close()
	if err := normalizer.Init(sourceSize); err != nil {
		return err
	}

	gestureConfig, err := a.config.Gesture()
	if err != nil {
		return err
	}
	seq, err := gesture.NewSequencer(gestureConfig, a.detector, a.newTracker, a.now())
	if err != nil {
		return err
	}
	defer seq.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	defer wg.Wait()
	if a.config.Listen != "" && a.hub != nil {
		srv := server.New(server.Config{Store: a.store, Hub: a.hub, StaticDir: a.config.StaticDir})
		wg.Add(1)
		go func() {
			defer wg.Done()
			log.Printf("Status server listening on %s", a.config.Listen)
			if err := srv.ListenAndServe(ctx, a.config.Listen); err != nil {
				log.Printf("Status server error: %v", err)
			}
		}()
	}

	display := gocv.NewMat()
	defer display.Close()

	rec := newRecorder(a.store, a.notifier)
	rec.start(a.source.Name(), a.config.Sequence, a.now())
	seq.OnTransition = func(t gesture.Transition) {
		rec.transition(t, display)
	}
	seq.OnReset = rec.reset

	log.Printf("Waiting for %v in %v (source %s, %dx%d)", gestureConfig.Sequence, seq.ROI(), a.source.Name(), sourceSize.X, sourceSize.Y)

	var (
		fps      fpsMeter
		failures int
		runErr   error
	)

	for {
		if ctx.Err() != nil {
			log.Printf("Stopping: %v", ctx.Err())
			break
		}

		frame, err := a.source.Read()
		if err != nil {
			if !errors.Is(err, capture.ErrFrameUnavailable) {
				runErr = err
				break
			}
			failures++
			if failures == 1 {
				log.Printf("Frame lost (buffering...)")
			}
			if limit := a.config.MaxFrameFailures; limit > 0 && failures >= limit {
				runErr = fmt.Errorf("%d consecutive frame failures: %w", failures, err)
				break
			}
			sleep(ctx, FrameRetryDelay)
			continue
		}
		failures = 0

		err = normalizer.Apply(*frame, &display)
		frame.Close()
		if err != nil {
			runErr = err
			break
		}

		now := a.now()
		snap := seq.Step(display, now)
		snap.FPS = fps.tick(now)

		drawOverlay(&display, snap, seq.ROI())
		a.publish(snap, display)
		a.display.Show(display)

		if capture.QuitRequested(a.display.Key()) {
			log.Println("Quit requested")
			break
		}
		if snap.Terminate {
			break
		}
	}

	outcome := store.OutcomeAborted
	switch {
	case runErr != nil:
		outcome = store.OutcomeFailed
	case seq.State() == gesture.StateUnlocked:
		outcome = store.OutcomeUnlocked
	}
	rec.finish(outcome, a.now())

	return runErr
}

// publish hands the snapshot to the hub, encoding the frame only when a
// stream client is connected.
func (a *App) publish(snap gesture.Snapshot, frame gocv.Mat) {
	if a.hub == nil {
		return
	}

	var jpeg []byte
	if a.hub.WantsFrames() {
		buf, err := gocv.IMEncode(".jpg", frame)
		if err != nil {
			log.Printf("Error encoding frame: %v", err)
		} else {
			jpeg = append([]byte(nil), buf.GetBytes()...)
			buf.Close()
		}
	}
	a.hub.Publish(snap, jpeg)
}

// fpsMeter measures the instantaneous frame rate between consecutive ticks.
type fpsMeter struct {
	last time.Time
}

func (m *fpsMeter) tick(now time.Time) float64 {
	defer func() { m.last = now }()
	if m.last.IsZero() {
		return 0
	}
	dt := now.Sub(m.last).Seconds()
	if dt <= 0 {
		return 0
	}
	return 1 / dt
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
