package app

import (
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/wakegate/internal/gesture"
	"github.com/ayusman/wakegate/internal/hook"
	"github.com/ayusman/wakegate/internal/store"
)

// recorder persists the run history and forwards events to the notifier.
// Both are optional and their failures are only logged.
type recorder struct {
	store     *store.Store
	notifier  Notifier
	sessionID string
}

func newRecorder(s *store.Store, n Notifier) *recorder {
	return &recorder{store: s, notifier: n}
}

func (r *recorder) start(source string, sequence []string, at time.Time) {
	if r.store == nil {
		return
	}

	sess := &store.Session{
		Source:    source,
		Sequence:  sequence,
		StartedAt: at,
	}
	if err := r.store.Sessions().Create(sess); err != nil {
		log.Printf("Failed to record session: %v", err)
		return
	}
	r.sessionID = sess.ID
}

// transition records t. frame is the display frame of the step that caused it.
func (r *recorder) transition(t gesture.Transition, frame gocv.Mat) {
	r.notify(hook.Event{
		Event: hook.EventTransition,
		From:  string(t.From),
		To:    string(t.To),
		At:    t.At,
	})

	if r.sessionID == "" {
		return
	}

	err := r.store.Transitions().Record(&store.Transition{
		SessionID: r.sessionID,
		From:      string(t.From),
		To:        string(t.To),
		At:        t.At,
	})
	if err != nil {
		log.Printf("Failed to record transition: %v", err)
	}

	if t.To != gesture.StateUnlocked {
		return
	}
	if err := r.store.Sessions().MarkUnlocked(r.sessionID, t.At); err != nil {
		log.Printf("Failed to mark session unlocked: %v", err)
	}

	img, err := frame.ToImage()
	if err != nil {
		log.Printf("Failed to convert unlock frame: %v", err)
		return
	}
	if _, err := r.store.Snapshots().Save(r.sessionID, img, t.At); err != nil {
		log.Printf("Failed to save unlock snapshot: %v", err)
	}
}

func (r *recorder) reset(at time.Time) {
	r.notify(hook.Event{Event: hook.EventReset, From: string(gesture.StateLocked), At: at})

	if r.sessionID == "" {
		return
	}
	if err := r.store.Sessions().IncrementResets(r.sessionID); err != nil {
		log.Printf("Failed to count sequence reset: %v", err)
	}
}

func (r *recorder) finish(outcome store.Outcome, at time.Time) {
	r.notify(hook.Event{Event: hook.EventFinished, Outcome: string(outcome), At: at})

	if r.sessionID == "" {
		return
	}
	if err := r.store.Sessions().Finish(r.sessionID, outcome, at); err != nil {
		log.Printf("Failed to finish session: %v", err)
	}
	log.Printf("Session %s finished: %s", r.sessionID, outcome)
}

func (r *recorder) notify(e hook.Event) {
	if r.notifier == nil {
		return
	}
	e.Session = r.sessionID
	r.notifier.Notify(e)
}
