// Package app wires the frame source, the unlock state machine and the
// optional history, hook and status components into the wakegate loop.
package app

import (
	"fmt"
	"log"
	"time"

	"github.com/ayusman/wakegate/internal/capture"
	"github.com/ayusman/wakegate/internal/config"
	"github.com/ayusman/wakegate/internal/gesture"
	"github.com/ayusman/wakegate/internal/hook"
	"github.com/ayusman/wakegate/internal/server"
	"github.com/ayusman/wakegate/internal/shape"
	"github.com/ayusman/wakegate/internal/store"
	"github.com/ayusman/wakegate/internal/tracker"
)

// WindowTitle is the title of the display window.
const WindowTitle = "wakegate"

// Notifier receives run events, typically a hook.Dispatcher.
type Notifier interface {
	Notify(event hook.Event) bool
	Close() error
}

// Option overrides a default collaborator of the App.
type Option func(*App)

// WithSource replaces the video source built from the configuration.
func WithSource(src capture.Source) Option {
	return func(a *App) { a.source = src }
}

// WithDisplay replaces the display window.
func WithDisplay(d capture.Display) Option {
	return func(a *App) { a.display = d }
}

// WithDetector replaces the shape detector.
func WithDetector(d gesture.ShapeDetector) Option {
	return func(a *App) { a.detector = d }
}

// WithTrackerFactory replaces the motion tracker factory.
func WithTrackerFactory(f gesture.TrackerFactory) Option {
	return func(a *App) { a.newTracker = f }
}

// WithStore uses an already opened store. The caller keeps ownership.
func WithStore(s *store.Store) Option {
	return func(a *App) { a.store = s }
}

// WithHub publishes snapshots to hub.
func WithHub(h *server.Hub) Option {
	return func(a *App) { a.hub = h }
}

// WithNotifier sends run events to n. The caller keeps ownership.
func WithNotifier(n Notifier) Option {
	return func(a *App) { a.notifier = n }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *App) { a.now = now }
}

// App is a single alarm run.
type App struct {
	config     config.Config
	source     capture.Source
	display    capture.Display
	detector   gesture.ShapeDetector
	newTracker gesture.TrackerFactory
	store      *store.Store
	hub        *server.Hub
	notifier   Notifier
	now        func() time.Time

	// closers release what New opened itself, in reverse order.
	closers []func() error
}

// New validates the configuration and builds every collaborator that was
// not supplied as an Option.
func New(cfg config.Config, opts ...Option) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{
		config: cfg,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(a)
	}

	if a.source == nil {
		src, err := capture.NewSource(cfg.Source)
		if err != nil {
			return nil, err
		}
		a.source = src
	}

	if a.detector == nil {
		a.detector = shape.NewROIDetector(shape.NewClassifier(cfg.Classifier()))
	}

	if a.newTracker == nil {
		trackerConfig := cfg.Tracker
		a.newTracker = func() gesture.MotionTracker {
			return tracker.NewDefault(trackerConfig)
		}
	}

	if a.store == nil && cfg.Database != "" {
		s, err := store.New(cfg.Database)
		if err != nil {
			return nil, err
		}
		a.store = s
		a.closers = append(a.closers, s.Close)
	}

	if a.notifier == nil && cfg.Hook != "" {
		d := hook.NewDispatcher(hook.NewExecutor(cfg.HookTimeout.Duration), cfg.Hook, hook.DefaultQueueSize)
		a.notifier = d
		a.closers = append(a.closers, d.Close)
	}

	if a.hub == nil && cfg.Listen != "" {
		a.hub = server.NewHub()
	}

	if a.display == nil {
		if cfg.Headless {
			a.display = capture.NewHeadless()
		} else {
			w := capture.NewWindow(WindowTitle)
			a.display = w
			a.closers = append(a.closers, w.Close)
		}
	}

	return a, nil
}

// Hub returns the snapshot hub, nil when nothing consumes snapshots.
func (a *App) Hub() *server.Hub {
	return a.hub
}

// Store returns the session history store, nil when history is disabled.
func (a *App) Store() *store.Store {
	return a.store
}

// Close releases the collaborators New created.
func (a *App) Close() error {
	var first error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Printf("Error during shutdown: %v", err)
			if first == nil {
				first = err
			}
		}
	}
	a.closers = nil
	return first
}
