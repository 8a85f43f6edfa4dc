package hook

import (
	"context"
	"log"
	"sync"
)

// DefaultQueueSize is the number of events buffered before new ones are dropped.
const DefaultQueueSize = 16

// Dispatcher delivers events to a hook on a single background worker so the
// frame loop never waits on the hook. Events are delivered in order.
type Dispatcher struct {
	executor *Executor
	path     string
	queue    chan Event
	wg       sync.WaitGroup
	once     sync.Once
}

// NewDispatcher starts a worker running the hook at path.
func NewDispatcher(executor *Executor, path string, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}

	d := &Dispatcher{
		executor: executor,
		path:     path,
		queue:    make(chan Event, queueSize),
	}

	d.wg.Add(1)
	go d.run()

	return d
}

// Notify queues an event. It reports false when the queue is full.
func (d *Dispatcher) Notify(event Event) bool {
	select {
	case d.queue <- event:
		return true
	default:
		log.Printf("Hook queue full, dropping %s event", event.Event)
		return false
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() error {
	d.once.Do(func() {
		close(d.queue)
	})
	d.wg.Wait()
	return nil
}

func (d *Dispatcher) run() {
	defer d.wg.Done()

	for event := range d.queue {
		event := event
		if _, err := d.executor.Execute(context.Background(), d.path, &event); err != nil {
			log.Printf("Hook %s failed for %s event: %v", d.path, event.Event, err)
		}
	}
}
