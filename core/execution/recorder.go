package execution

import (
	"context"
	"sync/atomic"

	"github.com/kilianp07/lsp/core/logger"
	"github.com/kilianp07/lsp/internal/eventbus"
)

// Recorder drains execution events from a bus into a Registry.
type Recorder struct {
	registry  *Registry
	log       logger.Logger
	processed atomic.Int64
	orphaned  atomic.Int64
}

// NewRecorder creates a recorder. log may be nil.
func NewRecorder(reg *Registry, log logger.Logger) *Recorder {
	return &Recorder{registry: reg, log: logger.OrNop(log)}
}

// Run consumes events until ctx is done or the bus is closed.
func (r *Recorder) Run(ctx context.Context, bus *eventbus.TypedBus[Event]) error {
	ch := bus.Subscribe()
	defer bus.Unsubscribe(ch)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-ch:
			if !ok {
				return nil
			}
			r.Handle(ev)
		}
	}
}

// Handle dispatches a single event. Invalid events and listener failures are
// logged, never returned, so one bad message cannot stop the feed.
func (r *Recorder) Handle(ev Event) {
	if err := ev.Validate(); err != nil {
		r.log.Warnf("dropping execution event: %v", err)
		return
	}
	r.processed.Add(1)
	found, err := r.registry.Dispatch(ev)
	if !found {
		r.orphaned.Add(1)
		r.log.Debugw("no listener for tour", map[string]any{"tour": ev.Tour, "type": ev.Type})
		return
	}
	if err != nil {
		r.log.Errorf("log listener for tour %s: %v", ev.Tour, err)
	}
}

// Processed returns the number of valid events handled.
func (r *Recorder) Processed() int64 { return r.processed.Load() }

// Orphaned returns the number of events whose tour had no listener.
func (r *Recorder) Orphaned() int64 { return r.orphaned.Load() }
