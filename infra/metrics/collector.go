package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/lsp/core/execution"
	coremetrics "github.com/kilianp07/lsp/core/metrics"
	"github.com/kilianp07/lsp/internal/eventbus"
)

// StartEventCollector subscribes to the execution bus and records every
// event on sinks implementing ExecutionRecorder. It stops when the context
// is canceled or the bus is closed. The returned channel is closed once the
// collector has unsubscribed.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[execution.Event], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.ExecutionRecorder)
	if bus == nil || !ok {
		close(done)
		return done
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := rec.RecordExecution(coremetrics.ExecutionEvent{Type: string(ev.Type), Tour: ev.Tour, Time: time.Now()}); err != nil {
					log.Errorf("execution metrics error: %v", err)
				}
			}
		}
	}()
	return done
}
