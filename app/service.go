// Package app wires configuration, the scenario and the infrastructure
// adapters into a planning service.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kilianp07/lsp/config"
	"github.com/kilianp07/lsp/core/execution"
	"github.com/kilianp07/lsp/core/lsp"
	coremetrics "github.com/kilianp07/lsp/core/metrics"
	coremon "github.com/kilianp07/lsp/core/monitoring"
	"github.com/kilianp07/lsp/core/network"
	"github.com/kilianp07/lsp/core/resource"
	"github.com/kilianp07/lsp/core/scheduler"
	"github.com/kilianp07/lsp/core/vrp"
	"github.com/kilianp07/lsp/infra/logger"
	"github.com/kilianp07/lsp/infra/metrics"
	"github.com/kilianp07/lsp/infra/mqtt"
	"github.com/kilianp07/lsp/infra/planstore"
	"github.com/kilianp07/lsp/internal/eventbus"
	"github.com/kilianp07/lsp/pkg/export"
)

// Service runs planning cycles for one LSP.
type Service struct {
	LSP *lsp.LSP

	cfg       *config.Config
	net       network.Network
	optimizer vrp.Optimizer
	sink      coremetrics.MetricsSink
	store     planstore.Store
	publisher mqtt.Publisher
	feed      *mqtt.Feed
	bus       *eventbus.TypedBus[execution.Event]
	registry  *execution.Registry
	prom      *http.Server
	log       logger.Logger
}

// Option customizes a Service.
type Option func(*Service)

// WithPublisher replaces the MQTT feed as plan publisher.
func WithPublisher(p mqtt.Publisher) Option { return func(s *Service) { s.publisher = p } }

// WithEventBus supplies the execution event bus, e.g. when events come
// from somewhere other than the MQTT feed.
func WithEventBus(b *eventbus.TypedBus[execution.Event]) Option {
	return func(s *Service) { s.bus = b }
}

// WithMetricsSink replaces the sinks configured under metrics.
func WithMetricsSink(m coremetrics.MetricsSink) Option { return func(s *Service) { s.sink = m } }

// New loads the scenario and connects the configured adapters. Adapters
// that are not configured are skipped.
func New(cfg *config.Config, opts ...Option) (svc *Service, err error) {
	s := &Service{cfg: cfg, registry: execution.NewRegistry(), log: logger.New("service")}
	for _, o := range opts {
		o(s)
	}
	defer func() {
		if err != nil {
			_ = s.Close()
		}
	}()

	if s.sink == nil {
		if s.sink, err = coremetrics.NewMetricsSink(cfg.Metrics.Sinks); err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
	}
	if cfg.Metrics.PrometheusPort != "" {
		s.prom = metrics.Serve(cfg.Metrics.PrometheusPort)
	}

	l, net, err := LoadScenario(cfg.Scenario, lsp.WithLogger(logger.New("lsp")), lsp.WithMetrics(s.sink))
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	s.LSP, s.net = l, net
	if s.optimizer, err = vrp.New(cfg.Scheduler.Optimizer, net); err != nil {
		return nil, err
	}

	if cfg.PlanStore.Enabled() {
		if s.store, err = planstore.Open(cfg.PlanStore); err != nil {
			return nil, fmt.Errorf("plan store: %w", err)
		}
	}
	if cfg.MQTT.Enabled() {
		if s.bus == nil {
			s.bus = eventbus.NewTyped[execution.Event]()
		}
		if s.feed, err = mqtt.NewFeed(cfg.MQTT, s.bus); err != nil {
			return nil, err
		}
		if s.publisher == nil {
			s.publisher = s.feed
		}
	}
	return s, nil
}

// Order returns the resources of the selected plan in scheduling order.
func (s *Service) Order() ([]resource.Resource, error) {
	return s.LSP.Selected().ScheduleOrder()
}

// Result is the outcome of one planning cycle.
type Result struct {
	Report scheduler.Report
	Record planstore.Record
}

// Rows returns the plan elements of the cycle for export.
func (r Result) Rows() []export.Row { return r.Record.Elements }

// Schedule runs one planning cycle: schedule the selected plan, archive the
// snapshot and publish it. Archive and publish failures are reported but do
// not fail the cycle.
func (s *Service) Schedule(ctx context.Context) (Result, error) {
	rep, err := s.LSP.Schedule(ctx,
		scheduler.WithNetwork(s.net),
		scheduler.WithOptimizer(s.optimizer),
		scheduler.WithBufferTime(s.cfg.Scheduler.BufferTimeSeconds),
		scheduler.WithConservationChecks(s.cfg.Scheduler.ConservationEnabled()),
		scheduler.WithListenerRegistry(s.registry),
	)
	if err != nil {
		return Result{Report: rep}, err
	}
	rec := planstore.NewRecord(s.LSP, rep)
	s.log.Infof("scheduled %d shipments in %d tours (%s)", rec.Shipments, len(rep.Tours), rep.Duration)

	if s.store != nil {
		if err := s.store.Append(ctx, rec); err != nil {
			s.log.Errorf("archive plan: %v", err)
			coremon.CaptureException(err, map[string]string{"module": "planstore", "plan": rec.Plan})
		}
	}
	if s.publisher != nil {
		if err := s.publisher.PublishPlan(ctx, rec); err != nil {
			s.log.Errorf("publish plan: %v", err)
		}
	}
	return Result{Report: rep, Record: rec}, nil
}

// Export writes rows in the configured format.
func (s *Service) Export(w io.Writer, rows []export.Row) error {
	if s.cfg.Export.Format == "csv" {
		return export.WriteCSV(w, rows)
	}
	return export.WriteJSON(w, rows)
}

// ErrNoFeed is returned by Listen without an event bus.
var ErrNoFeed = errors.New("no execution feed configured")

// Listen records execution events into the shipment logs until ctx is done
// or the bus closes, then reconciles plans with logs.
func (s *Service) Listen(ctx context.Context) ([]lsp.ShipmentReconciliation, error) {
	if s.bus == nil {
		return nil, ErrNoFeed
	}
	done := metrics.StartEventCollector(ctx, s.bus, s.sink)
	rec := execution.NewRecorder(s.registry, logger.New("execution"))
	err := rec.Run(ctx, s.bus)
	<-done
	if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	s.log.Infof("recorded %d execution events (%d without listener)", rec.Processed(), rec.Orphaned())
	return s.LSP.Reconcile(), nil
}

// Close releases the adapters.
func (s *Service) Close() error {
	var errs []error
	if s.feed != nil {
		s.feed.Close()
	}
	if s.store != nil {
		errs = append(errs, s.store.Close())
	}
	if s.prom != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		errs = append(errs, s.prom.Shutdown(ctx))
		cancel()
	}
	if s.sink != nil {
		coremetrics.Close(s.sink)
	}
	return errors.Join(errs...)
}
