package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	coremetrics "github.com/kilianp07/lsp/core/metrics"
)

// PromSink exposes scheduling, tour and execution metrics to Prometheus.
type PromSink struct {
	passes       *prometheus.CounterVec
	passDuration *prometheus.HistogramVec
	shipments    *prometheus.CounterVec
	tours        *prometheus.CounterVec
	utilization  *prometheus.HistogramVec
	tourCost     *prometheus.HistogramVec
	conservation *prometheus.CounterVec
	execution    *prometheus.CounterVec
	missing      prometheus.Counter
	deviation    prometheus.Histogram
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with Serve.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers the metrics on reg. A nil registerer
// defaults to the global one. Collectors already registered by an earlier
// sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		passes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lsp_schedule_passes_total",
			Help: "Resource scheduling passes by outcome",
		}, []string{"resource", "kind", "outcome"}),
		passDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lsp_schedule_pass_duration_seconds",
			Help:    "Wall clock time of a resource scheduling pass",
			Buckets: prometheus.DefBuckets,
		}, []string{"kind"}),
		shipments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lsp_shipments_scheduled_total",
			Help: "Shipments planned per resource",
		}, []string{"resource"}),
		tours: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lsp_tours_total",
			Help: "Tours built per carrier resource",
		}, []string{"resource"}),
		utilization: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lsp_tour_utilization_ratio",
			Help:    "Tour load over vehicle capacity",
			Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
		}, []string{"resource"}),
		tourCost: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "lsp_tour_cost",
			Help:    "Cost of built tours",
			Buckets: prometheus.ExponentialBuckets(10, 2, 12),
		}, []string{"resource"}),
		conservation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lsp_conservation_violations_total",
			Help: "Shipments lost or duplicated per chain",
		}, []string{"chain", "violation"}),
		execution: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "lsp_execution_events_total",
			Help: "Execution events received by type",
		}, []string{"type"}),
		missing: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "lsp_reconciliation_missing_elements_total",
			Help: "Planned elements without an observed counterpart",
		}),
		deviation: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "lsp_reconciliation_max_deviation_seconds",
			Help:    "Largest deviation between plan and log per shipment",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		}),
	}
	var err error
	if s.passes, err = register(reg, s.passes); err != nil {
		return nil, err
	}
	if s.passDuration, err = register(reg, s.passDuration); err != nil {
		return nil, err
	}
	if s.shipments, err = register(reg, s.shipments); err != nil {
		return nil, err
	}
	if s.tours, err = register(reg, s.tours); err != nil {
		return nil, err
	}
	if s.utilization, err = register(reg, s.utilization); err != nil {
		return nil, err
	}
	if s.tourCost, err = register(reg, s.tourCost); err != nil {
		return nil, err
	}
	if s.conservation, err = register(reg, s.conservation); err != nil {
		return nil, err
	}
	if s.execution, err = register(reg, s.execution); err != nil {
		return nil, err
	}
	if s.missing, err = register(reg, s.missing); err != nil {
		return nil, err
	}
	if s.deviation, err = register(reg, s.deviation); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

func (s *PromSink) RecordSchedule(ev coremetrics.ScheduleEvent) error {
	outcome := "ok"
	if ev.Err != "" {
		outcome = "error"
	}
	s.passes.WithLabelValues(string(ev.Resource), ev.Kind, outcome).Inc()
	s.passDuration.WithLabelValues(ev.Kind).Observe(ev.Duration.Seconds())
	if ev.Err == "" {
		s.shipments.WithLabelValues(string(ev.Resource)).Add(float64(ev.Shipments))
	}
	return nil
}

func (s *PromSink) RecordTours(evs []coremetrics.TourEvent) error {
	for _, ev := range evs {
		r := string(ev.Resource)
		s.tours.WithLabelValues(r).Inc()
		s.utilization.WithLabelValues(r).Observe(ev.Utilization())
		s.tourCost.WithLabelValues(r).Observe(ev.Cost)
	}
	return nil
}

func (s *PromSink) RecordConservation(ev coremetrics.ConservationEvent) error {
	c := string(ev.Chain)
	s.conservation.WithLabelValues(c, "lost").Add(float64(ev.Lost))
	s.conservation.WithLabelValues(c, "duplicated").Add(float64(ev.Duplicated))
	return nil
}

func (s *PromSink) RecordExecution(ev coremetrics.ExecutionEvent) error {
	s.execution.WithLabelValues(ev.Type).Inc()
	return nil
}

func (s *PromSink) RecordReconciliation(evs []coremetrics.ReconciliationEvent) error {
	for _, ev := range evs {
		s.missing.Add(float64(ev.Missing))
		if ev.Matched > 0 {
			s.deviation.Observe(ev.MaxDeviation)
		}
	}
	return nil
}

// Serve exposes the default gatherer on addr under /metrics until the
// server fails or is shut down.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("metrics server: %v", err)
		}
	}()
	return srv
}
