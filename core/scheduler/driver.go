package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/lsp/core/chain"
	"github.com/kilianp07/lsp/core/execution"
	"github.com/kilianp07/lsp/core/logger"
	"github.com/kilianp07/lsp/core/metrics"
	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/monitoring"
	"github.com/kilianp07/lsp/core/network"
	"github.com/kilianp07/lsp/core/resource"
	"github.com/kilianp07/lsp/core/vrp"
)

// ResourceReport summarises the pass of one resource.
type ResourceReport struct {
	Resource  model.ResourceID `json:"resource"`
	Kind      string           `json:"kind"`
	Shipments int              `json:"shipments"`
	Elements  int              `json:"elements"`
	Tours     int              `json:"tours"`
	Duration  time.Duration    `json:"duration"`
}

// Report is the outcome of a Driver run.
type Report struct {
	Inserted  int              `json:"inserted"`
	Resources []ResourceReport `json:"resources"`
	Tours     []Tour           `json:"tours"`
	Duration  time.Duration    `json:"duration"`
}

// Driver schedules every resource of a plan once, upstream resources first.
type Driver struct {
	plan          *chain.Plan
	order         []resource.Resource
	explicitOrder bool
	bufferTime    float64
	deps          Deps
	bound         map[model.ResourceID]*Scheduler
	registry      *execution.Registry
	log           logger.Logger
	sink          metrics.MetricsSink
	conservation  bool
}

// DriverOption configures a Driver.
type DriverOption func(*Driver)

// WithOrder replaces the derived schedule order. The order is verified
// against the chains by NewDriver.
func WithOrder(order []resource.Resource) DriverOption {
	return func(d *Driver) {
		d.order = append([]resource.Resource(nil), order...)
		d.explicitOrder = true
	}
}

// WithBufferTime sets the time added when a shipment moves to the next
// element.
func WithBufferTime(b float64) DriverOption {
	return func(d *Driver) { d.bufferTime = b }
}

// WithOptimizer sets the routing optimizer of collection and distribution
// carriers.
func WithOptimizer(o vrp.Optimizer) DriverOption {
	return func(d *Driver) { d.deps.Optimizer = o }
}

// WithNetwork sets the network used by main run carriers.
func WithNetwork(n network.Network) DriverOption {
	return func(d *Driver) { d.deps.Network = n }
}

// WithTourIDs sets the tour id generator of main run carriers.
func WithTourIDs(f func() model.TourID) DriverOption {
	return func(d *Driver) { d.deps.NewTourID = f }
}

// WithListenerRegistry collects the log listeners of all passes.
func WithListenerRegistry(r *execution.Registry) DriverOption {
	return func(d *Driver) { d.registry = r }
}

// WithDriverLogger sets the logger passed to every scheduler.
func WithDriverLogger(l logger.Logger) DriverOption {
	return func(d *Driver) { d.log = l }
}

// WithMetrics sets the metrics sink.
func WithMetrics(s metrics.MetricsSink) DriverOption {
	return func(d *Driver) { d.sink = s }
}

// WithConservationChecks toggles the conservation check before the first
// and after every resource. Enabled by default.
func WithConservationChecks(on bool) DriverOption {
	return func(d *Driver) { d.conservation = on }
}

// NewDriver prepares a run over plan.
func NewDriver(plan *chain.Plan, opts ...DriverOption) (*Driver, error) {
	if plan == nil {
		return nil, errors.New("nil plan")
	}
	d := &Driver{plan: plan, bound: make(map[model.ResourceID]*Scheduler), conservation: true}
	for _, o := range opts {
		o(d)
	}
	d.log = logger.OrNop(d.log)
	if d.sink == nil {
		d.sink = metrics.NopSink{}
	}
	if d.explicitOrder {
		if err := plan.VerifyOrder(d.order); err != nil {
			return nil, err
		}
	} else {
		order, err := plan.ScheduleOrder()
		if err != nil {
			return nil, err
		}
		d.order = order
	}
	return d, nil
}

// Order returns the resources in schedule order.
func (d *Driver) Order() []resource.Resource {
	return append([]resource.Resource(nil), d.order...)
}

// Bind overrides the scheduler used for one resource. A scheduler of the
// wrong kind fails when the resource is scheduled.
func (d *Driver) Bind(id model.ResourceID, s *Scheduler) error {
	if _, ok := d.plan.Resource(id); !ok {
		return fmt.Errorf("resource %s is not part of plan %s", id, d.plan.ID)
	}
	if s == nil {
		return fmt.Errorf("nil scheduler for resource %s", id)
	}
	d.bound[id] = s
	return nil
}

func (d *Driver) schedulerFor(r resource.Resource) (*Scheduler, error) {
	if s, ok := d.bound[r.ID()]; ok {
		return s, nil
	}
	st, err := StrategyFor(r, d.deps)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", r.ID(), err)
	}
	return New(st, WithRegistry(d.registry), WithLogger(d.log)), nil
}

// Run inserts the assigned shipments at the start of their chains and
// schedules the resources one after the other. It stops at the first failing
// resource; resources scheduled before keep their committed plans.
func (d *Driver) Run(ctx context.Context) (Report, error) {
	began := time.Now()
	var rep Report
	if err := ValidateBufferTime(d.bufferTime); err != nil {
		return rep, err
	}
	if _, err := d.plan.ShipmentIDs(); err != nil {
		return rep, err
	}
	n, err := d.plan.InsertShipments()
	if err != nil {
		return rep, err
	}
	rep.Inserted = n
	if err := d.checkConservation("before scheduling"); err != nil {
		return rep, err
	}
	for _, r := range d.order {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		rr, tours, err := d.scheduleResource(ctx, r)
		if err != nil {
			monitoring.CaptureException(err, map[string]string{
				"resource": string(r.ID()),
				"kind":     r.Kind().String(),
				"plan":     d.plan.ID,
			})
			return rep, err
		}
		rep.Resources = append(rep.Resources, rr)
		rep.Tours = append(rep.Tours, tours...)
		if err := d.checkConservation(fmt.Sprintf("after %s", r.ID())); err != nil {
			return rep, err
		}
	}
	rep.Duration = time.Since(began)
	d.log.Infof("plan %s scheduled: %d resources, %d shipments inserted, %d tours in %s",
		d.plan.ID, len(rep.Resources), rep.Inserted, len(rep.Tours), rep.Duration)
	return rep, nil
}

func (d *Driver) scheduleResource(ctx context.Context, r resource.Resource) (ResourceReport, []Tour, error) {
	start := time.Now()
	s, err := d.schedulerFor(r)
	if err != nil {
		return ResourceReport{}, nil, err
	}
	res, err := s.Schedule(ctx, r, d.plan.ClientElements(r.ID()), d.bufferTime)
	ev := metrics.ScheduleEvent{
		Resource:  r.ID(),
		Kind:      r.Kind().String(),
		Shipments: res.Shipments,
		Tours:     len(res.Tours),
		Duration:  time.Since(start),
		Time:      time.Now(),
	}
	if err != nil {
		ev.Err = err.Error()
	}
	if merr := d.sink.RecordSchedule(ev); merr != nil {
		d.log.Errorf("schedule metrics error: %v", merr)
	}
	if err != nil {
		d.log.Errorf("scheduling %s failed: %v", r.ID(), err)
		return ResourceReport{}, nil, err
	}
	d.recordTours(res.Tours)
	d.log.Debugw("resource scheduled", map[string]any{
		"resource":  string(r.ID()),
		"shipments": res.Shipments,
		"elements":  res.Elements,
		"tours":     len(res.Tours),
	})
	return ResourceReport{
		Resource:  r.ID(),
		Kind:      r.Kind().String(),
		Shipments: res.Shipments,
		Elements:  res.Elements,
		Tours:     len(res.Tours),
		Duration:  ev.Duration,
	}, res.Tours, nil
}

func (d *Driver) recordTours(tours []Tour) {
	tr, ok := d.sink.(metrics.TourRecorder)
	if !ok || len(tours) == 0 {
		return
	}
	now := time.Now()
	evs := make([]metrics.TourEvent, 0, len(tours))
	for _, t := range tours {
		evs = append(evs, metrics.TourEvent{
			Tour:      t.ID,
			Resource:  t.Resource,
			Vehicle:   t.Vehicle,
			Shipments: len(t.Shipments),
			Load:      t.Load,
			Capacity:  t.Capacity,
			Departure: t.Departure,
			Arrival:   t.Arrival,
			Distance:  t.Distance,
			Cost:      t.Cost,
			Time:      now,
		})
	}
	if err := tr.RecordTours(evs); err != nil {
		d.log.Errorf("tour metrics error: %v", err)
	}
}

func (d *Driver) checkConservation(stage string) error {
	if !d.conservation {
		return nil
	}
	err := d.plan.CheckConservation()
	if err == nil {
		return nil
	}
	if cr, ok := d.sink.(metrics.ConservationRecorder); ok {
		for _, ce := range conservationErrors(err) {
			_ = cr.RecordConservation(metrics.ConservationEvent{
				Chain:      ce.Chain,
				Lost:       len(ce.Lost),
				Duplicated: len(ce.Duplicated),
				Time:       time.Now(),
			})
		}
	}
	monitoring.CaptureException(err, map[string]string{"plan": d.plan.ID, "stage": stage})
	return fmt.Errorf("%s: %w", stage, err)
}

func conservationErrors(err error) []*chain.ConservationError {
	var out []*chain.ConservationError
	if j, ok := err.(interface{ Unwrap() []error }); ok {
		for _, e := range j.Unwrap() {
			out = append(out, conservationErrors(e)...)
		}
		return out
	}
	var ce *chain.ConservationError
	if errors.As(err, &ce) {
		out = append(out, ce)
	}
	return out
}
