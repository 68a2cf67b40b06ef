// Package lsp holds the logistic service provider aggregate: the candidate
// plans, the shipments it accepted and the entry points to schedule the
// selected plan and compare it with what was executed.
package lsp

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/lsp/core/chain"
	"github.com/kilianp07/lsp/core/logger"
	"github.com/kilianp07/lsp/core/metrics"
	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/resource"
	"github.com/kilianp07/lsp/core/scheduler"
)

// ErrUnknownPlan is returned by SelectPlan for an id not held by the LSP.
var ErrUnknownPlan = errors.New("unknown plan")

// LSP is a logistic service provider.
type LSP struct {
	ID string

	mu        sync.RWMutex
	plans     []*chain.Plan
	selected  *chain.Plan
	shipments map[model.ShipmentID]*model.Shipment
	assigner  Assigner
	log       logger.Logger
	sink      metrics.MetricsSink
}

// Option configures an LSP.
type Option func(*LSP)

// WithAssigner sets the chain assignment policy. FirstChainAssigner by
// default.
func WithAssigner(a Assigner) Option {
	return func(l *LSP) { l.assigner = a }
}

// WithLogger sets the logger.
func WithLogger(lg logger.Logger) Option {
	return func(l *LSP) { l.log = lg }
}

// WithMetrics sets the metrics sink used for scheduling and reconciliation.
func WithMetrics(s metrics.MetricsSink) Option {
	return func(l *LSP) { l.sink = s }
}

// New creates an LSP holding plans. The first plan is selected. Shipments
// already assigned to chains of any plan become shipments of the LSP.
func New(id string, plans []*chain.Plan, opts ...Option) (*LSP, error) {
	if id == "" {
		return nil, errors.New("lsp id is required")
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("lsp %s: at least one plan is required", id)
	}
	l := &LSP{
		ID:        id,
		shipments: make(map[model.ShipmentID]*model.Shipment),
		assigner:  FirstChainAssigner{},
	}
	for _, o := range opts {
		o(l)
	}
	l.log = logger.OrNop(l.log)
	if l.sink == nil {
		l.sink = metrics.NopSink{}
	}
	seen := make(map[string]bool, len(plans))
	for _, p := range plans {
		if p == nil {
			return nil, fmt.Errorf("lsp %s: nil plan", id)
		}
		if seen[p.ID] {
			return nil, fmt.Errorf("lsp %s: duplicate plan %s", id, p.ID)
		}
		seen[p.ID] = true
		if _, err := p.ShipmentIDs(); err != nil {
			return nil, fmt.Errorf("lsp %s: plan %s: %w", id, p.ID, err)
		}
		for _, c := range p.Chains() {
			for _, s := range c.Shipments() {
				if prev, ok := l.shipments[s.ID()]; ok && prev != s {
					return nil, fmt.Errorf("lsp %s: two shipments with id %s", id, s.ID())
				}
				l.shipments[s.ID()] = s
			}
		}
	}
	l.plans = append(l.plans, plans...)
	l.selected = plans[0]
	return l, nil
}

// Plans returns the candidate plans.
func (l *LSP) Plans() []*chain.Plan {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return append([]*chain.Plan(nil), l.plans...)
}

// Selected returns the plan that Schedule will run.
func (l *LSP) Selected() *chain.Plan {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.selected
}

// SelectPlan makes the plan with the given id the selected one.
func (l *LSP) SelectPlan(id string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, p := range l.plans {
		if p.ID == id {
			l.selected = p
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownPlan, id)
}

// Resources returns the distinct resources of all plans, selected plan
// first.
func (l *LSP) Resources() []resource.Resource {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []resource.Resource
	seen := make(map[model.ResourceID]bool)
	add := func(p *chain.Plan) {
		for _, r := range p.Resources() {
			if !seen[r.ID()] {
				seen[r.ID()] = true
				out = append(out, r)
			}
		}
	}
	add(l.selected)
	for _, p := range l.plans {
		add(p)
	}
	return out
}

// AddShipment accepts s and lets the assigner pick a chain of the selected
// plan for it.
func (l *LSP) AddShipment(s *model.Shipment) error {
	if s == nil {
		return errors.New("nil shipment")
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.shipments[s.ID()]; ok {
		return fmt.Errorf("lsp %s: shipment %s already added", l.ID, s.ID())
	}
	c, err := l.assigner.Assign(s, l.selected)
	if err != nil {
		return fmt.Errorf("lsp %s: assign %s: %w", l.ID, s.ID(), err)
	}
	if c == nil {
		return fmt.Errorf("lsp %s: assign %s: %w", l.ID, s.ID(), ErrNoChain)
	}
	if owner, ok := l.selected.Chain(c.ID()); !ok || owner != c {
		return fmt.Errorf("lsp %s: assigner returned chain %s outside plan %s", l.ID, c.ID(), l.selected.ID)
	}
	if err := c.AssignShipment(s); err != nil {
		return err
	}
	l.shipments[s.ID()] = s
	l.log.Debugf("shipment %s assigned to chain %s", s.ID(), c.ID())
	return nil
}

// Shipment looks a shipment up by id.
func (l *LSP) Shipment(id model.ShipmentID) (*model.Shipment, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.shipments[id]
	return s, ok
}

// Shipments returns the shipments ordered by id.
func (l *LSP) Shipments() []*model.Shipment {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]*model.Shipment, 0, len(l.shipments))
	for _, s := range l.shipments {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// Schedule runs the chain scheduling driver over the selected plan. The LSP
// logger and metrics sink are used unless opts override them.
func (l *LSP) Schedule(ctx context.Context, opts ...scheduler.DriverOption) (scheduler.Report, error) {
	plan := l.Selected()
	all := append([]scheduler.DriverOption{
		scheduler.WithDriverLogger(l.log),
		scheduler.WithMetrics(l.sink),
	}, opts...)
	d, err := scheduler.NewDriver(plan, all...)
	if err != nil {
		return scheduler.Report{}, fmt.Errorf("lsp %s: %w", l.ID, err)
	}
	rep, err := d.Run(ctx)
	if err != nil {
		return rep, fmt.Errorf("lsp %s: plan %s: %w", l.ID, plan.ID, err)
	}
	return rep, nil
}

// ShipmentReconciliation is the reconciliation of one shipment.
type ShipmentReconciliation struct {
	Shipment model.ShipmentID `json:"shipment"`
	model.Reconciliation
}

// Reconcile compares the plan and log of every shipment and records the
// outcome to the metrics sink.
func (l *LSP) Reconcile() []ShipmentReconciliation {
	ships := l.Shipments()
	out := make([]ShipmentReconciliation, 0, len(ships))
	evs := make([]metrics.ReconciliationEvent, 0, len(ships))
	now := time.Now()
	for _, s := range ships {
		r := model.ReconcileShipment(s)
		out = append(out, ShipmentReconciliation{Shipment: s.ID(), Reconciliation: r})
		evs = append(evs, metrics.ReconciliationEvent{
			Shipment:     s.ID(),
			Matched:      len(r.Matched),
			Missing:      len(r.Missing),
			Unexpected:   len(r.Unexpected),
			MaxDeviation: r.MaxAbsDelta(),
			Time:         now,
		})
	}
	if rec, ok := l.sink.(metrics.ReconciliationRecorder); ok {
		if err := rec.RecordReconciliation(evs); err != nil {
			l.log.Errorf("reconciliation metrics error: %v", err)
		}
	}
	return out
}
