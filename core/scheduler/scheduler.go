package scheduler

import (
	"context"
	"fmt"

	"github.com/kilianp07/lsp/core/chain"
	"github.com/kilianp07/lsp/core/execution"
	"github.com/kilianp07/lsp/core/logger"
	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/resource"
)

// Strategy is the kind-specific part of the scheduling template.
//
// Initialize binds the concrete resource and clears per-call state; it must
// fail with ErrKindMismatch for a resource of another kind. ScheduleResource
// computes the resource plan (handling windows, tours) and UpdateShipments
// stages the resulting plan elements and log listeners per shipment. Both
// write only to the pass.
type Strategy interface {
	Kind() resource.Kind
	Initialize(r resource.Resource) error
	ScheduleResource(ctx context.Context, p *Pass) error
	UpdateShipments(p *Pass) error
}

// Scheduler runs the scheduling template for one resource at a time.
type Scheduler struct {
	strategy Strategy
	registry *execution.Registry
	log      logger.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithRegistry registers the staged log listeners on commit.
func WithRegistry(r *execution.Registry) Option {
	return func(s *Scheduler) { s.registry = r }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) { s.log = l }
}

// New creates a Scheduler around strategy.
func New(strategy Strategy, opts ...Option) *Scheduler {
	s := &Scheduler{strategy: strategy}
	for _, o := range opts {
		o(s)
	}
	s.log = logger.OrNop(s.log)
	return s
}

// Kind returns the resource kind handled by the scheduler.
func (s *Scheduler) Kind() resource.Kind { return s.strategy.Kind() }

// Schedule plans every shipment waiting in the incoming queues of clients on
// resource r, then moves each one to the next element, tagged with the end of
// its last plan element plus bufferTime. On error nothing is modified.
func (s *Scheduler) Schedule(ctx context.Context, r resource.Resource, clients []*chain.Element, bufferTime float64) (Result, error) {
	if err := ValidateBufferTime(bufferTime); err != nil {
		return Result{}, err
	}
	if err := s.strategy.Initialize(r); err != nil {
		return Result{}, err
	}
	for _, c := range clients {
		if c.Resource() != r {
			return Result{}, fmt.Errorf("%w: element %s does not reference resource %s", ErrInvalidPass, c.ID(), r.ID())
		}
	}
	p := newPass(r, presortIncomingShipments(clients))
	if err := s.strategy.ScheduleResource(ctx, p); err != nil {
		return Result{}, fmt.Errorf("resource %s: %w", r.ID(), err)
	}
	if err := s.strategy.UpdateShipments(p); err != nil {
		return Result{}, fmt.Errorf("resource %s: %w", r.ID(), err)
	}
	if err := validatePass(p); err != nil {
		return Result{}, fmt.Errorf("resource %s: %w", r.ID(), err)
	}
	res, err := s.commit(p, bufferTime)
	if err != nil {
		return Result{}, fmt.Errorf("resource %s: %w", r.ID(), err)
	}
	s.log.Debugw("pass committed", map[string]any{
		"resource":  string(r.ID()),
		"kind":      r.Kind().String(),
		"shipments": res.Shipments,
		"tours":     len(res.Tours),
	})
	return res, nil
}

// presortIncomingShipments merges the incoming queues of all clients into one
// buffer sorted by arrival time, ties broken by shipment id.
func presortIncomingShipments(clients []*chain.Element) []Queued {
	var buf []Queued
	var timed []chain.TimedShipment
	owner := make(map[model.ShipmentID]*chain.Element)
	for _, c := range clients {
		for _, ts := range c.Incoming().Sorted() {
			timed = append(timed, ts)
			owner[ts.Shipment.ID()] = c
		}
	}
	chain.SortTimed(timed)
	for _, ts := range timed {
		buf = append(buf, Queued{TimedShipment: ts, Element: owner[ts.Shipment.ID()]})
	}
	return buf
}

func validatePass(p *Pass) error {
	buffered := make(map[model.ShipmentID]bool, len(p.Buffer))
	for _, q := range p.Buffer {
		if buffered[q.Shipment.ID()] {
			return fmt.Errorf("%w: shipment %s queued at two client elements", ErrInvalidPass, q.Shipment.ID())
		}
		buffered[q.Shipment.ID()] = true
	}
	for id := range p.staged {
		if !buffered[id] {
			return fmt.Errorf("%w: elements staged for shipment %s which is not queued", ErrInvalidPass, id)
		}
	}
	for _, q := range p.Buffer {
		if err := validateShipment(p, q); err != nil {
			return err
		}
	}
	for _, reg := range p.listeners {
		if reg.Tour == "" || reg.Listener == nil {
			return fmt.Errorf("%w: listener without tour", ErrInvalidPass)
		}
	}
	return nil
}

func validateShipment(p *Pass, q Queued) error {
	id := q.Shipment.ID()
	els := p.staged[id]
	if len(els) == 0 {
		return fmt.Errorf("%w: %s", ErrUnroutedShipment, id)
	}
	seen := make(map[model.ElementKey]bool, len(els))
	for _, el := range els {
		if err := el.Validate(); err != nil {
			return fmt.Errorf("%w: shipment %s: %v", ErrInvalidPass, id, err)
		}
		if el.Resource != p.Resource.ID() || el.Element != q.Element.ID() {
			return fmt.Errorf("%w: shipment %s: element %s staged outside %s/%s", ErrInvalidPass, id, el.Key(), q.Element.ID(), p.Resource.ID())
		}
		if seen[el.Key()] || q.Shipment.Plan().Has(el.Key()) {
			return fmt.Errorf("%w: shipment %s: duplicate element %s", ErrInvalidPass, id, el.Key())
		}
		seen[el.Key()] = true
		if el.Start < q.Time {
			return fmt.Errorf("%w: shipment %s: %s starts at %.1f before arrival at %.1f", ErrInvalidPass, id, el.Key(), el.Start, q.Time)
		}
	}
	all := append(q.Shipment.Plan().Elements(), els...)
	if err := model.CheckCausality(all); err != nil {
		return fmt.Errorf("%w: shipment %s: %w", ErrInvalidPass, id, err)
	}
	if !q.Element.Incoming().Contains(id) {
		return fmt.Errorf("%w: shipment %s left the incoming queue of %s", ErrInvalidPass, id, q.Element.ID())
	}
	if q.Element.Outgoing().Contains(id) {
		return fmt.Errorf("%w: shipment %s already handled by %s", ErrInvalidPass, id, q.Element.ID())
	}
	if next := q.Element.Next(); next != nil && next.Incoming().Contains(id) {
		return fmt.Errorf("%w: shipment %s already queued at %s", ErrInvalidPass, id, next.ID())
	}
	return nil
}

func (s *Scheduler) commit(p *Pass, bufferTime float64) (Result, error) {
	res := Result{Resource: p.Resource.ID(), Kind: p.Resource.Kind(), Shipments: len(p.Buffer), Tours: p.Tours()}
	for _, q := range p.Buffer {
		els := append([]model.PlanElement(nil), p.staged[q.Shipment.ID()]...)
		model.SortElements(els)
		for _, el := range els {
			if err := q.Shipment.Plan().Add(el); err != nil {
				return res, err
			}
			res.Elements++
		}
	}
	if s.registry != nil {
		if err := s.registry.RegisterAll(p.listeners); err != nil {
			return res, err
		}
		res.Listeners = len(p.listeners)
	}
	return res, switchHandledShipments(p.Buffer, bufferTime)
}

// switchHandledShipments moves each handled shipment to the outgoing queue of
// its element and, if there is a next element, on to its incoming queue. The
// forwarding time is the end of the shipment's latest plan element plus
// bufferTime.
func switchHandledShipments(buf []Queued, bufferTime float64) error {
	for _, q := range buf {
		s := q.Shipment
		last, ok := s.Plan().MostRecent()
		if !ok {
			return fmt.Errorf("%w: %s", ErrUnroutedShipment, s.ID())
		}
		out := last.End + bufferTime
		q.Element.Incoming().Remove(s.ID())
		if err := q.Element.Outgoing().Add(out, s); err != nil {
			return err
		}
		next := q.Element.Next()
		if next == nil {
			continue
		}
		q.Element.Outgoing().Remove(s.ID())
		if err := next.Incoming().Add(out, s); err != nil {
			return err
		}
	}
	return nil
}
