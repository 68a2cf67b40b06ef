package chain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/resource"
)

var (
	// ErrOrderViolation marks a schedule order that breaks chain topology.
	ErrOrderViolation = errors.New("resource order violates chain topology")
	// ErrCyclicOrder is returned when chains impose contradicting orders.
	ErrCyclicOrder = errors.New("chains impose a cyclic resource order")
	// ErrConservation marks lost or duplicated shipments.
	ErrConservation = errors.New("shipment conservation violated")
)

// OrderError names the resource at which an order check failed.
type OrderError struct {
	Resource model.ResourceID
	Reason   string
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrOrderViolation, e.Resource, e.Reason)
}

func (e *OrderError) Unwrap() error { return ErrOrderViolation }

// ConservationError lists the shipments of one chain that are not queued
// exactly once.
type ConservationError struct {
	Chain      model.ChainID
	Lost       []model.ShipmentID
	Duplicated []model.ShipmentID
	Foreign    []model.ShipmentID
}

func (e *ConservationError) Error() string {
	var parts []string
	if len(e.Lost) > 0 {
		parts = append(parts, fmt.Sprintf("lost %v", e.Lost))
	}
	if len(e.Duplicated) > 0 {
		parts = append(parts, fmt.Sprintf("duplicated %v", e.Duplicated))
	}
	if len(e.Foreign) > 0 {
		parts = append(parts, fmt.Sprintf("unassigned %v", e.Foreign))
	}
	return fmt.Sprintf("chain %s: %v: %s", e.Chain, ErrConservation, strings.Join(parts, ", "))
}

func (e *ConservationError) Unwrap() error { return ErrConservation }

// Plan is one candidate configuration of an LSP: a set of chains and the
// score the surrounding platform assigned to it.
type Plan struct {
	ID     string
	Score  float64
	chains []*Chain
	res    map[model.ResourceID]resource.Resource
}

// NewPlan groups chains into a plan. Resources are shared by reference;
// two different resources with the same id are rejected.
func NewPlan(id string, chains ...*Chain) (*Plan, error) {
	p := &Plan{ID: id, res: make(map[model.ResourceID]resource.Resource)}
	seen := make(map[model.ChainID]bool, len(chains))
	for _, c := range chains {
		if c == nil {
			return nil, errors.New("nil chain")
		}
		if seen[c.id] {
			return nil, fmt.Errorf("duplicate chain %s", c.id)
		}
		seen[c.id] = true
		for _, e := range c.elements {
			if prev, ok := p.res[e.res.ID()]; ok && prev != e.res {
				return nil, fmt.Errorf("chain %s: resource id %s bound to two different resources", c.id, e.res.ID())
			}
			p.res[e.res.ID()] = e.res
		}
	}
	p.chains = append(p.chains, chains...)
	return p, nil
}

// Chains returns the chains in insertion order.
func (p *Plan) Chains() []*Chain { return append([]*Chain(nil), p.chains...) }

// Chain looks a chain up by id.
func (p *Plan) Chain(id model.ChainID) (*Chain, bool) {
	for _, c := range p.chains {
		if c.id == id {
			return c, true
		}
	}
	return nil, false
}

// Resource looks a resource up by id.
func (p *Plan) Resource(id model.ResourceID) (resource.Resource, bool) {
	r, ok := p.res[id]
	return r, ok
}

// ClientElements returns every element referencing the resource, in chain
// order.
func (p *Plan) ClientElements(id model.ResourceID) []*Element {
	var out []*Element
	for _, c := range p.chains {
		for _, e := range c.elements {
			if e.res.ID() == id {
				out = append(out, e)
			}
		}
	}
	return out
}

// Resources returns the distinct resources in encounter order.
func (p *Plan) Resources() []resource.Resource {
	var out []resource.Resource
	seen := make(map[model.ResourceID]bool)
	for _, c := range p.chains {
		for _, e := range c.elements {
			if !seen[e.res.ID()] {
				seen[e.res.ID()] = true
				out = append(out, e.res)
			}
		}
	}
	return out
}

type precedence struct {
	nodes []model.ResourceID
	index map[model.ResourceID]int
	succ  map[model.ResourceID][]model.ResourceID
	edges [][2]model.ResourceID
}

func (p *Plan) precedence() precedence {
	g := precedence{index: make(map[model.ResourceID]int), succ: make(map[model.ResourceID][]model.ResourceID)}
	seenEdge := make(map[[2]model.ResourceID]bool)
	for _, c := range p.chains {
		for _, e := range c.elements {
			id := e.res.ID()
			if _, ok := g.index[id]; !ok {
				g.index[id] = len(g.nodes)
				g.nodes = append(g.nodes, id)
			}
			if e.prev == nil {
				continue
			}
			edge := [2]model.ResourceID{e.prev.res.ID(), id}
			if !seenEdge[edge] {
				seenEdge[edge] = true
				g.edges = append(g.edges, edge)
				g.succ[edge[0]] = append(g.succ[edge[0]], edge[1])
			}
		}
	}
	return g
}

// ScheduleOrder walks every chain once and returns the resources so that
// each one comes after all resources preceding it in any chain. Ties keep
// the order in which resources were first encountered.
func (p *Plan) ScheduleOrder() ([]resource.Resource, error) {
	g := p.precedence()
	indeg := make(map[model.ResourceID]int, len(g.nodes))
	for _, e := range g.edges {
		indeg[e[1]]++
	}
	var ready []model.ResourceID
	for _, n := range g.nodes {
		if indeg[n] == 0 {
			ready = append(ready, n)
		}
	}
	order := make([]resource.Resource, 0, len(g.nodes))
	for len(ready) > 0 {
		sort.Slice(ready, func(i, j int) bool { return g.index[ready[i]] < g.index[ready[j]] })
		n := ready[0]
		ready = ready[1:]
		order = append(order, p.res[n])
		for _, m := range g.succ[n] {
			indeg[m]--
			if indeg[m] == 0 {
				ready = append(ready, m)
			}
		}
	}
	if len(order) != len(g.nodes) {
		var stuck []string
		for _, n := range g.nodes {
			if indeg[n] > 0 {
				stuck = append(stuck, string(n))
			}
		}
		return nil, fmt.Errorf("%w: %s", ErrCyclicOrder, strings.Join(stuck, ", "))
	}
	return order, nil
}

// VerifyOrder checks a caller supplied order: every resource of the plan
// exactly once, upstream before downstream.
func (p *Plan) VerifyOrder(order []resource.Resource) error {
	g := p.precedence()
	pos := make(map[model.ResourceID]int, len(order))
	for i, r := range order {
		if r == nil {
			return &OrderError{Reason: fmt.Sprintf("nil resource at position %d", i)}
		}
		known, ok := p.res[r.ID()]
		if !ok || known != r {
			return &OrderError{Resource: r.ID(), Reason: "not part of the plan"}
		}
		if _, dup := pos[r.ID()]; dup {
			return &OrderError{Resource: r.ID(), Reason: "listed twice"}
		}
		pos[r.ID()] = i
	}
	for _, n := range g.nodes {
		if _, ok := pos[n]; !ok {
			return &OrderError{Resource: n, Reason: "missing from order"}
		}
	}
	for _, e := range g.edges {
		if pos[e[0]] >= pos[e[1]] {
			return &OrderError{Resource: e[1], Reason: fmt.Sprintf("scheduled before upstream resource %s", e[0])}
		}
	}
	return nil
}

// InsertShipments queues every assigned shipment that is not yet in one of
// its chain's queues at the first element, at the start of its pickup
// window. It returns the number of inserted shipments.
func (p *Plan) InsertShipments() (int, error) {
	n := 0
	for _, c := range p.chains {
		for _, s := range c.Shipments() {
			if _, _, ok := c.Locate(s.ID()); ok {
				continue
			}
			if err := c.First().incoming.Add(s.PickupWindow().Start, s); err != nil {
				return n, fmt.Errorf("chain %s: %w", c.id, err)
			}
			n++
		}
	}
	return n, nil
}

// CheckConservation verifies that each assigned shipment sits in exactly one
// queue of its chain and that no queue holds anything else.
func (p *Plan) CheckConservation() error {
	var errs []error
	for _, c := range p.chains {
		count := make(map[model.ShipmentID]int)
		var foreign []model.ShipmentID
		for _, e := range c.elements {
			for _, q := range []*WaitingShipments{e.incoming, e.outgoing} {
				for _, it := range q.items {
					id := it.Shipment.ID()
					count[id]++
					if !c.HasShipment(id) && count[id] == 1 {
						foreign = append(foreign, id)
					}
				}
			}
		}
		ce := &ConservationError{Chain: c.id, Foreign: foreign}
		for _, id := range c.ShipmentIDs() {
			switch {
			case count[id] == 0:
				ce.Lost = append(ce.Lost, id)
			case count[id] > 1:
				ce.Duplicated = append(ce.Duplicated, id)
			}
		}
		if len(ce.Lost)+len(ce.Duplicated)+len(ce.Foreign) > 0 {
			sortIDs(ce.Foreign)
			errs = append(errs, ce)
		}
	}
	return errors.Join(errs...)
}

// ShipmentIDs returns the shipments assigned across all chains. A shipment
// assigned to two chains is an error.
func (p *Plan) ShipmentIDs() ([]model.ShipmentID, error) {
	owner := make(map[model.ShipmentID]model.ChainID)
	var ids []model.ShipmentID
	for _, c := range p.chains {
		for _, id := range c.ShipmentIDs() {
			if other, ok := owner[id]; ok {
				return nil, fmt.Errorf("shipment %s assigned to chains %s and %s", id, other, c.id)
			}
			owner[id] = c.id
			ids = append(ids, id)
		}
	}
	sortIDs(ids)
	return ids, nil
}

func sortIDs(ids []model.ShipmentID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}
