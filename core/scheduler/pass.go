package scheduler

import (
	"github.com/kilianp07/lsp/core/chain"
	"github.com/kilianp07/lsp/core/execution"
	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/resource"
)

// Queued is a shipment waiting in the incoming queue of a client element.
type Queued struct {
	chain.TimedShipment
	Element *chain.Element
}

// Tour is a vehicle trip built during a pass.
type Tour struct {
	ID        model.TourID       `json:"id"`
	Resource  model.ResourceID   `json:"resource"`
	Vehicle   model.VehicleID    `json:"vehicle"`
	Capacity  int                `json:"capacity"`
	Load      int                `json:"load"`
	Shipments []model.ShipmentID `json:"shipments"`
	From      model.LinkID       `json:"from"`
	To        model.LinkID       `json:"to"`
	Departure float64            `json:"departure"`
	Arrival   float64            `json:"arrival"`
	Distance  float64            `json:"distance"`
	Cost      float64            `json:"cost"`
}

// Pass collects the work of one Schedule call. Nothing outside the pass is
// modified until the scheduler commits it.
type Pass struct {
	Resource resource.Resource
	// Buffer holds the incoming shipments of all client elements sorted by
	// arrival time.
	Buffer []Queued

	tours     []Tour
	staged    map[model.ShipmentID][]model.PlanElement
	listeners []execution.Registration
}

func newPass(r resource.Resource, buf []Queued) *Pass {
	return &Pass{Resource: r, Buffer: buf, staged: make(map[model.ShipmentID][]model.PlanElement)}
}

// Stage records plan elements for a shipment.
func (p *Pass) Stage(id model.ShipmentID, els ...model.PlanElement) {
	p.staged[id] = append(p.staged[id], els...)
}

// Staged returns the elements staged for id.
func (p *Pass) Staged(id model.ShipmentID) []model.PlanElement {
	return p.staged[id]
}

// Listen stages a log listener for a tour.
func (p *Pass) Listen(tour model.TourID, l execution.Listener) {
	p.listeners = append(p.listeners, execution.Registration{Tour: tour, Listener: l})
}

// AddTour records a tour built by the pass.
func (p *Pass) AddTour(t Tour) { p.tours = append(p.tours, t) }

// Tours returns the tours built so far.
func (p *Pass) Tours() []Tour { return append([]Tour(nil), p.tours...) }

// Queued looks up a buffered shipment.
func (p *Pass) Queued(id model.ShipmentID) (Queued, bool) {
	for _, q := range p.Buffer {
		if q.Shipment.ID() == id {
			return q, true
		}
	}
	return Queued{}, false
}

// Result summarises a committed pass.
type Result struct {
	Resource  model.ResourceID
	Kind      resource.Kind
	Shipments int
	Elements  int
	Listeners int
	Tours     []Tour
}
