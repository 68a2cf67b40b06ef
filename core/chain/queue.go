package chain

import (
	"fmt"
	"sort"

	"github.com/kilianp07/lsp/core/model"
)

// TimedShipment is a shipment waiting since Time.
type TimedShipment struct {
	Time     float64
	Shipment *model.Shipment
}

// SortTimed orders by time, then shipment id so equal arrivals are
// deterministic.
func SortTimed(ts []TimedShipment) {
	sort.SliceStable(ts, func(i, j int) bool {
		if ts[i].Time != ts[j].Time {
			return ts[i].Time < ts[j].Time
		}
		return ts[i].Shipment.ID() < ts[j].Shipment.ID()
	})
}

// WaitingShipments holds the shipments queued on one side of an element.
type WaitingShipments struct {
	items []TimedShipment
}

// NewWaitingShipments returns an empty queue.
func NewWaitingShipments() *WaitingShipments {
	return &WaitingShipments{}
}

// Add queues s at time t. A shipment can be queued only once.
func (q *WaitingShipments) Add(t float64, s *model.Shipment) error {
	if s == nil {
		return fmt.Errorf("nil shipment")
	}
	if q.Contains(s.ID()) {
		return fmt.Errorf("shipment %s already queued", s.ID())
	}
	q.items = append(q.items, TimedShipment{Time: t, Shipment: s})
	return nil
}

// Remove dequeues the shipment with the given id.
func (q *WaitingShipments) Remove(id model.ShipmentID) (TimedShipment, bool) {
	for i, it := range q.items {
		if it.Shipment.ID() == id {
			q.items = append(q.items[:i], q.items[i+1:]...)
			return it, true
		}
	}
	return TimedShipment{}, false
}

// Contains reports whether the shipment is queued.
func (q *WaitingShipments) Contains(id model.ShipmentID) bool {
	for _, it := range q.items {
		if it.Shipment.ID() == id {
			return true
		}
	}
	return false
}

// Get returns the queue entry for id.
func (q *WaitingShipments) Get(id model.ShipmentID) (TimedShipment, bool) {
	for _, it := range q.items {
		if it.Shipment.ID() == id {
			return it, true
		}
	}
	return TimedShipment{}, false
}

// Sorted returns a copy of the queue ordered by arrival time.
func (q *WaitingShipments) Sorted() []TimedShipment {
	out := append([]TimedShipment(nil), q.items...)
	SortTimed(out)
	return out
}

// Len returns the number of queued shipments.
func (q *WaitingShipments) Len() int { return len(q.items) }
