package model

import (
	"errors"
	"fmt"
)

// TimeWindow is a closed interval of simulation seconds.
type TimeWindow struct {
	Start float64 `json:"start" yaml:"start"`
	End   float64 `json:"end" yaml:"end"`
}

// Contains reports whether t lies within the window.
func (w TimeWindow) Contains(t float64) bool {
	return t >= w.Start && t <= w.End
}

// Validate checks that the window is not inverted.
func (w TimeWindow) Validate() error {
	if w.End < w.Start {
		return fmt.Errorf("time window end %.1f before start %.1f", w.End, w.Start)
	}
	return nil
}

// Shipment is a transport request moving through a logistic chain.
// Apart from its plan and log ledgers it never changes after Build.
type Shipment struct {
	id                  ShipmentID
	from                LinkID
	to                  LinkID
	demand              int
	pickupWindow        TimeWindow
	deliveryWindow      TimeWindow
	pickupServiceTime   float64
	deliveryServiceTime float64

	plan *Ledger
	log  *Ledger
}

func (s *Shipment) ID() ShipmentID               { return s.id }
func (s *Shipment) From() LinkID                 { return s.from }
func (s *Shipment) To() LinkID                   { return s.to }
func (s *Shipment) Demand() int                  { return s.demand }
func (s *Shipment) PickupWindow() TimeWindow     { return s.pickupWindow }
func (s *Shipment) DeliveryWindow() TimeWindow   { return s.deliveryWindow }
func (s *Shipment) PickupServiceTime() float64   { return s.pickupServiceTime }
func (s *Shipment) DeliveryServiceTime() float64 { return s.deliveryServiceTime }

// Plan returns the ledger of scheduled plan elements.
func (s *Shipment) Plan() *Ledger { return s.plan }

// Log returns the ledger of elements observed during execution.
func (s *Shipment) Log() *Ledger { return s.log }

// ShipmentBuilder assembles a Shipment. Setters may be chained; validation
// happens in Build.
type ShipmentBuilder struct {
	s Shipment
}

// NewShipmentBuilder starts a shipment with the given id.
func NewShipmentBuilder(id ShipmentID) *ShipmentBuilder {
	return &ShipmentBuilder{s: Shipment{id: id}}
}

func (b *ShipmentBuilder) From(l LinkID) *ShipmentBuilder { b.s.from = l; return b }
func (b *ShipmentBuilder) To(l LinkID) *ShipmentBuilder   { b.s.to = l; return b }
func (b *ShipmentBuilder) Demand(d int) *ShipmentBuilder  { b.s.demand = d; return b }

func (b *ShipmentBuilder) PickupWindow(w TimeWindow) *ShipmentBuilder {
	b.s.pickupWindow = w
	return b
}

func (b *ShipmentBuilder) DeliveryWindow(w TimeWindow) *ShipmentBuilder {
	b.s.deliveryWindow = w
	return b
}

func (b *ShipmentBuilder) PickupServiceTime(d float64) *ShipmentBuilder {
	b.s.pickupServiceTime = d
	return b
}

func (b *ShipmentBuilder) DeliveryServiceTime(d float64) *ShipmentBuilder {
	b.s.deliveryServiceTime = d
	return b
}

// Build validates the collected attributes and returns the shipment.
func (b *ShipmentBuilder) Build() (*Shipment, error) {
	s := b.s
	if s.id == "" {
		return nil, errors.New("shipment id is required")
	}
	if s.from == "" || s.to == "" {
		return nil, fmt.Errorf("shipment %s: origin and destination links are required", s.id)
	}
	if s.demand < 0 {
		return nil, fmt.Errorf("shipment %s: negative capacity demand %d", s.id, s.demand)
	}
	if s.pickupServiceTime < 0 || s.deliveryServiceTime < 0 {
		return nil, fmt.Errorf("shipment %s: negative service time", s.id)
	}
	if err := s.pickupWindow.Validate(); err != nil {
		return nil, fmt.Errorf("shipment %s: pickup window: %w", s.id, err)
	}
	if err := s.deliveryWindow.Validate(); err != nil {
		return nil, fmt.Errorf("shipment %s: delivery window: %w", s.id, err)
	}
	s.plan = NewLedger()
	s.log = NewLedger()
	return &s, nil
}
