// Package execution connects the physical execution feed to the shipment
// logs. Events arrive on a bus, a Recorder hands them to the listeners the
// schedulers registered per tour, and the listeners append observed plan
// elements to the shipment logs.
package execution

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kilianp07/lsp/core/model"
)

// EventType tags the kind of execution event.
type EventType string

const (
	TourStarted    EventType = "tour_started"
	TourEnded      EventType = "tour_ended"
	ServiceStarted EventType = "service_started"
	ServiceEnded   EventType = "service_ended"
)

// Valid reports whether t is a known event type.
func (t EventType) Valid() bool {
	switch t {
	case TourStarted, TourEnded, ServiceStarted, ServiceEnded:
		return true
	}
	return false
}

// Event is one observation from the execution feed. Shipment is only set for
// service events.
type Event struct {
	Type     EventType        `json:"type"`
	Time     float64          `json:"time"`
	Tour     model.TourID     `json:"tour"`
	Vehicle  model.VehicleID  `json:"vehicle,omitempty"`
	Link     model.LinkID     `json:"link,omitempty"`
	Shipment model.ShipmentID `json:"shipment,omitempty"`
}

// Validate checks the type tag and the fields required by it.
func (e Event) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.Tour == "" {
		return errors.New("event without tour id")
	}
	if (e.Type == ServiceStarted || e.Type == ServiceEnded) && e.Shipment == "" {
		return fmt.Errorf("%s event without shipment", e.Type)
	}
	return nil
}

// EncodeEvent returns the JSON wire form of e.
func EncodeEvent(e Event) ([]byte, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(e)
}

// DecodeEvent parses and validates a JSON event.
func DecodeEvent(b []byte) (Event, error) {
	var e Event
	if err := json.Unmarshal(b, &e); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	if err := e.Validate(); err != nil {
		return Event{}, fmt.Errorf("decode event: %w", err)
	}
	return e, nil
}
