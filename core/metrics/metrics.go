package metrics

import (
	"time"

	"github.com/kilianp07/lsp/core/model"
)

// ScheduleEvent describes one resource scheduling pass.
type ScheduleEvent struct {
	Resource  model.ResourceID
	Kind      string
	Shipments int
	Tours     int
	Duration  time.Duration
	Err       string
	Time      time.Time
}

// MetricsSink records scheduling passes for observability purposes.
type MetricsSink interface {
	RecordSchedule(ev ScheduleEvent) error
}

// TourEvent is a tour built by a carrier scheduler.
type TourEvent struct {
	Tour      model.TourID
	Resource  model.ResourceID
	Vehicle   model.VehicleID
	Shipments int
	Load      int
	Capacity  int
	Departure float64
	Arrival   float64
	Distance  float64
	Cost      float64
	Time      time.Time
}

// Utilization returns Load / Capacity, or 0 for an unbounded vehicle.
func (e TourEvent) Utilization() float64 {
	if e.Capacity <= 0 {
		return 0
	}
	return float64(e.Load) / float64(e.Capacity)
}

// TourRecorder records the tours of a pass.
type TourRecorder interface {
	RecordTours(evs []TourEvent) error
}

// ConservationEvent reports a failed shipment conservation check.
type ConservationEvent struct {
	Chain      model.ChainID
	Lost       int
	Duplicated int
	Time       time.Time
}

// ConservationRecorder records conservation violations.
type ConservationRecorder interface {
	RecordConservation(ev ConservationEvent) error
}

// ExecutionEvent is an event received from the execution feed.
type ExecutionEvent struct {
	Type string
	Tour model.TourID
	Time time.Time
}

// ExecutionRecorder records execution feed traffic.
type ExecutionRecorder interface {
	RecordExecution(ev ExecutionEvent) error
}

// ReconciliationEvent summarises plan against log for one shipment.
type ReconciliationEvent struct {
	Shipment     model.ShipmentID
	Matched      int
	Missing      int
	Unexpected   int
	MaxDeviation float64
	Time         time.Time
}

// ReconciliationRecorder records reconciliation results.
type ReconciliationRecorder interface {
	RecordReconciliation(evs []ReconciliationEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordSchedule(ScheduleEvent) error               { return nil }
func (NopSink) RecordTours([]TourEvent) error                    { return nil }
func (NopSink) RecordConservation(ConservationEvent) error       { return nil }
func (NopSink) RecordExecution(ExecutionEvent) error             { return nil }
func (NopSink) RecordReconciliation([]ReconciliationEvent) error { return nil }
