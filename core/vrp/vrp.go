// Package vrp defines the contract between the carrier schedulers and a
// vehicle-routing optimizer, plus a small nearest-neighbour optimizer used by
// the CLI and the tests.
package vrp

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/resource"
)

// JobType distinguishes pickups from deliveries.
type JobType int

const (
	Pickup JobType = iota + 1
	Delivery
)

func (t JobType) String() string {
	switch t {
	case Pickup:
		return "pickup"
	case Delivery:
		return "delivery"
	default:
		return "unknown"
	}
}

// Job is one service request: visit Link within Window and spend
// ServiceDuration there.
type Job struct {
	Shipment        *model.Shipment
	Type            JobType
	Link            model.LinkID
	Demand          int
	ServiceDuration float64
	Window          model.TimeWindow
}

// PickupJob builds the job collecting s at its origin.
func PickupJob(s *model.Shipment) Job {
	return Job{
		Shipment:        s,
		Type:            Pickup,
		Link:            s.From(),
		Demand:          s.Demand(),
		ServiceDuration: s.PickupServiceTime(),
		Window:          s.PickupWindow(),
	}
}

// DeliveryJob builds the job dropping s at its destination.
func DeliveryJob(s *model.Shipment) Job {
	return Job{
		Shipment:        s,
		Type:            Delivery,
		Link:            s.To(),
		Demand:          s.Demand(),
		ServiceDuration: s.DeliveryServiceTime(),
		Window:          s.DeliveryWindow(),
	}
}

// Vehicle is a carrier vehicle as seen by the optimizer. EarliestStart may be
// later than the carrier's own value, e.g. when loading must finish first.
type Vehicle struct {
	ID            model.VehicleID
	Type          *resource.VehicleType
	Start         model.LinkID
	End           model.LinkID
	EarliestStart float64
	LatestEnd     float64
}

// FromCarrier converts a carrier vehicle. start and end default to the
// vehicle's own start link when empty.
func FromCarrier(v resource.Vehicle, start, end model.LinkID, earliest float64) Vehicle {
	if start == "" {
		start = v.Start
	}
	if end == "" {
		end = start
	}
	if v.EarliestStart > earliest {
		earliest = v.EarliestStart
	}
	return Vehicle{ID: v.ID, Type: v.Type, Start: start, End: end, EarliestStart: earliest, LatestEnd: v.LatestEnd}
}

// Capacity returns the capacity of the vehicle type.
func (v Vehicle) Capacity() int {
	if v.Type == nil {
		return 0
	}
	return v.Type.Capacity
}

// Problem is the input handed to an optimizer.
type Problem struct {
	Resource model.ResourceID
	Vehicles []Vehicle
	Jobs     []Job
}

// Activity is one served job inside a tour.
type Activity struct {
	Job     Job
	Link    model.LinkID
	Arrival float64
	Start   float64
	End     float64
}

// ScheduledTour is a vehicle trip from Start to End serving Activities in
// order. Arrival is the time the vehicle reaches End.
type ScheduledTour struct {
	ID         model.TourID
	Vehicle    Vehicle
	Start      model.LinkID
	End        model.LinkID
	Departure  float64
	Arrival    float64
	Activities []Activity
	Distance   float64
	Cost       float64
}

// Load returns the summed demand served by the tour.
func (t ScheduledTour) Load() int {
	n := 0
	for _, a := range t.Activities {
		n += a.Job.Demand
	}
	return n
}

// Solution is the optimizer output. Unassigned jobs could not be placed on
// any tour.
type Solution struct {
	Tours      []ScheduledTour
	Unassigned []Job
}

// Optimizer solves a routing problem. Implementations must not mutate the
// shipments referenced by the jobs.
type Optimizer interface {
	Solve(ctx context.Context, p Problem) (Solution, error)
}

// OptimizerFunc adapts a function to Optimizer.
type OptimizerFunc func(ctx context.Context, p Problem) (Solution, error)

// Solve calls f.
func (f OptimizerFunc) Solve(ctx context.Context, p Problem) (Solution, error) { return f(ctx, p) }

// TourCost scores a tour: fixed cost plus distance and time dependent costs.
func TourCost(vt *resource.VehicleType, distance, duration float64) float64 {
	if vt == nil {
		return 0
	}
	return vt.FixedCost + distance*vt.CostPerMeter + duration*vt.CostPerSecond
}

// NewTourID returns a random tour id.
func NewTourID() model.TourID {
	return model.TourID(uuid.NewString())
}

// Validate checks that every job references a shipment and every vehicle has
// a type.
func (p Problem) Validate() error {
	for i, v := range p.Vehicles {
		if v.Type == nil {
			return fmt.Errorf("vehicle %d (%s) has no type", i, v.ID)
		}
		if v.Start == "" || v.End == "" {
			return fmt.Errorf("vehicle %s has no start or end link", v.ID)
		}
	}
	for i, j := range p.Jobs {
		if j.Shipment == nil {
			return fmt.Errorf("job %d has no shipment", i)
		}
		if j.Link == "" {
			return fmt.Errorf("job for shipment %s has no link", j.Shipment.ID())
		}
	}
	return nil
}
