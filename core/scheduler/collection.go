package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/lsp/core/execution"
	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/resource"
	"github.com/kilianp07/lsp/core/vrp"
)

// CollectionStrategy lets the optimizer build pickup tours that bring the
// shipments from their origin to the depot.
type CollectionStrategy struct {
	optimizer vrp.Optimizer
	res       *resource.CollectionCarrier
	tours     []vrp.ScheduledTour
}

// NewCollectionStrategy returns the collection strategy routing with opt.
func NewCollectionStrategy(opt vrp.Optimizer) *CollectionStrategy {
	return &CollectionStrategy{optimizer: opt}
}

func (*CollectionStrategy) Kind() resource.Kind { return resource.KindCollection }

func (c *CollectionStrategy) Initialize(r resource.Resource) error {
	res, ok := r.(*resource.CollectionCarrier)
	if !ok {
		return kindMismatch(resource.KindCollection, r)
	}
	if c.optimizer == nil {
		return errors.New("collection scheduler has no optimizer")
	}
	c.res, c.tours = res, nil
	return nil
}

func (c *CollectionStrategy) ScheduleResource(ctx context.Context, p *Pass) error {
	if len(p.Buffer) == 0 {
		return nil
	}
	prob := vrp.Problem{Resource: c.res.ID()}
	for _, v := range c.res.Carrier.Vehicles {
		start := v.Start
		if start == "" {
			start = c.res.Depot
		}
		prob.Vehicles = append(prob.Vehicles, vrp.FromCarrier(v, start, c.res.Depot, 0))
	}
	for _, q := range p.Buffer {
		job := vrp.PickupJob(q.Shipment)
		job.Window.Start = math.Max(job.Window.Start, q.Time)
		job.Window.End = math.Max(job.Window.End, job.Window.Start)
		prob.Jobs = append(prob.Jobs, job)
	}
	sol, err := c.optimizer.Solve(ctx, prob)
	if err != nil {
		return fmt.Errorf("optimizer: %w", err)
	}
	if err := unassignedError(sol); err != nil {
		return err
	}
	c.tours = sol.Tours
	for _, t := range sol.Tours {
		p.AddTour(tourFromSolution(c.res.ID(), t))
	}
	return nil
}

func (c *CollectionStrategy) UpdateShipments(p *Pass) error {
	for _, t := range c.tours {
		for _, act := range t.Activities {
			s := act.Job.Shipment
			q, ok := p.Queued(s.ID())
			if !ok {
				return fmt.Errorf("optimizer returned unknown shipment %s", s.ID())
			}
			base := model.PlanElement{Element: q.Element.ID(), Resource: c.res.ID(), Tour: t.ID}
			load, transport, unload := base, base, base
			load.Kind, load.Start, load.End = model.KindLoad, act.Start, act.End
			load.From, load.To = act.Link, act.Link
			transport.Kind, transport.Start, transport.End = model.KindTransport, act.End, t.Arrival
			transport.From, transport.To = act.Link, t.End
			unloadTime := c.res.Handling.Duration(s.Demand())
			unload.Kind, unload.Start, unload.End = model.KindUnload, t.Arrival, t.Arrival+unloadTime
			unload.From, unload.To = t.End, t.End
			p.Stage(s.ID(), load, transport, unload)

			svcStart := execution.Trigger{Type: execution.ServiceStarted, Shipment: s.ID()}
			svcEnd := execution.Trigger{Type: execution.ServiceEnded, Shipment: s.ID()}
			tourEnd := execution.Trigger{Type: execution.TourEnded}
			unloaded := tourEnd
			unloaded.Offset = unloadTime
			p.Listen(t.ID, execution.NewLogListener(s.Log(),
				execution.Anchor{Planned: load, Start: svcStart, End: svcEnd},
				execution.Anchor{Planned: transport, Start: svcEnd, End: tourEnd},
				execution.Anchor{Planned: unload, Start: tourEnd, End: unloaded},
			))
		}
	}
	return nil
}

func unassignedError(sol vrp.Solution) error {
	if len(sol.Unassigned) == 0 {
		return nil
	}
	ids := make([]model.ShipmentID, 0, len(sol.Unassigned))
	for _, j := range sol.Unassigned {
		ids = append(ids, j.Shipment.ID())
	}
	return fmt.Errorf("%w: %v", ErrUnroutedShipment, ids)
}

func tourFromSolution(rid model.ResourceID, t vrp.ScheduledTour) Tour {
	out := Tour{
		ID:        t.ID,
		Resource:  rid,
		Vehicle:   t.Vehicle.ID,
		Capacity:  t.Vehicle.Capacity(),
		Load:      t.Load(),
		From:      t.Start,
		To:        t.End,
		Departure: t.Departure,
		Arrival:   t.Arrival,
		Distance:  t.Distance,
		Cost:      t.Cost,
	}
	for _, a := range t.Activities {
		out.Shipments = append(out.Shipments, a.Job.Shipment.ID())
	}
	return out
}
