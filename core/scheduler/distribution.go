package scheduler

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/lsp/core/execution"
	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/resource"
	"github.com/kilianp07/lsp/core/vrp"
)

type routedBundle struct {
	slots []loadSlot
	tours []vrp.ScheduledTour
}

// DistributionStrategy bundles the waiting shipments by vehicle capacity,
// loads each bundle at the depot and lets the optimizer route the
// deliveries.
type DistributionStrategy struct {
	optimizer vrp.Optimizer
	res       *resource.DistributionCarrier
	bundles   []routedBundle
}

// NewDistributionStrategy returns the distribution strategy routing with opt.
func NewDistributionStrategy(opt vrp.Optimizer) *DistributionStrategy {
	return &DistributionStrategy{optimizer: opt}
}

func (*DistributionStrategy) Kind() resource.Kind { return resource.KindDistribution }

func (d *DistributionStrategy) Initialize(r resource.Resource) error {
	res, ok := r.(*resource.DistributionCarrier)
	if !ok {
		return kindMismatch(resource.KindDistribution, r)
	}
	if d.optimizer == nil {
		return errors.New("distribution scheduler has no optimizer")
	}
	d.res, d.bundles = res, nil
	return nil
}

func (d *DistributionStrategy) ScheduleResource(ctx context.Context, p *Pass) error {
	if len(p.Buffer) == 0 {
		return nil
	}
	v, ok := d.res.Carrier.PrimaryVehicle()
	if !ok {
		return fmt.Errorf("carrier %s has no vehicle", d.res.Carrier.ID)
	}
	for _, b := range bundle(p.Buffer, v.Capacity()) {
		slots := sequentialLoading(b, d.res.Handling)
		prob := vrp.Problem{
			Resource: d.res.ID(),
			Vehicles: []vrp.Vehicle{vrp.FromCarrier(v, d.res.Depot, d.res.Depot, lastLoadEnd(slots))},
		}
		for _, s := range slots {
			prob.Jobs = append(prob.Jobs, vrp.DeliveryJob(s.Shipment))
		}
		sol, err := d.optimizer.Solve(ctx, prob)
		if err != nil {
			return fmt.Errorf("optimizer: %w", err)
		}
		if err := unassignedError(sol); err != nil {
			return err
		}
		d.bundles = append(d.bundles, routedBundle{slots: slots, tours: sol.Tours})
		for _, t := range sol.Tours {
			p.AddTour(tourFromSolution(d.res.ID(), t))
		}
	}
	return nil
}

func (d *DistributionStrategy) UpdateShipments(p *Pass) error {
	for _, b := range d.bundles {
		loads := make(map[model.ShipmentID]loadSlot, len(b.slots))
		for _, s := range b.slots {
			loads[s.Shipment.ID()] = s
		}
		for _, t := range b.tours {
			for _, act := range t.Activities {
				id := act.Job.Shipment.ID()
				slot, ok := loads[id]
				if !ok {
					return fmt.Errorf("optimizer returned unknown shipment %s", id)
				}
				els := carrierElements(d.res.ID(), slot, t.ID, t.Departure, d.res.Depot, act)
				p.Stage(id, els[0], els[1], els[2])
				p.Listen(t.ID, departureAnchoredListener(slot.Shipment, t.Departure, act.Start, els))
			}
		}
	}
	return nil
}

// carrierElements builds LOAD at the origin link, TRANSPORT from departure to
// the start of the delivery service and UNLOAD during the service.
func carrierElements(rid model.ResourceID, slot loadSlot, tour model.TourID, departure float64, origin model.LinkID, act vrp.Activity) [3]model.PlanElement {
	base := model.PlanElement{Element: slot.Element.ID(), Resource: rid, Tour: tour}
	load, transport, unload := base, base, base
	load.Kind, load.Start, load.End = model.KindLoad, slot.start, slot.end
	load.From, load.To = origin, origin
	transport.Kind, transport.Start, transport.End = model.KindTransport, departure, act.Start
	transport.From, transport.To = origin, act.Link
	unload.Kind, unload.Start, unload.End = model.KindUnload, act.Start, act.End
	unload.From, unload.To = act.Link, act.Link
	return [3]model.PlanElement{load, transport, unload}
}

// departureAnchoredListener logs LOAD relative to the observed tour start,
// TRANSPORT until the delivery service starts and UNLOAD during it.
// plannedService is the planned start of the service activity; TRANSPORT
// may end before it when the vehicle waits at the destination.
func departureAnchoredListener(s *model.Shipment, departure, plannedService float64, els [3]model.PlanElement) *execution.LogListener {
	load, transport, unload := els[0], els[1], els[2]
	started := execution.Trigger{Type: execution.TourStarted}
	loadStart, loadEnd := started, started
	loadStart.Offset, loadEnd.Offset = load.Start-departure, load.End-departure
	svcStart := execution.Trigger{Type: execution.ServiceStarted, Shipment: s.ID()}
	arrived := svcStart
	arrived.Offset = transport.End - plannedService
	svcEnd := execution.Trigger{Type: execution.ServiceEnded, Shipment: s.ID()}
	return execution.NewLogListener(s.Log(),
		execution.Anchor{Planned: load, Start: loadStart, End: loadEnd},
		execution.Anchor{Planned: transport, Start: started, End: arrived},
		execution.Anchor{Planned: unload, Start: svcStart, End: svcEnd},
	)
}
