package scheduler

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/network"
	"github.com/kilianp07/lsp/core/resource"
	"github.com/kilianp07/lsp/core/vrp"
)

type mainRunTour struct {
	slots []loadSlot
	tour  vrp.ScheduledTour
}

// MainRunStrategy bundles the waiting shipments into line-haul tours from the
// carrier's From link to its To link. No optimizer is involved: every tour is
// a single leg followed by the deliveries at To.
type MainRunStrategy struct {
	net   network.Network
	newID func() model.TourID
	res   *resource.MainRunCarrier
	tours []mainRunTour
}

// NewMainRunStrategy returns the main run strategy. newID may be nil.
func NewMainRunStrategy(net network.Network, newID func() model.TourID) *MainRunStrategy {
	if newID == nil {
		newID = vrp.NewTourID
	}
	return &MainRunStrategy{net: net, newID: newID}
}

func (*MainRunStrategy) Kind() resource.Kind { return resource.KindMainRun }

func (m *MainRunStrategy) Initialize(r resource.Resource) error {
	res, ok := r.(*resource.MainRunCarrier)
	if !ok {
		return kindMismatch(resource.KindMainRun, r)
	}
	if m.net == nil {
		return errors.New("main run scheduler has no network")
	}
	m.res, m.tours = res, nil
	return nil
}

func (m *MainRunStrategy) ScheduleResource(ctx context.Context, p *Pass) error {
	if len(p.Buffer) == 0 {
		return nil
	}
	v, ok := m.res.Carrier.PrimaryVehicle()
	if !ok {
		return fmt.Errorf("carrier %s has no vehicle", m.res.Carrier.ID)
	}
	dist, err := m.net.Distance(m.res.From, m.res.To)
	if err != nil {
		return err
	}
	travel, err := m.net.TravelTime(m.res.From, m.res.To)
	if err != nil {
		return err
	}
	end := m.res.From
	if m.res.Return == resource.EndAtToLink {
		end = m.res.To
	}
	for _, b := range bundle(p.Buffer, v.Capacity()) {
		if err := ctx.Err(); err != nil {
			return err
		}
		slots := sequentialLoading(b, m.res.Handling)
		departure := math.Max(lastLoadEnd(slots), v.EarliestStart)
		t := vrp.ScheduledTour{
			ID:        m.newID(),
			Vehicle:   vrp.FromCarrier(v, m.res.From, end, departure),
			Start:     m.res.From,
			End:       end,
			Departure: departure,
			Distance:  dist,
		}
		arrival := departure + travel
		clock := arrival
		for _, s := range slots {
			job := vrp.DeliveryJob(s.Shipment)
			job.Link = m.res.To
			act := vrp.Activity{Job: job, Link: m.res.To, Arrival: arrival, Start: clock, End: clock + job.ServiceDuration}
			t.Activities = append(t.Activities, act)
			clock = act.End
		}
		t.Arrival = clock
		if end == m.res.From {
			t.Arrival += travel
			t.Distance += dist
		}
		t.Cost = vrp.TourCost(v.Type, t.Distance, t.Arrival-t.Departure)
		m.tours = append(m.tours, mainRunTour{slots: slots, tour: t})
		p.AddTour(tourFromSolution(m.res.ID(), t))
	}
	return nil
}

func (m *MainRunStrategy) UpdateShipments(p *Pass) error {
	for _, mt := range m.tours {
		for i, slot := range mt.slots {
			act := mt.tour.Activities[i]
			els := carrierElements(m.res.ID(), slot, mt.tour.ID, mt.tour.Departure, m.res.From, act)
			// the leg ends on arrival at To, unloading may queue behind earlier shipments
			els[1].End = act.Arrival
			p.Stage(slot.Shipment.ID(), els[0], els[1], els[2])
			p.Listen(mt.tour.ID, departureAnchoredListener(slot.Shipment, mt.tour.Departure, act.Start, els))
		}
	}
	return nil
}
