package scheduler

import (
	"context"

	"github.com/kilianp07/lsp/core/execution"
	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/resource"
)

type handleWindow struct {
	q          Queued
	start, end float64
}

// HubStrategy handles every shipment independently: it is cross-docked for
// FixedTime + TimePerUnit × demand starting at its arrival.
type HubStrategy struct {
	hub     *resource.TransshipmentHub
	windows []handleWindow
}

// NewHubStrategy returns the transshipment hub strategy.
func NewHubStrategy() *HubStrategy { return &HubStrategy{} }

func (*HubStrategy) Kind() resource.Kind { return resource.KindTransshipmentHub }

func (h *HubStrategy) Initialize(r resource.Resource) error {
	hub, ok := r.(*resource.TransshipmentHub)
	if !ok {
		return kindMismatch(resource.KindTransshipmentHub, r)
	}
	h.hub, h.windows = hub, nil
	return nil
}

func (h *HubStrategy) ScheduleResource(_ context.Context, p *Pass) error {
	for _, q := range p.Buffer {
		start := q.Time
		h.windows = append(h.windows, handleWindow{q: q, start: start, end: start + h.hub.Handling.Duration(q.Shipment.Demand())})
	}
	return nil
}

func (h *HubStrategy) UpdateShipments(p *Pass) error {
	for _, w := range h.windows {
		el := model.PlanElement{
			Kind:     model.KindHandle,
			Start:    w.start,
			End:      w.end,
			Element:  w.q.Element.ID(),
			Resource: h.hub.ID(),
		}
		p.Stage(w.q.Shipment.ID(), el)
		if tour, anchor, ok := h.upstreamAnchor(w.q, el); ok {
			p.Listen(tour, execution.NewLogListener(w.q.Shipment.Log(), anchor))
		}
	}
	return nil
}

// upstreamAnchor ties HANDLE to the end of the carrier tour that brought the
// shipment: the collection tour reaching the hub, or the delivery service of
// a main run or distribution tour. Shipments not delivered by a tour get no
// listener.
func (h *HubStrategy) upstreamAnchor(q Queued, el model.PlanElement) (model.TourID, execution.Anchor, bool) {
	prev := q.Element.Previous()
	last, ok := q.Shipment.Plan().MostRecent()
	if prev == nil || !ok || last.Tour == "" {
		return "", execution.Anchor{}, false
	}
	var trig execution.Trigger
	var at float64
	switch prev.Resource().Kind() {
	case resource.KindCollection:
		trig = execution.Trigger{Type: execution.TourEnded, Link: h.hub.Location}
		at = last.Start
	case resource.KindMainRun, resource.KindDistribution:
		trig = execution.Trigger{Type: execution.ServiceEnded, Shipment: q.Shipment.ID()}
		at = last.End
	default:
		return "", execution.Anchor{}, false
	}
	start, end := trig, trig
	start.Offset, end.Offset = el.Start-at, el.End-at
	return last.Tour, execution.Anchor{Planned: el, Start: start, End: end}, true
}
