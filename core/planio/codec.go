package planio

import (
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/kilianp07/lsp/core/chain"
	"github.com/kilianp07/lsp/core/lsp"
	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/resource"
)

// Decode reads an LSP document and rebuilds the aggregate. Vehicles are
// resolved against types. Shipments not referenced by any chain are handed
// to the LSP assigner.
func Decode(r io.Reader, format string, types VehicleTypes, opts ...lsp.Option) (*lsp.LSP, error) {
	var doc Document
	if err := decode(r, format, &doc); err != nil {
		return nil, fmt.Errorf("lsp document: %w", err)
	}
	return FromDocument(doc, types, opts...)
}

// Encode writes l as a document.
func Encode(w io.Writer, format string, l *lsp.LSP) error {
	doc, err := ToDocument(l)
	if err != nil {
		return err
	}
	return encode(w, format, doc)
}

// FromDocument builds an LSP from a decoded document.
func FromDocument(doc Document, types VehicleTypes, opts ...lsp.Option) (*lsp.LSP, error) {
	if doc.ID == "" {
		return nil, errors.New("lsp document: id is required")
	}
	resources := make(map[model.ResourceID]resource.Resource, len(doc.Resources))
	for _, rd := range doc.Resources {
		if _, dup := resources[rd.ID]; dup {
			return nil, fmt.Errorf("duplicate resource %s", rd.ID)
		}
		r, err := buildResource(rd, types)
		if err != nil {
			return nil, err
		}
		resources[rd.ID] = r
	}

	shipments := make(map[model.ShipmentID]*model.Shipment, len(doc.Shipments))
	for _, sd := range doc.Shipments {
		if _, dup := shipments[sd.ID]; dup {
			return nil, fmt.Errorf("duplicate shipment %s", sd.ID)
		}
		s, err := model.NewShipmentBuilder(sd.ID).
			From(sd.From).To(sd.To).Demand(sd.Size).
			PickupWindow(sd.PickupWindow).
			DeliveryWindow(sd.DeliveryWindow).
			PickupServiceTime(sd.PickupServiceTime).
			DeliveryServiceTime(sd.DeliveryServiceTime).
			Build()
		if err != nil {
			return nil, err
		}
		shipments[sd.ID] = s
	}

	if len(doc.Plans) == 0 {
		return nil, fmt.Errorf("lsp %s: no plans", doc.ID)
	}
	var plans []*chain.Plan
	selected := ""
	assigned := make(map[model.ShipmentID]bool)
	for _, pd := range doc.Plans {
		p, err := buildPlan(pd, resources, shipments)
		if err != nil {
			return nil, err
		}
		if pd.Selected {
			if selected != "" {
				return nil, fmt.Errorf("lsp %s: plans %s and %s both selected", doc.ID, selected, pd.ID)
			}
			selected = pd.ID
		}
		for _, cd := range pd.Chains {
			for _, id := range cd.Shipments {
				assigned[id] = true
			}
		}
		plans = append(plans, p)
	}

	l, err := lsp.New(string(doc.ID), plans, opts...)
	if err != nil {
		return nil, err
	}
	if selected != "" {
		if err := l.SelectPlan(selected); err != nil {
			return nil, err
		}
	}
	for _, sd := range doc.Shipments {
		if assigned[sd.ID] {
			continue
		}
		if err := l.AddShipment(shipments[sd.ID]); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func buildResource(rd ResourceDoc, types VehicleTypes) (resource.Resource, error) {
	kind, err := resource.ParseKind(rd.Kind)
	if err != nil {
		return nil, fmt.Errorf("resource %s: %w", rd.ID, err)
	}
	var r resource.Resource
	if kind == resource.KindTransshipmentHub {
		r = resource.NewTransshipmentHub(rd.ID, rd.Location, rd.Handling)
	} else {
		c, err := buildCarrier(rd, types)
		if err != nil {
			return nil, err
		}
		switch kind {
		case resource.KindCollection:
			r = resource.NewCollectionCarrier(rd.ID, c, rd.Depot, rd.Handling)
		case resource.KindDistribution:
			r = resource.NewDistributionCarrier(rd.ID, c, rd.Depot, rd.Handling)
		case resource.KindMainRun:
			var ret resource.VehicleReturn
			if err := ret.UnmarshalText([]byte(rd.Return)); err != nil {
				return nil, fmt.Errorf("resource %s: %w", rd.ID, err)
			}
			r = resource.NewMainRunCarrier(rd.ID, c, rd.From, rd.To, rd.Handling, ret)
		}
	}
	if err := resource.Validate(r); err != nil {
		return nil, err
	}
	return r, nil
}

func buildCarrier(rd ResourceDoc, types VehicleTypes) (*resource.Carrier, error) {
	if rd.Carrier == nil {
		return nil, fmt.Errorf("resource %s: carrier is required", rd.ID)
	}
	c := &resource.Carrier{ID: rd.Carrier.ID}
	for _, vd := range rd.Carrier.Vehicles {
		vt, ok := types[vd.Type]
		if !ok {
			return nil, fmt.Errorf("resource %s: vehicle %s: unknown vehicle type %q", rd.ID, vd.ID, vd.Type)
		}
		c.Vehicles = append(c.Vehicles, resource.Vehicle{
			ID:            vd.ID,
			Type:          vt,
			Start:         vd.Start,
			EarliestStart: vd.EarliestStart,
			LatestEnd:     vd.LatestEnd,
		})
	}
	return c, nil
}

func buildPlan(pd PlanDoc, resources map[model.ResourceID]resource.Resource, shipments map[model.ShipmentID]*model.Shipment) (*chain.Plan, error) {
	var chains []*chain.Chain
	for _, cd := range pd.Chains {
		var els []*chain.Element
		for _, ed := range cd.Elements {
			r, ok := resources[ed.Resource]
			if !ok {
				return nil, fmt.Errorf("plan %s: chain %s: element %s references unknown resource %s", pd.ID, cd.ID, ed.ID, ed.Resource)
			}
			els = append(els, chain.NewElement(ed.ID, r))
		}
		c, err := chain.NewChain(cd.ID, els...)
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", pd.ID, err)
		}
		for _, id := range cd.Shipments {
			s, ok := shipments[id]
			if !ok {
				return nil, fmt.Errorf("plan %s: chain %s: unknown shipment %s", pd.ID, cd.ID, id)
			}
			if err := c.AssignShipment(s); err != nil {
				return nil, fmt.Errorf("plan %s: %w", pd.ID, err)
			}
		}
		chains = append(chains, c)
	}
	p, err := chain.NewPlan(pd.ID, chains...)
	if err != nil {
		return nil, err
	}
	p.Score = pd.Score
	return p, nil
}

// ToDocument converts l to its persisted form. Resources follow
// l.Resources(), shipments are ordered by id.
func ToDocument(l *lsp.LSP) (Document, error) {
	if l == nil {
		return Document{}, errors.New("nil lsp")
	}
	doc := Document{ID: model.LSPID(l.ID)}
	for _, r := range l.Resources() {
		rd, err := resourceDoc(r)
		if err != nil {
			return Document{}, err
		}
		doc.Resources = append(doc.Resources, rd)
	}
	for _, s := range l.Shipments() {
		doc.Shipments = append(doc.Shipments, ShipmentDoc{
			ID:                  s.ID(),
			From:                s.From(),
			To:                  s.To(),
			Size:                s.Demand(),
			PickupWindow:        s.PickupWindow(),
			DeliveryWindow:      s.DeliveryWindow(),
			PickupServiceTime:   s.PickupServiceTime(),
			DeliveryServiceTime: s.DeliveryServiceTime(),
		})
	}
	selected := l.Selected()
	for _, p := range l.Plans() {
		pd := PlanDoc{ID: p.ID, Score: p.Score, Selected: p == selected}
		for _, c := range p.Chains() {
			cd := ChainDoc{ID: c.ID(), Shipments: c.ShipmentIDs()}
			for _, e := range c.Elements() {
				cd.Elements = append(cd.Elements, ElementDoc{ID: e.ID(), Resource: e.Resource().ID()})
			}
			pd.Chains = append(pd.Chains, cd)
		}
		doc.Plans = append(doc.Plans, pd)
	}
	return doc, nil
}

type docBuilder struct{}

func (docBuilder) VisitHub(h *resource.TransshipmentHub) (ResourceDoc, error) {
	return ResourceDoc{ID: h.ID(), Kind: h.Kind().String(), Location: h.Location, Handling: h.Handling}, nil
}

func (docBuilder) VisitCollection(c *resource.CollectionCarrier) (ResourceDoc, error) {
	return ResourceDoc{ID: c.ID(), Kind: c.Kind().String(), Depot: c.Depot, Handling: c.Handling, Carrier: carrierDoc(c.Carrier)}, nil
}

func (docBuilder) VisitDistribution(d *resource.DistributionCarrier) (ResourceDoc, error) {
	return ResourceDoc{ID: d.ID(), Kind: d.Kind().String(), Depot: d.Depot, Handling: d.Handling, Carrier: carrierDoc(d.Carrier)}, nil
}

func (docBuilder) VisitMainRun(m *resource.MainRunCarrier) (ResourceDoc, error) {
	return ResourceDoc{
		ID:       m.ID(),
		Kind:     m.Kind().String(),
		From:     m.From,
		To:       m.To,
		Return:   m.Return.String(),
		Handling: m.Handling,
		Carrier:  carrierDoc(m.Carrier),
	}, nil
}

func resourceDoc(r resource.Resource) (ResourceDoc, error) {
	return resource.Visit[ResourceDoc](r, docBuilder{})
}

func carrierDoc(c *resource.Carrier) *CarrierDoc {
	if c == nil {
		return nil
	}
	cd := &CarrierDoc{ID: c.ID}
	for _, v := range c.Vehicles {
		vd := VehicleDoc{ID: v.ID, Start: v.Start, EarliestStart: v.EarliestStart, LatestEnd: v.LatestEnd}
		if v.Type != nil {
			vd.Type = v.Type.ID
		}
		cd.Vehicles = append(cd.Vehicles, vd)
	}
	return cd
}

func sortBy[T any](s []T, key func(T) string) {
	sort.SliceStable(s, func(i, j int) bool { return key(s[i]) < key(s[j]) })
}
