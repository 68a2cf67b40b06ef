// Package chain models logistic chains: ordered elements, each delegating to
// a resource, with queues of waiting shipments on either side.
package chain

import (
	"errors"
	"fmt"
	"sort"

	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/resource"
)

// Element is one stage of a chain. It belongs to exactly one chain and
// references exactly one resource.
type Element struct {
	id       model.ElementID
	res      resource.Resource
	prev     *Element
	next     *Element
	owner    *Chain
	incoming *WaitingShipments
	outgoing *WaitingShipments
}

// NewElement creates a detached element for resource r.
func NewElement(id model.ElementID, r resource.Resource) *Element {
	return &Element{
		id:       id,
		res:      r,
		incoming: NewWaitingShipments(),
		outgoing: NewWaitingShipments(),
	}
}

func (e *Element) ID() model.ElementID         { return e.id }
func (e *Element) Resource() resource.Resource { return e.res }
func (e *Element) Previous() *Element          { return e.prev }
func (e *Element) Next() *Element              { return e.next }
func (e *Element) Chain() *Chain               { return e.owner }
func (e *Element) Incoming() *WaitingShipments { return e.incoming }
func (e *Element) Outgoing() *WaitingShipments { return e.outgoing }
func (e *Element) String() string              { return string(e.id) }

// Chain is an ordered sequence of elements plus the shipments assigned to it.
type Chain struct {
	id        model.ChainID
	elements  []*Element
	shipments map[model.ShipmentID]*model.Shipment
}

// NewChain links elements in the given order. Elements already attached to
// another chain are rejected.
func NewChain(id model.ChainID, elements ...*Element) (*Chain, error) {
	if id == "" {
		return nil, errors.New("chain id is required")
	}
	if len(elements) == 0 {
		return nil, fmt.Errorf("chain %s has no elements", id)
	}
	seen := make(map[model.ElementID]bool, len(elements))
	for _, e := range elements {
		if e == nil || e.res == nil {
			return nil, fmt.Errorf("chain %s: element without resource", id)
		}
		if seen[e.id] {
			return nil, fmt.Errorf("chain %s: duplicate element %s", id, e.id)
		}
		seen[e.id] = true
		if e.owner != nil {
			return nil, fmt.Errorf("chain %s: element %s already belongs to chain %s", id, e.id, e.owner.id)
		}
	}
	c := &Chain{id: id, shipments: make(map[model.ShipmentID]*model.Shipment)}
	for i, e := range elements {
		e.owner = c
		e.prev, e.next = nil, nil
		if i > 0 {
			e.prev = elements[i-1]
			elements[i-1].next = e
		}
	}
	c.elements = append([]*Element(nil), elements...)
	return c, nil
}

func (c *Chain) ID() model.ChainID { return c.id }

// Elements returns the elements in chain order.
func (c *Chain) Elements() []*Element { return append([]*Element(nil), c.elements...) }

// First returns the element where shipments enter the chain.
func (c *Chain) First() *Element { return c.elements[0] }

// Last returns the terminal element.
func (c *Chain) Last() *Element { return c.elements[len(c.elements)-1] }

// AssignShipment adds s to the chain's shipment set.
func (c *Chain) AssignShipment(s *model.Shipment) error {
	if s == nil {
		return errors.New("nil shipment")
	}
	if _, ok := c.shipments[s.ID()]; ok {
		return fmt.Errorf("shipment %s already assigned to chain %s", s.ID(), c.id)
	}
	c.shipments[s.ID()] = s
	return nil
}

// HasShipment reports whether id is assigned to the chain.
func (c *Chain) HasShipment(id model.ShipmentID) bool {
	_, ok := c.shipments[id]
	return ok
}

// Shipments returns the assigned shipments ordered by id.
func (c *Chain) Shipments() []*model.Shipment {
	out := make([]*model.Shipment, 0, len(c.shipments))
	for _, s := range c.shipments {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}

// ShipmentIDs returns the assigned shipment ids in ascending order.
func (c *Chain) ShipmentIDs() []model.ShipmentID {
	ids := make([]model.ShipmentID, 0, len(c.shipments))
	for id := range c.shipments {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Locate returns the element and side holding the shipment.
func (c *Chain) Locate(id model.ShipmentID) (e *Element, incoming bool, ok bool) {
	for _, el := range c.elements {
		if el.incoming.Contains(id) {
			return el, true, true
		}
		if el.outgoing.Contains(id) {
			return el, false, true
		}
	}
	return nil, false, false
}

// Finished reports whether the shipment waits in the terminal outgoing queue.
func (c *Chain) Finished(id model.ShipmentID) bool {
	return c.Last().outgoing.Contains(id)
}
