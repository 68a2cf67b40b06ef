// Package resource defines the schedulable capacity and time-cost models that
// logistic chain elements delegate to. The set of kinds is closed: Resource
// can only be implemented inside this package, and Visit dispatches
// exhaustively over it.
package resource

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kilianp07/lsp/core/model"
)

// Kind enumerates the resource variants.
type Kind int

const (
	KindTransshipmentHub Kind = iota + 1
	KindCollection
	KindDistribution
	KindMainRun
)

func (k Kind) String() string {
	switch k {
	case KindTransshipmentHub:
		return "hub"
	case KindCollection:
		return "collection"
	case KindDistribution:
		return "distribution"
	case KindMainRun:
		return "mainrun"
	default:
		return "unknown"
	}
}

// ParseKind converts the textual kind used in configuration and plan files.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hub", "transshipmenthub", "transshipment_hub":
		return KindTransshipmentHub, nil
	case "collection":
		return KindCollection, nil
	case "distribution":
		return KindDistribution, nil
	case "mainrun", "main_run":
		return KindMainRun, nil
	default:
		return 0, fmt.Errorf("unknown resource kind %q", s)
	}
}

// Resource is a schedulable capacity model shared by one or more chain
// elements.
type Resource interface {
	ID() model.ResourceID
	Kind() Kind
	sealed()
}

// Handling models the time needed to load, unload or cross-dock a shipment.
type Handling struct {
	FixedTime   float64 `json:"fixed_time" yaml:"fixed_time"`
	TimePerUnit float64 `json:"time_per_unit" yaml:"time_per_unit"`
}

// Duration returns FixedTime + TimePerUnit × demand.
func (h Handling) Duration(demand int) float64 {
	return h.FixedTime + h.TimePerUnit*float64(demand)
}

func (h Handling) validate() error {
	if h.FixedTime < 0 || h.TimePerUnit < 0 {
		return errors.New("handling times must not be negative")
	}
	return nil
}

// TransshipmentHub is a cross-dock where shipments are handled between two
// carriers.
type TransshipmentHub struct {
	id       model.ResourceID
	Location model.LinkID
	Handling Handling
}

// NewTransshipmentHub creates a hub located on link loc.
func NewTransshipmentHub(id model.ResourceID, loc model.LinkID, h Handling) *TransshipmentHub {
	return &TransshipmentHub{id: id, Location: loc, Handling: h}
}

func (h *TransshipmentHub) ID() model.ResourceID { return h.id }
func (*TransshipmentHub) Kind() Kind             { return KindTransshipmentHub }
func (*TransshipmentHub) sealed()                {}

// CollectionCarrier picks shipments up at their origin and brings them to
// the depot.
type CollectionCarrier struct {
	id       model.ResourceID
	Carrier  *Carrier
	Depot    model.LinkID
	Handling Handling
}

// NewCollectionCarrier creates a collection resource backed by carrier c.
func NewCollectionCarrier(id model.ResourceID, c *Carrier, depot model.LinkID, h Handling) *CollectionCarrier {
	return &CollectionCarrier{id: id, Carrier: c, Depot: depot, Handling: h}
}

func (c *CollectionCarrier) ID() model.ResourceID { return c.id }
func (*CollectionCarrier) Kind() Kind             { return KindCollection }
func (*CollectionCarrier) sealed()                {}

// DistributionCarrier delivers shipments from the depot to their
// destination.
type DistributionCarrier struct {
	id       model.ResourceID
	Carrier  *Carrier
	Depot    model.LinkID
	Handling Handling
}

// NewDistributionCarrier creates a distribution resource backed by carrier c.
func NewDistributionCarrier(id model.ResourceID, c *Carrier, depot model.LinkID, h Handling) *DistributionCarrier {
	return &DistributionCarrier{id: id, Carrier: c, Depot: depot, Handling: h}
}

func (d *DistributionCarrier) ID() model.ResourceID { return d.id }
func (*DistributionCarrier) Kind() Kind             { return KindDistribution }
func (*DistributionCarrier) sealed()                {}

// MainRunCarrier runs line-haul tours between two fixed links.
type MainRunCarrier struct {
	id       model.ResourceID
	Carrier  *Carrier
	From     model.LinkID
	To       model.LinkID
	Handling Handling
	Return   VehicleReturn
}

// NewMainRunCarrier creates a line-haul resource between from and to.
func NewMainRunCarrier(id model.ResourceID, c *Carrier, from, to model.LinkID, h Handling, ret VehicleReturn) *MainRunCarrier {
	return &MainRunCarrier{id: id, Carrier: c, From: from, To: to, Handling: h, Return: ret}
}

func (m *MainRunCarrier) ID() model.ResourceID { return m.id }
func (*MainRunCarrier) Kind() Kind             { return KindMainRun }
func (*MainRunCarrier) sealed()                {}

// Visitor handles each resource kind. Implementations must cover every kind,
// so adding one is a compile error for all visitors.
type Visitor[T any] interface {
	VisitHub(*TransshipmentHub) (T, error)
	VisitCollection(*CollectionCarrier) (T, error)
	VisitDistribution(*DistributionCarrier) (T, error)
	VisitMainRun(*MainRunCarrier) (T, error)
}

// Visit dispatches r to the matching visitor method.
func Visit[T any](r Resource, v Visitor[T]) (T, error) {
	switch x := r.(type) {
	case *TransshipmentHub:
		return v.VisitHub(x)
	case *CollectionCarrier:
		return v.VisitCollection(x)
	case *DistributionCarrier:
		return v.VisitDistribution(x)
	case *MainRunCarrier:
		return v.VisitMainRun(x)
	default:
		var zero T
		return zero, fmt.Errorf("unsupported resource type %T", r)
	}
}

// CarrierOf returns the carrier behind a carrier-backed resource.
func CarrierOf(r Resource) (*Carrier, bool) {
	switch x := r.(type) {
	case *CollectionCarrier:
		return x.Carrier, x.Carrier != nil
	case *DistributionCarrier:
		return x.Carrier, x.Carrier != nil
	case *MainRunCarrier:
		return x.Carrier, x.Carrier != nil
	default:
		return nil, false
	}
}

// Validate checks the kind-specific invariants of r.
func Validate(r Resource) error {
	if r == nil {
		return errors.New("nil resource")
	}
	if r.ID() == "" {
		return errors.New("resource id is required")
	}
	var err error
	switch x := r.(type) {
	case *TransshipmentHub:
		if x.Location == "" {
			err = errors.New("hub location is required")
		} else {
			err = x.Handling.validate()
		}
	case *CollectionCarrier:
		err = validateCarrierBacked(x.Carrier, x.Handling, x.Depot)
	case *DistributionCarrier:
		err = validateCarrierBacked(x.Carrier, x.Handling, x.Depot)
	case *MainRunCarrier:
		err = validateCarrierBacked(x.Carrier, x.Handling, x.From)
		if err == nil && x.To == "" {
			err = errors.New("main run destination link is required")
		}
	}
	if err != nil {
		return fmt.Errorf("resource %s: %w", r.ID(), err)
	}
	return nil
}

func validateCarrierBacked(c *Carrier, h Handling, depot model.LinkID) error {
	if depot == "" {
		return errors.New("depot link is required")
	}
	if err := h.validate(); err != nil {
		return err
	}
	if c == nil {
		return errors.New("carrier is required")
	}
	return c.Validate()
}
