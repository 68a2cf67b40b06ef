// Package planio reads and writes the persisted scenario format: an LSP with
// its resources, shipments and candidate plans, the vehicle type registry
// and the static network. Documents are JSON or YAML.
package planio

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/network"
	"github.com/kilianp07/lsp/core/resource"
)

// ErrFormat is returned for an unsupported document format.
var ErrFormat = errors.New("unsupported document format")

// Document is the persisted form of an LSP.
type Document struct {
	ID        model.LSPID   `json:"id" yaml:"id"`
	Resources []ResourceDoc `json:"resources" yaml:"resources"`
	Shipments []ShipmentDoc `json:"shipments" yaml:"shipments"`
	Plans     []PlanDoc     `json:"plans" yaml:"plans"`
}

// ResourceDoc is a hub or a carrier. Which link fields apply depends on Kind.
type ResourceDoc struct {
	ID       model.ResourceID  `json:"id" yaml:"id"`
	Kind     string            `json:"kind" yaml:"kind"`
	Location model.LinkID      `json:"location,omitempty" yaml:"location,omitempty"`
	Depot    model.LinkID      `json:"depot,omitempty" yaml:"depot,omitempty"`
	From     model.LinkID      `json:"from,omitempty" yaml:"from,omitempty"`
	To       model.LinkID      `json:"to,omitempty" yaml:"to,omitempty"`
	Return   string            `json:"return,omitempty" yaml:"return,omitempty"`
	Handling resource.Handling `json:"handling" yaml:"handling"`
	Carrier  *CarrierDoc       `json:"carrier,omitempty" yaml:"carrier,omitempty"`
}

type CarrierDoc struct {
	ID       model.CarrierID `json:"id" yaml:"id"`
	Vehicles []VehicleDoc    `json:"vehicles" yaml:"vehicles"`
}

// VehicleDoc references its type by id in the vehicle type registry.
type VehicleDoc struct {
	ID            model.VehicleID     `json:"id" yaml:"id"`
	Type          model.VehicleTypeID `json:"type" yaml:"type"`
	Start         model.LinkID        `json:"start,omitempty" yaml:"start,omitempty"`
	EarliestStart float64             `json:"earliest_start,omitempty" yaml:"earliest_start,omitempty"`
	LatestEnd     float64             `json:"latest_end,omitempty" yaml:"latest_end,omitempty"`
}

type ShipmentDoc struct {
	ID                  model.ShipmentID `json:"id" yaml:"id"`
	From                model.LinkID     `json:"from" yaml:"from"`
	To                  model.LinkID     `json:"to" yaml:"to"`
	Size                int              `json:"size" yaml:"size"`
	PickupWindow        model.TimeWindow `json:"pickup_window" yaml:"pickup_window"`
	DeliveryWindow      model.TimeWindow `json:"delivery_window" yaml:"delivery_window"`
	PickupServiceTime   float64          `json:"pickup_service_time" yaml:"pickup_service_time"`
	DeliveryServiceTime float64          `json:"delivery_service_time" yaml:"delivery_service_time"`
}

type PlanDoc struct {
	ID       string     `json:"id" yaml:"id"`
	Score    float64    `json:"score" yaml:"score"`
	Selected bool       `json:"selected,omitempty" yaml:"selected,omitempty"`
	Chains   []ChainDoc `json:"chains" yaml:"chains"`
}

type ChainDoc struct {
	ID        model.ChainID      `json:"id" yaml:"id"`
	Elements  []ElementDoc       `json:"elements" yaml:"elements"`
	Shipments []model.ShipmentID `json:"shipments" yaml:"shipments"`
}

type ElementDoc struct {
	ID       model.ElementID  `json:"id" yaml:"id"`
	Resource model.ResourceID `json:"resource" yaml:"resource"`
}

// VehicleTypes is the registry vehicles are resolved against.
type VehicleTypes map[model.VehicleTypeID]*resource.VehicleType

type vehicleTypesDoc struct {
	VehicleTypes []resource.VehicleType `json:"vehicle_types" yaml:"vehicle_types"`
}

// NetworkDoc is the persisted static network.
type NetworkDoc struct {
	Speed float64        `json:"speed" yaml:"speed"`
	Links []network.Link `json:"links" yaml:"links"`
}

// FormatOf maps a file extension to a document format.
func FormatOf(path string) (string, error) {
	i := strings.LastIndex(path, ".")
	if i < 0 {
		return "", fmt.Errorf("%w: %s", ErrFormat, path)
	}
	switch ext := strings.ToLower(path[i+1:]); ext {
	case "json":
		return "json", nil
	case "yaml", "yml":
		return "yaml", nil
	default:
		return "", fmt.Errorf("%w: .%s", ErrFormat, ext)
	}
}

func decode(r io.Reader, format string, v any) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		dec := yaml.NewDecoder(r)
		dec.KnownFields(true)
		return dec.Decode(v)
	case "json":
		dec := json.NewDecoder(r)
		dec.DisallowUnknownFields()
		return dec.Decode(v)
	default:
		return fmt.Errorf("%w: %s", ErrFormat, format)
	}
}

func encode(w io.Writer, format string, v any) error {
	switch strings.ToLower(format) {
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		return fmt.Errorf("%w: %s", ErrFormat, format)
	}
}

// DecodeVehicleTypes reads a vehicle type registry.
func DecodeVehicleTypes(r io.Reader, format string) (VehicleTypes, error) {
	var doc vehicleTypesDoc
	if err := decode(r, format, &doc); err != nil {
		return nil, fmt.Errorf("vehicle types: %w", err)
	}
	out := make(VehicleTypes, len(doc.VehicleTypes))
	for i := range doc.VehicleTypes {
		vt := doc.VehicleTypes[i]
		if vt.ID == "" {
			return nil, fmt.Errorf("vehicle type %d has no id", i)
		}
		if _, dup := out[vt.ID]; dup {
			return nil, fmt.Errorf("duplicate vehicle type %s", vt.ID)
		}
		if vt.Capacity <= 0 {
			return nil, fmt.Errorf("vehicle type %s: capacity must be positive", vt.ID)
		}
		out[vt.ID] = &vt
	}
	return out, nil
}

// EncodeVehicleTypes writes the registry ordered by id.
func EncodeVehicleTypes(w io.Writer, format string, types VehicleTypes) error {
	doc := vehicleTypesDoc{VehicleTypes: make([]resource.VehicleType, 0, len(types))}
	for _, vt := range types {
		doc.VehicleTypes = append(doc.VehicleTypes, *vt)
	}
	sortBy(doc.VehicleTypes, func(vt resource.VehicleType) string { return string(vt.ID) })
	return encode(w, format, doc)
}

// DecodeNetwork reads a static network.
func DecodeNetwork(r io.Reader, format string) (*network.Static, error) {
	var doc NetworkDoc
	if err := decode(r, format, &doc); err != nil {
		return nil, fmt.Errorf("network: %w", err)
	}
	return network.NewStatic(doc.Speed, doc.Links...)
}
