package resource

import (
	"errors"
	"fmt"
	"strings"

	"github.com/kilianp07/lsp/core/model"
)

// VehicleType carries capacity and monetary cost parameters.
type VehicleType struct {
	ID            model.VehicleTypeID `json:"id" yaml:"id"`
	Capacity      int                 `json:"capacity" yaml:"capacity"`
	FixedCost     float64             `json:"fixed_cost" yaml:"fixed_cost"`
	CostPerMeter  float64             `json:"cost_per_meter" yaml:"cost_per_meter"`
	CostPerSecond float64             `json:"cost_per_second" yaml:"cost_per_second"`
}

// Vehicle is one unit of a carrier fleet.
type Vehicle struct {
	ID            model.VehicleID
	Type          *VehicleType
	Start         model.LinkID
	EarliestStart float64
	LatestEnd     float64
}

// Capacity returns the vehicle type capacity, zero when untyped.
func (v Vehicle) Capacity() int {
	if v.Type == nil {
		return 0
	}
	return v.Type.Capacity
}

// Carrier owns the vehicles used by a carrier-backed resource.
type Carrier struct {
	ID       model.CarrierID
	Vehicles []Vehicle
}

// Validate checks that the fleet can carry at least one unit of load.
func (c *Carrier) Validate() error {
	if c.ID == "" {
		return errors.New("carrier id is required")
	}
	if len(c.Vehicles) == 0 {
		return fmt.Errorf("carrier %s has no vehicles", c.ID)
	}
	for _, v := range c.Vehicles {
		if v.Type == nil {
			return fmt.Errorf("carrier %s: vehicle %s has no type", c.ID, v.ID)
		}
		if v.Type.Capacity <= 0 {
			return fmt.Errorf("carrier %s: vehicle %s has non-positive capacity", c.ID, v.ID)
		}
		if v.LatestEnd != 0 && v.LatestEnd < v.EarliestStart {
			return fmt.Errorf("carrier %s: vehicle %s ends before it starts", c.ID, v.ID)
		}
	}
	return nil
}

// PrimaryVehicle returns the vehicle used for bundled tours.
func (c *Carrier) PrimaryVehicle() (Vehicle, bool) {
	if c == nil || len(c.Vehicles) == 0 {
		return Vehicle{}, false
	}
	return c.Vehicles[0], true
}

// VehicleReturn decides where a line-haul vehicle ends its tour.
type VehicleReturn int

const (
	// ReturnToFromLink sends the vehicle back to its origin.
	ReturnToFromLink VehicleReturn = iota
	// EndAtToLink leaves the vehicle at the destination.
	EndAtToLink
)

func (r VehicleReturn) String() string {
	if r == EndAtToLink {
		return "end_at_to_link"
	}
	return "return_to_from_link"
}

// MarshalText implements encoding.TextMarshaler.
func (r VehicleReturn) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *VehicleReturn) UnmarshalText(b []byte) error {
	switch strings.ToLower(string(b)) {
	case "", "return_to_from_link", "returntofromlink":
		*r = ReturnToFromLink
	case "end_at_to_link", "endattolink":
		*r = EndAtToLink
	default:
		return fmt.Errorf("unknown vehicle return policy %q", string(b))
	}
	return nil
}
