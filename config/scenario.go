package config

import (
	"errors"
	"fmt"

	"github.com/kilianp07/lsp/core/planio"
)

// ScenarioConfig points at the documents describing one LSP.
type ScenarioConfig struct {
	// LSP is the plan document: resources, shipments and candidate plans.
	LSP string `json:"lsp"`
	// VehicleTypes is the vehicle type catalogue referenced by carriers.
	VehicleTypes string `json:"vehicle_types"`
	// Network is the link topology used for distances and travel times.
	Network string `json:"network"`
	// Plan selects a plan other than the one marked selected.
	Plan string `json:"plan"`
}

func (c *ScenarioConfig) SetDefaults() {}

// Validate requires the three documents and a supported format for each.
func (c ScenarioConfig) Validate() error {
	if c.LSP == "" {
		return errors.New("lsp document is required")
	}
	if c.VehicleTypes == "" {
		return errors.New("vehicle_types document is required")
	}
	if c.Network == "" {
		return errors.New("network document is required")
	}
	for _, p := range []string{c.LSP, c.VehicleTypes, c.Network} {
		if _, err := planio.FormatOf(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// ExportConfig controls where the scheduled plan is written.
type ExportConfig struct {
	// Path of the output file. Empty writes to stdout.
	Path string `json:"path"`
	// Format is json or csv.
	Format string `json:"format"`
}

func (c *ExportConfig) SetDefaults() {
	if c.Format == "" {
		c.Format = "json"
	}
}

func (c ExportConfig) Validate() error {
	switch c.Format {
	case "json", "csv":
		return nil
	default:
		return fmt.Errorf("unknown export format %q", c.Format)
	}
}
