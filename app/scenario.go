package app

import (
	"fmt"
	"os"

	"github.com/kilianp07/lsp/config"
	"github.com/kilianp07/lsp/core/lsp"
	"github.com/kilianp07/lsp/core/network"
	"github.com/kilianp07/lsp/core/planio"
)

// LoadScenario reads the vehicle types, the network and the LSP document
// named by cfg.
func LoadScenario(cfg config.ScenarioConfig, opts ...lsp.Option) (*lsp.LSP, *network.Static, error) {
	var types planio.VehicleTypes
	if err := readDoc(cfg.VehicleTypes, func(f *os.File, format string) (err error) {
		types, err = planio.DecodeVehicleTypes(f, format)
		return err
	}); err != nil {
		return nil, nil, err
	}
	var net *network.Static
	if err := readDoc(cfg.Network, func(f *os.File, format string) (err error) {
		net, err = planio.DecodeNetwork(f, format)
		return err
	}); err != nil {
		return nil, nil, err
	}
	var l *lsp.LSP
	if err := readDoc(cfg.LSP, func(f *os.File, format string) (err error) {
		l, err = planio.Decode(f, format, types, opts...)
		return err
	}); err != nil {
		return nil, nil, err
	}
	if cfg.Plan != "" {
		if err := l.SelectPlan(cfg.Plan); err != nil {
			return nil, nil, err
		}
	}
	return l, net, nil
}

func readDoc(path string, fn func(f *os.File, format string) error) error {
	format, err := planio.FormatOf(path)
	if err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if err := fn(f, format); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	return nil
}
