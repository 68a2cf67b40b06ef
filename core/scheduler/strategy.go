package scheduler

import (
	"errors"

	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/network"
	"github.com/kilianp07/lsp/core/resource"
	"github.com/kilianp07/lsp/core/vrp"
)

// Deps are the collaborators of the default strategies.
type Deps struct {
	Optimizer vrp.Optimizer
	Network   network.Network
	NewTourID func() model.TourID
}

type strategyFactory struct{ deps Deps }

func (f strategyFactory) VisitHub(*resource.TransshipmentHub) (Strategy, error) {
	return NewHubStrategy(), nil
}

func (f strategyFactory) VisitCollection(*resource.CollectionCarrier) (Strategy, error) {
	if f.deps.Optimizer == nil {
		return nil, errors.New("collection carrier requires an optimizer")
	}
	return NewCollectionStrategy(f.deps.Optimizer), nil
}

func (f strategyFactory) VisitDistribution(*resource.DistributionCarrier) (Strategy, error) {
	if f.deps.Optimizer == nil {
		return nil, errors.New("distribution carrier requires an optimizer")
	}
	return NewDistributionStrategy(f.deps.Optimizer), nil
}

func (f strategyFactory) VisitMainRun(*resource.MainRunCarrier) (Strategy, error) {
	if f.deps.Network == nil {
		return nil, errors.New("main run carrier requires a network")
	}
	return NewMainRunStrategy(f.deps.Network, f.deps.NewTourID), nil
}

// StrategyFor returns the default strategy for the kind of r.
func StrategyFor(r resource.Resource, deps Deps) (Strategy, error) {
	return resource.Visit[Strategy](r, strategyFactory{deps: deps})
}
