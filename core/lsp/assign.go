package lsp

import (
	"errors"
	"sync"

	"github.com/kilianp07/lsp/core/chain"
	"github.com/kilianp07/lsp/core/model"
)

// ErrNoChain is returned when a plan has no chain to take a shipment.
var ErrNoChain = errors.New("plan has no chain")

// Assigner picks the chain of a plan that will carry a new shipment.
type Assigner interface {
	Assign(s *model.Shipment, p *chain.Plan) (*chain.Chain, error)
}

// AssignerFunc adapts a function to Assigner.
type AssignerFunc func(s *model.Shipment, p *chain.Plan) (*chain.Chain, error)

func (f AssignerFunc) Assign(s *model.Shipment, p *chain.Plan) (*chain.Chain, error) {
	return f(s, p)
}

// FirstChainAssigner puts every shipment on the first chain.
type FirstChainAssigner struct{}

func (FirstChainAssigner) Assign(_ *model.Shipment, p *chain.Plan) (*chain.Chain, error) {
	cs := p.Chains()
	if len(cs) == 0 {
		return nil, ErrNoChain
	}
	return cs[0], nil
}

// RoundRobinAssigner cycles through the chains of the plan.
type RoundRobinAssigner struct {
	mu   sync.Mutex
	next int
}

func (r *RoundRobinAssigner) Assign(_ *model.Shipment, p *chain.Plan) (*chain.Chain, error) {
	cs := p.Chains()
	if len(cs) == 0 {
		return nil, ErrNoChain
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	c := cs[r.next%len(cs)]
	r.next++
	return c, nil
}
