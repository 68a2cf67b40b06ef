// Package network provides link-to-link distances and travel times used by
// the schedulers. The engine never owns the topology; Network is the port
// through which an external data source is plugged in.
package network

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/kilianp07/lsp/core/model"
)

// ErrUnknownLink is returned for links the network does not contain.
var ErrUnknownLink = errors.New("unknown link")

// Network answers distance and free-flow travel time queries.
type Network interface {
	Distance(from, to model.LinkID) (float64, error)
	TravelTime(from, to model.LinkID) (float64, error)
}

// Link is a network link reduced to a representative coordinate.
type Link struct {
	ID model.LinkID `json:"id" yaml:"id"`
	X  float64      `json:"x" yaml:"x"`
	Y  float64      `json:"y" yaml:"y"`
}

// Static is an in-memory network with straight-line distances between link
// coordinates and a single free-flow speed.
type Static struct {
	mu    sync.RWMutex
	links map[model.LinkID]r2.Vec
	speed float64
}

// NewStatic creates a network travelling at speed metres per second.
func NewStatic(speed float64, links ...Link) (*Static, error) {
	if speed <= 0 {
		return nil, fmt.Errorf("speed must be positive, got %v", speed)
	}
	s := &Static{links: make(map[model.LinkID]r2.Vec, len(links)), speed: speed}
	for _, l := range links {
		if err := s.AddLink(l); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// AddLink registers a link. Re-adding an id overwrites its coordinate.
func (s *Static) AddLink(l Link) error {
	if l.ID == "" {
		return errors.New("link id is required")
	}
	s.mu.Lock()
	s.links[l.ID] = r2.Vec{X: l.X, Y: l.Y}
	s.mu.Unlock()
	return nil
}

// Links returns the registered links ordered by id.
func (s *Static) Links() []Link {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Link, 0, len(s.links))
	for id, v := range s.links {
		out = append(out, Link{ID: id, X: v.X, Y: v.Y})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Speed returns the free-flow speed in metres per second.
func (s *Static) Speed() float64 { return s.speed }

// Distance returns the Euclidean distance in metres.
func (s *Static) Distance(from, to model.LinkID) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.links[from]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownLink, from)
	}
	b, ok := s.links[to]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownLink, to)
	}
	return r2.Norm(r2.Sub(b, a)), nil
}

// TravelTime returns Distance / speed in seconds.
func (s *Static) TravelTime(from, to model.LinkID) (float64, error) {
	d, err := s.Distance(from, to)
	if err != nil {
		return 0, err
	}
	return d / s.speed, nil
}
