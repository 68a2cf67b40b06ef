package vrp

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/network"
)

// NearestNeighbor builds tours greedily: from the current link it always
// serves the remaining job with the shortest travel time that still fits the
// vehicle, waiting for the job's window to open. A vehicle runs tours back to
// back until nothing fits any more. It does not attempt global optimization.
type NearestNeighbor struct {
	Network network.Network
	// NewID generates tour ids; NewTourID when nil.
	NewID func() model.TourID
}

// NewNearestNeighbor returns an optimizer routing over net.
func NewNearestNeighbor(net network.Network) *NearestNeighbor {
	return &NearestNeighbor{Network: net}
}

// Solve implements Optimizer.
func (nn *NearestNeighbor) Solve(ctx context.Context, p Problem) (Solution, error) {
	if nn.Network == nil {
		return Solution{}, errors.New("nearest neighbor: network is required")
	}
	if err := p.Validate(); err != nil {
		return Solution{}, fmt.Errorf("nearest neighbor: %w", err)
	}
	newID := nn.NewID
	if newID == nil {
		newID = NewTourID
	}

	remaining := append([]Job(nil), p.Jobs...)
	sort.SliceStable(remaining, func(i, j int) bool {
		return remaining[i].Shipment.ID() < remaining[j].Shipment.ID()
	})

	var sol Solution
	for _, v := range p.Vehicles {
		at, ready := v.Start, v.EarliestStart
		for len(remaining) > 0 {
			if err := ctx.Err(); err != nil {
				return Solution{}, err
			}
			tour, rest, err := nn.buildTour(v, at, ready, remaining)
			if err != nil {
				return Solution{}, err
			}
			if len(tour.Activities) == 0 {
				break
			}
			tour.ID = newID()
			sol.Tours = append(sol.Tours, tour)
			remaining = rest
			at, ready = tour.End, tour.Arrival
		}
	}
	sol.Unassigned = remaining
	return sol, nil
}

func (nn *NearestNeighbor) buildTour(v Vehicle, start model.LinkID, departure float64, jobs []Job) (ScheduledTour, []Job, error) {
	tour := ScheduledTour{Vehicle: v, Start: start, End: v.End, Departure: departure}
	cur, now, load := start, departure, 0
	rest := append([]Job(nil), jobs...)
	for {
		best, bestTT := -1, math.Inf(1)
		var bestArrival, bestDist float64
		for i, j := range rest {
			if load+j.Demand > v.Capacity() {
				continue
			}
			tt, err := nn.Network.TravelTime(cur, j.Link)
			if err != nil {
				return tour, nil, err
			}
			if v.LatestEnd > 0 {
				back, err := nn.Network.TravelTime(j.Link, v.End)
				if err != nil {
					return tour, nil, err
				}
				if math.Max(now+tt, j.Window.Start)+j.ServiceDuration+back > v.LatestEnd {
					continue
				}
			}
			// strict comparison keeps the lowest shipment id on ties
			if tt < bestTT {
				d, err := nn.Network.Distance(cur, j.Link)
				if err != nil {
					return tour, nil, err
				}
				best, bestTT, bestArrival, bestDist = i, tt, now+tt, d
			}
		}
		if best < 0 {
			break
		}
		j := rest[best]
		startService := math.Max(bestArrival, j.Window.Start)
		act := Activity{Job: j, Link: j.Link, Arrival: bestArrival, Start: startService, End: startService + j.ServiceDuration}
		tour.Activities = append(tour.Activities, act)
		tour.Distance += bestDist
		cur, now, load = j.Link, act.End, load+j.Demand
		rest = append(rest[:best], rest[best+1:]...)
	}
	if len(tour.Activities) == 0 {
		return tour, jobs, nil
	}
	tt, err := nn.Network.TravelTime(cur, v.End)
	if err != nil {
		return tour, nil, err
	}
	d, err := nn.Network.Distance(cur, v.End)
	if err != nil {
		return tour, nil, err
	}
	tour.Distance += d
	tour.Arrival = now + tt
	tour.Cost = TourCost(v.Type, tour.Distance, tour.Arrival-tour.Departure)
	return tour, rest, nil
}

// New returns the optimizer registered under name, routing over net.
func New(name string, net network.Network) (Optimizer, error) {
	switch name {
	case "", "nearest_neighbor":
		return NewNearestNeighbor(net), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", name)
	}
}
