package vrp

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/network"
	"github.com/kilianp07/lsp/core/resource"
)

func lineNetwork(t *testing.T) *network.Static {
	t.Helper()
	n, err := network.NewStatic(1,
		network.Link{ID: "depot"},
		network.Link{ID: "p1", X: 10},
		network.Link{ID: "p2", X: 20},
		network.Link{ID: "p3", X: 30},
	)
	require.NoError(t, err)
	return n
}

func shipmentAt(t *testing.T, id string, from model.LinkID, demand int, open float64) *model.Shipment {
	t.Helper()
	s, err := model.NewShipmentBuilder(model.ShipmentID(id)).
		From(from).To("depot").Demand(demand).
		PickupWindow(model.TimeWindow{Start: open, End: open + 1000}).
		DeliveryWindow(model.TimeWindow{Start: 0, End: 5000}).
		PickupServiceTime(5).
		Build()
	require.NoError(t, err)
	return s
}

func counter() func() model.TourID {
	n := 0
	return func() model.TourID {
		n++
		return model.TourID(fmt.Sprintf("t%d", n))
	}
}

func TestNearestNeighborRoutesByProximity(t *testing.T) {
	vt := &resource.VehicleType{ID: "van", Capacity: 10, FixedCost: 100, CostPerMeter: 1, CostPerSecond: 0.5}
	v := FromCarrier(resource.Vehicle{ID: "v1", Type: vt, Start: "depot"}, "", "", 0)
	jobs := []Job{
		PickupJob(shipmentAt(t, "s3", "p3", 2, 0)),
		PickupJob(shipmentAt(t, "s1", "p1", 2, 0)),
		PickupJob(shipmentAt(t, "s2", "p2", 2, 50)),
	}
	opt := &NearestNeighbor{Network: lineNetwork(t), NewID: counter()}
	sol, err := opt.Solve(context.Background(), Problem{Resource: "c", Vehicles: []Vehicle{v}, Jobs: jobs})
	require.NoError(t, err)
	require.Len(t, sol.Tours, 1)
	assert.Empty(t, sol.Unassigned)

	tour := sol.Tours[0]
	assert.Equal(t, model.TourID("t1"), tour.ID)
	require.Len(t, tour.Activities, 3)
	assert.Equal(t, model.LinkID("p1"), tour.Activities[0].Link)
	assert.Equal(t, 10.0, tour.Activities[0].Start)
	assert.Equal(t, 15.0, tour.Activities[0].End)
	// p2 opens at 50: arrive 25, wait
	assert.Equal(t, 25.0, tour.Activities[1].Arrival)
	assert.Equal(t, 50.0, tour.Activities[1].Start)
	assert.Equal(t, 65.0, tour.Activities[2].Start)
	assert.Equal(t, 100.0, tour.Arrival)
	assert.Equal(t, 60.0, tour.Distance)
	assert.Equal(t, 6, tour.Load())
	assert.InDelta(t, 100+60+50, tour.Cost, 1e-9)
}

func TestNearestNeighborSplitsOnCapacity(t *testing.T) {
	vt := &resource.VehicleType{ID: "van", Capacity: 5}
	v := FromCarrier(resource.Vehicle{ID: "v1", Type: vt, Start: "depot"}, "", "", 0)
	jobs := []Job{
		PickupJob(shipmentAt(t, "s1", "p1", 4, 0)),
		PickupJob(shipmentAt(t, "s2", "p2", 4, 0)),
		PickupJob(shipmentAt(t, "big", "p3", 6, 0)),
	}
	opt := &NearestNeighbor{Network: lineNetwork(t), NewID: counter()}
	sol, err := opt.Solve(context.Background(), Problem{Vehicles: []Vehicle{v}, Jobs: jobs})
	require.NoError(t, err)
	require.Len(t, sol.Tours, 2)
	for _, tour := range sol.Tours {
		assert.LessOrEqual(t, tour.Load(), 5)
	}
	assert.Equal(t, sol.Tours[0].Arrival, sol.Tours[1].Departure)
	require.Len(t, sol.Unassigned, 1)
	assert.Equal(t, model.ShipmentID("big"), sol.Unassigned[0].Shipment.ID())
}

func TestNearestNeighborHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	vt := &resource.VehicleType{ID: "van", Capacity: 5}
	v := FromCarrier(resource.Vehicle{ID: "v1", Type: vt, Start: "depot"}, "", "", 0)
	opt := NewNearestNeighbor(lineNetwork(t))
	_, err := opt.Solve(ctx, Problem{Vehicles: []Vehicle{v}, Jobs: []Job{PickupJob(shipmentAt(t, "s1", "p1", 1, 0))}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFromCarrierKeepsLaterStart(t *testing.T) {
	v := FromCarrier(resource.Vehicle{ID: "v", Start: "a", EarliestStart: 30}, "", "b", 10)
	assert.Equal(t, 30.0, v.EarliestStart)
	assert.Equal(t, model.LinkID("a"), v.Start)
	assert.Equal(t, model.LinkID("b"), v.End)
}

func TestTourCost(t *testing.T) {
	vt := &resource.VehicleType{FixedCost: 10, CostPerMeter: 2, CostPerSecond: 3}
	assert.Equal(t, 10.0+2*5+3*7, TourCost(vt, 5, 7))
	assert.Equal(t, 0.0, TourCost(nil, 5, 7))
	assert.NotEqual(t, NewTourID(), NewTourID())
}

func TestNewOptimizer(t *testing.T) {
	o, err := New("nearest_neighbor", lineNetwork(t))
	require.NoError(t, err)
	assert.IsType(t, &NearestNeighbor{}, o)
	_, err = New("simulated_annealing", nil)
	assert.Error(t, err)
}
