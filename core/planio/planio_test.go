package planio

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/kilianp07/lsp/core/lsp"
	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/core/resource"
)

const scenario = `id: lsp1
resources:
  - id: col
    kind: collection
    depot: A
    handling: {fixed_time: 1, time_per_unit: 0}
    carrier:
      id: c1
      vehicles:
        - {id: v1, type: van, start: A}
  - id: hubA
    kind: hub
    location: A
    handling: {fixed_time: 10, time_per_unit: 1}
  - id: mr
    kind: mainrun
    from: A
    to: B
    return: end_at_to_link
    handling: {fixed_time: 0, time_per_unit: 1}
    carrier:
      id: c2
      vehicles:
        - {id: t1, type: truck, start: A, earliest_start: 5}
  - id: dist
    kind: distribution
    depot: B
    handling: {fixed_time: 0, time_per_unit: 1}
    carrier:
      id: c3
      vehicles:
        - {id: v2, type: van, start: B, latest_end: 86400}
shipments:
  - id: s1
    from: o1
    to: d1
    size: 4
    pickup_window: {start: 0, end: 3600}
    delivery_window: {start: 0, end: 86400}
    pickup_service_time: 60
    delivery_service_time: 120
  - id: s2
    from: o2
    to: d2
    size: 3
    pickup_window: {start: 600, end: 3600}
    delivery_window: {start: 0, end: 86400}
    pickup_service_time: 60
    delivery_service_time: 120
plans:
  - id: direct
    score: -10
    chains:
      - id: only
        elements:
          - {id: e-col, resource: col}
        shipments: [s1, s2]
  - id: hubbed
    score: -5.5
    selected: true
    chains:
      - id: north
        elements:
          - {id: n1, resource: col}
          - {id: n2, resource: hubA}
          - {id: n3, resource: mr}
          - {id: n4, resource: dist}
        shipments: [s1]
      - id: south
        elements:
          - {id: s1, resource: col}
          - {id: s2, resource: hubA}
          - {id: s3, resource: mr}
          - {id: s4, resource: dist}
        shipments: [s2]
`

const vehicleTypes = `vehicle_types:
  - {id: van, capacity: 10, fixed_cost: 50, cost_per_meter: 0.001, cost_per_second: 0.01}
  - {id: truck, capacity: 30, fixed_cost: 200, cost_per_meter: 0.002, cost_per_second: 0.02}
`

func types(t *testing.T) VehicleTypes {
	t.Helper()
	vt, err := DecodeVehicleTypes(strings.NewReader(vehicleTypes), "yaml")
	require.NoError(t, err)
	return vt
}

func TestDecodeScenario(t *testing.T) {
	l, err := Decode(strings.NewReader(scenario), "yaml", types(t))
	require.NoError(t, err)
	assert.Equal(t, "lsp1", l.ID)
	assert.Len(t, l.Plans(), 2)
	sel := l.Selected()
	assert.Equal(t, "hubbed", sel.ID)
	assert.Equal(t, -5.5, sel.Score)
	assert.Len(t, l.Shipments(), 2)

	r, ok := sel.Resource("mr")
	require.True(t, ok)
	mr := r.(*resource.MainRunCarrier)
	assert.Equal(t, resource.EndAtToLink, mr.Return)
	assert.Equal(t, 30, mr.Carrier.Vehicles[0].Capacity())
	assert.Equal(t, 5.0, mr.Carrier.Vehicles[0].EarliestStart)

	north, ok := sel.Chain("north")
	require.True(t, ok)
	assert.Equal(t, []model.ShipmentID{"s1"}, north.ShipmentIDs())
	order, err := sel.ScheduleOrder()
	require.NoError(t, err)
	require.Len(t, order, 4)
	assert.Equal(t, model.ResourceID("col"), order[0].ID())

	// resources are shared by reference between plans
	direct := l.Plans()[0]
	rc, _ := direct.Resource("col")
	sc, _ := sel.Resource("col")
	assert.Same(t, rc, sc)
}

func TestRoundTrip(t *testing.T) {
	var want Document
	require.NoError(t, yaml.Unmarshal([]byte(scenario), &want))

	l, err := Decode(strings.NewReader(scenario), "yaml", types(t))
	require.NoError(t, err)
	got, err := ToDocument(l)
	require.NoError(t, err)
	assert.Equal(t, want, got)

	for _, format := range []string{"yaml", "json"} {
		var buf bytes.Buffer
		require.NoError(t, Encode(&buf, format, l))
		again, err := Decode(&buf, format, types(t))
		require.NoError(t, err, format)
		doc, err := ToDocument(again)
		require.NoError(t, err)
		assert.Equal(t, want, doc, format)
	}
}

func TestVehicleTypesRoundTrip(t *testing.T) {
	vt := types(t)
	var buf bytes.Buffer
	require.NoError(t, EncodeVehicleTypes(&buf, "json", vt))
	again, err := DecodeVehicleTypes(&buf, "json")
	require.NoError(t, err)
	assert.Equal(t, vt, again)

	_, err = DecodeVehicleTypes(strings.NewReader("vehicle_types: [{id: x, capacity: 0}]"), "yaml")
	assert.Error(t, err)
	_, err = DecodeVehicleTypes(strings.NewReader("vehicle_types: [{id: x, capacity: 1}, {id: x, capacity: 2}]"), "yaml")
	assert.Error(t, err)
}

func TestDecodeRejectsBrokenReferences(t *testing.T) {
	cases := map[string]string{
		"unknown resource": strings.Replace(scenario, "resource: hubA}\n          - {id: n3", "resource: hubZ}\n          - {id: n3", 1),
		"unknown shipment": strings.Replace(scenario, "shipments: [s1]", "shipments: [s9]", 1),
		"unknown kind":     strings.Replace(scenario, "kind: hub", "kind: warehouse", 1),
		"unknown return":   strings.Replace(scenario, "end_at_to_link", "teleport", 1),
		"two selected":     strings.Replace(scenario, "score: -10\n", "score: -10\n    selected: true\n", 1),
		"unknown field":    strings.Replace(scenario, "score: -10\n", "score: -10\n    colour: red\n", 1),
		"double chain":     strings.Replace(scenario, "shipments: [s2]", "shipments: [s1, s2]", 1),
	}
	for name, doc := range cases {
		if doc == scenario {
			t.Fatalf("%s: fixture not modified", name)
		}
		if _, err := Decode(strings.NewReader(doc), "yaml", types(t)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	_, err := Decode(strings.NewReader(scenario), "yaml", VehicleTypes{})
	assert.Error(t, err)
	_, err = Decode(strings.NewReader(scenario), "toml", types(t))
	assert.ErrorIs(t, err, ErrFormat)
}

func TestUnassignedShipmentsUseAssigner(t *testing.T) {
	doc := strings.Replace(scenario, "shipments: [s2]", "shipments: []", 1)
	doc = strings.Replace(doc, "shipments: [s1, s2]", "shipments: [s1]", 1)
	l, err := Decode(strings.NewReader(doc), "yaml", types(t), lsp.WithAssigner(lsp.FirstChainAssigner{}))
	require.NoError(t, err)
	north, _ := l.Selected().Chain("north")
	assert.Equal(t, []model.ShipmentID{"s1", "s2"}, north.ShipmentIDs())
}

func TestDecodeNetwork(t *testing.T) {
	n, err := DecodeNetwork(strings.NewReader(`{"speed": 10, "links": [{"id": "A"}, {"id": "B", "x": 30, "y": 40}]}`), "json")
	require.NoError(t, err)
	d, err := n.Distance("A", "B")
	require.NoError(t, err)
	assert.Equal(t, 50.0, d)
	tt, err := n.TravelTime("A", "B")
	require.NoError(t, err)
	assert.Equal(t, 5.0, tt)

	_, err = DecodeNetwork(strings.NewReader("speed: 0\nlinks: []\n"), "yaml")
	assert.Error(t, err)
}

func TestFormatOf(t *testing.T) {
	f, err := FormatOf("scenario/lsp.YML")
	require.NoError(t, err)
	assert.Equal(t, "yaml", f)
	f, err = FormatOf("lsp.json")
	require.NoError(t, err)
	assert.Equal(t, "json", f)
	_, err = FormatOf("lsp.xml")
	assert.ErrorIs(t, err, ErrFormat)
}
