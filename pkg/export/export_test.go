package export

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/kilianp07/lsp/core/model"
)

func shipmentWithPlan(t *testing.T, id string, els ...model.PlanElement) *model.Shipment {
	t.Helper()
	s, err := model.NewShipmentBuilder(model.ShipmentID(id)).From("A").To("B").Demand(1).Build()
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	for _, el := range els {
		if err := s.Plan().Add(el); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	return s
}

func fixture(t *testing.T) []Row {
	s2 := shipmentWithPlan(t, "s2",
		model.PlanElement{Kind: model.KindHandle, Start: 100, End: 114, Element: "e2", Resource: "hub"},
	)
	s1 := shipmentWithPlan(t, "s1",
		model.PlanElement{Kind: model.KindTransport, Start: 4, End: 14, Element: "e1", Resource: "mr", From: "A", To: "B", Tour: "t1"},
		model.PlanElement{Kind: model.KindLoad, Start: 0, End: 4, Element: "e1", Resource: "mr", From: "A", To: "A", Tour: "t1"},
	)
	return Rows([]*model.Shipment{s2, s1})
}

func TestRowsOrder(t *testing.T) {
	rows := fixture(t)
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Shipment != "s1" || rows[0].Kind != model.KindLoad {
		t.Errorf("unexpected first row %+v", rows[0])
	}
	if rows[2].Shipment != "s2" || rows[2].Kind != model.KindHandle {
		t.Errorf("unexpected last row %+v", rows[2])
	}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, fixture(t)); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected header and 3 rows, got %d lines", len(lines))
	}
	if lines[0] != "shipment_id,resource_id,element_id,kind,tour_id,from,to,start_s,end_s" {
		t.Errorf("header: %s", lines[0])
	}
	if lines[1] != "s1,mr,e1,LOAD,t1,A,A,0,4" {
		t.Errorf("row: %s", lines[1])
	}
	if lines[3] != "s2,hub,e2,HANDLE,,,,100,114" {
		t.Errorf("row: %s", lines[3])
	}
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, fixture(t)); err != nil {
		t.Fatalf("write: %v", err)
	}
	var out []map[string]any
	if err := json.Unmarshal(buf.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 3 || out[1]["kind"] != "TRANSPORT" {
		t.Errorf("unexpected json: %s", buf.String())
	}

	buf.Reset()
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatalf("write empty: %v", err)
	}
	if strings.TrimSpace(buf.String()) != "[]" {
		t.Errorf("expected empty array, got %s", buf.String())
	}
}
