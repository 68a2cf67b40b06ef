package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"

	"github.com/kilianp07/lsp/core/model"
)

// Row is one plan element of one shipment.
type Row struct {
	Shipment model.ShipmentID  `json:"shipment_id"`
	Resource model.ResourceID  `json:"resource_id"`
	Element  model.ElementID   `json:"element_id"`
	Kind     model.ElementKind `json:"kind"`
	Tour     model.TourID      `json:"tour_id,omitempty"`
	From     model.LinkID      `json:"from,omitempty"`
	To       model.LinkID      `json:"to,omitempty"`
	Start    float64           `json:"start"`
	End      float64           `json:"end"`
}

// Rows flattens the plan ledgers of the shipments, ordered by shipment id
// then start time.
func Rows(shipments []*model.Shipment) []Row {
	ss := append([]*model.Shipment(nil), shipments...)
	sort.SliceStable(ss, func(i, j int) bool { return ss[i].ID() < ss[j].ID() })
	var rows []Row
	for _, s := range ss {
		for _, el := range s.Plan().Elements() {
			rows = append(rows, Row{
				Shipment: s.ID(),
				Resource: el.Resource,
				Element:  el.Element,
				Kind:     el.Kind,
				Tour:     el.Tour,
				From:     el.From,
				To:       el.To,
				Start:    el.Start,
				End:      el.End,
			})
		}
	}
	return rows
}

// WriteJSON writes the rows to w as a JSON array.
func WriteJSON(w io.Writer, rows []Row) error {
	if rows == nil {
		rows = []Row{}
	}
	enc := json.NewEncoder(w)
	return enc.Encode(rows)
}

// WriteCSV writes the rows to w with a header line.
func WriteCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"shipment_id", "resource_id", "element_id", "kind", "tour_id", "from", "to", "start_s", "end_s"}); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			string(r.Shipment),
			string(r.Resource),
			string(r.Element),
			r.Kind.String(),
			string(r.Tour),
			string(r.From),
			string(r.To),
			strconv.FormatFloat(r.Start, 'f', -1, 64),
			strconv.FormatFloat(r.End, 'f', -1, 64),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
