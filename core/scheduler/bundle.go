package scheduler

import (
	"math"

	"github.com/kilianp07/lsp/core/resource"
)

// bundle splits the arrival-sorted buffer into consecutive groups whose
// summed demand fits capacity. A shipment that would overflow the current
// group closes it; a shipment larger than capacity travels alone.
func bundle(buf []Queued, capacity int) [][]Queued {
	var (
		out  [][]Queued
		cur  []Queued
		load int
	)
	for _, q := range buf {
		d := q.Shipment.Demand()
		if len(cur) > 0 && load+d > capacity {
			out = append(out, cur)
			cur, load = nil, 0
		}
		cur = append(cur, q)
		load += d
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}

type loadSlot struct {
	Queued
	start float64
	end   float64
}

// sequentialLoading loads a bundle one shipment after the other: each
// shipment starts when it has arrived and the previous one is loaded.
func sequentialLoading(b []Queued, h resource.Handling) []loadSlot {
	slots := make([]loadSlot, 0, len(b))
	prevEnd := math.Inf(-1)
	for _, q := range b {
		start := math.Max(q.Time, prevEnd)
		end := start + h.Duration(q.Shipment.Demand())
		slots = append(slots, loadSlot{Queued: q, start: start, end: end})
		prevEnd = end
	}
	return slots
}

func lastLoadEnd(slots []loadSlot) float64 {
	if len(slots) == 0 {
		return 0
	}
	return slots[len(slots)-1].end
}

func bundleLoad(b []Queued) int {
	n := 0
	for _, q := range b {
		n += q.Shipment.Demand()
	}
	return n
}
