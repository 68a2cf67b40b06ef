package model

import "sort"

// Deviation pairs a planned element with its observed counterpart.
type Deviation struct {
	Key        ElementKey  `json:"key"`
	Planned    PlanElement `json:"planned"`
	Observed   PlanElement `json:"observed"`
	StartDelta float64     `json:"start_delta"`
	EndDelta   float64     `json:"end_delta"`
}

// Reconciliation is the outcome of matching a plan against a log.
type Reconciliation struct {
	Matched    []Deviation   `json:"matched"`
	Missing    []PlanElement `json:"missing"`
	Unexpected []PlanElement `json:"unexpected"`
}

// Complete reports whether every planned element was observed and nothing
// else was.
func (r Reconciliation) Complete() bool {
	return len(r.Missing) == 0 && len(r.Unexpected) == 0
}

// MaxAbsDelta returns the largest start or end deviation among matched pairs.
func (r Reconciliation) MaxAbsDelta() float64 {
	var m float64
	for _, d := range r.Matched {
		for _, v := range []float64{d.StartDelta, d.EndDelta} {
			if v < 0 {
				v = -v
			}
			if v > m {
				m = v
			}
		}
	}
	return m
}

// Reconcile matches plan and log entries one-to-one by ElementKey.
func Reconcile(plan, log []PlanElement) Reconciliation {
	observed := make(map[ElementKey]PlanElement, len(log))
	for _, el := range log {
		observed[el.Key()] = el
	}
	var res Reconciliation
	seen := make(map[ElementKey]bool, len(plan))
	for _, p := range plan {
		k := p.Key()
		seen[k] = true
		o, ok := observed[k]
		if !ok {
			res.Missing = append(res.Missing, p)
			continue
		}
		res.Matched = append(res.Matched, Deviation{
			Key:        k,
			Planned:    p,
			Observed:   o,
			StartDelta: o.Start - p.Start,
			EndDelta:   o.End - p.End,
		})
	}
	for _, o := range log {
		if !seen[o.Key()] {
			res.Unexpected = append(res.Unexpected, o)
		}
	}
	sort.SliceStable(res.Matched, func(i, j int) bool {
		return res.Matched[i].Planned.Start < res.Matched[j].Planned.Start
	})
	return res
}

// ReconcileShipment reconciles the shipment's own plan and log ledgers.
func ReconcileShipment(s *Shipment) Reconciliation {
	return Reconcile(s.Plan().Elements(), s.Log().Elements())
}
