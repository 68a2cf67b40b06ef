package model

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// ElementKind tags the variant of a PlanElement.
type ElementKind int

const (
	KindLoad ElementKind = iota + 1
	KindTransport
	KindUnload
	KindHandle
)

// String returns the canonical upper-case name of the kind.
func (k ElementKind) String() string {
	switch k {
	case KindLoad:
		return "LOAD"
	case KindTransport:
		return "TRANSPORT"
	case KindUnload:
		return "UNLOAD"
	case KindHandle:
		return "HANDLE"
	default:
		return "UNKNOWN"
	}
}

// ParseElementKind converts a name such as "HANDLE" back into a kind.
func ParseElementKind(s string) (ElementKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LOAD":
		return KindLoad, nil
	case "TRANSPORT":
		return KindTransport, nil
	case "UNLOAD":
		return KindUnload, nil
	case "HANDLE":
		return KindHandle, nil
	default:
		return 0, fmt.Errorf("unknown plan element kind %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k ElementKind) MarshalText() ([]byte, error) {
	if k < KindLoad || k > KindHandle {
		return nil, fmt.Errorf("invalid plan element kind %d", int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *ElementKind) UnmarshalText(b []byte) error {
	v, err := ParseElementKind(string(b))
	if err != nil {
		return err
	}
	*k = v
	return nil
}

// ElementKey identifies a plan or log entry of one shipment. Plan and log
// entries with equal keys describe the same activity.
type ElementKey struct {
	Resource ResourceID  `json:"resource"`
	Element  ElementID   `json:"element"`
	Kind     ElementKind `json:"kind"`
}

func (k ElementKey) String() string {
	return fmt.Sprintf("%s/%s/%s", k.Resource, k.Element, k.Kind)
}

// PlanElement is one timed activity of a shipment. From, To and Tour are only
// set for carrier-backed kinds.
type PlanElement struct {
	Kind     ElementKind `json:"kind"`
	Start    float64     `json:"start"`
	End      float64     `json:"end"`
	Element  ElementID   `json:"element"`
	Resource ResourceID  `json:"resource"`
	From     LinkID      `json:"from,omitempty"`
	To       LinkID      `json:"to,omitempty"`
	Tour     TourID      `json:"tour,omitempty"`
}

// Key returns the composite identity of the element.
func (e PlanElement) Key() ElementKey {
	return ElementKey{Resource: e.Resource, Element: e.Element, Kind: e.Kind}
}

// Duration returns End - Start.
func (e PlanElement) Duration() float64 { return e.End - e.Start }

// Validate checks the element invariants.
func (e PlanElement) Validate() error {
	if e.Kind < KindLoad || e.Kind > KindHandle {
		return fmt.Errorf("plan element %s: invalid kind", e.Key())
	}
	if math.IsNaN(e.Start) || math.IsNaN(e.End) {
		return fmt.Errorf("plan element %s: NaN time", e.Key())
	}
	if e.End < e.Start {
		return fmt.Errorf("plan element %s: end %.1f before start %.1f", e.Key(), e.End, e.Start)
	}
	if e.Element == "" || e.Resource == "" {
		return fmt.Errorf("plan element %s: element and resource ids are required", e.Key())
	}
	return nil
}

// SortElements orders elements by start time, then end time.
func SortElements(els []PlanElement) {
	sort.SliceStable(els, func(i, j int) bool {
		if els[i].Start != els[j].Start {
			return els[i].Start < els[j].Start
		}
		return els[i].End < els[j].End
	})
}

// CausalityError reports two consecutive elements that overlap.
type CausalityError struct {
	Before PlanElement
	After  PlanElement
}

func (e *CausalityError) Error() string {
	return fmt.Sprintf("element %s ends at %.1f after %s starts at %.1f",
		e.Before.Key(), e.Before.End, e.After.Key(), e.After.Start)
}

// CheckCausality verifies that, sorted by start time, every element ends no
// later than the next one starts.
func CheckCausality(els []PlanElement) error {
	sorted := append([]PlanElement(nil), els...)
	SortElements(sorted)
	for i := 0; i+1 < len(sorted); i++ {
		if sorted[i].End > sorted[i+1].Start {
			return &CausalityError{Before: sorted[i], After: sorted[i+1]}
		}
	}
	return nil
}
