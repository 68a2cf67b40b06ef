package model

import (
	"fmt"
	"sync"
)

// Ledger is an append-only record of plan elements for one shipment. The plan
// ledger is filled during scheduling, the log ledger by execution listeners,
// which may run on another goroutine.
type Ledger struct {
	mu    sync.RWMutex
	els   []PlanElement
	index map[ElementKey]int
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{index: make(map[ElementKey]int)}
}

// Add appends el. Invalid elements and duplicate keys are rejected.
func (l *Ledger) Add(el PlanElement) error {
	if err := el.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.index[el.Key()]; ok {
		return fmt.Errorf("duplicate plan element %s", el.Key())
	}
	l.index[el.Key()] = len(l.els)
	l.els = append(l.els, el)
	return nil
}

// Elements returns a copy of the entries sorted by start time.
func (l *Ledger) Elements() []PlanElement {
	l.mu.RLock()
	out := append([]PlanElement(nil), l.els...)
	l.mu.RUnlock()
	SortElements(out)
	return out
}

// MostRecent returns the last element in time order.
func (l *Ledger) MostRecent() (PlanElement, bool) {
	els := l.Elements()
	if len(els) == 0 {
		return PlanElement{}, false
	}
	return els[len(els)-1], true
}

// Lookup returns the element stored under key.
func (l *Ledger) Lookup(key ElementKey) (PlanElement, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i, ok := l.index[key]
	if !ok {
		return PlanElement{}, false
	}
	return l.els[i], true
}

// Has reports whether an element with key is recorded.
func (l *Ledger) Has(key ElementKey) bool {
	_, ok := l.Lookup(key)
	return ok
}

// Len returns the number of recorded elements.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.els)
}
