package execution

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/kilianp07/lsp/core/model"
)

// Listener consumes execution events of the tours it is registered for.
type Listener interface {
	Handle(e Event) error
}

// Registration is a listener waiting to be bound to a tour.
type Registration struct {
	Tour     model.TourID
	Listener Listener
}

// Registry keeps listeners keyed by tour id.
type Registry struct {
	mu     sync.RWMutex
	byTour map[model.TourID][]Listener
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{byTour: make(map[model.TourID][]Listener)}
}

// Register binds l to tour.
func (r *Registry) Register(tour model.TourID, l Listener) error {
	if tour == "" {
		return errors.New("listener registered without tour id")
	}
	if l == nil {
		return fmt.Errorf("nil listener for tour %s", tour)
	}
	r.mu.Lock()
	r.byTour[tour] = append(r.byTour[tour], l)
	r.mu.Unlock()
	return nil
}

// RegisterAll binds a batch of registrations.
func (r *Registry) RegisterAll(regs []Registration) error {
	for _, reg := range regs {
		if err := r.Register(reg.Tour, reg.Listener); err != nil {
			return err
		}
	}
	return nil
}

// Dispatch hands e to every listener of its tour. It returns false when no
// listener is registered for the tour.
func (r *Registry) Dispatch(e Event) (bool, error) {
	r.mu.RLock()
	ls := append([]Listener(nil), r.byTour[e.Tour]...)
	r.mu.RUnlock()
	var errs []error
	for _, l := range ls {
		if err := l.Handle(e); err != nil {
			errs = append(errs, err)
		}
	}
	return len(ls) > 0, errors.Join(errs...)
}

// Tours returns the tour ids with registered listeners.
func (r *Registry) Tours() []model.TourID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.TourID, 0, len(r.byTour))
	for id := range r.byTour {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Len returns the number of registered listeners.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := 0
	for _, ls := range r.byTour {
		n += len(ls)
	}
	return n
}

// Trigger matches the event opening or closing an observed element. The
// observed time is the event time plus Offset.
type Trigger struct {
	Type     EventType
	Shipment model.ShipmentID
	Link     model.LinkID
	Offset   float64
}

func (t Trigger) matches(e Event) bool {
	if t.Type != e.Type {
		return false
	}
	if t.Shipment != "" && t.Shipment != e.Shipment {
		return false
	}
	return t.Link == "" || t.Link == e.Link
}

// Anchor binds a planned element to the events delimiting it during
// execution.
type Anchor struct {
	Planned model.PlanElement
	Start   Trigger
	End     Trigger
}

type anchorState struct {
	Anchor
	start, end         float64
	haveStart, haveEnd bool
	logged             bool
}

// LogListener turns execution events into log entries of one shipment. Each
// entry keeps the key of its planned counterpart, with the observed times.
type LogListener struct {
	mu      sync.Mutex
	log     *model.Ledger
	anchors []*anchorState
}

// NewLogListener creates a listener writing to log.
func NewLogListener(log *model.Ledger, anchors ...Anchor) *LogListener {
	l := &LogListener{log: log}
	for _, a := range anchors {
		l.anchors = append(l.anchors, &anchorState{Anchor: a})
	}
	return l
}

// Handle implements Listener.
func (l *LogListener) Handle(e Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	var errs []error
	for _, a := range l.anchors {
		if a.logged {
			continue
		}
		if !a.haveStart && a.Start.matches(e) {
			a.start, a.haveStart = e.Time+a.Start.Offset, true
		}
		if !a.haveEnd && a.End.matches(e) {
			a.end, a.haveEnd = e.Time+a.End.Offset, true
		}
		if !a.haveStart || !a.haveEnd {
			continue
		}
		observed := a.Planned
		observed.Start, observed.End = a.start, a.end
		if err := l.log.Add(observed); err != nil {
			errs = append(errs, err)
		}
		a.logged = true
	}
	return errors.Join(errs...)
}

// Done reports whether every anchored element has been logged.
func (l *LogListener) Done() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, a := range l.anchors {
		if !a.logged {
			return false
		}
	}
	return true
}
