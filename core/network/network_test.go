package network

import (
	"errors"
	"math"
	"testing"
)

func TestStaticDistanceAndTravelTime(t *testing.T) {
	n, err := NewStatic(10, Link{ID: "a"}, Link{ID: "b", X: 300, Y: 400})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	d, err := n.Distance("a", "b")
	if err != nil {
		t.Fatalf("distance: %v", err)
	}
	if math.Abs(d-500) > 1e-9 {
		t.Fatalf("expected 500 got %v", d)
	}
	tt, err := n.TravelTime("b", "a")
	if err != nil {
		t.Fatalf("travel time: %v", err)
	}
	if math.Abs(tt-50) > 1e-9 {
		t.Fatalf("expected 50 got %v", tt)
	}
	if d, _ := n.Distance("a", "a"); d != 0 {
		t.Fatalf("self distance %v", d)
	}
}

func TestStaticUnknownLink(t *testing.T) {
	n, _ := NewStatic(1, Link{ID: "a"})
	if _, err := n.TravelTime("a", "zz"); !errors.Is(err, ErrUnknownLink) {
		t.Fatalf("expected ErrUnknownLink, got %v", err)
	}
}

func TestStaticRejectsBadInput(t *testing.T) {
	if _, err := NewStatic(0); err == nil {
		t.Fatalf("expected speed error")
	}
	if _, err := NewStatic(1, Link{}); err == nil {
		t.Fatalf("expected link id error")
	}
	n, _ := NewStatic(2, Link{ID: "b"}, Link{ID: "a"})
	if l := n.Links(); len(l) != 2 || l[0].ID != "a" {
		t.Fatalf("links %+v", l)
	}
}
