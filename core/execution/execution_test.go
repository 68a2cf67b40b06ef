package execution

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lsp/core/model"
	"github.com/kilianp07/lsp/internal/eventbus"
)

func TestEventCodec(t *testing.T) {
	ev := Event{Type: ServiceEnded, Time: 42, Tour: "t1", Vehicle: "v1", Link: "l1", Shipment: "s1"}
	b, err := EncodeEvent(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"service_ended","time":42,"tour":"t1","vehicle":"v1","link":"l1","shipment":"s1"}`, string(b))
	got, err := DecodeEvent(b)
	require.NoError(t, err)
	assert.Equal(t, ev, got)

	_, err = DecodeEvent([]byte(`{"type":"teleported","tour":"t1"}`))
	assert.Error(t, err)
	_, err = DecodeEvent([]byte(`{"type":"service_started","tour":"t1"}`))
	assert.Error(t, err)
	_, err = EncodeEvent(Event{Type: TourStarted})
	assert.Error(t, err)
}

func collectionListener(log *model.Ledger) *LogListener {
	load := model.PlanElement{Kind: model.KindLoad, Start: 10, End: 15, Element: "e", Resource: "r", Tour: "t1"}
	transport := model.PlanElement{Kind: model.KindTransport, Start: 15, End: 40, Element: "e", Resource: "r", Tour: "t1"}
	unload := model.PlanElement{Kind: model.KindUnload, Start: 40, End: 44, Element: "e", Resource: "r", Tour: "t1"}
	return NewLogListener(log,
		Anchor{Planned: load, Start: Trigger{Type: ServiceStarted, Shipment: "s1"}, End: Trigger{Type: ServiceEnded, Shipment: "s1"}},
		Anchor{Planned: transport, Start: Trigger{Type: ServiceEnded, Shipment: "s1"}, End: Trigger{Type: TourEnded}},
		Anchor{Planned: unload, Start: Trigger{Type: TourEnded}, End: Trigger{Type: TourEnded, Offset: 4}},
	)
}

func TestLogListenerWritesObservedTimes(t *testing.T) {
	log := model.NewLedger()
	l := collectionListener(log)
	reg := NewRegistry()
	require.NoError(t, reg.Register("t1", l))

	events := []Event{
		{Type: TourStarted, Time: 0, Tour: "t1"},
		{Type: ServiceStarted, Time: 12, Tour: "t1", Shipment: "s2"},
		{Type: ServiceStarted, Time: 12, Tour: "t1", Shipment: "s1"},
		{Type: ServiceEnded, Time: 18, Tour: "t1", Shipment: "s1"},
		{Type: TourEnded, Time: 50, Tour: "t1", Link: "depot"},
	}
	for _, ev := range events {
		found, err := reg.Dispatch(ev)
		require.True(t, found)
		require.NoError(t, err)
	}
	assert.True(t, l.Done())
	els := log.Elements()
	require.Len(t, els, 3)
	assert.Equal(t, [2]float64{12, 18}, [2]float64{els[0].Start, els[0].End})
	assert.Equal(t, [2]float64{18, 50}, [2]float64{els[1].Start, els[1].End})
	assert.Equal(t, [2]float64{50, 54}, [2]float64{els[2].Start, els[2].End})
	assert.Equal(t, model.KindUnload, els[2].Kind)

	found, _ := reg.Dispatch(Event{Type: TourEnded, Time: 1, Tour: "other"})
	assert.False(t, found)
}

func TestLogListenerLinkFilter(t *testing.T) {
	log := model.NewLedger()
	handle := model.PlanElement{Kind: model.KindHandle, Start: 100, End: 114, Element: "h", Resource: "hub"}
	l := NewLogListener(log, Anchor{
		Planned: handle,
		Start:   Trigger{Type: TourEnded, Link: "hub-link"},
		End:     Trigger{Type: TourEnded, Link: "hub-link", Offset: 14},
	})
	require.NoError(t, l.Handle(Event{Type: TourEnded, Time: 90, Tour: "t", Link: "elsewhere"}))
	assert.Equal(t, 0, log.Len())
	require.NoError(t, l.Handle(Event{Type: TourEnded, Time: 105, Tour: "t", Link: "hub-link"}))
	got, ok := log.Lookup(handle.Key())
	require.True(t, ok)
	assert.Equal(t, 105.0, got.Start)
	assert.Equal(t, 119.0, got.End)
}

type failing struct{}

func (failing) Handle(Event) error { return errors.New("boom") }

func TestRegistryErrors(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register("", failing{}))
	assert.Error(t, reg.Register("t", nil))
	require.NoError(t, reg.RegisterAll([]Registration{{Tour: "t", Listener: failing{}}, {Tour: "u", Listener: failing{}}}))
	assert.Equal(t, 2, reg.Len())
	assert.Equal(t, []model.TourID{"t", "u"}, reg.Tours())
	_, err := reg.Dispatch(Event{Type: TourStarted, Tour: "t"})
	assert.Error(t, err)
}

func TestRecorderRun(t *testing.T) {
	log := model.NewLedger()
	reg := NewRegistry()
	require.NoError(t, reg.Register("t1", collectionListener(log)))
	rec := NewRecorder(reg, nil)
	bus := eventbus.NewTyped[Event]()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	started := make(chan struct{})
	go func() {
		close(started)
		done <- rec.Run(ctx, bus)
	}()
	<-started
	// wait until the recorder subscribed
	require.Eventually(t, func() bool {
		return bus.PublishContext(ctx, Event{Type: TourStarted, Tour: "probe"}) == nil && rec.Processed() > 0
	}, time.Second, 5*time.Millisecond)

	for _, ev := range []Event{
		{Type: ServiceStarted, Time: 12, Tour: "t1", Shipment: "s1"},
		{Type: ServiceEnded, Time: 18, Tour: "t1", Shipment: "s1"},
		{Type: TourEnded, Time: 50, Tour: "t1"},
		{Type: "bogus", Tour: "t1"},
	} {
		require.NoError(t, bus.PublishContext(ctx, ev))
	}
	require.Eventually(t, func() bool { return log.Len() == 3 }, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, rec.Orphaned(), int64(1))

	bus.Close()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("recorder did not stop after bus close")
	}
}
