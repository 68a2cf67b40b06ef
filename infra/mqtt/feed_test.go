package mqtt

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lsp/core/execution"
	"github.com/kilianp07/lsp/core/model"
	coremon "github.com/kilianp07/lsp/core/monitoring"
	"github.com/kilianp07/lsp/core/scheduler"
	"github.com/kilianp07/lsp/infra/planstore"
	"github.com/kilianp07/lsp/internal/eventbus"
	"github.com/kilianp07/lsp/pkg/export"
)

type recordMonitor struct {
	coremon.NopMonitor
	err  error
	tags map[string]string
}

func (r *recordMonitor) CaptureException(err error, tags map[string]string) {
	r.err = err
	r.tags = tags
}

func snapshot() planstore.Record {
	return planstore.Record{
		ID:   "rec-1",
		LSP:  "lsp",
		Plan: "p1",
		Tours: []scheduler.Tour{
			{ID: "tour-1", Resource: "mr", Shipments: []model.ShipmentID{"s1"}},
			{ID: "tour-2", Resource: "mr", Shipments: []model.ShipmentID{"s2"}},
		},
		Elements: []export.Row{
			{Shipment: "s1", Resource: "mr", Kind: model.KindLoad, Tour: "tour-1"},
			{Shipment: "s1", Resource: "mr", Kind: model.KindTransport, Tour: "tour-1"},
			{Shipment: "s1", Resource: "hub", Kind: model.KindHandle},
			{Shipment: "s2", Resource: "mr", Kind: model.KindLoad, Tour: "tour-2"},
		},
	}
}

func TestFeedSubscribesAndForwardsEvents(t *testing.T) {
	mc := &mockClient{}
	defer installMock(mc)()
	bus := eventbus.NewTyped[execution.Event]()
	sub := bus.Subscribe()

	f, err := NewFeed(Config{Broker: "tcp://localhost:1883", QoS: map[string]byte{"events": 1}}, bus)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, byte(1), mc.subscribed[DefaultEventTopic])

	mc.deliver("lsp/events/tour-1", []byte(`{"type":"tour_started","time":5,"tour":"tour-1"}`))
	mc.deliver("lsp/events/tour-1", []byte(`{"type":"teleported","tour":"tour-1"}`))
	mc.deliver("lsp/events/tour-1", []byte(`not json`))

	select {
	case ev := <-sub:
		assert.Equal(t, execution.TourStarted, ev.Type)
		assert.Equal(t, 5.0, ev.Time)
		assert.Equal(t, model.TourID("tour-1"), ev.Tour)
	case <-time.After(time.Second):
		t.Fatal("event not forwarded")
	}
	assert.Equal(t, int64(1), f.Received())
	assert.Equal(t, int64(2), f.Rejected())
}

func TestFeedWithoutBusDoesNotSubscribe(t *testing.T) {
	mc := &mockClient{}
	defer installMock(mc)()
	f, err := NewFeed(Config{Broker: "tcp://localhost:1883"}, nil)
	require.NoError(t, err)
	defer f.Close()
	assert.Empty(t, mc.subscribed)
}

func TestFeedConnectError(t *testing.T) {
	mc := &mockClient{connectErr: errors.New("refused")}
	defer installMock(mc)()
	_, err := NewFeed(Config{Broker: "tcp://localhost:1883"}, nil)
	assert.ErrorContains(t, err, "refused")
}

func TestPublishPlan(t *testing.T) {
	mc := &mockClient{}
	defer installMock(mc)()
	f, err := NewFeed(Config{Broker: "tcp://localhost:1883", QoS: map[string]byte{"plan": 1, "tour": 2}}, nil)
	require.NoError(t, err)

	require.NoError(t, f.PublishPlan(context.Background(), snapshot()))
	sent := mc.sent()
	require.Len(t, sent, 3)
	assert.Equal(t, DefaultPlanTopic, sent[0].topic)
	assert.Equal(t, byte(1), sent[0].qos)
	assert.True(t, sent[0].retained)
	assert.Equal(t, "lsp/tours/tour-1", sent[1].topic)
	assert.Equal(t, byte(2), sent[1].qos)
	assert.Equal(t, "lsp/tours/tour-2", sent[2].topic)

	var msg TourMessage
	require.NoError(t, json.Unmarshal(sent[1].payload, &msg))
	assert.Equal(t, "p1", msg.Plan)
	assert.Len(t, msg.Elements, 2)
}

func TestPublishRetriesThenCaptures(t *testing.T) {
	mc := &mockClient{publishErrs: []error{errors.New("net fail"), nil}}
	defer installMock(mc)()
	f, err := NewFeed(Config{Broker: "tcp://localhost:1883", MaxRetries: 1, BackoffMS: 1}, nil)
	require.NoError(t, err)
	require.NoError(t, f.PublishEvent(context.Background(), execution.Event{Type: execution.TourEnded, Tour: "tour-1", Time: 9}))
	sent := mc.sent()
	require.Len(t, sent, 2)
	assert.Equal(t, "lsp/events/tour-1", sent[1].topic)

	mon := &recordMonitor{}
	coremon.Init(mon)
	defer coremon.Init(nil)
	mc.publishErrs = []error{errors.New("down"), errors.New("down")}
	err = f.PublishPlan(context.Background(), snapshot())
	require.Error(t, err)
	require.NotNil(t, mon.err)
	assert.Equal(t, "mqtt", mon.tags["module"])
	assert.Equal(t, DefaultPlanTopic, mon.tags["topic"])
}

func TestPublishEventRejectsInvalid(t *testing.T) {
	mc := &mockClient{}
	defer installMock(mc)()
	f, err := NewFeed(Config{Broker: "tcp://localhost:1883"}, nil)
	require.NoError(t, err)
	assert.Error(t, f.PublishEvent(context.Background(), execution.Event{Type: execution.ServiceStarted, Tour: "t"}))
	assert.Empty(t, mc.sent())
}

func TestEventTopicFor(t *testing.T) {
	assert.Equal(t, "lsp/events/t1", EventTopicFor("lsp/events/#", "t1"))
	assert.Equal(t, "fleet/t1", EventTopicFor("fleet/+", "t1"))
	assert.Equal(t, "fixed/topic", EventTopicFor("fixed/topic", "t1"))
}

func TestTourMessagesWithoutElements(t *testing.T) {
	rec := snapshot()
	rec.Elements = nil
	msgs := TourMessages(rec)
	require.Len(t, msgs, 2)
	assert.Empty(t, msgs[0].Elements)
}

func TestMockPublisher(t *testing.T) {
	m := NewMockPublisher()
	require.NoError(t, m.PublishPlan(context.Background(), snapshot()))
	m.Err = errors.New("offline")
	assert.Error(t, m.PublishPlan(context.Background(), snapshot()))
	assert.Len(t, m.Published(), 1)
}
