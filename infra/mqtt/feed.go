package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/lsp/core/execution"
	"github.com/kilianp07/lsp/core/model"
	coremon "github.com/kilianp07/lsp/core/monitoring"
	"github.com/kilianp07/lsp/core/scheduler"
	"github.com/kilianp07/lsp/infra/logger"
	"github.com/kilianp07/lsp/infra/planstore"
	"github.com/kilianp07/lsp/internal/eventbus"
	"github.com/kilianp07/lsp/pkg/export"
)

// TourMessage is the retained payload published per tour.
type TourMessage struct {
	Plan     string         `json:"plan"`
	Tour     scheduler.Tour `json:"tour"`
	Elements []export.Row   `json:"elements"`
}

// Feed publishes scheduled plans and forwards execution events received on
// the event topic to a bus.
type Feed struct {
	cfg     Config
	cli     pahoClient
	bus     *eventbus.TypedBus[execution.Event]
	log     logger.Logger
	backoff time.Duration

	received atomic.Int64
	rejected atomic.Int64
}

// NewFeed connects to the broker. When bus is non-nil the feed subscribes to
// the event topic on every (re)connect.
func NewFeed(cfg Config, bus *eventbus.TypedBus[execution.Event]) (*Feed, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}
	log := logger.New("mqtt_feed")
	f := &Feed{
		cfg:     cfg,
		bus:     bus,
		log:     log,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
	}
	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected to %s", cfg.Broker)
		if f.bus == nil {
			return
		}
		if token := c.Subscribe(cfg.EventTopic, cfg.qos("events"), f.onEvent); token.Wait() && token.Error() != nil {
			log.Errorf("subscribe %s: %v", cfg.EventTopic, token.Error())
			coremon.CaptureException(token.Error(), map[string]string{"module": "mqtt", "topic": cfg.EventTopic})
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect %s: %w", cfg.Broker, token.Error())
	}
	f.cli = c
	return f, nil
}

func (f *Feed) onEvent(_ paho.Client, msg paho.Message) {
	ev, err := execution.DecodeEvent(msg.Payload())
	if err != nil {
		f.rejected.Add(1)
		f.log.Warnf("topic %s: %v", msg.Topic(), err)
		return
	}
	f.received.Add(1)
	f.bus.Publish(ev)
}

// Received returns the number of events forwarded to the bus.
func (f *Feed) Received() int64 { return f.received.Load() }

// Rejected returns the number of messages that did not decode.
func (f *Feed) Rejected() int64 { return f.rejected.Load() }

// PublishPlan publishes the plan snapshot on the plan topic and one message
// per tour under the tour topic. All messages are retained so vehicles that
// connect later still receive their tour.
func (f *Feed) PublishPlan(ctx context.Context, rec planstore.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	if err := f.publish(ctx, f.cfg.PlanTopic, f.cfg.qos("plan"), true, payload); err != nil {
		return err
	}
	for _, msg := range TourMessages(rec) {
		payload, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		topic := f.cfg.TourTopic + "/" + string(msg.Tour.ID)
		if err := f.publish(ctx, topic, f.cfg.qos("tour"), true, payload); err != nil {
			return err
		}
	}
	f.log.Infof("published plan %s with %d tours", rec.Plan, len(rec.Tours))
	return nil
}

// PublishEvent sends an execution event to the event topic of its tour.
func (f *Feed) PublishEvent(ctx context.Context, e execution.Event) error {
	payload, err := execution.EncodeEvent(e)
	if err != nil {
		return err
	}
	return f.publish(ctx, EventTopicFor(f.cfg.EventTopic, e.Tour), f.cfg.qos("events"), false, payload)
}

func (f *Feed) publish(ctx context.Context, topic string, qos byte, retained bool, payload []byte) error {
	var err error
retry:
	for attempt := 0; attempt <= f.cfg.MaxRetries; attempt++ {
		token := f.cli.Publish(topic, qos, retained, payload)
		token.Wait()
		if err = token.Error(); err == nil {
			return nil
		}
		f.log.Errorf("publish %s attempt %d failed: %v", topic, attempt+1, err)
		if attempt == f.cfg.MaxRetries {
			break
		}
		select {
		case <-ctx.Done():
			err = ctx.Err()
			break retry
		case <-time.After(f.backoff * time.Duration(1<<attempt)):
		}
	}
	coremon.CaptureException(err, map[string]string{"module": "mqtt", "topic": topic})
	return fmt.Errorf("publish %s: %w", topic, err)
}

// Close disconnects from the broker.
func (f *Feed) Close() {
	if f.cli != nil && f.cli.IsConnected() {
		f.cli.Disconnect(250)
	}
}

// TourMessages splits a plan snapshot into one message per tour.
func TourMessages(rec planstore.Record) []TourMessage {
	byTour := make(map[string][]export.Row)
	for _, row := range rec.Elements {
		if row.Tour != "" {
			byTour[string(row.Tour)] = append(byTour[string(row.Tour)], row)
		}
	}
	out := make([]TourMessage, 0, len(rec.Tours))
	for _, t := range rec.Tours {
		out = append(out, TourMessage{Plan: rec.Plan, Tour: t, Elements: byTour[string(t.ID)]})
	}
	return out
}

// EventTopicFor returns the concrete topic events of tour are published to
// under the subscription filter.
func EventTopicFor(filter string, tour model.TourID) string {
	base := strings.TrimSuffix(strings.TrimSuffix(filter, "#"), "+")
	if base == filter {
		return filter
	}
	return strings.TrimSuffix(base, "/") + "/" + string(tour)
}
