package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/lsp/core/metrics"
	"github.com/kilianp07/lsp/infra/logger"
)

// InfluxSink writes scheduling passes, tours and reconciliation results to
// InfluxDB.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given endpoint. A trailing
// /api/v2/write is accepted.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the instance and returns a NopSink when
// it is not healthy.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func (s *InfluxSink) write(points ...*write.Point) error {
	if len(points) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, points...)
}

func (s *InfluxSink) RecordSchedule(ev coremetrics.ScheduleEvent) error {
	p := write.NewPointWithMeasurement("schedule_pass").
		AddTag("resource", string(ev.Resource)).
		AddTag("kind", ev.Kind).
		AddField("shipments", ev.Shipments).
		AddField("tours", ev.Tours).
		AddField("duration_ms", round3(ev.Duration.Seconds()*1000)).
		SetTime(ev.Time)
	if ev.Err != "" {
		p = p.AddField("error", ev.Err)
	}
	return s.write(p)
}

func (s *InfluxSink) RecordTours(evs []coremetrics.TourEvent) error {
	points := make([]*write.Point, 0, len(evs))
	for _, ev := range evs {
		points = append(points, write.NewPointWithMeasurement("tour").
			AddTag("resource", string(ev.Resource)).
			AddTag("vehicle_id", string(ev.Vehicle)).
			AddTag("tour_id", string(ev.Tour)).
			AddField("shipments", ev.Shipments).
			AddField("load", ev.Load).
			AddField("utilization", round3(ev.Utilization())).
			AddField("departure_s", round3(ev.Departure)).
			AddField("arrival_s", round3(ev.Arrival)).
			AddField("distance_m", round3(ev.Distance)).
			AddField("cost", round3(ev.Cost)).
			SetTime(ev.Time))
	}
	return s.write(points...)
}

func (s *InfluxSink) RecordConservation(ev coremetrics.ConservationEvent) error {
	return s.write(write.NewPointWithMeasurement("conservation_violation").
		AddTag("chain", string(ev.Chain)).
		AddField("lost", ev.Lost).
		AddField("duplicated", ev.Duplicated).
		SetTime(ev.Time))
}

func (s *InfluxSink) RecordReconciliation(evs []coremetrics.ReconciliationEvent) error {
	points := make([]*write.Point, 0, len(evs))
	for _, ev := range evs {
		points = append(points, write.NewPointWithMeasurement("reconciliation").
			AddTag("shipment_id", string(ev.Shipment)).
			AddField("matched", ev.Matched).
			AddField("missing", ev.Missing).
			AddField("unexpected", ev.Unexpected).
			AddField("max_deviation_s", round3(ev.MaxDeviation)).
			SetTime(ev.Time))
	}
	return s.write(points...)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
