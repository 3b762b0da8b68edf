package metrics

import (
	"context"
	"maps"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fleetsim/core/metrics"
	"github.com/kilianp07/fleetsim/infra/logger"
)

// simEpoch anchors simulation seconds to wall clock timestamps: the
// simulated year starts on 2015-01-01.
var simEpoch = time.Date(2015, time.January, 1, 0, 0, 0, 0, time.UTC)

// InfluxSink writes simulation events to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
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

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
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

// RecordChainDispatch writes one point per dispatched chain.
func (s *InfluxSink) RecordChainDispatch(evs []coremetrics.ChainDispatch) error {
	if len(evs) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	points := make([]*write.Point, 0, len(evs))
	for _, ev := range evs {
		p := write.NewPointWithMeasurement("chain_dispatch").
			AddTag("run_id", ev.RunID).
			AddTag("vehicle_id", strconv.Itoa(ev.VehicleID)).
			AddField("legs", ev.Legs).
			AddField("riders", ev.Riders).
			AddField("person_miles", ev.PersonMiles).
			AddField("vehicle_miles", ev.VehicleMiles).
			AddField("wait_s", round3(ev.Wait)).
			SetTime(simTime(ev.SimTime))
		points = append(points, p)
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordRequest writes a served request.
func (s *InfluxSink) RecordRequest(ev coremetrics.RequestEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("request_served").
		AddTag("run_id", ev.RunID).
		AddTag("bundled", strconv.FormatBool(ev.Bundled)).
		AddField("trip_id", ev.TripID).
		AddField("vehicle_id", ev.VehicleID).
		AddField("delay_s", round3(ev.Delay)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordReposition writes a repositioning round.
func (s *InfluxSink) RecordReposition(ev coremetrics.RepositionEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("reposition_round").
		AddTag("run_id", ev.RunID).
		AddField("moves", ev.Moves).
		AddField("distance", ev.Distance).
		SetTime(simTime(ev.SimTime))
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordRunSummary writes the indicators of a finished run tagged with its
// parameters.
func (s *InfluxSink) RecordRunSummary(ev coremetrics.RunSummaryEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("run_summary").
		AddTag("run_id", ev.RunID).
		AddTag("failed", strconv.FormatBool(ev.Failed))
	for _, k := range slices.Sorted(maps.Keys(ev.Params)) {
		p = p.AddTag(k, formatTag(ev.Params[k]))
	}
	p = p.AddField("trips", ev.Trips).
		AddField("per_occupant_wait", round3(ev.PerOccupantWait)).
		AddField("per_trip_reposition", round3(ev.PerTripReposition)).
		AddField("average_occupancy", round3(ev.AverageOccupancy)).
		AddField("weighted_circuity", round3(ev.WeightedCircuity)).
		AddField("duration_ms", ev.Duration.Milliseconds()).
		SetTime(ev.Time)
	if ev.Error != "" {
		p = p.AddField("error", ev.Error)
	}
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func simTime(sec int64) time.Time {
	return simEpoch.Add(time.Duration(sec) * time.Second)
}

func formatTag(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case bool:
		return strconv.FormatBool(t)
	}
	return ""
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
