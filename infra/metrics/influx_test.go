package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/fleetsim/core/metrics"
)

type lineServer struct {
	mu     sync.Mutex
	bodies []string
}

func (l *lineServer) start(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, _ := io.ReadAll(r.Body)
		l.mu.Lock()
		l.bodies = append(l.bodies, strings.TrimSpace(string(data)))
		l.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestInfluxSink_RecordChainDispatch(t *testing.T) {
	ls := &lineServer{}
	srv := ls.start(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()

	ev := coremetrics.ChainDispatch{
		RunID:        "r1",
		VehicleID:    7,
		Legs:         2,
		Riders:       3,
		PersonMiles:  9,
		VehicleMiles: 9,
		Wait:         3.33333,
		SimTime:      3600,
	}
	if err := sink.RecordChainDispatch([]coremetrics.ChainDispatch{ev}); err != nil {
		t.Fatalf("record error: %v", err)
	}
	p := write.NewPointWithMeasurement("chain_dispatch").
		AddTag("run_id", "r1").
		AddTag("vehicle_id", "7").
		AddField("legs", 2).
		AddField("riders", 3).
		AddField("person_miles", 9).
		AddField("vehicle_miles", 9).
		AddField("wait_s", 3.333).
		SetTime(time.Date(2015, time.January, 1, 1, 0, 0, 0, time.UTC))
	expected := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(ls.bodies) != 1 || ls.bodies[0] != expected {
		t.Errorf("unexpected bodies: %#v", ls.bodies)
	}
}

func TestInfluxSink_RecordRunSummary(t *testing.T) {
	ls := &lineServer{}
	srv := ls.start(t)
	sink := NewInfluxSink(srv.URL, "token", "org", "bucket")
	defer sink.Close()

	now := time.Now()
	ev := coremetrics.RunSummaryEvent{
		RunID:            "r1",
		Params:           map[string]any{"max_stops": 5, "greedy_common_origin": true},
		Trips:            10,
		AverageOccupancy: 1.23456,
		Duration:         2 * time.Second,
		Time:             now,
	}
	if err := sink.RecordRunSummary(ev); err != nil {
		t.Fatalf("record: %v", err)
	}
	p := write.NewPointWithMeasurement("run_summary").
		AddTag("run_id", "r1").
		AddTag("failed", "false").
		AddTag("greedy_common_origin", "true").
		AddTag("max_stops", "5").
		AddField("trips", 10).
		AddField("per_occupant_wait", 0.0).
		AddField("per_trip_reposition", 0.0).
		AddField("average_occupancy", 1.235).
		AddField("weighted_circuity", 0.0).
		AddField("duration_ms", int64(2000)).
		SetTime(now)
	exp := strings.TrimSpace(write.PointToLineProtocol(p, time.Nanosecond))
	if len(ls.bodies) != 1 || ls.bodies[0] != exp {
		t.Errorf("bodies: %#v", ls.bodies)
	}
}

func TestInfluxSink_RecordReposition(t *testing.T) {
	ls := &lineServer{}
	srv := ls.start(t)
	sink := NewInfluxSink(srv.URL+"/api/v2/write", "token", "org", "bucket")
	defer sink.Close()

	if err := sink.RecordReposition(coremetrics.RepositionEvent{RunID: "r1", Moves: 4, Distance: 4, SimTime: 60}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if len(ls.bodies) != 1 || !strings.HasPrefix(ls.bodies[0], "reposition_round,run_id=r1 ") {
		t.Errorf("bodies: %#v", ls.bodies)
	}
}

func TestNewInfluxSinkWithFallback(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			called = true
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
	}))
	defer srv.Close()

	sink := NewInfluxSinkWithFallback(srv.URL+"/api/v2/write", "tok", "org", "bucket")
	if _, ok := sink.(*InfluxSink); ok {
		t.Fatalf("expected NopSink on failing health check")
	}
	if !called {
		t.Fatalf("health endpoint not called")
	}
}
