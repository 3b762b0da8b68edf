package metrics

import (
	"context"
	"time"

	"github.com/kilianp07/fleetsim/core/events"
	coremetrics "github.com/kilianp07/fleetsim/core/metrics"
	"github.com/kilianp07/fleetsim/infra/logger"
	"github.com/kilianp07/fleetsim/internal/eventbus"
	"github.com/prometheus/client_golang/prometheus"
)

var eventsDropped = prometheus.NewCounter(prometheus.CounterOpts{
	Name: "fleetsim_events_dropped_total",
	Help: "Simulation events lost to subscribers with a full buffer",
})

func init() {
	prometheus.MustRegister(eventsDropped)
}

// StartEventCollector subscribes to the event bus and forwards served
// requests to sinks implementing RequestRecorder. Events the bus dropped are
// added to fleetsim_events_dropped_total. It stops when the context is
// canceled or the bus is closed. The returned channel is closed once the
// collector has drained its subscription.
func StartEventCollector(ctx context.Context, bus *eventbus.TypedBus[events.Event], sink coremetrics.MetricsSink) <-chan struct{} {
	done := make(chan struct{})
	rec, ok := sink.(coremetrics.RequestRecorder)
	if bus == nil || !ok {
		close(done)
		return done
	}
	log := logger.New("event-collector")
	sub := bus.Subscribe()
	var seen uint64
	syncDropped := func() {
		if n := bus.Dropped(); n > seen {
			eventsDropped.Add(float64(n - seen))
			seen = n
		}
	}
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		defer syncDropped()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				syncDropped()
				var req coremetrics.RequestEvent
				switch e := ev.(type) {
				case events.VehicleRequested:
					req = coremetrics.RequestEvent{RunID: e.RunID, TripID: e.TripID, VehicleID: e.VehicleID, Delay: e.Delay}
				case events.TripBundled:
					req = coremetrics.RequestEvent{RunID: e.RunID, TripID: e.TripID, VehicleID: e.VehicleID, Bundled: true}
				default:
					continue
				}
				req.Time = time.Now()
				if err := rec.RecordRequest(req); err != nil {
					log.Warnf("record request %d: %v", req.TripID, err)
				}
			}
		}
	}()
	return done
}
