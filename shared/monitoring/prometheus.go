package monitoring

import (
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PollStatus counts poll cycles by outcome (success, error, skipped).
var PollStatus = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "tracker_poll_status",
	},
	[]string{"status"},
)

var EventsFetched = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "tracker_events_fetched",
	},
)

var KillsDetected = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "tracker_kills_detected",
	},
)

// GapSize observes the size of detected event-id gaps per poll.
var GapSize = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Name:    "tracker_event_gap_size",
		Buckets: []float64{1, 5, 10, 25, 51, 102, 255, 510, 1000},
	},
)

var PendingKills = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "tracker_pending_kills",
	},
)

var ConfirmedKills = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "tracker_confirmed_kills",
	},
)

var ChestValue = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "tracker_chest_value_silver",
	},
)

var ActivityDuration = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Name: "tracker_activity_duration_seconds",
	},
)

var PriceLookupTime = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "tracker_price_lookup_ms",
		Buckets: []float64{50, 100, 200, 350, 500, 750, 1000, 2000, 5000, 10000},
	},
	[]string{"status"},
)

func RegisterPrometheus(port int) {
	prometheus.MustRegister(PollStatus)
	prometheus.MustRegister(EventsFetched)
	prometheus.MustRegister(KillsDetected)
	prometheus.MustRegister(GapSize)
	prometheus.MustRegister(PendingKills)
	prometheus.MustRegister(ConfirmedKills)
	prometheus.MustRegister(ChestValue)
	prometheus.MustRegister(ActivityDuration)
	prometheus.MustRegister(PriceLookupTime)

	http.Handle("/metrics", promhttp.Handler())

	go func() {
		addr := fmt.Sprintf(":%d", port)
		log.Fatal(http.ListenAndServe(addr, nil))
	}()
}
