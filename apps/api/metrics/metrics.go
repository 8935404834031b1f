package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Haruday0/sendai-bus-map-v2/apps/api/models"
)

// Collector holds the api's Prometheus metrics on a private registry
type Collector struct {
	reg *prometheus.Registry

	Requests        *prometheus.CounterVec   // route, method, status
	RequestDuration *prometheus.HistogramVec // route
	SnapshotInfo    *prometheus.GaugeVec     // snapshot_id, source; always 1
	SnapshotRows    *prometheus.GaugeVec     // table
	SnapshotLoaded  prometheus.Gauge         // unix seconds
}

func NewCollector() *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busmap_http_requests_total",
			Help: "HTTP requests served, by route pattern, method and status.",
		}, []string{"route", "method", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "busmap_http_request_duration_seconds",
			Help:    "Time spent serving HTTP requests.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}, []string{"route"}),
		SnapshotInfo: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "busmap_snapshot_info",
			Help: "Identity of the schedule snapshot being served.",
		}, []string{"snapshot_id", "source"}),
		SnapshotRows: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "busmap_snapshot_rows",
			Help: "Row count per snapshot table.",
		}, []string{"table"}),
		SnapshotLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busmap_snapshot_loaded_timestamp_seconds",
			Help: "Unix time the snapshot was loaded.",
		}),
	}

	reg.MustRegister(
		c.Requests, c.RequestDuration,
		c.SnapshotInfo, c.SnapshotRows, c.SnapshotLoaded,
		collectors.NewGoCollector(),
	)
	return c
}

// ObserveSnapshot records the identity and table sizes of a loaded snapshot
func (c *Collector) ObserveSnapshot(id, source string, loadedAt time.Time, counts models.SnapshotCounts) {
	c.SnapshotInfo.Reset()
	c.SnapshotInfo.WithLabelValues(id, source).Set(1)
	c.SnapshotLoaded.Set(float64(loadedAt.Unix()))

	for table, n := range map[string]int{
		"stops":      counts.Stops,
		"routes":     counts.Routes,
		"trips":      counts.Trips,
		"shapes":     counts.Shapes,
		"services":   counts.Services,
		"exceptions": counts.Exceptions,
		"offices":    counts.Offices,
	} {
		c.SnapshotRows.WithLabelValues(table).Set(float64(n))
	}
}

// Middleware counts and times every request by its chi route pattern
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				route = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		c.Requests.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		c.RequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }
