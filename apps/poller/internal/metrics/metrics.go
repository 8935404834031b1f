package metrics

import (
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds the poller's Prometheus metrics
type Collector struct {
	reg *prometheus.Registry

	ActiveVehicles prometheus.Gauge
	BaselineZScore prometheus.Gauge

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	SnapshotReloads *prometheus.CounterVec // result label: ok|error

	TickDuration    prometheus.Histogram
	PublishDuration prometheus.Histogram

	PollInterval prometheus.Gauge // seconds
}

func NewCollector(pollInterval time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		ActiveVehicles: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "poller_active_vehicles",
			Help: "Vehicles located in the last tick.",
		}),
		BaselineZScore: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "poller_active_vehicles_zscore",
			Help: "Deviation of the last tick's vehicle count from the learned weekday/hour baseline.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "poller_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "poller_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "poller_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		SnapshotReloads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "poller_snapshot_reloads_total",
			Help: "Snapshot reload attempts by result.",
		}, []string{"result"}),
		TickDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "poller_tick_duration_seconds",
			Help:    "Duration of one locate-and-publish tick.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		PublishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "poller_publish_duration_seconds",
			Help:    "Duration to marshal and publish a NATS message.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 15),
		}),
		PollInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "poller_poll_interval_seconds",
			Help: "Broadcast interval in seconds.",
		}),
	}

	reg.MustRegister(
		c.ActiveVehicles, c.BaselineZScore,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.SnapshotReloads, c.TickDuration, c.PublishDuration,
		c.PollInterval,
	)

	c.PollInterval.Set(pollInterval.Seconds())
	return c
}

func (c *Collector) NATSPublishedInc()              { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc()             { c.NATSPublishErrs.Inc() }
func (c *Collector) PublishObserve(d time.Duration) { c.PublishDuration.Observe(d.Seconds()) }

func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}

// ObserveTick records one broadcast tick
func (c *Collector) ObserveTick(d time.Duration, vehicles int, zScore float64) {
	c.TickDuration.Observe(d.Seconds())
	c.ActiveVehicles.Set(float64(vehicles))
	c.BaselineZScore.Set(zScore)
}

// ReloadResult counts a snapshot reload attempt
func (c *Collector) ReloadResult(err error) {
	if err != nil {
		c.SnapshotReloads.WithLabelValues("error").Inc()
		return
	}
	c.SnapshotReloads.WithLabelValues("ok").Inc()
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("metrics server error: %v", err)
		}
	}()
	log.Printf("metrics listening on %s", addr)
	return srv
}
