package metrics

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Collector struct {
	reg *prometheus.Registry

	Refreshes       prometheus.Counter
	FramesPublished prometheus.Counter
	FetchErrors     *prometheus.CounterVec // source, kind
	SinkErrors      *prometheus.CounterVec // sink
	UnqualifiedPick prometheus.Counter

	NATSPublished   prometheus.Counter
	NATSPublishErrs prometheus.Counter
	NATSConnected   prometheus.Gauge

	FetchDuration   *prometheus.HistogramVec // source
	RefreshDuration prometheus.Histogram

	LastRefresh     prometheus.Gauge // unix seconds
	RefreshInterval prometheus.Gauge // seconds
	MinLead         prometheus.Gauge // seconds
}

func NewCollector(refreshInterval, minLead time.Duration) *Collector {
	reg := prometheus.NewRegistry()

	c := &Collector{
		reg: reg,
		Refreshes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busboard_refreshes_total",
			Help: "Total board refresh cycles.",
		}),
		FramesPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busboard_frames_published_total",
			Help: "Total frames pushed to the display sinks (unchanged frames are skipped).",
		}),
		FetchErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busboard_fetch_errors_total",
			Help: "Upstream fetch failures by source and kind.",
		}, []string{"source", "kind"}),
		SinkErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "busboard_sink_errors_total",
			Help: "Failures pushing a frame to a display sink.",
		}, []string{"sink"}),
		UnqualifiedPick: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busboard_unqualified_selections_total",
			Help: "Selections where no arrival met the minimum lead time.",
		}),
		NATSPublished: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busboard_nats_published_total",
			Help: "Total NATS messages published.",
		}),
		NATSPublishErrs: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "busboard_nats_publish_errors_total",
			Help: "Total NATS publish errors.",
		}),
		NATSConnected: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busboard_nats_connected",
			Help: "1 if NATS connection is established, 0 otherwise.",
		}),
		FetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "busboard_fetch_duration_seconds",
			Help:    "Duration of upstream API requests.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"source"}),
		RefreshDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "busboard_refresh_duration_seconds",
			Help:    "Duration of a full refresh cycle.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}),
		LastRefresh: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busboard_last_refresh_timestamp_seconds",
			Help: "Unix time of the last completed refresh.",
		}),
		RefreshInterval: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busboard_refresh_interval_seconds",
			Help: "Refresh interval in seconds.",
		}),
		MinLead: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "busboard_min_lead_seconds",
			Help: "Minimum lead time for a reported departure.",
		}),
	}

	// Register
	reg.MustRegister(
		c.Refreshes, c.FramesPublished, c.FetchErrors, c.SinkErrors, c.UnqualifiedPick,
		c.NATSPublished, c.NATSPublishErrs, c.NATSConnected,
		c.FetchDuration, c.RefreshDuration,
		c.LastRefresh, c.RefreshInterval, c.MinLead,
	)

	// Set static gauges
	c.RefreshInterval.Set(refreshInterval.Seconds())
	c.MinLead.Set(minLead.Seconds())

	return c
}

func (c *Collector) Handler() http.Handler { return promhttp.HandlerFor(c.reg, promhttp.HandlerOpts{}) }

// Serve starts an HTTP server exposing /metrics on the given address.
func (c *Collector) Serve(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", c.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("metrics server error", "error", err)
		}
	}()
	logger.Info("metrics listening", "addr", addr)
	return srv
}

// NATSPublishedInc and the methods below satisfy publisher.PublisherMetrics.
func (c *Collector) NATSPublishedInc()  { c.NATSPublished.Inc() }
func (c *Collector) NATSPublishErrInc() { c.NATSPublishErrs.Inc() }
func (c *Collector) NATSSetConnected(connected bool) {
	if connected {
		c.NATSConnected.Set(1)
	} else {
		c.NATSConnected.Set(0)
	}
}
