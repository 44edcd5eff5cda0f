// Package metrics collects and exposes Prometheus metrics.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector registers and records the service's Prometheus metrics. A nil
// *Collector is valid and records nothing, so wiring metrics stays optional
// in tests.
type Collector struct {
	registry *prometheus.Registry

	httpStatus     *prometheus.CounterVec
	requestLatency prometheus.Histogram

	dogsCreated      prometheus.Counter
	votesCast        prometheus.Counter
	appsSubmitted    prometheus.Counter
	appsDecided      *prometheus.CounterVec
	notifySent       prometheus.Counter
	notifyFailed     prometheus.Counter
	outboxProcessed  prometheus.Counter
	outboxFailed     prometheus.Counter
}

// NewCollector creates a Collector with its own registry.
func NewCollector() *Collector {
	reg := prometheus.NewRegistry()
	c := &Collector{
		registry: reg,
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pupper_http_status_total",
			Help: "Responses by HTTP status code.",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pupper_request_latency_seconds",
			Help:    "HTTP request latency in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		dogsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pupper_dogs_created_total",
			Help: "Dog listings created.",
		}),
		votesCast: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pupper_votes_cast_total",
			Help: "Votes cast (upserts, not removals).",
		}),
		appsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pupper_applications_submitted_total",
			Help: "Adoption applications submitted.",
		}),
		appsDecided: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pupper_applications_decided_total",
			Help: "Applications decided, by terminal status.",
		}, []string{"status"}),
		notifySent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pupper_notifications_sent_total",
			Help: "Status notifications dispatched successfully.",
		}),
		notifyFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pupper_notifications_failed_total",
			Help: "Status notification attempts that failed.",
		}),
		outboxProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pupper_outbox_processed_total",
			Help: "Outbox jobs completed.",
		}),
		outboxFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pupper_outbox_failed_total",
			Help: "Outbox job attempts that failed.",
		}),
	}
	reg.MustRegister(c.httpStatus, c.requestLatency, c.dogsCreated, c.votesCast,
		c.appsSubmitted, c.appsDecided, c.notifySent, c.notifyFailed,
		c.outboxProcessed, c.outboxFailed)
	return c
}

func (c *Collector) RecordHTTPStatus(code int) {
	if c == nil {
		return
	}
	c.httpStatus.WithLabelValues(strconv.Itoa(code)).Inc()
}

func (c *Collector) RecordRequestLatency(d time.Duration) {
	if c == nil {
		return
	}
	c.requestLatency.Observe(d.Seconds())
}

func (c *Collector) RecordDogCreated() {
	if c == nil {
		return
	}
	c.dogsCreated.Inc()
}

func (c *Collector) RecordVoteCast() {
	if c == nil {
		return
	}
	c.votesCast.Inc()
}

func (c *Collector) RecordApplicationSubmitted() {
	if c == nil {
		return
	}
	c.appsSubmitted.Inc()
}

func (c *Collector) RecordApplicationDecided(status string) {
	if c == nil {
		return
	}
	c.appsDecided.WithLabelValues(status).Inc()
}

func (c *Collector) RecordNotificationSent() {
	if c == nil {
		return
	}
	c.notifySent.Inc()
}

func (c *Collector) RecordNotificationFailed() {
	if c == nil {
		return
	}
	c.notifyFailed.Inc()
}

func (c *Collector) RecordOutboxProcessed() {
	if c == nil {
		return
	}
	c.outboxProcessed.Inc()
}

func (c *Collector) RecordOutboxFailed() {
	if c == nil {
		return
	}
	c.outboxFailed.Inc()
}

// Handler returns the /metrics exposition handler for this collector's
// registry.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}

// statusRecorder captures the response code written downstream.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (w *statusRecorder) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Middleware records status codes and latency for every request.
func (c *Collector) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		c.RecordHTTPStatus(rec.status)
		c.RecordRequestLatency(time.Since(start))
	})
}
