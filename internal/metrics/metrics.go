// Package metrics holds the process-wide atomic counters for the pipeline,
// a point-in-time Snapshot/derived-rate view, and a mirrored set of
// Prometheus collectors for external scraping. The atomic counters are the
// source of truth; Prometheus is a second write at the same call sites,
// never a read path, so Snapshot's invariants hold under relaxed atomics
// alone.
package metrics

import (
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics is a process-global singleton; construct one with New and pass it
// down to every component instead of reaching for package-level globals
// directly, so tests can create an isolated instance.
type Metrics struct {
	startTime time.Time
	registry  *prometheus.Registry

	eventsTotal   int64
	eventsPumpfun int64
	eventsRaydium int64
	eventsDropped int64

	queuePushes    int64
	queuePops      int64
	queueHighWater int64
	queueOverflows int64

	dbInsertsSuccess int64
	dbInsertsFailed  int64
	dbBatches        int64
	dbReconnects     int64

	totalEventLatencyUs int64
	totalDBLatencyUs    int64

	prom promCollectors
}

type promCollectors struct {
	eventsTotal   prometheus.Counter
	eventsByProto *prometheus.CounterVec
	eventsDropped prometheus.Counter

	queuePushes    prometheus.Counter
	queuePops      prometheus.Counter
	queueHighWater prometheus.Gauge
	queueOverflows prometheus.Counter

	dbInsertsSuccess prometheus.Counter
	dbInsertsFailed  prometheus.Counter
	dbBatches        prometheus.Counter
	dbReconnects     prometheus.Counter

	dbLatencyUs    prometheus.Histogram
	eventLatencyUs prometheus.Histogram
}

// New creates and registers a fresh metrics instance against its own
// Prometheus registry, so multiple instances (e.g. in tests) never collide
// on global collector registration.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		startTime: time.Now(),
		prom: promCollectors{
			eventsTotal: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "yurei_events_total",
				Help: "Total events popped and handled by the writer, across protocols.",
			}),
			eventsByProto: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "yurei_events_by_protocol_total",
				Help: "Decoded events, by protocol, counted before the queue push.",
			}, []string{"protocol"}),
			eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "yurei_events_dropped_total",
				Help: "Events dropped because the queue was closed on push.",
			}),
			queuePushes: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "yurei_queue_pushes_total",
				Help: "Successful pushes onto the event queue.",
			}),
			queuePops: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "yurei_queue_pops_total",
				Help: "Successful pops off the event queue.",
			}),
			queueHighWater: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "yurei_queue_high_water",
				Help: "Maximum observed event queue depth.",
			}),
			queueOverflows: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "yurei_queue_overflows_total",
				Help: "Reserved for future overflow accounting (currently always 0; pushes block instead of overflowing).",
			}),
			dbInsertsSuccess: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "yurei_db_inserts_success_total",
				Help: "Rows successfully inserted.",
			}),
			dbInsertsFailed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "yurei_db_inserts_failed_total",
				Help: "Batches dropped due to a command failure.",
			}),
			dbBatches: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "yurei_db_batches_total",
				Help: "Multi-row INSERT statements successfully committed.",
			}),
			dbReconnects: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "yurei_db_reconnects_total",
				Help: "Successful (re)connections to the database.",
			}),
			dbLatencyUs: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "yurei_db_flush_latency_us",
				Help:    "Wall-clock latency of a single flush's INSERT, in microseconds.",
				Buckets: prometheus.ExponentialBuckets(100, 2, 14),
			}),
			eventLatencyUs: prometheus.NewHistogram(prometheus.HistogramOpts{
				Name:    "yurei_event_latency_us",
				Help:    "Time from decode to enqueue, in microseconds.",
				Buckets: prometheus.ExponentialBuckets(10, 2, 14),
			}),
		},
	}
	reg.MustRegister(
		m.prom.eventsTotal, m.prom.eventsByProto, m.prom.eventsDropped,
		m.prom.queuePushes, m.prom.queuePops, m.prom.queueHighWater, m.prom.queueOverflows,
		m.prom.dbInsertsSuccess, m.prom.dbInsertsFailed, m.prom.dbBatches, m.prom.dbReconnects,
		m.prom.dbLatencyUs, m.prom.eventLatencyUs,
	)
	m.registry = reg
	return m
}

// Handler returns the HTTP handler to mount at /metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// --- event-path counters -----------------------------------------------

// IncEventsTotal records one event handled by the writer's main loop. The
// writer owns this counter; the per-protocol counters below are bumped at
// decode time instead, so the two views can briefly disagree while an
// event sits in the queue.
func (m *Metrics) IncEventsTotal() {
	atomic.AddInt64(&m.eventsTotal, 1)
	m.prom.eventsTotal.Inc()
}

// IncEventsPumpfun records one decoded Pump.fun trade. It is counted before
// the queue push, so a trade later dropped on a closed queue is included.
func (m *Metrics) IncEventsPumpfun() {
	atomic.AddInt64(&m.eventsPumpfun, 1)
	m.prom.eventsByProto.WithLabelValues("pumpfun").Inc()
}

// IncEventsRaydium records one decoded Raydium swap. It is counted before
// the queue push, so a swap later dropped on a closed queue is included.
func (m *Metrics) IncEventsRaydium() {
	atomic.AddInt64(&m.eventsRaydium, 1)
	m.prom.eventsByProto.WithLabelValues("raydium").Inc()
}

// IncEventsDropped records a decoded event dropped because the queue was
// closed on push.
func (m *Metrics) IncEventsDropped() {
	atomic.AddInt64(&m.eventsDropped, 1)
	m.prom.eventsDropped.Inc()
}

// AddEventLatencyUs accumulates decode-to-enqueue latency.
func (m *Metrics) AddEventLatencyUs(us int64) {
	atomic.AddInt64(&m.totalEventLatencyUs, us)
	m.prom.eventLatencyUs.Observe(float64(us))
}

// --- queue counters ------------------------------------------------------

// IncQueuePush records a successful push and updates the high-water mark
// via a CAS-retry loop, so it always reflects the true observed maximum
// even under concurrent pushes.
func (m *Metrics) IncQueuePush(sizeAfterPush int) {
	atomic.AddInt64(&m.queuePushes, 1)
	m.prom.queuePushes.Inc()
	for {
		cur := atomic.LoadInt64(&m.queueHighWater)
		if int64(sizeAfterPush) <= cur {
			return
		}
		if atomic.CompareAndSwapInt64(&m.queueHighWater, cur, int64(sizeAfterPush)) {
			m.prom.queueHighWater.Set(float64(sizeAfterPush))
			return
		}
	}
}

// IncQueuePop records a successful pop.
func (m *Metrics) IncQueuePop(sizeAfterPop int) {
	atomic.AddInt64(&m.queuePops, 1)
	m.prom.queuePops.Inc()
	_ = sizeAfterPop
}

// --- db counters -----------------------------------------------------

// AddDBInsertsSuccess records N rows committed in one flush.
func (m *Metrics) AddDBInsertsSuccess(n int) {
	atomic.AddInt64(&m.dbInsertsSuccess, int64(n))
	m.prom.dbInsertsSuccess.Add(float64(n))
}

// IncDBInsertsFailed records one dropped batch.
func (m *Metrics) IncDBInsertsFailed() {
	atomic.AddInt64(&m.dbInsertsFailed, 1)
	m.prom.dbInsertsFailed.Inc()
}

// IncDBBatches records one committed multi-row INSERT.
func (m *Metrics) IncDBBatches() {
	atomic.AddInt64(&m.dbBatches, 1)
	m.prom.dbBatches.Inc()
}

// IncDBReconnects records one successful (re)connection.
func (m *Metrics) IncDBReconnects() {
	atomic.AddInt64(&m.dbReconnects, 1)
	m.prom.dbReconnects.Inc()
}

// AddDBLatencyUs accumulates one flush's measured wall-clock latency.
func (m *Metrics) AddDBLatencyUs(us int64) {
	atomic.AddInt64(&m.totalDBLatencyUs, us)
	m.prom.dbLatencyUs.Observe(float64(us))
}

// --- snapshot -------------------------------------------------------------

// Snapshot is an atomically-read (per counter), point-in-time view of every
// counter plus derived rates.
type Snapshot struct {
	EventsTotal   int64
	EventsPumpfun int64
	EventsRaydium int64
	EventsDropped int64

	QueuePushes    int64
	QueuePops      int64
	QueueHighWater int64
	QueueOverflows int64

	DBInsertsSuccess int64
	DBInsertsFailed  int64
	DBBatches        int64
	DBReconnects     int64

	UptimeSeconds     float64
	EventsPerSecond   float64
	AvgEventLatencyUs float64
	AvgDBLatencyUs    float64
}

// Snapshot atomically reads every counter and derives uptime, throughput,
// and average latencies, guarding every division against a zero
// denominator.
func (m *Metrics) Snapshot() Snapshot {
	s := Snapshot{
		EventsTotal:      atomic.LoadInt64(&m.eventsTotal),
		EventsPumpfun:    atomic.LoadInt64(&m.eventsPumpfun),
		EventsRaydium:    atomic.LoadInt64(&m.eventsRaydium),
		EventsDropped:    atomic.LoadInt64(&m.eventsDropped),
		QueuePushes:      atomic.LoadInt64(&m.queuePushes),
		QueuePops:        atomic.LoadInt64(&m.queuePops),
		QueueHighWater:   atomic.LoadInt64(&m.queueHighWater),
		QueueOverflows:   atomic.LoadInt64(&m.queueOverflows),
		DBInsertsSuccess: atomic.LoadInt64(&m.dbInsertsSuccess),
		DBInsertsFailed:  atomic.LoadInt64(&m.dbInsertsFailed),
		DBBatches:        atomic.LoadInt64(&m.dbBatches),
		DBReconnects:     atomic.LoadInt64(&m.dbReconnects),
	}

	s.UptimeSeconds = time.Since(m.startTime).Seconds()
	if s.UptimeSeconds > 0 {
		s.EventsPerSecond = float64(s.EventsTotal) / s.UptimeSeconds
	}

	totalEventLatency := atomic.LoadInt64(&m.totalEventLatencyUs)
	if s.EventsTotal > 0 {
		s.AvgEventLatencyUs = float64(totalEventLatency) / float64(s.EventsTotal)
	}

	totalDBLatency := atomic.LoadInt64(&m.totalDBLatencyUs)
	if s.DBBatches > 0 {
		s.AvgDBLatencyUs = float64(totalDBLatency) / float64(s.DBBatches)
	}

	return s
}

// LogSummary formats a Snapshot into a multi-line record and returns it so
// callers can both print and log it.
func (s Snapshot) LogSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "uptime=%.1fs events_total=%d (pumpfun=%d raydium=%d dropped=%d) events/sec=%.2f\n",
		s.UptimeSeconds, s.EventsTotal, s.EventsPumpfun, s.EventsRaydium, s.EventsDropped, s.EventsPerSecond)
	fmt.Fprintf(&b, "queue pushes=%d pops=%d high_water=%d\n",
		s.QueuePushes, s.QueuePops, s.QueueHighWater)
	fmt.Fprintf(&b, "db success=%d failed=%d batches=%d reconnects=%d avg_latency_us=%.1f avg_event_latency_us=%.1f",
		s.DBInsertsSuccess, s.DBInsertsFailed, s.DBBatches, s.DBReconnects, s.AvgDBLatencyUs, s.AvgEventLatencyUs)
	return b.String()
}
