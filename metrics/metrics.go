// Package metrics defines the prometheus instrumentation a Session
// reports through (SPEC_FULL.md §3.1). The metric names and the
// counter/histogram split follow the shape of m-lab-tcp-info's
// metrics package, adapted from one global package-level registration
// (fine for a long-running collector binary) to a per-Recorder value a
// library can construct once per process and share across sessions,
// since an embedded client library must not panic a host application
// by double-registering collectors across multiple New calls.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Recorder owns every collector this client reports. session.New
// replaces a nil *Recorder with NoOp, which returns a Recorder whose
// methods touch real (but unregistered) collectors, so callers that
// don't care about metrics don't need nil checks at every call site.
type Recorder struct {
	sessionsOpened    prometheus.Counter
	queriesRun        *prometheus.CounterVec
	recordsPulled     prometheus.Counter
	bytesSent         prometheus.Counter
	bytesReceived     prometheus.Counter
	handshakeDuration prometheus.Histogram
}

// NewRecorder builds a Recorder and registers its collectors with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	r := &Recorder{
		sessionsOpened: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mgclient_sessions_opened_total",
			Help: "Number of sessions that completed the handshake and INIT successfully.",
		}),
		queriesRun: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mgclient_queries_run_total",
			Help: "Number of RUN messages sent, labeled by outcome.",
		}, []string{"outcome"}),
		recordsPulled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mgclient_records_pulled_total",
			Help: "Number of RECORD messages received across all sessions.",
		}),
		bytesSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mgclient_bytes_sent_total",
			Help: "Bytes written to the wire across all sessions.",
		}),
		bytesReceived: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mgclient_bytes_received_total",
			Help: "Bytes read from the wire across all sessions.",
		}),
		handshakeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mgclient_handshake_duration_seconds",
			Help:    "Wall-clock time spent in the magic/version handshake.",
			Buckets: prometheus.DefBuckets,
		}),
	}
	reg.MustRegister(
		r.sessionsOpened,
		r.queriesRun,
		r.recordsPulled,
		r.bytesSent,
		r.bytesReceived,
		r.handshakeDuration,
	)
	return r
}

// NoOp returns a Recorder backed by unregistered collectors, for
// callers (and most tests) that don't want to wire up a registry.
func NoOp() *Recorder {
	return &Recorder{
		sessionsOpened:    prometheus.NewCounter(prometheus.CounterOpts{Name: "noop_sessions_opened"}),
		queriesRun:        prometheus.NewCounterVec(prometheus.CounterOpts{Name: "noop_queries_run"}, []string{"outcome"}),
		recordsPulled:     prometheus.NewCounter(prometheus.CounterOpts{Name: "noop_records_pulled"}),
		bytesSent:         prometheus.NewCounter(prometheus.CounterOpts{Name: "noop_bytes_sent"}),
		bytesReceived:     prometheus.NewCounter(prometheus.CounterOpts{Name: "noop_bytes_received"}),
		handshakeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{Name: "noop_handshake_duration"}),
	}
}

// SessionOpened records a successfully completed handshake+INIT.
func (r *Recorder) SessionOpened() { r.sessionsOpened.Inc() }

// QueryRun records one RUN outcome ("ok" or "failure").
func (r *Recorder) QueryRun(outcome string) { r.queriesRun.WithLabelValues(outcome).Inc() }

// RecordPulled records one RECORD message received.
func (r *Recorder) RecordPulled() { r.recordsPulled.Inc() }

// BytesSent adds n to the cumulative bytes-sent counter.
func (r *Recorder) BytesSent(n int) { r.bytesSent.Add(float64(n)) }

// BytesReceived adds n to the cumulative bytes-received counter.
func (r *Recorder) BytesReceived(n int) { r.bytesReceived.Add(float64(n)) }

// HandshakeObserved records the wall-clock duration of the magic/version
// handshake, from its start to its completion. Callers measure the duration themselves
// and pass the start time; this keeps the metrics package free of any
// dependency on when "now" is evaluated elsewhere.
func (r *Recorder) HandshakeObserved(start time.Time) {
	r.handshakeDuration.Observe(time.Since(start).Seconds())
}
