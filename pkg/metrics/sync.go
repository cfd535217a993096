package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	syncSubsystem = "sync"

	commandLabelKey = "command"
	successLabelKey = "success"
)

type syncMetrics struct {
	passes          prometheus.Counter
	pulledLeaves    prometheus.Counter
	refusedRequests prometheus.Counter
	peers           prometheus.Gauge
	requestDuration *prometheus.HistogramVec
}

func newSyncMetrics() syncMetrics {
	return syncMetrics{
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: syncSubsystem,
			Name:      "passes_total",
			Help:      "Number of sync passes",
		}),
		pulledLeaves: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: syncSubsystem,
			Name:      "pulled_leaves_total",
			Help:      "Number of messages pulled from the peers",
		}),
		refusedRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: syncSubsystem,
			Name:      "refused_requests_total",
			Help:      "Number of peer requests refused because of the full queue",
		}),
		peers: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: syncSubsystem,
			Name:      "peers",
			Help:      "Number of attached peers",
		}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: syncSubsystem,
			Name:      "request_duration_seconds",
			Help:      "Peer request handling time",
		}, []string{commandLabelKey, successLabelKey}),
	}
}

func (m syncMetrics) register() {
	prometheus.MustRegister(m.passes)
	prometheus.MustRegister(m.pulledLeaves)
	prometheus.MustRegister(m.refusedRequests)
	prometheus.MustRegister(m.peers)
	prometheus.MustRegister(m.requestDuration)
}

func (m syncMetrics) IncSyncPasses() {
	m.passes.Inc()
}

func (m syncMetrics) AddPulledLeaves(n int) {
	m.pulledLeaves.Add(float64(n))
}

func (m syncMetrics) IncRefusedRequests() {
	m.refusedRequests.Inc()
}

func (m syncMetrics) ObserveRequest(cmd string, d time.Duration, success bool) {
	m.requestDuration.With(prometheus.Labels{
		commandLabelKey: cmd,
		successLabelKey: strconv.FormatBool(success),
	}).Observe(d.Seconds())
}

func (m syncMetrics) SetPeers(n int) {
	m.peers.Set(float64(n))
}
