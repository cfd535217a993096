package metrics

import "github.com/prometheus/client_golang/prometheus"

const replicaSubsystem = "replica"

type replicaMetrics struct {
	accepted prometheus.Counter
	damaged  prometheus.Counter
}

func newReplicaMetrics() replicaMetrics {
	return replicaMetrics{
		accepted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: replicaSubsystem,
			Name:      "accepted_messages_total",
			Help:      "Number of stored messages",
		}),
		damaged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: replicaSubsystem,
			Name:      "damaged_entries_total",
			Help:      "Number of log entries referring to missing data",
		}),
	}
}

func (m replicaMetrics) register() {
	prometheus.MustRegister(m.accepted)
	prometheus.MustRegister(m.damaged)
}

func (m replicaMetrics) AddAcceptedMessages(n int) {
	m.accepted.Add(float64(n))
}

func (m replicaMetrics) AddDamagedEntries(n int) {
	m.damaged.Add(float64(n))
}
