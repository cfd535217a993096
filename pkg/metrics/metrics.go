package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "cryptolalia_node"

// NodeMetrics is a set of the node collectors.
type NodeMetrics struct {
	syncMetrics
	replicaMetrics
	stateMetrics
}

// NewNodeMetrics creates and registers node collectors.
func NewNodeMetrics(version string) *NodeMetrics {
	sync := newSyncMetrics()
	sync.register()

	replica := newReplicaMetrics()
	replica.register()

	state := newStateMetrics()
	state.register()

	v := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   namespace,
		Name:        "version",
		Help:        "Node version",
		ConstLabels: prometheus.Labels{"version": version},
	})
	prometheus.MustRegister(v)
	v.Set(1)

	return &NodeMetrics{
		syncMetrics:    sync,
		replicaMetrics: replica,
		stateMetrics:   state,
	}
}
