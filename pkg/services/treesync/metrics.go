package treesync

import "time"

// Metrics collects sync statistics.
type Metrics interface {
	IncSyncPasses()
	AddPulledLeaves(n int)
	IncRefusedRequests()
	ObserveRequest(cmd string, d time.Duration, success bool)
	SetPeers(n int)
}

type noopMetrics struct{}

func (noopMetrics) IncSyncPasses()                             {}
func (noopMetrics) AddPulledLeaves(int)                        {}
func (noopMetrics) IncRefusedRequests()                        {}
func (noopMetrics) ObserveRequest(string, time.Duration, bool) {}
func (noopMetrics) SetPeers(int)                               {}
