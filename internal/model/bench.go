package model

import "time"

// BenchmarkRun is one recorded harness execution: the index parameters it
// ran with and the metrics it measured. Runs are persisted so the
// comparator can diff versions offline.
type BenchmarkRun struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Params    map[string]int     `json:"params"`  // lists, probe_budget, top_k, ...
	Metrics   map[string]float64 `json:"metrics"` // latency_ms, recall, throughput, ...
	CreatedAt time.Time          `json:"created_at"`
}
