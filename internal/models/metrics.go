package models

import "time"

// SystemMetrics is a JSON snapshot of the in-process counters.
type SystemMetrics struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	ReplicationsApplied      uint64    `json:"replications_applied"`
	ReplicationsRejected     uint64    `json:"replications_rejected"`
	ReplicasCreated          uint64    `json:"replicas_created"`
	Substitutions            uint64    `json:"substitutions"`
	FreeSubstitutions        uint64    `json:"free_substitutions"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
