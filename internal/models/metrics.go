package models

import "time"

// EngineMetrics is a lightweight snapshot of engine instrumentation exposed to
// dashboard consumers.
type EngineMetrics struct {
	EventsIngested           uint64    `json:"events_ingested"`
	DuplicatesCollapsed      uint64    `json:"duplicates_collapsed"`
	EventsRejected           uint64    `json:"events_rejected"`
	EventsInvalidated        uint64    `json:"events_invalidated"`
	Reconciliations          uint64    `json:"reconciliations"`
	AggregateRebuilds        uint64    `json:"aggregate_rebuilds"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
