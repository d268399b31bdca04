// Copyright 2025 Certen Protocol

// Package ledgermetrics exposes the Prometheus counters and histograms
// this core's components update as they run, registered against a
// package-level registry rather than the global default so a process
// embedding this core can compose it with its own metrics.
package ledgermetrics

import "github.com/prometheus/client_golang/prometheus"

// Registry is the registry every metric in this package is registered
// against.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		AppendLatencySeconds, AppendTotal,
		ValidatorRejectionsTotal,
		EpochBuildsTotal, EpochBuildLatencySeconds,
		HashBreaksDetectedTotal, OrphansDetectedTotal,
		ProofsGeneratedTotal, ExportsTotal,
	)
}

// AppendLatencySeconds measures how long a single Append call (validation
// through storage commit) takes.
var AppendLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
	Name:    "governance_ledger_append_latency_seconds",
	Help:    "Time to validate and persist a single event.",
	Buckets: prometheus.DefBuckets,
})

// AppendTotal counts completed appends by outcome (ok, rejected, error).
var AppendTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "governance_ledger_append_total",
	Help: "Appends attempted, labeled by outcome.",
}, []string{"outcome"})

// ValidatorRejectionsTotal counts write-time validator rejections by
// which validator rejected and why.
var ValidatorRejectionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "governance_ledger_validator_rejections_total",
	Help: "Write-time validator rejections, labeled by validator and reason.",
}, []string{"validator", "reason"})

// EpochBuildsTotal counts epoch boundary builds by outcome.
var EpochBuildsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "governance_ledger_epoch_builds_total",
	Help: "Epoch Merkle root builds, labeled by outcome.",
}, []string{"outcome"})

// EpochBuildLatencySeconds measures how long building and publishing an
// epoch root takes.
var EpochBuildLatencySeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
	Name:    "governance_ledger_epoch_build_latency_seconds",
	Help:    "Time to build and publish one epoch's Merkle root.",
	Buckets: prometheus.DefBuckets,
})

// HashBreaksDetectedTotal counts hash-chain defects found by category.
var HashBreaksDetectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "governance_ledger_hash_breaks_detected_total",
	Help: "Hash chain defects detected, labeled by category.",
}, []string{"category"})

// OrphansDetectedTotal counts two-phase intents found with no outcome.
var OrphansDetectedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "governance_ledger_orphans_detected_total",
	Help: "Intents found with no commit or failure outcome inside the configured timeout, labeled by branch.",
}, []string{"branch"})

// ProofsGeneratedTotal counts completeness proof generations by outcome.
var ProofsGeneratedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "governance_ledger_proofs_generated_total",
	Help: "Completeness proof generations, labeled by outcome.",
}, []string{"outcome"})

// ExportsTotal counts ledger export operations by outcome.
var ExportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
	Name: "governance_ledger_exports_total",
	Help: "Ledger export operations, labeled by outcome.",
}, []string{"outcome"})
