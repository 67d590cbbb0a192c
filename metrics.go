package chit

import "github.com/prometheus/client_golang/prometheus"

var PatchesLoaded = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "chit",
	Name:      "patches_loaded_total",
	Help:      "Patch files registered by loads",
})

var PatchesRejected = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "chit",
	Name:      "patches_rejected_total",
	Help:      "Patch files that failed validation",
})

var VersionsMaterialized = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "chit",
	Name:      "versions_materialized_total",
	Help:      "Versions computed from their patches",
})

var VersionCheckpointHits = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "chit",
	Name:      "version_checkpoint_hits_total",
	Help:      "Versions taken from the index store instead of being recomputed",
})

var VersionCheckpointLookups = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "chit",
	Name:      "version_checkpoint_lookups_total",
	Help:      "Index store reads for a version checkpoint",
})

var CommitsCreated = prometheus.NewCounter(prometheus.CounterOpts{
	Namespace: "chit",
	Name:      "commits_total",
	Help:      "Commits written by this process",
})

var LoadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
	Namespace: "chit",
	Name:      "load_duration_seconds",
	Buckets:   []float64{0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
})

// Collectors lists the engine metrics for registration by the host.
func Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		PatchesLoaded,
		PatchesRejected,
		VersionsMaterialized,
		VersionCheckpointHits,
		VersionCheckpointLookups,
		CommitsCreated,
		LoadDuration,
	}
}
