package metrics

import "github.com/prometheus/client_golang/prometheus"

// Ingest stage labels.
const (
	StageShingle   = "shingle"
	StageMinhash   = "minhash"
	StageBucketize = "bucketize"
	StageDatabase  = "database"
)

// Ingest outcome labels.
const (
	OutcomeCreated  = "created"
	OutcomeExisting = "existing"
	OutcomeError    = "error"
)

// Similarity index Prometheus metrics.
var (
	IngestStageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "lshdex",
			Name:      "ingest_stage_duration_seconds",
			Help:      "Document ingest duration per pipeline stage in seconds",
			Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		},
		[]string{"stage"},
	)

	IngestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lshdex",
			Name:      "ingest_total",
			Help:      "Total document ingests by outcome",
		},
		[]string{"outcome"},
	)

	NeighborCandidates = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "lshdex",
			Name:      "neighbor_candidates",
			Help:      "Number of distinct candidates found per neighbor query",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
		},
	)

	NeighborFallbackTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lshdex",
			Name:      "neighbor_band_fallback_total",
			Help:      "Candidates scored by band agreement because their signature was not stored",
		},
	)

	DatasetCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "lshdex",
			Name:      "dataset_cache_total",
			Help:      "Dataset config cache hits and misses",
		},
		[]string{"result"}, // "hit" / "miss"
	)

	DatasetKeyCollisionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lshdex",
			Name:      "dataset_key_collisions_total",
			Help:      "Candidate dataset keys skipped because another file holds them",
		},
	)
)

var lshMetricsRegistered bool

// RegisterLSHMetrics registers the similarity index metrics. Must be called once from main.
func RegisterLSHMetrics() {
	if lshMetricsRegistered {
		return
	}
	prometheus.MustRegister(IngestStageDuration)
	prometheus.MustRegister(IngestTotal)
	prometheus.MustRegister(NeighborCandidates)
	prometheus.MustRegister(NeighborFallbackTotal)
	prometheus.MustRegister(DatasetCacheTotal)
	prometheus.MustRegister(DatasetKeyCollisionsTotal)
	lshMetricsRegistered = true
}
