package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the prediction service

var (
	// API Call metrics
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polynba_api_calls_total",
			Help: "Total number of upstream API calls",
		},
		[]string{"provider", "endpoint", "status"},
	)

	APICallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polynba_api_call_duration_seconds",
			Help:    "Duration of upstream API calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"provider", "endpoint"},
	)

	// Database metrics
	DBConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "polynba_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	DBConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "polynba_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polynba_cache_hits_total",
			Help: "Total number of cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "polynba_cache_misses_total",
			Help: "Total number of cache misses",
		},
	)

	// Prediction metrics
	PredictionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polynba_predictions_total",
			Help: "Total number of prediction runs",
		},
		[]string{"status"},
	)

	PredictionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polynba_prediction_duration_seconds",
			Help:    "Duration of a full per-game prediction run in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10},
		},
	)

	PredictionConfidence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polynba_prediction_confidence",
			Help:    "Distribution of prediction confidence scores",
			Buckets: prometheus.LinearBuckets(0, 0.1, 11),
		},
	)

	ModelMarketDivergence = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polynba_model_market_divergence",
			Help:    "Absolute difference between model and market probability",
			Buckets: prometheus.LinearBuckets(0, 0.05, 11),
		},
	)

	ValueSignalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polynba_value_signals_total",
			Help: "Total number of value signals emitted",
		},
		[]string{"side"},
	)

	PredictionsSettled = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polynba_predictions_settled_total",
			Help: "Total number of predictions settled against final scores",
		},
		[]string{"result"},
	)

	// Sync metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polynba_sync_operations_total",
			Help: "Total number of sync operations",
		},
		[]string{"type", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "polynba_sync_duration_seconds",
			Help:    "Duration of sync operations in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"type"},
	)

	TeamsIngested = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "polynba_teams_ingested_total",
			Help: "Total number of teams in database",
		},
	)

	GamesIngested = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "polynba_games_ingested_total",
			Help: "Total number of games in database",
		},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polynba_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	LastSuccessfulSync = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "polynba_last_successful_sync_timestamp",
			Help: "Timestamp of last successful sync operation",
		},
	)
)

// RecordAPICall records an upstream API call
func RecordAPICall(provider, endpoint, status string, duration float64) {
	APICallsTotal.WithLabelValues(provider, endpoint, status).Inc()
	APICallDuration.WithLabelValues(provider, endpoint).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordPrediction records a prediction run outcome
func RecordPrediction(status string, duration, confidence, divergence float64) {
	PredictionsTotal.WithLabelValues(status).Inc()
	if status == "success" {
		PredictionDuration.Observe(duration)
		PredictionConfidence.Observe(confidence)
		ModelMarketDivergence.Observe(divergence)
	}
}

// RecordValueSignal records an emitted value signal
func RecordValueSignal(side string) {
	ValueSignalsTotal.WithLabelValues(side).Inc()
}

// RecordSettlement records a settled prediction as correct or incorrect
func RecordSettlement(correct bool) {
	result := "incorrect"
	if correct {
		result = "correct"
	}
	PredictionsSettled.WithLabelValues(result).Inc()
}

// RecordSync records a sync operation
func RecordSync(syncType, status string, duration float64) {
	SyncOperationsTotal.WithLabelValues(syncType, status).Inc()
	SyncDuration.WithLabelValues(syncType).Observe(duration)

	if status == "success" {
		LastSuccessfulSync.SetToCurrentTime()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateDBConnectionStats updates database connection pool statistics
func UpdateDBConnectionStats(active, idle int32) {
	DBConnectionsActive.Set(float64(active))
	DBConnectionsIdle.Set(float64(idle))
}

// UpdateIngestionStats updates ingestion statistics
func UpdateIngestionStats(teams, games int64) {
	TeamsIngested.Set(float64(teams))
	GamesIngested.Set(float64(games))
}
