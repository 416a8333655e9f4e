package metrics

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

// JobName groups pushed series in the Pushgateway.
const JobName = "weatheretl"

var (
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatheretl_api_calls_total",
			Help: "Total upstream API calls (geocoding, forecast)",
		},
		[]string{"endpoint", "status"},
	)

	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatheretl_api_latency_seconds",
			Help:    "Upstream API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint"},
	)

	PipelineRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatheretl_pipeline_runs_total",
			Help: "Pipeline runs by outcome; failure_kind is empty on success",
		},
		[]string{"outcome", "failure_kind"},
	)

	// ReadingsLoaded has no city label; pushes are grouped by city instead.
	ReadingsLoaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weatheretl_readings_loaded_total",
			Help: "Weather readings upserted",
		},
	)

	// LoadRowsAffected is the driver-reported row count of the last weather upsert.
	// MySQL counts an update as 2, so this is not a record count.
	LoadRowsAffected = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weatheretl_load_rows_affected",
			Help: "Rows affected reported by the last weather upsert",
		},
	)

	LegacyTablesMigrated = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "weatheretl_legacy_tables_migrated_total",
			Help: "Denormalized weather tables renamed to a legacy backup",
		},
	)

	LastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "weatheretl_last_success_timestamp_seconds",
			Help: "Unix time of the last successful pipeline run",
		},
	)
)

// Push sends the default registry to a Pushgateway, grouped by city.
func Push(ctx context.Context, client *http.Client, url, city string) error {
	return push.New(url, JobName).
		Client(client).
		Gatherer(prometheus.DefaultGatherer).
		Grouping("city", city).
		PushContext(ctx)
}
