package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/ahsdp/internal/models"
)

const (
	// OutcomeSuccess labels bundles parsed end to end.
	OutcomeSuccess = "success"
	// OutcomeNoArtifacts labels bundles with nothing recognisable inside.
	OutcomeNoArtifacts = "no_artifacts"
	// OutcomeError labels bundles that failed for any other reason.
	OutcomeError = "error"
)

// Finding origins.
const (
	OriginCounters = "counters"
	OriginText     = "text"
)

var (
	runsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ahsdp",
			Name:      "runs_total",
			Help:      "Total number of bundles processed, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	runDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "ahsdp",
			Name:      "run_seconds",
			Help:      "Bundle processing latency in seconds.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	findingsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ahsdp",
			Name:      "findings_total",
			Help:      "Findings raised, partitioned by origin and severity.",
		},
		[]string{"origin", "severity"},
	)

	recordsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ahsdp",
			Name:      "log_records_total",
			Help:      "BlackBox log records normalised.",
		},
	)

	unknownOffsetsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "ahsdp",
			Name:      "counter_unknown_offsets_total",
			Help:      "Non-zero counters.pkg words found at offsets outside the known layout.",
		},
	)

	lastRunTimestamp = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "ahsdp",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last bundle finished processing.",
		},
	)
)

// Register attaches ahsdp collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		runsTotal,
		runDurationSeconds,
		findingsTotal,
		recordsTotal,
		unknownOffsetsTotal,
		lastRunTimestamp,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveRun records a bundle's duration and outcome label.
func ObserveRun(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError && label != OutcomeNoArtifacts {
		label = OutcomeSuccess
	}
	runsTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	runDurationSeconds.Observe(duration.Seconds())
	lastRunTimestamp.SetToCurrentTime()
}

// ObserveFindings counts findings by severity under origin.
func ObserveFindings(origin string, findings []models.Finding) {
	for _, f := range findings {
		findingsTotal.WithLabelValues(origin, f.Severity.String()).Inc()
	}
}

// ObserveRecords counts normalised log records.
func ObserveRecords(n int) {
	if n > 0 {
		recordsTotal.Add(float64(n))
	}
}

// ObserveDiagnostics counts unknown counter offsets in a decoded buffer.
func ObserveDiagnostics(diag *models.Diagnostics) {
	if diag == nil || len(diag.Unknown) == 0 {
		return
	}
	unknownOffsetsTotal.Add(float64(len(diag.Unknown)))
}

// WriteTextfile writes everything gathered from g to path in the text
// exposition format read by the node exporter textfile collector.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
