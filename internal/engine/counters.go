package engine

import (
	"fmt"

	"github.com/miradorstack/ahsdp/internal/extractors"
	"github.com/miradorstack/ahsdp/internal/models"
)

// CounterFindingSource is attached to every finding raised from counters.pkg.
const CounterFindingSource = "diagnostics:counters.pkg"

// CounterEvaluator checks decoded counters against the layout's policies.
type CounterEvaluator struct {
	layout []extractors.CounterLayoutEntry
}

// NewCounterEvaluator evaluates against the built-in counters.pkg layout.
func NewCounterEvaluator() *CounterEvaluator {
	return &CounterEvaluator{layout: extractors.CounterLayout()}
}

// Evaluate walks the layout in declaration order. Metrics missing from diag are
// skipped, as are entries whose policy kind is not understood.
func (e *CounterEvaluator) Evaluate(diag *models.Diagnostics) []models.Finding {
	if diag.Empty() {
		return nil
	}

	findings := make([]models.Finding, 0)
	for _, entry := range e.layout {
		value, ok := diag.Counters.Value(entry.Component, entry.Metric)
		if !ok {
			continue
		}
		label := entry.Label()

		var title, details string
		switch policy := entry.Policy.(type) {
		case extractors.TelemetryRange:
			if value >= policy.Lower && value <= policy.Upper {
				continue
			}
			direction := "above"
			if value < policy.Lower {
				direction = "below"
			}
			title = label + " telemetry out of range"
			details = fmt.Sprintf("%s reading %d is %s the expected range %d-%d. Check thermal conditions and sensor health.",
				label, value, direction, policy.Lower, policy.Upper)
		case extractors.CounterThreshold:
			if value <= policy.Max {
				continue
			}
			title = label + " counter exceeded threshold"
			details = fmt.Sprintf("%s reported %d which exceeds allowed threshold %d. Investigate the component for faults.",
				label, value, policy.Max)
		default:
			continue
		}

		confidence := entry.Confidence
		if confidence == "" {
			confidence = models.ConfidenceMedium
		}
		findings = append(findings, models.Finding{
			Finding:    title,
			Details:    details,
			Severity:   entry.Severity,
			Confidence: confidence,
			Component:  entry.Component,
			Source:     CounterFindingSource,
		})
	}
	return findings
}
