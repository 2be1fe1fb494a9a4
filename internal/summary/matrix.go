// Package summary rolls findings up into per-component health.
package summary

import (
	"github.com/miradorstack/ahsdp/internal/models"
)

// DefaultComponents are always listed, in this order, ahead of any component
// only seen in findings.
var DefaultComponents = []string{
	"System Board",
	"Power Supply",
	"Cooling",
	"Storage",
	"Networking",
}

// generalComponent collects findings that carry no component.
const generalComponent = "General"

// componentAliases folds counters.pkg component keys into the hardware
// categories the matrix reports on.
var componentAliases = map[string]string{
	"storage":  "Storage",
	"fan":      "Cooling",
	"thermal":  "Cooling",
	"power":    "Power Supply",
	"network":  "Networking",
	"firmware": "Firmware",
}

// Status is the health verdict for one component.
type Status string

const (
	StatusError   Status = "error"
	StatusWarn    Status = "warn"
	StatusOK      Status = "ok"
	StatusMissing Status = "missing"
)

// RunContext describes which stages ran, which decides whether a component
// without findings had any telemetry to look at.
type RunContext struct {
	FaultsEnabled bool
	BBEnabled     bool
	BBParsed      bool
	EventCount    int
}

// ComponentHealth is one row of the component matrix.
type ComponentHealth struct {
	Component        string                  `json:"component"`
	Status           Status                  `json:"status"`
	Counts           map[models.Severity]int `json:"counts,omitempty"`
	TotalFindings    int                     `json:"total_findings,omitempty"`
	TelemetryMissing bool                    `json:"telemetry_missing,omitempty"`
}

// Matrix is the ordered component matrix.
type Matrix []ComponentHealth

// BuildMatrix groups findings by component and derives each component's
// status.
func BuildMatrix(findings []models.Finding, run RunContext) Matrix {
	order := append([]string(nil), DefaultComponents...)
	stats := make(map[string]*componentAggregate, len(order))
	for _, component := range order {
		ensureAggregate(stats, component)
	}

	for _, f := range findings {
		component := CanonicalComponent(f.Component)
		if _, ok := stats[component]; !ok {
			order = append(order, component)
		}
		agg := ensureAggregate(stats, component)
		agg.counts[f.Severity]++
		agg.total++
	}

	matrix := make(Matrix, 0, len(order))
	for _, component := range order {
		matrix = append(matrix, stats[component].health(component, run))
	}
	return matrix
}

// CanonicalComponent maps a finding's component to its matrix row.
func CanonicalComponent(component string) string {
	if component == "" {
		return generalComponent
	}
	if alias, ok := componentAliases[component]; ok {
		return alias
	}
	return component
}

type componentAggregate struct {
	counts map[models.Severity]int
	total  int
}

func ensureAggregate(m map[string]*componentAggregate, component string) *componentAggregate {
	agg, ok := m[component]
	if !ok {
		agg = &componentAggregate{counts: make(map[models.Severity]int)}
		m[component] = agg
	}
	return agg
}

func (agg *componentAggregate) health(component string, run RunContext) ComponentHealth {
	telemetry := agg.total > 0 || hasBaseTelemetry(component, run)

	entry := ComponentHealth{Component: component, TelemetryMissing: !telemetry}
	switch {
	case agg.counts[models.SeverityError] > 0 || agg.counts[models.SeverityCritical] > 0:
		entry.Status = StatusError
	case agg.counts[models.SeverityWarn] > 0:
		entry.Status = StatusWarn
	case telemetry:
		entry.Status = StatusOK
	default:
		entry.Status = StatusMissing
	}
	if agg.total > 0 {
		entry.Counts = make(map[models.Severity]int, len(agg.counts))
		for sev, n := range agg.counts {
			entry.Counts[sev] = n
		}
		entry.TotalFindings = agg.total
	}
	return entry
}

// hasBaseTelemetry reports whether a clean component was actually observed.
// Only the System Board is covered by the BlackBox scan.
func hasBaseTelemetry(component string, run RunContext) bool {
	if component != "System Board" {
		return false
	}
	return run.FaultsEnabled && run.BBEnabled && run.BBParsed && run.EventCount > 0
}
