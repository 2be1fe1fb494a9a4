package summary

import "github.com/miradorstack/ahsdp/internal/models"

// Verdict is the headline of the executive summary.
type Verdict string

const (
	VerdictIssues         Verdict = "Issues detected"
	VerdictWarnings       Verdict = "Warnings detected"
	VerdictElevatedEvents Verdict = "Elevated events detected"
	VerdictEventWarnings  Verdict = "Warnings observed"
	VerdictClean          Verdict = "No issues detected"
)

// Executive condenses a run into one line worth of facts.
type Executive struct {
	Verdict           Verdict `json:"verdict"`
	EventErrors       int     `json:"event_errors"`
	EventWarnings     int     `json:"event_warnings"`
	InventoryDetected bool    `json:"inventory_detected"`
	BBEnabled         bool    `json:"bb_enabled"`
	BBParsed          bool    `json:"bb_parsed"`
}

// BuildExecutive ranks findings ahead of raw event severities when picking a
// verdict.
func BuildExecutive(findings []models.Finding, events []models.LogRecord, inventoryDetected bool, run RunContext) Executive {
	exec := Executive{
		InventoryDetected: inventoryDetected,
		BBEnabled:         run.BBEnabled,
		BBParsed:          run.BBParsed,
	}
	for _, evt := range events {
		switch evt.Severity {
		case models.SeverityError, models.SeverityCritical:
			exec.EventErrors++
		case models.SeverityWarn:
			exec.EventWarnings++
		}
	}

	highest, found := models.HighestSeverity(findings)
	switch {
	case found && highest >= models.SeverityError:
		exec.Verdict = VerdictIssues
	case found && highest == models.SeverityWarn:
		exec.Verdict = VerdictWarnings
	case exec.EventErrors > 0:
		exec.Verdict = VerdictElevatedEvents
	case exec.EventWarnings > 0:
		exec.Verdict = VerdictEventWarnings
	default:
		exec.Verdict = VerdictClean
	}
	return exec
}
