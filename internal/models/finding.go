package models

// Finding is a single anomaly surfaced by an evaluator. Findings are value
// objects: they are built once and only aggregated or serialised afterwards.
type Finding struct {
	Finding    string   `json:"finding"`
	Details    string   `json:"details"`
	Severity   Severity `json:"severity"`
	Confidence string   `json:"confidence"`
	Component  string   `json:"component"`
	Source     string   `json:"source,omitempty"`
	Timestamp  string   `json:"timestamp,omitempty"`
}

// Confidence labels produced by the built-in tables.
const (
	ConfidenceHigh   = "High"
	ConfidenceMedium = "Medium"
	ConfidenceLow    = "Low"
)

// HighestSeverity returns the most urgent severity in findings and false when
// the slice is empty.
func HighestSeverity(findings []Finding) (Severity, bool) {
	if len(findings) == 0 {
		return SeverityInfo, false
	}
	max := findings[0].Severity
	for _, f := range findings[1:] {
		max = MaxSeverity(max, f.Severity)
	}
	return max, true
}
