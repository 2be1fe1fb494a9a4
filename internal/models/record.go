package models

// LogRecord is one normalised line of BlackBox log text.
type LogRecord struct {
	Source    string   `json:"source"`
	Line      int      `json:"line"`
	Message   string   `json:"message"`
	Severity  Severity `json:"severity"`
	Timestamp string   `json:"timestamp,omitempty"`
}
