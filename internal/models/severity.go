package models

import (
	"fmt"
	"strings"
)

// Severity ranks findings and log records. The zero value is SeverityInfo.
type Severity int

const (
	SeverityInfo Severity = iota
	SeverityWarn
	SeverityError
	SeverityCritical
)

// SeverityDisplayOrder lists severities from most to least urgent.
var SeverityDisplayOrder = []Severity{SeverityCritical, SeverityError, SeverityWarn, SeverityInfo}

func (s Severity) String() string {
	switch s {
	case SeverityInfo:
		return "INFO"
	case SeverityWarn:
		return "WARN"
	case SeverityError:
		return "ERROR"
	case SeverityCritical:
		return "CRITICAL"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// ParseSeverity maps a severity label onto the ranked enum. WARNING and CRIT
// are accepted as aliases. ok is false for unrecognised labels.
func ParseSeverity(value string) (Severity, bool) {
	switch strings.ToUpper(strings.TrimSpace(value)) {
	case "INFO":
		return SeverityInfo, true
	case "WARN", "WARNING":
		return SeverityWarn, true
	case "ERROR":
		return SeverityError, true
	case "CRITICAL", "CRIT":
		return SeverityCritical, true
	default:
		return SeverityInfo, false
	}
}

// MaxSeverity returns the most urgent of the supplied severities.
func MaxSeverity(first Severity, rest ...Severity) Severity {
	max := first
	for _, s := range rest {
		if s > max {
			max = s
		}
	}
	return max
}

// MarshalText renders the severity label used in exports.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a severity label; unknown labels are rejected.
func (s *Severity) UnmarshalText(text []byte) error {
	parsed, ok := ParseSeverity(string(text))
	if !ok {
		return fmt.Errorf("unknown severity %q", string(text))
	}
	*s = parsed
	return nil
}
