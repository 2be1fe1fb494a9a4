package extractors

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/miradorstack/ahsdp/internal/models"
)

// severityTiers is checked top to bottom; the first tier with a keyword
// contained in the lowercased line wins.
var severityTiers = []struct {
	keywords []string
	severity models.Severity
}{
	{[]string{"critical", "fatal", "panic", "unrecoverable", "catastrophic", "failed", "failure", "asr"}, models.SeverityError},
	{[]string{"warn", "caution", "degraded", "attention"}, models.SeverityWarn},
	{[]string{"info", "informational", "notice", "ok", "started"}, models.SeverityInfo},
}

var timestampPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}:\d{2}`),
	regexp.MustCompile(`\d{2}/\d{2}/\d{4}\s+\d{2}:\d{2}:\d{2}`),
	regexp.MustCompile(`\d{2}/\d{2}/\d{2}\s+\d{2}:\d{2}:\d{2}`),
}

// ClassifySeverity assigns INFO, WARN or ERROR to a raw log line using keyword
// heuristics. It never returns CRITICAL.
func ClassifySeverity(line string) models.Severity {
	lower := strings.ToLower(line)
	for _, tier := range severityTiers {
		for _, word := range tier.keywords {
			if strings.Contains(lower, word) {
				return tier.severity
			}
		}
	}
	if strings.Contains(lower, "err") {
		return models.SeverityError
	}
	return models.SeverityInfo
}

// ExtractTimestamp returns the first recognised timestamp in line.
func ExtractTimestamp(line string) (string, bool) {
	for _, pattern := range timestampPatterns {
		if match := pattern.FindString(line); match != "" {
			return match, true
		}
	}
	return "", false
}

// ParseLines converts text into log records attributed to source. Line numbers
// count every physical line, including the blank ones that are skipped.
func ParseLines(source, text string) []models.LogRecord {
	lines := SplitLines(text)
	records := make([]models.LogRecord, 0, len(lines))
	for idx, raw := range lines {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}
		rec := models.LogRecord{
			Source:   source,
			Line:     idx + 1,
			Message:  line,
			Severity: ClassifySeverity(line),
		}
		if ts, ok := ExtractTimestamp(line); ok {
			rec.Timestamp = ts
		}
		records = append(records, rec)
	}
	return records
}

// SplitLines splits on the universal line boundaries: LF, CRLF, lone CR,
// VT, FF, the FS/GS/RS separators, NEL, LINE SEPARATOR and PARAGRAPH
// SEPARATOR. A trailing boundary does not produce an extra empty line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := make([]string, 0, strings.Count(text, "\n")+1)
	start := 0
	for i, r := range text {
		if i < start {
			continue
		}
		switch r {
		case '\r':
			lines = append(lines, text[start:i])
			start = i + 1
			if start < len(text) && text[start] == '\n' {
				start++
			}
		case '\n', '\v', '\f', '\x1c', '\x1d', '\x1e', '\u0085', '\u2028', '\u2029':
			lines = append(lines, text[start:i])
			start = i + utf8.RuneLen(r)
		}
	}
	if start < len(text) {
		lines = append(lines, text[start:])
	}
	return lines
}
