package engine

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/miradorstack/ahsdp/internal/models"
)

func findComponent(findings []models.Finding, component string) (models.Finding, bool) {
	for _, f := range findings {
		if f.Component == component {
			return f, true
		}
	}
	return models.Finding{}, false
}

func TestTextRulesPowerSupplyFailure(t *testing.T) {
	engine := DefaultTextRuleEngine(nil)
	findings := engine.Evaluate([]models.LogRecord{{
		Source:   "log",
		Line:     1,
		Message:  "Power Supply Failure detected in PSU bay 1",
		Severity: models.SeverityWarn,
	}})

	f, ok := findComponent(findings, "Power Supply")
	if !ok {
		t.Fatalf("expected Power Supply finding, got %+v", findings)
	}
	if f.Severity != models.SeverityError {
		t.Fatalf("expected ERROR, got %s", f.Severity)
	}
	if f.Source != "log" {
		t.Fatalf("expected source to propagate, got %q", f.Source)
	}
}

func TestTextRulesSeverityEscalation(t *testing.T) {
	engine := DefaultTextRuleEngine(nil)

	findings := engine.Evaluate([]models.LogRecord{{Source: "log", Message: "FATAL: DIMM 3 uncorrectable fault", Severity: models.SeverityInfo}})
	f, ok := findComponent(findings, "Memory")
	if !ok || f.Severity != models.SeverityError {
		t.Fatalf("expected escalated memory finding, got %+v", findings)
	}

	findings = engine.Evaluate([]models.LogRecord{{Source: "log", Message: "AC Power Lost on bay 2", Severity: models.SeverityInfo}})
	f, ok = findComponent(findings, "Power Supply")
	if !ok || f.Severity != models.SeverityError {
		t.Fatalf("expected rule default to hold, got %+v", findings)
	}

	findings = engine.Evaluate([]models.LogRecord{{Source: "log", Message: "Fan 2 degraded", Severity: models.SeverityCritical}})
	f, ok = findComponent(findings, "Cooling")
	if !ok || f.Severity != models.SeverityCritical {
		t.Fatalf("expected record severity to win, got %+v", findings)
	}
}

func TestTextRulesMultipleComponents(t *testing.T) {
	engine := DefaultTextRuleEngine(nil)
	findings := engine.Evaluate([]models.LogRecord{{
		Source:    "bb",
		Message:   "System Board PCH reported thermal shutdown",
		Severity:  models.SeverityWarn,
		Timestamp: "2024-03-01 10:00:00",
	}})

	board, ok := findComponent(findings, "System Board")
	if !ok {
		t.Fatalf("expected System Board finding, got %+v", findings)
	}
	if _, ok := findComponent(findings, "Cooling"); !ok {
		t.Fatalf("expected Cooling finding, got %+v", findings)
	}
	if findings[0].Component != "System Board" {
		t.Fatalf("expected rule order, first component %q", findings[0].Component)
	}
	if board.Timestamp != "2024-03-01 10:00:00" {
		t.Fatalf("expected timestamp to propagate, got %q", board.Timestamp)
	}
}

func TestTextRulesRecordOrderWithinRule(t *testing.T) {
	engine := DefaultTextRuleEngine(nil)
	records := []models.LogRecord{
		{Source: "a", Line: 1, Message: "PSU 1 failed"},
		{Source: "a", Line: 2, Message: "System Board fault"},
		{Source: "a", Line: 3, Message: "PSU 2 removed"},
	}
	findings := engine.Evaluate(records)
	if len(findings) != 3 {
		t.Fatalf("expected 3 findings, got %+v", findings)
	}
	if findings[0].Component != "System Board" {
		t.Fatalf("expected board rule first, got %q", findings[0].Component)
	}
	if findings[1].Details != "PSU 1 failed" || findings[2].Details != "PSU 2 removed" {
		t.Fatalf("expected record order within rule, got %+v", findings[1:])
	}
}

func TestTextRulesIgnoresEmptyAndUnmatched(t *testing.T) {
	engine := DefaultTextRuleEngine(nil)
	findings := engine.Evaluate([]models.LogRecord{
		{Source: "log", Message: ""},
		{Source: "log", Message: "Server powered on by user"},
	})
	if len(findings) != 0 {
		t.Fatalf("expected no findings, got %+v", findings)
	}
	if findings := engine.Evaluate(nil); len(findings) != 0 {
		t.Fatalf("expected no findings for nil records")
	}
}

func TestTextRulesTruncatesDetails(t *testing.T) {
	engine := DefaultTextRuleEngine(nil)
	message := "System Board error " + strings.Repeat("x", 400)
	findings := engine.Evaluate([]models.LogRecord{{Source: "log", Message: message}})
	if len(findings) == 0 {
		t.Fatalf("expected a finding")
	}
	details := findings[0].Details
	if len(details) != 300 || !strings.HasSuffix(details, "...") {
		t.Fatalf("unexpected details length %d", len(details))
	}
}

func TestNewTextRuleEngineLoadsPack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yaml")
	pack := `
rules:
  - component: "RAID Controller"
    finding: "Controller cache fault detected"
    severity: WARN
    confidence: Medium
    patterns: ['\bcache module\b.*(fail|error)']
`
	if err := os.WriteFile(path, []byte(pack), 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}

	engine, err := NewTextRuleEngine(path, nil)
	if err != nil {
		t.Fatalf("NewTextRuleEngine: %v", err)
	}
	rules := engine.Rules()
	if len(rules) != len(defaultRules)+1 {
		t.Fatalf("expected defaults plus one rule, got %d", len(rules))
	}
	if rules[len(rules)-1].Component != "RAID Controller" {
		t.Fatalf("expected pack rule last, got %q", rules[len(rules)-1].Component)
	}

	findings := engine.Evaluate([]models.LogRecord{{Source: "log", Message: "Cache Module failure on slot 1"}})
	f, ok := findComponent(findings, "RAID Controller")
	if !ok {
		t.Fatalf("expected pack rule to match, got %+v", findings)
	}
	if f.Severity != models.SeverityWarn {
		t.Fatalf("expected pack default severity, got %s", f.Severity)
	}
}

func TestNewTextRuleEngineReplaceDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yaml")
	pack := "replaceDefaults: true\nrules:\n  - component: Chassis\n    finding: Intrusion detected\n    patterns: ['intrusion']\n"
	if err := os.WriteFile(path, []byte(pack), 0o644); err != nil {
		t.Fatalf("write pack: %v", err)
	}
	engine, err := NewTextRuleEngine(path, nil)
	if err != nil {
		t.Fatalf("NewTextRuleEngine: %v", err)
	}
	rules := engine.Rules()
	if len(rules) != 1 || rules[0].Severity != models.SeverityWarn || rules[0].Confidence != models.ConfidenceMedium {
		t.Fatalf("unexpected rules: %+v", rules)
	}
}

func TestNewTextRuleEngineErrors(t *testing.T) {
	engine, err := NewTextRuleEngine(filepath.Join(t.TempDir(), "missing.yaml"), nil)
	if err != nil {
		t.Fatalf("missing pack should not fail: %v", err)
	}
	if len(engine.Rules()) != len(defaultRules) {
		t.Fatalf("expected built-in rules only")
	}

	cases := map[string]string{
		"bad regex":    "rules:\n  - component: X\n    finding: Y\n    patterns: ['(unclosed']\n",
		"bad severity": "rules:\n  - component: X\n    finding: Y\n    severity: SEVERE\n    patterns: ['x']\n",
		"no patterns":  "rules:\n  - component: X\n    finding: Y\n",
		"no component": "rules:\n  - finding: Y\n    patterns: ['x']\n",
	}
	for name, pack := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "rules.yaml")
			if err := os.WriteFile(path, []byte(pack), 0o644); err != nil {
				t.Fatalf("write pack: %v", err)
			}
			if _, err := NewTextRuleEngine(path, nil); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}
