package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/miradorstack/ahsdp/internal/models"
)

// maxDetailsLength bounds finding details copied from log messages.
const maxDetailsLength = 300

var errorHints = regexp.MustCompile(`(?i)\b(CRIT|CRITICAL|FATAL|UNREC|ERROR|FAIL|PANIC)\b`)

// TextRuleEngine matches normalised log records against component-tagged
// regular expressions. Every rule scans every record, so one record can raise
// findings for several components.
type TextRuleEngine struct {
	rules  []TextRule
	logger *slog.Logger
}

// TextRule is a compiled text rule.
type TextRule struct {
	Component  string
	Finding    string
	Severity   models.Severity
	Confidence string
	Patterns   []*regexp.Regexp
}

// RuleSpec is the declarative form of a text rule, as written in rule packs.
type RuleSpec struct {
	Component  string   `yaml:"component"`
	Finding    string   `yaml:"finding"`
	Severity   string   `yaml:"severity"`
	Confidence string   `yaml:"confidence"`
	Patterns   []string `yaml:"patterns"`
}

// RulePackFile is the YAML root structure of a rule pack.
type RulePackFile struct {
	ReplaceDefaults bool       `yaml:"replaceDefaults"`
	Rules           []RuleSpec `yaml:"rules"`
}

var defaultRuleSpecs = []RuleSpec{
	{
		Component:  "System Board",
		Finding:    "System board anomaly detected",
		Severity:   "WARN",
		Confidence: models.ConfidenceHigh,
		Patterns: []string{
			`\bSystem Board\b`,
			`\bSYSBOARD\b`,
			`\bBoard Failure\b`,
			`\bFRU\b.*Board`,
			`\bPOST Error\b.*(system|board)`,
			`\bUnrecoverable\b.*(system|board)`,
			`\bPCH\b`,
			`\bPCIe Bus Fatal\b`,
			`\biLO Health Subsystem\b`,
			`\bKBBX BOOT\b`,
		},
	},
	{
		Component:  "Processor",
		Finding:    "Processor fault detected",
		Severity:   "WARN",
		Confidence: models.ConfidenceHigh,
		Patterns: []string{
			`\bCPU\s*\d*\b.*\b(error|fault|fail\w*|IERR|MCE|machine check)`,
			`\bProcessor\b.*\b(error|fault|fail\w*|degraded|disabled|throttl\w*)`,
			`\bMachine Check\b`,
			`\bIERR\b`,
		},
	},
	{
		Component:  "Memory",
		Finding:    "Memory fault detected",
		Severity:   "WARN",
		Confidence: models.ConfidenceHigh,
		Patterns: []string{
			`\bDIMM\b.*\b(error|fault|fail\w*|degraded|disabled|mismatch)`,
			`\b(Un)?correctable Memory\b`,
			`\bECC\b.*\b(error|correct\w*|uncorrect\w*)`,
			`\bMemory\b.*\b(error|fault|fail\w*|degraded)`,
		},
	},
	{
		Component:  "Power Supply",
		Finding:    "Power supply fault detected",
		Severity:   "ERROR",
		Confidence: models.ConfidenceHigh,
		Patterns: []string{
			`\bPower Supply\b.*\b(fail\w*|fault|lost|removed|mismatch|redundan\w*|degraded)`,
			`\bPSU\s*\d*\b.*\b(fail\w*|fault|lost|removed)`,
			`\bAC Power Lost\b`,
			`\bPower Redundancy\b`,
		},
	},
	{
		Component:  "Cooling",
		Finding:    "Cooling fault detected",
		Severity:   "WARN",
		Confidence: models.ConfidenceMedium,
		Patterns: []string{
			`\bFans?\s*\d*\b.*\b(fail\w*|fault|stall\w*|degraded|removed|not (present|spinning))`,
			`\bOverheat\w*`,
			`\bThermal\b.*\b(shutdown|critical|caution|threshold|trip)`,
			`\bTemperature\b.*\b(exceed\w*|critical|caution|threshold)`,
		},
	},
	{
		Component:  "Storage",
		Finding:    "Storage fault detected",
		Severity:   "WARN",
		Confidence: models.ConfidenceMedium,
		Patterns: []string{
			`\b(Smart ?Array|HBA|RAID|Storage Controller)\b.*\b(fail\w*|error|degraded|rebuild\w*|offline)`,
			`\b(Drive|Disk|HDD|SSD|NVMe)\b.*\b(fail\w*|error|predictive|degraded|offline)`,
			`\bPredictive Failure\b`,
		},
	},
	{
		Component:  "Networking",
		Finding:    "Network fault detected",
		Severity:   "WARN",
		Confidence: models.ConfidenceMedium,
		Patterns: []string{
			`\b(NIC|Ethernet|Network Adapter|FlexibleLOM)\b.*\b(fail\w*|error|down|lost)`,
			`\bLink\b.*\bdown\b`,
		},
	},
	{
		Component:  "Firmware",
		Finding:    "Firmware issue detected",
		Severity:   "WARN",
		Confidence: models.ConfidenceMedium,
		Patterns: []string{
			`\bFirmware\b.*\b(fail\w*|error|corrupt\w*|mismatch|rollback)`,
			`\bROM\b.*\b(corrupt\w*|fail\w*|recovery|mismatch)`,
			`\bFlash\b.*\b(fail\w*|error)`,
		},
	},
}

var defaultRules = mustCompileRules(defaultRuleSpecs)

func mustCompileRules(specs []RuleSpec) []TextRule {
	rules, err := compileRules(specs)
	if err != nil {
		panic(err)
	}
	return rules
}

func compileRules(specs []RuleSpec) ([]TextRule, error) {
	rules := make([]TextRule, 0, len(specs))
	for i, spec := range specs {
		rule, err := compileRule(spec)
		if err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, spec.Component, err)
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

func compileRule(spec RuleSpec) (TextRule, error) {
	component := strings.TrimSpace(spec.Component)
	if component == "" {
		return TextRule{}, errors.New("component is required")
	}
	title := strings.TrimSpace(spec.Finding)
	if title == "" {
		return TextRule{}, errors.New("finding title is required")
	}
	if len(spec.Patterns) == 0 {
		return TextRule{}, errors.New("at least one pattern is required")
	}

	severity := models.SeverityWarn
	if spec.Severity != "" {
		parsed, ok := models.ParseSeverity(spec.Severity)
		if !ok {
			return TextRule{}, fmt.Errorf("unknown severity %q", spec.Severity)
		}
		severity = parsed
	}
	confidence := spec.Confidence
	if confidence == "" {
		confidence = models.ConfidenceMedium
	}

	patterns := make([]*regexp.Regexp, 0, len(spec.Patterns))
	for _, expr := range spec.Patterns {
		re, err := regexp.Compile("(?i)" + expr)
		if err != nil {
			return TextRule{}, fmt.Errorf("compile pattern %q: %w", expr, err)
		}
		patterns = append(patterns, re)
	}

	return TextRule{
		Component:  component,
		Finding:    title,
		Severity:   severity,
		Confidence: confidence,
		Patterns:   patterns,
	}, nil
}

// DefaultTextRuleEngine returns an engine over the built-in hardware rules.
func DefaultTextRuleEngine(logger *slog.Logger) *TextRuleEngine {
	if logger == nil {
		logger = slog.Default()
	}
	return &TextRuleEngine{rules: defaultRules, logger: logger}
}

// NewTextRuleEngine builds the built-in rules plus any rule pack found at
// path. A missing file yields the built-in rules; an unreadable or invalid
// pack is an error.
func NewTextRuleEngine(path string, logger *slog.Logger) (*TextRuleEngine, error) {
	engine := DefaultTextRuleEngine(logger)
	if path == "" {
		return engine, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			engine.logger.Debug("rule pack not found, using built-in rules", slog.String("path", path))
			return engine, nil
		}
		return nil, fmt.Errorf("read rule pack: %w", err)
	}
	var pack RulePackFile
	if err := yaml.Unmarshal(data, &pack); err != nil {
		return nil, fmt.Errorf("parse rule pack: %w", err)
	}
	extra, err := compileRules(pack.Rules)
	if err != nil {
		return nil, fmt.Errorf("rule pack %s: %w", path, err)
	}

	rules := make([]TextRule, 0, len(defaultRules)+len(extra))
	if !pack.ReplaceDefaults {
		rules = append(rules, defaultRules...)
	}
	engine.rules = append(rules, extra...)
	engine.logger.Info("rule pack loaded",
		slog.String("path", path),
		slog.Int("rules", len(extra)),
		slog.Bool("replace_defaults", pack.ReplaceDefaults))
	return engine, nil
}

// Rules returns the active rules in evaluation order.
func (e *TextRuleEngine) Rules() []TextRule {
	if e == nil {
		return nil
	}
	return append([]TextRule(nil), e.rules...)
}

// Evaluate emits findings in rule order, then record order. Records with an
// empty message are ignored.
func (e *TextRuleEngine) Evaluate(records []models.LogRecord) []models.Finding {
	if e == nil || len(records) == 0 {
		return nil
	}

	findings := make([]models.Finding, 0)
	for _, rule := range e.rules {
		for _, rec := range records {
			if rec.Message == "" || !rule.matches(rec.Message) {
				continue
			}
			findings = append(findings, models.Finding{
				Finding:    rule.Finding,
				Details:    truncateDetails(rec.Message),
				Severity:   resolveSeverity(rule.Severity, rec),
				Confidence: rule.Confidence,
				Component:  rule.Component,
				Source:     rec.Source,
				Timestamp:  rec.Timestamp,
			})
		}
	}
	return findings
}

func (r TextRule) matches(message string) bool {
	for _, re := range r.Patterns {
		if re.MatchString(message) {
			return true
		}
	}
	return false
}

// resolveSeverity never drops below the rule default.
func resolveSeverity(ruleDefault models.Severity, rec models.LogRecord) models.Severity {
	severity := models.MaxSeverity(ruleDefault, rec.Severity)
	if errorHints.MatchString(rec.Message) {
		severity = models.MaxSeverity(severity, models.SeverityError)
	}
	return severity
}

func truncateDetails(message string) string {
	runes := []rune(message)
	if len(runes) <= maxDetailsLength {
		return message
	}
	return string(runes[:maxDetailsLength-3]) + "..."
}
