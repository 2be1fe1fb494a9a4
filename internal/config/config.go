package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultRedactions are applied to rendered reports unless overridden.
var DefaultRedactions = []string{"email", "phone", "token"}

// DefaultExtractLimit caps the bytes written when unpacking a bundle.
const DefaultExtractLimit int64 = 1 << 30

// Config captures the settings that shape a parser run.
type Config struct {
	Parser  ParserConfig  `yaml:"parser"`
	Logging LoggingConfig `yaml:"logging"`
	Rules   RulesConfig   `yaml:"rules"`
	Batch   BatchConfig   `yaml:"batch"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// ParserConfig controls bundle intake and optional analysis stages.
type ParserConfig struct {
	EnableBB          bool     `yaml:"enableBB"`
	EnableFaults      bool     `yaml:"enableFaults"`
	KeepTemp          bool     `yaml:"keepTemp"`
	TempDir           string   `yaml:"tempDir"`
	ReportName        string   `yaml:"reportName"`
	Redactions        []string `yaml:"redactions"`
	ExtractLimitBytes int64    `yaml:"extractLimitBytes"`
}

// LoggingConfig controls structured logging.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// RulesConfig controls rule-pack loading for the text rule engine.
type RulesConfig struct {
	Path string `yaml:"path"`
}

// BatchConfig controls how many bundles are parsed at once.
type BatchConfig struct {
	Concurrency int `yaml:"concurrency"`
}

// MetricsConfig controls the Prometheus textfile written next to exports.
type MetricsConfig struct {
	Textfile bool   `yaml:"textfile"`
	Filename string `yaml:"filename"`
}

// Load initialises Config from a YAML file and optional environment overrides.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("AHSDP_CONFIG")
	}

	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("config file %s not found: %w", path, err)
			}
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the configuration used when no file is supplied.
func Default() Config {
	return Config{
		Parser: ParserConfig{
			ReportName:        "report.md",
			Redactions:        append([]string(nil), DefaultRedactions...),
			ExtractLimitBytes: DefaultExtractLimit,
		},
		Logging: LoggingConfig{Level: "info", JSON: false},
		Rules:   RulesConfig{},
		Batch:   BatchConfig{Concurrency: 4},
		Metrics: MetricsConfig{Textfile: true, Filename: "metrics.prom"},
	}
}

// Validate rejects settings no run can work with.
func (c *Config) Validate() error {
	if c.Parser.ReportName == "" {
		return errors.New("parser.reportName must not be empty")
	}
	if !strings.HasSuffix(strings.ToLower(c.Parser.ReportName), ".md") {
		return fmt.Errorf("parser.reportName %q must end in .md", c.Parser.ReportName)
	}
	if c.Parser.ExtractLimitBytes <= 0 {
		return fmt.Errorf("parser.extractLimitBytes must be positive, got %d", c.Parser.ExtractLimitBytes)
	}
	if c.Batch.Concurrency <= 0 {
		return fmt.Errorf("batch.concurrency must be positive, got %d", c.Batch.Concurrency)
	}
	return nil
}

// Truthy reports whether an environment toggle is switched on.
func Truthy(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func applyEnvOverrides(cfg *Config) {
	if v, ok := os.LookupEnv("AHS_BB"); ok {
		cfg.Parser.EnableBB = Truthy(v)
	}
	if v, ok := os.LookupEnv("AHS_FAULTS"); ok {
		cfg.Parser.EnableFaults = Truthy(v)
	}
	if v, ok := os.LookupEnv("AHS_KEEP_TMP"); ok {
		cfg.Parser.KeepTemp = Truthy(v)
	}
	if v := os.Getenv("AHSDP_TEMP_DIR"); v != "" {
		cfg.Parser.TempDir = v
	}
	if v := os.Getenv("AHSDP_REDACT"); v != "" {
		cfg.Parser.Redactions = ParseRedactions(v)
	}
	if v := os.Getenv("AHSDP_EXTRACT_LIMIT"); v != "" {
		if limit, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.Parser.ExtractLimitBytes = limit
		}
	}
	if v := os.Getenv("AHSDP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("AHSDP_LOG_FORMAT"); v == "json" {
		cfg.Logging.JSON = true
	}
	if v := os.Getenv("AHSDP_RULES_PATH"); v != "" {
		cfg.Rules.Path = v
	}
	if v := os.Getenv("AHSDP_BATCH_CONCURRENCY"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.Concurrency = n
		}
	}
	if v, ok := os.LookupEnv("AHSDP_METRICS_TEXTFILE"); ok {
		cfg.Metrics.Textfile = Truthy(v)
	}
}

// ParseRedactions splits a comma separated redaction list. "none" disables
// redaction entirely.
func ParseRedactions(value string) []string {
	if strings.EqualFold(strings.TrimSpace(value), "none") {
		return []string{}
	}
	tokens := make([]string, 0, 3)
	for _, token := range strings.Split(value, ",") {
		token = strings.ToLower(strings.TrimSpace(token))
		if token == "" || token == "none" {
			continue
		}
		tokens = append(tokens, token)
	}
	return tokens
}
