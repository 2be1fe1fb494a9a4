package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("AHSDP_CONFIG", "")
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Parser.ReportName != "report.md" {
		t.Fatalf("unexpected report name %q", cfg.Parser.ReportName)
	}
	if cfg.Parser.EnableBB || cfg.Parser.EnableFaults {
		t.Fatalf("optional stages should be off by default")
	}
	if cfg.Parser.ExtractLimitBytes != DefaultExtractLimit {
		t.Fatalf("unexpected extract limit %d", cfg.Parser.ExtractLimitBytes)
	}
	if len(cfg.Parser.Redactions) != 3 {
		t.Fatalf("unexpected redactions %v", cfg.Parser.Redactions)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ahsdp.yaml")
	data := `
parser:
  enableBB: true
  reportName: bundle.md
logging:
  level: debug
batch:
  concurrency: 2
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AHS_FAULTS", "yes")
	t.Setenv("AHS_BB", "0")
	t.Setenv("AHSDP_REDACT", "none")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Parser.EnableBB {
		t.Fatalf("env should switch BB off")
	}
	if !cfg.Parser.EnableFaults {
		t.Fatalf("env should switch faults on")
	}
	if cfg.Parser.ReportName != "bundle.md" || cfg.Logging.Level != "debug" || cfg.Batch.Concurrency != 2 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if len(cfg.Parser.Redactions) != 0 {
		t.Fatalf("expected redaction disabled, got %v", cfg.Parser.Redactions)
	}
	if cfg.Parser.ExtractLimitBytes != DefaultExtractLimit {
		t.Fatalf("unset keys should keep defaults")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("batch:\n  concurrency: 0\n"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseRedactions(t *testing.T) {
	got := ParseRedactions(" Email, phone,,token ")
	if len(got) != 3 || got[0] != "email" || got[2] != "token" {
		t.Fatalf("unexpected tokens %v", got)
	}
	if got := ParseRedactions("NONE"); len(got) != 0 {
		t.Fatalf("expected none to disable, got %v", got)
	}
}

func TestTruthy(t *testing.T) {
	for _, v := range []string{"1", "TRUE", "yes", " on "} {
		if !Truthy(v) {
			t.Fatalf("expected %q to be truthy", v)
		}
	}
	for _, v := range []string{"", "0", "off", "nope"} {
		if Truthy(v) {
			t.Fatalf("expected %q to be falsy", v)
		}
	}
}
