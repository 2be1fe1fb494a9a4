package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/miradorstack/ahsdp/internal/bundle"
	"github.com/miradorstack/ahsdp/internal/config"
	"github.com/miradorstack/ahsdp/internal/models"
)

func writeListingBundle(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "bundle")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "file.pkg.txt"), []byte("counters.pkg\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return dir
}

func TestRunWritesReport(t *testing.T) {
	t.Setenv("AHSDP_CONFIG", "")
	out := t.TempDir()
	var stdout, stderr bytes.Buffer

	code := run([]string{"--in", writeListingBundle(t), "--out", out, "--redact", "none"}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	want := filepath.Join(out, "report.md")
	if !strings.Contains(stdout.String(), "Wrote report: "+want) {
		t.Fatalf("unexpected stdout: %s", stdout.String())
	}
	if _, err := os.Stat(want); err != nil {
		t.Fatalf("report missing: %v", err)
	}
}

func TestRunJSON(t *testing.T) {
	t.Setenv("AHSDP_CONFIG", "")
	var stdout, stderr bytes.Buffer
	code := run([]string{"--in", writeListingBundle(t), "--out", filepath.Join(t.TempDir(), "r.md"), "--json"}, &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("exit %d, stderr: %s", code, stderr.String())
	}
	var findings []models.Finding
	if err := json.Unmarshal(stdout.Bytes(), &findings); err != nil {
		t.Fatalf("stdout is not a findings array: %v\n%s", err, stdout.String())
	}
	if !strings.Contains(stderr.String(), "Wrote report:") {
		t.Fatalf("expected summary on stderr, got %s", stderr.String())
	}
}

func TestRunExitCodes(t *testing.T) {
	t.Setenv("AHSDP_CONFIG", "")
	unsupported := filepath.Join(t.TempDir(), "notes.txt")
	if err := os.WriteFile(unsupported, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	out := t.TempDir()

	cases := []struct {
		name string
		args []string
		want int
	}{
		{"missing args", nil, exitUsage},
		{"version", []string{"--version"}, exitOK},
		{"no artifacts", []string{"--in", t.TempDir(), "--out", out}, exitNoArtifacts},
		{"not found", []string{"--in", filepath.Join(out, "missing.ahs"), "--out", out}, exitNoArtifacts},
		{"unsupported", []string{"--in", unsupported, "--out", out}, exitBadInput},
		{"missing directory", []string{"--in", filepath.Join(out, "no-such-dir"), "--out", out}, exitBadInput},
		{"bad config", []string{"--config", filepath.Join(out, "absent.yaml"), "--in", out, "--out", out}, exitFailure},
		{"bad redaction", []string{"--in", writeListingBundle(t), "--out", out, "--redact", "ssn"}, exitBadInput},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			if got := run(tc.args, &stdout, &stderr); got != tc.want {
				t.Fatalf("exit %d, want %d; stderr: %s", got, tc.want, stderr.String())
			}
			if tc.want != exitOK && tc.want != exitUsage && stderr.Len() == 0 {
				t.Fatalf("expected the failure on stderr")
			}
		})
	}
}

func TestApplyFlagsOnlyOverridesSetFlags(t *testing.T) {
	fset := flag.NewFlagSet("test", flag.ContinueOnError)
	var opts options
	fset.BoolVar(&opts.bb, "bb", false, "")
	fset.BoolVar(&opts.faults, "faults", false, "")
	fset.StringVar(&opts.redactions, "redact", "email", "")
	if err := fset.Parse([]string{"--faults=false"}); err != nil {
		t.Fatalf("parse: %v", err)
	}

	cfg := config.Default()
	cfg.Parser.EnableBB = true
	cfg.Parser.EnableFaults = true
	applyFlags(fset, &opts, &cfg)

	if !cfg.Parser.EnableBB {
		t.Fatalf("unset --bb must not override config")
	}
	if cfg.Parser.EnableFaults {
		t.Fatalf("explicit --faults=false must override config")
	}
	if len(cfg.Parser.Redactions) != len(config.DefaultRedactions) {
		t.Fatalf("unset --redact must keep config redactions, got %v", cfg.Parser.Redactions)
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(fmt.Errorf("wrap: %w", bundle.ErrNoArtifacts)); got != exitNoArtifacts {
		t.Fatalf("got %d", got)
	}
	if got := exitCode(fmt.Errorf("wrap: %w", bundle.ErrUnsupportedInput)); got != exitBadInput {
		t.Fatalf("got %d", got)
	}
	if got := exitCode(os.ErrPermission); got != exitFailure {
		t.Fatalf("got %d", got)
	}
}
