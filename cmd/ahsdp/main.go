package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/miradorstack/ahsdp/internal/bundle"
	"github.com/miradorstack/ahsdp/internal/config"
	"github.com/miradorstack/ahsdp/internal/engine"
	"github.com/miradorstack/ahsdp/internal/extractors"
	"github.com/miradorstack/ahsdp/internal/metrics"
	"github.com/miradorstack/ahsdp/internal/models"
	"github.com/miradorstack/ahsdp/internal/redact"
	"github.com/miradorstack/ahsdp/internal/report"
	"github.com/miradorstack/ahsdp/internal/services"
	"github.com/miradorstack/ahsdp/internal/utils"
)

var (
	version = "dev"
	commit  = "none"
)

// Exit codes.
const (
	exitOK          = 0
	exitFailure     = 1
	exitUsage       = 2
	exitNoArtifacts = 3
	exitBadInput    = 4
)

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

type options struct {
	inputs      stringList
	out         string
	export      string
	redactions  string
	tempDir     string
	configPath  string
	bb          bool
	faults      bool
	keepTemp    bool
	jsonOut     bool
	showVersion bool
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fset := flag.NewFlagSet("ahsdp", flag.ContinueOnError)
	fset.SetOutput(stderr)
	var opts options
	fset.Var(&opts.inputs, "in", "bundle directory or .ahs/.zip archive (repeatable)")
	fset.Var(&opts.inputs, "input", "alias for --in")
	fset.StringVar(&opts.out, "out", "", "report directory or .md path")
	fset.StringVar(&opts.export, "export", "", "directory for JSON exports")
	fset.StringVar(&opts.redactions, "redact", strings.Join(config.DefaultRedactions, ","), "comma separated redactions (email,phone,token) or none")
	fset.StringVar(&opts.tempDir, "temp-dir", "", "base directory for archive extraction")
	fset.StringVar(&opts.configPath, "config", "", "path to configuration file")
	fset.BoolVar(&opts.bb, "bb", false, "parse BlackBox (.bb) captures")
	fset.BoolVar(&opts.faults, "faults", false, "run text fault rules over BlackBox events")
	fset.BoolVar(&opts.keepTemp, "keep-temp", false, "keep the extraction directory")
	fset.BoolVar(&opts.jsonOut, "json", false, "print findings as JSON on stdout")
	fset.BoolVar(&opts.showVersion, "version", false, "print version information")
	if err := fset.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return exitOK
		}
		return exitUsage
	}

	if opts.showVersion {
		fmt.Fprintf(stdout, "ahsdp %s (%s, %s)\n", version, commit, runtime.Version())
		return exitOK
	}
	if len(opts.inputs) == 0 || opts.out == "" {
		fmt.Fprintln(stderr, "ahsdp: --in and --out are required")
		fset.Usage()
		return exitUsage
	}

	cfg, err := config.Load(opts.configPath)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}
	applyFlags(fset, &opts, cfg)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(stderr, err)
		return exitFailure
	}

	logger := utils.NewLoggerTo(stderr, cfg.Logging.Level, cfg.Logging.JSON)
	slog.SetDefault(logger)

	redactor, err := redact.New(cfg.Parser.Redactions)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitBadInput
	}

	registry := prometheus.NewRegistry()
	if err := metrics.Register(registry); err != nil {
		logger.Error("failed to register metrics", slog.Any("error", err))
		return exitFailure
	}

	textRules, err := engine.NewTextRuleEngine(cfg.Rules.Path, logger)
	if err != nil {
		logger.Error("failed to load rule pack", slog.Any("error", err))
		return exitFailure
	}
	pipeline := engine.NewPipeline(logger, extractors.NewCounterDecoder(), engine.NewCounterEvaluator(), textRules)
	svc := services.NewParserService(logger, pipeline, *cfg, redactor, registry)

	reqs, err := services.BatchRequests(opts.inputs, opts.out, opts.export, cfg.Parser.ReportName)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return exitBadInput
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Debug("starting ahsdp", slog.String("version", version), slog.Int("bundles", len(reqs)))
	results, runErr := svc.RunBatch(ctx, reqs)

	// Human-readable output moves to stderr when stdout carries JSON.
	human := stdout
	if opts.jsonOut {
		human = stderr
		if err := printJSON(stdout, results); err != nil {
			logger.Error("failed to write findings", slog.Any("error", err))
			return exitFailure
		}
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		printResult(human, res)
	}
	if runErr != nil {
		for _, err := range unwrapJoined(runErr) {
			fmt.Fprintln(stderr, err)
		}
		return exitCode(runErr)
	}
	return exitOK
}

// applyFlags lets explicitly set flags win over the config file and
// environment.
func applyFlags(fset *flag.FlagSet, opts *options, cfg *config.Config) {
	fset.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "redact":
			cfg.Parser.Redactions = config.ParseRedactions(opts.redactions)
		case "temp-dir":
			cfg.Parser.TempDir = opts.tempDir
		case "bb":
			cfg.Parser.EnableBB = opts.bb
		case "faults":
			cfg.Parser.EnableFaults = opts.faults
		case "keep-temp":
			cfg.Parser.KeepTemp = opts.keepTemp
		}
	})
}

type jsonResult struct {
	Input    string           `json:"input"`
	Report   string           `json:"report"`
	Findings []models.Finding `json:"findings"`
}

// printJSON writes the findings array for a single bundle, or one object per
// parsed bundle for a batch.
func printJSON(w io.Writer, results []*services.Result) error {
	if len(results) == 1 {
		if results[0] == nil {
			return nil
		}
		return report.EncodeJSON(w, results[0].Document.Findings)
	}
	out := make([]jsonResult, 0, len(results))
	for _, res := range results {
		if res == nil {
			continue
		}
		out = append(out, jsonResult{Input: res.Input, Report: res.ReportPath, Findings: res.Document.Findings})
	}
	return report.EncodeJSON(w, out)
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, bundle.ErrNoArtifacts), errors.Is(err, fs.ErrNotExist):
		return exitNoArtifacts
	case errors.Is(err, bundle.ErrInputRequired), errors.Is(err, bundle.ErrUnsupportedInput):
		return exitBadInput
	default:
		return exitFailure
	}
}

func unwrapJoined(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}
