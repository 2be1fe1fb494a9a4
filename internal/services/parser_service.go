package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/miradorstack/ahsdp/internal/bundle"
	"github.com/miradorstack/ahsdp/internal/config"
	"github.com/miradorstack/ahsdp/internal/engine"
	"github.com/miradorstack/ahsdp/internal/identity"
	"github.com/miradorstack/ahsdp/internal/metrics"
	"github.com/miradorstack/ahsdp/internal/models"
	"github.com/miradorstack/ahsdp/internal/redact"
	"github.com/miradorstack/ahsdp/internal/report"
	"github.com/miradorstack/ahsdp/internal/utils"
)

// Latency stages recorded per run.
const (
	StageIntake   = "intake"
	StageArtifact = "artifacts"
	StageBlackBox = "blackbox"
	StageEvaluate = "evaluate"
	StageRender   = "render"
)

// Request describes one bundle to parse.
type Request struct {
	Input string
	// ReportPath is the Markdown file to write.
	ReportPath string
	// ExportDir receives the JSON exports; empty skips them.
	ExportDir string
}

// Result is what a successful run produced.
type Result struct {
	RunID      string
	Input      string
	ReportPath string
	Exports    []string
	// Preserved is the kept extraction directory, if any.
	Preserved string
	Document  *report.Document
	Duration  time.Duration
}

// ParserService runs bundles through intake, parsing, evaluation and
// rendering.
type ParserService struct {
	logger    *slog.Logger
	pipeline  *engine.Pipeline
	cfg       config.Config
	redactor  *redact.Redactor
	registry  *prometheus.Registry
	latencies *utils.LatencyTracker
	now       func() time.Time
}

// NewParserService constructs the service. A nil pipeline uses the built-in
// layout and rules; a nil registry disables the metrics textfile.
func NewParserService(logger *slog.Logger, pipeline *engine.Pipeline, cfg config.Config, redactor *redact.Redactor, registry *prometheus.Registry) *ParserService {
	if logger == nil {
		logger = slog.Default()
	}
	if pipeline == nil {
		pipeline = engine.NewPipeline(logger, nil, nil, nil)
	}
	return &ParserService{
		logger:    logger,
		pipeline:  pipeline,
		cfg:       cfg,
		redactor:  redactor,
		registry:  registry,
		latencies: utils.NewLatencyTracker(1024),
		now:       time.Now,
	}
}

// Run parses a single bundle and writes its report and exports.
func (s *ParserService) Run(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := s.run(ctx, req)
	duration := time.Since(start)

	outcome := metrics.OutcomeSuccess
	switch {
	case errors.Is(err, bundle.ErrNoArtifacts):
		outcome = metrics.OutcomeNoArtifacts
	case err != nil:
		outcome = metrics.OutcomeError
	}
	metrics.ObserveRun(duration, outcome)

	if err != nil {
		s.logger.Error("bundle failed", slog.String("input", req.Input), slog.String("outcome", outcome), slog.Any("error", err))
		return nil, err
	}
	res.Duration = duration
	s.writeMetrics(req.ExportDir)
	s.logger.Info("bundle parsed",
		slog.String("run_id", res.RunID),
		slog.String("input", req.Input),
		slog.Int("findings", len(res.Document.Findings)),
		slog.Int("events", len(res.Document.Events)),
		slog.Duration("duration", duration))
	return res, nil
}

// RunBatch parses requests concurrently, bounded by batch.concurrency. Results
// keep request order; a failed bundle leaves a nil result and its error is
// joined into the returned error.
func (s *ParserService) RunBatch(ctx context.Context, reqs []Request) ([]*Result, error) {
	results := make([]*Result, len(reqs))
	errs := make([]error, len(reqs))

	g, ctx := errgroup.WithContext(ctx)
	limit := s.cfg.Batch.Concurrency
	if limit <= 0 {
		limit = 1
	}
	g.SetLimit(limit)
	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			res, err := s.Run(ctx, req)
			results[i] = res
			errs[i] = err
			return nil
		})
	}
	_ = g.Wait()

	if count := s.latencies.Count(StageEvaluate); count > 1 {
		for _, stage := range s.latencies.Stages() {
			s.logger.Debug("stage latency", slog.String("stage", stage), slog.Duration("p95", s.latencies.Percentile(stage, 95)), slog.Int("samples", s.latencies.Count(stage)))
		}
	}
	return results, errors.Join(errs...)
}

// LatencyP95 returns the p95 duration recorded for stage.
func (s *ParserService) LatencyP95(stage string) time.Duration {
	return s.latencies.Percentile(stage, 95)
}

func (s *ParserService) run(ctx context.Context, req Request) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Input) == "" {
		return nil, utils.NewInputError("open", req.Input, "no input", bundle.ErrInputRequired)
	}
	if req.ReportPath == "" {
		return nil, utils.NewInputError("render", req.Input, "no report path", errors.New("report path is required"))
	}
	parser := s.cfg.Parser
	runID := uuid.NewString()
	logger := s.logger.With(slog.String("run_id", runID))

	var (
		ws  *bundle.Workspace
		err error
	)
	s.latencies.Time(StageIntake, func() {
		ws, err = bundle.Open(req.Input, bundle.IntakeOptions{
			TempBase:     parser.TempDir,
			Keep:         parser.KeepTemp,
			ExtractLimit: parser.ExtractLimitBytes,
		}, logger)
	})
	if err != nil {
		return nil, utils.NewInputError("open", req.Input, "cannot open bundle", err)
	}
	defer func() {
		if cerr := ws.Close(); cerr != nil {
			logger.Warn("cleanup failed", slog.Any("error", cerr))
		}
	}()

	found, err := bundle.Discover(ws.Root)
	if err != nil {
		return nil, utils.NewInputError("discover", req.Input, "cannot walk bundle", err)
	}
	if !found.Usable(parser.EnableBB) {
		return nil, utils.NewInputError("discover", req.Input, "nothing to parse", bundle.ErrNoArtifacts)
	}

	var parsed bundle.Parsed
	s.latencies.Time(StageArtifact, func() {
		parsed, err = bundle.ParseArtifacts(found, s.pipeline)
	})
	if err != nil {
		return nil, utils.NewInputError("parse", req.Input, "cannot read artifact", err)
	}
	metrics.ObserveDiagnostics(parsed.Diagnostics)

	meta := models.RunMetadata{
		RunID:         runID,
		Input:         ws.Input,
		GeneratedAt:   s.now().UTC(),
		BBEnabled:     parser.EnableBB,
		BBSources:     []string{},
		ArtifactCount: len(found.BlackBox),
		FaultsEnabled: parser.EnableFaults,
	}
	events := []models.LogRecord{}
	if parser.EnableBB && len(found.BlackBox) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		s.latencies.Time(StageBlackBox, func() {
			bb := bundle.ParseBlackBox(found.BlackBox, logger)
			events = bb.Records
			meta.BBParsed = true
			meta.BBSources = bb.Sources
		})
		metrics.ObserveRecords(len(events))
	}

	var eval engine.Evaluation
	s.latencies.Time(StageEvaluate, func() {
		eval = s.pipeline.Evaluate(parsed.Diagnostics, events, parser.EnableFaults && len(events) > 0)
	})
	metrics.ObserveFindings(metrics.OriginCounters, eval.CounterFindings)
	metrics.ObserveFindings(metrics.OriginText, eval.TextFindings)

	doc := &report.Document{
		GeneratedAt:  meta.GeneratedAt,
		Summary:      parsed.Summary,
		Inventory:    parsed.Inventory,
		CustomerInfo: parsed.CustomerInfo,
		Identity: identity.Extract(identity.Sources{
			BcertXML:    parsed.BcertXML,
			FileListing: parsed.Summary.Files,
			BundleName:  filepath.Base(ws.Input),
		}),
		Diagnostics: parsed.Diagnostics,
		Events:      events,
		Findings:    eval.Findings,
		Metadata:    meta,
	}
	doc.Summarise()

	res := &Result{RunID: runID, Input: ws.Input, Document: doc, Preserved: ws.Preserved()}
	s.latencies.Time(StageRender, func() {
		err = s.render(req, res)
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *ParserService) render(req Request, res *Result) error {
	reportPath, err := filepath.Abs(req.ReportPath)
	if err != nil {
		return utils.NewInputError("render", req.Input, "bad report path", err)
	}
	if req.ExportDir != "" {
		exportDir, err := filepath.Abs(req.ExportDir)
		if err != nil {
			return utils.NewInputError("export", req.Input, "bad export dir", err)
		}
		exports, err := report.WriteExports(exportDir, res.Document)
		if err != nil {
			return utils.NewInputError("export", req.Input, "cannot write exports", err)
		}
		res.Exports = exports
	}
	if err := report.WriteMarkdownFile(reportPath, res.Document, s.redactor); err != nil {
		return utils.NewInputError("render", req.Input, "cannot write report", err)
	}
	res.ReportPath = reportPath
	return nil
}

func (s *ParserService) writeMetrics(exportDir string) {
	if s.registry == nil || exportDir == "" || !s.cfg.Metrics.Textfile {
		return
	}
	path := filepath.Join(exportDir, s.cfg.Metrics.Filename)
	if err := metrics.WriteTextfile(path, s.registry); err != nil {
		s.logger.Warn("metrics textfile not written", slog.String("path", path), slog.Any("error", err))
	}
}

// ResolveReportPath maps an --out target to a Markdown path. Existing
// directories and paths without a .md suffix get reportName appended.
func ResolveReportPath(target, reportName string) (string, error) {
	abs, err := filepath.Abs(target)
	if err != nil {
		return "", fmt.Errorf("resolve output: %w", err)
	}
	if info, err := os.Stat(abs); err == nil && info.IsDir() {
		return filepath.Join(abs, reportName), nil
	}
	if strings.HasSuffix(strings.ToLower(abs), ".md") {
		return abs, nil
	}
	return filepath.Join(abs, reportName), nil
}

// BatchRequests builds one request per input. A single input writes straight
// to out and export; several inputs each get a subdirectory named after the
// bundle.
func BatchRequests(inputs []string, out, export, reportName string) ([]Request, error) {
	if len(inputs) == 1 {
		reportPath, err := ResolveReportPath(out, reportName)
		if err != nil {
			return nil, err
		}
		return []Request{{Input: inputs[0], ReportPath: reportPath, ExportDir: export}}, nil
	}

	base, err := filepath.Abs(out)
	if err != nil {
		return nil, fmt.Errorf("resolve output: %w", err)
	}
	if strings.HasSuffix(strings.ToLower(base), ".md") {
		return nil, fmt.Errorf("output %s must be a directory when parsing several bundles", out)
	}
	seen := make(map[string]int, len(inputs))
	reqs := make([]Request, 0, len(inputs))
	for _, input := range inputs {
		name := bundleDirName(input)
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s-%d", name, n)
		}
		req := Request{Input: input, ReportPath: filepath.Join(base, name, reportName)}
		if export != "" {
			req.ExportDir = filepath.Join(export, name)
		}
		reqs = append(reqs, req)
	}
	return reqs, nil
}

func bundleDirName(input string) string {
	name := filepath.Base(filepath.Clean(input))
	lower := strings.ToLower(name)
	for _, ext := range []string{".zip", ".ahs"} {
		if strings.HasSuffix(lower, ext) {
			name = name[:len(name)-len(ext)]
			break
		}
	}
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "bundle"
	}
	return name
}
