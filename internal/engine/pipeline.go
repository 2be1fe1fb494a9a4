package engine

import (
	"log/slog"

	"github.com/miradorstack/ahsdp/internal/extractors"
	"github.com/miradorstack/ahsdp/internal/models"
)

// Pipeline runs the decode and evaluate stages for one bundle. It holds no
// per-run state and can be shared between concurrent runs.
type Pipeline struct {
	logger   *slog.Logger
	decoder  *extractors.CounterDecoder
	counters *CounterEvaluator
	text     *TextRuleEngine
}

// NewPipeline wires the stages together; nil stages fall back to the built-in
// layout and rule table.
func NewPipeline(
	logger *slog.Logger,
	decoder *extractors.CounterDecoder,
	counters *CounterEvaluator,
	text *TextRuleEngine,
) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	if decoder == nil {
		decoder = extractors.NewCounterDecoder()
	}
	if counters == nil {
		counters = NewCounterEvaluator()
	}
	if text == nil {
		text = DefaultTextRuleEngine(logger)
	}

	return &Pipeline{
		logger:   logger,
		decoder:  decoder,
		counters: counters,
		text:     text,
	}
}

// Decode decodes a counters.pkg buffer.
func (p *Pipeline) Decode(buf []byte) models.Diagnostics {
	return p.decoder.Decode(buf)
}

// Evaluation keeps each evaluator's output next to the aggregated list.
type Evaluation struct {
	CounterFindings []models.Finding
	TextFindings    []models.Finding
	Findings        []models.Finding
}

// Evaluate returns counter findings followed by text findings. Text rules only
// run when textRules is set.
func (p *Pipeline) Evaluate(diag *models.Diagnostics, records []models.LogRecord, textRules bool) Evaluation {
	eval := Evaluation{CounterFindings: p.counters.Evaluate(diag)}
	if textRules {
		eval.TextFindings = p.text.Evaluate(records)
	}
	eval.Findings = Aggregate(eval.CounterFindings, eval.TextFindings)

	p.logger.Debug("findings evaluated",
		slog.Int("counter_findings", len(eval.CounterFindings)),
		slog.Int("text_findings", len(eval.TextFindings)),
		slog.Int("records", len(records)))
	return eval
}

// Aggregate concatenates counter and text findings without reordering or
// deduplicating them.
func Aggregate(counterFindings, textFindings []models.Finding) []models.Finding {
	findings := make([]models.Finding, 0, len(counterFindings)+len(textFindings))
	findings = append(findings, counterFindings...)
	return append(findings, textFindings...)
}
