package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/miradorstack/ahsdp/internal/extractors"
	"github.com/miradorstack/ahsdp/internal/models"
	"github.com/miradorstack/ahsdp/internal/redact"
	"github.com/miradorstack/ahsdp/internal/summary"
	"github.com/miradorstack/ahsdp/internal/utils"
)

const (
	reportTitle       = "# AHS Diagnostic Parser Report"
	maxPriorityEvents = 10
	maxSampleEvents   = 5
)

var statusIcons = map[summary.Status]string{
	summary.StatusError:   "🔴",
	summary.StatusWarn:    "🟠",
	summary.StatusOK:      "🟢",
	summary.StatusMissing: "⚪",
}

var verdictIcons = map[summary.Verdict]string{
	summary.VerdictIssues:         "🔴",
	summary.VerdictWarnings:       "🟠",
	summary.VerdictElevatedEvents: "🟠",
	summary.VerdictEventWarnings:  "🟡",
	summary.VerdictClean:          "🟢",
}

// WriteMarkdownFile renders doc to path, creating parent directories.
func WriteMarkdownFile(path string, doc *Document, r *redact.Redactor) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report: %w", err)
	}
	if err := WriteMarkdown(f, doc, r); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// WriteMarkdown renders doc as a Markdown report. Free text taken from the
// bundle passes through r before it is written.
func WriteMarkdown(w io.Writer, doc *Document, r *redact.Redactor) error {
	mw := &markdownWriter{w: bufio.NewWriter(w), redactor: r}

	mw.line(reportTitle)
	mw.linef("_Generated: %s_", doc.GeneratedAt.UTC().Format("2006-01-02T15:04:05Z"))
	mw.line("")
	mw.writeSystemSummary(doc)
	mw.writeExecutive(doc)
	mw.writeMatrix(doc.Matrix)
	mw.writeFindings(doc)
	mw.writeInventory(doc.Inventory)
	mw.writeFiles(doc.Summary)
	mw.writeDiagnostics(doc.Diagnostics)
	mw.writeBBSummary(doc)

	if mw.err != nil {
		return fmt.Errorf("write report: %w", mw.err)
	}
	if err := mw.w.Flush(); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

type markdownWriter struct {
	w        *bufio.Writer
	redactor *redact.Redactor
	err      error
}

func (m *markdownWriter) line(s string) {
	if m.err != nil {
		return
	}
	_, m.err = m.w.WriteString(s + "\n")
}

func (m *markdownWriter) linef(format string, args ...any) {
	m.line(fmt.Sprintf(format, args...))
}

func (m *markdownWriter) mask(s string) string {
	return m.redactor.Mask(s)
}

func (m *markdownWriter) writeSystemSummary(doc *Document) {
	m.line("## System Summary")
	id, inv := doc.Identity, doc.Inventory
	wrote := false
	field := func(label, value string) {
		if value == "" {
			return
		}
		m.linef("- **%s:** %s", label, m.mask(value))
		wrote = true
	}

	// Inventory facts stand in for identity fields the bcert XML could not supply.
	var rom, ilo string
	if id.Firmware != nil {
		rom, ilo = id.Firmware.SystemROM, id.Firmware.ILO
	}
	field("Model", firstNonEmpty(id.Model, inv.ProductName))
	field("Serial Number", firstNonEmpty(id.SerialNumber, inv.SerialNumber))
	field("UUID", id.UUID)
	field("Firmware", firmwareLine(firstNonEmpty(rom, inv.ROMVersion), firstNonEmpty(ilo, inv.ILO)))
	if c := id.Capture; c != nil {
		field("Capture", captureLine(c))
	}
	if info := doc.CustomerInfo; info != nil {
		if len(info.Fields) > 0 {
			field("Customer Info", fmt.Sprintf("%d fields", len(info.Fields)))
		} else if info.SizeBytes > 0 {
			field("Customer Info", fmt.Sprintf("binary, %d bytes", info.SizeBytes))
		}
	}
	if !wrote {
		m.line("- _System identity unavailable from provided artifacts._")
	}
	m.line("")
}

func firmwareLine(rom, ilo string) string {
	parts := make([]string, 0, 2)
	if rom != "" {
		parts = append(parts, "System ROM "+rom)
	}
	if ilo != "" {
		parts = append(parts, "iLO "+ilo)
	}
	return strings.Join(parts, "; ")
}

func captureLine(c *models.Capture) string {
	parts := make([]string, 0, 5)
	if c.ArtifactCount > 0 {
		parts = append(parts, fmt.Sprintf("%d capture file(s)", c.ArtifactCount))
	}
	if len(c.Dates) > 0 {
		parts = append(parts, "dates "+strings.Join(c.Dates, ", "))
	}
	if len(c.IDs) > 0 {
		parts = append(parts, "ids "+strings.Join(c.IDs, ", "))
	}
	if len(c.BundleIDs) > 0 {
		parts = append(parts, "bundle "+strings.Join(c.BundleIDs, ", "))
	}
	if c.Source != "" {
		parts = append(parts, "source "+c.Source)
	}
	return strings.Join(parts, ", ")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func (m *markdownWriter) writeExecutive(doc *Document) {
	exec := doc.Executive
	inventory := "inventory missing"
	if exec.InventoryDetected {
		inventory = "inventory detected"
	}
	var bb string
	switch {
	case exec.BBParsed:
		bb = "`.bb` parsed"
	case exec.BBEnabled:
		bb = "`.bb` artifacts not found"
	default:
		bb = "`.bb` parsing disabled"
	}
	m.linef("**Executive Summary:** %s %s — %d ERROR, %d WARN; %s; %s.",
		verdictIcons[exec.Verdict], exec.Verdict, exec.EventErrors, exec.EventWarnings, inventory, bb)
	m.line("")
}

func (m *markdownWriter) writeMatrix(matrix summary.Matrix) {
	m.line("## Hardware Fault Summary")
	if len(matrix) == 0 {
		m.line("- _No component telemetry available._")
	}
	for _, row := range matrix {
		m.line(formatComponent(row))
	}
	m.line("")
}

func formatComponent(row summary.ComponentHealth) string {
	detail := "No issues detected"
	if row.TotalFindings > 0 {
		label := "findings"
		if row.TotalFindings == 1 {
			label = "finding"
		}
		detail = fmt.Sprintf("%d %s", row.TotalFindings, label)
		bits := make([]string, 0, len(models.SeverityDisplayOrder))
		for _, sev := range models.SeverityDisplayOrder {
			if n := row.Counts[sev]; n > 0 {
				bits = append(bits, fmt.Sprintf("%s×%d", sev, n))
			}
		}
		if len(bits) > 0 {
			detail = fmt.Sprintf("%s (%s)", detail, strings.Join(bits, ", "))
		}
	}
	if row.Status == summary.StatusMissing {
		detail += " / data missing"
	}
	icon, ok := statusIcons[row.Status]
	if !ok {
		icon = statusIcons[summary.StatusMissing]
	}
	return fmt.Sprintf("- %s **%s:** %s", icon, row.Component, detail)
}

func (m *markdownWriter) writeFindings(doc *Document) {
	m.line("| Finding | Component | Severity | Confidence |")
	m.line("|---|---|---|---|")
	if len(doc.Findings) == 0 {
		row := "ℹ️ No actionable faults detected"
		if doc.Inventory.Detected() {
			row = "ℹ️ Inventory detected"
		}
		m.linef("| %s | - | INFO | High |", row)
		m.line("")
		return
	}

	for _, f := range doc.Findings {
		title := f.Finding
		if f.Timestamp != "" {
			title = fmt.Sprintf("%s (%s)", title, f.Timestamp)
		}
		m.linef("| %s | %s | %s | %s |", cell(m.mask(title)), cell(f.Component), f.Severity, cell(confidenceOrDefault(f.Confidence)))
	}

	m.line("")
	m.line("### Finding Details")
	for _, f := range doc.Findings {
		m.linef("- **%s** %s: %s%s", f.Severity, m.mask(f.Finding), m.mask(f.Details), m.provenance(f.Source, f.Timestamp))
	}
	m.line("")
}

func (m *markdownWriter) provenance(source, timestamp string) string {
	bits := make([]string, 0, 2)
	if source != "" {
		bits = append(bits, "source: "+m.mask(source))
	}
	if timestamp != "" {
		bits = append(bits, "timestamp: "+timestamp)
	}
	if len(bits) == 0 {
		return ""
	}
	return " (" + strings.Join(bits, "; ") + ")"
}

func (m *markdownWriter) writeInventory(inv models.Inventory) {
	m.line("## System Inventory")
	for _, kv := range inv.Fields() {
		if kv[1] != "" {
			m.linef("- **%s:** %s", kv[0], m.mask(kv[1]))
		}
	}
	if !inv.Detected() {
		m.line("- _Inventory details unavailable from provided artifacts._")
	}
	m.line("")
}

func (m *markdownWriter) writeFiles(files models.FileSummary) {
	m.line("## Discovered Files")
	for _, item := range files.Files {
		m.linef("- %s", m.mask(item))
	}
	if len(files.Files) == 0 {
		m.line("- _No file inventory available._")
	}
	m.line("")
}

func (m *markdownWriter) writeDiagnostics(diag *models.Diagnostics) {
	m.line("## Diagnostics")
	if diag.Empty() {
		m.line("- _No diagnostic counters available._")
		return
	}

	for _, group := range orderedCounters(diag.Counters) {
		m.linef("- %s: %s", group.component, strings.Join(group.values, ", "))
	}
	if len(diag.Unknown) > 0 {
		offsets := make([]string, 0, len(diag.Unknown))
		for offset := range diag.Unknown {
			offsets = append(offsets, offset)
		}
		sort.Strings(offsets)
		parts := make([]string, 0, len(offsets))
		for _, offset := range offsets {
			parts = append(parts, fmt.Sprintf("%s=%d", offset, diag.Unknown[offset]))
		}
		m.linef("- Unknown offsets: %s", strings.Join(parts, ", "))
	}
	if diag.Trailing > 0 {
		m.linef("- Trailing bytes: %d", diag.Trailing)
	}
}

type counterGroup struct {
	component string
	values    []string
}

// orderedCounters lists decoded values in layout order.
func orderedCounters(values models.CounterValues) []counterGroup {
	groups := make([]counterGroup, 0, len(values))
	index := make(map[string]int, len(values))
	for _, entry := range extractors.CounterLayout() {
		v, ok := values.Value(entry.Component, entry.Metric)
		if !ok {
			continue
		}
		i, seen := index[entry.Component]
		if !seen {
			i = len(groups)
			index[entry.Component] = i
			groups = append(groups, counterGroup{component: entry.Component})
		}
		groups[i].values = append(groups[i].values, fmt.Sprintf("%s=%d", entry.Metric, v))
	}
	return groups
}

func (m *markdownWriter) writeBBSummary(doc *Document) {
	meta := doc.Metadata
	m.line("")
	m.line("## BB Scan Summary")
	switch {
	case !meta.BBEnabled:
		m.line("- `.bb` parsing was disabled for this run.")
		return
	case meta.ArtifactCount == 0:
		m.line("- No `.bb` artifacts were discovered in the bundle.")
		return
	case len(doc.Events) == 0:
		m.line("- BB artifacts parsed but contained no readable events.")
		return
	}

	m.linef("- Sources: %s", m.mask(strings.Join(meta.BBSources, ", ")))
	timestamps := make([]string, 0, len(doc.Events))
	for _, evt := range doc.Events {
		if evt.Timestamp != "" {
			timestamps = append(timestamps, evt.Timestamp)
		}
	}
	if first, last, ok := utils.TimeSpan(timestamps); ok {
		m.linef("- Event window: %s to %s", first.Format("2006-01-02 15:04:05"), last.Format("2006-01-02 15:04:05"))
	}

	sample := make([]models.LogRecord, 0, maxPriorityEvents)
	for _, evt := range doc.Events {
		if evt.Severity == models.SeverityError || evt.Severity == models.SeverityWarn {
			sample = append(sample, evt)
			if len(sample) == maxPriorityEvents {
				break
			}
		}
	}
	if len(sample) == 0 {
		n := len(doc.Events)
		if n > maxSampleEvents {
			n = maxSampleEvents
		}
		sample = doc.Events[:n]
	}
	for _, evt := range sample {
		m.linef("- [%s] %s%s", evt.Severity, m.mask(evt.Message), m.provenance(evt.Source, evt.Timestamp))
	}
}

func confidenceOrDefault(confidence string) string {
	if confidence == "" {
		return models.ConfidenceMedium
	}
	return confidence
}

// cell keeps table rows intact when text contains pipes or line breaks.
func cell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(s)
}
