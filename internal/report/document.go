// Package report renders parser results as Markdown and JSON exports.
package report

import (
	"time"

	"github.com/miradorstack/ahsdp/internal/models"
	"github.com/miradorstack/ahsdp/internal/summary"
)

// Document is everything a single bundle run produced.
type Document struct {
	GeneratedAt  time.Time
	Summary      models.FileSummary
	Inventory    models.Inventory
	CustomerInfo *models.CustomerInfo
	Identity     models.Identity
	Diagnostics  *models.Diagnostics
	Events       []models.LogRecord
	Findings     []models.Finding
	Metadata     models.RunMetadata
	Matrix       summary.Matrix
	Executive    summary.Executive
}

// RunContext returns the summary view of the run metadata.
func (d *Document) RunContext() summary.RunContext {
	return summary.RunContext{
		FaultsEnabled: d.Metadata.FaultsEnabled,
		BBEnabled:     d.Metadata.BBEnabled,
		BBParsed:      d.Metadata.BBParsed,
		EventCount:    len(d.Events),
	}
}

// Summarise fills in the component matrix and executive summary from the
// document's findings and events.
func (d *Document) Summarise() {
	run := d.RunContext()
	d.Matrix = summary.BuildMatrix(d.Findings, run)
	d.Executive = summary.BuildExecutive(d.Findings, d.Events, d.Inventory.Detected(), run)
}
