package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/miradorstack/ahsdp/internal/models"
	"github.com/miradorstack/ahsdp/internal/summary"
)

// Export file names written by WriteExports.
const (
	InventoryFile   = "inventory.json"
	EventsFile      = "events.json"
	DiagnosticsFile = "diagnostics.json"
	FindingsFile    = "findings.json"
	MetadataFile    = "metadata.json"
	IdentityFile    = "identity.json"
)

// metadataExport is metadata.json: run metadata plus the rolled-up views.
type metadataExport struct {
	models.RunMetadata
	ComponentMatrix summary.Matrix    `json:"component_matrix"`
	Executive       summary.Executive `json:"executive"`
}

// WriteExports writes the JSON exports for doc into dir and returns the paths
// written, in a fixed order.
func WriteExports(dir string, doc *Document) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	var diagnostics any = struct{}{}
	if doc.Diagnostics != nil {
		diagnostics = doc.Diagnostics
	}
	events := doc.Events
	if events == nil {
		events = []models.LogRecord{}
	}
	findings := doc.Findings
	if findings == nil {
		findings = []models.Finding{}
	}

	exports := []struct {
		name  string
		value any
	}{
		{InventoryFile, doc.Inventory},
		{EventsFile, events},
		{DiagnosticsFile, diagnostics},
		{FindingsFile, findings},
		{MetadataFile, metadataExport{RunMetadata: doc.Metadata, ComponentMatrix: doc.Matrix, Executive: doc.Executive}},
		{IdentityFile, doc.Identity},
	}

	written := make([]string, 0, len(exports))
	for _, export := range exports {
		path := filepath.Join(dir, export.name)
		if err := WriteJSONFile(path, export.value); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// WriteJSONFile writes v to path as indented JSON.
func WriteJSONFile(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", filepath.Base(path), err)
	}
	if err := EncodeJSON(f, v); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	return f.Close()
}

// EncodeJSON writes v with two-space indentation and without HTML escaping.
func EncodeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
