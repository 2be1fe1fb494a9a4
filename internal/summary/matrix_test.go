package summary

import (
	"testing"

	"github.com/miradorstack/ahsdp/internal/models"
)

func rowFor(t *testing.T, m Matrix, component string) ComponentHealth {
	t.Helper()
	for _, row := range m {
		if row.Component == component {
			return row
		}
	}
	t.Fatalf("component %q not in matrix", component)
	return ComponentHealth{}
}

func TestBuildMatrixDefaults(t *testing.T) {
	m := BuildMatrix(nil, RunContext{})
	if len(m) != len(DefaultComponents) {
		t.Fatalf("expected %d rows, got %d", len(DefaultComponents), len(m))
	}
	for i, row := range m {
		if row.Component != DefaultComponents[i] {
			t.Fatalf("row %d: expected %q, got %q", i, DefaultComponents[i], row.Component)
		}
		if row.Status != StatusMissing || !row.TelemetryMissing || row.Counts != nil {
			t.Fatalf("unexpected clean row %+v", row)
		}
	}
}

func TestBuildMatrixStatuses(t *testing.T) {
	findings := []models.Finding{
		{Component: "Power Supply", Severity: models.SeverityError},
		{Component: "Power Supply", Severity: models.SeverityWarn},
		{Component: "fan", Severity: models.SeverityWarn},
		{Component: "Memory", Severity: models.SeverityInfo},
		{Component: "", Severity: models.SeverityCritical},
	}
	m := BuildMatrix(findings, RunContext{})

	psu := rowFor(t, m, "Power Supply")
	if psu.Status != StatusError || psu.TotalFindings != 2 || psu.Counts[models.SeverityWarn] != 1 {
		t.Fatalf("unexpected power supply row %+v", psu)
	}
	if cooling := rowFor(t, m, "Cooling"); cooling.Status != StatusWarn || cooling.TelemetryMissing {
		t.Fatalf("expected fan counters folded into Cooling, got %+v", cooling)
	}
	if mem := rowFor(t, m, "Memory"); mem.Status != StatusOK {
		t.Fatalf("expected ok for info-only component, got %+v", mem)
	}
	if general := rowFor(t, m, "General"); general.Status != StatusError {
		t.Fatalf("unexpected general row %+v", general)
	}
	if m[5].Component != "Memory" || m[6].Component != "General" {
		t.Fatalf("extra components should follow defaults in first-seen order: %+v", m[5:])
	}
}

func TestBuildMatrixBaseTelemetry(t *testing.T) {
	run := RunContext{FaultsEnabled: true, BBEnabled: true, BBParsed: true, EventCount: 3}
	board := rowFor(t, BuildMatrix(nil, run), "System Board")
	if board.Status != StatusOK || board.TelemetryMissing {
		t.Fatalf("expected observed board to be ok, got %+v", board)
	}

	run.EventCount = 0
	board = rowFor(t, BuildMatrix(nil, run), "System Board")
	if board.Status != StatusMissing {
		t.Fatalf("expected missing without events, got %+v", board)
	}
	if cooling := rowFor(t, BuildMatrix(nil, run), "Cooling"); cooling.Status != StatusMissing {
		t.Fatalf("only the board has base telemetry, got %+v", cooling)
	}
}

func TestBuildExecutive(t *testing.T) {
	events := []models.LogRecord{
		{Severity: models.SeverityError},
		{Severity: models.SeverityCritical},
		{Severity: models.SeverityWarn},
		{Severity: models.SeverityInfo},
	}

	cases := []struct {
		name     string
		findings []models.Finding
		events   []models.LogRecord
		want     Verdict
	}{
		{name: "error finding", findings: []models.Finding{{Severity: models.SeverityWarn}, {Severity: models.SeverityCritical}}, want: VerdictIssues},
		{name: "warn finding", findings: []models.Finding{{Severity: models.SeverityWarn}}, events: events, want: VerdictWarnings},
		{name: "error events", events: events, want: VerdictElevatedEvents},
		{name: "warn events", events: []models.LogRecord{{Severity: models.SeverityWarn}}, want: VerdictEventWarnings},
		{name: "clean", findings: []models.Finding{{Severity: models.SeverityInfo}}, want: VerdictClean},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			exec := BuildExecutive(tc.findings, tc.events, true, RunContext{})
			if exec.Verdict != tc.want {
				t.Fatalf("expected %q, got %q", tc.want, exec.Verdict)
			}
		})
	}

	exec := BuildExecutive(nil, events, false, RunContext{BBEnabled: true})
	if exec.EventErrors != 2 || exec.EventWarnings != 1 || exec.InventoryDetected || !exec.BBEnabled {
		t.Fatalf("unexpected executive %+v", exec)
	}
}
