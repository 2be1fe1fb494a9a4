package extractors

import (
	"testing"

	"github.com/miradorstack/ahsdp/internal/models"
)

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		line string
		want models.Severity
	}{
		{"System Board failure detected", models.SeverityError},
		{"PANIC in module", models.SeverityError},
		{"ASR timer expired", models.SeverityError},
		{"Fan degraded", models.SeverityWarn},
		{"Caution: inlet temperature", models.SeverityWarn},
		{"Service started", models.SeverityInfo},
		{"Notice: POST complete", models.SeverityInfo},
		{"Bus err 0x12", models.SeverityError},
		{"plain line", models.SeverityInfo},
		{"Warning but failed", models.SeverityError},
	}
	for _, tt := range tests {
		if got := ClassifySeverity(tt.line); got != tt.want {
			t.Errorf("ClassifySeverity(%q) = %s, want %s", tt.line, got, tt.want)
		}
	}
}

func TestExtractTimestamp(t *testing.T) {
	tests := []struct {
		line string
		want string
		ok   bool
	}{
		{"2019-09-02 10:15:30 POST complete", "2019-09-02 10:15:30", true},
		{"event at 2019-09-02T10:15:30Z", "2019-09-02T10:15:30", true},
		{"09/02/2019 10:15:30 fan fault", "09/02/2019 10:15:30", true},
		{"09/02/19 10:15:30 fan fault", "09/02/19 10:15:30", true},
		{"no time here", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractTimestamp(tt.line)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ExtractTimestamp(%q) = %q, %v; want %q, %v", tt.line, got, ok, tt.want, tt.ok)
		}
	}
}

func TestParseLinesSkipsBlankLines(t *testing.T) {
	text := "  2019-09-02 10:15:30 System Board failure  \r\n\r\nfan degraded\rok\n"

	records := ParseLines("sample.bb", text)

	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(records), records)
	}
	first := records[0]
	if first.Line != 1 || first.Message != "2019-09-02 10:15:30 System Board failure" {
		t.Fatalf("unexpected first record %+v", first)
	}
	if first.Severity != models.SeverityError || first.Timestamp != "2019-09-02 10:15:30" {
		t.Fatalf("unexpected classification %+v", first)
	}
	if records[1].Line != 3 || records[1].Severity != models.SeverityWarn {
		t.Fatalf("unexpected second record %+v", records[1])
	}
	if records[2].Line != 4 || records[2].Timestamp != "" {
		t.Fatalf("unexpected third record %+v", records[2])
	}
	for _, rec := range records {
		if rec.Source != "sample.bb" {
			t.Fatalf("source = %q", rec.Source)
		}
	}
}

func TestSplitLinesUniversalBoundaries(t *testing.T) {
	tests := []struct {
		text string
		want []string
	}{
		{"a\nb\r\nc\rd", []string{"a", "b", "c", "d"}},
		{"a\fb\vc", []string{"a", "b", "c"}},
		{"a\x1cb\x1dc\x1ed", []string{"a", "b", "c", "d"}},
		{"a\u0085b\u2028c\u2029d", []string{"a", "b", "c", "d"}},
		{"a\n\nb\n", []string{"a", "", "b"}},
		{"café\u2028naïve", []string{"café", "naïve"}},
		{"", nil},
	}
	for _, tt := range tests {
		got := SplitLines(tt.text)
		if len(got) != len(tt.want) {
			t.Fatalf("SplitLines(%q) = %q, want %q", tt.text, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Fatalf("SplitLines(%q) = %q, want %q", tt.text, got, tt.want)
			}
		}
	}
}

func TestParseLinesFormFeedAndNEL(t *testing.T) {
	records := ParseLines("log", "first ok\fSystem Board fault\u0085third")
	if len(records) != 3 {
		t.Fatalf("expected 3 records, got %d: %+v", len(records), records)
	}
	if records[1].Line != 2 || records[1].Message != "System Board fault" {
		t.Fatalf("unexpected second record %+v", records[1])
	}
	if records[2].Line != 3 || records[2].Message != "third" {
		t.Fatalf("unexpected third record %+v", records[2])
	}
}
