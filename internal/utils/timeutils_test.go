package utils

import (
	"testing"
	"time"
)

func TestParseLogTimestamp(t *testing.T) {
	want := time.Date(2024, 3, 1, 10, 15, 30, 0, time.UTC)
	for _, value := range []string{"2024-03-01 10:15:30", "2024-03-01T10:15:30", "03/01/2024 10:15:30", "03/01/24   10:15:30"} {
		got, err := ParseLogTimestamp(value)
		if err != nil {
			t.Fatalf("ParseLogTimestamp(%q): %v", value, err)
		}
		if !got.Equal(want) {
			t.Fatalf("ParseLogTimestamp(%q) = %v, want %v", value, got, want)
		}
	}

	if _, err := ParseLogTimestamp(""); err == nil {
		t.Fatalf("expected error for empty value")
	}
	if _, err := ParseLogTimestamp("yesterday"); err == nil {
		t.Fatalf("expected error for unrecognised value")
	}
}

func TestTimeSpan(t *testing.T) {
	first, last, ok := TimeSpan([]string{"bogus", "2024-03-02 00:00:00", "2024-03-01 12:00:00", "03/05/2024 08:00:00"})
	if !ok {
		t.Fatalf("expected a span")
	}
	if first.Day() != 1 || last.Day() != 5 {
		t.Fatalf("unexpected span %v - %v", first, last)
	}
	if _, _, ok := TimeSpan(nil); ok {
		t.Fatalf("expected no span for empty input")
	}
}
