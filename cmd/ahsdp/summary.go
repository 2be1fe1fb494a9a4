package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/miradorstack/ahsdp/internal/services"
	"github.com/miradorstack/ahsdp/internal/summary"
)

var (
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	boldStyle   = lipgloss.NewStyle().Bold(true)
	redStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	orangeStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	yellowStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	greenStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func verdictStyle(v summary.Verdict) lipgloss.Style {
	switch v {
	case summary.VerdictIssues:
		return redStyle
	case summary.VerdictWarnings, summary.VerdictElevatedEvents:
		return orangeStyle
	case summary.VerdictEventWarnings:
		return yellowStyle
	default:
		return greenStyle
	}
}

// printResult writes the per-bundle lines operators and scripts look for.
func printResult(w io.Writer, res *services.Result) {
	doc := res.Document
	exec := doc.Executive
	style := verdictStyle(exec.Verdict)

	fmt.Fprintf(w, "%s %s %s\n",
		style.Render("●"),
		boldStyle.Render(string(exec.Verdict)),
		dimStyle.Render(fmt.Sprintf("%d findings, %d events, %s", len(doc.Findings), len(doc.Events), res.Duration.Round(time.Millisecond))))
	if res.Preserved != "" {
		fmt.Fprintf(w, "Temporary extraction preserved at: %s\n", res.Preserved)
	}
	for _, path := range res.Exports {
		fmt.Fprintf(w, "%s\n", dimStyle.Render("Wrote export: "+path))
	}
	fmt.Fprintf(w, "Wrote report: %s\n", res.ReportPath)
}
