package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"sqltune/internal/optimize"
)

var (
	colorAccent  = lipgloss.Color("#7AA2F7")
	colorSuccess = lipgloss.Color("#9ECE6A")
	colorWarning = lipgloss.Color("#E0AF68")
	colorError   = lipgloss.Color("#F7768E")
	colorMuted   = lipgloss.Color("#565F89")
)

var (
	styleTitle   = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	styleSuccess = lipgloss.NewStyle().Foreground(colorSuccess)
	styleWarning = lipgloss.NewStyle().Foreground(colorWarning)
	styleError   = lipgloss.NewStyle().Foreground(colorError)
	styleMuted   = lipgloss.NewStyle().Foreground(colorMuted)

	styleSQLBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorAccent).
			Padding(0, 1)
)

// renderResult formats the outcome of an optimization run for the terminal
func renderResult(res *optimize.Result) string {
	var b strings.Builder

	b.WriteString(styleTitle.Render("Optimization result"))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "  baseline median  %s\n", formatMS(res.BaselineMS))
	fmt.Fprintf(&b, "  best median      %s\n", formatMS(res.BestMS))

	if res.Improved {
		pct := (res.BaselineMS - res.BestMS) / res.BaselineMS * 100.0
		line := fmt.Sprintf("  improvement      %.1f%%", pct)
		if res.StoppedEarly {
			line += "  (stopped at threshold)"
		}
		b.WriteString(styleSuccess.Render(line))
		b.WriteString("\n")
	} else {
		b.WriteString(styleWarning.Render("  no candidate beat the baseline; keeping the original query"))
		b.WriteString("\n")
	}

	for _, r := range res.Rounds {
		status := styleMuted.Render("kept previous best")
		switch {
		case r.Adopted:
			status = styleSuccess.Render(fmt.Sprintf("adopted, %.1f%% faster", r.ImprovePct))
		case r.CandidateSQL == "":
			status = styleWarning.Render("no SQL in model output")
		case !r.Benchmark.OK:
			status = styleError.Render("benchmark failed: " + r.Benchmark.Error)
		}
		fmt.Fprintf(&b, "  round %d          %s\n", r.N, status)
	}

	b.WriteString("\n")
	b.WriteString(styleSQLBox.Render(res.BestSQL))
	b.WriteString("\n")

	if res.BestReport.PlanSample != "" {
		b.WriteString("\n")
		b.WriteString(styleMuted.Render("plan:"))
		b.WriteString("\n")
		b.WriteString(styleMuted.Render(res.BestReport.PlanSample))
		b.WriteString("\n")
	}

	return b.String()
}

func formatMS(ms float64) string {
	if ms >= 1000 {
		return fmt.Sprintf("%.2fs", ms/1000)
	}
	return fmt.Sprintf("%.1fms", ms)
}
