package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/sercha-rag/internal/core/domain"
)

// Palette shared by command output.
var (
	colourPrimary = lipgloss.Color("#7C3AED")
	colourMuted   = lipgloss.Color("#6C7086")
	colourSuccess = lipgloss.Color("#A6E3A1")
	colourWarning = lipgloss.Color("#F9E2AF")
	colourError   = lipgloss.Color("#F38BA8")
)

// outputStyles are the lipgloss styles used when printing results.
type outputStyles struct {
	Title   lipgloss.Style
	Label   lipgloss.Style
	Muted   lipgloss.Style
	Success lipgloss.Style
	Warning lipgloss.Style
	Error   lipgloss.Style
}

var styles = outputStyles{
	Title:   lipgloss.NewStyle().Bold(true).Foreground(colourPrimary),
	Label:   lipgloss.NewStyle().Bold(true),
	Muted:   lipgloss.NewStyle().Foreground(colourMuted),
	Success: lipgloss.NewStyle().Foreground(colourSuccess),
	Warning: lipgloss.NewStyle().Foreground(colourWarning),
	Error:   lipgloss.NewStyle().Foreground(colourError),
}

// confidenceStyle colours a confidence value by band.
func confidenceStyle(c domain.Confidence) lipgloss.Style {
	switch {
	case !c.Defined:
		return styles.Muted
	case c.Value >= 0.8:
		return styles.Success
	default:
		return styles.Warning
	}
}

// renderAnswer formats an answer with its confidence and sources.
func renderAnswer(a *domain.Answer) string {
	var b strings.Builder
	b.WriteString(a.Text)
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "%s %s", styles.Label.Render("Confidence:"), confidenceStyle(a.Confidence).Render(a.Confidence.String()))
	if a.LowConfidence {
		b.WriteString(" " + styles.Warning.Render("(low: no chunk passed the similarity threshold)"))
	}
	b.WriteString("\n")

	switch a.Mode {
	case domain.RetrievalModeUngrounded:
		b.WriteString(styles.Warning.Render("Answered without document context.") + "\n")
	case domain.RetrievalModeError:
		b.WriteString(styles.Error.Render("Generation failed: "+a.Error) + "\n")
	}

	if len(a.Sources) > 0 {
		b.WriteString(styles.Label.Render("Sources:") + "\n")
		for _, s := range a.Sources {
			fmt.Fprintf(&b, "  - %s\n", s)
		}
	}
	return b.String()
}
