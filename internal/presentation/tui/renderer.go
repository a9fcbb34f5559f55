// Package tui renders stage instructions and status summaries for terminal
// consumers.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/wefthq/weft/pkg/domain"
)

// NewRenderer returns a function that renders markdown for the terminal.
// Width follows the terminal when stdout is a TTY; piped output comes back
// unstyled so it stays grep-friendly.
func NewRenderer() func(string) (string, error) {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}

	width := 100
	if w, _, err := term.GetSize(fd); err == nil && w > 0 {
		width = w
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return func(markdown string) (string, error) {
			return markdown, nil
		}
	}
	return func(markdown string) (string, error) {
		return r.Render(markdown)
	}
}

// StatusLine formats one stage's readiness as a colored single line.
func StatusLine(r domain.NodeReadiness) string {
	p := termenv.ColorProfile()

	var marker termenv.Style
	switch {
	case r.Skipped:
		marker = termenv.String("⊘ skipped").Foreground(p.Color("#607d8b"))
	case r.Stale:
		marker = termenv.String("! stale").Foreground(p.Color("#e65100"))
	case r.Complete:
		marker = termenv.String("✓ complete").Foreground(p.Color("#2e7d32"))
	case r.Ready:
		marker = termenv.String("→ ready").Foreground(p.Color("#fbc02d"))
	default:
		marker = termenv.String("· blocked").Foreground(p.Color("#9e9e9e"))
	}

	line := fmt.Sprintf("  %-24s %s", r.Stage, marker)
	if r.Phase != "" {
		line += termenv.String("  [" + r.Phase + "]").Faint().String()
	}
	return line
}

// StatusSummary formats the whole position report.
func StatusSummary(pos *domain.WorkflowPosition, readiness []domain.NodeReadiness) string {
	var sb strings.Builder

	if pos.IsComplete {
		sb.WriteString("Workflow complete.\n\n")
	} else if pos.CurrentStage != "" {
		sb.WriteString(fmt.Sprintf("Next up: %s (%d/%d done)\n\n",
			pos.CurrentStage, pos.CompletedCount, pos.TotalCount))
	} else {
		sb.WriteString(fmt.Sprintf("Blocked (%d/%d done)\n\n",
			pos.CompletedCount, pos.TotalCount))
	}

	for _, r := range readiness {
		sb.WriteString(StatusLine(r))
		sb.WriteString("\n")
	}

	for _, w := range pos.Warnings {
		sb.WriteString(termenv.String("\n  warning: " + w).Foreground(termenv.ColorProfile().Color("#e65100")).String())
		sb.WriteString("\n")
	}
	return sb.String()
}
