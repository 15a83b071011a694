package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// RenderHealthStatus renders one health check verdict.
func RenderHealthStatus(status domain.HealthStatus) string {
	var b strings.Builder

	title := headerStyle.Render("pensieve doctor")
	subtitle := dimStyle.Render("Service Health")

	var verdict string
	if status.IsHealthy {
		verdict = lipgloss.NewStyle().Bold(true).Foreground(success).Render("healthy")
	} else {
		verdict = lipgloss.NewStyle().Bold(true).Foreground(danger).Render("unhealthy")
	}

	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + verdict))
	b.WriteString("\n\n")

	renderComponent(&b, "API responding", status.APIResponding)
	renderComponent(&b, "Service running", status.ServiceRunning)
	renderComponent(&b, "Database accessible", status.DatabaseAccessible)

	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s %s\n",
		titleStyle.Render("Response time"),
		dimStyle.Render(fmt.Sprintf("%d ms", status.ResponseTimeMS)))
	fmt.Fprintf(&b, "  %s %s\n",
		titleStyle.Render("Checked at"),
		dimStyle.Render(status.LastCheck.Format("15:04:05")))

	if len(status.Warnings) > 0 {
		b.WriteString("\n  " + warnTagStyle.Render("Warnings") + "\n")
		for _, w := range status.Warnings {
			fmt.Fprintf(&b, "    %s %s\n", warnStyle.Render("●"), dimStyle.Render(w))
		}
	}

	b.WriteString("\n")
	return b.String()
}

func renderComponent(b *strings.Builder, name string, ok bool) {
	icon := failStyle.Render("●")
	if ok {
		icon = passStyle.Render("●")
	}
	fmt.Fprintf(b, "    %s %s\n", icon, padRight(name, 24))
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return s + strings.Repeat(" ", width-len(s))
}
