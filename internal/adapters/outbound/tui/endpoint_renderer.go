package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

var statusStyles = map[domain.ImplementationStatus]lipgloss.Style{
	domain.StatusImplemented: lipgloss.NewStyle().Bold(true).Foreground(success),
	domain.StatusPartial:     lipgloss.NewStyle().Bold(true).Foreground(warning),
	domain.StatusMissing:     lipgloss.NewStyle().Bold(true).Foreground(danger),
}

// RenderEndpointReport renders one endpoint discovery run.
func RenderEndpointReport(report *domain.EndpointReport) string {
	var b strings.Builder

	title := headerStyle.Render("pensieve doctor")
	subtitle := dimStyle.Render("Endpoint Discovery")
	count := titleStyle.Render(fmt.Sprintf("%d endpoints", len(report.Discovered)))

	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + count))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "  %s %s", titleStyle.Render("Base URL"), dimStyle.Render(report.BaseURL))
	if report.DeepScan {
		b.WriteString("  " + infoTagStyle.Render("deep scan"))
	}
	b.WriteString("\n\n")

	for _, g := range report.Groups {
		renderGroup(&b, g)
	}

	b.WriteString("\n")
	return b.String()
}

func renderGroup(b *strings.Builder, g domain.EndpointGroup) {
	status := statusStyles[g.Status].Render(string(g.Status))
	fmt.Fprintf(b, "  %s %s %s\n",
		titleStyle.Render(padRight(g.Name, 16)),
		status,
		dimStyle.Render(fmt.Sprintf("(%d)", len(g.Endpoints))))

	for _, ep := range g.Endpoints {
		renderEndpoint(b, ep)
	}
	b.WriteString("\n")
}

func renderEndpoint(b *strings.Builder, ep *domain.EndpointInfo) {
	score := ep.AvailabilityScore()
	var icon string
	switch {
	case score >= 0.8:
		icon = passStyle.Render("●")
	case score > 0:
		icon = warnStyle.Render("●")
	default:
		icon = failStyle.Render("●")
	}

	line := fmt.Sprintf("    %s %s %s",
		icon,
		faintStyle.Render(padRight(ep.Method, 5)),
		fileStyle.Render(padRight(ep.Path, 32)))
	if ep.Successes+ep.Failures > 0 {
		line += "  " + dimStyle.Render(fmt.Sprintf("%.0f%% · %.0f ms", score*100, ep.AvgResponseTimeMS))
	}
	b.WriteString(line + "\n")
}
