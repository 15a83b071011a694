package tui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

// ── Claude-inspired warm palette ──
var (
	accent    = lipgloss.Color("#D97706") // amber
	fg        = lipgloss.Color("#E8E6E3") // warm light gray
	dim       = lipgloss.Color("#6B7280") // muted gray
	faint     = lipgloss.Color("#3F3F46") // very dim
	success   = lipgloss.Color("#22C55E") // green
	danger    = lipgloss.Color("#EF4444") // red
	warning   = lipgloss.Color("#F59E0B") // amber-yellow
	info      = lipgloss.Color("#8B949E") // soft blue-gray
	skipColor = lipgloss.Color("#4B5563") // dark gray
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accent).
			Align(lipgloss.Center)

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(1, 4).
			Align(lipgloss.Center).
			Width(68)

	dimStyle      = lipgloss.NewStyle().Foreground(dim)
	faintStyle    = lipgloss.NewStyle().Foreground(faint)
	passStyle     = lipgloss.NewStyle().Foreground(success)
	failStyle     = lipgloss.NewStyle().Foreground(danger)
	warnStyle     = lipgloss.NewStyle().Foreground(warning)
	skipStyle     = lipgloss.NewStyle().Foreground(skipColor)
	errorTagStyle = lipgloss.NewStyle().Foreground(danger).Bold(true)
	warnTagStyle  = lipgloss.NewStyle().Foreground(warning).Bold(true)
	infoTagStyle  = lipgloss.NewStyle().Foreground(info)
	fileStyle     = lipgloss.NewStyle().Foreground(dim)
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(fg)
	separatorLine = faintStyle.Render(strings.Repeat("─", 64))
)

// RenderScanReport renders a full health-scan report as a styled TUI string.
func RenderScanReport(report *domain.ScanReport) string {
	var b strings.Builder

	// ── Header ──
	title := headerStyle.Render("pensieve doctor")
	subtitle := dimStyle.Render("Integration Health Scan")
	verdict := renderVerdict(report)

	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + verdict))
	b.WriteString("\n\n")

	// ── Stats ──
	fmt.Fprintf(&b, "  %s %s\n",
		titleStyle.Render("Files"),
		dimStyle.Render(fmt.Sprintf("%d analyzed · %d skipped · %d timed out · %d cache hits",
			report.FilesAnalyzed, report.FilesSkipped, report.FilesTimedOut, report.CacheHits)))
	if report.CommitHash != "" {
		hash := report.CommitHash
		if len(hash) > 7 {
			hash = hash[:7]
		}
		fmt.Fprintf(&b, "  %s %s\n", titleStyle.Render("Commit"), faintStyle.Render(hash))
	}
	fmt.Fprintf(&b, "  %s %s\n",
		titleStyle.Render("Duration"), dimStyle.Render(report.Duration.Round(10*time.Millisecond).String()))

	b.WriteString("\n  " + separatorLine + "\n\n")

	// ── Findings ──
	if len(report.Findings) == 0 {
		b.WriteString("  " + passStyle.Render("No issues found.") + "\n")
		return b.String()
	}

	errorCount := report.CountBySeverity(domain.SeverityError)
	warnCount := report.CountBySeverity(domain.SeverityWarning)
	infoCount := len(report.Findings) - errorCount - warnCount

	b.WriteString("  " + titleStyle.Render("Findings") + "  ")
	if errorCount > 0 {
		b.WriteString(errorTagStyle.Render(fmt.Sprintf("%d errors", errorCount)) + "  ")
	}
	if warnCount > 0 {
		b.WriteString(warnTagStyle.Render(fmt.Sprintf("%d warnings", warnCount)) + "  ")
	}
	if infoCount > 0 {
		b.WriteString(infoTagStyle.Render(fmt.Sprintf("%d info", infoCount)))
	}
	b.WriteString("\n\n")

	for _, f := range sortFindings(report.Findings) {
		renderFinding(&b, f)
	}

	if report.AutoFixEnabled {
		b.WriteString("\n")
		fmt.Fprintf(&b, "  %s %s\n",
			passStyle.Render("✔"),
			dimStyle.Render(fmt.Sprintf("%d fixes applied automatically", report.FixesApplied)))
	}
	b.WriteString("\n")
	return b.String()
}

func renderVerdict(report *domain.ScanReport) string {
	errors := report.CountBySeverity(domain.SeverityError)
	switch {
	case errors > 0:
		return lipgloss.NewStyle().Bold(true).Foreground(danger).
			Render(fmt.Sprintf("%d critical issues", errors))
	case len(report.Findings) > 0:
		return lipgloss.NewStyle().Bold(true).Foreground(warning).
			Render(fmt.Sprintf("%d issues", len(report.Findings)))
	default:
		return lipgloss.NewStyle().Bold(true).Foreground(success).Render("healthy")
	}
}

func renderFinding(b *strings.Builder, f domain.Finding) {
	tag := severityTag(f.Severity)
	location := fmt.Sprintf("%s:%d", shortenPath(f.File), f.Line)

	fmt.Fprintf(b, "    %s %s  %s\n", tag, fileStyle.Render(location), faintStyle.Render(f.Type))
	fmt.Fprintf(b, "         %s\n", dimStyle.Render(f.Message))
	if f.SuggestedFix != "" {
		fmt.Fprintf(b, "         %s %s\n",
			skipStyle.Render("fix:"), skipStyle.Render(f.SuggestedFix))
	}
}

func severityTag(severity string) string {
	switch severity {
	case domain.SeverityError:
		return errorTagStyle.Render("error")
	case domain.SeverityWarning:
		return warnTagStyle.Render("warn ")
	default:
		return infoTagStyle.Render("info ")
	}
}

// sortFindings orders errors first, then warnings, then info, stably.
func sortFindings(findings []domain.Finding) []domain.Finding {
	order := map[string]int{
		domain.SeverityError:   0,
		domain.SeverityWarning: 1,
		domain.SeverityInfo:    2,
	}
	out := make([]domain.Finding, len(findings))
	copy(out, findings)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && order[out[j].Severity] < order[out[j-1].Severity]; j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func shortenPath(path string) string {
	parts := strings.Split(filepath.ToSlash(path), "/")
	if len(parts) > 3 {
		return strings.Join(parts[len(parts)-3:], "/")
	}
	return path
}
