package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/pensieve/pensieve-doctor/internal/domain"
)

var riskColors = map[domain.RiskLevel]lipgloss.Color{
	domain.RiskLow:    success,
	domain.RiskMedium: warning,
	domain.RiskHigh:   danger,
}

// RenderReadiness renders a pre-migration assessment verdict.
func RenderReadiness(r *domain.Readiness) string {
	var b strings.Builder

	title := headerStyle.Render("pensieve doctor")
	subtitle := dimStyle.Render("Migration Readiness")

	var verdict string
	if r.Ready {
		verdict = lipgloss.NewStyle().Bold(true).Foreground(success).Render("ready")
	} else {
		verdict = lipgloss.NewStyle().Bold(true).Foreground(danger).Render("not ready")
	}
	b.WriteString(boxStyle.Render(title + "\n" + subtitle + "\n\n" + verdict))
	b.WriteString("\n\n")

	fmt.Fprintf(&b, "  %s %s\n",
		titleStyle.Render("Entities"),
		dimStyle.Render(fmt.Sprintf("%d (%.1f MB)", r.Metrics.EntityCount, r.Metrics.DataSizeMB)))
	fmt.Fprintf(&b, "  %s %s\n",
		titleStyle.Render("Avg query"),
		dimStyle.Render(fmt.Sprintf("%.1f ms", r.Metrics.AvgQueryTimeMS)))
	fmt.Fprintf(&b, "  %s %s\n",
		titleStyle.Render("Recommended"),
		lipgloss.NewStyle().Bold(true).Foreground(accent).Render(string(r.Recommended)))
	fmt.Fprintf(&b, "  %s %s\n",
		titleStyle.Render("Risk"),
		lipgloss.NewStyle().Bold(true).Foreground(riskColor(r.Risk)).Render(string(r.Risk)))

	renderStringSection(&b, "Blockers", r.Blockers, failStyle)
	renderStringSection(&b, "Prerequisites", r.Prerequisites, warnStyle)
	renderStringSection(&b, "Recommendations", r.Recommendations, infoTagStyle)

	b.WriteString("\n")
	return b.String()
}

// RenderPlan renders a migration runbook before execution.
func RenderPlan(plan *domain.MigrationPlan) string {
	var b strings.Builder

	header := fmt.Sprintf("%s → %s", plan.Source, plan.Target)
	b.WriteString(boxStyle.Render(
		headerStyle.Render("migration plan") + "\n" +
			titleStyle.Render(header) + "\n\n" +
			dimStyle.Render(fmt.Sprintf("~%s · risk %s",
				plan.EstimatedDuration.Round(time.Minute), plan.Risk))))
	b.WriteString("\n\n")

	for i, step := range plan.Steps {
		renderStep(&b, i+1, step)
	}

	b.WriteString("\n  " + faintStyle.Render(fmt.Sprintf("plan %s", plan.ID)) + "\n")
	return b.String()
}

// RenderExecutionResult renders the outcome of one plan execution.
func RenderExecutionResult(plan *domain.MigrationPlan, result *domain.ExecutionResult) string {
	var b strings.Builder

	var verdict string
	switch result.Status {
	case domain.ExecutionCompleted:
		verdict = lipgloss.NewStyle().Bold(true).Foreground(success).Render("completed")
	case domain.ExecutionDryRunCompleted:
		verdict = lipgloss.NewStyle().Bold(true).Foreground(info).Render("dry run completed")
	default:
		verdict = lipgloss.NewStyle().Bold(true).Foreground(danger).Render("failed")
	}
	b.WriteString(boxStyle.Render(headerStyle.Render("migration") + "\n\n" + verdict))
	b.WriteString("\n\n")

	for i, step := range plan.Steps {
		renderStep(&b, i+1, step)
	}

	b.WriteString("\n")
	fmt.Fprintf(&b, "  %s %s\n",
		titleStyle.Render("Steps"),
		dimStyle.Render(fmt.Sprintf("%d completed · %d failed · %d skipped",
			result.StepsCompleted, result.StepsFailed, result.StepsSkipped)))

	if result.RollbackRequired {
		state := failStyle.Render("rollback failed")
		if result.RollbackPerformed {
			state = passStyle.Render("rolled back")
		}
		fmt.Fprintf(&b, "  %s %s\n", titleStyle.Render("Rollback"), state)
	}
	if result.Error != "" {
		fmt.Fprintf(&b, "  %s %s\n", errorTagStyle.Render("error"), dimStyle.Render(result.Error))
	}

	b.WriteString("\n")
	return b.String()
}

func renderStep(b *strings.Builder, n int, step domain.MigrationStep) {
	var icon string
	switch step.Status {
	case domain.StepCompleted:
		icon = passStyle.Render("●")
	case domain.StepFailed:
		icon = failStyle.Render("●")
	case domain.StepRunning:
		icon = warnStyle.Render("●")
	case domain.StepSkipped:
		icon = skipStyle.Render("○")
	default:
		icon = faintStyle.Render("○")
	}

	line := fmt.Sprintf("    %s %s %s", icon, faintStyle.Render(fmt.Sprintf("%2d", n)), padRight(step.Name, 24))
	if d := step.Duration(); d > 0 {
		line += "  " + dimStyle.Render(d.Round(10*time.Millisecond).String())
	}
	b.WriteString(line + "\n")
	if step.Error != "" {
		fmt.Fprintf(b, "         %s\n", failStyle.Render(step.Error))
	}
}

func renderStringSection(b *strings.Builder, title string, items []string, style lipgloss.Style) {
	if len(items) == 0 {
		return
	}
	b.WriteString("\n  " + titleStyle.Render(title) + "\n")
	for _, item := range items {
		fmt.Fprintf(b, "    %s %s\n", style.Render("●"), dimStyle.Render(item))
	}
}

func riskColor(risk domain.RiskLevel) lipgloss.Color {
	if c, ok := riskColors[risk]; ok {
		return c
	}
	return fg
}
