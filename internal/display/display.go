// Package display renders committee results for the terminal and as markdown.
package display

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/dyike/CortexCommittee/internal/graph"
	"github.com/dyike/CortexCommittee/internal/models"
	"github.com/dyike/CortexCommittee/internal/storage"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6"))

	boxStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3B82F6")).
			Padding(0, 2)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	completedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)
)

func Title(s string) string   { return titleStyle.Render(s) }
func Success(s string) string { return completedStyle.Render("✓ " + s) }
func Warn(s string) string    { return warnStyle.Render("! " + s) }
func Error(err error) string  { return errorStyle.Render("✗ " + err.Error()) }

// Result renders a finished run for the terminal.
func Result(res *graph.Result) string {
	if res == nil {
		return mutedStyle.Render("no result")
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Investment Committee · "+subject(res.Request)) + "\n")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("run %s · %d iteration(s) · %d core round(s) · %s",
		res.RequestID, res.Iterations, res.CoreRounds, res.Duration.Round(time.Millisecond))) + "\n\n")

	b.WriteString(boxStyle.Render(decisionBlock(res)) + "\n\n")

	if res.Findings != nil && len(res.Findings.Slots) > 0 {
		b.WriteString(sectionStyle.Render("Core findings") + "\n")
		for _, s := range res.Findings.Slots {
			line := fmt.Sprintf("  • %-34s %s", s.Analyst, findingLine(s.Finding))
			if s.Degraded() {
				line += " " + warnStyle.Render("[degraded: "+s.Cause+"]")
			}
			b.WriteString(line + "\n")
		}
		b.WriteString("\n")
	}

	if r := res.Risk; r != nil {
		b.WriteString(sectionStyle.Render("Risk") + "\n")
		b.WriteString(fmt.Sprintf("  overall %.2f · fusion confidence %.2f%s\n", r.OverallRiskScore, r.FusionConfidence, degradedMark(r.Degraded)))
		for _, a := range r.Alerts {
			b.WriteString("  " + alertStyle(a).Render("▲ "+a) + "\n")
		}
		for _, dim := range sortedKeys(r.Dimensions) {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("    %-22s %.2f", dim, r.Dimensions[dim])) + "\n")
		}
		b.WriteString("\n")
	}

	if m := res.Macro; m != nil {
		b.WriteString(sectionStyle.Render("Macro") + "\n")
		b.WriteString(fmt.Sprintf("  regime %s · coherence %.2f%s\n", m.MarketRegime, m.CoherenceScore, degradedMark(m.Degraded)))
		if len(m.GlobalRisks) > 0 {
			b.WriteString("  global risks: " + strings.Join(m.GlobalRisks, ", ") + "\n")
		}
		b.WriteString("\n")
	}

	if di := res.DataIntelligence; di != nil {
		b.WriteString(sectionStyle.Render("Data") + "\n")
		b.WriteString(fmt.Sprintf("  sentiment quality %.2f · %d news · %d quotes%s\n",
			di.SentimentQuality, len(di.News), len(di.Quotes), degradedMark(di.Degraded)))
		for _, q := range di.Quotes {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("    %-8s %10.2f %+6.2f%% (%s)", q.Symbol, q.Price, q.ChangePct, q.Source)) + "\n")
		}
		b.WriteString("\n")
	}

	if mn := res.Minutes; mn != nil {
		b.WriteString(sectionStyle.Render("Minutes "+mn.MeetingID) + "\n")
		writeList(&b, "debates", mn.KeyDebates)
		writeList(&b, "consensus", mn.ConsensusPoints)
		writeList(&b, "process", mn.DecisionProcess)
		b.WriteString("  resolution: " + mn.FinalResolution + "\n")
	}
	return b.String()
}

func decisionBlock(res *graph.Result) string {
	stage := stageStyle(res.TerminalStage).Render(string(res.TerminalStage))
	if res.Decision == nil {
		return "stage " + stage + "\n" + mutedStyle.Render("no decision was taken")
	}
	d := res.Decision
	lines := []string{
		fmt.Sprintf("stage %s", stage),
		fmt.Sprintf("action %s · confidence %.2f", actionStyle(d.Action).Render(strings.ToUpper(string(d.Action))), d.Confidence),
	}
	if e := res.Enhanced; e != nil {
		lines = append(lines, fmt.Sprintf("risk-adjusted %.2f · macro alignment %.2f · data quality %.2f",
			e.RiskAdjustedConfidence, e.MacroAlignment, e.DataQualityFactor))
	}
	if d.Fallback {
		lines = append(lines, warnStyle.Render("synthesizer unavailable, rule-based decision"))
	}
	if d.Rationale != "" {
		lines = append(lines, "", d.Rationale)
	}
	return strings.Join(lines, "\n")
}

// Markdown renders the run as a standalone minutes document.
func Markdown(res *graph.Result) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Investment Committee: %s\n\n", subject(res.Request))
	fmt.Fprintf(&b, "- Run: `%s`\n- Stage: %s\n- Iterations: %d\n- Core rounds: %d\n",
		res.RequestID, res.TerminalStage, res.Iterations, res.CoreRounds)
	if req := res.Request; req != nil {
		fmt.Fprintf(&b, "- Horizon: %s\n- Risk appetite: %s\n", req.TimeHorizon, req.RiskAppetite)
		if len(req.Symbols) > 0 {
			fmt.Fprintf(&b, "- Symbols: %s\n", strings.Join(req.Symbols, ", "))
		}
	}

	b.WriteString("\n## Decision\n\n")
	if d := res.Decision; d != nil {
		fmt.Fprintf(&b, "**%s** at confidence %.2f\n\n", strings.ToUpper(string(d.Action)), d.Confidence)
		if e := res.Enhanced; e != nil {
			fmt.Fprintf(&b, "| risk-adjusted | macro alignment | data quality |\n|---|---|---|\n| %.2f | %.2f | %.2f |\n\n",
				e.RiskAdjustedConfidence, e.MacroAlignment, e.DataQualityFactor)
		}
		if d.Rationale != "" {
			b.WriteString(d.Rationale + "\n\n")
		}
		mdList(&b, "Key drivers", d.KeyDrivers)
		mdList(&b, "Risk checks", d.RiskChecks)
	} else {
		b.WriteString("No decision was taken.\n\n")
	}

	if res.Findings != nil {
		b.WriteString("## Findings\n\n")
		for _, s := range res.Findings.Slots {
			fmt.Fprintf(&b, "- **%s**: %s", s.Analyst, findingLine(s.Finding))
			if s.Degraded() {
				fmt.Fprintf(&b, " _(degraded: %s)_", s.Cause)
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	if r := res.Risk; r != nil {
		fmt.Fprintf(&b, "## Risk\n\nOverall %.2f, fusion confidence %.2f.\n\n", r.OverallRiskScore, r.FusionConfidence)
		mdList(&b, "Alerts", r.Alerts)
	}
	if mn := res.Minutes; mn != nil {
		fmt.Fprintf(&b, "## Minutes (%s)\n\n", mn.MeetingID)
		mdList(&b, "Participants", mn.Participants)
		mdList(&b, "Key debates", mn.KeyDebates)
		mdList(&b, "Consensus", mn.ConsensusPoints)
		mdList(&b, "Decision process", mn.DecisionProcess)
		fmt.Fprintf(&b, "**Resolution:** %s\n", mn.FinalResolution)
	}
	return b.String()
}

// History renders stored runs, newest first.
func History(runs []storage.RunWithMeta) string {
	if len(runs) == 0 {
		return mutedStyle.Render("no recorded runs")
	}
	var b strings.Builder
	b.WriteString(sectionStyle.Render(fmt.Sprintf("%-36s  %-19s  %-10s  %-11s  %5s  %5s  %s",
		"ID", "CREATED", "STAGE", "ACTION", "CONF", "RISK", "SUBJECT")) + "\n")
	for _, r := range runs {
		action := r.Action
		if action == "" {
			action = "-"
		}
		fmt.Fprintf(&b, "%-36s  %-19s  %-10s  %-11s  %5.2f  %5.2f  %s\n",
			r.ID, r.CreatedAt, stageStyle(r.Stage).Render(string(r.Stage)), action, r.RiskAdjusted, r.RiskScore, truncate(r.Subject, 40))
	}
	return b.String()
}

func findingLine(f models.Finding) string {
	switch v := f.(type) {
	case *models.NarrativeFinding:
		return fmt.Sprintf("%s (meme %.2f, %dd)", truncate(v.OneLiner, 60), v.MemePotential, v.LifecycleDays)
	case *models.QuantImpact:
		return fmt.Sprintf("%s, %s", v.Magnitude, truncate(v.PnLLine, 60))
	case *models.ContrarianRisk:
		return fmt.Sprintf("%d concern(s)", v.Concerns())
	case *models.SecondOrderEffects:
		return fmt.Sprintf("%d competitor move(s), %d regulatory watchpoint(s)", len(v.CompetitorMoves), len(v.RegulatoryWatchpoints))
	default:
		return ""
	}
}

func subject(req *models.AnalysisRequest) string {
	if req == nil {
		return "unknown"
	}
	s := req.Topic
	if len(req.Symbols) > 0 {
		s += " (" + strings.Join(req.Symbols, ", ") + ")"
	}
	return s
}

func stageStyle(s models.Stage) lipgloss.Style {
	switch s {
	case models.StageCompleted:
		return completedStyle
	case models.StageAborted:
		return errorStyle
	default:
		return warnStyle
	}
}

func actionStyle(a models.Action) lipgloss.Style {
	switch a {
	case models.ActionBuy, models.ActionStrongBuy:
		return completedStyle
	case models.ActionSell, models.ActionStrongSell:
		return errorStyle
	default:
		return warnStyle
	}
}

func alertStyle(alert string) lipgloss.Style {
	if strings.Contains(strings.ToLower(alert), "critical") {
		return errorStyle
	}
	return warnStyle
}

func degradedMark(degraded bool) string {
	if degraded {
		return " " + warnStyle.Render("[degraded]")
	}
	return ""
}

func writeList(b *strings.Builder, label string, items []string) {
	if len(items) == 0 {
		return
	}
	b.WriteString("  " + label + ":\n")
	for _, it := range items {
		b.WriteString("    - " + it + "\n")
	}
}

func mdList(b *strings.Builder, title string, items []string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintf(b, "**%s**\n\n", title)
	for _, it := range items {
		b.WriteString("- " + it + "\n")
	}
	b.WriteString("\n")
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
