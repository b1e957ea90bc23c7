// Package report turns a finished workflow state into committee minutes.
package report

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/dyike/CortexCommittee/consts"
	"github.com/dyike/CortexCommittee/internal/models"
)

// Scores are the enrichment figures the minutes quote. The engine computes them.
type Scores struct {
	DataQuality    float64
	MacroAlignment float64
}

// BuildMinutes assembles the minutes of a run that reached a terminal stage.
func BuildMinutes(st *models.WorkflowState, scores Scores, now time.Time) *models.CommitteeMinutes {
	m := &models.CommitteeMinutes{
		MeetingID:       "meeting-" + now.Format("20060102150405"),
		Participants:    slices.Clone(consts.CommitteeRoster),
		Rounds:          st.Iter,
		KeyDebates:      keyDebates(st),
		ConsensusPoints: consensus(scores),
		DecisionProcess: process(st),
		FinalResolution: consts.Resolution_NotDecided,
		TerminalStage:   st.Stage,
		Timestamp:       now,
	}
	if st.Stage != models.StageAborted && st.Decision != nil {
		m.FinalResolution = string(st.Decision.Action)
	}
	return m
}

func keyDebates(st *models.WorkflowState) []string {
	debates := []string{}
	if n, ok := st.Findings.Narrative(); ok && math.Abs(n.MemePotential-0.5) > 0.3 {
		debates = append(debates, fmt.Sprintf("Narrative strength is contested: meme potential %.2f is far from neutral", n.MemePotential))
	}
	if ra := st.RiskAssessment; ra != nil && ra.OverallRiskScore > 0.6 {
		debates = append(debates, fmt.Sprintf("Risk level is elevated at %.2f", ra.OverallRiskScore))
	}
	return debates
}

func consensus(s Scores) []string {
	points := []string{}
	if s.DataQuality > 0.7 {
		points = append(points, fmt.Sprintf("Data quality is good (%.2f)", s.DataQuality))
	}
	if s.MacroAlignment > 0.7 {
		points = append(points, fmt.Sprintf("Decision is aligned with the macro regime (%.2f)", s.MacroAlignment))
	}
	return points
}

func process(st *models.WorkflowState) []string {
	lines := []string{
		"1. Data intelligence specialist gathered and graded market data",
		"2. Four core analysts assessed the event in parallel",
		"3. Macro strategist placed the event in the market regime",
		"4. Risk controller ran an independent risk assessment",
		"5. Chief synthesizer weighed all views into a decision",
	}
	if st.Iter > 1 {
		lines = append(lines, fmt.Sprintf("6. %d rounds of iterative refinement", st.Iter))
	}
	return lines
}
