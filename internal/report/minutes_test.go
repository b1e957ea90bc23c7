package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexCommittee/consts"
	"github.com/dyike/CortexCommittee/internal/models"
)

var meetingTime = time.Date(2026, 3, 4, 9, 30, 15, 0, time.UTC)

func finishedState(stage models.Stage, iter int) *models.WorkflowState {
	return &models.WorkflowState{
		Stage: stage,
		Iter:  iter,
		Findings: &models.FindingSet{Slots: []models.Slot{{
			Analyst: consts.NarrativeArbitrageur,
			Finding: &models.NarrativeFinding{MemePotential: 0.9},
		}}},
		RiskAssessment: &models.RiskAssessment{OverallRiskScore: 0.65},
		Decision:       &models.Decision{Action: models.ActionBuy, Confidence: 0.7},
	}
}

func TestBuildMinutesCompleted(t *testing.T) {
	m := BuildMinutes(finishedState(models.StageCompleted, 1), Scores{DataQuality: 0.75, MacroAlignment: 0.8}, meetingTime)

	require.Equal(t, "meeting-20260304093015", m.MeetingID)
	require.Equal(t, consts.CommitteeRoster, m.Participants)
	require.Equal(t, 1, m.Rounds)
	require.Len(t, m.KeyDebates, 2)
	require.Len(t, m.ConsensusPoints, 2)
	require.Len(t, m.DecisionProcess, 5)
	require.Equal(t, "buy", m.FinalResolution)
	require.Equal(t, models.StageCompleted, m.TerminalStage)
}

func TestBuildMinutesIterated(t *testing.T) {
	m := BuildMinutes(finishedState(models.StageCompleted, 3), Scores{DataQuality: 0.7, MacroAlignment: 0.5}, meetingTime)
	require.Len(t, m.DecisionProcess, 6)
	require.Contains(t, m.DecisionProcess[5], "3 rounds")
	require.Empty(t, m.ConsensusPoints)
}

func TestBuildMinutesAborted(t *testing.T) {
	st := finishedState(models.StageAborted, 0)
	st.Decision = nil
	st.Findings = nil
	m := BuildMinutes(st, Scores{}, meetingTime)
	require.Equal(t, consts.Resolution_NotDecided, m.FinalResolution)
	require.Zero(t, m.Rounds)
	require.Len(t, m.KeyDebates, 1)
}

func TestBuildMinutesNeutralNarrative(t *testing.T) {
	st := finishedState(models.StageCompleted, 1)
	st.Findings.Slots[0].Finding = &models.NarrativeFinding{MemePotential: 0.75}
	st.RiskAssessment.OverallRiskScore = 0.3
	m := BuildMinutes(st, Scores{}, meetingTime)
	require.Empty(t, m.KeyDebates)
}
