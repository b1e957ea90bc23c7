package graph

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/config"
	"github.com/dyike/CortexCommittee/internal/agents"
	"github.com/dyike/CortexCommittee/internal/fanout"
	"github.com/dyike/CortexCommittee/internal/models"
)

// stageFunc performs one stage's external calls and describes the result as a patch.
// It never mutates the state it is given.
type stageFunc func(ctx context.Context, st *models.WorkflowState) *models.StatePatch

type stages struct {
	team     *agents.Team
	policy   *config.Policy
	enricher *Enricher
	logger   *zap.Logger
	now      func() time.Time
	limit    int
}

// collectData starts an outer iteration.
func (s *stages) collectData(ctx context.Context, st *models.WorkflowState) *models.StatePatch {
	report, err := s.team.Data.Collect(ctx, st.Request)
	if err != nil || report == nil {
		s.logger.Warn("data intelligence degraded", zap.Int("iter", st.Iter), zap.Error(err))
		report = &models.DataIntelligenceReport{
			SentimentQuality: s.policy.Enrichment.Fallbacks.Sentiment,
			Anomalies:        []string{"data collection failed, fallback quality applied"},
			Degraded:         true,
		}
	}
	return &models.StatePatch{
		Stage:              models.StageDataCollected,
		DataIntelligence:   report,
		ResetReassessments: true,
	}
}

// coreAnalysis fans out to every core analyst. Coming from the risk stage it is a
// reassessment and the analysts see their previous findings.
func (s *stages) coreAnalysis(ctx context.Context, st *models.WorkflowState) *models.StatePatch {
	reassess := st.Stage == models.StageRiskAssessment
	var prior *models.FindingSet
	if reassess {
		prior = st.Findings
	}

	core := s.team.Core
	tasks := make([]fanout.Task[models.Finding], len(core))
	for i, a := range core {
		tasks[i] = func(ctx context.Context) (models.Finding, error) {
			return a.Analyze(ctx, st.Request, prior)
		}
	}
	results := fanout.Run(ctx, tasks,
		fanout.WithLimit(s.limit),
		fanout.WithLogger(s.logger),
		fanout.WithNames(s.team.CoreNames()...))

	set := &models.FindingSet{Round: st.CoreRounds + 1, Slots: make([]models.Slot, len(core))}
	for i, r := range results {
		slot := models.Slot{Analyst: core[i].Name(), Finding: r.Value}
		if !r.OK() || r.Value == nil {
			slot.Finding = core[i].Fallback(st.Request)
			slot.Cause = "empty finding"
			if r.Err != nil {
				slot.Cause = r.Err.Error()
			}
		}
		set.Slots[i] = slot
	}
	if n := set.DegradedCount(); n > 0 {
		s.logger.Info("core round used fallbacks", zap.Int("round", set.Round), zap.Int("degraded", n))
	}
	return &models.StatePatch{Stage: models.StageCoreAnalysis, Findings: set, Reassess: reassess}
}

func (s *stages) specialist(ctx context.Context, st *models.WorkflowState) *models.StatePatch {
	view, err := s.team.Specialist.Analyze(ctx, agents.SpecialistInput{
		Request:          st.Request,
		Findings:         st.Findings,
		DataIntelligence: st.DataIntelligence,
	})
	if err != nil || view == nil {
		s.logger.Warn("macro specialist degraded", zap.Error(err))
		view = &models.MacroView{
			MarketRegime:   "transition",
			CoherenceScore: s.policy.Enrichment.Fallbacks.Coherence,
			Summary:        "macro view unavailable",
			Degraded:       true,
		}
	}
	return &models.StatePatch{Stage: models.StageSpecialistAnalysis, MacroView: view}
}

func (s *stages) riskControl(ctx context.Context, st *models.WorkflowState) *models.StatePatch {
	ra, err := s.team.Risk.Assess(ctx, agents.RiskInput{
		Request:          st.Request,
		Findings:         st.Findings,
		Macro:            st.MacroView,
		DataIntelligence: st.DataIntelligence,
	})
	if err != nil || ra == nil {
		s.logger.Warn("risk controller degraded", zap.Error(err))
		ra = &models.RiskAssessment{
			OverallRiskScore: 0.5,
			Alerts:           []string{},
			FusionConfidence: s.policy.Enrichment.Fallbacks.Fusion,
			Degraded:         true,
		}
	}
	return &models.StatePatch{Stage: models.StageRiskAssessment, RiskAssessment: ra}
}

// synthesis closes an outer iteration.
func (s *stages) synthesis(ctx context.Context, st *models.WorkflowState) *models.StatePatch {
	d, err := s.team.Synthesizer.Synthesize(ctx, agents.SynthesisInput{
		Request:          st.Request,
		Findings:         st.Findings,
		Macro:            st.MacroView,
		Risk:             st.RiskAssessment,
		DataIntelligence: st.DataIntelligence,
	})
	if err != nil || d == nil {
		s.logger.Warn("synthesis degraded, using rule-based decision", zap.Error(err))
		d = agents.FallbackDecision(st.Findings)
	}
	return &models.StatePatch{
		Stage:            models.StageSynthesis,
		Decision:         d,
		EnhancedDecision: s.enricher.Enhance(d, st.RiskAssessment, st.MacroView, st.DataIntelligence, s.now()),
		IterDelta:        1,
	}
}

func (s *stages) abort(_ context.Context, st *models.WorkflowState) *models.StatePatch {
	fields := []zap.Field{zap.Int("iter", st.Iter)}
	if ra := st.RiskAssessment; ra != nil {
		fields = append(fields, zap.Float64("risk", ra.OverallRiskScore), zap.Strings("alerts", ra.Alerts))
	}
	s.logger.Info("committee aborted on risk", fields...)
	return &models.StatePatch{Stage: models.StageAborted, ClearDecision: true}
}

func (s *stages) finalize(context.Context, *models.WorkflowState) *models.StatePatch {
	return &models.StatePatch{Stage: models.StageCompleted}
}
