package agents

import (
	"context"
	"fmt"
	"slices"

	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/consts"
	"github.com/dyike/CortexCommittee/internal/llm"
	"github.com/dyike/CortexCommittee/internal/models"
)

const (
	AlertSevere   = "severe risk warning: exceeds risk tolerance ceiling"
	AlertWarning  = "risk warning: approaching control line"
	AlertReminder = "risk reminder: monitor closely"
)

// LimitAlerts returns the limit-breach alert for score, if any. Only the highest band applies.
func LimitAlerts(score float64) []string {
	switch {
	case score > 0.8:
		return []string{AlertSevere}
	case score > 0.6:
		return []string{AlertWarning}
	case score > 0.4:
		return []string{AlertReminder}
	default:
		return nil
	}
}

// RiskControllerAgent is the committee's independent risk officer.
type RiskControllerAgent struct{ role }

func NewRiskController(gw *llm.Gateway, logger *zap.Logger) *RiskControllerAgent {
	return &RiskControllerAgent{newRole(consts.RiskController, "risk_controller", 0.1, gw, logger)}
}

type riskReply struct {
	OverallRiskScore *float64           `json:"overall_risk_score"`
	Dimensions       map[string]float64 `json:"dimensions"`
	StressScenarios  []string           `json:"stress_scenarios"`
	Alerts           []string           `json:"alerts"`
	Coherence        string             `json:"coherence"`
	FusionConfidence *float64           `json:"fusion_confidence"`
}

func (r *RiskControllerAgent) Assess(ctx context.Context, in RiskInput) (*models.RiskAssessment, error) {
	extra := brief("Committee findings", in.Findings, 2000) +
		brief("Macro view", in.Macro, 600) +
		brief("Data anomalies", anomaliesOf(in.DataIntelligence), 300)
	if n := in.Findings.DegradedCount(); n > 0 {
		extra += fmt.Sprintf("%d analyst(s) could not report and were replaced by defaults.\n", n)
	}

	reply, err := ask[riskReply](ctx, &r.role, in.Request, extra)
	if err != nil {
		return nil, err
	}
	if reply.OverallRiskScore == nil {
		return nil, fmt.Errorf("%s: reply has no overall_risk_score", r.name)
	}
	score := clamp01(*reply.OverallRiskScore)

	dims := make(map[string]float64, len(reply.Dimensions))
	for k, v := range reply.Dimensions {
		dims[k] = clamp01(v)
	}
	alerts := slices.Clone(reply.Alerts)
	for _, a := range LimitAlerts(score) {
		if !slices.Contains(alerts, a) {
			alerts = append(alerts, a)
		}
	}
	fusion := 0.6
	if reply.FusionConfidence != nil {
		fusion = clamp01(*reply.FusionConfidence)
	}
	return &models.RiskAssessment{
		OverallRiskScore: score,
		Alerts:           alerts,
		Dimensions:       dims,
		StressScenarios:  reply.StressScenarios,
		Coherence:        reply.Coherence,
		FusionConfidence: fusion,
	}, nil
}

func anomaliesOf(di *models.DataIntelligenceReport) []string {
	if di == nil {
		return nil
	}
	return di.Anomalies
}
