package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/consts"
	"github.com/dyike/CortexCommittee/internal/llm"
	"github.com/dyike/CortexCommittee/internal/models"
)

// ChiefSynthesizer chairs the committee and makes the call.
type ChiefSynthesizer struct{ role }

func NewChiefSynthesizer(gw *llm.Gateway, logger *zap.Logger) *ChiefSynthesizer {
	return &ChiefSynthesizer{newRole(consts.ChiefSynthesizer, "chief_synthesizer", 0.2, gw, logger)}
}

type decisionReply struct {
	Action     string   `json:"action"`
	Confidence *float64 `json:"confidence"`
	Rationale  string   `json:"rationale"`
	KeyDrivers []string `json:"key_drivers"`
	RiskChecks []string `json:"risk_checks"`
}

func (c *ChiefSynthesizer) Synthesize(ctx context.Context, in SynthesisInput) (*models.Decision, error) {
	extra := brief("Committee findings", in.Findings, 2500) +
		brief("Macro view", in.Macro, 600) +
		brief("Risk assessment", in.Risk, 800)
	reply, err := ask[decisionReply](ctx, &c.role, in.Request, extra)
	if err != nil {
		return nil, err
	}
	if reply.Confidence == nil {
		return nil, fmt.Errorf("%s: reply has no confidence", c.name)
	}
	return &models.Decision{
		Action:     models.ParseAction(reply.Action),
		Confidence: clamp01(*reply.Confidence),
		Rationale:  reply.Rationale,
		KeyDrivers: reply.KeyDrivers,
		RiskChecks: reply.RiskChecks,
	}, nil
}

// FallbackDecision is a rule-based call on the narrative score, used when synthesis fails.
func FallbackDecision(findings *models.FindingSet) *models.Decision {
	mp := 0.5
	if n, ok := findings.Narrative(); ok {
		mp = n.MemePotential
	}
	action := models.ActionHold
	if mp >= 0.55 {
		action = models.ActionBuy
	}
	return &models.Decision{
		Action:     action,
		Confidence: clamp(0.5+(mp-0.5), 0.1, 0.9),
		Rationale:  fmt.Sprintf("Rule-based fallback on narrative potential %.2f", mp),
		KeyDrivers: []string{"narrative potential"},
		RiskChecks: []string{"synthesis unavailable, confirm manually before acting"},
		Fallback:   true,
	}
}
