package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/consts"
	"github.com/dyike/CortexCommittee/internal/llm"
	"github.com/dyike/CortexCommittee/internal/models"
)

var knownRegimes = map[string]bool{
	"bull_market": true,
	"bear_market": true,
	"transition":  true,
	"volatile":    true,
}

// MacroStrategist places the event in the current macro regime.
type MacroStrategist struct{ role }

func NewMacroStrategist(gw *llm.Gateway, logger *zap.Logger) *MacroStrategist {
	return &MacroStrategist{newRole(consts.MacroStrategist, "macro_strategist", 0.2, gw, logger)}
}

type macroReply struct {
	MarketRegime     string   `json:"market_regime"`
	PolicyStance     string   `json:"policy_stance"`
	RegimeIndicators []string `json:"regime_indicators"`
	GlobalRisks      []any    `json:"global_risks"`
	CurrencyOutlook  any      `json:"currency_outlook"`
	CoherenceScore   *float64 `json:"coherence_score"`
	Summary          string   `json:"summary"`
}

func (m *MacroStrategist) Analyze(ctx context.Context, in SpecialistInput) (*models.MacroView, error) {
	extra := brief("Committee findings", in.Findings, 1500) + brief("Data summary", summaryOf(in.DataIntelligence), 400)
	reply, err := ask[macroReply](ctx, &m.role, in.Request, extra)
	if err != nil {
		return nil, err
	}
	view := &models.MacroView{
		MarketRegime:     NormalizeRegime(reply.MarketRegime),
		PolicyStance:     reply.PolicyStance,
		RegimeIndicators: reply.RegimeIndicators,
		GlobalRisks:      NormalizeGlobalRisks(reply.GlobalRisks),
		CurrencyOutlook:  stringify(reply.CurrencyOutlook),
		CoherenceScore:   0.5,
		Summary:          reply.Summary,
	}
	if reply.CoherenceScore != nil {
		view.CoherenceScore = clamp01(*reply.CoherenceScore)
	}
	return view, nil
}

// NormalizeRegime maps model output onto a known regime, defaulting to "transition".
func NormalizeRegime(s string) string {
	r := strings.ToLower(strings.TrimSpace(s))
	r = strings.NewReplacer(" ", "_", "-", "_").Replace(r)
	switch r {
	case "bull", "bullish":
		r = "bull_market"
	case "bear", "bearish":
		r = "bear_market"
	}
	if knownRegimes[r] {
		return r
	}
	return "transition"
}

// NormalizeGlobalRisks flattens risk objects to "risk_type(impact_level)".
func NormalizeGlobalRisks(raw []any) []string {
	out := make([]string, 0, len(raw))
	for _, item := range raw {
		switch v := item.(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				out = append(out, s)
			}
		case map[string]any:
			name := stringify(v["risk_type"])
			if name == "" {
				name = "unknown risk"
			}
			if impact := stringify(v["impact_level"]); impact != "" {
				name = fmt.Sprintf("%s(%s)", name, impact)
			}
			out = append(out, name)
		}
	}
	return out
}

func stringify(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}

func summaryOf(di *models.DataIntelligenceReport) any {
	if di == nil {
		return nil
	}
	return map[string]any{"summary": di.Summary, "anomalies": di.Anomalies, "sentiment_quality": di.SentimentQuality}
}
