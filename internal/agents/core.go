package agents

import (
	"context"

	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/consts"
	"github.com/dyike/CortexCommittee/internal/llm"
	"github.com/dyike/CortexCommittee/internal/models"
	"github.com/dyike/CortexCommittee/internal/utils"
)

// NarrativeArbitrageur scores how far the story can spread.
type NarrativeArbitrageur struct{ role }

func NewNarrativeArbitrageur(gw *llm.Gateway, logger *zap.Logger) *NarrativeArbitrageur {
	return &NarrativeArbitrageur{newRole(consts.NarrativeArbitrageur, "narrative_arbitrageur", 0.1, gw, logger)}
}

func (a *NarrativeArbitrageur) Analyze(ctx context.Context, req *models.AnalysisRequest, prior *models.FindingSet) (models.Finding, error) {
	f, err := ask[models.NarrativeFinding](ctx, &a.role, req, priorNote(prior, a.name))
	if err != nil {
		return nil, err
	}
	f.Provenance = models.Provenance{Analyst: a.name}
	f.MemePotential = clamp01(f.MemePotential)
	if f.LifecycleDays < 0 {
		f.LifecycleDays = 0
	}
	return &f, nil
}

func (a *NarrativeArbitrageur) Fallback(req *models.AnalysisRequest) models.Finding {
	headline := req.Headline
	if headline == "" {
		headline = req.Topic
	}
	meme, lifecycle := 0.5, 10
	if req.TimeHorizon.IsShort() {
		meme, lifecycle = 0.7, 3
	}
	return &models.NarrativeFinding{
		Provenance:    models.Provenance{Analyst: a.name, Fallback: true},
		OneLiner:      utils.Truncate(headline, 50),
		MemePotential: meme,
		InfluencersTake: []string{
			"Opinion leaders: a catchy story that travels well",
			"Watch whether it can sustain attention beyond the first cycle",
		},
		LifecycleDays: lifecycle,
		PricedIn:      false,
	}
}

// FirstOrderImpactQuant sizes the direct hit to the company model.
type FirstOrderImpactQuant struct{ role }

func NewFirstOrderImpactQuant(gw *llm.Gateway, logger *zap.Logger) *FirstOrderImpactQuant {
	return &FirstOrderImpactQuant{newRole(consts.FirstOrderImpactQuant, "first_order_quant", 0.1, gw, logger)}
}

func (a *FirstOrderImpactQuant) Analyze(ctx context.Context, req *models.AnalysisRequest, prior *models.FindingSet) (models.Finding, error) {
	f, err := ask[models.QuantImpact](ctx, &a.role, req, priorNote(prior, a.name))
	if err != nil {
		return nil, err
	}
	f.Provenance = models.Provenance{Analyst: a.name}
	return &f, nil
}

func (a *FirstOrderImpactQuant) Fallback(req *models.AnalysisRequest) models.Finding {
	return &models.QuantImpact{
		Provenance:   models.Provenance{Analyst: a.name, Fallback: true},
		PnLLine:      "P&L",
		Magnitude:    "tens_of_millions",
		KPIShiftsPct: map[string]float64{"revenue_pct": 1.5, "eps_pct": 0.5},
		Recurring:    !req.TimeHorizon.IsShort(),
	}
}

// ContrarianSkeptic looks for reasons the story is wrong.
type ContrarianSkeptic struct{ role }

func NewContrarianSkeptic(gw *llm.Gateway, logger *zap.Logger) *ContrarianSkeptic {
	return &ContrarianSkeptic{newRole(consts.ContrarianSkeptic, "contrarian_skeptic", 0.1, gw, logger)}
}

func (a *ContrarianSkeptic) Analyze(ctx context.Context, req *models.AnalysisRequest, prior *models.FindingSet) (models.Finding, error) {
	f, err := ask[models.ContrarianRisk](ctx, &a.role, req, priorNote(prior, a.name))
	if err != nil {
		return nil, err
	}
	f.Provenance = models.Provenance{Analyst: a.name}
	return &f, nil
}

func (a *ContrarianSkeptic) Fallback(*models.AnalysisRequest) models.Finding {
	return &models.ContrarianRisk{
		Provenance:          models.Provenance{Analyst: a.name, Fallback: true},
		RedFlags:            []string{"Management motive unclear: timed around a disclosure window?"},
		DataValidityRisks:   []string{"Historical samples may not match the current macro backdrop"},
		OverreactionSignals: []string{"Social attention is elevated, short-term volatility risk is high"},
	}
}

// SecondOrderStrategist traces knock-on effects through competitors, regulators and supply chains.
type SecondOrderStrategist struct{ role }

func NewSecondOrderStrategist(gw *llm.Gateway, logger *zap.Logger) *SecondOrderStrategist {
	return &SecondOrderStrategist{newRole(consts.SecondOrderStrategist, "second_order_strategist", 0.2, gw, logger)}
}

func (a *SecondOrderStrategist) Analyze(ctx context.Context, req *models.AnalysisRequest, prior *models.FindingSet) (models.Finding, error) {
	f, err := ask[models.SecondOrderEffects](ctx, &a.role, req, priorNote(prior, a.name))
	if err != nil {
		return nil, err
	}
	f.Provenance = models.Provenance{Analyst: a.name}
	return &f, nil
}

func (a *SecondOrderStrategist) Fallback(*models.AnalysisRequest) models.Finding {
	return &models.SecondOrderEffects{
		Provenance:             models.Provenance{Analyst: a.name, Fallback: true},
		CompetitorMoves:        []string{"Main competitors may follow with price cuts", "Some players wait and see"},
		RegulatoryWatchpoints:  []string{"Regulators may look at consumer protection and antitrust"},
		SupplyChainShift:       []string{"Upstream bargaining power rises", "Downstream channels consolidate"},
		ConsumerBehaviorChange: []string{"Attention-driven short-term conversion lifts"},
	}
}
