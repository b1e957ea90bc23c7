package graph

import (
	"time"

	"github.com/dyike/CortexCommittee/config"
	"github.com/dyike/CortexCommittee/internal/models"
)

type alignKey struct {
	action models.Action
	regime string
}

// AlignmentTable is a sparse (action, regime) lookup. Missing pairs score Default.
type AlignmentTable struct {
	scores  map[alignKey]float64
	Default float64
}

func NewAlignmentTable(p config.EnrichmentPolicy) AlignmentTable {
	t := AlignmentTable{scores: make(map[alignKey]float64, len(p.Alignment)), Default: p.DefaultAlignment}
	for _, e := range p.Alignment {
		t.scores[alignKey{models.ParseAction(e.Action), e.Regime}] = e.Score
	}
	return t
}

// MacroAlignment scores how well action fits the market regime.
func MacroAlignment(action models.Action, regime string, table AlignmentTable) float64 {
	if s, ok := table.scores[alignKey{action, regime}]; ok {
		return s
	}
	return table.Default
}

// QualityInputs are the three stage-level signals behind the data quality factor.
type QualityInputs struct {
	SentimentQuality float64
	CoherenceScore   float64
	FusionConfidence float64
}

// DataQualityScore is the weighted blend of the inputs, clamped to [0,1].
func DataQualityScore(in QualityInputs, w config.QualityWeights) float64 {
	return clamp01(w.Sentiment*in.SentimentQuality + w.Coherence*in.CoherenceScore + w.Fusion*in.FusionConfidence)
}

// Enricher turns a Decision into an EnhancedDecision. It holds no mutable state.
type Enricher struct {
	table  AlignmentTable
	policy config.EnrichmentPolicy
}

func NewEnricher(p config.EnrichmentPolicy) *Enricher {
	return &Enricher{table: NewAlignmentTable(p), policy: p}
}

// Inputs collects the quality inputs, using the policy fallbacks for any stage that
// is missing or degraded.
func (e *Enricher) Inputs(di *models.DataIntelligenceReport, macro *models.MacroView, risk *models.RiskAssessment) QualityInputs {
	fb := e.policy.Fallbacks
	in := QualityInputs{
		SentimentQuality: fb.Sentiment,
		CoherenceScore:   fb.Coherence,
		FusionConfidence: fb.Fusion,
	}
	if di != nil && !di.Degraded {
		in.SentimentQuality = di.SentimentQuality
	}
	if macro != nil && !macro.Degraded {
		in.CoherenceScore = macro.CoherenceScore
	}
	if risk != nil && !risk.Degraded {
		in.FusionConfidence = risk.FusionConfidence
	}
	return in
}

func (e *Enricher) DataQuality(di *models.DataIntelligenceReport, macro *models.MacroView, risk *models.RiskAssessment) float64 {
	return DataQualityScore(e.Inputs(di, macro, risk), e.policy.Weights)
}

func (e *Enricher) Alignment(action models.Action, macro *models.MacroView) float64 {
	regime := ""
	if macro != nil {
		regime = macro.MarketRegime
	}
	return MacroAlignment(action, regime, e.table)
}

// Enhance is pure: the same inputs always produce the same EnhancedDecision.
func (e *Enricher) Enhance(d *models.Decision, risk *models.RiskAssessment, macro *models.MacroView, di *models.DataIntelligenceReport, now time.Time) *models.EnhancedDecision {
	if d == nil {
		return nil
	}
	riskScore := 0.5
	if risk != nil {
		riskScore = risk.OverallRiskScore
	}
	return &models.EnhancedDecision{
		Base:                   *d,
		RiskAdjustedConfidence: RiskAdjustedConfidence(d.Confidence, riskScore),
		MacroAlignment:         e.Alignment(d.Action, macro),
		DataQualityFactor:      e.DataQuality(di, macro, risk),
		SynthesizedAt:          now,
	}
}
