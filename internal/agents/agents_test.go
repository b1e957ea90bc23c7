package agents

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexCommittee/internal/llm"
	"github.com/dyike/CortexCommittee/internal/models"
)

// promptModel answers by matching a substring of the system prompt.
type promptModel struct {
	mu      sync.Mutex
	replies map[string]string
	seen    []string
}

func (m *promptModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seen = append(m.seen, input[len(input)-1].Content)
	for key, reply := range m.replies {
		if strings.Contains(input[0].Content, key) {
			return schema.AssistantMessage(reply, nil), nil
		}
	}
	return nil, errors.New("model offline")
}

func gateway(replies map[string]string) (*llm.Gateway, *promptModel) {
	m := &promptModel{replies: replies}
	return llm.NewGateway(m, llm.WithBackoff(time.Millisecond, time.Millisecond)), m
}

func request() *models.AnalysisRequest {
	return &models.AnalysisRequest{
		Symbols:       []string{"TSLA"},
		Topic:         "robotaxi launch",
		Content:       "Tesla announces a robotaxi launch date.",
		TimeHorizon:   models.HorizonShort,
		RiskAppetite:  models.RiskAggressive,
		MaxIterations: 2,
	}
}

func TestNarrativeAnalyzeClampsScore(t *testing.T) {
	gw, m := gateway(map[string]string{"narrative investor": `{"one_liner":"robots","meme_potential":1.4,"lifecycle_days":5}`})
	a := NewNarrativeArbitrageur(gw, nil)

	f, err := a.Analyze(context.Background(), request(), nil)
	require.NoError(t, err)
	n := f.(*models.NarrativeFinding)
	require.Equal(t, 1.0, n.MemePotential)
	require.Equal(t, "narrative_arbitrageur", n.AnalystName())
	require.False(t, n.IsFallback())
	require.Contains(t, m.seen[0], "Topic: robotaxi launch")
	require.Contains(t, m.seen[0], "Symbols: TSLA")
}

func TestAnalystReceivesPriorFinding(t *testing.T) {
	gw, m := gateway(map[string]string{"activist": `{"red_flags":["a"]}`})
	a := NewContrarianSkeptic(gw, nil)
	prior := &models.FindingSet{Round: 1, Slots: []models.Slot{{
		Analyst: a.Name(),
		Finding: &models.ContrarianRisk{Provenance: models.Provenance{Analyst: a.Name()}, RedFlags: []string{"old flag"}},
	}}}

	_, err := a.Analyze(context.Background(), request(), prior)
	require.NoError(t, err)
	require.Contains(t, m.seen[0], "reassessment (round 2)")
	require.Contains(t, m.seen[0], "old flag")
}

func TestCoreFallbacks(t *testing.T) {
	req := request()
	n := NewNarrativeArbitrageur(nil, nil).Fallback(req).(*models.NarrativeFinding)
	require.True(t, n.IsFallback())
	require.Equal(t, 0.7, n.MemePotential)
	require.Equal(t, 3, n.LifecycleDays)

	req.TimeHorizon = models.HorizonLong
	n = NewNarrativeArbitrageur(nil, nil).Fallback(req).(*models.NarrativeFinding)
	require.Equal(t, 0.5, n.MemePotential)
	require.Equal(t, 10, n.LifecycleDays)

	q := NewFirstOrderImpactQuant(nil, nil).Fallback(req).(*models.QuantImpact)
	require.True(t, q.Recurring)

	c := NewContrarianSkeptic(nil, nil).Fallback(req).(*models.ContrarianRisk)
	require.Equal(t, 3, c.Concerns())
}

func TestAnalyzeFailsWithoutModel(t *testing.T) {
	gw, _ := gateway(nil)
	_, err := NewSecondOrderStrategist(gw, nil).Analyze(context.Background(), request(), nil)
	var serr *llm.ServiceError
	require.ErrorAs(t, err, &serr)
}

func TestLimitAlerts(t *testing.T) {
	require.Equal(t, []string{AlertSevere}, LimitAlerts(0.85))
	require.Equal(t, []string{AlertWarning}, LimitAlerts(0.65))
	require.Equal(t, []string{AlertReminder}, LimitAlerts(0.45))
	require.Empty(t, LimitAlerts(0.4))
}

func TestRiskControllerAssess(t *testing.T) {
	gw, _ := gateway(map[string]string{"independent risk controller": `{
		"overall_risk_score": 0.65,
		"dimensions": {"market": 1.3},
		"alerts": ["warning: concentration"]}`})

	ra, err := NewRiskController(gw, nil).Assess(context.Background(), RiskInput{Request: request()})
	require.NoError(t, err)
	require.Equal(t, 0.65, ra.OverallRiskScore)
	require.Equal(t, []string{"warning: concentration", AlertWarning}, ra.Alerts)
	require.Equal(t, 1.0, ra.Dimensions["market"])
	require.Equal(t, 0.6, ra.FusionConfidence)
}

func TestRiskControllerRequiresScore(t *testing.T) {
	gw, _ := gateway(map[string]string{"independent risk controller": `{"alerts": []}`})
	_, err := NewRiskController(gw, nil).Assess(context.Background(), RiskInput{Request: request()})
	require.Error(t, err)
}

func TestMacroNormalisation(t *testing.T) {
	require.Equal(t, "bull_market", NormalizeRegime("Bull Market"))
	require.Equal(t, "bear_market", NormalizeRegime("bearish"))
	require.Equal(t, "transition", NormalizeRegime("sideways chop"))

	risks := NormalizeGlobalRisks([]any{
		"inflation",
		map[string]any{"risk_type": "geopolitics", "impact_level": "high"},
		map[string]any{"probability": 0.2},
		42.0,
	})
	require.Equal(t, []string{"inflation", "geopolitics(high)", "unknown risk"}, risks)
}

func TestMacroStrategistAnalyze(t *testing.T) {
	gw, _ := gateway(map[string]string{"macro strategist": `{"market_regime":"BULL","global_risks":[{"risk_type":"rates","impact_level":"medium"}],"currency_outlook":{"fx_trend":"neutral"}}`})
	view, err := NewMacroStrategist(gw, nil).Analyze(context.Background(), SpecialistInput{Request: request()})
	require.NoError(t, err)
	require.Equal(t, "bull_market", view.MarketRegime)
	require.Equal(t, []string{"rates(medium)"}, view.GlobalRisks)
	require.Equal(t, 0.5, view.CoherenceScore)
	require.Equal(t, `{"fx_trend":"neutral"}`, view.CurrencyOutlook)
}

func TestFallbackDecision(t *testing.T) {
	set := func(mp float64) *models.FindingSet {
		return &models.FindingSet{Slots: []models.Slot{{
			Analyst: "narrative_arbitrageur",
			Finding: &models.NarrativeFinding{MemePotential: mp},
		}}}
	}

	d := FallbackDecision(set(0.7))
	require.Equal(t, models.ActionBuy, d.Action)
	require.InDelta(t, 0.7, d.Confidence, 1e-9)
	require.True(t, d.Fallback)

	d = FallbackDecision(set(0.95))
	require.InDelta(t, 0.9, d.Confidence, 1e-9)

	d = FallbackDecision(set(0.02))
	require.Equal(t, models.ActionHold, d.Action)
	require.InDelta(t, 0.1, d.Confidence, 1e-9)

	d = FallbackDecision(nil)
	require.Equal(t, models.ActionHold, d.Action)
	require.InDelta(t, 0.5, d.Confidence, 1e-9)
}

func TestChiefSynthesizer(t *testing.T) {
	gw, _ := gateway(map[string]string{"chief synthesizer": `{"action":"Strong Buy","confidence":0.82,"rationale":"r"}`})
	d, err := NewChiefSynthesizer(gw, nil).Synthesize(context.Background(), SynthesisInput{Request: request()})
	require.NoError(t, err)
	require.Equal(t, models.ActionStrongBuy, d.Action)
	require.Equal(t, 0.82, d.Confidence)
}

type stubSources struct {
	failSentiment bool
}

func (s stubSources) Sentiment(context.Context, *models.AnalysisRequest) (map[string]any, error) {
	if s.failSentiment {
		return nil, errors.New("sentiment down")
	}
	return map[string]any{"avg_score": 0.3}, nil
}

func (stubSources) MarketContext(context.Context, *models.AnalysisRequest) (map[string]any, error) {
	return map[string]any{"TSLA": map[string]any{"pe": 80}}, nil
}

func (stubSources) News(context.Context, *models.AnalysisRequest) ([]models.NewsItem, error) {
	return []models.NewsItem{{Title: "Robotaxi date set"}}, nil
}

func (stubSources) Quotes(context.Context, *models.AnalysisRequest) ([]models.QuoteSnapshot, error) {
	panic("quote feed exploded")
}

func TestDataIntelligenceCollect(t *testing.T) {
	gw, m := gateway(map[string]string{"data intelligence": `{"sentiment_quality":0.8,"anomalies":["volume spike"],"summary":"ok"}`})
	s := NewDataIntelligenceSpecialist(gw, stubSources{failSentiment: true}, nil)

	r, err := s.Collect(context.Background(), request())
	require.NoError(t, err)
	require.Equal(t, 0.8, r.SentimentQuality)
	require.Nil(t, r.Sentiment)
	require.Len(t, r.News, 1)
	require.Zero(t, r.SourceQuality["sentiment"])
	require.Zero(t, r.SourceQuality["quotes"])
	require.Equal(t, 0.9, r.SourceQuality["market_context"])
	require.Contains(t, m.seen[0], "Robotaxi date set")
}

func TestDataIntelligenceDegrades(t *testing.T) {
	gw, _ := gateway(nil)

	r, err := NewDataIntelligenceSpecialist(gw, stubSources{}, nil).Collect(context.Background(), request())
	require.NoError(t, err)
	require.Equal(t, 0.6, r.SentimentQuality)

	_, err = NewDataIntelligenceSpecialist(gw, nil, nil).Collect(context.Background(), request())
	require.ErrorIs(t, err, ErrNoData)
}

type deadSources struct{}

func (deadSources) Sentiment(context.Context, *models.AnalysisRequest) (map[string]any, error) {
	return nil, errors.New("down")
}

func (deadSources) MarketContext(context.Context, *models.AnalysisRequest) (map[string]any, error) {
	return nil, errors.New("down")
}

func (deadSources) News(context.Context, *models.AnalysisRequest) ([]models.NewsItem, error) {
	return nil, errors.New("down")
}

func (deadSources) Quotes(context.Context, *models.AnalysisRequest) ([]models.QuoteSnapshot, error) {
	return nil, errors.New("down")
}

func TestDataIntelligenceTellsModelWhenNothingAnswered(t *testing.T) {
	gw, m := gateway(map[string]string{"data intelligence": `{"sentiment_quality":0.2,"summary":"blind"}`})

	r, err := NewDataIntelligenceSpecialist(gw, deadSources{}, nil).Collect(context.Background(), request())
	require.NoError(t, err)
	require.Len(t, r.SourceQuality, 4)
	require.Contains(t, m.seen[0], "No source returned data.")
	require.NotContains(t, m.seen[0], "Source availability")
}

func TestTeamValidate(t *testing.T) {
	gw, _ := gateway(nil)
	team := NewCommittee(gw, nil, nil)
	require.NoError(t, team.Validate())
	require.Len(t, team.CoreNames(), 4)

	team.Core = append(team.Core, NewContrarianSkeptic(gw, nil))
	require.ErrorIs(t, team.Validate(), ErrIncompleteTeam)

	team = NewCommittee(gw, nil, nil)
	team.Risk = nil
	require.ErrorIs(t, team.Validate(), ErrIncompleteTeam)
}
