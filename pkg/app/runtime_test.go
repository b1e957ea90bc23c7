package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexCommittee/config"
	"github.com/dyike/CortexCommittee/internal/agents"
	"github.com/dyike/CortexCommittee/internal/graph"
	"github.com/dyike/CortexCommittee/internal/models"
	"github.com/dyike/CortexCommittee/internal/storage"
)

type calmCommittee struct{}

func (calmCommittee) Name() string { return "calm" }

func (calmCommittee) Collect(context.Context, *models.AnalysisRequest) (*models.DataIntelligenceReport, error) {
	return &models.DataIntelligenceReport{SentimentQuality: 0.9}, nil
}

func (calmCommittee) Analyze(context.Context, *models.AnalysisRequest, *models.FindingSet) (models.Finding, error) {
	return &models.NarrativeFinding{Provenance: models.Provenance{Analyst: "calm"}, MemePotential: 0.5}, nil
}

func (calmCommittee) Fallback(*models.AnalysisRequest) models.Finding {
	return &models.NarrativeFinding{Provenance: models.Provenance{Analyst: "calm", Fallback: true}}
}

type calmMacro struct{}

func (calmMacro) Analyze(context.Context, agents.SpecialistInput) (*models.MacroView, error) {
	return &models.MacroView{MarketRegime: "transition", CoherenceScore: 0.8}, nil
}

type calmRisk struct{}

func (calmRisk) Assess(context.Context, agents.RiskInput) (*models.RiskAssessment, error) {
	return &models.RiskAssessment{OverallRiskScore: 0.1, FusionConfidence: 0.8}, nil
}

type calmSynth struct{}

func (calmSynth) Synthesize(context.Context, agents.SynthesisInput) (*models.Decision, error) {
	return &models.Decision{Action: models.ActionHold, Confidence: 0.9}, nil
}

type builderSpy struct {
	mu      sync.Mutex
	builds  []config.Config
	closed  atomic.Int32
	failing bool
}

func (b *builderSpy) build(cfg config.Config) (*Engine, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failing {
		return nil, errors.New("bad llm settings")
	}
	b.builds = append(b.builds, cfg)
	c := calmCommittee{}
	committee, err := graph.NewEngine(&agents.Team{
		Data:        c,
		Core:        []agents.Analyst{c},
		Specialist:  calmMacro{},
		Risk:        calmRisk{},
		Synthesizer: calmSynth{},
	})
	if err != nil {
		return nil, err
	}
	return NewEngine(cfg, committee, func() { b.closed.Add(1) }), nil
}

func newManager(t *testing.T) *config.Manager {
	t.Helper()
	dir := t.TempDir()
	mgr, err := config.NewManager(
		config.WithConfigPath(filepath.Join(dir, "config.json")),
		config.WithInitialConfig(config.DefaultConfigWithRoot(dir)),
	)
	require.NoError(t, err)
	return mgr
}

func TestRuntimeAnalyzeRecordsRun(t *testing.T) {
	spy := &builderSpy{}
	store, err := storage.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer store.Close()

	rt, err := NewRuntime(newManager(t), WithBuilder(spy.build), WithStore(store))
	require.NoError(t, err)
	defer rt.Close()

	res, err := rt.Analyze(context.Background(), &models.AnalysisRequest{
		Topic:        "buyback announced",
		TimeHorizon:  models.HorizonMedium,
		RiskAppetite: models.RiskBalanced,
	})
	require.NoError(t, err)
	require.Equal(t, models.StageCompleted, res.TerminalStage)
	require.Equal(t, 3, res.Request.MaxIterations)

	rec, err := store.GetRun(context.Background(), res.RequestID)
	require.NoError(t, err)
	require.NotNil(t, rec)
	require.Equal(t, "hold", rec.Action)
}

func TestRuntimeReloadsOnConfigChange(t *testing.T) {
	spy := &builderSpy{}
	var topics []string
	mgr := newManager(t)
	rt, err := NewRuntime(mgr,
		WithBuilder(spy.build),
		WithNotifier(func(topic, _ string) { topics = append(topics, topic) }))
	require.NoError(t, err)
	defer rt.Close()
	first := rt.Engine()

	require.NoError(t, mgr.Set("max_iterations", "5"))
	require.Equal(t, 5, rt.Engine().Config.MaxIterations)
	require.Greater(t, rt.Engine().Version, first.Version)
	require.Equal(t, int32(1), spy.closed.Load())

	spy.failing = true
	require.NoError(t, mgr.Set("max_iterations", "2"))
	require.Equal(t, 5, rt.Engine().Config.MaxIterations)
	require.Equal(t, []string{"engine.reloaded", "engine.reloaded", "engine.reload_failed"}, topics)
}

func TestRuntimeRequiresManager(t *testing.T) {
	_, err := NewRuntime(nil)
	require.Error(t, err)
}

func TestRuntimeWithoutEngine(t *testing.T) {
	rt := &Runtime{}
	_, err := rt.Analyze(context.Background(), &models.AnalysisRequest{})
	require.ErrorIs(t, err, ErrNoEngine)
}

func TestRuntimeFailsWhenFirstBuildFails(t *testing.T) {
	_, err := NewRuntime(newManager(t), WithBuilder((&builderSpy{failing: true}).build))
	require.Error(t, err)
}
