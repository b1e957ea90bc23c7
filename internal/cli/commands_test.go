package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dyike/CortexCommittee/config"
	"github.com/dyike/CortexCommittee/internal/agents"
	"github.com/dyike/CortexCommittee/internal/graph"
	"github.com/dyike/CortexCommittee/internal/models"
	"github.com/dyike/CortexCommittee/pkg/app"
)

type quietDesk struct{}

func (quietDesk) Name() string { return "quiet" }

func (quietDesk) Collect(context.Context, *models.AnalysisRequest) (*models.DataIntelligenceReport, error) {
	return &models.DataIntelligenceReport{SentimentQuality: 0.8}, nil
}

func (quietDesk) Analyze(_ context.Context, req *models.AnalysisRequest, _ *models.FindingSet) (models.Finding, error) {
	return &models.NarrativeFinding{Provenance: models.Provenance{Analyst: "quiet"}, OneLiner: req.Topic, MemePotential: 0.5}, nil
}

func (quietDesk) Fallback(*models.AnalysisRequest) models.Finding {
	return &models.NarrativeFinding{Provenance: models.Provenance{Analyst: "quiet", Fallback: true}}
}

type quietMacro struct{}

func (quietMacro) Analyze(context.Context, agents.SpecialistInput) (*models.MacroView, error) {
	return &models.MacroView{MarketRegime: "expansion", CoherenceScore: 0.8}, nil
}

type quietRisk struct{}

func (quietRisk) Assess(context.Context, agents.RiskInput) (*models.RiskAssessment, error) {
	return &models.RiskAssessment{OverallRiskScore: 0.2, FusionConfidence: 0.7}, nil
}

type quietSynth struct{}

func (quietSynth) Synthesize(context.Context, agents.SynthesisInput) (*models.Decision, error) {
	return &models.Decision{Action: models.ActionBuy, Confidence: 0.85, Rationale: "steady demand"}, nil
}

func quietBuilder(cfg config.Config) (*app.Engine, error) {
	d := quietDesk{}
	committee, err := graph.NewEngine(&agents.Team{
		Data:        d,
		Core:        []agents.Analyst{d},
		Specialist:  quietMacro{},
		Risk:        quietRisk{},
		Synthesizer: quietSynth{},
	})
	if err != nil {
		return nil, err
	}
	return app.NewEngine(cfg, committee), nil
}

func execute(t *testing.T, dir string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd(&rootOptions{builder: quietBuilder})
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config-dir", dir}, args...))
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func TestAnalyzeRecordsAndShowsRun(t *testing.T) {
	dir := t.TempDir()

	out, _, err := execute(t, dir, "analyze", "AI chip export ban", "--symbols", "nvda, amd", "--horizon", "short", "--json", "--save")
	require.NoError(t, err)

	var res graph.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	require.Equal(t, models.StageCompleted, res.TerminalStage)
	require.Equal(t, []string{"NVDA", "AMD"}, res.Request.Symbols)
	require.Equal(t, 3, res.Request.MaxIterations)
	require.NotNil(t, res.Decision)
	require.Equal(t, models.ActionBuy, res.Decision.Action)

	saved, err := filepath.Glob(filepath.Join(dir, "results", "*_ai-chip-export-ban.md"))
	require.NoError(t, err)
	require.Len(t, saved, 1)
	md, err := os.ReadFile(saved[0])
	require.NoError(t, err)
	require.Contains(t, string(md), "**BUY** at confidence 0.85")

	out, _, err = execute(t, dir, "history")
	require.NoError(t, err)
	require.Contains(t, out, res.RequestID)

	out, _, err = execute(t, dir, "history", "show", res.RequestID)
	require.NoError(t, err)
	require.Contains(t, out, "steady demand")

	_, _, err = execute(t, dir, "history", "show", "missing")
	require.ErrorContains(t, err, "not found")
}

func TestAnalyzeRequiresTopic(t *testing.T) {
	_, _, err := execute(t, t.TempDir(), "analyze")
	require.ErrorContains(t, err, "topic is required")
}

func TestAnalyzeRejectsInvalidRequest(t *testing.T) {
	_, _, err := execute(t, t.TempDir(), "analyze", "rates", "--horizon", "forever")

	var verr *models.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "time_horizon", verr.Field)
}

func TestConfigSetAndShow(t *testing.T) {
	dir := t.TempDir()

	_, _, err := execute(t, dir, "config", "set", "max_iterations", "5")
	require.NoError(t, err)
	_, _, err = execute(t, dir, "config", "set", "llm_api_key", "sk-secret123")
	require.NoError(t, err)
	_, _, err = execute(t, dir, "config", "set", "no_such_key", "1")
	require.ErrorContains(t, err, "unknown config key")

	out, _, err := execute(t, dir, "config", "show")
	require.NoError(t, err)
	var shown map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &shown))
	require.EqualValues(t, 5, shown["max_iterations"])
	require.Equal(t, "sk-s****", shown["llm_api_key"])

	raw, err := os.ReadFile(filepath.Join(dir, "config.json"))
	require.NoError(t, err)
	require.Contains(t, string(raw), "sk-secret123")
}

func TestConfigPolicyInit(t *testing.T) {
	dir := t.TempDir()

	out, _, err := execute(t, dir, "config", "policy", "--init")
	require.NoError(t, err)
	require.Contains(t, out, "policy.yaml")

	_, err = os.Stat(filepath.Join(dir, "policy.yaml"))
	require.NoError(t, err)

	_, _, err = execute(t, dir, "config", "policy", "--init")
	require.ErrorContains(t, err, "already exists")

	out, _, err = execute(t, dir, "config", "policy")
	require.NoError(t, err)
	require.Contains(t, out, "routing:")

	_, _, err = execute(t, dir, "config", "validate")
	require.NoError(t, err)
}

func TestVersion(t *testing.T) {
	out, _, err := execute(t, t.TempDir(), "version")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(out, "CortexCommittee v"+Version))
}

func TestAnalyzeFlagsRequest(t *testing.T) {
	f := &analyzeFlags{
		symbols:  []string{"aapl,msft", " ", "tsla"},
		headline: "  Fed cuts rates  ",
		horizon:  "Long",
		risk:     "AGGRESSIVE",
	}
	req := f.request()

	require.Equal(t, []string{"AAPL", "MSFT", "TSLA"}, req.Symbols)
	require.Equal(t, "Fed cuts rates", req.Topic)
	require.Equal(t, models.HorizonLong, req.TimeHorizon)
	require.Equal(t, models.RiskAggressive, req.RiskAppetite)
}

func TestValidateSymbols(t *testing.T) {
	require.NoError(t, validateSymbols("aapl, brk.b"))
	require.NoError(t, validateSymbols(""))
	require.Error(t, validateSymbols("not a ticker"))
	require.Equal(t, "US", pickRegion("jp"))
	require.Equal(t, "HK", pickRegion("hk"))
}
