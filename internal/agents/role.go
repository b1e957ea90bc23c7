package agents

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/internal/llm"
	"github.com/dyike/CortexCommittee/internal/models"
	"github.com/dyike/CortexCommittee/internal/utils"
)

const requestTemplate = `Topic: {topic}
Headline: {headline}
Content: {content}
Symbols: {symbols}
Region: {region}; Horizon: {horizon}; Risk appetite: {appetite}
{extra}`

// role is the LLM plumbing shared by every committee member.
type role struct {
	name        string
	prompt      string
	temperature float32
	gateway     *llm.Gateway
	logger      *zap.Logger
}

func newRole(name, prompt string, temperature float32, gw *llm.Gateway, logger *zap.Logger) role {
	if logger == nil {
		logger = zap.NewNop()
	}
	return role{
		name:        name,
		prompt:      prompt,
		temperature: temperature,
		gateway:     gw,
		logger:      logger.With(zap.String("agent", name)),
	}
}

func (r *role) Name() string { return r.name }

// system loads the role prompt with the request's appetite and region filled in.
func (r *role) system(req *models.AnalysisRequest) (string, error) {
	return utils.LoadPromptWithContext(r.prompt, map[string]string{
		"RiskAppetite": string(req.RiskAppetite),
		"Region":       req.Region,
	})
}

func (r *role) user(ctx context.Context, req *models.AnalysisRequest, extra string) (string, error) {
	headline := req.Headline
	if headline == "" {
		headline = req.Topic
	}
	region := req.Region
	if region == "" {
		region = "N/A"
	}
	return llm.Render(ctx, requestTemplate, map[string]any{
		"topic":    req.Topic,
		"headline": headline,
		"content":  utils.Truncate(req.Content, 2000),
		"symbols":  strings.Join(req.Symbols, ", "),
		"region":   region,
		"horizon":  string(req.TimeHorizon),
		"appetite": string(req.RiskAppetite),
		"extra":    extra,
	})
}

func ask[T any](ctx context.Context, r *role, req *models.AnalysisRequest, extra string) (T, error) {
	var zero T
	system, err := r.system(req)
	if err != nil {
		return zero, err
	}
	user, err := r.user(ctx, req, extra)
	if err != nil {
		return zero, err
	}
	out, err := llm.Decode[T](ctx, r.gateway, system, user, r.temperature)
	if err != nil {
		r.logger.Warn("llm call failed", zap.Error(err))
		return zero, fmt.Errorf("%s: %w", r.name, err)
	}
	return out, nil
}

// brief renders v as compact JSON capped at n runes, for feeding one stage's output to the next.
func brief(label string, v any, n int) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return ""
	}
	return label + ": " + utils.Truncate(string(data), n) + "\n"
}

// priorNote reminds an analyst of its own finding from the previous round.
func priorNote(prior *models.FindingSet, analyst string) string {
	if prior == nil {
		return ""
	}
	f, ok := prior.Get(analyst)
	if !ok || f == nil {
		return ""
	}
	return fmt.Sprintf("The risk controller sent this back for reassessment (round %d). ", prior.Round+1) +
		brief("Your previous finding", f, 800) +
		"Revisit the assumptions it depends on.\n"
}

func clamp01(v float64) float64 {
	return clamp(v, 0, 1)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
