// Package graph runs the investment committee as an eino graph: data collection,
// a parallel core round, the macro specialist, the risk router and synthesis, looping
// until the decision is confident enough or the iteration budget is spent.
package graph

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/config"
	"github.com/dyike/CortexCommittee/internal/agents"
	"github.com/dyike/CortexCommittee/internal/models"
	"github.com/dyike/CortexCommittee/internal/report"
)

// Result is everything a finished run produced.
type Result struct {
	RequestID        string                         `json:"request_id"`
	TerminalStage    models.Stage                   `json:"terminal_stage"`
	Iterations       int                            `json:"iterations"`
	CoreRounds       int                            `json:"core_rounds"`
	Decision         *models.Decision               `json:"decision,omitempty"`
	Enhanced         *models.EnhancedDecision       `json:"enhanced_decision,omitempty"`
	Findings         *models.FindingSet             `json:"findings,omitempty"`
	Risk             *models.RiskAssessment         `json:"risk_assessment,omitempty"`
	Macro            *models.MacroView              `json:"macro_view,omitempty"`
	DataIntelligence *models.DataIntelligenceReport `json:"data_intelligence,omitempty"`
	Minutes          *models.CommitteeMinutes       `json:"minutes"`
	DataQualityScore float64                        `json:"data_quality_score"`
	Duration         time.Duration                  `json:"duration"`
	Transitions      []models.Transition            `json:"transitions"`
	Request          *models.AnalysisRequest        `json:"request"`
}

type Engine struct {
	stages   *stages
	callback *LoggerCallback

	mu     sync.Mutex
	graphs map[int]committeeRunnable
}

type Option func(*stages)

func WithLogger(l *zap.Logger) Option {
	return func(s *stages) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithPolicy(p *config.Policy) Option {
	return func(s *stages) {
		if p != nil {
			s.policy = p
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *stages) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFanoutLimit caps concurrent core analysts. Zero runs them all at once.
func WithFanoutLimit(n int) Option {
	return func(s *stages) { s.limit = n }
}

func NewEngine(team *agents.Team, opts ...Option) (*Engine, error) {
	if err := team.Validate(); err != nil {
		return nil, err
	}
	s := &stages{
		team:   team,
		policy: config.DefaultPolicy(),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.policy.Validate(); err != nil {
		return nil, err
	}
	s.enricher = NewEnricher(s.policy.Enrichment)
	s.logger = s.logger.Named("committee")
	return &Engine{
		stages:   s,
		callback: &LoggerCallback{Logger: s.logger},
		graphs:   map[int]committeeRunnable{},
	}, nil
}

// runnable compiles the graph once per iteration budget, since the step ceiling depends on it.
func (e *Engine) runnable(ctx context.Context, maxIter int) (committeeRunnable, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if r, ok := e.graphs[maxIter]; ok {
		return r, nil
	}
	r, err := e.stages.compile(ctx, maxIter)
	if err != nil {
		return nil, err
	}
	e.graphs[maxIter] = r
	return r, nil
}

// Execute runs one request to a terminal stage. Failing collaborators degrade the
// result but never fail the run; errors are reserved for invalid input, a broken
// engine or a cancelled context.
func (e *Engine) Execute(ctx context.Context, req *models.AnalysisRequest) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	req = req.Clone()
	if req.RequestID == "" {
		req.RequestID = uuid.NewString()
	}
	start := e.stages.now()
	log := e.stages.logger.With(zap.String("request_id", req.RequestID))
	log.Info("committee convened",
		zap.String("subject", req.Subject()),
		zap.Int("max_iterations", req.MaxIterations))

	r, err := e.runnable(ctx, req.MaxIterations)
	if err != nil {
		return nil, err
	}
	st, err := r.Invoke(ctx, models.NewWorkflowState(req), compose.WithCallbacks(e.callback))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("committee run %s: %w", req.RequestID, ctxErr)
		}
		return nil, fmt.Errorf("committee run %s: %w", req.RequestID, err)
	}
	if st == nil || !st.Stage.Terminal() {
		return nil, errors.New("committee graph stopped before a terminal stage")
	}

	res := e.assemble(st)
	res.Duration = e.stages.now().Sub(start)
	log.Info("committee adjourned",
		zap.String("stage", string(st.Stage)),
		zap.Int("iterations", st.Iter),
		zap.Int("core_rounds", st.CoreRounds),
		zap.String("resolution", res.Minutes.FinalResolution),
		zap.Duration("took", res.Duration))
	return res, nil
}

func (e *Engine) assemble(st *models.WorkflowState) *Result {
	en := e.stages.enricher
	scores := report.Scores{DataQuality: en.DataQuality(st.DataIntelligence, st.MacroView, st.RiskAssessment)}
	if ed := st.EnhancedDecision; ed != nil {
		scores = report.Scores{DataQuality: ed.DataQualityFactor, MacroAlignment: ed.MacroAlignment}
	}
	return &Result{
		RequestID:        st.Request.RequestID,
		TerminalStage:    st.Stage,
		Iterations:       st.Iter,
		CoreRounds:       st.CoreRounds,
		Decision:         st.Decision,
		Enhanced:         st.EnhancedDecision,
		Findings:         st.Findings,
		Risk:             st.RiskAssessment,
		Macro:            st.MacroView,
		DataIntelligence: st.DataIntelligence,
		Minutes:          report.BuildMinutes(st, scores, e.stages.now()),
		DataQualityScore: scores.DataQuality,
		Transitions:      st.History,
		Request:          st.Request,
	}
}

// Policy returns the routing and enrichment policy in effect.
func (e *Engine) Policy() *config.Policy {
	return e.stages.policy
}
