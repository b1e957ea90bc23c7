package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/consts"
	"github.com/dyike/CortexCommittee/internal/models"
)

type committeeRunnable = compose.Runnable[*models.WorkflowState, *models.WorkflowState]

// node wraps a stage so the graph applies its patch in place.
func (s *stages) node(name string, fn stageFunc) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, st *models.WorkflowState) (*models.WorkflowState, error) {
		from := st.Stage
		if err := st.Apply(fn(ctx, st)); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		s.logger.Debug("stage transition",
			zap.String("node", name),
			zap.String("from", string(from)),
			zap.String("to", string(st.Stage)),
			zap.Int("iter", st.Iter),
			zap.Int("reassessments", st.Reassessments))
		return st, nil
	})
}

// riskHandOff is the risk router as a graph branch.
func (s *stages) riskHandOff(_ context.Context, st *models.WorkflowState) (string, error) {
	score, alerts := 0.5, []string(nil)
	if ra := st.RiskAssessment; ra != nil {
		score, alerts = ra.OverallRiskScore, ra.Alerts
	}
	v := Route(score, alerts, st.Reassessments, st.MaxIterations, s.policy.Routing)
	s.logger.Info("risk routed",
		zap.String("verdict", string(v)),
		zap.Float64("risk", score),
		zap.Int("reassessments", st.Reassessments))
	switch v {
	case VerdictAbort:
		return consts.NodeAbort, nil
	case VerdictReassess:
		return consts.NodeCoreAnalysis, nil
	default:
		return consts.NodeSynthesis, nil
	}
}

// iterationHandOff is the iteration controller as a graph branch.
func (s *stages) iterationHandOff(_ context.Context, st *models.WorkflowState) (string, error) {
	rac := 0.0
	if ed := st.EnhancedDecision; ed != nil {
		rac = ed.RiskAdjustedConfidence
	}
	if ShouldContinue(rac, st.Iter, st.MaxIterations, s.policy.Iteration) {
		s.logger.Info("confidence below threshold, starting another iteration",
			zap.Float64("risk_adjusted_confidence", rac),
			zap.Int("iter", st.Iter))
		return consts.NodeDataIntelligence, nil
	}
	return consts.NodeFinalize, nil
}

// maxRunSteps bounds a run of maxIter outer iterations: each one visits data collection,
// up to maxIter+1 core/specialist/risk rounds and synthesis, then one terminal node.
func maxRunSteps(maxIter int) int {
	return maxIter*(3*(maxIter+1)+2) + 4
}

func (s *stages) compile(ctx context.Context, maxIter int) (committeeRunnable, error) {
	g := compose.NewGraph[*models.WorkflowState, *models.WorkflowState]()

	nodes := []struct {
		key string
		fn  stageFunc
	}{
		{consts.NodeDataIntelligence, s.collectData},
		{consts.NodeCoreAnalysis, s.coreAnalysis},
		{consts.NodeSpecialist, s.specialist},
		{consts.NodeRiskControl, s.riskControl},
		{consts.NodeSynthesis, s.synthesis},
		{consts.NodeAbort, s.abort},
		{consts.NodeFinalize, s.finalize},
	}
	for _, n := range nodes {
		if err := g.AddLambdaNode(n.key, s.node(n.key, n.fn), compose.WithNodeName(n.key)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", n.key, err)
		}
	}

	riskOut := map[string]bool{
		consts.NodeAbort:        true,
		consts.NodeCoreAnalysis: true,
		consts.NodeSynthesis:    true,
	}
	iterOut := map[string]bool{
		consts.NodeDataIntelligence: true,
		consts.NodeFinalize:         true,
	}

	edges := [][2]string{
		{compose.START, consts.NodeDataIntelligence},
		{consts.NodeDataIntelligence, consts.NodeCoreAnalysis},
		{consts.NodeCoreAnalysis, consts.NodeSpecialist},
		{consts.NodeSpecialist, consts.NodeRiskControl},
		{consts.NodeAbort, compose.END},
		{consts.NodeFinalize, compose.END},
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			return nil, fmt.Errorf("add edge %s -> %s: %w", e[0], e[1], err)
		}
	}
	if err := g.AddBranch(consts.NodeRiskControl, compose.NewGraphBranch(s.riskHandOff, riskOut)); err != nil {
		return nil, fmt.Errorf("add risk branch: %w", err)
	}
	if err := g.AddBranch(consts.NodeSynthesis, compose.NewGraphBranch(s.iterationHandOff, iterOut)); err != nil {
		return nil, fmt.Errorf("add iteration branch: %w", err)
	}

	r, err := g.Compile(ctx,
		compose.WithGraphName("CortexCommittee"),
		compose.WithNodeTriggerMode(compose.AnyPredecessor),
		compose.WithMaxRunSteps(maxRunSteps(maxIter)),
	)
	if err != nil {
		return nil, fmt.Errorf("compile committee graph: %w", err)
	}
	return r, nil
}
