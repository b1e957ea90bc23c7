package app

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/config"
	"github.com/dyike/CortexCommittee/internal/agents"
	"github.com/dyike/CortexCommittee/internal/dataflows"
	"github.com/dyike/CortexCommittee/internal/graph"
	"github.com/dyike/CortexCommittee/internal/llm"
	"github.com/dyike/CortexCommittee/internal/logging"
)

// Engine is one immutable build of the committee for a given config.
type Engine struct {
	Config    config.Config
	BuiltAt   time.Time
	Version   uint64
	Committee *graph.Engine

	closers []func()
}

var engineSeq atomic.Uint64

// BuildEngine wires gateway, data hub, committee and policy from cfg.
func BuildEngine(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Engine, error) {
	logger = logging.OrNop(logger)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	policy, err := config.LoadPolicy(cfg.PolicyFile)
	if err != nil {
		return nil, err
	}
	gw, err := llm.NewGatewayFromConfig(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	hub := dataflows.NewHub(cfg, logger)
	committee, err := graph.NewEngine(agents.NewCommittee(gw, hub, logger),
		graph.WithLogger(logger),
		graph.WithPolicy(policy),
		graph.WithFanoutLimit(cfg.FanoutLimit),
	)
	if err != nil {
		hub.Close()
		return nil, err
	}
	return NewEngine(cfg, committee, hub.Close), nil
}

// NewEngine wraps an already built committee. closers run on Close.
func NewEngine(cfg config.Config, committee *graph.Engine, closers ...func()) *Engine {
	return &Engine{
		Config:    cfg,
		BuiltAt:   time.Now(),
		Version:   engineSeq.Add(1),
		Committee: committee,
		closers:   closers,
	}
}

func (e *Engine) Close() {
	if e == nil {
		return
	}
	for _, c := range e.closers {
		c()
	}
}
