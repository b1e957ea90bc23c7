package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/config"
	"github.com/dyike/CortexCommittee/internal/graph"
	"github.com/dyike/CortexCommittee/internal/models"
	"github.com/dyike/CortexCommittee/internal/storage"
	"github.com/dyike/CortexCommittee/pkg/bridge"
)

var ErrNoEngine = errors.New("committee engine is not ready")

type EngineBuilder func(config.Config) (*Engine, error)

type Option func(*Runtime)

func WithBuilder(builder EngineBuilder) Option {
	return func(r *Runtime) {
		if builder != nil {
			r.builder = builder
		}
	}
}

func WithNotifier(fn func(topic, payload string)) Option {
	return func(r *Runtime) {
		r.notify = fn
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithStore records every finished run in the history store.
func WithStore(s *storage.Store) Option {
	return func(r *Runtime) {
		r.store = s
	}
}

// Runtime keeps the current Engine in sync with the config file.
type Runtime struct {
	cfgMgr *config.Manager
	engine atomic.Pointer[Engine]
	store  *storage.Store
	logger *zap.Logger

	builder EngineBuilder
	notify  func(string, string)
	cancel  context.CancelFunc
}

func NewRuntime(cfgMgr *config.Manager, opts ...Option) (*Runtime, error) {
	if cfgMgr == nil {
		return nil, fmt.Errorf("config manager is required")
	}

	rt := &Runtime{
		cfgMgr: cfgMgr,
		logger: zap.NewNop(),
	}
	rt.builder = func(cfg config.Config) (*Engine, error) {
		return BuildEngine(context.Background(), cfg, rt.logger)
	}

	for _, opt := range opts {
		opt(rt)
	}

	if err := rt.reload(cfgMgr.Get()); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	rt.cancel = cancel
	if err := cfgMgr.Watch(ctx, func(cfg config.Config) {
		if err := rt.reload(cfg); err != nil {
			rt.logger.Warn("engine reload failed, keeping previous engine", zap.Error(err))
		}
	}); err != nil {
		cancel()
		rt.engine.Load().Close()
		return nil, err
	}

	return rt, nil
}

func (r *Runtime) Engine() *Engine {
	return r.engine.Load()
}

func (r *Runtime) Config() config.Config {
	return r.cfgMgr.Get()
}

func (r *Runtime) Store() *storage.Store {
	return r.store
}

// Analyze runs req on the current engine and records the result. A request without
// an iteration budget gets the configured one. History write failures are logged only.
func (r *Runtime) Analyze(ctx context.Context, req *models.AnalysisRequest) (*graph.Result, error) {
	e := r.Engine()
	if e == nil || e.Committee == nil {
		return nil, ErrNoEngine
	}
	if req != nil && req.MaxIterations == 0 {
		req = req.Clone()
		req.MaxIterations = e.Config.MaxIterations
	}
	res, err := e.Committee.Execute(ctx, req)
	if err != nil {
		return nil, err
	}
	if r.store != nil {
		if err := r.store.SaveRun(ctx, res); err != nil {
			r.logger.Warn("could not record run", zap.String("request_id", res.RequestID), zap.Error(err))
		}
	}
	return res, nil
}

func (r *Runtime) Close() {
	if r.cancel != nil {
		r.cancel()
	}
	if e := r.engine.Swap(nil); e != nil {
		e.Close()
	}
}

func (r *Runtime) UpdateConfigJSON(jsonStr string) error {
	return r.cfgMgr.UpdateFromJSON(jsonStr)
}

func (r *Runtime) reload(cfg config.Config) error {
	engine, err := r.builder(cfg)
	if err != nil {
		r.notifyFailure(err)
		return err
	}
	if old := r.engine.Swap(engine); old != nil {
		old.Close()
	}
	r.logger.Info("engine ready", zap.Uint64("version", engine.Version))
	r.notifySuccess(engine)
	return nil
}

func (r *Runtime) notifySuccess(engine *Engine) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]any{
		"version":  engine.Version,
		"built_at": engine.BuiltAt.UTC().Format(time.RFC3339),
	})
	r.notify(bridge.TopicEngineReloaded, string(payload))
}

func (r *Runtime) notifyFailure(err error) {
	if r.notify == nil {
		return
	}
	payload, _ := json.Marshal(map[string]string{
		"error": err.Error(),
	})
	r.notify(bridge.TopicEngineFailed, string(payload))
}
