package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/config"
	"github.com/dyike/CortexCommittee/internal/debug"
	"github.com/dyike/CortexCommittee/internal/display"
	"github.com/dyike/CortexCommittee/internal/logging"
	"github.com/dyike/CortexCommittee/internal/storage"
	"github.com/dyike/CortexCommittee/pkg/app"
)

type rootOptions struct {
	configDir string
	debug     bool

	// builder replaces app.BuildEngine, used by tests
	builder app.EngineBuilder
}

// env lazily builds what a command needs and tears it down afterwards.
type env struct {
	opts    *rootOptions
	logger  *zap.Logger
	mgr     *config.Manager
	store   *storage.Store
	rt      *app.Runtime
	closers []func()
}

func (e *env) log() *zap.Logger {
	if e.logger != nil {
		return e.logger
	}
	dbg := e.opts.debug
	if e.mgr != nil {
		dbg = dbg || e.mgr.Get().Debug
	}
	l, err := logging.New(dbg)
	if err != nil {
		l = zap.NewNop()
	}
	e.logger = l
	e.closers = append(e.closers, func() { _ = l.Sync() })
	return l
}

func (e *env) manager() (*config.Manager, error) {
	if e.mgr != nil {
		return e.mgr, nil
	}
	opts := []config.ManagerOption{config.WithInitialConfig(config.DefaultConfig())}
	if e.opts.configDir != "" {
		opts = []config.ManagerOption{
			config.WithConfigDir(e.opts.configDir),
			config.WithInitialConfig(config.DefaultConfigFromEnv(e.opts.configDir)),
		}
	}
	mgr, err := config.NewManager(opts...)
	if err != nil {
		return nil, err
	}
	e.mgr = mgr
	return mgr, nil
}

// history opens the run store. A config without history_db yields nil.
func (e *env) history() (*storage.Store, error) {
	if e.store != nil {
		return e.store, nil
	}
	mgr, err := e.manager()
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get()
	store, err := storage.OpenFromConfig(&cfg)
	if errors.Is(err, storage.ErrNotConfigured) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.store = store
	e.closers = append(e.closers, func() { _ = store.Close() })
	return store, nil
}

func (e *env) runtime(ctx context.Context, stderr io.Writer) (*app.Runtime, error) {
	if e.rt != nil {
		return e.rt, nil
	}
	mgr, err := e.manager()
	if err != nil {
		return nil, err
	}
	cfg := mgr.Get()
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("failed to create directories: %w", err)
	}
	logger := e.log()

	dbg := debug.NewEinoDebugger(cfg, logger)
	if err := dbg.Initialize(ctx); err != nil {
		return nil, err
	}
	if dbg.Enabled() {
		fmt.Fprintln(stderr, display.Warn("eino debugger at "+dbg.URL()))
	}

	store, err := e.history()
	if err != nil {
		return nil, err
	}
	opts := []app.Option{app.WithLogger(logger), app.WithStore(store)}
	if e.opts.builder != nil {
		opts = append(opts, app.WithBuilder(e.opts.builder))
	}
	rt, err := app.NewRuntime(mgr, opts...)
	if err != nil {
		return nil, err
	}
	e.rt = rt
	e.closers = append(e.closers, rt.Close)
	return rt, nil
}

func (e *env) close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		e.closers[i]()
	}
	e.closers = nil
	e.rt, e.store = nil, nil
}
