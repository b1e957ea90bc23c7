// Package debug hooks the committee graph into the eino visual debugger.
package debug

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/devops"
	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/config"
	"github.com/dyike/CortexCommittee/internal/logging"
)

type EinoDebugger struct {
	enabled bool
	port    int
	logger  *zap.Logger
}

func NewEinoDebugger(cfg config.Config, logger *zap.Logger) *EinoDebugger {
	return &EinoDebugger{
		enabled: cfg.EinoDebugEnabled,
		port:    cfg.EinoDebugPort,
		logger:  logging.OrNop(logger).Named("eino_debug"),
	}
}

// Initialize starts the devops server. It must run before the committee graph is
// compiled, otherwise the graph is not registered.
func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.enabled {
		return nil
	}
	if err := devops.Init(ctx); err != nil {
		return fmt.Errorf("init eino debug plugin: %w", err)
	}
	d.logger.Info("eino debug server started", zap.String("url", d.URL()))
	return nil
}

func (d *EinoDebugger) Enabled() bool {
	return d.enabled
}

func (d *EinoDebugger) URL() string {
	if !d.enabled {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", d.port)
}
