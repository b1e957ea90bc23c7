package graph

import (
	"context"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/schema"
	"go.uber.org/zap"
)

type startKey struct{ node string }

// LoggerCallback reports node timings and failures of a committee run.
type LoggerCallback struct {
	callbacks.HandlerBuilder

	Logger *zap.Logger
}

func (cb *LoggerCallback) log() *zap.Logger {
	if cb.Logger == nil {
		return zap.NewNop()
	}
	return cb.Logger
}

func (cb *LoggerCallback) OnStart(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackInput) context.Context {
	if info == nil {
		return ctx
	}
	cb.log().Debug("node start", zap.String("node", info.Name), zap.String("type", info.Type))
	return context.WithValue(ctx, startKey{info.Name}, time.Now())
}

func (cb *LoggerCallback) OnEnd(ctx context.Context, info *callbacks.RunInfo, _ callbacks.CallbackOutput) context.Context {
	if info == nil {
		return ctx
	}
	fields := []zap.Field{zap.String("node", info.Name)}
	if start, ok := ctx.Value(startKey{info.Name}).(time.Time); ok {
		fields = append(fields, zap.Duration("took", time.Since(start)))
	}
	cb.log().Debug("node end", fields...)
	return ctx
}

func (cb *LoggerCallback) OnError(ctx context.Context, info *callbacks.RunInfo, err error) context.Context {
	name := ""
	if info != nil {
		name = info.Name
	}
	cb.log().Error("node failed", zap.String("node", name), zap.Error(err))
	return ctx
}

func (cb *LoggerCallback) OnStartWithStreamInput(ctx context.Context, _ *callbacks.RunInfo,
	input *schema.StreamReader[callbacks.CallbackInput]) context.Context {
	input.Close()
	return ctx
}

func (cb *LoggerCallback) OnEndWithStreamOutput(ctx context.Context, _ *callbacks.RunInfo,
	output *schema.StreamReader[callbacks.CallbackOutput]) context.Context {
	output.Close()
	return ctx
}
