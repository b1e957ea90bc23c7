// Package fanout runs independent tasks in parallel and collects one result per
// task, in input order. A failing or panicking task degrades only its own slot.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ErrNilTask = errors.New("fanout: nil task")

type Task[T any] func(ctx context.Context) (T, error)

// Result is either Ok (Err == nil) or Degraded (Err carries the cause).
type Result[T any] struct {
	Value    T
	Err      error
	Duration time.Duration
}

func (r Result[T]) OK() bool { return r.Err == nil }

// OrElse resolves the slot, substituting fallback for a degraded result.
func (r Result[T]) OrElse(fallback T) T {
	if r.Err != nil {
		return fallback
	}
	return r.Value
}

type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

type options struct {
	limit  int
	logger *zap.Logger
	names  []string
}

type Option func(*options)

// WithLimit caps the number of tasks running at once. Zero means unlimited.
func WithLimit(n int) Option {
	return func(o *options) { o.limit = n }
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithNames labels task i with names[i] in log output.
func WithNames(names ...string) Option {
	return func(o *options) { o.names = names }
}

// Run executes every task and waits for all of them. It never returns an error and
// never cancels a sibling because another failed.
func Run[T any](ctx context.Context, tasks []Task[T], opts ...Option) []Result[T] {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	results := make([]Result[T], len(tasks))
	var g errgroup.Group
	if o.limit > 0 {
		g.SetLimit(o.limit)
	}
	for i, task := range tasks {
		g.Go(func() error {
			results[i] = Do(ctx, task)
			if err := results[i].Err; err != nil {
				o.logger.Warn("fan-out task degraded",
					zap.Int("slot", i),
					zap.String("task", o.name(i)),
					zap.Duration("took", results[i].Duration),
					zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// Do runs a single task with the same isolation guarantees as Run.
func Do[T any](ctx context.Context, task Task[T]) (res Result[T]) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			res = Result[T]{Err: &PanicError{Value: r, Stack: debug.Stack()}}
		}
		res.Duration = time.Since(start)
	}()
	if task == nil {
		return Result[T]{Err: ErrNilTask}
	}
	v, err := task(ctx)
	if err != nil {
		return Result[T]{Err: err}
	}
	return Result[T]{Value: v}
}

func (o *options) name(i int) string {
	if i < len(o.names) {
		return o.names[i]
	}
	return fmt.Sprintf("task-%d", i)
}
