package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestRunPreservesOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	const k = 16
	tasks := make([]Task[int], k)
	for i := range tasks {
		// later tasks finish first
		delay := time.Duration(k-i) * time.Millisecond
		tasks[i] = func(ctx context.Context) (int, error) {
			time.Sleep(delay)
			return i * 10, nil
		}
	}

	results := Run(context.Background(), tasks)
	if len(results) != k {
		t.Fatalf("expected %d results, got %d", k, len(results))
	}
	for i, r := range results {
		if !r.OK() || r.Value != i*10 {
			t.Fatalf("slot %d = %+v, want %d", i, r, i*10)
		}
	}
}

func TestRunIsolatesFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	boom := errors.New("boom")
	tasks := []Task[string]{
		func(context.Context) (string, error) { return "a", nil },
		func(context.Context) (string, error) { return "", boom },
		func(context.Context) (string, error) { panic("analyst crashed") },
		func(context.Context) (string, error) {
			time.Sleep(5 * time.Millisecond)
			return "d", nil
		},
		nil,
	}

	results := Run(context.Background(), tasks)
	if results[0].OrElse("x") != "a" || results[3].OrElse("x") != "d" {
		t.Fatalf("healthy slots affected: %+v", results)
	}
	if !errors.Is(results[1].Err, boom) {
		t.Fatalf("slot 1 err = %v", results[1].Err)
	}
	var perr *PanicError
	if !errors.As(results[2].Err, &perr) || perr.Value != "analyst crashed" {
		t.Fatalf("slot 2 err = %v", results[2].Err)
	}
	if !errors.Is(results[4].Err, ErrNilTask) {
		t.Fatalf("slot 4 err = %v", results[4].Err)
	}
	if got := results[1].OrElse("fallback"); got != "fallback" {
		t.Fatalf("OrElse = %q", got)
	}
}

func TestRunRespectsLimit(t *testing.T) {
	defer goleak.VerifyNone(t)

	var running, peak atomic.Int32
	tasks := make([]Task[struct{}], 10)
	for i := range tasks {
		tasks[i] = func(context.Context) (struct{}, error) {
			n := running.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(2 * time.Millisecond)
			running.Add(-1)
			return struct{}{}, nil
		}
	}

	Run(context.Background(), tasks, WithLimit(3))
	if p := peak.Load(); p > 3 {
		t.Fatalf("peak concurrency %d exceeds limit", p)
	}
}

func TestRunEmpty(t *testing.T) {
	if got := Run[int](context.Background(), nil); len(got) != 0 {
		t.Fatalf("expected no results, got %d", len(got))
	}
}
