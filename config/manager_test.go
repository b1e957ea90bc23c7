package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestManagerCreatesAndUpdates(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "config.json")); err != nil {
		t.Fatalf("config file not created: %v", err)
	}
	if got := mgr.Get().HistoryDB; got != filepath.Join(dir, "data", "committee.db") {
		t.Fatalf("history db not rooted at config dir: %s", got)
	}

	if err := mgr.Set("max_iterations", "5"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := mgr.Set("llm_model", "gpt-4o-mini"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	cfg := mgr.Get()
	if cfg.MaxIterations != 5 || cfg.LLMModel != "gpt-4o-mini" {
		t.Fatalf("unexpected config after Set: %+v", cfg)
	}

	reopened, err := NewManager(WithConfigDir(dir))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Get().MaxIterations != 5 {
		t.Fatalf("update was not persisted")
	}
}

func TestManagerRejectsInvalidUpdate(t *testing.T) {
	mgr, err := NewManager(WithConfigDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := mgr.Set("max_iterations", "0"); err == nil {
		t.Fatalf("expected validation error")
	}
	if err := mgr.Set("no_such_key", "1"); err == nil {
		t.Fatalf("expected unknown key error")
	}
	if mgr.Get().MaxIterations != 3 {
		t.Fatalf("invalid update leaked into config")
	}
}

func TestManagerWatchReloads(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewManager(WithConfigDir(dir), WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Config, 1)
	if err := mgr.Watch(ctx, func(cfg Config) {
		select {
		case reloaded <- cfg:
		default:
		}
	}); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	cfg := mgr.Get()
	cfg.MaxIterations = 7
	if err := writeConfigFile(mgr.Path(), cfg); err != nil {
		t.Fatalf("writeConfigFile: %v", err)
	}

	select {
	case got := <-reloaded:
		if got.MaxIterations != 7 {
			t.Fatalf("reloaded config has max_iterations %d", got.MaxIterations)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not fire on config change")
	}
}
