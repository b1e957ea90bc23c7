package config

import (
	"testing"
)

func TestDefaultConfigWithRootIsValid(t *testing.T) {
	cfg := DefaultConfigWithRoot(t.TempDir())
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
}

func TestLoadFromEnvOverrides(t *testing.T) {
	t.Setenv("COMMITTEE_MAX_ITERATIONS", "4")
	t.Setenv("LLM_PROVIDER", "deepseek")
	t.Setenv("NEWS_ENABLED", "false")
	t.Setenv("COMMITTEE_FANOUT_LIMIT", "not-a-number")

	cfg := DefaultConfigWithRoot(t.TempDir())
	cfg.loadFromEnv()

	if cfg.MaxIterations != 4 {
		t.Fatalf("max iterations = %d", cfg.MaxIterations)
	}
	if cfg.LLMProvider != "deepseek" || cfg.NewsEnabled {
		t.Fatalf("env overrides not applied: %+v", cfg)
	}
	if cfg.FanoutLimit != 0 {
		t.Fatalf("unparseable value should be ignored, got %d", cfg.FanoutLimit)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(c *Config){
		"iterations": func(c *Config) { c.MaxIterations = 0 },
		"ceiling":    func(c *Config) { c.MaxIterations = 11 },
		"provider":   func(c *Config) { c.LLMProvider = "carrier-pigeon" },
		"attempts":   func(c *Config) { c.LLMMaxAttempts = 0 },
		"fanout":     func(c *Config) { c.FanoutLimit = -1 },
		"debug port": func(c *Config) { c.EinoDebugEnabled = true; c.EinoDebugPort = 70000 },
	}
	for name, mutate := range cases {
		cfg := DefaultConfigWithRoot(t.TempDir())
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
