package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Policy holds the committee's routing and enrichment constants. Every field has a
// built-in default so a policy file only needs to name what it overrides.
type Policy struct {
	Routing    RoutingPolicy    `yaml:"routing"`
	Iteration  IterationPolicy  `yaml:"iteration"`
	Enrichment EnrichmentPolicy `yaml:"enrichment"`
}

type RoutingPolicy struct {
	AbortAbove      float64  `yaml:"abort_above"`
	ReassessAbove   float64  `yaml:"reassess_above"`
	CriticalMarkers []string `yaml:"critical_markers"`
	WarningMarkers  []string `yaml:"warning_markers"`
}

type IterationPolicy struct {
	ContinueBelow float64 `yaml:"continue_below"`
}

type AlignmentEntry struct {
	Action string  `yaml:"action"`
	Regime string  `yaml:"regime"`
	Score  float64 `yaml:"score"`
}

type QualityWeights struct {
	Sentiment float64 `yaml:"sentiment"`
	Coherence float64 `yaml:"coherence"`
	Fusion    float64 `yaml:"fusion"`
}

type EnrichmentPolicy struct {
	Alignment        []AlignmentEntry `yaml:"alignment"`
	DefaultAlignment float64          `yaml:"default_alignment"`
	Weights          QualityWeights   `yaml:"weights"`
	// Fallbacks substitute a stage's quality input when that stage failed.
	Fallbacks QualityWeights `yaml:"fallbacks"`
}

func DefaultPolicy() *Policy {
	return &Policy{
		Routing: RoutingPolicy{
			AbortAbove:      0.9,
			ReassessAbove:   0.7,
			CriticalMarkers: []string{"严重", "critical", "severe"},
			WarningMarkers:  []string{"警告", "warning"},
		},
		Iteration: IterationPolicy{ContinueBelow: 0.6},
		Enrichment: EnrichmentPolicy{
			Alignment: []AlignmentEntry{
				{Action: "strong_buy", Regime: "bull_market", Score: 0.9},
				{Action: "buy", Regime: "bull_market", Score: 0.8},
				{Action: "strong_buy", Regime: "bear_market", Score: 0.2},
				{Action: "sell", Regime: "bear_market", Score: 0.8},
				{Action: "hold", Regime: "transition", Score: 0.7},
			},
			DefaultAlignment: 0.5,
			Weights:          QualityWeights{Sentiment: 0.4, Coherence: 0.3, Fusion: 0.3},
			Fallbacks:        QualityWeights{Sentiment: 0.7, Coherence: 0.5, Fusion: 0.6},
		},
	}
}

// LoadPolicy reads a YAML policy file over the defaults. An empty path yields the defaults.
func LoadPolicy(path string) (*Policy, error) {
	p := DefaultPolicy()
	if path == "" {
		return p, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("policy file %s: %w", path, err)
		}
		return nil, fmt.Errorf("read policy: %w", err)
	}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("parse policy: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Policy) Validate() error {
	unit := func(name string, v float64) error {
		if v < 0 || v > 1 {
			return fmt.Errorf("policy %s must be within [0,1], got %v", name, v)
		}
		return nil
	}
	checks := []struct {
		name string
		v    float64
	}{
		{"routing.abort_above", p.Routing.AbortAbove},
		{"routing.reassess_above", p.Routing.ReassessAbove},
		{"iteration.continue_below", p.Iteration.ContinueBelow},
		{"enrichment.default_alignment", p.Enrichment.DefaultAlignment},
		{"enrichment.fallbacks.sentiment", p.Enrichment.Fallbacks.Sentiment},
		{"enrichment.fallbacks.coherence", p.Enrichment.Fallbacks.Coherence},
		{"enrichment.fallbacks.fusion", p.Enrichment.Fallbacks.Fusion},
	}
	for _, c := range checks {
		if err := unit(c.name, c.v); err != nil {
			return err
		}
	}
	if p.Routing.ReassessAbove > p.Routing.AbortAbove {
		return fmt.Errorf("policy routing.reassess_above (%v) exceeds abort_above (%v)",
			p.Routing.ReassessAbove, p.Routing.AbortAbove)
	}
	w := p.Enrichment.Weights
	if w.Sentiment < 0 || w.Coherence < 0 || w.Fusion < 0 {
		return fmt.Errorf("policy enrichment.weights must not be negative")
	}
	for _, e := range p.Enrichment.Alignment {
		if err := unit("enrichment.alignment["+e.Action+"/"+e.Regime+"]", e.Score); err != nil {
			return err
		}
	}
	return nil
}

// WritePolicy dumps p as YAML, used by `config policy --init`.
func WritePolicy(path string, p *Policy) error {
	data, err := yaml.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode policy: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write policy: %w", err)
	}
	return nil
}
