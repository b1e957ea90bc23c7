package models

import (
	"errors"
	"testing"
)

func TestAnalysisRequestValidate(t *testing.T) {
	valid := AnalysisRequest{
		Symbols:       []string{"AAPL"},
		Topic:         "supply chain shock",
		TimeHorizon:   HorizonMedium,
		RiskAppetite:  RiskConservative,
		MaxIterations: 3,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string]func(r *AnalysisRequest){
		"zero iterations":     func(r *AnalysisRequest) { r.MaxIterations = 0 },
		"negative iterations": func(r *AnalysisRequest) { r.MaxIterations = -2 },
		"too many iterations": func(r *AnalysisRequest) { r.MaxIterations = MaxIterationsCeiling + 1 },
		"blank topic":         func(r *AnalysisRequest) { r.Topic = "   " },
		"bad horizon":         func(r *AnalysisRequest) { r.TimeHorizon = "forever" },
		"bad appetite":        func(r *AnalysisRequest) { r.RiskAppetite = "yolo" },
		"empty symbol":        func(r *AnalysisRequest) { r.Symbols = []string{"AAPL", ""} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			r := valid.Clone()
			mutate(r)
			err := r.Validate()
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest in chain")
			}
		})
	}
}

func TestAnalysisRequestCloneIsDeep(t *testing.T) {
	r := &AnalysisRequest{Symbols: []string{"TSLA"}}
	c := r.Clone()
	c.Symbols[0] = "NVDA"
	if r.Symbols[0] != "TSLA" {
		t.Fatalf("clone shares symbols slice")
	}
}

func TestParseAction(t *testing.T) {
	cases := map[string]Action{
		"Strong Buy":  ActionStrongBuy,
		"buy":         ActionBuy,
		"SELL":        ActionSell,
		"strong_sell": ActionStrongSell,
		"wait":        ActionHold,
		"":            ActionHold,
	}
	for in, want := range cases {
		if got := ParseAction(in); got != want {
			t.Fatalf("ParseAction(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestFindingSetAccessors(t *testing.T) {
	fs := &FindingSet{Slots: []Slot{
		{Analyst: "narrative", Finding: &NarrativeFinding{Provenance: Provenance{Analyst: "narrative"}, MemePotential: 0.9}},
		{Analyst: "contrarian", Finding: &ContrarianRisk{Provenance: Provenance{Analyst: "contrarian", Fallback: true}}, Cause: "timeout"},
	}}
	n, ok := fs.Narrative()
	if !ok || n.MemePotential != 0.9 {
		t.Fatalf("narrative lookup failed: %+v", n)
	}
	if _, ok := fs.Quant(); ok {
		t.Fatalf("quant should be absent")
	}
	if fs.DegradedCount() != 1 {
		t.Fatalf("degraded count = %d", fs.DegradedCount())
	}
	if f, ok := fs.Get("contrarian"); !ok || !f.IsFallback() {
		t.Fatalf("contrarian slot should be a fallback")
	}
}
