package models

import (
	"fmt"
	"slices"
	"strings"
)

type TimeHorizon string

const (
	HorizonImmediate TimeHorizon = "immediate"
	HorizonShort     TimeHorizon = "short"
	HorizonMedium    TimeHorizon = "medium"
	HorizonLong      TimeHorizon = "long"
	HorizonExtended  TimeHorizon = "extended"
)

var horizons = []TimeHorizon{HorizonImmediate, HorizonShort, HorizonMedium, HorizonLong, HorizonExtended}

// IsShort reports whether the horizon favours narrative-driven trades.
func (h TimeHorizon) IsShort() bool {
	return h == HorizonImmediate || h == HorizonShort
}

type RiskAppetite string

const (
	RiskConservative RiskAppetite = "conservative"
	RiskBalanced     RiskAppetite = "balanced"
	RiskAggressive   RiskAppetite = "aggressive"
)

var appetites = []RiskAppetite{RiskConservative, RiskBalanced, RiskAggressive}

// MaxIterationsCeiling caps the outer iteration budget of a single run.
const MaxIterationsCeiling = 10

// AnalysisRequest is the immutable input of one committee run.
type AnalysisRequest struct {
	RequestID     string       `json:"request_id"`
	Symbols       []string     `json:"symbols"`
	Topic         string       `json:"topic"`
	Headline      string       `json:"headline,omitempty"`
	Content       string       `json:"content,omitempty"`
	TimeHorizon   TimeHorizon  `json:"time_horizon"`
	RiskAppetite  RiskAppetite `json:"risk_appetite"`
	Region        string       `json:"region,omitempty"`
	MaxIterations int          `json:"max_iterations"`
}

func (r *AnalysisRequest) Validate() error {
	if r == nil {
		return &ValidationError{Field: "request", Reason: "is nil"}
	}
	if r.MaxIterations <= 0 {
		return &ValidationError{Field: "max_iterations", Value: r.MaxIterations, Reason: "must be positive"}
	}
	if r.MaxIterations > MaxIterationsCeiling {
		return &ValidationError{Field: "max_iterations", Value: r.MaxIterations, Reason: fmt.Sprintf("must not exceed %d", MaxIterationsCeiling)}
	}
	if strings.TrimSpace(r.Topic) == "" {
		return &ValidationError{Field: "topic", Reason: "is required"}
	}
	if !slices.Contains(horizons, r.TimeHorizon) {
		return &ValidationError{Field: "time_horizon", Value: r.TimeHorizon, Reason: "unknown horizon"}
	}
	if !slices.Contains(appetites, r.RiskAppetite) {
		return &ValidationError{Field: "risk_appetite", Value: r.RiskAppetite, Reason: "unknown risk appetite"}
	}
	for _, s := range r.Symbols {
		if strings.TrimSpace(s) == "" {
			return &ValidationError{Field: "symbols", Value: r.Symbols, Reason: "contains an empty symbol"}
		}
	}
	return nil
}

// Clone returns a deep copy so the caller's request can never be mutated by a run.
func (r *AnalysisRequest) Clone() *AnalysisRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.Symbols = slices.Clone(r.Symbols)
	return &c
}

// Subject is a short human label for prompts and logs.
func (r *AnalysisRequest) Subject() string {
	if len(r.Symbols) == 0 {
		return r.Topic
	}
	return r.Topic + " (" + strings.Join(r.Symbols, ", ") + ")"
}
