package models

import (
	"strings"
	"time"
)

type Action string

const (
	ActionStrongBuy  Action = "strong_buy"
	ActionBuy        Action = "buy"
	ActionHold       Action = "hold"
	ActionSell       Action = "sell"
	ActionStrongSell Action = "strong_sell"
)

// ParseAction maps free-form model output onto an Action, defaulting to hold.
func ParseAction(s string) Action {
	switch strings.ToLower(strings.TrimSpace(strings.ReplaceAll(s, " ", "_"))) {
	case "strong_buy", "strongbuy":
		return ActionStrongBuy
	case "buy", "long", "overweight":
		return ActionBuy
	case "sell", "short", "underweight":
		return ActionSell
	case "strong_sell", "strongsell":
		return ActionStrongSell
	default:
		return ActionHold
	}
}

type Decision struct {
	Action     Action   `json:"action"`
	Confidence float64  `json:"confidence"`
	Rationale  string   `json:"rationale"`
	KeyDrivers []string `json:"key_drivers,omitempty"`
	RiskChecks []string `json:"risk_checks,omitempty"`
	Fallback   bool     `json:"fallback,omitempty"`
}

// EnhancedDecision is derived from a Decision and the other stage outputs of the
// same round. It is computed once and not edited.
type EnhancedDecision struct {
	Base                   Decision  `json:"base"`
	RiskAdjustedConfidence float64   `json:"risk_adjusted_confidence"`
	MacroAlignment         float64   `json:"macro_alignment"`
	DataQualityFactor      float64   `json:"data_quality_factor"`
	SynthesizedAt          time.Time `json:"synthesized_at"`
}

// CommitteeMinutes is the human readable record of one run.
type CommitteeMinutes struct {
	MeetingID       string    `json:"meeting_id"`
	Participants    []string  `json:"participants"`
	Rounds          int       `json:"rounds"`
	KeyDebates      []string  `json:"key_debates"`
	ConsensusPoints []string  `json:"consensus_points"`
	DecisionProcess []string  `json:"decision_process"`
	FinalResolution string    `json:"final_resolution"`
	TerminalStage   Stage     `json:"terminal_stage"`
	Timestamp       time.Time `json:"timestamp"`
}
