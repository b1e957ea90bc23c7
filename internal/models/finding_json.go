package models

import (
	"encoding/json"
	"fmt"
)

// Slot JSON carries a kind tag so stored runs decode back into concrete findings.
const (
	kindNarrative   = "narrative"
	kindQuant       = "quant"
	kindContrarian  = "contrarian"
	kindSecondOrder = "second_order"
)

type slotJSON struct {
	Analyst string          `json:"analyst"`
	Kind    string          `json:"kind,omitempty"`
	Finding json.RawMessage `json:"finding"`
	Cause   string          `json:"cause,omitempty"`
}

func findingKind(f Finding) string {
	switch f.(type) {
	case *NarrativeFinding:
		return kindNarrative
	case *QuantImpact:
		return kindQuant
	case *ContrarianRisk:
		return kindContrarian
	case *SecondOrderEffects:
		return kindSecondOrder
	default:
		return ""
	}
}

func (s Slot) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(s.Finding)
	if err != nil {
		return nil, fmt.Errorf("slot %s: %w", s.Analyst, err)
	}
	return json.Marshal(slotJSON{Analyst: s.Analyst, Kind: findingKind(s.Finding), Finding: raw, Cause: s.Cause})
}

func (s *Slot) UnmarshalJSON(data []byte) error {
	var w slotJSON
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	var f Finding
	switch w.Kind {
	case kindNarrative:
		f = &NarrativeFinding{}
	case kindQuant:
		f = &QuantImpact{}
	case kindContrarian:
		f = &ContrarianRisk{}
	case kindSecondOrder:
		f = &SecondOrderEffects{}
	default:
		return fmt.Errorf("slot %s: unknown finding kind %q", w.Analyst, w.Kind)
	}
	if err := json.Unmarshal(w.Finding, f); err != nil {
		return fmt.Errorf("slot %s: %w", w.Analyst, err)
	}
	*s = Slot{Analyst: w.Analyst, Finding: f, Cause: w.Cause}
	return nil
}
