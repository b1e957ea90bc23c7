package agents

import (
	"go.uber.org/zap"

	"github.com/dyike/CortexCommittee/internal/llm"
)

// NewCommittee assembles the default eight-member committee around one gateway.
func NewCommittee(gw *llm.Gateway, sources DataSources, logger *zap.Logger) *Team {
	return &Team{
		Data: NewDataIntelligenceSpecialist(gw, sources, logger),
		Core: []Analyst{
			NewNarrativeArbitrageur(gw, logger),
			NewFirstOrderImpactQuant(gw, logger),
			NewContrarianSkeptic(gw, logger),
			NewSecondOrderStrategist(gw, logger),
		},
		Specialist:  NewMacroStrategist(gw, logger),
		Risk:        NewRiskController(gw, logger),
		Synthesizer: NewChiefSynthesizer(gw, logger),
	}
}
