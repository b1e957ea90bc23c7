package consts

// Committee roster, in speaking order.
const (
	Agent_DataIntelligence = "Data Intelligence Specialist"
	Agent_Narrative        = "Narrative Arbitrageur"
	Agent_Quant            = "First-Order Impact Quant"
	Agent_Contrarian       = "Contrarian Skeptic"
	Agent_SecondOrder      = "Second-Order Effects Strategist"
	Agent_Macro            = "Macro Strategist"
	Agent_RiskController   = "Risk Controller"
	Agent_Synthesizer      = "Chief Synthesizer"
)

var CommitteeRoster = []string{
	Agent_DataIntelligence,
	Agent_Narrative,
	Agent_Quant,
	Agent_Contrarian,
	Agent_SecondOrder,
	Agent_Macro,
	Agent_RiskController,
	Agent_Synthesizer,
}

const (
	Resolution_NotDecided = "not decided"
)
