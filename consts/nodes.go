package consts

// 图节点
const (
	NodeDataIntelligence = "data_intelligence"
	NodeCoreAnalysis     = "core_analysis"
	NodeSpecialist       = "specialist_analysis"
	NodeRiskControl      = "risk_control"
	NodeSynthesis        = "synthesis"
	NodeAbort            = "abort"
	NodeFinalize         = "finalize"
)

// 分析师标识
const (
	NarrativeArbitrageur  = "narrative_arbitrageur"
	FirstOrderImpactQuant = "first_order_impact_quant"
	ContrarianSkeptic     = "contrarian_skeptic"
	SecondOrderStrategist = "second_order_effects_strategist"

	DataIntelligenceSpecialist = "data_intelligence_specialist"
	MacroStrategist            = "macro_strategist"
	RiskController             = "risk_controller"
	ChiefSynthesizer           = "chief_synthesizer"
)
