package models

// DataIntelligenceReport is produced by the data collection stage.
type DataIntelligenceReport struct {
	Sentiment        map[string]any     `json:"sentiment,omitempty"`
	MarketContext    map[string]any     `json:"market_context,omitempty"`
	News             []NewsItem         `json:"news,omitempty"`
	Quotes           []QuoteSnapshot    `json:"quotes,omitempty"`
	Anomalies        []string           `json:"anomalies,omitempty"`
	SentimentQuality float64            `json:"sentiment_quality"`
	SourceQuality    map[string]float64 `json:"source_quality,omitempty"`
	Summary          string             `json:"summary,omitempty"`
	Degraded         bool               `json:"degraded,omitempty"`
}

type NewsItem struct {
	Title       string `json:"title"`
	Link        string `json:"link,omitempty"`
	Source      string `json:"source,omitempty"`
	Published   string `json:"published,omitempty"`
	Description string `json:"description,omitempty"`
}

type QuoteSnapshot struct {
	Symbol    string  `json:"symbol"`
	Source    string  `json:"source"`
	Price     float64 `json:"price"`
	PrevClose float64 `json:"prev_close"`
	ChangePct float64 `json:"change_pct"`
	Volume    int64   `json:"volume,omitempty"`
}

// MacroView is the specialist stage output.
type MacroView struct {
	MarketRegime     string   `json:"market_regime"`
	PolicyStance     string   `json:"policy_stance,omitempty"`
	RegimeIndicators []string `json:"regime_indicators,omitempty"`
	GlobalRisks      []string `json:"global_risks,omitempty"`
	CurrencyOutlook  string   `json:"currency_outlook,omitempty"`
	CoherenceScore   float64  `json:"coherence_score"`
	Summary          string   `json:"summary,omitempty"`
	Degraded         bool     `json:"degraded,omitempty"`
}

// RiskAssessment is produced at most once per round and never edited afterwards.
type RiskAssessment struct {
	OverallRiskScore float64            `json:"overall_risk_score"`
	Alerts           []string           `json:"alerts"`
	Dimensions       map[string]float64 `json:"dimensions,omitempty"`
	StressScenarios  []string           `json:"stress_scenarios,omitempty"`
	Coherence        string             `json:"coherence,omitempty"`
	FusionConfidence float64            `json:"fusion_confidence"`
	Degraded         bool               `json:"degraded,omitempty"`
}
