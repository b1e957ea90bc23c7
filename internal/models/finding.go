package models

// Finding is the output of one analyst for one round. Findings are values: they are
// replaced wholesale on the next round, never edited.
type Finding interface {
	AnalystName() string
	IsFallback() bool
}

// Provenance is embedded by every concrete finding.
type Provenance struct {
	Analyst  string `json:"analyst"`
	Fallback bool   `json:"fallback,omitempty"`
}

func (p Provenance) AnalystName() string { return p.Analyst }
func (p Provenance) IsFallback() bool    { return p.Fallback }

type NarrativeFinding struct {
	Provenance
	OneLiner        string   `json:"one_liner"`
	MemePotential   float64  `json:"meme_potential"`
	InfluencersTake []string `json:"influencers_take"`
	LifecycleDays   int      `json:"lifecycle_days"`
	PricedIn        bool     `json:"priced_in"`
}

type QuantImpact struct {
	Provenance
	PnLLine      string             `json:"pnl_line"`
	Magnitude    string             `json:"magnitude"`
	KPIShiftsPct map[string]float64 `json:"kpi_shifts_pct"`
	Recurring    bool               `json:"recurring"`
}

type ContrarianRisk struct {
	Provenance
	RedFlags            []string `json:"red_flags"`
	DataValidityRisks   []string `json:"data_validity_risks"`
	OverreactionSignals []string `json:"overreaction_signals"`
}

// Concerns counts every flag raised by the skeptic.
func (c *ContrarianRisk) Concerns() int {
	return len(c.RedFlags) + len(c.DataValidityRisks) + len(c.OverreactionSignals)
}

type SecondOrderEffects struct {
	Provenance
	CompetitorMoves        []string `json:"competitor_moves"`
	RegulatoryWatchpoints  []string `json:"regulatory_watchpoints"`
	SupplyChainShift       []string `json:"supply_chain_shift"`
	ConsumerBehaviorChange []string `json:"consumer_behavior_change"`
}

// Slot is one position of a fan-out round. Finding is never nil; Cause is set when
// the analyst failed and Finding holds its fallback.
type Slot struct {
	Analyst string  `json:"analyst"`
	Finding Finding `json:"finding"`
	Cause   string  `json:"cause,omitempty"`
}

func (s Slot) Degraded() bool { return s.Cause != "" }

// FindingSet holds the ordered result of one core-analysis round.
type FindingSet struct {
	Round int    `json:"round"`
	Slots []Slot `json:"slots"`
}

func (fs *FindingSet) Get(analyst string) (Finding, bool) {
	if fs == nil {
		return nil, false
	}
	for _, s := range fs.Slots {
		if s.Analyst == analyst {
			return s.Finding, true
		}
	}
	return nil, false
}

func (fs *FindingSet) Analysts() []string {
	if fs == nil {
		return nil
	}
	names := make([]string, 0, len(fs.Slots))
	for _, s := range fs.Slots {
		names = append(names, s.Analyst)
	}
	return names
}

func (fs *FindingSet) DegradedCount() int {
	if fs == nil {
		return 0
	}
	n := 0
	for _, s := range fs.Slots {
		if s.Degraded() {
			n++
		}
	}
	return n
}

// Narrative returns the first narrative finding in the set, if any.
func (fs *FindingSet) Narrative() (*NarrativeFinding, bool) {
	return firstOf[*NarrativeFinding](fs)
}

func (fs *FindingSet) Contrarian() (*ContrarianRisk, bool) {
	return firstOf[*ContrarianRisk](fs)
}

func (fs *FindingSet) Quant() (*QuantImpact, bool) {
	return firstOf[*QuantImpact](fs)
}

func (fs *FindingSet) SecondOrder() (*SecondOrderEffects, bool) {
	return firstOf[*SecondOrderEffects](fs)
}

func firstOf[T Finding](fs *FindingSet) (T, bool) {
	var zero T
	if fs == nil {
		return zero, false
	}
	for _, s := range fs.Slots {
		if f, ok := s.Finding.(T); ok {
			return f, true
		}
	}
	return zero, false
}
