package models

import "fmt"

type Stage string

const (
	StageInitialized        Stage = "initialized"
	StageDataCollected      Stage = "data_collected"
	StageCoreAnalysis       Stage = "core_analysis_completed"
	StageSpecialistAnalysis Stage = "specialist_analysis_completed"
	StageRiskAssessment     Stage = "risk_assessment_completed"
	StageSynthesis          Stage = "synthesis_completed"
	StageAborted            Stage = "aborted"
	StageCompleted          Stage = "completed"
)

func (s Stage) Terminal() bool {
	return s == StageAborted || s == StageCompleted
}

var transitions = map[Stage][]Stage{
	StageInitialized:        {StageDataCollected},
	StageDataCollected:      {StageCoreAnalysis},
	StageCoreAnalysis:       {StageSpecialistAnalysis},
	StageSpecialistAnalysis: {StageRiskAssessment},
	StageRiskAssessment:     {StageCoreAnalysis, StageAborted, StageSynthesis},
	StageSynthesis:          {StageDataCollected, StageCompleted},
}

// CanTransition reports whether the state machine has an edge from -> to.
func CanTransition(from, to Stage) bool {
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

type Transition struct {
	From Stage `json:"from"`
	To   Stage `json:"to"`
	Iter int   `json:"iter"`
}

// WorkflowState is owned by a single run and mutated only through Apply.
type WorkflowState struct {
	Request          *AnalysisRequest        `json:"request"`
	Findings         *FindingSet             `json:"findings,omitempty"`
	DataIntelligence *DataIntelligenceReport `json:"data_intelligence,omitempty"`
	MacroView        *MacroView              `json:"macro_view,omitempty"`
	RiskAssessment   *RiskAssessment         `json:"risk_assessment,omitempty"`
	Decision         *Decision               `json:"decision,omitempty"`
	EnhancedDecision *EnhancedDecision       `json:"enhanced_decision,omitempty"`

	// Iter counts completed outer iterations and never decreases.
	Iter          int `json:"iter"`
	MaxIterations int `json:"max_iterations"`
	// Reassessments counts reassess loops inside the current outer iteration.
	Reassessments int `json:"reassessments"`
	// CoreRounds counts every core-analysis fan-out of the run.
	CoreRounds int `json:"core_rounds"`

	Stage   Stage        `json:"stage"`
	History []Transition `json:"history,omitempty"`
}

func NewWorkflowState(req *AnalysisRequest) *WorkflowState {
	return &WorkflowState{
		Request:       req,
		MaxIterations: req.MaxIterations,
		Stage:         StageInitialized,
	}
}

// StatePatch is the delta a stage returns. Nil artifact fields leave the state untouched.
type StatePatch struct {
	Stage            Stage
	Findings         *FindingSet
	DataIntelligence *DataIntelligenceReport
	MacroView        *MacroView
	RiskAssessment   *RiskAssessment
	Decision         *Decision
	EnhancedDecision *EnhancedDecision

	IterDelta          int
	Reassess           bool
	ResetReassessments bool
	ClearDecision      bool
}

// Apply merges p into the state. The patch is rejected as a whole when it names an
// illegal transition or would move Iter backwards or past MaxIterations.
func (s *WorkflowState) Apply(p *StatePatch) error {
	if p == nil {
		return nil
	}
	if p.Stage != "" && !CanTransition(s.Stage, p.Stage) {
		return &TransitionError{From: s.Stage, To: p.Stage}
	}
	if p.IterDelta < 0 {
		return fmt.Errorf("iteration counter cannot decrease (delta %d)", p.IterDelta)
	}
	if s.Iter+p.IterDelta > s.MaxIterations {
		return fmt.Errorf("iteration %d exceeds max_iterations %d", s.Iter+p.IterDelta, s.MaxIterations)
	}

	if p.ResetReassessments {
		s.Reassessments = 0
	}
	if p.Reassess {
		s.Reassessments++
	}
	if p.DataIntelligence != nil {
		s.DataIntelligence = p.DataIntelligence
	}
	if p.Findings != nil {
		s.Findings = p.Findings
		s.CoreRounds++
	}
	if p.MacroView != nil {
		s.MacroView = p.MacroView
	}
	if p.RiskAssessment != nil {
		s.RiskAssessment = p.RiskAssessment
	}
	if p.ClearDecision {
		s.Decision = nil
		s.EnhancedDecision = nil
	}
	if p.Decision != nil {
		s.Decision = p.Decision
	}
	if p.EnhancedDecision != nil {
		s.EnhancedDecision = p.EnhancedDecision
	}
	s.Iter += p.IterDelta

	if p.Stage != "" {
		s.History = append(s.History, Transition{From: s.Stage, To: p.Stage, Iter: s.Iter})
		s.Stage = p.Stage
	}
	return nil
}
