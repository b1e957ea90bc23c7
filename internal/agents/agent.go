// Package agents holds the committee members. The engine only sees the interfaces
// below; the LLM-backed implementations live next to them.
package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/dyike/CortexCommittee/internal/models"
)

// Analyst is a core committee member run in the fan-out round.
type Analyst interface {
	Name() string
	// Analyze may fail; the caller substitutes Fallback.
	Analyze(ctx context.Context, req *models.AnalysisRequest, prior *models.FindingSet) (models.Finding, error)
	Fallback(req *models.AnalysisRequest) models.Finding
}

type DataIntelligence interface {
	Collect(ctx context.Context, req *models.AnalysisRequest) (*models.DataIntelligenceReport, error)
}

type SpecialistInput struct {
	Request          *models.AnalysisRequest
	Findings         *models.FindingSet
	DataIntelligence *models.DataIntelligenceReport
}

type Specialist interface {
	Analyze(ctx context.Context, in SpecialistInput) (*models.MacroView, error)
}

type RiskInput struct {
	Request          *models.AnalysisRequest
	Findings         *models.FindingSet
	Macro            *models.MacroView
	DataIntelligence *models.DataIntelligenceReport
}

type RiskController interface {
	Assess(ctx context.Context, in RiskInput) (*models.RiskAssessment, error)
}

type SynthesisInput struct {
	Request          *models.AnalysisRequest
	Findings         *models.FindingSet
	Macro            *models.MacroView
	Risk             *models.RiskAssessment
	DataIntelligence *models.DataIntelligenceReport
}

type Synthesizer interface {
	Synthesize(ctx context.Context, in SynthesisInput) (*models.Decision, error)
}

// Team is the full committee handed to the engine.
type Team struct {
	Data        DataIntelligence
	Core        []Analyst
	Specialist  Specialist
	Risk        RiskController
	Synthesizer Synthesizer
}

var ErrIncompleteTeam = errors.New("incomplete committee")

func (t *Team) Validate() error {
	if t == nil {
		return fmt.Errorf("%w: no team", ErrIncompleteTeam)
	}
	switch {
	case t.Data == nil:
		return fmt.Errorf("%w: data intelligence specialist missing", ErrIncompleteTeam)
	case len(t.Core) == 0:
		return fmt.Errorf("%w: no core analysts", ErrIncompleteTeam)
	case t.Specialist == nil:
		return fmt.Errorf("%w: specialist missing", ErrIncompleteTeam)
	case t.Risk == nil:
		return fmt.Errorf("%w: risk controller missing", ErrIncompleteTeam)
	case t.Synthesizer == nil:
		return fmt.Errorf("%w: synthesizer missing", ErrIncompleteTeam)
	}
	seen := make(map[string]bool, len(t.Core))
	for i, a := range t.Core {
		if a == nil {
			return fmt.Errorf("%w: core analyst %d is nil", ErrIncompleteTeam, i)
		}
		if seen[a.Name()] {
			return fmt.Errorf("%w: duplicate analyst %q", ErrIncompleteTeam, a.Name())
		}
		seen[a.Name()] = true
	}
	return nil
}

func (t *Team) CoreNames() []string {
	names := make([]string, len(t.Core))
	for i, a := range t.Core {
		names[i] = a.Name()
	}
	return names
}
