package graph

import (
	"strings"

	"github.com/dyike/CortexCommittee/config"
)

// Verdict is the risk router's choice after a risk assessment.
type Verdict string

const (
	VerdictAbort    Verdict = "abort"
	VerdictReassess Verdict = "reassess"
	VerdictProceed  Verdict = "proceed"
)

// Route decides what follows a risk assessment. Abort wins over reassess, and
// reassess is only allowed while reassessments < maxIter.
func Route(score float64, alerts []string, reassessments, maxIter int, p config.RoutingPolicy) Verdict {
	if score > p.AbortAbove || hasMarker(alerts, p.CriticalMarkers) {
		return VerdictAbort
	}
	if (score > p.ReassessAbove || hasMarker(alerts, p.WarningMarkers)) && reassessments < maxIter {
		return VerdictReassess
	}
	return VerdictProceed
}

func hasMarker(alerts, markers []string) bool {
	for _, a := range alerts {
		a = strings.ToLower(a)
		for _, m := range markers {
			if m != "" && strings.Contains(a, strings.ToLower(m)) {
				return true
			}
		}
	}
	return false
}
