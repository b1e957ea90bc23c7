package graph

import "github.com/dyike/CortexCommittee/config"

// RiskAdjustedConfidence caps the synthesizer's confidence by the room the risk score leaves.
func RiskAdjustedConfidence(confidence, riskScore float64) float64 {
	return clamp01(min(confidence, 1-riskScore))
}

// ShouldContinue reports whether another outer iteration starts after synthesis.
// iter is the already incremented iteration count.
func ShouldContinue(riskAdjusted float64, iter, maxIter int, p config.IterationPolicy) bool {
	return riskAdjusted < p.ContinueBelow && iter < maxIter
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
