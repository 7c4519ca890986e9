// Package rules holds post-analysis business corrections.
package rules

import "github.com/nwrslept/CallAnalyzer/internal/types"

// scoreOverrideThreshold: above this score the organization does not accept
// an AI-flagged critical failure. Deliberately blunt; keep as-is.
const scoreOverrideThreshold = 6

// Adjust applies the score override: a high overall score forcibly clears
// the critical-fail flag and its comment. Pure function.
func Adjust(a types.Analysis) types.Analysis {
	if int(a.ManagerScore) > scoreOverrideThreshold {
		a.IsCriticalFail = false
		a.CriticalComment = ""
	}
	return a
}
