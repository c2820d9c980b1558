package domain

import (
	"fmt"
	"math"
	"time"
)

// Scoring windows in whole days.
const (
	recentWindowDays  = 180
	historyWindowDays = 365
)

// Severity levels derived from a score, used for filtering and the manifest
// breakdown.
const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// ScoreInspection computes the deterministic severity score for one
// inspection given the establishment's full inspection history and the
// evaluation time. Rules fire independently and additively:
//
//  1. closure within 180 days            +3.0
//  2. conditional/failed within 180 days +2.0
//  3. critical violations within 365 days: 0.5 each, capped at 2.0
//  4. two or more adverse inspections in the history within 365 days +0.5
//
// The result is rounded half away from zero to one decimal place.
func ScoreInspection(insp Inspection, history []Inspection, now time.Time) Score {
	var severity float64
	var reasons []string

	daysAgo := insp.Date.DaysAgo(now)

	if insp.Outcome == OutcomeClosed && daysAgo <= recentWindowDays {
		severity += 3.0
		reasons = append(reasons, "closure within 180d")
	}

	if (insp.Outcome == OutcomeConditional || insp.Outcome == OutcomeFailed) && daysAgo <= recentWindowDays {
		severity += 2.0
		reasons = append(reasons, "conditional/failed within 180d")
	}

	if daysAgo <= historyWindowDays {
		critical := 0
		for _, v := range insp.Violations {
			if v.Critical {
				critical++
			}
		}
		if critical > 0 {
			severity += math.Min(float64(critical)*0.5, 2.0)
			reasons = append(reasons, fmt.Sprintf("%d critical violation(s)", critical))
		}
	}

	if countAdverse(history, now) >= 2 {
		severity += 0.5
		reasons = append(reasons, "multiple adverse inspections within 365d")
	}

	return Score{Severity: round1(severity), Reasons: reasons}
}

// countAdverse counts inspections in the history with an adverse outcome
// within the 365-day window.
func countAdverse(history []Inspection, now time.Time) int {
	n := 0
	for _, insp := range history {
		if insp.Outcome.Adverse() && insp.Date.DaysAgo(now) <= historyWindowDays {
			n++
		}
	}
	return n
}

// SeverityLevel classifies a severity score into high (>=3.0),
// medium (>=1.5), or low. Derived on demand, never stored.
func SeverityLevel(severity float64) string {
	switch {
	case severity >= 3.0:
		return LevelHigh
	case severity >= 1.5:
		return LevelMedium
	default:
		return LevelLow
	}
}

// round1 rounds half away from zero to one decimal place.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
