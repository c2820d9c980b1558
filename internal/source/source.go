// Package source adapts the raw government feeds into normalized inspection
// records. Each adapter owns one feed's quirks: field names, outcome labels,
// identifier composition. Scoring is not done here; the pipeline scores after
// merging so establishment history spans sources.
package source

import (
	"context"
	"strings"

	"github.com/nmfoodwatch/inspection-etl/internal/domain"
)

// Source produces normalized records from one upstream feed. Fetch also
// reports how many fetched rows were dropped as malformed, so the pipeline
// can account for them.
type Source interface {
	Name() domain.Source
	Fetch(ctx context.Context) (records []domain.InspectionRecord, dropped int, err error)
}

// outcomes maps raw outcome labels, lower-cased, to the unified vocabulary.
// Unknown labels fall back to approved.
var outcomes = map[string]domain.Outcome{
	"pass":        domain.OutcomeApproved,
	"approved":    domain.OutcomeApproved,
	"fail":        domain.OutcomeFailed,
	"failed":      domain.OutcomeFailed,
	"conditional": domain.OutcomeConditional,
	"closed":      domain.OutcomeClosed,
	"reopened":    domain.OutcomeReopened,
}

func mapOutcome(raw string) domain.Outcome {
	if o, ok := outcomes[strings.ToLower(strings.TrimSpace(raw))]; ok {
		return o
	}
	return domain.OutcomeApproved
}

// slugify lower-cases a name fragment and replaces spaces with hyphens, for
// use in record identifiers.
func slugify(s string) string {
	return strings.ReplaceAll(strings.ToLower(s), " ", "-")
}
