package view

import (
	"strings"
	"time"

	"github.com/nmfoodwatch/inspection-etl/internal/domain"
)

// Filter is the user-selected predicate over raw inspection records. All
// fields are optional and AND-combined; a zero Filter matches everything.
//
// Filtering happens on raw records before grouping, so a date window or
// severity filter can change an establishment's aggregate score and whether
// it appears at all.
type Filter struct {
	Cities []string // establishment city membership
	Days   int      // inspection date within the last N days; 0 = all
	Levels []string // severity bands: high, medium, low
	Query  string   // case-insensitive substring on name or address
}

// Apply returns the records matching the filter at the given evaluation time.
func (f Filter) Apply(records []domain.InspectionRecord, now time.Time) []domain.InspectionRecord {
	cities := toLowerSet(f.Cities)
	levels := toLowerSet(f.Levels)
	query := strings.ToLower(strings.TrimSpace(f.Query))

	var out []domain.InspectionRecord
	for _, rec := range records {
		if len(cities) > 0 && !cities[strings.ToLower(rec.Establishment.City)] {
			continue
		}
		if f.Days > 0 && rec.Inspection.Date.DaysAgo(now) > f.Days {
			continue
		}
		if len(levels) > 0 && !levels[domain.SeverityLevel(rec.Score.Severity)] {
			continue
		}
		if query != "" && !matchesQuery(rec, query) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

func matchesQuery(rec domain.InspectionRecord, query string) bool {
	return strings.Contains(strings.ToLower(rec.Establishment.Name), query) ||
		strings.Contains(strings.ToLower(rec.Establishment.Address), query)
}

func toLowerSet(values []string) map[string]bool {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return set
}
