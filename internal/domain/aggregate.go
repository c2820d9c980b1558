package domain

import (
	"sort"
	"strings"
)

// AggregateOptions control grouping identity.
type AggregateOptions struct {
	// GroupByAddress widens the grouping key to (name, address), keeping
	// distinct locations of a chain apart. The default (name only)
	// reproduces the established product behavior, which merges records
	// whose normalized names collide even across addresses.
	GroupByAddress bool
}

// SortOrder selects the top-level ordering of aggregated groups.
type SortOrder string

const (
	SortBySeverity SortOrder = "severity" // default: aggregate score desc, closed first on ties
	SortByDate     SortOrder = "date"     // most recent inspection date desc
	SortByName     SortOrder = "name"     // display name asc, case-insensitive
)

// Aggregate groups inspection records by establishment identity, computes
// each group's aggregate score and closure status, and drops groups whose
// score is zero (an establishment with no adverse signal is not shown).
//
// The aggregate score is a deliberately coarser re-derivation, not the sum of
// member severities: each member contributes +3.0 for a closure or +2.0 for a
// conditional/failed outcome within 180 days, and a currently-closed
// establishment gets a flat +5.0 boost. Critical-violation and multi-adverse
// bonuses are ignored at this level.
//
// The evaluation time comes from the package clock; freeze it with SetClock
// for deterministic output. Groups are returned in severity order.
func Aggregate(records []InspectionRecord, opts AggregateOptions) []EstablishmentGroup {
	now := clock.Now()

	byKey := make(map[string][]InspectionRecord)
	var keys []string
	for _, rec := range records {
		key := IdentityKey(rec.Establishment.Name)
		if opts.GroupByAddress {
			key += "|" + strings.ToLower(strings.TrimSpace(rec.Establishment.Address))
		}
		if _, seen := byKey[key]; !seen {
			keys = append(keys, key)
		}
		byKey[key] = append(byKey[key], rec)
	}
	sort.Strings(keys)

	var groups []EstablishmentGroup
	for _, key := range keys {
		members := byKey[key]
		sortInspectionsByDateDesc(members)

		isClosed := members[0].OperationalStatus == StatusClosed

		var score float64
		for _, m := range members {
			daysAgo := m.Inspection.Date.DaysAgo(now)
			switch {
			case m.Inspection.Outcome == OutcomeClosed && daysAgo <= recentWindowDays:
				score += 3.0
			case (m.Inspection.Outcome == OutcomeConditional || m.Inspection.Outcome == OutcomeFailed) && daysAgo <= recentWindowDays:
				score += 2.0
			}
		}
		if isClosed {
			score += 5.0
		}
		score = round1(score)

		if score == 0 {
			continue
		}

		groups = append(groups, EstablishmentGroup{
			IdentityKey:    IdentityKey(members[0].Establishment.Name),
			DisplayName:    DisplayName(members[0].Establishment.Name),
			Inspections:    members,
			AggregateScore: score,
			IsClosed:       isClosed,
		})
	}

	SortGroups(groups, SortBySeverity)
	return groups
}

// SortGroups orders groups by the given order. Member inspections stay
// sorted descending by date regardless of the top-level order.
func SortGroups(groups []EstablishmentGroup, order SortOrder) {
	switch order {
	case SortByDate:
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].MostRecent().Inspection.Date.After(groups[j].MostRecent().Inspection.Date.Time)
		})
	case SortByName:
		sort.SliceStable(groups, func(i, j int) bool {
			return strings.ToLower(groups[i].DisplayName) < strings.ToLower(groups[j].DisplayName)
		})
	default: // SortBySeverity
		sort.SliceStable(groups, func(i, j int) bool {
			if groups[i].AggregateScore != groups[j].AggregateScore {
				return groups[i].AggregateScore > groups[j].AggregateScore
			}
			return groups[i].IsClosed && !groups[j].IsClosed
		})
	}
}

// sortInspectionsByDateDesc orders a group's members newest first, breaking
// date ties by ID for stable output across runs.
func sortInspectionsByDateDesc(records []InspectionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		di, dj := records[i].Inspection.Date, records[j].Inspection.Date
		if !di.Equal(dj.Time) {
			return di.After(dj.Time)
		}
		return records[i].ID < records[j].ID
	})
}
