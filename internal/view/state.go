// Package view holds the application state consumed by the display layer:
// the loaded dataset plus the current filter and sort selections, with all
// derived values (filtered records, groups, result count) recomputed through
// explicit transform calls rather than ad hoc field writes.
package view

import (
	"github.com/nmfoodwatch/inspection-etl/internal/domain"
)

// State is the single source of truth for one client session. It is not safe
// for concurrent mutation; the consumers are synchronous by design.
type State struct {
	dataset   []domain.InspectionRecord
	filter    Filter
	sortOrder domain.SortOrder
	opts      domain.AggregateOptions

	// Derived values, recomputed once per transform call and cached.
	filtered      []domain.InspectionRecord
	groups        []domain.EstablishmentGroup
	filteredCount int
}

// NewState creates an empty State with the given aggregation options and the
// default severity sort.
func NewState(opts domain.AggregateOptions) *State {
	return &State{sortOrder: domain.SortBySeverity, opts: opts}
}

// LoadDataset replaces the dataset wholesale and recomputes the derived view
// under the current filter and sort. On a load failure callers pass nil,
// which resets the state to empty rather than leaving it stale.
func (s *State) LoadDataset(records []domain.InspectionRecord) {
	s.dataset = records
	s.refresh()
}

// ApplyFilter sets the filter predicate and recomputes the derived view.
func (s *State) ApplyFilter(f Filter) {
	s.filter = f
	s.refresh()
}

// ApplySort sets the group ordering. Filtering and grouping are unaffected,
// so only the group order is recomputed.
func (s *State) ApplySort(order domain.SortOrder) {
	s.sortOrder = order
	domain.SortGroups(s.groups, s.sortOrder)
}

// Groups returns the current filtered, sorted establishment groups.
func (s *State) Groups() []domain.EstablishmentGroup {
	return s.groups
}

// Records returns the current filtered inspection records.
func (s *State) Records() []domain.InspectionRecord {
	return s.filtered
}

// FilteredCount returns the number of records matching the current filter.
// Computed once per transform call, not on read.
func (s *State) FilteredCount() int {
	return s.filteredCount
}

// refresh recomputes the filtered records and groups from the dataset.
// The filter applies to raw records before grouping.
func (s *State) refresh() {
	s.filtered = s.filter.Apply(s.dataset, domain.Now())
	s.filteredCount = len(s.filtered)
	s.groups = domain.Aggregate(s.filtered, s.opts)
	domain.SortGroups(s.groups, s.sortOrder)
}
