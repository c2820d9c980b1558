package view_test

import (
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nmfoodwatch/inspection-etl/internal/domain"
	"github.com/nmfoodwatch/inspection-etl/internal/view"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var viewNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func freezeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(viewNow))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func record(name, city, address string, daysAgo int, outcome domain.Outcome, status domain.OperationalStatus) domain.InspectionRecord {
	date := domain.Date{Time: viewNow.AddDate(0, 0, -daysAgo)}
	insp := domain.Inspection{Date: date, Type: "routine", Outcome: outcome}
	return domain.InspectionRecord{
		ID:     "abq:" + strings.ToLower(name) + ":" + date.String(),
		Source: domain.SourceABQ,
		Establishment: domain.Establishment{
			Name:    name,
			Address: address,
			City:    city,
			County:  "Bernalillo",
		},
		Inspection:        insp,
		OperationalStatus: status,
		Score:             domain.ScoreInspection(insp, []domain.Inspection{insp}, viewNow),
	}
}

func TestFilter_City(t *testing.T) {
	records := []domain.InspectionRecord{
		record("ZIA DINER", "Santa Fe", "326 S Guadalupe St", 10, domain.OutcomeFailed, domain.StatusOpen),
		record("MESA GRILL", "Albuquerque", "4400 Menaul Blvd", 10, domain.OutcomeFailed, domain.StatusOpen),
	}

	got := view.Filter{Cities: []string{"santa fe"}}.Apply(records, viewNow)
	require.Len(t, got, 1)
	assert.Equal(t, "ZIA DINER", got[0].Establishment.Name)
}

func TestFilter_DateWindow(t *testing.T) {
	records := []domain.InspectionRecord{
		record("OLD SPOT", "Roswell", "1 Main St", 100, domain.OutcomeFailed, domain.StatusOpen),
		record("NEW SPOT", "Roswell", "2 Main St", 5, domain.OutcomeFailed, domain.StatusOpen),
	}

	got := view.Filter{Days: 30}.Apply(records, viewNow)
	require.Len(t, got, 1)
	assert.Equal(t, "NEW SPOT", got[0].Establishment.Name)

	assert.Len(t, view.Filter{}.Apply(records, viewNow), 2)
}

func TestFilter_SeverityBand(t *testing.T) {
	records := []domain.InspectionRecord{
		record("CLOSED CAFE", "Clovis", "9 Elm St", 10, domain.OutcomeClosed, domain.StatusClosed),   // 3.0 high
		record("SHAKY GRILL", "Clovis", "8 Elm St", 10, domain.OutcomeFailed, domain.StatusOpen),     // 2.0 medium
		record("CLEAN DINER", "Clovis", "7 Elm St", 10, domain.OutcomeApproved, domain.StatusOpen),   // 0.0 low
	}

	high := view.Filter{Levels: []string{domain.LevelHigh}}.Apply(records, viewNow)
	require.Len(t, high, 1)
	assert.Equal(t, "CLOSED CAFE", high[0].Establishment.Name)

	medLow := view.Filter{Levels: []string{domain.LevelMedium, domain.LevelLow}}.Apply(records, viewNow)
	assert.Len(t, medLow, 2)
}

func TestFilter_FreeText(t *testing.T) {
	records := []domain.InspectionRecord{
		record("ZIA DINER", "Santa Fe", "326 S Guadalupe St", 10, domain.OutcomeFailed, domain.StatusOpen),
		record("MESA GRILL", "Albuquerque", "4400 Menaul Blvd", 10, domain.OutcomeFailed, domain.StatusOpen),
	}

	byName := view.Filter{Query: "zia"}.Apply(records, viewNow)
	require.Len(t, byName, 1)
	assert.Equal(t, "ZIA DINER", byName[0].Establishment.Name)

	byAddress := view.Filter{Query: "menaul"}.Apply(records, viewNow)
	require.Len(t, byAddress, 1)
	assert.Equal(t, "MESA GRILL", byAddress[0].Establishment.Name)
}

// The filter applies to raw records before grouping: a 30-day window drops
// an establishment whose only adverse inspection is older, even though the
// full history would have produced a nonzero aggregate.
func TestState_FilterBeforeAggregate(t *testing.T) {
	freezeClock(t)

	records := []domain.InspectionRecord{
		record("Taco Place", "Hobbs", "12 First St", 60, domain.OutcomeFailed, domain.StatusOpen),
		record("Taco Place", "Hobbs", "12 First St", 10, domain.OutcomeApproved, domain.StatusOpen),
	}

	s := view.NewState(domain.AggregateOptions{})
	s.LoadDataset(records)
	require.Len(t, s.Groups(), 1) // failed at 60d scores 2.0 unfiltered

	s.ApplyFilter(view.Filter{Days: 30})
	assert.Equal(t, 1, s.FilteredCount())
	assert.Empty(t, s.Groups()) // only the clean inspection survives the window
}

func TestState_LoadResetsToEmpty(t *testing.T) {
	freezeClock(t)

	s := view.NewState(domain.AggregateOptions{})
	s.LoadDataset([]domain.InspectionRecord{
		record("ZIA DINER", "Santa Fe", "326 S Guadalupe St", 10, domain.OutcomeFailed, domain.StatusOpen),
	})
	require.Len(t, s.Groups(), 1)

	s.LoadDataset(nil) // load failure path: never leave stale data behind
	assert.Empty(t, s.Groups())
	assert.Zero(t, s.FilteredCount())
}

func TestState_ApplySort(t *testing.T) {
	freezeClock(t)

	s := view.NewState(domain.AggregateOptions{})
	s.LoadDataset([]domain.InspectionRecord{
		record("ZIA DINER", "Santa Fe", "326 S Guadalupe St", 3, domain.OutcomeFailed, domain.StatusOpen),
		record("APPLE CAFE", "Santa Fe", "100 Water St", 50, domain.OutcomeClosed, domain.StatusClosed),
	})

	require.Len(t, s.Groups(), 2)
	assert.Equal(t, "apple cafe", s.Groups()[0].IdentityKey) // severity default

	s.ApplySort(domain.SortByDate)
	assert.Equal(t, "zia diner", s.Groups()[0].IdentityKey)

	s.ApplySort(domain.SortByName)
	assert.Equal(t, "apple cafe", s.Groups()[0].IdentityKey)
}

func TestExportCSV(t *testing.T) {
	freezeClock(t)

	rec := record("WENDYS-PT01603", "Albuquerque", "2200 Central Ave", 10, domain.OutcomeFailed, domain.StatusOpen)
	rec.Inspection.Violations = []domain.Violation{
		{Code: "3-501.16", Critical: true, Desc: "cold holding"},
		{Code: "6-501.12", Critical: false, Desc: `floors "dirty"`},
	}
	groups := domain.Aggregate([]domain.InspectionRecord{rec}, domain.AggregateOptions{})
	require.Len(t, groups, 1)

	var sb strings.Builder
	require.NoError(t, view.ExportCSV(&sb, groups))

	lines := strings.Split(strings.TrimRight(sb.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, `"name","city","address","date","outcome","severity","violations"`, lines[0])
	date := rec.Inspection.Date.String()
	assert.Equal(t, `"Wendy's","Albuquerque","2200 Central Ave","`+date+`","failed","2.0","cold holding; floors ""dirty"""`, lines[1])
}

func TestExportCSV_Deterministic(t *testing.T) {
	freezeClock(t)

	records := []domain.InspectionRecord{
		record("ZIA DINER", "Santa Fe", "326 S Guadalupe St", 3, domain.OutcomeFailed, domain.StatusOpen),
		record("MESA GRILL", "Albuquerque", "4400 Menaul Blvd", 7, domain.OutcomeClosed, domain.StatusClosed),
	}
	groups := domain.Aggregate(records, domain.AggregateOptions{})

	var first, second strings.Builder
	require.NoError(t, view.ExportCSV(&first, groups))
	require.NoError(t, view.ExportCSV(&second, groups))
	assert.Equal(t, first.String(), second.String())
}

func TestExportJSON(t *testing.T) {
	freezeClock(t)

	rec := record("ZIA DINER", "Santa Fe", "326 S Guadalupe St", 3, domain.OutcomeFailed, domain.StatusOpen)
	groups := domain.Aggregate([]domain.InspectionRecord{rec}, domain.AggregateOptions{})

	var sb strings.Builder
	require.NoError(t, view.ExportJSON(&sb, groups))

	out := sb.String()
	assert.True(t, strings.HasPrefix(out, "[\n  {"))
	assert.Contains(t, out, `"display_name": "Zia Diner"`)
	assert.Contains(t, out, `"aggregate_score": 2`)

	t.Run("empty view is an empty array", func(t *testing.T) {
		var empty strings.Builder
		require.NoError(t, view.ExportJSON(&empty, nil))
		assert.Equal(t, "[]\n", empty.String())
	})
}
