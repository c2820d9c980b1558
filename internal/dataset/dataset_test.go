package dataset

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/nmfoodwatch/inspection-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var writeNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

func freezeClock(t *testing.T) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(writeNow))
	t.Cleanup(func() { domain.SetClock(nil) })
}

func sampleRecords() []domain.InspectionRecord {
	return []domain.InspectionRecord{
		{
			ID:     "nm:santafe:zia-diner:2026-04-15",
			Source: domain.SourceNMED,
			Establishment: domain.Establishment{
				Name: "ZIA DINER", City: "Santa Fe", County: "Santa Fe",
			},
			Inspection: domain.Inspection{
				Date:    domain.NewDate(2026, time.April, 15),
				Type:    "routine",
				Outcome: domain.OutcomeClosed,
			},
			OperationalStatus: domain.StatusClosed,
			Score:             domain.Score{Severity: 3.0, Reasons: []string{"closure within 180d"}},
		},
		{
			ID:     "abq:mesa-grill:2026-05-01",
			Source: domain.SourceABQ,
			Establishment: domain.Establishment{
				Name: "MESA GRILL", City: "Albuquerque", County: "Bernalillo",
			},
			Inspection: domain.Inspection{
				Date:    domain.NewDate(2026, time.May, 1),
				Type:    "routine",
				Outcome: domain.OutcomeFailed,
			},
			OperationalStatus: domain.StatusOpen,
			Score:             domain.Score{Severity: 2.0, Reasons: []string{"conditional/failed within 180d"}},
		},
	}
}

func TestWriteThenLoad(t *testing.T) {
	freezeClock(t)
	dir := t.TempDir()

	manifest, err := Write(dir, sampleRecords())
	require.NoError(t, err)

	assert.Equal(t, writeNow, manifest.GeneratedAt)
	assert.Len(t, manifest.DatasetVersion, 8)
	assert.Equal(t, 2, manifest.TotalRecords)
	assert.Equal(t, map[string]int{"Santa Fe": 1, "Albuquerque": 1}, manifest.Cities)
	assert.Equal(t, map[string]int{"high": 1, "medium": 1, "low": 0}, manifest.SeverityBreakdown)

	records, err := Load(dir)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "nm:santafe:zia-diner:2026-04-15", records[0].ID)
	assert.Equal(t, "2026-04-15", records[0].Inspection.Date.String())

	// Monthly snapshot mirrors the latest dataset.
	latest, err := os.ReadFile(filepath.Join(dir, "violations_latest.json"))
	require.NoError(t, err)
	snapshot, err := os.ReadFile(filepath.Join(dir, "snapshots", "violations_2026-06.json"))
	require.NoError(t, err)
	assert.Equal(t, latest, snapshot)

	loaded, err := LoadManifest(dir)
	require.NoError(t, err)
	assert.Equal(t, manifest.DatasetVersion, loaded.DatasetVersion)
	assert.Equal(t, Version(latest), loaded.DatasetVersion)
}

func TestWrite_EmptyDataset(t *testing.T) {
	freezeClock(t)
	dir := t.TempDir()

	manifest, err := Write(dir, nil)
	require.NoError(t, err)
	assert.Zero(t, manifest.TotalRecords)

	records, err := Load(dir)
	require.NoError(t, err)
	assert.Empty(t, records)

	data, err := os.ReadFile(filepath.Join(dir, "violations_latest.json"))
	require.NoError(t, err)
	assert.Equal(t, "[]\n", string(data))
}

func TestWrite_ReplacesWholesale(t *testing.T) {
	freezeClock(t)
	dir := t.TempDir()

	_, err := Write(dir, sampleRecords())
	require.NoError(t, err)

	_, err = Write(dir, sampleRecords()[:1])
	require.NoError(t, err)

	records, err := Load(dir)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestWrite_Deterministic(t *testing.T) {
	freezeClock(t)

	first, err := Write(t.TempDir(), sampleRecords())
	require.NoError(t, err)
	second, err := Write(t.TempDir(), sampleRecords())
	require.NoError(t, err)
	assert.Equal(t, first.DatasetVersion, second.DatasetVersion)
}

func TestLoad_Missing(t *testing.T) {
	records, err := Load(t.TempDir())
	require.Error(t, err)
	assert.Empty(t, records)
}

func TestLoad_Corrupt(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "violations_latest.json"), []byte("{not json"), 0o644))

	records, err := Load(dir)
	require.Error(t, err)
	assert.Empty(t, records)
}
