package archive

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/nmfoodwatch/inspection-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndListRuns(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer db.Close()

	first := Run{
		GeneratedAt:    time.Date(2026, time.June, 14, 6, 0, 0, 0, time.UTC),
		DatasetVersion: "a1b2c3d4",
		NMEDRecords:    120,
		ABQRecords:     45,
		TotalRecords:   165,
	}
	second := Run{
		GeneratedAt:    time.Date(2026, time.June, 15, 6, 0, 0, 0, time.UTC),
		DatasetVersion: "e5f6a7b8",
		NMEDRecords:    118,
		ABQRecords:     50,
		TotalRecords:   168,
	}
	require.NoError(t, db.RecordRun(first))
	require.NoError(t, db.RecordRun(second))

	runs, err := db.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, second, runs[0]) // newest first
	assert.Equal(t, first, runs[1])

	limited, err := db.Runs(1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "e5f6a7b8", limited[0].DatasetVersion)
}

func TestOpen_Reopens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	db, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, db.RecordRun(Run{
		GeneratedAt:    time.Date(2026, time.June, 15, 6, 0, 0, 0, time.UTC),
		DatasetVersion: "a1b2c3d4",
		TotalRecords:   3,
	}))
	require.NoError(t, db.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	runs, err := reopened.Runs(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, 3, runs[0].TotalRecords)
}

func TestCountBySource(t *testing.T) {
	records := []domain.InspectionRecord{
		{Source: domain.SourceNMED},
		{Source: domain.SourceNMED},
		{Source: domain.SourceABQ},
	}
	nmed, abq := CountBySource(records)
	assert.Equal(t, 2, nmed)
	assert.Equal(t, 1, abq)
}
