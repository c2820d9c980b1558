// Package archive keeps a local sqlite history of pipeline runs, so operators
// can see when datasets were built and how record counts moved over time.
package archive

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nmfoodwatch/inspection-etl/internal/domain"
)

// Run is one archived pipeline run.
type Run struct {
	GeneratedAt    time.Time
	DatasetVersion string
	NMEDRecords    int
	ABQRecords     int
	TotalRecords   int
}

// DB is the run archive handle.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the archive at path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id INTEGER PRIMARY KEY AUTOINCREMENT,
			generated_at TIMESTAMP NOT NULL,
			dataset_version TEXT NOT NULL,
			nmed_records INTEGER NOT NULL,
			abq_records INTEGER NOT NULL,
			total_records INTEGER NOT NULL
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}

	return &DB{db: db}, nil
}

// RecordRun appends one run to the archive.
func (d *DB) RecordRun(run Run) error {
	_, err := d.db.Exec(
		"INSERT INTO runs (generated_at, dataset_version, nmed_records, abq_records, total_records) VALUES (?, ?, ?, ?, ?)",
		run.GeneratedAt.UTC().Format(time.RFC3339), run.DatasetVersion,
		run.NMEDRecords, run.ABQRecords, run.TotalRecords,
	)
	if err != nil {
		return fmt.Errorf("record run: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first, up to limit.
func (d *DB) Runs(limit int) ([]Run, error) {
	rows, err := d.db.Query(
		"SELECT generated_at, dataset_version, nmed_records, abq_records, total_records FROM runs ORDER BY run_id DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		var run Run
		var generatedAt string
		if err := rows.Scan(&generatedAt, &run.DatasetVersion, &run.NMEDRecords, &run.ABQRecords, &run.TotalRecords); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		run.GeneratedAt, err = time.Parse(time.RFC3339, generatedAt)
		if err != nil {
			return nil, fmt.Errorf("parse run timestamp: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (d *DB) Close() error {
	return d.db.Close()
}

// CountBySource tallies records per source for archiving.
func CountBySource(records []domain.InspectionRecord) (nmed, abq int) {
	for _, rec := range records {
		switch rec.Source {
		case domain.SourceNMED:
			nmed++
		case domain.SourceABQ:
			abq++
		}
	}
	return nmed, abq
}
