// Package dataset persists the normalized violations dataset: the latest
// file, a monthly snapshot, and a manifest describing both. Writes replace
// the dataset wholesale so a published dataset is always internally
// consistent.
package dataset

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nmfoodwatch/inspection-etl/internal/domain"
)

const (
	latestFile   = "violations_latest.json"
	manifestFile = "manifest.json"
	snapshotsDir = "snapshots"
)

// Manifest describes one published dataset generation.
type Manifest struct {
	GeneratedAt       time.Time      `json:"generated_at"`
	DatasetVersion    string         `json:"dataset_version"` // first 8 hex chars of the SHA-256 of the dataset JSON
	TotalRecords      int            `json:"total_records"`
	Cities            map[string]int `json:"cities"`
	SeverityBreakdown map[string]int `json:"severity_breakdown"`
}

// Write publishes records to dir: violations_latest.json, a monthly snapshot
// under snapshots/, and manifest.json, all 2-space indented. An empty slice
// is a valid dataset and writes normally.
func Write(dir string, records []domain.InspectionRecord) (Manifest, error) {
	if records == nil {
		records = []domain.InspectionRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("marshal dataset: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Join(dir, snapshotsDir), 0o755); err != nil {
		return Manifest{}, fmt.Errorf("create dataset dir: %w", err)
	}

	if err := os.WriteFile(filepath.Join(dir, latestFile), data, 0o644); err != nil {
		return Manifest{}, fmt.Errorf("write latest dataset: %w", err)
	}

	now := domain.Now()
	snapshot := fmt.Sprintf("violations_%s.json", now.Format("2006-01"))
	if err := os.WriteFile(filepath.Join(dir, snapshotsDir, snapshot), data, 0o644); err != nil {
		return Manifest{}, fmt.Errorf("write monthly snapshot: %w", err)
	}

	manifest := buildManifest(records, data, now)
	manifestData, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return Manifest{}, fmt.Errorf("marshal manifest: %w", err)
	}
	manifestData = append(manifestData, '\n')
	if err := os.WriteFile(filepath.Join(dir, manifestFile), manifestData, 0o644); err != nil {
		return Manifest{}, fmt.Errorf("write manifest: %w", err)
	}

	return manifest, nil
}

func buildManifest(records []domain.InspectionRecord, data []byte, now time.Time) Manifest {
	cities := make(map[string]int)
	severity := map[string]int{
		domain.LevelHigh:   0,
		domain.LevelMedium: 0,
		domain.LevelLow:    0,
	}
	for _, rec := range records {
		cities[rec.Establishment.City]++
		severity[domain.SeverityLevel(rec.Score.Severity)]++
	}

	return Manifest{
		GeneratedAt:       now,
		DatasetVersion:    Version(data),
		TotalRecords:      len(records),
		Cities:            cities,
		SeverityBreakdown: severity,
	}
}

// Version computes the short dataset version for serialized dataset bytes.
func Version(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:8]
}

// Load reads the latest dataset from dir. Any failure returns the error with
// an empty slice, never a partial dataset.
func Load(dir string) ([]domain.InspectionRecord, error) {
	data, err := os.ReadFile(filepath.Join(dir, latestFile))
	if err != nil {
		return nil, fmt.Errorf("read dataset: %w", err)
	}
	var records []domain.InspectionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse dataset: %w", err)
	}
	return records, nil
}

// LoadManifest reads and parses manifest.json from dir.
func LoadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return Manifest{}, fmt.Errorf("read manifest: %w", err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("parse manifest: %w", err)
	}
	return m, nil
}
