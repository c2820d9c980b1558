// Command validate performs integrity checks over a built dataset directory:
// manifest consistency, per-record field validity, and score reproducibility.
//
// Usage:
//
//	go run ./cmd/validate -data-dir data [-as-of 2026-06-15]
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/nmfoodwatch/inspection-etl/internal/dataset"
	"github.com/nmfoodwatch/inspection-etl/internal/domain"
	"github.com/nmfoodwatch/inspection-etl/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dataDir := flag.String("data-dir", "data", "dataset directory to validate")
	asOf := flag.String("as-of", "", "evaluation date (YYYY-MM-DD) for score recomputation; defaults to the manifest generation time")
	flag.Parse()

	if code := run(*dataDir, *asOf); code != 0 {
		os.Exit(code)
	}
}

func run(dataDir, asOf string) int {
	fmt.Println("=== Inspection Dataset Validation ===")
	fmt.Println()

	records, err := dataset.Load(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load dataset: %v\n", err)
		return 1
	}
	manifest, err := dataset.LoadManifest(dataDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load manifest: %v\n", err)
		return 1
	}

	now := manifest.GeneratedAt
	if asOf != "" {
		d, err := domain.ParseDate(asOf)
		if err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: invalid -as-of: %v\n", err)
			return 1
		}
		now = d.Time
	}

	phases := []*phase{
		validateManifest(dataDir, records, manifest),
		validateRecords(records),
		validateScores(records, now),
	}

	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Records: %d, dataset version %s, generated %s\n",
		len(records), manifest.DatasetVersion, manifest.GeneratedAt.Format(time.RFC3339))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Manifest Consistency ──
// The manifest must agree with the dataset bytes it describes.

func validateManifest(dataDir string, records []domain.InspectionRecord, m dataset.Manifest) *phase {
	p := &phase{name: "Phase 1: Manifest Consistency"}

	if m.TotalRecords != len(records) {
		p.errorf("total_records %d, dataset has %d", m.TotalRecords, len(records))
	}

	data, err := os.ReadFile(filepath.Join(dataDir, "violations_latest.json"))
	if err != nil {
		p.errorf("read latest dataset file: %v", err)
	} else if v := dataset.Version(data); v != m.DatasetVersion {
		p.errorf("dataset_version %s, latest file hashes to %s", m.DatasetVersion, v)
	}

	cities := map[string]int{}
	severity := map[string]int{}
	for i := range records {
		cities[records[i].Establishment.City]++
		severity[domain.SeverityLevel(records[i].Score.Severity)]++
	}
	for city, n := range m.Cities {
		if cities[city] != n {
			p.errorf("city %q: manifest %d, dataset %d", city, n, cities[city])
		}
	}
	for city, n := range cities {
		if _, ok := m.Cities[city]; !ok {
			p.errorf("city %q has %d records but is missing from the manifest", city, n)
		}
	}
	for _, level := range []string{domain.LevelHigh, domain.LevelMedium, domain.LevelLow} {
		if m.SeverityBreakdown[level] != severity[level] {
			p.errorf("severity %q: manifest %d, dataset %d", level, m.SeverityBreakdown[level], severity[level])
		}
	}

	return p
}

// ── Phase 2: Record Integrity ──
// Every record must carry a well-formed ID and the required fields.

var validOutcomes = map[domain.Outcome]bool{
	domain.OutcomeApproved:    true,
	domain.OutcomeConditional: true,
	domain.OutcomeFailed:      true,
	domain.OutcomeClosed:      true,
	domain.OutcomeReopened:    true,
}

func validateRecords(records []domain.InspectionRecord) *phase {
	p := &phase{name: "Phase 2: Record Integrity"}

	seen := map[string]int{}
	for i := range records {
		rec := &records[i]
		pf := func(format string, args ...any) {
			p.errorf("record %d (ID %s): "+format, append([]any{i, rec.ID}, args...)...)
		}

		switch rec.Source {
		case domain.SourceNMED:
			if !strings.HasPrefix(rec.ID, "nm:") {
				pf("NMED record ID lacks nm: prefix")
			}
		case domain.SourceABQ:
			if !strings.HasPrefix(rec.ID, "abq:") {
				pf("ABQ record ID lacks abq: prefix")
			}
		default:
			pf("unknown source %q", rec.Source)
		}

		if rec.ID == "" {
			pf("id is empty")
		} else {
			seen[rec.ID]++
		}
		if rec.Establishment.Name == "" {
			pf("establishment name is empty")
		}
		if rec.Establishment.City == "" {
			pf("city is empty")
		}
		if rec.Inspection.Date.IsZero() {
			pf("inspection date is zero")
		}
		if !strings.HasSuffix(rec.ID, rec.Inspection.Date.String()) {
			pf("ID date suffix does not match inspection date %s", rec.Inspection.Date)
		}
		if !validOutcomes[rec.Inspection.Outcome] {
			pf("outcome %q not in enum", rec.Inspection.Outcome)
		}
		if rec.OperationalStatus != domain.StatusOpen && rec.OperationalStatus != domain.StatusClosed {
			pf("operational status %q not in enum", rec.OperationalStatus)
		}
		if rec.ProcessedAt.IsZero() {
			pf("processed_at is zero")
		}
		for j, v := range rec.Inspection.Violations {
			if v.Desc == "" {
				pf("violation %d has empty description", j)
			}
		}
	}

	for id, n := range seen {
		if n > 1 {
			p.errorf("duplicate ID %q appears %d times", id, n)
		}
	}

	return p
}

// ── Phase 3: Score Reproducibility ──
// Re-running the scoring pass over the dataset must reproduce the stored
// scores, including the ABQ display-reason supplement.

func validateScores(records []domain.InspectionRecord, now time.Time) *phase {
	p := &phase{name: "Phase 3: Score Reproducibility"}

	rescored := pipeline.ScoreRecords(records, now)
	byID := make(map[string]domain.InspectionRecord, len(rescored))
	for _, rec := range rescored {
		byID[rec.ID] = rec
	}

	for i := range records {
		rec := &records[i]
		got, ok := byID[rec.ID]
		if !ok {
			p.errorf("ID %s: missing after rescoring", rec.ID)
			continue
		}

		if math.Abs(got.Score.Severity-rec.Score.Severity) > 1e-9 {
			p.errorf("ID %s: severity %g stored, %g recomputed", rec.ID, rec.Score.Severity, got.Score.Severity)
			continue
		}
		if len(got.Score.Reasons) != len(rec.Score.Reasons) {
			p.errorf("ID %s: %d reasons stored, %d recomputed", rec.ID, len(rec.Score.Reasons), len(got.Score.Reasons))
			continue
		}
		for j := range got.Score.Reasons {
			if got.Score.Reasons[j] != rec.Score.Reasons[j] {
				p.errorf("ID %s: reason %d: stored %q, recomputed %q", rec.ID, j, rec.Score.Reasons[j], got.Score.Reasons[j])
			}
		}
	}

	return p
}
