package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/nmfoodwatch/inspection-etl/internal/domain"
)

const (
	abqSourceLink = "https://www.cabq.gov/environmentalhealth"

	// Albuquerque civic center, used when the reports carry no coordinates.
	abqLat = 35.0844
	abqLng = -106.6504
)

// summaryDateRe matches the leading MM/DD/YYYY of an inspection row on a
// report summary page.
var summaryDateRe = regexp.MustCompile(`^\d{1,2}/\d{1,2}/\d{4}`)

// Row is one establishment inspection extracted from a weekly Albuquerque
// report, before normalization.
type Row struct {
	Name              string   `json:"name"`
	Address           string   `json:"address"`
	Date              string   `json:"date"` // YYYY-MM-DD
	Outcome           string   `json:"outcome"`
	Violations        []string `json:"violations"`
	OperationalStatus string   `json:"operational_status,omitempty"`
	PDFURL            string   `json:"pdf_url,omitempty"`
}

// ABQ normalizes inspection rows from the City of Albuquerque weekly reports.
// It reads either pre-extracted report text pages from a directory, or a JSON
// rows file produced by an earlier extraction.
type ABQ struct {
	rowsFile string
	textDir  string
	logger   *slog.Logger
}

// NewABQ creates the ABQ source. textDir takes precedence when both are set.
func NewABQ(rowsFile, textDir string, logger *slog.Logger) *ABQ {
	return &ABQ{rowsFile: rowsFile, textDir: textDir, logger: logger}
}

func (a *ABQ) Name() domain.Source { return domain.SourceABQ }

// Fetch loads, dedupes, and normalizes the configured input. Approved-only
// rows are dropped during dedupe; the weekly reports list every inspection
// and only adverse ones are worth carrying.
func (a *ABQ) Fetch(ctx context.Context) ([]domain.InspectionRecord, int, error) {
	var (
		rows []Row
		err  error
	)
	switch {
	case a.textDir != "":
		rows, err = a.fetchFromTextDir(ctx)
	case a.rowsFile != "":
		rows, err = LoadRows(a.rowsFile)
	default:
		a.logger.Info("abq source not configured, skipping")
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, err
	}

	rows = DedupeRows(rows)
	records := make([]domain.InspectionRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := NormalizeABQ(row)
		if err != nil {
			a.logger.Warn("dropping malformed abq row", "name", row.Name, "error", err)
			continue
		}
		records = append(records, rec)
	}
	dropped := len(rows) - len(records)
	a.logger.Info("normalized abq records", "rows", len(rows), "kept", len(records), "dropped", dropped)
	return records, dropped, nil
}

// fetchFromTextDir parses every report in the directory in name order, so a
// rerun over the same directory yields the same rows in the same order.
func (a *ABQ) fetchFromTextDir(ctx context.Context) ([]Row, error) {
	reports, err := ReadReportDir(a.textDir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(reports))
	for name := range reports {
		names = append(names, name)
	}
	sort.Strings(names)

	var rows []Row
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		parsed := ParseReport(reports[name])
		a.logger.Debug("parsed abq report", "report", name, "rows", len(parsed))
		rows = append(rows, parsed...)
	}
	return rows, nil
}

// LoadRows reads a JSON array of rows from disk.
func LoadRows(path string) ([]Row, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read abq rows: %w", err)
	}
	var rows []Row
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, fmt.Errorf("parse abq rows %s: %w", path, err)
	}
	return rows, nil
}

// ReadReportDir reads extracted report text from dir. Each report is a set
// of files named <report>_pNN.txt, one page per file, grouped by report and
// ordered by page number.
func ReadReportDir(dir string) (map[string][]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read abq report dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".txt") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	reports := make(map[string][]string)
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("read abq report page: %w", err)
		}
		report := strings.TrimSuffix(name, ".txt")
		if i := strings.LastIndex(report, "_p"); i > 0 {
			report = report[:i]
		}
		reports[report] = append(reports[report], string(data))
	}
	return reports, nil
}

// ParseReport extracts inspection rows from one report's extracted page text.
// The first two pages carry the summary tables; detail pages carry
// "Violation:" category lines that are matched back to establishments by
// name.
func ParseReport(pages []string) []Row {
	type key struct{ name, date string }
	summary := make(map[key]*Row)
	var order []key

	limit := len(pages)
	if limit > 2 {
		limit = 2
	}
	for _, page := range pages[:limit] {
		for _, row := range parseSummaryPage(page) {
			k := key{row.Name, row.Date}
			if existing, ok := summary[k]; ok {
				// A repeated row replaces the earlier one unless it is
				// approved, so the last adverse outcome wins.
				if row.Outcome != "approved" {
					*existing = row
				}
				continue
			}
			row := row
			summary[k] = &row
			order = append(order, k)
		}
	}

	for _, page := range pages {
		if !strings.Contains(page, "Violation:") {
			continue
		}
		violations := extractViolations(page)
		for _, k := range order {
			if strings.Contains(page, k.name) {
				summary[key{k.name, k.date}].Violations = append(summary[key{k.name, k.date}].Violations, violations...)
				break
			}
		}
	}

	rows := make([]Row, 0, len(order))
	for _, k := range order {
		rows = append(rows, *summary[k])
	}
	return rows
}

func parseSummaryPage(text string) []Row {
	var rows []Row
	var name, address string

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)

		switch {
		case isEstablishmentHeader(line):
			parts := strings.SplitN(line, " - ", 2)
			name = strings.TrimSpace(parts[0])
			address = strings.TrimSpace(parts[1])

		case summaryDateRe.MatchString(line) && name != "":
			dateStr := strings.Fields(line)[0]
			date, err := time.Parse("1/2/2006", dateStr)
			if err != nil {
				continue
			}
			rows = append(rows, Row{
				Name:    name,
				Address: address,
				Date:    date.Format("2006-01-02"),
				Outcome: summaryOutcome(line),
			})
		}
	}
	return rows
}

// isEstablishmentHeader reports whether the line looks like a
// "NAME - ADDRESS" header rather than a table caption.
func isEstablishmentHeader(line string) bool {
	if !strings.Contains(line, " - ") {
		return false
	}
	for _, marker := range []string{"Inspection", "Food", "Permit", "Operational"} {
		if strings.Contains(line, marker) {
			return false
		}
	}
	return true
}

func summaryOutcome(line string) string {
	switch {
	case strings.Contains(line, "Conditional"):
		return "conditional"
	case strings.Contains(line, "Unsatisfactory"), strings.Contains(line, "Re-Inspection"):
		return "failed"
	case strings.Contains(line, "Closed"):
		return "closed"
	default:
		return "approved"
	}
}

func extractViolations(text string) []string {
	var violations []string
	for _, line := range strings.Split(text, "\n") {
		if strings.HasPrefix(line, "Violation:") {
			violations = append(violations, strings.TrimSpace(strings.TrimPrefix(line, "Violation:")))
		}
	}
	return violations
}

// DedupeRows drops duplicate (name, address, date) rows across reports and
// discards approved-only rows.
func DedupeRows(rows []Row) []Row {
	type key struct{ name, address, date string }
	seen := make(map[key]bool, len(rows))

	var out []Row
	for _, row := range rows {
		k := key{row.Name, row.Address, row.Date}
		if seen[k] || row.Outcome == "approved" {
			continue
		}
		seen[k] = true
		out = append(out, row)
	}
	return out
}

// NormalizeABQ maps one report row to an InspectionRecord. City, county, and
// coordinates are fixed: the weekly reports cover Albuquerque only and carry
// no geo data. Violation category labels are rewritten to plain descriptions.
func NormalizeABQ(row Row) (domain.InspectionRecord, error) {
	date, err := domain.ParseDate(row.Date)
	if err != nil {
		return domain.InspectionRecord{}, err
	}

	violations := make([]domain.Violation, len(row.Violations))
	for i, v := range row.Violations {
		violations[i] = domain.Violation{Desc: domain.RewriteCategory(v)}
	}

	status := domain.OperationalStatus(row.OperationalStatus)
	if status == "" {
		status = domain.StatusOpen
	}

	return domain.InspectionRecord{
		ID:     fmt.Sprintf("abq:%s:%s", slugify(row.Name), date),
		Source: domain.SourceABQ,
		Establishment: domain.Establishment{
			Name:    row.Name,
			Address: row.Address,
			City:    "Albuquerque",
			County:  "Bernalillo",
			Geo:     domain.Geo{Lat: abqLat, Lng: abqLng},
		},
		Inspection: domain.Inspection{
			Date:       date,
			Type:       "routine",
			Outcome:    mapOutcome(row.Outcome),
			Violations: violations,
		},
		OperationalStatus: status,
		Links: domain.Links{
			Source:   abqSourceLink,
			Document: row.PDFURL,
		},
	}, nil
}
