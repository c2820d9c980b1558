// Command genmock writes the checked-in mock source fixtures and reports the
// scored output they produce. It runs the actual normalization and scoring
// code so fixture-driven test assertions match real pipeline behavior.
//
// Usage:
//
//	go run ./cmd/genmock -out-dir data/mock
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/nmfoodwatch/inspection-etl/internal/domain"
	"github.com/nmfoodwatch/inspection-etl/internal/pipeline"
	"github.com/nmfoodwatch/inspection-etl/internal/source"
)

// evalTime is the fixed evaluation time the fixture tests freeze their
// clocks to.
var evalTime = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

const abqReportURL = "https://www.cabq.gov/environmentalhealth/documents/chpd_main_inspection_report.pdf"

// nmedRow mirrors the attribute shape returned by the NMED ArcGIS layer.
type nmedRow struct {
	FacilityName   string          `json:"FACILITY_NAME"`
	Address        string          `json:"ADDRESS"`
	City           string          `json:"CITY"`
	County         string          `json:"COUNTY"`
	Latitude       float64         `json:"LATITUDE"`
	Longitude      float64         `json:"LONGITUDE"`
	InspectionDate string          `json:"INSPECTION_DATE"`
	InspectionType string          `json:"INSPECTION_TYPE"`
	Outcome        string          `json:"OUTCOME"`
	Violations     []nmedViolation `json:"violations"`
	DocumentURL    string          `json:"DOCUMENT_URL,omitempty"`
}

type nmedViolation struct {
	Code        string `json:"code"`
	Critical    bool   `json:"critical"`
	Description string `json:"description"`
}

func nmedRows() []nmedRow {
	return []nmedRow{
		{
			FacilityName: "ZIA DINER", Address: "326 S Guadalupe St",
			City: "Santa Fe", County: "Santa Fe",
			Latitude: 35.6869, Longitude: -105.9378,
			InspectionDate: "2026-05-06", InspectionType: "routine", Outcome: "failed",
			Violations: []nmedViolation{
				{Code: "3-501.16", Critical: true, Description: "cold holding above 41F"},
				{Code: "6-501.12", Critical: false, Description: "floors not clean"},
			},
			DocumentURL: "https://www.env.nm.gov/docs/zia-diner-2026-05-06.pdf",
		},
		{
			FacilityName: "BLAKES LOTABURGER 42", Address: "1550 Main St",
			City: "Roswell", County: "Chaves",
			Latitude: 33.3943, Longitude: -104.5230,
			InspectionDate: "2026-04-21", InspectionType: "routine", Outcome: "conditional",
			Violations: []nmedViolation{
				{Code: "2-301.14", Critical: true, Description: "hands not washed after handling raw product"},
			},
		},
		{
			FacilityName: "LA POSTA DE MESILLA", Address: "2410 Calle De San Albino",
			City: "Las Cruces", County: "Dona Ana",
			Latitude: 32.2743, Longitude: -106.8000,
			InspectionDate: "2026-06-03", InspectionType: "followup", Outcome: "closed",
			Violations: []nmedViolation{
				{Code: "8-304.11", Critical: true, Description: "imminent health hazard, no hot water"},
			},
		},
		{
			FacilityName: "FARMINGTON BAGEL CO", Address: "119 W Main St",
			City: "Farmington", County: "San Juan",
			Latitude: 36.7281, Longitude: -108.2187,
			InspectionDate: "2026-05-28", InspectionType: "routine", Outcome: "approved",
			Violations: []nmedViolation{},
		},
		{
			FacilityName: "ZIA DINER", Address: "326 S Guadalupe St",
			City: "Santa Fe", County: "Santa Fe",
			Latitude: 35.6869, Longitude: -105.9378,
			InspectionDate: "2026-06-10", InspectionType: "followup", Outcome: "approved",
			Violations: []nmedViolation{},
		},
	}
}

func abqRows() []source.Row {
	return []source.Row{
		{
			Name: "EL PATIO DE ALBUQUERQUE", Address: "142 Harvard Dr SE",
			Date: "2026-05-12", Outcome: "failed",
			Violations:        []string{"Food Temperature", "Hand Washing"},
			OperationalStatus: "Open", PDFURL: abqReportURL,
		},
		{
			Name: "GOLDEN PRIDE BBQ", Address: "1830 Lomas Blvd NE",
			Date: "2026-05-19", Outcome: "conditional",
			Violations:        []string{"Pest Control"},
			OperationalStatus: "Open", PDFURL: abqReportURL,
		},
		{
			Name: "LOS CUATES", Address: "4901 Lomas Blvd NE",
			Date: "2026-06-02", Outcome: "closed",
			Violations:        []string{"Pest Control", "Sewage Disposal", "Food Temperature", "Sanitization"},
			OperationalStatus: "Closed", PDFURL: abqReportURL,
		},
		{
			Name: "WENDYS-PT01603", Address: "2200 Central Ave SE",
			Date: "2026-05-27", Outcome: "failed",
			Violations:        []string{"Cold Holding"},
			OperationalStatus: "Open", PDFURL: abqReportURL,
		},
		{
			Name: "EL PATIO DE ALBUQUERQUE", Address: "142 Harvard Dr SE",
			Date: "2026-06-09", Outcome: "conditional",
			Violations:        []string{},
			OperationalStatus: "Open", PDFURL: abqReportURL,
		},
		{
			Name: "CLEAN PLATE CAFE", Address: "3600 Osuna Rd NE",
			Date: "2026-06-09", Outcome: "approved",
			Violations:        []string{},
			OperationalStatus: "Open", PDFURL: abqReportURL,
		},
	}
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out-dir", filepath.Join("data", "mock"), "directory for generated fixture files")
	flag.Parse()

	nmed := nmedRows()
	abq := abqRows()

	nmedPath := filepath.Join(*outDir, "nmed_rows_sample.json")
	if err := writeJSON(nmedPath, nmed); err != nil {
		return fmt.Errorf("writing NMED fixture: %w", err)
	}
	log.Printf("wrote NMED fixture: %s (%d rows)", nmedPath, len(nmed))

	abqPath := filepath.Join(*outDir, "abq_rows_sample.json")
	if err := writeJSON(abqPath, abq); err != nil {
		return fmt.Errorf("writing ABQ fixture: %w", err)
	}
	log.Printf("wrote ABQ fixture: %s (%d rows)", abqPath, len(abq))

	records, err := normalize(nmed, abq)
	if err != nil {
		return err
	}
	scored := pipeline.ScoreRecords(records, evalTime)

	printStats(scored)
	return nil
}

// normalize runs the fixture rows through the same normalization the sources
// apply, including the ABQ dedupe pass.
func normalize(nmed []nmedRow, abq []source.Row) ([]domain.InspectionRecord, error) {
	var records []domain.InspectionRecord

	for i, row := range nmed {
		raw, err := json.Marshal(row)
		if err != nil {
			return nil, fmt.Errorf("marshal NMED row %d: %w", i, err)
		}
		var attrs map[string]json.RawMessage
		if err := json.Unmarshal(raw, &attrs); err != nil {
			return nil, fmt.Errorf("unmarshal NMED row %d: %w", i, err)
		}
		rec, err := source.NormalizeNMED(attrs)
		if err != nil {
			return nil, fmt.Errorf("normalize NMED row %d: %w", i, err)
		}
		records = append(records, rec)
	}

	for i, row := range source.DedupeRows(abq) {
		rec, err := source.NormalizeABQ(row)
		if err != nil {
			return nil, fmt.Errorf("normalize ABQ row %d: %w", i, err)
		}
		records = append(records, rec)
	}

	return records, nil
}

func writeJSON(path string, v any) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(records []domain.InspectionRecord) {
	cities := map[string]int{}
	severity := map[string]int{}
	for i := range records {
		cities[records[i].Establishment.City]++
		severity[domain.SeverityLevel(records[i].Score.Severity)]++
	}

	fmt.Println("\n=== Stats for updating test assertions ===")
	fmt.Printf("Total: %d (evaluated at %s)\n", len(records), evalTime.Format(time.RFC3339))
	fmt.Printf("By severity: high=%d, medium=%d, low=%d\n",
		severity[domain.LevelHigh], severity[domain.LevelMedium], severity[domain.LevelLow])
	fmt.Printf("By city:")
	for city, n := range cities {
		fmt.Printf(" %s=%d", city, n)
	}
	fmt.Println()

	fmt.Println("\nPer record:")
	for i := range records {
		rec := &records[i]
		fmt.Printf("  %-55s %.1f %v\n", rec.ID, rec.Score.Severity, rec.Score.Reasons)
	}
}
