package view

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/nmfoodwatch/inspection-etl/internal/domain"
)

var csvHeader = []string{"name", "city", "address", "date", "outcome", "severity", "violations"}

// ExportCSV writes the grouped view as a flat CSV, one row per inspection in
// group order. Every field is double-quoted (embedded quotes doubled) so the
// output is byte-identical across runs for the same view.
func ExportCSV(w io.Writer, groups []domain.EstablishmentGroup) error {
	if err := writeCSVRow(w, csvHeader); err != nil {
		return err
	}
	for _, g := range groups {
		for _, rec := range g.Inspections {
			descs := make([]string, len(rec.Inspection.Violations))
			for i, v := range rec.Inspection.Violations {
				descs[i] = v.Desc
			}
			row := []string{
				g.DisplayName,
				rec.Establishment.City,
				rec.Establishment.Address,
				rec.Inspection.Date.String(),
				string(rec.Inspection.Outcome),
				fmt.Sprintf("%.1f", rec.Score.Severity),
				strings.Join(descs, "; "),
			}
			if err := writeCSVRow(w, row); err != nil {
				return err
			}
		}
	}
	return nil
}

func writeCSVRow(w io.Writer, fields []string) error {
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = `"` + strings.ReplaceAll(f, `"`, `""`) + `"`
	}
	_, err := io.WriteString(w, strings.Join(quoted, ",")+"\n")
	return err
}

// ExportJSON writes the grouped view as pretty-printed JSON with 2-space
// indentation.
func ExportJSON(w io.Writer, groups []domain.EstablishmentGroup) error {
	if groups == nil {
		groups = []domain.EstablishmentGroup{}
	}
	data, err := json.MarshalIndent(groups, "", "  ")
	if err != nil {
		return fmt.Errorf("export groups: %w", err)
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
