package pipeline

import (
	"sort"
	"time"

	"github.com/nmfoodwatch/inspection-etl/internal/domain"
)

// ScoreRecords scores every record against the merged establishment history
// at the given evaluation time. History spans sources: an establishment with
// NMED and ABQ records under the same identity accumulates one history.
//
// ABQ records that carry violations but produced no scoring reasons get the
// first three violation descriptions as display reasons.
func ScoreRecords(records []domain.InspectionRecord, now time.Time) []domain.InspectionRecord {
	histories := make(map[string][]domain.Inspection)
	for _, rec := range records {
		key := domain.IdentityKey(rec.Establishment.Name)
		histories[key] = append(histories[key], rec.Inspection)
	}

	out := make([]domain.InspectionRecord, len(records))
	for i, rec := range records {
		rec.Score = domain.ScoreInspection(rec.Inspection, histories[domain.IdentityKey(rec.Establishment.Name)], now)

		if rec.Source == domain.SourceABQ && len(rec.Score.Reasons) == 0 && len(rec.Inspection.Violations) > 0 {
			limit := len(rec.Inspection.Violations)
			if limit > 3 {
				limit = 3
			}
			reasons := make([]string, limit)
			for j := 0; j < limit; j++ {
				reasons[j] = rec.Inspection.Violations[j].Desc
			}
			rec.Score.Reasons = reasons
		}

		rec.ProcessedAt = now
		out[i] = rec
	}

	sortRecords(out)
	return out
}

// sortRecords orders records by ID, then date, so the serialized dataset is
// byte-identical for the same inputs.
func sortRecords(records []domain.InspectionRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		if records[i].ID != records[j].ID {
			return records[i].ID < records[j].ID
		}
		return records[i].Inspection.Date.Before(records[j].Inspection.Date.Time)
	})
}
