package source

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/nmfoodwatch/inspection-etl/internal/domain"
)

// nmedSourceLink is the static portal link attached to every NMED record.
const nmedSourceLink = "https://www.env.nm.gov/"

// DefaultCities are the NMED jurisdictions covered by the statewide feed.
// Albuquerque is absent: Bernalillo county runs its own inspection program,
// covered by the ABQ source.
var DefaultCities = []string{
	"Las Cruces",
	"Rio Rancho",
	"Santa Fe",
	"Roswell",
	"Farmington",
	"Hobbs",
	"Clovis",
	"Carlsbad",
	"Alamogordo",
}

// Fetcher is the part of the arcgis client the NMED source needs.
type Fetcher interface {
	FetchInspections(ctx context.Context, cities []string, start, end time.Time) ([]map[string]json.RawMessage, error)
}

// NMED normalizes statewide inspection rows fetched from the NMED API.
type NMED struct {
	client   Fetcher
	cities   []string
	lookback time.Duration
	logger   *slog.Logger
}

// NewNMED creates the NMED source. Empty cities means DefaultCities;
// lookbackDays <= 0 means 365.
func NewNMED(client Fetcher, cities []string, lookbackDays int, logger *slog.Logger) *NMED {
	if len(cities) == 0 {
		cities = DefaultCities
	}
	if lookbackDays <= 0 {
		lookbackDays = 365
	}
	return &NMED{
		client:   client,
		cities:   cities,
		lookback: time.Duration(lookbackDays) * 24 * time.Hour,
		logger:   logger,
	}
}

func (n *NMED) Name() domain.Source { return domain.SourceNMED }

// Fetch pulls the lookback window ending now and normalizes each row.
// Malformed rows are dropped with a warning, never aborting the batch.
func (n *NMED) Fetch(ctx context.Context) ([]domain.InspectionRecord, int, error) {
	end := domain.Now()
	start := end.Add(-n.lookback)

	rows, err := n.client.FetchInspections(ctx, n.cities, start, end)
	if err != nil {
		return nil, 0, fmt.Errorf("fetch nmed inspections: %w", err)
	}

	records := make([]domain.InspectionRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := NormalizeNMED(row)
		if err != nil {
			n.logger.Warn("dropping malformed nmed row", "error", err)
			continue
		}
		records = append(records, rec)
	}
	dropped := len(rows) - len(records)
	n.logger.Info("normalized nmed records", "fetched", len(rows), "kept", len(records), "dropped", dropped)
	return records, dropped, nil
}

// NormalizeNMED maps one raw NMED attribute row to an InspectionRecord.
// The feed has shipped both upper-case ArcGIS field names and lower-case
// REST names, so every field reads with a fallback.
func NormalizeNMED(row map[string]json.RawMessage) (domain.InspectionRecord, error) {
	name := stringField(row, "FACILITY_NAME", "name")
	if name == "" {
		name = "Unknown"
	}

	est := domain.Establishment{
		Name:    name,
		Address: stringField(row, "ADDRESS", "address"),
		City:    stringField(row, "CITY", "city"),
		County:  stringField(row, "COUNTY", "county"),
		Geo: domain.Geo{
			Lat: floatField(row, "LATITUDE", "lat"),
			Lng: floatField(row, "LONGITUDE", "lng"),
		},
	}

	rawDate := stringField(row, "INSPECTION_DATE", "date")
	date, err := domain.ParseDate(rawDate)
	if err != nil {
		return domain.InspectionRecord{}, err
	}

	inspType := strings.ToLower(stringField(row, "INSPECTION_TYPE", "type"))
	if inspType == "" {
		inspType = "routine"
	}

	insp := domain.Inspection{
		Date:       date,
		Type:       inspType,
		Outcome:    mapOutcome(stringField(row, "OUTCOME", "outcome")),
		Violations: violationsField(row),
	}

	id := fmt.Sprintf("nm:%s:%s:%s",
		strings.ReplaceAll(strings.ToLower(est.City), " ", ""),
		slugify(est.Name),
		insp.Date)

	return domain.InspectionRecord{
		ID:                id,
		Source:            domain.SourceNMED,
		Establishment:     est,
		Inspection:        insp,
		OperationalStatus: domain.StatusOpen,
		Links: domain.Links{
			Source:   nmedSourceLink,
			Document: stringField(row, "DOCUMENT_URL", "document_url"),
		},
	}, nil
}

func violationsField(row map[string]json.RawMessage) []domain.Violation {
	raw, ok := row["violations"]
	if !ok {
		return nil
	}
	var parsed []struct {
		Code        string `json:"code"`
		Critical    bool   `json:"critical"`
		Description string `json:"description"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil
	}
	violations := make([]domain.Violation, len(parsed))
	for i, v := range parsed {
		violations[i] = domain.Violation{Code: v.Code, Critical: v.Critical, Desc: v.Description}
	}
	return violations
}

// stringField reads the first present key as a string, tolerating numeric
// values by formatting them.
func stringField(row map[string]json.RawMessage, keys ...string) string {
	for _, key := range keys {
		raw, ok := row[key]
		if !ok {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return strings.TrimSpace(s)
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return strconv.FormatFloat(f, 'f', -1, 64)
		}
	}
	return ""
}

func floatField(row map[string]json.RawMessage, keys ...string) float64 {
	for _, key := range keys {
		raw, ok := row[key]
		if !ok {
			continue
		}
		var f float64
		if err := json.Unmarshal(raw, &f); err == nil {
			return f
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if parsed, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
				return parsed
			}
		}
	}
	return 0
}
