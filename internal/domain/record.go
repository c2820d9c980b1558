package domain

import (
	"fmt"
	"time"
)

// Source identifies which government system a record came from.
type Source string

const (
	SourceNMED Source = "NMED" // New Mexico Environment Department API
	SourceABQ  Source = "ABQ"  // City of Albuquerque weekly PDF reports
)

// Outcome is the result label of a single inspection.
type Outcome string

const (
	OutcomeApproved    Outcome = "approved"
	OutcomeConditional Outcome = "conditional"
	OutcomeFailed      Outcome = "failed"
	OutcomeClosed      Outcome = "closed"
	OutcomeReopened    Outcome = "reopened"
)

// Adverse reports whether the outcome counts against the establishment
// (failed, conditional, or closed).
func (o Outcome) Adverse() bool {
	return o == OutcomeFailed || o == OutcomeConditional || o == OutcomeClosed
}

// OperationalStatus is whether the establishment is currently operating,
// independent of any single inspection's outcome label.
type OperationalStatus string

const (
	StatusOpen   OperationalStatus = "Open"
	StatusClosed OperationalStatus = "Closed"
)

// Date is a calendar date with no time component, serialized as YYYY-MM-DD.
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return Date{t}, nil
}

// NewDate constructs a Date from year, month, day in UTC.
func NewDate(year int, month time.Month, day int) Date {
	return Date{time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) String() string { return d.Format("2006-01-02") }

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format("2006-01-02") + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := string(data)
	if len(s) < 2 || s[0] != '"' || s[len(s)-1] != '"' {
		return fmt.Errorf("parse date %s: not a JSON string", s)
	}
	parsed, err := ParseDate(s[1 : len(s)-1])
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// DaysAgo returns the number of whole 24-hour periods between now and the
// date, truncated. Future dates yield negative values, which fall inside
// every scoring window.
func (d Date) DaysAgo(now time.Time) int {
	return int(now.Sub(d.Time) / (24 * time.Hour))
}

// Geo is a WGS-84 coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Establishment is a single food-service location as reported by a source.
// Name is kept raw as received; display and grouping forms are derived
// (see DisplayName and IdentityKey).
type Establishment struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	City    string `json:"city"`
	County  string `json:"county"`
	Geo     Geo    `json:"geo"`
}

// Violation is one cited deficiency within an inspection.
type Violation struct {
	Code     string `json:"code"`
	Critical bool   `json:"critical"`
	Desc     string `json:"desc"`
}

// Inspection is one evaluation event on a specific calendar date.
type Inspection struct {
	Date       Date        `json:"date"`
	Type       string      `json:"type"` // routine|complaint|followup|closure|reopen
	Outcome    Outcome     `json:"outcome"`
	Violations []Violation `json:"violations"`
}

// Score is the computed severity signal for one inspection. It is derived,
// never input: given the same inspection, establishment history, and
// evaluation time it must be recomputable bit-for-bit.
type Score struct {
	Severity float64  `json:"severity"`
	Reasons  []string `json:"reasons"`
}

// Links point back to the originating source system.
type Links struct {
	Source   string `json:"source"`
	Document string `json:"document,omitempty"`
}

// InspectionRecord is the normalized, scored form of one inspection event.
// ID is composed as source:city:establishment:date and is not guaranteed
// globally unique across sources; grouping identity is computed separately
// by Aggregate.
type InspectionRecord struct {
	ID                string            `json:"id"`
	Source            Source            `json:"source"`
	Establishment     Establishment     `json:"establishment"`
	Inspection        Inspection        `json:"inspection"`
	OperationalStatus OperationalStatus `json:"operational_status"`
	Score             Score             `json:"score"`
	Links             Links             `json:"links"`

	ProcessedAt time.Time `json:"processed_at"`
}

// EstablishmentGroup is the derived per-establishment view. Groups are
// recomputed on every aggregation and carry no persistent identity.
type EstablishmentGroup struct {
	IdentityKey    string             `json:"identity_key"`
	DisplayName    string             `json:"display_name"`
	Inspections    []InspectionRecord `json:"inspections"` // sorted descending by date
	AggregateScore float64            `json:"aggregate_score"`
	IsClosed       bool               `json:"is_closed"`
}

// MostRecent returns the newest inspection in the group. Valid only after
// aggregation, which guarantees at least one member.
func (g EstablishmentGroup) MostRecent() InspectionRecord {
	return g.Inspections[0]
}
