package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	httpadapter "github.com/nmfoodwatch/inspection-etl/internal/adapter/http"
	"github.com/nmfoodwatch/inspection-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var serveNow = time.Date(2026, time.June, 15, 12, 0, 0, 0, time.UTC)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(readyErr error) *httpadapter.Server {
	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, domain.AggregateOptions{}, slog.Default())
}

func newDatasetServer(t *testing.T) *httpadapter.Server {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(serveNow))
	t.Cleanup(func() { domain.SetClock(nil) })

	srv := newTestServer(nil)
	srv.SetDataset([]domain.InspectionRecord{
		testRecord("ZIA DINER", "Santa Fe", 10, domain.OutcomeFailed),
		testRecord("MESA GRILL", "Albuquerque", 20, domain.OutcomeClosed),
		testRecord("CLEAN SPOT", "Albuquerque", 5, domain.OutcomeApproved),
	})
	return srv
}

func testRecord(name, city string, daysAgo int, outcome domain.Outcome) domain.InspectionRecord {
	date := domain.Date{Time: serveNow.AddDate(0, 0, -daysAgo)}
	insp := domain.Inspection{Date: date, Type: "routine", Outcome: outcome}
	return domain.InspectionRecord{
		ID:            "abq:" + strings.ToLower(name) + ":" + date.String(),
		Source:        domain.SourceABQ,
		Establishment: domain.Establishment{Name: name, City: city, County: city},
		Inspection:    insp,
		Score:         domain.ScoreInspection(insp, []domain.Inspection{insp}, serveNow),
	}
}

func get(t *testing.T, srv *httpadapter.Server, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := get(t, newTestServer(nil), "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := get(t, newTestServer(nil), "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	rec := get(t, newTestServer(fmt.Errorf("no dataset yet")), "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no dataset yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	rec := get(t, newTestServer(nil), "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRecordsEndpoint(t *testing.T) {
	srv := newDatasetServer(t)

	rec := get(t, srv, "/api/records")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count   int                       `json:"count"`
		Records []domain.InspectionRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 3, body.Count)
	assert.Len(t, body.Records, 3)
}

func TestRecordsEndpoint_Filtered(t *testing.T) {
	srv := newDatasetServer(t)

	rec := get(t, srv, "/api/records?city=Santa+Fe&days=30")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count   int                       `json:"count"`
		Records []domain.InspectionRecord `json:"records"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "ZIA DINER", body.Records[0].Establishment.Name)
}

func TestGroupsEndpoint(t *testing.T) {
	srv := newDatasetServer(t)

	rec := get(t, srv, "/api/groups")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count  int                         `json:"count"`
		Groups []domain.EstablishmentGroup `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	// CLEAN SPOT scores zero and is excluded from the grouped view.
	require.Equal(t, 2, body.Count)
	assert.Equal(t, "mesa grill", body.Groups[0].IdentityKey) // severity order
}

func TestGroupsEndpoint_SortByName(t *testing.T) {
	srv := newDatasetServer(t)

	rec := get(t, srv, "/api/groups?sort=name")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Groups []domain.EstablishmentGroup `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Groups, 2)
	assert.Equal(t, "mesa grill", body.Groups[0].IdentityKey)
	assert.Equal(t, "zia diner", body.Groups[1].IdentityKey)
}

func TestGroupsEndpoint_SeverityFilterChangesAggregate(t *testing.T) {
	srv := newDatasetServer(t)

	rec := get(t, srv, "/api/groups?severity=high")
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Count  int                         `json:"count"`
		Groups []domain.EstablishmentGroup `json:"groups"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, 1, body.Count)
	assert.Equal(t, "mesa grill", body.Groups[0].IdentityKey)
}

func TestBadQueryParams(t *testing.T) {
	srv := newDatasetServer(t)

	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/records?days=soon").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, srv, "/api/groups?sort=magnitude").Code)
}

func TestExportCSVEndpoint(t *testing.T) {
	srv := newDatasetServer(t)

	rec := get(t, srv, "/api/export.csv")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 3) // header + two grouped inspections
	assert.Equal(t, `"name","city","address","date","outcome","severity","violations"`, lines[0])
}

func TestExportJSONEndpoint(t *testing.T) {
	srv := newDatasetServer(t)

	rec := get(t, srv, "/api/export.json?city=Santa+Fe")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var groups []domain.EstablishmentGroup
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups, 1)
	assert.Equal(t, "Zia Diner", groups[0].DisplayName)
}

func TestEmptyDatasetServesEmptyCollections(t *testing.T) {
	srv := newTestServer(nil)

	rec := get(t, srv, "/api/groups")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"groups":[]`)
}
