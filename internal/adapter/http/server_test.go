package http_test

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	httpadapter "github.com/triagelink/wait-data-etl/internal/adapter/http"
	"github.com/triagelink/wait-data-etl/internal/domain"
	"github.com/triagelink/wait-data-etl/internal/refdata"
)

type mockReadiness struct {
	err error
}

func (m *mockReadiness) CheckReadiness(_ context.Context) error { return m.err }

func newTestServer(t *testing.T, readyErr error) *httpadapter.Server {
	t.Helper()

	table := &refdata.HospitalTable{Hospitals: []refdata.HospitalEntry{
		{HospitalID: 1, StandardName: "Hospital for Sick Children", Region: "toronto", Tier: 1},
		{HospitalID: 3, StandardName: "Markham Stouffville Hospital", Region: "york"},
	}}
	resolver, err := refdata.NewResolver(table)
	require.NoError(t, err)

	triageTable := &refdata.TriageTable{Conditions: []domain.TriageCondition{
		{
			Condition:            "febrile infant",
			CTASLevel:            2,
			RecommendedTier:      1,
			DestinationHospitals: []string{"Hospital for Sick Children"},
		},
	}}
	triage, err := refdata.NewTriageIndex(triageTable, resolver)
	require.NoError(t, err)

	return httpadapter.NewServer(":0", &mockReadiness{err: readyErr}, resolver, triage, slog.Default())
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(t, fmt.Errorf("no snapshots processed yet"))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no snapshots processed yet", body["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestRefDataEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/refdata", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Hospitals int      `json:"hospitals"`
		Hubs      int      `json:"triage_destination_hubs"`
		Regions   []string `json:"regions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Hospitals)
	assert.Equal(t, 1, body.Hubs)
	assert.Contains(t, body.Regions, "toronto")
}

func TestHospitalsEndpoint(t *testing.T) {
	srv := newTestServer(t, nil)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/hospitals", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var identities []domain.HospitalIdentity
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &identities))
	require.Len(t, identities, 2)

	names := []string{identities[0].StandardName, identities[1].StandardName}
	assert.Contains(t, names, "Hospital for Sick Children")
	assert.Contains(t, names, "Markham Stouffville Hospital")
}
