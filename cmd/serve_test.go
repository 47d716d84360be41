package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leadmagnet/leadmagnet-cli/internal/config"
	"github.com/leadmagnet/leadmagnet-cli/internal/finder"
	"github.com/leadmagnet/leadmagnet-cli/internal/model"
	"github.com/leadmagnet/leadmagnet-cli/internal/session"
	sfpkg "github.com/leadmagnet/leadmagnet-cli/pkg/salesforce"
)

// mockFinder implements session.BusinessFinder for handler tests.
type mockFinder struct {
	results []model.MapResult
	links   []model.GroundingLink
	err     error
}

func (m *mockFinder) Find(_ context.Context, _ finder.Query) ([]model.MapResult, []model.GroundingLink, error) {
	return m.results, m.links, m.err
}

// mockCleaner implements session.LeadCleaner for handler tests.
type mockCleaner struct {
	leads []model.Lead
	err   error
}

func (m *mockCleaner) Clean(_ context.Context, _ []string) ([]model.Lead, error) {
	return m.leads, m.err
}

// mockSFClient implements the Salesforce boundary for handler tests.
type mockSFClient struct {
	results []sfpkg.CollectionResult
	err     error
}

func (m *mockSFClient) InsertCollection(_ context.Context, _ string, records []map[string]any) ([]sfpkg.CollectionResult, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.results != nil {
		return m.results, nil
	}
	out := make([]sfpkg.CollectionResult, len(records))
	for i := range out {
		out[i] = sfpkg.CollectionResult{ID: "00Q", Success: true}
	}
	return out, nil
}

func newTestRouter(t *testing.T, f *mockFinder, c *mockCleaner, sf sfpkg.Client) (http.Handler, *session.Session) {
	t.Helper()
	cfg = &config.Config{}
	cfg.Server.CORSOrigins = []string{"http://localhost:5173"}
	sess := session.New(f, c, config.SessionConfig{ProgressTickMs: 0, ReadyDelayMs: 0})
	return newRouter(sess, sf), sess
}

func doJSON(t *testing.T, h http.Handler, method, path string, payload any) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(b)
	} else {
		body = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHealthEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, &mockFinder{}, &mockCleaner{}, nil)

	rr := doJSON(t, h, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestSectorsEndpoint(t *testing.T) {
	h, _ := newTestRouter(t, &mockFinder{}, &mockCleaner{}, nil)

	rr := doJSON(t, h, http.MethodGet, "/api/sectors", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Sectors []string `json:"sectors"`
		Default string   `json:"default"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "All Sectors", body.Default)
	assert.Contains(t, body.Sectors, "Real Estate")
}

func TestSearchEndpoint(t *testing.T) {
	f := &mockFinder{
		results: []model.MapResult{{Name: "Acme Dental"}},
		links:   []model.GroundingLink{{URI: "https://a.example", Title: "A"}},
	}
	h, sess := newTestRouter(t, f, &mockCleaner{}, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/search", map[string]string{
		"query":    "dentists",
		"location": "Mumbai",
	})
	assert.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Found int                   `json:"found"`
		Links []model.GroundingLink `json:"links"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Found)
	require.Len(t, body.Links, 1)
	assert.Len(t, sess.Candidates(), 1)
}

func TestSearchEndpoint_MissingQuery(t *testing.T) {
	h, _ := newTestRouter(t, &mockFinder{}, &mockCleaner{}, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/search", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSearchEndpoint_UnknownSector(t *testing.T) {
	h, _ := newTestRouter(t, &mockFinder{}, &mockCleaner{}, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/search", map[string]string{
		"query":  "dentists",
		"sector": "Aerospace",
	})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestSearchEndpoint_RemoteFailure(t *testing.T) {
	h, _ := newTestRouter(t, &mockFinder{err: assert.AnError}, &mockCleaner{}, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/search", map[string]string{"query": "dentists"})
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}

func TestSearchMoreEndpoint_Exhausted(t *testing.T) {
	f := &mockFinder{results: []model.MapResult{{Name: "Acme"}}}
	h, _ := newTestRouter(t, f, &mockCleaner{}, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/search", map[string]string{"query": "dentists"})
	require.Equal(t, http.StatusOK, rr.Code)

	f.results = nil
	rr = doJSON(t, h, http.MethodPost, "/api/search/more", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Found     int  `json:"found"`
		Exhausted bool `json:"exhausted"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.True(t, body.Exhausted)
	assert.Zero(t, body.Found)
}

func TestSearchMoreEndpoint_NoPriorQuery(t *testing.T) {
	h, _ := newTestRouter(t, &mockFinder{}, &mockCleaner{}, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/search/more", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestCommitEndpoint(t *testing.T) {
	f := &mockFinder{results: []model.MapResult{{Name: "Acme Dental"}}}
	c := &mockCleaner{leads: []model.Lead{{ID: "lead-1", Name: "Acme Dental", Status: model.StatusHot}}}
	h, sess := newTestRouter(t, f, c, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/search", map[string]string{"query": "dentists"})
	require.Equal(t, http.StatusOK, rr.Code)

	rr = doJSON(t, h, http.MethodPost, "/api/commit", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var result session.CommitResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Added)
	assert.Equal(t, 1, result.Total)
	assert.Len(t, sess.Leads(), 1)
}

func TestCommitEndpoint_NoCandidates(t *testing.T) {
	h, _ := newTestRouter(t, &mockFinder{}, &mockCleaner{}, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/commit", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestStateAndStatsEndpoints(t *testing.T) {
	h, _ := newTestRouter(t, &mockFinder{}, &mockCleaner{}, nil)

	rr := doJSON(t, h, http.MethodGet, "/api/state", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var state struct {
		Phase    model.Phase `json:"phase"`
		Progress int         `json:"progress"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &state))
	assert.Equal(t, model.PhaseIdle, state.Phase)

	rr = doJSON(t, h, http.MethodGet, "/api/stats", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var stats model.Stats
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &stats))
	assert.Zero(t, stats.Total)
}

func TestClearEndpoint(t *testing.T) {
	f := &mockFinder{results: []model.MapResult{{Name: "Acme"}}}
	c := &mockCleaner{leads: []model.Lead{{ID: "lead-1", Name: "Acme"}}}
	h, sess := newTestRouter(t, f, c, nil)

	doJSON(t, h, http.MethodPost, "/api/search", map[string]string{"query": "x"})
	doJSON(t, h, http.MethodPost, "/api/commit", nil)
	require.Len(t, sess.Leads(), 1)

	rr := doJSON(t, h, http.MethodDelete, "/api/leads", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, sess.Leads())
}

func TestExportCSVEndpoint(t *testing.T) {
	f := &mockFinder{results: []model.MapResult{{Name: "Acme"}}}
	c := &mockCleaner{leads: []model.Lead{{ID: "lead-1", Name: "Acme Dental"}}}
	h, _ := newTestRouter(t, f, c, nil)

	// Empty collection produces no file.
	rr := doJSON(t, h, http.MethodGet, "/api/export/csv", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	doJSON(t, h, http.MethodPost, "/api/search", map[string]string{"query": "x"})
	doJSON(t, h, http.MethodPost, "/api/commit", nil)

	rr = doJSON(t, h, http.MethodGet, "/api/export/csv", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "LeadMagnet_CRM_Ready_")
	assert.Contains(t, rr.Body.String(), `"firstName"`)
	assert.Contains(t, rr.Body.String(), `"Acme"`)
}

func TestExportXLSXEndpoint(t *testing.T) {
	f := &mockFinder{results: []model.MapResult{{Name: "Acme"}}}
	c := &mockCleaner{leads: []model.Lead{{ID: "lead-1", Name: "Acme Dental"}}}
	h, _ := newTestRouter(t, f, c, nil)

	rr := doJSON(t, h, http.MethodGet, "/api/export/xlsx", nil)
	assert.Equal(t, http.StatusNoContent, rr.Code)

	doJSON(t, h, http.MethodPost, "/api/search", map[string]string{"query": "x"})
	doJSON(t, h, http.MethodPost, "/api/commit", nil)

	rr = doJSON(t, h, http.MethodGet, "/api/export/xlsx", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotEmpty(t, rr.Body.Bytes())
}

func TestCRMPushEndpoint_NotConfigured(t *testing.T) {
	h, _ := newTestRouter(t, &mockFinder{}, &mockCleaner{}, nil)

	rr := doJSON(t, h, http.MethodPost, "/api/crm/push", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestCRMPushEndpoint(t *testing.T) {
	f := &mockFinder{results: []model.MapResult{{Name: "Acme"}}}
	c := &mockCleaner{leads: []model.Lead{{ID: "lead-1", Name: "Acme Dental"}}}
	h, _ := newTestRouter(t, f, c, &mockSFClient{})

	doJSON(t, h, http.MethodPost, "/api/search", map[string]string{"query": "x"})
	doJSON(t, h, http.MethodPost, "/api/commit", nil)

	rr := doJSON(t, h, http.MethodPost, "/api/crm/push", nil)
	assert.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Inserted int `json:"inserted"`
		Failed   int `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, 1, body.Inserted)
	assert.Zero(t, body.Failed)
}

func TestCRMPushEndpoint_RemoteFailure(t *testing.T) {
	f := &mockFinder{results: []model.MapResult{{Name: "Acme"}}}
	c := &mockCleaner{leads: []model.Lead{{ID: "lead-1", Name: "Acme Dental"}}}
	h, _ := newTestRouter(t, f, c, &mockSFClient{err: assert.AnError})

	doJSON(t, h, http.MethodPost, "/api/search", map[string]string{"query": "x"})
	doJSON(t, h, http.MethodPost, "/api/commit", nil)

	rr := doJSON(t, h, http.MethodPost, "/api/crm/push", nil)
	assert.Equal(t, http.StatusBadGateway, rr.Code)
}
