//go:build !integration

package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farelens/deals-cli/internal/model"
	"github.com/farelens/deals-cli/internal/store"
)

func testStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.NewSQLite(filepath.Join(t.TempDir(), "serve.db"))
	require.NoError(t, err)
	require.NoError(t, st.Migrate(context.Background()))
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestRouter_Health(t *testing.T) {
	router := newRouter(testStore(t))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	err := json.Unmarshal(rr.Body.Bytes(), &body)
	require.NoError(t, err)
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_ListRuns(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "deals.jsonl")
	require.NoError(t, err)
	require.NoError(t, st.CompleteRun(ctx, run.ID, model.RunStatusComplete, nil, "/runs/x"))

	router := newRouter(st)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var runs []model.Run
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &runs))
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, model.RunStatusComplete, runs[0].Status)
}

func TestRouter_ListRuns_BadLimit(t *testing.T) {
	router := newRouter(testStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/?limit=nope", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestRouter_GetRun_NotFound(t *testing.T) {
	router := newRouter(testStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/no-such-run", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_LatestRun_Empty(t *testing.T) {
	router := newRouter(testStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/latest", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestRouter_GetResults(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	run, err := st.CreateRun(ctx, "deals.jsonl")
	require.NoError(t, err)
	require.NoError(t, st.SaveResults(ctx, run.ID, []model.DealResult{
		{DealID: "d1", Title: "Bali escape", URL: "https://ex.com/bali"},
	}))

	router := newRouter(st)

	req := httptest.NewRequest(http.MethodGet, "/api/runs/"+run.ID+"/results", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)

	var results []model.DealResult
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Bali escape", results[0].Title)
}

func TestRouter_GetResults_RunNotFound(t *testing.T) {
	router := newRouter(testStore(t))

	req := httptest.NewRequest(http.MethodGet, "/api/runs/missing/results", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}
