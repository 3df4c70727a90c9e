package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trade-surveillance-etl/internal/metrics"
	"trade-surveillance-etl/internal/model"
	"trade-surveillance-etl/internal/store"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	require.NoError(t, store.InitDB(filepath.Join(t.TempDir(), "test.db")))
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRouter(logger, metrics.NewCollector())
}

func TestCreateRunRejectsInvalidJSON(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateRunRequiresSources(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(`{"sources":[]}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetRunNotFound(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/nope", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "validation_records_total")
}

// TestCreateRunEndToEnd drives a full run through the API: submit a spec,
// wait for the async pipeline to finish, then read the summary back.
func TestCreateRunEndToEnd(t *testing.T) {
	router := newTestRouter(t)

	dir := t.TempDir()
	csvPath := filepath.Join(dir, "trades.csv")
	content := "trade_id,order_id,client_id,side,quantity,price,currency,instrument_type,trade_ts\n" +
		"T1,O1,C1,BUY,100,10.5,USD,BOND,2024-03-15T10:00:00Z\n"
	require.NoError(t, os.WriteFile(csvPath, []byte(content), 0644))

	spec := model.RunSpec{Sources: []model.Source{{Type: "csv", Path: csvPath}}}
	body, err := json.Marshal(spec)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/runs", strings.NewReader(string(body)))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var created map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	runID, _ := created["runID"].(string)
	require.NotEmpty(t, runID)

	summary := waitForSummary(t, router, runID)
	assert.Equal(t, 1, summary.InputRows)
	assert.Equal(t, 1, summary.PassedRows)
	assert.Equal(t, 0, summary.FailedRows)
	assert.Equal(t, 100.0, summary.PassRatePct)
}

func waitForSummary(t *testing.T, router http.Handler, runID string) model.RunSummary {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/runs/"+runID+"/summary", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if rec.Code == http.StatusOK {
			var summary model.RunSummary
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
			return summary
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatalf("run %s did not complete in time", runID)
	return model.RunSummary{}
}
