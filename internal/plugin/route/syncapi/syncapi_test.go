package syncapi_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/emogo/journal-service/internal/plugin/route/syncapi"
	"github.com/emogo/journal-service/internal/plugin/store/memory"
	"github.com/emogo/journal-service/internal/reconcile"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	router := gin.New()
	syncapi.MountRoutes(router, reconcile.NewEngine(memory.New()))
	return router
}

func doJSON(t *testing.T, router *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var data []byte
	if body != nil {
		var err error
		data, err = json.Marshal(body)
		require.NoError(t, err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func batch(entries ...map[string]any) map[string]any {
	return map[string]any{"user_id": "alice", "entries": entries}
}

func TestBatchSync_FreshBatch(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/sync/batch", batch(
		map[string]any{"client_id": "c-1", "memo": "one"},
		map[string]any{"client_id": "c-2", "memo": "two"},
		map[string]any{"client_id": "c-3", "memo": "three"},
	))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, true, result["success"])
	require.Equal(t, "Sync complete: 3 entries synced", result["message"])

	counts, _ := result["result"].(map[string]any)
	require.EqualValues(t, 3, counts["total_received"])
	require.EqualValues(t, 3, counts["total_synced"])
	require.EqualValues(t, 0, counts["total_failed"])
	require.EqualValues(t, 0, counts["total_duplicates"])

	statuses, _ := result["statuses"].([]any)
	require.Len(t, statuses, 3)
	for _, raw := range statuses {
		status, _ := raw.(map[string]any)
		require.Equal(t, true, status["success"])
		require.NotEmpty(t, status["server_id"])
	}
}

func TestBatchSync_ResendIsAllDuplicates(t *testing.T) {
	router := setupRouter(t)

	payload := batch(
		map[string]any{"client_id": "c-1"},
		map[string]any{"client_id": "c-2"},
	)
	w := doJSON(t, router, http.MethodPost, "/api/v1/sync/batch", payload)
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodPost, "/api/v1/sync/batch", payload)
	require.Equal(t, http.StatusOK, w.Code)

	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, true, result["success"])
	require.Equal(t, "Sync complete: 0 entries synced, 2 duplicates skipped", result["message"])

	statuses, _ := result["statuses"].([]any)
	require.Len(t, statuses, 2)
	for _, raw := range statuses {
		status, _ := raw.(map[string]any)
		require.Equal(t, true, status["success"])
		require.Equal(t, "Duplicate entry, already synced", status["error"])
	}
}

func TestBatchSync_PartialFailure(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/sync/batch", batch(
		map[string]any{"client_id": "c-1"},
		map[string]any{"client_id": "c-2", "mood": map[string]any{"level": 9}},
		map[string]any{"client_id": "c-3"},
	))
	require.Equal(t, http.StatusOK, w.Code)

	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Equal(t, false, result["success"])
	require.Equal(t, "Sync partially complete: 2 synced, 1 failed, 0 duplicates", result["message"])

	statuses, _ := result["statuses"].([]any)
	require.Len(t, statuses, 3)
	failed, _ := statuses[1].(map[string]any)
	require.Equal(t, false, failed["success"])
	require.NotEmpty(t, failed["error"])
}

func TestBatchSync_RequiresUserID(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/sync/batch", map[string]any{
		"entries": []map[string]any{{"client_id": "c-1"}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "user_id")
}

func TestCheckStatus(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodPost, "/api/v1/sync/batch", batch(
		map[string]any{"client_id": "c-1"},
	))
	require.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/sync/status?user_id=alice&client_ids=c-1,c-missing", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var result map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	statuses, _ := result["statuses"].([]any)
	require.Len(t, statuses, 2)

	found, _ := statuses[0].(map[string]any)
	require.Equal(t, "c-1", found["client_id"])
	require.Equal(t, true, found["success"])
	require.NotEmpty(t, found["server_id"])

	missing, _ := statuses[1].(map[string]any)
	require.Equal(t, "c-missing", missing["client_id"])
	require.Equal(t, false, missing["success"])
	require.Equal(t, "Not found on server", missing["error"])

	// Repeated client_ids params are accepted too.
	w = doJSON(t, router, http.MethodGet, "/api/v1/sync/status?user_id=alice&client_ids=c-1&client_ids=c-2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	require.Len(t, result["statuses"], 2)
}

func TestCheckStatus_Validation(t *testing.T) {
	router := setupRouter(t)

	w := doJSON(t, router, http.MethodGet, "/api/v1/sync/status?client_ids=c-1", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)

	w = doJSON(t, router, http.MethodGet, "/api/v1/sync/status?user_id=alice", nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}
