package dashboard_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/emogo/journal-service/internal/plugin/route/dashboard"
	"github.com/emogo/journal-service/internal/plugin/store/memory"
	registrystore "github.com/emogo/journal-service/internal/registry/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestDashboard(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	alice, _, err := store.RegisterUser(ctx, "alice", nil, nil)
	require.NoError(t, err)
	_, _, err = store.RegisterUser(ctx, "bob", nil, nil)
	require.NoError(t, err)

	memo := "hiking trip"
	_, err = store.CreateEntry(ctx, registrystore.CreateEntryRequest{
		UserID:   alice.ID,
		ClientID: "c-1",
		Memo:     &memo,
		Tags:     []string{"outdoors"},
	})
	require.NoError(t, err)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	dashboard.MountRoutes(router, store)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Header().Get("Content-Type"), "text/html")
	require.Contains(t, w.Body.String(), "hiking trip")
	require.Contains(t, w.Body.String(), "alice")
	require.Contains(t, w.Body.String(), "outdoors")

	// Filtering to bob hides alice's entry.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard?user_id=nope", nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.NotContains(t, w.Body.String(), "hiking trip")

	// The per-user page pins the filter.
	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/dashboard/users/"+alice.ID, nil))
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "hiking trip")
}
