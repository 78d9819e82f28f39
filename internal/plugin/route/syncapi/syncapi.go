package syncapi

import (
	"net/http"
	"strings"

	"github.com/emogo/journal-service/internal/reconcile"
	registrystore "github.com/emogo/journal-service/internal/registry/store"
	"github.com/emogo/journal-service/internal/telemetry"
	"github.com/gin-gonic/gin"
)

// MountRoutes mounts the offline sync reconciliation routes.
func MountRoutes(r *gin.Engine, engine *reconcile.Engine) {
	g := r.Group("/api/v1")

	g.POST("/sync/batch", func(c *gin.Context) {
		batchSync(c, engine)
	})
	g.GET("/sync/status", func(c *gin.Context) {
		checkStatus(c, engine)
	})
}

// batchSync reconciles a client batch. Per-record failures are reported in
// the payload, not the response status; only engine-level faults are 5xx.
func batchSync(c *gin.Context, engine *reconcile.Engine) {
	var req struct {
		UserID  string                             `json:"user_id"`
		Entries []registrystore.CreateEntryRequest `json:"entries"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.UserID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "validation_error",
			"error": "user_id is required",
		})
		return
	}

	result, err := engine.BatchSync(c.Request.Context(), req.UserID, req.Entries)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	observeOutcomes(result.Result)
	c.JSON(http.StatusOK, result)
}

func checkStatus(c *gin.Context, engine *reconcile.Engine) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "validation_error",
			"error": "user_id is required",
		})
		return
	}

	var clientIDs []string
	for _, raw := range c.QueryArray("client_ids") {
		for _, id := range strings.Split(raw, ",") {
			if id = strings.TrimSpace(id); id != "" {
				clientIDs = append(clientIDs, id)
			}
		}
	}
	if len(clientIDs) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "validation_error",
			"error": "client_ids is required",
		})
		return
	}

	statuses, err := engine.CheckStatus(c.Request.Context(), userID, clientIDs)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"statuses": statuses})
}

func observeOutcomes(counts reconcile.Counts) {
	if telemetry.SyncRecordsTotal == nil {
		return
	}
	telemetry.SyncRecordsTotal.WithLabelValues("synced").Add(float64(counts.TotalSynced))
	telemetry.SyncRecordsTotal.WithLabelValues("duplicate").Add(float64(counts.TotalDuplicates))
	telemetry.SyncRecordsTotal.WithLabelValues("failed").Add(float64(counts.TotalFailed))
}
