package entries

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/emogo/journal-service/internal/config"
	"github.com/emogo/journal-service/internal/model"
	registrystore "github.com/emogo/journal-service/internal/registry/store"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// MountRoutes mounts entry CRUD routes.
func MountRoutes(r *gin.Engine, store registrystore.JournalStore, cfg *config.Config) {
	g := r.Group("/api/v1")

	g.POST("/entries", func(c *gin.Context) {
		createEntry(c, store)
	})
	g.GET("/entries", func(c *gin.Context) {
		listEntries(c, store, cfg)
	})
	g.GET("/entries/:entryId", func(c *gin.Context) {
		getEntry(c, store)
	})
	g.PUT("/entries/:entryId", func(c *gin.Context) {
		updateEntry(c, store)
	})
	g.DELETE("/entries/:entryId", func(c *gin.Context) {
		deleteEntry(c, store)
	})
}

func createEntry(c *gin.Context, store registrystore.JournalStore) {
	var req registrystore.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := store.CreateEntry(c.Request.Context(), req)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func listEntries(c *gin.Context, store registrystore.JournalStore, cfg *config.Config) {
	userID := c.Query("user_id")
	if userID == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"code":  "validation_error",
			"error": "user_id is required",
		})
		return
	}

	page := queryInt(c, "page", 1)
	if page < 1 {
		page = 1
	}
	pageSize := queryInt(c, "page_size", cfg.DefaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > cfg.MaxPageSize {
		pageSize = cfg.MaxPageSize
	}

	query := registrystore.ListQuery{
		UserID: userID,
		Skip:   (page - 1) * pageSize,
		Limit:  pageSize,
	}

	var err error
	if query.StartDate, err = queryTime(c, "start_date"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}
	if query.EndDate, err = queryTime(c, "end_date"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
		return
	}
	if v := c.Query("mood_level"); v != "" {
		level, err := strconv.Atoi(v)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": "mood_level must be an integer"})
			return
		}
		query.MoodLevel = &level
	}
	if v := c.Query("tags"); v != "" {
		for _, tag := range strings.Split(v, ",") {
			if tag = strings.TrimSpace(tag); tag != "" {
				query.Tags = append(query.Tags, tag)
			}
		}
	}

	entries, total, err := store.ListEntries(c.Request.Context(), query)
	if err != nil {
		handleError(c, err)
		return
	}
	if entries == nil {
		entries = []model.Entry{}
	}

	// A fully empty result still reports one (empty) page.
	totalPages := int64(1)
	if total > 0 {
		totalPages = (total + int64(pageSize) - 1) / int64(pageSize)
	}

	c.JSON(http.StatusOK, gin.H{
		"entries":     entries,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": totalPages,
	})
}

func getEntry(c *gin.Context, store registrystore.JournalStore) {
	id, err := uuid.Parse(c.Param("entryId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "entry not found"})
		return
	}

	entry, err := store.GetEntry(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func updateEntry(c *gin.Context, store registrystore.JournalStore) {
	id, err := uuid.Parse(c.Param("entryId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "entry not found"})
		return
	}

	var req struct {
		Memo     *string         `json:"memo"`
		Mood     *model.Mood     `json:"mood"`
		Video    *model.Video    `json:"video"`
		Location *model.Location `json:"location"`
		Tags     []string        `json:"tags"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := store.UpdateEntry(c.Request.Context(), id, registrystore.EntryUpdate{
		Memo:     req.Memo,
		Mood:     req.Mood,
		Video:    req.Video,
		Location: req.Location,
		Tags:     req.Tags,
	})
	if err != nil {
		handleError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func deleteEntry(c *gin.Context, store registrystore.JournalStore) {
	id, err := uuid.Parse(c.Param("entryId"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "entry not found"})
		return
	}

	removed, err := store.DeleteEntry(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	if !removed {
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": "entry not found"})
		return
	}
	c.Status(http.StatusNoContent)
}

func handleError(c *gin.Context, err error) {
	var notFound *registrystore.NotFoundError
	var validation *registrystore.ValidationError
	var conflict *registrystore.ConflictError

	switch {
	case errors.As(err, &notFound):
		c.JSON(http.StatusNotFound, gin.H{"code": "not_found", "error": err.Error()})
	case errors.As(err, &validation):
		c.JSON(http.StatusBadRequest, gin.H{"code": "validation_error", "error": err.Error()})
	case errors.As(err, &conflict):
		c.JSON(http.StatusConflict, gin.H{"code": "conflict", "error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

// queryTime accepts RFC 3339 timestamps and bare dates.
func queryTime(c *gin.Context, key string) (*time.Time, error) {
	v := c.Query(key)
	if v == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return &t, nil
		}
	}
	return nil, errors.New(key + " must be an RFC 3339 timestamp or YYYY-MM-DD date")
}
