package dashboard

import (
	_ "embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emogo/journal-service/internal/model"
	registrystore "github.com/emogo/journal-service/internal/registry/store"
	"github.com/gin-gonic/gin"
)

//go:embed dashboard.html
var pageHTML string

var page = template.Must(template.New("dashboard").Parse(pageHTML))

// maxRows caps how many entries a single page renders.
const maxRows = 500

// MountRoutes mounts the read-only HTML dashboard.
func MountRoutes(r *gin.Engine, store registrystore.JournalStore) {
	r.GET("/dashboard", func(c *gin.Context) {
		renderDashboard(c, store, c.Query("user_id"))
	})
	r.GET("/dashboard/users/:userId", func(c *gin.Context) {
		renderDashboard(c, store, c.Param("userId"))
	})
}

type row struct {
	ID        string
	Username  string
	ClientID  string
	Memo      string
	Mood      string
	VideoURL  string
	Tags      []string
	CreatedAt string
	IsSynced  bool
}

type pageData struct {
	StartDate string
	EndDate   string
	UserID    string
	Users     []model.User
	Rows      []row
	Total     int64
	Truncated bool
}

// renderDashboard shows recent entries, defaulting to the last 7 days.
func renderDashboard(c *gin.Context, store registrystore.JournalStore, userID string) {
	now := time.Now().UTC()
	endDate := c.DefaultQuery("end_date", now.Format("2006-01-02"))
	startDate := c.DefaultQuery("start_date", now.AddDate(0, 0, -7).Format("2006-01-02"))

	data := pageData{
		StartDate: startDate,
		EndDate:   endDate,
		UserID:    userID,
	}

	users, err := store.ListUsers(c.Request.Context())
	if err != nil {
		log.Error("dashboard user listing failed", "error", err)
		c.String(http.StatusInternalServerError, "internal server error")
		return
	}
	data.Users = users

	usernames := make(map[string]string, len(users))
	for _, u := range users {
		usernames[u.ID] = u.Username
	}

	query := registrystore.ListQuery{Limit: maxRows}
	if start, err := time.Parse("2006-01-02", startDate); err == nil {
		query.StartDate = &start
	}
	if end, err := time.Parse("2006-01-02", endDate); err == nil {
		// Include the whole end day.
		end = end.AddDate(0, 0, 1)
		query.EndDate = &end
	}

	// Without a user filter, collect across all known owners.
	var entries []model.Entry
	var total int64
	if userID != "" {
		query.UserID = userID
		entries, total, err = store.ListEntries(c.Request.Context(), query)
		if err != nil {
			log.Error("dashboard entry listing failed", "user_id", userID, "error", err)
			c.String(http.StatusInternalServerError, "internal server error")
			return
		}
	} else {
		for _, u := range users {
			query.UserID = u.ID
			userEntries, userTotal, err := store.ListEntries(c.Request.Context(), query)
			if err != nil {
				log.Error("dashboard entry listing failed", "user_id", u.ID, "error", err)
				c.String(http.StatusInternalServerError, "internal server error")
				return
			}
			entries = append(entries, userEntries...)
			total += userTotal
			if len(entries) >= maxRows {
				entries = entries[:maxRows]
				break
			}
		}
	}

	for _, entry := range entries {
		data.Rows = append(data.Rows, newRow(entry, usernames))
	}
	data.Total = total
	data.Truncated = total > int64(len(data.Rows))

	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	if err := page.Execute(c.Writer, data); err != nil {
		log.Error("dashboard render failed", "error", err)
	}
}

func newRow(entry model.Entry, usernames map[string]string) row {
	r := row{
		ID:        entry.ID.String(),
		Username:  entry.UserID,
		ClientID:  entry.ClientID,
		Memo:      "-",
		Mood:      "-",
		Tags:      entry.Tags,
		CreatedAt: entry.CreatedAt.Format("2006-01-02 15:04:05"),
		IsSynced:  entry.IsSynced,
	}
	if name, ok := usernames[entry.UserID]; ok {
		r.Username = name
	}
	if entry.Memo != nil && *entry.Memo != "" {
		r.Memo = *entry.Memo
	}
	if entry.Mood != nil {
		r.Mood = moodLabel(*entry.Mood)
	}
	if entry.Video != nil {
		r.VideoURL = entry.Video.URL
	}
	return r
}

func moodLabel(mood model.Mood) string {
	label := ""
	if mood.Emoji != nil {
		label = *mood.Emoji
	}
	if mood.Label != nil {
		if label != "" {
			label += " "
		}
		label += *mood.Label
	}
	if label == "" {
		label = fmt.Sprintf("Level %d", mood.Level)
	}
	return label
}
