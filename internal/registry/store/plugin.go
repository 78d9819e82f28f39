package store

import (
	"context"
	"fmt"
	"time"

	"github.com/emogo/journal-service/internal/model"
	"github.com/google/uuid"
)

// CreateEntryRequest is the input for creating an entry. CreatedAt may be
// supplied by the caller to preserve offline authoring time.
type CreateEntryRequest struct {
	UserID    string          `json:"user_id"`
	ClientID  string          `json:"client_id"`
	Memo      *string         `json:"memo,omitempty"`
	Mood      *model.Mood     `json:"mood,omitempty"`
	Video     *model.Video    `json:"video,omitempty"`
	Location  *model.Location `json:"location,omitempty"`
	Tags      []string        `json:"tags,omitempty"`
	CreatedAt *time.Time      `json:"created_at,omitempty"`
}

// EntryUpdate defines mutable entry fields. Nil fields are left untouched.
type EntryUpdate struct {
	Memo     *string
	Mood     *model.Mood
	Video    *model.Video
	Location *model.Location
	Tags     []string
}

// ListQuery holds filter and pagination parameters for entry listing. All
// predicates are conjunctive; UserID is required.
type ListQuery struct {
	UserID    string
	StartDate *time.Time
	EndDate   *time.Time
	MoodLevel *int
	Tags      []string
	Skip      int
	Limit     int
}

// JournalStore defines the primary data access interface for the journal service.
type JournalStore interface {
	// Entries
	//
	// CreateEntry assigns the surrogate id and returns a ConflictError when
	// the (user_id, client_id) pair already exists. Uniqueness is enforced
	// at the storage level, so concurrent creates of the same pair cannot
	// both succeed.
	CreateEntry(ctx context.Context, req CreateEntryRequest) (*model.Entry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (*model.Entry, error)
	FindEntryByClientID(ctx context.Context, clientID string, userID string) (*model.Entry, error)
	UpdateEntry(ctx context.Context, id uuid.UUID, update EntryUpdate) (*model.Entry, error)
	// DeleteEntry reports whether an entry was removed; a missing entry is
	// (false, nil), not an error.
	DeleteEntry(ctx context.Context, id uuid.UUID) (bool, error)
	ListEntries(ctx context.Context, query ListQuery) ([]model.Entry, int64, error)
	CountEntries(ctx context.Context, userID string) (int64, error)

	// Users
	//
	// RegisterUser reports whether a new account was created. Registering an
	// existing username acts as a login: LastLogin is bumped and the second
	// return is false.
	RegisterUser(ctx context.Context, username string, email *string, deviceID *string) (*model.User, bool, error)
	// LoginUser bumps LastLogin and records the device, returning a
	// NotFoundError for unknown usernames.
	LoginUser(ctx context.Context, username string, deviceID *string) (*model.User, error)
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
	GetUser(ctx context.Context, id string) (*model.User, error)
	ListUsers(ctx context.Context) ([]model.User, error)

	// Ping verifies backend connectivity for readiness probes.
	Ping(ctx context.Context) error

	Close() error
}

// Loader creates a JournalStore from config.
type Loader func(ctx context.Context) (JournalStore, error)

// Plugin represents a store plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a store plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered store plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named store plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown store %q; valid: %v", name, Names())
}
