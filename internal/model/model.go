package model

import (
	"time"

	"github.com/google/uuid"
)

// Mood captures a journal entry's mood rating.
type Mood struct {
	Level int     `json:"level"           bson:"level"`
	Emoji *string `json:"emoji,omitempty" bson:"emoji,omitempty"`
	Label *string `json:"label,omitempty" bson:"label,omitempty"`
}

// Video describes a video attachment by its opaque access path.
type Video struct {
	URL          string   `json:"url"                     bson:"url"`
	Duration     *float64 `json:"duration,omitempty"      bson:"duration,omitempty"`
	ThumbnailURL *string  `json:"thumbnail_url,omitempty" bson:"thumbnail_url,omitempty"`
	FileSize     *int64   `json:"file_size,omitempty"     bson:"file_size,omitempty"`
}

// Location is a GPS fix attached to an entry.
type Location struct {
	Latitude  float64  `json:"latitude"           bson:"latitude"`
	Longitude float64  `json:"longitude"          bson:"longitude"`
	Altitude  *float64 `json:"altitude,omitempty" bson:"altitude,omitempty"`
	Accuracy  *float64 `json:"accuracy,omitempty" bson:"accuracy,omitempty"`
	Address   *string  `json:"address,omitempty"  bson:"address,omitempty"`
}

// Entry represents one journal record. ClientID is the caller-assigned
// idempotency key; (UserID, ClientID) is unique across the store.
type Entry struct {
	ID        uuid.UUID  `json:"id"                  gorm:"primaryKey;type:uuid"`
	UserID    string     `json:"user_id"             gorm:"not null;index:idx_entries_user_client,unique,priority:1"`
	ClientID  string     `json:"client_id"           gorm:"not null;index:idx_entries_user_client,unique,priority:2"`
	Memo      *string    `json:"memo,omitempty"`
	Mood      *Mood      `json:"mood,omitempty"      gorm:"type:jsonb;serializer:json"`
	Video     *Video     `json:"video,omitempty"     gorm:"type:jsonb;serializer:json"`
	Location  *Location  `json:"location,omitempty"  gorm:"type:jsonb;serializer:json"`
	Tags      []string   `json:"tags,omitempty"      gorm:"type:jsonb;serializer:json"`
	CreatedAt time.Time  `json:"created_at"          gorm:"not null;index"`
	UpdatedAt time.Time  `json:"updated_at"          gorm:"not null"`
	SyncedAt  *time.Time `json:"synced_at,omitempty"`
	IsSynced  bool       `json:"is_synced"           gorm:"not null;default:false"`
}

func (Entry) TableName() string { return "entries" }

// User is a registry record keyed by a server-generated readable identifier.
// Username is the natural login key. LastLogin is bumped on every login,
// including a register call that lands on an existing username.
type User struct {
	ID        string    `json:"id"                  gorm:"primaryKey"`
	Username  string    `json:"username"            gorm:"not null;index"`
	Email     *string   `json:"email,omitempty"`
	DeviceID  *string   `json:"device_id,omitempty"`
	CreatedAt time.Time `json:"created_at"          gorm:"not null;default:now()"`
	LastLogin time.Time `json:"last_login"          gorm:"not null"`
}

func (User) TableName() string { return "users" }
