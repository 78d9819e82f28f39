package store

import (
	"strings"

	"github.com/emogo/journal-service/internal/model"
)

// Validate enforces the create-time invariants shared by every store
// backend. Out-of-range values are rejected here, never stored.
func (r CreateEntryRequest) Validate() error {
	if strings.TrimSpace(r.UserID) == "" {
		return &ValidationError{Field: "user_id", Message: "must not be empty"}
	}
	if strings.TrimSpace(r.ClientID) == "" {
		return &ValidationError{Field: "client_id", Message: "must not be empty"}
	}
	return validateEntryFields(r.Mood, r.Location)
}

// Validate enforces the range invariants on mutable entry fields.
func (u EntryUpdate) Validate() error {
	return validateEntryFields(u.Mood, u.Location)
}

func validateEntryFields(mood *model.Mood, location *model.Location) error {
	if mood != nil && (mood.Level < 1 || mood.Level > 5) {
		return &ValidationError{Field: "mood.level", Message: "must be between 1 and 5"}
	}
	if location != nil {
		if location.Latitude < -90 || location.Latitude > 90 {
			return &ValidationError{Field: "location.latitude", Message: "must be between -90 and 90"}
		}
		if location.Longitude < -180 || location.Longitude > 180 {
			return &ValidationError{Field: "location.longitude", Message: "must be between -180 and 180"}
		}
	}
	return nil
}
