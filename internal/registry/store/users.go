package store

import (
	"fmt"
	"strings"
	"time"
)

// NewUserID derives a readable user identifier from the username and the
// creation time: "user_{cleaned-username}_{unix-millis}". The username part
// keeps only alphanumerics and is capped at 10 characters.
func NewUserID(username string, at time.Time) string {
	var cleaned strings.Builder
	for _, r := range username {
		if cleaned.Len() >= 10 {
			break
		}
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			cleaned.WriteRune(r)
		}
	}
	name := strings.ToLower(cleaned.String())
	if name == "" {
		name = "user"
	}
	return fmt.Sprintf("user_%s_%d", name, at.UnixMilli())
}
