package media

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// URLPrefix is the access path prefix videos are served under. The shape
// /uploads/videos/{user_id}/{filename} is embedded back into entries, so it
// must stay stable.
const URLPrefix = "/uploads/videos"

// NewFilename generates a collision-resistant storage filename:
// "{YYYYMMDD_HHMMSS}_{8-hex-random}.{ext}". The declared upload filename is
// never used as a storage path.
func NewFilename(at time.Time, ext string) string {
	suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
	return fmt.Sprintf("%s_%s.%s", at.UTC().Format("20060102_150405"), suffix, ext)
}

// VideoURL builds the access path for a stored video.
func VideoURL(userID, filename string) string {
	return fmt.Sprintf("%s/%s/%s", URLPrefix, userID, filename)
}

// ParseVideoURL maps an access path back to its (userID, filename) pair.
// It reports ok=false for malformed or foreign urls, and rejects any
// component that could escape the storage namespace.
func ParseVideoURL(url string) (userID, filename string, ok bool) {
	rest, found := strings.CutPrefix(url, URLPrefix+"/")
	if !found {
		return "", "", false
	}
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	for _, part := range parts {
		if part == "." || part == ".." || strings.ContainsAny(part, `\`) {
			return "", "", false
		}
	}
	return parts[0], parts[1], true
}
