package media

import (
	"mime"
	"path/filepath"
	"sort"
	"strings"
)

// allowedExtensions is the set of video file extensions accepted for upload,
// without the leading dot.
var allowedExtensions = map[string]bool{
	"mp4":  true,
	"mov":  true,
	"avi":  true,
	"webm": true,
	"mkv":  true,
}

// videoMIMETypes maps recognized video MIME types to their canonical extension.
var videoMIMETypes = map[string]string{
	"video/mp4":        "mp4",
	"video/quicktime":  "mov",
	"video/x-msvideo":  "avi",
	"video/avi":        "avi",
	"video/webm":       "webm",
	"video/x-matroska": "mkv",
}

// AllowedExtensions returns the accepted extensions in sorted order.
func AllowedExtensions() []string {
	exts := make([]string, 0, len(allowedExtensions))
	for ext := range allowedExtensions {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

// A classifier inspects the declared filename and content type and either
// returns a confirmed storage extension or reports no opinion.
type classifier func(ext string, contentType string) (string, bool)

// The acceptance policy is an ordered chain, first match wins:
//  1. an allowed filename extension is accepted as-is,
//  2. a recognized video MIME type remaps to its canonical extension,
//  3. with no filename extension at all, a generic MIME-to-extension guess
//     is accepted when it lands on an allowed extension.
var classifiers = []classifier{
	allowedExtension,
	knownVideoMIME,
	mimeGuess,
}

func allowedExtension(ext string, _ string) (string, bool) {
	if ext != "" && allowedExtensions[ext] {
		return ext, true
	}
	return "", false
}

func knownVideoMIME(_ string, contentType string) (string, bool) {
	mapped, ok := videoMIMETypes[normalizeContentType(contentType)]
	return mapped, ok
}

func mimeGuess(ext string, contentType string) (string, bool) {
	if ext != "" {
		return "", false
	}
	guesses, err := mime.ExtensionsByType(normalizeContentType(contentType))
	if err != nil {
		return "", false
	}
	for _, guess := range guesses {
		candidate := strings.TrimPrefix(guess, ".")
		if allowedExtensions[candidate] {
			return candidate, true
		}
	}
	return "", false
}

// servedMIMETypes maps storage extensions back to the MIME type stored
// videos are served under.
var servedMIMETypes = map[string]string{
	"mp4":  "video/mp4",
	"mov":  "video/quicktime",
	"avi":  "video/x-msvideo",
	"webm": "video/webm",
	"mkv":  "video/x-matroska",
}

// ContentTypeForExtension returns the MIME type to serve a stored video
// under. The ext may carry a leading dot.
func ContentTypeForExtension(ext string) string {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if mimeType, ok := servedMIMETypes[ext]; ok {
		return mimeType
	}
	return "application/octet-stream"
}

// ResolveExtension runs the acceptance chain and returns the extension
// (without dot) the upload should be stored under, or an
// UnsupportedFormatError when no classifier accepts it.
func ResolveExtension(filename string, contentType string) (string, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	for _, classify := range classifiers {
		if resolved, ok := classify(ext, contentType); ok {
			return resolved, nil
		}
	}
	return "", &UnsupportedFormatError{Filename: filename, ContentType: contentType}
}

func normalizeContentType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(contentType))
	}
	return mediaType
}
