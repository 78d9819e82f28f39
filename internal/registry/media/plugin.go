package media

import (
	"context"
	"fmt"
	"io"
)

// SaveResult is the result of persisting an uploaded video.
type SaveResult struct {
	// URL is the stable access path: /uploads/videos/{user_id}/{filename}.
	URL              string
	Size             int64
	OriginalFilename string
	SavedFilename    string
}

// VideoStore defines the interface for video blob storage backends.
type VideoStore interface {
	// Save streams the upload to storage under a generated filename
	// namespaced by userID. It returns an UnsupportedFormatError when the
	// format acceptance chain rejects the upload, and a SizeLimitError the
	// moment the accumulated size crosses the configured ceiling; in the
	// latter case no partial file remains.
	Save(ctx context.Context, data io.Reader, filename string, contentType string, userID string) (*SaveResult, error)
	// Open returns a reader for the blob at the given access path.
	Open(ctx context.Context, url string) (io.ReadCloser, error)
	// Delete removes the blob at the given access path. A missing or
	// foreign url is (false, nil); a genuine I/O fault is an error.
	Delete(ctx context.Context, url string) (bool, error)
}

// UnsupportedFormatError indicates the upload was rejected by the format
// acceptance policy.
type UnsupportedFormatError struct {
	Filename    string
	ContentType string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("unsupported video format: filename=%q content-type=%q (allowed extensions: %v)",
		e.Filename, e.ContentType, AllowedExtensions())
}

// SizeLimitError indicates the upload exceeded the configured size ceiling.
type SizeLimitError struct {
	Limit int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("video exceeds maximum allowed size of %d bytes", e.Limit)
}

// Loader creates a VideoStore from config.
type Loader func(ctx context.Context) (VideoStore, error)

// Plugin represents a video store plugin.
type Plugin struct {
	Name   string
	Loader Loader
}

var plugins []Plugin

// Register adds a video store plugin.
func Register(p Plugin) {
	plugins = append(plugins, p)
}

// Names returns all registered video store plugin names.
func Names() []string {
	names := make([]string, len(plugins))
	for i, p := range plugins {
		names[i] = p.Name
	}
	return names
}

// Select returns the loader for the named video store plugin.
func Select(name string) (Loader, error) {
	for _, p := range plugins {
		if p.Name == name {
			return p.Loader, nil
		}
	}
	return nil, fmt.Errorf("unknown media store %q; valid: %v", name, Names())
}
