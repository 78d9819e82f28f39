// Package local stores uploaded videos on the local filesystem under a
// per-user directory, serving them back at /uploads/videos/{user}/{file}.
package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emogo/journal-service/internal/config"
	"github.com/emogo/journal-service/internal/registry/media"
)

// copyChunkSize is the streaming buffer size; the size ceiling is checked
// after every chunk, not after the full body has been read.
const copyChunkSize = 1024 * 1024

func init() {
	media.Register(media.Plugin{
		Name: "local",
		Loader: func(ctx context.Context) (media.VideoStore, error) {
			cfg := config.FromContext(ctx)
			return New(cfg.MediaLocalDir, cfg.MediaMaxSize)
		},
	})
}

// Store is a filesystem-backed VideoStore.
type Store struct {
	root    string
	maxSize int64
}

// New creates a Store rooted at dir, enforcing maxSize bytes per upload.
func New(dir string, maxSize int64) (*Store, error) {
	if dir == "" {
		return nil, fmt.Errorf("media local dir must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating media dir: %w", err)
	}
	return &Store{root: dir, maxSize: maxSize}, nil
}

func (s *Store) Save(ctx context.Context, data io.Reader, filename string, contentType string, userID string) (*media.SaveResult, error) {
	ext, err := media.ResolveExtension(filename, contentType)
	if err != nil {
		return nil, err
	}

	userDir := filepath.Join(s.root, userID)
	if err := os.MkdirAll(userDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating user media dir: %w", err)
	}

	saved := media.NewFilename(time.Now(), ext)
	path := filepath.Join(userDir, saved)
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating video file: %w", err)
	}

	size, err := copyWithLimit(f, data, s.maxSize)
	if err != nil {
		f.Close()
		if removeErr := os.Remove(path); removeErr != nil {
			log.Error("failed to remove partial video file", "path", path, "err", removeErr)
		}
		return nil, err
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("closing video file: %w", err)
	}

	return &media.SaveResult{
		URL:              media.VideoURL(userID, saved),
		Size:             size,
		OriginalFilename: filename,
		SavedFilename:    saved,
	}, nil
}

// copyWithLimit streams src to dst in fixed-size chunks, aborting the
// instant the accumulated size crosses maxSize.
func copyWithLimit(dst io.Writer, src io.Reader, maxSize int64) (int64, error) {
	buf := make([]byte, copyChunkSize)
	var total int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			total += int64(n)
			if maxSize > 0 && total > maxSize {
				return total, &media.SizeLimitError{Limit: maxSize}
			}
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return total, fmt.Errorf("writing video chunk: %w", writeErr)
			}
		}
		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			return total, fmt.Errorf("reading upload stream: %w", readErr)
		}
	}
}

func (s *Store) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	path, ok := s.pathFor(url)
	if !ok {
		return nil, fmt.Errorf("not a video url: %q", url)
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fs.ErrNotExist
	}
	if err != nil {
		return nil, fmt.Errorf("opening video file: %w", err)
	}
	return f, nil
}

func (s *Store) Delete(ctx context.Context, url string) (bool, error) {
	path, ok := s.pathFor(url)
	if !ok {
		return false, nil
	}
	err := os.Remove(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		// Permission and other I/O faults are real errors, not a
		// not-found outcome.
		return false, fmt.Errorf("removing video file: %w", err)
	}
	return true, nil
}

func (s *Store) pathFor(url string) (string, bool) {
	userID, filename, ok := media.ParseVideoURL(url)
	if !ok {
		return "", false
	}
	return filepath.Join(s.root, userID, filename), true
}
