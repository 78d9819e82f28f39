// Package s3store persists uploaded videos in an S3 bucket while keeping
// the same /uploads/videos/{user}/{file} access path convention as the
// local store; the service streams objects back through VideoStore.Open.
package s3store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/emogo/journal-service/internal/config"
	"github.com/emogo/journal-service/internal/registry/media"
	"github.com/emogo/journal-service/internal/tempfiles"
)

func init() {
	media.Register(media.Plugin{
		Name:   "s3",
		Loader: load,
	})
}

func load(ctx context.Context) (media.VideoStore, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.S3Bucket == "" {
		return nil, fmt.Errorf("s3store: S3_BUCKET is required")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(
		ctx,
		awsconfig.WithRequestChecksumCalculation(aws.RequestChecksumCalculationWhenRequired),
	)
	if err != nil {
		return nil, fmt.Errorf("s3store: load AWS config: %w", err)
	}
	usePathStyle := cfg.S3UsePathStyle
	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = usePathStyle
	})
	return &S3VideoStore{
		client:  client,
		bucket:  cfg.S3Bucket,
		prefix:  strings.Trim(strings.TrimSpace(cfg.S3Prefix), "/"),
		maxSize: cfg.MediaMaxSize,
		tempDir: cfg.ResolvedTempDir(),
	}, nil
}

type S3VideoStore struct {
	client  *s3.Client
	bucket  string
	prefix  string
	maxSize int64
	tempDir string
}

// s3Key maps an access path's (userID, filename) pair to the object key.
// The prefix is applied at access time and never appears in stored urls.
func (s *S3VideoStore) s3Key(userID, filename string) string {
	key := userID + "/" + filename
	if s.prefix != "" {
		return s.prefix + "/" + key
	}
	return key
}

func (s *S3VideoStore) Save(ctx context.Context, data io.Reader, filename string, contentType string, userID string) (*media.SaveResult, error) {
	ext, err := media.ResolveExtension(filename, contentType)
	if err != nil {
		return nil, err
	}
	saved := media.NewFilename(time.Now(), ext)

	// Buffer to a temp file so the size ceiling is enforced before any
	// bytes reach the bucket; PutObject also needs a seekable body.
	tmp, err := tempfiles.Create(s.tempDir, "journal-service-s3-upload-*")
	if err != nil {
		return nil, fmt.Errorf("s3store: create temp file: %w", err)
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	size, err := bufferWithLimit(tmp, data, s.maxSize)
	if err != nil {
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("s3store: rewind temp file: %w", err)
	}

	key := s.s3Key(userID, saved)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          tmp,
		ContentLength: aws.Int64(size),
		ContentType:   &contentType,
	}, func(o *s3.Options) {
		o.APIOptions = append(o.APIOptions, v4.SwapComputePayloadSHA256ForUnsignedPayloadMiddleware)
	})
	if err != nil {
		return nil, fmt.Errorf("s3store: put object: %w", err)
	}

	return &media.SaveResult{
		URL:              media.VideoURL(userID, saved),
		Size:             size,
		OriginalFilename: filename,
		SavedFilename:    saved,
	}, nil
}

func bufferWithLimit(dst io.Writer, src io.Reader, maxSize int64) (int64, error) {
	buf := make([]byte, 1024*1024)
	var total int64
	for {
		n, readErr := src.Read(buf)
		if n > 0 {
			total += int64(n)
			if maxSize > 0 && total > maxSize {
				return total, &media.SizeLimitError{Limit: maxSize}
			}
			if _, writeErr := dst.Write(buf[:n]); writeErr != nil {
				return total, fmt.Errorf("s3store: buffer upload stream: %w", writeErr)
			}
		}
		if readErr == io.EOF {
			return total, nil
		}
		if readErr != nil {
			return total, fmt.Errorf("s3store: read upload stream: %w", readErr)
		}
	}
}

func (s *S3VideoStore) Open(ctx context.Context, url string) (io.ReadCloser, error) {
	userID, filename, ok := media.ParseVideoURL(url)
	if !ok {
		return nil, fmt.Errorf("s3store: not a video url: %q", url)
	}
	key := s.s3Key(userID, filename)
	resp, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, fs.ErrNotExist
		}
		return nil, fmt.Errorf("s3store: get object: %w", err)
	}
	return resp.Body, nil
}

func (s *S3VideoStore) Delete(ctx context.Context, url string) (bool, error) {
	userID, filename, ok := media.ParseVideoURL(url)
	if !ok {
		return false, nil
	}
	key := s.s3Key(userID, filename)

	// DeleteObject succeeds on absent keys, so probe first to keep the
	// not-found outcome distinct from a real deletion.
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return false, nil
		}
		return false, fmt.Errorf("s3store: head object: %w", err)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}); err != nil {
		return false, fmt.Errorf("s3store: delete object: %w", err)
	}
	return true, nil
}
