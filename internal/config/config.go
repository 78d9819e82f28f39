package config

import (
	"context"
	"os"
	"strings"
	"time"
)

// ListenerConfig holds the network settings for a single listener (main or management).
type ListenerConfig struct {
	Port              int
	ReadHeaderTimeout time.Duration
}

type contextKey struct{}

// WithContext returns a new context carrying the given Config.
func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext retrieves the Config from the context.
func FromContext(ctx context.Context) *Config {
	cfg, _ := ctx.Value(contextKey{}).(*Config)
	return cfg
}

// Config holds all configuration for the journal service.
type Config struct {
	// Database
	DBURL string

	// Run datastore migrations on startup.
	DatastoreMigrateAtStart bool

	// Datastore backend type
	DatastoreType string // "postgres", "mongo", or "memory"

	// Mongo database name, used when the connection URL has no path component.
	MongoDatabase string

	// Media store type
	MediaType string // "local" or "s3"

	// Media behavior.
	MediaMaxSize   int64  // upload size ceiling in bytes
	MediaLocalDir  string // root directory for the "local" media store
	MediaPublicURL string // external base URL advertised in video URLs

	// MetricsLabels is a comma-separated list of key=value pairs added as
	// constant labels to all Prometheus metrics. Values support ${VAR} expansion.
	// Defaults to "service=journal-service".
	MetricsLabels string

	// S3
	S3Bucket       string
	S3Prefix       string
	S3UsePathStyle bool

	// Server
	Listener           ListenerConfig
	ManagementListener ListenerConfig
	// ManagementListenerEnabled is true when --management-port (or JOURNAL_SERVICE_MANAGEMENT_PORT)
	// was explicitly provided. When false, management endpoints are served on the main port.
	ManagementListenerEnabled bool
	// ManagementAccessLog enables HTTP access logging for management endpoints (/health, /ready, /metrics).
	// Disabled by default to suppress high-frequency probe noise from the access log.
	ManagementAccessLog bool
	CORSEnabled         bool
	CORSOrigins         string

	// Body size limit for non-upload requests (bytes)
	MaxBodySize int64

	// Listing defaults.
	DefaultPageSize int
	MaxPageSize     int

	// Temporary file directory. Empty uses platform default temp directory.
	TempDir string

	// Graceful shutdown drain timeout (seconds)
	DrainTimeout int

	// DB pool
	DBMaxOpenConns int
	DBMaxIdleConns int
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DatastoreType:           "postgres",
		DatastoreMigrateAtStart: true,
		MongoDatabase:           "journal",
		MediaType:               "local",
		MediaMaxSize:            100 * 1024 * 1024, // 100 MB
		MediaLocalDir:           "uploads/videos",
		Listener: ListenerConfig{
			Port:              8080,
			ReadHeaderTimeout: 5 * time.Second,
		},
		MaxBodySize:     1 * 1024 * 1024, // JSON bodies only; uploads are exempt
		DefaultPageSize: 20,
		MaxPageSize:     100,
		DrainTimeout:    30,
		DBMaxOpenConns:  25,
		DBMaxIdleConns:  5,
	}
}

// ResolvedTempDir returns the configured temp directory or the platform default.
func (c *Config) ResolvedTempDir() string {
	if c == nil {
		return os.TempDir()
	}
	if dir := strings.TrimSpace(c.TempDir); dir != "" {
		return dir
	}
	return os.TempDir()
}
