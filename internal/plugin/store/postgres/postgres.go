// Package postgres implements JournalStore using GORM. The same store
// serves the "postgres" and "sqlite" backends; only the JSON predicate SQL
// differs per dialect.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emogo/journal-service/internal/config"
	"github.com/emogo/journal-service/internal/model"
	registrymigrate "github.com/emogo/journal-service/internal/registry/migrate"
	registrystore "github.com/emogo/journal-service/internal/registry/store"
	"github.com/emogo/journal-service/internal/telemetry"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	registrystore.Register(registrystore.Plugin{
		Name: "postgres",
		Loader: func(ctx context.Context) (registrystore.JournalStore, error) {
			cfg := config.FromContext(ctx)
			db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{TranslateError: true})
			if err != nil {
				return nil, fmt.Errorf("failed to connect to postgres: %w", err)
			}
			sqlDB, err := db.DB()
			if err != nil {
				return nil, fmt.Errorf("failed to get underlying db: %w", err)
			}
			sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConns)
			sqlDB.SetMaxIdleConns(cfg.DBMaxIdleConns)
			if telemetry.DBPoolMaxConnections != nil {
				telemetry.DBPoolMaxConnections.Set(float64(cfg.DBMaxOpenConns))
			}

			// Periodically update the open connections gauge.
			go func() {
				ticker := time.NewTicker(15 * time.Second)
				defer ticker.Stop()
				for {
					select {
					case <-ctx.Done():
						return
					case <-ticker.C:
						if telemetry.DBPoolOpenConnections != nil {
							telemetry.DBPoolOpenConnections.Set(float64(sqlDB.Stats().OpenConnections))
						}
					}
				}
			}()

			return &GormStore{db: db, dialect: dialectPostgres}, nil
		},
	})

	registrymigrate.Register(registrymigrate.Plugin{Order: 100, Migrator: &postgresMigrator{}})
}

type postgresMigrator struct{}

func (m *postgresMigrator) Name() string { return "postgres-schema" }
func (m *postgresMigrator) Migrate(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	if cfg == nil || !cfg.DatastoreMigrateAtStart {
		return nil
	}
	if cfg.DatastoreType != "" && cfg.DatastoreType != "postgres" {
		return nil // skip if not using postgres
	}
	log.Info("Running migration", "name", m.Name())
	db, err := gorm.Open(postgres.Open(cfg.DBURL), &gorm.Config{})
	if err != nil {
		return fmt.Errorf("migration: failed to connect: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	// Read and execute embedded schema
	if _, err := sqlDB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("migration: failed to execute schema: %w", err)
	}
	log.Info("Postgres schema migration complete")
	return nil
}

const (
	dialectPostgres = "postgres"
	dialectSQLite   = "sqlite"
)

// GormStore implements JournalStore using GORM over PostgreSQL or SQLite.
type GormStore struct {
	db      *gorm.DB
	dialect string
}

func (s *GormStore) CreateEntry(ctx context.Context, req registrystore.CreateEntryRequest) (*model.Entry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	createdAt := now
	if req.CreatedAt != nil {
		createdAt = req.CreatedAt.UTC()
	}
	entry := model.Entry{
		ID:        uuid.New(),
		UserID:    req.UserID,
		ClientID:  req.ClientID,
		Memo:      req.Memo,
		Mood:      req.Mood,
		Video:     req.Video,
		Location:  req.Location,
		Tags:      req.Tags,
		CreatedAt: createdAt,
		UpdatedAt: now,
		SyncedAt:  &now,
		IsSynced:  true,
	}

	if err := s.db.WithContext(ctx).Create(&entry).Error; err != nil {
		if isDuplicateKey(err) {
			return nil, &registrystore.ConflictError{
				Message: fmt.Sprintf("entry with client_id %q already exists for user %q", req.ClientID, req.UserID),
			}
		}
		return nil, &registrystore.StorageError{Op: "insert entry", Err: err}
	}
	return &entry, nil
}

// isDuplicateKey recognizes unique constraint violations from both dialects.
func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *GormStore) GetEntry(ctx context.Context, id uuid.UUID) (*model.Entry, error) {
	var entry model.Entry
	err := s.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &registrystore.NotFoundError{Resource: "entry", ID: id.String()}
	}
	if err != nil {
		return nil, &registrystore.StorageError{Op: "get entry", Err: err}
	}
	return &entry, nil
}

func (s *GormStore) FindEntryByClientID(ctx context.Context, clientID string, userID string) (*model.Entry, error) {
	var entry model.Entry
	err := s.db.WithContext(ctx).First(&entry, "client_id = ? AND user_id = ?", clientID, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &registrystore.NotFoundError{Resource: "entry", ID: clientID}
	}
	if err != nil {
		return nil, &registrystore.StorageError{Op: "find entry by client_id", Err: err}
	}
	return &entry, nil
}

func (s *GormStore) UpdateEntry(ctx context.Context, id uuid.UUID, update registrystore.EntryUpdate) (*model.Entry, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	var entry model.Entry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&entry, "id = ?", id).Error; err != nil {
			return err
		}
		if update.Memo != nil {
			entry.Memo = update.Memo
		}
		if update.Mood != nil {
			entry.Mood = update.Mood
		}
		if update.Video != nil {
			entry.Video = update.Video
		}
		if update.Location != nil {
			entry.Location = update.Location
		}
		if update.Tags != nil {
			entry.Tags = update.Tags
		}
		entry.UpdatedAt = time.Now().UTC()
		return tx.Save(&entry).Error
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &registrystore.NotFoundError{Resource: "entry", ID: id.String()}
	}
	if err != nil {
		return nil, &registrystore.StorageError{Op: "update entry", Err: err}
	}
	return &entry, nil
}

func (s *GormStore) DeleteEntry(ctx context.Context, id uuid.UUID) (bool, error) {
	result := s.db.WithContext(ctx).Delete(&model.Entry{}, "id = ?", id)
	if result.Error != nil {
		return false, &registrystore.StorageError{Op: "delete entry", Err: result.Error}
	}
	return result.RowsAffected > 0, nil
}

// listScope builds the conjunctive filter. JSON predicates differ per
// dialect: Postgres queries jsonb directly, SQLite goes through json1.
func (s *GormStore) listScope(query registrystore.ListQuery) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		db = db.Where("user_id = ?", query.UserID)
		if query.StartDate != nil {
			db = db.Where("created_at >= ?", *query.StartDate)
		}
		if query.EndDate != nil {
			db = db.Where("created_at <= ?", *query.EndDate)
		}
		if query.MoodLevel != nil {
			if s.dialect == dialectSQLite {
				db = db.Where("json_extract(mood, '$.level') = ?", *query.MoodLevel)
			} else {
				db = db.Where("(mood ->> 'level')::int = ?", *query.MoodLevel)
			}
		}
		if len(query.Tags) > 0 {
			if s.dialect == dialectSQLite {
				db = db.Where("EXISTS (SELECT 1 FROM json_each(entries.tags) WHERE json_each.value IN ?)", query.Tags)
			} else {
				db = db.Where("jsonb_exists_any(tags, ?::text[])", pgTextArray(query.Tags))
			}
		}
		return db
	}
}

// pgTextArray renders tags as a Postgres text[] literal so the slice binds
// as one parameter instead of being expanded into an IN list.
func pgTextArray(values []string) string {
	var b strings.Builder
	b.WriteByte('{')
	for i, v := range values {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(strings.ReplaceAll(v, `\`, `\\`), `"`, `\"`))
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String()
}

func (s *GormStore) ListEntries(ctx context.Context, query registrystore.ListQuery) ([]model.Entry, int64, error) {
	scope := s.listScope(query)

	var total int64
	if err := s.db.WithContext(ctx).Model(&model.Entry{}).Scopes(scope).Count(&total).Error; err != nil {
		return nil, 0, &registrystore.StorageError{Op: "count entries", Err: err}
	}

	tx := s.db.WithContext(ctx).Scopes(scope).Order("created_at DESC").Offset(query.Skip)
	if query.Limit > 0 {
		tx = tx.Limit(query.Limit)
	}
	var entries []model.Entry
	if err := tx.Find(&entries).Error; err != nil {
		return nil, 0, &registrystore.StorageError{Op: "list entries", Err: err}
	}
	return entries, total, nil
}

func (s *GormStore) CountEntries(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Model(&model.Entry{}).Where("user_id = ?", userID).Count(&total).Error
	if err != nil {
		return 0, &registrystore.StorageError{Op: "count entries", Err: err}
	}
	return total, nil
}

func (s *GormStore) RegisterUser(ctx context.Context, username string, email *string, deviceID *string) (*model.User, bool, error) {
	// Registering an existing username acts as a login: record the login
	// time and hand back the existing account.
	existing, err := s.touchLogin(ctx, username, nil)
	if err == nil {
		return existing, false, nil
	}
	var notFound *registrystore.NotFoundError
	if !errors.As(err, &notFound) {
		return nil, false, err
	}

	now := time.Now().UTC()
	user := model.User{
		ID:        registrystore.NewUserID(username, now),
		Username:  username,
		Email:     email,
		DeviceID:  deviceID,
		CreatedAt: now,
		LastLogin: now,
	}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		return nil, false, &registrystore.StorageError{Op: "insert user", Err: err}
	}
	return &user, true, nil
}

func (s *GormStore) LoginUser(ctx context.Context, username string, deviceID *string) (*model.User, error) {
	return s.touchLogin(ctx, username, deviceID)
}

// touchLogin bumps last_login for the named user, also recording the device
// when one is given.
func (s *GormStore) touchLogin(ctx context.Context, username string, deviceID *string) (*model.User, error) {
	user, err := s.FindUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	updates := map[string]any{"last_login": now}
	user.LastLogin = now
	if deviceID != nil {
		updates["device_id"] = *deviceID
		user.DeviceID = deviceID
	}
	if err := s.db.WithContext(ctx).Model(&model.User{}).
		Where("id = ?", user.ID).
		Updates(updates).Error; err != nil {
		return nil, &registrystore.StorageError{Op: "update user login", Err: err}
	}
	return user, nil
}

func (s *GormStore) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "username = ?", username).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &registrystore.NotFoundError{Resource: "user", ID: username}
	}
	if err != nil {
		return nil, &registrystore.StorageError{Op: "find user", Err: err}
	}
	return &user, nil
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, &registrystore.NotFoundError{Resource: "user", ID: id}
	}
	if err != nil {
		return nil, &registrystore.StorageError{Op: "get user", Err: err}
	}
	return &user, nil
}

func (s *GormStore) ListUsers(ctx context.Context) ([]model.User, error) {
	var users []model.User
	if err := s.db.WithContext(ctx).Order("created_at DESC, id").Find(&users).Error; err != nil {
		return nil, &registrystore.StorageError{Op: "list users", Err: err}
	}
	return users, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
