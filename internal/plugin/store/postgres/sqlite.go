package postgres

import (
	"context"
	"fmt"

	"github.com/emogo/journal-service/internal/config"
	"github.com/emogo/journal-service/internal/model"
	registrystore "github.com/emogo/journal-service/internal/registry/store"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// The sqlite backend reuses GormStore and is intended for single-node
// deployments and local development; --db-url takes a file path or :memory:.
func init() {
	registrystore.Register(registrystore.Plugin{
		Name: "sqlite",
		Loader: func(ctx context.Context) (registrystore.JournalStore, error) {
			cfg := config.FromContext(ctx)
			db, err := gorm.Open(sqlite.Open(cfg.DBURL), &gorm.Config{TranslateError: true})
			if err != nil {
				return nil, fmt.Errorf("failed to open sqlite database: %w", err)
			}
			if cfg.DatastoreMigrateAtStart {
				if err := db.AutoMigrate(&model.Entry{}, &model.User{}); err != nil {
					return nil, fmt.Errorf("sqlite migration failed: %w", err)
				}
			}
			return &GormStore{db: db, dialect: dialectSQLite}, nil
		},
	})
}
