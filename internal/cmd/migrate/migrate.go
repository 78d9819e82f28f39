package migrate

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/emogo/journal-service/internal/config"
	registrymigrate "github.com/emogo/journal-service/internal/registry/migrate"
	"github.com/urfave/cli/v3"

	// Import plugins to trigger init() registration of their migrators.
	// Store plugins register their own migrators alongside their primary interface.
	_ "github.com/emogo/journal-service/internal/plugin/store/mongo"
	_ "github.com/emogo/journal-service/internal/plugin/store/postgres"
)

// Command returns the migrate sub-command.
func Command() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Run database migrations",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "db-url",
				Sources:  cli.EnvVars("JOURNAL_SERVICE_DB_URL"),
				Usage:    "Database connection URL",
				Required: true,
			},
			&cli.StringFlag{
				Name:    "db-kind",
				Sources: cli.EnvVars("JOURNAL_SERVICE_DB_KIND"),
				Usage:   "Store backend (postgres|mongo|sqlite)",
				Value:   "postgres",
			},
			&cli.StringFlag{
				Name:    "db-mongo-database",
				Sources: cli.EnvVars("JOURNAL_SERVICE_DB_MONGO_DATABASE"),
				Usage:   "Mongo database name when the connection URL has no path component",
				Value:   "journal",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg := config.DefaultConfig()
			cfg.DBURL = cmd.String("db-url")
			cfg.DatastoreType = cmd.String("db-kind")
			cfg.MongoDatabase = cmd.String("db-mongo-database")
			cfg.DatastoreMigrateAtStart = true
			ctx = config.WithContext(ctx, &cfg)

			log.Info("Running migrations...")
			if err := registrymigrate.RunAll(ctx); err != nil {
				return err
			}
			log.Info("All migrations completed successfully")
			return nil
		},
	}
}
