package mongo

import (
	"context"
	"testing"

	"github.com/emogo/journal-service/internal/config"
	"github.com/stretchr/testify/require"
)

func TestMigrator_SkipsWithoutConfig(t *testing.T) {
	require.NoError(t, (&mongoMigrator{}).Migrate(context.Background()))
}

func TestMigrator_SkipsForOtherDatastore(t *testing.T) {
	cfg := config.DefaultConfig()
	ctx := config.WithContext(context.Background(), &cfg)
	require.NoError(t, (&mongoMigrator{}).Migrate(ctx))
}
