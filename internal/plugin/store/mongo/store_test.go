package mongo_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/emogo/journal-service/internal/config"
	"github.com/emogo/journal-service/internal/model"
	"github.com/emogo/journal-service/internal/plugin/store/mongo"
	registrymigrate "github.com/emogo/journal-service/internal/registry/migrate"
	registrystore "github.com/emogo/journal-service/internal/registry/store"
	"github.com/emogo/journal-service/internal/testutil/testmongo"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) (registrystore.JournalStore, context.Context) {
	t.Helper()

	uri := testmongo.StartMongo(t)

	cfg := config.DefaultConfig()
	cfg.DBURL = uri
	cfg.DatastoreType = "mongo"
	cfg.MongoDatabase = "journal_test"
	ctx := config.WithContext(context.Background(), &cfg)

	// Ensure mongo store plugin is registered
	_ = mongo.ForceImport

	err := registrymigrate.RunAll(ctx)
	require.NoError(t, err)

	loader, err := registrystore.Select("mongo")
	require.NoError(t, err)

	store, err := loader(ctx)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, ctx
}

func strPtr(s string) *string { return &s }
func intPtr(i int) *int       { return &i }

func TestEntryLifecycle(t *testing.T) {
	store, ctx := setupTestStore(t)

	created, err := store.CreateEntry(ctx, registrystore.CreateEntryRequest{
		UserID:   "user1",
		ClientID: "client-1",
		Memo:     strPtr("hello"),
		Mood:     &model.Mood{Level: 5},
		Tags:     []string{"morning"},
	})
	require.NoError(t, err)
	assert.True(t, created.IsSynced)
	assert.NotNil(t, created.SyncedAt)

	got, err := store.GetEntry(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "hello", *got.Memo)
	assert.Equal(t, 5, got.Mood.Level)

	updated, err := store.UpdateEntry(ctx, created.ID, registrystore.EntryUpdate{Memo: strPtr("edited")})
	require.NoError(t, err)
	assert.Equal(t, "edited", *updated.Memo)
	assert.Equal(t, 5, updated.Mood.Level)

	removed, err := store.DeleteEntry(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = store.DeleteEntry(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, removed)

	var notFound *registrystore.NotFoundError
	_, err = store.GetEntry(ctx, created.ID)
	require.True(t, errors.As(err, &notFound))
	_, err = store.GetEntry(ctx, uuid.New())
	require.True(t, errors.As(err, &notFound))
}

func TestCreateEntry_DuplicateClientID(t *testing.T) {
	store, ctx := setupTestStore(t)

	req := registrystore.CreateEntryRequest{UserID: "user1", ClientID: "client-1"}
	_, err := store.CreateEntry(ctx, req)
	require.NoError(t, err)

	var conflict *registrystore.ConflictError
	_, err = store.CreateEntry(ctx, req)
	require.True(t, errors.As(err, &conflict), "expected ConflictError, got %v", err)

	_, err = store.CreateEntry(ctx, registrystore.CreateEntryRequest{UserID: "user2", ClientID: "client-1"})
	require.NoError(t, err)

	found, err := store.FindEntryByClientID(ctx, "client-1", "user2")
	require.NoError(t, err)
	assert.Equal(t, "user2", found.UserID)
}

func TestListEntries_Filters(t *testing.T) {
	store, ctx := setupTestStore(t)

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		createdAt := base.AddDate(0, 0, i)
		_, err := store.CreateEntry(ctx, registrystore.CreateEntryRequest{
			UserID:    "user1",
			ClientID:  fmt.Sprintf("client-%d", i),
			Mood:      &model.Mood{Level: i + 1},
			Tags:      []string{fmt.Sprintf("tag-%d", i)},
			CreatedAt: &createdAt,
		})
		require.NoError(t, err)
	}

	entries, total, err := store.ListEntries(ctx, registrystore.ListQuery{UserID: "user1", Limit: 3})
	require.NoError(t, err)
	assert.EqualValues(t, 4, total)
	require.Len(t, entries, 3)
	assert.Equal(t, "client-3", entries[0].ClientID, "newest first")

	entries, total, err = store.ListEntries(ctx, registrystore.ListQuery{UserID: "user1", MoodLevel: intPtr(2)})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, entries, 1)
	assert.Equal(t, "client-1", entries[0].ClientID)

	start := base.AddDate(0, 0, 2)
	_, total, err = store.ListEntries(ctx, registrystore.ListQuery{UserID: "user1", StartDate: &start})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	_, total, err = store.ListEntries(ctx, registrystore.ListQuery{UserID: "user1", Tags: []string{"tag-0", "tag-3"}})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	count, err := store.CountEntries(ctx, "user1")
	require.NoError(t, err)
	assert.EqualValues(t, 4, count)
}

func TestUsers(t *testing.T) {
	store, ctx := setupTestStore(t)

	alice, isNew, err := store.RegisterUser(ctx, "alice", strPtr("alice@example.com"), nil)
	require.NoError(t, err)
	assert.True(t, isNew)
	assert.Regexp(t, `^user_alice_\d+$`, alice.ID)

	again, isNew, err := store.RegisterUser(ctx, "alice", nil, nil)
	require.NoError(t, err)
	assert.False(t, isNew)
	assert.Equal(t, alice.ID, again.ID)
	assert.False(t, again.LastLogin.Before(alice.LastLogin))

	device := "phone-1"
	logged, err := store.LoginUser(ctx, "alice", &device)
	require.NoError(t, err)
	require.NotNil(t, logged.DeviceID)
	assert.Equal(t, "phone-1", *logged.DeviceID)

	found, err := store.FindUserByUsername(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, alice.ID, found.ID)

	var notFound *registrystore.NotFoundError
	_, err = store.FindUserByUsername(ctx, "nobody")
	require.True(t, errors.As(err, &notFound))
	_, err = store.LoginUser(ctx, "nobody", nil)
	require.True(t, errors.As(err, &notFound))

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
