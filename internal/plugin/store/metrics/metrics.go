package metrics

import (
	"context"
	"time"

	"github.com/emogo/journal-service/internal/model"
	"github.com/emogo/journal-service/internal/registry/store"
	"github.com/emogo/journal-service/internal/telemetry"
	"github.com/google/uuid"
)

// Wrap returns a JournalStore that records StoreLatency for every operation.
func Wrap(inner store.JournalStore) store.JournalStore {
	return &metricsStore{inner: inner}
}

type metricsStore struct {
	inner store.JournalStore
}

func observe(op string, start time.Time) {
	telemetry.StoreLatency.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (m *metricsStore) CreateEntry(ctx context.Context, req store.CreateEntryRequest) (*model.Entry, error) {
	defer observe("create_entry", time.Now())
	return m.inner.CreateEntry(ctx, req)
}

func (m *metricsStore) GetEntry(ctx context.Context, id uuid.UUID) (*model.Entry, error) {
	defer observe("get_entry", time.Now())
	return m.inner.GetEntry(ctx, id)
}

func (m *metricsStore) FindEntryByClientID(ctx context.Context, clientID string, userID string) (*model.Entry, error) {
	defer observe("find_entry_by_client_id", time.Now())
	return m.inner.FindEntryByClientID(ctx, clientID, userID)
}

func (m *metricsStore) UpdateEntry(ctx context.Context, id uuid.UUID, update store.EntryUpdate) (*model.Entry, error) {
	defer observe("update_entry", time.Now())
	return m.inner.UpdateEntry(ctx, id, update)
}

func (m *metricsStore) DeleteEntry(ctx context.Context, id uuid.UUID) (bool, error) {
	defer observe("delete_entry", time.Now())
	return m.inner.DeleteEntry(ctx, id)
}

func (m *metricsStore) ListEntries(ctx context.Context, query store.ListQuery) ([]model.Entry, int64, error) {
	defer observe("list_entries", time.Now())
	return m.inner.ListEntries(ctx, query)
}

func (m *metricsStore) CountEntries(ctx context.Context, userID string) (int64, error) {
	defer observe("count_entries", time.Now())
	return m.inner.CountEntries(ctx, userID)
}

func (m *metricsStore) RegisterUser(ctx context.Context, username string, email *string, deviceID *string) (*model.User, bool, error) {
	defer observe("register_user", time.Now())
	return m.inner.RegisterUser(ctx, username, email, deviceID)
}

func (m *metricsStore) LoginUser(ctx context.Context, username string, deviceID *string) (*model.User, error) {
	defer observe("login_user", time.Now())
	return m.inner.LoginUser(ctx, username, deviceID)
}

func (m *metricsStore) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	defer observe("find_user_by_username", time.Now())
	return m.inner.FindUserByUsername(ctx, username)
}

func (m *metricsStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	defer observe("get_user", time.Now())
	return m.inner.GetUser(ctx, id)
}

func (m *metricsStore) ListUsers(ctx context.Context) ([]model.User, error) {
	defer observe("list_users", time.Now())
	return m.inner.ListUsers(ctx)
}

func (m *metricsStore) Ping(ctx context.Context) error {
	defer observe("ping", time.Now())
	return m.inner.Ping(ctx)
}

func (m *metricsStore) Close() error {
	return m.inner.Close()
}
