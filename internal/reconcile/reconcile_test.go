package reconcile

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/emogo/journal-service/internal/model"
	"github.com/emogo/journal-service/internal/plugin/store/memory"
	"github.com/emogo/journal-service/internal/registry/store"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func batch(userID string, clientIDs ...string) []store.CreateEntryRequest {
	records := make([]store.CreateEntryRequest, 0, len(clientIDs))
	for _, clientID := range clientIDs {
		records = append(records, store.CreateEntryRequest{
			UserID:   userID,
			ClientID: clientID,
			Memo:     strPtr("memo " + clientID),
		})
	}
	return records
}

func TestBatchSync_FreshBatch(t *testing.T) {
	engine := NewEngine(memory.New())

	result, err := engine.BatchSync(context.Background(), "user-1", batch("user-1", "a", "b", "c"))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, Counts{TotalReceived: 3, TotalSynced: 3}, result.Result)
	assert.Equal(t, "Sync complete: 3 entries synced", result.Message)

	seen := map[string]bool{}
	for _, status := range result.Statuses {
		assert.True(t, status.Success)
		assert.Nil(t, status.Error)
		require.NotNil(t, status.ServerID)
		seen[*status.ServerID] = true
	}
	assert.Len(t, seen, 3, "server ids are distinct")
}

func TestBatchSync_Idempotent(t *testing.T) {
	s := memory.New()
	engine := NewEngine(s)
	ctx := context.Background()
	records := batch("user-1", "a", "b", "c")

	first, err := engine.BatchSync(ctx, "user-1", records)
	require.NoError(t, err)
	require.Equal(t, 3, first.Result.TotalSynced)

	second, err := engine.BatchSync(ctx, "user-1", records)
	require.NoError(t, err)

	assert.True(t, second.Success, "duplicates are not failures")
	assert.Equal(t, Counts{TotalReceived: 3, TotalDuplicates: 3}, second.Result)
	assert.Equal(t, "Sync complete: 0 entries synced, 3 duplicates skipped", second.Message)

	// Zero net growth: replay did not insert anything.
	count, err := s.CountEntries(ctx, "user-1")
	require.NoError(t, err)
	assert.EqualValues(t, 3, count)

	// Duplicate statuses still carry the stored server id.
	for i, status := range second.Statuses {
		assert.Equal(t, *first.Statuses[i].ServerID, *status.ServerID)
		require.NotNil(t, status.Error)
		assert.Equal(t, "Duplicate entry, already synced", *status.Error)
	}
}

func TestBatchSync_PartialPreExistence(t *testing.T) {
	s := memory.New()
	engine := NewEngine(s)
	ctx := context.Background()

	// One of three already stored via direct create.
	_, err := s.CreateEntry(ctx, store.CreateEntryRequest{UserID: "user-1", ClientID: "b"})
	require.NoError(t, err)

	result, err := engine.BatchSync(ctx, "user-1", batch("user-1", "a", "b", "c"))
	require.NoError(t, err)

	assert.Equal(t, Counts{TotalReceived: 3, TotalSynced: 2, TotalDuplicates: 1}, result.Result)
	assert.True(t, result.Success)
}

func TestBatchSync_PartitionAndOrderPreserved(t *testing.T) {
	engine := NewEngine(memory.New())
	clientIDs := []string{"z", "m", "a", "q", "f"}

	result, err := engine.BatchSync(context.Background(), "user-1", batch("user-1", clientIDs...))
	require.NoError(t, err)

	c := result.Result
	assert.Equal(t, c.TotalReceived, c.TotalSynced+c.TotalFailed+c.TotalDuplicates)
	require.Len(t, result.Statuses, len(clientIDs))
	for i, clientID := range clientIDs {
		assert.Equal(t, clientID, result.Statuses[i].ClientID)
	}
}

func TestBatchSync_RecordFaultDoesNotAbortBatch(t *testing.T) {
	engine := NewEngine(memory.New())

	records := batch("user-1", "good-1")
	bad := store.CreateEntryRequest{
		UserID:   "user-1",
		ClientID: "bad",
		Mood:     &model.Mood{Level: 9},
	}
	records = append(records, bad)
	records = append(records, batch("user-1", "good-2")...)

	result, err := engine.BatchSync(context.Background(), "user-1", records)
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, Counts{TotalReceived: 3, TotalSynced: 2, TotalFailed: 1}, result.Result)
	assert.Equal(t, "Sync partially complete: 2 synced, 1 failed, 0 duplicates", result.Message)

	require.Len(t, result.Statuses, 3)
	assert.True(t, result.Statuses[0].Success)
	assert.False(t, result.Statuses[1].Success)
	require.NotNil(t, result.Statuses[1].Error)
	assert.True(t, result.Statuses[2].Success, "processing continued past the fault")
}

func TestBatchSync_CallerSuppliedCreatedAtPreserved(t *testing.T) {
	s := memory.New()
	engine := NewEngine(s)
	ctx := context.Background()

	authored := time.Date(2026, 2, 14, 22, 15, 0, 0, time.UTC)
	records := []store.CreateEntryRequest{{
		UserID:    "user-1",
		ClientID:  "offline-1",
		CreatedAt: &authored,
	}}

	result, err := engine.BatchSync(ctx, "user-1", records)
	require.NoError(t, err)
	require.Equal(t, 1, result.Result.TotalSynced)

	stored, err := s.FindEntryByClientID(ctx, "offline-1", "user-1")
	require.NoError(t, err)
	assert.Equal(t, authored, stored.CreatedAt)
	assert.True(t, stored.IsSynced)
}

func TestBatchSync_DuplicateDoesNotMutateStoredEntry(t *testing.T) {
	s := memory.New()
	engine := NewEngine(s)
	ctx := context.Background()

	_, err := engine.BatchSync(ctx, "user-1", batch("user-1", "a"))
	require.NoError(t, err)
	before, err := s.FindEntryByClientID(ctx, "a", "user-1")
	require.NoError(t, err)

	replay := batch("user-1", "a")
	replay[0].Memo = strPtr("changed memo")
	_, err = engine.BatchSync(ctx, "user-1", replay)
	require.NoError(t, err)

	after, err := s.FindEntryByClientID(ctx, "a", "user-1")
	require.NoError(t, err)
	assert.Equal(t, before.UpdatedAt, after.UpdatedAt)
	assert.Equal(t, before.Memo, after.Memo)
}

func TestBatchSync_BatchOwnerFillsMissingUserID(t *testing.T) {
	s := memory.New()
	engine := NewEngine(s)
	ctx := context.Background()

	result, err := engine.BatchSync(ctx, "user-1", []store.CreateEntryRequest{{ClientID: "a"}})
	require.NoError(t, err)
	require.Equal(t, 1, result.Result.TotalSynced)

	_, err = s.FindEntryByClientID(ctx, "a", "user-1")
	require.NoError(t, err)
}

func TestBatchSync_UsesInjectedClock(t *testing.T) {
	frozen := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	engine := NewEngine(memory.New(), WithClock(func() time.Time { return frozen }))

	result, err := engine.BatchSync(context.Background(), "user-1", nil)
	require.NoError(t, err)
	assert.Equal(t, frozen, result.SyncedAt)
	assert.Equal(t, Counts{}, result.Result)
}

func TestCheckStatus(t *testing.T) {
	s := memory.New()
	engine := NewEngine(s)
	ctx := context.Background()

	created, err := s.CreateEntry(ctx, store.CreateEntryRequest{UserID: "user-1", ClientID: "known"})
	require.NoError(t, err)

	statuses, err := engine.CheckStatus(ctx, "user-1", []string{"known", "unknown"})
	require.NoError(t, err)
	require.Len(t, statuses, 2)

	assert.True(t, statuses[0].Success)
	assert.Equal(t, created.ID.String(), *statuses[0].ServerID)

	assert.False(t, statuses[1].Success)
	require.NotNil(t, statuses[1].Error)
	assert.Equal(t, "Not found on server", *statuses[1].Error)
}

// conflictStore reports not-found on lookup but conflicts on insert, the
// shape of a concurrent duplicate slipping in between the two calls.
type conflictStore struct {
	*memory.Store
	entry *model.Entry
}

func (c *conflictStore) FindEntryByClientID(ctx context.Context, clientID, userID string) (*model.Entry, error) {
	if c.entry != nil {
		return c.entry, nil
	}
	return nil, &store.NotFoundError{Resource: "entry", ID: clientID}
}

func (c *conflictStore) CreateEntry(ctx context.Context, req store.CreateEntryRequest) (*model.Entry, error) {
	c.entry = &model.Entry{ID: uuid.New(), UserID: req.UserID, ClientID: req.ClientID}
	return nil, &store.ConflictError{Message: fmt.Sprintf("entry with client_id %q already exists", req.ClientID)}
}

func TestBatchSync_InsertConflictReportedAsDuplicate(t *testing.T) {
	cs := &conflictStore{Store: memory.New()}
	engine := NewEngine(cs)

	result, err := engine.BatchSync(context.Background(), "user-1", batch("user-1", "raced"))
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, Counts{TotalReceived: 1, TotalDuplicates: 1}, result.Result)
	require.Len(t, result.Statuses, 1)
	assert.Equal(t, cs.entry.ID.String(), *result.Statuses[0].ServerID)
}

// failingStore fails every lookup with a storage fault.
type failingStore struct {
	*memory.Store
}

func (f *failingStore) FindEntryByClientID(ctx context.Context, clientID, userID string) (*model.Entry, error) {
	return nil, &store.StorageError{Op: "find", Err: errors.New("connection reset")}
}

func TestBatchSync_LookupFaultMarksRecordFailed(t *testing.T) {
	engine := NewEngine(&failingStore{Store: memory.New()})

	result, err := engine.BatchSync(context.Background(), "user-1", batch("user-1", "a"))
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, Counts{TotalReceived: 1, TotalFailed: 1}, result.Result)
}
