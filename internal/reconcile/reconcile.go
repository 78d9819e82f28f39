// Package reconcile implements the offline-sync reconciliation engine: it
// merges a batch of client-authored journal records into the store exactly
// once per (user_id, client_id) pair, reporting a deterministic per-record
// outcome even under partial failure.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emogo/journal-service/internal/registry/store"
)

const duplicateMessage = "Duplicate entry, already synced"

// RecordStatus is the per-record outcome of a batch sync or status check.
// Statuses are emitted in input order so callers can zip them back to
// client-side records positionally.
type RecordStatus struct {
	ClientID string  `json:"client_id"`
	Success  bool    `json:"success"`
	ServerID *string `json:"server_id,omitempty"`
	Error    *string `json:"error,omitempty"`
}

// Counts aggregates a batch outcome. Synced, Failed and Duplicates always
// partition Received exactly.
type Counts struct {
	TotalReceived   int `json:"total_received"`
	TotalSynced     int `json:"total_synced"`
	TotalFailed     int `json:"total_failed"`
	TotalDuplicates int `json:"total_duplicates"`
}

// BatchResult is the full batch sync response payload.
type BatchResult struct {
	Success  bool           `json:"success"`
	Message  string         `json:"message"`
	Result   Counts         `json:"result"`
	Statuses []RecordStatus `json:"statuses"`
	SyncedAt time.Time      `json:"synced_at"`
}

// Engine reconciles client-authored batches against a JournalStore.
type Engine struct {
	store store.JournalStore
	now   func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock overrides the engine's time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine returns an Engine backed by the given store.
func NewEngine(s store.JournalStore, opts ...Option) *Engine {
	e := &Engine{store: s, now: time.Now}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// BatchSync reconciles the records in input order. A record whose
// (user_id, client_id) already exists is reported as a duplicate success
// without mutating the stored entry; a record that fails to persist is
// reported as failed and does not abort the batch.
func (e *Engine) BatchSync(ctx context.Context, userID string, records []store.CreateEntryRequest) (*BatchResult, error) {
	statuses := make([]RecordStatus, 0, len(records))
	counts := Counts{TotalReceived: len(records)}

	for _, record := range records {
		if record.UserID == "" {
			record.UserID = userID
		}
		status := e.reconcileOne(ctx, record)
		switch {
		case !status.Success:
			counts.TotalFailed++
		case status.Error != nil:
			counts.TotalDuplicates++
		default:
			counts.TotalSynced++
		}
		statuses = append(statuses, status)
	}

	return &BatchResult{
		Success:  counts.TotalFailed == 0,
		Message:  syncMessage(counts),
		Result:   counts,
		Statuses: statuses,
		SyncedAt: e.now().UTC(),
	}, nil
}

// reconcileOne decides insert, duplicate, or failed for a single record.
func (e *Engine) reconcileOne(ctx context.Context, record store.CreateEntryRequest) RecordStatus {
	existing, err := e.store.FindEntryByClientID(ctx, record.ClientID, record.UserID)
	if err == nil {
		return duplicateStatus(record.ClientID, existing.ID.String())
	}
	var notFound *store.NotFoundError
	if !errors.As(err, &notFound) {
		return failedStatus(record.ClientID, err)
	}

	created, err := e.store.CreateEntry(ctx, record)
	if err == nil {
		id := created.ID.String()
		return RecordStatus{ClientID: record.ClientID, Success: true, ServerID: &id}
	}

	// A concurrent batch may have inserted the same pair between the lookup
	// and the create; the store's unique index turns that into a conflict,
	// which is just a late-detected duplicate.
	var conflict *store.ConflictError
	if errors.As(err, &conflict) {
		existing, findErr := e.store.FindEntryByClientID(ctx, record.ClientID, record.UserID)
		if findErr == nil {
			return duplicateStatus(record.ClientID, existing.ID.String())
		}
		log.Warn("conflict on insert but entry not found on re-read", "clientId", record.ClientID, "err", findErr)
		return failedStatus(record.ClientID, findErr)
	}

	log.Error("failed to persist synced entry", "clientId", record.ClientID, "err", err)
	return failedStatus(record.ClientID, err)
}

// CheckStatus reports, for each client_id in order, whether a matching
// entry exists server-side. Pure read, no side effects.
func (e *Engine) CheckStatus(ctx context.Context, userID string, clientIDs []string) ([]RecordStatus, error) {
	statuses := make([]RecordStatus, 0, len(clientIDs))
	for _, clientID := range clientIDs {
		existing, err := e.store.FindEntryByClientID(ctx, clientID, userID)
		switch {
		case err == nil:
			id := existing.ID.String()
			statuses = append(statuses, RecordStatus{ClientID: clientID, Success: true, ServerID: &id})
		case isNotFound(err):
			msg := "Not found on server"
			statuses = append(statuses, RecordStatus{ClientID: clientID, Success: false, Error: &msg})
		default:
			return nil, err
		}
	}
	return statuses, nil
}

func duplicateStatus(clientID, serverID string) RecordStatus {
	msg := duplicateMessage
	return RecordStatus{ClientID: clientID, Success: true, ServerID: &serverID, Error: &msg}
}

func failedStatus(clientID string, err error) RecordStatus {
	msg := err.Error()
	return RecordStatus{ClientID: clientID, Success: false, Error: &msg}
}

func isNotFound(err error) bool {
	var notFound *store.NotFoundError
	return errors.As(err, &notFound)
}

func syncMessage(c Counts) string {
	switch {
	case c.TotalFailed == 0 && c.TotalDuplicates == 0:
		return fmt.Sprintf("Sync complete: %d entries synced", c.TotalSynced)
	case c.TotalFailed == 0:
		return fmt.Sprintf("Sync complete: %d entries synced, %d duplicates skipped", c.TotalSynced, c.TotalDuplicates)
	default:
		return fmt.Sprintf("Sync partially complete: %d synced, %d failed, %d duplicates", c.TotalSynced, c.TotalFailed, c.TotalDuplicates)
	}
}
