// Package memory provides an in-process JournalStore used for tests and
// for running the service without an external database.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/emogo/journal-service/internal/model"
	"github.com/emogo/journal-service/internal/registry/store"
	"github.com/google/uuid"
)

func init() {
	store.Register(store.Plugin{
		Name: "memory",
		Loader: func(ctx context.Context) (store.JournalStore, error) {
			return New(), nil
		},
	})
}

// Store is a mutex-guarded in-memory JournalStore.
type Store struct {
	mu      sync.Mutex
	entries map[uuid.UUID]model.Entry
	// byClient indexes entries by "userID\x00clientID" to enforce the
	// unique composite key the durable backends enforce with an index.
	byClient map[string]uuid.UUID
	users    map[string]model.User
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		entries:  make(map[uuid.UUID]model.Entry),
		byClient: make(map[string]uuid.UUID),
		users:    make(map[string]model.User),
	}
}

func clientKey(userID, clientID string) string {
	return userID + "\x00" + clientID
}

func (s *Store) CreateEntry(ctx context.Context, req store.CreateEntryRequest) (*model.Entry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := clientKey(req.UserID, req.ClientID)
	if _, exists := s.byClient[key]; exists {
		return nil, &store.ConflictError{
			Message: fmt.Sprintf("entry with client_id %q already exists for user %q", req.ClientID, req.UserID),
		}
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
		Tags:      append([]string(nil), req.Tags...),
		CreatedAt: createdAt,
		UpdatedAt: now,
		SyncedAt:  &now,
		IsSynced:  true,
	}
	s.entries[entry.ID] = entry
	s.byClient[key] = entry.ID
	result := entry
	return &result, nil
}

func (s *Store) GetEntry(ctx context.Context, id uuid.UUID) (*model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, &store.NotFoundError{Resource: "entry", ID: id.String()}
	}
	result := entry
	return &result, nil
}

func (s *Store) FindEntryByClientID(ctx context.Context, clientID string, userID string) (*model.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, ok := s.byClient[clientKey(userID, clientID)]
	if !ok {
		return nil, &store.NotFoundError{Resource: "entry", ID: clientID}
	}
	result := s.entries[id]
	return &result, nil
}

func (s *Store) UpdateEntry(ctx context.Context, id uuid.UUID, update store.EntryUpdate) (*model.Entry, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return nil, &store.NotFoundError{Resource: "entry", ID: id.String()}
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
		entry.Tags = append([]string(nil), update.Tags...)
	}
	entry.UpdatedAt = time.Now().UTC()
	s.entries[id] = entry
	result := entry
	return &result, nil
}

func (s *Store) DeleteEntry(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	if !ok {
		return false, nil
	}
	delete(s.entries, id)
	delete(s.byClient, clientKey(entry.UserID, entry.ClientID))
	return true, nil
}

func (s *Store) ListEntries(ctx context.Context, query store.ListQuery) ([]model.Entry, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var matched []model.Entry
	for _, entry := range s.entries {
		if matches(entry, query) {
			matched = append(matched, entry)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	start := query.Skip
	if start > len(matched) {
		start = len(matched)
	}
	end := len(matched)
	if query.Limit > 0 && start+query.Limit < end {
		end = start + query.Limit
	}
	return append([]model.Entry(nil), matched[start:end]...), total, nil
}

func matches(entry model.Entry, query store.ListQuery) bool {
	if entry.UserID != query.UserID {
		return false
	}
	if query.StartDate != nil && entry.CreatedAt.Before(*query.StartDate) {
		return false
	}
	if query.EndDate != nil && entry.CreatedAt.After(*query.EndDate) {
		return false
	}
	if query.MoodLevel != nil {
		if entry.Mood == nil || entry.Mood.Level != *query.MoodLevel {
			return false
		}
	}
	if len(query.Tags) > 0 && !intersects(entry.Tags, query.Tags) {
		return false
	}
	return true
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func (s *Store) CountEntries(ctx context.Context, userID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var count int64
	for _, entry := range s.entries {
		if entry.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (s *Store) RegisterUser(ctx context.Context, username string, email *string, deviceID *string) (*model.User, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Username == username {
			u.LastLogin = time.Now().UTC()
			s.users[id] = u
			result := u
			return &result, false, nil
		}
	}
	now := time.Now().UTC()
	user := model.User{
		ID:        store.NewUserID(username, now),
		Username:  username,
		Email:     email,
		DeviceID:  deviceID,
		CreatedAt: now,
		LastLogin: now,
	}
	s.users[user.ID] = user
	result := user
	return &result, true, nil
}

func (s *Store) LoginUser(ctx context.Context, username string, deviceID *string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.Username == username {
			u.LastLogin = time.Now().UTC()
			if deviceID != nil {
				u.DeviceID = deviceID
			}
			s.users[id] = u
			result := u
			return &result, nil
		}
	}
	return nil, &store.NotFoundError{Resource: "user", ID: username}
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			result := u
			return &result, nil
		}
	}
	return nil, &store.NotFoundError{Resource: "user", ID: username}
}

func (s *Store) GetUser(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, &store.NotFoundError{Resource: "user", ID: id}
	}
	result := user
	return &result, nil
}

func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := make([]model.User, 0, len(s.users))
	for _, u := range s.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool {
		if !users[i].CreatedAt.Equal(users[j].CreatedAt) {
			return users[i].CreatedAt.After(users[j].CreatedAt)
		}
		return users[i].ID < users[j].ID
	})
	return users, nil
}

func (s *Store) Ping(ctx context.Context) error { return nil }

func (s *Store) Close() error { return nil }

