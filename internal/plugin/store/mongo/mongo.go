// Package mongo implements JournalStore on MongoDB. UUIDs are stored as
// strings in _id fields; the (user_id, client_id) pair is guarded by a
// unique compound index so concurrent creates surface as duplicate-key
// errors rather than double inserts.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/emogo/journal-service/internal/config"
	"github.com/emogo/journal-service/internal/model"
	registrymigrate "github.com/emogo/journal-service/internal/registry/migrate"
	registrystore "github.com/emogo/journal-service/internal/registry/store"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

func init() {
	registrystore.Register(registrystore.Plugin{
		Name: "mongo",
		Loader: func(ctx context.Context) (registrystore.JournalStore, error) {
			cfg := config.FromContext(ctx)
			opts := options.Client().ApplyURI(cfg.DBURL)
			if cfg.DBMaxOpenConns > 0 {
				opts.SetMaxPoolSize(uint64(cfg.DBMaxOpenConns))
			}
			if cfg.DBMaxIdleConns > 0 {
				opts.SetMinPoolSize(uint64(cfg.DBMaxIdleConns))
			}
			client, err := mongo.Connect(opts)
			if err != nil {
				return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
			}
			if err := client.Ping(ctx, nil); err != nil {
				return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
			}
			return &MongoStore{
				client: client,
				db:     client.Database(cfg.MongoDatabase),
			}, nil
		},
	})

	registrymigrate.Register(registrymigrate.Plugin{Order: 100, Migrator: &mongoMigrator{}})
}

type mongoMigrator struct{}

func (m *mongoMigrator) Name() string { return "mongo-schema" }
func (m *mongoMigrator) Migrate(ctx context.Context) error {
	cfg := config.FromContext(ctx)
	if cfg == nil || !cfg.DatastoreMigrateAtStart {
		return nil
	}
	if cfg.DatastoreType != "mongo" {
		return nil // skip if not using mongo
	}

	log.Info("Running migration", "name", m.Name())
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.DBURL))
	if err != nil {
		return fmt.Errorf("mongo migration: failed to connect: %w", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(cfg.MongoDatabase)

	collections := map[string][]mongo.IndexModel{
		"entries": {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "client_id", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("unique_user_client"),
			},
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "tags", Value: 1}}},
		},
		"users": {
			{Keys: bson.D{{Key: "username", Value: 1}}},
		},
	}

	for name, indexes := range collections {
		// Ensure collection exists
		db.CreateCollection(ctx, name)
		if len(indexes) > 0 {
			if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
				return fmt.Errorf("mongo migration: failed to create indexes for %s: %w", name, err)
			}
		}
	}

	log.Info("MongoDB schema migration complete")
	return nil
}

// MongoStore implements JournalStore using MongoDB.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// ForceImport is a no-op variable that can be referenced to ensure this package's init() runs.
var ForceImport = 0

type entryDoc struct {
	ID        string          `bson:"_id"`
	UserID    string          `bson:"user_id"`
	ClientID  string          `bson:"client_id"`
	Memo      *string         `bson:"memo,omitempty"`
	Mood      *model.Mood     `bson:"mood,omitempty"`
	Video     *model.Video    `bson:"video,omitempty"`
	Location  *model.Location `bson:"location,omitempty"`
	Tags      []string        `bson:"tags,omitempty"`
	CreatedAt time.Time       `bson:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at"`
	SyncedAt  *time.Time      `bson:"synced_at,omitempty"`
	IsSynced  bool            `bson:"is_synced"`
}

func (d entryDoc) asModel() (*model.Entry, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid entry id %q: %w", d.ID, err)
	}
	return &model.Entry{
		ID:        id,
		UserID:    d.UserID,
		ClientID:  d.ClientID,
		Memo:      d.Memo,
		Mood:      d.Mood,
		Video:     d.Video,
		Location:  d.Location,
		Tags:      d.Tags,
		CreatedAt: d.CreatedAt,
		UpdatedAt: d.UpdatedAt,
		SyncedAt:  d.SyncedAt,
		IsSynced:  d.IsSynced,
	}, nil
}

type userDoc struct {
	ID        string    `bson:"_id"`
	Username  string    `bson:"username"`
	Email     *string   `bson:"email,omitempty"`
	DeviceID  *string   `bson:"device_id,omitempty"`
	CreatedAt time.Time `bson:"created_at"`
	LastLogin time.Time `bson:"last_login"`
}

func (d userDoc) asModel() *model.User {
	return &model.User{
		ID:        d.ID,
		Username:  d.Username,
		Email:     d.Email,
		DeviceID:  d.DeviceID,
		CreatedAt: d.CreatedAt,
		LastLogin: d.LastLogin,
	}
}

// --- Collection accessors ---

func (s *MongoStore) entries() *mongo.Collection { return s.db.Collection("entries") }
func (s *MongoStore) users() *mongo.Collection   { return s.db.Collection("users") }

// --- Entries ---

func (s *MongoStore) CreateEntry(ctx context.Context, req registrystore.CreateEntryRequest) (*model.Entry, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	createdAt := now
	if req.CreatedAt != nil {
		createdAt = req.CreatedAt.UTC()
	}
	doc := entryDoc{
		ID:        uuid.New().String(),
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

	if _, err := s.entries().InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, &registrystore.ConflictError{
				Message: fmt.Sprintf("entry with client_id %q already exists for user %q", req.ClientID, req.UserID),
			}
		}
		return nil, &registrystore.StorageError{Op: "insert entry", Err: err}
	}
	return doc.asModel()
}

func (s *MongoStore) GetEntry(ctx context.Context, id uuid.UUID) (*model.Entry, error) {
	var doc entryDoc
	err := s.entries().FindOne(ctx, bson.M{"_id": id.String()}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &registrystore.NotFoundError{Resource: "entry", ID: id.String()}
	}
	if err != nil {
		return nil, &registrystore.StorageError{Op: "get entry", Err: err}
	}
	return doc.asModel()
}

func (s *MongoStore) FindEntryByClientID(ctx context.Context, clientID string, userID string) (*model.Entry, error) {
	var doc entryDoc
	err := s.entries().FindOne(ctx, bson.M{"client_id": clientID, "user_id": userID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &registrystore.NotFoundError{Resource: "entry", ID: clientID}
	}
	if err != nil {
		return nil, &registrystore.StorageError{Op: "find entry by client_id", Err: err}
	}
	return doc.asModel()
}

func (s *MongoStore) UpdateEntry(ctx context.Context, id uuid.UUID, update registrystore.EntryUpdate) (*model.Entry, error) {
	if err := update.Validate(); err != nil {
		return nil, err
	}

	set := bson.M{"updated_at": time.Now().UTC()}
	if update.Memo != nil {
		set["memo"] = *update.Memo
	}
	if update.Mood != nil {
		set["mood"] = update.Mood
	}
	if update.Video != nil {
		set["video"] = update.Video
	}
	if update.Location != nil {
		set["location"] = update.Location
	}
	if update.Tags != nil {
		set["tags"] = update.Tags
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc entryDoc
	err := s.entries().FindOneAndUpdate(ctx, bson.M{"_id": id.String()}, bson.M{"$set": set}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &registrystore.NotFoundError{Resource: "entry", ID: id.String()}
	}
	if err != nil {
		return nil, &registrystore.StorageError{Op: "update entry", Err: err}
	}
	return doc.asModel()
}

func (s *MongoStore) DeleteEntry(ctx context.Context, id uuid.UUID) (bool, error) {
	result, err := s.entries().DeleteOne(ctx, bson.M{"_id": id.String()})
	if err != nil {
		return false, &registrystore.StorageError{Op: "delete entry", Err: err}
	}
	return result.DeletedCount > 0, nil
}

func listFilter(query registrystore.ListQuery) bson.M {
	filter := bson.M{"user_id": query.UserID}
	if query.StartDate != nil || query.EndDate != nil {
		created := bson.M{}
		if query.StartDate != nil {
			created["$gte"] = *query.StartDate
		}
		if query.EndDate != nil {
			created["$lte"] = *query.EndDate
		}
		filter["created_at"] = created
	}
	if query.MoodLevel != nil {
		filter["mood.level"] = *query.MoodLevel
	}
	if len(query.Tags) > 0 {
		filter["tags"] = bson.M{"$in": query.Tags}
	}
	return filter
}

func (s *MongoStore) ListEntries(ctx context.Context, query registrystore.ListQuery) ([]model.Entry, int64, error) {
	filter := listFilter(query)

	total, err := s.entries().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, &registrystore.StorageError{Op: "count entries", Err: err}
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(int64(query.Skip))
	if query.Limit > 0 {
		opts.SetLimit(int64(query.Limit))
	}
	cursor, err := s.entries().Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, &registrystore.StorageError{Op: "list entries", Err: err}
	}
	defer cursor.Close(ctx)

	var entries []model.Entry
	for cursor.Next(ctx) {
		var doc entryDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, 0, &registrystore.StorageError{Op: "decode entry", Err: err}
		}
		entry, err := doc.asModel()
		if err != nil {
			return nil, 0, &registrystore.StorageError{Op: "decode entry", Err: err}
		}
		entries = append(entries, *entry)
	}
	if err := cursor.Err(); err != nil {
		return nil, 0, &registrystore.StorageError{Op: "list entries", Err: err}
	}
	return entries, total, nil
}

func (s *MongoStore) CountEntries(ctx context.Context, userID string) (int64, error) {
	total, err := s.entries().CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		return 0, &registrystore.StorageError{Op: "count entries", Err: err}
	}
	return total, nil
}

// --- Users ---

func (s *MongoStore) RegisterUser(ctx context.Context, username string, email *string, deviceID *string) (*model.User, bool, error) {
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
	doc := userDoc{
		ID:        registrystore.NewUserID(username, now),
		Username:  username,
		Email:     email,
		DeviceID:  deviceID,
		CreatedAt: now,
		LastLogin: now,
	}
	if _, err := s.users().InsertOne(ctx, doc); err != nil {
		return nil, false, &registrystore.StorageError{Op: "insert user", Err: err}
	}
	return doc.asModel(), true, nil
}

func (s *MongoStore) LoginUser(ctx context.Context, username string, deviceID *string) (*model.User, error) {
	return s.touchLogin(ctx, username, deviceID)
}

// touchLogin bumps last_login for the named user, also recording the device
// when one is given.
func (s *MongoStore) touchLogin(ctx context.Context, username string, deviceID *string) (*model.User, error) {
	now := time.Now().UTC()
	set := bson.M{"last_login": now}
	if deviceID != nil {
		set["device_id"] = *deviceID
	}

	var doc userDoc
	err := s.users().FindOneAndUpdate(
		ctx,
		bson.M{"username": username},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &registrystore.NotFoundError{Resource: "user", ID: username}
	}
	if err != nil {
		return nil, &registrystore.StorageError{Op: "update user login", Err: err}
	}
	return doc.asModel(), nil
}

func (s *MongoStore) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var doc userDoc
	err := s.users().FindOne(ctx, bson.M{"username": username}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &registrystore.NotFoundError{Resource: "user", ID: username}
	}
	if err != nil {
		return nil, &registrystore.StorageError{Op: "find user", Err: err}
	}
	return doc.asModel(), nil
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*model.User, error) {
	var doc userDoc
	err := s.users().FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, &registrystore.NotFoundError{Resource: "user", ID: id}
	}
	if err != nil {
		return nil, &registrystore.StorageError{Op: "get user", Err: err}
	}
	return doc.asModel(), nil
}

func (s *MongoStore) ListUsers(ctx context.Context) ([]model.User, error) {
	cursor, err := s.users().Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, &registrystore.StorageError{Op: "list users", Err: err}
	}
	defer cursor.Close(ctx)

	var users []model.User
	for cursor.Next(ctx) {
		var doc userDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, &registrystore.StorageError{Op: "decode user", Err: err}
		}
		users = append(users, *doc.asModel())
	}
	if err := cursor.Err(); err != nil {
		return nil, &registrystore.StorageError{Op: "list users", Err: err}
	}
	return users, nil
}

func (s *MongoStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}
