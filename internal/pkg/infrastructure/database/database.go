// Package database provides the document store backends the gateway forwards to.
package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/diwise/document-gateway/pkg/documents"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrNoDocuments = errors.New("no documents in result")
var ErrUnknownBackend = errors.New("unknown store backend")

// Database is a handle to a document store, created once at startup
// and shared by all request handlers
type Database interface {
	// EnsureCollections makes sure that the named collections can be used
	EnsureCollections(ctx context.Context, names ...string) error
	Collection(name string) Collection

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Collection exposes the CRUD primitives of a single collection
type Collection interface {
	// Find returns every document in the collection in store defined order
	Find(ctx context.Context) ([]documents.Document, error)
	// FindOne returns ErrNoDocuments if there is no document with the given id
	FindOne(ctx context.Context, id primitive.ObjectID) (documents.Document, error)
	// InsertOne stores doc and returns the identifier assigned to it
	InsertOne(ctx context.Context, doc documents.Document) (primitive.ObjectID, error)
	// UpdateOne overwrites the given fields and leaves all others untouched.
	// It returns the number of matched documents.
	UpdateOne(ctx context.Context, id primitive.ObjectID, fields documents.Document) (int64, error)
	// DeleteOne returns the number of deleted documents
	DeleteOne(ctx context.Context, id primitive.ObjectID) (int64, error)
}

const (
	BackendMongo    string = "mongo"
	BackendBolt     string = "bolt"
	BackendPostgres string = "postgres"
	BackendSqlite   string = "sqlite"
	BackendMemory   string = "memory"
)

type Config struct {
	Backend string

	MongoURI      string
	MongoDatabase string

	BoltPath   string
	SqlitePath string

	Postgres PostgresConfig
}

// New connects to the store selected by cfg.Backend. The returned
// database has been pinged successfully.
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Database, error) {
	var db Database
	var err error

	switch cfg.Backend {
	case BackendMongo, "":
		db, err = NewMongoDatabase(ctx, cfg.MongoURI, cfg.MongoDatabase)
	case BackendBolt:
		db, err = NewBoltDatabase(cfg.BoltPath)
	case BackendPostgres:
		db, err = NewPostgresDatabase(ctx, cfg.Postgres)
	case BackendSqlite:
		db, err = NewSqliteDatabase(cfg.SqlitePath)
	case BackendMemory:
		db = NewMemoryDatabase()
	default:
		return nil, fmt.Errorf("%w: %q (supported: mongo, bolt, postgres, sqlite, memory)", ErrUnknownBackend, cfg.Backend)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s store: %w", cfg.Backend, err)
	}

	if err = db.Ping(ctx); err != nil {
		db.Close(ctx)
		return nil, fmt.Errorf("failed to ping %s store: %w", cfg.Backend, err)
	}

	logger.Info("connected to document store", "backend", cfg.Backend)

	return db, nil
}
