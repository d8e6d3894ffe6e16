package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/diwise/document-gateway/pkg/documents"
	_ "github.com/mattn/go-sqlite3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// sqliteDatabase keeps every collection in a single table
//
//	documents(collection, id, doc)  PRIMARY KEY (collection, id)
//
// Rows are listed in insertion order using the implicit rowid.
type sqliteDatabase struct {
	db *sql.DB
}

func NewSqliteDatabase(path string) (Database, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	// BeginTx takes the write lock immediately and waits up to the busy timeout for it
	db, err := sql.Open("sqlite3", "file:"+path+"?_txlock=immediate&_busy_timeout=5000")
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteDatabase{db: db}, nil
}

func (s *sqliteDatabase) EnsureCollections(ctx context.Context, names ...string) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		doc TEXT NOT NULL,
		PRIMARY KEY (collection, id)
	)`)
	return err
}

func (s *sqliteDatabase) Collection(name string) Collection {
	return &sqliteCollection{db: s.db, name: name}
}

func (s *sqliteDatabase) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *sqliteDatabase) Close(ctx context.Context) error {
	return s.db.Close()
}

type sqliteCollection struct {
	db   *sql.DB
	name string
}

func (c *sqliteCollection) Find(ctx context.Context) ([]documents.Document, error) {
	rows, err := c.db.QueryContext(ctx, "SELECT id, doc FROM documents WHERE collection = ? ORDER BY rowid", c.name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]documents.Document, 0)

	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}

		doc, err := unmarshalRow(id, []byte(raw))
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	return docs, rows.Err()
}

func (c *sqliteCollection) FindOne(ctx context.Context, id primitive.ObjectID) (documents.Document, error) {
	var raw string

	err := c.db.QueryRowContext(ctx,
		"SELECT doc FROM documents WHERE collection = ? AND id = ?",
		c.name, id.Hex(),
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNoDocuments
		}
		return nil, err
	}

	return unmarshalRow(id.Hex(), []byte(raw))
}

func (c *sqliteCollection) InsertOne(ctx context.Context, doc documents.Document) (primitive.ObjectID, error) {
	id := documents.NewID()

	raw, err := json.Marshal(doc.Without(documents.IDField))
	if err != nil {
		return primitive.NilObjectID, err
	}

	_, err = c.db.ExecContext(ctx,
		"INSERT INTO documents (collection, id, doc) VALUES (?, ?, ?)",
		c.name, id.Hex(), string(raw),
	)
	if err != nil {
		return primitive.NilObjectID, err
	}

	return id, nil
}

// UpdateOne merges top level fields in a transaction. json_patch is not used
// since it recurses into nested objects and drops null values.
func (c *sqliteCollection) UpdateOne(ctx context.Context, id primitive.ObjectID, fields documents.Document) (int64, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	var raw string
	err = tx.QueryRowContext(ctx,
		"SELECT doc FROM documents WHERE collection = ? AND id = ?",
		c.name, id.Hex(),
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, nil
		}
		return 0, err
	}

	stored := documents.Document{}
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return 0, err
	}

	for k, v := range fields.Without(documents.IDField) {
		stored[k] = v
	}

	updated, err := json.Marshal(stored)
	if err != nil {
		return 0, err
	}

	_, err = tx.ExecContext(ctx,
		"UPDATE documents SET doc = ? WHERE collection = ? AND id = ?",
		string(updated), c.name, id.Hex(),
	)
	if err != nil {
		return 0, err
	}

	return 1, tx.Commit()
}

func (c *sqliteCollection) DeleteOne(ctx context.Context, id primitive.ObjectID) (int64, error) {
	res, err := c.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		c.name, id.Hex(),
	)
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}
