package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/diwise/document-gateway/pkg/documents"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type PostgresConfig struct {
	Host     string
	User     string
	Password string
	Port     string
	DBName   string
	SSLMode  string
}

func (c PostgresConfig) ConnStr() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// postgresDatabase stores each collection as a table of jsonb documents
// keyed by the hex representation of an ObjectID
type postgresDatabase struct {
	pool *pgxpool.Pool
}

func NewPostgresDatabase(ctx context.Context, cfg PostgresConfig) (Database, error) {
	pool, err := pgxpool.New(ctx, cfg.ConnStr())
	if err != nil {
		return nil, err
	}

	return &postgresDatabase{pool: pool}, nil
}

func (p *postgresDatabase) EnsureCollections(ctx context.Context, names ...string) error {
	for _, name := range names {
		sql := fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (
				id  TEXT PRIMARY KEY,
				doc JSONB NOT NULL,
				ts  TIMESTAMPTZ NOT NULL DEFAULT NOW()
			);`, tableName(name))

		if _, err := p.pool.Exec(ctx, sql); err != nil {
			return fmt.Errorf("failed to create table for collection %s: %w", name, err)
		}
	}

	return nil
}

func (p *postgresDatabase) Collection(name string) Collection {
	return &postgresCollection{pool: p.pool, table: tableName(name)}
}

func (p *postgresDatabase) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *postgresDatabase) Close(ctx context.Context) error {
	p.pool.Close()
	return nil
}

func tableName(collection string) string {
	return pgx.Identifier{collection}.Sanitize()
}

type postgresCollection struct {
	pool  *pgxpool.Pool
	table string
}

func (c *postgresCollection) Find(ctx context.Context) ([]documents.Document, error) {
	rows, err := c.pool.Query(ctx, fmt.Sprintf(`SELECT id, doc FROM %s ORDER BY ts, id;`, c.table))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := make([]documents.Document, 0)

	for rows.Next() {
		var id string
		var raw []byte

		if err := rows.Scan(&id, &raw); err != nil {
			return nil, err
		}

		doc, err := unmarshalRow(id, raw)
		if err != nil {
			return nil, err
		}

		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return docs, nil
}

func (c *postgresCollection) FindOne(ctx context.Context, id primitive.ObjectID) (documents.Document, error) {
	var raw []byte

	err := c.pool.QueryRow(ctx, fmt.Sprintf(`SELECT doc FROM %s WHERE id=$1;`, c.table), id.Hex()).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoDocuments
		}
		return nil, err
	}

	return unmarshalRow(id.Hex(), raw)
}

func (c *postgresCollection) InsertOne(ctx context.Context, doc documents.Document) (primitive.ObjectID, error) {
	id := documents.NewID()

	raw, err := json.Marshal(doc.Without(documents.IDField))
	if err != nil {
		return primitive.NilObjectID, err
	}

	_, err = c.pool.Exec(ctx, fmt.Sprintf(`INSERT INTO %s (id, doc) VALUES ($1, $2::jsonb);`, c.table), id.Hex(), string(raw))
	if err != nil {
		return primitive.NilObjectID, err
	}

	return id, nil
}

func (c *postgresCollection) UpdateOne(ctx context.Context, id primitive.ObjectID, fields documents.Document) (int64, error) {
	raw, err := json.Marshal(fields.Without(documents.IDField))
	if err != nil {
		return 0, err
	}

	// || replaces top level keys, which matches the $set semantics of the other stores
	tag, err := c.pool.Exec(ctx, fmt.Sprintf(`UPDATE %s SET doc = doc || $2::jsonb WHERE id=$1;`, c.table), id.Hex(), string(raw))
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (c *postgresCollection) DeleteOne(ctx context.Context, id primitive.ObjectID) (int64, error) {
	tag, err := c.pool.Exec(ctx, fmt.Sprintf(`DELETE FROM %s WHERE id=$1;`, c.table), id.Hex())
	if err != nil {
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func unmarshalRow(id string, raw []byte) (documents.Document, error) {
	doc := documents.Document{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	doc[documents.IDField] = id
	return doc, nil
}
