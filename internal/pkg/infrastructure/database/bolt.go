package database

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/boltdb/bolt"
	"github.com/diwise/document-gateway/pkg/documents"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// boltDatabase keeps one bucket per collection. Keys are the raw
// 12 byte identifiers, values the JSON encoded documents without _id.
type boltDatabase struct {
	path string
	db   *bolt.DB
}

func NewBoltDatabase(path string) (Database, error) {
	if path == "" {
		return nil, os.ErrInvalid
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, err
	}

	return &boltDatabase{path: path, db: db}, nil
}

func (b *boltDatabase) EnsureCollections(ctx context.Context, names ...string) error {
	return b.db.Update(func(tx *bolt.Tx) error {
		for _, name := range names {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
}

func (b *boltDatabase) Collection(name string) Collection {
	return &boltCollection{db: b.db, bucket: []byte(name)}
}

func (b *boltDatabase) Ping(ctx context.Context) error {
	return b.db.View(func(tx *bolt.Tx) error {
		return nil
	})
}

func (b *boltDatabase) Close(ctx context.Context) error {
	return b.db.Close()
}

type boltCollection struct {
	db     *bolt.DB
	bucket []byte
}

func (c *boltCollection) Find(ctx context.Context) ([]documents.Document, error) {
	docs := make([]documents.Document, 0)

	err := c.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(c.bucket)
		if bkt == nil {
			return nil
		}

		return bkt.ForEach(func(k, v []byte) error {
			doc, err := unmarshalStored(k, v)
			if err != nil {
				return err
			}
			docs = append(docs, doc)
			return nil
		})
	})

	if err != nil {
		return nil, err
	}

	return docs, nil
}

func (c *boltCollection) FindOne(ctx context.Context, id primitive.ObjectID) (documents.Document, error) {
	var doc documents.Document

	err := c.db.View(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(c.bucket)
		if bkt == nil {
			return ErrNoDocuments
		}

		v := bkt.Get(id[:])
		if v == nil {
			return ErrNoDocuments
		}

		var err error
		doc, err = unmarshalStored(id[:], v)
		return err
	})

	if err != nil {
		return nil, err
	}

	return doc, nil
}

func (c *boltCollection) InsertOne(ctx context.Context, doc documents.Document) (primitive.ObjectID, error) {
	id := documents.NewID()

	value, err := json.Marshal(doc.Without(documents.IDField))
	if err != nil {
		return primitive.NilObjectID, err
	}

	err = c.db.Update(func(tx *bolt.Tx) error {
		bkt, err := tx.CreateBucketIfNotExists(c.bucket)
		if err != nil {
			return err
		}
		return bkt.Put(id[:], value)
	})

	if err != nil {
		return primitive.NilObjectID, err
	}

	return id, nil
}

func (c *boltCollection) UpdateOne(ctx context.Context, id primitive.ObjectID, fields documents.Document) (int64, error) {
	var matched int64

	err := c.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(c.bucket)
		if bkt == nil {
			return nil
		}

		v := bkt.Get(id[:])
		if v == nil {
			return nil
		}
		matched = 1

		stored := documents.Document{}
		if err := json.Unmarshal(v, &stored); err != nil {
			return err
		}

		for key, value := range fields.Without(documents.IDField) {
			stored[key] = value
		}

		updated, err := json.Marshal(stored)
		if err != nil {
			return err
		}

		return bkt.Put(id[:], updated)
	})

	if err != nil {
		return 0, err
	}

	return matched, nil
}

func (c *boltCollection) DeleteOne(ctx context.Context, id primitive.ObjectID) (int64, error) {
	var deleted int64

	err := c.db.Update(func(tx *bolt.Tx) error {
		bkt := tx.Bucket(c.bucket)
		if bkt == nil || bkt.Get(id[:]) == nil {
			return nil
		}

		deleted = 1
		return bkt.Delete(id[:])
	})

	if err != nil {
		return 0, err
	}

	return deleted, nil
}

func unmarshalStored(key, value []byte) (documents.Document, error) {
	if len(key) != len(primitive.NilObjectID) {
		return nil, errors.New("corrupt key in collection")
	}

	doc := documents.Document{}
	if err := json.Unmarshal(value, &doc); err != nil {
		return nil, err
	}

	var id primitive.ObjectID
	copy(id[:], key)
	doc[documents.IDField] = id.Hex()

	return doc, nil
}
