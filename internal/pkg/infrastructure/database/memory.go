package database

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/diwise/document-gateway/pkg/documents"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// memoryDatabase keeps everything in memory. Data is lost on restart.
// Safe for concurrent use.
type memoryDatabase struct {
	mu          sync.RWMutex
	collections map[string]*memoryCollection
}

func NewMemoryDatabase() Database {
	return &memoryDatabase{
		collections: make(map[string]*memoryCollection),
	}
}

func (m *memoryDatabase) EnsureCollections(ctx context.Context, names ...string) error {
	for _, name := range names {
		m.Collection(name)
	}
	return nil
}

func (m *memoryDatabase) Collection(name string) Collection {
	m.mu.Lock()
	defer m.mu.Unlock()

	coll, ok := m.collections[name]
	if !ok {
		coll = &memoryCollection{docs: make(map[primitive.ObjectID]documents.Document)}
		m.collections[name] = coll
	}

	return coll
}

func (m *memoryDatabase) Ping(ctx context.Context) error {
	return nil
}

func (m *memoryDatabase) Close(ctx context.Context) error {
	return nil
}

type memoryCollection struct {
	mu    sync.RWMutex
	order []primitive.ObjectID
	docs  map[primitive.ObjectID]documents.Document
}

// deepCopy returns a deep copy of a document by round-tripping through JSON.
// This also normalizes numbers to float64 the way a real store would.
func deepCopy(src documents.Document) documents.Document {
	if src == nil {
		return nil
	}
	b, _ := json.Marshal(src)
	var dst documents.Document
	_ = json.Unmarshal(b, &dst)
	return dst
}

func (c *memoryCollection) Find(ctx context.Context) ([]documents.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]documents.Document, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, c.withID(id))
	}

	return result, nil
}

func (c *memoryCollection) FindOne(ctx context.Context, id primitive.ObjectID) (documents.Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if _, ok := c.docs[id]; !ok {
		return nil, ErrNoDocuments
	}

	return c.withID(id), nil
}

func (c *memoryCollection) InsertOne(ctx context.Context, doc documents.Document) (primitive.ObjectID, error) {
	id := documents.NewID()
	stored := deepCopy(doc.Without(documents.IDField))

	c.mu.Lock()
	defer c.mu.Unlock()

	c.docs[id] = stored
	c.order = append(c.order, id)

	return id, nil
}

func (c *memoryCollection) UpdateOne(ctx context.Context, id primitive.ObjectID, fields documents.Document) (int64, error) {
	update := deepCopy(fields.Without(documents.IDField))

	c.mu.Lock()
	defer c.mu.Unlock()

	stored, ok := c.docs[id]
	if !ok {
		return 0, nil
	}

	for k, v := range update {
		stored[k] = v
	}

	return 1, nil
}

func (c *memoryCollection) DeleteOne(ctx context.Context, id primitive.ObjectID) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.docs[id]; !ok {
		return 0, nil
	}

	delete(c.docs, id)
	for i := range c.order {
		if c.order[i] == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}

	return 1, nil
}

// withID must be called with at least a read lock held
func (c *memoryCollection) withID(id primitive.ObjectID) documents.Document {
	doc := deepCopy(c.docs[id])
	doc[documents.IDField] = id.Hex()
	return doc
}
