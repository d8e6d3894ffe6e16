package database

import (
	"context"
	"errors"

	"github.com/diwise/document-gateway/pkg/documents"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type mongoDatabase struct {
	client *mongo.Client
	db     *mongo.Database
}

func NewMongoDatabase(ctx context.Context, uri, databaseName string) (Database, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetBSONOptions(&options.BSONOptions{DefaultDocumentM: true})

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	return &mongoDatabase{
		client: client,
		db:     client.Database(databaseName),
	}, nil
}

// collections are created implicitly by the server on first insert
func (m *mongoDatabase) EnsureCollections(ctx context.Context, names ...string) error {
	return nil
}

func (m *mongoDatabase) Collection(name string) Collection {
	return &mongoCollection{coll: m.db.Collection(name)}
}

func (m *mongoDatabase) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, readpref.Primary())
}

func (m *mongoDatabase) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

type mongoCollection struct {
	coll *mongo.Collection
}

func (c *mongoCollection) Find(ctx context.Context) ([]documents.Document, error) {
	cur, err := c.coll.Find(ctx, bson.D{})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	results := make([]bson.M, 0)
	if err = cur.All(ctx, &results); err != nil {
		return nil, err
	}

	docs := make([]documents.Document, 0, len(results))
	for _, r := range results {
		docs = append(docs, fromBSONDocument(r))
	}

	return docs, nil
}

func (c *mongoCollection) FindOne(ctx context.Context, id primitive.ObjectID) (documents.Document, error) {
	result := bson.M{}

	err := c.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&result)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoDocuments
		}
		return nil, err
	}

	return fromBSONDocument(result), nil
}

func (c *mongoCollection) InsertOne(ctx context.Context, doc documents.Document) (primitive.ObjectID, error) {
	insertResult, err := c.coll.InsertOne(ctx, bson.M(doc.Without(documents.IDField)))
	if err != nil {
		return primitive.NilObjectID, err
	}

	id, ok := insertResult.InsertedID.(primitive.ObjectID)
	if !ok {
		return primitive.NilObjectID, errors.New("store assigned an identifier that is not an ObjectID")
	}

	return id, nil
}

func (c *mongoCollection) UpdateOne(ctx context.Context, id primitive.ObjectID, fields documents.Document) (int64, error) {
	filter := bson.M{"_id": id}

	// an empty $set is rejected by the server
	if len(fields) == 0 {
		return c.coll.CountDocuments(ctx, filter)
	}

	result, err := c.coll.UpdateOne(ctx, filter, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return 0, err
	}

	return result.MatchedCount, nil
}

func (c *mongoCollection) DeleteOne(ctx context.Context, id primitive.ObjectID) (int64, error) {
	result, err := c.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}

func fromBSONDocument(m bson.M) documents.Document {
	doc := make(documents.Document, len(m))
	for k, v := range m {
		doc[k] = fromBSON(v)
	}
	return doc
}

// fromBSON converts driver specific types into plain JSON friendly values
func fromBSON(v any) any {
	switch value := v.(type) {
	case primitive.M:
		return map[string]any(fromBSONDocument(bson.M(value)))
	case map[string]any:
		return map[string]any(fromBSONDocument(bson.M(value)))
	case primitive.D:
		m := make(map[string]any, len(value))
		for _, e := range value {
			m[e.Key] = fromBSON(e.Value)
		}
		return m
	case primitive.A:
		a := make([]any, 0, len(value))
		for _, e := range value {
			a = append(a, fromBSON(e))
		}
		return a
	case primitive.ObjectID:
		return value.Hex()
	case primitive.DateTime:
		return value.Time().UTC()
	default:
		return v
	}
}
