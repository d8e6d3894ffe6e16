package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/diwise/document-gateway/internal/pkg/infrastructure/database"
	"github.com/diwise/document-gateway/pkg/documents"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Gateway interface {
	Resources() []Resource
	Ping(ctx context.Context) error
}

// Resource binds a resource kind to the five CRUD operations
// against its collection
type Resource interface {
	Name() string

	Create(ctx context.Context, body io.Reader) (*CreateResult, error)
	List(ctx context.Context) ([]documents.Document, error)
	Retrieve(ctx context.Context, id string) (documents.Document, error)
	// Update returns a nil document, and no error, when id is valid but unknown
	Update(ctx context.Context, id string, body io.Reader) (documents.Document, error)
	Delete(ctx context.Context, id string) (*Message, error)
}

const (
	TraceAttributeResource   string = "resource"
	TraceAttributeDocumentID string = "document-id"
)

var tracer = otel.Tracer("document-gateway/gateway")

type gatewayApp struct {
	db        database.Database
	resources []Resource
}

// New binds every configured resource to its collection. Collections are
// prepared before New returns so the caller may start serving right away.
func New(ctx context.Context, db database.Database, cfg *Config) (Gateway, error) {
	if cfg == nil {
		cfg = DefaultConfiguration()
	}

	names := make([]string, 0, len(cfg.Resources))
	for _, rc := range cfg.Resources {
		names = append(names, rc.Collection)
	}

	if err := db.EnsureCollections(ctx, names...); err != nil {
		return nil, fmt.Errorf("failed to prepare collections: %w", err)
	}

	app := &gatewayApp{
		db:        db,
		resources: make([]Resource, 0, len(cfg.Resources)),
	}

	for _, rc := range cfg.Resources {
		storeErrorStatus := rc.StoreErrorStatus
		if cfg.NormalizeErrors {
			storeErrorStatus = http.StatusInternalServerError
		}

		app.resources = append(app.resources, &resource{
			cfg:              rc,
			coll:             db.Collection(rc.Collection),
			storeErrorStatus: storeErrorStatus,
		})
	}

	return app, nil
}

func (app *gatewayApp) Resources() []Resource {
	return app.resources
}

func (app *gatewayApp) Ping(ctx context.Context) error {
	return app.db.Ping(ctx)
}

type resource struct {
	cfg              ResourceConfig
	coll             database.Collection
	storeErrorStatus int
}

func (r *resource) Name() string {
	return r.cfg.Name
}

func (r *resource) Create(ctx context.Context, body io.Reader) (result *CreateResult, err error) {
	ctx, span := r.startSpan(ctx, "create-document", "")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	doc, err := documents.Decode(body)
	if err != nil {
		err = NewValidationError(fmt.Sprintf("unable to decode request payload: %s", err.Error()))
		return nil, err
	}

	if missing := doc.Missing(r.cfg.RequiredFields); len(missing) > 0 {
		err = NewValidationError(r.cfg.Messages.MissingFields)
		return nil, err
	}

	id, err := r.coll.InsertOne(ctx, doc.Without(documents.IDField))
	if err != nil {
		logging.GetFromContext(ctx).Error("failed to insert document", "resource", r.cfg.Name, "err", err.Error())
		err = NewStoreError("", http.StatusInternalServerError, err)
		return nil, err
	}

	span.SetAttributes(attribute.String(TraceAttributeDocumentID, id.Hex()))

	if r.cfg.CreateResponse == CreateResponseMessage {
		return NewCreateResult(id.Hex(), Message{Message: r.cfg.Messages.Created}), nil
	}

	return NewCreateResult(id.Hex(), InsertResult{Acknowledged: true, InsertedID: id.Hex()}), nil
}

func (r *resource) List(ctx context.Context) (docs []documents.Document, err error) {
	ctx, span := r.startSpan(ctx, "list-documents", "")
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	docs, err = r.coll.Find(ctx)
	if err != nil {
		logging.GetFromContext(ctx).Error("failed to fetch documents", "resource", r.cfg.Name, "err", err.Error())
		err = r.storeError(r.cfg.Messages.ListFailed, err)
		return nil, err
	}

	return docs, nil
}

func (r *resource) Retrieve(ctx context.Context, id string) (doc documents.Document, err error) {
	ctx, span := r.startSpan(ctx, "retrieve-document", id)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	oid, err := documents.ParseID(id)
	if err != nil {
		err = NewInvalidIDError(r.cfg.Messages.InvalidID)
		return nil, err
	}

	doc, err = r.coll.FindOne(ctx, oid)
	if err != nil {
		if errors.Is(err, database.ErrNoDocuments) {
			err = NewNotFoundError(r.cfg.Messages.NotFound)
			return nil, err
		}

		logging.GetFromContext(ctx).Error("failed to fetch document", "resource", r.cfg.Name, "id", id, "err", err.Error())
		err = r.storeError(r.cfg.Messages.RetrieveFailed, err)
		return nil, err
	}

	return doc, nil
}

func (r *resource) Update(ctx context.Context, id string, body io.Reader) (doc documents.Document, err error) {
	ctx, span := r.startSpan(ctx, "update-document", id)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	oid, err := documents.ParseID(id)
	if err != nil {
		err = NewInvalidIDError(r.cfg.Messages.InvalidID)
		return nil, err
	}

	fields, err := documents.Decode(body)
	if err != nil {
		err = NewValidationError(fmt.Sprintf("unable to decode request payload: %s", err.Error()))
		return nil, err
	}

	log := logging.GetFromContext(ctx)

	_, err = r.coll.UpdateOne(ctx, oid, fields.Without(documents.IDField))
	if err != nil {
		log.Error("failed to update document", "resource", r.cfg.Name, "id", id, "err", err.Error())
		err = r.storeError(r.cfg.Messages.UpdateFailed, err)
		return nil, err
	}

	doc, err = r.coll.FindOne(ctx, oid)
	if err != nil {
		if errors.Is(err, database.ErrNoDocuments) {
			log.Debug("update matched no document", "resource", r.cfg.Name, "id", id)
			err = nil
			return nil, nil
		}

		log.Error("failed to fetch updated document", "resource", r.cfg.Name, "id", id, "err", err.Error())
		err = r.storeError(r.cfg.Messages.UpdateFailed, err)
		return nil, err
	}

	return doc, nil
}

func (r *resource) Delete(ctx context.Context, id string) (result *Message, err error) {
	ctx, span := r.startSpan(ctx, "delete-document", id)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	oid, err := documents.ParseID(id)
	if err != nil {
		err = NewInvalidIDError(r.cfg.Messages.InvalidID)
		return nil, err
	}

	deleted, err := r.coll.DeleteOne(ctx, oid)
	if err != nil {
		logging.GetFromContext(ctx).Error("failed to delete document", "resource", r.cfg.Name, "id", id, "err", err.Error())
		err = r.storeError(r.cfg.Messages.DeleteFailed, err)
		return nil, err
	}

	if deleted == 0 {
		err = NewNotFoundError(r.cfg.Messages.NotFound)
		return nil, err
	}

	return &Message{Message: r.cfg.Messages.Deleted}, nil
}

func (r *resource) storeError(msg string, cause error) error {
	return NewStoreError(msg, r.storeErrorStatus, cause)
}

func (r *resource) startSpan(ctx context.Context, name, id string) (context.Context, trace.Span) {
	attrs := []attribute.KeyValue{attribute.String(TraceAttributeResource, r.cfg.Name)}
	if id != "" {
		attrs = append(attrs, attribute.String(TraceAttributeDocumentID, id))
	}

	return tracer.Start(ctx, name, trace.WithAttributes(attrs...))
}
