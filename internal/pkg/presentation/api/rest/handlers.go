package rest

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/diwise/document-gateway/internal/pkg/application/gateway"
	"github.com/diwise/document-gateway/internal/pkg/infrastructure/metrics"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func RegisterHandlers(ctx context.Context, r chi.Router, app gateway.Gateway, m *metrics.ServerMetrics) {
	r.Use(
		Logger(logging.GetFromContext(ctx)),
		Recoverer(),
		RequiredContentTypes([]string{"application/json"}),
	)

	r.Get("/health", NewHealthHandler(app))

	if m != nil {
		r.Method(http.MethodGet, "/metrics", m.Handler())
	}

	for _, res := range app.Resources() {
		name := res.Name()

		r.Route("/"+name, func(r chi.Router) {
			r.Post("/", m.Instrument(name, "create", NewCreateDocumentHandler(res)))
			r.Get("/", m.Instrument(name, "list", NewListDocumentsHandler(res)))

			r.Get("/{id}", m.Instrument(name, "retrieve", NewRetrieveDocumentHandler(res)))
			r.Put("/{id}", m.Instrument(name, "update", NewUpdateDocumentHandler(res)))
			r.Delete("/{id}", m.Instrument(name, "delete", NewDeleteDocumentHandler(res)))
		})
	}
}

// NewCreateDocumentHandler handles incoming POST requests for a resource
func NewCreateDocumentHandler(res gateway.Resource) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx := r.Context()

		labeler, _ := otelhttp.LabelerFromContext(ctx)
		defer func() { addLabelIfError(err, labeler) }()

		result, err := res.Create(ctx, r.Body)
		if err != nil {
			mapGatewayError(w, err)
			return
		}

		w.Header().Add("Location", "/"+res.Name()+"/"+url.PathEscape(result.ID()))
		writeJSON(w, http.StatusCreated, result.Body())
	})
}

// NewListDocumentsHandler handles GET requests for every document in a resource collection
func NewListDocumentsHandler(res gateway.Resource) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx := r.Context()

		labeler, _ := otelhttp.LabelerFromContext(ctx)
		defer func() { addLabelIfError(err, labeler) }()

		docs, err := res.List(ctx)
		if err != nil {
			mapGatewayError(w, err)
			return
		}

		logging.GetFromContext(ctx).Debug("fetched documents", "resource", res.Name(), "count", len(docs))

		writeJSON(w, http.StatusOK, docs)
	})
}

func NewRetrieveDocumentHandler(res gateway.Resource) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx := r.Context()

		labeler, _ := otelhttp.LabelerFromContext(ctx)
		defer func() { addLabelIfError(err, labeler) }()

		doc, err := res.Retrieve(ctx, documentID(r))
		if err != nil {
			mapGatewayError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, doc)
	})
}

// NewUpdateDocumentHandler merges the request body into an existing document
// and responds with the document as it looks after the update
func NewUpdateDocumentHandler(res gateway.Resource) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx := r.Context()

		labeler, _ := otelhttp.LabelerFromContext(ctx)
		defer func() { addLabelIfError(err, labeler) }()

		doc, err := res.Update(ctx, documentID(r), r.Body)
		if err != nil {
			mapGatewayError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, doc)
	})
}

func NewDeleteDocumentHandler(res gateway.Resource) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var err error

		ctx := r.Context()

		labeler, _ := otelhttp.LabelerFromContext(ctx)
		defer func() { addLabelIfError(err, labeler) }()

		result, err := res.Delete(ctx, documentID(r))
		if err != nil {
			mapGatewayError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, result)
	})
}

func NewHealthHandler(app gateway.Gateway) http.HandlerFunc {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if err := app.Ping(ctx); err != nil {
			logging.GetFromContext(ctx).Warn("health check failed", "err", err.Error())
			writeError(w, http.StatusServiceUnavailable, "document store unavailable")
			return
		}

		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}

func documentID(r *http.Request) string {
	id, err := url.PathUnescape(chi.URLParam(r, "id"))
	if err != nil {
		id = chi.URLParam(r, "id")
	}
	return strings.TrimSpace(id)
}
