package rest

import (
	"encoding/json"
	"net/http"

	"github.com/diwise/document-gateway/internal/pkg/application/gateway"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel/attribute"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func mapGatewayError(w http.ResponseWriter, err error) {
	switch e := err.(type) {
	case gateway.ValidationError:
		writeError(w, http.StatusBadRequest, e.Error())
	case gateway.InvalidIDError:
		writeError(w, http.StatusBadRequest, e.Error())
	case gateway.NotFoundError:
		writeError(w, http.StatusNotFound, e.Error())
	case gateway.StoreError:
		writeError(w, e.StatusCode(), e.Error())
	default:
		writeError(w, http.StatusInternalServerError, e.Error())
	}
}

func addLabelIfError(err error, labeler *otelhttp.Labeler) {
	if err == nil || labeler == nil {
		return
	}

	kind := "internal"

	switch err.(type) {
	case gateway.ValidationError:
		kind = "validation"
	case gateway.InvalidIDError:
		kind = "invalid-id"
	case gateway.NotFoundError:
		kind = "not-found"
	case gateway.StoreError:
		kind = "store"
	}

	labeler.Add(attribute.String("error", kind))
}
