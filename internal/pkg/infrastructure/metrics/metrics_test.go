package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/matryer/is"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestInstrumentCountsRequestsByStatus(t *testing.T) {
	is := is.New(t)
	m := NewServerMetrics()

	h := m.Instrument("orders", "retrieve", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for range 3 {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders/x", nil))
	}

	is.Equal(testutil.ToFloat64(m.Requests.WithLabelValues("orders", "retrieve", "404")), float64(3))
}

func TestInstrumentOnNilMetricsIsPassthrough(t *testing.T) {
	is := is.New(t)
	var m *ServerMetrics

	called := false
	h := m.Instrument("orders", "list", func(w http.ResponseWriter, r *http.Request) { called = true })
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/orders", nil))

	is.True(called)
}

func TestHandlerExposesMetrics(t *testing.T) {
	is := is.New(t)
	m := NewServerMetrics()
	m.Observe("products", "create", http.StatusCreated, 0)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	body, _ := io.ReadAll(w.Body)
	is.Equal(w.Code, http.StatusOK)
	is.True(strings.Contains(string(body), `gateway_http_requests_total{operation="create",resource="products",status="201"} 1`))
}
