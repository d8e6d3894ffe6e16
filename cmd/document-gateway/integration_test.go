package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/diwise/document-gateway/internal/pkg/infrastructure/database"
	"github.com/diwise/document-gateway/pkg/client"
	"github.com/diwise/document-gateway/pkg/documents"
	"github.com/matryer/is"
)

func DefaultTestFlags() FlagMap {
	return FlagMap{
		listenAddress: "",
		servicePort:   "0",

		storeBackend:    database.BackendMemory,
		normalizeErrors: "false",
		allowedOrigins:  "*",

		logFormat: "json",
	}
}

func TestIntegrateDocumentLifecycle(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	ts := setupIntegrationTest(is, ctx, &AppConfig{allowedOrigins: []string{"*"}})
	defer ts.Close()

	for _, resource := range []struct {
		path string
		body string
	}{
		{"/orders", `{"customer":"Al","items":["strings"],"total":12.5}`},
		{"/customers", `{"name":"Al","email":"al@example.com"}`},
		{"/products", `{"name":"Guitar","price":199.99,"category":"Instruments","inStock":true}`},
	} {
		response, _ := testRequest(ts, http.MethodPost, resource.path, strings.NewReader(resource.body))
		is.Equal(response.StatusCode, http.StatusCreated) // create should succeed
		location := response.Header.Get("Location")

		response, responseBody := testRequest(ts, http.MethodGet, location, nil)
		is.Equal(response.StatusCode, http.StatusOK) // stored document should be found

		expected := map[string]any{}
		stored := map[string]any{}
		is.NoErr(json.Unmarshal([]byte(resource.body), &expected))
		is.NoErr(json.Unmarshal([]byte(responseBody), &stored))

		for k, v := range expected {
			is.Equal(stored[k], v) // stored document should contain every submitted field
		}

		response, _ = testRequest(ts, http.MethodPut, location, strings.NewReader(`{"note":"updated"}`))
		is.Equal(response.StatusCode, http.StatusOK) // update should succeed

		response, responseBody = testRequest(ts, http.MethodGet, resource.path, nil)
		is.Equal(response.StatusCode, http.StatusOK)
		is.True(strings.Contains(responseBody, `"note":"updated"`))

		response, _ = testRequest(ts, http.MethodDelete, location, nil)
		is.Equal(response.StatusCode, http.StatusOK) // delete should succeed

		response, _ = testRequest(ts, http.MethodDelete, location, nil)
		is.Equal(response.StatusCode, http.StatusNotFound) // second delete should find nothing
	}
}

func TestIntegrateWithGatewayClient(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	ts := setupIntegrationTest(is, ctx, &AppConfig{allowedOrigins: []string{"*"}})
	defer ts.Close()

	c := client.NewDocumentGatewayClient(ts.URL)

	result, err := c.Create(ctx, "products", documents.Document{"name": "Guitar", "price": 199.99, "category": "Instruments", "inStock": true})
	is.NoErr(err)

	doc, err := c.Update(ctx, "products", result.ID(), documents.Document{"inStock": false})
	is.NoErr(err)
	is.Equal(doc["inStock"], false)
	is.Equal(doc["name"], "Guitar")

	_, err = c.Create(ctx, "products", documents.Document{"name": "Guitar"})
	is.True(errors.Is(err, client.ErrBadRequest))

	docs, err := c.List(ctx, "products")
	is.NoErr(err)
	is.Equal(len(docs), 1)

	msg, err := c.Delete(ctx, "products", result.ID())
	is.NoErr(err)
	is.Equal(msg, "Product deleted")

	_, err = c.Retrieve(ctx, "products", result.ID())
	is.True(errors.Is(err, client.ErrNotFound))
}

func TestIntegrateResourcesFromConfigFile(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	ts := setupIntegrationTest(is, ctx, &AppConfig{
		resourcesConfig: newResourcesConfig(),
		allowedOrigins:  []string{"*"},
	})
	defer ts.Close()

	response, responseBody := testRequest(ts, http.MethodPost, "/tracks", strings.NewReader(`{"artist":"Al"}`))
	is.Equal(response.StatusCode, http.StatusBadRequest)
	is.Equal(responseBody, `{"error":"Missing required fields: title, artist"}`+"\n")

	response, responseBody = testRequest(ts, http.MethodPost, "/tracks", strings.NewReader(`{"title":"Blue","artist":"Al"}`))
	is.Equal(response.StatusCode, http.StatusCreated)
	is.True(strings.Contains(responseBody, `"insertedId"`))

	response, _ = testRequest(ts, http.MethodGet, "/orders", nil)
	is.Equal(response.StatusCode, http.StatusNotFound) // only configured resources should be served
}

func TestIntegrateHealthAndMetrics(t *testing.T) {
	is := is.New(t)
	ctx := context.Background()

	ts := setupIntegrationTest(is, ctx, &AppConfig{allowedOrigins: []string{"*"}})
	defer ts.Close()

	response, _ := testRequest(ts, http.MethodGet, "/health", nil)
	is.Equal(response.StatusCode, http.StatusOK)

	response, responseBody := testRequest(ts, http.MethodGet, "/metrics", nil)
	is.Equal(response.StatusCode, http.StatusOK)
	is.True(strings.Contains(responseBody, "go_goroutines"))
}

func TestParseExternalConfigOverridesDefaults(t *testing.T) {
	is := is.New(t)

	flags, err := parseExternalConfig(DefaultTestFlags(), []string{"-port", "8081", "-store", "bolt"})
	is.NoErr(err)

	is.Equal(flags[servicePort], "8081")
	is.Equal(flags[storeBackend], "bolt")
	is.Equal(flags[logFormat], "json")

	_, err = parseExternalConfig(DefaultTestFlags(), []string{"-nosuchflag"})
	is.True(err != nil)
}

func TestSplitOrigins(t *testing.T) {
	is := is.New(t)

	is.Equal(splitOrigins("https://a.example, https://b.example,"), []string{"https://a.example", "https://b.example"})
	is.Equal(splitOrigins(""), []string{"*"})
}

func setupIntegrationTest(is *is.I, ctx context.Context, cfg *AppConfig) *httptest.Server {
	flags := DefaultTestFlags()

	db, err := database.New(ctx, database.Config{Backend: flags[storeBackend]}, nopLogger())
	is.NoErr(err)

	srv, err := initialize(ctx, flags, cfg, db)
	is.NoErr(err)

	return httptest.NewServer(srv.Handler)
}

func testRequest(ts *httptest.Server, method, path string, body io.Reader) (*http.Response, string) {
	req, _ := http.NewRequest(method, ts.URL+path, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, _ := http.DefaultClient.Do(req)
	respBody, _ := io.ReadAll(resp.Body)
	defer resp.Body.Close()

	return resp, string(respBody)
}

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newResourcesConfig() io.ReadCloser {
	return io.NopCloser(bytes.NewBufferString(resourcesFile))
}

const resourcesFile string = `
normalizeErrors: true
resources:
  - name: tracks
    requiredFields: [title, artist]
`
