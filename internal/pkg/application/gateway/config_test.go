package gateway

import (
	"bytes"
	"net/http"
	"testing"

	"github.com/matryer/is"
)

func TestDefaultConfiguration(t *testing.T) {
	is := is.New(t)
	cfg := DefaultConfiguration()

	is.Equal(len(cfg.Resources), 3) // should have orders, customers and products
	is.True(!cfg.NormalizeErrors)

	orders := cfg.Resources[0]
	is.Equal(orders.Name, "orders")
	is.Equal(orders.Collection, "orders")
	is.Equal(orders.CreateResponse, CreateResponseMessage)
	is.Equal(orders.StoreErrorStatus, http.StatusBadRequest)
	is.Equal(len(orders.RequiredFields), 0)
	is.Equal(orders.Messages.NotFound, "Order not found")
	is.Equal(orders.Messages.Deleted, "Order deleted")

	customers := cfg.Resources[1]
	is.Equal(customers.CreateResponse, CreateResponseInsertResult)
	is.Equal(customers.StoreErrorStatus, http.StatusInternalServerError)
	is.Equal(customers.Messages.InvalidID, "Invalid ID format")
	is.Equal(customers.Messages.MissingFields, "Name and email are required")
	is.Equal(customers.Messages.ListFailed, "") // store error text is returned

	products := cfg.Resources[2]
	is.Equal(len(products.RequiredFields), 4)
	is.Equal(products.Messages.NotFound, "Product not found")
}

func TestLoadResourceWithDefaults(t *testing.T) {
	is, cfg := setupConfigTest(t, `
normalizeErrors: true
resources:
  - name: playlists
    requiredFields: [title]
`)

	is.True(cfg.NormalizeErrors)

	r := cfg.Resources[0]
	is.Equal(r.Kind, "Playlists")
	is.Equal(r.Collection, "playlists")
	is.Equal(r.CreateResponse, CreateResponseInsertResult)
	is.Equal(r.StoreErrorStatus, http.StatusInternalServerError)
	is.Equal(r.Messages.MissingFields, "Missing required fields: title")
}

func TestLoadConfigurationRejectsBadResources(t *testing.T) {
	is := is.New(t)

	for _, cfg := range []string{
		`resources: []`,
		`resources: [{name: "Orders"}]`,
		`resources: [{name: orders}, {name: orders}]`,
		`resources: [{name: orders, createResponse: echo}]`,
		`resources: [{name: orders, storeErrorStatus: 200}]`,
	} {
		_, err := LoadConfiguration(bytes.NewBufferString(cfg))
		is.True(err != nil) // configuration should have been rejected
	}
}

func setupConfigTest(t *testing.T, data string) (*is.I, *Config) {
	is := is.New(t)
	config, err := LoadConfiguration(bytes.NewBufferString(data))
	is.NoErr(err)

	return is, config
}
