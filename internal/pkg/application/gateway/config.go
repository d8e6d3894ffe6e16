package gateway

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

type CreateResponse string

const (
	// CreateResponseMessage answers a create with a confirmation message
	CreateResponseMessage CreateResponse = "message"
	// CreateResponseInsertResult answers a create with the store's insert result
	CreateResponseInsertResult CreateResponse = "insertResult"
)

type Messages struct {
	Created       string `yaml:"created"`
	Deleted       string `yaml:"deleted"`
	InvalidID     string `yaml:"invalidID"`
	NotFound      string `yaml:"notFound"`
	MissingFields string `yaml:"missingFields"`

	// An empty failure message means that the store error text is returned
	ListFailed     string `yaml:"listFailed"`
	RetrieveFailed string `yaml:"retrieveFailed"`
	UpdateFailed   string `yaml:"updateFailed"`
	DeleteFailed   string `yaml:"deleteFailed"`
}

type ResourceConfig struct {
	Name             string         `yaml:"name"`
	Kind             string         `yaml:"kind"`
	Collection       string         `yaml:"collection"`
	RequiredFields   []string       `yaml:"requiredFields"`
	CreateResponse   CreateResponse `yaml:"createResponse"`
	StoreErrorStatus int            `yaml:"storeErrorStatus"`
	Messages         Messages       `yaml:"messages"`
}

type Config struct {
	NormalizeErrors bool             `yaml:"normalizeErrors"`
	Resources       []ResourceConfig `yaml:"resources"`
}

func LoadConfiguration(data io.Reader) (*Config, error) {

	buf, err := io.ReadAll(data)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	err = yaml.Unmarshal(buf, &cfg)
	if err != nil {
		return nil, err
	}

	return cfg, cfg.validate()
}

// DefaultConfiguration returns the orders, customers and products resources
func DefaultConfiguration() *Config {
	cfg, err := LoadConfiguration(bytes.NewBufferString(defaultResources))
	if err != nil {
		panic(fmt.Sprintf("built in resource configuration is broken: %s", err.Error()))
	}
	return cfg
}

var resourceNamePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*$`)

func (cfg *Config) validate() error {
	if len(cfg.Resources) == 0 {
		return fmt.Errorf("no resources configured")
	}

	seen := map[string]bool{}

	for i := range cfg.Resources {
		r := &cfg.Resources[i]

		if !resourceNamePattern.MatchString(r.Name) {
			return fmt.Errorf("invalid resource name %q", r.Name)
		}

		if seen[r.Name] {
			return fmt.Errorf("resource %q is configured more than once", r.Name)
		}
		seen[r.Name] = true

		if r.Collection == "" {
			r.Collection = r.Name
		}

		if r.Kind == "" {
			r.Kind = strings.ToUpper(r.Name[:1]) + r.Name[1:]
		}

		switch r.CreateResponse {
		case "":
			r.CreateResponse = CreateResponseInsertResult
		case CreateResponseMessage, CreateResponseInsertResult:
		default:
			return fmt.Errorf("resource %q has unknown create response %q", r.Name, r.CreateResponse)
		}

		if r.StoreErrorStatus == 0 {
			r.StoreErrorStatus = http.StatusInternalServerError
		}

		if r.StoreErrorStatus < 400 || r.StoreErrorStatus > 599 {
			return fmt.Errorf("resource %q has a store error status (%d) that is not an error", r.Name, r.StoreErrorStatus)
		}

		r.Messages.applyDefaults(r)
	}

	return nil
}

func (m *Messages) applyDefaults(r *ResourceConfig) {
	setIfEmpty := func(s *string, value string) {
		if *s == "" {
			*s = value
		}
	}

	setIfEmpty(&m.Created, r.Kind+" created successfully")
	setIfEmpty(&m.Deleted, r.Kind+" deleted")
	setIfEmpty(&m.InvalidID, "Invalid ID format")
	setIfEmpty(&m.NotFound, r.Kind+" not found")
	setIfEmpty(&m.MissingFields, "Missing required fields: "+strings.Join(r.RequiredFields, ", "))
}

const defaultResources string = `
resources:
  - name: orders
    kind: Order
    createResponse: message
    storeErrorStatus: 400
    messages:
      created: Order placed successfully
      invalidID: Invalid order ID format
      listFailed: Failed to fetch orders
      retrieveFailed: Failed to fetch order
      updateFailed: Failed to update order
      deleteFailed: Failed to delete order

  - name: customers
    kind: Customer
    requiredFields: [name, email]
    createResponse: insertResult
    storeErrorStatus: 500
    messages:
      missingFields: Name and email are required

  - name: products
    kind: Product
    requiredFields: [name, price, category, inStock]
    createResponse: insertResult
    storeErrorStatus: 500
    messages:
      missingFields: Name, price, category and inStock are required
`
