package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/diwise/document-gateway/pkg/documents"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/logging"
	"github.com/diwise/service-chassis/pkg/infrastructure/o11y/tracing"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type DocumentGatewayClient interface {
	Create(ctx context.Context, resource string, doc documents.Document) (*CreateResult, error)
	List(ctx context.Context, resource string) ([]documents.Document, error)
	Retrieve(ctx context.Context, resource, id string) (documents.Document, error)
	// Update returns a nil document when the gateway found nothing to update
	Update(ctx context.Context, resource, id string, fields documents.Document) (documents.Document, error)
	Delete(ctx context.Context, resource, id string) (string, error)
}

// CreateResult holds the identifier of a created document along with the
// location the gateway reported for it
type CreateResult struct {
	location string
	id       string
	message  string
}

func (r CreateResult) Location() string {
	return r.location
}

func (r CreateResult) ID() string {
	return r.id
}

// Message is empty unless the resource answers creates with a message
func (r CreateResult) Message() string {
	return r.message
}

func Debug(enabled string) func(*dgClient) {
	return func(c *dgClient) {
		c.debug = (enabled == "true")
	}
}

func Headers(headers map[string][]string) func(*dgClient) {
	return func(c *dgClient) {
		c.headers = headers
	}
}

func NewDocumentGatewayClient(gatewayURL string, options ...func(*dgClient)) DocumentGatewayClient {
	c := &dgClient{
		baseURL: strings.TrimSuffix(gatewayURL, "/"),
		debug:   false,
	}

	for _, option := range options {
		option(c)
	}

	return c
}

const (
	TraceAttributeResource   string = "resource"
	TraceAttributeDocumentID string = "document-id"
)

var tracer = otel.Tracer("document-gateway-client")

type dgClient struct {
	baseURL string
	headers map[string][]string
	debug   bool
}

func (c dgClient) Create(ctx context.Context, resource string, doc documents.Document) (*CreateResult, error) {
	var err error

	ctx, span := tracer.Start(ctx, "create-document",
		trace.WithAttributes(attribute.String(TraceAttributeResource, resource)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	body, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}

	response, responseBody, err := c.callGateway(ctx, http.MethodPost, c.resourceURL(resource), bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusCreated {
		err = c.unexpectedResponse(response, responseBody)
		return nil, err
	}

	reply := struct {
		Message    string `json:"message"`
		InsertedID string `json:"insertedId"`
	}{}
	_ = json.Unmarshal(responseBody, &reply)

	location := response.Header.Get("Location")
	id := reply.InsertedID

	if location != "" && id == "" {
		id = location[strings.LastIndex(location, "/")+1:]
	}

	if id == "" {
		err = fmt.Errorf("gateway did not report the identifier of the created document (%w)", ErrBadResponse)
		return nil, err
	}

	if location == "" {
		location = "/" + resource + "/" + url.PathEscape(id)
	}

	return &CreateResult{location: location, id: id, message: reply.Message}, nil
}

func (c dgClient) List(ctx context.Context, resource string) ([]documents.Document, error) {
	var err error

	ctx, span := tracer.Start(ctx, "list-documents",
		trace.WithAttributes(attribute.String(TraceAttributeResource, resource)),
	)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	response, responseBody, err := c.callGateway(ctx, http.MethodGet, c.resourceURL(resource), nil)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		err = c.unexpectedResponse(response, responseBody)
		return nil, err
	}

	docs := []documents.Document{}
	err = json.Unmarshal(responseBody, &docs)
	if err != nil {
		err = fmt.Errorf("failed to unmarshal documents: %s (%w)", err.Error(), ErrBadResponse)
		return nil, err
	}

	return docs, nil
}

func (c dgClient) Retrieve(ctx context.Context, resource, id string) (documents.Document, error) {
	var err error

	ctx, span := c.startDocumentSpan(ctx, "retrieve-document", resource, id)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	response, responseBody, err := c.callGateway(ctx, http.MethodGet, c.documentURL(resource, id), nil)
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		err = c.unexpectedResponse(response, responseBody)
		return nil, err
	}

	var doc documents.Document
	doc, err = documents.Decode(bytes.NewReader(responseBody))
	if err != nil {
		err = fmt.Errorf("failed to decode document: %s (%w)", err.Error(), ErrBadResponse)
		return nil, err
	}

	return doc, nil
}

func (c dgClient) Update(ctx context.Context, resource, id string, fields documents.Document) (documents.Document, error) {
	var err error

	ctx, span := c.startDocumentSpan(ctx, "update-document", resource, id)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	body, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}

	response, responseBody, err := c.callGateway(ctx, http.MethodPut, c.documentURL(resource, id), bytes.NewBuffer(body))
	if err != nil {
		return nil, err
	}

	if response.StatusCode != http.StatusOK {
		err = c.unexpectedResponse(response, responseBody)
		return nil, err
	}

	var doc documents.Document
	err = json.Unmarshal(responseBody, &doc)
	if err != nil {
		err = fmt.Errorf("failed to unmarshal document: %s (%w)", err.Error(), ErrBadResponse)
		return nil, err
	}

	return doc, nil
}

func (c dgClient) Delete(ctx context.Context, resource, id string) (string, error) {
	var err error

	ctx, span := c.startDocumentSpan(ctx, "delete-document", resource, id)
	defer func() { tracing.RecordAnyErrorAndEndSpan(err, span) }()

	response, responseBody, err := c.callGateway(ctx, http.MethodDelete, c.documentURL(resource, id), nil)
	if err != nil {
		return "", err
	}

	if response.StatusCode != http.StatusOK {
		err = c.unexpectedResponse(response, responseBody)
		return "", err
	}

	reply := struct {
		Message string `json:"message"`
	}{}
	_ = json.Unmarshal(responseBody, &reply)

	return reply.Message, nil
}

func (c dgClient) resourceURL(resource string) string {
	return c.baseURL + "/" + url.PathEscape(resource)
}

func (c dgClient) documentURL(resource, id string) string {
	return c.resourceURL(resource) + "/" + url.PathEscape(id)
}

func (c dgClient) startDocumentSpan(ctx context.Context, name, resource, id string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name,
		trace.WithAttributes(attribute.String(TraceAttributeResource, resource)),
		trace.WithAttributes(attribute.String(TraceAttributeDocumentID, id)),
	)
}

func (c dgClient) unexpectedResponse(response *http.Response, responseBody []byte) error {
	if response.StatusCode >= http.StatusBadRequest {
		return newErrorFromResponse(response.StatusCode, responseBody)
	}

	return fmt.Errorf("unexpected response code %d (%w)", response.StatusCode, ErrBadResponse)
}

func (c dgClient) callGateway(ctx context.Context, method, endpoint string, body io.Reader) (*http.Response, []byte, error) {
	httpClient := http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create request: %s (%w)", err.Error(), ErrRequest)
	}

	req.Header.Add("Accept", "application/json")
	if body != nil {
		req.Header.Add("Content-Type", "application/json")
	}

	for header, headerValue := range c.headers {
		for _, val := range headerValue {
			req.Header.Add(header, val)
		}
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to send request: %s (%w)", err.Error(), ErrRequest)
	}

	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read response body: %s (%w)", err.Error(), ErrBadResponse)
	}

	if c.debug && resp.StatusCode >= http.StatusBadRequest && resp.StatusCode != http.StatusNotFound {
		reqbytes, _ := httputil.DumpRequest(req, false)
		respbytes, _ := httputil.DumpResponse(resp, false)

		logging.GetFromContext(ctx).Error("request failed", "request", string(reqbytes), "response", string(respbytes))
	}

	return resp, respBody, nil
}
