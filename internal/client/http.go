package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alfredjeanlab/streams/internal/model"
	"github.com/alfredjeanlab/streams/internal/presence"
	"github.com/alfredjeanlab/streams/internal/streams"
)

// HTTPClient implements StreamsClient using the streams HTTP/JSON REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	actor      string
	httpClient *http.Client
}

// Compile-time check that HTTPClient implements StreamsClient.
var _ StreamsClient = (*HTTPClient)(nil)

// NewHTTPClient creates a new HTTP client targeting the given base URL
// (e.g. "http://localhost:8080"). When token is non-empty, an Authorization
// header is set on every request.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{},
	}
}

// SetActor sets the name the server records on events caused by this client.
func (c *HTTPClient) SetActor(actor string) { c.actor = actor }

// Close is a no-op for the HTTP client.
func (c *HTTPClient) Close() error { return nil }

func nsPath(namespace string, parts ...string) string {
	p := "/v1/namespaces/" + url.PathEscape(namespace)
	for _, part := range parts {
		p += "/" + url.PathEscape(part)
	}
	return p
}

// --- Fields ---

func (c *HTTPClient) AddField(ctx context.Context, spec model.FieldSpec) (*model.Field, error) {
	var field model.Field
	if err := c.doJSON(ctx, http.MethodPost, "/v1/fields", spec, &field); err != nil {
		return nil, err
	}
	return &field, nil
}

func (c *HTTPClient) AddFields(ctx context.Context, specs []model.FieldSpec) (*AddFieldsResponse, error) {
	body := map[string]any{"fields": specs}
	var resp AddFieldsResponse
	if err := c.doJSON(ctx, http.MethodPost, "/v1/fields/batch", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *HTTPClient) GetField(ctx context.Context, namespace, slug string) (*model.Field, error) {
	var field model.Field
	if err := c.doJSON(ctx, http.MethodGet, nsPath(namespace, "fields", slug), nil, &field); err != nil {
		return nil, err
	}
	return &field, nil
}

func (c *HTTPClient) ListFields(ctx context.Context, namespace string) ([]*model.Field, error) {
	var resp struct {
		Fields []*model.Field `json:"fields"`
	}
	if err := c.doJSON(ctx, http.MethodGet, nsPath(namespace, "fields"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Fields, nil
}

func (c *HTTPClient) DeleteField(ctx context.Context, namespace, slug string) error {
	return c.doJSON(ctx, http.MethodDelete, nsPath(namespace, "fields", slug), nil, nil)
}

func (c *HTTPClient) GetFieldAssignments(ctx context.Context, namespace, slug string) ([]*model.Assignment, error) {
	var resp struct {
		Assignments []*model.Assignment `json:"assignments"`
	}
	if err := c.doJSON(ctx, http.MethodGet, nsPath(namespace, "fields", slug, "assignments"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Assignments, nil
}

// --- Streams ---

func (c *HTTPClient) AddStream(ctx context.Context, spec model.StreamSpec) (*model.Stream, error) {
	var stream model.Stream
	if err := c.doJSON(ctx, http.MethodPost, nsPath(spec.Namespace, "streams"), spec, &stream); err != nil {
		return nil, err
	}
	return &stream, nil
}

func (c *HTTPClient) GetStream(ctx context.Context, namespace, slug string) (*model.Stream, error) {
	var stream model.Stream
	if err := c.doJSON(ctx, http.MethodGet, nsPath(namespace, "streams", slug), nil, &stream); err != nil {
		return nil, err
	}
	return &stream, nil
}

func (c *HTTPClient) ListStreams(ctx context.Context, namespace string) ([]*model.Stream, error) {
	var resp struct {
		Streams []*model.Stream `json:"streams"`
	}
	if err := c.doJSON(ctx, http.MethodGet, nsPath(namespace, "streams"), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Streams, nil
}

func (c *HTTPClient) DeleteStream(ctx context.Context, namespace, slug string) error {
	return c.doJSON(ctx, http.MethodDelete, nsPath(namespace, "streams", slug), nil, nil)
}

// --- Assignments ---

func (c *HTTPClient) AssignField(ctx context.Context, namespace, stream, field string, opts model.AssignOptions) (*model.Assignment, error) {
	var a model.Assignment
	if err := c.doJSON(ctx, http.MethodPut, nsPath(namespace, "streams", stream, "fields", field), opts, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *HTTPClient) DeassignField(ctx context.Context, namespace, stream, field string) error {
	return c.doJSON(ctx, http.MethodDelete, nsPath(namespace, "streams", stream, "fields", field), nil, nil)
}

// --- Entries ---

// GetStreamFields returns the rendered form rows of a stream. With no
// values and no entry ID it uses the GET route.
func (c *HTTPClient) GetStreamFields(ctx context.Context, namespace, stream string, values map[string]any, entryID string) ([]model.StreamField, error) {
	var resp struct {
		Fields []model.StreamField `json:"fields"`
	}
	var err error
	if len(values) == 0 && entryID == "" {
		err = c.doJSON(ctx, http.MethodGet, nsPath(namespace, "streams", stream, "fields"), nil, &resp)
	} else {
		body := map[string]any{"values": values, "entry_id": entryID}
		err = c.doJSON(ctx, http.MethodPost, nsPath(namespace, "streams", stream, "form"), body, &resp)
	}
	if err != nil {
		return nil, err
	}
	return resp.Fields, nil
}

// ValidateEntry returns nil when values are accepted. Rejections come back
// as an *APIError whose Errors list the offending fields.
func (c *HTTPClient) ValidateEntry(ctx context.Context, namespace, stream string, values map[string]any) error {
	body := map[string]any{"values": values}
	return c.doJSON(ctx, http.MethodPost, nsPath(namespace, "streams", stream, "validate"), body, nil)
}

// --- Registry ---

func (c *HTTPClient) ListTypes(ctx context.Context) ([]TypeInfo, error) {
	var resp struct {
		Types []TypeInfo `json:"types"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/types", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Types, nil
}

// --- Actors ---

func (c *HTTPClient) ListActors(ctx context.Context, active time.Duration) ([]presence.Entry, error) {
	path := "/v1/actors"
	if active > 0 {
		path += "?active=" + url.QueryEscape(active.String())
	}
	var resp struct {
		Actors []presence.Entry `json:"actors"`
	}
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Actors, nil
}

// --- Health ---

func (c *HTTPClient) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.doJSON(ctx, http.MethodGet, "/v1/health", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// --- internal helpers ---

// APIError represents an error response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Code       string
	Errors     []model.FieldError
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Unwrap returns the streams sentinel named by Code so callers can use
// errors.Is with the same errors the service returns.
func (e *APIError) Unwrap() error {
	return streams.ErrorForCode(e.Code)
}

// doJSON performs an HTTP request with optional JSON body and decodes the JSON response.
// If result is nil, the response body is discarded (for DELETE/204 responses).
func (c *HTTPClient) doJSON(ctx context.Context, method, path string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.actor != "" {
		req.Header.Set("X-Streams-Actor", c.actor)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("performing request: %w", err)
	}
	defer resp.Body.Close()

	// 204 No Content: success with no body.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp struct {
			Error  string             `json:"error"`
			Code   string             `json:"code"`
			Errors []model.FieldError `json:"errors"`
		}
		if json.Unmarshal(respBody, &errResp) == nil && errResp.Error != "" {
			return &APIError{
				StatusCode: resp.StatusCode,
				Message:    errResp.Error,
				Code:       errResp.Code,
				Errors:     errResp.Errors,
			}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}

	return nil
}
