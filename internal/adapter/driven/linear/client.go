// Package linear implements the TrackerClient port against the Linear
// GraphQL API.
package linear

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/ericfisherdev/trackersync/internal/domain/model"
	"github.com/ericfisherdev/trackersync/internal/domain/port/driven"
)

// DefaultEndpoint is the production GraphQL endpoint.
const DefaultEndpoint = "https://api.linear.app/graphql"

// personalKeyPrefix marks personal API keys, which Linear expects in the
// Authorization header without a scheme. OAuth access tokens use Bearer.
const personalKeyPrefix = "lin_api_"

// Compile-time interface satisfaction check.
var _ driven.TrackerClient = (*Client)(nil)

// Client implements the driven.TrackerClient port over GraphQL POST requests.
type Client struct {
	http     *http.Client
	endpoint string
}

// NewClient creates a client for the production endpoint.
func NewClient(token string) *Client {
	return NewClientWithEndpoint(DefaultEndpoint, token)
}

// NewClientWithEndpoint creates a client for a custom endpoint with a
// 30-second request timeout as a safety net alongside context cancellation.
func NewClientWithEndpoint(endpoint, token string) *Client {
	return NewClientWithHTTPClient(&http.Client{Timeout: 30 * time.Second}, endpoint, token)
}

// NewClientWithHTTPClient creates a Client with a custom http.Client and endpoint.
// The client's transport is wrapped with credential injection.
// This constructor is intended for testing, allowing injection of an httptest server.
func NewClientWithHTTPClient(httpClient *http.Client, endpoint, token string) *Client {
	base := httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}

	authed := *httpClient
	authed.Transport = authTransport(base, token)

	return &Client{http: &authed, endpoint: endpoint}
}

// Factory returns a TrackerClientFactory bound to endpoint.
func Factory(endpoint string) driven.TrackerClientFactory {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return func(token string) driven.TrackerClient {
		return NewClientWithEndpoint(endpoint, token)
	}
}

func authTransport(base http.RoundTripper, token string) http.RoundTripper {
	if strings.HasPrefix(token, personalKeyPrefix) {
		return &apiKeyTransport{base: base, key: token}
	}
	return &oauth2.Transport{
		Base:   base,
		Source: oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"}),
	}
}

// apiKeyTransport sets the raw personal API key as the Authorization header.
type apiKeyTransport struct {
	base http.RoundTripper
	key  string
}

func (t *apiKeyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", t.key)
	return t.base.RoundTrip(clone)
}

// graphqlRequest is the JSON body sent to the GraphQL API.
type graphqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphqlError struct {
	Message    string `json:"message"`
	Extensions struct {
		Code string `json:"code"`
		Type string `json:"type"`
	} `json:"extensions"`
}

type graphqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []graphqlError  `json:"errors"`
}

// APIError is a GraphQL or transport failure. It wraps model.ErrRemote.
type APIError struct {
	Status   int
	Messages []string
	notFound bool
}

func (e *APIError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("linear api: http status %d", e.Status)
	}
	return "linear api: " + strings.Join(e.Messages, "; ")
}

func (e *APIError) Unwrap() error {
	return model.ErrRemote
}

// NotFound reports whether the API rejected the request because the entity
// does not exist.
func (e *APIError) NotFound() bool {
	return e.notFound
}

// do posts a GraphQL document and decodes the data member into out.
func (c *Client) do(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(graphqlRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("marshaling graphql request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("creating graphql request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: graphql request: %v", model.ErrRemote, err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return fmt.Errorf("%w: reading graphql response: %v", model.ErrRemote, err)
	}

	var gqlResp graphqlResponse
	decodeErr := json.Unmarshal(raw, &gqlResp)

	if len(gqlResp.Errors) > 0 {
		apiErr := &APIError{Status: resp.StatusCode}
		for _, e := range gqlResp.Errors {
			apiErr.Messages = append(apiErr.Messages, e.Message)
			if isNotFound(e) {
				apiErr.notFound = true
			}
		}
		slog.Warn("linear: response contains errors", "status", resp.StatusCode, "errors", apiErr.Messages[0])
		return apiErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		slog.Warn("linear: non-2xx response", "status", resp.StatusCode)
		return &APIError{Status: resp.StatusCode}
	}

	if decodeErr != nil {
		return fmt.Errorf("%w: decoding graphql response: %v", model.ErrRemote, decodeErr)
	}

	if out == nil || len(gqlResp.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(gqlResp.Data, out); err != nil {
		return fmt.Errorf("%w: decoding graphql data: %v", model.ErrRemote, err)
	}
	return nil
}

func isNotFound(e graphqlError) bool {
	if strings.EqualFold(e.Extensions.Code, "ENTITY_NOT_FOUND") {
		return true
	}
	return strings.Contains(strings.ToLower(e.Message), "entity not found")
}

func isAPINotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.NotFound()
}
