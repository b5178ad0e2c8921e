// Package catalog reads commerce entities from the catalog service's
// graph-style query API. The client is read-only: it projects only the
// fields the document transformer needs, and any fetch error is fatal to
// the sync run that issued it — there is no partial-catalog fallback.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/primecart/search-sync/pkg/httpclient"
)

// Client talks to the catalog query endpoint.
type Client struct {
	baseURL string
	http    *httpclient.Client
	logger  *slog.Logger
}

// NewClient creates a catalog client. The supplied HTTP client should carry
// the tight, load-bearing retry profile: the catalog is authoritative and
// failing fast beats hiding its unavailability.
func NewClient(baseURL string, hc *httpclient.Client, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		http:    hc,
		logger:  logger,
	}
}

// Query is one graph-style read: an entity kind, a field projection, an
// optional filter predicate, and pagination.
type Query struct {
	Entity  string         `json:"entity"`
	Fields  []string       `json:"fields"`
	Filters map[string]any `json:"filters,omitempty"`
	Limit   int            `json:"limit,omitempty"`
	Offset  int            `json:"offset,omitempty"`
}

// queryResponse is the catalog's paged response envelope.
type queryResponse struct {
	Data   json.RawMessage `json:"data"`
	Count  int             `json:"count"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// query executes a query and decodes the data page into out, returning the
// total count across all pages.
func (c *Client) query(ctx context.Context, q Query, out any) (int, error) {
	body, err := json.Marshal(q)
	if err != nil {
		return 0, fmt.Errorf("marshal catalog query: %w", err)
	}

	resp, err := c.http.Post(ctx, c.baseURL+"/query", "application/json", bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("catalog query %s: %w", q.Entity, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, httpclient.ParseResponseError(resp, "catalog")
	}

	var envelope queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return 0, fmt.Errorf("decode catalog response for %s: %w", q.Entity, err)
	}

	if out != nil && len(envelope.Data) > 0 {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return 0, fmt.Errorf("decode %s entities: %w", q.Entity, err)
		}
	}

	c.logger.DebugContext(ctx, "catalog query executed",
		slog.String("entity", q.Entity),
		slog.Int("count", envelope.Count),
		slog.Int("offset", q.Offset),
	)

	return envelope.Count, nil
}

// Ping checks whether the catalog service is reachable.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.Get(ctx, c.baseURL+"/health/live")
	if err != nil {
		return fmt.Errorf("catalog ping: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("catalog ping: unexpected status %d", resp.StatusCode)
	}
	return nil
}
