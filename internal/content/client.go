// Package content integrates the CMS that stores editorial enrichment for
// catalog entities. Unlike the catalog, the CMS is best-effort: the enricher
// degrades to absent content rather than failing a sync run, and the client
// sits behind a circuit breaker so a CMS outage cannot stall indexing.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	apperrors "github.com/primecart/search-sync/pkg/errors"
	"github.com/primecart/search-sync/pkg/httpclient"

	"github.com/primecart/search-sync/internal/domain"
)

// Client talks to the CMS entries API. All operations address an entry by
// its owning catalog entity: /entries/{kind}/{ownerID}.
type Client struct {
	baseURL string
	apiKey  string
	http    *httpclient.CircuitBreakerClient
	logger  *slog.Logger
}

// NewClient creates a CMS client. The breaker opens on sustained failures so
// batch runs stop paying the timeout per entity once the CMS is clearly down.
func NewClient(baseURL, apiKey string, hc *httpclient.Client, logger *slog.Logger) *Client {
	cb := httpclient.NewCircuitBreakerClient(hc, httpclient.DefaultCircuitBreakerConfig("content"), logger)
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    cb,
		logger:  logger,
	}
}

func (c *Client) entryURL(kind domain.EntityKind, ownerID string) string {
	return fmt.Sprintf("%s/entries/%s/%s", c.baseURL, kind, ownerID)
}

func (c *Client) do(ctx context.Context, method, url string, body any) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal content payload: %w", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("build content request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	return c.http.Do(ctx, req)
}

// FindByOwner fetches the enrichment entry for one catalog entity. Absence
// is not an error: a (nil, nil) return means no editorial content exists.
func (c *Client) FindByOwner(ctx context.Context, kind domain.EntityKind, ownerID string) (*domain.Enrichment, error) {
	resp, err := c.do(ctx, http.MethodGet, c.entryURL(kind, ownerID), nil)
	if err != nil {
		return nil, fmt.Errorf("content lookup %s/%s: %w", kind, ownerID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, nil
	default:
		return nil, httpclient.ParseResponseError(resp, "content")
	}

	var entry domain.Enrichment
	if err := json.NewDecoder(resp.Body).Decode(&entry); err != nil {
		return nil, fmt.Errorf("decode content entry %s/%s: %w", kind, ownerID, err)
	}
	return &entry, nil
}

// Create stores a new enrichment entry for the given owner.
func (c *Client) Create(ctx context.Context, entry domain.Enrichment) error {
	resp, err := c.do(ctx, http.MethodPost, c.entryURL(entry.OwnerKind, entry.OwnerID), entry)
	if err != nil {
		return fmt.Errorf("content create %s/%s: %w", entry.OwnerKind, entry.OwnerID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return httpclient.ParseResponseError(resp, "content")
	}
	return nil
}

// Update replaces the enrichment entry for the given owner.
func (c *Client) Update(ctx context.Context, entry domain.Enrichment) error {
	resp, err := c.do(ctx, http.MethodPut, c.entryURL(entry.OwnerKind, entry.OwnerID), entry)
	if err != nil {
		return fmt.Errorf("content update %s/%s: %w", entry.OwnerKind, entry.OwnerID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return httpclient.ParseResponseError(resp, "content")
	}
	return nil
}

// Delete removes the enrichment entry for the given owner. Deleting an
// absent entry succeeds.
func (c *Client) Delete(ctx context.Context, kind domain.EntityKind, ownerID string) error {
	resp, err := c.do(ctx, http.MethodDelete, c.entryURL(kind, ownerID), nil)
	if err != nil {
		return fmt.Errorf("content delete %s/%s: %w", kind, ownerID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusNoContent, http.StatusNotFound:
		return nil
	default:
		return httpclient.ParseResponseError(resp, "content")
	}
}

// MarkOutdated flips an owner's entry to the outdated sync status, telling
// editors the catalog side changed underneath their copy. Owners without an
// entry are skipped.
func (c *Client) MarkOutdated(ctx context.Context, kind domain.EntityKind, ownerID string) error {
	entry, err := c.FindByOwner(ctx, kind, ownerID)
	if err != nil {
		return err
	}
	if entry == nil || entry.Status == domain.SyncStatusOutdated {
		return nil
	}
	entry.Status = domain.SyncStatusOutdated
	if err := c.Update(ctx, *entry); err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// Ping checks whether the CMS is reachable.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.http.Get(ctx, c.baseURL+"/health/live")
	if err != nil {
		return fmt.Errorf("content ping: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("content ping: unexpected status %d", resp.StatusCode)
	}
	return nil
}
