package meilisearch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/meilisearch/meilisearch-go"

	"github.com/primecart/search-sync/internal/engine"
)

// Engine is a Meilisearch-backed implementation of engine.Engine, bound to a
// single index. Document writes return once Meilisearch has accepted the
// task; background processing is never awaited, so a successful call means
// "accepted", not "applied".
type Engine struct {
	index  meilisearch.IndexManager
	uid    string
	logger *slog.Logger
}

// Client wraps the Meilisearch service connection shared by all engines.
type Client struct {
	manager meilisearch.ServiceManager
}

// NewClient connects to a Meilisearch instance.
func NewClient(url, apiKey string) *Client {
	var opts []meilisearch.Option
	if apiKey != "" {
		opts = append(opts, meilisearch.WithAPIKey(apiKey))
	}
	return &Client{manager: meilisearch.New(url, opts...)}
}

// Ping checks whether the Meilisearch instance is reachable and healthy.
func (c *Client) Ping(ctx context.Context) error {
	health, err := c.manager.HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("meilisearch health: %w", err)
	}
	if health.Status != "available" {
		return fmt.Errorf("meilisearch health: status %q", health.Status)
	}
	return nil
}

// Engine returns an engine bound to the given index uid. The index is
// created lazily by Meilisearch on first document write.
func (c *Client) Engine(uid string, logger *slog.Logger) *Engine {
	return &Engine{
		index:  c.manager.Index(uid),
		uid:    uid,
		logger: logger,
	}
}

// GetDocuments retrieves current documents by id. Ids without a document are
// absent from the result; a missing index is treated the same as an empty
// one.
func (e *Engine) GetDocuments(ctx context.Context, ids []string) (map[string]engine.Document, error) {
	found := make(map[string]engine.Document, len(ids))

	for _, id := range ids {
		var doc engine.Document
		err := e.index.GetDocumentWithContext(ctx, id, nil, &doc)
		if err != nil {
			if isNotFound(err) {
				continue
			}
			return nil, fmt.Errorf("meilisearch get document %s: %w", id, err)
		}
		found[id] = doc
	}

	return found, nil
}

// UpsertDocuments adds or fully replaces documents as one batch task.
func (e *Engine) UpsertDocuments(ctx context.Context, docs []engine.Document) error {
	if len(docs) == 0 {
		return nil
	}

	task, err := e.index.AddDocumentsWithContext(ctx, docs, "id")
	if err != nil {
		return fmt.Errorf("meilisearch upsert documents: %w", err)
	}

	e.logger.Debug("documents accepted for indexing",
		slog.String("index", e.uid),
		slog.Int("count", len(docs)),
		slog.Int64("task_uid", task.TaskUID),
	)
	return nil
}

// DeleteDocuments removes documents by id as one batch task. Unknown ids are
// ignored by Meilisearch.
func (e *Engine) DeleteDocuments(ctx context.Context, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	task, err := e.index.DeleteDocumentsWithContext(ctx, ids)
	if err != nil {
		return fmt.Errorf("meilisearch delete documents: %w", err)
	}

	e.logger.Debug("documents accepted for deletion",
		slog.String("index", e.uid),
		slog.Int("count", len(ids)),
		slog.Int64("task_uid", task.TaskUID),
	)
	return nil
}

// UpdateSettings applies the desired schema to the index.
func (e *Engine) UpdateSettings(ctx context.Context, s *engine.Settings) error {
	settings := &meilisearch.Settings{
		SearchableAttributes: s.SearchableAttributes,
		FilterableAttributes: s.FilterableAttributes,
		SortableAttributes:   s.SortableAttributes,
		DisplayedAttributes:  s.DisplayedAttributes,
		RankingRules:         s.RankingRules,
		TypoTolerance: &meilisearch.TypoTolerance{
			Enabled: s.TypoTolerance.Enabled,
			MinWordSizeForTypos: meilisearch.MinWordSizeForTypos{
				OneTypo:  int64(s.TypoTolerance.OneTypo),
				TwoTypos: int64(s.TypoTolerance.TwoTypos),
			},
		},
		Faceting: &meilisearch.Faceting{
			MaxValuesPerFacet: int64(s.MaxValuesPerFacet),
		},
		Pagination: &meilisearch.Pagination{
			MaxTotalHits: int64(s.MaxTotalHits),
		},
	}

	task, err := e.index.UpdateSettingsWithContext(ctx, settings)
	if err != nil {
		return fmt.Errorf("meilisearch update settings: %w", err)
	}

	e.logger.Info("index settings accepted",
		slog.String("index", e.uid),
		slog.Int64("task_uid", task.TaskUID),
	)
	return nil
}

// Stats returns document count and indexing status for the index.
func (e *Engine) Stats(ctx context.Context) (*engine.Stats, error) {
	stats, err := e.index.GetStatsWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("meilisearch stats: %w", err)
	}

	return &engine.Stats{
		NumberOfDocuments: stats.NumberOfDocuments,
		IsIndexing:        stats.IsIndexing,
	}, nil
}

// isNotFound reports whether the error is a Meilisearch 404 (missing
// document or missing index).
func isNotFound(err error) bool {
	var mErr *meilisearch.Error
	if errors.As(err, &mErr) {
		return mErr.StatusCode == http.StatusNotFound
	}
	return false
}
