package engine

import (
	"context"
)

// Document is a flat search-index record. Every document carries its source
// entity's id under the "id" key.
type Document map[string]any

// ID returns the document's primary key, or "" if it is missing or not a
// string.
func (d Document) ID() string {
	id, _ := d["id"].(string)
	return id
}

// TypoTolerance configures the index's typo forgiveness.
type TypoTolerance struct {
	Enabled  bool
	OneTypo  int
	TwoTypos int
}

// Settings is the full desired index schema, computed declaratively per run.
// Applying the same Settings twice produces no observable difference.
type Settings struct {
	SearchableAttributes []string
	FilterableAttributes []string
	SortableAttributes   []string
	DisplayedAttributes  []string
	RankingRules         []string
	TypoTolerance        TypoTolerance
	MaxValuesPerFacet    int
	MaxTotalHits         int
}

// Stats reports basic index statistics for health and observability.
type Stats struct {
	NumberOfDocuments int64
	IsIndexing        bool
}

// Engine is the interface to one search index. Writes are asynchronous on
// the engine side: a nil error means the request was accepted, not that the
// engine has finished applying it.
type Engine interface {
	// GetDocuments retrieves the current documents for the given ids.
	// Missing ids are simply absent from the returned map.
	GetDocuments(ctx context.Context, ids []string) (map[string]Document, error)

	// UpsertDocuments adds or fully replaces documents as a single batch.
	UpsertDocuments(ctx context.Context, docs []Document) error

	// DeleteDocuments removes documents by id as a single batch. Ids that
	// do not exist are ignored.
	DeleteDocuments(ctx context.Context, ids []string) error

	// UpdateSettings applies the desired index schema.
	UpdateSettings(ctx context.Context, s *Settings) error

	// Stats returns current index statistics.
	Stats(ctx context.Context) (*Stats, error)
}
