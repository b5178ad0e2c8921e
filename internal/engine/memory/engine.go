package memory

import (
	"context"
	"sync"

	"github.com/primecart/search-sync/internal/engine"
)

// Engine is an in-memory implementation of the engine.Engine interface,
// used in tests and for local development without a search backend.
// Thread-safe via sync.RWMutex.
type Engine struct {
	mu       sync.RWMutex
	docs     map[string]engine.Document
	settings *engine.Settings
}

// New creates a new in-memory engine.
func New() *Engine {
	return &Engine{
		docs: make(map[string]engine.Document),
	}
}

// GetDocuments returns the stored documents for the given ids. Missing ids
// are absent from the result.
func (e *Engine) GetDocuments(_ context.Context, ids []string) (map[string]engine.Document, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	found := make(map[string]engine.Document)
	for _, id := range ids {
		if doc, ok := e.docs[id]; ok {
			found[id] = cloneDoc(doc)
		}
	}
	return found, nil
}

// UpsertDocuments adds or fully replaces documents in the store.
func (e *Engine) UpsertDocuments(_ context.Context, docs []engine.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, doc := range docs {
		if id := doc.ID(); id != "" {
			e.docs[id] = cloneDoc(doc)
		}
	}
	return nil
}

// DeleteDocuments removes documents by id. Unknown ids are ignored.
func (e *Engine) DeleteDocuments(_ context.Context, ids []string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, id := range ids {
		delete(e.docs, id)
	}
	return nil
}

// UpdateSettings stores the settings object.
func (e *Engine) UpdateSettings(_ context.Context, s *engine.Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp := *s
	e.settings = &cp
	return nil
}

// Stats returns the document count. The memory engine is never indexing in
// the background.
func (e *Engine) Stats(_ context.Context) (*engine.Stats, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	return &engine.Stats{NumberOfDocuments: int64(len(e.docs))}, nil
}

// Settings returns the last applied settings, or nil if none were applied.
func (e *Engine) Settings() *engine.Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()

	if e.settings == nil {
		return nil
	}
	cp := *e.settings
	return &cp
}

// Len returns the number of stored documents.
func (e *Engine) Len() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.docs)
}

// Document returns a copy of the stored document for id, if present.
func (e *Engine) Document(id string) (engine.Document, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	doc, ok := e.docs[id]
	if !ok {
		return nil, false
	}
	return cloneDoc(doc), true
}

// cloneDoc shallow-copies a document so callers cannot mutate stored state.
func cloneDoc(doc engine.Document) engine.Document {
	cp := make(engine.Document, len(doc))
	for k, v := range doc {
		cp[k] = v
	}
	return cp
}
