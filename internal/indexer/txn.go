// Package indexer applies document batches to a search index with
// transactional, compensation-on-failure semantics. Each write or delete
// snapshots the affected documents first, so a later failure in the same
// logical operation can restore the index to its pre-run state.
package indexer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/primecart/search-sync/internal/engine"
)

// ErrRollbackIncomplete reports that one or more compensating writes failed.
// The rollback is best-effort: the failure is surfaced, never masked as
// success, and not retried indefinitely.
var ErrRollbackIncomplete = errors.New("rollback incomplete")

// State is the lifecycle of a transaction.
type State int

const (
	StatePending State = iota
	StateCommitted
	StateRolledBack
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateCommitted:
		return "committed"
	case StateRolledBack:
		return "rolled_back"
	default:
		return "unknown"
	}
}

// CompensationRecord captures what one index step changed: ids that did not
// exist before (deleted on rollback) and the verbatim prior content of ids
// that did (restored on rollback as full replacements, never merged).
type CompensationRecord struct {
	CreatedIDs  []string
	Overwritten []engine.Document
}

// Txn is one logical index operation built from write and delete steps.
// Steps are compensated in reverse order if the operation is aborted.
// A Txn is not safe for concurrent use.
type Txn struct {
	eng     engine.Engine
	logger  *slog.Logger
	state   State
	records []CompensationRecord
}

// Begin starts a new pending transaction against the given index.
func Begin(eng engine.Engine, logger *slog.Logger) *Txn {
	return &Txn{
		eng:    eng,
		logger: logger,
		state:  StatePending,
	}
}

// State returns the transaction's current state.
func (t *Txn) State() State {
	return t.state
}

// Write upserts a batch of documents. The current documents at those ids are
// read first: absent ids are recorded as created, present ones captured
// verbatim for restoration. The write itself is a single batch call.
func (t *Txn) Write(ctx context.Context, docs []engine.Document) error {
	if err := t.requirePending("write"); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}

	ids := make([]string, 0, len(docs))
	for _, doc := range docs {
		ids = append(ids, doc.ID())
	}

	before, err := t.eng.GetDocuments(ctx, ids)
	if err != nil {
		return fmt.Errorf("snapshot before write: %w", err)
	}

	record := CompensationRecord{}
	for _, id := range ids {
		if prior, ok := before[id]; ok {
			record.Overwritten = append(record.Overwritten, prior)
		} else {
			record.CreatedIDs = append(record.CreatedIDs, id)
		}
	}

	if err := t.eng.UpsertDocuments(ctx, docs); err != nil {
		return fmt.Errorf("write documents: %w", err)
	}

	t.records = append(t.records, record)
	return nil
}

// Delete removes a batch of ids, snapshotting their current documents first
// so the whole batch can be restored on rollback.
func (t *Txn) Delete(ctx context.Context, ids []string) error {
	if err := t.requirePending("delete"); err != nil {
		return err
	}
	if len(ids) == 0 {
		return nil
	}

	before, err := t.eng.GetDocuments(ctx, ids)
	if err != nil {
		return fmt.Errorf("snapshot before delete: %w", err)
	}

	record := CompensationRecord{}
	for _, id := range ids {
		if prior, ok := before[id]; ok {
			record.Overwritten = append(record.Overwritten, prior)
		}
	}

	if err := t.eng.DeleteDocuments(ctx, ids); err != nil {
		return fmt.Errorf("delete documents: %w", err)
	}

	t.records = append(t.records, record)
	return nil
}

// Commit finalizes the transaction and discards its compensation records.
// Commit means every step's write request was accepted by the index; the
// engine's background processing is not awaited.
func (t *Txn) Commit() {
	if t.state != StatePending {
		return
	}
	t.state = StateCommitted
	t.records = nil
}

// Rollback compensates every completed step in reverse order: created ids
// are deleted, overwritten and deleted documents are re-indexed verbatim.
// Compensation failures are logged and folded into ErrRollbackIncomplete.
// Snapshots are full replacements, so invoking compensation again for the
// same record is a no-op in effect.
func (t *Txn) Rollback(ctx context.Context) error {
	if t.state != StatePending {
		return nil
	}
	t.state = StateRolledBack

	var failures []error
	for i := len(t.records) - 1; i >= 0; i-- {
		record := t.records[i]

		if len(record.CreatedIDs) > 0 {
			if err := t.eng.DeleteDocuments(ctx, record.CreatedIDs); err != nil {
				t.logger.ErrorContext(ctx, "compensation delete failed",
					slog.Int("step", i),
					slog.Int("ids", len(record.CreatedIDs)),
					slog.String("error", err.Error()),
				)
				failures = append(failures, err)
			}
		}

		if len(record.Overwritten) > 0 {
			if err := t.eng.UpsertDocuments(ctx, record.Overwritten); err != nil {
				t.logger.ErrorContext(ctx, "compensation restore failed",
					slog.Int("step", i),
					slog.Int("documents", len(record.Overwritten)),
					slog.String("error", err.Error()),
				)
				failures = append(failures, err)
			}
		}
	}
	t.records = nil

	if len(failures) > 0 {
		return fmt.Errorf("%w: %w", ErrRollbackIncomplete, errors.Join(failures...))
	}
	return nil
}

func (t *Txn) requirePending(op string) error {
	if t.state != StatePending {
		return fmt.Errorf("%s on %s transaction", op, t.state)
	}
	return nil
}
