package content

import (
	"context"
	"log/slog"
	"sync"

	"github.com/primecart/search-sync/internal/domain"
)

// defaultWorkers bounds concurrent CMS lookups per enrichment batch.
const defaultWorkers = 8

// Result pairs one owner with whatever enrichment the CMS had for it.
// Content is nil when no entry exists or the lookup failed.
type Result struct {
	OwnerID string
	Content *domain.Enrichment
}

// Enricher fans a batch of owner IDs out to the CMS. Enrichment is strictly
// additive: lookups that fail are logged and reported as absent, and Fetch
// never returns an error. A total CMS outage yields an all-absent batch.
type Enricher struct {
	client  *Client
	workers int
	logger  *slog.Logger
}

// NewEnricher creates an enricher running at most workers concurrent
// lookups; workers <= 0 selects the default.
func NewEnricher(client *Client, workers int, logger *slog.Logger) *Enricher {
	if workers <= 0 {
		workers = defaultWorkers
	}
	return &Enricher{
		client:  client,
		workers: workers,
		logger:  logger,
	}
}

// Fetch looks up enrichment for every owner in the batch. Results come back
// in input order, one per owner, with Content nil for owners that have no
// entry or whose lookup failed.
func (e *Enricher) Fetch(ctx context.Context, kind domain.EntityKind, ownerIDs []string) []Result {
	results := make([]Result, len(ownerIDs))
	for i, id := range ownerIDs {
		results[i] = Result{OwnerID: id}
	}
	if len(ownerIDs) == 0 {
		return results
	}

	jobs := make(chan int)
	var wg sync.WaitGroup

	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				entry, err := e.client.FindByOwner(ctx, kind, ownerIDs[i])
				if err != nil {
					e.logger.WarnContext(ctx, "enrichment lookup failed, continuing without content",
						slog.String("kind", string(kind)),
						slog.String("owner_id", ownerIDs[i]),
						slog.String("error", err.Error()),
					)
					continue
				}
				results[i].Content = entry
			}
		}()
	}

	for i := range ownerIDs {
		select {
		case jobs <- i:
		case <-ctx.Done():
			// Remaining owners stay absent. The batch still completes.
			e.logger.WarnContext(ctx, "enrichment batch cancelled",
				slog.String("kind", string(kind)),
				slog.Int("remaining", len(ownerIDs)-i),
			)
			close(jobs)
			wg.Wait()
			return results
		}
	}
	close(jobs)
	wg.Wait()

	return results
}
