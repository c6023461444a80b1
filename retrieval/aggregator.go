// Package retrieval aggregates one logical query across multiple local
// vector stores: parallel fan-out, score-ordered merge with a stable
// store-order tie-break, content-fingerprint dedup, then top-k truncation.
package retrieval

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/richinex/scriba/model"
	"github.com/richinex/scriba/stores"
)

// StoreQuerier is the subset of the store registry the aggregator needs.
type StoreQuerier interface {
	Has(name string) bool
	Query(ctx context.Context, name, query string, topK int) ([]stores.Result, error)
}

// Hit is one aggregated retrieval result.
type Hit struct {
	Content string
	Score   float32
	Store   string
}

// Aggregator fans a query out across named stores.
type Aggregator struct {
	querier StoreQuerier
}

// New creates an aggregator over the given store querier.
func New(querier StoreQuerier) *Aggregator {
	return &Aggregator{querier: querier}
}

// Search queries every named store, merges by descending score (ties break
// by store iteration order), dedups by content fingerprint, and truncates to
// topK. Store names that do not resolve are returned in missing; if none
// resolve the error is a *StoreNotFoundError covering all of them.
func (a *Aggregator) Search(ctx context.Context, query string, storeNames []string, topK int) (hits []Hit, missing []string, err error) {
	var known []string
	for _, name := range storeNames {
		if a.querier.Has(name) {
			known = append(known, name)
		} else {
			missing = append(missing, name)
		}
	}
	if len(known) == 0 {
		if len(missing) > 0 {
			return nil, missing, &model.StoreNotFoundError{Stores: missing}
		}
		return nil, nil, nil
	}
	if len(missing) > 0 {
		slog.Warn("some requested stores do not exist", "missing", missing)
	}

	// Fan out, bounded by the number of stores in the request. Results are
	// kept per store index so the merge order is deterministic.
	perStore := make([][]stores.Result, len(known))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range known {
		g.Go(func() error {
			results, err := a.querier.Query(gctx, name, query, topK)
			if err != nil {
				return err
			}
			perStore[i] = results
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, missing, err
	}

	// Concatenate in store order, then stable-sort by descending score so
	// equal scores keep store iteration order.
	var merged []Hit
	for i, results := range perStore {
		for _, r := range results {
			merged = append(merged, Hit{Content: r.Content, Score: r.Score, Store: known[i]})
		}
	}
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})

	seen := make(map[[32]byte]bool, len(merged))
	for _, h := range merged {
		fp := fingerprint(h.Content)
		if seen[fp] {
			continue
		}
		seen[fp] = true
		hits = append(hits, h)
		if len(hits) >= topK {
			break
		}
	}
	return hits, missing, nil
}

// fingerprint hashes lowercased, whitespace-collapsed content. Exact-text
// hashing keeps dedup deterministic; near-duplicate suppression is out of
// scope.
func fingerprint(content string) [32]byte {
	normalized := strings.Join(strings.Fields(strings.ToLower(content)), " ")
	return sha256.Sum256([]byte(normalized))
}
