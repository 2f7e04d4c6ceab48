// Package chunked wraps a store.Backend with the chunking, bounded-fan-out,
// retry, and dedup behavior spec §4.3 and §5 require: INDEX_BATCH_MAX=25 per
// put_batch call, H3_QUERY_MAX=50 per query_by_h3_set call, concurrent
// backend calls bounded to a configurable fan-out, and exponential backoff
// with jitter for transient backend errors.
package chunked

import (
	"context"
	"fmt"
	"sync"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/errs"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/retry"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/store"
)

type Config struct {
	IndexBatchMax int
	H3QueryMax    int
	Concurrency   int
	Retry         retry.Config
}

func DefaultConfig() Config {
	return Config{
		IndexBatchMax: 25,
		H3QueryMax:    50,
		Concurrency:   4,
		Retry:         retry.DefaultConfig(),
	}
}

type Store struct {
	backend store.Backend
	cfg     Config
}

func New(backend store.Backend, cfg Config) *Store {
	if cfg.IndexBatchMax <= 0 {
		cfg.IndexBatchMax = 25
	}
	if cfg.H3QueryMax <= 0 {
		cfg.H3QueryMax = 50
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Store{backend: backend, cfg: cfg}
}

var _ store.Store = (*Store)(nil)

func (s *Store) PutBatch(ctx context.Context, rows []store.Row) error {
	chunks := chunkRows(rows, s.cfg.IndexBatchMax)
	return FanOut(ctx, s.cfg.Concurrency, len(chunks), func(ctx context.Context, i int) error {
		chunk := chunks[i]
		return retry.Do(ctx, s.cfg.Retry, "store.put_batch", func(ctx context.Context) error {
			remaining := chunk
			for len(remaining) > 0 {
				unprocessed, err := s.backend.PutBatchRaw(ctx, remaining)
				if err != nil {
					return err
				}
				if len(unprocessed) == 0 {
					return nil
				}
				if len(unprocessed) == len(remaining) {
					// no progress this round; surface as transient so the
					// outer retry's backoff+jitter applies before retrying.
					return errs.New(errs.StoreTransient, "store.put_batch",
						fmt.Errorf("%d of %d rows unprocessed after backend call", len(unprocessed), len(remaining)))
				}
				remaining = unprocessed
			}
			return nil
		})
	})
}

func (s *Store) QueryByH3Set(ctx context.Context, h3IDs []string) ([]store.Row, error) {
	chunks := chunkStrings(h3IDs, s.cfg.H3QueryMax)

	results := make([][]store.Row, len(chunks))
	err := FanOut(ctx, s.cfg.Concurrency, len(chunks), func(ctx context.Context, i int) error {
		return retry.Do(ctx, s.cfg.Retry, "store.query_by_h3_set", func(ctx context.Context) error {
			rows, err := s.backend.QueryByH3SetRaw(ctx, chunks[i])
			if err != nil {
				return err
			}
			results[i] = rows
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[[2]string]struct{})
	var out []store.Row
	for _, chunkRows := range results {
		for _, r := range chunkRows {
			pk := [2]string{r.H3ID, r.PKAndModel}
			if _, ok := seen[pk]; ok {
				continue
			}
			seen[pk] = struct{}{}
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *Store) ScanByAOI(ctx context.Context, pkAndModel string) ([]store.Row, error) {
	var out []store.Row
	err := retry.Do(ctx, s.cfg.Retry, "store.scan_by_aoi", func(ctx context.Context) error {
		rows, err := s.backend.ScanByAOIRaw(ctx, pkAndModel)
		if err != nil {
			return err
		}
		out = rows
		return nil
	})
	return out, err
}

func (s *Store) Delete(ctx context.Context, h3ID, pkAndModel string) error {
	return retry.Do(ctx, s.cfg.Retry, "store.delete", func(ctx context.Context) error {
		return s.backend.DeleteRaw(ctx, h3ID, pkAndModel)
	})
}

func chunkRows(rows []store.Row, size int) [][]store.Row {
	if len(rows) == 0 {
		return nil
	}
	var out [][]store.Row
	for len(rows) > 0 {
		n := size
		if n > len(rows) {
			n = len(rows)
		}
		out = append(out, rows[:n])
		rows = rows[n:]
	}
	return out
}

func chunkStrings(items []string, size int) [][]string {
	if len(items) == 0 {
		return nil
	}
	var out [][]string
	for len(items) > 0 {
		n := size
		if n > len(items) {
			n = len(items)
		}
		out = append(out, items[:n])
		items = items[n:]
	}
	return out
}

// FanOut runs fn(ctx, i) for i in [0,n) with at most concurrency in flight,
// returning the first error encountered. Remaining in-flight calls are
// allowed to finish; callers that need earlier cancellation should pass a
// context with a cancel they control. Exported for reuse outside the chunked
// store decorator (e.g. internal/lifecycle's parallel row deletes).
func FanOut(ctx context.Context, concurrency, n int, fn func(ctx context.Context, i int) error) error {
	if n == 0 {
		return nil
	}
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var firstErr error

	for i := 0; i < n; i++ {
		i := i
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := fn(ctx, i); err != nil {
				mu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	return firstErr
}
