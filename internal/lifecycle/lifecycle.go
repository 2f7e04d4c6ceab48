// Package lifecycle implements the AOI upsert/delete operations from spec
// §4.4, keeping the Index Store invariant: the set of rows for a given
// pk_and_model equals the H3 cover of its current polygon.
package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/errs"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/geom"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/h3cover"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/observability"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/store"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/store/chunked"
)

// defaultDeleteConcurrency bounds how many rows of a single AOI's existing
// cover are deleted in parallel when no explicit concurrency is configured.
const defaultDeleteConcurrency = 8

type Lifecycle struct {
	store       store.Store
	resolution  int
	concurrency int
}

func New(s store.Store, resolution int) *Lifecycle {
	return &Lifecycle{store: s, resolution: resolution, concurrency: defaultDeleteConcurrency}
}

// WithConcurrency overrides the row-delete fan-out width (default
// defaultDeleteConcurrency).
func (l *Lifecycle) WithConcurrency(n int) *Lifecycle {
	l.concurrency = n
	return l
}

// deleteRows removes existing rows in parallel (spec §4.4 step 3: "in
// parallel if available"), reusing the chunked store decorator's fan-out
// helper instead of looping one Delete call at a time.
func (l *Lifecycle) deleteRows(ctx context.Context, rows []store.Row) error {
	return chunked.FanOut(ctx, l.concurrency, len(rows), func(ctx context.Context, i int) error {
		row := rows[i]
		return l.store.Delete(ctx, row.H3ID, row.PKAndModel)
	})
}

// Result is what Upsert/Delete return on success — carries everything the
// dispatcher needs to build a success notification.
type Result struct {
	AOI       string
	H3Indices []string // ADD only
	Deleted   int       // DELETE only: rows removed
}

// Upsert runs spec §4.4's five steps: cover, scan existing, delete existing,
// put new (chunked by the Store implementation), done. This is the
// delete-then-insert policy the spec's steps describe (see SPEC_FULL §6.4 for
// why the two-phase/insert-first variant was not chosen); the AOI is
// transiently absent from the index between steps 3 and 4, which spec §4.4
// accepts as a known weakness rather than a bug.
func (l *Lifecycle) Upsert(ctx context.Context, pkAndModel string, polygonPayload []byte) (Result, error) {
	g, err := geom.Parse(polygonPayload)
	if err != nil {
		return Result{}, err
	}

	cells, err := h3cover.Cover(g, l.resolution)
	if err != nil {
		return Result{}, err
	}
	if len(cells) == 0 {
		return Result{}, errs.New(errs.InvalidGeometry, "lifecycle.Upsert", fmt.Errorf("cover produced zero cells for %q", pkAndModel))
	}

	existing, err := l.store.ScanByAOI(ctx, pkAndModel)
	if err != nil {
		return Result{}, err
	}
	if err := l.deleteRows(ctx, existing); err != nil {
		return Result{}, err
	}

	rows := make([]store.Row, len(cells))
	for i, c := range cells {
		rows[i] = store.Row{
			H3ID:           string(c),
			PKAndModel:     pkAndModel,
			PolygonPayload: string(polygonPayload),
		}
	}
	if err := l.store.PutBatch(ctx, rows); err != nil {
		return Result{}, err
	}

	h3Indices := make([]string, len(cells))
	for i, c := range cells {
		h3Indices[i] = string(c)
	}
	observability.ObserveRecord("add", "succeeded")
	return Result{AOI: pkAndModel, H3Indices: h3Indices}, nil
}

// Delete runs spec §4.4's delete steps. Deleting an AOI with no rows is a
// no-op success (idempotent).
func (l *Lifecycle) Delete(ctx context.Context, pkAndModel string) (Result, error) {
	rows, err := l.store.ScanByAOI(ctx, pkAndModel)
	if err != nil {
		return Result{}, err
	}
	if err := l.deleteRows(ctx, rows); err != nil {
		return Result{}, err
	}
	observability.ObserveRecord("delete", "succeeded")
	return Result{AOI: pkAndModel, Deleted: len(rows)}, nil
}

// H3IndicesJSON is a convenience for building the "h3_indices" notification
// attribute spec §6 describes as a JSON array.
func (r Result) H3IndicesJSON() ([]byte, error) {
	return json.Marshal(r.H3Indices)
}
