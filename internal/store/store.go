// Package store defines the Index Store contract from spec §4.3: a
// key/value table keyed on h3_id with a secondary lookup on pk_and_model.
package store

import (
	"context"
	"time"
)

// Row is the (h3_id, pk_and_model, polygon_payload) triple from spec §3. The
// composite primary key is (H3ID, PKAndModel).
type Row struct {
	H3ID           string
	PKAndModel     string
	PolygonPayload string
	UpdatedAt      time.Time
}

// Store is the Index Store operations from spec §4.3.
type Store interface {
	// PutBatch idempotently inserts rows, chunked to INDEX_BATCH_MAX per
	// backend call and retried until every row is processed.
	PutBatch(ctx context.Context, rows []Row) error

	// QueryByH3Set returns all rows whose H3ID is in h3IDs, chunked to
	// H3_QUERY_MAX per backend call, concatenated and de-duplicated on the
	// primary key.
	QueryByH3Set(ctx context.Context, h3IDs []string) ([]Row, error)

	// ScanByAOI returns all rows for pkAndModel via the secondary index. May
	// be eventually consistent.
	ScanByAOI(ctx context.Context, pkAndModel string) ([]Row, error)

	// Delete removes a single row.
	Delete(ctx context.Context, h3ID, pkAndModel string) error
}
