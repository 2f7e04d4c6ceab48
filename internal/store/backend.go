package store

import "context"

// Backend is what a concrete adapter (Redis, etc.) implements: one
// unchunked, unretried round-trip per call. internal/store/chunked wraps a
// Backend to provide the public Store interface's batching/retry contract.
type Backend interface {
	// PutBatchRaw writes rows in a single backend call, no larger than
	// INDEX_BATCH_MAX, returning any rows the backend did not process so the
	// caller can retry just those.
	PutBatchRaw(ctx context.Context, rows []Row) (unprocessed []Row, err error)

	// QueryByH3SetRaw queries a single chunk of H3 ids, no larger than
	// H3_QUERY_MAX.
	QueryByH3SetRaw(ctx context.Context, h3IDs []string) ([]Row, error)

	ScanByAOIRaw(ctx context.Context, pkAndModel string) ([]Row, error)

	DeleteRaw(ctx context.Context, h3ID, pkAndModel string) error
}
