// Package ports defines the abstract interfaces the Dispatcher is built
// against (spec §6): a work queue, a bulk payload object store, and a
// notification sink. Production transports are wired behind these
// interfaces; the concrete adapters provided here are for local and
// integration testing only (a Kafka WorkSource, a local-file ObjectStore and
// a logging NotificationSink), since spec §1 places the production
// queue/object-store/pub-sub transports out of scope.
package ports

import "context"

// WorkRecord is one queue message: an opaque Receipt the source needs to
// Ack later, and the raw Body to decode (spec §6's S3-event envelope).
type WorkRecord struct {
	Body    string
	Receipt any
	Source  string
}

// PayloadRow is one row of the bulk payload object the work item references
// (spec §6): pk_and_model plus its geometry bytes (WKB or GeoJSON text;
// geom.Parse accepts either).
type PayloadRow struct {
	PKAndModel string
	Geometry   []byte
}

// Notification is the attribute set spec §6's table defines, shared by all
// three Dispatcher entry points. Unused fields are left zero (e.g. an ADD
// notification never sets Tiles).
type Notification struct {
	Status         string // "succeeded" | "failed"
	SourceFile     string
	AOI            string // "aoi" (ADD/DELETE) or "aoi_id" (COMPARE)
	H3Indices      []string
	Tiles          []string
	Error          string
	MessageGroupID string
	MessageID      string
}

// WorkSource is the abstract work queue: Receive pulls a batch of records,
// Ack removes one from the source once it is fully processed.
type WorkSource interface {
	Receive(ctx context.Context) ([]WorkRecord, error)
	Ack(ctx context.Context, r WorkRecord) error
}

// ObjectStore fetches the rows of a bulk payload object.
type ObjectStore interface {
	FetchRows(ctx context.Context, bucket, key string) ([]PayloadRow, error)
}

// NotificationSink publishes one batch (at most notify.BatchMax entries).
// failed enumerates entries the sink rejected; a non-empty failed or a
// non-nil err both fail the enclosing work item.
type NotificationSink interface {
	PublishBatch(ctx context.Context, batch []Notification) (failed []Notification, err error)
}
