// Package dispatch runs the Received -> Loading -> Processing -> Publishing
// -> Acknowledged state machine from spec §4.6. A generic Shell drives any
// one of the three entry points (internal/dispatch/handlers); each only
// supplies what differs per operation (ADD, DELETE, COMPARE), following
// spec §9's note that the source's per-row dataframe-apply is just
// iteration once the dataframe abstraction is dropped.
package dispatch

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/dispatch/notify"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/errs"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/ports"
)

// Handler decodes the rows of one work item's payload object into the
// notifications to publish. A non-nil error is a whole-batch failure (spec
// §7): the work item is not acked and is left for redelivery. Per-record
// failures (e.g. one bad polygon) must instead be folded into the returned
// notifications as status:"failed" entries, per spec §9's result-variant note.
type Handler func(ctx context.Context, sourceFile string, rows []ports.PayloadRow) ([]ports.Notification, error)

// Deps bundles the client handles a worker needs, constructed once at
// startup and passed explicitly — spec §9 rejects the source's "cloud
// config" singleton in favor of this.
type Deps struct {
	Source  ports.WorkSource
	Objects ports.ObjectStore
	Sink    ports.NotificationSink
	Logger  zerolog.Logger
}

type Shell struct {
	deps   Deps
	nextID func() string
}

// NewShell builds a Shell. nextID is stored on the Shell but not called by
// it: message ids for split oversized notifications (spec §4.5) are minted
// by the generator passed to handlers.CompareHandler.
func NewShell(deps Deps, nextID func() string) *Shell {
	return &Shell{deps: deps, nextID: nextID}
}

// RunOnce receives one batch of work records and drives each through the
// state machine with handler. It returns an error only on a Receive failure; per-item
// failures are logged and left un-acked for redelivery, never returned.
func (s *Shell) RunOnce(ctx context.Context, handler Handler) error {
	records, err := s.deps.Source.Receive(ctx)
	if err != nil {
		return fmt.Errorf("dispatch: receive: %w", err)
	}
	for _, rec := range records {
		if err := s.processOne(ctx, rec, handler); err != nil {
			s.deps.Logger.Error().Err(err).Str("source", rec.Source).Msg("work item not acknowledged")
		}
	}
	return nil
}

func (s *Shell) processOne(ctx context.Context, rec ports.WorkRecord, handler Handler) error {
	// Loading: decode the envelope and fetch every referenced payload
	// object's rows, merging them the way the source's get_pq_df
	// concatenates one dataframe per sns_event.
	refs, isTestEvent, err := parseEnvelope(rec.Body)
	if err != nil {
		return err
	}
	if isTestEvent {
		return s.deps.Source.Ack(ctx, rec)
	}

	var rows []ports.PayloadRow
	keys := make([]string, 0, len(refs))
	for _, ref := range refs {
		objRows, err := s.deps.Objects.FetchRows(ctx, ref.Bucket, ref.Key)
		if err != nil {
			return errs.New(errs.ObjectStoreUnavailable, "dispatch.processOne", err)
		}
		rows = append(rows, objRows...)
		keys = append(keys, ref.Key)
	}
	sourceFile := strings.Join(keys, ",")

	// Processing.
	notifications, err := handler(ctx, sourceFile, rows)
	if err != nil {
		return err
	}

	// Publishing.
	if err := s.publish(ctx, notifications); err != nil {
		return err
	}

	// Acknowledged.
	return s.deps.Source.Ack(ctx, rec)
}

func (s *Shell) publish(ctx context.Context, notifications []ports.Notification) error {
	for _, batch := range notify.Batches(notifications) {
		failed, err := s.deps.Sink.PublishBatch(ctx, batch)
		if err != nil {
			return errs.New(errs.SinkUnavailable, "dispatch.publish", err)
		}
		if len(failed) > 0 {
			return errs.New(errs.SinkUnavailable, "dispatch.publish", fmt.Errorf("%d entries rejected by sink", len(failed)))
		}
	}
	return nil
}
