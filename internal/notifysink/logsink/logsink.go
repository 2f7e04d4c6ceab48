// Package logsink is a ports.NotificationSink that writes each notification
// as a structured log line instead of publishing to a real pub/sub topic. Spec §1
// places the notification transport out of scope as an external
// collaborator referenced only by interface; this is the local/test adapter,
// kept deliberately simple since production wiring targets whatever
// pub/sub the deployment provides.
package logsink

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/observability"
	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/ports"
)

type Sink struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Sink { return &Sink{log: log} }

var _ ports.NotificationSink = (*Sink)(nil)

// PublishBatch never rejects entries; it logs each and reports success. A
// real transport adapter (SNS/SQS/pub-sub) replaces this in production, per
// spec §6's NotificationSink interface.
func (s *Sink) PublishBatch(ctx context.Context, batch []ports.Notification) ([]ports.Notification, error) {
	for _, n := range batch {
		s.log.Info().
			Str("status", n.Status).
			Str("source_file", n.SourceFile).
			Str("aoi", n.AOI).
			Str("message_group_id", n.MessageGroupID).
			Int("h3_indices", len(n.H3Indices)).
			Int("tiles", len(n.Tiles)).
			Msg("notification published")
		observability.ObserveNotification(n.Status)
	}
	return nil, nil
}
