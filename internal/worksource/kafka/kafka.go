// Package kafka is a Kafka-backed ports.WorkSource, standing in for the
// spec's abstract work queue for local and integration testing (spec §1
// places the production queue transport out of scope; only this concrete
// adapter is provided). Grounded on the teacher's consumer-group runners
// (pkg/invalidation/kafka/runner.go, internal/invalidation/kafkaconsumer),
// adapted from "apply an invalidation on receipt" to "hand the message to
// the dispatcher and let it Ack once Publishing succeeds" (spec §4.6).
package kafka

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/mohammed-shakir/aoi-geofence-notifier/internal/ports"
)

type Config struct {
	Brokers          []string
	Topic            string
	GroupID          string
	SessionTimeout   time.Duration
	Heartbeat        time.Duration
	RebalanceTimeout time.Duration
	InitialOldest    bool
	ReceiveBatchMax  int
	ReceiveTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		SessionTimeout:   30 * time.Second,
		Heartbeat:        3 * time.Second,
		RebalanceTimeout: 30 * time.Second,
		InitialOldest:    true,
		ReceiveBatchMax:  100,
		ReceiveTimeout:   2 * time.Second,
	}
}

// receipt pairs a consumed message with the session needed to mark it,
// carried opaquely through ports.WorkRecord.Receipt.
type receipt struct {
	sess sarama.ConsumerGroupSession
	msg  *sarama.ConsumerMessage
}

type Source struct {
	cfg      Config
	log      zerolog.Logger
	group    sarama.ConsumerGroup
	messages chan receipt
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

var _ ports.WorkSource = (*Source)(nil)

// New connects a consumer group and starts consuming in the background;
// Receive drains what ConsumeClaim delivers into an internal channel.
func New(ctx context.Context, cfg Config, log zerolog.Logger) (*Source, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Version = sarama.V2_5_0_0
	saramaCfg.Consumer.Group.Session.Timeout = cfg.SessionTimeout
	saramaCfg.Consumer.Group.Heartbeat.Interval = cfg.Heartbeat
	saramaCfg.Consumer.Group.Rebalance.Timeout = cfg.RebalanceTimeout
	if cfg.InitialOldest {
		saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	} else {
		saramaCfg.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	saramaCfg.Consumer.Return.Errors = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("worksource/kafka: consumer group: %w", err)
	}

	s := &Source{cfg: cfg, log: log, group: group, messages: make(chan receipt, cfg.ReceiveBatchMax)}

	cctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	handler := &groupHandler{process: s.deliver}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			if err := group.Consume(cctx, []string{cfg.Topic}, handler); err != nil {
				s.log.Error().Err(err).Str("topic", cfg.Topic).Msg("kafka consume error")
				select {
				case <-time.After(2 * time.Second):
				case <-cctx.Done():
					return
				}
			}
			if cctx.Err() != nil {
				return
			}
		}
	}()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for err := range group.Errors() {
			s.log.Error().Err(err).Msg("kafka consumer group error")
		}
	}()

	return s, nil
}

func (s *Source) deliver(sess sarama.ConsumerGroupSession, msg *sarama.ConsumerMessage) error {
	select {
	case s.messages <- receipt{sess: sess, msg: msg}:
		return nil
	case <-sess.Context().Done():
		return sess.Context().Err()
	}
}

// Receive drains up to ReceiveBatchMax messages, returning early once that
// many have arrived and otherwise after ReceiveTimeout (measured from the
// start of the call) with whatever arrived, possibly none.
func (s *Source) Receive(ctx context.Context) ([]ports.WorkRecord, error) {
	var out []ports.WorkRecord
	timer := time.NewTimer(s.cfg.ReceiveTimeout)
	defer timer.Stop()

	for len(out) < s.cfg.ReceiveBatchMax {
		select {
		case r := <-s.messages:
			out = append(out, ports.WorkRecord{Body: string(r.msg.Value), Receipt: r, Source: s.cfg.Topic})
		case <-timer.C:
			return out, nil
		case <-ctx.Done():
			return out, ctx.Err()
		}
	}
	return out, nil
}

// Ack marks the underlying Kafka message processed within its session. At
// group rebalance the session may already be closed; a redelivery is then
// expected and tolerated (spec §6's at-least-once contract).
func (s *Source) Ack(ctx context.Context, r ports.WorkRecord) error {
	rcpt, ok := r.Receipt.(receipt)
	if !ok {
		return fmt.Errorf("worksource/kafka: unexpected receipt type %T", r.Receipt)
	}
	rcpt.sess.MarkMessage(rcpt.msg, "")
	return nil
}

func (s *Source) Close() error {
	s.cancel()
	s.wg.Wait()
	return s.group.Close()
}

type groupHandler struct {
	process func(sarama.ConsumerGroupSession, *sarama.ConsumerMessage) error
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(sess sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		if err := h.process(sess, msg); err != nil {
			return err
		}
	}
	return nil
}
