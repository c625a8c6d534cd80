package server

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// SweepRequest is the optional JSON body of a sweep trigger message.
type SweepRequest struct {
	CleanupImages *bool `json:"cleanup_images,omitempty"`
}

// NATSSubscriber triggers sweep runs from NATS messages published on
// <prefix>.jobs.project-sweep.
type NATSSubscriber struct {
	nc      *nats.Conn
	runner  *SweepRunner
	subject string
	cleanup bool
	subs    []*nats.Subscription
}

// NewNATSSubscriber creates NATS subscriber. cleanup is the default for
// requests that do not say whether to clean up images.
func NewNATSSubscriber(nc *nats.Conn, runner *SweepRunner, prefix string, cleanup bool) *NATSSubscriber {
	if prefix == "" {
		prefix = "sannu"
	}
	return &NATSSubscriber{
		nc:      nc,
		runner:  runner,
		subject: SweepSubject(prefix),
		cleanup: cleanup,
		subs:    make([]*nats.Subscription, 0),
	}
}

// SweepSubject returns the trigger subject for prefix.
func SweepSubject(prefix string) string {
	return prefix + ".jobs.project-sweep"
}

// Start starts subscriptions
func (s *NATSSubscriber) Start(ctx context.Context) error {
	// Queue group so only one replica runs each trigger
	sub, err := s.nc.QueueSubscribe(s.subject, "project-sweep", func(msg *nats.Msg) {
		s.handleSweep(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", s.subject, err)
	}
	s.subs = append(s.subs, sub)

	log.Info().
		Str("subject", s.subject).
		Int("subscriptions", len(s.subs)).
		Msg("NATS subscriber started")

	<-ctx.Done()

	// Unsubscribe
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Warn().Err(err).Str("subject", sub.Subject).Msg("Failed to unsubscribe")
		}
	}

	return ctx.Err()
}

func (s *NATSSubscriber) handleSweep(ctx context.Context, msg *nats.Msg) {
	log.Debug().
		Str("subject", msg.Subject).
		Int("size", len(msg.Data)).
		Msg("Received sweep trigger")

	reply := s.process(ctx, msg.Data)
	if msg.Reply == "" {
		return
	}
	if err := msg.Respond(reply); err != nil {
		log.Error().Err(err).Str("reply", msg.Reply).Msg("Failed to reply to sweep trigger")
	}
}

// process runs one sweep for a trigger payload and returns the JSON reply.
func (s *NATSSubscriber) process(ctx context.Context, data []byte) []byte {
	cleanup := s.cleanup
	if len(data) > 0 {
		var req SweepRequest
		if err := json.Unmarshal(data, &req); err != nil {
			log.Warn().Err(err).Msg("Ignoring malformed sweep request body")
		} else if req.CleanupImages != nil {
			cleanup = *req.CleanupImages
		}
	}

	res, err := s.runner.Run(ctx, cleanup)
	if err != nil {
		log.Error().Err(err).Msg("Triggered sweep failed")
	}

	out, err := json.Marshal(res)
	if err != nil {
		log.Error().Err(err).Msg("Failed to marshal sweep result")
		return []byte(`{"error":"marshal result"}`)
	}
	return out
}
