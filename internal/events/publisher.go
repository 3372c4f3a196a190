package events

import (
	"context"
	"encoding/json"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/bidhall/bidhall/internal/logger"
)

// Publisher emits engine events. A nil *Publisher is a valid no-op, so
// services can be wired without NATS in tests and single-box deployments.
type Publisher struct {
	js  jetstream.JetStream
	log *logger.Logger
}

func NewPublisher(client *Client, log *logger.Logger) *Publisher {
	if client == nil {
		return nil
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Publisher{js: client.JetStream(), log: log}
}

// Publish sends one event. Errors are logged and swallowed; the auction must
// not fail because the event bus is down.
func (p *Publisher) Publish(ctx context.Context, subject, tournament string, fields map[string]any) {
	if p == nil || p.js == nil {
		return
	}

	data, err := json.Marshal(Event{Tournament: tournament, Fields: fields})
	if err != nil {
		p.log.Error("failed to marshal event", "subject", subject, "error", err)
		return
	}

	if _, err := p.js.Publish(ctx, subject, data); err != nil {
		p.log.Error("failed to publish event", "subject", subject, "tournament", tournament, "error", err)
	}
}
