// Package service publishes domain events for the gateway handlers. A
// failed publish is logged and returned; callers never fail a request over
// it.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/miboda/internal/config"
	"github.com/iliyamo/miboda/internal/queue"
)

// Publisher delivers account events.
type Publisher interface {
	Publish(ctx context.Context, ev queue.AccountEvent) error
}

// Nop drops every event. It is used when the broker is disabled.
type Nop struct{}

func (Nop) Publish(context.Context, queue.AccountEvent) error { return nil }

// AMQPPublisher dials the broker for each event. Account events are rare,
// so no connection is held open.
type AMQPPublisher struct {
	Cfg config.QueueConfig
	Log *slog.Logger
}

// Publish sends ev as a persistent JSON message to the account queue on the
// default exchange.
func (p *AMQPPublisher) Publish(ctx context.Context, ev queue.AccountEvent) error {
	conn, err := amqp.Dial(p.Cfg.URL)
	if err != nil {
		p.Log.Warn("rabbitmq: dial failed", "err", err)
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.Log.Warn("rabbitmq: channel open failed", "err", err)
		return err
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(p.Cfg.Queue, true, false, false, false, nil); err != nil {
		p.Log.Warn("rabbitmq: queue declare failed", "err", err)
		return err
	}

	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         ev.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.Cfg.Queue, false, false, msg); err != nil {
		p.Log.Warn("rabbitmq: publish failed", "type", ev.Type, "err", err)
		return err
	}
	return nil
}

// Recorder keeps published events in memory for tests.
type Recorder struct {
	mu     sync.Mutex
	events []queue.AccountEvent
}

func (r *Recorder) Publish(_ context.Context, ev queue.AccountEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

// Events returns a copy of what was published.
func (r *Recorder) Events() []queue.AccountEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]queue.AccountEvent(nil), r.events...)
}

// New returns the AMQP publisher, or Nop when the queue is disabled.
func New(cfg config.QueueConfig, log *slog.Logger) Publisher {
	if !cfg.Enabled {
		return Nop{}
	}
	return &AMQPPublisher{Cfg: cfg, Log: log}
}
