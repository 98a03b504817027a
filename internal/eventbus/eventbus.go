// Package eventbus defines the narrow publish/subscribe contract used by
// the processor, with two implementations: a StreamBus-backed bus for
// production and an in-memory bus for tests, mirroring the teacher's
// internal/eventbus.EventBus split between RedisEventBus and test doubles.
package eventbus

import "context"

// Handler processes one decoded message. Returning an error leaves the
// underlying stream entry unacknowledged (still pending) when the bus is
// StreamBus-backed; the in-memory bus discards the error.
type Handler func(ctx context.Context, fields map[string]string) error

// Unsubscribe stops a subscription. It is idempotent and safe to call
// more than once.
type Unsubscribe func()

// EventBus is the contract both implementations satisfy.
type EventBus interface {
	Publish(ctx context.Context, topic string, payload any) error
	Subscribe(ctx context.Context, topic, group, consumer string, handler Handler) (Unsubscribe, error)
	Close() error
}
