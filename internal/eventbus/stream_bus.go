package eventbus

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sambitmohanty1/transit-dispatch/internal/streambus"
)

// backoff is the fixed short sleep the read loop takes after a transport
// error before retrying, per spec §4.2.
const backoff = time.Second

// StreamBus is the production EventBus, backed by internal/streambus.
// Subscribe starts a long-lived consumption loop per call, the way the
// teacher's RedisEventBus.Subscribe spawns one goroutine per subscription
// via go r.consumeStream(subscription).
type StreamBus struct {
	client *streambus.Client
	logger *zap.Logger

	mu   sync.Mutex
	wg   sync.WaitGroup
}

func NewStreamBus(client *streambus.Client, logger *zap.Logger) *StreamBus {
	return &StreamBus{client: client, logger: logger}
}

func (b *StreamBus) Publish(ctx context.Context, topic string, payload any) error {
	_, err := b.client.Publish(ctx, topic, payload, 0)
	return err
}

// PublishBounded is Publish with an approximate MAXLEN trim directive.
func (b *StreamBus) PublishBounded(ctx context.Context, topic string, payload any, maxLenApprox int64) (string, error) {
	return b.client.Publish(ctx, topic, payload, maxLenApprox)
}

func (b *StreamBus) Subscribe(ctx context.Context, topic, group, consumer string, handler Handler) (Unsubscribe, error) {
	if err := b.client.EnsureGroup(ctx, topic, group, "0", true); err != nil {
		return nil, err
	}

	var stopped atomic.Bool
	subCtx, cancel := context.WithCancel(ctx)

	b.wg.Add(1)
	go b.consumeLoop(subCtx, topic, group, consumer, handler, &stopped)

	unsub := Unsubscribe(func() {
		if stopped.CompareAndSwap(false, true) {
			cancel()
		}
	})
	return unsub, nil
}

func (b *StreamBus) consumeLoop(ctx context.Context, topic, group, consumer string, handler Handler, stopped *atomic.Bool) {
	defer b.wg.Done()

	for {
		if stopped.Load() || ctx.Err() != nil {
			return
		}

		streams, err := b.client.ReadGroup(ctx, group, consumer, topic, ">", streambus.ReadOptions{})
		if err != nil {
			b.logger.Error("streambus read failed, backing off", zap.String("topic", topic), zap.Error(err))
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			continue
		}

		for _, s := range streams {
			for _, msg := range s.Messages {
				if err := handler(ctx, msg.Message); err != nil {
					b.logger.Error("handler failed, leaving entry pending",
						zap.String("topic", topic), zap.String("id", msg.ID), zap.Error(err))
					continue
				}
				if _, ackErr := b.client.Ack(ctx, topic, group, msg.ID); ackErr != nil {
					b.logger.Error("ack failed", zap.String("topic", topic), zap.String("id", msg.ID), zap.Error(ackErr))
				}
			}
		}

		if stopped.Load() || ctx.Err() != nil {
			return
		}
	}
}

func (b *StreamBus) Close() error {
	return b.client.Close()
}
