package eventbus

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
)

// MemoryBus is an in-process fan-out bus with no persistence and no
// offsets, suitable only for tests and local development, per spec §4.2.
type MemoryBus struct {
	mu          sync.RWMutex
	subscribers map[string][]*memorySub
	closed      bool
}

type memorySub struct {
	handler Handler
	stopped atomic.Bool
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{subscribers: make(map[string][]*memorySub)}
}

func (b *MemoryBus) Publish(_ context.Context, topic string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.mu.RLock()
	subs := append([]*memorySub(nil), b.subscribers[topic]...)
	b.mu.RUnlock()

	for _, s := range subs {
		if s.stopped.Load() {
			continue
		}
		_ = s.handler(context.Background(), map[string]string{"json": string(body)})
	}
	return nil
}

func (b *MemoryBus) Subscribe(_ context.Context, topic, _, _ string, handler Handler) (Unsubscribe, error) {
	sub := &memorySub{handler: handler}

	b.mu.Lock()
	b.subscribers[topic] = append(b.subscribers[topic], sub)
	b.mu.Unlock()

	return func() { sub.stopped.Store(true) }, nil
}

func (b *MemoryBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.subscribers = map[string][]*memorySub{}
	return nil
}
