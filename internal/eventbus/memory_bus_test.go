package eventbus

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type samplePayload struct {
	Name string `json:"name"`
}

func TestMemoryBus_PublishDeliversToSubscriber(t *testing.T) {
	bus := NewMemoryBus()

	received := make(chan map[string]string, 1)
	_, err := bus.Subscribe(context.Background(), "topic", "group", "consumer", func(ctx context.Context, fields map[string]string) error {
		received <- fields
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), "topic", samplePayload{Name: "bus-1"}))

	fields := <-received
	var decoded samplePayload
	require.NoError(t, json.Unmarshal([]byte(fields["json"]), &decoded))
	assert.Equal(t, "bus-1", decoded.Name)
}

func TestMemoryBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewMemoryBus()

	calls := 0
	unsub, err := bus.Subscribe(context.Background(), "topic", "g", "c", func(ctx context.Context, fields map[string]string) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	unsub()
	require.NoError(t, bus.Publish(context.Background(), "topic", samplePayload{Name: "x"}))

	assert.Equal(t, 0, calls)
}

func TestMemoryBus_PublishWithNoSubscribersIsNoop(t *testing.T) {
	bus := NewMemoryBus()
	err := bus.Publish(context.Background(), "nobody-listening", samplePayload{Name: "x"})
	assert.NoError(t, err)
}

func TestMemoryBus_MultipleSubscribersAllReceive(t *testing.T) {
	bus := NewMemoryBus()

	countA, countB := make(chan struct{}, 1), make(chan struct{}, 1)
	_, err := bus.Subscribe(context.Background(), "topic", "g", "c1", func(ctx context.Context, fields map[string]string) error {
		countA <- struct{}{}
		return nil
	})
	require.NoError(t, err)
	_, err = bus.Subscribe(context.Background(), "topic", "g", "c2", func(ctx context.Context, fields map[string]string) error {
		countB <- struct{}{}
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Publish(context.Background(), "topic", samplePayload{Name: "x"}))

	<-countA
	<-countB
}

func TestMemoryBus_CloseClearsSubscribers(t *testing.T) {
	bus := NewMemoryBus()
	calls := 0
	_, err := bus.Subscribe(context.Background(), "topic", "g", "c", func(ctx context.Context, fields map[string]string) error {
		calls++
		return nil
	})
	require.NoError(t, err)

	require.NoError(t, bus.Close())
	require.NoError(t, bus.Publish(context.Background(), "topic", samplePayload{Name: "x"}))
	assert.Equal(t, 0, calls)
}
