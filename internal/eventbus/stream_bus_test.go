package eventbus

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sambitmohanty1/transit-dispatch/internal/streambus"
)

func newTestStreamBus(t *testing.T) *StreamBus {
	t.Helper()

	url := os.Getenv("STREAMBUS_TEST_URL")
	if url == "" {
		t.Skip("STREAMBUS_TEST_URL not set, skipping stream bus integration test")
	}

	client, err := streambus.NewClient(streambus.Config{URL: url, DefaultBlock: 200 * time.Millisecond, DefaultCount: 10}, zap.NewNop())
	require.NoError(t, err)

	return NewStreamBus(client, zap.NewNop())
}

func TestStreamBus_PublishSubscribeDeliversAndAcks(t *testing.T) {
	bus := newTestStreamBus(t)
	defer bus.Close()

	topic := "test.eventbus.deliver"
	received := make(chan map[string]string, 1)

	unsub, err := bus.Subscribe(context.Background(), topic, "test-group", "consumer-1", func(ctx context.Context, fields map[string]string) error {
		received <- fields
		return nil
	})
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, bus.Publish(context.Background(), topic, map[string]string{"json": `{"ok":true}`}))

	select {
	case fields := <-received:
		require.Contains(t, fields["json"], "ok")
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for delivery")
	}

	// Reading from id "0" returns this consumer's pending (unacked) entries.
	require.Eventually(t, func() bool {
		pending, err := bus.client.ReadGroup(context.Background(), "test-group", "consumer-1", topic, "0", streambus.ReadOptions{Count: 10})
		if err != nil {
			return false
		}
		for _, s := range pending {
			if len(s.Messages) > 0 {
				return false
			}
		}
		return true
	}, 3*time.Second, 20*time.Millisecond, "handled entry must be acked")
}

func TestStreamBus_HandlerErrorLeavesEntryPending(t *testing.T) {
	bus := newTestStreamBus(t)
	defer bus.Close()

	topic := "test.eventbus.pending"
	attempts := make(chan struct{}, 5)

	unsub, err := bus.Subscribe(context.Background(), topic, "test-group-pending", "consumer-1", func(ctx context.Context, fields map[string]string) error {
		attempts <- struct{}{}
		return context.DeadlineExceeded
	})
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, bus.Publish(context.Background(), topic, map[string]string{"json": `{"fail":true}`}))

	select {
	case <-attempts:
	case <-time.After(3 * time.Second):
		t.Fatal("handler was never invoked")
	}

	// Reading from id "0" returns this consumer's pending (unacked) entries.
	pending, err := bus.client.ReadGroup(context.Background(), "test-group-pending", "consumer-1", topic, "0", streambus.ReadOptions{Count: 10})
	require.NoError(t, err)
	require.NotEmpty(t, pending)
	require.NotEmpty(t, pending[0].Messages, "failed entry must stay in the pending list")
}
