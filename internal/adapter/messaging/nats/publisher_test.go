package nats

import (
	"context"
	"fmt"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/simaogato/beneficio-backend/internal/usecase/transfer"
)

func runServer(t *testing.T) string {
	t.Helper()
	s := natsserver.RunRandClientPortServer()
	t.Cleanup(s.Shutdown)
	return s.ClientURL()
}

func subscribe(t *testing.T, url, subject string) *nats.Subscription {
	t.Helper()
	nc, err := nats.Connect(url)
	require.NoError(t, err)
	t.Cleanup(nc.Close)

	sub, err := nc.SubscribeSync(subject)
	require.NoError(t, err)
	require.NoError(t, nc.Flush())
	return sub
}

func TestConnect_Unreachable(t *testing.T) {
	_, err := Connect("nats://127.0.0.1:1")
	assert.ErrorContains(t, err, "failed to connect to nats")
}

func TestPublisher_Publish(t *testing.T) {
	url := runServer(t)
	sub := subscribe(t, url, transfer.TopicTransferCompleted)

	nc, err := Connect(url)
	require.NoError(t, err)
	pub := NewPublisher(nc)
	t.Cleanup(func() { _ = pub.Close() })

	payload := []byte(`{"transactionId":"tx-1","amount":"500"}`)
	require.NoError(t, pub.Publish(context.Background(), transfer.TopicTransferCompleted, payload))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	assert.Equal(t, transfer.TopicTransferCompleted, msg.Subject)
	assert.Equal(t, payload, msg.Data)
}

func TestPublisher_Publish_CancelledContext(t *testing.T) {
	url := runServer(t)
	sub := subscribe(t, url, transfer.TopicTransferCompleted)

	nc, err := Connect(url)
	require.NoError(t, err)
	pub := NewPublisher(nc)
	t.Cleanup(func() { _ = pub.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err = pub.Publish(ctx, transfer.TopicTransferCompleted, []byte("{}"))
	assert.ErrorIs(t, err, context.Canceled)

	_, err = sub.NextMsg(100 * time.Millisecond)
	assert.ErrorIs(t, err, nats.ErrTimeout)
}

func TestPublisher_Close_DeliversPending(t *testing.T) {
	url := runServer(t)
	sub := subscribe(t, url, transfer.TopicTransferInconsistent)

	nc, err := Connect(url)
	require.NoError(t, err)
	pub := NewPublisher(nc)

	const n = 50
	for i := 0; i < n; i++ {
		require.NoError(t, pub.Publish(context.Background(), transfer.TopicTransferInconsistent, []byte(fmt.Sprintf(`{"seq":%d}`, i))))
	}
	require.NoError(t, pub.Close())

	for i := 0; i < n; i++ {
		msg, err := sub.NextMsg(2 * time.Second)
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf(`{"seq":%d}`, i), string(msg.Data))
	}

	assert.Eventually(t, nc.IsClosed, 2*time.Second, 10*time.Millisecond)
	assert.Error(t, pub.Publish(context.Background(), transfer.TopicTransferInconsistent, []byte("{}")))
}
