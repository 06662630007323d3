//go:build integration

package rabbitmq_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"bakery/pkg/rabbitmq"

	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startBroker(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForLog("Server startup complete").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, container.Terminate(context.Background()))
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5672")
	require.NoError(t, err)
	return fmt.Sprintf("amqp://guest:guest@%s:%s/", host, port.Port())
}

func TestPublishConsume(t *testing.T) {
	url := startBroker(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, err := rabbitmq.NewClient(rabbitmq.Config{URL: url, Exchange: "bakery.events", Queue: "bakery_test"}, logger)
	require.NoError(t, err)
	defer client.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	require.NoError(t, client.Publish(ctx, "order.created", []byte(`{"order_id":"o1"}`)))
	require.NoError(t, client.Publish(ctx, "notification.order_placed", []byte(`{"recipient_id":"c1"}`)))
	require.NoError(t, client.Publish(ctx, "unrelated.key", []byte(`{}`)))

	got := make(chan amqp.Delivery, 3)
	done := make(chan error, 1)
	consumeCtx, stop := context.WithCancel(ctx)
	go func() {
		done <- client.Consume(consumeCtx, func(msg amqp.Delivery) error {
			got <- msg
			if msg.RoutingKey == "notification.order_placed" {
				return errors.New("handler failure is nacked")
			}
			return nil
		})
	}()

	var keys []string
	for len(keys) < 2 {
		select {
		case msg := <-got:
			keys = append(keys, msg.RoutingKey)
			assert.Equal(t, "application/json", msg.ContentType)
		case <-ctx.Done():
			t.Fatalf("timed out, received %v", keys)
		}
	}
	stop()
	require.NoError(t, <-done)
	assert.ElementsMatch(t, []string{"order.created", "notification.order_placed"}, keys)

	// A cancelled context is refused before touching the channel.
	assert.ErrorIs(t, client.Publish(consumeCtx, "order.created", nil), context.Canceled)
}
