package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xenking/kart-orders/internal/domain/cart"
	"github.com/xenking/kart-orders/internal/domain/order"
)

type mockWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (m *mockWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if m.err != nil {
		return m.err
	}
	m.msgs = append(m.msgs, msgs...)
	return nil
}

func (m *mockWriter) Close() error {
	m.closed = true
	return nil
}

func testEvent() cart.Event {
	o := order.New()
	o.SetID("o1")
	o.SetState(order.StateCancelled)
	return cart.Event{
		ID:            "e1",
		Type:          cart.EventStateChanged,
		OccurredAt:    time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		PreviousState: order.StateNew,
		Order:         o.Snapshot(),
	}
}

func TestPublisher_Publish(t *testing.T) {
	w := &mockWriter{}
	p := &Publisher{w: w}

	require.NoError(t, p.Publish(context.Background(), testEvent()))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "o1", string(msg.Key))
	assert.Equal(t, []kafka.Header{
		{Key: "event-type", Value: []byte(cart.EventStateChanged)},
		{Key: "event-id", Value: []byte("e1")},
	}, msg.Headers)

	var body struct {
		ID            string `json:"id"`
		Type          string `json:"type"`
		OccurredAt    string `json:"occurredAt"`
		PreviousState string `json:"previousState"`
		Order         struct {
			ID    string `json:"id"`
			State string `json:"state"`
		} `json:"order"`
	}
	require.NoError(t, json.Unmarshal(msg.Value, &body))
	assert.Equal(t, "e1", body.ID)
	assert.Equal(t, cart.EventStateChanged, body.Type)
	assert.Equal(t, "2026-03-01T12:00:00Z", body.OccurredAt)
	assert.Equal(t, "new", body.PreviousState)
	assert.Equal(t, "o1", body.Order.ID)
	assert.Equal(t, "cancelled", body.Order.State)

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_WriteError(t *testing.T) {
	p := &Publisher{w: &mockWriter{err: errors.New("leader not available")}}

	err := p.Publish(context.Background(), testEvent())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "leader not available")
}

func TestNewPublisher_Validation(t *testing.T) {
	_, err := NewPublisher(Config{Topic: "orders"})
	require.Error(t, err)

	_, err = NewPublisher(Config{Brokers: []string{"localhost:9092"}})
	require.Error(t, err)

	p, err := NewPublisher(Config{Brokers: []string{"localhost:9092"}, Topic: "orders"})
	require.NoError(t, err)
	require.NoError(t, p.Close())
}
