package mq

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
)

// acks запоминает, как было подтверждено сообщение.
type acks struct {
	acked   int
	nacked  int
	requeue bool
}

func (a *acks) Ack(uint64, bool) error { a.acked++; return nil }

func (a *acks) Nack(_ uint64, _ bool, requeue bool) error {
	a.nacked++
	a.requeue = requeue
	return nil
}

func (a *acks) Reject(_ uint64, requeue bool) error { return a.Nack(0, false, requeue) }

func testConsumer(handler Handler) *Consumer {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return &Consumer{logger: logger, queue: QueueRunsRequested, handler: handler, prefetch: 1}
}

func delivery(t *testing.T, ack amqp.Acknowledger, redelivered bool, payload any) amqp.Delivery {
	t.Helper()
	msg, err := NewMessage(MessageTypeRunRequested, payload)
	require.NoError(t, err)
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	return amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: body, Redelivered: redelivered}
}

func TestConsumer_AckOnSuccess(t *testing.T) {
	var got RunRequestedPayload
	c := testConsumer(func(_ context.Context, msg *Message) error {
		var err error
		got, err = ParsePayload[RunRequestedPayload](msg)
		return err
	})

	ack := &acks{}
	c.handle(context.Background(), delivery(t, ack, false, RunRequestedPayload{Procedure: "wobble", Args: []any{"left", 3}}))

	require.Equal(t, 1, ack.acked)
	require.Zero(t, ack.nacked)
	require.Equal(t, "wobble", got.Procedure)
	require.Equal(t, []any{"left", float64(3)}, got.Args)
}

func TestConsumer_RequeueOnce(t *testing.T) {
	c := testConsumer(func(context.Context, *Message) error { return errors.New("busy") })

	ack := &acks{}
	c.handle(context.Background(), delivery(t, ack, false, RunRequestedPayload{Procedure: "p"}))
	require.Equal(t, 1, ack.nacked)
	require.True(t, ack.requeue)

	ack = &acks{}
	c.handle(context.Background(), delivery(t, ack, true, RunRequestedPayload{Procedure: "p"}))
	require.Equal(t, 1, ack.nacked)
	require.False(t, ack.requeue)
}

func TestConsumer_PermanentGoesToDLQ(t *testing.T) {
	c := testConsumer(func(context.Context, *Message) error {
		return Permanent(errors.New("procedure 'x' does not exist"))
	})

	ack := &acks{}
	c.handle(context.Background(), delivery(t, ack, false, RunRequestedPayload{Procedure: "x"}))
	require.Equal(t, 1, ack.nacked)
	require.False(t, ack.requeue)
}

func TestConsumer_MalformedBody(t *testing.T) {
	called := false
	c := testConsumer(func(context.Context, *Message) error { called = true; return nil })

	ack := &acks{}
	c.handle(context.Background(), amqp.Delivery{Acknowledger: ack, DeliveryTag: 1, Body: []byte("{")})

	require.False(t, called)
	require.Equal(t, 1, ack.nacked)
	require.False(t, ack.requeue)
}

func TestPermanent(t *testing.T) {
	require.NoError(t, Permanent(nil))

	cause := errors.New("bad")
	err := Permanent(cause)
	require.ErrorIs(t, err, ErrPermanent)
	require.ErrorIs(t, err, cause)
}

func TestParsePayload_RunFinished(t *testing.T) {
	id := uuid.New()
	msg, err := NewMessage(MessageTypeRunFinished, RunFinishedPayload{
		RunID: id, Procedure: "p", Status: "FAILED", Error: "boom", DurationMs: 12,
	})
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)

	got, err := ParsePayload[RunFinishedPayload](msg)
	require.NoError(t, err)
	require.Equal(t, id, got.RunID)
	require.Equal(t, "boom", got.Error)
	require.Equal(t, int64(12), got.DurationMs)

	_, err = ParsePayload[RunFinishedPayload](&Message{Type: MessageTypeRunFinished, Payload: json.RawMessage(`[1]`)})
	require.Error(t, err)
}

func TestDefaultTopology_Consistent(t *testing.T) {
	topo := DefaultTopology()

	exchanges := map[Exchange]bool{}
	for _, ex := range topo.Exchanges {
		exchanges[ex.Name] = true
	}
	queues := map[Queue]bool{}
	for _, q := range topo.Queues {
		queues[q.Name] = true
	}

	for _, b := range topo.Bindings {
		require.True(t, exchanges[b.Exchange], "unknown exchange %s", b.Exchange)
		require.True(t, queues[b.Queue], "unknown queue %s", b.Queue)
	}

	require.Equal(t, string(ExchangeDLQ), topo.Queues[0].Args["x-dead-letter-exchange"])
	require.Contains(t, topo.String(), "runs.requested [routing: requested]")
}
