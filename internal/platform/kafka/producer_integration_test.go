//go:build integration

package kafka_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"anima/internal/platform/kafka"
	id "anima/pkg/domain"
	audit "anima/pkg/platform/audit"
	auditmemory "anima/pkg/platform/audit/store/memory"
	"anima/pkg/platform/audit/worker"
	"anima/pkg/testutil/containers"
)

func TestRelayPublishesOutboxToKafka(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	broker := containers.GetManager().GetRedpanda(t).Broker
	topic := "anima.audit." + uuid.NewString()[:8]

	producer, err := kafka.NewProducer([]string{broker}, topic)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, producer.EnsureTopic(ctx, 1, 1))
	require.NoError(t, producer.EnsureTopic(ctx, 1, 1), "existing topic is not an error")

	store := auditmemory.NewInMemoryStore()
	alice := id.PrincipalID(uuid.New())
	require.NoError(t, store.Append(ctx, audit.Event{Action: string(audit.EventPaymentRegistered), Principal: alice, Subject: "memo:42"}))
	require.NoError(t, store.Append(ctx, audit.Event{Action: string(audit.EventAssetMinted), Principal: alice, Subject: "asset:0"}))

	relay := worker.NewRelay(store, producer, nil)
	n, err := relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	n, err = relay.RelayOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "published entries are not relayed twice")

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	var got []*kgo.Record
	for len(got) < 2 {
		fetches := consumer.PollFetches(ctx)
		require.NoError(t, ctx.Err())
		fetches.EachRecord(func(r *kgo.Record) { got = append(got, r) })
	}

	assert.Equal(t, alice.String(), string(got[0].Key))
	assert.Equal(t, "event_type", got[0].Headers[0].Key)
	assert.Equal(t, string(audit.EventPaymentRegistered), string(got[0].Headers[0].Value))

	event, err := audit.DecodePayload(got[1].Value)
	require.NoError(t, err)
	assert.Equal(t, string(audit.EventAssetMinted), event.Action)
	assert.Equal(t, audit.CategoryCompliance, event.Category)
}

type collectingHandler struct {
	want   int
	got    []*kafka.Message
	cancel context.CancelFunc
}

func (h *collectingHandler) Handle(_ context.Context, msg *kafka.Message) error {
	h.got = append(h.got, msg)
	if len(h.got) == h.want {
		h.cancel()
	}
	return nil
}

func TestConsumerCommitsHandledRecords(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	broker := containers.GetManager().GetRedpanda(t).Broker
	topic := "anima.audit." + uuid.NewString()[:8]
	group := "test-" + uuid.NewString()[:8]
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	producer, err := kafka.NewProducer([]string{broker}, topic)
	require.NoError(t, err)
	defer producer.Close()
	require.NoError(t, producer.EnsureTopic(ctx, 1, 1))

	alice := id.PrincipalID(uuid.New())
	var entries []audit.OutboxEntry
	for _, action := range []audit.AuditEvent{audit.EventPaymentRegistered, audit.EventAssetMinted} {
		event := audit.Prepare(audit.Event{Action: string(action), Principal: alice})
		payload, err := audit.EncodePayload(event)
		require.NoError(t, err)
		entries = append(entries, audit.OutboxEntry{ID: uuid.New(), Key: audit.Key(event), EventType: event.Action, Payload: payload, CreatedAt: event.Timestamp})
	}
	require.NoError(t, producer.Publish(ctx, entries))

	runCtx, stop := context.WithCancel(ctx)
	c, err := kafka.NewConsumer([]string{broker}, topic, group, logger)
	require.NoError(t, err)
	h := &collectingHandler{want: 2, cancel: stop}
	err = c.Run(runCtx, h)
	c.Close()
	assert.ErrorIs(t, err, context.Canceled)
	require.Len(t, h.got, 2)
	assert.Equal(t, string(audit.EventPaymentRegistered), h.got[0].Headers["event_type"])

	// A new member of the same group resumes after the committed offsets.
	runCtx, stop = context.WithTimeout(ctx, 3*time.Second)
	defer stop()
	c, err = kafka.NewConsumer([]string{broker}, topic, group, logger)
	require.NoError(t, err)
	defer c.Close()
	again := &collectingHandler{want: 1, cancel: stop}
	_ = c.Run(runCtx, again)
	assert.Empty(t, again.got)
}
