//go:build integration

package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	id "presence/pkg/domain"
	audit "presence/pkg/platform/audit"
	"presence/pkg/testutil/containers"
)

func TestSink_PublishesRecord(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	broker := containers.NewRedpandaContainer(t)
	topic := "presence.audit." + uuid.NewString()

	sink, err := New(ctx, []string{broker.Broker}, topic)
	require.NoError(t, err)
	defer sink.Close()

	userID := id.UserID(uuid.New())
	require.NoError(t, sink.Publish(ctx, audit.Event{
		Category:  audit.CategoryCompliance,
		Timestamp: time.Now(),
		UserID:    userID,
		Action:    string(audit.EventCheckInSucceeded),
		Method:    "geo",
	}))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(broker.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)

	var msg message
	require.NoError(t, json.Unmarshal(records[0].Value, &msg))
	assert.Equal(t, userID.String(), msg.UserID)
	assert.Equal(t, "checkin_succeeded", msg.Action)
	assert.Equal(t, "geo", msg.Method)
}
