// Package kafka forwards audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	audit "presence/pkg/platform/audit"
)

// Sink publishes audit events as JSON records keyed by user id.
type Sink struct {
	client *kgo.Client
	topic  string
}

type message struct {
	ID        string `json:"id"`
	Category  string `json:"category"`
	Timestamp string `json:"timestamp"`
	UserID    string `json:"user_id,omitempty"`
	EventID   string `json:"event_id,omitempty"`
	Action    string `json:"action"`
	Method    string `json:"method,omitempty"`
	Decision  string `json:"decision,omitempty"`
	Reason    string `json:"reason,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	Device    string `json:"device,omitempty"`
}

// New connects to the brokers and makes sure the topic exists.
func New(ctx context.Context, brokers []string, topic string) (*Sink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
		kgo.ProducerLinger(5*time.Millisecond),
	)
	if err != nil {
		return nil, fmt.Errorf("create kafka client: %w", err)
	}
	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}
	return &Sink{client: client, topic: topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopics(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	for _, r := range resp {
		if r.Err != nil && !errors.Is(r.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", topic, r.Err)
		}
	}
	return nil
}

// Publish produces one record and waits for the broker ack.
func (s *Sink) Publish(ctx context.Context, event audit.Event) error {
	msg := message{
		ID:        uuid.NewString(),
		Category:  string(event.Category),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		Action:    event.Action,
		Method:    event.Method,
		Decision:  event.Decision,
		Reason:    event.Reason,
		RequestID: event.RequestID,
		Device:    event.Device,
	}
	if !event.UserID.IsNil() {
		msg.UserID = event.UserID.String()
	}
	if !event.EventID.IsNil() {
		msg.EventID = event.EventID.String()
	}
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal audit record: %w", err)
	}
	record := &kgo.Record{Topic: s.topic, Key: []byte(msg.UserID), Value: value}
	if err := s.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce audit record: %w", err)
	}
	return nil
}

// Close flushes pending records and closes the client.
func (s *Sink) Close() {
	s.client.Close()
}
