// Package events writes domain events and room notifications to Kafka.
// The notification relay consumes the same topic.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	TypeNotification       = "notification"
	TypeReservationCreated = "reservation.created"
)

// Envelope is the value of every message on the topic. Room is set for
// notifications; the relay ignores envelopes without one.
type Envelope struct {
	Type    string          `json:"type"`
	Room    string          `json:"room,omitempty"`
	Message string          `json:"message,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Time    time.Time       `json:"time"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaProducer struct {
	writer  messageWriter
	timeout time.Duration
}

func NewKafkaProducer(brokers []string, topic string) *KafkaProducer {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	return &KafkaProducer{writer: w, timeout: 2 * time.Second}
}

// Publish sends a room notification. It satisfies the notifier interfaces of
// the matcher and booking packages.
func (k *KafkaProducer) Publish(ctx context.Context, room, message string) error {
	return k.write(ctx, room, Envelope{Type: TypeNotification, Room: room, Message: message, Time: time.Now().UTC()})
}

// Emit sends a typed event with an arbitrary JSON payload keyed by key.
func (k *KafkaProducer) Emit(ctx context.Context, eventType, key string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return k.write(ctx, key, Envelope{Type: eventType, Data: data, Time: time.Now().UTC()})
}

func (k *KafkaProducer) write(ctx context.Context, key string, env Envelope) error {
	b, err := json.Marshal(env)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, k.timeout)
	defer cancel()
	return k.writer.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: b})
}

func (k *KafkaProducer) Close() error {
	if k.writer == nil {
		return nil
	}
	return k.writer.Close()
}
