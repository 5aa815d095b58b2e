package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

type captureWriter struct {
	msgs []kafka.Message
}

func (c *captureWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	c.msgs = append(c.msgs, msgs...)
	return nil
}

func (c *captureWriter) Close() error { return nil }

func TestPublishWritesNotificationEnvelope(t *testing.T) {
	w := &captureWriter{}
	p := &KafkaProducer{writer: w, timeout: time.Second}

	if err := p.Publish(context.Background(), "shoppingCart", "New search for vehicles from A to B"); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "shoppingCart" {
		t.Fatalf("unexpected messages %+v", w.msgs)
	}
	var env Envelope
	if err := json.Unmarshal(w.msgs[0].Value, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != TypeNotification || env.Room != "shoppingCart" || env.Message == "" {
		t.Fatalf("unexpected envelope %+v", env)
	}
}

func TestEmitCarriesPayload(t *testing.T) {
	w := &captureWriter{}
	p := &KafkaProducer{writer: w, timeout: time.Second}

	if err := p.Emit(context.Background(), TypeReservationCreated, "TR-ABCD2345", map[string]any{"total": 550}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	var env Envelope
	json.Unmarshal(w.msgs[0].Value, &env)
	if env.Type != TypeReservationCreated || env.Room != "" || string(env.Data) != `{"total":550}` {
		t.Fatalf("unexpected envelope %+v", env)
	}
}
