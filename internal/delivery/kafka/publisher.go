package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	kafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"shop-orders/internal/models"
)

// Publisher writes order notifications keyed by order number, so every notification of
// one order lands on the same partition in commit order.
type Publisher struct {
	writer messageWriter
}

// NewPublisher returns an async publisher: Notify only enqueues, and batches the broker
// rejects are logged by logUndelivered.
func NewPublisher(brokers []string, topic string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           10 * time.Millisecond,
		Async:                  true,
		Completion:             logUndelivered,
	}
	return &Publisher{writer: w}
}

func logUndelivered(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, m := range msgs {
		logrus.WithError(err).
			WithField("order_number", string(m.Key)).
			WithField("kind", header(m, "x-notification-kind")).
			Warn("order notification not delivered")
	}
}

func header(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func (p *Publisher) Notify(ctx context.Context, n models.OrderNotification) error {
	payload, err := json.Marshal(n)
	if err != nil {
		return errors.Wrap(err, "marshal notification")
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(n.OrderNumber),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "x-notification-kind", Value: []byte(n.Kind)},
		},
	})
	return errors.Wrapf(err, "publish notification %s", n.ID)
}

// Close flushes pending async writes.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
