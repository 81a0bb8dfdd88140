package kafka

import (
	"context"
	"errors"
	"strconv"
	"time"

	kafka "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"

	"shop-orders/internal/service"
)

type Config struct {
	Brokers     []string
	GroupID     string
	Topic       string
	DLQ         string
	MaxRetries  int
	BaseBackoff time.Duration
}

type MessageHandler interface {
	HandleMessage(ctx context.Context, payload []byte) error
}

type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Consumer struct {
	reader messageReader
	dlq    messageWriter
	h      MessageHandler
	cfg    Config
	sleep  func(ctx context.Context, d time.Duration)
}

func (c Config) normalized() Config {
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.BaseBackoff <= 0 {
		c.BaseBackoff = 200 * time.Millisecond
	}
	return c
}

func NewConsumer(cfg Config, h MessageHandler) *Consumer {
	cfg = cfg.normalized()
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.Brokers,
		GroupID:        cfg.GroupID,
		Topic:          cfg.Topic,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        100 * time.Millisecond,
		CommitInterval: 0,
	})

	c := &Consumer{reader: r, h: h, cfg: cfg, sleep: sleepCtx}
	if cfg.DLQ != "" {
		c.dlq = &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.DLQ,
			RequiredAcks:           kafka.RequireAll,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		}
	}
	return c
}

func sleepCtx(ctx context.Context, d time.Duration) {
	select {
	case <-time.After(d):
	case <-ctx.Done():
	}
}

// Subscribe blocks until ctx is cancelled. Messages that keep failing are parked on the
// DLQ topic and committed so the partition keeps moving.
func (c *Consumer) Subscribe(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}

		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return nil
			}
			logrus.WithError(err).Warn("kafka fetch error")
			c.sleep(ctx, 300*time.Millisecond)
			continue
		}

		logrus.WithFields(logrus.Fields{
			"topic":     m.Topic,
			"partition": m.Partition,
			"offset":    m.Offset,
			"key":       string(m.Key),
		}).Debug("fetched message")

		if err := c.process(ctx, m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logrus.WithError(err).WithField("offset", m.Offset).Error("message not processed")
			c.sleep(ctx, 500*time.Millisecond)
		}
	}
}

func (c *Consumer) process(ctx context.Context, m kafka.Message) error {
	attempts, last := c.handle(ctx, m)
	if last == nil {
		return c.commit(ctx, m)
	}

	if c.dlq == nil {
		logrus.WithError(last).WithField("offset", m.Offset).Warn("DLQ disabled, dropping message")
		return c.commit(ctx, m)
	}

	dlqMsg := kafka.Message{
		Key:   m.Key,
		Value: m.Value,
		Headers: append(append([]kafka.Header(nil), m.Headers...),
			kafka.Header{Key: "x-dlq-reason", Value: []byte(trimErr(last))},
			kafka.Header{Key: "x-dlq-attempts", Value: []byte(strconv.Itoa(attempts))},
			kafka.Header{Key: "x-dlq-ts", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
			kafka.Header{Key: "x-dlq-source-topic", Value: []byte(c.cfg.Topic)},
			kafka.Header{Key: "x-dlq-group", Value: []byte(c.cfg.GroupID)},
		),
	}
	if err := c.dlq.WriteMessages(ctx, dlqMsg); err != nil {
		// not committed, so the message is fetched again
		return err
	}
	return c.commit(ctx, m)
}

// handle returns the number of attempts made and the last error, nil on success.
func (c *Consumer) handle(ctx context.Context, m kafka.Message) (int, error) {
	var last error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			c.sleep(ctx, backoff(attempt, c.cfg.BaseBackoff))
			if ctx.Err() != nil {
				return attempt, ctx.Err()
			}
		}
		last = c.h.HandleMessage(ctx, m.Value)
		if last == nil {
			return attempt + 1, nil
		}
		if isNonRetryable(last) {
			return attempt + 1, last
		}
	}
	return c.cfg.MaxRetries + 1, last
}

func (c *Consumer) commit(ctx context.Context, m kafka.Message) error {
	if err := c.reader.CommitMessages(ctx, m); err != nil {
		logrus.WithError(err).
			WithField("offset", m.Offset).
			WithField("partition", m.Partition).
			Warn("commit failed")
	}
	return nil
}

func (c *Consumer) Close() error {
	var first error
	if c.reader != nil {
		if err := c.reader.Close(); err != nil {
			first = err
		}
	}
	if c.dlq != nil {
		if err := c.dlq.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func backoff(n int, base time.Duration) time.Duration {
	if n <= 0 {
		return 0
	}
	d := base * (1 << (n - 1))
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func trimErr(err error) string {
	if err == nil {
		return ""
	}
	s := err.Error()
	if len(s) > 1000 {
		return s[:1000]
	}
	return s
}

func isNonRetryable(err error) bool {
	return errors.Is(err, service.ErrDecode) || errors.Is(err, service.ErrValidation)
}
