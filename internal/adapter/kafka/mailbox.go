package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/kp-alert-service/internal/config"
	"github.com/couchcryptid/kp-alert-service/internal/domain"
)

// Mailbox produces queued alert emails to a Kafka topic for an external
// mail relay. It implements engine.Mailbox.
type Mailbox struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewMailbox creates a Kafka producer for the configured mail topic.
func NewMailbox(cfg *config.Config, logger *slog.Logger) *Mailbox {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaMailTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Mailbox{writer: w, logger: logger}
}

// Enqueue serializes and publishes all messages in a single WriteMessages call
// and returns how many the brokers acknowledged.
func (m *Mailbox) Enqueue(ctx context.Context, msgs []domain.MailboxMessage) (int, error) {
	if len(msgs) == 0 {
		return 0, nil
	}
	out := make([]kafkago.Message, len(msgs))
	for i := range msgs {
		msg, err := serializeToMessage(msgs[i])
		if err != nil {
			return 0, err
		}
		out[i] = msg
	}
	if err := m.writer.WriteMessages(ctx, out...); err != nil {
		return acknowledged(err, len(out)), fmt.Errorf("%w: produce %d mail messages: %w", domain.ErrDispatchFailure, len(out), err)
	}
	m.logger.Debug("mail messages produced", "topic", m.writer.Topic, "count", len(out))
	return len(out), nil
}

// acknowledged counts the messages that were written despite err. Only
// kafka-go's per-message WriteErrors identify partial success.
func acknowledged(err error, total int) int {
	var werrs kafkago.WriteErrors
	if errors.As(err, &werrs) && len(werrs) == total {
		return total - werrs.Count()
	}
	return 0
}

func (m *Mailbox) Close() error {
	return m.writer.Close()
}

// mailEnvelope matches the mail collection layout so relays can consume either source.
type mailEnvelope struct {
	To        string      `json:"to"`
	Message   mailPayload `json:"message"`
	CreatedAt time.Time   `json:"createdAt"`
}

type mailPayload struct {
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// serializeToMessage marshals a MailboxMessage keyed by recipient.
func serializeToMessage(m domain.MailboxMessage) (kafkago.Message, error) {
	data, err := json.Marshal(mailEnvelope{
		To:        m.To,
		Message:   mailPayload{Subject: m.Subject, Text: m.Text, HTML: m.HTML},
		CreatedAt: m.CreatedAt,
	})
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize mail message: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(m.To),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "subscriber_id", Value: []byte(m.SubscriberID)},
			{Key: "created_at", Value: []byte(m.CreatedAt.Format(time.RFC3339))},
		},
	}, nil
}
