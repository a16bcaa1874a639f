// Package messaging publishes participation lifecycle messages so
// downstream consumers (notifications, a future waitlist promoter) can
// react without polling the database.
package messaging

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
)

// Message types carried on the participation topic.
const (
	TypeRegistered = "participation.registered"
	TypeWaitlisted = "participation.waitlisted"
	TypeCancelled  = "participation.cancelled"
)

// ParticipationMessage is the wire payload for a lifecycle change.
type ParticipationMessage struct {
	Type       string    `json:"type"`
	EventID    string    `json:"event_id"`
	UserID     string    `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher emits participation lifecycle messages.
type Publisher interface {
	Publish(ctx context.Context, msg ParticipationMessage) error
	Close() error
}

type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewPublisher returns a Kafka-backed publisher, or a logging fallback
// when brokers is empty or the brokers are unreachable.
func NewPublisher(brokers, topic string) Publisher {
	if brokers == "" {
		return &logPublisher{}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	conn, err := kafka.DialContext(ctx, "tcp", brokers)
	if err != nil {
		logrus.WithError(err).Warn("kafka unreachable, using logging publisher")
		return &logPublisher{}
	}
	defer conn.Close()

	err = conn.CreateTopics(kafka.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	})
	if err != nil {
		logrus.WithError(err).Debug("create topic (may already exist)")
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
	}
	logrus.WithField("brokers", brokers).Info("kafka publisher connected")
	return &kafkaPublisher{writer: writer}
}

func (p *kafkaPublisher) Publish(ctx context.Context, msg ParticipationMessage) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		// Key by event so consumers see one event's changes in order.
		Key:   []byte(msg.EventID),
		Value: payload,
		Time:  msg.OccurredAt,
	})
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}

// logPublisher stands in when no broker is configured.
type logPublisher struct{}

func (*logPublisher) Publish(_ context.Context, msg ParticipationMessage) error {
	logrus.WithFields(logrus.Fields{
		"type":     msg.Type,
		"event_id": msg.EventID,
		"user_id":  msg.UserID,
	}).Info("participation message (no broker configured)")
	return nil
}

func (*logPublisher) Close() error { return nil }
