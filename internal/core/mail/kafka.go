package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
)

// EventPostVerification is the event type consumed by the notification service
const EventPostVerification = "post.verification"

type mailEvent struct {
	Type    string              `json:"type"`
	SentAt  time.Time           `json:"sentAt"`
	Payload VerificationMessage `json:"payload"`
}

// messageWriter is the subset of *kafka.Writer we use
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaSender hands verification mail to the notification service over Kafka.
// Writes are synchronous so a broker failure is reported to the caller.
type KafkaSender struct {
	w messageWriter
}

// NewKafkaSender creates a sender publishing to topic on the given brokers
func NewKafkaSender(brokers []string, topic string) (*KafkaSender, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("at least one kafka broker is required")
	}
	if strings.TrimSpace(topic) == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		WriteTimeout: 5 * time.Second,
	}
	return &KafkaSender{w: w}, nil
}

func (s *KafkaSender) SendPostVerification(ctx context.Context, msg VerificationMessage) error {
	value, err := json.Marshal(mailEvent{
		Type:    EventPostVerification,
		SentAt:  time.Now().UTC(),
		Payload: msg,
	})
	if err != nil {
		return fmt.Errorf("failed to encode mail event: %w", err)
	}

	// keyed by recipient so one submitter's mail stays ordered
	if err := s.w.WriteMessages(ctx, kafka.Message{
		Key:   []byte(msg.To),
		Value: value,
		Time:  time.Now(),
	}); err != nil {
		return fmt.Errorf("failed to publish mail event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer
func (s *KafkaSender) Close() error {
	return s.w.Close()
}
