package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"seamless-wallet-gateway/internal/core/domain"

	"github.com/segmentio/kafka-go"
)

// Writer abstracts the Kafka writer for testing.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewWriter creates a Kafka writer for the transaction topic.
func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
	}
}

// transactionEvent is the wire shape of a published transaction. Amounts are
// strings so consumers are not handed binary floats.
type transactionEvent struct {
	ID            string  `json:"id"`
	ExternalID    string  `json:"external_id"`
	ProviderID    string  `json:"provider_id"`
	PlayerID      string  `json:"player_id"`
	GameID        string  `json:"game_id,omitempty"`
	RoundID       string  `json:"round_id,omitempty"`
	Type          string  `json:"type"`
	Amount        string  `json:"amount"`
	Currency      string  `json:"currency"`
	BalanceBefore string  `json:"balance_before"`
	BalanceAfter  string  `json:"balance_after"`
	Status        string  `json:"status"`
	ErrorCode     *string `json:"error_code,omitempty"`
	CreatedAt     string  `json:"created_at"`
	TsUnixMs      int64   `json:"ts_unix_ms"`
}

// KafkaPublisher implements ports.EventPublisher over a Kafka topic.
type KafkaPublisher struct {
	writer Writer
}

// NewKafkaPublisher creates a publisher around a Kafka writer.
func NewKafkaPublisher(w Writer) *KafkaPublisher {
	return &KafkaPublisher{writer: w}
}

// PublishTransaction emits a transaction event keyed by player so a player's
// transactions land on one partition in order.
func (p *KafkaPublisher) PublishTransaction(ctx context.Context, t *domain.Transaction) error {
	event := transactionEvent{
		ID:            t.ID.String(),
		ExternalID:    t.ExternalID,
		ProviderID:    t.ProviderID,
		PlayerID:      t.PlayerID,
		GameID:        t.GameID,
		RoundID:       t.RoundID,
		Type:          string(t.Type),
		Amount:        t.Amount.StringFixed(2),
		Currency:      t.Currency,
		BalanceBefore: t.BalanceBefore.StringFixed(2),
		BalanceAfter:  t.BalanceAfter.StringFixed(2),
		Status:        string(t.Status),
		ErrorCode:     t.ErrorCode,
		CreatedAt:     t.CreatedAt.UTC().Format(time.RFC3339Nano),
		TsUnixMs:      time.Now().UnixMilli(),
	}

	b, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal transaction event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(t.PlayerID),
		Value: b,
		Time:  time.Now(),
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish transaction event: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher is used when event streaming is disabled by config.
type NopPublisher struct{}

// PublishTransaction discards the event.
func (NopPublisher) PublishTransaction(context.Context, *domain.Transaction) error { return nil }
