package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"retailhub/backend/internal/domain"
)

const (
	DefaultTopic       = "stock.movements"
	EventStockMovement = "stock.movement"
)

// Publisher receives ledger entries once their unit of work has committed.
type Publisher interface {
	PublishMovements(ctx context.Context, entries []domain.LedgerEntry) error
	Close() error
}

type NoopPublisher struct{}

func (NoopPublisher) PublishMovements(context.Context, []domain.LedgerEntry) error { return nil }

func (NoopPublisher) Close() error { return nil }

// MovementEvent is the payload written for each ledger entry.
type MovementEvent struct {
	EventID         string                 `json:"event_id"`
	Type            string                 `json:"type"`
	EntryID         int64                  `json:"entry_id"`
	ShopID          int64                  `json:"shop_id"`
	ProductID       int64                  `json:"product_id"`
	TransactionType domain.TransactionType `json:"transaction_type"`
	Quantity        int64                  `json:"quantity"`
	ReferenceType   string                 `json:"reference_type,omitempty"`
	ReferenceID     *int64                 `json:"reference_id,omitempty"`
	CreatedBy       int64                  `json:"created_by"`
	Timestamp       time.Time              `json:"timestamp"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
}

func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultTopic
	}
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Compression:  kafka.Snappy,
	}
	return &KafkaPublisher{writer: writer, timeout: 5 * time.Second}
}

// PublishMovements writes one message per entry in a single batch. Messages
// are keyed by shop and product so a row's movements stay ordered.
func (p *KafkaPublisher) PublishMovements(ctx context.Context, entries []domain.LedgerEntry) error {
	if len(entries) == 0 {
		return nil
	}
	messages := make([]kafka.Message, 0, len(entries))
	for _, entry := range entries {
		msg, err := movementMessage(entry)
		if err != nil {
			return err
		}
		messages = append(messages, msg)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		return fmt.Errorf("write stock movements to kafka: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func movementMessage(entry domain.LedgerEntry) (kafka.Message, error) {
	event := MovementEvent{
		EventID:         uuid.NewString(),
		Type:            EventStockMovement,
		EntryID:         entry.ID,
		ShopID:          entry.ShopID,
		ProductID:       entry.ProductID,
		TransactionType: entry.Type,
		Quantity:        entry.Quantity,
		ReferenceType:   entry.ReferenceType,
		ReferenceID:     entry.ReferenceID,
		CreatedBy:       entry.CreatedBy,
		Timestamp:       entry.CreatedAt,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal stock movement: %w", err)
	}
	return kafka.Message{
		Key:   []byte(strconv.FormatInt(entry.ShopID, 10) + ":" + strconv.FormatInt(entry.ProductID, 10)),
		Value: payload,
		Time:  entry.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventStockMovement)},
			{Key: "transaction-type", Value: []byte(entry.Type)},
		},
	}, nil
}
