package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"retailhub/backend/internal/domain"
)

type recordingWriter struct {
	messages []kafka.Message
	err      error
	deadline bool
}

func (w *recordingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	_, w.deadline = ctx.Deadline()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestPublishMovementsWritesOneMessagePerEntry(t *testing.T) {
	writer := &recordingWriter{}
	publisher := &KafkaPublisher{writer: writer, timeout: time.Second}
	saleID := int64(42)
	at := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	err := publisher.PublishMovements(context.Background(), []domain.LedgerEntry{
		{ID: 1, ShopID: 1, ProductID: 7, Type: domain.TxSale, Quantity: -3, ReferenceType: domain.ReferenceSale, ReferenceID: &saleID, CreatedAt: at},
		{ID: 2, ShopID: 2, ProductID: 7, Type: domain.TxPurchase, Quantity: 5, ReferenceType: domain.ReferenceManual, CreatedAt: at},
	})
	require.NoError(t, err)
	require.Len(t, writer.messages, 2)
	assert.True(t, writer.deadline)

	first := writer.messages[0]
	assert.Equal(t, "1:7", string(first.Key))
	assert.Equal(t, at, first.Time)
	require.NotEmpty(t, first.Headers)
	assert.Equal(t, "event-type", first.Headers[0].Key)
	assert.Equal(t, EventStockMovement, string(first.Headers[0].Value))

	var event MovementEvent
	require.NoError(t, json.Unmarshal(first.Value, &event))
	assert.Equal(t, int64(-3), event.Quantity)
	assert.Equal(t, domain.TxSale, event.TransactionType)
	require.NotNil(t, event.ReferenceID)
	assert.Equal(t, saleID, *event.ReferenceID)
	assert.NotEmpty(t, event.EventID)
}

func TestPublishMovementsSkipsEmptyBatch(t *testing.T) {
	writer := &recordingWriter{err: errors.New("should not be called")}
	publisher := &KafkaPublisher{writer: writer, timeout: time.Second}
	require.NoError(t, publisher.PublishMovements(context.Background(), nil))
}

func TestPublishMovementsWrapsWriterError(t *testing.T) {
	writer := &recordingWriter{err: errors.New("broker down")}
	publisher := &KafkaPublisher{writer: writer, timeout: time.Second}
	err := publisher.PublishMovements(context.Background(), []domain.LedgerEntry{{ShopID: 1, ProductID: 1, Type: domain.TxAdjustment}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
}
