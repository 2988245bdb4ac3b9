package kafka

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	skafka "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/billing-engine/internal/domain/entity"
)

type fakeWriter struct {
	messages []skafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...skafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestPublishOrder(t *testing.T) {
	writer := &fakeWriter{}
	producer := NewOrderProducerWithWriter(writer, zap.NewNop())

	series := &entity.InvoiceSeries{Reference: "series-1", Payer: "12345678903"}
	invoice := &entity.Invoice{
		Reference: "inv-1",
		OrderDate: time.Date(2024, 3, 19, 0, 0, 0, 0, time.UTC),
		Lines: []entity.InvoiceLine{{
			PeriodFrom:  time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
			PeriodTo:    time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC),
			Description: "Period: 01.04.2024 - 30.06.2024\nService fee",
			Quantity:    decimal.NewFromInt(3),
			UnitPrice:   decimal.NewFromInt(1000),
			Amount:      decimal.NewFromInt(3000),
		}},
	}

	err := producer.PublishOrder(context.Background(), series, invoice)
	require.NoError(t, err)
	require.Len(t, writer.messages, 1)

	assert.Equal(t, "series-1", string(writer.messages[0].Key))

	var msg OrderMessage
	require.NoError(t, json.Unmarshal(writer.messages[0].Value, &msg))
	assert.Equal(t, "inv-1", msg.InvoiceReference)
	assert.Equal(t, "12345678903", msg.Payer)
	assert.Equal(t, "2024-03-19", msg.OrderDate)
	assert.Equal(t, "3000.00", msg.TotalAmount)
	require.Len(t, msg.Lines, 1)
	assert.Equal(t, "2024-04-01", msg.Lines[0].PeriodFrom)
	assert.Equal(t, "1000.00", msg.Lines[0].UnitPrice)
}

func TestPublishOrder_WriteFailure(t *testing.T) {
	writer := &fakeWriter{err: context.DeadlineExceeded}
	producer := NewOrderProducerWithWriter(writer, zap.NewNop())

	err := producer.PublishOrder(context.Background(),
		&entity.InvoiceSeries{Reference: "series-1"},
		&entity.Invoice{Reference: "inv-1"})
	assert.Error(t, err)
}
