package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	skafka "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/garyjia/billing-engine/internal/application/port"
	"github.com/garyjia/billing-engine/internal/domain/entity"
)

// Writer is the subset of the kafka writer the producer needs, so tests can
// inject a fake
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...skafka.Message) error
	Close() error
}

// OrderMessage is the wire format of one invoice order sent to the external
// invoicing system
type OrderMessage struct {
	SeriesReference  string             `json:"series_reference"`
	InvoiceReference string             `json:"invoice_reference"`
	Payer            string             `json:"payer"`
	OrderDate        string             `json:"order_date"`
	CreditReference  string             `json:"credit_reference,omitempty"`
	TotalAmount      string             `json:"total_amount"`
	Lines            []OrderMessageLine `json:"lines"`
}

// OrderMessageLine is one invoice line of an order message
type OrderMessageLine struct {
	PeriodFrom  string `json:"period_from"`
	PeriodTo    string `json:"period_to"`
	Description string `json:"description"`
	Quantity    string `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Amount      string `json:"amount"`
}

// OrderProducer publishes invoice order messages, keyed by series reference so
// orders of one series stay in sequence
type OrderProducer struct {
	writer Writer
	logger *zap.Logger
}

// NewOrderProducer creates a producer writing to the given brokers and topic
func NewOrderProducer(brokers []string, topic string, logger *zap.Logger) *OrderProducer {
	w := &skafka.Writer{
		Addr:         skafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &skafka.Hash{},
		RequiredAcks: skafka.RequireAll,
		WriteTimeout: 10 * time.Second,
	}
	return &OrderProducer{writer: w, logger: logger}
}

// NewOrderProducerWithWriter allows injecting a test writer
func NewOrderProducerWithWriter(w Writer, logger *zap.Logger) *OrderProducer {
	return &OrderProducer{writer: w, logger: logger}
}

// PublishOrder sends one invoice order message
func (p *OrderProducer) PublishOrder(ctx context.Context, series *entity.InvoiceSeries, invoice *entity.Invoice) error {
	msg := buildOrderMessage(series, invoice)
	value, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal order message: %w", err)
	}

	err = p.writer.WriteMessages(ctx, skafka.Message{
		Key:   []byte(series.Reference),
		Value: value,
	})
	if err != nil {
		p.logger.Error("Failed to write order message",
			zap.String("invoice_reference", invoice.Reference), zap.Error(err))
		return fmt.Errorf("failed to publish order message: %w", err)
	}

	p.logger.Info("Published invoice order",
		zap.String("invoice_reference", invoice.Reference),
		zap.String("series_reference", series.Reference))
	return nil
}

// Close closes the underlying writer
func (p *OrderProducer) Close() error {
	return p.writer.Close()
}

func buildOrderMessage(series *entity.InvoiceSeries, invoice *entity.Invoice) OrderMessage {
	msg := OrderMessage{
		SeriesReference:  series.Reference,
		InvoiceReference: invoice.Reference,
		Payer:            series.Payer,
		OrderDate:        invoice.OrderDate.Format("2006-01-02"),
		CreditReference:  invoice.CreditReference,
		TotalAmount:      invoice.TotalAmount().StringFixed(2),
	}
	for _, line := range invoice.Lines {
		msg.Lines = append(msg.Lines, OrderMessageLine{
			PeriodFrom:  line.PeriodFrom.Format("2006-01-02"),
			PeriodTo:    line.PeriodTo.Format("2006-01-02"),
			Description: line.Description,
			Quantity:    line.Quantity.String(),
			UnitPrice:   line.UnitPrice.StringFixed(2),
			Amount:      line.Amount.StringFixed(2),
		})
	}
	return msg
}

// Verify interface compliance
var _ port.OrderProducer = (*OrderProducer)(nil)
