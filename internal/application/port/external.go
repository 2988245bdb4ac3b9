package port

import (
	"context"

	"github.com/garyjia/billing-engine/internal/domain/entity"
)

// OrderProducer publishes invoices to the external invoicing system when their
// order date is reached
type OrderProducer interface {
	// PublishOrder sends one invoice order message
	PublishOrder(ctx context.Context, series *entity.InvoiceSeries, invoice *entity.Invoice) error

	// Close releases the underlying connection
	Close() error
}
