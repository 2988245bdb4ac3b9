package entity

// Interval is the billing interval of an invoice series.
type Interval string

const (
	IntervalMonthly   Interval = "MONTHLY"
	IntervalQuarterly Interval = "QUARTERLY"
	IntervalSingle    Interval = "SINGLE"
)

// Valid reports whether the interval is one of the known values.
func (i Interval) Valid() bool {
	switch i {
	case IntervalMonthly, IntervalQuarterly, IntervalSingle:
		return true
	}
	return false
}

// InvoiceStatus is the lifecycle status of a single invoice.
type InvoiceStatus string

const (
	InvoiceStatusCreated          InvoiceStatus = "CREATED"
	InvoiceStatusOrdered          InvoiceStatus = "ORDERED"
	InvoiceStatusCancelled        InvoiceStatus = "CANCELLED"
	InvoiceStatusPaid             InvoiceStatus = "PAID"
	InvoiceStatusPartiallyPaid    InvoiceStatus = "PARTIALLY_PAID"
	InvoiceStatusFailed           InvoiceStatus = "FAILED"
	InvoiceStatusInExternalSystem InvoiceStatus = "IN_EXTERNAL_SYSTEM"
	InvoiceStatusMissingPayment   InvoiceStatus = "MISSING_PAYMENT"
)

// SeriesStatus is the lifecycle status of an invoice series.
type SeriesStatus string

const (
	SeriesStatusCreated   SeriesStatus = "CREATED"
	SeriesStatusOrdering  SeriesStatus = "ORDERING"
	SeriesStatusCancelled SeriesStatus = "CANCELLED"
	SeriesStatusReplaced  SeriesStatus = "REPLACED"
	SeriesStatusDone      SeriesStatus = "DONE"
)
