package billing

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/billing-engine/internal/domain/entity"
)

// SettlementPeriod is one correction against an already-ordered invoice: the
// amount billed so far for the invoice's span versus the amount the revised
// priced periods say it should have been.
type SettlementPeriod struct {
	Period             DateRange
	PreviousAmount     decimal.Decimal
	NewAmount          decimal.Decimal
	CorrectsInvoiceRef string
}

// SettlementEngine computes retroactive corrections when a series is replaced
// after some of its invoices were already ordered.
type SettlementEngine struct {
	Clock Clock
}

func NewSettlementEngine(clock Clock) *SettlementEngine {
	return &SettlementEngine{Clock: clock}
}

// Settle compares the revised priced periods against every ordered invoice and
// returns a single settlement invoice covering all differences, or nil when
// nothing changed. Ordered invoices may themselves be settlement invoices from
// earlier replacements; corrections then chain against each line's stored new
// amount, never against the first billed amount.
func (e *SettlementEngine) Settle(revised []entity.PricedPeriod, ordered []*entity.Invoice) (*entity.Invoice, error) {
	if len(ordered) == 0 {
		return nil, nil
	}

	var settlements []SettlementPeriod
	for _, inv := range ordered {
		periods, err := e.settleInvoice(revised, inv)
		if err != nil {
			return nil, err
		}
		settlements = append(settlements, periods...)
	}
	if len(settlements) == 0 {
		return nil, nil
	}

	today := DateOnly(e.Clock())
	invoice := &entity.Invoice{
		Reference:       uuid.New().String(),
		OrderDate:       today,
		Status:          entity.InvoiceStatusCreated,
		CreditReference: chainRootReference(ordered),
	}
	for _, s := range settlements {
		invoice.Lines = append(invoice.Lines, settlementLine(s))
	}
	return invoice, nil
}

// settleInvoice produces the settlement periods for one ordered invoice.
func (e *SettlementEngine) settleInvoice(revised []entity.PricedPeriod, inv *entity.Invoice) ([]SettlementPeriod, error) {
	span := DateRange{From: inv.PeriodFrom(), To: inv.PeriodTo()}

	if !anyOverlap(revised, span) {
		// The revised series no longer covers this invoice at all; settle it
		// down to zero.
		previous, err := billedAmount(inv)
		if err != nil {
			return nil, err
		}
		if previous.IsZero() {
			return nil, nil
		}
		return []SettlementPeriod{{
			Period:             span,
			PreviousAmount:     previous,
			NewAmount:          decimal.Zero,
			CorrectsInvoiceRef: inv.Reference,
		}}, nil
	}

	if inv.IsSettlement() {
		return settleSettlementInvoice(revised, inv)
	}

	previous, err := billedAmount(inv)
	if err != nil {
		return nil, err
	}
	recomputed := recomputeAmount(revised, span)
	if recomputed.Equal(previous) {
		return nil, nil
	}
	return []SettlementPeriod{{
		Period:             span,
		PreviousAmount:     previous,
		NewAmount:          recomputed,
		CorrectsInvoiceRef: inv.Reference,
	}}, nil
}

// settleSettlementInvoice corrects an earlier settlement line by line, each
// line chaining from its own stored new amount.
func settleSettlementInvoice(revised []entity.PricedPeriod, inv *entity.Invoice) ([]SettlementPeriod, error) {
	var settlements []SettlementPeriod
	for _, line := range inv.Lines {
		if line.SettlementNewAmount == nil {
			return nil, fmt.Errorf("invoice %s line %d: %w", inv.Reference, line.ID, ErrMissingPreviousAmount)
		}
		span := DateRange{From: line.PeriodFrom, To: line.PeriodTo}
		previous := *line.SettlementNewAmount
		recomputed := recomputeAmount(revised, span)
		if recomputed.Equal(previous) {
			continue
		}
		settlements = append(settlements, SettlementPeriod{
			Period:             span,
			PreviousAmount:     previous,
			NewAmount:          recomputed,
			CorrectsInvoiceRef: inv.Reference,
		})
	}
	return settlements, nil
}

// billedAmount is the amount an invoice currently stands at. For a settlement
// invoice that is the sum of its lines' settled-to amounts; for an ordinary
// invoice the line total.
func billedAmount(inv *entity.Invoice) (decimal.Decimal, error) {
	if !inv.IsSettlement() {
		return inv.TotalAmount(), nil
	}
	total := decimal.Zero
	for _, line := range inv.Lines {
		if line.SettlementNewAmount == nil {
			return decimal.Zero, fmt.Errorf("invoice %s line %d: %w", inv.Reference, line.ID, ErrMissingPreviousAmount)
		}
		total = total.Add(*line.SettlementNewAmount)
	}
	return total, nil
}

// recomputeAmount prices the revised periods over one settled span, clipping
// each period to the span and prorating the clipped piece.
func recomputeAmount(revised []entity.PricedPeriod, span DateRange) decimal.Decimal {
	total := decimal.Zero
	for _, p := range revised {
		if !p.Overlaps(span.From, span.To) {
			continue
		}
		from := maxDate(p.StartDate, span.From)
		to := minDate(p.EndDate, span.To)
		total = total.Add(AmountForPeriod(p.MonthlyPrice, from, to))
	}
	return total
}

func settlementLine(s SettlementPeriod) entity.InvoiceLine {
	delta := s.NewAmount.Sub(s.PreviousAmount)
	quantity := decimal.NewFromInt(1)
	if delta.IsNegative() {
		quantity = decimal.NewFromInt(-1)
	}
	previous := s.PreviousAmount
	newAmount := s.NewAmount
	return entity.InvoiceLine{
		PeriodFrom: s.Period.From,
		PeriodTo:   s.Period.To,
		Description: fmt.Sprintf("Settlement period: %s - %s\nPrevious amount: %s New amount: %s",
			s.Period.From.Format(lineDateFormat), s.Period.To.Format(lineDateFormat),
			previous.StringFixed(2), newAmount.StringFixed(2)),
		Quantity:                 quantity,
		UnitPrice:                delta.Abs(),
		Amount:                   delta,
		SettlementPreviousAmount: &previous,
		SettlementNewAmount:      &newAmount,
		CorrectsInvoiceRef:       s.CorrectsInvoiceRef,
	}
}

// chainRootReference finds the first non-settlement invoice of the correction
// chain. A settlement invoice carries the chain root in its credit reference,
// so any ordered invoice resolves the root in one step.
func chainRootReference(ordered []*entity.Invoice) string {
	for _, inv := range ordered {
		if !inv.IsSettlement() {
			return inv.Reference
		}
	}
	for _, inv := range ordered {
		if inv.CreditReference != "" {
			return inv.CreditReference
		}
	}
	return ordered[0].Reference
}

func anyOverlap(periods []entity.PricedPeriod, span DateRange) bool {
	for _, p := range periods {
		if p.Overlaps(span.From, span.To) {
			return true
		}
	}
	return false
}
