package billing

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/billing-engine/internal/domain/entity"
)

const lineDateFormat = "02.01.2006"

// ResolveLines clips the priced periods against one billing window and builds
// an invoice line for each overlapping period. Overlapping priced periods are
// kept separate, one line each; lines come back in priced-period order.
func ResolveLines(window DateRange, periods []entity.PricedPeriod) ([]entity.InvoiceLine, error) {
	var lines []entity.InvoiceLine
	for _, p := range periods {
		if !p.Overlaps(window.From, window.To) {
			continue
		}
		from := maxDate(p.StartDate, window.From)
		to := minDate(p.EndDate, window.To)
		if from.After(to) {
			return nil, fmt.Errorf("period %s - %s in window %s - %s: %w",
				p.StartDate.Format(lineDateFormat), p.EndDate.Format(lineDateFormat),
				window.From.Format(lineDateFormat), window.To.Format(lineDateFormat),
				ErrPeriodInverted)
		}
		lines = append(lines, buildLine(p.MonthlyPrice, from, to, p.Description))
	}
	return lines, nil
}

func buildLine(monthlyPrice decimal.Decimal, from, to time.Time, description string) entity.InvoiceLine {
	quantity := MonthEquivalent(from, to)
	return entity.InvoiceLine{
		PeriodFrom:  from,
		PeriodTo:    to,
		Description: lineDescription(from, to, description),
		Quantity:    quantity,
		UnitPrice:   monthlyPrice,
		Amount:      monthlyPrice.Mul(quantity).Round(2),
	}
}

func lineDescription(from, to time.Time, description string) string {
	return fmt.Sprintf("Period: %s - %s\n%s",
		from.Format(lineDateFormat), to.Format(lineDateFormat), description)
}
