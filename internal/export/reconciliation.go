package export

import (
	"bytes"
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/garyjia/billing-engine/internal/application/port"
)

const sheetName = "Ordered invoices"

var headers = []string{
	"Payer", "Series reference", "Invoice reference", "Order date", "Status", "Total amount",
}

// ReconciliationExporter writes all ordered invoices to an Excel workbook for
// reconciliation against the external invoicing system
type ReconciliationExporter struct {
	invoiceRepo port.InvoiceRepository
	logger      *zap.Logger
}

// NewReconciliationExporter creates a new exporter
func NewReconciliationExporter(invoiceRepo port.InvoiceRepository, logger *zap.Logger) *ReconciliationExporter {
	return &ReconciliationExporter{
		invoiceRepo: invoiceRepo,
		logger:      logger,
	}
}

// Export builds the workbook and returns it as bytes
func (e *ReconciliationExporter) Export(ctx context.Context) ([]byte, error) {
	rows, err := e.invoiceRepo.GetOrdered(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load ordered invoices: %w", err)
	}

	data, err := buildWorkbook(rows)
	if err != nil {
		return nil, err
	}

	e.logger.Info("Built reconciliation export", zap.Int("rows", len(rows)))
	return data, nil
}

func buildWorkbook(rows []port.ReconciliationRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("failed to drop default sheet: %w", err)
	}

	for col, header := range headers {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			return nil, fmt.Errorf("failed to write header: %w", err)
		}
	}

	for i, row := range rows {
		values := []interface{}{
			row.Payer,
			row.SeriesReference,
			row.InvoiceReference,
			row.OrderDate.Format("2006-01-02"),
			string(row.Status),
			row.Total.StringFixed(2),
		}
		for col, value := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, i+2)
			if err != nil {
				return nil, err
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				return nil, fmt.Errorf("failed to write row %d: %w", i+1, err)
			}
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
