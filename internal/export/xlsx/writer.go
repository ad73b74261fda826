package xlsx

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mmsoft/invoiceflow/internal/infrastructure/repository/postgres"
)

// Writer renders extracted invoices into a three-sheet workbook:
// invoice scalars, line items and packing rows.
type Writer struct {
	logger *slog.Logger
}

func NewWriter(logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{logger: logger}
}

const (
	sheetInvoices  = "Invoices"
	sheetLineItems = "Line Items"
	sheetPacking   = "Packing"
)

func (w *Writer) Build(rows []postgres.ExtractionRow) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	for _, sheet := range []string{sheetInvoices, sheetLineItems, sheetPacking} {
		if index, _ := f.GetSheetIndex(sheet); index == -1 {
			if _, err := f.NewSheet(sheet); err != nil {
				return nil, err
			}
		}
	}
	if index, err := f.GetSheetIndex("Sheet1"); err == nil && index != -1 {
		_ = f.DeleteSheet("Sheet1")
	}
	activeIndex, _ := f.GetSheetIndex(sheetInvoices)
	f.SetActiveSheet(activeIndex)

	writeHeaders(f, sheetInvoices, []string{
		"File", "Source", "Vendor", "Buyer", "Invoice No", "Invoice Date", "Currency",
		"Total Amount", "Total Pieces", "Ship From", "Ship To", "Shipping Method", "Coverage",
	})
	writeHeaders(f, sheetLineItems, []string{
		"File", "Description", "Qty", "Unit Price", "Amount",
	})
	writeHeaders(f, sheetPacking, []string{
		"File", "Carton", "Description", "Ctns", "Qty", "Net Wt/Ctn", "Gross Wt/Ctn", "Measurement",
	})

	invoiceRow, lineRow, packingRow := 2, 2, 2
	for _, row := range rows {
		record := row.Record

		write(f, sheetInvoices, 1, invoiceRow, row.Filename)
		write(f, sheetInvoices, 2, invoiceRow, string(row.Source))
		write(f, sheetInvoices, 3, invoiceRow, deref(record.Vendor))
		write(f, sheetInvoices, 4, invoiceRow, deref(record.Buyer))
		write(f, sheetInvoices, 5, invoiceRow, deref(record.InvoiceNo))
		write(f, sheetInvoices, 6, invoiceRow, deref(record.InvoiceDate))
		write(f, sheetInvoices, 7, invoiceRow, deref(record.Currency))
		if record.TotalAmount != nil {
			write(f, sheetInvoices, 8, invoiceRow, *record.TotalAmount)
		}
		if record.TotalPieces != nil {
			write(f, sheetInvoices, 9, invoiceRow, *record.TotalPieces)
		}
		write(f, sheetInvoices, 10, invoiceRow, deref(record.ShipFrom))
		write(f, sheetInvoices, 11, invoiceRow, deref(record.ShipTo))
		write(f, sheetInvoices, 12, invoiceRow, deref(record.ShippingMethod))
		write(f, sheetInvoices, 13, invoiceRow, fmt.Sprintf("%d/%d", row.FilledFields, row.TotalFields))
		invoiceRow++

		for _, item := range record.LineItems {
			write(f, sheetLineItems, 1, lineRow, row.Filename)
			write(f, sheetLineItems, 2, lineRow, item.Description)
			write(f, sheetLineItems, 3, lineRow, item.Qty)
			write(f, sheetLineItems, 4, lineRow, item.UnitPrice)
			write(f, sheetLineItems, 5, lineRow, item.Amount)
			lineRow++
		}
		for _, item := range record.PackingItems {
			write(f, sheetPacking, 1, packingRow, row.Filename)
			write(f, sheetPacking, 2, packingRow, item.Carton)
			write(f, sheetPacking, 3, packingRow, item.Description)
			write(f, sheetPacking, 4, packingRow, item.Ctns)
			write(f, sheetPacking, 5, packingRow, item.Qty)
			write(f, sheetPacking, 6, packingRow, item.NetWtPerCtn)
			write(f, sheetPacking, 7, packingRow, item.GrossWtPerCtn)
			write(f, sheetPacking, 8, packingRow, item.Measurement)
			packingRow++
		}
	}

	_ = f.SetColWidth(sheetInvoices, "A", "B", 18)
	_ = f.SetColWidth(sheetInvoices, "C", "D", 32)
	_ = f.SetColWidth(sheetInvoices, "E", "G", 16)
	_ = f.SetColWidth(sheetInvoices, "J", "L", 20)
	_ = f.SetColWidth(sheetLineItems, "B", "B", 48)
	_ = f.SetColWidth(sheetPacking, "C", "C", 48)
	_ = f.SetColWidth(sheetPacking, "H", "H", 20)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	w.logger.Info("export.xlsx.ok",
		"invoices", len(rows),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func writeHeaders(f *excelize.File, sheet string, headers []string) {
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}
}

func write(f *excelize.File, sheet string, col, row int, v any) {
	cell, _ := excelize.CoordinatesToCellName(col, row)
	_ = f.SetCellValue(sheet, cell, v)
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
