package xlsx

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/mmsoft/invoiceflow/internal/core/domain"
	"github.com/mmsoft/invoiceflow/internal/infrastructure/repository/postgres"
)

func strPtr(s string) *string   { return &s }
func f64Ptr(v float64) *float64 { return &v }

func TestBuildWorkbookRoundTrip(t *testing.T) {
	rows := []postgres.ExtractionRow{
		{
			AttachmentID: "att-1",
			Filename:     "INV-1.pdf",
			Source:       domain.SourceLLM,
			Record: domain.InvoiceRecord{
				Vendor:      strPtr("SOFT SOURCE PTE LTD"),
				InvoiceNo:   strPtr("INV-2026-001"),
				Currency:    strPtr("USD"),
				TotalAmount: f64Ptr(2540.00),
				LineItems: []domain.LineItem{
					{Description: "GAME CONTROLLER PS5", Qty: 100, UnitPrice: 25.40, Amount: 2540.00},
				},
				PackingItems: []domain.PackingItem{
					{Carton: "1-5", Description: "GAME CONTROLLER PS5", Ctns: 5, Qty: 100, NetWtPerCtn: 12.5, GrossWtPerCtn: 14.0, Measurement: "59 X 25 X 20 CM"},
				},
			},
			FilledFields: 4,
			TotalFields:  10,
			CreatedAt:    time.Now(),
		},
	}

	data, err := NewWriter(nil).Build(rows)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Invoices", "E2")
	if err != nil || got != "INV-2026-001" {
		t.Fatalf("Invoices!E2 = %q, %v", got, err)
	}
	got, err = f.GetCellValue("Invoices", "M2")
	if err != nil || got != "4/10" {
		t.Fatalf("Invoices!M2 = %q, %v", got, err)
	}
	got, err = f.GetCellValue("Line Items", "B2")
	if err != nil || got != "GAME CONTROLLER PS5" {
		t.Fatalf("Line Items!B2 = %q, %v", got, err)
	}
	got, err = f.GetCellValue("Packing", "H2")
	if err != nil || got != "59 X 25 X 20 CM" {
		t.Fatalf("Packing!H2 = %q, %v", got, err)
	}
}

func TestBuildEmptyRowsStillProducesWorkbook(t *testing.T) {
	data, err := NewWriter(nil).Build(nil)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("reopen workbook: %v", err)
	}
	defer f.Close()

	got, err := f.GetCellValue("Invoices", "A1")
	if err != nil || got != "File" {
		t.Fatalf("Invoices!A1 = %q, %v", got, err)
	}
}
