package domain

// LineItem is a single invoice line.
type LineItem struct {
	Description string  `json:"description"`
	Qty         int     `json:"qty"`
	UnitPrice   float64 `json:"unit_price"`
	Amount      float64 `json:"amount"`
}

// PackingItem is a single row from the packing list.
type PackingItem struct {
	Carton        string  `json:"carton"`
	Description   string  `json:"description"`
	Ctns          int     `json:"ctns"`
	Qty           int     `json:"qty"`
	NetWtPerCtn   float64 `json:"net_wt_per_ctn"`
	GrossWtPerCtn float64 `json:"gross_wt_per_ctn"`
	Measurement   string  `json:"measurement"`
}

// PackingTotals is the summary row at the bottom of the packing list.
type PackingTotals struct {
	TotalCartons int     `json:"total_cartons"`
	TotalQty     int     `json:"total_qty"`
	TotalNetWt   float64 `json:"total_net_wt"`
	TotalGrossWt float64 `json:"total_gross_wt"`
}

// InvoiceRecord is the canonical structured output of an extraction,
// independent of which engine produced it. Scalar fields are pointers so
// that "not extracted" survives a JSON round trip as null.
type InvoiceRecord struct {
	Vendor         *string        `json:"vendor"`
	Buyer          *string        `json:"buyer"`
	InvoiceNo      *string        `json:"invoice_no"`
	InvoiceDate    *string        `json:"invoice_date"`
	Currency       *string        `json:"currency"`
	TotalAmount    *float64       `json:"total_amount"`
	TotalPieces    *int           `json:"total_pieces"`
	ShipFrom       *string        `json:"ship_from"`
	ShipTo         *string        `json:"ship_to"`
	ShippingMethod *string        `json:"shipping_method"`
	LineItems      []LineItem     `json:"line_items"`
	PackingItems   []PackingItem  `json:"packing_items"`
	PackingTotals  *PackingTotals `json:"packing_totals"`
}

// Coverage reports how many of the scalar fields were extracted. There is
// no ground truth for these documents, so the filled/total tuple is the
// only fitness signal the pipeline has.
func (r *InvoiceRecord) Coverage() (filled, total int) {
	present := []bool{
		r.Vendor != nil,
		r.Buyer != nil,
		r.InvoiceNo != nil,
		r.InvoiceDate != nil,
		r.Currency != nil,
		r.TotalAmount != nil,
		r.TotalPieces != nil,
		r.ShipFrom != nil,
		r.ShipTo != nil,
		r.ShippingMethod != nil,
	}
	for _, p := range present {
		if p {
			filled++
		}
	}
	return filled, len(present)
}

// ExtractionSource identifies which engine produced a record.
type ExtractionSource string

const (
	SourceLLM       ExtractionSource = "llm"
	SourceHeuristic ExtractionSource = "heuristic"
)
