package heuristic

import (
	"context"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	"github.com/mmsoft/invoiceflow/internal/core/domain"
)

// Keyword-anchored patterns for the trading-house invoice layout: an
// invoice section followed by an optional "PACKING LIST" section.
var (
	invoiceNoRe   = regexp.MustCompile(`(?i)Invoice\s+No\.?\s*:?\s*([A-Za-z0-9\-/]+)`)
	invoiceDateRe = regexp.MustCompile(`(?i)Invoice\s+Date\s*:?\s*([A-Za-z]+\s+\d{1,2},?\s+\d{4}|\d{1,2}[/\-]\d{1,2}[/\-]\d{2,4})`)
	currencyRe    = regexp.MustCompile(`(?i)\b(US\$|USD|SGD|EUR|GBP|THB|JPY)\b`)
	totalAmountRe = regexp.MustCompile(`(?i)TOTAL\s+(\d[\d,]*\.?\d*)`)
	totalPiecesRe = regexp.MustCompile(`(?i)TOTAL\s+PCS\s+(\d+)`)
	buyerRe       = regexp.MustCompile(`(?i)(?:For\s+)?Account\s*&?\s*risk\s+of\s+Messers?\s*\n\s*(.+)`)
	companyRe     = regexp.MustCompile(`(?i)([A-Z][A-Z\.\s&]+(?:PTE\.?\s*LTD\.?|CO\.?,?\s*LTD\.?|CORPORATION|CORP\.?|INC\.?))`)
	shipFromRe    = regexp.MustCompile(`(?i)From\s*:\s*([A-Za-z\s]+?)(?:\s{2,}|To\s*:|\n)`)
	shipToRe      = regexp.MustCompile(`(?i)To\s*:\s*([A-Za-z\s]+?)(?:\s{2,}|\n)`)
	shipMethodRe  = regexp.MustCompile(`(?i)Shipped\s+per\s*:\s*(.+?)(?:\s{2,}|From\s*:|\n)`)

	// Product descriptions carry platform tags (PS4/PS5, NS, SWITCH, XBOX).
	descriptionRe = regexp.MustCompile(`(?i)([A-Z][A-Z0-9\s\-:&']+(?:PS[45]\s*\w*|NS\s*\w*|SWITCH|XBOX|PC|ASI\w*)\b)`)
	quantityRe    = regexp.MustCompile(`\b(\d{1,6})\s+PIECE`)
	amountRe      = regexp.MustCompile(`(\d[\d,]*\.\d{2})`)

	measurementRe   = regexp.MustCompile(`(\d+\s*X\s*\d+\s*X\s*\d+\s*CM)`)
	packingRowRe    = regexp.MustCompile(`(\d+(?:\s*-\s*\d+)?)\s+(\d+)\s+(\d+)\s+([\d.]+)\s+([\d.]+)`)
	packingTotalsRe = regexp.MustCompile(`(?i)TOTAL\s+(\d+)\s+(\d+)\s+([\d.]+)\s+([\d.]+)`)
)

// Options tunes the amount reconciliation.
type Options struct {
	// AmountTolerance bounds |candidate unit price - observed amount|
	// when pairing a line total with its unit price.
	AmountTolerance float64
}

func DefaultOptions() Options {
	return Options{AmountTolerance: 0.01}
}

// Extractor pulls invoice fields out of raw document text with anchored
// patterns. It is total: any input yields a record, unmatched fields stay
// unset.
type Extractor struct {
	opts   Options
	logger *slog.Logger
}

func NewExtractor(opts Options, logger *slog.Logger) *Extractor {
	if opts.AmountTolerance <= 0 {
		opts.AmountTolerance = DefaultOptions().AmountTolerance
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Extractor{opts: opts, logger: logger}
}

func (e *Extractor) Extract(_ context.Context, text string) (*domain.InvoiceRecord, error) {
	buyer := extractBuyer(text)
	record := &domain.InvoiceRecord{
		Vendor:         extractVendor(text, buyer),
		Buyer:          buyer,
		InvoiceNo:      firstCapture(invoiceNoRe, text),
		InvoiceDate:    firstCapture(invoiceDateRe, text),
		Currency:       extractCurrency(text),
		TotalAmount:    extractTotalAmount(text),
		TotalPieces:    firstCaptureInt(totalPiecesRe, text),
		ShipFrom:       firstCaptureUpper(shipFromRe, text),
		ShipTo:         firstCaptureUpper(shipToRe, text),
		ShippingMethod: firstCapture(shipMethodRe, text),
		LineItems:      e.extractLineItems(text),
		PackingItems:   e.extractPackingItems(text),
		PackingTotals:  extractPackingTotals(text),
	}
	return record, nil
}

// splitAtPackingList returns the invoice section, the packing section and
// whether a packing list exists. The split is at the first occurrence of
// "PACKING LIST" regardless of case.
func splitAtPackingList(text string) (invoice, packing string, found bool) {
	idx := strings.Index(strings.ToUpper(text), "PACKING LIST")
	if idx < 0 || idx > len(text) {
		return text, "", false
	}
	return text[:idx], text[idx:], true
}

func firstCapture(re *regexp.Regexp, text string) *string {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v := strings.TrimSpace(m[1])
	return &v
}

func firstCaptureUpper(re *regexp.Regexp, text string) *string {
	v := firstCapture(re, text)
	if v == nil {
		return nil
	}
	upper := strings.ToUpper(*v)
	return &upper
}

func firstCaptureInt(re *regexp.Regexp, text string) *int {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

func extractCurrency(text string) *string {
	m := currencyRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	cur := strings.ToUpper(m[1])
	if cur == "US$" {
		cur = "USD"
	}
	return &cur
}

// extractTotalAmount keeps the last "TOTAL <number>" before the packing
// list, so sub-totals higher up the document lose to the grand total.
func extractTotalAmount(text string) *float64 {
	invoice, _, _ := splitAtPackingList(text)

	var last *float64
	for _, m := range totalAmountRe.FindAllStringSubmatch(invoice, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		value := v
		last = &value
	}
	return last
}

func extractBuyer(text string) *string {
	return firstCapture(buyerRe, text)
}

// extractVendor picks the first company-suffix match that does not name
// the buyer. Without a buyer the first company wins outright.
func extractVendor(text string, buyer *string) *string {
	companies := companyRe.FindAllStringSubmatch(text, -1)
	if buyer != nil {
		upperBuyer := strings.ToUpper(strings.TrimSpace(*buyer))
		for _, m := range companies {
			company := strings.TrimSpace(m[1])
			if !strings.Contains(strings.ToUpper(company), upperBuyer) {
				return &company
			}
		}
	}
	if len(companies) == 0 {
		return nil
	}
	first := strings.TrimSpace(companies[0][1])
	return &first
}

// extractLineItems zips description lines with "<n> PIECE" quantities by
// position, then reconciles each line against the decimal amounts: an
// amount is a line total when amount/qty matches another listed amount
// within the tolerance.
func (e *Extractor) extractLineItems(text string) []domain.LineItem {
	invoice, _, _ := splitAtPackingList(text)

	var descriptions []string
	for _, m := range descriptionRe.FindAllStringSubmatch(invoice, -1) {
		descriptions = append(descriptions, strings.TrimSpace(m[1]))
	}
	var quantities []int
	for _, m := range quantityRe.FindAllStringSubmatch(invoice, -1) {
		if n, err := strconv.Atoi(m[1]); err == nil {
			quantities = append(quantities, n)
		}
	}
	var amounts []float64
	for _, m := range amountRe.FindAllStringSubmatch(invoice, -1) {
		if v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			amounts = append(amounts, v)
		}
	}

	if len(descriptions) > 0 && len(descriptions) != len(quantities) {
		e.logger.Warn("line item positional lists disagree",
			"descriptions", len(descriptions),
			"quantities", len(quantities),
		)
	}

	items := make([]domain.LineItem, 0, len(descriptions))
	for i, desc := range descriptions {
		item := domain.LineItem{Description: desc}
		if i < len(quantities) {
			item.Qty = quantities[i]
		}

		if item.Qty > 0 {
			for _, amt := range amounts {
				unit := amt / float64(item.Qty)
				for _, other := range amounts {
					if abs(other-unit) < e.opts.AmountTolerance && amt != other {
						item.Amount = amt
						item.UnitPrice = unit
						break
					}
				}
				if item.Amount > 0 {
					break
				}
			}
		}

		items = append(items, item)
	}
	return items
}

// extractPackingItems reads the numeric carton rows after the "CARTON"
// header and pairs them positionally with descriptions and measurement
// tokens found anywhere in the packing section.
func (e *Extractor) extractPackingItems(text string) []domain.PackingItem {
	_, packing, found := splitAtPackingList(text)
	if !found {
		return nil
	}

	var descriptions []string
	for _, m := range descriptionRe.FindAllStringSubmatch(packing, -1) {
		descriptions = append(descriptions, strings.TrimSpace(m[1]))
	}
	var measurements []string
	for _, m := range measurementRe.FindAllStringSubmatch(packing, -1) {
		measurements = append(measurements, strings.TrimSpace(m[1]))
	}

	data := packing
	if header := strings.Index(strings.ToUpper(packing), "CARTON"); header >= 0 {
		data = packing[header:]
	}

	rows := packingRowRe.FindAllStringSubmatch(data, -1)
	if len(rows) > 0 && (len(rows) != len(descriptions) || len(rows) != len(measurements)) {
		e.logger.Warn("packing list positional lists disagree",
			"rows", len(rows),
			"descriptions", len(descriptions),
			"measurements", len(measurements),
		)
	}

	items := make([]domain.PackingItem, 0, len(rows))
	for i, row := range rows {
		item := domain.PackingItem{
			Carton: strings.TrimSpace(row[1]),
			Ctns:   atoiOrZero(row[2]),
			Qty:    atoiOrZero(row[3]),
		}
		item.NetWtPerCtn = atofOrZero(row[4])
		item.GrossWtPerCtn = atofOrZero(row[5])
		if i < len(descriptions) {
			item.Description = descriptions[i]
		}
		if i < len(measurements) {
			item.Measurement = measurements[i]
		}
		items = append(items, item)
	}
	return items
}

func extractPackingTotals(text string) *domain.PackingTotals {
	_, packing, found := splitAtPackingList(text)
	if !found {
		return nil
	}
	m := packingTotalsRe.FindStringSubmatch(packing)
	if m == nil {
		return nil
	}
	return &domain.PackingTotals{
		TotalCartons: atoiOrZero(m[1]),
		TotalQty:     atoiOrZero(m[2]),
		TotalNetWt:   atofOrZero(m[3]),
		TotalGrossWt: atofOrZero(m[4]),
	}
}

func atoiOrZero(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}

func atofOrZero(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
