package pdfscan

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode"

	ledongthuc "github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/mmsoft/invoiceflow/internal/core/domain"
)

// Options holds the classification thresholds.
type Options struct {
	// ScannedPageRatio is the fraction of image-only pages at or above
	// which a document is declared scanned without attempting text
	// extraction.
	ScannedPageRatio float64
	// MinTextChars is the minimum number of non-whitespace characters a
	// document must yield to count as textual.
	MinTextChars int
}

func DefaultOptions() Options {
	return Options{
		ScannedPageRatio: 0.80,
		MinTextChars:     30,
	}
}

// Classifier decides whether PDF bytes are a textual document, a scanned
// image, or unreadable. Same bytes always produce the same verdict.
type Classifier struct {
	opts Options

	extractText func(data []byte) (string, error)
}

func NewClassifier(opts Options) *Classifier {
	def := DefaultOptions()
	if opts.ScannedPageRatio <= 0 || opts.ScannedPageRatio > 1 {
		opts.ScannedPageRatio = def.ScannedPageRatio
	}
	if opts.MinTextChars <= 0 {
		opts.MinTextChars = def.MinTextChars
	}
	return &Classifier{opts: opts, extractText: extractPlainText}
}

// Classify runs the structural pass first and falls through to full text
// extraction only when the page inspection is inconclusive.
func (c *Classifier) Classify(data []byte) domain.Verdict {
	scanned, err := c.looksScanned(data)
	if err != nil {
		return domain.ErrorVerdict(err.Error())
	}
	if scanned {
		return domain.ScannedVerdict()
	}

	text, err := c.extractText(data)
	if err != nil {
		// The container parsed but no text layer could be pulled out.
		// That is what a scan produced by a camera or copier looks like.
		return domain.ScannedVerdict()
	}
	if countNonSpace(text) < c.opts.MinTextChars {
		return domain.ScannedVerdict()
	}
	return domain.TextVerdict(text)
}

// looksScanned inspects per-page resources: a page referencing at least
// one image XObject and no fonts carries no extractable text. Documents
// where such pages reach the configured ratio are scans.
func (c *Classifier) looksScanned(data []byte) (bool, error) {
	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(data), model.NewDefaultConfiguration())
	if err != nil {
		return false, domain.WrapError(domain.ErrStructuralParse, "pdfscan: read", err)
	}
	if ctx.PageCount == 0 || ctx.Optimize == nil {
		return false, nil
	}

	imageOnly := 0
	for pageNr := 1; pageNr <= ctx.PageCount; pageNr++ {
		hasImages := len(pdfcpu.ImageObjNrs(ctx, pageNr)) > 0
		hasFonts := len(pdfcpu.FontObjNrs(ctx, pageNr)) > 0
		if hasImages && !hasFonts {
			imageOnly++
		}
	}

	ratio := float64(imageOnly) / float64(ctx.PageCount)
	return ratio >= c.opts.ScannedPageRatio, nil
}

func extractPlainText(data []byte) (text string, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfscan: text extraction panic: %v", r)
		}
	}()

	reader, err := ledongthuc.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("pdfscan: open: %w", err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("pdfscan: extract: %w", err)
	}
	var sb strings.Builder
	if _, err := io.Copy(&sb, plain); err != nil {
		return "", fmt.Errorf("pdfscan: read text: %w", err)
	}
	return sb.String(), nil
}

func countNonSpace(s string) int {
	n := 0
	for _, r := range s {
		if !unicode.IsSpace(r) {
			n++
		}
	}
	return n
}
