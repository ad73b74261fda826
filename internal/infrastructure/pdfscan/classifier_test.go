package pdfscan

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/mmsoft/invoiceflow/internal/core/domain"
)

func TestClassifyGarbageBytesReturnsError(t *testing.T) {
	c := NewClassifier(DefaultOptions())

	verdict := c.Classify([]byte("this is not a pdf at all"))
	if verdict.Kind != domain.ContentError {
		t.Fatalf("Kind = %q, want %q", verdict.Kind, domain.ContentError)
	}
	if verdict.Reason == "" {
		t.Fatalf("expected a parse failure reason")
	}
}

func TestClassifyImagePagesAboveRatioIsScanned(t *testing.T) {
	// Nine image-only pages out of ten is above the 0.80 default, so the
	// structural pass alone must settle the verdict.
	pages := make([]testPage, 0, 10)
	for i := 0; i < 9; i++ {
		pages = append(pages, imagePage())
	}
	pages = append(pages, textPage("Invoice No: INV-1"))

	c := NewClassifier(DefaultOptions())
	verdict := c.Classify(buildPDF(pages))
	if verdict.Kind != domain.ContentScanned {
		t.Fatalf("Kind = %q, want %q", verdict.Kind, domain.ContentScanned)
	}
	if verdict.Text != "" {
		t.Fatalf("scanned verdict must not carry text, got %q", verdict.Text)
	}
}

func TestClassifyImagePagesBelowRatioFallsThroughToText(t *testing.T) {
	// Half the pages are image-only: below the ratio, so the textual
	// phase decides. The stub stands in for the extraction library.
	c := NewClassifier(DefaultOptions())
	c.extractText = func([]byte) (string, error) {
		return "Invoice No: INV-2026-001 issued to a customer", nil
	}

	verdict := c.Classify(buildPDF([]testPage{imagePage(), textPage("hello")}))
	if verdict.Kind != domain.ContentText {
		t.Fatalf("Kind = %q, want %q", verdict.Kind, domain.ContentText)
	}
	if !strings.Contains(verdict.Text, "INV-2026-001") {
		t.Fatalf("verdict text missing extracted content: %q", verdict.Text)
	}
}

func TestClassifyTextExtractionFailureIsScanned(t *testing.T) {
	c := NewClassifier(DefaultOptions())
	c.extractText = func([]byte) (string, error) {
		return "", errors.New("no text layer")
	}

	verdict := c.Classify(buildPDF([]testPage{textPage("anything")}))
	if verdict.Kind != domain.ContentScanned {
		t.Fatalf("Kind = %q, want %q", verdict.Kind, domain.ContentScanned)
	}
}

func TestClassifyShortTextIsScanned(t *testing.T) {
	// 29 non-whitespace characters sits just under the floor; whitespace
	// must not count toward it.
	c := NewClassifier(DefaultOptions())
	c.extractText = func([]byte) (string, error) {
		return "  " + strings.Repeat("x ", 29) + "  ", nil
	}

	verdict := c.Classify(buildPDF([]testPage{textPage("anything")}))
	if verdict.Kind != domain.ContentScanned {
		t.Fatalf("Kind = %q, want %q", verdict.Kind, domain.ContentScanned)
	}
}

func TestClassifyTextAtFloorIsText(t *testing.T) {
	content := strings.Repeat("y", 30)
	c := NewClassifier(DefaultOptions())
	c.extractText = func([]byte) (string, error) { return content, nil }

	verdict := c.Classify(buildPDF([]testPage{textPage("anything")}))
	if verdict.Kind != domain.ContentText {
		t.Fatalf("Kind = %q, want %q", verdict.Kind, domain.ContentText)
	}
	if verdict.Text != content {
		t.Fatalf("verdict must carry the full text")
	}
}

func TestClassifyRealTextPDFDoesNotError(t *testing.T) {
	// Minimal hand-built PDFs are not guaranteed to survive every text
	// extractor, but they must never be reported as unreadable.
	c := NewClassifier(DefaultOptions())
	verdict := c.Classify(buildPDF([]testPage{textPage("Commercial Invoice INV-9 for electronics shipment")}))
	if verdict.Kind == domain.ContentError {
		t.Fatalf("unexpected error verdict: %s", verdict.Reason)
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	data := buildPDF([]testPage{imagePage(), imagePage(), imagePage()})
	c := NewClassifier(DefaultOptions())

	first := c.Classify(data)
	for i := 0; i < 3; i++ {
		again := c.Classify(bytes.Clone(data))
		if again != first {
			t.Fatalf("verdict changed between runs: %+v vs %+v", again, first)
		}
	}
}

func TestClassifyRatioOptionOverride(t *testing.T) {
	// With the ratio raised to 1.0 a mixed document must reach the text
	// phase even when most pages are images.
	c := NewClassifier(Options{ScannedPageRatio: 1.0, MinTextChars: 5})
	c.extractText = func([]byte) (string, error) { return "enough text here", nil }

	verdict := c.Classify(buildPDF([]testPage{imagePage(), imagePage(), textPage("t")}))
	if verdict.Kind != domain.ContentText {
		t.Fatalf("Kind = %q, want %q", verdict.Kind, domain.ContentText)
	}
}
