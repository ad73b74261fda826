package pdfscan

import "strings"

// In-test PDF assembly with hand-computed xref offsets, so the classifier
// is exercised against byte-valid documents without fixture files.

type testPage struct {
	imageOnly bool
	text      string
}

func textPage(text string) testPage { return testPage{text: text} }
func imagePage() testPage           { return testPage{imageOnly: true} }

// buildPDF lays out a catalog, a page tree and three objects per page
// (page, contents, resource), then writes the xref table from recorded
// offsets.
func buildPDF(pages []testPage) []byte {
	objCount := 2 + 3*len(pages)

	var b strings.Builder
	offsets := make([]int, objCount+1)

	b.WriteString("%PDF-1.4\n")

	offsets[1] = b.Len()
	b.WriteString("1 0 obj\n<< /Type /Catalog /Pages 2 0 R >>\nendobj\n")

	var kids strings.Builder
	for i := range pages {
		if i > 0 {
			kids.WriteString(" ")
		}
		kids.WriteString(pdfItoa(3+i*3) + " 0 R")
	}
	offsets[2] = b.Len()
	b.WriteString("2 0 obj\n<< /Type /Pages /Kids [" + kids.String() + "] /Count " + pdfItoa(len(pages)) + " >>\nendobj\n")

	for i, page := range pages {
		pageObj := 3 + i*3
		contentObj := pageObj + 1
		resObj := pageObj + 2

		var resources, stream string
		if page.imageOnly {
			resources = "<< /XObject << /Im1 " + pdfItoa(resObj) + " 0 R >> >>"
			stream = "q 100 0 0 100 72 692 cm /Im1 Do Q"
		} else {
			resources = "<< /Font << /F1 " + pdfItoa(resObj) + " 0 R >> >>"
			stream = "BT\n/F1 12 Tf\n72 720 Td\n(" + escapePDFText(page.text) + ") Tj\nET"
		}

		offsets[pageObj] = b.Len()
		b.WriteString(pdfItoa(pageObj) + " 0 obj\n<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents " +
			pdfItoa(contentObj) + " 0 R /Resources " + resources + " >>\nendobj\n")

		offsets[contentObj] = b.Len()
		b.WriteString(pdfItoa(contentObj) + " 0 obj\n<< /Length " + pdfItoa(len(stream)) + " >>\nstream\n" + stream + "\nendstream\nendobj\n")

		offsets[resObj] = b.Len()
		if page.imageOnly {
			imgData := "\xff\xd8\xff\xe0"
			b.WriteString(pdfItoa(resObj) + " 0 obj\n<< /Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceRGB /BitsPerComponent 8 /Length " +
				pdfItoa(len(imgData)) + " >>\nstream\n" + imgData + "\nendstream\nendobj\n")
		} else {
			b.WriteString(pdfItoa(resObj) + " 0 obj\n<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>\nendobj\n")
		}
	}

	xrefOffset := b.Len()
	b.WriteString("xref\n0 " + pdfItoa(objCount+1) + "\n")
	b.WriteString("0000000000 65535 f \n")
	for i := 1; i <= objCount; i++ {
		b.WriteString(pdfPadOffset(offsets[i]) + " 00000 n \n")
	}
	b.WriteString("trailer\n<< /Size " + pdfItoa(objCount+1) + " /Root 1 0 R >>\nstartxref\n")
	b.WriteString(pdfItoa(xrefOffset) + "\n%%EOF\n")

	return []byte(b.String())
}

func escapePDFText(text string) string {
	escaped := strings.ReplaceAll(text, `\`, `\\`)
	escaped = strings.ReplaceAll(escaped, "(", `\(`)
	escaped = strings.ReplaceAll(escaped, ")", `\)`)
	return escaped
}

func pdfItoa(n int) string {
	if n == 0 {
		return "0"
	}
	s := ""
	for n > 0 {
		s = string(rune('0'+n%10)) + s
		n /= 10
	}
	return s
}

func pdfPadOffset(n int) string {
	s := pdfItoa(n)
	for len(s) < 10 {
		s = "0" + s
	}
	return s
}
