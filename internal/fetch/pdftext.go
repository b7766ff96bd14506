package fetch

import (
	"context"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/rotisserie/eris"
)

// TextExtractor extracts plain text from a local document file.
type TextExtractor interface {
	ExtractText(ctx context.Context, path string) (string, error)
}

// PDFText extracts the text layer of a PDF with a pure-Go reader.
type PDFText struct{}

// NewPDFText creates a PDFText extractor.
func NewPDFText() *PDFText {
	return &PDFText{}
}

// ExtractText concatenates the plain text of every page. Pages that fail to
// decode are skipped; a document with no readable text returns "".
func (p *PDFText) ExtractText(ctx context.Context, path string) (string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return "", eris.Wrapf(err, "pdftext: open %s", path)
	}
	defer f.Close()

	var sb strings.Builder
	for i := 1; i <= r.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		sb.WriteString(text)
		sb.WriteString("\n")
	}
	return strings.TrimSpace(sb.String()), nil
}
