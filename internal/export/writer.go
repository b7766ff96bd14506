package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"quoteflow/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// Columns defines the header row shared by the CSV and XLSX exports.
var Columns = []string{
	"Row",
	"Supplier",
	"Quote Number",
	"Quote Date",
	"Valid Until",
	"Currency",
	"Supplier Part Number",
	"Description",
	"UOM",
	"Min Qty",
	"Unit Price",
	"Lead Time Days",
	"MOQ",
	"SKU",
	"Catalog Code",
	"Sub Catalog Code",
	"Manufacturer ID",
}

// Rows flattens an extraction into one row per qty break. A line item
// without breaks still gets one row with empty pricing columns.
func Rows(ext *domain.CanonicalExtraction) [][]string {
	rows := make([][]string, 0, len(ext.LineItems))
	for i := range ext.LineItems {
		item := &ext.LineItems[i]
		if len(item.QtyBreaks) == 0 {
			rows = append(rows, itemRow(ext, i+1, item, nil))
			continue
		}
		for j := range item.QtyBreaks {
			rows = append(rows, itemRow(ext, i+1, item, &item.QtyBreaks[j]))
		}
	}
	return rows
}

func itemRow(ext *domain.CanonicalExtraction, n int, item *domain.LineItem, qb *domain.QtyBreak) []string {
	row := make([]string, len(Columns))

	row[0] = strconv.Itoa(n)
	row[1] = ext.SupplierName
	row[2] = ext.QuoteNumber
	row[3] = ext.QuoteDate
	row[4] = ext.ValidUntil
	row[5] = ext.Currency
	row[6] = item.SupplierPartNumber
	row[7] = item.Description
	row[8] = item.UOM
	if qb != nil {
		row[9] = formatQty(qb.MinQty)
		row[10] = formatMoney(qb.UnitPrice)
	}
	row[11] = formatInt(item.LeadTimeDays)
	row[12] = formatInt(item.MOQ)
	row[13] = item.SKU
	row[14] = item.CatalogCode
	row[15] = item.SubCatalogCode
	row[16] = item.ManufacturerID

	return row
}

// Writer wraps csv.Writer for exporting extractions as CSV.
type Writer struct {
	csv *csv.Writer
}

// NewWriter creates a Writer that writes CSV to w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *Writer) WriteHeader() error {
	return w.csv.Write(Columns)
}

// WriteExtraction writes every line item row of ext.
func (w *Writer) WriteExtraction(ext *domain.CanonicalExtraction) error {
	return w.csv.WriteAll(Rows(ext))
}

// Flush flushes the underlying csv.Writer buffer.
func (w *Writer) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *Writer) Error() error {
	return w.csv.Error()
}

// WriteCSV writes a complete BOM-prefixed CSV document for ext.
func WriteCSV(out io.Writer, ext *domain.CanonicalExtraction) error {
	if _, err := out.Write(BOM); err != nil {
		return err
	}
	w := NewWriter(out)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if err := w.WriteExtraction(ext); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

// formatMoney keeps four decimals; fastener prices are often sub-cent.
func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns {supplier}_{quote number}_{YYYY-MM-DD}.{ext}, falling
// back to "quote" when the extraction has no usable names.
func BuildFilename(extraction *domain.CanonicalExtraction, ext string, now time.Time) string {
	base := SanitizeFilename(strings.TrimSpace(extraction.SupplierName + " " + extraction.QuoteNumber))
	if base == "" {
		base = "quote"
	}
	return fmt.Sprintf("%s_%s.%s", base, now.Format("2006-01-02"), ext)
}
