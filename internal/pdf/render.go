package pdf

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"quotedesk/internal/core"

	"github.com/jung-kurt/gofpdf"
	"github.com/shopspring/decimal"
)

// Document is everything printed on a quotation PDF.
type Document struct {
	Company   core.Company
	Client    core.Client
	Quotation core.Quotation
}

// Renderer turns a quotation document into PDF bytes.
type Renderer interface {
	Render(doc Document) ([]byte, error)
}

type gofpdfRenderer struct {
	now func() time.Time
}

func NewRenderer() Renderer {
	return &gofpdfRenderer{now: time.Now}
}

// column widths in mm; they sum to the printable A4 width (190).
var lineColumns = []struct {
	title string
	width float64
	align string
}{
	{"#", 10, "C"},
	{"Product", 70, "L"},
	{"Qty", 15, "R"},
	{"Unit price", 25, "R"},
	{"Tax %", 20, "R"},
	{"Subtotal", 25, "R"},
	{"Tax", 25, "R"},
}

func (r *gofpdfRenderer) Render(doc Document) ([]byte, error) {
	q := doc.Quotation
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(q.Reference(), false)
	pdf.SetCreator("quotedesk", false)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("%s  |  page %d", q.Reference(), pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	// Header: issuer left, quotation facts right.
	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(110, 8, tr(doc.Company.Name), "", 0, "L", false, 0, "")
	pdf.CellFormat(80, 8, "QUOTATION "+q.Reference(), "", 1, "R", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	pdf.CellFormat(110, 5, tr(doc.Company.Email), "", 0, "L", false, 0, "")
	pdf.CellFormat(80, 5, "Date: "+q.CreatedAt.Format("2006-01-02"), "", 1, "R", false, 0, "")
	pdf.CellFormat(110, 5, tr(doc.Company.Address), "", 0, "L", false, 0, "")
	validUntil := "-"
	if q.ExpiresAt != nil {
		validUntil = q.ExpiresAt.Format("2006-01-02")
	}
	pdf.CellFormat(80, 5, "Valid until: "+validUntil, "", 1, "R", false, 0, "")
	pdf.CellFormat(110, 5, "", "", 0, "L", false, 0, "")
	pdf.CellFormat(80, 5, "Status: "+string(q.Status), "", 1, "R", false, 0, "")
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 6, "Bill to", "", 1, "L", false, 0, "")
	pdf.SetFont("Arial", "", 10)
	for _, s := range []string{doc.Client.Name, doc.Client.Email, doc.Client.Phone, doc.Client.Address} {
		if s != "" {
			pdf.MultiCell(0, 5, tr(s), "", "L", false)
		}
	}
	pdf.Ln(6)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(230, 230, 230)
	for _, c := range lineColumns {
		pdf.CellFormat(c.width, 7, c.title, "1", 0, c.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	for _, l := range q.Lines {
		values := []string{
			strconv.Itoa(l.LineNumber),
			tr(l.ProductName),
			strconv.Itoa(l.Quantity),
			money(l.UnitPrice),
			l.TaxPercentage.String(),
			money(l.Subtotal),
			money(l.LineTax),
		}
		for i, c := range lineColumns {
			pdf.CellFormat(c.width, 6, values[i], "1", 0, c.align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(4)

	currency := doc.Company.Currency
	totals := []struct {
		label string
		value decimal.Decimal
		bold  bool
	}{
		{"Total (excl. tax)", q.Total, false},
		{"Tax", q.TotalTax, false},
		{"Total", q.GrandTotal(), true},
	}
	for _, t := range totals {
		style := ""
		if t.bold {
			style = "B"
		}
		pdf.SetFont("Arial", style, 10)
		pdf.CellFormat(140, 6, t.label, "", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, money(t.value)+" "+currency, "", 1, "R", false, 0, "")
	}

	if q.Notes != "" {
		pdf.Ln(6)
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, "Notes", "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr(q.Notes), "", "L", false)
	}

	pdf.SetCreationDate(r.now())

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render quotation %s: %w", q.Reference(), err)
	}
	return buf.Bytes(), nil
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// FileName is the download name for a quotation PDF.
func FileName(q *core.Quotation) string {
	return q.Reference() + ".pdf"
}
