package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// QuotationStatus is the lifecycle state of a quotation.
type QuotationStatus string

const (
	StatusDraft    QuotationStatus = "draft"
	StatusSent     QuotationStatus = "sent"
	StatusAccepted QuotationStatus = "accepted"
	StatusRejected QuotationStatus = "rejected"
	StatusExpired  QuotationStatus = "expired"
)

// ParseQuotationStatus validates a status string from an external caller.
func ParseQuotationStatus(s string) (QuotationStatus, error) {
	switch st := QuotationStatus(s); st {
	case StatusDraft, StatusSent, StatusAccepted, StatusRejected, StatusExpired:
		return st, nil
	}
	return "", validationf("status", "unknown status %q", s)
}

// Quotation is a priced offer to a client.
// Status progresses through the state machine:
//
//	draft → sent → accepted | rejected | expired
//
// Total and TotalTax are always the sums of the line values; they are never set directly.
type Quotation struct {
	ID           int             `json:"id"`
	CompanyID    int             `json:"company_id"`
	Number       int64           `json:"number"`
	ClientID     int             `json:"client_id"`
	ClientName   string          `json:"client_name"`  // joined from clients
	ClientEmail  string          `json:"client_email"` // joined from clients
	CreatedBy    int             `json:"created_by"`
	Status       QuotationStatus `json:"status"`
	StoredStatus QuotationStatus `json:"-"` // as persisted; Status is the effective value
	Total        decimal.Decimal `json:"total"`
	TotalTax     decimal.Decimal `json:"total_tax"`
	Notes        string          `json:"notes"`
	PDFObjectKey *string         `json:"pdf_object_key,omitempty"`
	Lines        []QuotationLine `json:"lines"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	SentAt       *time.Time      `json:"sent_at,omitempty"`
	ExpiresAt    *time.Time      `json:"expires_at,omitempty"`
}

// Reference is the human-readable quotation number, e.g. "QT-00042".
func (q *Quotation) Reference() string {
	return fmt.Sprintf("QT-%05d", q.Number)
}

// GrandTotal is Total plus TotalTax.
func (q *Quotation) GrandTotal() decimal.Decimal {
	return q.Total.Add(q.TotalTax)
}

// QuotationLine is one product row of a quotation. UnitPrice is a snapshot taken
// when the line was written; Subtotal and LineTax are derived by ComputeLine.
type QuotationLine struct {
	ID            int             `json:"id"`
	QuotationID   int             `json:"quotation_id"`
	LineNumber    int             `json:"line_number"`
	ProductID     int             `json:"product_id"`
	ProductCode   string          `json:"product_code"` // joined from products
	ProductName   string          `json:"product_name"` // joined from products
	TaxID         *int            `json:"tax_id,omitempty"`
	Quantity      int             `json:"quantity"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	TaxPercentage decimal.Decimal `json:"tax_percentage"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	LineTax       decimal.Decimal `json:"line_tax"`
}

// QuotationLineInput is one requested line. A nil UnitPrice takes the product's
// base price; a nil TaxID falls back to the product's default tax percentage.
type QuotationLineInput struct {
	ProductID int
	Quantity  int
	UnitPrice *decimal.Decimal
	TaxID     *int
}

// CreateQuotationInput is the input to QuotationService.CreateQuotation.
// A nil ExpiresAt defaults to the company's validity period. Draft creates the
// quotation unsent; otherwise it starts as sent.
type CreateQuotationInput struct {
	ClientID  int
	Lines     []QuotationLineInput
	Notes     string
	ExpiresAt *time.Time
	Draft     bool
}

// QuotationPatch is the input to QuotationService.UpdateQuotation. Nil fields are
// left untouched. A non-nil Lines replaces the whole line set.
type QuotationPatch struct {
	ClientID  *int
	Lines     []QuotationLineInput
	Status    *QuotationStatus
	Notes     *string
	ExpiresAt *time.Time
}

func (p QuotationPatch) changesContent() bool {
	return p.ClientID != nil || p.Lines != nil || p.Notes != nil || p.ExpiresAt != nil
}

// QuotationFilter narrows ListQuotations. Status matches the effective status.
type QuotationFilter struct {
	Status   *QuotationStatus
	ClientID *int
	Limit    int
	Offset   int
}
