package ai

import (
	"errors"
	"fmt"
	"strings"

	"quotedesk/internal/core"

	"github.com/shopspring/decimal"
)

// QuotationDraft is the assistant's structured proposal. Nothing in it is
// persisted until a user submits it as a regular quotation.
type QuotationDraft struct {
	ClientID   int         `json:"client_id" jsonschema_description:"ID of the client from the client list"`
	Lines      []DraftLine `json:"lines" jsonschema_description:"Quotation lines, at least one"`
	Notes      string      `json:"notes" jsonschema_description:"Free-text notes for the client, may be empty"`
	Confidence float64     `json:"confidence" jsonschema_description:"Confidence between 0.0 and 1.0"`
	Reasoning  string      `json:"reasoning" jsonschema_description:"Short explanation of the choices made"`
}

// DraftLine proposes one line. Empty UnitPrice keeps the catalog price and a
// zero TaxID keeps the product's default tax.
type DraftLine struct {
	ProductID int    `json:"product_id" jsonschema_description:"ID of the product from the product list"`
	Quantity  int    `json:"quantity" jsonschema_description:"Positive whole quantity"`
	UnitPrice string `json:"unit_price" jsonschema_description:"Unit price override as a decimal string, or empty to use the catalog price"`
	TaxID     int    `json:"tax_id" jsonschema_description:"ID of an explicit tax from the tax list, or 0 for the product default"`
}

// Catalog is the company data the assistant may choose from.
type Catalog struct {
	Company  core.Company
	Clients  []core.Client
	Products []core.Product
	Taxes    []core.Tax
}

// Normalize cleans up common formatting issues in model output.
func (d *QuotationDraft) Normalize() {
	d.Notes = strings.TrimSpace(d.Notes)
	for i := range d.Lines {
		l := &d.Lines[i]
		l.UnitPrice = strings.TrimSpace(l.UnitPrice)
		if strings.EqualFold(l.UnitPrice, "null") || l.UnitPrice == "-" {
			l.UnitPrice = ""
		}
	}
	if d.Confidence < 0 {
		d.Confidence = 0
	}
	if d.Confidence > 1 {
		d.Confidence = 1
	}
}

// Validate checks every reference in the draft against the catalog it was built from.
func (d *QuotationDraft) Validate(c Catalog) error {
	if !containsID(len(c.Clients), func(i int) int { return c.Clients[i].ID }, d.ClientID) {
		return fmt.Errorf("draft references unknown client %d", d.ClientID)
	}
	if len(d.Lines) == 0 {
		return errors.New("draft must have at least one line")
	}
	for i, l := range d.Lines {
		if !containsID(len(c.Products), func(j int) int { return c.Products[j].ID }, l.ProductID) {
			return fmt.Errorf("line %d references unknown product %d", i+1, l.ProductID)
		}
		if l.Quantity <= 0 {
			return fmt.Errorf("line %d: quantity must be positive, got %d", i+1, l.Quantity)
		}
		if l.UnitPrice != "" {
			p, err := decimal.NewFromString(l.UnitPrice)
			if err != nil {
				return fmt.Errorf("line %d: invalid unit price %q: %v", i+1, l.UnitPrice, err)
			}
			if p.IsNegative() {
				return fmt.Errorf("line %d: unit price must not be negative", i+1)
			}
		}
		if l.TaxID != 0 && !containsID(len(c.Taxes), func(j int) int { return c.Taxes[j].ID }, l.TaxID) {
			return fmt.Errorf("line %d references unknown tax %d", i+1, l.TaxID)
		}
	}
	return nil
}

// Input converts a validated draft into the input of CreateQuotation, as a draft quotation.
func (d *QuotationDraft) Input() core.CreateQuotationInput {
	in := core.CreateQuotationInput{ClientID: d.ClientID, Notes: d.Notes, Draft: true}
	for _, l := range d.Lines {
		line := core.QuotationLineInput{ProductID: l.ProductID, Quantity: l.Quantity}
		if l.UnitPrice != "" {
			p := decimal.RequireFromString(l.UnitPrice)
			line.UnitPrice = &p
		}
		if l.TaxID != 0 {
			id := l.TaxID
			line.TaxID = &id
		}
		in.Lines = append(in.Lines, line)
	}
	return in
}

func containsID(n int, id func(int) int, want int) bool {
	for i := 0; i < n; i++ {
		if id(i) == want {
			return true
		}
	}
	return false
}

// describe renders the catalog as prompt context. Only active taxes are offered.
func (c Catalog) describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Company: %s (currency %s)\n\nClients:\n", c.Company.Name, c.Company.Currency)
	for _, cl := range c.Clients {
		fmt.Fprintf(&b, "- id=%d name=%q email=%q\n", cl.ID, cl.Name, cl.Email)
	}
	b.WriteString("\nProducts:\n")
	for _, p := range c.Products {
		tax := "none"
		if p.DefaultTaxPercentage != nil {
			tax = p.DefaultTaxPercentage.String() + "%"
		}
		fmt.Fprintf(&b, "- id=%d code=%s name=%q price=%s default_tax=%s\n", p.ID, p.Code, p.Name, p.BasePrice, tax)
	}
	b.WriteString("\nTaxes:\n")
	for _, t := range c.Taxes {
		if t.IsActive {
			fmt.Fprintf(&b, "- id=%d name=%q percentage=%s\n", t.ID, t.Name, t.Percentage)
		}
	}
	return b.String()
}
