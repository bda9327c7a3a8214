package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Company is a tenant. Every other record is scoped to exactly one company.
type Company struct {
	ID                    int       `json:"id"`
	CompanyCode           string    `json:"company_code"`
	Name                  string    `json:"name"`
	Email                 string    `json:"email"`
	Address               string    `json:"address"`
	Currency              string    `json:"currency"`
	QuotationValidityDays int       `json:"quotation_validity_days"`
	CreatedAt             time.Time `json:"created_at"`
}

// Client is a customer that quotations are addressed to.
type Client struct {
	ID        int       `json:"id"`
	CompanyID int       `json:"company_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product is a catalog item. Quotation lines reference products but snapshot
// the price, so later price changes do not touch existing quotations.
type Product struct {
	ID                   int              `json:"id"`
	CompanyID            int              `json:"company_id"`
	Code                 string           `json:"code"`
	Name                 string           `json:"name"`
	Description          string           `json:"description"`
	BasePrice            decimal.Decimal  `json:"base_price"`
	DefaultTaxPercentage *decimal.Decimal `json:"default_tax_percentage,omitempty"`
	IsActive             bool             `json:"is_active"`
	CreatedAt            time.Time        `json:"created_at"`
	UpdatedAt            time.Time        `json:"updated_at"`
}

// Tax is a named tax rate owned by a company.
type Tax struct {
	ID         int             `json:"id"`
	CompanyID  int             `json:"company_id"`
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	IsActive   bool            `json:"is_active"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// ClientInput creates or fully updates a client.
type ClientInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// ProductInput creates or fully updates a product.
// A nil DefaultTaxPercentage means lines fall back to a zero tax rate.
type ProductInput struct {
	Code                 string
	Name                 string
	Description          string
	BasePrice            decimal.Decimal
	DefaultTaxPercentage *decimal.Decimal
	IsActive             bool
}

// TaxInput creates or fully updates a tax.
type TaxInput struct {
	Name       string
	Percentage decimal.Decimal
	IsActive   bool
}

var hundred = decimal.NewFromInt(100)

// MaxAmount is the largest value a money column (NUMERIC(14,2)) holds.
var MaxAmount = decimal.RequireFromString("999999999999.99")

// Money and percentages are stored with two decimal places.
const storedScale = 2

func hasStoredScale(v decimal.Decimal) bool {
	return v.Equal(v.Truncate(storedScale))
}

// checkAmount rejects money the database would round or overflow.
func checkAmount(field string, v decimal.Decimal) error {
	if v.IsNegative() {
		return validationf(field, "must not be negative, got %s", v)
	}
	if !hasStoredScale(v) {
		return validationf(field, "must have at most 2 decimal places, got %s", v)
	}
	if v.GreaterThan(MaxAmount) {
		return validationf(field, "must not exceed %s, got %s", MaxAmount, v)
	}
	return nil
}

func checkPercentage(field string, p decimal.Decimal) error {
	if p.IsNegative() || p.GreaterThan(hundred) {
		return validationf(field, "must be between 0 and 100, got %s", p)
	}
	if !hasStoredScale(p) {
		return validationf(field, "must have at most 2 decimal places, got %s", p)
	}
	return nil
}

// Validate checks the client input.
func (in ClientInput) Validate() error {
	if in.Name == "" {
		return validationf("name", "is required")
	}
	return nil
}

// Validate checks the product input.
func (in ProductInput) Validate() error {
	if in.Code == "" {
		return validationf("code", "is required")
	}
	if in.Name == "" {
		return validationf("name", "is required")
	}
	if err := checkAmount("base_price", in.BasePrice); err != nil {
		return err
	}
	if in.DefaultTaxPercentage != nil {
		return checkPercentage("default_tax_percentage", *in.DefaultTaxPercentage)
	}
	return nil
}

// Validate checks the tax input.
func (in TaxInput) Validate() error {
	if in.Name == "" {
		return validationf("name", "is required")
	}
	return checkPercentage("percentage", in.Percentage)
}
