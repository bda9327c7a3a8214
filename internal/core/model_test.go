package core_test

import (
	"errors"
	"testing"

	"quotedesk/internal/core"

	"github.com/shopspring/decimal"
)

func pct(s string) *decimal.Decimal {
	v := d(s)
	return &v
}

func TestProductInputValidate(t *testing.T) {
	tests := []struct {
		name      string
		input     core.ProductInput
		wantField string
	}{
		{name: "valid", input: core.ProductInput{Code: "C1", Name: "Consulting", BasePrice: d("950.50"), DefaultTaxPercentage: pct("19")}},
		{name: "no default tax", input: core.ProductInput{Code: "C1", Name: "Consulting", BasePrice: d("0")}},
		{name: "largest price", input: core.ProductInput{Code: "C1", Name: "Consulting", BasePrice: d("999999999999.99")}},
		{name: "missing code", input: core.ProductInput{Name: "Consulting"}, wantField: "code"},
		{name: "missing name", input: core.ProductInput{Code: "C1"}, wantField: "name"},
		{name: "negative price", input: core.ProductInput{Code: "C1", Name: "Consulting", BasePrice: d("-1")}, wantField: "base_price"},
		{name: "price below a cent", input: core.ProductInput{Code: "C1", Name: "Consulting", BasePrice: d("10.004")}, wantField: "base_price"},
		{name: "price above money range", input: core.ProductInput{Code: "C1", Name: "Consulting", BasePrice: d("1000000000000")}, wantField: "base_price"},
		{name: "default tax above 100", input: core.ProductInput{Code: "C1", Name: "Consulting", DefaultTaxPercentage: pct("100.01")}, wantField: "default_tax_percentage"},
		{name: "default tax below a hundredth", input: core.ProductInput{Code: "C1", Name: "Consulting", DefaultTaxPercentage: pct("19.555")}, wantField: "default_tax_percentage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertValidation(t, tt.input.Validate(), tt.wantField)
		})
	}
}

func TestTaxInputValidate(t *testing.T) {
	tests := []struct {
		name      string
		input     core.TaxInput
		wantField string
	}{
		{name: "valid", input: core.TaxInput{Name: "VAT", Percentage: d("19")}},
		{name: "two decimals", input: core.TaxInput{Name: "VAT", Percentage: d("7.75")}},
		{name: "zero", input: core.TaxInput{Name: "Exempt", Percentage: d("0")}},
		{name: "missing name", input: core.TaxInput{Percentage: d("19")}, wantField: "name"},
		{name: "negative", input: core.TaxInput{Name: "VAT", Percentage: d("-1")}, wantField: "percentage"},
		{name: "above 100", input: core.TaxInput{Name: "VAT", Percentage: d("101")}, wantField: "percentage"},
		{name: "below a hundredth", input: core.TaxInput{Name: "VAT", Percentage: d("19.555")}, wantField: "percentage"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertValidation(t, tt.input.Validate(), tt.wantField)
		})
	}
}

func assertValidation(t *testing.T, err error, wantField string) {
	t.Helper()
	if wantField == "" {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		return
	}
	var verr *core.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError on %s, got %v", wantField, err)
	}
	if verr.Field != wantField {
		t.Errorf("expected field %s, got %s", wantField, verr.Field)
	}
}
