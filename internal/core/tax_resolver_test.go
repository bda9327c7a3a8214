package core_test

import (
	"context"
	"testing"

	"quotedesk/internal/core"

	"github.com/shopspring/decimal"
)

type fakeTaxLookup struct {
	taxes map[int]core.Tax
	calls int
}

func (f *fakeTaxLookup) LookupTax(_ context.Context, companyID, taxID int) (*core.Tax, error) {
	f.calls++
	t, ok := f.taxes[taxID]
	if !ok || t.CompanyID != companyID || !t.IsActive {
		return nil, &core.NotFoundError{Entity: "tax", ID: taxID}
	}
	return &t, nil
}

func TestResolveTaxPercentage(t *testing.T) {
	lookup := &fakeTaxLookup{taxes: map[int]core.Tax{
		1: {ID: 1, CompanyID: 10, Name: "VAT", Percentage: decimal.NewFromInt(19), IsActive: true},
		2: {ID: 2, CompanyID: 10, Name: "Old VAT", Percentage: decimal.NewFromInt(16), IsActive: false},
		3: {ID: 3, CompanyID: 20, Name: "Foreign VAT", Percentage: decimal.NewFromInt(21), IsActive: true},
	}}
	seven := decimal.NewFromInt(7)
	withDefault := core.Product{ID: 1, CompanyID: 10, DefaultTaxPercentage: &seven}
	withoutDefault := core.Product{ID: 2, CompanyID: 10}
	ptr := func(i int) *int { return &i }

	tests := []struct {
		name           string
		product        core.Product
		taxID          *int
		want           string
		expectNotFound bool
	}{
		{name: "explicit tax wins over default", product: withDefault, taxID: ptr(1), want: "19"},
		{name: "product default", product: withDefault, want: "7"},
		{name: "no default means zero", product: withoutDefault, want: "0"},
		{name: "inactive explicit tax", product: withDefault, taxID: ptr(2), expectNotFound: true},
		{name: "other company's tax", product: withDefault, taxID: ptr(3), expectNotFound: true},
		{name: "missing tax", product: withoutDefault, taxID: ptr(99), expectNotFound: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := core.ResolveTaxPercentage(context.Background(), lookup, 10, tt.product, tt.taxID)
			if tt.expectNotFound {
				if !core.IsNotFound(err) {
					t.Fatalf("expected NotFoundError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolveTaxPercentage_NoLookupWithoutExplicitTax(t *testing.T) {
	lookup := &fakeTaxLookup{}
	if _, err := core.ResolveTaxPercentage(context.Background(), lookup, 10, core.Product{}, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if lookup.calls != 0 {
		t.Errorf("expected no lookup, got %d", lookup.calls)
	}
}
