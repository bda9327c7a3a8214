package ai_test

import (
	"testing"

	"quotedesk/internal/ai"
	"quotedesk/internal/core"

	"github.com/shopspring/decimal"
)

func testCatalog() ai.Catalog {
	return ai.Catalog{
		Company:  core.Company{Name: "Acme Corp", Currency: "EUR"},
		Clients:  []core.Client{{ID: 1, Name: "Initech"}},
		Products: []core.Product{{ID: 10, Code: "CONS", Name: "Consulting day", BasePrice: decimal.NewFromInt(10000)}},
		Taxes:    []core.Tax{{ID: 3, Name: "VAT 19", Percentage: decimal.NewFromInt(19), IsActive: true}},
	}
}

func TestQuotationDraft_Validate(t *testing.T) {
	tests := []struct {
		name    string
		draft   ai.QuotationDraft
		wantErr bool
	}{
		{"valid", ai.QuotationDraft{ClientID: 1, Lines: []ai.DraftLine{{ProductID: 10, Quantity: 2}}}, false},
		{"valid with overrides", ai.QuotationDraft{ClientID: 1, Lines: []ai.DraftLine{{ProductID: 10, Quantity: 1, UnitPrice: "9500", TaxID: 3}}}, false},
		{"unknown client", ai.QuotationDraft{ClientID: 2, Lines: []ai.DraftLine{{ProductID: 10, Quantity: 1}}}, true},
		{"no lines", ai.QuotationDraft{ClientID: 1}, true},
		{"unknown product", ai.QuotationDraft{ClientID: 1, Lines: []ai.DraftLine{{ProductID: 11, Quantity: 1}}}, true},
		{"zero quantity", ai.QuotationDraft{ClientID: 1, Lines: []ai.DraftLine{{ProductID: 10}}}, true},
		{"bad price", ai.QuotationDraft{ClientID: 1, Lines: []ai.DraftLine{{ProductID: 10, Quantity: 1, UnitPrice: "cheap"}}}, true},
		{"negative price", ai.QuotationDraft{ClientID: 1, Lines: []ai.DraftLine{{ProductID: 10, Quantity: 1, UnitPrice: "-1"}}}, true},
		{"unknown tax", ai.QuotationDraft{ClientID: 1, Lines: []ai.DraftLine{{ProductID: 10, Quantity: 1, TaxID: 4}}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.draft.Validate(testCatalog())
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestQuotationDraft_NormalizeAndInput(t *testing.T) {
	d := ai.QuotationDraft{
		ClientID:   1,
		Notes:      "  rush order  ",
		Confidence: 1.4,
		Lines: []ai.DraftLine{
			{ProductID: 10, Quantity: 2, UnitPrice: " null "},
			{ProductID: 10, Quantity: 1, UnitPrice: "9500", TaxID: 3},
		},
	}
	d.Normalize()
	if d.Notes != "rush order" || d.Confidence != 1 || d.Lines[0].UnitPrice != "" {
		t.Fatalf("unexpected normalized draft %+v", d)
	}

	in := d.Input()
	if !in.Draft || in.ClientID != 1 || len(in.Lines) != 2 {
		t.Fatalf("unexpected input %+v", in)
	}
	if in.Lines[0].UnitPrice != nil || in.Lines[0].TaxID != nil {
		t.Error("line 1 must keep catalog price and default tax")
	}
	if in.Lines[1].UnitPrice == nil || !in.Lines[1].UnitPrice.Equal(decimal.NewFromInt(9500)) {
		t.Errorf("line 2: expected price override 9500, got %v", in.Lines[1].UnitPrice)
	}
	if in.Lines[1].TaxID == nil || *in.Lines[1].TaxID != 3 {
		t.Errorf("line 2: expected tax 3, got %v", in.Lines[1].TaxID)
	}
}
