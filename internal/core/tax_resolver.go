package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

// TaxLookup finds an active, non-deleted tax owned by companyID.
// Implementations return a NotFoundError when there is none.
type TaxLookup interface {
	LookupTax(ctx context.Context, companyID, taxID int) (*Tax, error)
}

// ResolveTaxPercentage determines the tax rate of one line. An explicit tax wins
// and must exist within the company; otherwise the product's default rate
// applies, or zero when the product has none.
func ResolveTaxPercentage(ctx context.Context, lookup TaxLookup, companyID int, product Product, explicitTaxID *int) (decimal.Decimal, error) {
	if explicitTaxID != nil {
		tax, err := lookup.LookupTax(ctx, companyID, *explicitTaxID)
		if err != nil {
			return decimal.Zero, err
		}
		return tax.Percentage, nil
	}
	if product.DefaultTaxPercentage != nil {
		return *product.DefaultTaxPercentage, nil
	}
	return decimal.Zero, nil
}

// queryTaxLookup resolves taxes through any pgx querier, so the lookup can run
// inside the caller's transaction.
type queryTaxLookup struct {
	q pgxQuerier
}

func (l queryTaxLookup) LookupTax(ctx context.Context, companyID, taxID int) (*Tax, error) {
	var t Tax
	err := l.q.QueryRow(ctx, `
		SELECT id, company_id, name, percentage, is_active, created_at, updated_at
		FROM taxes
		WHERE id = $1 AND company_id = $2 AND is_active = true AND deleted_at IS NULL
	`, taxID, companyID).Scan(&t.ID, &t.CompanyID, &t.Name, &t.Percentage, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "tax", ID: taxID}
		}
		return nil, fmt.Errorf("failed to resolve tax %d: %w", taxID, err)
	}
	return &t, nil
}
