package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// nextQuotationNumberTx allocates the next per-company quotation number inside tx.
//
// The upsert takes a row lock on the company's counter that is held until tx ends,
// so concurrent creations, from this process or any other instance, queue behind
// each other and never read the same value. A rolled-back creation also rolls back
// its increment, which keeps the numbers gapless.
func nextQuotationNumberTx(ctx context.Context, tx pgx.Tx, companyID int) (int64, error) {
	var number int64
	err := tx.QueryRow(ctx, `
		INSERT INTO quotation_sequences (company_id, last_number)
		VALUES ($1, 1)
		ON CONFLICT (company_id)
		DO UPDATE SET last_number = quotation_sequences.last_number + 1
		RETURNING last_number
	`, companyID).Scan(&number)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate quotation number: %w", err)
	}
	return number, nil
}
