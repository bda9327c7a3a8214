package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DemoCompanyCode is the company created by Seed.
const DemoCompanyCode = "ACME"

// Seed inserts a demo company with taxes, a client and products. Running it
// again leaves existing rows untouched.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var companyID int
	err = tx.QueryRow(ctx, `
		INSERT INTO companies (company_code, name, email, address, currency, quotation_validity_days)
		VALUES ($1, 'Acme Corp', 'sales@acme.test', '1 Industrial Way, Springfield', 'EUR', 30)
		ON CONFLICT (company_code) DO UPDATE SET company_code = EXCLUDED.company_code
		RETURNING id`, DemoCompanyCode,
	).Scan(&companyID)
	if err != nil {
		return fmt.Errorf("failed to seed company: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO taxes (company_id, name, percentage)
		SELECT $1, t.name, t.percentage
		FROM (VALUES
		    ('VAT standard', 19.00),
		    ('VAT reduced',   7.00),
		    ('Exempt',        0.00)
		) AS t(name, percentage)
		WHERE NOT EXISTS (
		    SELECT 1 FROM taxes x WHERE x.company_id = $1 AND x.name = t.name AND x.deleted_at IS NULL
		)`, companyID)
	if err != nil {
		return fmt.Errorf("failed to seed taxes: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO clients (company_id, name, email, address)
		SELECT $1, 'Initech', 'purchasing@initech.test', '4120 Freidrich Lane, Austin'
		WHERE NOT EXISTS (
		    SELECT 1 FROM clients WHERE company_id = $1 AND name = 'Initech' AND deleted_at IS NULL
		)`, companyID)
	if err != nil {
		return fmt.Errorf("failed to seed client: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO products (company_id, code, name, base_price, default_tax_percentage)
		VALUES
		    ($1, 'CONSULT', 'Consulting day',     950.00, 19.00),
		    ($1, 'LICENCE', 'Annual licence',    4800.00, 19.00),
		    ($1, 'TRAIN',   'Training workshop', 1200.00,  7.00),
		    ($1, 'SUPPORT', 'Support hour',       120.00, NULL)
		ON CONFLICT (company_id, code) WHERE deleted_at IS NULL DO NOTHING`, companyID)
	if err != nil {
		return fmt.Errorf("failed to seed products: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit seed: %w", err)
	}
	return nil
}
