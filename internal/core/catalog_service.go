package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CatalogService manages the company-scoped master data quotations draw on.
// Deletes are soft; deleted records disappear from reads but stay referenced
// by existing quotation lines.
type CatalogService interface {
	GetCompany(ctx context.Context, companyID int) (*Company, error)

	CreateClient(ctx context.Context, companyID int, input ClientInput) (*Client, error)
	GetClient(ctx context.Context, companyID, clientID int) (*Client, error)
	ListClients(ctx context.Context, companyID int) ([]Client, error)
	UpdateClient(ctx context.Context, companyID, clientID int, input ClientInput) (*Client, error)
	DeleteClient(ctx context.Context, companyID, clientID int) error

	CreateProduct(ctx context.Context, companyID int, input ProductInput) (*Product, error)
	GetProduct(ctx context.Context, companyID, productID int) (*Product, error)
	// ListProducts returns active products only unless includeInactive is set.
	ListProducts(ctx context.Context, companyID int, includeInactive bool) ([]Product, error)
	UpdateProduct(ctx context.Context, companyID, productID int, input ProductInput) (*Product, error)
	DeleteProduct(ctx context.Context, companyID, productID int) error

	CreateTax(ctx context.Context, companyID int, input TaxInput) (*Tax, error)
	GetTax(ctx context.Context, companyID, taxID int) (*Tax, error)
	ListTaxes(ctx context.Context, companyID int) ([]Tax, error)
	UpdateTax(ctx context.Context, companyID, taxID int, input TaxInput) (*Tax, error)
	DeleteTax(ctx context.Context, companyID, taxID int) error

	TaxLookup
}

type catalogService struct {
	pool *pgxpool.Pool
}

// NewCatalogService constructs a CatalogService backed by PostgreSQL.
func NewCatalogService(pool *pgxpool.Pool) CatalogService {
	return &catalogService{pool: pool}
}

func (s *catalogService) GetCompany(ctx context.Context, companyID int) (*Company, error) {
	var c Company
	err := s.pool.QueryRow(ctx, `
		SELECT id, company_code, name, email, address, currency, quotation_validity_days, created_at
		FROM companies
		WHERE id = $1
	`, companyID).Scan(&c.ID, &c.CompanyCode, &c.Name, &c.Email, &c.Address, &c.Currency, &c.QuotationValidityDays, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "company", ID: companyID}
		}
		return nil, fmt.Errorf("failed to fetch company %d: %w", companyID, err)
	}
	return &c, nil
}

// softDelete marks a company-owned row deleted. table is always a constant from this file.
func (s *catalogService) softDelete(ctx context.Context, table, entity string, companyID, id int) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE "+table+" SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL",
		id, companyID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete %s %d: %w", entity, id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

// ── Clients ──────────────────────────────────────────────────────────────────

const clientColumns = "id, company_id, name, email, phone, address, created_at, updated_at"

func scanClient(row rowScanner, c *Client) error {
	return row.Scan(&c.ID, &c.CompanyID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.CreatedAt, &c.UpdatedAt)
}

func (s *catalogService) CreateClient(ctx context.Context, companyID int, input ClientInput) (*Client, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var c Client
	row := s.pool.QueryRow(ctx, `
		INSERT INTO clients (company_id, name, email, phone, address)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING `+clientColumns,
		companyID, input.Name, input.Email, input.Phone, input.Address)
	if err := scanClient(row, &c); err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return &c, nil
}

func (s *catalogService) GetClient(ctx context.Context, companyID, clientID int) (*Client, error) {
	var c Client
	row := s.pool.QueryRow(ctx,
		"SELECT "+clientColumns+" FROM clients WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL",
		clientID, companyID)
	if err := scanClient(row, &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "client", ID: clientID}
		}
		return nil, fmt.Errorf("failed to fetch client %d: %w", clientID, err)
	}
	return &c, nil
}

func (s *catalogService) ListClients(ctx context.Context, companyID int) ([]Client, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+clientColumns+" FROM clients WHERE company_id = $1 AND deleted_at IS NULL ORDER BY name",
		companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	var clients []Client
	for rows.Next() {
		var c Client
		if err := scanClient(rows, &c); err != nil {
			return nil, fmt.Errorf("failed to scan client: %w", err)
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

func (s *catalogService) UpdateClient(ctx context.Context, companyID, clientID int, input ClientInput) (*Client, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var c Client
	row := s.pool.QueryRow(ctx, `
		UPDATE clients
		SET name = $1, email = $2, phone = $3, address = $4, updated_at = NOW()
		WHERE id = $5 AND company_id = $6 AND deleted_at IS NULL
		RETURNING `+clientColumns,
		input.Name, input.Email, input.Phone, input.Address, clientID, companyID)
	if err := scanClient(row, &c); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "client", ID: clientID}
		}
		return nil, fmt.Errorf("failed to update client %d: %w", clientID, err)
	}
	return &c, nil
}

func (s *catalogService) DeleteClient(ctx context.Context, companyID, clientID int) error {
	return s.softDelete(ctx, "clients", "client", companyID, clientID)
}

// ── Products ─────────────────────────────────────────────────────────────────

const productColumns = "id, company_id, code, name, description, base_price, default_tax_percentage, is_active, created_at, updated_at"

func scanProduct(row rowScanner, p *Product) error {
	return row.Scan(&p.ID, &p.CompanyID, &p.Code, &p.Name, &p.Description,
		&p.BasePrice, &p.DefaultTaxPercentage, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
}

func (s *catalogService) CreateProduct(ctx context.Context, companyID int, input ProductInput) (*Product, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var p Product
	row := s.pool.QueryRow(ctx, `
		INSERT INTO products (company_id, code, name, description, base_price, default_tax_percentage, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING `+productColumns,
		companyID, input.Code, input.Name, input.Description, input.BasePrice, input.DefaultTaxPercentage, input.IsActive)
	if err := scanProduct(row, &p); err != nil {
		if isUniqueViolation(err) {
			return nil, validationf("code", "product code %q is already in use", input.Code)
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return &p, nil
}

func (s *catalogService) GetProduct(ctx context.Context, companyID, productID int) (*Product, error) {
	var p Product
	row := s.pool.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL",
		productID, companyID)
	if err := scanProduct(row, &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "product", ID: productID}
		}
		return nil, fmt.Errorf("failed to fetch product %d: %w", productID, err)
	}
	return &p, nil
}

func (s *catalogService) ListProducts(ctx context.Context, companyID int, includeInactive bool) ([]Product, error) {
	query := "SELECT " + productColumns + " FROM products WHERE company_id = $1 AND deleted_at IS NULL"
	if !includeInactive {
		query += " AND is_active = true"
	}
	query += " ORDER BY code"

	rows, err := s.pool.Query(ctx, query, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query products: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := scanProduct(rows, &p); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

func (s *catalogService) UpdateProduct(ctx context.Context, companyID, productID int, input ProductInput) (*Product, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var p Product
	row := s.pool.QueryRow(ctx, `
		UPDATE products
		SET code = $1, name = $2, description = $3, base_price = $4, default_tax_percentage = $5,
		    is_active = $6, updated_at = NOW()
		WHERE id = $7 AND company_id = $8 AND deleted_at IS NULL
		RETURNING `+productColumns,
		input.Code, input.Name, input.Description, input.BasePrice, input.DefaultTaxPercentage, input.IsActive,
		productID, companyID)
	if err := scanProduct(row, &p); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "product", ID: productID}
		}
		if isUniqueViolation(err) {
			return nil, validationf("code", "product code %q is already in use", input.Code)
		}
		return nil, fmt.Errorf("failed to update product %d: %w", productID, err)
	}
	return &p, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, companyID, productID int) error {
	return s.softDelete(ctx, "products", "product", companyID, productID)
}

// ── Taxes ────────────────────────────────────────────────────────────────────

const taxColumns = "id, company_id, name, percentage, is_active, created_at, updated_at"

func scanTax(row rowScanner, t *Tax) error {
	return row.Scan(&t.ID, &t.CompanyID, &t.Name, &t.Percentage, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
}

func (s *catalogService) CreateTax(ctx context.Context, companyID int, input TaxInput) (*Tax, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var t Tax
	row := s.pool.QueryRow(ctx, `
		INSERT INTO taxes (company_id, name, percentage, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+taxColumns,
		companyID, input.Name, input.Percentage, input.IsActive)
	if err := scanTax(row, &t); err != nil {
		return nil, fmt.Errorf("failed to create tax: %w", err)
	}
	return &t, nil
}

func (s *catalogService) GetTax(ctx context.Context, companyID, taxID int) (*Tax, error) {
	var t Tax
	row := s.pool.QueryRow(ctx,
		"SELECT "+taxColumns+" FROM taxes WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL",
		taxID, companyID)
	if err := scanTax(row, &t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "tax", ID: taxID}
		}
		return nil, fmt.Errorf("failed to fetch tax %d: %w", taxID, err)
	}
	return &t, nil
}

// LookupTax implements TaxLookup: only active taxes resolve.
func (s *catalogService) LookupTax(ctx context.Context, companyID, taxID int) (*Tax, error) {
	return queryTaxLookup{q: s.pool}.LookupTax(ctx, companyID, taxID)
}

func (s *catalogService) ListTaxes(ctx context.Context, companyID int) ([]Tax, error) {
	rows, err := s.pool.Query(ctx,
		"SELECT "+taxColumns+" FROM taxes WHERE company_id = $1 AND deleted_at IS NULL ORDER BY name",
		companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query taxes: %w", err)
	}
	defer rows.Close()

	var taxes []Tax
	for rows.Next() {
		var t Tax
		if err := scanTax(rows, &t); err != nil {
			return nil, fmt.Errorf("failed to scan tax: %w", err)
		}
		taxes = append(taxes, t)
	}
	return taxes, rows.Err()
}

func (s *catalogService) UpdateTax(ctx context.Context, companyID, taxID int, input TaxInput) (*Tax, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	var t Tax
	row := s.pool.QueryRow(ctx, `
		UPDATE taxes
		SET name = $1, percentage = $2, is_active = $3, updated_at = NOW()
		WHERE id = $4 AND company_id = $5 AND deleted_at IS NULL
		RETURNING `+taxColumns,
		input.Name, input.Percentage, input.IsActive, taxID, companyID)
	if err := scanTax(row, &t); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "tax", ID: taxID}
		}
		return nil, fmt.Errorf("failed to update tax %d: %w", taxID, err)
	}
	return &t, nil
}

func (s *catalogService) DeleteTax(ctx context.Context, companyID, taxID int) error {
	return s.softDelete(ctx, "taxes", "tax", companyID, taxID)
}
