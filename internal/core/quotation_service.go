package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// QuotationService is the only entry point that mutates quotation state.
// Every call is scoped to the actor's company.
type QuotationService interface {
	CreateQuotation(ctx context.Context, actor Actor, input CreateQuotationInput) (*Quotation, error)
	// GetQuotation returns the quotation with its lines and effective status.
	GetQuotation(ctx context.Context, actor Actor, id int) (*Quotation, error)
	// UpdateQuotation replaces lines and/or patches header fields. Status changes
	// go through the status machine.
	UpdateQuotation(ctx context.Context, actor Actor, id int, patch QuotationPatch) (*Quotation, error)
	// ListQuotations returns headers only, newest number first.
	ListQuotations(ctx context.Context, actor Actor, filter QuotationFilter) ([]Quotation, error)
	DeleteQuotation(ctx context.Context, actor Actor, id int) error
	// SetPDFObjectKey records where the latest rendered PDF was archived.
	SetPDFObjectKey(ctx context.Context, actor Actor, id int, key string) error
}

type quotationService struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

// NewQuotationService constructs a QuotationService backed by PostgreSQL.
func NewQuotationService(pool *pgxpool.Pool) QuotationService {
	return NewQuotationServiceWithClock(pool, time.Now)
}

// NewQuotationServiceWithClock is NewQuotationService with an injectable clock.
func NewQuotationServiceWithClock(pool *pgxpool.Pool, now func() time.Time) QuotationService {
	return &quotationService{pool: pool, now: now}
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// pgxRowQuerier is satisfied by both *pgxpool.Pool and pgx.Tx (for Query).
type pgxRowQuerier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// ── Create ───────────────────────────────────────────────────────────────────

func (s *quotationService) CreateQuotation(ctx context.Context, actor Actor, input CreateQuotationInput) (*Quotation, error) {
	if input.ClientID <= 0 {
		return nil, validationf("client_id", "is required")
	}
	if len(input.Lines) == 0 {
		return nil, validationf("lines", "a quotation must have at least one line")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := checkClientTx(ctx, tx, actor.CompanyID, input.ClientID); err != nil {
		return nil, err
	}

	lines, totals, err := priceLines(ctx, tx, actor.CompanyID, input.Lines)
	if err != nil {
		return nil, err
	}

	now := s.now()
	expiresAt := input.ExpiresAt
	if expiresAt == nil {
		var validityDays int
		err = tx.QueryRow(ctx, "SELECT quotation_validity_days FROM companies WHERE id = $1", actor.CompanyID).Scan(&validityDays)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &NotFoundError{Entity: "company", ID: actor.CompanyID}
			}
			return nil, fmt.Errorf("failed to read company validity period: %w", err)
		}
		if validityDays > 0 {
			t := now.AddDate(0, 0, validityDays)
			expiresAt = &t
		}
	}

	status := StatusSent
	sentAt := &now
	if input.Draft {
		status = StatusDraft
		sentAt = nil
	}

	number, err := nextQuotationNumberTx(ctx, tx, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	var quotationID int
	err = tx.QueryRow(ctx, `
		INSERT INTO quotations (company_id, number, client_id, created_by, status, total, total_tax, notes,
		                        created_at, updated_at, sent_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9, $10, $11)
		RETURNING id
	`, actor.CompanyID, number, input.ClientID, actor.UserID, string(status), totals.Total, totals.TotalTax,
		input.Notes, now, sentAt, expiresAt).Scan(&quotationID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert quotation: %w", err)
	}

	if err := insertLinesTx(ctx, tx, quotationID, lines); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit quotation creation: %w", err)
	}

	return s.GetQuotation(ctx, actor, quotationID)
}

// checkClientTx verifies the client exists within the company.
func checkClientTx(ctx context.Context, q pgxQuerier, companyID, clientID int) error {
	var id int
	err := q.QueryRow(ctx,
		"SELECT id FROM clients WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL",
		clientID, companyID,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return validationf("client_id", "client %d does not belong to this company", clientID)
		}
		return fmt.Errorf("failed to verify client %d: %w", clientID, err)
	}
	return nil
}

// priceLines resolves product, price and tax for every input and computes the
// line amounts and quotation totals.
func priceLines(ctx context.Context, q pgxQuerier, companyID int, inputs []QuotationLineInput) ([]QuotationLine, Totals, error) {
	taxes := queryTaxLookup{q: q}
	lines := make([]QuotationLine, 0, len(inputs))
	amounts := make([]LineAmounts, 0, len(inputs))

	for i, input := range inputs {
		var prod Product
		err := q.QueryRow(ctx, `
			SELECT id, code, name, base_price, default_tax_percentage
			FROM products
			WHERE id = $1 AND company_id = $2 AND is_active = true AND deleted_at IS NULL
		`, input.ProductID, companyID).Scan(&prod.ID, &prod.Code, &prod.Name, &prod.BasePrice, &prod.DefaultTaxPercentage)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, Totals{}, validationf(fmt.Sprintf("lines[%d].product_id", i), "product %d not found", input.ProductID)
			}
			return nil, Totals{}, fmt.Errorf("line %d: failed to resolve product: %w", i+1, err)
		}

		price := prod.BasePrice
		if input.UnitPrice != nil {
			price = *input.UnitPrice
		}

		pct, err := ResolveTaxPercentage(ctx, taxes, companyID, prod, input.TaxID)
		if err != nil {
			return nil, Totals{}, fmt.Errorf("line %d: %w", i+1, err)
		}

		la, err := ComputeLine(price, input.Quantity, pct)
		if err != nil {
			return nil, Totals{}, fmt.Errorf("line %d: %w", i+1, err)
		}

		amounts = append(amounts, la)
		lines = append(lines, QuotationLine{
			LineNumber:    i + 1,
			ProductID:     prod.ID,
			ProductCode:   prod.Code,
			ProductName:   prod.Name,
			TaxID:         input.TaxID,
			Quantity:      input.Quantity,
			UnitPrice:     price,
			TaxPercentage: pct,
			Subtotal:      la.Subtotal,
			LineTax:       la.LineTax,
		})
	}

	totals, err := Aggregate(amounts)
	if err != nil {
		return nil, Totals{}, err
	}
	return lines, totals, nil
}

func insertLinesTx(ctx context.Context, tx pgx.Tx, quotationID int, lines []QuotationLine) error {
	for _, l := range lines {
		_, err := tx.Exec(ctx, `
			INSERT INTO quotation_lines (quotation_id, line_number, product_id, tax_id, quantity,
			                             unit_price, tax_percentage, subtotal, line_tax)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`, quotationID, l.LineNumber, l.ProductID, l.TaxID, l.Quantity, l.UnitPrice, l.TaxPercentage, l.Subtotal, l.LineTax)
		if err != nil {
			return fmt.Errorf("failed to insert quotation line %d: %w", l.LineNumber, err)
		}
	}
	return nil
}

// ── Update ───────────────────────────────────────────────────────────────────

func (s *quotationService) UpdateQuotation(ctx context.Context, actor Actor, id int, patch QuotationPatch) (*Quotation, error) {
	if patch.Lines != nil && len(patch.Lines) == 0 {
		return nil, validationf("lines", "a quotation must have at least one line")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock the header so concurrent updates apply one after the other.
	var cur Quotation
	var stored string
	err = tx.QueryRow(ctx, `
		SELECT client_id, status, notes, total, total_tax, sent_at, expires_at
		FROM quotations
		WHERE id = $1 AND company_id = $2 AND deleted_at IS NULL
		FOR UPDATE
	`, id, actor.CompanyID).Scan(&cur.ClientID, &stored, &cur.Notes, &cur.Total, &cur.TotalTax, &cur.SentAt, &cur.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "quotation", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch quotation %d: %w", id, err)
	}
	cur.Status = QuotationStatus(stored)

	now := s.now()
	acknowledgesExpiry := patch.Status != nil && *patch.Status == StatusExpired && !patch.changesContent()

	// An overdue quotation is persisted as expired before anything else happens.
	// The expiry is committed even when the requested edit is then refused.
	if EffectiveStatus(&cur, now) == StatusExpired && cur.Status != StatusExpired {
		if _, err := tx.Exec(ctx,
			"UPDATE quotations SET status = $1, updated_at = $2 WHERE id = $3",
			string(StatusExpired), now, id,
		); err != nil {
			return nil, fmt.Errorf("failed to mark quotation %d expired: %w", id, err)
		}
		if err := tx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("failed to commit quotation expiry: %w", err)
		}
		if acknowledgesExpiry {
			return s.GetQuotation(ctx, actor, id)
		}
		return nil, rejectTerminalEdit(StatusExpired, patch)
	}

	if cur.Status.IsTerminal() {
		if patch.Status != nil && *patch.Status == cur.Status && !patch.changesContent() {
			return s.GetQuotation(ctx, actor, id)
		}
		return nil, rejectTerminalEdit(cur.Status, patch)
	}

	if patch.Status != nil && *patch.Status != cur.Status {
		if err := SetStatus(&cur, *patch.Status, now); err != nil {
			return nil, err
		}
	}

	if patch.ClientID != nil && *patch.ClientID != cur.ClientID {
		if err := checkClientTx(ctx, tx, actor.CompanyID, *patch.ClientID); err != nil {
			return nil, err
		}
		cur.ClientID = *patch.ClientID
	}
	if patch.Notes != nil {
		cur.Notes = *patch.Notes
	}
	if patch.ExpiresAt != nil {
		cur.ExpiresAt = patch.ExpiresAt
	}

	if patch.Lines != nil {
		lines, totals, err := priceLines(ctx, tx, actor.CompanyID, patch.Lines)
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, "DELETE FROM quotation_lines WHERE quotation_id = $1", id); err != nil {
			return nil, fmt.Errorf("failed to clear quotation lines: %w", err)
		}
		if err := insertLinesTx(ctx, tx, id, lines); err != nil {
			return nil, err
		}
		cur.Total = totals.Total
		cur.TotalTax = totals.TotalTax
	}

	_, err = tx.Exec(ctx, `
		UPDATE quotations
		SET client_id = $1, status = $2, notes = $3, total = $4, total_tax = $5,
		    sent_at = $6, expires_at = $7, updated_at = $8
		WHERE id = $9
	`, cur.ClientID, string(cur.Status), cur.Notes, cur.Total, cur.TotalTax, cur.SentAt, cur.ExpiresAt, now, id)
	if err != nil {
		return nil, fmt.Errorf("failed to update quotation %d: %w", id, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit quotation update: %w", err)
	}

	return s.GetQuotation(ctx, actor, id)
}

func rejectTerminalEdit(status QuotationStatus, patch QuotationPatch) error {
	if patch.Status != nil && !patch.changesContent() {
		return &InvalidTransitionError{From: status, To: *patch.Status}
	}
	return &InvalidTransitionError{From: status, Reason: "it can no longer be edited"}
}

// ── Delete ───────────────────────────────────────────────────────────────────

func (s *quotationService) DeleteQuotation(ctx context.Context, actor Actor, id int) error {
	now := s.now()
	tag, err := s.pool.Exec(ctx, `
		UPDATE quotations
		SET deleted_at = $1, updated_at = $1
		WHERE id = $2 AND company_id = $3 AND deleted_at IS NULL
	`, now, id, actor.CompanyID)
	if err != nil {
		return fmt.Errorf("failed to delete quotation %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "quotation", ID: id}
	}
	return nil
}

func (s *quotationService) SetPDFObjectKey(ctx context.Context, actor Actor, id int, key string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE quotations SET pdf_object_key = $1
		WHERE id = $2 AND company_id = $3 AND deleted_at IS NULL
	`, key, id, actor.CompanyID)
	if err != nil {
		return fmt.Errorf("failed to record pdf for quotation %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return &NotFoundError{Entity: "quotation", ID: id}
	}
	return nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

const quotationColumns = `
	q.id, q.company_id, q.number, q.client_id, c.name, c.email, q.created_by,
	q.status, q.total, q.total_tax, q.notes, q.pdf_object_key,
	q.created_at, q.updated_at, q.sent_at, q.expires_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuotation(row rowScanner, q *Quotation) error {
	var status string
	err := row.Scan(
		&q.ID, &q.CompanyID, &q.Number, &q.ClientID, &q.ClientName, &q.ClientEmail, &q.CreatedBy,
		&status, &q.Total, &q.TotalTax, &q.Notes, &q.PDFObjectKey,
		&q.CreatedAt, &q.UpdatedAt, &q.SentAt, &q.ExpiresAt,
	)
	q.Status = QuotationStatus(status)
	q.StoredStatus = q.Status
	return err
}

func (s *quotationService) GetQuotation(ctx context.Context, actor Actor, id int) (*Quotation, error) {
	var q Quotation
	row := s.pool.QueryRow(ctx, `
		SELECT `+quotationColumns+`
		FROM quotations q
		JOIN clients c ON c.id = q.client_id
		WHERE q.id = $1 AND q.company_id = $2 AND q.deleted_at IS NULL
	`, id, actor.CompanyID)
	if err := scanQuotation(row, &q); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, &NotFoundError{Entity: "quotation", ID: id}
		}
		return nil, fmt.Errorf("failed to fetch quotation %d: %w", id, err)
	}

	lines, err := fetchQuotationLinesQ(ctx, s.pool, id)
	if err != nil {
		return nil, err
	}
	q.Lines = lines
	q.Status = EffectiveStatus(&q, s.now())
	return &q, nil
}

func (s *quotationService) ListQuotations(ctx context.Context, actor Actor, filter QuotationFilter) ([]Quotation, error) {
	query := `
		SELECT ` + quotationColumns + `
		FROM quotations q
		JOIN clients c ON c.id = q.client_id
		WHERE q.company_id = $1 AND q.deleted_at IS NULL`
	args := []any{actor.CompanyID}
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	now := s.now()
	if filter.Status != nil {
		switch st := *filter.Status; {
		case st == StatusExpired:
			query += " AND (q.status = 'expired' OR (q.status IN ('draft', 'sent') AND q.expires_at < " + arg(now) + "))"
		case !st.IsTerminal():
			query += " AND q.status = " + arg(string(st)) + " AND (q.expires_at IS NULL OR q.expires_at >= " + arg(now) + ")"
		default:
			query += " AND q.status = " + arg(string(st))
		}
	}
	if filter.ClientID != nil {
		query += " AND q.client_id = " + arg(*filter.ClientID)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += " ORDER BY q.number DESC LIMIT " + arg(limit) + " OFFSET " + arg(offset)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotations: %w", err)
	}
	defer rows.Close()

	var quotations []Quotation
	for rows.Next() {
		var q Quotation
		if err := scanQuotation(rows, &q); err != nil {
			return nil, fmt.Errorf("failed to scan quotation: %w", err)
		}
		q.Status = EffectiveStatus(&q, now)
		quotations = append(quotations, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate quotations: %w", err)
	}
	return quotations, nil
}

func fetchQuotationLinesQ(ctx context.Context, q pgxRowQuerier, quotationID int) ([]QuotationLine, error) {
	rows, err := q.Query(ctx, `
		SELECT ql.id, ql.quotation_id, ql.line_number,
		       p.id, p.code, p.name, ql.tax_id,
		       ql.quantity, ql.unit_price, ql.tax_percentage, ql.subtotal, ql.line_tax
		FROM quotation_lines ql
		JOIN products p ON p.id = ql.product_id
		WHERE ql.quotation_id = $1
		ORDER BY ql.line_number
	`, quotationID)
	if err != nil {
		return nil, fmt.Errorf("failed to query quotation lines: %w", err)
	}
	defer rows.Close()

	var lines []QuotationLine
	for rows.Next() {
		var l QuotationLine
		if err := rows.Scan(
			&l.ID, &l.QuotationID, &l.LineNumber,
			&l.ProductID, &l.ProductCode, &l.ProductName, &l.TaxID,
			&l.Quantity, &l.UnitPrice, &l.TaxPercentage, &l.Subtotal, &l.LineTax,
		); err != nil {
			return nil, fmt.Errorf("failed to scan quotation line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}
