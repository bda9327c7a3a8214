package app

import (
	"context"

	"quotedesk/internal/core"
)

func (s *appService) GetCompany(ctx context.Context, actor core.Actor) (*core.Company, error) {
	return s.catalog.GetCompany(ctx, actor.CompanyID)
}

// ── Clients ──────────────────────────────────────────────────────────────────

func (s *appService) ListClients(ctx context.Context, actor core.Actor) ([]core.Client, error) {
	return s.catalog.ListClients(ctx, actor.CompanyID)
}

func (s *appService) GetClient(ctx context.Context, actor core.Actor, id int) (*core.Client, error) {
	return s.catalog.GetClient(ctx, actor.CompanyID, id)
}

func (s *appService) CreateClient(ctx context.Context, actor core.Actor, input core.ClientInput) (*core.Client, error) {
	c, err := s.catalog.CreateClient(ctx, actor.CompanyID, input)
	if err != nil {
		return nil, err
	}
	s.log.WithField("company_id", actor.CompanyID).WithField("client_id", c.ID).Info("client created")
	return c, nil
}

func (s *appService) UpdateClient(ctx context.Context, actor core.Actor, id int, input core.ClientInput) (*core.Client, error) {
	return s.catalog.UpdateClient(ctx, actor.CompanyID, id, input)
}

func (s *appService) DeleteClient(ctx context.Context, actor core.Actor, id int) error {
	return s.catalog.DeleteClient(ctx, actor.CompanyID, id)
}

// ── Products ─────────────────────────────────────────────────────────────────

func (s *appService) ListProducts(ctx context.Context, actor core.Actor, includeInactive bool) ([]core.Product, error) {
	return s.catalog.ListProducts(ctx, actor.CompanyID, includeInactive)
}

func (s *appService) GetProduct(ctx context.Context, actor core.Actor, id int) (*core.Product, error) {
	return s.catalog.GetProduct(ctx, actor.CompanyID, id)
}

func (s *appService) CreateProduct(ctx context.Context, actor core.Actor, input core.ProductInput) (*core.Product, error) {
	p, err := s.catalog.CreateProduct(ctx, actor.CompanyID, input)
	if err != nil {
		return nil, err
	}
	s.log.WithField("company_id", actor.CompanyID).WithField("product_code", p.Code).Info("product created")
	return p, nil
}

// UpdateProduct does not touch existing quotations: their lines keep the price they were quoted at.
func (s *appService) UpdateProduct(ctx context.Context, actor core.Actor, id int, input core.ProductInput) (*core.Product, error) {
	return s.catalog.UpdateProduct(ctx, actor.CompanyID, id, input)
}

func (s *appService) DeleteProduct(ctx context.Context, actor core.Actor, id int) error {
	return s.catalog.DeleteProduct(ctx, actor.CompanyID, id)
}

// ── Taxes ────────────────────────────────────────────────────────────────────

func (s *appService) ListTaxes(ctx context.Context, actor core.Actor) ([]core.Tax, error) {
	return s.catalog.ListTaxes(ctx, actor.CompanyID)
}

func (s *appService) GetTax(ctx context.Context, actor core.Actor, id int) (*core.Tax, error) {
	return s.catalog.GetTax(ctx, actor.CompanyID, id)
}

func (s *appService) CreateTax(ctx context.Context, actor core.Actor, input core.TaxInput) (*core.Tax, error) {
	return s.catalog.CreateTax(ctx, actor.CompanyID, input)
}

func (s *appService) UpdateTax(ctx context.Context, actor core.Actor, id int, input core.TaxInput) (*core.Tax, error) {
	return s.catalog.UpdateTax(ctx, actor.CompanyID, id, input)
}

func (s *appService) DeleteTax(ctx context.Context, actor core.Actor, id int) error {
	return s.catalog.DeleteTax(ctx, actor.CompanyID, id)
}
