package app

import (
	"context"

	"quotedesk/internal/core"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations contain no
// display logic. Capability checks happen in the adapters; every method is
// scoped to the actor's company.
type ApplicationService interface {
	// CreateQuotation prices and stores a new quotation under the next company number.
	CreateQuotation(ctx context.Context, actor core.Actor, input core.CreateQuotationInput) (*QuotationResult, error)

	// GetQuotation returns a quotation with its lines and effective status.
	GetQuotation(ctx context.Context, actor core.Actor, id int) (*QuotationResult, error)

	// UpdateQuotation applies a patch. Status changes go through the status machine.
	UpdateQuotation(ctx context.Context, actor core.Actor, id int, patch core.QuotationPatch) (*QuotationResult, error)

	// ListQuotations returns quotation headers, newest first.
	ListQuotations(ctx context.Context, actor core.Actor, filter core.QuotationFilter) (*QuotationListResult, error)

	// DeleteQuotation soft-deletes a quotation. Its number is never reused.
	DeleteQuotation(ctx context.Context, actor core.Actor, id int) error

	// RenderQuotationPDF renders the quotation and archives the file when an archive is configured.
	RenderQuotationPDF(ctx context.Context, actor core.Actor, id int) (*PDFResult, error)

	// SendQuotation mails the rendered PDF. recipient defaults to the client's email.
	// A draft becomes sent once the mail is accepted by the server.
	SendQuotation(ctx context.Context, actor core.Actor, id int, recipient string) (*SendResult, error)

	// DraftQuotation asks the assistant to turn free text into a quotation input.
	// Nothing is stored.
	DraftQuotation(ctx context.Context, actor core.Actor, text string) (*DraftResult, error)

	GetCompany(ctx context.Context, actor core.Actor) (*core.Company, error)

	ListClients(ctx context.Context, actor core.Actor) ([]core.Client, error)
	GetClient(ctx context.Context, actor core.Actor, id int) (*core.Client, error)
	CreateClient(ctx context.Context, actor core.Actor, input core.ClientInput) (*core.Client, error)
	UpdateClient(ctx context.Context, actor core.Actor, id int, input core.ClientInput) (*core.Client, error)
	DeleteClient(ctx context.Context, actor core.Actor, id int) error

	ListProducts(ctx context.Context, actor core.Actor, includeInactive bool) ([]core.Product, error)
	GetProduct(ctx context.Context, actor core.Actor, id int) (*core.Product, error)
	CreateProduct(ctx context.Context, actor core.Actor, input core.ProductInput) (*core.Product, error)
	UpdateProduct(ctx context.Context, actor core.Actor, id int, input core.ProductInput) (*core.Product, error)
	DeleteProduct(ctx context.Context, actor core.Actor, id int) error

	ListTaxes(ctx context.Context, actor core.Actor) ([]core.Tax, error)
	GetTax(ctx context.Context, actor core.Actor, id int) (*core.Tax, error)
	CreateTax(ctx context.Context, actor core.Actor, input core.TaxInput) (*core.Tax, error)
	UpdateTax(ctx context.Context, actor core.Actor, id int, input core.TaxInput) (*core.Tax, error)
	DeleteTax(ctx context.Context, actor core.Actor, id int) error

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)

	// CreateUser hashes the password and provisions the user.
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserResult, error)
}
