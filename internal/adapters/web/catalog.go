package web

import (
	"net/http"

	"quotedesk/internal/core"

	"github.com/shopspring/decimal"
)

// Catalog writes replace the whole record, so PATCH bodies carry every field.

type clientRequest struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

func (c clientRequest) input() core.ClientInput {
	return core.ClientInput{Name: c.Name, Email: c.Email, Phone: c.Phone, Address: c.Address}
}

type productRequest struct {
	Code                 string           `json:"code"`
	Name                 string           `json:"name"`
	Description          string           `json:"description"`
	BasePrice            decimal.Decimal  `json:"base_price"`
	DefaultTaxPercentage *decimal.Decimal `json:"default_tax_percentage"`
	IsActive             *bool            `json:"is_active"`
}

// input defaults IsActive to true when the field is omitted.
func (p productRequest) input() core.ProductInput {
	active := p.IsActive == nil || *p.IsActive
	return core.ProductInput{
		Code:                 p.Code,
		Name:                 p.Name,
		Description:          p.Description,
		BasePrice:            p.BasePrice,
		DefaultTaxPercentage: p.DefaultTaxPercentage,
		IsActive:             active,
	}
}

type taxRequest struct {
	Name       string          `json:"name"`
	Percentage decimal.Decimal `json:"percentage"`
	IsActive   *bool           `json:"is_active"`
}

func (t taxRequest) input() core.TaxInput {
	return core.TaxInput{Name: t.Name, Percentage: t.Percentage, IsActive: t.IsActive == nil || *t.IsActive}
}

// apiGetCompany handles GET /api/company.
func (h *Handler) apiGetCompany(w http.ResponseWriter, r *http.Request) {
	company, err := h.svc.GetCompany(r.Context(), actorFromRequest(r))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, company)
}

// ── Clients ──────────────────────────────────────────────────────────────────

func (h *Handler) apiListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.ListClients(r.Context(), actorFromRequest(r))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	if clients == nil {
		clients = []core.Client{}
	}
	writeJSON(w, clients)
}

func (h *Handler) apiGetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	client, err := h.svc.GetClient(r.Context(), actorFromRequest(r), id)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, client)
}

func (h *Handler) apiCreateClient(w http.ResponseWriter, r *http.Request) {
	var body clientRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	client, err := h.svc.CreateClient(r.Context(), actorFromRequest(r), body.input())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, client)
}

func (h *Handler) apiUpdateClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body clientRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	client, err := h.svc.UpdateClient(r.Context(), actorFromRequest(r), id, body.input())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, client)
}

func (h *Handler) apiDeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteClient(r.Context(), actorFromRequest(r), id); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Products ─────────────────────────────────────────────────────────────────

// apiListProducts handles GET /api/products?include_inactive=true.
func (h *Handler) apiListProducts(w http.ResponseWriter, r *http.Request) {
	includeInactive := r.URL.Query().Get("include_inactive") == "true"
	products, err := h.svc.ListProducts(r.Context(), actorFromRequest(r), includeInactive)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	if products == nil {
		products = []core.Product{}
	}
	writeJSON(w, products)
}

func (h *Handler) apiGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	product, err := h.svc.GetProduct(r.Context(), actorFromRequest(r), id)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, product)
}

func (h *Handler) apiCreateProduct(w http.ResponseWriter, r *http.Request) {
	var body productRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	product, err := h.svc.CreateProduct(r.Context(), actorFromRequest(r), body.input())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, product)
}

func (h *Handler) apiUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body productRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	product, err := h.svc.UpdateProduct(r.Context(), actorFromRequest(r), id, body.input())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, product)
}

func (h *Handler) apiDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteProduct(r.Context(), actorFromRequest(r), id); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── Taxes ────────────────────────────────────────────────────────────────────

func (h *Handler) apiListTaxes(w http.ResponseWriter, r *http.Request) {
	taxes, err := h.svc.ListTaxes(r.Context(), actorFromRequest(r))
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	if taxes == nil {
		taxes = []core.Tax{}
	}
	writeJSON(w, taxes)
}

func (h *Handler) apiGetTax(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	tax, err := h.svc.GetTax(r.Context(), actorFromRequest(r), id)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, tax)
}

func (h *Handler) apiCreateTax(w http.ResponseWriter, r *http.Request) {
	var body taxRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	tax, err := h.svc.CreateTax(r.Context(), actorFromRequest(r), body.input())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, tax)
}

func (h *Handler) apiUpdateTax(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body taxRequest
	if !decodeJSON(w, r, &body) {
		return
	}
	tax, err := h.svc.UpdateTax(r.Context(), actorFromRequest(r), id, body.input())
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, tax)
}

func (h *Handler) apiDeleteTax(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteTax(r.Context(), actorFromRequest(r), id); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
