package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"quotedesk/internal/app"
	"quotedesk/internal/core"
	"quotedesk/internal/metrics"
	"quotedesk/internal/session"

	"github.com/go-chi/chi/v5"
	"github.com/sirupsen/logrus"
)

// Options configure the HTTP adapter. Zero values fall back to safe defaults:
// a 24h token lifetime, no session revocation, a private metrics registry and
// the standard logger.
type Options struct {
	AllowedOrigins string
	JWTSecret      string
	TokenTTL       time.Duration
	Denylist       session.Denylist
	Metrics        *metrics.Metrics
	Log            logrus.FieldLogger
}

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	jwtSecret string
	tokenTTL  time.Duration
	denylist  session.Denylist
	metrics   *metrics.Metrics
	log       logrus.FieldLogger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	h := &Handler{
		svc:       svc,
		jwtSecret: opts.JWTSecret,
		tokenTTL:  opts.TokenTTL,
		denylist:  opts.Denylist,
		metrics:   opts.Metrics,
		log:       opts.Log,
	}
	if h.tokenTTL <= 0 {
		h.tokenTTL = 24 * time.Hour
	}
	if h.denylist == nil {
		h.denylist = session.NopDenylist{}
	}
	if h.metrics == nil {
		h.metrics = metrics.New()
	}
	if h.log == nil {
		h.log = logrus.StandardLogger()
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(h.log))
	r.Use(Recoverer(h.log))
	r.Use(Instrument(h.metrics))
	r.Use(CORS(opts.AllowedOrigins))

	// ── Public ────────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())
	r.With(RequestBodyLimit(1<<16)).Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// Reads
		r.Group(func(r chi.Router) {
			r.Use(h.RequireCapability(core.CapQuotationRead))

			r.Get("/api/company", h.apiGetCompany)

			r.Get("/api/quotations", h.apiListQuotations)
			r.Get("/api/quotations/{id}", h.apiGetQuotation)
			r.Get("/api/quotations/{id}/pdf", h.apiQuotationPDF)

			r.Get("/api/clients", h.apiListClients)
			r.Get("/api/clients/{id}", h.apiGetClient)
			r.Get("/api/products", h.apiListProducts)
			r.Get("/api/products/{id}", h.apiGetProduct)
			r.Get("/api/taxes", h.apiListTaxes)
			r.Get("/api/taxes/{id}", h.apiGetTax)
		})

		// Quotation writes
		r.Group(func(r chi.Router) {
			r.Use(h.RequireCapability(core.CapQuotationWrite))

			r.Post("/api/quotations", h.apiCreateQuotation)
			r.Post("/api/quotations/draft", h.apiDraftQuotation)
			r.Patch("/api/quotations/{id}", h.apiUpdateQuotation)
			r.Post("/api/quotations/{id}/send", h.apiSendQuotation)
		})

		r.With(h.RequireCapability(core.CapQuotationDelete)).Delete("/api/quotations/{id}", h.apiDeleteQuotation)

		// Catalog writes
		r.Group(func(r chi.Router) {
			r.Use(h.RequireCapability(core.CapCatalogWrite))

			r.Post("/api/clients", h.apiCreateClient)
			r.Patch("/api/clients/{id}", h.apiUpdateClient)
			r.Delete("/api/clients/{id}", h.apiDeleteClient)
			r.Post("/api/products", h.apiCreateProduct)
			r.Patch("/api/products/{id}", h.apiUpdateProduct)
			r.Delete("/api/products/{id}", h.apiDeleteProduct)
			r.Post("/api/taxes", h.apiCreateTax)
			r.Patch("/api/taxes/{id}", h.apiUpdateTax)
			r.Delete("/api/taxes/{id}", h.apiDeleteTax)
		})
	})

	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, struct {
		Status string `json:"status"`
	}{Status: "ok"})
}

// pathID parses the {id} URL parameter. It writes a 400 and returns false when
// the parameter is not a positive integer.
func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid id "+strconv.Quote(chi.URLParam(r, "id")), "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}
