package web_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"quotedesk/internal/adapters/web"
	"quotedesk/internal/ai"
	"quotedesk/internal/app"
	"quotedesk/internal/core"
	"quotedesk/internal/logging"
	"quotedesk/internal/metrics"

	"github.com/golang-jwt/jwt/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
)

// fakeService implements the operations the tests reach; anything else panics
// through the nil embedded interface.
type fakeService struct {
	app.ApplicationService

	mu            sync.Mutex
	created       []core.CreateQuotationInput
	patches       []core.QuotationPatch
	lastActor     core.Actor
	getErr        error
	draftErr      error
	sendRecipient string
}

var roles = map[string]string{
	"alice": core.RoleSales,
	"vera":  core.RoleViewer,
	"max":   core.RoleManager,
}

func (f *fakeService) AuthenticateUser(_ context.Context, username, password string) (*app.UserSession, error) {
	role, ok := roles[username]
	if !ok || password != "secret-password" {
		return nil, &core.UnauthorizedError{Message: "invalid username or password"}
	}
	return &app.UserSession{UserID: 7, CompanyID: 1, CompanyCode: "ACME", Username: username, Role: role}, nil
}

func (f *fakeService) GetUser(_ context.Context, userID int) (*app.UserResult, error) {
	return &app.UserResult{UserID: userID, CompanyID: 1, CompanyCode: "ACME", Username: "alice", Role: core.RoleSales}, nil
}

func (f *fakeService) quotation(id int) *core.Quotation {
	return &core.Quotation{ID: id, CompanyID: 1, Number: int64(id), ClientID: 3, Status: core.StatusSent,
		Total: decimal.RequireFromString("3750"), TotalTax: decimal.RequireFromString("713")}
}

func (f *fakeService) CreateQuotation(_ context.Context, actor core.Actor, in core.CreateQuotationInput) (*app.QuotationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastActor = actor
	f.created = append(f.created, in)
	return &app.QuotationResult{Quotation: f.quotation(1)}, nil
}

func (f *fakeService) GetQuotation(_ context.Context, actor core.Actor, id int) (*app.QuotationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastActor = actor
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &app.QuotationResult{Quotation: f.quotation(id)}, nil
}

func (f *fakeService) UpdateQuotation(_ context.Context, _ core.Actor, id int, patch core.QuotationPatch) (*app.QuotationResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.patches = append(f.patches, patch)
	if patch.Status != nil && *patch.Status == core.StatusDraft {
		return nil, &core.InvalidTransitionError{From: core.StatusSent, To: core.StatusDraft}
	}
	return &app.QuotationResult{Quotation: f.quotation(id)}, nil
}

func (f *fakeService) ListQuotations(_ context.Context, _ core.Actor, filter core.QuotationFilter) (*app.QuotationListResult, error) {
	return &app.QuotationListResult{Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (f *fakeService) DeleteQuotation(context.Context, core.Actor, int) error { return nil }

func (f *fakeService) RenderQuotationPDF(_ context.Context, _ core.Actor, id int) (*app.PDFResult, error) {
	return &app.PDFResult{FileName: "QT-00004.pdf", Data: []byte("%PDF-1.3 fake"), ObjectKey: "company-1/QT-00004.pdf",
		DownloadURL: "https://archive.test/company-1/QT-00004.pdf?sig=1"}, nil
}

func (f *fakeService) SendQuotation(_ context.Context, _ core.Actor, id int, recipient string) (*app.SendResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sendRecipient = recipient
	if recipient == "" {
		recipient = "buyer@initech.test"
	}
	return &app.SendResult{Quotation: f.quotation(id), Recipient: recipient, ObjectKey: "company-1/QT-00004.pdf",
		DownloadURL: "https://archive.test/company-1/QT-00004.pdf?sig=1"}, nil
}

func (f *fakeService) DraftQuotation(_ context.Context, _ core.Actor, text string) (*app.DraftResult, error) {
	if f.draftErr != nil {
		return nil, f.draftErr
	}
	d := &ai.QuotationDraft{ClientID: 3, Lines: []ai.DraftLine{{ProductID: 5, Quantity: 2}}}
	return &app.DraftResult{Draft: d, Input: d.Input()}, nil
}

func (f *fakeService) CreateProduct(_ context.Context, _ core.Actor, in core.ProductInput) (*core.Product, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	return &core.Product{ID: 9, Code: in.Code, Name: in.Name, BasePrice: in.BasePrice, IsActive: in.IsActive}, nil
}

func (f *fakeService) ListClients(context.Context, core.Actor) ([]core.Client, error) {
	return nil, errors.New("connection reset by peer")
}

// memoryDenylist is an in-process session.Denylist.
type memoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time
}

func (d *memoryDenylist) Revoke(_ context.Context, id string, exp time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.revoked[id] = exp
	return nil
}

func (d *memoryDenylist) IsRevoked(_ context.Context, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.revoked[id]
	return ok, nil
}

type server struct {
	handler http.Handler
	svc     *fakeService
	metrics *metrics.Metrics
}

func newServer(t *testing.T) *server {
	t.Helper()
	s := &server{svc: &fakeService{}, metrics: metrics.New()}
	s.handler = web.NewHandler(s.svc, web.Options{
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
		Denylist:  &memoryDenylist{revoked: map[string]time.Time{}},
		Metrics:   s.metrics,
		Log:       logging.Discard(),
	})
	return s
}

func (s *server) do(t *testing.T, method, path, body string, cookie *http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *server) login(t *testing.T, username string) *http.Cookie {
	t.Helper()
	rec := s.do(t, http.MethodPost, "/api/auth/login", `{"username":"`+username+`","password":"secret-password"}`, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: expected 200, got %d: %s", username, rec.Code, rec.Body.String())
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == "auth_token" {
			return c
		}
	}
	t.Fatal("login did not set auth_token")
	return nil
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid error body %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestHealth(t *testing.T) {
	s := newServer(t)
	rec := s.do(t, http.MethodGet, "/api/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestAuth_LoginMeLogout(t *testing.T) {
	s := newServer(t)

	if rec := s.do(t, http.MethodGet, "/api/quotations", "", nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("no cookie: expected 401, got %d", rec.Code)
	}
	rec := s.do(t, http.MethodPost, "/api/auth/login", `{"username":"alice","password":"nope"}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad password: expected 401, got %d", rec.Code)
	}

	cookie := s.login(t, "alice")
	rec = s.do(t, http.MethodGet, "/api/auth/me", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("me: expected 200, got %d", rec.Code)
	}
	var me struct {
		Username     string   `json:"username"`
		Capabilities []string `json:"capabilities"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatal(err)
	}
	if me.Username != "alice" || len(me.Capabilities) != 2 {
		t.Errorf("unexpected profile %+v", me)
	}

	if rec := s.do(t, http.MethodPost, "/api/auth/logout", "", cookie); rec.Code != http.StatusNoContent {
		t.Fatalf("logout: expected 204, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/auth/me", "", cookie); rec.Code != http.StatusUnauthorized {
		t.Errorf("revoked token: expected 401, got %d", rec.Code)
	}
}

func TestAuth_ForeignSignature(t *testing.T) {
	s := newServer(t)
	forged, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": 1, "company_id": 2, "role": core.RoleAdmin,
		"jti": "forged", "exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString([]byte("another-secret"))
	if err != nil {
		t.Fatal(err)
	}
	cookie := &http.Cookie{Name: "auth_token", Value: forged}
	if rec := s.do(t, http.MethodGet, "/api/quotations/1", "", cookie); rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestCapabilities(t *testing.T) {
	s := newServer(t)
	viewer := s.login(t, "vera")
	sales := s.login(t, "alice")
	manager := s.login(t, "max")

	tests := []struct {
		name   string
		cookie *http.Cookie
		method string
		path   string
		body   string
		want   int
	}{
		{"viewer reads", viewer, http.MethodGet, "/api/quotations/4", "", http.StatusOK},
		{"viewer cannot create", viewer, http.MethodPost, "/api/quotations", `{"client_id":3}`, http.StatusForbidden},
		{"sales cannot delete", sales, http.MethodDelete, "/api/quotations/4", "", http.StatusForbidden},
		{"sales cannot edit catalog", sales, http.MethodPost, "/api/products", `{"code":"A","name":"A"}`, http.StatusForbidden},
		{"manager deletes", manager, http.MethodDelete, "/api/quotations/4", "", http.StatusNoContent},
		{"manager edits catalog", manager, http.MethodPost, "/api/products", `{"code":"A","name":"A","base_price":"10"}`, http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body, tt.cookie)
			if rec.Code != tt.want {
				t.Errorf("expected %d, got %d: %s", tt.want, rec.Code, rec.Body.String())
			}
			if rec.Code == http.StatusForbidden && decodeError(t, rec)["code"] != "FORBIDDEN" {
				t.Errorf("expected FORBIDDEN code, got %s", rec.Body.String())
			}
		})
	}
}

func TestCreateQuotation_DecodesMoneyAndScopesToActor(t *testing.T) {
	s := newServer(t)
	cookie := s.login(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/quotations",
		`{"client_id":3,"notes":"rush","lines":[{"product_id":5,"quantity":3,"unit_price":"1250.00","tax_id":2},{"product_id":6,"quantity":1}]}`, cookie)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	in := s.svc.created[0]
	if in.ClientID != 3 || in.Notes != "rush" || len(in.Lines) != 2 {
		t.Fatalf("unexpected input %+v", in)
	}
	if in.Lines[0].UnitPrice == nil || !in.Lines[0].UnitPrice.Equal(decimal.NewFromInt(1250)) || *in.Lines[0].TaxID != 2 {
		t.Errorf("unexpected first line %+v", in.Lines[0])
	}
	if in.Lines[1].UnitPrice != nil || in.Lines[1].TaxID != nil {
		t.Errorf("omitted price and tax must stay nil: %+v", in.Lines[1])
	}
	if s.svc.lastActor.CompanyID != 1 || s.svc.lastActor.UserID != 7 {
		t.Errorf("expected actor from token, got %+v", s.svc.lastActor)
	}

	var q map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatal(err)
	}
	if q["total"] != "3750" || q["total_tax"] != "713" {
		t.Errorf("expected money as decimal strings, got %v / %v", q["total"], q["total_tax"])
	}
}

func TestUpdateQuotation(t *testing.T) {
	s := newServer(t)
	cookie := s.login(t, "alice")

	rec := s.do(t, http.MethodPatch, "/api/quotations/4", `{"status":"accepted"}`, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	p := s.svc.patches[0]
	if p.Status == nil || *p.Status != core.StatusAccepted || p.Lines != nil || p.Notes != nil {
		t.Errorf("unexpected patch %+v", p)
	}

	s.do(t, http.MethodPatch, "/api/quotations/4", `{"lines":[]}`, cookie)
	if s.svc.patches[1].Lines == nil {
		t.Error("an explicit empty lines array must reach the service")
	}

	rec = s.do(t, http.MethodPatch, "/api/quotations/4", `{"status":"draft"}`, cookie)
	if rec.Code != http.StatusConflict || decodeError(t, rec)["code"] != "INVALID_TRANSITION" {
		t.Errorf("expected 409 INVALID_TRANSITION, got %d %s", rec.Code, rec.Body.String())
	}

	rec = s.do(t, http.MethodPatch, "/api/quotations/4", `{"status":"archived"}`, cookie)
	if rec.Code != http.StatusBadRequest || decodeError(t, rec)["field"] != "status" {
		t.Errorf("unknown status: expected 400 on field status, got %d %s", rec.Code, rec.Body.String())
	}
}

func TestErrorMapping(t *testing.T) {
	s := newServer(t)
	cookie := s.login(t, "alice")

	tests := []struct {
		name string
		err  error
		want int
		code string
	}{
		{"not found", &core.NotFoundError{Entity: "quotation", ID: 4}, http.StatusNotFound, "NOT_FOUND"},
		{"validation", &core.ValidationError{Field: "lines", Message: "required"}, http.StatusBadRequest, "VALIDATION_ERROR"},
		{"unclassified", errors.New("pq: connection refused"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s.svc.getErr = tt.err
			rec := s.do(t, http.MethodGet, "/api/quotations/4", "", cookie)
			if rec.Code != tt.want {
				t.Fatalf("expected %d, got %d", tt.want, rec.Code)
			}
			body := decodeError(t, rec)
			if body["code"] != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, body["code"])
			}
			if body["request_id"] == "" {
				t.Error("expected request_id in error body")
			}
			if tt.want == http.StatusInternalServerError && strings.Contains(body["error"], "pq:") {
				t.Errorf("internal error leaked: %s", body["error"])
			}
		})
	}

	if rec := s.do(t, http.MethodGet, "/api/quotations/abc", "", cookie); rec.Code != http.StatusBadRequest {
		t.Errorf("non-numeric id: expected 400, got %d", rec.Code)
	}
	if rec := s.do(t, http.MethodGet, "/api/clients", "", cookie); rec.Code != http.StatusInternalServerError {
		t.Errorf("failing list: expected 500, got %d", rec.Code)
	}
}

func TestQuotationPDF(t *testing.T) {
	s := newServer(t)
	cookie := s.login(t, "vera")

	rec := s.do(t, http.MethodGet, "/api/quotations/4/pdf", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("expected application/pdf, got %q", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "QT-00004.pdf") {
		t.Errorf("unexpected disposition %q", cd)
	}
	if !strings.HasPrefix(rec.Body.String(), "%PDF-") {
		t.Error("expected pdf body")
	}
	if key := rec.Header().Get("X-Archive-Key"); key != "company-1/QT-00004.pdf" {
		t.Errorf("unexpected archive key %q", key)
	}
	if u := rec.Header().Get("X-Archive-URL"); !strings.HasPrefix(u, "https://archive.test/") {
		t.Errorf("unexpected archive url %q", u)
	}
}

func TestSendQuotation_BodyIsOptional(t *testing.T) {
	s := newServer(t)
	cookie := s.login(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/quotations/4/send", "", cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if s.svc.sendRecipient != "" {
		t.Errorf("expected default recipient, got %q", s.svc.sendRecipient)
	}
	var sent struct {
		Recipient string `json:"recipient"`
		PDFURL    string `json:"pdf_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &sent); err != nil {
		t.Fatal(err)
	}
	if sent.Recipient != "buyer@initech.test" || !strings.HasPrefix(sent.PDFURL, "https://archive.test/") {
		t.Errorf("unexpected send response %+v", sent)
	}

	s.do(t, http.MethodPost, "/api/quotations/4/send", `{"recipient":"cfo@initech.test"}`, cookie)
	if s.svc.sendRecipient != "cfo@initech.test" {
		t.Errorf("expected explicit recipient, got %q", s.svc.sendRecipient)
	}
}

func TestDraftQuotation(t *testing.T) {
	s := newServer(t)
	cookie := s.login(t, "alice")

	rec := s.do(t, http.MethodPost, "/api/quotations/draft", `{"text":"two widgets"}`, cookie)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Request struct {
			ClientID int  `json:"client_id"`
			Draft    bool `json:"draft"`
			Lines    []struct {
				ProductID int `json:"product_id"`
				Quantity  int `json:"quantity"`
			} `json:"lines"`
		} `json:"request"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Request.ClientID != 3 || !body.Request.Draft || len(body.Request.Lines) != 1 || body.Request.Lines[0].Quantity != 2 {
		t.Errorf("unexpected draft request %+v", body.Request)
	}

	s.svc.draftErr = ai.ErrNotConfigured
	rec = s.do(t, http.MethodPost, "/api/quotations/draft", `{"text":"two widgets"}`, cookie)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestMetricsUseRoutePatterns(t *testing.T) {
	s := newServer(t)
	cookie := s.login(t, "alice")
	s.do(t, http.MethodGet, "/api/quotations/4", "", cookie)
	s.do(t, http.MethodGet, "/api/quotations/5", "", cookie)

	if got := testutil.ToFloat64(s.metrics.HTTPRequestsCounter("/api/quotations/{id}", http.MethodGet, http.StatusOK)); got != 2 {
		t.Errorf("expected 2 requests on the route pattern, got %v", got)
	}

	rec := s.do(t, http.MethodGet, "/metrics", "", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "quotedesk_http_requests_total") {
		t.Errorf("metrics endpoint missing request counter: %d", rec.Code)
	}
}
