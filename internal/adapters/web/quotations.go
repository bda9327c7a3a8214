package web

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"quotedesk/internal/ai"
	"quotedesk/internal/core"

	"github.com/shopspring/decimal"
)

// lineRequest is one quotation line on the wire. Money is a decimal string.
type lineRequest struct {
	ProductID int              `json:"product_id"`
	Quantity  int              `json:"quantity"`
	UnitPrice *decimal.Decimal `json:"unit_price,omitempty"`
	TaxID     *int             `json:"tax_id,omitempty"`
}

type createQuotationRequest struct {
	ClientID  int           `json:"client_id"`
	Lines     []lineRequest `json:"lines"`
	Notes     string        `json:"notes"`
	ExpiresAt *time.Time    `json:"expires_at,omitempty"`
	Draft     bool          `json:"draft"`
}

// updateQuotationRequest is a partial update. Absent fields are left untouched;
// a present lines array replaces all lines.
type updateQuotationRequest struct {
	ClientID  *int           `json:"client_id"`
	Lines     *[]lineRequest `json:"lines"`
	Status    *string        `json:"status"`
	Notes     *string        `json:"notes"`
	ExpiresAt *time.Time     `json:"expires_at"`
}

func toLineInputs(lines []lineRequest) []core.QuotationLineInput {
	out := make([]core.QuotationLineInput, 0, len(lines))
	for _, l := range lines {
		out = append(out, core.QuotationLineInput{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			TaxID:     l.TaxID,
		})
	}
	return out
}

func fromLineInputs(lines []core.QuotationLineInput) []lineRequest {
	out := make([]lineRequest, 0, len(lines))
	for _, l := range lines {
		out = append(out, lineRequest{ProductID: l.ProductID, Quantity: l.Quantity, UnitPrice: l.UnitPrice, TaxID: l.TaxID})
	}
	return out
}

// apiListQuotations handles GET /api/quotations?status=&client_id=&limit=&offset=.
func (h *Handler) apiListQuotations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter core.QuotationFilter

	if s := q.Get("status"); s != "" {
		status, err := core.ParseQuotationStatus(s)
		if err != nil {
			h.writeAppError(w, r, err)
			return
		}
		filter.Status = &status
	}
	ints := []struct {
		name string
		dst  *int
	}{
		{"limit", &filter.Limit},
		{"offset", &filter.Offset},
	}
	for _, p := range ints {
		if v := q.Get(p.name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				writeError(w, r, p.name+" must be a non-negative integer", "BAD_REQUEST", http.StatusBadRequest)
				return
			}
			*p.dst = n
		}
	}
	if v := q.Get("client_id"); v != "" {
		id, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, r, "client_id must be an integer", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		filter.ClientID = &id
	}

	result, err := h.svc.ListQuotations(r.Context(), actorFromRequest(r), filter)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	quotations := result.Quotations
	if quotations == nil {
		quotations = []core.Quotation{}
	}
	writeJSON(w, map[string]any{
		"quotations": quotations,
		"limit":      result.Limit,
		"offset":     result.Offset,
	})
}

// apiGetQuotation handles GET /api/quotations/{id}.
func (h *Handler) apiGetQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.GetQuotation(r.Context(), actorFromRequest(r), id)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, result.Quotation)
}

// apiCreateQuotation handles POST /api/quotations.
// Body: { client_id, lines: [{product_id, quantity, unit_price?, tax_id?}], notes?, expires_at?, draft? }
func (h *Handler) apiCreateQuotation(w http.ResponseWriter, r *http.Request) {
	var body createQuotationRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.CreateQuotation(r.Context(), actorFromRequest(r), core.CreateQuotationInput{
		ClientID:  body.ClientID,
		Lines:     toLineInputs(body.Lines),
		Notes:     body.Notes,
		ExpiresAt: body.ExpiresAt,
		Draft:     body.Draft,
	})
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, result.Quotation)
}

// apiUpdateQuotation handles PATCH /api/quotations/{id}.
func (h *Handler) apiUpdateQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body updateQuotationRequest
	if !decodeJSON(w, r, &body) {
		return
	}

	patch := core.QuotationPatch{
		ClientID:  body.ClientID,
		Notes:     body.Notes,
		ExpiresAt: body.ExpiresAt,
	}
	if body.Lines != nil {
		patch.Lines = toLineInputs(*body.Lines)
	}
	if body.Status != nil {
		status, err := core.ParseQuotationStatus(*body.Status)
		if err != nil {
			h.writeAppError(w, r, err)
			return
		}
		patch.Status = &status
	}

	result, err := h.svc.UpdateQuotation(r.Context(), actorFromRequest(r), id, patch)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}
	writeJSON(w, result.Quotation)
}

// apiDeleteQuotation handles DELETE /api/quotations/{id}.
func (h *Handler) apiDeleteQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteQuotation(r.Context(), actorFromRequest(r), id); err != nil {
		h.writeAppError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiQuotationPDF handles GET /api/quotations/{id}/pdf.
func (h *Handler) apiQuotationPDF(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	result, err := h.svc.RenderQuotationPDF(r.Context(), actorFromRequest(r), id)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="`+result.FileName+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(result.Data)))
	if result.ObjectKey != "" {
		w.Header().Set("X-Archive-Key", result.ObjectKey)
	}
	if result.DownloadURL != "" {
		w.Header().Set("X-Archive-URL", result.DownloadURL)
	}
	_, _ = w.Write(result.Data)
}

// apiSendQuotation handles POST /api/quotations/{id}/send.
// Body (optional): { recipient }. The client's email is used when absent.
func (h *Handler) apiSendQuotation(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var body struct {
		Recipient string `json:"recipient"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.SendQuotation(r.Context(), actorFromRequest(r), id, body.Recipient)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}

	type sendResponse struct {
		Quotation   *core.Quotation `json:"quotation"`
		Recipient   string          `json:"recipient"`
		ObjectKey   string          `json:"pdf_object_key,omitempty"`
		DownloadURL string          `json:"pdf_url,omitempty"`
	}
	writeJSON(w, sendResponse{
		Quotation:   result.Quotation,
		Recipient:   result.Recipient,
		ObjectKey:   result.ObjectKey,
		DownloadURL: result.DownloadURL,
	})
}

// apiDraftQuotation handles POST /api/quotations/draft.
// Body: { text }. The response carries a create request the user can review and submit.
func (h *Handler) apiDraftQuotation(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Text string `json:"text"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := h.svc.DraftQuotation(r.Context(), actorFromRequest(r), body.Text)
	if err != nil {
		h.writeAppError(w, r, err)
		return
	}

	type draftResponse struct {
		Draft   *ai.QuotationDraft     `json:"draft"`
		Request createQuotationRequest `json:"request"`
	}
	writeJSON(w, draftResponse{
		Draft: result.Draft,
		Request: createQuotationRequest{
			ClientID: result.Input.ClientID,
			Lines:    fromLineInputs(result.Input.Lines),
			Notes:    result.Input.Notes,
			Draft:    result.Input.Draft,
		},
	})
}
