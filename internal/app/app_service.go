package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"quotedesk/internal/ai"
	"quotedesk/internal/core"
	"quotedesk/internal/events"
	"quotedesk/internal/mail"
	"quotedesk/internal/metrics"
	"quotedesk/internal/pdf"
	"quotedesk/internal/storage"

	"github.com/sirupsen/logrus"
)

// publishTimeout bounds event publishing, which runs after the request's own work is committed.
const publishTimeout = 5 * time.Second

// Deps are the collaborators of the application service. Quotations, Catalog
// and Users are required; the rest fall back to no-op implementations.
type Deps struct {
	Quotations core.QuotationService
	Catalog    core.CatalogService
	Users      core.UserService
	Renderer   pdf.Renderer
	Archive    storage.Archive
	Mailer     mail.Sender
	Drafter    ai.Drafter
	Events     events.Publisher
	Metrics    *metrics.Metrics
	Log        logrus.FieldLogger
}

type appService struct {
	quotations core.QuotationService
	catalog    core.CatalogService
	users      core.UserService
	renderer   pdf.Renderer
	archive    storage.Archive
	mailer     mail.Sender
	drafter    ai.Drafter
	events     events.Publisher
	metrics    *metrics.Metrics
	log        logrus.FieldLogger
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(d Deps) ApplicationService {
	s := &appService{
		quotations: d.Quotations,
		catalog:    d.Catalog,
		users:      d.Users,
		renderer:   d.Renderer,
		archive:    d.Archive,
		mailer:     d.Mailer,
		drafter:    d.Drafter,
		events:     d.Events,
		metrics:    d.Metrics,
		log:        d.Log,
	}
	if s.renderer == nil {
		s.renderer = pdf.NewRenderer()
	}
	if s.archive == nil {
		s.archive = storage.NopArchive{}
	}
	if s.mailer == nil {
		s.mailer = mail.NopSender{}
	}
	if s.drafter == nil {
		s.drafter = ai.NopDrafter{}
	}
	if s.events == nil {
		s.events = events.NopPublisher{}
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	if s.log == nil {
		s.log = logrus.StandardLogger()
	}
	return s
}

// ── Quotations ───────────────────────────────────────────────────────────────

func (s *appService) CreateQuotation(ctx context.Context, actor core.Actor, input core.CreateQuotationInput) (*QuotationResult, error) {
	q, err := s.quotations.CreateQuotation(ctx, actor, input)
	if err != nil {
		return nil, err
	}

	s.metrics.QuotationCreated(string(q.Status))
	s.log.WithFields(logrus.Fields{
		"company_id":   actor.CompanyID,
		"quotation_id": q.ID,
		"number":       q.Number,
		"total":        q.Total.String(),
	}).Info("quotation created")
	s.publish(ctx, events.EventQuotationCreated, actor, q, nil)

	return &QuotationResult{Quotation: q}, nil
}

func (s *appService) GetQuotation(ctx context.Context, actor core.Actor, id int) (*QuotationResult, error) {
	q, err := s.quotations.GetQuotation(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return &QuotationResult{Quotation: q}, nil
}

func (s *appService) UpdateQuotation(ctx context.Context, actor core.Actor, id int, patch core.QuotationPatch) (*QuotationResult, error) {
	before, err := s.quotations.GetQuotation(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	q, err := s.quotations.UpdateQuotation(ctx, actor, id, patch)
	if err != nil {
		// An overdue quotation is stored as expired even when the edit is refused.
		var transition *core.InvalidTransitionError
		if errors.As(err, &transition) && transition.From == core.StatusExpired && !before.StoredStatus.IsTerminal() {
			expired := *before
			expired.Status, expired.StoredStatus = core.StatusExpired, core.StatusExpired
			s.recordTransition(ctx, actor, &expired, before.StoredStatus)
		}
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"company_id":   actor.CompanyID,
		"quotation_id": q.ID,
		"status":       q.Status,
	}).Info("quotation updated")
	s.publish(ctx, events.EventQuotationUpdated, actor, q, nil)
	s.recordTransition(ctx, actor, q, before.StoredStatus)

	return &QuotationResult{Quotation: q}, nil
}

func (s *appService) ListQuotations(ctx context.Context, actor core.Actor, filter core.QuotationFilter) (*QuotationListResult, error) {
	quotations, err := s.quotations.ListQuotations(ctx, actor, filter)
	if err != nil {
		return nil, err
	}
	return &QuotationListResult{Quotations: quotations, Limit: filter.Limit, Offset: filter.Offset}, nil
}

func (s *appService) DeleteQuotation(ctx context.Context, actor core.Actor, id int) error {
	if err := s.quotations.DeleteQuotation(ctx, actor, id); err != nil {
		return err
	}
	s.log.WithFields(logrus.Fields{"company_id": actor.CompanyID, "quotation_id": id}).Info("quotation deleted")
	s.publish(ctx, events.EventQuotationDeleted, actor, &core.Quotation{ID: id, CompanyID: actor.CompanyID}, nil)
	return nil
}

// ── Documents ────────────────────────────────────────────────────────────────

func (s *appService) RenderQuotationPDF(ctx context.Context, actor core.Actor, id int) (*PDFResult, error) {
	q, err := s.quotations.GetQuotation(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	return s.render(ctx, actor, q)
}

func (s *appService) render(ctx context.Context, actor core.Actor, q *core.Quotation) (*PDFResult, error) {
	company, err := s.catalog.GetCompany(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	// A client deleted after quoting is still printed from the joined name and email.
	client, err := s.catalog.GetClient(ctx, actor.CompanyID, q.ClientID)
	if err != nil {
		if !core.IsNotFound(err) {
			return nil, err
		}
		client = &core.Client{ID: q.ClientID, Name: q.ClientName, Email: q.ClientEmail}
	}

	data, err := s.renderer.Render(pdf.Document{Company: *company, Client: *client, Quotation: *q})
	if err != nil {
		return nil, err
	}
	result := &PDFResult{FileName: pdf.FileName(q), Data: data}

	// Archiving is best effort; the caller still gets the document.
	key, err := s.archive.Put(ctx, actor.CompanyID, q.Reference(), data)
	if err != nil {
		s.log.WithError(err).WithField("quotation_id", q.ID).Warn("failed to archive quotation pdf")
		return result, nil
	}
	if key != "" {
		if err := s.quotations.SetPDFObjectKey(ctx, actor, q.ID, key); err != nil {
			s.log.WithError(err).WithField("quotation_id", q.ID).Warn("failed to record archived pdf")
			return result, nil
		}
		result.ObjectKey = key

		url, err := s.archive.URL(ctx, key)
		if err != nil {
			s.log.WithError(err).WithField("key", key).Warn("failed to sign archived pdf url")
			return result, nil
		}
		result.DownloadURL = url
	}
	return result, nil
}

func (s *appService) SendQuotation(ctx context.Context, actor core.Actor, id int, recipient string) (*SendResult, error) {
	q, err := s.quotations.GetQuotation(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if q.Status != core.StatusDraft && q.Status != core.StatusSent {
		return nil, &core.InvalidTransitionError{From: q.Status, To: core.StatusSent, Reason: "it can no longer be sent"}
	}
	if recipient == "" {
		recipient = q.ClientEmail
	}
	if recipient == "" {
		return nil, &core.ValidationError{Field: "recipient", Message: "client has no email address; a recipient is required"}
	}

	doc, err := s.render(ctx, actor, q)
	if err != nil {
		return nil, err
	}
	company, err := s.catalog.GetCompany(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	err = s.mailer.Send(ctx, mail.Message{
		To:             recipient,
		Subject:        fmt.Sprintf("Quotation %s from %s", q.Reference(), company.Name),
		Body:           quotationMailBody(company, q),
		AttachmentName: doc.FileName,
		Attachment:     doc.Data,
	})
	s.metrics.MailSent(err == nil)
	if err != nil {
		return nil, fmt.Errorf("failed to send quotation %s: %w", q.Reference(), err)
	}
	s.log.WithFields(logrus.Fields{
		"company_id":   actor.CompanyID,
		"quotation_id": q.ID,
		"recipient":    recipient,
	}).Info("quotation sent")

	if q.Status == core.StatusDraft {
		sent := core.StatusSent
		updated, err := s.quotations.UpdateQuotation(ctx, actor, q.ID, core.QuotationPatch{Status: &sent})
		if err != nil {
			return nil, fmt.Errorf("quotation %s was mailed but could not be marked sent: %w", q.Reference(), err)
		}
		s.recordTransition(ctx, actor, updated, core.StatusDraft)
		q = updated
	}

	return &SendResult{Quotation: q, Recipient: recipient, ObjectKey: doc.ObjectKey, DownloadURL: doc.DownloadURL}, nil
}

func quotationMailBody(company *core.Company, q *core.Quotation) string {
	body := fmt.Sprintf("Dear %s,\n\nplease find attached our quotation %s over %s %s (tax included).\n",
		q.ClientName, q.Reference(), q.GrandTotal().StringFixed(2), company.Currency)
	if q.ExpiresAt != nil {
		body += fmt.Sprintf("The offer is valid until %s.\n", q.ExpiresAt.Format("2006-01-02"))
	}
	return body + "\nKind regards,\n" + company.Name + "\n"
}

// ── Assistant ────────────────────────────────────────────────────────────────

func (s *appService) DraftQuotation(ctx context.Context, actor core.Actor, text string) (*DraftResult, error) {
	if text == "" {
		return nil, &core.ValidationError{Field: "text", Message: "is required"}
	}

	company, err := s.catalog.GetCompany(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	clients, err := s.catalog.ListClients(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}
	products, err := s.catalog.ListProducts(ctx, actor.CompanyID, false)
	if err != nil {
		return nil, err
	}
	taxes, err := s.catalog.ListTaxes(ctx, actor.CompanyID)
	if err != nil {
		return nil, err
	}

	draft, err := s.drafter.DraftQuotation(ctx, text, ai.Catalog{
		Company:  *company,
		Clients:  clients,
		Products: products,
		Taxes:    taxes,
	})
	if err != nil {
		return nil, err
	}
	return &DraftResult{Draft: draft, Input: draft.Input()}, nil
}

// ── Events ───────────────────────────────────────────────────────────────────

// recordTransition compares persisted statuses, so a quotation that only reads
// as expired does not count as changed.
func (s *appService) recordTransition(ctx context.Context, actor core.Actor, q *core.Quotation, previous core.QuotationStatus) {
	if q.StoredStatus == previous {
		return
	}
	s.metrics.StatusTransition(string(previous), string(q.StoredStatus))
	s.publish(ctx, events.EventQuotationStatusChanged, actor, q, events.StatusChange{
		PreviousStatus: previous,
		NewStatus:      q.StoredStatus,
	})
}

// publish runs after the change is committed. Failures are logged and never
// reach the caller.
func (s *appService) publish(ctx context.Context, eventType events.EventType, actor core.Actor, q *core.Quotation, payload any) {
	event, err := events.NewQuotationEvent(ctx, eventType, actor, q, payload)
	if err == nil {
		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
		defer cancel()
		err = s.events.Publish(pctx, event)
	}
	if err != nil {
		s.log.WithError(err).WithFields(logrus.Fields{
			"event_type":   eventType,
			"quotation_id": q.ID,
		}).Warn("failed to publish quotation event")
	}
}

// ── Users ────────────────────────────────────────────────────────────────────

func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return userResult(u), nil
}

func userResult(u *core.User) *UserResult {
	return &UserResult{
		UserID:      u.ID,
		CompanyID:   u.CompanyID,
		CompanyCode: u.CompanyCode,
		Username:    u.Username,
		Email:       u.Email,
		Role:        u.Role,
	}
}
