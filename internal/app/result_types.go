package app

import (
	"quotedesk/internal/ai"
	"quotedesk/internal/core"
)

// QuotationResult is returned by quotation operations.
type QuotationResult struct {
	Quotation *core.Quotation
}

// QuotationListResult is returned by ListQuotations.
type QuotationListResult struct {
	Quotations []core.Quotation
	Limit      int
	Offset     int
}

// PDFResult is returned by RenderQuotationPDF.
type PDFResult struct {
	FileName    string
	Data        []byte
	ObjectKey   string // empty when no archive is configured or archiving failed
	DownloadURL string // time-limited link to the archived copy
}

// SendResult is returned by SendQuotation.
type SendResult struct {
	Quotation   *core.Quotation
	Recipient   string
	ObjectKey   string
	DownloadURL string
}

// DraftResult is returned by DraftQuotation.
type DraftResult struct {
	Draft *ai.QuotationDraft
	Input core.CreateQuotationInput
}

// UserSession is returned by AuthenticateUser.
type UserSession struct {
	UserID      int    `json:"user_id"`
	CompanyID   int    `json:"company_id"`
	CompanyCode string `json:"company_code"`
	Username    string `json:"username"`
	Role        string `json:"role"`
}

// UserResult is returned by GetUser and CreateUser.
type UserResult struct {
	UserID      int
	CompanyID   int
	CompanyCode string
	Username    string
	Email       string
	Role        string
}
