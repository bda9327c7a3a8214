package core

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// ValidationError reports malformed or out-of-range input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NotFoundError reports a missing entity. Entities owned by another company are
// reported the same way so existence never leaks across tenants.
type NotFoundError struct {
	Entity string
	ID     any
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %v not found", e.Entity, e.ID)
}

// InvalidTransitionError reports an illegal quotation status change or an edit
// attempted on a quotation that no longer accepts edits.
type InvalidTransitionError struct {
	From   QuotationStatus
	To     QuotationStatus
	Reason string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("quotation is %s: %s", e.From, e.Reason)
	}
	return fmt.Sprintf("cannot transition quotation from %s to %s", e.From, e.To)
}

// UnauthorizedError means no valid identity accompanies the request.
type UnauthorizedError struct {
	Message string
}

func (e *UnauthorizedError) Error() string {
	if e.Message == "" {
		return "authentication required"
	}
	return e.Message
}

// ForbiddenError means the identity is known but lacks the capability.
type ForbiddenError struct {
	Role       string
	Capability Capability
}

func (e *ForbiddenError) Error() string {
	return fmt.Sprintf("role %q is not allowed to %s", e.Role, e.Capability)
}

// uniqueViolation is the SQLSTATE of a duplicate key.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsNotFound reports whether err wraps a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// IsInvalidTransition reports whether err wraps an InvalidTransitionError.
func IsInvalidTransition(err error) bool {
	var it *InvalidTransitionError
	return errors.As(err, &it)
}
