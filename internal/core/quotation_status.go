package core

import "time"

var quotationTransitions = map[QuotationStatus][]QuotationStatus{
	StatusDraft: {StatusSent},
	StatusSent:  {StatusAccepted, StatusRejected, StatusExpired},
}

// IsTerminal reports whether no transition leaves status s.
func (s QuotationStatus) IsTerminal() bool {
	return len(quotationTransitions[s]) == 0
}

// CanTransition reports whether from → to is an allowed explicit transition.
func CanTransition(from, to QuotationStatus) bool {
	for _, allowed := range quotationTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// EffectiveStatus is the status a reader observes at now: a non-terminal
// quotation whose expiry has passed is expired, whatever the stored value says.
// A quotation is still open at the exact instant of its expiry.
func EffectiveStatus(q *Quotation, now time.Time) QuotationStatus {
	if !q.Status.IsTerminal() && q.ExpiresAt != nil && now.After(*q.ExpiresAt) {
		return StatusExpired
	}
	return q.Status
}

// SetStatus applies an explicit transition to q in memory. The current status is
// first coerced to its effective value, so an overdue quotation cannot be accepted.
func SetStatus(q *Quotation, target QuotationStatus, now time.Time) error {
	current := EffectiveStatus(q, now)
	if current.IsTerminal() {
		return &InvalidTransitionError{From: current, To: target}
	}
	if !CanTransition(current, target) {
		return &InvalidTransitionError{From: current, To: target}
	}
	q.Status = target
	if target == StatusSent && q.SentAt == nil {
		sentAt := now
		q.SentAt = &sentAt
	}
	return nil
}
