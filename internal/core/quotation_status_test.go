package core_test

import (
	"testing"
	"time"

	"quotedesk/internal/core"
)

func TestSetStatus_Transitions(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	all := []core.QuotationStatus{core.StatusDraft, core.StatusSent, core.StatusAccepted, core.StatusRejected, core.StatusExpired}
	allowed := map[core.QuotationStatus]map[core.QuotationStatus]bool{
		core.StatusDraft: {core.StatusSent: true},
		core.StatusSent:  {core.StatusAccepted: true, core.StatusRejected: true, core.StatusExpired: true},
	}

	for _, from := range all {
		for _, to := range all {
			q := &core.Quotation{Status: from}
			err := core.SetStatus(q, to, now)
			if allowed[from][to] {
				if err != nil {
					t.Errorf("%s -> %s: unexpected error %v", from, to, err)
				}
				if q.Status != to {
					t.Errorf("%s -> %s: status is %s", from, to, q.Status)
				}
				continue
			}
			if !core.IsInvalidTransition(err) {
				t.Errorf("%s -> %s: expected InvalidTransitionError, got %v", from, to, err)
			}
			if q.Status != from {
				t.Errorf("%s -> %s: status changed to %s on failure", from, to, q.Status)
			}
		}
	}
}

func TestSetStatus_AcceptedIsTerminal(t *testing.T) {
	q := &core.Quotation{Status: core.StatusAccepted}
	for _, to := range []core.QuotationStatus{core.StatusDraft, core.StatusSent, core.StatusRejected, core.StatusExpired, core.StatusAccepted} {
		if err := core.SetStatus(q, to, time.Now()); !core.IsInvalidTransition(err) {
			t.Errorf("accepted -> %s: expected InvalidTransitionError, got %v", to, err)
		}
	}
}

func TestSetStatus_SentStampsSentAt(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	q := &core.Quotation{Status: core.StatusDraft}
	if err := core.SetStatus(q, core.StatusSent, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if q.SentAt == nil || !q.SentAt.Equal(now) {
		t.Errorf("expected sent_at %v, got %v", now, q.SentAt)
	}
}

func TestSetStatus_OverdueQuotationCannotBeAccepted(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	q := &core.Quotation{Status: core.StatusSent, ExpiresAt: &yesterday}

	err := core.SetStatus(q, core.StatusAccepted, now)
	if !core.IsInvalidTransition(err) {
		t.Fatalf("expected InvalidTransitionError, got %v", err)
	}
}

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	yesterday := now.AddDate(0, 0, -1)
	tomorrow := now.AddDate(0, 0, 1)
	justBefore := now.Add(-time.Nanosecond)

	tests := []struct {
		name      string
		status    core.QuotationStatus
		expiresAt *time.Time
		want      core.QuotationStatus
	}{
		{"sent without expiry", core.StatusSent, nil, core.StatusSent},
		{"sent not yet due", core.StatusSent, &tomorrow, core.StatusSent},
		{"sent past expiry", core.StatusSent, &yesterday, core.StatusExpired},
		{"sent expiring exactly now", core.StatusSent, &now, core.StatusSent},
		{"sent one nanosecond past expiry", core.StatusSent, &justBefore, core.StatusExpired},
		{"draft past expiry", core.StatusDraft, &yesterday, core.StatusExpired},
		{"accepted past expiry stays accepted", core.StatusAccepted, &yesterday, core.StatusAccepted},
		{"rejected past expiry stays rejected", core.StatusRejected, &yesterday, core.StatusRejected},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &core.Quotation{Status: tt.status, ExpiresAt: tt.expiresAt}
			if got := core.EffectiveStatus(q, now); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestParseQuotationStatus(t *testing.T) {
	if _, err := core.ParseQuotationStatus("accepted"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if _, err := core.ParseQuotationStatus("ACCEPTED"); !core.IsValidation(err) {
		t.Errorf("expected ValidationError for unknown status, got %v", err)
	}
}
