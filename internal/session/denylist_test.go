package session_test

import (
	"context"
	"os"
	"testing"
	"time"

	"quotedesk/internal/session"

	"github.com/google/uuid"
)

func TestRedisDenylist(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set; skipping redis test")
	}
	ctx := context.Background()
	d := session.NewRedisDenylist(addr, os.Getenv("TEST_REDIS_PASSWORD"), 0)
	if err := d.Ping(ctx); err != nil {
		t.Fatalf("redis unreachable: %v", err)
	}

	jti := uuid.NewString()
	revoked, err := d.IsRevoked(ctx, jti)
	if err != nil || revoked {
		t.Fatalf("fresh token: expected not revoked, got %v, %v", revoked, err)
	}
	if err := d.Revoke(ctx, jti, time.Now().Add(time.Minute)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	revoked, err = d.IsRevoked(ctx, jti)
	if err != nil || !revoked {
		t.Fatalf("expected revoked, got %v, %v", revoked, err)
	}

	expired := uuid.NewString()
	if err := d.Revoke(ctx, expired, time.Now().Add(-time.Minute)); err != nil {
		t.Fatalf("Revoke of an expired token failed: %v", err)
	}
	if revoked, _ := d.IsRevoked(ctx, expired); revoked {
		t.Error("an already expired token needs no denylist entry")
	}
}

func TestNopDenylist(t *testing.T) {
	var d session.Denylist = session.NopDenylist{}
	if err := d.Revoke(context.Background(), "x", time.Now().Add(time.Hour)); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
	if revoked, err := d.IsRevoked(context.Background(), "x"); err != nil || revoked {
		t.Errorf("expected never revoked, got %v, %v", revoked, err)
	}
}
