package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/redis/go-redis/v9"
)

const revokedKeyPrefix = "quotedesk:revoked:"

// Denylist records revoked session token ids until they would have expired anyway.
type Denylist interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, tokenID string) (bool, error)
}

type RedisDenylist struct {
	client redis.Cmdable
	now    func() time.Time
}

func NewRedisDenylist(addr, password string, db int) *RedisDenylist {
	return NewRedisDenylistWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}))
}

func NewRedisDenylistWithClient(client redis.Cmdable) *RedisDenylist {
	return &RedisDenylist{client: client, now: time.Now}
}

func (d *RedisDenylist) Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(d.now())
	if ttl <= 0 {
		return nil
	}
	if err := d.client.Set(ctx, revokedKeyPrefix+tokenID, 1, ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke session %s: %w", tokenID, err)
	}
	return nil
}

func (d *RedisDenylist) IsRevoked(ctx context.Context, tokenID string) (bool, error) {
	err := d.client.Get(ctx, revokedKeyPrefix+tokenID).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check session %s: %w", tokenID, err)
	}
	return true, nil
}

// Ping verifies the connection.
func (d *RedisDenylist) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

// Close releases the client when it owns a connection pool.
func (d *RedisDenylist) Close() error {
	if c, ok := d.client.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// NopDenylist never revokes. Logout then only clears the cookie.
type NopDenylist struct{}

func (NopDenylist) Revoke(context.Context, string, time.Time) error { return nil }

func (NopDenylist) IsRevoked(context.Context, string) (bool, error) { return false, nil }
