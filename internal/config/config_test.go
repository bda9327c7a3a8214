package config_test

import (
	"testing"
	"time"

	"quotedesk/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/quotedesk")
	t.Setenv("JWT_SECRET", "s3cret")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %q", cfg.Server.Port)
	}
	if cfg.JWT.ExpiresIn != 24*time.Hour {
		t.Errorf("expected 24h token lifetime, got %s", cfg.JWT.ExpiresIn)
	}
	if cfg.Kafka.Topic != "quotations" || len(cfg.Kafka.Brokers) != 0 {
		t.Errorf("unexpected kafka config: %+v", cfg.Kafka)
	}
	if cfg.Redis.Addr != "" || cfg.MinIO.Endpoint != "" || cfg.SMTP.Host != "" {
		t.Error("optional collaborators must be disabled by default")
	}
}

func TestLoad_PrefixedEnvironment(t *testing.T) {
	t.Setenv("QUOTEDESK_DATABASEURL", "postgres://db/quotedesk")
	t.Setenv("QUOTEDESK_JWT_SECRET", "prefixed")
	t.Setenv("QUOTEDESK_SERVER_PORT", "9090")
	t.Setenv("QUOTEDESK_REDIS_ADDR", "localhost:6379")
	t.Setenv("QUOTEDESK_KAFKA_BROKERS", "k1:9092,k2:9092")
	t.Setenv("QUOTEDESK_SMTP_PORT", "2525")
	t.Setenv("QUOTEDESK_SERVER_SHUTDOWNTIMEOUT", "3s")

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.DatabaseURL != "postgres://db/quotedesk" || cfg.JWT.Secret != "prefixed" {
		t.Errorf("prefixed variables not applied: %q %q", cfg.DatabaseURL, cfg.JWT.Secret)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %q", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("expected redis addr, got %q", cfg.Redis.Addr)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "k2:9092" {
		t.Errorf("expected two brokers, got %v", cfg.Kafka.Brokers)
	}
	if cfg.SMTP.Port != 2525 {
		t.Errorf("expected smtp port 2525, got %d", cfg.SMTP.Port)
	}
	if cfg.Server.ShutdownTimeout != 3*time.Second {
		t.Errorf("expected 3s shutdown timeout, got %s", cfg.Server.ShutdownTimeout)
	}
}

func TestValidate_RequiresDatabaseAndSecret(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
	}{
		{"no database", config.Config{JWT: config.JWTConfig{Secret: "x"}}},
		{"no secret", config.Config{DatabaseURL: "postgres://x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.cfg.Validate(); err == nil {
				t.Error("expected an error")
			}
		})
	}
}
