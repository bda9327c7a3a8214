// server runs the quotedesk HTTP API.
//
// Usage: go run ./cmd/server
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	webAdapter "quotedesk/internal/adapters/web"
	"quotedesk/internal/ai"
	"quotedesk/internal/app"
	"quotedesk/internal/config"
	"quotedesk/internal/core"
	"quotedesk/internal/db"
	"quotedesk/internal/events"
	"quotedesk/internal/logging"
	"quotedesk/internal/mail"
	"quotedesk/internal/metrics"
	"quotedesk/internal/session"
	"quotedesk/internal/storage"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("config: %v", err)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := db.MigrateUp(cfg.DatabaseURL); err != nil {
		log.Fatalf("migrations: %v", err)
	}
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{
		MaxConns:        cfg.Database.MaxConns,
		MaxConnLifetime: cfg.Database.MaxConnLifetime,
	})
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	m := metrics.New()
	deps := app.Deps{
		Quotations: core.NewQuotationService(pool),
		Catalog:    core.NewCatalogService(pool),
		Users:      core.NewUserService(pool),
		Metrics:    m,
		Log:        log,
	}

	if cfg.MinIO.Endpoint != "" {
		archive, err := storage.NewMinIOArchive(ctx, cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey,
			cfg.MinIO.Bucket, cfg.MinIO.UseSSL, log)
		if err != nil {
			log.Fatalf("minio: %v", err)
		}
		deps.Archive = archive
		log.WithField("bucket", cfg.MinIO.Bucket).Info("pdf archive enabled")
	} else {
		log.Warn("MINIO endpoint not set; quotation PDFs will not be archived")
	}

	if cfg.SMTP.Host != "" {
		deps.Mailer = mail.NewSMTPSender(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.From)
		log.WithField("host", cfg.SMTP.Host).Info("quotation mailing enabled")
	} else {
		log.Warn("SMTP host not set; sending quotations is disabled")
	}

	if len(cfg.Kafka.Brokers) > 0 {
		publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, log)
		defer publisher.Close()
		deps.Events = publisher
		log.WithField("topic", cfg.Kafka.Topic).Info("event publishing enabled")
	}

	if cfg.OpenAI.APIKey != "" {
		deps.Drafter = ai.NewAgent(cfg.OpenAI.APIKey, cfg.OpenAI.Model)
	} else {
		log.Warn("OPENAI_API_KEY is not set; drafting from text is disabled")
	}

	var denylist session.Denylist = session.NopDenylist{}
	if cfg.Redis.Addr != "" {
		redisDenylist := session.NewRedisDenylist(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := redisDenylist.Ping(ctx); err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer redisDenylist.Close()
		denylist = redisDenylist
	} else {
		log.Warn("REDIS address not set; logout will not revoke issued tokens")
	}

	svc := app.NewAppService(deps)
	handler := webAdapter.NewHandler(svc, webAdapter.Options{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		JWTSecret:      cfg.JWT.Secret,
		TokenTTL:       cfg.JWT.ExpiresIn,
		Denylist:       denylist,
		Metrics:        m,
		Log:            log,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("server starting on :%s", cfg.Server.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.WithError(err).Error("graceful shutdown failed")
		}
	}
}
