// quotectl is the operator tool: schema migrations, demo data, users and
// quotation inspection.
//
// Usage: go run ./cmd/quotectl --help
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"quotedesk/internal/adapters/cli"
	"quotedesk/internal/app"
	"quotedesk/internal/config"
	"quotedesk/internal/core"
	"quotedesk/internal/db"
	"quotedesk/internal/logging"
	"quotedesk/internal/storage"

	"github.com/sirupsen/logrus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("config: %v", err)
	}
	if cfg.DatabaseURL == "" {
		logrus.Fatal("DATABASE_URL is required")
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		logrus.Fatalf("logging: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	connect := func(ctx context.Context) (*cli.Services, error) {
		pool, err := db.NewPool(ctx, cfg.DatabaseURL, db.PoolOptions{MaxConns: 2})
		if err != nil {
			return nil, err
		}
		users := core.NewUserService(pool)
		deps := app.Deps{
			Quotations: core.NewQuotationService(pool),
			Catalog:    core.NewCatalogService(pool),
			Users:      users,
			Log:        log,
		}
		// PDFs rendered from the command line are archived like those from the API.
		if cfg.MinIO.Endpoint != "" {
			archive, err := storage.NewMinIOArchive(ctx, cfg.MinIO.Endpoint, cfg.MinIO.AccessKey, cfg.MinIO.SecretKey,
				cfg.MinIO.Bucket, cfg.MinIO.UseSSL, log)
			if err != nil {
				pool.Close()
				return nil, err
			}
			deps.Archive = archive
		}
		return &cli.Services{
			App:   app.NewAppService(deps),
			Users: users,
			Seed:  func(ctx context.Context) error { return db.Seed(ctx, pool) },
			Close: pool.Close,
		}, nil
	}

	quotectl := cli.NewApp(cli.Options{
		DatabaseURL: cfg.DatabaseURL,
		Connect:     connect,
		Out:         os.Stdout,
		Log:         log,
	})
	if err := quotectl.RunContext(ctx, os.Args); err != nil {
		log.Fatal(err)
	}
}
