// Package cli implements quotectl, the operator tool for schema migrations,
// seeding, user provisioning and quotation inspection.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"quotedesk/internal/app"
	"quotedesk/internal/core"
	"quotedesk/internal/db"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// Services is the stack a command runs against once connected.
type Services struct {
	App   app.ApplicationService
	Users core.UserService
	Seed  func(ctx context.Context) error
	Close func()
}

// Migrator runs schema migrations against a database URL.
type Migrator struct {
	Up      func(databaseURL string) error
	Down    func(databaseURL string, steps int) error
	Version func(databaseURL string) (uint, bool, error)
}

// EmbeddedMigrator applies the migrations compiled into the binary.
var EmbeddedMigrator = Migrator{Up: db.MigrateUp, Down: db.MigrateDown, Version: db.MigrationVersion}

// Options wire the commands to their collaborators. Connect is only called by
// commands that need more than the migrator.
type Options struct {
	DatabaseURL string
	Connect     func(ctx context.Context) (*Services, error)
	Migrator    Migrator
	Out         io.Writer
	Log         logrus.FieldLogger
}

type runner struct {
	opts Options
}

// NewApp builds the quotectl command tree.
func NewApp(opts Options) *cli.App {
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Migrator.Up == nil {
		opts.Migrator = EmbeddedMigrator
	}
	r := &runner{opts: opts}

	return &cli.App{
		Name:   "quotectl",
		Usage:  "operate a quotedesk installation",
		Writer: opts.Out,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "as",
				Usage:   "username whose company and role quotation commands act with",
				EnvVars: []string{"QUOTECTL_USER"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "migrate",
				Usage: "manage the database schema",
				Subcommands: []*cli.Command{
					{Name: "up", Usage: "apply all pending migrations", Action: r.migrateUp},
					{
						Name:   "down",
						Usage:  "roll back migrations",
						Flags:  []cli.Flag{&cli.IntFlag{Name: "steps", Value: 1, Usage: "number of migrations to roll back"}},
						Action: r.migrateDown,
					},
					{Name: "version", Usage: "print the schema version", Action: r.migrateVersion},
				},
			},
			{
				Name:   "seed",
				Usage:  "insert the demo company, taxes, client and products",
				Action: r.seed,
			},
			{
				Name:  "user",
				Usage: "manage users",
				Subcommands: []*cli.Command{
					{
						Name:  "add",
						Usage: "create a user",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "company", Required: true, Usage: "company code"},
							&cli.StringFlag{Name: "username", Required: true},
							&cli.StringFlag{Name: "email"},
							&cli.StringFlag{Name: "role", Value: core.RoleSales, Usage: "admin, manager, sales or viewer"},
							&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"QUOTECTL_PASSWORD"}},
						},
						Action: r.userAdd,
					},
				},
			},
			{
				Name:    "quotations",
				Aliases: []string{"q"},
				Usage:   "inspect quotations",
				Subcommands: []*cli.Command{
					{
						Name:  "list",
						Usage: "list quotations, newest first",
						Flags: []cli.Flag{
							&cli.StringFlag{Name: "status"},
							&cli.IntFlag{Name: "client"},
							&cli.IntFlag{Name: "limit", Value: 50},
						},
						Action: r.quotationsList,
					},
					{Name: "show", Usage: "print one quotation with its lines", ArgsUsage: "<id>", Action: r.quotationsShow},
					{
						Name:      "pdf",
						Usage:     "render a quotation to a PDF file",
						ArgsUsage: "<id>",
						Flags:     []cli.Flag{&cli.StringFlag{Name: "out", Usage: "output path (default: QT-xxxxx.pdf)"}},
						Action:    r.quotationsPDF,
					},
				},
			},
		},
	}
}

// ── Schema ───────────────────────────────────────────────────────────────────

func (r *runner) migrateUp(c *cli.Context) error {
	if err := r.opts.Migrator.Up(r.opts.DatabaseURL); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "Schema is up to date.")
	return nil
}

func (r *runner) migrateDown(c *cli.Context) error {
	steps := c.Int("steps")
	if err := r.opts.Migrator.Down(r.opts.DatabaseURL, steps); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "Rolled back %d migration(s).\n", steps)
	return nil
}

func (r *runner) migrateVersion(c *cli.Context) error {
	v, dirty, err := r.opts.Migrator.Version(r.opts.DatabaseURL)
	if err != nil {
		return err
	}
	if dirty {
		fmt.Fprintf(c.App.Writer, "%d (dirty)\n", v)
		return nil
	}
	fmt.Fprintln(c.App.Writer, v)
	return nil
}

func (r *runner) seed(c *cli.Context) error {
	return r.withServices(c, func(s *Services) error {
		if err := s.Seed(c.Context); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Seeded company %s.\n", db.DemoCompanyCode)
		return nil
	})
}

// ── Users ────────────────────────────────────────────────────────────────────

func (r *runner) userAdd(c *cli.Context) error {
	return r.withServices(c, func(s *Services) error {
		u, err := s.App.CreateUser(c.Context, app.CreateUserRequest{
			CompanyCode: c.String("company"),
			Username:    c.String("username"),
			Email:       c.String("email"),
			Password:    c.String("password"),
			Role:        c.String("role"),
		})
		if err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Created user %s (id %d, %s, company %s).\n", u.Username, u.UserID, u.Role, u.CompanyCode)
		return nil
	})
}

// ── Quotations ───────────────────────────────────────────────────────────────

func (r *runner) quotationsList(c *cli.Context) error {
	return r.withActor(c, func(s *Services, actor core.Actor) error {
		filter := core.QuotationFilter{Limit: c.Int("limit")}
		if st := c.String("status"); st != "" {
			status, err := core.ParseQuotationStatus(st)
			if err != nil {
				return err
			}
			filter.Status = &status
		}
		if id := c.Int("client"); id != 0 {
			filter.ClientID = &id
		}

		result, err := s.App.ListQuotations(c.Context, actor, filter)
		if err != nil {
			return err
		}
		printQuotationList(c.App.Writer, result.Quotations)
		return nil
	})
}

func (r *runner) quotationsShow(c *cli.Context) error {
	id, err := argID(c)
	if err != nil {
		return err
	}
	return r.withActor(c, func(s *Services, actor core.Actor) error {
		result, err := s.App.GetQuotation(c.Context, actor, id)
		if err != nil {
			return err
		}
		printQuotation(c.App.Writer, result.Quotation)
		return nil
	})
}

func (r *runner) quotationsPDF(c *cli.Context) error {
	id, err := argID(c)
	if err != nil {
		return err
	}
	return r.withActor(c, func(s *Services, actor core.Actor) error {
		result, err := s.App.RenderQuotationPDF(c.Context, actor, id)
		if err != nil {
			return err
		}
		out := c.String("out")
		if out == "" {
			out = result.FileName
		}
		if err := os.WriteFile(out, result.Data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Fprintf(c.App.Writer, "Wrote %s (%d bytes).\n", out, len(result.Data))
		if result.ObjectKey != "" {
			fmt.Fprintf(c.App.Writer, "Archived as %s.\n", result.ObjectKey)
		}
		return nil
	})
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func (r *runner) withServices(c *cli.Context, fn func(*Services) error) error {
	if r.opts.Connect == nil {
		return errors.New("no database connection configured")
	}
	s, err := r.opts.Connect(c.Context)
	if err != nil {
		return err
	}
	if s.Close != nil {
		defer s.Close()
	}
	return fn(s)
}

// withActor resolves --as to the user the command acts for. The user's role
// must allow reading quotations.
func (r *runner) withActor(c *cli.Context, fn func(*Services, core.Actor) error) error {
	username := c.String("as")
	if username == "" {
		return errors.New("--as <username> (or QUOTECTL_USER) is required for quotation commands")
	}
	return r.withServices(c, func(s *Services) error {
		u, err := s.Users.GetByUsername(c.Context, username)
		if err != nil {
			return err
		}
		actor := u.Actor()
		if err := actor.Authorize(core.CapQuotationRead); err != nil {
			return err
		}
		r.opts.Log.WithFields(logrus.Fields{"user": username, "company_id": actor.CompanyID}).Debug("acting as user")
		return fn(s, actor)
	})
}

func argID(c *cli.Context) (int, error) {
	id, err := strconv.Atoi(c.Args().First())
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("expected a quotation id, got %q", c.Args().First())
	}
	return id, nil
}

func printQuotationList(w io.Writer, quotations []core.Quotation) {
	if len(quotations) == 0 {
		fmt.Fprintln(w, "No quotations.")
		return
	}
	fmt.Fprintf(w, "%-6s %-10s %-24s %-9s %14s %12s  %s\n", "ID", "NUMBER", "CLIENT", "STATUS", "TOTAL", "TAX", "CREATED")
	fmt.Fprintln(w, strings.Repeat("-", 96))
	for _, q := range quotations {
		fmt.Fprintf(w, "%-6d %-10s %-24s %-9s %14s %12s  %s\n",
			q.ID, q.Reference(), truncate(q.ClientName, 24), q.Status,
			q.Total.StringFixed(2), q.TotalTax.StringFixed(2), q.CreatedAt.Format("2006-01-02"))
	}
}

func printQuotation(w io.Writer, q *core.Quotation) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, strings.Repeat("=", 78))
	fmt.Fprintf(w, "  %s   %s\n", q.Reference(), strings.ToUpper(string(q.Status)))
	fmt.Fprintf(w, "  Client  : %s <%s>\n", q.ClientName, q.ClientEmail)
	fmt.Fprintf(w, "  Created : %s\n", q.CreatedAt.Format("2006-01-02 15:04"))
	if q.SentAt != nil {
		fmt.Fprintf(w, "  Sent    : %s\n", q.SentAt.Format("2006-01-02 15:04"))
	}
	if q.ExpiresAt != nil {
		fmt.Fprintf(w, "  Expires : %s\n", q.ExpiresAt.Format("2006-01-02"))
	}
	fmt.Fprintln(w, strings.Repeat("=", 78))
	fmt.Fprintf(w, "  %-3s %-28s %5s %12s %6s %12s %8s\n", "#", "PRODUCT", "QTY", "UNIT", "TAX%", "SUBTOTAL", "TAX")
	fmt.Fprintln(w, strings.Repeat("-", 78))
	for _, l := range q.Lines {
		fmt.Fprintf(w, "  %-3d %-28s %5d %12s %6s %12s %8s\n",
			l.LineNumber, truncate(l.ProductName, 28), l.Quantity, l.UnitPrice.StringFixed(2),
			l.TaxPercentage.StringFixed(2), l.Subtotal.StringFixed(2), l.LineTax.StringFixed(2))
	}
	fmt.Fprintln(w, strings.Repeat("-", 78))
	fmt.Fprintf(w, "  %-55s %20s\n", "Total", q.Total.StringFixed(2))
	fmt.Fprintf(w, "  %-55s %20s\n", "Tax", q.TotalTax.StringFixed(2))
	fmt.Fprintf(w, "  %-55s %20s\n", "Grand total", q.GrandTotal().StringFixed(2))
	if q.Notes != "" {
		fmt.Fprintf(w, "\n  %s\n", q.Notes)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
