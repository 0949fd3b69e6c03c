package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/leapstack-labs/leapcrm/internal/devserver"
	"github.com/spf13/cobra"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local CRM backend for development",
		Long: `Run a self-contained CRM backend on SQLite.

The first start seeds the lookup lists, a demo user (demo@leapcrm.dev /
demo1234) and --seed-companies companies with their contacts, leads and deals.
Later starts reuse the existing database.`,
		Example: `  # In-memory demo data
  LEAPCRM_SERVE__JWT_SECRET=dev leapcrm serve --database :memory:

  # Persistent database on a custom port
  leapcrm serve --port 9090 --jwt-secret dev --database ./crm.db`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd)
		},
	}

	cmd.Flags().Int("port", 0, "Port to serve on (default: 8080)")
	cmd.Flags().String("database", "", "SQLite database path, or :memory:")
	cmd.Flags().Int("seed-companies", 0, "Companies to seed into an empty database (default: 45)")
	cmd.Flags().String("jwt-secret", "", "Secret used to sign session tokens")

	return cmd
}

func runServe(cmd *cobra.Command) error {
	cc := NewCommandContextWithoutSession(cmd)
	cfg := cc.Cfg
	if err := cfg.ValidateServe(); err != nil {
		return err
	}

	dbPath := cfg.Serve.Database
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0o750); err != nil {
				return fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv, err := devserver.New(ctx, devserver.Config{
		Port:          cfg.Serve.Port,
		DatabasePath:  dbPath,
		JWTSecret:     cfg.Serve.JWTSecret,
		SeedCompanies: cfg.Serve.SeedCompanies,
		Logger:        cc.Logger,
	})
	if err != nil {
		return err
	}
	defer func() { _ = srv.Close() }()

	cc.Renderer.Printf("Serving the CRM API on http://localhost:%d/api\n", cfg.Serve.Port)
	cc.Renderer.Muted("Press Ctrl+C to stop")

	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
