package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/leapstack-labs/leapcrm/internal/api"
	"github.com/leapstack-labs/leapcrm/internal/cli/config"
	"github.com/leapstack-labs/leapcrm/internal/cli/output"
	"github.com/leapstack-labs/leapcrm/internal/picklist"
	"github.com/leapstack-labs/leapcrm/internal/session"
	"github.com/spf13/cobra"
)

// CommandContext holds common dependencies for CLI commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer
	Session  *session.Manager
	Client   *api.Client
	Cache    *picklist.Cache
}

// NewCommandContext opens the session store and builds an API client bound
// to it. Returns the context and a cleanup function that must be called
// (typically via defer).
func NewCommandContext(cmd *cobra.Command) (*CommandContext, func(), error) {
	cfg := getConfig()
	logger := config.GetLogger(cmd.Context())

	store, err := openSessionStore(cmd.Context(), cfg.SessionPath)
	if err != nil {
		return nil, nil, err
	}

	r := output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat))
	cc := newCommandContext(cfg, logger, r, store)

	cleanup := func() {
		if err := store.Close(); err != nil {
			logger.Warn("failed to close session store", "error", err)
		}
	}
	return cc, cleanup, nil
}

// NewCommandContextWithoutSession creates a CommandContext without a
// session or client. Useful for commands that never reach the API.
func NewCommandContextWithoutSession(cmd *cobra.Command) *CommandContext {
	cfg := getConfig()
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(cmd.Context()),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

func newCommandContext(cfg *config.Config, logger *slog.Logger, r *output.Renderer, store session.Store) *CommandContext {
	m := session.NewManager(store, logger)
	client := m.Client(cfg.APIURL, api.WithTimeout(cfg.Timeout))
	return &CommandContext{
		Cfg:      cfg,
		Logger:   logger,
		Renderer: r,
		Session:  m,
		Client:   client,
		Cache:    picklist.NewCache(),
	}
}

// openSessionStore opens the SQLite session database, creating its
// directory. An empty path or ":memory:" keeps the session in memory.
func openSessionStore(ctx context.Context, path string) (session.Store, error) {
	if path == "" || path == ":memory:" {
		return session.NewMemoryStore(), nil
	}
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create session directory: %w", err)
		}
	}
	store, err := session.OpenSQLite(ctx, path)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// getConfig returns the current configuration, or defaults when none was loaded.
func getConfig() *config.Config {
	if cfg := config.GetCurrentConfig(); cfg != nil {
		return cfg
	}
	return config.Default()
}

// requireSession restores the stored session and waits until the server has
// confirmed it, so commands fail fast with a clear message when signed out.
func (cc *CommandContext) requireSession(ctx context.Context) error {
	_, err := cc.Session.Restore(ctx)
	if err == nil {
		_, err = cc.Session.Reconciled(ctx)
	}
	switch {
	case err == nil:
		return nil
	case errors.Is(err, session.ErrNoSession):
		return errNotSignedIn
	case errors.Is(err, api.ErrUnauthorized):
		return fmt.Errorf("%w\nHint: your session expired, run 'leapcrm login'", err)
	default:
		return err
	}
}

var errNotSignedIn = errors.New("not signed in\nHint: run 'leapcrm login' first")
