package commands

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/leapstack-labs/leapcrm/internal/cli/output"
	"github.com/leapstack-labs/leapcrm/pkg/core"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// AuthOptions holds options for the login and register commands.
type AuthOptions struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// NewLoginCommand creates the login command.
func NewLoginCommand() *cobra.Command {
	opts := &AuthOptions{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in to the CRM",
		Long: `Sign in and remember the session token for later commands.

The password is read from --password, then from a hidden terminal prompt,
then from the first line of standard input.`,
		Example: `  # Sign in interactively
  leapcrm login --email demo@leapcrm.dev

  # Sign in from a script
  echo "$CRM_PASSWORD" | leapcrm login --email demo@leapcrm.dev`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if opts.Password == "" {
				if opts.Password, err = readPassword(cmd); err != nil {
					return err
				}
			}
			return runLogin(cmd.Context(), cc, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "Account password (prompted when omitted)")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runLogin(ctx context.Context, cc *CommandContext, opts *AuthOptions) error {
	u, err := cc.Session.Login(ctx, strings.TrimSpace(opts.Email), opts.Password)
	if err != nil {
		return fmt.Errorf("login failed: %w", err)
	}
	return renderUser(cc.Renderer, u, "Signed in as "+u.DisplayName())
}

// NewRegisterCommand creates the register command.
func NewRegisterCommand() *cobra.Command {
	opts := &AuthOptions{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Example: `  leapcrm register --email ada@example.com --first-name Ada --last-name Lovelace`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if opts.Password == "" {
				if opts.Password, err = readPassword(cmd); err != nil {
					return err
				}
			}
			return runRegister(cmd.Context(), cc, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Email, "email", "", "Account email")
	cmd.Flags().StringVar(&opts.Password, "password", "", "Account password (prompted when omitted)")
	cmd.Flags().StringVar(&opts.FirstName, "first-name", "", "First name")
	cmd.Flags().StringVar(&opts.LastName, "last-name", "", "Last name")
	_ = cmd.MarkFlagRequired("email")

	return cmd
}

func runRegister(ctx context.Context, cc *CommandContext, opts *AuthOptions) error {
	u, err := cc.Session.Register(ctx, core.RegisterRequest{
		Email:     strings.TrimSpace(opts.Email),
		Password:  opts.Password,
		FirstName: strings.TrimSpace(opts.FirstName),
		LastName:  strings.TrimSpace(opts.LastName),
	})
	if err != nil {
		return fmt.Errorf("registration failed: %w", err)
	}
	return renderUser(cc.Renderer, u, "Account created for "+u.DisplayName())
}

// NewLogoutCommand creates the logout command.
func NewLogoutCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := cc.Session.Logout(cmd.Context()); err != nil {
				return fmt.Errorf("failed to clear session: %w", err)
			}
			cc.Renderer.Success("Signed out")
			return nil
		},
	}
}

// NewWhoamiCommand creates the whoami command.
func NewWhoamiCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Long: `Show the signed-in user, confirming the stored token with the server.
An expired or revoked token is cleared.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cc, cleanup, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			defer cleanup()
			return runWhoami(cmd.Context(), cc)
		},
	}
}

func runWhoami(ctx context.Context, cc *CommandContext) error {
	if err := cc.requireSession(ctx); err != nil {
		return err
	}
	u := cc.Session.User()
	if u == nil {
		return errNotSignedIn
	}
	return renderUser(cc.Renderer, u, "")
}

func renderUser(r *output.Renderer, u *core.User, banner string) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(u)
	}
	if banner != "" {
		r.Success(banner)
	}
	r.KeyValue("Name", u.DisplayName())
	r.KeyValue("Email", u.Email)
	r.KeyValue("User ID", u.ID)
	return nil
}

// readPassword prompts without echo on a terminal and otherwise reads the
// first line of standard input.
func readPassword(cmd *cobra.Command) (string, error) {
	if f, ok := cmd.InOrStdin().(*os.File); ok && term.IsTerminal(int(f.Fd())) { //nolint:gosec // fd fits in int
		_, _ = fmt.Fprint(cmd.ErrOrStderr(), "Password: ")
		b, err := term.ReadPassword(int(f.Fd())) //nolint:gosec // fd fits in int
		_, _ = fmt.Fprintln(cmd.ErrOrStderr())
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(b), nil
	}
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	line = strings.TrimRight(line, "\r\n")
	if line == "" {
		return "", errors.New("password is required")
	}
	return line, nil
}
