package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/leapstack-labs/leapcrm/pkg/core"
)

// Login exchanges credentials for a token and stores the token.
func (c *Client) Login(ctx context.Context, email, password string) (*core.AuthResponse, error) {
	var out core.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", core.LoginRequest{Email: email, Password: password}, &out); err != nil {
		return nil, err
	}
	if err := c.storeToken(out.Token); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates an account and stores the returned token.
func (c *Client) Register(ctx context.Context, req core.RegisterRequest) (*core.AuthResponse, error) {
	var out core.AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", req, &out); err != nil {
		return nil, err
	}
	if err := c.storeToken(out.Token); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me returns the user the stored token belongs to.
func (c *Client) Me(ctx context.Context) (*core.User, error) {
	var out core.User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Logout forgets the stored token. The backend keeps no server-side session.
func (c *Client) Logout() error {
	return c.tokens.ClearToken()
}

func (c *Client) storeToken(token string) error {
	if token == "" {
		return fmt.Errorf("auth response without token: %w", ErrMalformedResponse)
	}
	if err := c.tokens.SetToken(token); err != nil {
		return fmt.Errorf("store session token: %w", err)
	}
	return nil
}
