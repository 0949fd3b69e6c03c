package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/leapstack-labs/leapcrm/pkg/core"
	"golang.org/x/crypto/bcrypt"
)

// DefaultTokenTTL is how long issued tokens stay valid.
const DefaultTokenTTL = 24 * time.Hour

// minPasswordLen matches the registration rule of the production backend.
const minPasswordLen = 6

type contextKey string

const userIDKey contextKey = "user_id"

// tokenIssuer signs and verifies HS256 bearer tokens.
type tokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func (t *tokenIssuer) issue(userID string) (string, error) {
	now := t.now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(t.ttl)),
		Issuer:    "leapcrm-devserver",
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
}

// verify returns the user id carried by a valid token.
func (t *tokenIssuer) verify(token string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return t.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(t.now),
	)
	if err != nil {
		return "", err
	}
	if claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// requireAuth rejects requests without a valid bearer token.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(strings.ToLower(header), "bearer ") {
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Authorization header required")
			return
		}
		userID, err := s.tokens.verify(strings.TrimSpace(header[len("bearer "):]))
		if err != nil {
			s.logger.Debug("rejected token", "error", err)
			writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid token")
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userIDKey, userID)))
	})
}

func userIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(userIDKey).(string)
	return id
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req core.RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	switch {
	case !strings.Contains(req.Email, "@"):
		writeError(w, http.StatusBadRequest, "INVALID_EMAIL", "a valid email is required")
		return
	case len(req.Password) < minPasswordLen:
		writeError(w, http.StatusBadRequest, "WEAK_PASSWORD", fmt.Sprintf("password must be at least %d characters", minPasswordLen))
		return
	case strings.TrimSpace(req.FirstName) == "" || strings.TrimSpace(req.LastName) == "":
		writeError(w, http.StatusBadRequest, "NAME_REQUIRED", "firstName and lastName are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Failed to hash password")
		return
	}
	user, err := s.store.CreateUser(r.Context(), core.User{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	}, string(hash))
	if errors.Is(err, ErrConflict) {
		writeError(w, http.StatusConflict, "CONFLICT", "User already exists")
		return
	}
	if err != nil {
		writeStoreError(w, s.logger, "user", err)
		return
	}
	s.respondWithToken(w, http.StatusCreated, user)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req core.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	user, hash, err := s.store.UserByEmail(r.Context(), req.Email)
	if err != nil && !errors.Is(err, ErrNotFound) {
		writeStoreError(w, s.logger, "user", err)
		return
	}
	if err != nil || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "INVALID_CREDENTIALS", "Invalid credentials")
		return
	}
	s.respondWithToken(w, http.StatusOK, user)
}

func (s *Server) respondWithToken(w http.ResponseWriter, status int, user *core.User) {
	token, err := s.tokens.issue(user.ID)
	if err != nil {
		s.logger.Error("failed to sign token", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL", "Failed to generate token")
		return
	}
	writeJSON(w, status, core.AuthResponse{Token: token, User: *user})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	user, err := s.store.UserByID(r.Context(), userIDFromContext(r.Context()))
	if errors.Is(err, ErrNotFound) {
		// the account was removed after the token was issued
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "User not found")
		return
	}
	if err != nil {
		writeStoreError(w, s.logger, "user", err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
