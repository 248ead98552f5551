// internal/httpserver/auth.go
//
// Accounts and bearer tokens.
// Responsibilities:
//   - POST /auth/login: create-or-get by username, bcrypt password check, JWT issue.
//   - GET /auth/me: the caller's identity.
//   - requireAuth: HS256-only token verification; the user must still exist.

package httpserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"github.com/robalobadob/wordduel/internal/api"
	"github.com/robalobadob/wordduel/internal/match"
	"github.com/robalobadob/wordduel/internal/store"
)

// authUser is placed into request context by requireAuth.
type authUser struct {
	ID       string
	Username string
}

// ctxUserKey is the context key type for storing authUser.
type ctxUserKey struct{}

func currentUser(r *http.Request) *authUser {
	u, _ := r.Context().Value(ctxUserKey{}).(*authUser)
	return u
}

// handleLogin is create-or-get: an unknown username becomes a new account,
// a known one must present the matching password.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var body api.LoginRequest
	if !decode(w, r, &body) {
		return
	}
	username := normalizeUsername(body.Username)
	if err := validateLogin(username, body.Password); err != nil {
		writeError(w, http.StatusBadRequest, api.CodeBadRequest)
		return
	}

	u, err := s.store.UserByName(r.Context(), username)
	switch {
	case errors.Is(err, store.ErrUserNotFound):
		u, err = s.createUser(r.Context(), username, body.Password)
		if err != nil {
			fail(w, r, err)
			return
		}
		log.Info().Str("user", u.ID).Str("username", u.Username).Msg("user created")
	case err != nil:
		fail(w, r, err)
		return
	case !checkPassword(u.PasswordHash, body.Password):
		writeError(w, http.StatusUnauthorized, api.CodeUnauthorized)
		return
	}

	tok, exp, err := s.signJWT(u.ID, u.Username)
	if err != nil {
		fail(w, r, fmt.Errorf("sign token: %w", err))
		return
	}
	writeJSON(w, api.LoginResponse{Token: tok, ID: u.ID, Username: u.Username, ExpiresAt: exp.Unix()})
}

func (s *Server) createUser(ctx context.Context, username, pw string) (store.User, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, err
	}
	u, err := s.store.CreateUser(ctx, username, string(h))
	if errors.Is(err, store.ErrUserExists) {
		// Lost a race with a concurrent login for the same name.
		u, err = s.store.UserByName(ctx, username)
		if err == nil && !checkPassword(u.PasswordHash, pw) {
			return store.User{}, fmt.Errorf("login %s: %w", username, match.ErrNotAuthenticated)
		}
	}
	return u, err
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	me := currentUser(r)
	writeJSON(w, api.Me{ID: me.ID, Username: me.Username})
}

// checkPassword is a bcrypt verifier.
func checkPassword(hash, pw string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(pw)) == nil
}

// normalizeUsername trims whitespace.
func normalizeUsername(u string) string {
	return strings.TrimSpace(u)
}

// validateLogin enforces basic username/password rules.
func validateLogin(u, p string) error {
	if len(u) < 3 || len(u) > 24 {
		return errors.New("username must be 3-24 chars")
	}
	for _, r := range u {
		if !(r == '_' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return errors.New("username: letters, numbers, underscore only")
		}
	}
	if len(p) < 8 || len(p) > 72 {
		return errors.New("password must be 8-72 chars")
	}
	return nil
}

// ------------------------------ JWT ----------------------------------------

// signJWT creates an HS256 JWT with id/username and the configured expiry.
func (s *Server) signJWT(id, username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(s.opts.JWTExpires)
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"id":       id,
		"username": username,
		"exp":      exp.Unix(),
		"iat":      now.Unix(),
	})
	ss, err := t.SignedString([]byte(s.opts.JWTSecret))
	return ss, exp, err
}

// bearer extracts a bearer token from the Authorization header.
func bearer(r *http.Request) string {
	if a := r.Header.Get("Authorization"); strings.HasPrefix(strings.ToLower(a), "bearer ") {
		return strings.TrimSpace(a[7:])
	}
	return ""
}

// requireAuth enforces a valid JWT and injects authUser into request context.
func (s *Server) requireAuth() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := bearer(r)
			if tokenStr == "" {
				writeError(w, http.StatusUnauthorized, api.CodeUnauthorized)
				return
			}
			claims := jwt.MapClaims{}
			token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
				return []byte(s.opts.JWTSecret), nil
			}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !token.Valid {
				writeError(w, http.StatusUnauthorized, api.CodeUnauthorized)
				return
			}
			id, _ := claims["id"].(string)
			username, _ := claims["username"].(string)
			if id == "" || username == "" {
				writeError(w, http.StatusUnauthorized, api.CodeUnauthorized)
				return
			}
			// Ensure user still exists
			if _, err := s.store.UserByID(r.Context(), id); err != nil {
				writeError(w, http.StatusUnauthorized, api.CodeUnauthorized)
				return
			}
			ctx := context.WithValue(r.Context(), ctxUserKey{}, &authUser{ID: id, Username: username})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
