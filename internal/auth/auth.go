// Package auth provides password hashing, JWT session token issuance and
// verification, and the HTTP middleware gating every protected route.
// Tokens are passed in the Authorization header as "Bearer <token>".
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/patric-chuzhbe/musicbox/internal/models"
)

// Auth issues and verifies session tokens for the service.
type Auth struct {
	// signingKey is the HMAC key used to sign JWTs.
	signingKey []byte

	// tokenTTL is the validity window of issued tokens.
	tokenTTL time.Duration
}

// Claims represents the JWT claims used by the system.
// It embeds standard JWT claims and adds the authenticated identity.
type Claims struct {
	jwt.RegisteredClaims
	UserID  int64 `json:"user_id"`
	IsAdmin bool  `json:"is_admin"`
}

// Identity is the verified identity extracted from a session token.
// It is passed down the call chain through the request context.
type Identity struct {
	UserID  int64
	IsAdmin bool
}

// ContextKey is a custom type for storing values in context to avoid collisions.
type ContextKey string

// IdentityKey is the context key under which the verified Identity is stored.
const IdentityKey ContextKey = "identity"

var (
	// ErrNoToken is returned when the Authorization header is absent.
	ErrNoToken = errors.New("access denied: no token provided")

	// ErrInvalidToken is returned for malformed, forged or expired tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// New creates an Auth with the given signing key and token lifetime.
func New(signingKey string, tokenTTL time.Duration) *Auth {
	return &Auth{
		signingKey: []byte(signingKey),
		tokenTTL:   tokenTTL,
	}
}

// HashPassword returns a one-way bcrypt hash of the given password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}

	return string(hash), nil
}

// CheckPassword reports whether the password matches the stored hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// BuildToken issues a signed session token embedding the identity.
func (a *Auth) BuildToken(identity Identity) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.tokenTTL)),
		},
		UserID:  identity.UserID,
		IsAdmin: identity.IsAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString(a.signingKey)
}

// ParseToken verifies the token signature and expiry and returns the
// embedded identity.
func (a *Auth) ParseToken(tokenString string) (Identity, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(
		tokenString,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return a.signingKey, nil
		},
	)
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: claims.UserID, IsAdmin: claims.IsAdmin}, nil
}

// Authenticate is an HTTP middleware gating protected routes. A missing
// Authorization header yields 403, a failed verification yields 401.
// On success the verified Identity is stored in the request context.
func (a *Auth) Authenticate(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		header := request.Header.Get("Authorization")
		if header == "" {
			writeJSONError(response, http.StatusForbidden, "Access denied. No token provided.")

			return
		}

		identity, err := a.ParseToken(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeJSONError(response, http.StatusUnauthorized, "Invalid token")

			return
		}

		ctx := context.WithValue(request.Context(), IdentityKey, identity)
		h.ServeHTTP(response, request.WithContext(ctx))
	}

	return http.HandlerFunc(middleware)
}

// RequireAdmin rejects requests whose verified identity lacks the admin
// flag. It must run after Authenticate.
func (a *Auth) RequireAdmin(h http.Handler) http.Handler {
	middleware := func(response http.ResponseWriter, request *http.Request) {
		identity, ok := IdentityFromContext(request.Context())
		if !ok || !identity.IsAdmin {
			writeJSONError(response, http.StatusForbidden, "Unauthorized access")

			return
		}

		h.ServeHTTP(response, request)
	}

	return http.HandlerFunc(middleware)
}

// IdentityFromContext extracts the verified identity stored by Authenticate.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	identity, ok := ctx.Value(IdentityKey).(Identity)

	return identity, ok
}

func writeJSONError(response http.ResponseWriter, statusCode int, message string) {
	response.Header().Set("Content-Type", "application/json")
	response.WriteHeader(statusCode)
	_ = json.NewEncoder(response).Encode(models.ErrorResponse{Error: message})
}
