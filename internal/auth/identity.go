package auth

import (
	"net/http"
	"strings"

	"github.com/isdelr/hackernews-be/internal/apperr"
)

// Identity is the caller of a request. The zero value is anonymous.
type Identity struct {
	UserID int64
}

// Anonymous reports whether no user was identified.
func (i Identity) Anonymous() bool { return i.UserID == 0 }

// Require returns the caller's user id, or apperr.ErrNotAuthenticated for
// anonymous callers.
func (i Identity) Require() (int64, error) {
	if i.Anonymous() {
		return 0, apperr.ErrNotAuthenticated
	}
	return i.UserID, nil
}

// TokenVerifier is the part of TokenService the resolver needs.
type TokenVerifier interface {
	Verify(token string) (int64, error)
}

// IdentityResolver extracts the caller's identity from request headers.
type IdentityResolver struct {
	tokens TokenVerifier
}

// NewIdentityResolver creates an IdentityResolver backed by tokens.
func NewIdentityResolver(tokens TokenVerifier) *IdentityResolver {
	return &IdentityResolver{tokens: tokens}
}

// Resolve reads the Authorization header. A missing header yields an
// anonymous identity; "Bearer" with no token yields ErrMissingToken; anything
// else that fails verification yields ErrNotAuthenticated.
func (r *IdentityResolver) Resolve(header http.Header) (Identity, error) {
	authHeader := strings.TrimSpace(header.Get("Authorization"))
	if authHeader == "" {
		return Identity{}, nil
	}

	scheme, token, _ := strings.Cut(authHeader, " ")
	if !strings.EqualFold(scheme, "Bearer") {
		return Identity{}, apperr.Wrap(apperr.NotAuthenticated, "not authenticated", apperr.ErrInvalidToken)
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, apperr.ErrMissingToken
	}

	userID, err := r.tokens.Verify(token)
	if err != nil {
		return Identity{}, apperr.Wrap(apperr.NotAuthenticated, "not authenticated", err)
	}
	return Identity{UserID: userID}, nil
}
