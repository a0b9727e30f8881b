package handlers

import (
	"context"
	"net/http"

	"github.com/isdelr/hackernews-be/internal/resolvers"
	"github.com/rs/zerolog/log"
)

// UserHandler handles signup, login and the current user.
type UserHandler struct {
	resolver *resolvers.Resolver
	retrier  Retrier
}

// NewUserHandler creates a new UserHandler. The retrier is used for login
// and me, which write nothing.
func NewUserHandler(resolver *resolvers.Resolver, retrier Retrier) *UserHandler {
	return &UserHandler{resolver: resolver, retrier: retrier}
}

// CredentialsPayload defines the structure for signup and login requests.
type CredentialsPayload struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// Signup handles new user registration.
func (h *UserHandler) Signup(w http.ResponseWriter, r *http.Request) {
	rc, err := requestContext(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var payload CredentialsPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	res, err := h.resolver.Signup(r.Context(), rc, payload.Login, payload.Password)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	log.Info().Int64("user_id", res.User.ID).Str("login", res.User.Login).Msg("User signed up")
	writeJSON(w, http.StatusCreated, res)
}

// Login handles user authentication and token issuance.
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	rc, err := requestContext(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}
	var payload CredentialsPayload
	if err := decodeJSON(w, r, &payload); err != nil {
		WriteError(w, r, err)
		return
	}

	var res resolvers.AuthPayload
	err = h.retrier.Do(r.Context(), func(ctx context.Context) error {
		var lerr error
		res, lerr = h.resolver.Login(ctx, rc, payload.Login, payload.Password)
		return lerr
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Me returns the authenticated caller.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	rc, err := requestContext(r)
	if err != nil {
		WriteError(w, r, err)
		return
	}

	var user resolvers.UserPayload
	err = h.retrier.Do(r.Context(), func(ctx context.Context) error {
		var merr error
		user, merr = h.resolver.Me(ctx, rc)
		return merr
	})
	if err != nil {
		WriteError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}
