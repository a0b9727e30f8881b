package api

import (
	"net/http"

	"github.com/isdelr/hackernews-be/internal/api/handlers"
	"github.com/isdelr/hackernews-be/internal/auth"
	"github.com/isdelr/hackernews-be/internal/resolvers"
	"github.com/rs/zerolog/log"
)

// RequestContextMiddleware resolves the caller and attaches a
// resolvers.RequestContext to every request. Anonymous callers pass
// through; a present but unusable Authorization header is rejected.
func RequestContextMiddleware(identities *auth.IdentityResolver, data resolvers.DataAccess, events resolvers.EventChannel) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, err := identities.Resolve(r.Header)
			if err != nil {
				handlers.WriteError(w, r, err)
				return
			}
			if !identity.Anonymous() {
				log.Debug().Int64("user_id", identity.UserID).Str("path", r.URL.Path).Msg("Authenticated request")
			}

			rc := &resolvers.RequestContext{
				Identity: identity,
				Data:     data,
				Events:   events,
			}
			next.ServeHTTP(w, r.WithContext(resolvers.WithRequestContext(r.Context(), rc)))
		})
	}
}
