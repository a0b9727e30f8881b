package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/hackernews-be/internal/api/handlers"
	"github.com/isdelr/hackernews-be/internal/auth"
	"github.com/isdelr/hackernews-be/internal/resolvers"
)

// Deps holds everything the router wires into handlers.
type Deps struct {
	Resolver       *resolvers.Resolver
	Identities     *auth.IdentityResolver
	Data           resolvers.DataAccess
	Events         resolvers.EventChannel
	Stats          handlers.SnapshotProvider
	AllowedOrigins []string
	DataRetries    int
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	retrier := handlers.NewRetrier(deps.DataRetries)
	linkHandler := handlers.NewLinkHandler(deps.Resolver, retrier)
	userHandler := handlers.NewUserHandler(deps.Resolver, retrier)
	wsHandler := handlers.NewWebSocketHandler(deps.Resolver, deps.AllowedOrigins)
	healthHandler := handlers.NewHealthHandler(deps.Stats)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)

		r.Group(func(r chi.Router) {
			r.Use(RequestContextMiddleware(deps.Identities, deps.Data, deps.Events))

			r.Get("/info", linkHandler.Info)
			r.Get("/feed", linkHandler.Feed)
			r.Get("/me", userHandler.Me)

			r.Route("/links", func(r chi.Router) {
				r.Post("/", linkHandler.Post)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", linkHandler.Get)
					r.Post("/vote", linkHandler.Vote)
				})
			})

			r.Route("/auth", func(r chi.Router) {
				r.Post("/signup", userHandler.Signup)
				r.Post("/login", userHandler.Login)
			})

			r.Get("/subscriptions/new-link", wsHandler.NewLink)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "Not found", http.StatusNotFound)
	})

	return r
}
