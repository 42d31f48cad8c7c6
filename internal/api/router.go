package api

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/accounts-be/internal/api/handlers"
	"github.com/isdelr/accounts-be/internal/api/middleware"
	"github.com/isdelr/accounts-be/internal/services"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	db *sql.DB,
	userService services.UserServiceProvider,
	authService services.AuthServiceProvider,
	loginLimiter *middleware.IPRateLimiter,
	allowedOrigins []string,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(chimw.Recoverer)
	r.Use(chimw.StripSlashes)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(userService, authService)
	healthHandler := handlers.NewHealthHandler(db)

	r.Get("/", healthHandler.Root)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", healthHandler.Get)

		// Everything below runs on one pinned database session per request.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Session(db))

			r.With(loginLimiter.Middleware).Post("/login", userHandler.Login)
			r.Post("/signup", userHandler.Signup)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireUser(authService))
				r.Get("/me", userHandler.Me)

				r.Route("/users", func(r chi.Router) {
					r.Use(middleware.RequireAdmin)
					r.Get("/", userHandler.List)
					r.Route("/{id}", func(r chi.Router) {
						r.Get("/", userHandler.Get)
						r.Patch("/", userHandler.Update)
						r.Delete("/", userHandler.Delete)
					})
				})
			})
		})
	})

	return r
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	hlog.FromRequest(r).Info().
		Str("request_id", chimw.GetReqID(r.Context())).
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("request")
}
