package middleware

import (
	"database/sql"
	"net/http"

	"github.com/isdelr/accounts-be/internal/api/respond"
	"github.com/isdelr/accounts-be/internal/database"
	"github.com/rs/zerolog/hlog"
)

// Session pins one pooled connection to each request. Everything the request
// reads or writes goes through it, and it is returned to the pool when the
// handler finishes, including on panic.
func Session(db *sql.DB) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			conn, err := db.Conn(r.Context())
			if err != nil {
				hlog.FromRequest(r).Error().Err(err).Msg("Failed to acquire database session")
				respond.Detail(w, http.StatusServiceUnavailable, "Database unavailable")
				return
			}
			defer conn.Close()

			next.ServeHTTP(w, r.WithContext(database.WithSession(r.Context(), conn)))
		})
	}
}
