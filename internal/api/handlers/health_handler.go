package handlers

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"time"

	"github.com/isdelr/accounts-be/internal/api/respond"
	"github.com/rs/zerolog/hlog"
	"github.com/shirou/gopsutil/v3/process"
)

const healthTimeout = 2 * time.Second

// HealthResponse reports liveness of the process and its database.
type HealthResponse struct {
	Status        string  `json:"status"`
	Database      string  `json:"database"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	RSSBytes      uint64  `json:"rss_bytes"`
}

// HealthHandler serves the health check and the root greeting.
type HealthHandler struct {
	db      *sql.DB
	started time.Time
	proc    *process.Process
}

// NewHealthHandler creates a new HealthHandler. Process stats are omitted when
// the current process cannot be inspected.
func NewHealthHandler(db *sql.DB) *HealthHandler {
	proc, _ := process.NewProcess(int32(os.Getpid()))
	return &HealthHandler{db: db, started: time.Now(), proc: proc}
}

// Get pings the database and reports process uptime and resident memory.
func (h *HealthHandler) Get(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:        "ok",
		Database:      "ok",
		UptimeSeconds: time.Since(h.started).Seconds(),
	}
	code := http.StatusOK

	if err := h.db.PingContext(ctx); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Health check database ping failed")
		resp.Status = "degraded"
		resp.Database = "unavailable"
		code = http.StatusServiceUnavailable
	}

	if h.proc != nil {
		if mem, err := h.proc.MemoryInfoWithContext(ctx); err == nil {
			resp.RSSBytes = mem.RSS
		}
	}

	respond.JSON(w, code, resp)
}

// Root answers GET / with a fixed greeting.
func (h *HealthHandler) Root(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, map[string]string{"message": "Hello World"})
}
