package api

import (
	"database/sql"
	"log/slog"
	"net/http"
	"time"

	"github.com/toolcrib/toolcrib/internal/ledger"
)

// DashboardHandler serves the aggregated overview.
type DashboardHandler struct {
	DB *sql.DB
}

// Summary handles GET /api/dashboard.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	summary, err := ledger.Summarize(r.Context(), h.DB, time.Now().UTC())
	if err != nil {
		slog.Error("failed to build dashboard summary", "error", err)
		jsonError(w, http.StatusInternalServerError, "failed to build dashboard summary")
		return
	}
	jsonResponse(w, http.StatusOK, summary)
}
