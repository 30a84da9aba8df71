package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meditrack/meditrack-backend/internal/inventory/service"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
)

// DashboardHandler handles the branch dashboard endpoint
type DashboardHandler struct {
	ledger *service.LedgerService
	logger *logger.Logger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(ledger *service.LedgerService, log *logger.Logger) *DashboardHandler {
	return &DashboardHandler{
		ledger: ledger,
		logger: log,
	}
}

// Stats returns the branch's dashboard summary
func (h *DashboardHandler) Stats(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")

	stats, err := h.ledger.DashboardStats(r.Context(), branchID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, stats)
}
