package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/meditrack/meditrack-backend/internal/inventory/service"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
)

// ArchiveHandler handles the archived-batch endpoints
type ArchiveHandler struct {
	ledger *service.LedgerService
	logger *logger.Logger
}

// NewArchiveHandler creates a new archive handler
func NewArchiveHandler(ledger *service.LedgerService, log *logger.Logger) *ArchiveHandler {
	return &ArchiveHandler{
		ledger: ledger,
		logger: log,
	}
}

// List lists the branch's archived records
func (h *ArchiveHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")

	archived, err := h.ledger.ArchivedRecords(r.Context(), branchID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, archived)
}

// Archive moves an active batch into the archive
func (h *ArchiveHandler) Archive(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")

	act, err := httputil.RequireActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req struct {
		BatchID string `json:"medicine_stock_in_id"`
		Reason  string `json:"description"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	archived, err := h.ledger.Archive(r.Context(), branchID, req.BatchID, req.Reason, act)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, archived)
}

// Restore moves an archived record back into the active ledger
func (h *ArchiveHandler) Restore(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")
	archivedID := chi.URLParam(r, "id")

	act, err := httputil.RequireActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.ledger.Restore(r.Context(), branchID, archivedID, act)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Delete permanently removes an archived record
func (h *ArchiveHandler) Delete(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")
	archivedID := chi.URLParam(r, "id")

	act, err := httputil.RequireActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.ledger.PermanentDelete(r.Context(), branchID, archivedID, act); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}
