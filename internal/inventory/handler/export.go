package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meditrack/meditrack-backend/internal/inventory/service"
	"github.com/meditrack/meditrack-backend/pkg/logger"
)

// ExportHandler serves CSV exports of the branch ledger and archive
type ExportHandler struct {
	ledger *service.LedgerService
	logger *logger.Logger
}

// NewExportHandler creates a new export handler
func NewExportHandler(ledger *service.LedgerService, log *logger.Logger) *ExportHandler {
	return &ExportHandler{
		ledger: ledger,
		logger: log,
	}
}

func serveCSV(w http.ResponseWriter, prefix string, header []string, records [][]string) {
	filename := fmt.Sprintf("%s-%s.csv", prefix, time.Now().Format("2006-01-02"))
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))

	cw := csv.NewWriter(w)
	cw.Write(header)
	for _, rec := range records {
		cw.Write(rec)
	}
	cw.Flush()
}

// Inventory exports the branch's active ledger as CSV
func (h *ExportHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")

	batches, err := h.ledger.BranchInventory(r.Context(), branchID)
	if err != nil {
		h.logger.Error().Err(err).Str("branch_id", branchID).Msg("failed to export inventory")
		http.Error(w, "Failed to generate export", http.StatusInternalServerError)
		return
	}

	records := make([][]string, 0, len(batches))
	for _, b := range batches {
		records = append(records, []string{
			b.ID,
			b.MedicineName,
			b.Category,
			strconv.Itoa(b.Quantity),
			b.DateReceived.Format("2006-01-02"),
			b.ExpirationDate.Format("2006-01-02"),
		})
	}

	serveCSV(w, "inventory",
		[]string{"batch_id", "medicine", "category", "quantity", "date_received", "expiration_date"},
		records)
}

// Archived exports the branch's archived records as CSV
func (h *ExportHandler) Archived(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")

	archived, err := h.ledger.ArchivedRecords(r.Context(), branchID)
	if err != nil {
		h.logger.Error().Err(err).Str("branch_id", branchID).Msg("failed to export archive")
		http.Error(w, "Failed to generate export", http.StatusInternalServerError)
		return
	}

	records := make([][]string, 0, len(archived))
	for _, a := range archived {
		records = append(records, []string{
			a.ID,
			a.BatchID,
			a.MedicineName,
			strconv.Itoa(a.Quantity),
			a.Reason,
			a.ArchivedAt.Format("2006-01-02"),
		})
	}

	serveCSV(w, "archived-stock",
		[]string{"archived_id", "batch_id", "medicine", "quantity", "reason", "archived_at"},
		records)
}
