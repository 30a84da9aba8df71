package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meditrack/meditrack-backend/internal/inventory/service"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
)

// StockHandler handles the active-ledger endpoints: stock-in, dispense, and
// the branch inventory views
type StockHandler struct {
	ledger *service.LedgerService
	logger *logger.Logger
}

// NewStockHandler creates a new stock handler
func NewStockHandler(ledger *service.LedgerService, log *logger.Logger) *StockHandler {
	return &StockHandler{
		ledger: ledger,
		logger: log,
	}
}

const dateLayout = "2006-01-02"

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, errors.BadRequest("invalid date, expected YYYY-MM-DD")
	}
	return d, nil
}

// StockIn receives a new batch into the branch ledger
func (h *StockHandler) StockIn(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")

	act, err := httputil.RequireActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req struct {
		MedicineID     string `json:"medicine_id"`
		MedicineName   string `json:"medicine_name"`
		Category       string `json:"category"`
		Quantity       int    `json:"quantity" validate:"required,gt=0"`
		DateReceived   string `json:"date_received" validate:"required"`
		ExpirationDate string `json:"expiration_date" validate:"required"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}
	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	received, err := parseDate(req.DateReceived)
	if err != nil {
		httputil.Error(w, err)
		return
	}
	expiration, err := parseDate(req.ExpirationDate)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.ledger.StockIn(r.Context(), branchID, service.StockInInput{
		MedicineID:     req.MedicineID,
		MedicineName:   req.MedicineName,
		Category:       req.Category,
		Quantity:       req.Quantity,
		DateReceived:   received,
		ExpirationDate: expiration,
	}, act)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, batch)
}

// Dispense removes a quantity from one concrete batch
func (h *StockHandler) Dispense(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")

	act, err := httputil.RequireActor(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req struct {
		BatchID  string `json:"medicine_stock_in_id"`
		Quantity int    `json:"quantity_dispensed"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	batch, err := h.ledger.Dispense(r.Context(), branchID, req.BatchID, req.Quantity, act)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batch)
}

// Inventory returns the branch's full active ledger as a replacement payload
func (h *StockHandler) Inventory(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")

	batches, err := h.ledger.BranchInventory(r.Context(), branchID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, batches)
}

// Aggregated returns the inventory grouped by normalized medicine name.
// ?view_branch= aggregates another branch's ledger, which is how the
// inter-branch request pages see what a neighbor has on the shelf.
func (h *StockHandler) Aggregated(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")
	if view := r.URL.Query().Get("view_branch"); view != "" {
		branchID = view
	}

	rows, err := h.ledger.AggregatedInventory(r.Context(), branchID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, rows)
}

// LowStock returns the branch's medicines at or below the reorder threshold
func (h *StockHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")

	entries, err := h.ledger.LowStockEntries(r.Context(), branchID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// Expiring returns the branch's soon-to-expire batches, most urgent first
func (h *StockHandler) Expiring(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")

	entries, err := h.ledger.ExpiringBatches(r.Context(), branchID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, entries)
}

// Movements returns the branch's stock movement history
func (h *StockHandler) Movements(w http.ResponseWriter, r *http.Request) {
	branchID := chi.URLParam(r, "branchID")

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, _ = strconv.Atoi(v)
	}

	movements, err := h.ledger.Movements(r.Context(), branchID, limit)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, movements)
}
