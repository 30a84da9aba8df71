package handler_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/meditrack/meditrack-backend/internal/inventory/events"
	"github.com/meditrack/meditrack-backend/internal/inventory/handler"
	"github.com/meditrack/meditrack-backend/internal/inventory/repository"
	"github.com/meditrack/meditrack-backend/internal/inventory/service"
	"github.com/meditrack/meditrack-backend/pkg/actor"
	"github.com/meditrack/meditrack-backend/pkg/config"
	"github.com/meditrack/meditrack-backend/pkg/httputil"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// withActor injects an authenticated user the way the JWT middleware would.
func withActor(a *actor.Actor) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(actor.WithActor(r.Context(), a)))
		})
	}
}

func newTestRouter(t *testing.T) (*chi.Mux, *testutil.MockDB) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	log := logger.New("test", "test")
	ledger := service.NewLedgerService(
		repository.NewMedicineRepository(mockDB.DB),
		repository.NewBatchRepository(mockDB.DB),
		repository.NewArchiveRepository(mockDB.DB),
		events.NewInventoryEventPublisherWith(testutil.NewMockPublisher(), log),
		nil,
		&config.InventoryConfig{LowStockThreshold: 50, ExpiryWindowDays: 30},
		log,
	)

	stockHandler := handler.NewStockHandler(ledger, log)
	archiveHandler := handler.NewArchiveHandler(ledger, log)

	r := chi.NewRouter()
	r.Use(withActor(&actor.Actor{ID: "user-1", Name: "Test Pharmacist", BranchID: "branch-1"}))
	r.Route("/api/v1/branches/{branchID}", func(r chi.Router) {
		r.Post("/stock-in", stockHandler.StockIn)
		r.Post("/dispense", stockHandler.Dispense)
		r.Get("/inventory", stockHandler.Inventory)
		r.Post("/archive", archiveHandler.Archive)
	})
	return r, mockDB
}

func doJSON(t *testing.T, router http.Handler, method, path, body string) (*httptest.ResponseRecorder, httputil.Response) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp httputil.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestStockHandler_StockIn(t *testing.T) {
	router, mockDB := newTestRouter(t)
	now := time.Now()

	mockDB.ExpectQuery("SELECT * FROM medicines WHERE lower(name)").
		WillReturnRows(testutil.MockRows("id", "name", "category", "created_at", "updated_at").
			AddRow("med-1", "Paracetamol 500mg", "Analgesic", now, now))
	mockDB.ExpectQuery("INSERT INTO stock_batches").
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))
	mockDB.ExpectQuery("INSERT INTO stock_movements").
		WillReturnRows(testutil.MockRows("created_at").AddRow(now))

	rec, resp := doJSON(t, router, http.MethodPost, "/api/v1/branches/branch-1/stock-in", `{
		"medicine_name": "Paracetamol 500mg",
		"category": "Analgesic",
		"quantity": 100,
		"date_received": "2025-01-01",
		"expiration_date": "2025-06-01"
	}`)

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, resp.Success)
	mockDB.ExpectationsWereMet(t)
}

func TestStockHandler_StockIn_BadDateOrder(t *testing.T) {
	router, mockDB := newTestRouter(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/api/v1/branches/branch-1/stock-in", `{
		"medicine_name": "Paracetamol 500mg",
		"quantity": 100,
		"date_received": "2025-06-01",
		"expiration_date": "2025-01-01"
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "expiration date must be after the date received", resp.Error.Message)
	mockDB.ExpectationsWereMet(t)
}

func TestStockHandler_Dispense_ExceedsStock(t *testing.T) {
	router, mockDB := newTestRouter(t)
	now := time.Now()

	mockDB.ExpectQuery("FROM stock_batches").
		WillReturnRows(testutil.MockRows(
			"id", "medicine_id", "medicine_name", "category", "branch_id",
			"quantity", "date_received", "expiration_date", "created_by",
			"created_at", "updated_at",
		).AddRow("batch-1", "med-1", "Paracetamol", "Analgesic", "branch-1",
			70, now, now.AddDate(0, 5, 0), "user-1", now, now))

	rec, resp := doJSON(t, router, http.MethodPost, "/api/v1/branches/branch-1/dispense", `{
		"medicine_stock_in_id": "batch-1",
		"quantity_dispensed": 71
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "exceeds stock", resp.Error.Message)
	mockDB.ExpectationsWereMet(t)
}

func TestArchiveHandler_ReasonTooShort(t *testing.T) {
	router, mockDB := newTestRouter(t)

	rec, resp := doJSON(t, router, http.MethodPost, "/api/v1/branches/branch-1/archive", `{
		"medicine_stock_in_id": "batch-1",
		"description": "too short"
	}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "description too short", resp.Error.Message)
	mockDB.ExpectationsWereMet(t)
}
