package service_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/meditrack/meditrack-backend/internal/inventory/events"
	"github.com/meditrack/meditrack-backend/internal/inventory/notify"
	"github.com/meditrack/meditrack-backend/internal/inventory/repository"
	"github.com/meditrack/meditrack-backend/internal/inventory/service"
	"github.com/meditrack/meditrack-backend/pkg/actor"
	"github.com/meditrack/meditrack-backend/pkg/config"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/messaging"
	"github.com/meditrack/meditrack-backend/pkg/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testActor = &actor.Actor{ID: "user-1", Name: "Test Pharmacist", BranchID: "branch-1"}

var batchColumns = []string{
	"id", "medicine_id", "medicine_name", "category", "branch_id",
	"quantity", "date_received", "expiration_date", "created_by",
	"created_at", "updated_at",
}

func newLedger(t *testing.T, dedup *notify.Dedup) (*service.LedgerService, *testutil.MockDB, *testutil.MockPublisher) {
	t.Helper()
	mockDB := testutil.NewMockDB(t)
	t.Cleanup(func() { mockDB.Close() })

	log := logger.New("test", "test")
	mockPub := testutil.NewMockPublisher()

	svc := service.NewLedgerService(
		repository.NewMedicineRepository(mockDB.DB),
		repository.NewBatchRepository(mockDB.DB),
		repository.NewArchiveRepository(mockDB.DB),
		events.NewInventoryEventPublisherWith(mockPub, log),
		dedup,
		&config.InventoryConfig{LowStockThreshold: 50, ExpiryWindowDays: 30},
		log,
	)
	return svc, mockDB, mockPub
}

func newTestDedup(t *testing.T) *notify.Dedup {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return notify.NewDedupWithClient(client, logger.New("test", "test"))
}

func countEvents(pub *testutil.MockPublisher, eventType string) int {
	n := 0
	for _, e := range pub.PublishedEvents {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

func TestLedgerService_StockIn_Validation(t *testing.T) {
	svc, mockDB, mockPub := newLedger(t, nil)
	ctx := context.Background()

	tests := []struct {
		name string
		in   service.StockInInput
		want string
	}{
		{
			name: "zero quantity",
			in: service.StockInInput{
				MedicineName: "Paracetamol", Quantity: 0,
				DateReceived: date(2025, 1, 1), ExpirationDate: date(2025, 6, 1),
			},
			want: "quantity must be greater than zero",
		},
		{
			name: "missing date received",
			in: service.StockInInput{
				MedicineName: "Paracetamol", Quantity: 10,
				ExpirationDate: date(2025, 6, 1),
			},
			want: "date received is required",
		},
		{
			name: "missing expiration",
			in: service.StockInInput{
				MedicineName: "Paracetamol", Quantity: 10,
				DateReceived: date(2025, 1, 1),
			},
			want: "expiration date is required",
		},
		{
			name: "expiration not after received",
			in: service.StockInInput{
				MedicineName: "Paracetamol", Quantity: 10,
				DateReceived: date(2025, 6, 1), ExpirationDate: date(2025, 6, 1),
			},
			want: "expiration date must be after the date received",
		},
		{
			name: "missing medicine",
			in: service.StockInInput{
				Quantity:     10,
				DateReceived: date(2025, 1, 1), ExpirationDate: date(2025, 6, 1),
			},
			want: "medicine name is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.StockIn(ctx, "branch-1", tt.in, testActor)
			require.Error(t, err)
			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.want, appErr.Message)
		})
	}

	// Validation failures never reach the database or the broker.
	mockDB.ExpectationsWereMet(t)
	mockPub.AssertNoEventsPublished(t)
}

func TestLedgerService_StockIn(t *testing.T) {
	svc, mockDB, mockPub := newLedger(t, nil)
	ctx := context.Background()
	now := time.Now()

	// New medicine name: create-or-get misses, then inserts.
	mockDB.ExpectQuery("SELECT * FROM medicines WHERE lower(name)").
		WillReturnError(sql.ErrNoRows)
	mockDB.ExpectQuery("INSERT INTO medicines").
		WillReturnRows(testutil.MockRows("id", "name", "category", "created_at", "updated_at").
			AddRow("med-1", "Paracetamol 500mg", "Analgesic", now, now))
	mockDB.ExpectQuery("INSERT INTO stock_batches").
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))
	mockDB.ExpectQuery("INSERT INTO stock_movements").
		WillReturnRows(testutil.MockRows("created_at").AddRow(now))

	batch, err := svc.StockIn(ctx, "branch-1", service.StockInInput{
		MedicineName:   "Paracetamol 500mg",
		Category:       "Analgesic",
		Quantity:       100,
		DateReceived:   date(2025, 1, 1),
		ExpirationDate: date(2025, 6, 1),
	}, testActor)
	require.NoError(t, err)
	assert.Equal(t, "med-1", batch.MedicineID)
	assert.Equal(t, 100, batch.Quantity)
	assert.Equal(t, "user-1", batch.CreatedBy)

	mockPub.AssertEventPublished(t, messaging.EventStockIn)
	mockDB.ExpectationsWereMet(t)
}

func TestLedgerService_Dispense_RequiresBatch(t *testing.T) {
	svc, _, _ := newLedger(t, nil)

	_, err := svc.Dispense(context.Background(), "branch-1", "", 10, testActor)
	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "cannot dispense: a batch must be selected", appErr.Message)
}

func TestLedgerService_Dispense_InvalidQuantity(t *testing.T) {
	svc, _, _ := newLedger(t, nil)

	for _, qty := range []int{0, -5} {
		_, err := svc.Dispense(context.Background(), "branch-1", "batch-1", qty, testActor)
		require.Error(t, err)
		var appErr *errors.AppError
		require.True(t, errors.As(err, &appErr))
		assert.Equal(t, "invalid quantity", appErr.Message)
	}
}

func TestLedgerService_Dispense_ThenExceedsStock(t *testing.T) {
	svc, mockDB, mockPub := newLedger(t, nil)
	ctx := context.Background()
	now := time.Now()

	row := func(qty int) *sqlmock.Rows {
		return testutil.MockRows(batchColumns...).
			AddRow("batch-1", "med-1", "Paracetamol", "Analgesic", "branch-1",
				qty, date(2025, 1, 1), date(2025, 6, 1), "user-1", now, now)
	}

	// Dispense 30 of 100.
	mockDB.ExpectQuery("FROM stock_batches").WithArgs("batch-1", "branch-1").
		WillReturnRows(row(100))
	mockDB.ExpectQuery("UPDATE stock_batches").WithArgs("batch-1", "branch-1", 30).
		WillReturnRows(testutil.MockRows("quantity").AddRow(70))
	mockDB.ExpectQuery("INSERT INTO stock_movements").
		WillReturnRows(testutil.MockRows("created_at").AddRow(now))
	mockDB.ExpectQuery("FROM stock_batches").WithArgs("branch-1").
		WillReturnRows(row(70))

	batch, err := svc.Dispense(ctx, "branch-1", "batch-1", 30, testActor)
	require.NoError(t, err)
	assert.Equal(t, 70, batch.Quantity)
	mockPub.AssertEventPublished(t, messaging.EventStockDispensed)

	// 71 from the remaining 70 is rejected before any update runs.
	mockDB.ExpectQuery("FROM stock_batches").WithArgs("batch-1", "branch-1").
		WillReturnRows(row(70))

	_, err = svc.Dispense(ctx, "branch-1", "batch-1", 71, testActor)
	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "exceeds stock", appErr.Message)

	// Stock stayed above the threshold the whole time: no low-stock alert.
	assert.Zero(t, countEvents(mockPub, messaging.EventLowStock))
	mockDB.ExpectationsWereMet(t)
}

func TestLedgerService_Dispense_LowStockAlertDeduped(t *testing.T) {
	svc, mockDB, mockPub := newLedger(t, newTestDedup(t))
	ctx := context.Background()
	now := time.Now()

	expectDispense := func(before, amount, after int) {
		mockDB.ExpectQuery("FROM stock_batches").WithArgs("batch-1", "branch-1").
			WillReturnRows(testutil.MockRows(batchColumns...).
				AddRow("batch-1", "med-1", "Paracetamol", "Analgesic", "branch-1",
					before, date(2025, 1, 1), date(2025, 6, 1), "user-1", now, now))
		mockDB.ExpectQuery("UPDATE stock_batches").WithArgs("batch-1", "branch-1", amount).
			WillReturnRows(testutil.MockRows("quantity").AddRow(after))
		mockDB.ExpectQuery("INSERT INTO stock_movements").
			WillReturnRows(testutil.MockRows("created_at").AddRow(now))
		mockDB.ExpectQuery("FROM stock_batches").WithArgs("branch-1").
			WillReturnRows(testutil.MockRows(batchColumns...).
				AddRow("batch-1", "med-1", "Paracetamol", "Analgesic", "branch-1",
					after, date(2025, 1, 1), date(2025, 6, 1), "user-1", now, now))
	}

	// First dispense drops the total to the threshold: one alert.
	expectDispense(60, 10, 50)
	_, err := svc.Dispense(ctx, "branch-1", "batch-1", 10, testActor)
	require.NoError(t, err)
	assert.Equal(t, 1, countEvents(mockPub, messaging.EventLowStock))

	// Still low after the second dispense, but the day's slot is taken.
	expectDispense(50, 10, 40)
	_, err = svc.Dispense(ctx, "branch-1", "batch-1", 10, testActor)
	require.NoError(t, err)
	assert.Equal(t, 1, countEvents(mockPub, messaging.EventLowStock))

	mockDB.ExpectationsWereMet(t)
}

func TestLedgerService_Dispense_LowStockCountsNameVariantsTogether(t *testing.T) {
	svc, mockDB, mockPub := newLedger(t, newTestDedup(t))
	ctx := context.Background()
	now := time.Now()

	// The same medicine filed twice under name variants, so two catalog
	// rows. Dispensing drops batch-1 to 45, but the branch still holds 85
	// of the medicine overall; the check totals per normalized name, like
	// the low-stock view, and stays quiet.
	mockDB.ExpectQuery("FROM stock_batches").WithArgs("batch-1", "branch-1").
		WillReturnRows(testutil.MockRows(batchColumns...).
			AddRow("batch-1", "med-1", "Paracetamol 500mg", "Analgesic", "branch-1",
				55, date(2025, 1, 1), date(2025, 6, 1), "user-1", now, now))
	mockDB.ExpectQuery("UPDATE stock_batches").WithArgs("batch-1", "branch-1", 10).
		WillReturnRows(testutil.MockRows("quantity").AddRow(45))
	mockDB.ExpectQuery("INSERT INTO stock_movements").
		WillReturnRows(testutil.MockRows("created_at").AddRow(now))
	mockDB.ExpectQuery("FROM stock_batches").WithArgs("branch-1").
		WillReturnRows(testutil.MockRows(batchColumns...).
			AddRow("batch-1", "med-1", "Paracetamol 500mg", "Analgesic", "branch-1",
				45, date(2025, 1, 1), date(2025, 6, 1), "user-1", now, now).
			AddRow("batch-2", "med-2", "PARACETAMOL, 500MG", "Analgesic", "branch-1",
				40, date(2025, 2, 1), date(2025, 8, 1), "user-1", now, now))

	_, err := svc.Dispense(ctx, "branch-1", "batch-1", 10, testActor)
	require.NoError(t, err)

	assert.Zero(t, countEvents(mockPub, messaging.EventLowStock))
	mockDB.ExpectationsWereMet(t)
}

func TestLedgerService_Archive_ReasonValidation(t *testing.T) {
	svc, mockDB, mockPub := newLedger(t, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		reason string
		want   string
	}{
		{"empty reason", "", "description required"},
		{"whitespace only", "   ", "description required"},
		{"nine characters", "too short", "description too short"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Archive(ctx, "branch-1", "batch-1", tt.reason, testActor)
			require.Error(t, err)
			var appErr *errors.AppError
			require.True(t, errors.As(err, &appErr))
			assert.Equal(t, tt.want, appErr.Message)
		})
	}

	_, err := svc.Archive(ctx, "branch-1", "", "a perfectly good reason", testActor)
	require.Error(t, err)
	var appErr *errors.AppError
	require.True(t, errors.As(err, &appErr))
	assert.Equal(t, "cannot archive: missing stock record id", appErr.Message)

	mockDB.ExpectationsWereMet(t)
	mockPub.AssertNoEventsPublished(t)
}

func TestLedgerService_Archive_TenCharactersAccepted(t *testing.T) {
	svc, mockDB, mockPub := newLedger(t, nil)
	ctx := context.Background()
	now := time.Now()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("DELETE FROM stock_batches").
		WillReturnRows(testutil.MockRows(
			"medicine_id", "quantity", "date_received", "expiration_date", "created_by",
		).AddRow("med-1", 70, date(2025, 1, 1), date(2025, 6, 1), "user-1"))
	mockDB.ExpectQuery("INSERT INTO archived_batches").
		WillReturnRows(testutil.MockRows("archived_at").AddRow(now))
	mockDB.ExpectCommit()

	// The joined read after the move supplies the medicine fields.
	mockDB.ExpectQuery("FROM archived_batches").WithArgs(testutil.AnyUUID{}, "branch-1").
		WillReturnRows(testutil.MockRows(
			"id", "batch_id", "medicine_id", "medicine_name", "category", "branch_id",
			"quantity", "date_received", "expiration_date", "created_by",
			"reason", "archived_by", "archived_at",
		).AddRow("arch-1", "batch-1", "med-1", "Paracetamol", "Analgesic", "branch-1",
			70, date(2025, 1, 1), date(2025, 6, 1), "user-1",
			"1234567890", "user-1", now))

	archived, err := svc.Archive(ctx, "branch-1", "batch-1", "1234567890", testActor)
	require.NoError(t, err)
	assert.Equal(t, 70, archived.Quantity)
	assert.Equal(t, "Paracetamol", archived.MedicineName)
	assert.Equal(t, "Analgesic", archived.Category)

	mockPub.AssertEventPublished(t, messaging.EventBatchArchived)
	mockDB.ExpectationsWereMet(t)
}

func TestLedgerService_Restore_FillsMedicineDetails(t *testing.T) {
	svc, mockDB, mockPub := newLedger(t, nil)
	ctx := context.Background()
	now := time.Now()

	mockDB.ExpectBegin()
	mockDB.ExpectQuery("DELETE FROM archived_batches").WithArgs("arch-1", "branch-1").
		WillReturnRows(testutil.MockRows(
			"batch_id", "medicine_id", "quantity", "date_received", "expiration_date", "created_by",
		).AddRow("batch-1", "med-1", 70, date(2025, 1, 1), date(2025, 6, 1), "user-1"))
	mockDB.ExpectQuery("INSERT INTO stock_batches").
		WillReturnRows(testutil.MockRows("created_at", "updated_at").AddRow(now, now))
	mockDB.ExpectCommit()

	mockDB.ExpectQuery("FROM stock_batches").WithArgs("batch-1", "branch-1").
		WillReturnRows(testutil.MockRows(batchColumns...).
			AddRow("batch-1", "med-1", "Paracetamol", "Analgesic", "branch-1",
				70, date(2025, 1, 1), date(2025, 6, 1), "user-1", now, now))

	batch, err := svc.Restore(ctx, "branch-1", "arch-1", testActor)
	require.NoError(t, err)
	assert.Equal(t, 70, batch.Quantity)
	assert.Equal(t, "Paracetamol", batch.MedicineName)

	mockPub.AssertEventPublished(t, messaging.EventBatchRestored)
	mockDB.ExpectationsWereMet(t)
}
