package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/meditrack/meditrack-backend/internal/inventory/repository"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequestRepository_Create(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectQuery("INSERT INTO medicine_requests").
		WillReturnRows(testutil.MockRows("created_at").AddRow(time.Now()))

	repo := repository.NewRequestRepository(mockDB.DB)

	req := &repository.MedicineRequest{
		FromBranchID: "branch-1",
		ToBranchID:   "branch-2",
		MedicineName: "Amoxicillin 500mg",
		Quantity:     20,
		RequestedBy:  "user-1",
	}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.Equal(t, repository.RequestStatusPending, req.Status)
	assert.NotEmpty(t, req.ID)

	mockDB.ExpectationsWereMet(t)
}

func TestRequestRepository_Decide(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	mockDB.ExpectExec("UPDATE medicine_requests").
		WillReturnResult(sqlmock.NewResult(0, 1))

	repo := repository.NewRequestRepository(mockDB.DB)

	err := repo.Decide(context.Background(), "req-1", repository.RequestStatusApproved, "user-2", nil)
	require.NoError(t, err)

	mockDB.ExpectationsWereMet(t)
}

func TestRequestRepository_Decide_AlreadyDecided(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	now := time.Now()
	mockDB.ExpectExec("UPDATE medicine_requests").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery("SELECT * FROM medicine_requests").
		WillReturnRows(testutil.MockRows(
			"id", "from_branch_id", "to_branch_id", "medicine_name", "quantity",
			"status", "requested_by", "decided_by", "note", "created_at", "decided_at", "fulfilled_at",
		).AddRow("req-1", "branch-1", "branch-2", "Amoxicillin 500mg", 20,
			repository.RequestStatusRejected, "user-1", "user-2", nil, now, now, nil))

	repo := repository.NewRequestRepository(mockDB.DB)

	err := repo.Decide(context.Background(), "req-1", repository.RequestStatusApproved, "user-3", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))

	mockDB.ExpectationsWereMet(t)
}

func TestRequestRepository_MarkFulfilled_RequiresApproved(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	now := time.Now()
	mockDB.ExpectExec("UPDATE medicine_requests").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mockDB.ExpectQuery("SELECT * FROM medicine_requests").
		WillReturnRows(testutil.MockRows(
			"id", "from_branch_id", "to_branch_id", "medicine_name", "quantity",
			"status", "requested_by", "decided_by", "note", "created_at", "decided_at", "fulfilled_at",
		).AddRow("req-1", "branch-1", "branch-2", "Amoxicillin 500mg", 20,
			repository.RequestStatusPending, "user-1", nil, nil, now, nil, nil))

	repo := repository.NewRequestRepository(mockDB.DB)

	err := repo.MarkFulfilled(context.Background(), "req-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrConflict))

	mockDB.ExpectationsWereMet(t)
}
