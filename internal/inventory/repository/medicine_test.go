package repository_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/meditrack/meditrack-backend/internal/inventory/repository"
	"github.com/meditrack/meditrack-backend/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMedicineRepository_CreateOrGet_ReusesExisting(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	now := time.Now()
	mockDB.ExpectQuery("SELECT * FROM medicines WHERE lower(name)").
		WithArgs("paracetamol").
		WillReturnRows(testutil.MockRows("id", "name", "category", "created_at", "updated_at").
			AddRow("med-1", "Paracetamol", "Analgesic", now, now))

	repo := repository.NewMedicineRepository(mockDB.DB)

	med, err := repo.CreateOrGet(context.Background(), "paracetamol", "Analgesic")
	require.NoError(t, err)

	// Same name, different casing: the existing medicine is reused, no insert.
	assert.Equal(t, "med-1", med.ID)
	assert.Equal(t, "Paracetamol", med.Name)

	mockDB.ExpectationsWereMet(t)
}

func TestMedicineRepository_CreateOrGet_CreatesNew(t *testing.T) {
	mockDB := testutil.NewMockDB(t)
	defer mockDB.Close()

	now := time.Now()
	mockDB.ExpectQuery("SELECT * FROM medicines WHERE lower(name)").
		WillReturnError(sql.ErrNoRows)
	mockDB.ExpectQuery("INSERT INTO medicines").
		WillReturnRows(testutil.MockRows("id", "name", "category", "created_at", "updated_at").
			AddRow("med-2", "Ibuprofen", "Analgesic", now, now))

	repo := repository.NewMedicineRepository(mockDB.DB)

	med, err := repo.CreateOrGet(context.Background(), "Ibuprofen", "Analgesic")
	require.NoError(t, err)
	assert.Equal(t, "med-2", med.ID)

	mockDB.ExpectationsWereMet(t)
}
