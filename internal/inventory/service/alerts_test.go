package service_test

import (
	"testing"

	"github.com/meditrack/meditrack-backend/internal/inventory/repository"
	"github.com/meditrack/meditrack-backend/internal/inventory/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLowStock_InclusiveBoundary(t *testing.T) {
	rows := []service.AggregatedRow{
		{MedicineName: "Paracetamol", TotalQuantity: 50},
		{MedicineName: "Ibuprofen", TotalQuantity: 51},
		{MedicineName: "Cetirizine", TotalQuantity: 0},
	}

	entries := service.LowStock(rows, 50)
	require.Len(t, entries, 2)

	// Sorted most depleted first.
	assert.Equal(t, "Cetirizine", entries[0].MedicineName)
	assert.Equal(t, "Paracetamol", entries[1].MedicineName)
	assert.Equal(t, 50, entries[1].TotalQuantity)
}

func TestLowStock_ThresholdIsParameter(t *testing.T) {
	rows := []service.AggregatedRow{
		{MedicineName: "Paracetamol", TotalQuantity: 80},
	}

	assert.Empty(t, service.LowStock(rows, 50))
	assert.Len(t, service.LowStock(rows, 80), 1)
}

func TestExpiring_WindowAndOrdering(t *testing.T) {
	now := date(2025, 3, 1)
	batches := []*repository.StockBatch{
		batch("b1", "Paracetamol", "Analgesic", 10, date(2025, 1, 1), date(2025, 3, 20)),
		batch("b2", "Ibuprofen", "Analgesic", 5, date(2025, 1, 1), date(2025, 3, 5)),
		batch("b3", "Cetirizine", "Antihistamine", 8, date(2025, 1, 1), date(2025, 6, 1)),
	}

	entries := service.Expiring(batches, now, 30)
	require.Len(t, entries, 2)
	assert.Equal(t, "b2", entries[0].BatchID)
	assert.Equal(t, 4, entries[0].DaysUntilExpiry)
	assert.Equal(t, "b1", entries[1].BatchID)
	assert.Equal(t, 19, entries[1].DaysUntilExpiry)
}

func TestExpiring_IncludesAlreadyExpired(t *testing.T) {
	now := date(2025, 3, 1)
	batches := []*repository.StockBatch{
		batch("b1", "Paracetamol", "Analgesic", 10, date(2024, 1, 1), date(2025, 2, 20)),
	}

	entries := service.Expiring(batches, now, 30)
	require.Len(t, entries, 1)
	assert.Negative(t, entries[0].DaysUntilExpiry)
}

func TestExpiring_SkipsEmptyBatches(t *testing.T) {
	now := date(2025, 3, 1)
	batches := []*repository.StockBatch{
		batch("b1", "Paracetamol", "Analgesic", 0, date(2025, 1, 1), date(2025, 3, 5)),
	}

	assert.Empty(t, service.Expiring(batches, now, 30))
}

func TestMostUrgent(t *testing.T) {
	now := date(2025, 3, 1)
	batches := []*repository.StockBatch{
		batch("b1", "Paracetamol", "Analgesic", 10, date(2025, 1, 1), date(2025, 3, 20)),
		batch("b2", "Ibuprofen", "Analgesic", 5, date(2025, 1, 1), date(2025, 3, 5)),
	}

	entries := service.Expiring(batches, now, 30)
	urgent := service.MostUrgent(entries)
	require.NotNil(t, urgent)
	assert.Equal(t, "b2", urgent.BatchID)

	assert.Nil(t, service.MostUrgent(nil))
}
