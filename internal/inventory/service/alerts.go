package service

import (
	"sort"
	"time"

	"github.com/meditrack/meditrack-backend/internal/inventory/repository"
)

// LowStockEntry flags a medicine whose aggregated branch quantity is at or
// below the reorder threshold. Recomputed from the inventory on every load,
// never stored.
type LowStockEntry struct {
	MedicineID    string `json:"medicine_id,omitempty"`
	MedicineName  string `json:"medicine_name"`
	TotalQuantity int    `json:"quantity"`
	Threshold     int    `json:"threshold"`
}

// ExpiringBatch flags a batch whose expiration date falls within the warning
// window. DaysUntilExpiry is negative for batches already past their date.
type ExpiringBatch struct {
	BatchID         string    `json:"batch_id"`
	MedicineID      string    `json:"medicine_id"`
	MedicineName    string    `json:"medicine_name"`
	BranchID        string    `json:"branch_id"`
	Quantity        int       `json:"quantity"`
	ExpirationDate  time.Time `json:"expiration_date"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
}

// LowStock returns the rows at or below the threshold. The boundary is
// inclusive: a total of exactly the threshold is low stock.
func LowStock(rows []AggregatedRow, threshold int) []LowStockEntry {
	entries := make([]LowStockEntry, 0)
	for _, row := range rows {
		if row.TotalQuantity <= threshold {
			entries = append(entries, LowStockEntry{
				MedicineID:    row.MedicineID,
				MedicineName:  row.MedicineName,
				TotalQuantity: row.TotalQuantity,
				Threshold:     threshold,
			})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalQuantity == entries[j].TotalQuantity {
			return entries[i].MedicineName < entries[j].MedicineName
		}
		return entries[i].TotalQuantity < entries[j].TotalQuantity
	})
	return entries
}

// Expiring returns the batches expiring within windowDays of now, most
// urgent first. Empty batches are skipped; there is nothing left to lose.
func Expiring(batches []*repository.StockBatch, now time.Time, windowDays int) []ExpiringBatch {
	cutoff := now.AddDate(0, 0, windowDays)

	entries := make([]ExpiringBatch, 0)
	for _, batch := range batches {
		if batch.Quantity <= 0 || batch.ExpirationDate.After(cutoff) {
			continue
		}
		entries = append(entries, ExpiringBatch{
			BatchID:         batch.ID,
			MedicineID:      batch.MedicineID,
			MedicineName:    batch.MedicineName,
			BranchID:        batch.BranchID,
			Quantity:        batch.Quantity,
			ExpirationDate:  batch.ExpirationDate,
			DaysUntilExpiry: daysUntil(now, batch.ExpirationDate),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].ExpirationDate.Equal(entries[j].ExpirationDate) {
			return entries[i].BatchID < entries[j].BatchID
		}
		return entries[i].ExpirationDate.Before(entries[j].ExpirationDate)
	})
	return entries
}

// MostUrgent returns the single soonest-expiring entry, or nil when nothing
// is inside the window. The dashboard widget shows only this one; the full
// list backs the notification paths.
func MostUrgent(entries []ExpiringBatch) *ExpiringBatch {
	if len(entries) == 0 {
		return nil
	}
	return &entries[0]
}

func daysUntil(now, expiration time.Time) int {
	return int(expiration.Sub(now).Hours() / 24)
}
