package service

import (
	"context"
)

// DashboardStats summarizes a branch's inventory for the dashboard widgets
type DashboardStats struct {
	TotalMedicines    int              `json:"total_medicines"`
	TotalBatches      int              `json:"total_batches"`
	TotalStock        int              `json:"total_stock"`
	LowStockCount     int              `json:"low_stock_count"`
	ExpiringCount     int              `json:"expiring_count"`
	MostUrgentExpiry  *ExpiringBatch   `json:"most_urgent_expiry,omitempty"`
	ArchivedCount     int              `json:"archived_count"`
	CategoryBreakdown map[string]int   `json:"category_breakdown"`
	LowStock          []LowStockEntry  `json:"low_stock"`
}

// DashboardStats computes the branch dashboard in one pass over the ledger
func (s *LedgerService) DashboardStats(ctx context.Context, branchID string) (*DashboardStats, error) {
	batches, err := s.batches.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}

	archived, err := s.archive.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}

	rows := Aggregate(batches)
	lowStock := LowStock(rows, s.cfg.LowStockThreshold)
	expiring := Expiring(batches, s.now(), s.cfg.ExpiryWindowDays)

	stats := &DashboardStats{
		TotalMedicines:    len(rows),
		TotalBatches:      len(batches),
		LowStockCount:     len(lowStock),
		ExpiringCount:     len(expiring),
		MostUrgentExpiry:  MostUrgent(expiring),
		ArchivedCount:     len(archived),
		CategoryBreakdown: make(map[string]int),
		LowStock:          lowStock,
	}

	for _, row := range rows {
		stats.TotalStock += row.TotalQuantity
		stats.CategoryBreakdown[row.Category]++
	}

	return stats, nil
}
