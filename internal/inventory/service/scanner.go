package service

import (
	"context"
	"fmt"
	"time"

	"github.com/meditrack/meditrack-backend/internal/inventory/events"
	"github.com/meditrack/meditrack-backend/internal/inventory/notify"
	"github.com/meditrack/meditrack-backend/internal/inventory/repository"
	"github.com/meditrack/meditrack-backend/pkg/config"
	"github.com/meditrack/meditrack-backend/pkg/logger"
	"github.com/meditrack/meditrack-backend/pkg/messaging"
)

// ExpiryScanner walks every branch's active stock and publishes a warning
// for each batch inside the expiry window. Warnings are deduplicated per
// batch per day, so repeated scans within the interval stay quiet.
type ExpiryScanner struct {
	batches   *repository.BatchRepository
	publisher *events.InventoryEventPublisher
	dedup     *notify.Dedup
	cfg       config.InventoryConfig
	logger    *logger.Logger
	now       func() time.Time
}

// NewExpiryScanner creates an expiry scanner
func NewExpiryScanner(
	batches *repository.BatchRepository,
	publisher *events.InventoryEventPublisher,
	dedup *notify.Dedup,
	cfg config.InventoryConfig,
	log *logger.Logger,
) *ExpiryScanner {
	return &ExpiryScanner{
		batches:   batches,
		publisher: publisher,
		dedup:     dedup,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock overrides the scanner's clock
func (s *ExpiryScanner) WithClock(now func() time.Time) *ExpiryScanner {
	s.now = now
	return s
}

// ScanAll scans every branch with active stock. Branch failures are logged
// and scanning continues; the last error is returned.
func (s *ExpiryScanner) ScanAll(ctx context.Context) error {
	branchIDs, err := s.batches.ListBranchIDs(ctx)
	if err != nil {
		return fmt.Errorf("expiry scan: list branches: %w", err)
	}

	var lastErr error
	for _, branchID := range branchIDs {
		if err := s.scanBranch(ctx, branchID); err != nil {
			s.logger.Error().Err(err).Str("branch_id", branchID).Msg("expiry scan failed for branch")
			lastErr = err
		}
	}
	return lastErr
}

func (s *ExpiryScanner) scanBranch(ctx context.Context, branchID string) error {
	batches, err := s.batches.ListByBranch(ctx, branchID)
	if err != nil {
		return fmt.Errorf("list branch stock: %w", err)
	}

	now := s.now()
	for _, entry := range Expiring(batches, now, s.cfg.ExpiryWindowDays) {
		if !s.dedup.ShouldNotifyExpiry(ctx, branchID, entry.BatchID, now) {
			continue
		}

		s.publisher.PublishBatchExpiring(ctx, messaging.BatchExpiringEvent{
			BatchID:         entry.BatchID,
			MedicineID:      entry.MedicineID,
			MedicineName:    entry.MedicineName,
			BranchID:        entry.BranchID,
			ExpirationDate:  entry.ExpirationDate,
			DaysUntilExpiry: entry.DaysUntilExpiry,
			Quantity:        entry.Quantity,
		})
	}
	return nil
}
