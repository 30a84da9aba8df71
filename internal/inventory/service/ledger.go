package service

import (
	"context"
	"strings"
	"time"

	"github.com/meditrack/meditrack-backend/internal/inventory/events"
	"github.com/meditrack/meditrack-backend/internal/inventory/notify"
	"github.com/meditrack/meditrack-backend/internal/inventory/repository"
	"github.com/meditrack/meditrack-backend/pkg/actor"
	"github.com/meditrack/meditrack-backend/pkg/config"
	"github.com/meditrack/meditrack-backend/pkg/errors"
	"github.com/meditrack/meditrack-backend/pkg/logger"
)

// LedgerService owns the batch lifecycle: stock-in, dispense, archive,
// restore, permanent delete, and the derived views over the active ledger.
type LedgerService struct {
	medicines *repository.MedicineRepository
	batches   *repository.BatchRepository
	archive   *repository.ArchiveRepository
	publisher *events.InventoryEventPublisher
	dedup     *notify.Dedup
	cfg       *config.InventoryConfig
	logger    *logger.Logger
	now       func() time.Time
}

// NewLedgerService creates a new ledger service
func NewLedgerService(
	medicines *repository.MedicineRepository,
	batches *repository.BatchRepository,
	archive *repository.ArchiveRepository,
	publisher *events.InventoryEventPublisher,
	dedup *notify.Dedup,
	cfg *config.InventoryConfig,
	log *logger.Logger,
) *LedgerService {
	return &LedgerService{
		medicines: medicines,
		batches:   batches,
		archive:   archive,
		publisher: publisher,
		dedup:     dedup,
		cfg:       cfg,
		logger:    log,
		now:       time.Now,
	}
}

// WithClock overrides the service clock, used by tests
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

// StockInInput is a reorder / stock-in request. Either MedicineID names an
// existing medicine, or MedicineName (+Category) resolves one by name,
// creating it on first use.
type StockInInput struct {
	MedicineID     string
	MedicineName   string
	Category       string
	Quantity       int
	DateReceived   time.Time
	ExpirationDate time.Time
}

// StockIn creates exactly one new batch. Validation happens before anything
// touches the database; the medicine create-or-get by name makes a retry
// after a failed stock-in safe.
func (s *LedgerService) StockIn(ctx context.Context, branchID string, in StockInInput, act *actor.Actor) (*repository.StockBatch, error) {
	if in.Quantity <= 0 {
		return nil, errors.BadRequest("quantity must be greater than zero")
	}
	if in.DateReceived.IsZero() {
		return nil, errors.BadRequest("date received is required")
	}
	if in.ExpirationDate.IsZero() {
		return nil, errors.BadRequest("expiration date is required")
	}
	if !in.ExpirationDate.After(in.DateReceived) {
		return nil, errors.BadRequest("expiration date must be after the date received")
	}

	medicineID := in.MedicineID
	medicineName := in.MedicineName
	category := in.Category
	if medicineID == "" {
		if strings.TrimSpace(in.MedicineName) == "" {
			return nil, errors.BadRequest("medicine name is required")
		}
		med, err := s.medicines.CreateOrGet(ctx, strings.TrimSpace(in.MedicineName), in.Category)
		if err != nil {
			return nil, err
		}
		medicineID = med.ID
		medicineName = med.Name
		category = med.Category
	} else {
		med, err := s.medicines.GetByID(ctx, medicineID)
		if err != nil {
			return nil, err
		}
		medicineName = med.Name
		category = med.Category
	}

	batch := &repository.StockBatch{
		MedicineID:     medicineID,
		MedicineName:   medicineName,
		Category:       category,
		BranchID:       branchID,
		Quantity:       in.Quantity,
		DateReceived:   in.DateReceived,
		ExpirationDate: in.ExpirationDate,
		CreatedBy:      act.ID,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, err
	}

	s.recordMovement(ctx, batch, repository.MovementStockIn, in.Quantity, batch.Quantity, act)
	s.publisher.PublishStockIn(ctx, batch)

	s.logger.Info().
		Str("batch_id", batch.ID).
		Str("medicine_id", medicineID).
		Str("branch_id", branchID).
		Int("quantity", in.Quantity).
		Msg("stock in")

	return batch, nil
}

// Dispense decrements one concrete batch. The repository's guarded UPDATE is
// the last word on whether the stock covers the amount; the checks here just
// fail fast with the message the caller expects.
func (s *LedgerService) Dispense(ctx context.Context, branchID, batchID string, quantity int, act *actor.Actor) (*repository.StockBatch, error) {
	if batchID == "" {
		return nil, errors.BadRequest("cannot dispense: a batch must be selected")
	}
	if quantity < 1 {
		return nil, errors.BadRequest("invalid quantity")
	}

	batch, err := s.batches.GetByID(ctx, branchID, batchID)
	if err != nil {
		return nil, err
	}
	if quantity > batch.Quantity {
		return nil, errors.BadRequest("exceeds stock")
	}

	remaining, err := s.batches.Decrement(ctx, branchID, batchID, quantity)
	if err != nil {
		return nil, err
	}
	batch.Quantity = remaining

	s.recordMovement(ctx, batch, repository.MovementDispense, quantity, remaining, act)
	s.publisher.PublishStockDispensed(ctx, batch, quantity, act.ID)
	s.checkLowStock(ctx, branchID, batch.MedicineID, batch.MedicineName)

	s.logger.Info().
		Str("batch_id", batchID).
		Str("branch_id", branchID).
		Int("quantity", quantity).
		Int("remaining", remaining).
		Msg("stock dispensed")

	return batch, nil
}

// Archive moves a batch into the archive with a mandatory reason. Emptiness
// is reported before length, matching what the form tells the user.
func (s *LedgerService) Archive(ctx context.Context, branchID, batchID, reason string, act *actor.Actor) (*repository.ArchivedBatch, error) {
	if batchID == "" {
		return nil, errors.BadRequest("cannot archive: missing stock record id")
	}
	trimmed := strings.TrimSpace(reason)
	if trimmed == "" {
		return nil, errors.BadRequest("description required")
	}
	if len(trimmed) < 10 {
		return nil, errors.BadRequest("description too short")
	}

	archived, err := s.archive.Archive(ctx, branchID, batchID, trimmed, act.ID)
	if err != nil {
		return nil, err
	}

	// The transactional move returns the bare row; the joined read fills in
	// the medicine name and category for the response and the event.
	if full, lookupErr := s.archive.GetByID(ctx, branchID, archived.ID); lookupErr == nil {
		archived = full
	} else {
		s.logger.Warn().Err(lookupErr).Str("archived_id", archived.ID).Msg("could not load archived record details")
	}

	s.publisher.PublishBatchArchived(ctx, archived)

	s.logger.Info().
		Str("batch_id", batchID).
		Str("archived_id", archived.ID).
		Str("branch_id", branchID).
		Msg("batch archived")

	return archived, nil
}

// Restore brings an archived batch back into the active ledger with the
// quantity and dates it was archived with.
func (s *LedgerService) Restore(ctx context.Context, branchID, archivedID string, act *actor.Actor) (*repository.StockBatch, error) {
	batch, err := s.archive.Restore(ctx, branchID, archivedID)
	if err != nil {
		return nil, err
	}

	if full, lookupErr := s.batches.GetByID(ctx, branchID, batch.ID); lookupErr == nil {
		batch = full
	} else {
		s.logger.Warn().Err(lookupErr).Str("batch_id", batch.ID).Msg("could not load restored batch details")
	}

	s.publisher.PublishBatchRestored(ctx, archivedID, batch, act.ID)

	s.logger.Info().
		Str("archived_id", archivedID).
		Str("batch_id", batch.ID).
		Str("branch_id", branchID).
		Msg("batch restored")

	return batch, nil
}

// PermanentDelete purges an archived record. There is no way back.
func (s *LedgerService) PermanentDelete(ctx context.Context, branchID, archivedID string, act *actor.Actor) error {
	if err := s.archive.Delete(ctx, branchID, archivedID); err != nil {
		return err
	}

	s.publisher.PublishBatchDeleted(ctx, archivedID, branchID, act.ID)

	s.logger.Info().
		Str("archived_id", archivedID).
		Str("branch_id", branchID).
		Msg("archived record permanently deleted")

	return nil
}

// Views

// BranchInventory returns a branch's full active ledger, soonest expiration
// first. Callers replace their copy wholesale; there are no deltas.
func (s *LedgerService) BranchInventory(ctx context.Context, branchID string) ([]*repository.StockBatch, error) {
	return s.batches.ListByBranch(ctx, branchID)
}

// AggregatedInventory returns the branch ledger grouped by normalized
// medicine name. branchID may be another branch's; the inter-branch request
// view is built from exactly this.
func (s *LedgerService) AggregatedInventory(ctx context.Context, branchID string) ([]AggregatedRow, error) {
	batches, err := s.batches.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	return Aggregate(batches), nil
}

// LowStockEntries returns the branch's medicines at or below the threshold
func (s *LedgerService) LowStockEntries(ctx context.Context, branchID string) ([]LowStockEntry, error) {
	rows, err := s.AggregatedInventory(ctx, branchID)
	if err != nil {
		return nil, err
	}
	return LowStock(rows, s.cfg.LowStockThreshold), nil
}

// ExpiringBatches returns the branch's batches expiring inside the window,
// most urgent first
func (s *LedgerService) ExpiringBatches(ctx context.Context, branchID string) ([]ExpiringBatch, error) {
	batches, err := s.batches.ListByBranch(ctx, branchID)
	if err != nil {
		return nil, err
	}
	return Expiring(batches, s.now(), s.cfg.ExpiryWindowDays), nil
}

// ArchivedRecords lists the branch's archive, most recent first
func (s *LedgerService) ArchivedRecords(ctx context.Context, branchID string) ([]*repository.ArchivedBatch, error) {
	return s.archive.ListByBranch(ctx, branchID)
}

// Movements lists the branch's stock movement history
func (s *LedgerService) Movements(ctx context.Context, branchID string, limit int) ([]*repository.StockMovement, error) {
	return s.batches.ListMovements(ctx, branchID, limit)
}

// checkLowStock publishes a low-stock alert when the dispensed medicine's
// aggregated quantity has fallen to or below the threshold. The total comes
// from the same normalized-name fold the low-stock view uses, so stock split
// across catalog rows with name variants counts toward one total. The Redis
// slot keeps a busy dispensing day from alerting more than once per medicine.
func (s *LedgerService) checkLowStock(ctx context.Context, branchID, medicineID, medicineName string) {
	batches, err := s.batches.ListByBranch(ctx, branchID)
	if err != nil {
		s.logger.Error().Err(err).Str("medicine_id", medicineID).Msg("low stock check failed")
		return
	}

	key := NormalizeName(medicineName)
	for _, row := range Aggregate(batches) {
		if row.Key != key {
			continue
		}
		if row.TotalQuantity > s.cfg.LowStockThreshold {
			return
		}

		// A merged row with mixed catalog ids falls back to the dispensed
		// id, keeping the dedup slot keyed per medicine.
		id := row.MedicineID
		if id == "" {
			id = medicineID
		}
		if !s.dedup.ShouldNotify(ctx, branchID, id, s.now()) {
			return
		}
		s.publisher.PublishLowStock(ctx, branchID, id, row.MedicineName, row.TotalQuantity, s.cfg.LowStockThreshold)
		return
	}
}

func (s *LedgerService) recordMovement(ctx context.Context, batch *repository.StockBatch, movementType string, quantity, after int, act *actor.Actor) {
	mv := &repository.StockMovement{
		BatchID:       batch.ID,
		MedicineID:    batch.MedicineID,
		BranchID:      batch.BranchID,
		MovementType:  movementType,
		Quantity:      quantity,
		QuantityAfter: after,
		PerformedBy:   act.ID,
	}
	if act.Name != "" {
		mv.PerformedByName = &act.Name
	}
	if err := s.batches.RecordMovement(ctx, mv); err != nil {
		s.logger.Error().Err(err).Str("batch_id", batch.ID).Msg("failed to record stock movement")
	}
}
