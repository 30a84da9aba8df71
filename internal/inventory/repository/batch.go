package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/meditrack/meditrack-backend/pkg/database"
	"github.com/meditrack/meditrack-backend/pkg/errors"
)

// StockBatch is one received lot of a medicine at one branch. Quantity is the
// remaining units in this batch; it never goes negative. A batch dispensed
// down to zero stays in the active ledger until it is explicitly archived.
type StockBatch struct {
	ID             string    `db:"id" json:"batch_id"`
	MedicineID     string    `db:"medicine_id" json:"medicine_id"`
	MedicineName   string    `db:"medicine_name" json:"medicine_name"`
	Category       string    `db:"category" json:"category"`
	BranchID       string    `db:"branch_id" json:"branch_id"`
	Quantity       int       `db:"quantity" json:"quantity"`
	DateReceived   time.Time `db:"date_received" json:"date_received"`
	ExpirationDate time.Time `db:"expiration_date" json:"expiration_date"`
	CreatedBy      string    `db:"created_by" json:"created_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// StockMovement is the audit record left by every quantity change on a batch.
type StockMovement struct {
	ID               string    `db:"id" json:"id"`
	BatchID          string    `db:"batch_id" json:"batch_id"`
	MedicineID       string    `db:"medicine_id" json:"medicine_id"`
	BranchID         string    `db:"branch_id" json:"branch_id"`
	MovementType     string    `db:"movement_type" json:"movement_type"`
	Quantity         int       `db:"quantity" json:"quantity"`
	QuantityAfter    int       `db:"quantity_after" json:"quantity_after"`
	PerformedBy      string    `db:"performed_by" json:"performed_by"`
	PerformedByName  *string   `db:"performed_by_name" json:"performed_by_name,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}

// Movement types
const (
	MovementStockIn  = "stock_in"
	MovementDispense = "dispense"
)

// BatchRepository handles stock batch persistence
type BatchRepository struct {
	db *database.DB
}

// NewBatchRepository creates a new batch repository
func NewBatchRepository(db *database.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create creates a new stock batch
func (r *BatchRepository) Create(ctx context.Context, batch *StockBatch) error {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stock_batches (
			id, medicine_id, branch_id, quantity, date_received, expiration_date, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		batch.ID, batch.MedicineID, batch.BranchID, batch.Quantity,
		batch.DateReceived, batch.ExpirationDate, batch.CreatedBy,
	).Scan(&batch.CreatedAt, &batch.UpdatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a batch by ID, scoped to a branch
func (r *BatchRepository) GetByID(ctx context.Context, branchID, id string) (*StockBatch, error) {
	var batch StockBatch
	query := `
		SELECT b.id, b.medicine_id, m.name AS medicine_name, m.category,
		       b.branch_id, b.quantity, b.date_received, b.expiration_date,
		       b.created_by, b.created_at, b.updated_at
		FROM stock_batches b
		JOIN medicines m ON m.id = b.medicine_id
		WHERE b.id = $1 AND b.branch_id = $2
	`
	if err := r.db.GetContext(ctx, &batch, query, id, branchID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("stock batch")
		}
		return nil, err
	}
	return &batch, nil
}

// ListByBranch lists the active batches for a branch, soonest expiration
// first.
func (r *BatchRepository) ListByBranch(ctx context.Context, branchID string) ([]*StockBatch, error) {
	var batches []*StockBatch
	query := `
		SELECT b.id, b.medicine_id, m.name AS medicine_name, m.category,
		       b.branch_id, b.quantity, b.date_received, b.expiration_date,
		       b.created_by, b.created_at, b.updated_at
		FROM stock_batches b
		JOIN medicines m ON m.id = b.medicine_id
		WHERE b.branch_id = $1
		ORDER BY b.expiration_date, b.id
	`
	if err := r.db.SelectContext(ctx, &batches, query, branchID); err != nil {
		return nil, err
	}
	return batches, nil
}

// ListBranchIDs returns every branch that currently holds active stock
func (r *BatchRepository) ListBranchIDs(ctx context.Context) ([]string, error) {
	var ids []string
	query := `SELECT DISTINCT branch_id FROM stock_batches ORDER BY branch_id`
	if err := r.db.SelectContext(ctx, &ids, query); err != nil {
		return nil, err
	}
	return ids, nil
}

// Decrement atomically reduces a batch's quantity. The WHERE clause is the
// authoritative guard: concurrent dispenses against the same batch cannot
// drive the quantity negative, whatever the service layer saw beforehand.
// Returns the remaining quantity.
func (r *BatchRepository) Decrement(ctx context.Context, branchID, id string, amount int) (int, error) {
	var remaining int
	query := `
		UPDATE stock_batches
		SET quantity = quantity - $3, updated_at = NOW()
		WHERE id = $1 AND branch_id = $2 AND quantity >= $3
		RETURNING quantity
	`
	if err := r.db.QueryRowxContext(ctx, query, id, branchID, amount).Scan(&remaining); err != nil {
		if err == sql.ErrNoRows {
			// Either the batch is gone or the stock ran out underneath us.
			if _, getErr := r.GetByID(ctx, branchID, id); getErr != nil {
				return 0, getErr
			}
			return 0, errors.BadRequest("exceeds stock")
		}
		return 0, err
	}
	return remaining, nil
}

// RecordMovement appends a stock movement audit record
func (r *BatchRepository) RecordMovement(ctx context.Context, mv *StockMovement) error {
	if mv.ID == "" {
		mv.ID = uuid.New().String()
	}

	query := `
		INSERT INTO stock_movements (
			id, batch_id, medicine_id, branch_id, movement_type,
			quantity, quantity_after, performed_by, performed_by_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at
	`

	return r.db.QueryRowxContext(ctx, query,
		mv.ID, mv.BatchID, mv.MedicineID, mv.BranchID, mv.MovementType,
		mv.Quantity, mv.QuantityAfter, mv.PerformedBy, mv.PerformedByName,
	).Scan(&mv.CreatedAt)
}

// ListMovements lists the movement history for a branch, newest first
func (r *BatchRepository) ListMovements(ctx context.Context, branchID string, limit int) ([]*StockMovement, error) {
	if limit <= 0 {
		limit = 100
	}
	var movements []*StockMovement
	query := `
		SELECT * FROM stock_movements
		WHERE branch_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &movements, query, branchID, limit); err != nil {
		return nil, err
	}
	return movements, nil
}
