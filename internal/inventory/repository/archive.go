package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/meditrack/meditrack-backend/pkg/database"
	"github.com/meditrack/meditrack-backend/pkg/errors"
)

// ArchivedBatch is a frozen copy of a stock batch taken at the moment of
// archiving. A batch is either active or archived, never both: the archive
// and restore operations move the row between the two tables inside a single
// transaction.
type ArchivedBatch struct {
	ID             string    `db:"id" json:"archived_id"`
	BatchID        string    `db:"batch_id" json:"batch_id"`
	MedicineID     string    `db:"medicine_id" json:"medicine_id"`
	MedicineName   string    `db:"medicine_name" json:"medicine_name"`
	Category       string    `db:"category" json:"category"`
	BranchID       string    `db:"branch_id" json:"branch_id"`
	Quantity       int       `db:"quantity" json:"quantity"`
	DateReceived   time.Time `db:"date_received" json:"date_received"`
	ExpirationDate time.Time `db:"expiration_date" json:"expiration_date"`
	CreatedBy      string    `db:"created_by" json:"created_by"`
	Reason         string    `db:"reason" json:"reason"`
	ArchivedBy     string    `db:"archived_by" json:"archived_by"`
	ArchivedAt     time.Time `db:"archived_at" json:"archived_at"`
}

// ArchiveRepository handles the archived-batch side of the ledger
type ArchiveRepository struct {
	db *database.DB
}

// NewArchiveRepository creates a new archive repository
func NewArchiveRepository(db *database.DB) *ArchiveRepository {
	return &ArchiveRepository{db: db}
}

// Archive moves a batch from the active ledger into the archive. The active
// row is deleted and the frozen copy inserted in one transaction, so the
// batch can never be visible in both places.
func (r *ArchiveRepository) Archive(ctx context.Context, branchID, batchID, reason, archivedBy string) (*ArchivedBatch, error) {
	archived := &ArchivedBatch{
		ID:         uuid.New().String(),
		BatchID:    batchID,
		BranchID:   branchID,
		Reason:     reason,
		ArchivedBy: archivedBy,
	}

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		deleteQuery := `
			DELETE FROM stock_batches
			WHERE id = $1 AND branch_id = $2
			RETURNING medicine_id, quantity, date_received, expiration_date, created_by
		`
		err := tx.QueryRowxContext(ctx, deleteQuery, batchID, branchID).Scan(
			&archived.MedicineID, &archived.Quantity,
			&archived.DateReceived, &archived.ExpirationDate, &archived.CreatedBy,
		)
		if err != nil {
			if err == sql.ErrNoRows {
				return errors.NotFound("stock batch")
			}
			return err
		}

		insertQuery := `
			INSERT INTO archived_batches (
				id, batch_id, medicine_id, branch_id, quantity,
				date_received, expiration_date, created_by, reason, archived_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			RETURNING archived_at
		`
		return tx.QueryRowxContext(ctx, insertQuery,
			archived.ID, archived.BatchID, archived.MedicineID, archived.BranchID,
			archived.Quantity, archived.DateReceived, archived.ExpirationDate,
			archived.CreatedBy, archived.Reason, archived.ArchivedBy,
		).Scan(&archived.ArchivedAt)
	})
	if err != nil {
		return nil, err
	}
	return archived, nil
}

// Restore moves an archived batch back into the active ledger with the same
// identity, quantity, and dates it had when archived. Atomic for the same
// reason Archive is.
func (r *ArchiveRepository) Restore(ctx context.Context, branchID, archivedID string) (*StockBatch, error) {
	batch := &StockBatch{BranchID: branchID}

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		deleteQuery := `
			DELETE FROM archived_batches
			WHERE id = $1 AND branch_id = $2
			RETURNING batch_id, medicine_id, quantity, date_received, expiration_date, created_by
		`
		err := tx.QueryRowxContext(ctx, deleteQuery, archivedID, branchID).Scan(
			&batch.ID, &batch.MedicineID, &batch.Quantity,
			&batch.DateReceived, &batch.ExpirationDate, &batch.CreatedBy,
		)
		if err != nil {
			if err == sql.ErrNoRows {
				return errors.NotFound("archived record")
			}
			return err
		}

		insertQuery := `
			INSERT INTO stock_batches (
				id, medicine_id, branch_id, quantity, date_received, expiration_date, created_by
			) VALUES ($1, $2, $3, $4, $5, $6, $7)
			RETURNING created_at, updated_at
		`
		return tx.QueryRowxContext(ctx, insertQuery,
			batch.ID, batch.MedicineID, batch.BranchID, batch.Quantity,
			batch.DateReceived, batch.ExpirationDate, batch.CreatedBy,
		).Scan(&batch.CreatedAt, &batch.UpdatedAt)
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

// Delete permanently removes an archived record. There is no undo.
func (r *ArchiveRepository) Delete(ctx context.Context, branchID, archivedID string) error {
	query := `DELETE FROM archived_batches WHERE id = $1 AND branch_id = $2`
	result, err := r.db.ExecContext(ctx, query, archivedID, branchID)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("archived record")
	}
	return nil
}

// GetByID gets an archived record by ID, scoped to a branch
func (r *ArchiveRepository) GetByID(ctx context.Context, branchID, archivedID string) (*ArchivedBatch, error) {
	var archived ArchivedBatch
	query := `
		SELECT a.id, a.batch_id, a.medicine_id, m.name AS medicine_name, m.category,
		       a.branch_id, a.quantity, a.date_received, a.expiration_date,
		       a.created_by, a.reason, a.archived_by, a.archived_at
		FROM archived_batches a
		JOIN medicines m ON m.id = a.medicine_id
		WHERE a.id = $1 AND a.branch_id = $2
	`
	if err := r.db.GetContext(ctx, &archived, query, archivedID, branchID); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("archived record")
		}
		return nil, err
	}
	return &archived, nil
}

// ListByBranch lists a branch's archived records, most recent first
func (r *ArchiveRepository) ListByBranch(ctx context.Context, branchID string) ([]*ArchivedBatch, error) {
	var archived []*ArchivedBatch
	query := `
		SELECT a.id, a.batch_id, a.medicine_id, m.name AS medicine_name, m.category,
		       a.branch_id, a.quantity, a.date_received, a.expiration_date,
		       a.created_by, a.reason, a.archived_by, a.archived_at
		FROM archived_batches a
		JOIN medicines m ON m.id = a.medicine_id
		WHERE a.branch_id = $1
		ORDER BY a.archived_at DESC
	`
	if err := r.db.SelectContext(ctx, &archived, query, branchID); err != nil {
		return nil, err
	}
	return archived, nil
}
