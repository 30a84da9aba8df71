package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/meditrack/meditrack-backend/pkg/database"
	"github.com/meditrack/meditrack-backend/pkg/errors"
)

// Request statuses
const (
	RequestStatusPending   = "pending"
	RequestStatusApproved  = "approved"
	RequestStatusRejected  = "rejected"
	RequestStatusFulfilled = "fulfilled"
)

// MedicineRequest is an inter-branch stock request: one branch asks another
// for a quantity of a medicine by name. pending -> approved -> fulfilled,
// or pending -> rejected.
type MedicineRequest struct {
	ID           string     `db:"id" json:"request_id"`
	FromBranchID string     `db:"from_branch_id" json:"from_branch_id"`
	ToBranchID   string     `db:"to_branch_id" json:"to_branch_id"`
	MedicineName string     `db:"medicine_name" json:"medicine_name"`
	Quantity     int        `db:"quantity" json:"quantity"`
	Status       string     `db:"status" json:"status"`
	RequestedBy  string     `db:"requested_by" json:"requested_by"`
	DecidedBy    *string    `db:"decided_by" json:"decided_by,omitempty"`
	Note         *string    `db:"note" json:"note,omitempty"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	DecidedAt    *time.Time `db:"decided_at" json:"decided_at,omitempty"`
	FulfilledAt  *time.Time `db:"fulfilled_at" json:"fulfilled_at,omitempty"`
}

// RequestRepository handles inter-branch request persistence
type RequestRepository struct {
	db *database.DB
}

// NewRequestRepository creates a new request repository
func NewRequestRepository(db *database.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create creates a new pending request
func (r *RequestRepository) Create(ctx context.Context, req *MedicineRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	req.Status = RequestStatusPending

	query := `
		INSERT INTO medicine_requests (
			id, from_branch_id, to_branch_id, medicine_name, quantity, status, requested_by, note
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		req.ID, req.FromBranchID, req.ToBranchID, req.MedicineName,
		req.Quantity, req.Status, req.RequestedBy, req.Note,
	).Scan(&req.CreatedAt)
	if err != nil {
		if appErr := database.MapPQError(err); appErr != nil {
			return appErr
		}
		return err
	}
	return nil
}

// GetByID gets a request by ID
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*MedicineRequest, error) {
	var req MedicineRequest
	query := `SELECT * FROM medicine_requests WHERE id = $1`
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("medicine request")
		}
		return nil, err
	}
	return &req, nil
}

// ListIncoming lists requests other branches made to this branch
func (r *RequestRepository) ListIncoming(ctx context.Context, branchID string) ([]*MedicineRequest, error) {
	var reqs []*MedicineRequest
	query := `
		SELECT * FROM medicine_requests
		WHERE to_branch_id = $1
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &reqs, query, branchID); err != nil {
		return nil, err
	}
	return reqs, nil
}

// ListOutgoing lists requests this branch made to others
func (r *RequestRepository) ListOutgoing(ctx context.Context, branchID string) ([]*MedicineRequest, error) {
	var reqs []*MedicineRequest
	query := `
		SELECT * FROM medicine_requests
		WHERE from_branch_id = $1
		ORDER BY created_at DESC
	`
	if err := r.db.SelectContext(ctx, &reqs, query, branchID); err != nil {
		return nil, err
	}
	return reqs, nil
}

// Decide moves a pending request to approved or rejected. The status guard in
// the WHERE clause makes a second decision on the same request a no-op
// conflict rather than an overwrite.
func (r *RequestRepository) Decide(ctx context.Context, id, status, decidedBy string, note *string) error {
	query := `
		UPDATE medicine_requests
		SET status = $2, decided_by = $3, note = COALESCE($4, note), decided_at = NOW()
		WHERE id = $1 AND status = $5
	`
	result, err := r.db.ExecContext(ctx, query, id, status, decidedBy, note, RequestStatusPending)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return errors.Conflict("request has already been decided")
	}
	return nil
}

// MarkFulfilled moves an approved request to fulfilled
func (r *RequestRepository) MarkFulfilled(ctx context.Context, id string) error {
	query := `
		UPDATE medicine_requests
		SET status = $2, fulfilled_at = NOW()
		WHERE id = $1 AND status = $3
	`
	result, err := r.db.ExecContext(ctx, query, id, RequestStatusFulfilled, RequestStatusApproved)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return getErr
		}
		return errors.Conflict("only approved requests can be fulfilled")
	}
	return nil
}

// ReopenFulfillment moves a fulfilled request back to approved. Compensates
// a fulfillment whose dispense failed after the status was claimed.
func (r *RequestRepository) ReopenFulfillment(ctx context.Context, id string) error {
	query := `
		UPDATE medicine_requests
		SET status = $2, fulfilled_at = NULL
		WHERE id = $1 AND status = $3
	`
	_, err := r.db.ExecContext(ctx, query, id, RequestStatusApproved, RequestStatusFulfilled)
	return err
}
