package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/meditrack/meditrack-backend/pkg/database"
	"github.com/meditrack/meditrack-backend/pkg/errors"
)

// Notification types
const (
	NotificationLowStock        = "low_stock"
	NotificationBatchExpiring   = "batch_expiring"
	NotificationRequestApproved = "request_approved"
)

// Notification is one entry in a branch's notification feed, written by the
// alert consumer as events come off the broker.
type Notification struct {
	ID         string    `db:"id" json:"id"`
	BranchID   string    `db:"branch_id" json:"branch_id"`
	Type       string    `db:"type" json:"type"`
	Message    string    `db:"message" json:"message"`
	MedicineID *string   `db:"medicine_id" json:"medicine_id,omitempty"`
	IsRead     bool      `db:"is_read" json:"is_read"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// NotificationRepository handles notification persistence
type NotificationRepository struct {
	db *database.DB
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *database.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create creates a notification
func (r *NotificationRepository) Create(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}

	query := `
		INSERT INTO notifications (id, branch_id, type, message, medicine_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at
	`

	return r.db.QueryRowxContext(ctx, query,
		n.ID, n.BranchID, n.Type, n.Message, n.MedicineID,
	).Scan(&n.CreatedAt)
}

// ListByBranch lists a branch's notifications, newest first
func (r *NotificationRepository) ListByBranch(ctx context.Context, branchID string, unreadOnly bool, limit int) ([]*Notification, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT * FROM notifications
		WHERE branch_id = $1 AND ($2 = false OR is_read = false)
		ORDER BY created_at DESC
		LIMIT $3
	`

	var notifications []*Notification
	if err := r.db.SelectContext(ctx, &notifications, query, branchID, unreadOnly, limit); err != nil {
		return nil, err
	}
	return notifications, nil
}

// UnreadCount counts a branch's unread notifications
func (r *NotificationRepository) UnreadCount(ctx context.Context, branchID string) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM notifications WHERE branch_id = $1 AND is_read = false`
	if err := r.db.GetContext(ctx, &count, query, branchID); err != nil {
		return 0, err
	}
	return count, nil
}

// MarkRead marks one notification as read
func (r *NotificationRepository) MarkRead(ctx context.Context, branchID, id string) error {
	query := `UPDATE notifications SET is_read = true WHERE id = $1 AND branch_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, branchID)
	if err != nil {
		return err
	}

	affected, _ := result.RowsAffected()
	if affected == 0 {
		return errors.NotFound("notification")
	}
	return nil
}

// MarkAllRead marks all of a branch's notifications as read
func (r *NotificationRepository) MarkAllRead(ctx context.Context, branchID string) error {
	query := `UPDATE notifications SET is_read = true WHERE branch_id = $1 AND is_read = false`
	_, err := r.db.ExecContext(ctx, query, branchID)
	return err
}
