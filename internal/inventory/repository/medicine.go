package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/meditrack/meditrack-backend/pkg/database"
	"github.com/meditrack/meditrack-backend/pkg/errors"
)

// Medicine is the identity of a drug or product. Created on first use and
// never deleted; only its stock batches come and go.
type Medicine struct {
	ID        string    `db:"id" json:"medicine_id"`
	Name      string    `db:"name" json:"name"`
	Category  string    `db:"category" json:"category"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// MedicineRepository handles medicine persistence
type MedicineRepository struct {
	db *database.DB
}

// NewMedicineRepository creates a new medicine repository
func NewMedicineRepository(db *database.DB) *MedicineRepository {
	return &MedicineRepository{db: db}
}

// CreateOrGet returns the existing medicine with the same name
// (case-insensitive) or creates a new one. Retrying a failed stock-in is
// therefore safe: the same name always resolves to the same medicine.
func (r *MedicineRepository) CreateOrGet(ctx context.Context, name, category string) (*Medicine, error) {
	existing, err := r.GetByName(ctx, name)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	med := &Medicine{
		ID:       uuid.New().String(),
		Name:     name,
		Category: category,
	}

	query := `
		INSERT INTO medicines (id, name, category)
		VALUES ($1, $2, $3)
		ON CONFLICT (lower(name)) DO UPDATE SET name = medicines.name
		RETURNING id, name, category, created_at, updated_at
	`

	if err := r.db.QueryRowxContext(ctx, query, med.ID, med.Name, med.Category).
		Scan(&med.ID, &med.Name, &med.Category, &med.CreatedAt, &med.UpdatedAt); err != nil {
		return nil, err
	}
	return med, nil
}

// GetByID gets a medicine by ID
func (r *MedicineRepository) GetByID(ctx context.Context, id string) (*Medicine, error) {
	var med Medicine
	query := `SELECT * FROM medicines WHERE id = $1`
	if err := r.db.GetContext(ctx, &med, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("medicine")
		}
		return nil, err
	}
	return &med, nil
}

// GetByName gets a medicine by name, case-insensitively
func (r *MedicineRepository) GetByName(ctx context.Context, name string) (*Medicine, error) {
	var med Medicine
	query := `SELECT * FROM medicines WHERE lower(name) = lower($1)`
	if err := r.db.GetContext(ctx, &med, query, name); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NotFound("medicine")
		}
		return nil, err
	}
	return &med, nil
}

// List lists all medicines ordered by name
func (r *MedicineRepository) List(ctx context.Context) ([]*Medicine, error) {
	var meds []*Medicine
	query := `SELECT * FROM medicines ORDER BY name`
	if err := r.db.SelectContext(ctx, &meds, query); err != nil {
		return nil, err
	}
	return meds, nil
}
