package generation

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository persists generation audit rows
type Repository interface {
	Create(ctx context.Context, rec *Record) error
	GetByID(ctx context.Context, id uuid.UUID) (*Record, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Record, error)
}

// RecordRepository is the postgres implementation
type RecordRepository struct {
	db *sqlx.DB
}

// NewRepository creates a generation record repository
func NewRepository(db *sqlx.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Create inserts an audit row. Rows are append-only.
func (r *RecordRepository) Create(ctx context.Context, rec *Record) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.CreditsUsed <= 0 {
		rec.CreditsUsed = 1
	}

	query := `
		INSERT INTO generations (id, user_id, style, child_name, prompt, source_key, result_key, thumb_key, credits_used, created_at)
		VALUES (:id, :user_id, :style, :child_name, :prompt, :source_key, :result_key, :thumb_key, :credits_used, :created_at)`

	if _, err := r.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("insert generation: %w", err)
	}
	return nil
}

// GetByID fetches one generation record
func (r *RecordRepository) GetByID(ctx context.Context, id uuid.UUID) (*Record, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var rec Record
	err := r.db.GetContext(ctx, &rec,
		`SELECT * FROM generations WHERE id = $1`, id)
	if err != nil {
		return nil, fmt.Errorf("get generation: %w", err)
	}
	return &rec, nil
}

// ListByUser returns the user's generations newest first
func (r *RecordRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Record, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	records := []Record{}
	err := r.db.SelectContext(ctx, &records,
		`SELECT * FROM generations WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list generations: %w", err)
	}
	return records, nil
}
