package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cleaning-backend/internal/domains/apartment/model"
)

type Repository interface {
	// FindByFingerprint returns nil, nil when the user has no such apartment.
	FindByFingerprint(ctx context.Context, userID uuid.UUID, fingerprint string) (*model.Apartment, error)
	Create(ctx context.Context, apt *model.Apartment) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) FindByFingerprint(ctx context.Context, userID uuid.UUID, fingerprint string) (*model.Apartment, error) {
	query := `
		SELECT id, user_id, address_line1, address_line2, city, state, zip_code, fingerprint, created_at
		FROM apartments
		WHERE user_id = $1 AND fingerprint = $2
	`

	var a model.Apartment
	err := r.pool.QueryRow(ctx, query, userID, fingerprint).Scan(
		&a.ID, &a.UserID, &a.Address.Line1, &a.Address.Line2,
		&a.Address.City, &a.Address.State, &a.Address.ZipCode,
		&a.Fingerprint, &a.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find apartment: %w", err)
	}
	return &a, nil
}

// Create inserts the apartment, or loads the existing row when another
// confirmation captured the same address first.
func (r *postgresRepository) Create(ctx context.Context, a *model.Apartment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	query := `
		INSERT INTO apartments (id, user_id, address_line1, address_line2, city, state, zip_code, fingerprint)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, fingerprint) DO UPDATE SET fingerprint = EXCLUDED.fingerprint
		RETURNING id, created_at
	`

	err := r.pool.QueryRow(ctx, query,
		a.ID, a.UserID, a.Address.Line1, a.Address.Line2,
		a.Address.City, a.Address.State, a.Address.ZipCode, a.Fingerprint,
	).Scan(&a.ID, &a.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create apartment: %w", err)
	}
	return nil
}
