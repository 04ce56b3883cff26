package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cleaning-backend/internal/domains/specialoffer/model"
)

type Repository interface {
	// MarkUsedWithTx flips is_used only when the grant is still unused;
	// returns model.ErrGrantUnavailable otherwise.
	MarkUsedWithTx(ctx context.Context, tx pgx.Tx, grantID, userID, orderID uuid.UUID) error
	RestoreWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int, error)
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) MarkUsedWithTx(ctx context.Context, tx pgx.Tx, grantID, userID, orderID uuid.UUID) error {
	query := `
		UPDATE special_offer_grants
		SET is_used = true, used_on_order_id = $3, used_at = NOW()
		WHERE id = $1 AND user_id = $2 AND is_used = false
	`

	tag, err := tx.Exec(ctx, query, grantID, userID, orderID)
	if err != nil {
		return fmt.Errorf("failed to mark special offer used: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrGrantUnavailable
	}
	return nil
}

func (r *postgresRepository) RestoreWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int, error) {
	query := `
		UPDATE special_offer_grants
		SET is_used = false, used_on_order_id = NULL, used_at = NULL
		WHERE used_on_order_id = $1
	`

	tag, err := tx.Exec(ctx, query, orderID)
	if err != nil {
		return 0, fmt.Errorf("failed to restore special offer: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
