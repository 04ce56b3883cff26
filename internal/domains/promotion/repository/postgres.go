package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cleaning-backend/internal/domains/promotion/model"
)

type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) PromotionRepository {
	return &PostgresRepository{db: db}
}

// -------------------------------------------------------------------
// READ OPERATIONS
// -------------------------------------------------------------------

func (r *PostgresRepository) FindByCode(ctx context.Context, code string) (*model.Promotion, error) {
	query := `
		SELECT
			id, code, name, description,
			discount_type, discount_value, max_discount_amount,
			min_order_amount,
			max_uses, COALESCE(max_uses_per_user, 0), current_uses,
			starts_at, expires_at, is_active, version,
			created_at, updated_at
		FROM promotions
		WHERE LOWER(code) = LOWER($1)
	`

	var p model.Promotion
	var discountType string
	err := r.db.QueryRow(ctx, query, code).Scan(
		&p.ID,
		&p.Code,
		&p.Name,
		&p.Description,
		&discountType,
		&p.DiscountValue,
		&p.MaxDiscountAmount,
		&p.MinOrderAmount,
		&p.MaxUses,
		&p.MaxUsesPerUser,
		&p.CurrentUses,
		&p.StartsAt,
		&p.ExpiresAt,
		&p.IsActive,
		&p.Version,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrPromotionNotFound
		}
		return nil, fmt.Errorf("find promotion by code: %w", err)
	}
	p.DiscountType = model.DiscountType(discountType)

	return &p, nil
}

func (r *PostgresRepository) GetUserUsageCount(ctx context.Context, promoID, userID uuid.UUID) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM promotion_usage
		WHERE promotion_id = $1 AND user_id = $2
	`

	var count int
	if err := r.db.QueryRow(ctx, query, promoID, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("get user usage count: %w", err)
	}
	return count, nil
}

// -------------------------------------------------------------------
// WRITE OPERATIONS (inside the checkout transaction)
// -------------------------------------------------------------------

func (r *PostgresRepository) IncrementUsageWithTx(ctx context.Context, tx pgx.Tx, promoID uuid.UUID) error {
	query := `
		UPDATE promotions
		SET current_uses = current_uses + 1,
			version = version + 1,
			updated_at = NOW()
		WHERE id = $1
		  AND (max_uses IS NULL OR current_uses < max_uses)
	`

	tag, err := tx.Exec(ctx, query, promoID)
	if err != nil {
		return fmt.Errorf("increment promotion usage: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrPromotionExhausted
	}
	return nil
}

func (r *PostgresRepository) CreateUsageWithTx(ctx context.Context, tx pgx.Tx, usage *model.PromotionUsage) error {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}

	query := `
		INSERT INTO promotion_usage (
			id, promotion_id, user_id, order_id, discount_amount, used_at
		) VALUES (
			$1, $2, $3, $4, $5, NOW()
		)
		RETURNING used_at
	`

	err := tx.QueryRow(ctx, query,
		usage.ID,
		usage.PromotionID,
		usage.UserID,
		usage.OrderID,
		usage.DiscountAmount,
	).Scan(&usage.UsedAt)
	if err != nil {
		return fmt.Errorf("create promotion usage: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ReleaseUsageWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int, error) {
	query := `
		WITH released AS (
			DELETE FROM promotion_usage
			WHERE order_id = $1
			RETURNING promotion_id
		)
		UPDATE promotions p
		SET current_uses = GREATEST(p.current_uses - r.cnt, 0),
			version = p.version + 1,
			updated_at = NOW()
		FROM (SELECT promotion_id, COUNT(*) AS cnt FROM released GROUP BY promotion_id) r
		WHERE p.id = r.promotion_id
	`

	tag, err := tx.Exec(ctx, query, orderID)
	if err != nil {
		return 0, fmt.Errorf("release promotion usage: %w", err)
	}
	return int(tag.RowsAffected()), nil
}
