package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"cleaning-backend/internal/domains/giftcard/model"
)

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

const selectGiftCard = `
	SELECT id, code, initial_amount, balance, is_active, expires_at, created_at, updated_at
	FROM gift_cards
	WHERE UPPER(code) = UPPER($1)
`

func scanGiftCard(row pgx.Row) (*model.GiftCard, error) {
	var g model.GiftCard
	err := row.Scan(&g.ID, &g.Code, &g.InitialAmount, &g.Balance, &g.IsActive, &g.ExpiresAt, &g.CreatedAt, &g.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, model.ErrGiftCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan gift card: %w", err)
	}
	return &g, nil
}

func (r *postgresRepository) FindByCode(ctx context.Context, code string) (*model.GiftCard, error) {
	return scanGiftCard(r.pool.QueryRow(ctx, selectGiftCard, code))
}

func (r *postgresRepository) LockByCodeWithTx(ctx context.Context, tx pgx.Tx, code string) (*model.GiftCard, error) {
	return scanGiftCard(tx.QueryRow(ctx, selectGiftCard+" FOR UPDATE", code))
}

func (r *postgresRepository) UpdateBalanceWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	query := `
		UPDATE gift_cards
		SET balance = $2, updated_at = NOW()
		WHERE id = $1 AND $2 >= 0
	`

	tag, err := tx.Exec(ctx, query, id, balance)
	if err != nil {
		return fmt.Errorf("failed to update gift card balance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return model.ErrGiftCardNotFound
	}
	return nil
}

func (r *postgresRepository) CreateUsageWithTx(ctx context.Context, tx pgx.Tx, usage *model.Usage) error {
	if usage.ID == uuid.Nil {
		usage.ID = uuid.New()
	}

	query := `
		INSERT INTO gift_card_usages (id, gift_card_id, order_id, user_id, amount, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		RETURNING created_at
	`

	err := tx.QueryRow(ctx, query, usage.ID, usage.GiftCardID, usage.OrderID, usage.UserID, usage.Amount).
		Scan(&usage.CreatedAt)
	if isUniqueViolation(err) {
		return model.ErrAlreadyApplied
	}
	if err != nil {
		return fmt.Errorf("failed to create gift card usage: %w", err)
	}
	return nil
}

func (r *postgresRepository) ReverseUsagesWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (decimal.Decimal, error) {
	query := `
		WITH removed AS (
			DELETE FROM gift_card_usages
			WHERE order_id = $1
			RETURNING gift_card_id, amount
		), totals AS (
			SELECT gift_card_id, SUM(amount) AS amount
			FROM removed
			GROUP BY gift_card_id
		), credited AS (
			UPDATE gift_cards g
			SET balance = g.balance + t.amount, updated_at = NOW()
			FROM totals t
			WHERE g.id = t.gift_card_id
			RETURNING t.amount
		)
		SELECT COALESCE(SUM(amount), 0) FROM credited
	`

	var total decimal.Decimal
	if err := tx.QueryRow(ctx, query, orderID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to reverse gift card usages: %w", err)
	}
	return total, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
