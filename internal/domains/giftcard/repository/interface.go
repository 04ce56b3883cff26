package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"cleaning-backend/internal/domains/giftcard/model"
)

type Repository interface {
	FindByCode(ctx context.Context, code string) (*model.GiftCard, error)

	// LockByCodeWithTx reads the card with SELECT ... FOR UPDATE.
	LockByCodeWithTx(ctx context.Context, tx pgx.Tx, code string) (*model.GiftCard, error)
	UpdateBalanceWithTx(ctx context.Context, tx pgx.Tx, id uuid.UUID, balance decimal.Decimal) error
	CreateUsageWithTx(ctx context.Context, tx pgx.Tx, usage *model.Usage) error

	// ReverseUsagesWithTx credits every usage of the order back to its card,
	// deletes the usages and returns the total credited.
	ReverseUsagesWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (decimal.Decimal, error)
}
