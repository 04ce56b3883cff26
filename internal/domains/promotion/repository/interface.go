package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"cleaning-backend/internal/domains/promotion/model"
)

type PromotionRepository interface {
	// FindByCode matches case-insensitively; returns model.ErrPromotionNotFound.
	FindByCode(ctx context.Context, code string) (*model.Promotion, error)
	GetUserUsageCount(ctx context.Context, promoID, userID uuid.UUID) (int, error)

	// IncrementUsageWithTx bumps current_uses unless max_uses is reached,
	// in which case it returns model.ErrPromotionExhausted.
	IncrementUsageWithTx(ctx context.Context, tx pgx.Tx, promoID uuid.UUID) error
	CreateUsageWithTx(ctx context.Context, tx pgx.Tx, usage *model.PromotionUsage) error

	// ReleaseUsageWithTx deletes the usage rows of an order and gives the uses back.
	ReleaseUsageWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (int, error)
}
