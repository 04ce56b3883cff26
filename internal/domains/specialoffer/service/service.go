package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"cleaning-backend/internal/domains/specialoffer/repository"
	"cleaning-backend/pkg/database"
	"cleaning-backend/pkg/logger"
)

// GrantStore consumes and restores special offer grants.
type GrantStore interface {
	// MarkUsed runs inside a savepoint of tx: a failure leaves tx usable.
	MarkUsed(ctx context.Context, tx pgx.Tx, grantID, userID, orderID uuid.UUID) error
	Restore(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error
}

type grantStore struct {
	repo repository.Repository
}

func NewGrantStore(repo repository.Repository) GrantStore {
	return &grantStore{repo: repo}
}

func (s *grantStore) MarkUsed(ctx context.Context, tx pgx.Tx, grantID, userID, orderID uuid.UUID) error {
	return database.WithSavepoint(ctx, tx, func(sp pgx.Tx) error {
		return s.repo.MarkUsedWithTx(ctx, sp, grantID, userID, orderID)
	})
}

func (s *grantStore) Restore(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error {
	n, err := s.repo.RestoreWithTx(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("Special offer grant restored", map[string]interface{}{
			"order_id": orderID.String(),
			"grants":   n,
		})
	}
	return nil
}
