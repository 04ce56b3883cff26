package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"cleaning-backend/internal/domains/subscription/model"
)

type Repository interface {
	// Get returns nil, nil when the user never enrolled in the plan.
	Get(ctx context.Context, userID, subscriptionID uuid.UUID) (*model.UserSubscription, error)
	Upsert(ctx context.Context, sub *model.UserSubscription) error
}

type postgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) Repository {
	return &postgresRepository{pool: pool}
}

func (r *postgresRepository) Get(ctx context.Context, userID, subscriptionID uuid.UUID) (*model.UserSubscription, error) {
	query := `
		SELECT id, user_id, subscription_id, status,
			current_period_start, current_period_end, last_order_id,
			created_at, updated_at
		FROM user_subscriptions
		WHERE user_id = $1 AND subscription_id = $2
	`

	var s model.UserSubscription
	var status string
	err := r.pool.QueryRow(ctx, query, userID, subscriptionID).Scan(
		&s.ID, &s.UserID, &s.SubscriptionID, &status,
		&s.CurrentPeriodStart, &s.CurrentPeriodEnd, &s.LastOrderID,
		&s.CreatedAt, &s.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user subscription: %w", err)
	}
	s.Status = model.Status(status)
	return &s, nil
}

func (r *postgresRepository) Upsert(ctx context.Context, s *model.UserSubscription) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	query := `
		INSERT INTO user_subscriptions (
			id, user_id, subscription_id, status,
			current_period_start, current_period_end, last_order_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, subscription_id) DO UPDATE SET
			status = EXCLUDED.status,
			current_period_start = EXCLUDED.current_period_start,
			current_period_end = EXCLUDED.current_period_end,
			last_order_id = EXCLUDED.last_order_id,
			updated_at = NOW()
		RETURNING id, created_at, updated_at
	`

	err := r.pool.QueryRow(ctx, query,
		s.ID, s.UserID, s.SubscriptionID, string(s.Status),
		s.CurrentPeriodStart, s.CurrentPeriodEnd, s.LastOrderID,
	).Scan(&s.ID, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert user subscription: %w", err)
	}
	return nil
}
