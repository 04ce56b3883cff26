package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	catalogModel "cleaning-backend/internal/domains/catalog/model"
	"cleaning-backend/internal/domains/pricing"
	"cleaning-backend/internal/domains/subscription/model"
	"cleaning-backend/internal/domains/subscription/repository"
	"cleaning-backend/pkg/logger"
)

type Service interface {
	// DiscountFor returns round2(subtotal × pct / 100), zero for inactive plans.
	DiscountFor(plan *catalogModel.Subscription, subtotal decimal.Decimal) decimal.Decimal

	// ActivateOrRenew is idempotent per order.
	ActivateOrRenew(ctx context.Context, userID uuid.UUID, plan *catalogModel.Subscription, orderID uuid.UUID) (*model.UserSubscription, error)
}

type service struct {
	repo repository.Repository
	now  func() time.Time
}

func NewService(repo repository.Repository) Service {
	return &service{repo: repo, now: time.Now}
}

func (s *service) DiscountFor(plan *catalogModel.Subscription, subtotal decimal.Decimal) decimal.Decimal {
	if plan == nil || !plan.IsActive || !subtotal.IsPositive() {
		return decimal.Zero
	}
	return pricing.PercentOf(subtotal, plan.DiscountPercentage)
}

func (s *service) ActivateOrRenew(ctx context.Context, userID uuid.UUID, plan *catalogModel.Subscription, orderID uuid.UUID) (*model.UserSubscription, error) {
	current, err := s.repo.Get(ctx, userID, plan.ID)
	if err != nil {
		return nil, err
	}

	if current != nil && current.LastOrderID != nil && *current.LastOrderID == orderID {
		return current, nil
	}

	if current == nil {
		current = &model.UserSubscription{
			UserID:         userID,
			SubscriptionID: plan.ID,
		}
	}
	current.Extend(s.now(), plan.PeriodDays)
	current.LastOrderID = &orderID

	if err := s.repo.Upsert(ctx, current); err != nil {
		return nil, err
	}

	logger.Info("Subscription activated", map[string]interface{}{
		"user_id":         userID.String(),
		"subscription_id": plan.ID.String(),
		"period_end":      current.CurrentPeriodEnd.Format(time.RFC3339),
	})
	return current, nil
}
