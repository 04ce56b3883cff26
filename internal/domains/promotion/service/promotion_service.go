package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"cleaning-backend/internal/domains/promotion/model"
	"cleaning-backend/internal/domains/promotion/repository"
	"cleaning-backend/pkg/logger"
)

// Service evaluates promo codes and records their usage.
type Service interface {
	// Validate never fails for a bad code; the reason is in the result.
	Validate(ctx context.Context, code string, userID uuid.UUID, orderAmount decimal.Decimal) (*model.ValidationResult, error)
	RecordUsage(ctx context.Context, tx pgx.Tx, promo *model.Promotion, userID, orderID uuid.UUID, amount decimal.Decimal) error
	ReleaseUsage(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error
}

type promotionService struct {
	repo       repository.PromotionRepository
	calculator *DiscountCalculator
	now        func() time.Time
}

func NewPromotionService(repo repository.PromotionRepository) Service {
	return &promotionService{
		repo:       repo,
		calculator: NewDiscountCalculator(),
		now:        time.Now,
	}
}

func (s *promotionService) Validate(ctx context.Context, code string, userID uuid.UUID, orderAmount decimal.Decimal) (*model.ValidationResult, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return model.Invalid(model.MsgNotFound), nil
	}

	promo, err := s.repo.FindByCode(ctx, code)
	if errors.Is(err, model.ErrPromotionNotFound) {
		return model.Invalid(model.MsgNotFound), nil
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	switch {
	case !promo.IsActive:
		return model.Invalid(model.MsgInactive), nil
	case now.Before(promo.StartsAt):
		return model.Invalid(model.MsgNotStarted), nil
	case now.After(promo.ExpiresAt):
		return model.Invalid(model.MsgExpired), nil
	case promo.MaxUses != nil && promo.CurrentUses >= *promo.MaxUses:
		return model.Invalid(model.MsgUsageLimit), nil
	case orderAmount.LessThan(promo.MinOrderAmount):
		return model.Invalid(model.MsgMinOrderNotMet), nil
	}

	if promo.MaxUsesPerUser > 0 && userID != uuid.Nil {
		used, err := s.repo.GetUserUsageCount(ctx, promo.ID, userID)
		if err != nil {
			return nil, err
		}
		if used >= promo.MaxUsesPerUser {
			return model.Invalid(model.MsgUserLimit), nil
		}
	}

	discount, ok := s.calculator.Calculate(promo, orderAmount)
	if !ok {
		return model.Invalid(model.MsgInvalidDiscounts), nil
	}

	return &model.ValidationResult{
		IsValid:        true,
		DiscountAmount: discount,
		Message:        model.MsgApplied,
		Promotion:      promo,
	}, nil
}

// RecordUsage must run inside the checkout transaction so an exhausted code
// rolls the order back.
func (s *promotionService) RecordUsage(ctx context.Context, tx pgx.Tx, promo *model.Promotion, userID, orderID uuid.UUID, amount decimal.Decimal) error {
	if err := s.repo.IncrementUsageWithTx(ctx, tx, promo.ID); err != nil {
		return err
	}

	usage := &model.PromotionUsage{
		PromotionID:    promo.ID,
		UserID:         userID,
		OrderID:        orderID,
		DiscountAmount: amount,
	}
	if err := s.repo.CreateUsageWithTx(ctx, tx, usage); err != nil {
		return fmt.Errorf("record promotion usage: %w", err)
	}

	logger.Info("Promotion usage recorded", map[string]interface{}{
		"promotion_id": promo.ID.String(),
		"code":         promo.Code,
		"order_id":     orderID.String(),
		"discount":     amount.String(),
	})
	return nil
}

func (s *promotionService) ReleaseUsage(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) error {
	n, err := s.repo.ReleaseUsageWithTx(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Info("Promotion usage released", map[string]interface{}{"order_id": orderID.String()})
	}
	return nil
}
