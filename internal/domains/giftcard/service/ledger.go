package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"cleaning-backend/internal/domains/giftcard/model"
	"cleaning-backend/internal/domains/giftcard/repository"
	"cleaning-backend/pkg/logger"
)

// Ledger owns gift card balances. Apply and Reverse must run inside the
// caller's transaction.
type Ledger interface {
	Validate(ctx context.Context, code string) (*model.ValidationResult, error)

	// Apply debits min(requested, balance) and returns the amount debited.
	Apply(ctx context.Context, tx pgx.Tx, code string, requested decimal.Decimal, orderID, userID uuid.UUID) (decimal.Decimal, error)

	// Reverse credits back everything debited for orderID.
	Reverse(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (decimal.Decimal, error)
}

type ledger struct {
	repo repository.Repository
	now  func() time.Time
}

func NewLedger(repo repository.Repository) Ledger {
	return &ledger{repo: repo, now: time.Now}
}

func (l *ledger) Validate(ctx context.Context, code string) (*model.ValidationResult, error) {
	card, err := l.repo.FindByCode(ctx, strings.TrimSpace(code))
	if errors.Is(err, model.ErrGiftCardNotFound) {
		return &model.ValidationResult{IsValid: false, AvailableBalance: decimal.Zero, Message: err.Error()}, nil
	}
	if err != nil {
		return nil, err
	}

	if err := card.Usable(l.now()); err != nil {
		return &model.ValidationResult{IsValid: false, AvailableBalance: decimal.Zero, Message: err.Error()}, nil
	}

	return &model.ValidationResult{IsValid: true, AvailableBalance: card.Balance, Message: "Gift card is valid"}, nil
}

func (l *ledger) Apply(ctx context.Context, tx pgx.Tx, code string, requested decimal.Decimal, orderID, userID uuid.UUID) (decimal.Decimal, error) {
	if !requested.IsPositive() {
		return decimal.Zero, model.ErrInvalidAmount
	}

	// row lock serializes concurrent checkouts on the same card
	card, err := l.repo.LockByCodeWithTx(ctx, tx, strings.TrimSpace(code))
	if err != nil {
		return decimal.Zero, err
	}
	if err := card.Usable(l.now()); err != nil {
		return decimal.Zero, err
	}

	debit := decimal.Min(requested, card.Balance)
	if err := l.repo.UpdateBalanceWithTx(ctx, tx, card.ID, card.Balance.Sub(debit)); err != nil {
		return decimal.Zero, err
	}

	usage := &model.Usage{GiftCardID: card.ID, OrderID: orderID, UserID: userID, Amount: debit}
	if err := l.repo.CreateUsageWithTx(ctx, tx, usage); err != nil {
		return decimal.Zero, err
	}

	logger.Info("Gift card applied", map[string]interface{}{
		"gift_card_id": card.ID.String(),
		"order_id":     orderID.String(),
		"requested":    requested.String(),
		"debited":      debit.String(),
	})
	return debit, nil
}

func (l *ledger) Reverse(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (decimal.Decimal, error) {
	credited, err := l.repo.ReverseUsagesWithTx(ctx, tx, orderID)
	if err != nil {
		return decimal.Zero, err
	}
	if credited.IsPositive() {
		logger.Info("Gift card usage reversed", map[string]interface{}{
			"order_id": orderID.String(),
			"credited": credited.String(),
		})
	}
	return credited, nil
}
