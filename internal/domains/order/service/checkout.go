package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	giftcardModel "cleaning-backend/internal/domains/giftcard/model"
	"cleaning-backend/internal/domains/order/model"
	promoModel "cleaning-backend/internal/domains/promotion/model"
	"cleaning-backend/pkg/logger"
)

// =====================================================
// CHECKOUT
// =====================================================

func (s *orderService) Checkout(ctx context.Context, userID uuid.UUID, req model.CheckoutRequest) (*model.CheckoutResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidInput, "Invalid checkout request", err)
	}
	return s.checkout(ctx, userID, nil, req, false)
}

func (s *orderService) CheckoutOnBehalf(ctx context.Context, adminID uuid.UUID, req model.CheckoutOnBehalfRequest) (*model.CheckoutResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidInput, "Invalid checkout request", err)
	}
	return s.checkout(ctx, req.UserID, &adminID, req.CheckoutRequest, true)
}

func (s *orderService) checkout(ctx context.Context, userID uuid.UUID, createdBy *uuid.UUID, req model.CheckoutRequest, allowCustom bool) (*model.CheckoutResponse, error) {
	// Step 1: price (rejects before anything is written)
	pr, err := s.price(ctx, userID, req.PricingRequest, priceOptions{strict: true, allowCustom: allowCustom})
	if err != nil {
		return nil, err
	}
	if pr.priced.IsNegative() {
		return nil, model.NewOrderError(model.ErrCodeNegativeTotal, "Discounts exceed the order amount", model.ErrNegativeTotal)
	}

	// Step 2: build the order
	order := &model.Order{
		ID:            uuid.New(),
		UserID:        userID,
		CreatedBy:     createdBy,
		Status:        model.OrderStatusPending,
		PaymentStatus: model.PaymentStatusUnpaid,
		Version:       1,
	}
	applyCheckoutFields(order, req, pr)

	// Step 3: order + items + promo usage + special offer + gift card as one unit
	var offerApplied bool
	err = s.TxManager.WithinTx(ctx, func(tx pgx.Tx) error {
		offerApplied = false

		if err := s.OrderRepo.CreateOrderWithTx(ctx, tx, order); err != nil {
			return err
		}
		if err := s.OrderRepo.ReplaceOrderItemsWithTx(ctx, tx, order.ID, model.ItemsFromPricing(order.ID, pr.priced.LineItems)); err != nil {
			return err
		}

		note := "Order created"
		if createdBy != nil {
			note = "Order created on behalf of customer"
		}
		if err := s.OrderRepo.CreateOrderStatusHistoryWithTx(ctx, tx, &model.OrderStatusHistory{
			ID:        uuid.New(),
			OrderID:   order.ID,
			ToStatus:  model.OrderStatusPending,
			ChangedBy: changedBy(userID, createdBy),
			Notes:     &note,
		}); err != nil {
			return err
		}

		if req.SpecialOfferGrantID != nil {
			offerApplied = s.consumeOffer(ctx, tx, *req.SpecialOfferGrantID, userID, order.ID)
		}

		return s.applyDiscountEffects(ctx, tx, order, pr, userID)
	})
	if err != nil {
		return nil, s.txError(err, "Failed to create order")
	}

	logger.Info("Order created", map[string]interface{}{
		"order_id":     order.ID.String(),
		"order_number": order.OrderNumber,
		"user_id":      userID.String(),
		"total":        order.Total.String(),
	})

	// Step 4: payment after commit
	resp, err := s.settle(ctx, order, pr, paymentKey(order))
	if resp != nil {
		resp.OfferApplied = offerApplied
	}
	return resp, err
}

// =====================================================
// UPDATE ORDER (re-price)
// =====================================================

func (s *orderService) UpdateOrder(ctx context.Context, orderID, userID uuid.UUID, req model.UpdateOrderRequest) (*model.CheckoutResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidInput, "Invalid update request", err)
	}

	order, err := s.OrderRepo.GetOrderByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		return nil, s.lookupError(err)
	}
	if !order.CanBeUpdated() {
		return nil, model.NewOrderError(model.ErrCodeCannotUpdate,
			fmt.Sprintf("Order with status '%s' cannot be updated", order.Status), model.ErrOrderCannotUpdate)
	}
	if order.Version != req.Version {
		return nil, model.NewOrderError(model.ErrCodeVersionMismatch, "Order was modified, reload and retry", model.ErrVersionMismatch)
	}

	// the old amount must no longer be payable
	if err := s.voidIntent(ctx, order); err != nil {
		return nil, err
	}

	opts := priceOptions{strict: true, allowCustom: order.IsCustomPricing}
	if order.GiftCardCode != nil && strings.EqualFold(*order.GiftCardCode, req.GiftCard()) {
		opts.giftCardCredit = order.GiftCardAmountUsed
	}
	pr, err := s.price(ctx, userID, req.PricingRequest, opts)
	if err != nil {
		return nil, err
	}
	if pr.priced.IsNegative() {
		return nil, model.NewOrderError(model.ErrCodeNegativeTotal, "Discounts exceed the order amount", model.ErrNegativeTotal)
	}

	applyCheckoutFields(order, req.CheckoutRequest, pr)
	order.PaymentStatus = model.PaymentStatusUnpaid

	err = s.TxManager.WithinTx(ctx, func(tx pgx.Tx) error {
		if err := s.lockUnpaid(ctx, tx, order.ID, req.Version, model.ErrCodeCannotUpdate, model.ErrOrderCannotUpdate); err != nil {
			return err
		}
		if _, err := s.GiftCards.Reverse(ctx, tx, order.ID); err != nil {
			return err
		}
		if err := s.Promotions.ReleaseUsage(ctx, tx, order.ID); err != nil {
			return err
		}
		if err := s.OrderRepo.UpdatePricingWithTx(ctx, tx, order, req.Version); err != nil {
			return err
		}
		if err := s.OrderRepo.ReplaceOrderItemsWithTx(ctx, tx, order.ID, model.ItemsFromPricing(order.ID, pr.priced.LineItems)); err != nil {
			return err
		}

		note := "Order re-priced"
		if err := s.OrderRepo.CreateOrderStatusHistoryWithTx(ctx, tx, &model.OrderStatusHistory{
			ID:         uuid.New(),
			OrderID:    order.ID,
			FromStatus: &order.Status,
			ToStatus:   order.Status,
			ChangedBy:  &userID,
			Notes:      &note,
		}); err != nil {
			return err
		}

		return s.applyDiscountEffects(ctx, tx, order, pr, userID)
	})
	if err != nil {
		return nil, s.txError(err, "Failed to update order")
	}

	return s.settle(ctx, order, pr, paymentKey(order))
}

// =====================================================
// TRANSACTION HELPERS
// =====================================================

// applyDiscountEffects records the promo usage and debits the gift card
// inside tx. A debit smaller than quoted rewrites the stored total.
func (s *orderService) applyDiscountEffects(ctx context.Context, tx pgx.Tx, order *model.Order, pr *pricedRequest, userID uuid.UUID) error {
	if pr.promo != nil {
		err := s.Promotions.RecordUsage(ctx, tx, pr.promo, userID, order.ID, order.DiscountAmount)
		if errors.Is(err, promoModel.ErrPromotionExhausted) {
			return model.NewOrderError(model.ErrCodeDiscountConflict, promoModel.MsgUsageLimit, err)
		}
		if err != nil {
			return err
		}
	}

	if pr.giftCardCode == "" || !pr.priced.GiftCardAmountUsed.IsPositive() {
		return nil
	}

	actual, err := s.GiftCards.Apply(ctx, tx, pr.giftCardCode, pr.priced.GiftCardAmountUsed, order.ID, userID)
	if err != nil {
		if isGiftCardConflict(err) {
			return model.NewOrderError(model.ErrCodeDiscountConflict, err.Error(), err)
		}
		return err
	}

	if !actual.Equal(pr.priced.GiftCardAmountUsed) {
		logger.Warn("Gift card debited less than quoted", map[string]interface{}{
			"order_id": order.ID.String(),
			"quoted":   pr.priced.GiftCardAmountUsed.String(),
			"debited":  actual.String(),
		})
		pr.priced.ApplyGiftCardDebit(actual)
		order.GiftCardAmountUsed = pr.priced.GiftCardAmountUsed
		order.Total = pr.priced.Total
		if err := s.OrderRepo.UpdateTotalsWithTx(ctx, tx, order.ID, order.GiftCardAmountUsed, order.Total); err != nil {
			return err
		}
	}
	return nil
}

// consumeOffer never fails the checkout: MarkUsed runs in a savepoint.
func (s *orderService) consumeOffer(ctx context.Context, tx pgx.Tx, grantID, userID, orderID uuid.UUID) bool {
	if err := s.Offers.MarkUsed(ctx, tx, grantID, userID, orderID); err != nil {
		logger.Warn("Special offer not applied", map[string]interface{}{
			"grant_id": grantID.String(),
			"order_id": orderID.String(),
			"error":    err.Error(),
		})
		return false
	}
	return true
}

func (s *orderService) txError(err error, message string) error {
	var oe *model.OrderError
	if errors.As(err, &oe) {
		return oe
	}
	if errors.Is(err, model.ErrVersionMismatch) {
		return model.NewOrderError(model.ErrCodeVersionMismatch, "Order was modified, reload and retry", err)
	}
	logger.Error(message, err)
	return model.NewOrderError(model.ErrCodeTxFailed, message, err)
}

func (s *orderService) lookupError(err error) error {
	if errors.Is(err, model.ErrOrderNotFound) {
		return model.NewOrderError(model.ErrCodeOrderNotFound, "Order not found", err)
	}
	return fmt.Errorf("failed to load order: %w", err)
}

func isGiftCardConflict(err error) bool {
	return errors.Is(err, giftcardModel.ErrGiftCardNotFound) ||
		errors.Is(err, giftcardModel.ErrGiftCardInactive) ||
		errors.Is(err, giftcardModel.ErrGiftCardExpired) ||
		errors.Is(err, giftcardModel.ErrGiftCardEmpty) ||
		errors.Is(err, giftcardModel.ErrInvalidAmount) ||
		errors.Is(err, giftcardModel.ErrAlreadyApplied)
}

func applyCheckoutFields(order *model.Order, req model.CheckoutRequest, pr *pricedRequest) {
	order.ServiceTypeID = req.ServiceTypeID
	order.ServiceTypeName = pr.serviceTypeName
	order.ScheduledAt = req.ScheduledAt.UTC()
	order.ContactName = strings.TrimSpace(req.ContactName)
	order.ContactEmail = strings.ToLower(strings.TrimSpace(req.ContactEmail))
	order.ContactPhone = strings.TrimSpace(req.ContactPhone)
	order.AddressLine1 = strings.TrimSpace(req.Address.Line1)
	order.AddressLine2 = strings.TrimSpace(req.Address.Line2)
	order.City = strings.TrimSpace(req.Address.City)
	order.State = strings.TrimSpace(req.Address.State)
	order.ZipCode = strings.TrimSpace(req.Address.ZipCode)
	order.CustomerNote = req.CustomerNote

	order.SubscriptionID = nil
	if pr.plan != nil {
		order.SubscriptionID = &pr.plan.ID
	}

	order.PromotionID = nil
	order.PromoCode = nil
	if pr.promo != nil {
		order.PromotionID = &pr.promo.ID
		order.PromoCode = &pr.promo.Code
	}

	order.GiftCardCode = nil
	if pr.giftCardCode != "" && pr.priced.GiftCardAmountUsed.IsPositive() {
		code := pr.giftCardCode
		order.GiftCardCode = &code
	}

	order.ApplyPricing(pr.priced)
}

func changedBy(userID uuid.UUID, createdBy *uuid.UUID) *uuid.UUID {
	if createdBy != nil {
		return createdBy
	}
	return &userID
}
