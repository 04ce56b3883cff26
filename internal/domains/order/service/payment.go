package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"

	"cleaning-backend/internal/domains/order/model"
	"cleaning-backend/internal/domains/payment/gateway"
	"cleaning-backend/pkg/logger"
)

// =====================================================
// PAYMENT INTENT (after commit)
// =====================================================

// settle finishes a committed checkout: zero totals confirm at once,
// everything else gets a payment intent. A gateway failure returns both
// the response and an ORD_PAYMENT_SETUP_FAILED error carrying the order id.
func (s *orderService) settle(ctx context.Context, order *model.Order, pr *pricedRequest, key string) (*model.CheckoutResponse, error) {
	resp := &model.CheckoutResponse{
		OrderID:       order.ID,
		OrderNumber:   order.OrderNumber,
		Status:        order.Status,
		PaymentStatus: order.PaymentStatus,
		Total:         order.Total,
		Pricing:       pr.priced,
	}

	if order.Total.IsZero() {
		result, err := s.finalizePaid(ctx, order)
		if err != nil {
			return resp, err
		}
		resp.Status = result.Status
		resp.PaymentStatus = result.PaymentStatus
		return resp, nil
	}

	resp.RequiresPayment = true
	intent, err := s.requestPayment(ctx, order, key)
	if err != nil {
		return resp, model.NewOrderError(model.ErrCodePaymentSetupFailed,
			"Order saved but payment setup failed, retry payment for this order", err).WithOrder(order.ID)
	}

	resp.PaymentStatus = order.PaymentStatus
	resp.PaymentIntentID = &intent.ID
	resp.ClientSecret = &intent.ClientSecret
	return resp, nil
}

// requestPayment creates an intent with bounded retries and stores it on the order.
func (s *orderService) requestPayment(ctx context.Context, order *model.Order, key string) (*gateway.Intent, error) {
	req := gateway.CreateIntentRequest{
		OrderID:        order.ID,
		Amount:         order.Total,
		Currency:       s.settings.Currency,
		Description:    fmt.Sprintf("%s on %s", order.ServiceTypeName, order.ScheduledAt.Format("2006-01-02 15:04")),
		CustomerEmail:  order.ContactEmail,
		IdempotencyKey: key,
		Metadata: map[string]string{
			gateway.MetadataOrderID: order.ID.String(),
			"order_number":          order.OrderNumber,
			"user_id":               order.UserID.String(),
		},
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.settings.PaymentRetryInterval
	policy := backoff.WithContext(backoff.WithMaxRetries(b, s.settings.PaymentMaxRetries), ctx)

	intent, err := backoff.RetryNotifyWithData(func() (*gateway.Intent, error) {
		intent, err := s.Gateway.CreateIntent(ctx, req)
		if errors.Is(err, gateway.ErrInvalidAmount) {
			return nil, backoff.Permanent(err)
		}
		return intent, err
	}, policy, func(err error, next time.Duration) {
		logger.Warn("Payment intent creation failed, retrying", map[string]interface{}{
			"order_id": order.ID.String(),
			"error":    err.Error(),
			"retry_in": next.String(),
		})
	})
	if err != nil {
		logger.ErrorWithFields("Payment intent creation failed", err, map[string]interface{}{
			"order_id": order.ID.String(),
		})
		return nil, err
	}

	if err := s.OrderRepo.SetPaymentIntent(ctx, order.ID, &intent.ID, &intent.ClientSecret, model.PaymentStatusPending); err != nil {
		// the intent exists but nothing points at it; void it so it cannot be paid
		if cancelErr := s.Gateway.CancelIntent(ctx, intent.ID); cancelErr != nil {
			logger.Error("Failed to cancel orphaned payment intent", cancelErr)
		}
		return nil, err
	}

	order.PaymentIntentID = &intent.ID
	order.PaymentClientSecret = &intent.ClientSecret
	order.PaymentStatus = model.PaymentStatusPending
	return intent, nil
}

// voidIntent cancels the current intent of an unpaid order. An intent that
// already succeeded confirms the order instead and blocks the caller.
func (s *orderService) voidIntent(ctx context.Context, order *model.Order) error {
	if order.PaymentIntentID == nil {
		return nil
	}

	intent, err := s.Gateway.GetIntent(ctx, *order.PaymentIntentID)
	if err != nil && !errors.Is(err, gateway.ErrIntentNotFound) {
		return model.NewOrderError(model.ErrCodePaymentGateway, "Payment provider unavailable", err)
	}
	if intent != nil && intent.Status == gateway.IntentStatusSucceeded {
		if _, err := s.finalizePaid(ctx, order); err != nil {
			return err
		}
		return model.NewOrderError(model.ErrCodeCannotUpdate, "Order has already been paid", model.ErrAlreadyPaid)
	}
	if intent == nil || intent.Status == gateway.IntentStatusCanceled {
		return nil
	}

	if err := s.Gateway.CancelIntent(ctx, intent.ID); err != nil {
		return model.NewOrderError(model.ErrCodePaymentGateway, "Failed to cancel the pending payment", err)
	}
	return nil
}

func paymentKey(order *model.Order) string {
	return fmt.Sprintf("order-%s-v%d", order.ID, order.Version)
}

// =====================================================
// RETRY PAYMENT INTENT
// =====================================================

func (s *orderService) RetryPaymentIntent(ctx context.Context, orderID, userID uuid.UUID) (*model.CheckoutResponse, error) {
	order, err := s.OrderRepo.GetOrderByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		return nil, s.lookupError(err)
	}
	if order.IsPaid() {
		return nil, model.NewOrderError(model.ErrCodeCannotUpdate, "Order has already been paid", model.ErrAlreadyPaid)
	}
	if order.Status != model.OrderStatusPending {
		return nil, model.NewOrderError(model.ErrCodeCannotUpdate,
			fmt.Sprintf("Order with status '%s' cannot be paid", order.Status), model.ErrOrderCannotUpdate)
	}

	pr := &pricedRequest{}
	resp := func(intent *gateway.Intent) *model.CheckoutResponse {
		return &model.CheckoutResponse{
			OrderID:         order.ID,
			OrderNumber:     order.OrderNumber,
			Status:          order.Status,
			PaymentStatus:   order.PaymentStatus,
			Total:           order.Total,
			RequiresPayment: true,
			PaymentIntentID: &intent.ID,
			ClientSecret:    &intent.ClientSecret,
		}
	}

	// a live intent is handed back instead of creating another one
	if order.PaymentIntentID != nil && order.PaymentStatus == model.PaymentStatusPending {
		intent, err := s.Gateway.GetIntent(ctx, *order.PaymentIntentID)
		switch {
		case err == nil && intent.Status == gateway.IntentStatusPending:
			if intent.ClientSecret == "" && order.PaymentClientSecret != nil {
				intent.ClientSecret = *order.PaymentClientSecret
			}
			return resp(intent), nil
		case err == nil && intent.Status == gateway.IntentStatusSucceeded:
			if _, err := s.finalizePaid(ctx, order); err != nil {
				return nil, err
			}
			return nil, model.NewOrderError(model.ErrCodeCannotUpdate, "Order has already been paid", model.ErrAlreadyPaid)
		case err != nil && !errors.Is(err, gateway.ErrIntentNotFound):
			return nil, model.NewOrderError(model.ErrCodePaymentGateway, "Payment provider unavailable", err)
		}
	}

	// a failed intent stays payable at the gateway until cancelled
	if err := s.voidIntent(ctx, order); err != nil {
		return nil, err
	}

	key := fmt.Sprintf("%s-retry-%d", paymentKey(order), s.now().UnixNano())
	return s.settle(ctx, order, pr, key)
}
