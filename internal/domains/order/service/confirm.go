package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	apartmentModel "cleaning-backend/internal/domains/apartment/model"
	"cleaning-backend/internal/domains/order/model"
	"cleaning-backend/internal/domains/payment/gateway"
	paymentModel "cleaning-backend/internal/domains/payment/model"
	"cleaning-backend/internal/shared"
	"cleaning-backend/pkg/logger"
)

// =====================================================
// CONFIRM PAYMENT
// =====================================================

func (s *orderService) ConfirmPayment(ctx context.Context, orderID, userID uuid.UUID) (*model.PaymentResultResponse, error) {
	order, err := s.loadOrder(ctx, orderID, userID)
	if err != nil {
		return nil, err
	}

	if order.IsPaid() {
		return model.NewPaymentResult(order), nil
	}
	if order.Status != model.OrderStatusPending {
		return nil, model.NewOrderError(model.ErrCodePaymentNotCompleted,
			"Order is "+order.Status, model.ErrPaymentNotCompleted)
	}

	if order.Total.IsZero() {
		return s.finalizePaid(ctx, order)
	}
	if order.PaymentIntentID == nil {
		return nil, model.NewOrderError(model.ErrCodePaymentNotCompleted, "No payment has been started for this order", model.ErrNoPaymentIntent)
	}

	intent, err := s.Gateway.GetIntent(ctx, *order.PaymentIntentID)
	if err != nil {
		return nil, model.NewOrderError(model.ErrCodePaymentGateway, "Payment provider unavailable", err)
	}
	if intent.Status != gateway.IntentStatusSucceeded {
		return nil, model.NewOrderError(model.ErrCodePaymentNotCompleted, "Payment has not been completed", model.ErrPaymentNotCompleted)
	}
	if !intent.Amount.Equal(order.Total) {
		logger.ErrorWithFields("Paid amount does not match order total", model.ErrPaymentNotCompleted, map[string]interface{}{
			"order_id":  order.ID.String(),
			"intent_id": intent.ID,
			"paid":      intent.Amount.String(),
			"total":     order.Total.String(),
		})
		return nil, model.NewOrderError(model.ErrCodePaymentNotCompleted, "Paid amount does not match the order total", model.ErrPaymentNotCompleted)
	}

	return s.finalizePaid(ctx, order)
}

// finalizePaid marks the order paid and runs the confirmation side effects.
// Only the caller whose conditional update wins runs them.
func (s *orderService) finalizePaid(ctx context.Context, order *model.Order) (*model.PaymentResultResponse, error) {
	paidAt := s.now().UTC().Truncate(time.Microsecond)

	marked, err := s.OrderRepo.MarkPaid(ctx, order.ID, paidAt)
	if err != nil {
		return nil, model.NewOrderError(model.ErrCodeTxFailed, "Failed to confirm order", err)
	}
	if !marked {
		current, err := s.OrderRepo.GetOrderByID(ctx, order.ID)
		if err != nil {
			return nil, s.lookupError(err)
		}
		if current.IsPaid() {
			return model.NewPaymentResult(current), nil
		}
		return nil, model.NewOrderError(model.ErrCodePaymentNotCompleted, "Order is "+current.Status, model.ErrPaymentNotCompleted)
	}

	from := order.Status
	order.Status = model.OrderStatusConfirmed
	order.PaymentStatus = model.PaymentStatusPaid
	order.PaidAt = &paidAt
	order.Version++

	logger.Info("Order paid", map[string]interface{}{
		"order_id": order.ID.String(),
		"total":    order.Total.String(),
	})

	note := "Payment confirmed"
	if err := s.OrderRepo.CreateOrderStatusHistory(ctx, &model.OrderStatusHistory{
		ID:         uuid.New(),
		OrderID:    order.ID,
		FromStatus: &from,
		ToStatus:   order.Status,
		Notes:      &note,
	}); err != nil {
		logger.Error("Failed to write status history", err)
	}

	s.runConfirmationEffects(ctx, order)

	return model.NewPaymentResult(order), nil
}

// runConfirmationEffects never fails the confirmation.
func (s *orderService) runConfirmationEffects(ctx context.Context, order *model.Order) {
	if order.ApartmentID == nil {
		aptID, err := s.Apartments.Capture(ctx, order.UserID, apartmentModel.Address{
			Line1:   order.AddressLine1,
			Line2:   order.AddressLine2,
			City:    order.City,
			State:   order.State,
			ZipCode: order.ZipCode,
		})
		switch {
		case err != nil:
			logger.Warn("Apartment capture failed", map[string]interface{}{"order_id": order.ID.String(), "error": err.Error()})
		case aptID != uuid.Nil:
			if err := s.OrderRepo.SetApartment(ctx, order.ID, aptID); err != nil {
				logger.Warn("Apartment link failed", map[string]interface{}{"order_id": order.ID.String(), "error": err.Error()})
			} else {
				order.ApartmentID = &aptID
			}
		}
	}

	if order.SubscriptionID != nil {
		plan, err := s.Catalog.GetSubscription(ctx, *order.SubscriptionID)
		switch {
		case err != nil:
			logger.Warn("Subscription lookup failed", map[string]interface{}{"order_id": order.ID.String(), "error": err.Error()})
		case plan == nil:
			logger.Warn("Subscription no longer exists", map[string]interface{}{"order_id": order.ID.String()})
		default:
			if _, err := s.Subscriptions.ActivateOrRenew(ctx, order.UserID, plan, order.ID); err != nil {
				logger.Warn("Subscription activation failed", map[string]interface{}{"order_id": order.ID.String(), "error": err.Error()})
			}
		}
	}

	payload := shared.BookingNotificationPayload{
		OrderID:         order.ID.String(),
		OrderNumber:     order.OrderNumber,
		CustomerName:    order.ContactName,
		CustomerEmail:   order.ContactEmail,
		CustomerPhone:   order.ContactPhone,
		ServiceTypeName: order.ServiceTypeName,
		ScheduledAt:     order.ScheduledAt,
		Address:         order.FullAddress(),
		DurationMinutes: int(order.TotalDurationMinutes.Round(0).IntPart()),
		MaidsCount:      order.MaidsCount,
		Total:           order.Total.StringFixed(2),
		Currency:        s.settings.Currency,
	}
	s.Notifier.NotifyCustomerBookingConfirmed(ctx, payload)
	s.Notifier.NotifyCompanyNewBooking(ctx, payload)
}

func (s *orderService) loadOrder(ctx context.Context, orderID, userID uuid.UUID) (*model.Order, error) {
	var (
		order *model.Order
		err   error
	)
	if userID == uuid.Nil {
		order, err = s.OrderRepo.GetOrderByID(ctx, orderID)
	} else {
		order, err = s.OrderRepo.GetOrderByIDAndUserID(ctx, orderID, userID)
	}
	if err != nil {
		return nil, s.lookupError(err)
	}
	return order, nil
}

// =====================================================
// GATEWAY WEBHOOK
// =====================================================

func (s *orderService) HandleGatewayEvent(ctx context.Context, payload []byte, signature string) error {
	event, err := s.Gateway.ParseWebhook(payload, signature)
	if err != nil {
		return model.NewOrderError(model.ErrCodeInvalidInput, "Invalid webhook", err)
	}

	record, duplicate := s.recordWebhook(ctx, event)
	if duplicate {
		logger.Debug("Skipping already processed webhook " + event.ID)
		return nil
	}

	err = s.applyGatewayEvent(ctx, event, record)
	s.finishWebhook(ctx, record, err)
	return err
}

// recordWebhook writes the audit row. A failing audit store never blocks
// processing since confirmation is idempotent anyway.
func (s *orderService) recordWebhook(ctx context.Context, event *gateway.Event) (*paymentModel.WebhookEvent, bool) {
	if s.Webhooks == nil || event.ID == "" {
		return nil, false
	}

	record := &paymentModel.WebhookEvent{
		GatewayEventID: event.ID,
		EventType:      string(event.Type),
		IntentID:       event.IntentID,
		ReceivedAt:     s.now().UTC(),
	}
	processed, err := s.Webhooks.Record(ctx, record)
	if err != nil {
		logger.Warn("Failed to record webhook event", map[string]interface{}{
			"event_id": event.ID,
			"error":    err.Error(),
		})
		return nil, false
	}
	return record, processed
}

func (s *orderService) finishWebhook(ctx context.Context, record *paymentModel.WebhookEvent, procErr error) {
	if record == nil {
		return
	}
	record.MarkProcessed(s.now().UTC(), procErr)
	if err := s.Webhooks.Finish(ctx, record); err != nil {
		logger.Warn("Failed to store webhook outcome", map[string]interface{}{
			"event_id": record.GatewayEventID,
			"error":    err.Error(),
		})
	}
}

func (s *orderService) applyGatewayEvent(ctx context.Context, event *gateway.Event, record *paymentModel.WebhookEvent) error {
	order, err := s.orderForEvent(ctx, event)
	if err != nil {
		var oe *model.OrderError
		if errors.As(err, &oe) && oe.Code == model.ErrCodeOrderNotFound {
			logger.Warn("Webhook for unknown order ignored", map[string]interface{}{
				"event_id":  event.ID,
				"intent_id": event.IntentID,
			})
			return nil
		}
		return err
	}
	if record != nil {
		record.OrderID = &order.ID
	}

	switch event.Type {
	case gateway.EventIntentSucceeded:
		if event.IntentID != "" && (order.PaymentIntentID == nil || *order.PaymentIntentID != event.IntentID) {
			return s.confirmSupersededIntent(ctx, order, event.IntentID)
		}
		_, err := s.ConfirmPayment(ctx, order.ID, uuid.Nil)
		var oe *model.OrderError
		if errors.As(err, &oe) && oe.Code == model.ErrCodePaymentNotCompleted {
			logger.Warn("Webhook success not confirmed by gateway", map[string]interface{}{
				"order_id": order.ID.String(),
				"reason":   oe.Message,
			})
			return nil
		}
		return err

	case gateway.EventIntentFailed, gateway.EventIntentCanceled:
		if order.IsPaid() || order.PaymentIntentID == nil || *order.PaymentIntentID != event.IntentID {
			return nil
		}
		status := model.PaymentStatusFailed
		if event.Type == gateway.EventIntentCanceled {
			status = model.PaymentStatusUnpaid
		}
		logger.Info("Payment not completed", map[string]interface{}{
			"order_id": order.ID.String(),
			"event":    string(event.Type),
		})
		return s.OrderRepo.SetPaymentIntent(ctx, order.ID, order.PaymentIntentID, order.PaymentClientSecret, status)
	}

	logger.Debug("Ignoring webhook event " + string(event.Type))
	return nil
}

// confirmSupersededIntent handles a success on an intent the order no longer
// points at, e.g. a replaced intent the customer still completed. The charge
// is real, so it confirms the order when it can and flags a refund otherwise.
func (s *orderService) confirmSupersededIntent(ctx context.Context, order *model.Order, intentID string) error {
	intent, err := s.Gateway.GetIntent(ctx, intentID)
	if err != nil {
		return model.NewOrderError(model.ErrCodePaymentGateway, "Payment provider unavailable", err)
	}
	if intent.Status != gateway.IntentStatusSucceeded {
		logger.Warn("Webhook success not confirmed by gateway", map[string]interface{}{
			"order_id":  order.ID.String(),
			"intent_id": intentID,
		})
		return nil
	}

	fields := map[string]interface{}{
		"order_id":  order.ID.String(),
		"intent_id": intent.ID,
		"paid":      intent.Amount.String(),
		"total":     order.Total.String(),
		"status":    order.Status,
	}
	if order.IsPaid() || order.Status != model.OrderStatusPending || !intent.Amount.Equal(order.Total) {
		logger.ErrorWithFields("Payment captured on superseded intent, refund required", model.ErrDuplicatePayment, fields)
		return nil
	}

	if order.PaymentIntentID != nil {
		if err := s.Gateway.CancelIntent(ctx, *order.PaymentIntentID); err != nil {
			logger.Warn("Failed to cancel replaced payment intent", map[string]interface{}{
				"order_id":  order.ID.String(),
				"intent_id": *order.PaymentIntentID,
				"error":     err.Error(),
			})
		}
	}

	var secret *string
	if intent.ClientSecret != "" {
		secret = &intent.ClientSecret
	}
	if err := s.OrderRepo.SetPaymentIntent(ctx, order.ID, &intent.ID, secret, model.PaymentStatusPending); err != nil {
		return model.NewOrderError(model.ErrCodeTxFailed, "Failed to relink payment", err)
	}
	order.PaymentIntentID = &intent.ID
	order.PaymentClientSecret = secret

	logger.Warn("Order confirmed through superseded payment intent", fields)
	_, err = s.finalizePaid(ctx, order)
	return err
}

func (s *orderService) orderForEvent(ctx context.Context, event *gateway.Event) (*model.Order, error) {
	if event.IntentID != "" {
		order, err := s.OrderRepo.GetOrderByPaymentIntent(ctx, event.IntentID)
		if err == nil {
			return order, nil
		}
		if !errors.Is(err, model.ErrOrderNotFound) {
			return nil, err
		}
	}

	id, err := uuid.Parse(event.OrderID)
	if err != nil {
		return nil, model.NewOrderError(model.ErrCodeOrderNotFound, "Order not found", model.ErrOrderNotFound)
	}
	return s.loadOrder(ctx, id, uuid.Nil)
}

// =====================================================
// RECONCILIATION
// =====================================================

func (s *orderService) ReconcilePendingPayments(ctx context.Context, minAge time.Duration, limit int) (*model.ReconcileResult, error) {
	orders, err := s.OrderRepo.ListPendingWithIntent(ctx, s.now().Add(-minAge), limit)
	if err != nil {
		return nil, err
	}

	result := &model.ReconcileResult{}
	for _, o := range orders {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Checked++

		res, err := s.ConfirmPayment(ctx, o.ID, uuid.Nil)
		if err == nil {
			if res.PaymentStatus == model.PaymentStatusPaid {
				result.Confirmed++
			}
			continue
		}

		var oe *model.OrderError
		if errors.As(err, &oe) && oe.Code == model.ErrCodePaymentNotCompleted {
			continue
		}
		result.Failed++
		logger.ErrorWithFields("Reconciliation failed for order", err, map[string]interface{}{
			"order_id": o.ID.String(),
		})
	}

	if result.Checked > 0 {
		logger.Info("Payment reconciliation finished", map[string]interface{}{
			"checked":   result.Checked,
			"confirmed": result.Confirmed,
			"failed":    result.Failed,
		})
	}
	return result, nil
}
