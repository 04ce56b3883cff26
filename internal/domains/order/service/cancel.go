package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"cleaning-backend/internal/domains/order/model"
	"cleaning-backend/pkg/logger"
)

// =====================================================
// CANCEL ORDER
// =====================================================

func (s *orderService) CancelOrder(ctx context.Context, orderID, userID uuid.UUID, req model.CancelOrderRequest) error {
	// 1. Validate request
	if err := req.Validate(); err != nil {
		return model.NewOrderError(model.ErrCodeInvalidInput, "Invalid cancel request", err)
	}

	// 2. Get order and verify ownership
	order, err := s.OrderRepo.GetOrderByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		return s.lookupError(err)
	}

	// 3. Business rule: only unpaid pending orders
	if !order.CanBeCancelled() {
		return model.NewOrderError(
			model.ErrCodeCannotCancel,
			fmt.Sprintf("Order with status '%s' cannot be cancelled", order.Status),
			model.ErrOrderCannotCancel,
		)
	}

	if order.Version != req.Version {
		return model.NewOrderError(model.ErrCodeVersionMismatch, "Order was modified, reload and retry", model.ErrVersionMismatch)
	}

	// 4. Stop the payment first so nothing can be charged for a cancelled order
	if err := s.voidIntent(ctx, order); err != nil {
		var oe *model.OrderError
		if errors.As(err, &oe) && oe.Code == model.ErrCodeCannotUpdate {
			return model.NewOrderError(model.ErrCodeCannotCancel, "Order has already been paid", model.ErrOrderCannotCancel)
		}
		return err
	}

	// 5. Cancel + compensations in one transaction
	var credited string
	err = s.TxManager.WithinTx(ctx, func(tx pgx.Tx) error {
		if err := s.lockUnpaid(ctx, tx, order.ID, req.Version, model.ErrCodeCannotCancel, model.ErrOrderCannotCancel); err != nil {
			return err
		}
		if err := s.OrderRepo.CancelOrderWithTx(ctx, tx, order.ID, req.CancellationReason, req.Version); err != nil {
			return err
		}

		amount, err := s.GiftCards.Reverse(ctx, tx, order.ID)
		if err != nil {
			return err
		}
		credited = amount.String()

		if err := s.Offers.Restore(ctx, tx, order.ID); err != nil {
			return err
		}
		if err := s.Promotions.ReleaseUsage(ctx, tx, order.ID); err != nil {
			return err
		}

		return s.OrderRepo.CreateOrderStatusHistoryWithTx(ctx, tx, &model.OrderStatusHistory{
			ID:         uuid.New(),
			OrderID:    order.ID,
			FromStatus: &order.Status,
			ToStatus:   model.OrderStatusCancelled,
			ChangedBy:  &userID,
			Notes:      &req.CancellationReason,
		})
	})
	if err != nil {
		return s.txError(err, "Failed to cancel order")
	}

	logger.Info("Order cancelled", map[string]interface{}{
		"order_id":          order.ID.String(),
		"gift_card_credit":  credited,
		"cancelled_by_user": userID.String(),
	})
	return nil
}

// lockUnpaid takes the row lock before discounts are reversed and rechecks
// the order, since a webhook may have paid it after it was read.
func (s *orderService) lockUnpaid(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, version int, code string, reason error) error {
	locked, err := s.OrderRepo.LockOrderWithTx(ctx, tx, orderID)
	if err != nil {
		return err
	}
	if locked.IsPaid() || locked.Status != model.OrderStatusPending {
		return model.NewOrderError(code, fmt.Sprintf("Order is %s", locked.Status), reason)
	}
	if locked.Version != version {
		return model.ErrVersionMismatch
	}
	return nil
}

// =====================================================
// QUERIES
// =====================================================

func (s *orderService) GetOrderDetail(ctx context.Context, orderID, userID uuid.UUID) (*model.OrderDetailResponse, error) {
	order, err := s.OrderRepo.GetOrderByIDAndUserID(ctx, orderID, userID)
	if err != nil {
		return nil, s.lookupError(err)
	}

	items, err := s.OrderRepo.GetOrderItemsByOrderID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to get order items: %w", err)
	}

	return &model.OrderDetailResponse{Order: order, Items: items}, nil
}

func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID, req model.ListOrdersRequest) (*model.ListOrdersResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidInput, "Invalid status filter", err)
	}

	orders, total, err := s.OrderRepo.ListOrdersByUserID(ctx, userID, req.Status, req.Page, req.Limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	totalPages := 0
	if req.Limit > 0 {
		totalPages = int(math.Ceil(float64(total) / float64(req.Limit)))
	}

	return &model.ListOrdersResponse{
		Orders: orders,
		Pagination: model.PaginationMeta{
			Page:       req.Page,
			Limit:      req.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	}, nil
}
