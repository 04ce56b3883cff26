package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"cleaning-backend/internal/domains/order/model"
)

// =====================================================
// ORDER REPOSITORY INTERFACE
// =====================================================
type OrderRepository interface {
	// Order operations
	CreateOrderWithTx(ctx context.Context, tx pgx.Tx, order *model.Order) error
	GetOrderByID(ctx context.Context, orderID uuid.UUID) (*model.Order, error)
	GetOrderByIDAndUserID(ctx context.Context, orderID, userID uuid.UUID) (*model.Order, error)
	GetOrderByPaymentIntent(ctx context.Context, intentID string) (*model.Order, error)
	// LockOrderWithTx reads the order FOR UPDATE.
	LockOrderWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID) (*model.Order, error)

	// UpdatePricingWithTx rewrites the priced fields with optimistic locking.
	UpdatePricingWithTx(ctx context.Context, tx pgx.Tx, order *model.Order, version int) error
	UpdateTotalsWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, giftCardUsed, total decimal.Decimal) error
	SetPaymentIntent(ctx context.Context, orderID uuid.UUID, intentID, clientSecret *string, paymentStatus string) error

	// MarkPaid flips an unpaid order to paid. It reports false when the order
	// was already paid (or is not payable), which callers treat as a no-op.
	MarkPaid(ctx context.Context, orderID uuid.UUID, paidAt time.Time) (bool, error)
	SetApartment(ctx context.Context, orderID, apartmentID uuid.UUID) error
	CancelOrderWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, reason string, version int) error

	// Order items operations
	ReplaceOrderItemsWithTx(ctx context.Context, tx pgx.Tx, orderID uuid.UUID, items []model.OrderItem) error
	GetOrderItemsByOrderID(ctx context.Context, orderID uuid.UUID) ([]model.OrderItem, error)

	// List operations
	ListOrdersByUserID(ctx context.Context, userID uuid.UUID, status string, page, limit int) ([]model.Order, int, error)
	ListPendingWithIntent(ctx context.Context, olderThan time.Time, limit int) ([]model.Order, error)
	CountConfirmedOrdersByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// Order status history
	CreateOrderStatusHistory(ctx context.Context, history *model.OrderStatusHistory) error
	CreateOrderStatusHistoryWithTx(ctx context.Context, tx pgx.Tx, history *model.OrderStatusHistory) error
}
