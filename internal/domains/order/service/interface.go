package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"cleaning-backend/internal/domains/order/model"
)

// =====================================================
// ORDER SERVICE INTERFACE
// =====================================================
type OrderService interface {
	// Quote prices a request without persisting anything.
	Quote(ctx context.Context, userID uuid.UUID, req model.PricingRequest) (*model.QuoteResponse, error)

	// Checkout books for the calling user.
	Checkout(ctx context.Context, userID uuid.UUID, req model.CheckoutRequest) (*model.CheckoutResponse, error)

	// CheckoutOnBehalf books for req.UserID; custom pricing is allowed here.
	CheckoutOnBehalf(ctx context.Context, adminID uuid.UUID, req model.CheckoutOnBehalfRequest) (*model.CheckoutResponse, error)

	// UpdateOrder re-prices an unpaid order.
	UpdateOrder(ctx context.Context, orderID, userID uuid.UUID, req model.UpdateOrderRequest) (*model.CheckoutResponse, error)

	// ConfirmPayment is idempotent. userID == uuid.Nil skips the ownership check.
	ConfirmPayment(ctx context.Context, orderID, userID uuid.UUID) (*model.PaymentResultResponse, error)

	// RetryPaymentIntent re-requests a payment intent for an unpaid order.
	RetryPaymentIntent(ctx context.Context, orderID, userID uuid.UUID) (*model.CheckoutResponse, error)

	// CancelOrder cancels an unpaid order and reverses its gift card,
	// special offer and promotion effects.
	CancelOrder(ctx context.Context, orderID, userID uuid.UUID, req model.CancelOrderRequest) error

	// HandleGatewayEvent processes a signed payment webhook.
	HandleGatewayEvent(ctx context.Context, payload []byte, signature string) error

	// ReconcilePendingPayments confirms orders whose webhook was lost.
	ReconcilePendingPayments(ctx context.Context, minAge time.Duration, limit int) (*model.ReconcileResult, error)

	GetOrderDetail(ctx context.Context, orderID, userID uuid.UUID) (*model.OrderDetailResponse, error)
	ListOrders(ctx context.Context, userID uuid.UUID, req model.ListOrdersRequest) (*model.ListOrdersResponse, error)
}
