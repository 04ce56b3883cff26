package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"cleaning-backend/internal/domains/order/model"
	"cleaning-backend/internal/domains/order/service"
	"cleaning-backend/internal/shared/response"
	"cleaning-backend/pkg/logger"
)

const maxWebhookBytes = 64 << 10

// =====================================================
// ORDER HANDLER
// =====================================================
type OrderHandler struct {
	orderService service.OrderService
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{
		orderService: orderService,
	}
}

// =====================================================
// ROUTES REGISTRATION
// =====================================================

// RegisterRoutes registers customer routes; router must carry the auth middleware.
func (h *OrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	userRoutes := router.Group("/orders")
	{
		userRoutes.POST("/quote", h.Quote)                    // POST /v1/orders/quote
		userRoutes.POST("", h.Checkout)                       // POST /v1/orders
		userRoutes.GET("", h.ListOrders)                      // GET /v1/orders?page=1&limit=20&status=pending
		userRoutes.GET("/:id", h.GetOrderDetail)              // GET /v1/orders/:id
		userRoutes.PUT("/:id", h.UpdateOrder)                 // PUT /v1/orders/:id
		userRoutes.POST("/:id/confirm", h.ConfirmPayment)     // POST /v1/orders/:id/confirm
		userRoutes.POST("/:id/retry-payment", h.RetryPayment) // POST /v1/orders/:id/retry-payment
		userRoutes.PATCH("/:id/cancel", h.CancelOrder)        // PATCH /v1/orders/:id/cancel
	}
}

// RegisterAdminRoutes registers staff routes; router must carry the admin middleware.
func (h *OrderHandler) RegisterAdminRoutes(router *gin.RouterGroup) {
	adminRoutes := router.Group("/admin/orders")
	{
		adminRoutes.POST("", h.CheckoutOnBehalf) // POST /v1/admin/orders
	}
}

// RegisterWebhookRoutes registers the unauthenticated payment webhook.
func (h *OrderHandler) RegisterWebhookRoutes(router *gin.RouterGroup) {
	router.POST("/webhooks/payments", h.PaymentWebhook)
}

// =====================================================
// QUOTE
// =====================================================

// Quote godoc
// @Summary Price a booking
// @Description Prices the selection without saving anything. Invalid discounts are reported, not rejected.
// @Tags Orders
// @Accept json
// @Produce json
// @Param request body model.PricingRequest true "Pricing request"
// @Success 200 {object} response.Response{data=model.QuoteResponse}
// @Router /v1/orders/quote [post]
func (h *OrderHandler) Quote(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req model.PricingRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.orderService.Quote(c.Request.Context(), userID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// =====================================================
// CHECKOUT
// =====================================================

// Checkout godoc
// @Summary Book a cleaning
// @Description Creates the order, applies promotion/gift card/special offer and starts the payment
// @Tags Orders
// @Accept json
// @Produce json
// @Param request body model.CheckoutRequest true "Checkout request"
// @Success 201 {object} response.Response{data=model.CheckoutResponse}
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Failure 502 {object} response.Response
// @Router /v1/orders [post]
func (h *OrderHandler) Checkout(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req model.CheckoutRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.orderService.Checkout(c.Request.Context(), userID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// CheckoutOnBehalf godoc
// @Summary Book for a customer
// @Description Staff booking; custom pricing is accepted here
// @Tags Admin Orders
// @Accept json
// @Produce json
// @Param request body model.CheckoutOnBehalfRequest true "Checkout request"
// @Success 201 {object} response.Response{data=model.CheckoutResponse}
// @Router /v1/admin/orders [post]
func (h *OrderHandler) CheckoutOnBehalf(c *gin.Context) {
	adminID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req model.CheckoutOnBehalfRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.orderService.CheckoutOnBehalf(c.Request.Context(), adminID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, result)
}

// =====================================================
// UPDATE ORDER
// =====================================================

func (h *OrderHandler) UpdateOrder(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req model.UpdateOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.orderService.UpdateOrder(c.Request.Context(), orderID, userID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// =====================================================
// PAYMENT
// =====================================================

// ConfirmPayment godoc
// @Summary Confirm payment
// @Description Checks the payment with the provider and confirms the order. Safe to call repeatedly.
// @Tags Orders
// @Produce json
// @Param id path string true "Order ID (UUID)"
// @Success 200 {object} response.Response{data=model.PaymentResultResponse}
// @Failure 402 {object} response.Response
// @Router /v1/orders/{id}/confirm [post]
func (h *OrderHandler) ConfirmPayment(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	result, err := h.orderService.ConfirmPayment(c.Request.Context(), orderID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

func (h *OrderHandler) RetryPayment(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	result, err := h.orderService.RetryPaymentIntent(c.Request.Context(), orderID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

// PaymentWebhook receives provider events. Only malformed or unsigned
// payloads are refused; everything else is acknowledged so the provider
// stops redelivering.
func (h *OrderHandler) PaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		response.BadRequest(c, "Unreadable body")
		return
	}

	err = h.orderService.HandleGatewayEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		var orderErr *model.OrderError
		if errors.As(err, &orderErr) && orderErr.Code == model.ErrCodeInvalidInput {
			response.BadRequest(c, "Invalid webhook")
			return
		}
		logger.Error("Webhook processing failed", err)
		response.InternalServerError(c, "Webhook processing failed")
		return
	}
	response.Success(c, http.StatusOK, gin.H{"received": true})
}

// =====================================================
// CANCEL ORDER
// =====================================================

// CancelOrder godoc
// @Summary Cancel order
// @Description Cancels an unpaid order and returns gift card credit, special offer and promo usage
// @Tags Orders
// @Accept json
// @Produce json
// @Param id path string true "Order ID (UUID)"
// @Param request body model.CancelOrderRequest true "Cancel request"
// @Success 200 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /v1/orders/{id}/cancel [patch]
func (h *OrderHandler) CancelOrder(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	var req model.CancelOrderRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.orderService.CancelOrder(c.Request.Context(), orderID, userID, req); err != nil {
		h.handleServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"order_id": orderID, "status": model.OrderStatusCancelled})
}

// =====================================================
// QUERIES
// =====================================================

func (h *OrderHandler) GetOrderDetail(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}
	orderID, ok := parseOrderID(c)
	if !ok {
		return
	}

	result, err := h.orderService.GetOrderDetail(c.Request.Context(), orderID, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, result)
}

func (h *OrderHandler) ListOrders(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req model.ListOrdersRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, "Invalid query parameters")
		return
	}

	result, err := h.orderService.ListOrders(c.Request.Context(), userID, req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	response.SuccessWithMeta(c, http.StatusOK, result.Orders, &response.Meta{
		Page:  result.Pagination.Page,
		Limit: result.Pagination.Limit,
		Total: result.Pagination.Total,
	})
}

// =====================================================
// HELPERS
// =====================================================

func (h *OrderHandler) requireUser(c *gin.Context) (uuid.UUID, bool) {
	userID, err := h.getUserIDFromContext(c)
	if err != nil {
		response.Unauthorized(c, "Unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

func (h *OrderHandler) getUserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	// set by the auth middleware
	userIDInterface, exists := c.Get("userID")
	if !exists {
		return uuid.Nil, errors.New("userID not found in context")
	}

	switch v := userIDInterface.(type) {
	case uuid.UUID:
		return v, nil
	case string:
		return uuid.Parse(v)
	default:
		return uuid.Nil, errors.New("invalid userID type in context")
	}
}

func parseOrderID(c *gin.Context) (uuid.UUID, bool) {
	orderID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, model.ErrCodeInvalidInput, "Invalid order ID", map[string]string{
			"error": "Order ID must be a valid UUID",
		})
		return uuid.Nil, false
	}
	return orderID, true
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.ErrorWithDetails(c, http.StatusBadRequest, model.ErrCodeInvalidInput, "Invalid request body", map[string]string{
			"error": err.Error(),
		})
		return false
	}
	return true
}

// handleServiceError maps service errors to HTTP responses
func (h *OrderHandler) handleServiceError(c *gin.Context, err error) {
	var orderErr *model.OrderError
	if errors.As(err, &orderErr) {
		details := map[string]interface{}{}
		if orderErr.OrderID != nil {
			details["order_id"] = orderErr.OrderID.String()
		}
		if orderErr.Code == model.ErrCodeInvalidInput && orderErr.Err != nil {
			details["error"] = orderErr.Err.Error()
		}
		if len(details) == 0 {
			response.ErrorResponse(c, statusForCode(orderErr.Code), orderErr.Code, orderErr.Message)
			return
		}
		response.ErrorWithDetails(c, statusForCode(orderErr.Code), orderErr.Code, orderErr.Message, details)
		return
	}

	if errors.Is(err, model.ErrOrderNotFound) {
		response.NotFound(c, "Order not found")
		return
	}

	logger.Error("Unhandled order error", err)
	response.InternalServerError(c, "Internal server error")
}

func statusForCode(code string) int {
	switch code {
	case model.ErrCodeInvalidInput:
		return http.StatusBadRequest
	case model.ErrCodeUnauthorized:
		return http.StatusForbidden
	case model.ErrCodeOrderNotFound:
		return http.StatusNotFound
	case model.ErrCodeDiscountConflict, model.ErrCodeVersionMismatch,
		model.ErrCodeCannotCancel, model.ErrCodeCannotUpdate:
		return http.StatusConflict
	case model.ErrCodeNegativeTotal:
		return http.StatusUnprocessableEntity
	case model.ErrCodePaymentNotCompleted:
		return http.StatusPaymentRequired
	case model.ErrCodePaymentSetupFailed, model.ErrCodePaymentGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
