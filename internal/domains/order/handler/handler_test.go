package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleaning-backend/internal/domains/order/model"
	"cleaning-backend/internal/domains/order/service"
)

type stubService struct {
	service.OrderService

	checkout  func(userID uuid.UUID, req model.CheckoutRequest) (*model.CheckoutResponse, error)
	confirm   func(orderID, userID uuid.UUID) (*model.PaymentResultResponse, error)
	cancel    func(orderID, userID uuid.UUID, req model.CancelOrderRequest) error
	webhook   func(payload []byte, signature string) error
	listOrder func(userID uuid.UUID, req model.ListOrdersRequest) (*model.ListOrdersResponse, error)
}

func (s *stubService) Checkout(_ context.Context, userID uuid.UUID, req model.CheckoutRequest) (*model.CheckoutResponse, error) {
	return s.checkout(userID, req)
}

func (s *stubService) ConfirmPayment(_ context.Context, orderID, userID uuid.UUID) (*model.PaymentResultResponse, error) {
	return s.confirm(orderID, userID)
}

func (s *stubService) CancelOrder(_ context.Context, orderID, userID uuid.UUID, req model.CancelOrderRequest) error {
	return s.cancel(orderID, userID, req)
}

func (s *stubService) HandleGatewayEvent(_ context.Context, payload []byte, signature string) error {
	return s.webhook(payload, signature)
}

func (s *stubService) ListOrders(_ context.Context, userID uuid.UUID, req model.ListOrdersRequest) (*model.ListOrdersResponse, error) {
	return s.listOrder(userID, req)
}

var userID = uuid.MustParse("9c1b7e52-43a0-4f7c-9e55-000000000001")

func newRouter(svc service.OrderService, authenticated bool) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewOrderHandler(svc)

	v1 := r.Group("/v1")
	h.RegisterWebhookRoutes(v1)

	protected := v1.Group("")
	if authenticated {
		protected.Use(func(c *gin.Context) {
			c.Set("userID", userID)
			c.Next()
		})
	}
	h.RegisterRoutes(protected)
	return r
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code    string                 `json:"code"`
		Message string                 `json:"message"`
		Details map[string]interface{} `json:"details"`
	} `json:"error"`
}

func do(t *testing.T, r http.Handler, method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()

	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return w, env
}

func TestCheckout_Created(t *testing.T) {
	orderID := uuid.New()
	svc := &stubService{
		checkout: func(uid uuid.UUID, req model.CheckoutRequest) (*model.CheckoutResponse, error) {
			assert.Equal(t, userID, uid)
			assert.Equal(t, "Jordan Reyes", req.ContactName)
			return &model.CheckoutResponse{OrderID: orderID, Total: decimal.RequireFromString("100"), RequiresPayment: true}, nil
		},
	}

	w, env := do(t, newRouter(svc, true), http.MethodPost, "/v1/orders", map[string]interface{}{
		"service_type_id": uuid.New(),
		"contact_name":    "Jordan Reyes",
		"scheduled_at":    time.Now().Add(48 * time.Hour),
	}, nil)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.True(t, env.Success)
	assert.Contains(t, string(env.Data), orderID.String())
}

func TestCheckout_RequiresAuth(t *testing.T) {
	w, env := do(t, newRouter(&stubService{}, false), http.MethodPost, "/v1/orders", map[string]string{}, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)
}

func TestCheckout_MalformedBody(t *testing.T) {
	w, env := do(t, newRouter(&stubService{}, true), http.MethodPost, "/v1/orders", []byte(`{"service_type_id":`), nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, model.ErrCodeInvalidInput, env.Error.Code)
}

func TestCheckout_ErrorMapping(t *testing.T) {
	orderID := uuid.New()
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"discount conflict", model.NewOrderError(model.ErrCodeDiscountConflict, "Promo code has expired", nil), http.StatusConflict, model.ErrCodeDiscountConflict},
		{"negative total", model.NewOrderError(model.ErrCodeNegativeTotal, "Discounts exceed the order amount", model.ErrNegativeTotal), http.StatusUnprocessableEntity, model.ErrCodeNegativeTotal},
		{"transaction failed", model.NewOrderError(model.ErrCodeTxFailed, "Failed to create order", errors.New("deadlock")), http.StatusInternalServerError, model.ErrCodeTxFailed},
		{"payment setup failed", model.NewOrderError(model.ErrCodePaymentSetupFailed, "Order saved but payment setup failed", errors.New("timeout")).WithOrder(orderID), http.StatusBadGateway, model.ErrCodePaymentSetupFailed},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubService{
				checkout: func(uuid.UUID, model.CheckoutRequest) (*model.CheckoutResponse, error) {
					return nil, tt.err
				},
			}
			w, env := do(t, newRouter(svc, true), http.MethodPost, "/v1/orders", map[string]string{}, nil)
			assert.Equal(t, tt.status, w.Code)
			require.NotNil(t, env.Error)
			assert.Equal(t, tt.code, env.Error.Code)
		})
	}
}

func TestCheckout_PaymentSetupFailureCarriesOrderID(t *testing.T) {
	orderID := uuid.New()
	svc := &stubService{
		checkout: func(uuid.UUID, model.CheckoutRequest) (*model.CheckoutResponse, error) {
			return &model.CheckoutResponse{OrderID: orderID},
				model.NewOrderError(model.ErrCodePaymentSetupFailed, "Order saved but payment setup failed", errors.New("timeout")).WithOrder(orderID)
		},
	}

	_, env := do(t, newRouter(svc, true), http.MethodPost, "/v1/orders", map[string]string{}, nil)
	require.NotNil(t, env.Error)
	assert.Equal(t, orderID.String(), env.Error.Details["order_id"])
}

func TestConfirmPayment(t *testing.T) {
	orderID := uuid.New()
	svc := &stubService{
		confirm: func(oid, uid uuid.UUID) (*model.PaymentResultResponse, error) {
			assert.Equal(t, orderID, oid)
			assert.Equal(t, userID, uid)
			return &model.PaymentResultResponse{OrderID: oid, PaymentStatus: model.PaymentStatusPaid}, nil
		},
	}

	w, env := do(t, newRouter(svc, true), http.MethodPost, "/v1/orders/"+orderID.String()+"/confirm", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), model.PaymentStatusPaid)
}

func TestConfirmPayment_NotPaidYet(t *testing.T) {
	svc := &stubService{
		confirm: func(uuid.UUID, uuid.UUID) (*model.PaymentResultResponse, error) {
			return nil, model.NewOrderError(model.ErrCodePaymentNotCompleted, "Payment has not been completed", model.ErrPaymentNotCompleted)
		},
	}

	w, _ := do(t, newRouter(svc, true), http.MethodPost, "/v1/orders/"+uuid.NewString()+"/confirm", nil, nil)
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestConfirmPayment_InvalidID(t *testing.T) {
	w, env := do(t, newRouter(&stubService{}, true), http.MethodPost, "/v1/orders/not-a-uuid/confirm", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	require.NotNil(t, env.Error)
	assert.Equal(t, model.ErrCodeInvalidInput, env.Error.Code)
}

func TestCancelOrder(t *testing.T) {
	orderID := uuid.New()
	svc := &stubService{
		cancel: func(oid, uid uuid.UUID, req model.CancelOrderRequest) error {
			assert.Equal(t, orderID, oid)
			assert.Equal(t, 2, req.Version)
			return nil
		},
	}

	w, env := do(t, newRouter(svc, true), http.MethodPatch, "/v1/orders/"+orderID.String()+"/cancel",
		model.CancelOrderRequest{CancellationReason: "Plans changed", Version: 2}, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, string(env.Data), model.OrderStatusCancelled)
}

func TestCancelOrder_Conflict(t *testing.T) {
	svc := &stubService{
		cancel: func(uuid.UUID, uuid.UUID, model.CancelOrderRequest) error {
			return model.NewOrderError(model.ErrCodeVersionMismatch, "Order was modified, reload and retry", model.ErrVersionMismatch)
		},
	}

	w, env := do(t, newRouter(svc, true), http.MethodPatch, "/v1/orders/"+uuid.NewString()+"/cancel",
		model.CancelOrderRequest{CancellationReason: "Plans changed", Version: 1}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, model.ErrCodeVersionMismatch, env.Error.Code)
}

func TestListOrders_Meta(t *testing.T) {
	svc := &stubService{
		listOrder: func(_ uuid.UUID, req model.ListOrdersRequest) (*model.ListOrdersResponse, error) {
			assert.Equal(t, 2, req.Page)
			return &model.ListOrdersResponse{
				Orders:     []model.Order{},
				Pagination: model.PaginationMeta{Page: 2, Limit: 10, Total: 14, TotalPages: 2},
			}, nil
		},
	}

	w, _ := do(t, newRouter(svc, true), http.MethodGet, "/v1/orders?page=2&limit=10", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Meta struct {
			Total int `json:"total"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 14, body.Meta.Total)
}

func TestPaymentWebhook(t *testing.T) {
	var gotSig string
	var gotPayload []byte
	svc := &stubService{
		webhook: func(payload []byte, signature string) error {
			gotPayload, gotSig = payload, signature
			if signature != "t=1,v1=good" {
				return model.NewOrderError(model.ErrCodeInvalidInput, "Invalid webhook", errors.New("bad signature"))
			}
			return nil
		},
	}
	r := newRouter(svc, false)

	w, _ := do(t, r, http.MethodPost, "/v1/webhooks/payments", []byte(`{"id":"evt_1"}`), map[string]string{"Stripe-Signature": "t=1,v1=good"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "t=1,v1=good", gotSig)
	assert.JSONEq(t, `{"id":"evt_1"}`, string(gotPayload))

	w, _ = do(t, r, http.MethodPost, "/v1/webhooks/payments", []byte(`{}`), map[string]string{"Stripe-Signature": "forged"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
