package model

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cleaning-backend/internal/domains/pricing"
)

// =====================================================
// VALIDATION RULES
// =====================================================

var requiredUUID = validation.By(func(value interface{}) error {
	switch v := value.(type) {
	case uuid.UUID:
		if v == uuid.Nil {
			return errors.New("cannot be blank")
		}
	case *uuid.UUID:
		if v != nil && *v == uuid.Nil {
			return errors.New("must be a valid id")
		}
	}
	return nil
})

var nonNegativeDecimal = validation.By(func(value interface{}) error {
	switch v := value.(type) {
	case decimal.Decimal:
		if v.IsNegative() {
			return errors.New("must not be negative")
		}
	case *decimal.Decimal:
		if v != nil && v.IsNegative() {
			return errors.New("must not be negative")
		}
	}
	return nil
})

// =====================================================
// PRICING REQUEST (shared by quote, checkout, update)
// =====================================================

type LineRequest struct {
	LineID   uuid.UUID       `json:"line_id"`
	Quantity int             `json:"quantity"`
	Hours    decimal.Decimal `json:"hours"`
}

func (l LineRequest) Validate() error {
	return validation.ValidateStruct(&l,
		validation.Field(&l.LineID, requiredUUID),
		validation.Field(&l.Quantity, validation.Min(0)),
		validation.Field(&l.Hours, nonNegativeDecimal),
	)
}

type CustomPricingRequest struct {
	Amount          *decimal.Decimal `json:"amount,omitempty"`
	DurationMinutes *int             `json:"duration_minutes,omitempty"`
	MaidsCount      *int             `json:"maids_count,omitempty"`
}

func (c CustomPricingRequest) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Amount, nonNegativeDecimal),
		validation.Field(&c.DurationMinutes, validation.Min(0)),
		validation.Field(&c.MaidsCount, validation.Min(1)),
	)
}

type PricingRequest struct {
	ServiceTypeID uuid.UUID     `json:"service_type_id"`
	Services      []LineRequest `json:"services"`
	Extras        []LineRequest `json:"extras"`

	SubscriptionID *uuid.UUID `json:"subscription_id,omitempty"`
	PromoCode      *string    `json:"promo_code,omitempty"`
	GiftCardCode   *string    `json:"gift_card_code,omitempty"`
	// GiftCardAmount <= 0 uses as much of the card as the order allows.
	GiftCardAmount decimal.Decimal `json:"gift_card_amount"`

	Tips                  decimal.Decimal `json:"tips"`
	CompanyDevelopmentTip decimal.Decimal `json:"company_development_tip"`

	DurationMinutes *decimal.Decimal      `json:"duration_minutes,omitempty"`
	MaidsCount      *int                  `json:"maids_count,omitempty"`
	Custom          *CustomPricingRequest `json:"custom_pricing,omitempty"`
}

func (req PricingRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.ServiceTypeID, requiredUUID),
		validation.Field(&req.Services, validation.Length(0, 50)),
		validation.Field(&req.Extras, validation.Length(0, 50)),
		validation.Field(&req.SubscriptionID, requiredUUID),
		validation.Field(&req.PromoCode, validation.NilOrNotEmpty, validation.Length(1, 50)),
		validation.Field(&req.GiftCardCode, validation.NilOrNotEmpty, validation.Length(1, 50)),
		validation.Field(&req.Tips, nonNegativeDecimal),
		validation.Field(&req.CompanyDevelopmentTip, nonNegativeDecimal),
		validation.Field(&req.DurationMinutes, nonNegativeDecimal),
		validation.Field(&req.MaidsCount, validation.Min(1)),
		validation.Field(&req.Custom),
	)
}

// Promo returns the trimmed promo code, or "".
func (req PricingRequest) Promo() string {
	if req.PromoCode == nil {
		return ""
	}
	return strings.TrimSpace(*req.PromoCode)
}

// GiftCard returns the trimmed gift card code, or "".
func (req PricingRequest) GiftCard() string {
	if req.GiftCardCode == nil {
		return ""
	}
	return strings.TrimSpace(*req.GiftCardCode)
}

func (req PricingRequest) ServiceLineIDs() []uuid.UUID {
	return lineIDs(req.Services)
}

func (req PricingRequest) ExtraLineIDs() []uuid.UUID {
	return lineIDs(req.Extras)
}

func (req PricingRequest) ServiceSelections() []pricing.SelectionLine {
	return selections(req.Services)
}

func (req PricingRequest) ExtraSelections() []pricing.SelectionLine {
	return selections(req.Extras)
}

func (req PricingRequest) CustomPricing() *pricing.CustomPricing {
	if req.Custom == nil {
		return nil
	}
	return &pricing.CustomPricing{
		Amount:          req.Custom.Amount,
		DurationMinutes: req.Custom.DurationMinutes,
		MaidsCount:      req.Custom.MaidsCount,
	}
}

func lineIDs(lines []LineRequest) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, l := range lines {
		ids = append(ids, l.LineID)
	}
	return ids
}

func selections(lines []LineRequest) []pricing.SelectionLine {
	out := make([]pricing.SelectionLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, pricing.SelectionLine{LineID: l.LineID, Quantity: l.Quantity, Hours: l.Hours})
	}
	return out
}

// =====================================================
// QUOTE
// =====================================================

type QuoteResponse struct {
	Pricing         *pricing.PricedOrder `json:"pricing"`
	PromoMessage    string               `json:"promo_message,omitempty"`
	GiftCardMessage string               `json:"gift_card_message,omitempty"`
}

// =====================================================
// CHECKOUT
// =====================================================

type AddressRequest struct {
	Line1   string `json:"address_line1"`
	Line2   string `json:"address_line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

func (a AddressRequest) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.Line1, validation.Required, validation.Length(3, 255)),
		validation.Field(&a.Line2, validation.Length(0, 255)),
		validation.Field(&a.City, validation.Required, validation.Length(2, 100)),
		validation.Field(&a.State, validation.Required, validation.Length(2, 50)),
		validation.Field(&a.ZipCode, validation.Required, validation.Length(3, 20)),
	)
}

type CheckoutRequest struct {
	PricingRequest

	ScheduledAt  time.Time      `json:"scheduled_at"`
	ContactName  string         `json:"contact_name"`
	ContactEmail string         `json:"contact_email"`
	ContactPhone string         `json:"contact_phone"`
	Address      AddressRequest `json:"address"`
	CustomerNote *string        `json:"customer_note,omitempty"`

	SpecialOfferGrantID *uuid.UUID `json:"special_offer_grant_id,omitempty"`
}

func (req CheckoutRequest) Validate() error {
	if err := req.PricingRequest.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&req,
		validation.Field(&req.ScheduledAt, validation.Required),
		validation.Field(&req.ContactName, validation.Required, validation.Length(2, 100)),
		validation.Field(&req.ContactEmail, validation.Required, is.EmailFormat),
		validation.Field(&req.ContactPhone, validation.Required, validation.Length(7, 20)),
		validation.Field(&req.Address),
		validation.Field(&req.CustomerNote, validation.NilOrNotEmpty, validation.Length(1, 1000)),
		validation.Field(&req.SpecialOfferGrantID, requiredUUID),
	)
}

// CheckoutOnBehalfRequest is an admin booking for another user.
type CheckoutOnBehalfRequest struct {
	UserID uuid.UUID `json:"user_id"`
	CheckoutRequest
}

func (req CheckoutOnBehalfRequest) Validate() error {
	if err := validation.Validate(req.UserID, requiredUUID); err != nil {
		return validation.Errors{"user_id": err}
	}
	return req.CheckoutRequest.Validate()
}

type CheckoutResponse struct {
	OrderID         uuid.UUID            `json:"order_id"`
	OrderNumber     string               `json:"order_number"`
	Status          string               `json:"status"`
	PaymentStatus   string               `json:"payment_status"`
	Total           decimal.Decimal      `json:"total"`
	RequiresPayment bool                 `json:"requires_payment"`
	PaymentIntentID *string              `json:"payment_intent_id,omitempty"`
	ClientSecret    *string              `json:"client_secret,omitempty"`
	OfferApplied    bool                 `json:"special_offer_applied"`
	Pricing         *pricing.PricedOrder `json:"pricing"`
}

// =====================================================
// UPDATE (re-price an unpaid order)
// =====================================================

type UpdateOrderRequest struct {
	CheckoutRequest
	Version int `json:"version"`
}

func (req UpdateOrderRequest) Validate() error {
	if err := req.CheckoutRequest.Validate(); err != nil {
		return err
	}
	return validation.ValidateStruct(&req,
		validation.Field(&req.Version, validation.Required, validation.Min(1)),
	)
}

// =====================================================
// PAYMENT CONFIRMATION
// =====================================================

type PaymentResultResponse struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderNumber   string          `json:"order_number"`
	Status        string          `json:"status"`
	PaymentStatus string          `json:"payment_status"`
	Total         decimal.Decimal `json:"total"`
	PaidAt        *time.Time      `json:"paid_at,omitempty"`
}

func NewPaymentResult(o *Order) *PaymentResultResponse {
	return &PaymentResultResponse{
		OrderID:       o.ID,
		OrderNumber:   o.OrderNumber,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Total:         o.Total,
		PaidAt:        o.PaidAt,
	}
}

// ReconcileResult summarises one reconciliation sweep.
type ReconcileResult struct {
	Checked   int `json:"checked"`
	Confirmed int `json:"confirmed"`
	Failed    int `json:"failed"`
}

// =====================================================
// CANCEL ORDER REQUEST
// =====================================================
type CancelOrderRequest struct {
	CancellationReason string `json:"cancellation_reason"`
	Version            int    `json:"version"`
}

func (req CancelOrderRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.CancellationReason, validation.Required, validation.Length(5, 500)),
		validation.Field(&req.Version, validation.Required, validation.Min(1)),
	)
}

// =====================================================
// ORDER DETAIL / LIST
// =====================================================

type OrderDetailResponse struct {
	*Order
	Items []OrderItem `json:"items"`
}

type ListOrdersRequest struct {
	Status string `form:"status"`
	Page   int    `form:"page"`
	Limit  int    `form:"limit"`
}

// Validate normalises paging and checks the status filter.
func (req *ListOrdersRequest) Validate() error {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.Limit < 1 || req.Limit > 100 {
		req.Limit = 20
	}

	if req.Status != "" {
		return validation.Validate(req.Status, validation.In(
			OrderStatusPending,
			OrderStatusConfirmed,
			OrderStatusCancelled,
		))
	}
	return nil
}

type ListOrdersResponse struct {
	Orders     []Order        `json:"orders"`
	Pagination PaginationMeta `json:"pagination"`
}

type PaginationMeta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}
