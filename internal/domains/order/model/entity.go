package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cleaning-backend/internal/domains/pricing"
)

// =====================================================
// ORDER STATUS CONSTANTS
// =====================================================
const (
	OrderStatusPending   = "pending"
	OrderStatusConfirmed = "confirmed"
	OrderStatusCancelled = "cancelled"
)

// =====================================================
// PAYMENT STATUS CONSTANTS
// =====================================================
const (
	// PaymentStatusUnpaid: no payment intent exists yet (or creating it failed).
	PaymentStatusUnpaid  = "unpaid"
	PaymentStatusPending = "pending"
	PaymentStatusPaid    = "paid"
	PaymentStatusFailed  = "failed"
)

// =====================================================
// ENTITY: Order
// =====================================================
type Order struct {
	ID          uuid.UUID  `json:"id"`
	OrderNumber string     `json:"order_number"`
	UserID      uuid.UUID  `json:"user_id"`
	CreatedBy   *uuid.UUID `json:"created_by,omitempty"` // admin booking on behalf of the user

	ServiceTypeID   uuid.UUID `json:"service_type_id"`
	ServiceTypeName string    `json:"service_type_name"`
	ScheduledAt     time.Time `json:"scheduled_at"`

	ContactName  string  `json:"contact_name"`
	ContactEmail string  `json:"contact_email"`
	ContactPhone string  `json:"contact_phone"`
	AddressLine1 string  `json:"address_line1"`
	AddressLine2 string  `json:"address_line2,omitempty"`
	City         string  `json:"city"`
	State        string  `json:"state"`
	ZipCode      string  `json:"zip_code"`
	CustomerNote *string `json:"customer_note,omitempty"`

	ApartmentID    *uuid.UUID `json:"apartment_id,omitempty"`
	SubscriptionID *uuid.UUID `json:"subscription_id,omitempty"`
	PromotionID    *uuid.UUID `json:"promotion_id,omitempty"`
	PromoCode      *string    `json:"promo_code,omitempty"`
	GiftCardCode   *string    `json:"gift_card_code,omitempty"`

	IsCustomPricing            bool            `json:"is_custom_pricing"`
	Subtotal                   decimal.Decimal `json:"subtotal"`
	DiscountAmount             decimal.Decimal `json:"discount_amount"`
	SubscriptionDiscountAmount decimal.Decimal `json:"subscription_discount_amount"`
	TaxAmount                  decimal.Decimal `json:"tax_amount"`
	Tips                       decimal.Decimal `json:"tips"`
	CompanyDevelopmentTip      decimal.Decimal `json:"company_development_tip"`
	GiftCardAmountUsed         decimal.Decimal `json:"gift_card_amount_used"`
	Total                      decimal.Decimal `json:"total"`
	TotalDurationMinutes       decimal.Decimal `json:"total_duration_minutes"`
	MaidsCount                 int             `json:"maids_count"`

	Status              string     `json:"status"`
	PaymentStatus       string     `json:"payment_status"`
	PaymentIntentID     *string    `json:"payment_intent_id,omitempty"`
	PaymentClientSecret *string    `json:"-"`
	PaidAt              *time.Time `json:"paid_at,omitempty"`
	CancellationReason  *string    `json:"cancellation_reason,omitempty"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	Version   int       `json:"version"`
}

// ApplyPricing copies a priced result onto the order.
func (o *Order) ApplyPricing(p *pricing.PricedOrder) {
	o.IsCustomPricing = p.IsCustomPricing
	o.Subtotal = p.Subtotal
	o.DiscountAmount = p.DiscountAmount
	o.SubscriptionDiscountAmount = p.SubscriptionDiscountAmount
	o.TaxAmount = p.Tax
	o.Tips = p.Tips
	o.CompanyDevelopmentTip = p.CompanyDevelopmentTip
	o.GiftCardAmountUsed = p.GiftCardAmountUsed
	o.Total = p.Total
	o.TotalDurationMinutes = p.TotalDurationMinutes
	o.MaidsCount = p.MaidsCount
}

func (o *Order) IsPaid() bool {
	return o.PaymentStatus == PaymentStatusPaid
}

// CanBeCancelled: paid orders go through refunds, not cancellation.
func (o *Order) CanBeCancelled() bool {
	return o.Status == OrderStatusPending && !o.IsPaid()
}

func (o *Order) CanBeUpdated() bool {
	return o.Status == OrderStatusPending && !o.IsPaid()
}

// FullAddress renders the service address on one line.
func (o *Order) FullAddress() string {
	parts := []string{o.AddressLine1}
	if o.AddressLine2 != "" {
		parts = append(parts, o.AddressLine2)
	}
	parts = append(parts, o.City, strings.TrimSpace(o.State+" "+o.ZipCode))
	return strings.Join(parts, ", ")
}

// =====================================================
// ENTITY: OrderItem
// =====================================================
type OrderItem struct {
	ID              uuid.UUID        `json:"id"`
	OrderID         uuid.UUID        `json:"order_id"`
	Kind            pricing.LineKind `json:"kind"`
	LineID          *uuid.UUID       `json:"line_id,omitempty"`
	Name            string           `json:"name"`
	Quantity        int              `json:"quantity"`
	Hours           decimal.Decimal  `json:"hours"`
	Cost            decimal.Decimal  `json:"cost"`
	DurationMinutes decimal.Decimal  `json:"duration_minutes"`
	CreatedAt       time.Time        `json:"created_at"`
}

// ItemsFromPricing turns priced lines into order items for orderID.
func ItemsFromPricing(orderID uuid.UUID, lines []pricing.LineItem) []OrderItem {
	items := make([]OrderItem, 0, len(lines))
	for _, li := range lines {
		items = append(items, OrderItem{
			ID:              uuid.New(),
			OrderID:         orderID,
			Kind:            li.Kind,
			LineID:          li.LineID,
			Name:            li.Name,
			Quantity:        li.Quantity,
			Hours:           li.Hours,
			Cost:            li.Cost,
			DurationMinutes: li.DurationMinutes,
		})
	}
	return items
}

// =====================================================
// ENTITY: OrderStatusHistory
// =====================================================
type OrderStatusHistory struct {
	ID         uuid.UUID  `json:"id"`
	OrderID    uuid.UUID  `json:"order_id"`
	FromStatus *string    `json:"from_status,omitempty"`
	ToStatus   string     `json:"to_status"`
	ChangedBy  *uuid.UUID `json:"changed_by,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
	ChangedAt  time.Time  `json:"changed_at"`
}
