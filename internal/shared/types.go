package shared

import "time"

// Task types
const (
	TypeNotifyCustomerBookingConfirmed = "booking:customer_confirmed"
	TypeNotifyCompanyNewBooking        = "booking:company_new"
	TypeReconcilePendingPayments       = "payment:reconcile_pending"
)

// Queues
const (
	QueueCritical     = "critical"
	QueueNotification = "notification"
	QueueDefault      = "default"
)

// BookingNotificationPayload is the asynq payload of both booking notifications.
// It is self-contained so handlers never read the order back.
type BookingNotificationPayload struct {
	OrderID         string    `json:"orderId"`
	OrderNumber     string    `json:"orderNumber"`
	CustomerName    string    `json:"customerName"`
	CustomerEmail   string    `json:"customerEmail"`
	CustomerPhone   string    `json:"customerPhone"`
	ServiceTypeName string    `json:"serviceTypeName"`
	ScheduledAt     time.Time `json:"scheduledAt"`
	Address         string    `json:"address"`
	DurationMinutes int       `json:"durationMinutes"`
	MaidsCount      int       `json:"maidsCount"`
	Total           string    `json:"total"`
	Currency        string    `json:"currency"`
}

// ReconcilePendingPaymentsPayload is empty; the handler reads its limits from config.
type ReconcilePendingPaymentsPayload struct{}
