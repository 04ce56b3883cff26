package model

import (
	"time"

	"github.com/google/uuid"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusExpired Status = "expired"
)

// UserSubscription is a customer's enrolment in a recurring cleaning plan.
type UserSubscription struct {
	ID                 uuid.UUID  `json:"id"`
	UserID             uuid.UUID  `json:"user_id"`
	SubscriptionID     uuid.UUID  `json:"subscription_id"`
	Status             Status     `json:"status"`
	CurrentPeriodStart time.Time  `json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `json:"current_period_end"`
	LastOrderID        *uuid.UUID `json:"last_order_id,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Extend moves the period forward by days from max(now, current end).
func (s *UserSubscription) Extend(now time.Time, days int) {
	start := now
	if s.Status == StatusActive && s.CurrentPeriodEnd.After(now) {
		start = s.CurrentPeriodEnd
	} else {
		s.CurrentPeriodStart = now
	}
	s.CurrentPeriodEnd = start.AddDate(0, 0, days)
	s.Status = StatusActive
}
