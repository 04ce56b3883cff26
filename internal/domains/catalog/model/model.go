package model

import (
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"cleaning-backend/internal/domains/pricing"
)

var (
	ErrServiceTypeNotFound = errors.New("service type not found")
)

// Snapshot is the set of catalog facts needed to price one request.
// Lines that did not resolve are absent from the maps.
type Snapshot struct {
	ServiceType  pricing.ServiceTypeFacts
	ServiceLines map[uuid.UUID]pricing.ServiceLineFacts
	ExtraLines   map[uuid.UUID]pricing.ExtraServiceLineFacts
}

type Subscription struct {
	ID                 uuid.UUID       `json:"id"`
	Name               string          `json:"name"`
	DiscountPercentage decimal.Decimal `json:"discount_percentage"`
	PeriodDays         int             `json:"period_days"`
	IsActive           bool            `json:"is_active"`
}
