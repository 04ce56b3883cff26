package model

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrGrantUnavailable means the grant does not exist, belongs to another
	// user or was already consumed.
	ErrGrantUnavailable = errors.New("special offer grant is not available")
)

// Grant is a single-use, user-scoped eligibility for a special offer.
type Grant struct {
	ID            uuid.UUID  `json:"id"`
	UserID        uuid.UUID  `json:"user_id"`
	OfferID       uuid.UUID  `json:"offer_id"`
	IsUsed        bool       `json:"is_used"`
	UsedOnOrderID *uuid.UUID `json:"used_on_order_id,omitempty"`
	UsedAt        *time.Time `json:"used_at,omitempty"`
}
