package model

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Address is the service location captured on an order.
type Address struct {
	Line1   string `json:"address_line1"`
	Line2   string `json:"address_line2,omitempty"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zip_code"`
}

// IsEmpty reports whether there is nothing to capture.
func (a Address) IsEmpty() bool {
	return strings.TrimSpace(a.Line1) == "" && strings.TrimSpace(a.ZipCode) == ""
}

// Fingerprint is the normalized key used to de-duplicate a user's apartments.
func (a Address) Fingerprint() string {
	parts := []string{a.Line1, a.Line2, a.City, a.State, a.ZipCode}
	for i, p := range parts {
		parts[i] = strings.ToLower(strings.Join(strings.Fields(p), " "))
	}
	return strings.Join(parts, "|")
}

type Apartment struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"user_id"`
	Address     Address   `json:"address"`
	Fingerprint string    `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}
