package repository

import (
	"context"

	"github.com/google/uuid"

	"cleaning-backend/internal/domains/catalog/model"
	"cleaning-backend/internal/domains/pricing"
)

// Repository reads active catalog rows.
type Repository interface {
	// GetServiceType returns model.ErrServiceTypeNotFound for unknown or inactive ids.
	GetServiceType(ctx context.Context, id uuid.UUID) (*pricing.ServiceTypeFacts, error)

	// ListServiceLines returns the active lines among ids; unknown ids are omitted.
	ListServiceLines(ctx context.Context, ids []uuid.UUID) ([]pricing.ServiceLineFacts, error)

	// ListExtraServices returns the active extra services among ids.
	ListExtraServices(ctx context.Context, ids []uuid.UUID) ([]pricing.ExtraServiceLineFacts, error)

	// GetSubscription returns nil, nil when the plan does not exist.
	GetSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
}
