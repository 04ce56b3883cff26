package service

import (
	"context"

	"github.com/google/uuid"

	"cleaning-backend/internal/domains/apartment/model"
	"cleaning-backend/internal/domains/apartment/repository"
	"cleaning-backend/pkg/logger"
)

type Service interface {
	// Capture returns the id of the user's apartment at addr, creating it
	// when needed. Empty addresses yield uuid.Nil.
	Capture(ctx context.Context, userID uuid.UUID, addr model.Address) (uuid.UUID, error)
}

type service struct {
	repo repository.Repository
}

func NewService(repo repository.Repository) Service {
	return &service{repo: repo}
}

func (s *service) Capture(ctx context.Context, userID uuid.UUID, addr model.Address) (uuid.UUID, error) {
	if addr.IsEmpty() {
		return uuid.Nil, nil
	}

	fp := addr.Fingerprint()
	existing, err := s.repo.FindByFingerprint(ctx, userID, fp)
	if err != nil {
		return uuid.Nil, err
	}
	if existing != nil {
		return existing.ID, nil
	}

	apt := &model.Apartment{UserID: userID, Address: addr, Fingerprint: fp}
	if err := s.repo.Create(ctx, apt); err != nil {
		return uuid.Nil, err
	}

	logger.Info("Apartment captured", map[string]interface{}{
		"apartment_id": apt.ID.String(),
		"user_id":      userID.String(),
	})
	return apt.ID, nil
}
