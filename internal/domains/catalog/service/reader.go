package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cleaning-backend/internal/domains/catalog/model"
	"cleaning-backend/internal/domains/catalog/repository"
	"cleaning-backend/internal/domains/pricing"
	"cleaning-backend/pkg/cache"
	"cleaning-backend/pkg/logger"
)

// Reader hydrates the catalog facts needed by the pricing engine.
type Reader interface {
	Snapshot(ctx context.Context, serviceTypeID uuid.UUID, serviceLineIDs, extraLineIDs []uuid.UUID) (*model.Snapshot, error)
	GetSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error)
	Invalidate(ctx context.Context) error
}

const cachePattern = "catalog:*"

type reader struct {
	repo  repository.Repository
	cache cache.Cache
	ttl   time.Duration
}

// NewReader builds a Reader; c may be nil to disable caching.
func NewReader(repo repository.Repository, c cache.Cache, ttl time.Duration) Reader {
	return &reader{repo: repo, cache: c, ttl: ttl}
}

func serviceTypeKey(id uuid.UUID) string  { return "catalog:service_type:" + id.String() }
func subscriptionKey(id uuid.UUID) string { return "catalog:subscription:" + id.String() }

func (r *reader) Snapshot(ctx context.Context, serviceTypeID uuid.UUID, serviceLineIDs, extraLineIDs []uuid.UUID) (*model.Snapshot, error) {
	st, err := r.serviceType(ctx, serviceTypeID)
	if err != nil {
		return nil, err
	}

	lines, err := r.repo.ListServiceLines(ctx, dedupe(serviceLineIDs))
	if err != nil {
		return nil, err
	}
	extras, err := r.repo.ListExtraServices(ctx, dedupe(extraLineIDs))
	if err != nil {
		return nil, err
	}

	snap := &model.Snapshot{
		ServiceType:  *st,
		ServiceLines: make(map[uuid.UUID]pricing.ServiceLineFacts, len(lines)),
		ExtraLines:   make(map[uuid.UUID]pricing.ExtraServiceLineFacts, len(extras)),
	}
	for _, l := range lines {
		if l.ServiceTypeID != st.ID {
			continue
		}
		snap.ServiceLines[l.ID] = l
	}
	for _, e := range extras {
		snap.ExtraLines[e.ID] = e
	}

	if missing := len(dedupe(serviceLineIDs)) - len(snap.ServiceLines) + len(dedupe(extraLineIDs)) - len(extras); missing > 0 {
		logger.Debug(fmt.Sprintf("catalog snapshot skipped %d unresolved lines for service type %s", missing, serviceTypeID))
	}

	return snap, nil
}

func (r *reader) serviceType(ctx context.Context, id uuid.UUID) (*pricing.ServiceTypeFacts, error) {
	key := serviceTypeKey(id)
	if r.cache != nil {
		var cached pricing.ServiceTypeFacts
		found, err := r.cache.Get(ctx, key, &cached)
		if err != nil {
			logger.Warn("catalog cache read failed", map[string]interface{}{"key": key, "error": err.Error()})
		} else if found {
			return &cached, nil
		}
	}

	st, err := r.repo.GetServiceType(ctx, id)
	if err != nil {
		return nil, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, st, r.ttl); err != nil {
			logger.Warn("catalog cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}
	return st, nil
}

func (r *reader) GetSubscription(ctx context.Context, id uuid.UUID) (*model.Subscription, error) {
	key := subscriptionKey(id)
	if r.cache != nil {
		var cached model.Subscription
		if found, err := r.cache.Get(ctx, key, &cached); err == nil && found {
			return &cached, nil
		}
	}

	sub, err := r.repo.GetSubscription(ctx, id)
	if err != nil || sub == nil {
		return sub, err
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, sub, r.ttl); err != nil {
			logger.Warn("catalog cache write failed", map[string]interface{}{"key": key, "error": err.Error()})
		}
	}
	return sub, nil
}

// Invalidate drops every cached catalog entry.
func (r *reader) Invalidate(ctx context.Context) error {
	if r.cache == nil {
		return nil
	}
	return r.cache.DeletePattern(ctx, cachePattern)
}

func dedupe(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
