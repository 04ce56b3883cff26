package service

import (
	"context"
	"encoding/json"
	"errors"
	"path"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleaning-backend/internal/domains/catalog/model"
	"cleaning-backend/internal/domains/pricing"
)

type fakeRepo struct {
	serviceTypes map[uuid.UUID]pricing.ServiceTypeFacts
	lines        map[uuid.UUID]pricing.ServiceLineFacts
	extras       map[uuid.UUID]pricing.ExtraServiceLineFacts
	subs         map[uuid.UUID]model.Subscription
	typeCalls    int
}

func (f *fakeRepo) GetServiceType(_ context.Context, id uuid.UUID) (*pricing.ServiceTypeFacts, error) {
	f.typeCalls++
	st, ok := f.serviceTypes[id]
	if !ok {
		return nil, model.ErrServiceTypeNotFound
	}
	return &st, nil
}

func (f *fakeRepo) ListServiceLines(_ context.Context, ids []uuid.UUID) ([]pricing.ServiceLineFacts, error) {
	var out []pricing.ServiceLineFacts
	for _, id := range ids {
		if l, ok := f.lines[id]; ok {
			out = append(out, l)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListExtraServices(_ context.Context, ids []uuid.UUID) ([]pricing.ExtraServiceLineFacts, error) {
	var out []pricing.ExtraServiceLineFacts
	for _, id := range ids {
		if e, ok := f.extras[id]; ok {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) GetSubscription(_ context.Context, id uuid.UUID) (*model.Subscription, error) {
	s, ok := f.subs[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

// memCache is a JSON round-tripping in-memory cache.
type memCache struct {
	data    map[string][]byte
	failGet bool
}

func newMemCache() *memCache { return &memCache{data: map[string][]byte{}} }

func (m *memCache) Get(_ context.Context, key string, dest interface{}) (bool, error) {
	if m.failGet {
		return false, errors.New("redis down")
	}
	raw, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dest)
}

func (m *memCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.data[key] = raw
	return nil
}

func (m *memCache) Delete(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *memCache) DeletePattern(_ context.Context, pattern string) error {
	for k := range m.data {
		if ok, _ := path.Match(pattern, k); ok || strings.HasPrefix(k, strings.TrimSuffix(pattern, "*")) {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *memCache) Ping(context.Context) error { return nil }

func seededRepo() (*fakeRepo, uuid.UUID, uuid.UUID, uuid.UUID) {
	stID, lineID, extraID := uuid.New(), uuid.New(), uuid.New()
	return &fakeRepo{
		serviceTypes: map[uuid.UUID]pricing.ServiceTypeFacts{
			stID: {ID: stID, Name: "Standard", BasePrice: decimal.NewFromInt(100), BaseDurationMinutes: 90},
		},
		lines: map[uuid.UUID]pricing.ServiceLineFacts{
			lineID: {ID: lineID, ServiceKey: "bedrooms", UnitCost: decimal.NewFromInt(25), ServiceTypeID: stID, RelationType: pricing.RelationNone},
		},
		extras: map[uuid.UUID]pricing.ExtraServiceLineFacts{
			extraID: {ID: extraID, Name: "Fridge", UnitPrice: decimal.NewFromInt(30)},
		},
		subs: map[uuid.UUID]model.Subscription{},
	}, stID, lineID, extraID
}

func TestSnapshot_SkipsUnresolvedLines(t *testing.T) {
	repo, stID, lineID, extraID := seededRepo()
	r := NewReader(repo, nil, time.Minute)

	snap, err := r.Snapshot(context.Background(), stID,
		[]uuid.UUID{lineID, uuid.New(), lineID},
		[]uuid.UUID{extraID, uuid.New()},
	)
	require.NoError(t, err)

	assert.Equal(t, stID, snap.ServiceType.ID)
	assert.Len(t, snap.ServiceLines, 1)
	assert.Contains(t, snap.ServiceLines, lineID)
	assert.Len(t, snap.ExtraLines, 1)
}

func TestSnapshot_DropsLinesOfOtherServiceType(t *testing.T) {
	repo, stID, lineID, _ := seededRepo()
	foreignID := uuid.New()
	repo.lines[foreignID] = pricing.ServiceLineFacts{
		ID: foreignID, ServiceKey: "bedrooms", UnitCost: decimal.NewFromInt(1),
		ServiceTypeID: uuid.New(), RelationType: pricing.RelationNone,
	}
	r := NewReader(repo, nil, time.Minute)

	snap, err := r.Snapshot(context.Background(), stID, []uuid.UUID{lineID, foreignID}, nil)
	require.NoError(t, err)

	assert.Contains(t, snap.ServiceLines, lineID)
	assert.NotContains(t, snap.ServiceLines, foreignID)
}

func TestSnapshot_UnknownServiceType(t *testing.T) {
	repo, _, _, _ := seededRepo()
	r := NewReader(repo, nil, time.Minute)

	_, err := r.Snapshot(context.Background(), uuid.New(), nil, nil)
	assert.ErrorIs(t, err, model.ErrServiceTypeNotFound)
}

func TestSnapshot_ReadThroughCache(t *testing.T) {
	repo, stID, _, _ := seededRepo()
	c := newMemCache()
	r := NewReader(repo, c, time.Minute)
	ctx := context.Background()

	first, err := r.Snapshot(ctx, stID, nil, nil)
	require.NoError(t, err)
	second, err := r.Snapshot(ctx, stID, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.typeCalls)
	assert.True(t, first.ServiceType.BasePrice.Equal(second.ServiceType.BasePrice))

	require.NoError(t, r.Invalidate(ctx))
	_, err = r.Snapshot(ctx, stID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.typeCalls)
}

func TestSnapshot_CacheFailureFallsBackToStore(t *testing.T) {
	repo, stID, _, _ := seededRepo()
	c := newMemCache()
	c.failGet = true
	r := NewReader(repo, c, time.Minute)

	snap, err := r.Snapshot(context.Background(), stID, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "Standard", snap.ServiceType.Name)
}

func TestGetSubscription(t *testing.T) {
	repo, _, _, _ := seededRepo()
	subID := uuid.New()
	repo.subs[subID] = model.Subscription{ID: subID, DiscountPercentage: decimal.NewFromInt(10), PeriodDays: 30, IsActive: true}
	r := NewReader(repo, newMemCache(), time.Minute)

	sub, err := r.GetSubscription(context.Background(), subID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	assert.Equal(t, 30, sub.PeriodDays)

	missing, err := r.GetSubscription(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
