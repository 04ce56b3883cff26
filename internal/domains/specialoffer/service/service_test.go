package service

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleaning-backend/internal/domains/specialoffer/model"
)

type fakeRepo struct {
	mu     sync.Mutex
	grants map[uuid.UUID]*model.Grant
}

func (f *fakeRepo) MarkUsedWithTx(_ context.Context, _ pgx.Tx, grantID, userID, orderID uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.grants[grantID]
	if !ok || g.UserID != userID || g.IsUsed {
		return model.ErrGrantUnavailable
	}
	g.IsUsed = true
	g.UsedOnOrderID = &orderID
	return nil
}

func (f *fakeRepo) RestoreWithTx(_ context.Context, _ pgx.Tx, orderID uuid.UUID) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, g := range f.grants {
		if g.UsedOnOrderID != nil && *g.UsedOnOrderID == orderID {
			g.IsUsed = false
			g.UsedOnOrderID = nil
			n++
		}
	}
	return n, nil
}

func TestMarkUsedAndRestore(t *testing.T) {
	userID, grantID := uuid.New(), uuid.New()
	repo := &fakeRepo{grants: map[uuid.UUID]*model.Grant{grantID: {ID: grantID, UserID: userID}}}
	store := NewGrantStore(repo)
	ctx := context.Background()
	orderID := uuid.New()

	require.NoError(t, store.MarkUsed(ctx, nil, grantID, userID, orderID))
	assert.True(t, repo.grants[grantID].IsUsed)

	err := store.MarkUsed(ctx, nil, grantID, userID, uuid.New())
	assert.ErrorIs(t, err, model.ErrGrantUnavailable)

	require.NoError(t, store.Restore(ctx, nil, orderID))
	assert.False(t, repo.grants[grantID].IsUsed)
	assert.Nil(t, repo.grants[grantID].UsedOnOrderID)
}

func TestMarkUsed_OtherUsersGrant(t *testing.T) {
	grantID := uuid.New()
	repo := &fakeRepo{grants: map[uuid.UUID]*model.Grant{grantID: {ID: grantID, UserID: uuid.New()}}}

	err := NewGrantStore(repo).MarkUsed(context.Background(), nil, grantID, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, model.ErrGrantUnavailable)
}

func TestMarkUsed_SingleWinnerUnderContention(t *testing.T) {
	userID, grantID := uuid.New(), uuid.New()
	repo := &fakeRepo{grants: map[uuid.UUID]*model.Grant{grantID: {ID: grantID, UserID: userID}}}
	store := NewGrantStore(repo)

	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := store.MarkUsed(context.Background(), nil, grantID, userID, uuid.New()); err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}
