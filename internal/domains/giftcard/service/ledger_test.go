package service

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleaning-backend/internal/domains/giftcard/model"
)

// fakeRepo guards each card with a mutex held from lock until balance update,
// standing in for a row lock held until commit.
type fakeRepo struct {
	mu     sync.Mutex
	cards  map[string]*model.GiftCard
	locks  map[uuid.UUID]*sync.Mutex
	usages []model.Usage
}

func newFakeRepo(cards ...*model.GiftCard) *fakeRepo {
	r := &fakeRepo{cards: map[string]*model.GiftCard{}, locks: map[uuid.UUID]*sync.Mutex{}}
	for _, c := range cards {
		r.cards[strings.ToUpper(c.Code)] = c
		r.locks[c.ID] = &sync.Mutex{}
	}
	return r
}

func (f *fakeRepo) FindByCode(_ context.Context, code string) (*model.GiftCard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.cards[strings.ToUpper(code)]
	if !ok {
		return nil, model.ErrGiftCardNotFound
	}
	cp := *c
	return &cp, nil
}

func (f *fakeRepo) LockByCodeWithTx(ctx context.Context, _ pgx.Tx, code string) (*model.GiftCard, error) {
	f.mu.Lock()
	c, ok := f.cards[strings.ToUpper(code)]
	f.mu.Unlock()
	if !ok {
		return nil, model.ErrGiftCardNotFound
	}
	f.locks[c.ID].Lock()
	cp, err := f.FindByCode(ctx, code)
	if err != nil || cp.Usable(time.Now()) != nil {
		// the caller rolls back without updating
		f.locks[c.ID].Unlock()
	}
	return cp, err
}

func (f *fakeRepo) UpdateBalanceWithTx(_ context.Context, _ pgx.Tx, id uuid.UUID, balance decimal.Decimal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.cards {
		if c.ID == id {
			c.Balance = balance
			f.locks[id].Unlock()
			return nil
		}
	}
	return model.ErrGiftCardNotFound
}

func (f *fakeRepo) CreateUsageWithTx(_ context.Context, _ pgx.Tx, usage *model.Usage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.usages = append(f.usages, *usage)
	return nil
}

func (f *fakeRepo) ReverseUsagesWithTx(_ context.Context, _ pgx.Tx, orderID uuid.UUID) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	total := decimal.Zero
	kept := f.usages[:0]
	for _, u := range f.usages {
		if u.OrderID != orderID {
			kept = append(kept, u)
			continue
		}
		for _, c := range f.cards {
			if c.ID == u.GiftCardID {
				c.Balance = c.Balance.Add(u.Amount)
			}
		}
		total = total.Add(u.Amount)
	}
	f.usages = kept
	return total, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func card(code, balance string) *model.GiftCard {
	return &model.GiftCard{ID: uuid.New(), Code: code, InitialAmount: dec(balance), Balance: dec(balance), IsActive: true}
}

func TestValidate(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	expired := card("EXPIRED", "20")
	expired.ExpiresAt = &past
	inactive := card("OFF", "20")
	inactive.IsActive = false

	l := NewLedger(newFakeRepo(card("GIFT50", "50"), card("EMPTY", "0"), expired, inactive))
	ctx := context.Background()

	res, err := l.Validate(ctx, " gift50 ")
	require.NoError(t, err)
	assert.True(t, res.IsValid)
	assert.True(t, res.AvailableBalance.Equal(dec("50")))

	for _, code := range []string{"EMPTY", "EXPIRED", "OFF", "MISSING"} {
		res, err := l.Validate(ctx, code)
		require.NoError(t, err)
		assert.False(t, res.IsValid, code)
		assert.NotEmpty(t, res.Message)
	}
}

func TestApply_DebitsAtMostBalance(t *testing.T) {
	repo := newFakeRepo(card("GIFT50", "50"))
	l := NewLedger(repo)
	ctx := context.Background()

	got, err := l.Apply(ctx, nil, "GIFT50", dec("30"), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("30")))

	got, err = l.Apply(ctx, nil, "GIFT50", dec("40"), uuid.New(), uuid.New())
	require.NoError(t, err)
	assert.True(t, got.Equal(dec("20")))

	_, err = l.Apply(ctx, nil, "GIFT50", dec("1"), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, model.ErrGiftCardEmpty)

	assert.Len(t, repo.usages, 2)
	assert.True(t, repo.cards["GIFT50"].Balance.IsZero())
}

func TestApply_Rejects(t *testing.T) {
	l := NewLedger(newFakeRepo(card("GIFT", "10")))
	_, err := l.Apply(context.Background(), nil, "GIFT", decimal.Zero, uuid.New(), uuid.New())
	assert.ErrorIs(t, err, model.ErrInvalidAmount)

	_, err = l.Apply(context.Background(), nil, "NOPE", dec("5"), uuid.New(), uuid.New())
	assert.ErrorIs(t, err, model.ErrGiftCardNotFound)
}

func TestReverse(t *testing.T) {
	repo := newFakeRepo(card("GIFT", "100"))
	l := NewLedger(repo)
	ctx := context.Background()
	orderID := uuid.New()

	_, err := l.Apply(ctx, nil, "GIFT", dec("60"), orderID, uuid.New())
	require.NoError(t, err)

	credited, err := l.Reverse(ctx, nil, orderID)
	require.NoError(t, err)
	assert.True(t, credited.Equal(dec("60")))
	assert.True(t, repo.cards["GIFT"].Balance.Equal(dec("100")))

	credited, err = l.Reverse(ctx, nil, orderID)
	require.NoError(t, err)
	assert.True(t, credited.IsZero())
}

func TestApply_ConcurrentCheckoutsNeverOverdraw(t *testing.T) {
	repo := newFakeRepo(card("SHARED", "100"))
	l := NewLedger(repo)

	var wg sync.WaitGroup
	var mu sync.Mutex
	total := decimal.Zero
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := l.Apply(context.Background(), nil, "SHARED", dec("15"), uuid.New(), uuid.New())
			if err != nil {
				return
			}
			mu.Lock()
			total = total.Add(got)
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.True(t, total.Equal(dec("100")), "debited %s", total)
	assert.True(t, repo.cards["SHARED"].Balance.IsZero())
}

func TestProperty_ApplyNeverOverDebits(t *testing.T) {
	r := rand.New(rand.NewSource(11))

	for i := 0; i < 500; i++ {
		balance := decimal.New(r.Int63n(50_000)+1, -2)
		requested := decimal.New(r.Int63n(80_000)+1, -2)
		repo := newFakeRepo(&model.GiftCard{ID: uuid.New(), Code: "P", Balance: balance, IsActive: true})

		got, err := NewLedger(repo).Apply(context.Background(), nil, "P", requested, uuid.New(), uuid.New())
		require.NoError(t, err)
		require.True(t, got.LessThanOrEqual(decimal.Min(requested, balance)), "iteration %d", i)
		require.True(t, repo.cards["P"].Balance.Equal(balance.Sub(got)))
	}
}
