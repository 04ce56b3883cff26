package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cleaning-backend/internal/domains/promotion/model"
)

type fakeRepo struct {
	promos map[string]*model.Promotion
	usage  []model.PromotionUsage
}

func (f *fakeRepo) FindByCode(_ context.Context, code string) (*model.Promotion, error) {
	p, ok := f.promos[strings.ToLower(code)]
	if !ok {
		return nil, model.ErrPromotionNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeRepo) GetUserUsageCount(_ context.Context, promoID, userID uuid.UUID) (int, error) {
	n := 0
	for _, u := range f.usage {
		if u.PromotionID == promoID && u.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) IncrementUsageWithTx(_ context.Context, _ pgx.Tx, promoID uuid.UUID) error {
	for _, p := range f.promos {
		if p.ID != promoID {
			continue
		}
		if p.MaxUses != nil && p.CurrentUses >= *p.MaxUses {
			return model.ErrPromotionExhausted
		}
		p.CurrentUses++
		return nil
	}
	return model.ErrPromotionNotFound
}

func (f *fakeRepo) CreateUsageWithTx(_ context.Context, _ pgx.Tx, usage *model.PromotionUsage) error {
	f.usage = append(f.usage, *usage)
	return nil
}

func (f *fakeRepo) ReleaseUsageWithTx(_ context.Context, _ pgx.Tx, orderID uuid.UUID) (int, error) {
	kept := f.usage[:0]
	released := 0
	for _, u := range f.usage {
		if u.OrderID == orderID {
			released++
			for _, p := range f.promos {
				if p.ID == u.PromotionID {
					p.CurrentUses--
				}
			}
			continue
		}
		kept = append(kept, u)
	}
	f.usage = kept
	return released, nil
}

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(promos ...*model.Promotion) (*promotionService, *fakeRepo) {
	repo := &fakeRepo{promos: map[string]*model.Promotion{}}
	for _, p := range promos {
		repo.promos[strings.ToLower(p.Code)] = p
	}
	svc := NewPromotionService(repo).(*promotionService)
	svc.now = func() time.Time { return testNow }
	return svc, repo
}

func promo(code string, mutate ...func(*model.Promotion)) *model.Promotion {
	p := &model.Promotion{
		ID:             uuid.New(),
		Code:           code,
		DiscountType:   model.DiscountTypePercentage,
		DiscountValue:  dec("10"),
		MinOrderAmount: decimal.Zero,
		StartsAt:       testNow.Add(-24 * time.Hour),
		ExpiresAt:      testNow.Add(24 * time.Hour),
		IsActive:       true,
	}
	for _, m := range mutate {
		m(p)
	}
	return p
}

func TestCalculator(t *testing.T) {
	c := NewDiscountCalculator()
	capAmount := dec("15")

	tests := []struct {
		name  string
		promo *model.Promotion
		amt   string
		want  string
	}{
		{"percentage", &model.Promotion{DiscountType: model.DiscountTypePercentage, DiscountValue: dec("12.5")}, "99.99", "12.50"},
		{"percentage capped", &model.Promotion{DiscountType: model.DiscountTypePercentage, DiscountValue: dec("50"), MaxDiscountAmount: &capAmount}, "100", "15"},
		{"fixed", &model.Promotion{DiscountType: model.DiscountTypeFixed, DiscountValue: dec("20")}, "100", "20"},
		{"fixed above amount", &model.Promotion{DiscountType: model.DiscountTypeFixed, DiscountValue: dec("200")}, "80.50", "80.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := c.Calculate(tt.promo, dec(tt.amt))
			require.True(t, ok)
			assert.True(t, got.Equal(dec(tt.want)), "got %s", got)
		})
	}

	_, ok := c.Calculate(&model.Promotion{DiscountType: "bogus"}, dec("10"))
	assert.False(t, ok)
}

func TestValidate(t *testing.T) {
	maxOne := 1
	userID := uuid.New()

	tests := []struct {
		name      string
		promo     *model.Promotion
		code      string
		amount    string
		wantValid bool
		wantMsg   string
		wantDisc  string
	}{
		{"valid case insensitive", promo("SPRING10"), "spring10", "200", true, model.MsgApplied, "20"},
		{"unknown", promo("SPRING10"), "NOPE", "200", false, model.MsgNotFound, "0"},
		{"inactive", promo("OFF", func(p *model.Promotion) { p.IsActive = false }), "OFF", "200", false, model.MsgInactive, "0"},
		{"not started", promo("SOON", func(p *model.Promotion) { p.StartsAt = testNow.Add(time.Hour) }), "SOON", "200", false, model.MsgNotStarted, "0"},
		{"expired", promo("OLD", func(p *model.Promotion) { p.ExpiresAt = testNow.Add(-time.Hour) }), "OLD", "200", false, model.MsgExpired, "0"},
		{"exhausted", promo("USED", func(p *model.Promotion) { p.MaxUses = &maxOne; p.CurrentUses = 1 }), "USED", "200", false, model.MsgUsageLimit, "0"},
		{"below minimum", promo("MIN", func(p *model.Promotion) { p.MinOrderAmount = dec("250") }), "MIN", "200", false, model.MsgMinOrderNotMet, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(tt.promo)
			res, err := svc.Validate(context.Background(), tt.code, userID, dec(tt.amount))
			require.NoError(t, err)
			assert.Equal(t, tt.wantValid, res.IsValid)
			assert.Equal(t, tt.wantMsg, res.Message)
			assert.True(t, res.DiscountAmount.Equal(dec(tt.wantDisc)), "discount %s", res.DiscountAmount)
		})
	}
}

func TestValidate_PerUserLimit(t *testing.T) {
	p := promo("ONCE", func(p *model.Promotion) { p.MaxUsesPerUser = 1 })
	svc, repo := newTestService(p)
	userID := uuid.New()
	repo.usage = append(repo.usage, model.PromotionUsage{PromotionID: p.ID, UserID: userID})

	res, err := svc.Validate(context.Background(), "ONCE", userID, dec("100"))
	require.NoError(t, err)
	assert.False(t, res.IsValid)
	assert.Equal(t, model.MsgUserLimit, res.Message)

	res, err = svc.Validate(context.Background(), "ONCE", uuid.New(), dec("100"))
	require.NoError(t, err)
	assert.True(t, res.IsValid)
}

func TestRecordAndReleaseUsage(t *testing.T) {
	maxOne := 1
	p := promo("LAST", func(p *model.Promotion) { p.MaxUses = &maxOne })
	svc, repo := newTestService(p)
	ctx := context.Background()
	orderID := uuid.New()

	require.NoError(t, svc.RecordUsage(ctx, nil, p, uuid.New(), orderID, dec("5")))
	assert.Len(t, repo.usage, 1)

	err := svc.RecordUsage(ctx, nil, p, uuid.New(), uuid.New(), dec("5"))
	assert.ErrorIs(t, err, model.ErrPromotionExhausted)

	require.NoError(t, svc.ReleaseUsage(ctx, nil, orderID))
	assert.Empty(t, repo.usage)
	assert.Equal(t, 0, repo.promos["last"].CurrentUses)
}
