package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	apartmentModel "cleaning-backend/internal/domains/apartment/model"
	catalogModel "cleaning-backend/internal/domains/catalog/model"
	giftcardModel "cleaning-backend/internal/domains/giftcard/model"
	"cleaning-backend/internal/domains/order/model"
	paymentModel "cleaning-backend/internal/domains/payment/model"
	"cleaning-backend/internal/domains/pricing"
	promoModel "cleaning-backend/internal/domains/promotion/model"
	subscriptionModel "cleaning-backend/internal/domains/subscription/model"
	"cleaning-backend/internal/shared"
	"cleaning-backend/pkg/database"
)

// =====================================================
// TRANSACTIONS
// =====================================================

// txParticipant hands back a function that restores its pre-transaction state.
type txParticipant interface {
	snapshot() func()
}

type fakeTxManager struct {
	parts []txParticipant
}

var _ database.TxManager = (*fakeTxManager)(nil)

func (m *fakeTxManager) WithinTx(_ context.Context, fn database.TxFunc) error {
	restores := make([]func(), 0, len(m.parts))
	for _, p := range m.parts {
		restores = append(restores, p.snapshot())
	}
	if err := fn(nil); err != nil {
		for _, restore := range restores {
			restore()
		}
		return err
	}
	return nil
}

// =====================================================
// ORDER REPOSITORY
// =====================================================

type fakeOrderRepo struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	orders  map[uuid.UUID]model.Order
	items   map[uuid.UUID][]model.OrderItem
	history []model.OrderStatusHistory

	failIntentUpdate error
	// onLock runs before LockOrderWithTx reads, standing in for a concurrent writer
	onLock func(id uuid.UUID)
}

func newFakeOrderRepo(now time.Time) *fakeOrderRepo {
	return &fakeOrderRepo{
		now:    now,
		orders: make(map[uuid.UUID]model.Order),
		items:  make(map[uuid.UUID][]model.OrderItem),
	}
}

func (r *fakeOrderRepo) snapshot() func() {
	r.mu.Lock()
	defer r.mu.Unlock()

	orders := make(map[uuid.UUID]model.Order, len(r.orders))
	for k, v := range r.orders {
		orders[k] = v
	}
	items := make(map[uuid.UUID][]model.OrderItem, len(r.items))
	for k, v := range r.items {
		items[k] = v
	}
	history := len(r.history)
	seq := r.seq

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.orders, r.items, r.history, r.seq = orders, items, r.history[:history], seq
	}
}

func (r *fakeOrderRepo) get(id uuid.UUID) (model.Order, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	return o, ok
}

func (r *fakeOrderRepo) CreateOrderWithTx(_ context.Context, _ pgx.Tx, order *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	order.OrderNumber = fmt.Sprintf("ORD-%06d", r.seq)
	order.CreatedAt = r.now
	order.UpdatedAt = r.now
	r.orders[order.ID] = *order
	return nil
}

func (r *fakeOrderRepo) GetOrderByID(_ context.Context, id uuid.UUID) (*model.Order, error) {
	o, ok := r.get(id)
	if !ok {
		return nil, model.ErrOrderNotFound
	}
	return &o, nil
}

func (r *fakeOrderRepo) GetOrderByIDAndUserID(_ context.Context, id, userID uuid.UUID) (*model.Order, error) {
	o, ok := r.get(id)
	if !ok || o.UserID != userID {
		return nil, model.ErrOrderNotFound
	}
	return &o, nil
}

func (r *fakeOrderRepo) GetOrderByPaymentIntent(_ context.Context, intentID string) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, o := range r.orders {
		if o.PaymentIntentID != nil && *o.PaymentIntentID == intentID {
			cp := o
			return &cp, nil
		}
	}
	return nil, model.ErrOrderNotFound
}

func (r *fakeOrderRepo) LockOrderWithTx(ctx context.Context, _ pgx.Tx, id uuid.UUID) (*model.Order, error) {
	if r.onLock != nil {
		r.onLock(id)
	}
	return r.GetOrderByID(ctx, id)
}

func (r *fakeOrderRepo) UpdatePricingWithTx(_ context.Context, _ pgx.Tx, order *model.Order, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cur, ok := r.orders[order.ID]
	if !ok || cur.Version != version {
		return model.ErrVersionMismatch
	}
	order.Version = version + 1
	order.UpdatedAt = r.now
	stored := *order
	stored.PaymentIntentID = nil
	stored.PaymentClientSecret = nil
	r.orders[order.ID] = stored
	return nil
}

func (r *fakeOrderRepo) UpdateTotalsWithTx(_ context.Context, _ pgx.Tx, id uuid.UUID, giftCardUsed, total decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.orders[id]
	o.GiftCardAmountUsed = giftCardUsed
	o.Total = total
	r.orders[id] = o
	return nil
}

func (r *fakeOrderRepo) SetPaymentIntent(_ context.Context, id uuid.UUID, intentID, clientSecret *string, paymentStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failIntentUpdate != nil {
		return r.failIntentUpdate
	}
	o := r.orders[id]
	if o.PaymentStatus == model.PaymentStatusPaid {
		return nil
	}
	o.PaymentIntentID = intentID
	o.PaymentClientSecret = clientSecret
	o.PaymentStatus = paymentStatus
	r.orders[id] = o
	return nil
}

func (r *fakeOrderRepo) MarkPaid(_ context.Context, id uuid.UUID, paidAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.PaymentStatus == model.PaymentStatusPaid || o.Status != model.OrderStatusPending {
		return false, nil
	}
	o.PaymentStatus = model.PaymentStatusPaid
	o.Status = model.OrderStatusConfirmed
	o.PaidAt = &paidAt
	o.Version++
	r.orders[id] = o
	return true, nil
}

func (r *fakeOrderRepo) SetApartment(_ context.Context, id, apartmentID uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o := r.orders[id]
	if o.ApartmentID == nil {
		o.ApartmentID = &apartmentID
		r.orders[id] = o
	}
	return nil
}

func (r *fakeOrderRepo) CancelOrderWithTx(_ context.Context, _ pgx.Tx, id uuid.UUID, reason string, version int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.orders[id]
	if !ok || o.Version != version || o.PaymentStatus == model.PaymentStatusPaid {
		return model.ErrVersionMismatch
	}
	now := r.now
	o.Status = model.OrderStatusCancelled
	o.CancellationReason = &reason
	o.CancelledAt = &now
	o.Version++
	r.orders[id] = o
	return nil
}

func (r *fakeOrderRepo) ReplaceOrderItemsWithTx(_ context.Context, _ pgx.Tx, id uuid.UUID, items []model.OrderItem) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id] = items
	return nil
}

func (r *fakeOrderRepo) GetOrderItemsByOrderID(_ context.Context, id uuid.UUID) ([]model.OrderItem, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.items[id], nil
}

func (r *fakeOrderRepo) ListOrdersByUserID(_ context.Context, userID uuid.UUID, status string, page, limit int) ([]model.Order, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.Order
	for _, o := range r.orders {
		if o.UserID == userID && (status == "" || o.Status == status) {
			all = append(all, o)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].OrderNumber > all[j].OrderNumber })

	start := (page - 1) * limit
	if start >= len(all) {
		return []model.Order{}, len(all), nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (r *fakeOrderRepo) ListPendingWithIntent(_ context.Context, olderThan time.Time, limit int) ([]model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Order
	for _, o := range r.orders {
		if o.Status == model.OrderStatusPending && o.PaymentStatus == model.PaymentStatusPending &&
			o.PaymentIntentID != nil && o.UpdatedAt.Before(olderThan) && len(out) < limit {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *fakeOrderRepo) CountConfirmedOrdersByUser(_ context.Context, userID uuid.UUID) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, o := range r.orders {
		if o.UserID == userID && o.PaymentStatus == model.PaymentStatusPaid {
			n++
		}
	}
	return n, nil
}

func (r *fakeOrderRepo) CreateOrderStatusHistory(_ context.Context, h *model.OrderStatusHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, *h)
	return nil
}

func (r *fakeOrderRepo) CreateOrderStatusHistoryWithTx(ctx context.Context, _ pgx.Tx, h *model.OrderStatusHistory) error {
	return r.CreateOrderStatusHistory(ctx, h)
}

// =====================================================
// CATALOG
// =====================================================

type fakeCatalog struct {
	serviceType pricing.ServiceTypeFacts
	plans       map[uuid.UUID]*catalogModel.Subscription
}

func (c *fakeCatalog) Snapshot(_ context.Context, id uuid.UUID, _, _ []uuid.UUID) (*catalogModel.Snapshot, error) {
	if id != c.serviceType.ID {
		return nil, catalogModel.ErrServiceTypeNotFound
	}
	return &catalogModel.Snapshot{
		ServiceType:  c.serviceType,
		ServiceLines: map[uuid.UUID]pricing.ServiceLineFacts{},
		ExtraLines:   map[uuid.UUID]pricing.ExtraServiceLineFacts{},
	}, nil
}

func (c *fakeCatalog) GetSubscription(_ context.Context, id uuid.UUID) (*catalogModel.Subscription, error) {
	return c.plans[id], nil
}

func (c *fakeCatalog) Invalidate(context.Context) error { return nil }

// =====================================================
// PROMOTIONS
// =====================================================

type fakePromotions struct {
	promos    map[string]*promoModel.Promotion
	discount  decimal.Decimal
	exhausted bool
	usages    map[uuid.UUID]string
}

func (p *fakePromotions) snapshot() func() {
	saved := make(map[uuid.UUID]string, len(p.usages))
	for k, v := range p.usages {
		saved[k] = v
	}
	return func() { p.usages = saved }
}

func (p *fakePromotions) Validate(_ context.Context, code string, _ uuid.UUID, _ decimal.Decimal) (*promoModel.ValidationResult, error) {
	promo, ok := p.promos[code]
	if !ok {
		return &promoModel.ValidationResult{IsValid: false, Message: promoModel.MsgNotFound}, nil
	}
	return &promoModel.ValidationResult{IsValid: true, DiscountAmount: p.discount, Message: promoModel.MsgApplied, Promotion: promo}, nil
}

func (p *fakePromotions) RecordUsage(_ context.Context, _ pgx.Tx, promo *promoModel.Promotion, _, orderID uuid.UUID, _ decimal.Decimal) error {
	if p.exhausted {
		return promoModel.ErrPromotionExhausted
	}
	p.usages[orderID] = promo.Code
	return nil
}

func (p *fakePromotions) ReleaseUsage(_ context.Context, _ pgx.Tx, orderID uuid.UUID) error {
	delete(p.usages, orderID)
	return nil
}

// =====================================================
// GIFT CARDS
// =====================================================

type fakeLedger struct {
	balances map[string]decimal.Decimal
	debits   map[uuid.UUID]giftDebit
	// capApply limits what Apply actually debits, as if the balance was
	// spent elsewhere after the quote.
	capApply  *decimal.Decimal
	failApply error
}

type giftDebit struct {
	code   string
	amount decimal.Decimal
}

func (l *fakeLedger) snapshot() func() {
	balances := make(map[string]decimal.Decimal, len(l.balances))
	for k, v := range l.balances {
		balances[k] = v
	}
	debits := make(map[uuid.UUID]giftDebit, len(l.debits))
	for k, v := range l.debits {
		debits[k] = v
	}
	return func() { l.balances, l.debits = balances, debits }
}

func (l *fakeLedger) Validate(_ context.Context, code string) (*giftcardModel.ValidationResult, error) {
	bal, ok := l.balances[code]
	if !ok {
		return &giftcardModel.ValidationResult{IsValid: false, Message: "Gift card not found"}, nil
	}
	return &giftcardModel.ValidationResult{IsValid: bal.IsPositive(), AvailableBalance: bal}, nil
}

func (l *fakeLedger) Apply(_ context.Context, _ pgx.Tx, code string, requested decimal.Decimal, orderID, _ uuid.UUID) (decimal.Decimal, error) {
	if l.failApply != nil {
		return decimal.Zero, l.failApply
	}
	bal, ok := l.balances[code]
	if !ok {
		return decimal.Zero, giftcardModel.ErrGiftCardNotFound
	}
	amount := decimal.Min(bal, requested)
	if l.capApply != nil {
		amount = decimal.Min(amount, *l.capApply)
	}
	l.balances[code] = bal.Sub(amount)
	l.debits[orderID] = giftDebit{code: code, amount: amount}
	return amount, nil
}

func (l *fakeLedger) Reverse(_ context.Context, _ pgx.Tx, orderID uuid.UUID) (decimal.Decimal, error) {
	d, ok := l.debits[orderID]
	if !ok {
		return decimal.Zero, nil
	}
	l.balances[d.code] = l.balances[d.code].Add(d.amount)
	delete(l.debits, orderID)
	return d.amount, nil
}

// =====================================================
// SPECIAL OFFERS
// =====================================================

type fakeOffers struct {
	used     map[uuid.UUID]uuid.UUID
	failMark error
}

func (o *fakeOffers) snapshot() func() {
	saved := make(map[uuid.UUID]uuid.UUID, len(o.used))
	for k, v := range o.used {
		saved[k] = v
	}
	return func() { o.used = saved }
}

func (o *fakeOffers) MarkUsed(_ context.Context, _ pgx.Tx, grantID, _, orderID uuid.UUID) error {
	if o.failMark != nil {
		return o.failMark
	}
	o.used[grantID] = orderID
	return nil
}

func (o *fakeOffers) Restore(_ context.Context, _ pgx.Tx, orderID uuid.UUID) error {
	for grant, id := range o.used {
		if id == orderID {
			delete(o.used, grant)
		}
	}
	return nil
}

// =====================================================
// CONFIRMATION COLLABORATORS
// =====================================================

type fakeSubscriptions struct {
	mu          sync.Mutex
	activations []uuid.UUID
}

func (s *fakeSubscriptions) DiscountFor(plan *catalogModel.Subscription, subtotal decimal.Decimal) decimal.Decimal {
	if plan == nil || !plan.IsActive {
		return decimal.Zero
	}
	return pricing.PercentOf(subtotal, plan.DiscountPercentage)
}

func (s *fakeSubscriptions) ActivateOrRenew(_ context.Context, userID uuid.UUID, plan *catalogModel.Subscription, orderID uuid.UUID) (*subscriptionModel.UserSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.activations = append(s.activations, orderID)
	return &subscriptionModel.UserSubscription{ID: uuid.New(), UserID: userID, SubscriptionID: plan.ID}, nil
}

type fakeApartments struct {
	mu       sync.Mutex
	id       uuid.UUID
	captured int
	fail     error
}

func (a *fakeApartments) Capture(_ context.Context, _ uuid.UUID, addr apartmentModel.Address) (uuid.UUID, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.fail != nil {
		return uuid.Nil, a.fail
	}
	if addr.IsEmpty() {
		return uuid.Nil, nil
	}
	a.captured++
	return a.id, nil
}

type fakeNotifier struct {
	mu       sync.Mutex
	customer []shared.BookingNotificationPayload
	company  []shared.BookingNotificationPayload
}

func (n *fakeNotifier) NotifyCustomerBookingConfirmed(_ context.Context, p shared.BookingNotificationPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.customer = append(n.customer, p)
}

func (n *fakeNotifier) NotifyCompanyNewBooking(_ context.Context, p shared.BookingNotificationPayload) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.company = append(n.company, p)
}

func (n *fakeNotifier) counts() (int, int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.customer), len(n.company)
}

// =====================================================
// WEBHOOK AUDIT
// =====================================================

type fakeWebhooks struct {
	mu        sync.Mutex
	events    map[string]paymentModel.WebhookEvent
	failWrite error
}

func newFakeWebhooks() *fakeWebhooks {
	return &fakeWebhooks{events: map[string]paymentModel.WebhookEvent{}}
}

func (f *fakeWebhooks) Record(_ context.Context, e *paymentModel.WebhookEvent) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite != nil {
		return false, f.failWrite
	}
	if prev, ok := f.events[e.GatewayEventID]; ok {
		prev.DeliveryCount++
		f.events[e.GatewayEventID] = prev
		e.ID, e.IsProcessed, e.DeliveryCount = prev.ID, prev.IsProcessed, prev.DeliveryCount
		return prev.IsProcessed, nil
	}
	e.ID = uuid.New()
	e.DeliveryCount = 1
	f.events[e.GatewayEventID] = *e
	return false, nil
}

func (f *fakeWebhooks) Finish(_ context.Context, e *paymentModel.WebhookEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored := f.events[e.GatewayEventID]
	stored.IsProcessed = e.IsProcessed
	stored.ProcessingError = e.ProcessingError
	stored.ProcessedAt = e.ProcessedAt
	stored.OrderID = e.OrderID
	f.events[e.GatewayEventID] = stored
	return nil
}

func (f *fakeWebhooks) get(id string) paymentModel.WebhookEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[id]
}
