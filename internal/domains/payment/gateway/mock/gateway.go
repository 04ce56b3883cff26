package mock

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"cleaning-backend/internal/domains/payment/gateway"
)

// =====================================================
// IN-MEMORY GATEWAY FOR DEVELOPMENT AND TESTS
// =====================================================

type Gateway struct {
	mu      sync.Mutex
	seq     int
	intents map[string]*gateway.Intent
	byKey   map[string]string

	failCreate error
	failGet    error
	Created    int
}

var _ gateway.PaymentGateway = (*Gateway)(nil)

func NewGateway() *Gateway {
	return &Gateway{
		intents: make(map[string]*gateway.Intent),
		byKey:   make(map[string]string),
	}
}

func (g *Gateway) CreateIntent(_ context.Context, req gateway.CreateIntentRequest) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failCreate != nil {
		return nil, g.failCreate
	}
	if !req.Amount.IsPositive() {
		return nil, gateway.ErrInvalidAmount
	}
	if id, ok := g.byKey[req.IdempotencyKey]; ok && req.IdempotencyKey != "" {
		cp := *g.intents[id]
		return &cp, nil
	}

	g.seq++
	g.Created++
	id := fmt.Sprintf("pi_mock_%d", g.seq)
	meta := map[string]string{gateway.MetadataOrderID: req.OrderID.String()}
	for k, v := range req.Metadata {
		meta[k] = v
	}
	intent := &gateway.Intent{
		ID:           id,
		ClientSecret: id + "_secret",
		Status:       gateway.IntentStatusPending,
		Amount:       req.Amount,
		Currency:     req.Currency,
		Metadata:     meta,
	}
	g.intents[id] = intent
	if req.IdempotencyKey != "" {
		g.byKey[req.IdempotencyKey] = id
	}

	cp := *intent
	return &cp, nil
}

func (g *Gateway) GetIntent(_ context.Context, intentID string) (*gateway.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.failGet != nil {
		return nil, g.failGet
	}
	intent, ok := g.intents[intentID]
	if !ok {
		return nil, gateway.ErrIntentNotFound
	}
	cp := *intent
	return &cp, nil
}

func (g *Gateway) CancelIntent(_ context.Context, intentID string) error {
	return g.setStatus(intentID, gateway.IntentStatusCanceled)
}

// ParseWebhook accepts the plain JSON form of gateway.Event; the signature
// must equal "mock".
func (g *Gateway) ParseWebhook(payload []byte, signature string) (*gateway.Event, error) {
	if signature != "mock" {
		return nil, gateway.ErrInvalidSignature
	}
	var event gateway.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("decode mock event: %w", err)
	}
	return &event, nil
}

// Succeed marks an intent as paid, as the card holder completing checkout would.
func (g *Gateway) Succeed(intentID string) error {
	return g.setStatus(intentID, gateway.IntentStatusSucceeded)
}

// SetFailCreate makes CreateIntent return err until reset with nil.
func (g *Gateway) SetFailCreate(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failCreate = err
}

// SetFailGet makes GetIntent return err until reset with nil.
func (g *Gateway) SetFailGet(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failGet = err
}

func (g *Gateway) setStatus(intentID string, status gateway.IntentStatus) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	intent, ok := g.intents[intentID]
	if !ok {
		return gateway.ErrIntentNotFound
	}
	intent.Status = status
	return nil
}
