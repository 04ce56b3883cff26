package stripe

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"

	"cleaning-backend/internal/domains/payment/gateway"
	"cleaning-backend/pkg/logger"
)

type paymentIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Get(id string, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

type Config struct {
	SecretKey     string
	WebhookSecret string
	AccountID     string
	Currency      string
	Backends      *stripe.Backends

	// intents overrides the Stripe API client, used by tests
	intents paymentIntentAPI
}

// Gateway implements gateway.PaymentGateway with Stripe PaymentIntents.
type Gateway struct {
	intents       paymentIntentAPI
	webhookSecret string
	account       string
	currency      string
}

var _ gateway.PaymentGateway = (*Gateway)(nil)

func NewGateway(cfg Config) (*Gateway, error) {
	key := strings.TrimSpace(cfg.SecretKey)
	if key == "" && cfg.intents == nil {
		return nil, errors.New("stripe: secret key is required")
	}

	intents := cfg.intents
	if intents == nil {
		sc := client.New(key, cfg.Backends)
		intents = sc.PaymentIntents
	}

	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if currency == "" {
		currency = string(stripe.CurrencyUSD)
	}

	return &Gateway{
		intents:       intents,
		webhookSecret: cfg.WebhookSecret,
		account:       strings.TrimSpace(cfg.AccountID),
		currency:      currency,
	}, nil
}

func (g *Gateway) CreateIntent(ctx context.Context, req gateway.CreateIntentRequest) (*gateway.Intent, error) {
	if !req.Amount.IsPositive() {
		return nil, gateway.ErrInvalidAmount
	}

	currency := g.currency
	if req.Currency != "" {
		currency = strings.ToLower(req.Currency)
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(gateway.ToMinorUnits(req.Amount)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	if req.Description != "" {
		params.Description = stripe.String(req.Description)
	}
	if req.CustomerEmail != "" {
		params.ReceiptEmail = stripe.String(req.CustomerEmail)
	}
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		params.SetIdempotencyKey(key)
	}
	if g.account != "" {
		params.SetStripeAccount(g.account)
	}

	params.AddMetadata(gateway.MetadataOrderID, req.OrderID.String())
	for k, v := range req.Metadata {
		params.AddMetadata(k, v)
	}

	pi, err := g.intents.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe: create payment intent: %w", err)
	}

	logger.Info("Stripe payment intent created", map[string]interface{}{
		"intent_id": pi.ID,
		"order_id":  req.OrderID.String(),
		"amount":    pi.Amount,
	})

	return toIntent(pi), nil
}

func (g *Gateway) GetIntent(ctx context.Context, intentID string) (*gateway.Intent, error) {
	if strings.TrimSpace(intentID) == "" {
		return nil, gateway.ErrIntentNotFound
	}

	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	if g.account != "" {
		params.SetStripeAccount(g.account)
	}

	pi, err := g.intents.Get(intentID, params)
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == 404 {
			return nil, gateway.ErrIntentNotFound
		}
		return nil, fmt.Errorf("stripe: get payment intent: %w", err)
	}
	return toIntent(pi), nil
}

func (g *Gateway) CancelIntent(ctx context.Context, intentID string) error {
	params := &stripe.PaymentIntentCancelParams{
		CancellationReason: stripe.String(string(stripe.PaymentIntentCancellationReasonAbandoned)),
	}
	params.Context = ctx
	if g.account != "" {
		params.SetStripeAccount(g.account)
	}

	if _, err := g.intents.Cancel(intentID, params); err != nil {
		return fmt.Errorf("stripe: cancel payment intent: %w", err)
	}
	return nil
}

func (g *Gateway) ParseWebhook(payload []byte, signature string) (*gateway.Event, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, g.webhookSecret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", gateway.ErrInvalidSignature, err)
	}

	out := &gateway.Event{ID: event.ID, Type: gateway.EventType(event.Type)}
	if !strings.HasPrefix(string(event.Type), "payment_intent.") || event.Data == nil {
		return out, nil
	}

	var pi stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &pi); err != nil {
		return nil, fmt.Errorf("stripe: decode payment intent event: %w", err)
	}
	out.IntentID = pi.ID
	out.OrderID = pi.Metadata[gateway.MetadataOrderID]
	return out, nil
}

func toIntent(pi *stripe.PaymentIntent) *gateway.Intent {
	return &gateway.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       mapStatus(pi.Status),
		Amount:       gateway.FromMinorUnits(pi.Amount),
		Currency:     string(pi.Currency),
		Metadata:     pi.Metadata,
	}
}

func mapStatus(s stripe.PaymentIntentStatus) gateway.IntentStatus {
	switch s {
	case stripe.PaymentIntentStatusSucceeded:
		return gateway.IntentStatusSucceeded
	case stripe.PaymentIntentStatusCanceled:
		return gateway.IntentStatusCanceled
	default:
		return gateway.IntentStatusPending
	}
}
