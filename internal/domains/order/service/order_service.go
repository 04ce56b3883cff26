package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	apartment "cleaning-backend/internal/domains/apartment/service"
	catalogModel "cleaning-backend/internal/domains/catalog/model"
	catalog "cleaning-backend/internal/domains/catalog/service"
	giftcard "cleaning-backend/internal/domains/giftcard/service"
	notification "cleaning-backend/internal/domains/notification/service"
	"cleaning-backend/internal/domains/order/model"
	"cleaning-backend/internal/domains/order/repository"
	"cleaning-backend/internal/domains/payment/gateway"
	paymentRepo "cleaning-backend/internal/domains/payment/repository"
	"cleaning-backend/internal/domains/pricing"
	promoModel "cleaning-backend/internal/domains/promotion/model"
	promotion "cleaning-backend/internal/domains/promotion/service"
	specialoffer "cleaning-backend/internal/domains/specialoffer/service"
	subscription "cleaning-backend/internal/domains/subscription/service"
	"cleaning-backend/pkg/database"
	"cleaning-backend/pkg/logger"
)

// Settings are the checkout knobs that come from configuration.
type Settings struct {
	Currency                 string
	FirstTimeDiscountPercent decimal.Decimal
	PaymentMaxRetries        uint64
	PaymentRetryInterval     time.Duration
}

// Dependencies groups the collaborators of the checkout coordinator.
type Dependencies struct {
	OrderRepo     repository.OrderRepository
	TxManager     database.TxManager
	Catalog       catalog.Reader
	Promotions    promotion.Service
	GiftCards     giftcard.Ledger
	Offers        specialoffer.GrantStore
	Subscriptions subscription.Service
	Apartments    apartment.Service
	Gateway       gateway.PaymentGateway
	Notifier      notification.Dispatcher

	// Webhooks is optional; without it redeliveries are still safe but unaudited.
	Webhooks paymentRepo.WebhookRepository
}

// =====================================================
// ORDER SERVICE IMPLEMENTATION
// =====================================================
type orderService struct {
	Dependencies
	rules    pricing.Rules
	settings Settings
	now      func() time.Time
}

func NewOrderService(deps Dependencies, rules pricing.Rules, settings Settings) OrderService {
	if settings.Currency == "" {
		settings.Currency = "usd"
	}
	if settings.PaymentRetryInterval <= 0 {
		settings.PaymentRetryInterval = 500 * time.Millisecond
	}
	return &orderService{
		Dependencies: deps,
		rules:        rules,
		settings:     settings,
		now:          time.Now,
	}
}

// =====================================================
// QUOTE
// =====================================================

func (s *orderService) Quote(ctx context.Context, userID uuid.UUID, req model.PricingRequest) (*model.QuoteResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, model.NewOrderError(model.ErrCodeInvalidInput, "Invalid quote request", err)
	}

	pr, err := s.price(ctx, userID, req, priceOptions{allowCustom: true})
	if err != nil {
		return nil, err
	}
	if pr.priced.IsNegative() {
		return nil, model.NewOrderError(model.ErrCodeNegativeTotal, "Discounts exceed the order amount", model.ErrNegativeTotal)
	}

	return &model.QuoteResponse{
		Pricing:         pr.priced,
		PromoMessage:    pr.promoMessage,
		GiftCardMessage: pr.giftCardMessage,
	}, nil
}

// =====================================================
// SHARED PRICING PATH
// =====================================================

type priceOptions struct {
	// strict rejects invalid promo/gift card/subscription instead of
	// ignoring them with a message.
	strict      bool
	allowCustom bool
	// giftCardCredit is added back to the card balance (re-pricing an
	// order that already debited the same card).
	giftCardCredit decimal.Decimal
}

type pricedRequest struct {
	priced          *pricing.PricedOrder
	serviceTypeName string
	promo           *promoModel.Promotion
	plan            *catalogModel.Subscription
	giftCardCode    string
	promoMessage    string
	giftCardMessage string
}

// price is the single pricing path behind every entry point.
func (s *orderService) price(ctx context.Context, userID uuid.UUID, req model.PricingRequest, opts priceOptions) (*pricedRequest, error) {
	if req.Custom != nil && !opts.allowCustom {
		return nil, model.NewOrderError(model.ErrCodeInvalidInput, "Custom pricing is only available to staff", nil)
	}

	snap, err := s.Catalog.Snapshot(ctx, req.ServiceTypeID, req.ServiceLineIDs(), req.ExtraLineIDs())
	if errors.Is(err, catalogModel.ErrServiceTypeNotFound) {
		return nil, model.NewOrderError(model.ErrCodeInvalidInput, "Service type not found", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	pr := &pricedRequest{serviceTypeName: snap.ServiceType.Name}

	if req.SubscriptionID != nil {
		plan, err := s.Catalog.GetSubscription(ctx, *req.SubscriptionID)
		if err != nil {
			return nil, fmt.Errorf("failed to load subscription: %w", err)
		}
		if plan == nil || !plan.IsActive {
			if opts.strict {
				return nil, model.NewOrderError(model.ErrCodeInvalidInput, "Subscription not found", nil)
			}
		} else {
			pr.plan = plan
		}
	}

	var quote *pricing.GiftCardQuote
	if code := req.GiftCard(); code != "" {
		res, err := s.GiftCards.Validate(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("failed to validate gift card: %w", err)
		}
		available := res.AvailableBalance.Add(opts.giftCardCredit)
		if !res.IsValid && !opts.giftCardCredit.IsPositive() {
			if opts.strict {
				return nil, model.NewOrderError(model.ErrCodeDiscountConflict, res.Message, nil)
			}
			pr.giftCardMessage = res.Message
		} else {
			pr.giftCardCode = code
			quote = &pricing.GiftCardQuote{Requested: req.GiftCardAmount, Available: available}
		}
	}

	firstTime := s.firstTimeEligible(ctx, userID, req.Promo())

	in := pricing.Input{
		ServiceType:           snap.ServiceType,
		ServiceLines:          snap.ServiceLines,
		ExtraLines:            snap.ExtraLines,
		Services:              req.ServiceSelections(),
		Extras:                req.ExtraSelections(),
		Custom:                req.CustomPricing(),
		ClientDurationMinutes: req.DurationMinutes,
		ClientMaidsCount:      req.MaidsCount,
		Tips:                  req.Tips,
		CompanyDevelopmentTip: req.CompanyDevelopmentTip,
		GiftCard:              quote,
		Discounts: func(subtotal decimal.Decimal) (pricing.Discounts, error) {
			d := pricing.Discounts{Promo: decimal.Zero, Subscription: decimal.Zero}

			if code := req.Promo(); code != "" {
				res, err := s.Promotions.Validate(ctx, code, userID, subtotal)
				if err != nil {
					return d, fmt.Errorf("failed to validate promotion: %w", err)
				}
				if !res.IsValid {
					if opts.strict {
						return d, model.NewOrderError(model.ErrCodeDiscountConflict, res.Message, nil)
					}
					pr.promoMessage = res.Message
				} else {
					d.Promo = res.DiscountAmount
					pr.promo = res.Promotion
				}
			} else if firstTime {
				d.Promo = pricing.PercentOf(subtotal, s.settings.FirstTimeDiscountPercent)
			}

			d.Subscription = s.Subscriptions.DiscountFor(pr.plan, subtotal)
			return d, nil
		},
	}

	priced, err := pricing.ComputePricing(in, s.rules)
	if err != nil {
		var oe *model.OrderError
		switch {
		case errors.As(err, &oe):
			return nil, oe
		case isPricingInputError(err):
			return nil, model.NewOrderError(model.ErrCodeInvalidInput, err.Error(), err)
		default:
			return nil, err
		}
	}
	pr.priced = priced

	if priced.ClientDurationApplied {
		logger.Warn("Client duration overrides computed duration", map[string]interface{}{
			"user_id":  userID.String(),
			"computed": priced.ComputedDurationMinutes.String(),
			"applied":  priced.TotalDurationMinutes.String(),
		})
	}

	return pr, nil
}

// firstTimeEligible: no promo code, a configured percentage, and no paid order yet.
func (s *orderService) firstTimeEligible(ctx context.Context, userID uuid.UUID, promoCode string) bool {
	if promoCode != "" || !s.settings.FirstTimeDiscountPercent.IsPositive() || userID == uuid.Nil {
		return false
	}
	n, err := s.OrderRepo.CountConfirmedOrdersByUser(ctx, userID)
	if err != nil {
		logger.Warn("First-time discount check failed", map[string]interface{}{
			"user_id": userID.String(),
			"error":   err.Error(),
		})
		return false
	}
	return n == 0
}

func isPricingInputError(err error) bool {
	return errors.Is(err, pricing.ErrNegativeQuantity) ||
		errors.Is(err, pricing.ErrNegativeHours) ||
		errors.Is(err, pricing.ErrNegativeTip) ||
		errors.Is(err, pricing.ErrNegativeDiscount) ||
		errors.Is(err, pricing.ErrInvalidCustomRate)
}
