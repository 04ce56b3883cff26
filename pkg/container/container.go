package container

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"

	"cleaning-backend/internal/config"
	apartmentRepo "cleaning-backend/internal/domains/apartment/repository"
	apartmentService "cleaning-backend/internal/domains/apartment/service"
	catalogHandler "cleaning-backend/internal/domains/catalog/handler"
	catalogRepo "cleaning-backend/internal/domains/catalog/repository"
	catalogService "cleaning-backend/internal/domains/catalog/service"
	giftcardRepo "cleaning-backend/internal/domains/giftcard/repository"
	giftcardService "cleaning-backend/internal/domains/giftcard/service"
	notificationService "cleaning-backend/internal/domains/notification/service"
	orderHandler "cleaning-backend/internal/domains/order/handler"
	orderRepo "cleaning-backend/internal/domains/order/repository"
	orderService "cleaning-backend/internal/domains/order/service"
	"cleaning-backend/internal/domains/payment/gateway"
	"cleaning-backend/internal/domains/payment/gateway/mock"
	"cleaning-backend/internal/domains/payment/gateway/stripe"
	paymentRepo "cleaning-backend/internal/domains/payment/repository"
	promotionRepo "cleaning-backend/internal/domains/promotion/repository"
	promotionService "cleaning-backend/internal/domains/promotion/service"
	specialofferRepo "cleaning-backend/internal/domains/specialoffer/repository"
	specialofferService "cleaning-backend/internal/domains/specialoffer/service"
	subscriptionRepo "cleaning-backend/internal/domains/subscription/repository"
	subscriptionService "cleaning-backend/internal/domains/subscription/service"
	infraCache "cleaning-backend/internal/infrastructure/cache"
	"cleaning-backend/internal/infrastructure/database"
	"cleaning-backend/pkg/cache"
	pkgdb "cleaning-backend/pkg/database"
	"cleaning-backend/pkg/jwt"
	"cleaning-backend/pkg/logger"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container is the root of the dependency graph shared by the API and the worker.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config      *config.Config
	DB          *database.PostgresDB
	Redis       *infraCache.RedisClient
	Cache       cache.Cache
	AsynqClient *asynq.Client
	JWTManager  *jwt.Manager
	TxManager   pkgdb.TxManager
	Gateway     gateway.PaymentGateway

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	OrderRepo        orderRepo.OrderRepository
	CatalogRepo      catalogRepo.Repository
	PromotionRepo    promotionRepo.PromotionRepository
	GiftCardRepo     giftcardRepo.Repository
	SpecialOfferRepo specialofferRepo.Repository
	SubscriptionRepo subscriptionRepo.Repository
	ApartmentRepo    apartmentRepo.Repository
	WebhookRepo      paymentRepo.WebhookRepository

	// ========================================
	// SERVICE LAYER
	// ========================================
	CatalogReader       catalogService.Reader
	PromotionService    promotionService.Service
	GiftCardLedger      giftcardService.Ledger
	SpecialOffers       specialofferService.GrantStore
	SubscriptionService subscriptionService.Service
	ApartmentService    apartmentService.Service
	Notifier            notificationService.Dispatcher
	OrderService        orderService.OrderService

	// ========================================
	// HANDLER LAYER
	// ========================================
	OrderHandler   *orderHandler.OrderHandler
	CatalogHandler *catalogHandler.CatalogHandler
}

// ========================================
// CONSTRUCTOR
// ========================================

// NewContainer builds the graph in order:
// config, infrastructure, repositories, services, handlers.
func NewContainer(cfg *config.Config) (*Container, error) {
	logger.Info("Initializing container", map[string]interface{}{"env": cfg.App.Environment})

	c := &Container{Config: cfg}

	// ========================================
	// STEP 1: DATABASE
	// ========================================
	db := database.NewPostgresDB(cfg.DBConfig())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := db.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database health check failed: %w", err)
	}
	c.DB = db
	c.TxManager = pkgdb.NewTxManager(db.Pool)

	// ========================================
	// STEP 2: REDIS + QUEUE
	// ========================================
	c.Redis = infraCache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := c.Redis.Connect(ctx); err != nil {
		// the catalog cache degrades to direct reads
		logger.Warn("Redis unavailable, continuing without cache", map[string]interface{}{"error": err.Error()})
	}
	c.Cache = infraCache.NewRedisCache(c.Redis.Client, "cleaning:")

	c.AsynqClient = asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	c.JWTManager = jwt.NewManager(cfg.JWT.Secret, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)

	gw, err := newGateway(cfg)
	if err != nil {
		c.Cleanup()
		return nil, fmt.Errorf("failed to init payment gateway: %w", err)
	}
	c.Gateway = gw

	c.initRepositories()
	c.initServices()
	c.initHandlers()

	logger.Info("Container initialized", nil)
	return c, nil
}

func newGateway(cfg *config.Config) (gateway.PaymentGateway, error) {
	if cfg.Stripe.UseMock {
		logger.Warn("Using mock payment gateway", nil)
		return mock.NewGateway(), nil
	}
	gw, err := stripe.NewGateway(stripe.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		AccountID:     cfg.Stripe.AccountID,
		Currency:      cfg.Pricing.Currency,
	})
	if err != nil {
		return nil, err
	}
	return gw, nil
}

// ========================================
// PRIVATE INITIALIZATION METHODS
// ========================================

func (c *Container) initRepositories() {
	pool := c.DB.Pool

	c.OrderRepo = orderRepo.NewPostgresOrderRepository(pool)
	c.CatalogRepo = catalogRepo.NewPostgresRepository(pool)
	c.PromotionRepo = promotionRepo.NewPostgresRepository(pool)
	c.GiftCardRepo = giftcardRepo.NewPostgresRepository(pool)
	c.SpecialOfferRepo = specialofferRepo.NewPostgresRepository(pool)
	c.SubscriptionRepo = subscriptionRepo.NewPostgresRepository(pool)
	c.ApartmentRepo = apartmentRepo.NewPostgresRepository(pool)
	c.WebhookRepo = paymentRepo.NewWebhookRepository(pool)
}

func (c *Container) initServices() {
	cfg := c.Config

	c.CatalogReader = catalogService.NewReader(c.CatalogRepo, c.Cache, cfg.Redis.CatalogTTL)
	c.PromotionService = promotionService.NewPromotionService(c.PromotionRepo)
	c.GiftCardLedger = giftcardService.NewLedger(c.GiftCardRepo)
	c.SpecialOffers = specialofferService.NewGrantStore(c.SpecialOfferRepo)
	c.SubscriptionService = subscriptionService.NewService(c.SubscriptionRepo)
	c.ApartmentService = apartmentService.NewService(c.ApartmentRepo)
	c.Notifier = notificationService.NewDispatcher(c.AsynqClient, cfg.Jobs.NotificationRetry)

	c.OrderService = orderService.NewOrderService(
		orderService.Dependencies{
			OrderRepo:     c.OrderRepo,
			TxManager:     c.TxManager,
			Catalog:       c.CatalogReader,
			Promotions:    c.PromotionService,
			GiftCards:     c.GiftCardLedger,
			Offers:        c.SpecialOffers,
			Subscriptions: c.SubscriptionService,
			Apartments:    c.ApartmentService,
			Gateway:       c.Gateway,
			Notifier:      c.Notifier,
			Webhooks:      c.WebhookRepo,
		},
		cfg.PricingRules(),
		orderService.Settings{
			Currency:                 cfg.Pricing.Currency,
			FirstTimeDiscountPercent: cfg.Pricing.FirstTimeDiscountPercent,
			PaymentMaxRetries:        cfg.Stripe.MaxRetries,
			PaymentRetryInterval:     cfg.Stripe.RetryInterval,
		},
	)
}

func (c *Container) initHandlers() {
	c.OrderHandler = orderHandler.NewOrderHandler(c.OrderService)
	c.CatalogHandler = catalogHandler.NewCatalogHandler(c.CatalogReader)
}

// Cleanup releases connections; safe on a partially built container.
func (c *Container) Cleanup() {
	if c.AsynqClient != nil {
		if err := c.AsynqClient.Close(); err != nil {
			logger.Error("Failed to close asynq client", err)
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			logger.Error("Failed to close Redis", err)
		}
	}
	if c.DB != nil {
		c.DB.Close()
	}
	logger.Info("Container cleanup completed", nil)
}
