// Package app wires the storefront's collaborators from configuration. Both
// the HTTP API and the provider-event worker start from Build.
package app

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/adyx-fashion/storefront/internal/aws"
	"github.com/adyx-fashion/storefront/internal/cart"
	"github.com/adyx-fashion/storefront/internal/catalog"
	"github.com/adyx-fashion/storefront/internal/checkout"
	"github.com/adyx-fashion/storefront/internal/config"
	"github.com/adyx-fashion/storefront/internal/handlers"
	"github.com/adyx-fashion/storefront/internal/idempotency"
	"github.com/adyx-fashion/storefront/internal/orders"
	"github.com/adyx-fashion/storefront/internal/payments"
)

// App holds the long-lived dependencies of a process.
type App struct {
	Config   *config.Config
	Logger   *zap.Logger
	Clients  *aws.AWSClients
	Redis    *redis.Client
	Carts    *cart.RedisPersister
	Orders   *orders.Store
	Claims   *idempotency.Store
	Stripe   *payments.StripeProvider
	Events   *aws.Publisher // nil when no queue is configured
	Checkout *checkout.Service
}

// Build creates AWS and Redis clients and the checkout service. Nothing here
// dials out except the optional Secrets Manager lookup for the Stripe key.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	clients, err := aws.NewAWSClients(ctx, cfg.AWSRegion, cfg.AWSEndpoint)
	if err != nil {
		return nil, fmt.Errorf("init aws clients: %w", err)
	}
	return BuildWithClients(ctx, cfg, log, clients)
}

// BuildWithClients is Build with caller-supplied AWS clients.
func BuildWithClients(ctx context.Context, cfg *config.Config, log *zap.Logger, clients *aws.AWSClients) (*App, error) {
	secretKey, err := stripeKey(ctx, cfg, clients.Secrets)
	if err != nil {
		return nil, err
	}
	if !payments.KeyConfigured(secretKey) {
		log.Warn("stripe secret key not configured; checkout will answer setup-required")
	}

	rdb, err := cart.NewRedisClient(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	a := &App{
		Config:  cfg,
		Logger:  log,
		Clients: clients,
		Redis:   rdb,
		Carts:   cart.NewRedisPersister(rdb, cfg.CartTTL),
		Orders:  orders.NewStore(clients.DynamoDB, cfg.OrdersTable),
		Claims:  idempotency.NewStore(clients.DynamoDB, cfg.IdempotencyTable, cfg.ClaimTTL),
		Stripe: payments.NewStripeProvider(payments.StripeConfig{
			SecretKey:     secretKey,
			WebhookSecret: cfg.StripeWebhookSecret,
		}),
	}
	if cfg.EventsQueueURL != "" {
		a.Events = aws.NewPublisher(clients.SQS, cfg.EventsQueueURL)
	}

	deps := checkout.Deps{
		Provider: a.Stripe,
		Orders:   a.Orders,
		Claims:   a.Claims,
		Carts:    a.Carts,
		Metrics:  aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace, cfg.MetricsEnabled),
		Logger:   log,
	}
	// a nil *Notifier in the interface would not compare equal to nil
	if cfg.OrderTopicArn != "" {
		deps.Notifier = aws.NewNotifier(clients.SNS, cfg.OrderTopicArn)
	}
	a.Checkout = checkout.NewService(deps, checkout.Config{
		Currency:    cfg.Currency,
		FrontendURL: cfg.FrontendURL,
		APIBaseURL:  cfg.APIBaseURL,
	})
	return a, nil
}

// HandlerConfig returns the HTTP wiring for this App.
func (a *App) HandlerConfig() handlers.HandlerConfig {
	hc := handlers.HandlerConfig{
		Catalog:     catalog.New(),
		Carts:       a.Carts,
		Checkout:    a.Checkout,
		Orders:      a.Orders,
		Webhooks:    a.Stripe,
		FrontendURL: a.Config.FrontendURL,
		Logger:      a.Logger,
	}
	if a.Events != nil {
		hc.Events = a.Events
		hc.EventClaims = a.Claims
		hc.WebhookClaimLease = a.Config.WebhookClaimLease
	}
	return hc
}

// Close releases network clients.
func (a *App) Close() error {
	return a.Redis.Close()
}

func stripeKey(ctx context.Context, cfg *config.Config, sm aws.SecretsAPI) (string, error) {
	if cfg.StripeSecretKey != "" || cfg.StripeSecretArn == "" {
		return cfg.StripeSecretKey, nil
	}
	key, err := aws.NewSecrets(sm).Get(ctx, cfg.StripeSecretArn)
	if err != nil {
		return "", fmt.Errorf("load stripe secret: %w", err)
	}
	return key, nil
}
