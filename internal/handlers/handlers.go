package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/adyx-fashion/storefront/internal/aws"
	"github.com/adyx-fashion/storefront/internal/cart"
	"github.com/adyx-fashion/storefront/internal/catalog"
	"github.com/adyx-fashion/storefront/internal/checkout"
	"github.com/adyx-fashion/storefront/internal/idempotency"
	"github.com/adyx-fashion/storefront/internal/orders"
	"github.com/adyx-fashion/storefront/internal/validation"
)

// CheckoutService is the checkout orchestrator as seen by HTTP handlers.
type CheckoutService interface {
	CreateSession(ctx context.Context, req checkout.Request) (*checkout.CreateResult, error)
	Confirm(ctx context.Context, sessionID string) (*checkout.Confirmation, error)
	Cancel(ctx context.Context, sessionID string) error
	HandleProviderEvent(ctx context.Context, evt checkout.ProviderEvent) error
}

// OrderReader serves order history and the admin summary.
type OrderReader interface {
	Get(ctx context.Context, orderID string) (*orders.Order, error)
	ListByUser(ctx context.Context, userID string, limit int32) ([]orders.Order, error)
	Stats(ctx context.Context, recent int) (*orders.Stats, error)
}

// WebhookParser verifies and decodes provider webhook payloads.
type WebhookParser interface {
	ParseWebhook(payload []byte, signature string) (checkout.ProviderEvent, error)
}

// HandlerConfig groups dependencies for the HTTP handlers.
// Events and EventClaims are optional: without a queue, webhook events are
// applied inline.
type HandlerConfig struct {
	Catalog     *catalog.Catalog
	Carts       cart.Persister
	Checkout    CheckoutService
	Orders      OrderReader
	Webhooks    WebhookParser
	Events      *aws.Publisher
	EventClaims *idempotency.Store
	Validator   *validatorv10.Validate
	FrontendURL string
	Logger      *zap.Logger

	// WebhookClaimLease defaults to two minutes.
	WebhookClaimLease time.Duration
}

// RegisterRoutes mounts every storefront route on r.
func RegisterRoutes(r *gin.Engine, cfg HandlerConfig) {
	if cfg.Validator == nil {
		cfg.Validator = validation.New()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.WebhookClaimLease <= 0 {
		cfg.WebhookClaimLease = defaultWebhookClaimLease
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	RegisterCatalogRoutes(r, cfg)
	RegisterCartRoutes(r, cfg)
	RegisterCheckoutRoutes(r, cfg)
	RegisterOrdersRoutes(r, cfg)
	RegisterWebhookRoutes(r, cfg)
	RegisterAdminRoutes(r, cfg)
}
