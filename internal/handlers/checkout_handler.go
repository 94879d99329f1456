package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adyx-fashion/storefront/internal/catalog"
	"github.com/adyx-fashion/storefront/internal/checkout"
	"github.com/adyx-fashion/storefront/internal/logging"
	"github.com/adyx-fashion/storefront/internal/orders"
	"github.com/adyx-fashion/storefront/internal/validation"
)

// HeaderUserID identifies the signed-in shopper, when there is one.
const HeaderUserID = "X-User-ID"

// priceFromCatalog rebuilds a checkout line from the catalog so the charge
// never depends on client-sent names or prices. It writes the 400 response
// and reports false when the line cannot be sold.
func priceFromCatalog(c *gin.Context, cat *catalog.Catalog, it validation.CheckoutItem) (checkout.Item, bool) {
	p, err := cat.Get(it.ProductID)
	if errors.Is(err, catalog.ErrProductNotFound) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "product_not_found", "productId": it.ProductID})
		return checkout.Item{}, false
	}
	if !p.SupportsVariant(it.Size, it.Color) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_variant", "productId": it.ProductID, "sizes": p.Sizes, "colors": p.Colors})
		return checkout.Item{}, false
	}
	if it.Quantity > p.Stock {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quantity_exceeds_stock", "productId": it.ProductID, "stock": p.Stock})
		return checkout.Item{}, false
	}
	return checkout.Item{
		ProductID: p.ID,
		Name:      p.Name,
		Price:     p.Price,
		Quantity:  it.Quantity,
		Image:     p.Image,
		Size:      it.Size,
		Color:     it.Color,
	}, true
}

type confirmedItemView struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

type confirmedOrderView struct {
	ID     string              `json:"id"`
	Total  float64             `json:"total"`
	Status string              `json:"status"`
	Items  []confirmedItemView `json:"items"`
}

// RegisterCheckoutRoutes registers session creation, the success-page
// confirmation and the cancel callback.
func RegisterCheckoutRoutes(r *gin.Engine, cfg HandlerConfig) {
	r.POST("/checkout", func(c *gin.Context) {
		log := logging.FromContext(c, cfg.Logger)

		var req validation.CheckoutRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}

		in := checkout.Request{
			Customer: checkout.CustomerInfo(req.CustomerInfo),
			UserID:   firstNonEmpty(req.UserID, c.GetHeader(HeaderUserID)),
			CartID:   firstNonEmpty(req.CartID, c.GetHeader(HeaderCartID)),
		}
		for _, it := range req.Items {
			item, ok := priceFromCatalog(c, cfg.Catalog, it)
			if !ok {
				return
			}
			in.Items = append(in.Items, item)
		}

		res, err := cfg.Checkout.CreateSession(c.Request.Context(), in)
		if err != nil {
			writeCheckoutError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"sessionId":   res.SessionID,
			"url":         res.URL,
			"orderId":     res.OrderID,
			"expiresAt":   res.ExpiresAt,
			"realPayment": true,
		})
	})

	r.GET("/checkout/success", func(c *gin.Context) {
		log := logging.FromContext(c, cfg.Logger)

		res, err := cfg.Checkout.Confirm(c.Request.Context(), c.Query("session_id"))
		if err != nil {
			writeConfirmError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"success":  true,
			"replayed": res.Replayed,
			"order":    confirmedView(res.Order),
		})
	})

	r.GET("/checkout/cancel", func(c *gin.Context) {
		sessionID := c.Query("session_id")
		if err := cfg.Checkout.Cancel(c.Request.Context(), sessionID); err != nil {
			logging.FromContext(c, cfg.Logger).Warn("cancel checkout session", zap.String("session_id", sessionID), zap.Error(err))
		}
		c.Redirect(http.StatusSeeOther, strings.TrimRight(cfg.FrontendURL, "/")+"/checkout?cancelled=true")
	})
}

func writeCheckoutError(c *gin.Context, log *zap.Logger, err error) {
	var verr *checkout.ValidationError
	var perr *checkout.ProviderError
	switch {
	case errors.Is(err, checkout.ErrEmptyCart):
		c.JSON(http.StatusBadRequest, gin.H{"error": "No items provided"})
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation_failed", "fields": verr.Fields})
	case errors.Is(err, checkout.ErrSetupRequired):
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":         "Payment system not configured. Please set up Stripe API keys.",
			"setupRequired": true,
			"instructions":  checkout.SetupInstructions,
		})
	case errors.As(err, &perr):
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Payment error: " + perr.Message,
			"type":  perr.Type,
			"code":  perr.Code,
		})
	case errors.Is(err, checkout.ErrMetadataTooLarge):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Too many items for a single checkout"})
	default:
		log.Error("create checkout session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error during payment processing"})
	}
}

func writeConfirmError(c *gin.Context, log *zap.Logger, err error) {
	var verr *checkout.ValidationError
	var perr *checkout.ProviderError
	switch {
	case errors.As(err, &verr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Session ID is required"})
	case errors.Is(err, checkout.ErrPaymentIncomplete):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Payment not completed"})
	case errors.Is(err, checkout.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "error": "Checkout session not found"})
	case errors.Is(err, checkout.ErrOrderClosed):
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Order is no longer pending"})
	case errors.Is(err, checkout.ErrSetupRequired):
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Payment system not configured", "setupRequired": true})
	case errors.As(err, &perr):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Payment error: " + perr.Message, "type": perr.Type, "code": perr.Code})
	default:
		log.Error("confirm checkout session", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to process order"})
	}
}

func confirmedView(o *orders.Order) confirmedOrderView {
	v := confirmedOrderView{ID: o.OrderID, Total: o.Total, Status: o.Status, Items: make([]confirmedItemView, 0, len(o.Items))}
	for _, it := range o.Items {
		v.Items = append(v.Items, confirmedItemView{Name: it.Name, Quantity: it.Quantity, Price: it.Price})
	}
	return v
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
