package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/adyx-fashion/storefront/internal/cart"
	"github.com/adyx-fashion/storefront/internal/catalog"
	"github.com/adyx-fashion/storefront/internal/logging"
	"github.com/adyx-fashion/storefront/internal/validation"
)

// Cart headers. A client without a cart id gets one assigned on first use.
const (
	HeaderCartID    = "X-Cart-ID"
	HeaderCartReset = "X-Cart-Reset"
)

type cartView struct {
	CartID     string          `json:"cartId"`
	Items      []cart.LineItem `json:"items"`
	IsOpen     bool            `json:"isOpen"`
	TotalItems int             `json:"totalItems"`
	TotalPrice float64         `json:"totalPrice"`
}

func viewOf(ct *cart.Cart) cartView {
	return cartView{
		CartID:     ct.ID(),
		Items:      ct.Items(),
		IsOpen:     ct.IsOpen(),
		TotalItems: ct.TotalItems(),
		TotalPrice: ct.TotalPrice(),
	}
}

// RegisterCartRoutes registers the cart store routes.
func RegisterCartRoutes(r *gin.Engine, cfg HandlerConfig) {
	// openCart loads the caller's cart or writes an error response and returns nil.
	openCart := func(c *gin.Context) *cart.Cart {
		id := c.GetHeader(HeaderCartID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Header(HeaderCartID, id)

		ct, reset, err := cart.Open(c.Request.Context(), cfg.Carts, id)
		if err != nil {
			logging.FromContext(c, cfg.Logger).Error("open cart", zap.String("cart_id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cart_unavailable"})
			return nil
		}
		if reset {
			c.Header(HeaderCartReset, "true")
		}
		return ct
	}

	// respond writes the cart after a mutation, or a 500 when persisting failed.
	respond := func(c *gin.Context, ct *cart.Cart, err error) {
		if err != nil {
			logging.FromContext(c, cfg.Logger).Error("save cart", zap.String("cart_id", ct.ID()), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "cart_save_failed"})
			return
		}
		c.JSON(http.StatusOK, viewOf(ct))
	}

	r.GET("/cart", func(c *gin.Context) {
		ct := openCart(c)
		if ct == nil {
			return
		}
		c.JSON(http.StatusOK, viewOf(ct))
	})

	r.POST("/cart/items", func(c *gin.Context) {
		var req validation.AddCartItemRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}

		p, err := cfg.Catalog.Get(req.ProductID)
		if errors.Is(err, catalog.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product_not_found"})
			return
		}
		if !p.SupportsVariant(req.Size, req.Color) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unsupported_variant", "sizes": p.Sizes, "colors": p.Colors})
			return
		}

		ct := openCart(c)
		if ct == nil {
			return
		}
		err = ct.AddItem(c.Request.Context(), cart.AddInput{
			ProductID:   p.ID,
			Name:        p.Name,
			Price:       p.Price,
			Image:       p.Image,
			Size:        req.Size,
			Color:       req.Color,
			MaxQuantity: p.Stock,
			Quantity:    req.Quantity,
		})
		respond(c, ct, err)
	})

	r.PATCH("/cart/items/:line_id", func(c *gin.Context) {
		var req validation.UpdateQuantityRequest
		if err := validation.BindAndValidate(c, &req, cfg.Validator); err != nil {
			return
		}
		ct := openCart(c)
		if ct == nil {
			return
		}
		respond(c, ct, ct.UpdateQuantity(c.Request.Context(), c.Param("line_id"), *req.Quantity))
	})

	r.DELETE("/cart/items/:line_id", func(c *gin.Context) {
		ct := openCart(c)
		if ct == nil {
			return
		}
		respond(c, ct, ct.RemoveItem(c.Request.Context(), c.Param("line_id")))
	})

	r.DELETE("/cart", func(c *gin.Context) {
		ct := openCart(c)
		if ct == nil {
			return
		}
		respond(c, ct, ct.Clear(c.Request.Context()))
	})

	r.POST("/cart/toggle", func(c *gin.Context) {
		ct := openCart(c)
		if ct == nil {
			return
		}
		respond(c, ct, ct.Toggle(c.Request.Context()))
	})
}
