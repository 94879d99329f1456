package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adyx-fashion/storefront/internal/logging"
	"github.com/adyx-fashion/storefront/internal/orders"
)

const (
	defaultOrderPage = 50
	maxOrderPage     = 100
)

type orderItemView struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Image     string  `json:"image,omitempty"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
}

type orderView struct {
	ID              string                 `json:"id"`
	Status          string                 `json:"status"`
	Email           string                 `json:"email,omitempty"`
	Subtotal        float64                `json:"subtotal"`
	Shipping        float64                `json:"shipping"`
	Tax             float64                `json:"tax"`
	Total           float64                `json:"total"`
	ShippingAddress orders.ShippingAddress `json:"shippingAddress"`
	Items           []orderItemView        `json:"items"`
	CreatedAt       time.Time              `json:"createdAt"`
	ConfirmedAt     *time.Time             `json:"confirmedAt,omitempty"`
}

func orderViewOf(o orders.Order) orderView {
	v := orderView{
		ID:              o.OrderID,
		Status:          o.Status,
		Email:           o.Email,
		Subtotal:        o.Subtotal,
		Shipping:        o.Shipping,
		Tax:             o.Tax,
		Total:           o.Total,
		ShippingAddress: o.ShippingAddress,
		Items:           make([]orderItemView, 0, len(o.Items)),
		CreatedAt:       o.CreatedAt,
		ConfirmedAt:     o.ConfirmedAt,
	}
	for _, it := range o.Items {
		v.Items = append(v.Items, orderItemView(it))
	}
	return v
}

// RegisterOrdersRoutes registers order history routes.
func RegisterOrdersRoutes(r *gin.Engine, cfg HandlerConfig) {
	r.GET("/orders", func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		limit := defaultOrderPage
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_limit"})
				return
			}
			limit = min(n, maxOrderPage)
		}

		list, err := cfg.Orders.ListByUser(c.Request.Context(), userID, int32(limit))
		if err != nil {
			logging.FromContext(c, cfg.Logger).Error("list orders", zap.String("user_id", userID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "orders_unavailable"})
			return
		}
		out := make([]orderView, 0, len(list))
		for _, o := range list {
			out = append(out, orderViewOf(o))
		}
		c.JSON(http.StatusOK, gin.H{"orders": out})
	})

	r.GET("/orders/:id", func(c *gin.Context) {
		o, err := cfg.Orders.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			logging.FromContext(c, cfg.Logger).Error("get order", zap.String("order_id", c.Param("id")), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "orders_unavailable"})
			return
		}
		// only paid orders exist for shoppers; signed-in orders are private
		if o == nil || o.Status != orders.StatusConfirmed || (o.UserID != "" && o.UserID != c.GetHeader(HeaderUserID)) {
			c.JSON(http.StatusNotFound, gin.H{"error": "order_not_found"})
			return
		}
		c.JSON(http.StatusOK, orderViewOf(*o))
	})
}
