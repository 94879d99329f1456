package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/adyx-fashion/storefront/internal/catalog"
	"github.com/adyx-fashion/storefront/internal/logging"
)

const (
	// HeaderUserRole carries the role asserted by the auth layer in front of the API.
	HeaderUserRole = "X-User-Role"
	RoleAdmin      = "ADMIN"

	recentOrderCount = 5
)

type recentOrderView struct {
	ID            string    `json:"id"`
	CustomerEmail string    `json:"customerEmail"`
	Total         float64   `json:"total"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
}

type dashboardStats struct {
	TotalOrders   int               `json:"totalOrders"`
	TotalRevenue  float64           `json:"totalRevenue"`
	TotalProducts int               `json:"totalProducts"`
	RecentOrders  []recentOrderView `json:"recentOrders"`
}

// RegisterAdminRoutes registers the admin dashboard. Only confirmed orders
// count as sales.
func RegisterAdminRoutes(r *gin.Engine, cfg HandlerConfig) {
	r.GET("/admin/dashboard", func(c *gin.Context) {
		if c.GetHeader(HeaderUserRole) != RoleAdmin {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		st, err := cfg.Orders.Stats(c.Request.Context(), recentOrderCount)
		if err != nil {
			logging.FromContext(c, cfg.Logger).Error("admin stats", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}

		products, _ := cfg.Catalog.List(catalog.Query{})
		out := dashboardStats{
			TotalOrders:   st.TotalOrders,
			TotalRevenue:  st.Revenue.Round(2).InexactFloat64(),
			TotalProducts: len(products),
			RecentOrders:  make([]recentOrderView, 0, len(st.Recent)),
		}
		for _, o := range st.Recent {
			out.RecentOrders = append(out.RecentOrders, recentOrderView{
				ID:            o.OrderID,
				CustomerEmail: o.Email,
				Total:         o.Total,
				Status:        o.Status,
				CreatedAt:     o.CreatedAt,
			})
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "stats": out})
	})
}
