package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/adyx-fashion/storefront/internal/catalog"
)

// RegisterCatalogRoutes registers read-only product routes.
func RegisterCatalogRoutes(r *gin.Engine, cfg HandlerConfig) {
	r.GET("/products", func(c *gin.Context) {
		q := catalog.Query{
			Category: c.Query("category"),
			Search:   c.Query("search"),
			Sort:     c.Query("sort"),
		}
		var err error
		if q.MinPrice, err = priceParam(c, "minPrice"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_price", "param": "minPrice"})
			return
		}
		if q.MaxPrice, err = priceParam(c, "maxPrice"); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_price", "param": "maxPrice"})
			return
		}

		products, err := cfg.Catalog.List(q)
		if errors.Is(err, catalog.ErrUnknownSort) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_sort"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"products": products, "count": len(products)})
	})

	r.GET("/products/:id", func(c *gin.Context) {
		p, err := cfg.Catalog.Get(c.Param("id"))
		if errors.Is(err, catalog.ErrProductNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "product_not_found"})
			return
		}
		c.JSON(http.StatusOK, p)
	})
}

// priceParam returns nil when the query parameter is absent.
func priceParam(c *gin.Context, name string) (*float64, error) {
	raw := c.Query(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 {
		return nil, errors.New("invalid price")
	}
	return &v, nil
}
