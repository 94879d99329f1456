package catalog

import (
	"cmp"
	"errors"
	"slices"
	"strings"
)

var ErrProductNotFound = errors.New("product not found")

// Product is a sellable item. Sizes is empty for one-size products.
type Product struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	Price         float64  `json:"price"`
	OriginalPrice float64  `json:"originalPrice,omitempty"`
	Image         string   `json:"image"`
	Category      string   `json:"category"`
	Subcategory   string   `json:"subcategory,omitempty"`
	Sizes         []string `json:"sizes,omitempty"`
	Colors        []string `json:"colors"`
	Stock         int      `json:"stock"`
}

// SupportsVariant reports whether size and color are valid choices for p.
// An empty value selects the default variant and is always accepted.
func (p Product) SupportsVariant(size, color string) bool {
	if !allowed(p.Sizes, size) {
		return false
	}
	return allowed(p.Colors, color)
}

func allowed(options []string, v string) bool {
	return v == "" || slices.Contains(options, v)
}

// Catalog is a read-only product index.
type Catalog struct {
	ordered []Product
	byID    map[string]Product
}

// New returns the storefront catalog.
func New() *Catalog {
	return NewWithProducts(products)
}

// NewWithProducts builds a catalog over ps, keeping their order.
func NewWithProducts(ps []Product) *Catalog {
	c := &Catalog{
		ordered: make([]Product, len(ps)),
		byID:    make(map[string]Product, len(ps)),
	}
	copy(c.ordered, ps)
	for _, p := range ps {
		c.byID[p.ID] = p
	}
	return c
}

// Sort orders for List. SortFeatured and SortNewest keep catalog order.
const (
	SortFeatured  = "featured"
	SortNewest    = "newest"
	SortPriceLow  = "price-low"
	SortPriceHigh = "price-high"
	SortName      = "name"
)

var ErrUnknownSort = errors.New("unknown sort order")

// Query narrows List. Zero fields match everything; price bounds are inclusive.
type Query struct {
	Category string
	Search   string
	MinPrice *float64
	MaxPrice *float64
	Sort     string
}

// List returns the products matching q. Search is a case-insensitive
// substring match on the product name.
func (c *Catalog) List(q Query) ([]Product, error) {
	switch q.Sort {
	case "", SortFeatured, SortNewest, SortPriceLow, SortPriceHigh, SortName:
	default:
		return nil, ErrUnknownSort
	}

	needle := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]Product, 0, len(c.ordered))
	for _, p := range c.ordered {
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(p.Name), needle) {
			continue
		}
		if q.MinPrice != nil && p.Price < *q.MinPrice {
			continue
		}
		if q.MaxPrice != nil && p.Price > *q.MaxPrice {
			continue
		}
		out = append(out, p)
	}

	switch q.Sort {
	case SortPriceLow:
		slices.SortStableFunc(out, func(a, b Product) int { return cmp.Compare(a.Price, b.Price) })
	case SortPriceHigh:
		slices.SortStableFunc(out, func(a, b Product) int { return cmp.Compare(b.Price, a.Price) })
	case SortName:
		slices.SortStableFunc(out, func(a, b Product) int {
			return cmp.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
		})
	}
	return out, nil
}

func (c *Catalog) Get(id string) (Product, error) {
	p, ok := c.byID[id]
	if !ok {
		return Product{}, ErrProductNotFound
	}
	return p, nil
}
