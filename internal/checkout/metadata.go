package checkout

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/adyx-fashion/storefront/internal/orders"
)

const (
	// MaxMetadataValue is the provider's per-value character limit.
	MaxMetadataValue = 500
	// maxMetadataKeys is the provider's per-object key limit.
	maxMetadataKeys = 50
)

const (
	mdOrderID    = "order_id"
	mdUserID     = "user_id"
	mdCartID     = "cart_id"
	mdCustomer   = "customer_info"
	mdItems      = "items"
	mdItemsCount = "items_count"
	mdSubtotal   = "subtotal"
	mdShipping   = "shipping"
	mdTax        = "tax"
	mdTotal      = "total"
)

var ErrMetadataTooLarge = errors.New("checkout snapshot exceeds provider metadata limits")

// CustomerInfo is the shipping contact collected before payment.
type CustomerInfo = orders.ShippingAddress

// Metadata is the checkout snapshot carried on the provider session so an
// order can be rebuilt from the session alone.
type Metadata struct {
	OrderID  string
	UserID   string
	CartID   string
	Customer CustomerInfo
	Items    []Item
	Totals   Totals
}

// Encode flattens m into provider metadata. JSON values longer than
// MaxMetadataValue are split across numbered keys (items_0, items_1, ...).
func (m Metadata) Encode() (map[string]string, error) {
	out := map[string]string{
		mdOrderID:    m.OrderID,
		mdUserID:     m.UserID,
		mdCartID:     m.CartID,
		mdItemsCount: strconv.Itoa(len(m.Items)),
		mdSubtotal:   m.Totals.Subtotal.StringFixed(2),
		mdShipping:   m.Totals.Shipping.StringFixed(2),
		mdTax:        m.Totals.Tax.StringFixed(2),
		mdTotal:      m.Totals.Total.StringFixed(2),
	}

	customer, err := json.Marshal(m.Customer)
	if err != nil {
		return nil, fmt.Errorf("marshal customer info: %w", err)
	}
	putChunked(out, mdCustomer, string(customer))

	items, err := json.Marshal(m.Items)
	if err != nil {
		return nil, fmt.Errorf("marshal items: %w", err)
	}
	putChunked(out, mdItems, string(items))

	if len(out) > maxMetadataKeys {
		return nil, ErrMetadataTooLarge
	}
	return out, nil
}

// DecodeMetadata rebuilds the snapshot written by Encode.
func DecodeMetadata(md map[string]string) (*Metadata, error) {
	m := &Metadata{
		OrderID: md[mdOrderID],
		UserID:  md[mdUserID],
		CartID:  md[mdCartID],
	}
	if m.OrderID == "" {
		return nil, errors.New("metadata: missing order_id")
	}

	if raw := getChunked(md, mdCustomer); raw != "" {
		if err := json.Unmarshal([]byte(raw), &m.Customer); err != nil {
			return nil, fmt.Errorf("metadata: customer info: %w", err)
		}
	}
	if err := json.Unmarshal([]byte(getChunked(md, mdItems)), &m.Items); err != nil {
		return nil, fmt.Errorf("metadata: items: %w", err)
	}
	if n, err := strconv.Atoi(md[mdItemsCount]); err == nil && n != len(m.Items) {
		return nil, fmt.Errorf("metadata: expected %d items, decoded %d", n, len(m.Items))
	}

	var err error
	if m.Totals.Subtotal, err = decimal.NewFromString(md[mdSubtotal]); err != nil {
		return nil, fmt.Errorf("metadata: subtotal: %w", err)
	}
	if m.Totals.Shipping, err = decimal.NewFromString(md[mdShipping]); err != nil {
		return nil, fmt.Errorf("metadata: shipping: %w", err)
	}
	if m.Totals.Tax, err = decimal.NewFromString(md[mdTax]); err != nil {
		return nil, fmt.Errorf("metadata: tax: %w", err)
	}
	if m.Totals.Total, err = decimal.NewFromString(md[mdTotal]); err != nil {
		return nil, fmt.Errorf("metadata: total: %w", err)
	}
	return m, nil
}

func putChunked(md map[string]string, prefix, value string) {
	runes := []rune(value)
	for i := 0; len(runes) > 0; i++ {
		n := min(len(runes), MaxMetadataValue)
		md[prefix+"_"+strconv.Itoa(i)] = string(runes[:n])
		runes = runes[n:]
	}
}

func getChunked(md map[string]string, prefix string) string {
	var b strings.Builder
	for i := 0; ; i++ {
		part, ok := md[prefix+"_"+strconv.Itoa(i)]
		if !ok {
			return b.String()
		}
		b.WriteString(part)
	}
}
