package orders

import "time"

// Order statuses
const (
	StatusPending   = "PENDING"
	StatusConfirmed = "CONFIRMED"
	StatusExpired   = "EXPIRED"
	StatusAbandoned = "ABANDONED"
	StatusDeclined  = "DECLINED"
)

// Order table GSIs. HistoryIndex is sparse: only confirmed orders placed by a
// signed-in shopper carry history_user_id.
const (
	HistoryIndex = "history_user_id-created_at-index"
	StatusIndex  = "status-created_at-index"
)

// Order represents the item stored in the Orders DynamoDB table.
type Order struct {
	OrderID         string          `dynamodbav:"order_id"`   // PK
	SessionID       string          `dynamodbav:"session_id"` // provider checkout session
	UserID          string          `dynamodbav:"user_id,omitempty"`
	HistoryUserID   string          `dynamodbav:"history_user_id,omitempty"` // set on confirm
	CartID          string          `dynamodbav:"cart_id,omitempty"`
	Email           string          `dynamodbav:"email,omitempty"`
	Status          string          `dynamodbav:"status"` // PENDING | CONFIRMED | EXPIRED | ABANDONED | DECLINED
	Subtotal        float64         `dynamodbav:"subtotal"`
	Shipping        float64         `dynamodbav:"shipping"`
	Tax             float64         `dynamodbav:"tax"`
	Total           float64         `dynamodbav:"total"`
	ShippingAddress ShippingAddress `dynamodbav:"shipping_address"`
	Items           []OrderItem     `dynamodbav:"items"`
	CreatedAt       time.Time       `dynamodbav:"created_at"`
	UpdatedAt       time.Time       `dynamodbav:"updated_at"`
	ConfirmedAt     *time.Time      `dynamodbav:"confirmed_at,omitempty"`
	ExpiresAt       time.Time       `dynamodbav:"expires_at"` // provider session expiry, not a table TTL
}

// OrderItem freezes a cart line at purchase time.
type OrderItem struct {
	ProductID string  `dynamodbav:"product_id"`
	Name      string  `dynamodbav:"name"`
	Price     float64 `dynamodbav:"price"`
	Quantity  int     `dynamodbav:"quantity"`
	Image     string  `dynamodbav:"image,omitempty"`
	Size      string  `dynamodbav:"size,omitempty"`
	Color     string  `dynamodbav:"color,omitempty"`
}

// ShippingAddress is the delivery contact captured at checkout.
type ShippingAddress struct {
	FirstName string `dynamodbav:"first_name" json:"firstName"`
	LastName  string `dynamodbav:"last_name" json:"lastName"`
	Email     string `dynamodbav:"email" json:"email"`
	Phone     string `dynamodbav:"phone,omitempty" json:"phone,omitempty"`
	Address   string `dynamodbav:"address" json:"address"`
	City      string `dynamodbav:"city" json:"city"`
	State     string `dynamodbav:"state,omitempty" json:"state,omitempty"`
	ZipCode   string `dynamodbav:"zip_code" json:"zipCode"`
	Country   string `dynamodbav:"country,omitempty" json:"country,omitempty"`
}

// IsTerminal reports whether the order has left the checkout flow.
func (o *Order) IsTerminal() bool {
	return o.Status != StatusPending
}
