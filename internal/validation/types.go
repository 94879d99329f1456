package validation

// CheckoutItem is one cart line submitted at checkout.
type CheckoutItem struct {
	ProductID string  `json:"productId" validate:"required"`
	Name      string  `json:"name" validate:"required,max=200"`
	Price     float64 `json:"price" validate:"gte=0"`             // unit price in major units
	Quantity  int     `json:"quantity" validate:"required,min=1"` // must be >= 1
	Image     string  `json:"image,omitempty"`
	Size      string  `json:"size,omitempty" validate:"max=20"`
	Color     string  `json:"color,omitempty" validate:"max=40"`
}

// CustomerInfo is the shipping contact entered before payment.
type CustomerInfo struct {
	FirstName string `json:"firstName" validate:"required,max=100"`
	LastName  string `json:"lastName" validate:"required,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone,omitempty" validate:"max=30"`
	Address   string `json:"address" validate:"required,max=200"`
	City      string `json:"city" validate:"required,max=100"`
	State     string `json:"state,omitempty" validate:"max=100"`
	ZipCode   string `json:"zipCode" validate:"required,max=20"`
	Country   string `json:"country,omitempty" validate:"omitempty,len=2"`
}

// CheckoutRequest is the payload for POST /checkout. An empty item list is
// accepted here and rejected by the checkout service with its own error.
type CheckoutRequest struct {
	Items        []CheckoutItem `json:"items" validate:"dive"`
	CustomerInfo CustomerInfo   `json:"customerInfo"`
	UserID       string         `json:"userId,omitempty" validate:"max=128"`
	CartID       string         `json:"cartId,omitempty" validate:"max=128"`
}

// AddCartItemRequest is the payload for POST /cart/items. Name, price and the
// stock ceiling come from the catalog, never from the client.
type AddCartItemRequest struct {
	ProductID string `json:"productId" validate:"required"`
	Size      string `json:"size,omitempty" validate:"max=20"`
	Color     string `json:"color,omitempty" validate:"max=40"`
	Quantity  int    `json:"quantity,omitempty" validate:"gte=0,lte=999"` // 0 means 1
}

// UpdateQuantityRequest is the payload for PATCH /cart/items/:line_id.
// Zero or negative quantities remove the line.
type UpdateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}
