package cart

import "errors"

const (
	// StorageName tags every persisted cart snapshot.
	StorageName = "adyx-cart"
	// CurrentVersion is the snapshot schema version written by this build.
	CurrentVersion = 1
)

// ErrSnapshotReset reports that a stored snapshot could not be restored and
// the cart was reset to empty.
var ErrSnapshotReset = errors.New("stored cart discarded")

// LineItem is one distinct (product, size, color) entry in the cart.
type LineItem struct {
	ID          string  `json:"id"`
	ProductID   string  `json:"productId"`
	Name        string  `json:"name"`
	Price       float64 `json:"price"`
	Image       string  `json:"image"`
	Size        string  `json:"size,omitempty"`
	Color       string  `json:"color,omitempty"`
	Quantity    int     `json:"quantity"`
	MaxQuantity int     `json:"maxQuantity"`
}

// AddInput describes an item to add. A zero Quantity means one.
type AddInput struct {
	ProductID   string
	Name        string
	Price       float64
	Image       string
	Size        string
	Color       string
	MaxQuantity int
	Quantity    int
}

func (in AddInput) matches(li LineItem) bool {
	return li.ProductID == in.ProductID && li.Size == in.Size && li.Color == in.Color
}

func (li LineItem) sameVariant(o LineItem) bool {
	return li.ProductID == o.ProductID && li.Size == o.Size && li.Color == o.Color
}
