package cart

import (
	"context"
	"fmt"
	"time"
)

// Cart is the shopper's intended purchase. It is owned by a single client and
// is not safe for concurrent use; every mutation persists the full snapshot.
type Cart struct {
	id        string
	items     []LineItem
	open      bool
	persister Persister
	nowFunc   func() time.Time
}

// New returns an empty cart bound to id. A nil persister keeps the cart in memory only.
func New(id string, p Persister) *Cart {
	return &Cart{
		id:        id,
		items:     []LineItem{},
		persister: p,
		nowFunc:   time.Now,
	}
}

// Open loads the cart stored under id. A missing cart yields an empty one.
// reset is true when a stored snapshot had to be discarded; the empty cart
// has already been written back in that case.
func Open(ctx context.Context, p Persister, id string) (c *Cart, reset bool, err error) {
	c = New(id, p)
	data, err := p.Load(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("load cart %s: %w", id, err)
	}
	if data == nil {
		return c, false, nil
	}
	if err := c.Restore(data); err != nil {
		if err == ErrSnapshotReset {
			return c, true, c.save(ctx)
		}
		return nil, false, err
	}
	return c, false, nil
}

func (c *Cart) ID() string { return c.id }

func (c *Cart) IsOpen() bool { return c.open }

// Items returns a copy of the line items in insertion order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// AddItem merges into the line matching (product, size, color) or appends a
// new line. Quantities are clamped to MaxQuantity on both paths.
func (c *Cart) AddItem(ctx context.Context, in AddInput) error {
	qty := in.Quantity
	if qty <= 0 {
		qty = 1
	}
	if in.MaxQuantity <= 0 {
		return nil
	}

	for i := range c.items {
		if in.matches(c.items[i]) {
			c.items[i].Quantity = min(c.items[i].Quantity+qty, c.items[i].MaxQuantity)
			return c.save(ctx)
		}
	}

	c.items = append(c.items, LineItem{
		ID:          c.lineID(in),
		ProductID:   in.ProductID,
		Name:        in.Name,
		Price:       in.Price,
		Image:       in.Image,
		Size:        in.Size,
		Color:       in.Color,
		Quantity:    min(qty, in.MaxQuantity),
		MaxQuantity: in.MaxQuantity,
	})
	return c.save(ctx)
}

// UpdateQuantity sets a line's quantity; q <= 0 removes the line.
func (c *Cart) UpdateQuantity(ctx context.Context, lineID string, q int) error {
	if q <= 0 {
		return c.RemoveItem(ctx, lineID)
	}
	for i := range c.items {
		if c.items[i].ID == lineID {
			c.items[i].Quantity = min(q, c.items[i].MaxQuantity)
			return c.save(ctx)
		}
	}
	return nil
}

// RemoveItem deletes a line. Unknown ids are ignored.
func (c *Cart) RemoveItem(ctx context.Context, lineID string) error {
	kept := c.items[:0]
	removed := false
	for _, li := range c.items {
		if li.ID == lineID {
			removed = true
			continue
		}
		kept = append(kept, li)
	}
	c.items = kept
	if !removed {
		return nil
	}
	return c.save(ctx)
}

func (c *Cart) Clear(ctx context.Context) error {
	c.items = []LineItem{}
	return c.save(ctx)
}

// Toggle flips the cart drawer visibility flag.
func (c *Cart) Toggle(ctx context.Context) error {
	c.open = !c.open
	return c.save(ctx)
}

func (c *Cart) TotalItems() int {
	total := 0
	for _, li := range c.items {
		total += li.Quantity
	}
	return total
}

func (c *Cart) TotalPrice() float64 {
	var total float64
	for _, li := range c.items {
		total += li.Price * float64(li.Quantity)
	}
	return total
}

func (c *Cart) lineID(in AddInput) string {
	size, color := in.Size, in.Color
	if size == "" {
		size = "default"
	}
	if color == "" {
		color = "default"
	}
	return fmt.Sprintf("%s-%s-%s-%d", in.ProductID, size, color, c.nowFunc().UnixMilli())
}

func (c *Cart) save(ctx context.Context) error {
	if c.persister == nil {
		return nil
	}
	data, err := c.Snapshot()
	if err != nil {
		return err
	}
	if err := c.persister.Save(ctx, c.id, data); err != nil {
		return fmt.Errorf("save cart %s: %w", c.id, err)
	}
	return nil
}
