package cart

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"polycycle/internal/catalog"
)

var ErrInvalidQuantity = errors.New("quantity must be a positive integer")

// ProductSnapshot is the frozen product state a cart item carries. Later
// catalog edits never reach items already in a cart.
type ProductSnapshot struct {
	ProductID uuid.UUID       `json:"product_id"`
	Name      string          `json:"name"`
	SKU       string          `json:"sku"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Category  string          `json:"category"`
}

// SnapshotOf freezes the fields a cart needs from a live product.
func SnapshotOf(p *catalog.Product) ProductSnapshot {
	return ProductSnapshot{
		ProductID: p.ID,
		Name:      p.Name,
		SKU:       p.SKU,
		Price:     p.Price,
		Image:     p.Image,
		Category:  p.Category,
	}
}

// Item is one cart line. Uniqueness key is (ProductID, SelectedColor).
type Item struct {
	ProductSnapshot
	SelectedColor string `json:"selected_color"`
	Quantity      int    `json:"quantity"`
}

// Cart is the in-memory cart for one browser session. Count and Total are
// computed from the item list on read; there are no stored derived fields to
// forget to recompute.
type Cart struct {
	mu    sync.Mutex
	items []Item
}

// Add appends a new item or, when the (product, color) key already exists,
// increments its quantity.
func (c *Cart) Add(snap ProductSnapshot, selectedColor string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductID == snap.ProductID && c.items[i].SelectedColor == selectedColor {
			c.items[i].Quantity += quantity
			return nil
		}
	}
	c.items = append(c.items, Item{
		ProductSnapshot: snap,
		SelectedColor:   selectedColor,
		Quantity:        quantity,
	})
	return nil
}

// Remove deletes the entry with the given key. Removing a missing key is a
// no-op.
func (c *Cart) Remove(productID uuid.UUID, selectedColor string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.items[:0]
	for _, it := range c.items {
		if it.ProductID == productID && it.SelectedColor == selectedColor {
			continue
		}
		kept = append(kept, it)
	}
	c.items = kept
}

// UpdateQuantity replaces the quantity for the matching entry. A quantity
// below one is rejected. Updating a missing key is a no-op.
func (c *Cart) UpdateQuantity(productID uuid.UUID, selectedColor string, quantity int) error {
	if quantity < 1 {
		return ErrInvalidQuantity
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.items {
		if c.items[i].ProductID == productID && c.items[i].SelectedColor == selectedColor {
			c.items[i].Quantity = quantity
			return nil
		}
	}
	return nil
}

// Quantity returns the current quantity for the given key, zero when the key
// is not in the cart.
func (c *Cart) Quantity(productID uuid.UUID, selectedColor string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.items {
		if it.ProductID == productID && it.SelectedColor == selectedColor {
			return it.Quantity
		}
	}
	return 0
}

// Clear empties the cart; called after a successful order placement.
func (c *Cart) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = nil
}

// Items returns a copy of the current lines.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// Count is the sum of all line quantities.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// Total is the exact sum of price times quantity over all lines.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, it := range c.items {
		total = total.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

// Store hands out carts keyed by session ID. Constructed once in main and
// injected; carts live for the life of the process.
type Store struct {
	mu    sync.Mutex
	carts map[string]*Cart
}

func NewStore() *Store {
	return &Store{carts: make(map[string]*Cart)}
}

// Get returns the session's cart, creating it on first use.
func (s *Store) Get(sessionID string) *Cart {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[sessionID]
	if !ok {
		c = &Cart{}
		s.carts[sessionID] = c
	}
	return c
}

// Drop discards a session's cart.
func (s *Store) Drop(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.carts, sessionID)
}
