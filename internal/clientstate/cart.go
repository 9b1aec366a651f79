package clientstate

import (
	"fmt"
	"math"
	"sync"
	"time"
)

const cartKey = "tradehub.cart"

type CartItem struct {
	ProductID string    `json:"productId"`
	Quantity  int       `json:"quantity"`
	UnitPrice float64   `json:"unitPrice"`
	AddedAt   time.Time `json:"addedAt"`
}

// Cart is keyed by product. Adding a product that is already in the cart
// replaces its quantity and unit price instead of adding to them.
//
// mu guards items and is never held across a storage call, since storage
// notifies other tabs synchronously. writeMu keeps this tab's saves in order.
type Cart struct {
	writeMu sync.Mutex
	mu      sync.Mutex
	storage Storage
	origin  string
	now     func() time.Time
	items   []CartItem
}

func newCart(storage Storage, origin string, now func() time.Time) (*Cart, error) {
	c := &Cart{storage: storage, origin: origin, now: now}
	if err := c.reload(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Cart) Add(productID string, quantity int, unitPrice float64) error {
	if productID == "" {
		return fmt.Errorf("product id is required")
	}
	if quantity <= 0 {
		return fmt.Errorf("quantity must be positive, got %d", quantity)
	}

	return c.update(func() bool {
		if i := c.indexLocked(productID); i >= 0 {
			c.items[i].Quantity = quantity
			c.items[i].UnitPrice = unitPrice
		} else {
			c.items = append(c.items, CartItem{
				ProductID: productID,
				Quantity:  quantity,
				UnitPrice: unitPrice,
				AddedAt:   c.now().UTC(),
			})
		}
		return true
	})
}

// UpdateQuantity sets the quantity of a product already in the cart. Zero or less removes it.
func (c *Cart) UpdateQuantity(productID string, quantity int) error {
	return c.update(func() bool {
		i := c.indexLocked(productID)
		if i < 0 {
			return false
		}
		if quantity <= 0 {
			c.items = append(c.items[:i], c.items[i+1:]...)
		} else {
			c.items[i].Quantity = quantity
		}
		return true
	})
}

func (c *Cart) Remove(productID string) error {
	return c.update(func() bool {
		i := c.indexLocked(productID)
		if i < 0 {
			return false
		}
		c.items = append(c.items[:i], c.items[i+1:]...)
		return true
	})
}

func (c *Cart) Clear() error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()
	return c.storage.Remove(c.origin, cartKey)
}

// Items returns the cart lines in the order they were first added.
func (c *Cart) Items() []CartItem {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CartItem, len(c.items))
	copy(out, c.items)
	return out
}

// Total is the sum of quantity times unit price, rounded to cents.
func (c *Cart) Total() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	var total float64
	for _, it := range c.items {
		total += float64(it.Quantity) * it.UnitPrice
	}
	return math.Round(total*100) / 100
}

// Count is the number of units across all lines.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

func (c *Cart) indexLocked(productID string) int {
	for i, it := range c.items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

// update applies fn under mu and saves a snapshot of the result once mu is released.
// fn reports whether it changed anything.
func (c *Cart) update(fn func() bool) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.mu.Lock()
	changed := fn()
	snapshot := make([]CartItem, len(c.items))
	copy(snapshot, c.items)
	c.mu.Unlock()

	if !changed {
		return nil
	}
	return saveJSON(c.storage, c.origin, cartKey, snapshot)
}

func (c *Cart) reload() error {
	var items []CartItem
	if err := loadJSON(c.storage, cartKey, &items); err != nil {
		return err
	}
	c.mu.Lock()
	c.items = items
	c.mu.Unlock()
	return nil
}
