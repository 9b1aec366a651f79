package clientstate

import (
	"sync"
	"time"
)

const wishlistKey = "tradehub.wishlist"

type WishlistItem struct {
	ProductID string    `json:"productId"`
	AddedAt   time.Time `json:"addedAt"`
}

// Wishlist is a set of saved products.
// Its locking follows Cart.
type Wishlist struct {
	writeMu sync.Mutex
	mu      sync.Mutex
	storage Storage
	origin  string
	now     func() time.Time
	items   []WishlistItem
}

func newWishlist(storage Storage, origin string, now func() time.Time) (*Wishlist, error) {
	w := &Wishlist{storage: storage, origin: origin, now: now}
	if err := w.reload(); err != nil {
		return nil, err
	}
	return w, nil
}

// Add toggles productID: it is saved when absent and removed when already present.
// The returned bool reports whether the product is wishlisted afterwards.
func (w *Wishlist) Add(productID string) (bool, error) {
	var saved bool
	err := w.update(func() bool {
		if i := w.indexLocked(productID); i >= 0 {
			w.items = append(w.items[:i], w.items[i+1:]...)
			return true
		}
		w.items = append(w.items, WishlistItem{ProductID: productID, AddedAt: w.now().UTC()})
		saved = true
		return true
	})
	return saved, err
}

func (w *Wishlist) Remove(productID string) error {
	return w.update(func() bool {
		i := w.indexLocked(productID)
		if i < 0 {
			return false
		}
		w.items = append(w.items[:i], w.items[i+1:]...)
		return true
	})
}

func (w *Wishlist) Contains(productID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.indexLocked(productID) >= 0
}

func (w *Wishlist) Items() []WishlistItem {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]WishlistItem, len(w.items))
	copy(out, w.items)
	return out
}

func (w *Wishlist) Clear() error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.mu.Lock()
	w.items = nil
	w.mu.Unlock()
	return w.storage.Remove(w.origin, wishlistKey)
}

func (w *Wishlist) indexLocked(productID string) int {
	for i, it := range w.items {
		if it.ProductID == productID {
			return i
		}
	}
	return -1
}

func (w *Wishlist) update(fn func() bool) error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()

	w.mu.Lock()
	changed := fn()
	snapshot := make([]WishlistItem, len(w.items))
	copy(snapshot, w.items)
	w.mu.Unlock()

	if !changed {
		return nil
	}
	return saveJSON(w.storage, w.origin, wishlistKey, snapshot)
}

func (w *Wishlist) reload() error {
	var items []WishlistItem
	if err := loadJSON(w.storage, wishlistKey, &items); err != nil {
		return err
	}
	w.mu.Lock()
	w.items = items
	w.mu.Unlock()
	return nil
}
