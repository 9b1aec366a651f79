package clientstate

import (
	"time"

	"go.uber.org/zap"
)

// Store bundles the session, cart and wishlist of one tab. Build one per tab
// and hand it to whatever renders that tab.
type Store struct {
	TabID    string
	Session  *Session
	Cart     *Cart
	Wishlist *Wishlist

	cancel func()
}

// NewStore loads the tab's state from storage and keeps it in sync with writes
// made by other tabs. Close stops the synchronisation.
func NewStore(storage Storage, tabID string) (*Store, error) {
	return newStore(storage, tabID, time.Now)
}

func newStore(storage Storage, tabID string, now func() time.Time) (*Store, error) {
	session, err := newSession(storage, tabID)
	if err != nil {
		return nil, err
	}
	cart, err := newCart(storage, tabID, now)
	if err != nil {
		return nil, err
	}
	wishlist, err := newWishlist(storage, tabID, now)
	if err != nil {
		return nil, err
	}

	s := &Store{TabID: tabID, Session: session, Cart: cart, Wishlist: wishlist}
	s.cancel = storage.Subscribe(s.onChange)
	return s, nil
}

func (s *Store) Close() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *Store) onChange(c Change) {
	if c.Origin == s.TabID {
		return
	}

	var err error
	switch c.Key {
	case sessionKey:
		if err = s.Session.reload(); err == nil {
			s.Session.synced()
		}
	case cartKey:
		err = s.Cart.reload()
	case wishlistKey:
		err = s.Wishlist.reload()
	default:
		return
	}
	if err != nil {
		zap.L().Warn("failed to resync client state", zap.String("tab", s.TabID), zap.String("key", c.Key), zap.Error(err))
	}
}
