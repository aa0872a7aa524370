package cart

import (
	"context"
	"sort"
	"sync"

	"github.com/angelmondragon/salessavvy-storefront/internal/backend"
	"github.com/angelmondragon/salessavvy-storefront/internal/session"
	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
	"github.com/angelmondragon/salessavvy-storefront/pkg/observe"
	"github.com/shopspring/decimal"
)

const (
	msgAdded           = "Product added to cart successfully!"
	msgUpdated         = "Cart updated successfully!"
	msgRemoved         = "Item removed from cart!"
	msgCleared         = "Cart cleared successfully!"
	msgLoginRequired   = "Please login to manage your cart"
	msgInvalidQuantity = "Quantity must be at least 1"
)

// Session is what the cart needs from the session store.
type Session interface {
	IsAuthenticated() bool
	Subscribe(fn func(session.Snapshot)) func()
}

// Backend is the slice of the REST boundary the cart calls.
type Backend interface {
	CartSummary(ctx context.Context) (*backend.Cart, error)
	AddToCart(ctx context.Context, productID int64, quantity int) (string, error)
	UpdateCartItem(ctx context.Context, cartItemID int64, quantity int) (string, error)
	RemoveCartItem(ctx context.Context, cartItemID int64) (string, error)
	ClearCart(ctx context.Context) (string, error)
}

// Snapshot is a consistent read of cart state. Count and Total are stale
// while State is loading.
type Snapshot struct {
	State   enums.CartState
	Items   []backend.LineItem
	Count   int
	Total   decimal.Decimal
	Adding  []int64
	Error   string
	Success string
}

// Store mirrors the signed-in user's server-side cart. Every mutation is
// followed by a full summary fetch; local state is never patched from a
// mutation response.
//
// Mutate+refetch pairs are serialized per store, so the displayed cart is
// always the answer to the most recently issued fetch.
type Store struct {
	session Session
	remote  Backend
	logger  *logger.Logger

	ops sync.Mutex

	mu      sync.RWMutex
	state   enums.CartState
	cart    backend.Cart
	adding  map[int64]int
	epoch   uint64
	errMsg  string
	success string

	subs        observe.Hub[Snapshot]
	unsubscribe func()
}

// Option configures optional store behavior.
type Option func(*Store)

func WithLogger(logg *logger.Logger) Option {
	return func(s *Store) {
		if logg != nil {
			s.logger = logg
		}
	}
}

// New builds the cart store. It resets itself whenever the session signs
// in, signs out or is forced out.
func New(sess Session, remote Backend, opts ...Option) *Store {
	s := &Store{
		session: sess,
		remote:  remote,
		logger:  logger.Nop(),
		state:   enums.CartStateEmpty,
		adding:  map[int64]int{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	s.unsubscribe = sess.Subscribe(func(snap session.Snapshot) {
		if snap.Event.ResetsIdentity() {
			s.reset()
		}
	})
	return s
}

// Close detaches the store from the session.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// Subscribe registers fn for every state change.
func (s *Store) Subscribe(fn func(Snapshot)) func() {
	return s.subs.Subscribe(fn)
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) snapshotLocked() Snapshot {
	items := make([]backend.LineItem, len(s.cart.Items))
	copy(items, s.cart.Items)
	adding := make([]int64, 0, len(s.adding))
	for id := range s.adding {
		adding = append(adding, id)
	}
	sort.Slice(adding, func(i, j int) bool { return adding[i] < adding[j] })
	return Snapshot{
		State:   s.state,
		Items:   items,
		Count:   s.cart.TotalItems,
		Total:   s.cart.TotalValue,
		Adding:  adding,
		Error:   s.errMsg,
		Success: s.success,
	}
}

func (s *Store) update(fn func()) {
	s.mu.Lock()
	fn()
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.subs.Publish(snap)
}

func (s *Store) State() enums.CartState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Store) Items() []backend.LineItem {
	return s.Snapshot().Items
}

// CartCount is the item count reported by the last successful fetch.
func (s *Store) CartCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.TotalItems
}

// CartTotal is the total reported by the last successful fetch.
func (s *Store) CartTotal() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.TotalValue
}

// IsAdding reports whether an add for productID is in flight.
func (s *Store) IsAdding(productID int64) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adding[productID] > 0
}

func (s *Store) Error() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.errMsg
}

func (s *Store) Success() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.success
}

func (s *Store) ClearError() {
	s.update(func() { s.errMsg = "" })
}

func (s *Store) ClearSuccess() {
	s.update(func() { s.success = "" })
}

// reset empties the cart and invalidates any fetch still in flight.
func (s *Store) reset() {
	s.update(func() {
		s.epoch++
		s.state = enums.CartStateEmpty
		s.cart = backend.Cart{}
		s.errMsg = ""
		s.success = ""
	})
}

// FetchCartData loads the summary. Signed-out callers get an empty cart.
func (s *Store) FetchCartData(ctx context.Context) bool {
	s.ops.Lock()
	defer s.ops.Unlock()
	return s.fetch(s.logger.WithOperation(ctx, "cart.fetch"))
}

// fetch must be called with ops held.
func (s *Store) fetch(ctx context.Context) bool {
	if !s.session.IsAuthenticated() {
		s.reset()
		return false
	}

	var epoch uint64
	s.update(func() {
		s.state = enums.CartStateLoading
		epoch = s.epoch
	})

	summary, err := s.remote.CartSummary(ctx)
	if err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "cart fetch failed")
		if pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
			s.reset()
			return false
		}
		s.update(func() {
			if s.epoch != epoch {
				return
			}
			s.state = enums.CartStateError
			s.errMsg = pkgerrors.UserMessage(err)
		})
		return false
	}

	applied := false
	s.update(func() {
		if s.epoch != epoch {
			return
		}
		s.state = enums.CartStateReady
		s.cart = *summary
		s.errMsg = ""
		applied = true
	})
	return applied
}

// AddToCart adds quantity units of productID. Signed-out callers get false
// without a request; the caller is expected to send the user to login.
func (s *Store) AddToCart(ctx context.Context, productID int64, quantity int) bool {
	ctx = s.logger.WithFields(ctx, map[string]any{"operation": "cart.add", "product_id": productID})
	if !s.session.IsAuthenticated() {
		s.update(func() { s.errMsg = msgLoginRequired })
		return false
	}
	if quantity < 1 {
		s.update(func() { s.errMsg = msgInvalidQuantity })
		return false
	}

	s.update(func() { s.adding[productID]++ })
	defer s.update(func() {
		if s.adding[productID]--; s.adding[productID] <= 0 {
			delete(s.adding, productID)
		}
	})

	return s.mutate(ctx, msgAdded, func() (string, error) {
		return s.remote.AddToCart(ctx, productID, quantity)
	})
}

// UpdateCartItem sets a line's quantity. Quantities below 1 are rejected
// before any request so the caller can decide to remove instead.
func (s *Store) UpdateCartItem(ctx context.Context, cartItemID int64, quantity int) bool {
	ctx = s.logger.WithFields(ctx, map[string]any{"operation": "cart.update", "cart_item_id": cartItemID})
	if quantity < 1 {
		s.update(func() { s.errMsg = msgInvalidQuantity })
		return false
	}
	if !s.session.IsAuthenticated() {
		s.update(func() { s.errMsg = msgLoginRequired })
		return false
	}
	return s.mutate(ctx, msgUpdated, func() (string, error) {
		return s.remote.UpdateCartItem(ctx, cartItemID, quantity)
	})
}

// RemoveFromCart deletes one line.
func (s *Store) RemoveFromCart(ctx context.Context, cartItemID int64) bool {
	ctx = s.logger.WithFields(ctx, map[string]any{"operation": "cart.remove", "cart_item_id": cartItemID})
	if !s.session.IsAuthenticated() {
		s.update(func() { s.errMsg = msgLoginRequired })
		return false
	}
	return s.mutate(ctx, msgRemoved, func() (string, error) {
		return s.remote.RemoveCartItem(ctx, cartItemID)
	})
}

// ClearCart empties the cart server-side.
func (s *Store) ClearCart(ctx context.Context) bool {
	ctx = s.logger.WithOperation(ctx, "cart.clear")
	if !s.session.IsAuthenticated() {
		s.reset()
		return false
	}
	return s.mutate(ctx, msgCleared, func() (string, error) {
		return s.remote.ClearCart(ctx)
	})
}

// mutate runs one mutation and its refetch under ops. Backend failures
// become the error field; a 401 additionally empties the cart.
func (s *Store) mutate(ctx context.Context, successMsg string, op func() (string, error)) bool {
	s.ops.Lock()
	defer s.ops.Unlock()

	s.update(func() {
		s.errMsg = ""
		s.success = ""
	})

	msg, err := op()
	if err != nil {
		s.logger.Warn(s.logger.WithField(ctx, "error", err.Error()), "cart mutation failed")
		text := pkgerrors.UserMessage(err)
		if pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
			s.reset()
		}
		s.update(func() { s.errMsg = text })
		return false
	}

	s.fetch(ctx)
	if msg == "" {
		msg = successMsg
	}
	s.update(func() { s.success = msg })
	return true
}
