package cart

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/angelmondragon/salessavvy-storefront/internal/backend"
	"github.com/angelmondragon/salessavvy-storefront/internal/session"
	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
	"github.com/angelmondragon/salessavvy-storefront/pkg/observe"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeSession struct {
	authed atomic.Bool
	hub    observe.Hub[session.Snapshot]
}

func (f *fakeSession) IsAuthenticated() bool { return f.authed.Load() }

func (f *fakeSession) Subscribe(fn func(session.Snapshot)) func() { return f.hub.Subscribe(fn) }

func (f *fakeSession) emit(ev session.Event) {
	f.hub.Publish(session.Snapshot{Event: ev, Authenticated: f.authed.Load()})
}

// fakeRemote is an in-memory cart server keyed by line item id.
type fakeRemote struct {
	mu       sync.Mutex
	prices   map[int64]decimal.Decimal
	lines    map[int64]*backend.LineItem
	nextID   int64
	calls    int32
	failNext error
	onAdd    func()
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		prices: map[int64]decimal.Decimal{42: decimal.RequireFromString("9.99"), 7: decimal.NewFromInt(3)},
		lines:  map[int64]*backend.LineItem{},
		nextID: 100,
	}
}

func (f *fakeRemote) takeFailure() error {
	atomic.AddInt32(&f.calls, 1)
	err := f.failNext
	f.failNext = nil
	return err
}

func (f *fakeRemote) CartSummary(context.Context) (*backend.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return nil, err
	}
	cart := &backend.Cart{TotalValue: decimal.Zero}
	ids := make([]int64, 0, len(f.lines))
	for id := range f.lines {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		line := *f.lines[id]
		cart.Items = append(cart.Items, line)
		cart.TotalValue = cart.TotalValue.Add(line.Subtotal)
	}
	cart.TotalItems = len(cart.Items)
	return cart, nil
}

func (f *fakeRemote) AddToCart(_ context.Context, productID int64, quantity int) (string, error) {
	if f.onAdd != nil {
		f.onAdd()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return "", err
	}
	price, ok := f.prices[productID]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "Product not found")
	}
	for _, line := range f.lines {
		if line.Product.ID == productID {
			line.Quantity += quantity
			line.Subtotal = price.Mul(decimal.NewFromInt(int64(line.Quantity)))
			return "", nil
		}
	}
	f.nextID++
	f.lines[f.nextID] = &backend.LineItem{
		ID:       f.nextID,
		Product:  backend.Product{ID: productID, Name: "product", Price: price},
		Quantity: quantity,
		Subtotal: price.Mul(decimal.NewFromInt(int64(quantity))),
	}
	return "", nil
}

func (f *fakeRemote) UpdateCartItem(_ context.Context, id int64, quantity int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return "", err
	}
	line, ok := f.lines[id]
	if !ok {
		return "", pkgerrors.New(pkgerrors.CodeNotFound, "Cart item not found")
	}
	line.Quantity = quantity
	line.Subtotal = line.Product.Price.Mul(decimal.NewFromInt(int64(quantity)))
	return "", nil
}

func (f *fakeRemote) RemoveCartItem(_ context.Context, id int64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return "", err
	}
	delete(f.lines, id)
	return "", nil
}

func (f *fakeRemote) ClearCart(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.takeFailure(); err != nil {
		return "", err
	}
	f.lines = map[int64]*backend.LineItem{}
	return "Cart cleared", nil
}

func newSignedIn(t *testing.T) (*Store, *fakeSession, *fakeRemote) {
	t.Helper()
	sess := &fakeSession{}
	sess.authed.Store(true)
	remote := newFakeRemote()
	s := New(sess, remote)
	t.Cleanup(s.Close)
	return s, sess, remote
}

func TestCartScenario(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newSignedIn(t)

	require.True(t, s.AddToCart(ctx, 42, 2))
	require.True(t, s.FetchCartData(ctx))
	items := s.Items()
	require.Len(t, items, 1)
	require.Equal(t, 2, items[0].Quantity)
	require.True(t, items[0].Subtotal.Equal(decimal.RequireFromString("19.98")))
	require.Equal(t, msgAdded, s.Success())

	lineID := items[0].ID
	require.True(t, s.UpdateCartItem(ctx, lineID, 5))
	require.Equal(t, 5, s.Items()[0].Quantity)
	require.True(t, s.CartTotal().Equal(decimal.RequireFromString("49.95")))

	require.True(t, s.RemoveFromCart(ctx, lineID))
	require.Empty(t, s.Items())
	require.Zero(t, s.CartCount())
	require.Equal(t, enums.CartStateReady, s.State())
}

func TestCountAndTotalMirrorLastFetch(t *testing.T) {
	ctx := context.Background()
	s, _, remote := newSignedIn(t)

	require.True(t, s.AddToCart(ctx, 42, 1))
	require.True(t, s.AddToCart(ctx, 7, 3))
	require.True(t, s.AddToCart(ctx, 42, 1))

	summary, err := remote.CartSummary(ctx)
	require.NoError(t, err)
	require.Equal(t, len(summary.Items), s.CartCount())
	require.True(t, summary.TotalValue.Equal(s.CartTotal()))
}

func TestUpdateRejectsNonPositiveQuantityWithoutNetwork(t *testing.T) {
	ctx := context.Background()
	s, _, remote := newSignedIn(t)

	for _, qty := range []int{0, -1} {
		require.False(t, s.UpdateCartItem(ctx, 101, qty))
		require.Equal(t, msgInvalidQuantity, s.Error())
	}
	require.Zero(t, atomic.LoadInt32(&remote.calls))
}

func TestAddWhileSignedOutMakesNoRequest(t *testing.T) {
	sess := &fakeSession{}
	remote := newFakeRemote()
	s := New(sess, remote)

	require.False(t, s.AddToCart(context.Background(), 42, 2))
	require.Zero(t, atomic.LoadInt32(&remote.calls))
	require.Equal(t, enums.CartStateEmpty, s.State())
	require.Empty(t, s.Items())
}

func TestFetchWhileSignedOutResets(t *testing.T) {
	sess := &fakeSession{}
	remote := newFakeRemote()
	s := New(sess, remote)

	require.False(t, s.FetchCartData(context.Background()))
	require.Equal(t, enums.CartStateEmpty, s.State())
	require.Zero(t, atomic.LoadInt32(&remote.calls))
}

func TestLogoutEmptiesCart(t *testing.T) {
	ctx := context.Background()
	s, sess, _ := newSignedIn(t)
	require.True(t, s.AddToCart(ctx, 42, 2))
	require.NotZero(t, s.CartCount())

	sess.authed.Store(false)
	sess.emit(session.EventLogout)

	require.Empty(t, s.Items())
	require.Zero(t, s.CartCount())
	require.True(t, s.CartTotal().IsZero())
	require.Equal(t, enums.CartStateEmpty, s.State())
}

func TestUnauthorizedFetchResetsCart(t *testing.T) {
	ctx := context.Background()
	s, _, remote := newSignedIn(t)
	require.True(t, s.AddToCart(ctx, 42, 1))

	remote.failNext = pkgerrors.New(pkgerrors.CodeUnauthorized, "expired")
	require.False(t, s.FetchCartData(ctx))
	require.Equal(t, enums.CartStateEmpty, s.State())
	require.Zero(t, s.CartCount())
}

func TestFetchFailureSetsErrorState(t *testing.T) {
	ctx := context.Background()
	s, _, remote := newSignedIn(t)

	remote.failNext = pkgerrors.New(pkgerrors.CodeUnreachable, "down")
	require.False(t, s.FetchCartData(ctx))
	require.Equal(t, enums.CartStateError, s.State())
	require.Contains(t, s.Error(), "Cannot connect to server")

	s.ClearError()
	require.Empty(t, s.Error())
	require.True(t, s.FetchCartData(ctx))
	require.Equal(t, enums.CartStateReady, s.State())
}

func TestBusinessFailureIsSwallowed(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newSignedIn(t)

	require.False(t, s.AddToCart(ctx, 999, 1))
	require.Equal(t, "Product not found", s.Error())
	require.False(t, s.IsAdding(999))
}

func TestAddTracksInFlightProduct(t *testing.T) {
	ctx := context.Background()
	s, _, remote := newSignedIn(t)

	var seen bool
	remote.onAdd = func() { seen = s.IsAdding(42) && !s.IsAdding(7) }
	require.True(t, s.AddToCart(ctx, 42, 1))
	require.True(t, seen, "product should be marked in flight during the request")
	require.False(t, s.IsAdding(42))
	require.Empty(t, s.Snapshot().Adding)
}

func TestConcurrentMutationsConvergeOnServerState(t *testing.T) {
	ctx := context.Background()
	s, _, remote := newSignedIn(t)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddToCart(ctx, 42, 1)
		}()
	}
	wg.Wait()

	summary, err := remote.CartSummary(ctx)
	require.NoError(t, err)
	require.Equal(t, 10, s.Items()[0].Quantity)
	require.True(t, summary.TotalValue.Equal(s.CartTotal()))
}

func TestClearCartRefetches(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newSignedIn(t)
	require.True(t, s.AddToCart(ctx, 42, 1))

	require.True(t, s.ClearCart(ctx))
	require.Empty(t, s.Items())
	require.Equal(t, "Cart cleared", s.Success())
	s.ClearSuccess()
	require.Empty(t, s.Success())
}

func TestSubscribersSeeLoadingThenReady(t *testing.T) {
	ctx := context.Background()
	s, _, _ := newSignedIn(t)

	var states []enums.CartState
	s.Subscribe(func(snap Snapshot) { states = append(states, snap.State) })
	require.True(t, s.FetchCartData(ctx))

	require.Equal(t, []enums.CartState{enums.CartStateLoading, enums.CartStateReady}, states)
}
