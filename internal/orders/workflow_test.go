package orders

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/angelmondragon/salessavvy-storefront/internal/backend"
	"github.com/angelmondragon/salessavvy-storefront/internal/checkout"
	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
)

type fakeSession struct {
	authed bool
	admin  bool
}

func (f fakeSession) IsAuthenticated() bool { return f.authed }
func (f fakeSession) IsAdmin() bool         { return f.authed && f.admin }

type fakeCart struct {
	cleared int32
}

func (f *fakeCart) ClearCart(context.Context) bool {
	atomic.AddInt32(&f.cleared, 1)
	return true
}

type fakeRemote struct {
	calls       int32
	checkoutErr error
	listErr     error
	list        []backend.Order
	getErr      error
	lastRequest backend.CheckoutRequest
	bareAck     bool

	// entered and release, when set, hold Checkout open until released.
	entered chan struct{}
	release chan struct{}
}

func (f *fakeRemote) Checkout(_ context.Context, req backend.CheckoutRequest) (*backend.Order, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.entered != nil {
		f.entered <- struct{}{}
		<-f.release
	}
	f.lastRequest = req
	if f.checkoutErr != nil {
		return nil, f.checkoutErr
	}
	return &backend.Order{
		ID:            "ord-1",
		Items:         []backend.OrderItem{{ProductID: 42, Quantity: 2}},
		PaymentMethod: req.PaymentMethod,
		Status:        enums.OrderStatusPending,
	}, nil
}

func (f *fakeRemote) ListOrders(context.Context) ([]backend.Order, error) {
	atomic.AddInt32(&f.calls, 1)
	return f.list, f.listErr
}

func (f *fakeRemote) GetOrder(_ context.Context, id string) (*backend.Order, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &backend.Order{ID: id}, nil
}

func (f *fakeRemote) CancelOrder(context.Context, string) (*backend.Order, error) {
	atomic.AddInt32(&f.calls, 1)
	return nil, nil
}

func (f *fakeRemote) UpdateOrderStatus(_ context.Context, id string, status enums.OrderStatus) (*backend.Order, error) {
	atomic.AddInt32(&f.calls, 1)
	if f.bareAck {
		return nil, nil
	}
	return &backend.Order{ID: id, Status: status}, nil
}

func validDraft() checkout.Draft {
	return checkout.Draft{ShippingAddress: "1 Main St", PaymentMethod: enums.PaymentMethodCOD}
}

func TestCreateOrderEmptyAddressMakesNoRequest(t *testing.T) {
	remote := &fakeRemote{}
	w := New(fakeSession{authed: true}, &fakeCart{}, remote)

	_, err := w.CreateOrder(context.Background(), checkout.Draft{PaymentMethod: enums.PaymentMethodCOD})
	if !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if remote.calls != 0 {
		t.Fatalf("expected no backend call, got %d", remote.calls)
	}
	if w.FieldErrors()["shippingAddress"] != "Shipping address is required" {
		t.Fatalf("unexpected field errors %v", w.FieldErrors())
	}
	if w.State() != enums.WorkflowStateIdle {
		t.Fatalf("expected idle after rejected draft, got %s", w.State())
	}
}

func TestCreateOrderCardWithoutCVVMakesNoRequest(t *testing.T) {
	remote := &fakeRemote{}
	w := New(fakeSession{authed: true}, &fakeCart{}, remote)

	_, err := w.CreateOrder(context.Background(), checkout.Draft{
		ShippingAddress: "1 Main St",
		PaymentMethod:   enums.PaymentMethodCard,
		CardNumber:      "4111111111111111",
		ExpiryDate:      "12/30",
		NameOnCard:      "Alice",
	})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if remote.calls != 0 {
		t.Fatalf("expected no backend call, got %d", remote.calls)
	}
	if w.FieldErrors()["cvv"] != "CVV is required" {
		t.Fatalf("unexpected field errors %v", w.FieldErrors())
	}
}

func TestCreateOrderSuccessClearsCartAndHandsOff(t *testing.T) {
	remote := &fakeRemote{}
	cart := &fakeCart{}
	w := New(fakeSession{authed: true}, cart, remote)

	var states []enums.WorkflowState
	w.Subscribe(func(s Snapshot) { states = append(states, s.State) })

	order, err := w.CreateOrder(context.Background(), validDraft())
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if order.ID == "" || len(order.Items) == 0 {
		t.Fatalf("unexpected order %+v", order)
	}
	if cart.cleared != 1 {
		t.Fatalf("expected cart to be cleared once, got %d", cart.cleared)
	}
	if w.State() != enums.WorkflowStateSuccess {
		t.Fatalf("expected success, got %s", w.State())
	}
	if len(states) != 2 || states[0] != enums.WorkflowStateSubmitting || states[1] != enums.WorkflowStateSuccess {
		t.Fatalf("unexpected transitions %v", states)
	}

	first := w.TakeConfirmation()
	if !first.Available || first.Order.ID != "ord-1" {
		t.Fatalf("expected confirmation, got %+v", first)
	}
	second := w.TakeConfirmation()
	if second.Available || second.Message != MsgConfirmationLost {
		t.Fatalf("expected lost confirmation, got %+v", second)
	}

	w.Reset()
	if w.State() != enums.WorkflowStateIdle {
		t.Fatalf("expected idle after reset, got %s", w.State())
	}
}

func TestInvalidDraftDuringSubmitKeepsSubmissionGuard(t *testing.T) {
	remote := &fakeRemote{entered: make(chan struct{}), release: make(chan struct{})}
	cart := &fakeCart{}
	w := New(fakeSession{authed: true}, cart, remote)

	done := make(chan error, 1)
	go func() {
		_, err := w.CreateOrder(context.Background(), validDraft())
		done <- err
	}()
	<-remote.entered

	if _, err := w.CreateOrder(context.Background(), checkout.Draft{PaymentMethod: enums.PaymentMethodCOD}); !pkgerrors.Is(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if w.State() != enums.WorkflowStateSubmitting {
		t.Fatalf("rejected draft must not leave submitting, got %s", w.State())
	}
	if _, err := w.CreateOrder(context.Background(), validDraft()); !pkgerrors.Is(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict while submitting, got %v", err)
	}

	close(remote.release)
	if err := <-done; err != nil {
		t.Fatalf("first submission: %v", err)
	}
	if got := atomic.LoadInt32(&remote.calls); got != 1 {
		t.Fatalf("expected one checkout call, got %d", got)
	}
	if w.State() != enums.WorkflowStateSuccess {
		t.Fatalf("expected success, got %s", w.State())
	}
}

func TestCreateOrderFailureKeepsCart(t *testing.T) {
	remote := &fakeRemote{checkoutErr: pkgerrors.New(pkgerrors.CodeStateConflict, "Cart is empty")}
	cart := &fakeCart{}
	w := New(fakeSession{authed: true}, cart, remote)

	if _, err := w.CreateOrder(context.Background(), validDraft()); err == nil {
		t.Fatal("expected error")
	}
	if w.State() != enums.WorkflowStateFailed || w.Error() != "Cart is empty" {
		t.Fatalf("unexpected state %s / %q", w.State(), w.Error())
	}
	if cart.cleared != 0 {
		t.Fatal("cart must not be cleared on failure")
	}
	if c := w.TakeConfirmation(); c.Available {
		t.Fatal("no confirmation expected after failure")
	}
}

func TestCreateOrderRequiresSession(t *testing.T) {
	remote := &fakeRemote{}
	w := New(fakeSession{}, &fakeCart{}, remote)

	if _, err := w.CreateOrder(context.Background(), validDraft()); !pkgerrors.Is(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized, got %v", err)
	}
	if remote.calls != 0 {
		t.Fatal("expected no backend call")
	}
}

func TestFetchUserOrdersDegradesToEmpty(t *testing.T) {
	remote := &fakeRemote{listErr: pkgerrors.New(pkgerrors.CodeUnreachable, "down")}
	w := New(fakeSession{authed: true}, &fakeCart{}, remote)

	got := w.FetchUserOrders(context.Background())
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty list, got %v", got)
	}
	if w.Error() == "" {
		t.Fatal("expected error message to be recorded")
	}

	remote.listErr = nil
	remote.list = nil
	if got := w.FetchUserOrders(context.Background()); got == nil {
		t.Fatal("nil backend list should become empty slice")
	}
}

func TestGetOrderByIDDistinguishesNotFound(t *testing.T) {
	remote := &fakeRemote{getErr: pkgerrors.New(pkgerrors.CodeNotFound, "Order not found")}
	w := New(fakeSession{authed: true}, &fakeCart{}, remote)

	if _, err := w.GetOrderByID(context.Background(), "x"); !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	remote.getErr = pkgerrors.New(pkgerrors.CodeUnreachable, "down")
	if _, err := w.GetOrderByID(context.Background(), "x"); !pkgerrors.Is(err, pkgerrors.CodeUnreachable) {
		t.Fatalf("expected unreachable, got %v", err)
	}
}

func TestUpdateOrderStatusRequiresAdmin(t *testing.T) {
	remote := &fakeRemote{}
	w := New(fakeSession{authed: true}, &fakeCart{}, remote)

	if _, err := w.UpdateOrderStatus(context.Background(), "ord-1", enums.OrderStatusShipped); !pkgerrors.Is(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden, got %v", err)
	}
	if remote.calls != 0 {
		t.Fatal("expected no backend call for non-admin")
	}

	admin := New(fakeSession{authed: true, admin: true}, &fakeCart{}, remote)
	order, err := admin.UpdateOrderStatus(context.Background(), "ord-1", "shipped")
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if order.Status != enums.OrderStatusShipped {
		t.Fatalf("unexpected status %s", order.Status)
	}
}

func TestUpdateOrderStatusRefetchesBareAcknowledgement(t *testing.T) {
	remote := &fakeRemote{bareAck: true}
	admin := New(fakeSession{authed: true, admin: true}, &fakeCart{}, remote)

	order, err := admin.UpdateOrderStatus(context.Background(), "ord-9", enums.OrderStatusDelivered)
	if err != nil {
		t.Fatalf("update status: %v", err)
	}
	if order == nil || order.ID != "ord-9" {
		t.Fatalf("expected refetched order, got %+v", order)
	}
	if remote.calls != 2 {
		t.Fatalf("expected update plus refetch, got %d calls", remote.calls)
	}
}

func TestCancelOrder(t *testing.T) {
	remote := &fakeRemote{}
	w := New(fakeSession{authed: true}, &fakeCart{}, remote)
	if !w.CancelOrder(context.Background(), "ord-1") {
		t.Fatalf("expected cancel to succeed, error %q", w.Error())
	}

	signedOut := New(fakeSession{}, &fakeCart{}, remote)
	if signedOut.CancelOrder(context.Background(), "ord-1") {
		t.Fatal("expected cancel to fail when signed out")
	}
}
