package orders

import (
	"context"
	"strings"
	"sync"

	"github.com/angelmondragon/salessavvy-storefront/internal/backend"
	"github.com/angelmondragon/salessavvy-storefront/internal/checkout"
	"github.com/angelmondragon/salessavvy-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
	"github.com/angelmondragon/salessavvy-storefront/pkg/logger"
	"github.com/angelmondragon/salessavvy-storefront/pkg/observe"
)

// Session gates access to order operations.
type Session interface {
	IsAuthenticated() bool
	IsAdmin() bool
}

// Cart is cleared after a successful checkout.
type Cart interface {
	ClearCart(ctx context.Context) bool
}

// Backend is the slice of the REST boundary the workflow calls.
type Backend interface {
	Checkout(ctx context.Context, req backend.CheckoutRequest) (*backend.Order, error)
	ListOrders(ctx context.Context) ([]backend.Order, error)
	GetOrder(ctx context.Context, orderID string) (*backend.Order, error)
	CancelOrder(ctx context.Context, orderID string) (*backend.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID string, status enums.OrderStatus) (*backend.Order, error)
}

// Snapshot is a consistent read of workflow state.
type Snapshot struct {
	State       enums.WorkflowState
	Error       string
	FieldErrors map[string]string
}

// Workflow turns checkout drafts into orders and serves order history.
type Workflow struct {
	session Session
	cart    Cart
	remote  Backend
	logger  *logger.Logger
	handoff *Handoff

	mu          sync.RWMutex
	state       enums.WorkflowState
	errMsg      string
	fieldErrors map[string]string

	subs observe.Hub[Snapshot]
}

// Option configures optional workflow behavior.
type Option func(*Workflow)

func WithLogger(logg *logger.Logger) Option {
	return func(w *Workflow) {
		if logg != nil {
			w.logger = logg
		}
	}
}

// WithHandoff shares a confirmation handoff with the caller.
func WithHandoff(h *Handoff) Option {
	return func(w *Workflow) {
		if h != nil {
			w.handoff = h
		}
	}
}

func New(sess Session, cart Cart, remote Backend, opts ...Option) *Workflow {
	w := &Workflow{
		session: sess,
		cart:    cart,
		remote:  remote,
		logger:  logger.Nop(),
		handoff: &Handoff{},
		state:   enums.WorkflowStateIdle,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(w)
		}
	}
	return w
}

func (w *Workflow) Subscribe(fn func(Snapshot)) func() {
	return w.subs.Subscribe(fn)
}

func (w *Workflow) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.snapshotLocked()
}

func (w *Workflow) snapshotLocked() Snapshot {
	var fields map[string]string
	if len(w.fieldErrors) > 0 {
		fields = make(map[string]string, len(w.fieldErrors))
		for k, v := range w.fieldErrors {
			fields[k] = v
		}
	}
	return Snapshot{State: w.state, Error: w.errMsg, FieldErrors: fields}
}

func (w *Workflow) update(fn func()) {
	w.mu.Lock()
	fn()
	snap := w.snapshotLocked()
	w.mu.Unlock()
	w.subs.Publish(snap)
}

func (w *Workflow) State() enums.WorkflowState {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.state
}

func (w *Workflow) Error() string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.errMsg
}

// FieldErrors returns the per-field messages of the last rejected draft.
func (w *Workflow) FieldErrors() map[string]string {
	return w.Snapshot().FieldErrors
}

func (w *Workflow) ClearError() {
	w.update(func() {
		w.errMsg = ""
		w.fieldErrors = nil
	})
}

// Reset returns a finished workflow to idle.
func (w *Workflow) Reset() {
	w.update(func() {
		if w.state != enums.WorkflowStateSubmitting {
			w.state = enums.WorkflowStateIdle
		}
		w.errMsg = ""
		w.fieldErrors = nil
	})
}

// TakeConfirmation hands the last created order to the confirmation view once.
func (w *Workflow) TakeConfirmation() Confirmation {
	return w.handoff.Take()
}

// CreateOrder validates the draft, submits it and on success clears the
// cart and queues the order for confirmation. An invalid draft never
// reaches the backend. No retry is attempted.
func (w *Workflow) CreateOrder(ctx context.Context, draft checkout.Draft) (*backend.Order, error) {
	ctx = w.logger.WithOperation(ctx, "orders.create")

	if err := draft.Validate(); err != nil {
		fields := pkgerrors.FieldErrors(err)
		w.update(func() {
			if w.state != enums.WorkflowStateSubmitting {
				w.state = enums.WorkflowStateIdle
			}
			w.errMsg = pkgerrors.UserMessage(err)
			w.fieldErrors = fields
		})
		return nil, err
	}
	if !w.session.IsAuthenticated() {
		err := pkgerrors.New(pkgerrors.CodeUnauthorized, "Please login to place an order")
		w.update(func() { w.errMsg = err.Message() })
		return nil, err
	}

	var busy bool
	w.update(func() {
		if w.state == enums.WorkflowStateSubmitting {
			busy = true
			return
		}
		w.state = enums.WorkflowStateSubmitting
		w.errMsg = ""
		w.fieldErrors = nil
	})
	if busy {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "An order is already being submitted")
	}

	order, err := w.remote.Checkout(ctx, draft.Request())
	if err != nil {
		w.logger.Warn(w.logger.WithField(ctx, "error", err.Error()), "order creation failed")
		w.update(func() {
			w.state = enums.WorkflowStateFailed
			w.errMsg = pkgerrors.UserMessage(err)
		})
		return nil, err
	}

	ctx = w.logger.WithField(ctx, "order_id", order.ID)
	if !w.cart.ClearCart(ctx) {
		w.logger.Warn(ctx, "cart not cleared after checkout")
	}
	w.handoff.put(order)
	w.update(func() { w.state = enums.WorkflowStateSuccess })
	w.logger.Info(ctx, "order created")
	return order, nil
}

// FetchUserOrders returns the caller's orders in backend order. Every
// failure degrades to an empty list; the reason lands in Error.
func (w *Workflow) FetchUserOrders(ctx context.Context) []backend.Order {
	ctx = w.logger.WithOperation(ctx, "orders.list")
	if !w.session.IsAuthenticated() {
		return []backend.Order{}
	}
	list, err := w.remote.ListOrders(ctx)
	if err != nil {
		w.logger.Warn(w.logger.WithField(ctx, "error", err.Error()), "order history fetch failed")
		w.update(func() { w.errMsg = pkgerrors.UserMessage(err) })
		return []backend.Order{}
	}
	if list == nil {
		list = []backend.Order{}
	}
	return list
}

// GetOrderByID fetches one order. A missing order is CodeNotFound; a
// network failure is CodeUnreachable.
func (w *Workflow) GetOrderByID(ctx context.Context, orderID string) (*backend.Order, error) {
	ctx = w.logger.WithFields(ctx, map[string]any{"operation": "orders.get", "order_id": orderID})
	if strings.TrimSpace(orderID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id is required")
	}
	if !w.session.IsAuthenticated() {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "Please login to view orders")
	}
	order, err := w.remote.GetOrder(ctx, orderID)
	if err != nil {
		w.logger.Warn(w.logger.WithField(ctx, "error", err.Error()), "order fetch failed")
		w.update(func() { w.errMsg = pkgerrors.UserMessage(err) })
		return nil, err
	}
	return order, nil
}

// CancelOrder asks the backend to cancel. Eligibility is left to the
// caller (see enums.OrderStatus.Cancellable); the caller refetches to see
// the new status.
func (w *Workflow) CancelOrder(ctx context.Context, orderID string) bool {
	ctx = w.logger.WithFields(ctx, map[string]any{"operation": "orders.cancel", "order_id": orderID})
	if !w.session.IsAuthenticated() {
		w.update(func() { w.errMsg = "Please login to manage orders" })
		return false
	}
	if _, err := w.remote.CancelOrder(ctx, orderID); err != nil {
		w.logger.Warn(w.logger.WithField(ctx, "error", err.Error()), "order cancel failed")
		w.update(func() { w.errMsg = pkgerrors.UserMessage(err) })
		return false
	}
	return true
}

// UpdateOrderStatus changes an order's status. Only admins may call it;
// others are refused without a request. When the backend acknowledges
// without an order body, the order is refetched.
func (w *Workflow) UpdateOrderStatus(ctx context.Context, orderID string, status enums.OrderStatus) (*backend.Order, error) {
	ctx = w.logger.WithFields(ctx, map[string]any{"operation": "orders.update_status", "order_id": orderID})
	if !w.session.IsAdmin() {
		err := pkgerrors.New(pkgerrors.CodeForbidden, "admin role required")
		w.update(func() { w.errMsg = pkgerrors.UserMessage(err) })
		return nil, err
	}
	parsed, err := enums.ParseOrderStatus(string(status))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown order status")
	}
	order, err := w.remote.UpdateOrderStatus(ctx, orderID, parsed)
	if err != nil {
		w.logger.Warn(w.logger.WithField(ctx, "error", err.Error()), "order status update failed")
		w.update(func() { w.errMsg = pkgerrors.UserMessage(err) })
		return nil, err
	}
	if order == nil {
		return w.GetOrderByID(ctx, orderID)
	}
	return order, nil
}
