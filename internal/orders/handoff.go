package orders

import (
	"sync"

	"github.com/angelmondragon/salessavvy-storefront/internal/backend"
)

// MsgConfirmationLost is shown when the confirmation view has no order to display.
const MsgConfirmationLost = "No order information found. Your order was placed successfully but we could not display the confirmation. Please check your order history."

// Confirmation is what the confirmation view renders.
type Confirmation struct {
	Order     *backend.Order
	Available bool
	Message   string
}

// Handoff carries the created order to the confirmation view exactly once.
// It is memory-only: a restart loses it, which Take reports as unavailable.
type Handoff struct {
	mu    sync.Mutex
	order *backend.Order
}

func (h *Handoff) put(order *backend.Order) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.order = order
}

// Take returns the pending order and forgets it.
func (h *Handoff) Take() Confirmation {
	h.mu.Lock()
	order := h.order
	h.order = nil
	h.mu.Unlock()

	if order == nil {
		return Confirmation{Message: MsgConfirmationLost}
	}
	return Confirmation{Order: order, Available: true}
}
