package devserver

import (
	"context"
	"fmt"

	pkgerrors "github.com/angelmondragon/salessavvy-storefront/pkg/errors"
	"github.com/shopspring/decimal"
)

type cartLine struct {
	id        int64
	productID int64
	quantity  int
}

// CartLine is one cart entry as served by GET /cart/summary.
type CartLine struct {
	ID       int64           `json:"id"`
	Product  Product         `json:"product"`
	Quantity int             `json:"quantity"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// CartSummary is the server-computed cart. TotalItems counts distinct lines.
type CartSummary struct {
	Items      []CartLine      `json:"cartItems"`
	TotalItems int             `json:"totalItems"`
	TotalValue decimal.Decimal `json:"totalValue"`
}

// Cart returns the summary for userID.
func (s *Service) Cart(ctx context.Context, userID int64) CartSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summaryLocked(userID)
}

func (s *Service) summaryLocked(userID int64) CartSummary {
	lines := s.carts[userID]
	summary := CartSummary{Items: make([]CartLine, 0, len(lines)), TotalValue: decimal.Zero}
	for _, line := range lines {
		product, ok := s.products[line.productID]
		if !ok {
			continue
		}
		subtotal := product.Price.Mul(decimal.NewFromInt(int64(line.quantity)))
		summary.Items = append(summary.Items, CartLine{
			ID:       line.id,
			Product:  *product,
			Quantity: line.quantity,
			Subtotal: subtotal,
		})
		summary.TotalValue = summary.TotalValue.Add(subtotal)
	}
	summary.TotalItems = len(summary.Items)
	return summary
}

// AddToCart adds quantity of a product, merging with an existing line.
func (s *Service) AddToCart(ctx context.Context, userID, productID int64, quantity int) (CartLine, error) {
	if quantity <= 0 {
		return CartLine{}, pkgerrors.New(pkgerrors.CodeValidation, "Quantity must be positive").
			WithDetails(map[string]string{"quantity": "must be at least 1"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	product, ok := s.products[productID]
	if !ok {
		return CartLine{}, pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("Product not found with ID: %d", productID))
	}

	var line *cartLine
	for _, existing := range s.carts[userID] {
		if existing.productID == productID {
			line = existing
			break
		}
	}
	if line == nil {
		s.nextCartItemID++
		line = &cartLine{id: s.nextCartItemID, productID: productID}
		s.carts[userID] = append(s.carts[userID], line)
	}
	line.quantity += quantity

	return CartLine{
		ID:       line.id,
		Product:  *product,
		Quantity: line.quantity,
		Subtotal: product.Price.Mul(decimal.NewFromInt(int64(line.quantity))),
	}, nil
}

// UpdateCartItem sets the quantity of a line; zero removes it.
func (s *Service) UpdateCartItem(ctx context.Context, userID, cartItemID int64, quantity int) error {
	if quantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "Quantity must be non-negative").
			WithDetails(map[string]string{"quantity": "must be zero or more"})
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.lineIndexLocked(userID, cartItemID)
	if idx < 0 {
		return errCartItemNotFound
	}
	if quantity == 0 {
		s.removeLineLocked(userID, idx)
		return nil
	}
	s.carts[userID][idx].quantity = quantity
	return nil
}

// RemoveCartItem deletes one line owned by userID.
func (s *Service) RemoveCartItem(ctx context.Context, userID, cartItemID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	idx := s.lineIndexLocked(userID, cartItemID)
	if idx < 0 {
		return errCartItemNotFound
	}
	s.removeLineLocked(userID, idx)
	return nil
}

// ClearCart empties the cart and reports how many lines were dropped.
func (s *Service) ClearCart(ctx context.Context, userID int64) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.carts[userID])
	delete(s.carts, userID)
	return n
}

var errCartItemNotFound = pkgerrors.New(pkgerrors.CodeNotFound, "Cart item not found or doesn't belong to user")

func (s *Service) lineIndexLocked(userID, cartItemID int64) int {
	for i, line := range s.carts[userID] {
		if line.id == cartItemID {
			return i
		}
	}
	return -1
}

func (s *Service) removeLineLocked(userID int64, idx int) {
	lines := s.carts[userID]
	s.carts[userID] = append(lines[:idx:idx], lines[idx+1:]...)
	if len(s.carts[userID]) == 0 {
		delete(s.carts, userID)
	}
}
