package storefront

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
)

// Cart keeps the locally-rendered cart synchronized with the server using
// optimistic updates. One normalized collection keyed by product id holds the
// state; Lines is a derived projection for rendering. Every mutation is a
// signed delta and the server's reported absolute quantity always wins over
// the optimistic guess.
type Cart struct {
	api    API
	notify Notifier

	mu    sync.Mutex
	lines map[uuid.UUID]*CartLine
	busy  map[uuid.UUID]bool // product ids with an in-flight mutation
}

func NewCart(api API, notify Notifier) *Cart {
	return &Cart{
		api:    api,
		notify: notify,
		lines:  make(map[uuid.UUID]*CartLine),
		busy:   make(map[uuid.UUID]bool),
	}
}

// Refresh replaces the local cart with the server's. Called on page load;
// the client holds no durable cart state.
func (c *Cart) Refresh(ctx context.Context) error {
	fetched, err := c.api.FetchCart(ctx)
	if err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = make(map[uuid.UUID]*CartLine, len(fetched))
	for i := range fetched {
		line := fetched[i]
		c.lines[line.ProductID] = &line
	}
	return nil
}

// Lines returns the cart sorted by product name. The slice is a snapshot;
// filter and sort are computed here rather than kept as a second collection.
func (c *Cart) Lines() []CartLine {
	return c.FilterLines(nil)
}

// FilterLines returns the sorted snapshot restricted to lines the predicate
// matches. A nil predicate matches everything.
func (c *Cart) FilterLines(match func(CartLine) bool) []CartLine {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]CartLine, 0, len(c.lines))
	for _, line := range c.lines {
		if match == nil || match(*line) {
			out = append(out, *line)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Product.Name < out[j].Product.Name })
	return out
}

// Quantity reports the local quantity for a product. The second return is
// false when the product is not in the cart.
func (c *Cart) Quantity(productID uuid.UUID) (int32, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	line, ok := c.lines[productID]
	if !ok {
		return 0, false
	}
	return line.Quantity, true
}

// Add puts a product not yet in the cart at quantity 1. The line appears
// immediately in loading state; a failure removes it again.
func (c *Cart) Add(ctx context.Context, productID uuid.UUID, product Product) error {
	c.mu.Lock()
	if c.busy[productID] {
		c.mu.Unlock()
		return ErrBusy
	}
	if _, ok := c.lines[productID]; ok {
		c.mu.Unlock()
		return c.Increment(ctx, productID)
	}
	if product.StockQty < 1 {
		c.mu.Unlock()
		c.notify.Notify(fmt.Sprintf("%s: Only %d available", product.Name, product.StockQty))
		return ErrOutOfStock
	}
	inserted := &CartLine{ProductID: productID, Quantity: 1, Product: product, Loading: true}
	c.lines[productID] = inserted
	c.busy[productID] = true
	c.mu.Unlock()

	qty, err := c.api.MutateCart(ctx, productID, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.busy, productID)
	// A Refresh may have replaced the map while the call was out. The
	// result only applies to the line this call inserted; otherwise the
	// fetched state stands.
	cur, present := c.lines[productID]
	if err != nil {
		if present && cur == inserted {
			delete(c.lines, productID)
		}
		c.notifyMutationFailure(product.Name, err)
		return err
	}
	if present && cur == inserted {
		inserted.Quantity = qty
		inserted.Loading = false
	}
	return nil
}

// Increment applies an optimistic +1. A local pre-check refuses it without a
// network call when the quantity already meets available stock.
func (c *Cart) Increment(ctx context.Context, productID uuid.UUID) error {
	c.mu.Lock()
	if c.busy[productID] {
		c.mu.Unlock()
		return ErrBusy
	}
	line, ok := c.lines[productID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("product %s not in cart", productID)
	}
	if line.Quantity >= line.Product.StockQty {
		name, stock := line.Product.Name, line.Product.StockQty
		c.mu.Unlock()
		c.notify.Notify(fmt.Sprintf("%s: Only %d available", name, stock))
		return ErrOutOfStock
	}
	name := line.Product.Name
	prev := line.Quantity
	line.Quantity++
	line.Loading = true
	c.busy[productID] = true
	c.mu.Unlock()

	qty, err := c.api.MutateCart(ctx, productID, 1)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.busy, productID)
	// Settle against the line this call mutated; a Refresh may have swapped
	// the map underneath, in which case the fetched state stands.
	if cur, present := c.lines[productID]; present && cur == line {
		line.Loading = false
		if err != nil {
			line.Quantity = prev
		} else {
			line.Quantity = qty
		}
	}
	if err != nil {
		c.notifyMutationFailure(name, err)
		return err
	}
	return nil
}

// Decrement applies an optimistic -1. There is no lower-bound pre-check; the
// server decides, and a reported quantity at or below zero removes the line.
func (c *Cart) Decrement(ctx context.Context, productID uuid.UUID) error {
	c.mu.Lock()
	if c.busy[productID] {
		c.mu.Unlock()
		return ErrBusy
	}
	line, ok := c.lines[productID]
	if !ok {
		c.mu.Unlock()
		return fmt.Errorf("product %s not in cart", productID)
	}
	name := line.Product.Name
	prev := line.Quantity
	line.Quantity--
	line.Loading = true
	c.busy[productID] = true
	c.mu.Unlock()

	qty, err := c.api.MutateCart(ctx, productID, -1)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.busy, productID)
	// Settle against the line this call mutated; a Refresh may have swapped
	// the map underneath, in which case the fetched state stands.
	if cur, present := c.lines[productID]; present && cur == line {
		line.Loading = false
		switch {
		case err != nil:
			line.Quantity = prev
		case qty <= 0:
			delete(c.lines, productID)
		default:
			line.Quantity = qty
		}
	}
	if err != nil {
		c.notifyMutationFailure(name, err)
		return err
	}
	return nil
}

// Remove deletes a cart line outright. The line stays visible in loading
// state until the server confirms.
func (c *Cart) Remove(ctx context.Context, productID uuid.UUID) error {
	c.mu.Lock()
	if c.busy[productID] {
		c.mu.Unlock()
		return ErrBusy
	}
	line, ok := c.lines[productID]
	if !ok {
		c.mu.Unlock()
		return nil
	}
	name := line.Product.Name
	line.Loading = true
	c.busy[productID] = true
	c.mu.Unlock()

	err := c.api.RemoveCartLine(ctx, productID)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.busy, productID)
	if err != nil {
		if cur, present := c.lines[productID]; present && cur == line {
			line.Loading = false
		}
		c.notifyMutationFailure(name, err)
		return err
	}
	// The server confirmed the delete; it wins over any line a concurrent
	// Refresh may have fetched for this product.
	delete(c.lines, productID)
	return nil
}

// ValidateCheckout asks the server whether the cart can be checked out.
// Returning false blocks navigation to checkout; the first shortfall is
// surfaced with a count of any further ones.
func (c *Cart) ValidateCheckout(ctx context.Context) (bool, error) {
	v, err := c.api.ValidateCart(ctx)
	if err != nil {
		if !errors.Is(err, ErrUnauthenticated) {
			c.notify.Notify("Could not validate cart, please try again")
		}
		return false, err
	}
	if v.Valid {
		return true, nil
	}

	if len(v.Errors) > 0 {
		s := v.Errors[0]
		msg := fmt.Sprintf("%s: Only %d available (requested: %d)", s.ProductName, s.Available, s.Requested)
		if extra := len(v.Errors) - 1; extra > 0 {
			msg = fmt.Sprintf("%s (+%d more)", msg, extra)
		}
		c.notify.Notify(msg)
	}
	return false, nil
}

// notifyMutationFailure pairs every rollback with a toast. 401 is the
// redirect-to-sign-in signal and gets no toast.
func (c *Cart) notifyMutationFailure(productName string, err error) {
	if errors.Is(err, ErrUnauthenticated) {
		return
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		c.notify.Notify(fmt.Sprintf("%s: %s", productName, apiErr.Message))
		return
	}
	c.notify.Notify(fmt.Sprintf("%s: could not update cart", productName))
}
