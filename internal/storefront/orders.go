package storefront

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pasarlink/storefront/internal/enum"
)

// Item lifecycle as the workbench knows it. DELIVERED and REJECTED are
// terminal: no entry, no actions rendered.
var allowedNext = map[string][]string{
	enum.ItemStatusPending:  {enum.ItemStatusAccepted, enum.ItemStatusRejected},
	enum.ItemStatusAccepted: {enum.ItemStatusShipped, enum.ItemStatusRejected},
	enum.ItemStatusShipped:  {enum.ItemStatusDelivered},
}

// AllowedActions returns the statuses an item may move to from its current
// status, in the order the buttons render. Empty for terminal states.
func AllowedActions(status string) []string {
	return allowedNext[status]
}

// CanTransition reports whether moving from one status to another follows the
// lifecycle graph.
func CanTransition(from, to string) bool {
	for _, s := range allowedNext[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OrderBoard drives the order screens: the buyer's list of placed orders,
// the detail view, and the seller's workbench of incoming items with their
// status transitions. The board never predicts the server's next state;
// after a successful transition it reloads and renders whatever comes back.
type OrderBoard struct {
	api    API
	notify Notifier

	mu          sync.Mutex
	orders      []Order
	ordersShown bool
	sales       []SaleItem
	salesShown  bool
	inflight    map[uuid.UUID]bool // item ids with an outstanding status update
	abort       context.CancelFunc // cancels a superseded detail load
	loadGen     uint64             // identifies the detail load abort belongs to
}

func NewOrderBoard(api API, notify Notifier) *OrderBoard {
	return &OrderBoard{
		api:      api,
		notify:   notify,
		inflight: make(map[uuid.UUID]bool),
	}
}

// Load replaces the board's orders with the server's.
func (b *OrderBoard) Load(ctx context.Context) error {
	orders, err := b.api.FetchOrders(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.orders = orders
	b.ordersShown = true
	b.mu.Unlock()
	return nil
}

// LoadSales replaces the workbench's incoming items with the server's.
func (b *OrderBoard) LoadSales(ctx context.Context) error {
	sales, err := b.api.FetchSales(ctx)
	if err != nil {
		return err
	}
	b.mu.Lock()
	b.sales = sales
	b.salesShown = true
	b.mu.Unlock()
	return nil
}

// Orders returns a snapshot of the loaded orders.
func (b *OrderBoard) Orders() []Order {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Order, len(b.orders))
	copy(out, b.orders)
	return out
}

// Sales returns a snapshot of the workbench's incoming items.
func (b *OrderBoard) Sales() []SaleItem {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]SaleItem, len(b.sales))
	copy(out, b.sales)
	return out
}

// InFlight reports whether an item has an outstanding status update. The UI
// disables that item's buttons while it does.
func (b *OrderBoard) InFlight(itemID uuid.UUID) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.inflight[itemID]
}

// Transition requests a status change for one item. At most one request per
// item id may be in flight; the local graph check catches stale buttons
// before any network traffic. On success every shown list is reloaded; on
// failure nothing was mutated locally, so a toast is all that is needed.
func (b *OrderBoard) Transition(ctx context.Context, itemID uuid.UUID, next string) error {
	b.mu.Lock()
	if b.inflight[itemID] {
		b.mu.Unlock()
		return ErrBusy
	}
	item, ok := b.findItem(itemID)
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("order item %s not loaded", itemID)
	}
	if !CanTransition(item.Status, next) {
		b.mu.Unlock()
		b.notify.Notify(fmt.Sprintf("Cannot move item from %s to %s", item.Status, next))
		return fmt.Errorf("invalid transition %s -> %s", item.Status, next)
	}
	b.inflight[itemID] = true
	b.mu.Unlock()

	err := b.api.UpdateItemStatus(ctx, itemID, next)

	b.mu.Lock()
	delete(b.inflight, itemID)
	b.mu.Unlock()

	if err != nil {
		if !errors.Is(err, ErrUnauthenticated) {
			var apiErr *APIError
			if errors.As(err, &apiErr) {
				b.notify.Notify(apiErr.Message)
			} else {
				b.notify.Notify("Could not update order, please try again")
			}
		}
		return err
	}

	return b.reload(ctx)
}

// reload re-fetches whichever lists have been shown so far.
func (b *OrderBoard) reload(ctx context.Context) error {
	b.mu.Lock()
	salesShown, ordersShown := b.salesShown, b.ordersShown
	b.mu.Unlock()

	if salesShown {
		if err := b.LoadSales(ctx); err != nil {
			return err
		}
	}
	if ordersShown {
		if err := b.Load(ctx); err != nil {
			return err
		}
	}
	return nil
}

// findItem looks an item up on the workbench first, then across loaded
// orders. Caller holds the lock.
func (b *OrderBoard) findItem(itemID uuid.UUID) (OrderItem, bool) {
	for _, sale := range b.sales {
		if sale.ID == itemID {
			return sale.OrderItem, true
		}
	}
	for _, order := range b.orders {
		for _, item := range order.Items {
			if item.ID == itemID {
				return item, true
			}
		}
	}
	return OrderItem{}, false
}

// LoadOrder fetches one order for the detail view. Navigating to a different
// order while a load is still running cancels the older request; the caller
// of the superseded load sees a context error and discards the result.
func (b *OrderBoard) LoadOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	b.mu.Lock()
	if b.abort != nil {
		b.abort()
	}
	ctx, cancel := context.WithCancel(ctx)
	b.abort = cancel
	b.loadGen++
	gen := b.loadGen
	b.mu.Unlock()

	order, err := b.api.FetchOrder(ctx, id)

	// Release this load's context; clear abort unless a newer load already
	// took it over.
	b.mu.Lock()
	cancel()
	if b.loadGen == gen {
		b.abort = nil
	}
	b.mu.Unlock()

	if err != nil {
		return Order{}, err
	}
	return order, nil
}
