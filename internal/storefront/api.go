// Package storefront implements the client-side logic of the PasarLink
// retailer app: the optimistic cart engine and the order workbench. It holds
// no durable state; the remote API is the single source of truth and local
// state is a view over it.
package storefront

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrUnauthenticated is returned when the server answers 401. The app treats
// it as the uniform signal to redirect to sign-in; it is never retried.
var ErrUnauthenticated = errors.New("not authenticated")

// ErrBusy is returned when a mutation is refused because another request for
// the same entity is still in flight. The UI disables the control instead of
// showing an error.
var ErrBusy = errors.New("another request for this item is in flight")

// ErrOutOfStock is returned by the local stock pre-check; no network call is
// made.
var ErrOutOfStock = errors.New("requested quantity exceeds available stock")

// Product is the read-only projection a cart line renders from.
type Product struct {
	Name     string
	Price    decimal.Decimal
	Image    string
	StockQty int32
}

// CartLine is one product's entry in the cart. Loading marks an in-flight
// mutation; the UI greys the line out while it is set.
type CartLine struct {
	ProductID uuid.UUID
	Quantity  int32
	Product   Product
	Loading   bool
}

// Shortfall reports a product whose requested quantity exceeds stock.
type Shortfall struct {
	ProductName string
	Available   int32
	Requested   int32
}

// CartValidation is the server's verdict on the current cart.
type CartValidation struct {
	Valid  bool
	Errors []Shortfall
}

// OrderItem is one line of a placed order.
type OrderItem struct {
	ID          uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	Qty         int32
	UnitPrice   decimal.Decimal
	Status      string
}

// Order is a placed order with its nested items.
type Order struct {
	ID          uuid.UUID
	TotalAmount decimal.Decimal
	CreatedAt   time.Time
	Items       []OrderItem
}

// SaleItem is an incoming order item on the seller's workbench.
type SaleItem struct {
	OrderItem
	OrderID   uuid.UUID
	BuyerShop string
	CreatedAt time.Time
}

// API is the remote contract the engine runs against. Implemented by *Client
// over HTTP; tests substitute scripted fakes.
type API interface {
	FetchCart(ctx context.Context) ([]CartLine, error)
	// MutateCart applies a signed quantity delta and returns the
	// authoritative absolute quantity.
	MutateCart(ctx context.Context, productID uuid.UUID, delta int32) (int32, error)
	RemoveCartLine(ctx context.Context, productID uuid.UUID) error
	ValidateCart(ctx context.Context) (CartValidation, error)

	FetchOrders(ctx context.Context) ([]Order, error)
	FetchOrder(ctx context.Context, id uuid.UUID) (Order, error)
	FetchSales(ctx context.Context) ([]SaleItem, error)
	UpdateItemStatus(ctx context.Context, itemID uuid.UUID, status string) error
}

// Notifier surfaces transient user-facing messages (toasts). Mutations never
// fail silently: every rollback is paired with a notification.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to the Notifier interface.
type NotifierFunc func(message string)

func (f NotifierFunc) Notify(message string) { f(message) }
