package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pasarlink/storefront/internal/database"
	"github.com/pasarlink/storefront/internal/enum"
	"github.com/shopspring/decimal"
)

// Errors returned by the checkout service.
var (
	ErrEmptyCart = errors.New("cart is empty")
)

// Shortfall reports a cart line whose requested quantity exceeds stock.
type Shortfall struct {
	ProductName string
	Available   int32
	Requested   int32
}

// ShortfallError carries every shortfall found in the cart, so the client can
// show the first one plus a count of the rest.
type ShortfallError struct {
	Shortfalls []Shortfall
}

func (e *ShortfallError) Error() string {
	parts := make([]string, len(e.Shortfalls))
	for i, s := range e.Shortfalls {
		parts[i] = fmt.Sprintf("%s: requested %d, available %d", s.ProductName, s.Requested, s.Available)
	}
	return "insufficient stock: " + strings.Join(parts, "; ")
}

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// CheckoutStore defines the DB methods needed to turn a cart into an order.
// Satisfied by *database.Queries (and its WithTx variant).
type CheckoutStore interface {
	ListCartLines(ctx context.Context, userID uuid.UUID) ([]database.ListCartLinesRow, error)
	DecrementProductStock(ctx context.Context, arg database.DecrementProductStockParams) (int32, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

// NewCheckoutStore creates a CheckoutStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewCheckoutStore func(db database.DBTX) CheckoutStore

// CheckoutResult is the created order with its items.
type CheckoutResult struct {
	Order database.Order
	Items []database.OrderItem
}

// CheckoutService turns the cart into an order atomically.
type CheckoutService struct {
	pool     TxBeginner
	newStore NewCheckoutStore
}

func NewCheckoutService(pool TxBeginner, newStore NewCheckoutStore) *CheckoutService {
	return &CheckoutService{pool: pool, newStore: newStore}
}

// ValidateLines checks every cart line against its stock snapshot and returns
// the shortfall records, empty when the cart is orderable. Used by the
// pre-checkout validation endpoint; Checkout repeats the check atomically.
func ValidateLines(lines []database.ListCartLinesRow) []Shortfall {
	var out []Shortfall
	for _, line := range lines {
		if line.Quantity > line.StockQty {
			out = append(out, Shortfall{
				ProductName: line.Name,
				Available:   line.StockQty,
				Requested:   line.Quantity,
			})
		}
	}
	return out
}

// Checkout validates stock, creates the order with one PENDING item per cart
// line (unit price snapshotted from the product), decrements stock, and
// clears the cart — all in one transaction.
func (s *CheckoutService) Checkout(ctx context.Context, buyerID uuid.UUID) (*CheckoutResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	lines, err := store.ListCartLines(ctx, buyerID)
	if err != nil {
		return nil, fmt.Errorf("list cart: %w", err)
	}
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	// First pass: collect every shortfall so the caller sees them all at once.
	if shortfalls := ValidateLines(lines); len(shortfalls) > 0 {
		return nil, &ShortfallError{Shortfalls: shortfalls}
	}

	// Second pass: decrement stock. The conditional UPDATE is the
	// authoritative check; a concurrent sale between the passes surfaces
	// here as a shortfall too.
	for _, line := range lines {
		_, err := store.DecrementProductStock(ctx, database.DecrementProductStockParams{
			ID:  line.ProductID,
			Qty: line.Quantity,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, &ShortfallError{Shortfalls: []Shortfall{{
					ProductName: line.Name,
					Available:   line.StockQty,
					Requested:   line.Quantity,
				}}}
			}
			return nil, fmt.Errorf("decrement stock: %w", err)
		}
	}

	// Order total = sum of line price * quantity.
	total := decimal.Zero
	for _, line := range lines {
		price := NumericToDecimal(line.Price)
		total = total.Add(price.Mul(decimal.NewFromInt32(line.Quantity)))
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		BuyerID:     buyerID,
		TotalAmount: DecimalToNumeric(total),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	var items []database.OrderItem
	for _, line := range lines {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   order.ID,
			ProductID: line.ProductID,
			SellerID:  line.OwnerID,
			Quantity:  line.Quantity,
			UnitPrice: line.Price,
			Status:    enum.ItemStatusPending,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if err := store.ClearCart(ctx, buyerID); err != nil {
		return nil, fmt.Errorf("clear cart: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CheckoutResult{Order: order, Items: items}, nil
}

// --- Helpers ---

func NumericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func DecimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
