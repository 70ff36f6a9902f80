package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `
INSERT INTO orders (buyer_id, total_amount)
VALUES ($1, $2)
RETURNING id, buyer_id, total_amount, created_at
`

type CreateOrderParams struct {
	BuyerID     uuid.UUID
	TotalAmount pgtype.Numeric
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, createOrder, arg.BuyerID, arg.TotalAmount).
		Scan(&o.ID, &o.BuyerID, &o.TotalAmount, &o.CreatedAt)
	return o, err
}

const orderItemColumns = `id, order_id, product_id, seller_id, quantity, unit_price, status, created_at, updated_at`

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, seller_id, quantity, unit_price, status)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + orderItemColumns

type CreateOrderItemParams struct {
	OrderID   uuid.UUID
	ProductID uuid.UUID
	SellerID  uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Status    string
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.ProductID, arg.SellerID, arg.Quantity, arg.UnitPrice, arg.Status,
	)
	return scanOrderItem(row)
}

const listOrdersByBuyer = `
SELECT id, buyer_id, total_amount, created_at
FROM orders
WHERE buyer_id = $1
ORDER BY created_at DESC
`

func (q *Queries) ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByBuyer, buyerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.BuyerID, &o.TotalAmount, &o.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

const getOrder = `
SELECT id, buyer_id, total_amount, created_at
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, getOrder, id).Scan(&o.ID, &o.BuyerID, &o.TotalAmount, &o.CreatedAt)
	return o, err
}

const listOrderItemsByOrder = `
SELECT i.id, i.order_id, i.product_id, i.seller_id, i.quantity, i.unit_price, i.status,
       i.created_at, i.updated_at, p.name
FROM order_items i
JOIN products p ON p.id = i.product_id
WHERE i.order_id = $1
ORDER BY i.created_at
`

type ListOrderItemsByOrderRow struct {
	OrderItem
	ProductName string
}

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]ListOrderItemsByOrderRow, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ListOrderItemsByOrderRow
	for rows.Next() {
		var r ListOrderItemsByOrderRow
		if err := rows.Scan(
			&r.ID, &r.OrderID, &r.ProductID, &r.SellerID, &r.Quantity,
			&r.UnitPrice, &r.Status, &r.CreatedAt, &r.UpdatedAt, &r.ProductName,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const listItemsBySeller = `
SELECT i.id, i.order_id, i.product_id, i.seller_id, i.quantity, i.unit_price, i.status,
       i.created_at, i.updated_at, p.name, u.shop_name
FROM order_items i
JOIN products p ON p.id = i.product_id
JOIN orders o ON o.id = i.order_id
JOIN users u ON u.id = o.buyer_id
WHERE i.seller_id = $1
ORDER BY i.created_at DESC
`

type ListItemsBySellerRow struct {
	OrderItem
	ProductName string
	BuyerShop   string
}

// ListItemsBySeller returns the incoming order items for products the given
// user sells, newest first. This backs the order workbench.
func (q *Queries) ListItemsBySeller(ctx context.Context, sellerID uuid.UUID) ([]ListItemsBySellerRow, error) {
	rows, err := q.db.Query(ctx, listItemsBySeller, sellerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ListItemsBySellerRow
	for rows.Next() {
		var r ListItemsBySellerRow
		if err := rows.Scan(
			&r.ID, &r.OrderID, &r.ProductID, &r.SellerID, &r.Quantity,
			&r.UnitPrice, &r.Status, &r.CreatedAt, &r.UpdatedAt, &r.ProductName, &r.BuyerShop,
		); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const getOrderItem = `
SELECT ` + orderItemColumns + `
FROM order_items
WHERE id = $1
`

func (q *Queries) GetOrderItem(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	return scanOrderItem(q.db.QueryRow(ctx, getOrderItem, id))
}

const updateOrderItemStatus = `
UPDATE order_items
SET status = $3, updated_at = now()
WHERE id = $1 AND seller_id = $2 AND status = $4
RETURNING ` + orderItemColumns

type UpdateOrderItemStatusParams struct {
	ID         uuid.UUID
	SellerID   uuid.UUID
	Status     string
	PrevStatus string
}

// UpdateOrderItemStatus is a compare-and-set: the row only updates when the
// current status still equals PrevStatus. pgx.ErrNoRows means the item moved
// underneath the caller (or the caller is not the seller).
func (q *Queries) UpdateOrderItemStatus(ctx context.Context, arg UpdateOrderItemStatusParams) (OrderItem, error) {
	row := q.db.QueryRow(ctx, updateOrderItemStatus, arg.ID, arg.SellerID, arg.Status, arg.PrevStatus)
	return scanOrderItem(row)
}

func scanOrderItem(row rowScanner) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(
		&i.ID, &i.OrderID, &i.ProductID, &i.SellerID, &i.Quantity,
		&i.UnitPrice, &i.Status, &i.CreatedAt, &i.UpdatedAt,
	)
	return i, err
}
