package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const listCartLines = `
SELECT c.product_id, c.quantity, p.name, p.price, p.image_url, p.stock_qty, p.owner_id
FROM cart_items c
JOIN products p ON p.id = c.product_id
WHERE c.user_id = $1
ORDER BY c.created_at
`

type ListCartLinesRow struct {
	ProductID uuid.UUID
	Quantity  int32
	Name      string
	Price     pgtype.Numeric
	ImageUrl  pgtype.Text
	StockQty  int32
	OwnerID   uuid.UUID
}

func (q *Queries) ListCartLines(ctx context.Context, userID uuid.UUID) ([]ListCartLinesRow, error) {
	rows, err := q.db.Query(ctx, listCartLines, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ListCartLinesRow
	for rows.Next() {
		var r ListCartLinesRow
		if err := rows.Scan(&r.ProductID, &r.Quantity, &r.Name, &r.Price, &r.ImageUrl, &r.StockQty, &r.OwnerID); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

const applyCartDelta = `
INSERT INTO cart_items (user_id, product_id, quantity)
VALUES ($1, $2, $3)
ON CONFLICT (user_id, product_id)
DO UPDATE SET quantity = cart_items.quantity + EXCLUDED.quantity, updated_at = now()
RETURNING quantity
`

type ApplyCartDeltaParams struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Delta     int32
}

// ApplyCartDelta adds a signed delta to the line quantity (inserting the line
// when absent) and returns the resulting absolute quantity. The caller must
// delete the line inside the same transaction when the result is <= 0, so no
// non-positive quantity is ever visible outside it.
func (q *Queries) ApplyCartDelta(ctx context.Context, arg ApplyCartDeltaParams) (int32, error) {
	var quantity int32
	err := q.db.QueryRow(ctx, applyCartDelta, arg.UserID, arg.ProductID, arg.Delta).Scan(&quantity)
	return quantity, err
}

const deleteCartLine = `
DELETE FROM cart_items
WHERE user_id = $1 AND product_id = $2
RETURNING product_id
`

type DeleteCartLineParams struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
}

func (q *Queries) DeleteCartLine(ctx context.Context, arg DeleteCartLineParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, deleteCartLine, arg.UserID, arg.ProductID).Scan(&id)
	return id, err
}

const clearCart = `DELETE FROM cart_items WHERE user_id = $1`

func (q *Queries) ClearCart(ctx context.Context, userID uuid.UUID) error {
	_, err := q.db.Exec(ctx, clearCart, userID)
	return err
}
