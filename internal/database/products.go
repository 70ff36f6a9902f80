package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const productColumns = `id, owner_id, name, price, stock_qty, image_url, is_active, created_at, updated_at`

const listProductsByOwner = `
SELECT ` + productColumns + `
FROM products
WHERE owner_id = $1 AND is_active = true
ORDER BY name
`

func (q *Queries) ListProductsByOwner(ctx context.Context, ownerID uuid.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx, listProductsByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

const listCatalog = `
SELECT ` + productColumns + `
FROM products
WHERE is_active = true AND owner_id <> $1
ORDER BY name
`

// ListCatalog returns every active product except the caller's own; it is the
// wholesale catalog a shop buys from.
func (q *Queries) ListCatalog(ctx context.Context, excludeOwnerID uuid.UUID) ([]Product, error) {
	rows, err := q.db.Query(ctx, listCatalog, excludeOwnerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

const getProduct = `
SELECT ` + productColumns + `
FROM products
WHERE id = $1 AND is_active = true
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProduct, id))
}

const getProductForOwner = `
SELECT ` + productColumns + `
FROM products
WHERE id = $1 AND owner_id = $2 AND is_active = true
`

type GetProductForOwnerParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) GetProductForOwner(ctx context.Context, arg GetProductForOwnerParams) (Product, error) {
	return scanProduct(q.db.QueryRow(ctx, getProductForOwner, arg.ID, arg.OwnerID))
}

const createProduct = `
INSERT INTO products (owner_id, name, price, stock_qty, image_url)
VALUES ($1, $2, $3, $4, $5)
RETURNING ` + productColumns

type CreateProductParams struct {
	OwnerID  uuid.UUID
	Name     string
	Price    pgtype.Numeric
	StockQty int32
	ImageUrl pgtype.Text
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, createProduct,
		arg.OwnerID, arg.Name, arg.Price, arg.StockQty, arg.ImageUrl,
	)
	return scanProduct(row)
}

const updateProduct = `
UPDATE products
SET name = $3, price = $4, stock_qty = $5, image_url = $6, updated_at = now()
WHERE id = $1 AND owner_id = $2 AND is_active = true
RETURNING ` + productColumns

type UpdateProductParams struct {
	ID       uuid.UUID
	OwnerID  uuid.UUID
	Name     string
	Price    pgtype.Numeric
	StockQty int32
	ImageUrl pgtype.Text
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.db.QueryRow(ctx, updateProduct,
		arg.ID, arg.OwnerID, arg.Name, arg.Price, arg.StockQty, arg.ImageUrl,
	)
	return scanProduct(row)
}

const softDeleteProduct = `
UPDATE products
SET is_active = false, updated_at = now()
WHERE id = $1 AND owner_id = $2 AND is_active = true
RETURNING id
`

type SoftDeleteProductParams struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

func (q *Queries) SoftDeleteProduct(ctx context.Context, arg SoftDeleteProductParams) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.db.QueryRow(ctx, softDeleteProduct, arg.ID, arg.OwnerID).Scan(&id)
	return id, err
}

const decrementProductStock = `
UPDATE products
SET stock_qty = stock_qty - $2, updated_at = now()
WHERE id = $1 AND is_active = true AND stock_qty >= $2
RETURNING stock_qty
`

type DecrementProductStockParams struct {
	ID  uuid.UUID
	Qty int32
}

// DecrementProductStock subtracts qty atomically; pgx.ErrNoRows means the
// product is gone or stock is short.
func (q *Queries) DecrementProductStock(ctx context.Context, arg DecrementProductStockParams) (int32, error) {
	var remaining int32
	err := q.db.QueryRow(ctx, decrementProductStock, arg.ID, arg.Qty).Scan(&remaining)
	return remaining, err
}

func scanProduct(row rowScanner) (Product, error) {
	var p Product
	err := row.Scan(
		&p.ID, &p.OwnerID, &p.Name, &p.Price, &p.StockQty,
		&p.ImageUrl, &p.IsActive, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
