package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// User is a storefront account: a retailer shopping wholesale, a wholesaler
// supplying stock, or both hats on the same shop.
type User struct {
	ID           uuid.UUID
	ShopName     string
	Email        string
	PasswordHash string
	Phone        pgtype.Text
	Address      pgtype.Text
	Latitude     pgtype.Float8
	Longitude    pgtype.Float8
	Role         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Product struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	Price     pgtype.Numeric
	StockQty  int32
	ImageUrl  pgtype.Text
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is one cart line; (user_id, product_id) is the primary key, so a
// user holds at most one line per product.
type CartItem struct {
	UserID    uuid.UUID
	ProductID uuid.UUID
	Quantity  int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Order struct {
	ID          uuid.UUID
	BuyerID     uuid.UUID
	TotalAmount pgtype.Numeric
	CreatedAt   time.Time
}

type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	ProductID uuid.UUID
	SellerID  uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Status    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
