package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const createUser = `
INSERT INTO users (shop_name, email, password_hash, phone, address, latitude, longitude, role)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING id, shop_name, email, password_hash, phone, address, latitude, longitude, role, created_at, updated_at
`

type CreateUserParams struct {
	ShopName     string
	Email        string
	PasswordHash string
	Phone        pgtype.Text
	Address      pgtype.Text
	Latitude     pgtype.Float8
	Longitude    pgtype.Float8
	Role         string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser,
		arg.ShopName, arg.Email, arg.PasswordHash, arg.Phone,
		arg.Address, arg.Latitude, arg.Longitude, arg.Role,
	)
	return scanUser(row)
}

const getUserByEmail = `
SELECT id, shop_name, email, password_hash, phone, address, latitude, longitude, role, created_at, updated_at
FROM users WHERE email = $1
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByEmail, email))
}

const getUserByID = `
SELECT id, shop_name, email, password_hash, phone, address, latitude, longitude, role, created_at, updated_at
FROM users WHERE id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	return scanUser(q.db.QueryRow(ctx, getUserByID, id))
}

const updateUserProfile = `
UPDATE users
SET shop_name = $2, phone = $3, address = $4, latitude = $5, longitude = $6, updated_at = now()
WHERE id = $1
RETURNING id, shop_name, email, password_hash, phone, address, latitude, longitude, role, created_at, updated_at
`

type UpdateUserProfileParams struct {
	ID        uuid.UUID
	ShopName  string
	Phone     pgtype.Text
	Address   pgtype.Text
	Latitude  pgtype.Float8
	Longitude pgtype.Float8
}

func (q *Queries) UpdateUserProfile(ctx context.Context, arg UpdateUserProfileParams) (User, error) {
	row := q.db.QueryRow(ctx, updateUserProfile,
		arg.ID, arg.ShopName, arg.Phone, arg.Address, arg.Latitude, arg.Longitude,
	)
	return scanUser(row)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(
		&u.ID, &u.ShopName, &u.Email, &u.PasswordHash, &u.Phone,
		&u.Address, &u.Latitude, &u.Longitude, &u.Role, &u.CreatedAt, &u.UpdatedAt,
	)
	return u, err
}
