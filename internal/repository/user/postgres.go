package user

import (
	"context"
	"errors"
	"strings"

	"coffeecart/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

func (r *postgresRepo) Create(ctx context.Context, u domain.User) (*domain.User, error) {
	const q = `
INSERT INTO users (email, first_name, last_name, role)
VALUES ($1, $2, $3, $4)
RETURNING id::text, email, first_name, last_name, role, created_at
`
	if u.Role == "" {
		u.Role = domain.RoleClient
	}
	var out domain.User
	err := r.pool.QueryRow(ctx, q, strings.ToLower(strings.TrimSpace(u.Email)), u.FirstName, u.LastName, string(u.Role)).Scan(
		&out.ID,
		&out.Email,
		&out.FirstName,
		&out.LastName,
		&out.Role,
		&out.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.ErrAlreadyExists
		}
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return r.fetch(ctx, `
SELECT id::text, email, first_name, last_name, role, created_at
FROM users
WHERE id = $1
`, id)
}

func (r *postgresRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.fetch(ctx, `
SELECT id::text, email, first_name, last_name, role, created_at
FROM users
WHERE email = $1
`, strings.ToLower(strings.TrimSpace(email)))
}

func (r *postgresRepo) fetch(ctx context.Context, q string, args ...any) (*domain.User, error) {
	var out domain.User
	if err := r.pool.QueryRow(ctx, q, args...).Scan(
		&out.ID,
		&out.Email,
		&out.FirstName,
		&out.LastName,
		&out.Role,
		&out.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) Addresses(ctx context.Context, userID string) ([]domain.Address, error) {
	const q = `
SELECT id::text, first_name, last_name, phone, email, street, department, city, note
FROM addresses
WHERE user_id = $1
ORDER BY created_at ASC
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Address{}
	for rows.Next() {
		var a domain.Address
		if err := rows.Scan(&a.ID, &a.FirstName, &a.LastName, &a.Phone, &a.Email, &a.Street, &a.Department, &a.City, &a.Note); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *postgresRepo) AddAddress(ctx context.Context, userID string, a domain.Address) (*domain.Address, error) {
	const q = `
INSERT INTO addresses (user_id, first_name, last_name, phone, email, street, department, city, note)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
RETURNING id::text
`
	out := a
	if err := r.pool.QueryRow(ctx, q, userID, a.FirstName, a.LastName, a.Phone, a.Email, a.Street, a.Department, a.City, a.Note).Scan(&out.ID); err != nil {
		return nil, err
	}
	return &out, nil
}
