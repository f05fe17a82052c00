package order

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"coffeecart/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type postgresRepo struct {
	pool *pgxpool.Pool
}

func NewPostgres(pool *pgxpool.Pool) Repository {
	return &postgresRepo{pool: pool}
}

// Create locks every referenced catalog row, checks and decrements stock and
// writes the order in one transaction. Unit prices come from the catalog.
func (r *postgresRepo) Create(ctx context.Context, in CreateInput) (*domain.Order, error) {
	lines, err := mergeLines(in.Lines)
	if err != nil {
		return nil, err
	}

	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	out := domain.Order{
		UserID:        in.UserID,
		PaymentMethod: in.Method,
		Currency:      in.Currency,
		Address:       in.Address,
		Status:        statusFor(in.Method),
	}
	for _, l := range lines {
		q := fmt.Sprintf(`SELECT name, price_cents, currency, stock FROM %s WHERE id = $1 FOR UPDATE`, l.Item.Kind.Collection())
		var (
			name     string
			price    int64
			currency string
			stock    int
		)
		if err := tx.QueryRow(ctx, q, l.Item.ID).Scan(&name, &price, &currency, &stock); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("%s %s: %w", l.Item.Kind, l.Item.ID, domain.ErrNotFound)
			}
			return nil, err
		}
		if stock < l.Quantity {
			return nil, &domain.InsufficientStockError{Item: l.Item, Requested: l.Quantity, Available: stock}
		}
		upd := fmt.Sprintf(`UPDATE %s SET stock = stock - $1 WHERE id = $2`, l.Item.Kind.Collection())
		if _, err := tx.Exec(ctx, upd, l.Quantity, l.Item.ID); err != nil {
			return nil, err
		}
		if out.Currency == "" {
			out.Currency = currency
		}
		out.Lines = append(out.Lines, domain.OrderLine{Item: l.Item, Name: name, Quantity: l.Quantity, UnitPrice: price})
		out.TotalCents += price * int64(l.Quantity)
	}
	if in.ExpectedTotal != 0 && in.ExpectedTotal != out.TotalCents {
		return nil, fmt.Errorf("%w: expected %d, current %d", ErrTotalMismatch, in.ExpectedTotal, out.TotalCents)
	}

	if err := tx.QueryRow(ctx, `
INSERT INTO orders (user_id, status, payment_method, total_cents, currency, shipping_address)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id::text, created_at
`, out.UserID, out.Status, string(out.PaymentMethod), out.TotalCents, out.Currency, out.Address).Scan(&out.ID, &out.CreatedAt); err != nil {
		return nil, err
	}

	for _, l := range out.Lines {
		if _, err := tx.Exec(ctx, `
INSERT INTO order_lines (order_id, item_id, is_product, name, quantity, unit_price_cents)
VALUES ($1, $2, $3, $4, $5, $6)
`, out.ID, l.Item.ID, l.Item.IsProduct(), l.Name, l.Quantity, l.UnitPrice); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *postgresRepo) Get(ctx context.Context, userID, id string) (*domain.Order, error) {
	const q = `
SELECT id::text, user_id::text, status, payment_method, COALESCE(payment_ref, ''), total_cents, currency, shipping_address, created_at
FROM orders
WHERE id = $1 AND user_id = $2
`
	var (
		out    domain.Order
		method string
	)
	err := r.pool.QueryRow(ctx, q, id, userID).Scan(
		&out.ID,
		&out.UserID,
		&out.Status,
		&method,
		&out.PaymentRef,
		&out.TotalCents,
		&out.Currency,
		&out.Address,
		&out.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
		}
		return nil, err
	}
	out.PaymentMethod = domain.PaymentMethod(method)

	rows, err := r.pool.Query(ctx, `
SELECT item_id::text, is_product, name, quantity, unit_price_cents
FROM order_lines
WHERE order_id = $1
ORDER BY name ASC
`, out.ID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			l         domain.OrderLine
			itemID    string
			isProduct bool
		)
		if err := rows.Scan(&itemID, &isProduct, &l.Name, &l.Quantity, &l.UnitPrice); err != nil {
			return nil, err
		}
		l.Item = domain.RefFor(itemID, isProduct)
		out.Lines = append(out.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkPaymentStarted records the provider reference of an unpaid online order.
func (r *postgresRepo) MarkPaymentStarted(ctx context.Context, userID, id, paymentRef string) error {
	cmd, err := r.pool.Exec(ctx, `
UPDATE orders
SET status = $1, payment_ref = $2
WHERE id = $3 AND user_id = $4 AND payment_method = 'online' AND status IN ($5, $1)
`, domain.OrderStatusAwaitingPayment, paymentRef, id, userID, domain.OrderStatusPending)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return fmt.Errorf("unpaid order %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func statusFor(m domain.PaymentMethod) string {
	if m == domain.PaymentCashOnDelivery {
		return domain.OrderStatusConfirmed
	}
	return domain.OrderStatusPending
}

// mergeLines sums duplicate items and orders them by key so concurrent orders
// lock catalog rows in the same sequence.
func mergeLines(in []LineInput) ([]LineInput, error) {
	if len(in) == 0 {
		return nil, domain.ErrEmptySelection
	}
	byKey := make(map[string]*LineInput, len(in))
	keys := make([]string, 0, len(in))
	for _, l := range in {
		if !l.Item.Valid() {
			return nil, fmt.Errorf("invalid item reference %q: %w", l.Item.ID, domain.ErrNotFound)
		}
		if l.Quantity < 1 {
			return nil, domain.ErrInvalidQuantity
		}
		k := l.Item.Key()
		if existing, ok := byKey[k]; ok {
			existing.Quantity += l.Quantity
			continue
		}
		copied := l
		byKey[k] = &copied
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]LineInput, 0, len(keys))
	for _, k := range keys {
		out = append(out, *byKey[k])
	}
	return out, nil
}
