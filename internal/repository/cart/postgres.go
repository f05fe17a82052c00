package cart

import (
	"context"
	"errors"
	"fmt"

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

func (r *postgresRepo) Lines(ctx context.Context, userID string) ([]domain.CartLine, error) {
	const q = `
SELECT cl.id::text, cl.item_id::text, cl.is_product, cl.quantity,
       COALESCE(p.name, s.name, ''),
       COALESCE(p.price_cents, s.price_cents, 0),
       COALESCE(p.stock, s.stock, 0),
       COALESCE(p.brand, s.brand, '')
FROM cart_lines cl
LEFT JOIN products p ON cl.is_product AND p.id = cl.item_id
LEFT JOIN supplies s ON NOT cl.is_product AND s.id = cl.item_id
WHERE cl.user_id = $1
ORDER BY cl.created_at ASC, cl.id ASC
`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []domain.CartLine{}
	for rows.Next() {
		var (
			line      domain.CartLine
			itemID    string
			isProduct bool
		)
		if err := rows.Scan(
			&line.ID,
			&itemID,
			&isProduct,
			&line.Quantity,
			&line.Name,
			&line.UnitPrice,
			&line.AvailableStock,
			&line.Brand,
		); err != nil {
			return nil, err
		}
		line.Item = domain.RefFor(itemID, isProduct)
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lines, nil
}

func (r *postgresRepo) Add(ctx context.Context, userID string, ref domain.ItemRef, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	stock, err := itemStock(ctx, tx, ref)
	if err != nil {
		return err
	}

	var existing int
	err = tx.QueryRow(ctx, `
SELECT quantity
FROM cart_lines
WHERE user_id = $1 AND item_id = $2 AND is_product = $3
FOR UPDATE
`, userID, ref.ID, ref.IsProduct()).Scan(&existing)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return err
	}

	if err := checkStock(ref, existing+quantity, stock); err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `
INSERT INTO cart_lines (user_id, item_id, is_product, quantity)
VALUES ($1, $2, $3, $4)
ON CONFLICT (user_id, item_id, is_product)
DO UPDATE SET quantity = cart_lines.quantity + EXCLUDED.quantity, updated_at = now()
`, userID, ref.ID, ref.IsProduct(), quantity); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) SetQuantity(ctx context.Context, userID string, ref domain.ItemRef, quantity int) error {
	if quantity < 1 {
		return domain.ErrInvalidQuantity
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	stock, err := itemStock(ctx, tx, ref)
	if err != nil {
		return err
	}
	if err := checkStock(ref, quantity, stock); err != nil {
		return err
	}

	cmd, err := tx.Exec(ctx, `
UPDATE cart_lines
SET quantity = $1, updated_at = now()
WHERE user_id = $2 AND item_id = $3 AND is_product = $4
`, quantity, userID, ref.ID, ref.IsProduct())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return tx.Commit(ctx)
}

func (r *postgresRepo) Remove(ctx context.Context, userID string, ref domain.ItemRef) error {
	cmd, err := r.pool.Exec(ctx, `
DELETE FROM cart_lines
WHERE user_id = $1 AND item_id = $2 AND is_product = $3
`, userID, ref.ID, ref.IsProduct())
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *postgresRepo) Clear(ctx context.Context, userID string) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM cart_lines WHERE user_id = $1`, userID)
	return err
}

func (r *postgresRepo) RemoveLines(ctx context.Context, userID string, lineIDs []string) (int, error) {
	if len(lineIDs) == 0 {
		return 0, nil
	}
	cmd, err := r.pool.Exec(ctx, `
DELETE FROM cart_lines
WHERE user_id = $1 AND id = ANY($2::uuid[])
`, userID, lineIDs)
	if err != nil {
		return 0, err
	}
	return int(cmd.RowsAffected()), nil
}

func itemStock(ctx context.Context, tx pgx.Tx, ref domain.ItemRef) (int, error) {
	q := fmt.Sprintf(`SELECT stock FROM %s WHERE id = $1 FOR SHARE`, ref.Kind.Collection())
	var stock int
	if err := tx.QueryRow(ctx, q, ref.ID).Scan(&stock); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("%s %s: %w", ref.Kind, ref.ID, domain.ErrNotFound)
		}
		return 0, err
	}
	return stock, nil
}

func checkStock(ref domain.ItemRef, want, stock int) error {
	if want > stock {
		return &domain.InsufficientStockError{Item: ref, Requested: want, Available: stock}
	}
	return nil
}
