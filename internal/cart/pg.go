package cart

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) GetCart(ctx context.Context, id string) (Cart, error) {
	var c Cart
	err := s.DB.QueryRow(ctx, `
		SELECT id, user_id, active, created_at, updated_at
		FROM carts WHERE id=$1`, id).
		Scan(&c.ID, &c.UserID, &c.Active, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Cart{}, ErrNotFound
	}
	if err != nil {
		return Cart{}, err
	}
	return c, nil
}

func (s *PgStore) Lines(ctx context.Context, cartID string) ([]Line, error) {
	rows, err := s.DB.Query(ctx, `
		SELECT id, cart_id, product_id, qty, unit_price_cents
		FROM cart_lines WHERE cart_id=$1 ORDER BY product_id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Line
	for rows.Next() {
		var l Line
		if err := rows.Scan(&l.ID, &l.CartID, &l.ProductID, &l.Qty, &l.UnitPriceCents); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// ClearLines: kosongkan isi cart (cart-nya tetap ada), dipanggil setelah
// order berhasil dibuat.
func (s *PgStore) ClearLines(ctx context.Context, cartID string) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `DELETE FROM cart_lines WHERE cart_id=$1`, cartID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE carts SET updated_at=now() WHERE id=$1`, cartID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// DeactivateIdle: sweep background; cart aktif yang tidak disentuh sejak
// cutoff dinonaktifkan. Return jumlah cart yang kena.
func (s *PgStore) DeactivateIdle(ctx context.Context, cutoff time.Time) (int64, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE carts SET active=false, updated_at=now()
		WHERE active AND updated_at < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return ct.RowsAffected(), nil
}
