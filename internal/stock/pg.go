package stock

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PgLedger: implementasi Ledger di atas Postgres. Tidak pakai FOR UPDATE;
// semua mutasi berupa satu UPDATE conditional (available/reserved/version
// di WHERE clause), jadi check-and-update atomik per row.
type PgLedger struct{ DB *pgxpool.Pool }

const adjustRetries = 3

func (l *PgLedger) Reserve(ctx context.Context, productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, errors.New("qty must be positive")
	}
	ct, err := l.DB.Exec(ctx, `
		UPDATE stock
		SET available = available - $2, reserved = reserved + $2,
		    version = version + 1, updated_at = now()
		WHERE product_id = $1 AND available >= $2`, productID, qty)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// ReserveAll: satu tx utk semua item, urut by product id. Item yang kurang
// stok dicatat sebagai shortfall; kalau ada satu saja, seluruh tx di-rollback
// via defer sehingga tidak ada prefix yang nyangkut ke-reserve.
func (l *PgLedger) ReserveAll(ctx context.Context, items []ItemQty) (bool, []Shortfall, error) {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var shorts []Shortfall
	for _, it := range SortItems(items) {
		if it.Qty <= 0 {
			return false, nil, errors.New("qty must be positive")
		}
		ct, err := tx.Exec(ctx, `
			UPDATE stock
			SET available = available - $2, reserved = reserved + $2,
			    version = version + 1, updated_at = now()
			WHERE product_id = $1 AND available >= $2`, it.ProductID, it.Qty)
		if err != nil {
			return false, nil, err
		}
		if ct.RowsAffected() == 1 {
			continue
		}
		// stok kurang (atau product belum punya row stok): catat available terkini
		var avail int
		err = tx.QueryRow(ctx, `SELECT available FROM stock WHERE product_id=$1`, it.ProductID).Scan(&avail)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return false, nil, err
		}
		shorts = append(shorts, Shortfall{ProductID: it.ProductID, Required: it.Qty, Available: avail})
	}

	if len(shorts) > 0 {
		return false, shorts, nil // rollback via defer
	}
	if err := tx.Commit(ctx); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

func (l *PgLedger) ReleaseAll(ctx context.Context, items []ItemQty) error {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, it := range SortItems(items) {
		ct, err := tx.Exec(ctx, `
			UPDATE stock
			SET available = available + $2, reserved = reserved - $2,
			    version = version + 1, updated_at = now()
			WHERE product_id = $1 AND reserved >= $2`, it.ProductID, it.Qty)
		if err != nil {
			return err
		}
		if ct.RowsAffected() != 1 {
			return errors.New("release exceeds reserved for product " + it.ProductID)
		}
	}
	return tx.Commit(ctx)
}

func (l *PgLedger) CommitSold(ctx context.Context, items []ItemQty) error {
	tx, err := l.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for _, it := range SortItems(items) {
		ct, err := tx.Exec(ctx, `
			UPDATE stock
			SET reserved = reserved - $2, sold = sold + $2,
			    version = version + 1, updated_at = now()
			WHERE product_id = $1 AND reserved >= $2`, it.ProductID, it.Qty)
		if err != nil {
			return err
		}
		if ct.RowsAffected() != 1 {
			return errors.New("commit exceeds reserved for product " + it.ProductID)
		}
	}
	return tx.Commit(ctx)
}

// Adjust: CAS loop di version. Restock admin lewat sini juga supaya compose
// aman dengan reservasi yang jalan bareng, bukan overwrite buta.
func (l *PgLedger) Adjust(ctx context.Context, productID string, delta int) (Record, bool, error) {
	for i := 0; i < adjustRetries; i++ {
		rec, err := l.Get(ctx, productID)
		if err != nil {
			return Record{}, false, err
		}
		next := rec.Available + delta
		if next < 0 {
			return rec, false, nil
		}
		ct, err := l.DB.Exec(ctx, `
			UPDATE stock
			SET available = $2, version = version + 1, updated_at = now()
			WHERE product_id = $1 AND version = $3`, productID, next, rec.Version)
		if err != nil {
			return Record{}, false, err
		}
		if ct.RowsAffected() == 1 {
			rec.Available = next
			rec.Version++
			return rec, true, nil
		}
		// version bergeser (ada reserve/release nyelip), coba lagi
	}
	return Record{}, false, errors.New("adjust contention for product " + productID)
}

func (l *PgLedger) Get(ctx context.Context, productID string) (Record, error) {
	var rec Record
	err := l.DB.QueryRow(ctx, `
		SELECT product_id, available, reserved, sold, version, updated_at
		FROM stock WHERE product_id=$1`, productID).
		Scan(&rec.ProductID, &rec.Available, &rec.Reserved, &rec.Sold, &rec.Version, &rec.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}
