package order

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/coupon"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct{ DB *pgxpool.Pool }

// NextOrderNumber: ORD-{yyyymmdd}-{8 hex}. Collision praktis tidak terjadi,
// tapi tetap dicek; unique index di kolom number jadi jaring terakhir.
func (s *PgStore) NextOrderNumber(ctx context.Context) (string, error) {
	for i := 0; i < 3; i++ {
		num := fmt.Sprintf("ORD-%s-%s",
			time.Now().UTC().Format("20060102"),
			strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8]))
		var exists bool
		err := s.DB.QueryRow(ctx,
			`SELECT EXISTS(SELECT 1 FROM orders WHERE number=$1)`, num).Scan(&exists)
		if err != nil {
			return "", err
		}
		if !exists {
			return num, nil
		}
	}
	return "", errors.New("order number collision")
}

// Create: order + lines + coupon usage (kalau ada) dalam SATU tx. Tidak boleh
// ada order tanpa line, atau usage row tanpa order.
func (s *PgStore) Create(ctx context.Context, o Order, lines []Line, usage *coupon.Usage) error {
	tx, err := s.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO orders(id, number, user_id, status, subtotal_cents, discount_cents,
		                   shipping_cents, tax_cents, total_cents,
		                   shipping_address_id, billing_address_id, coupon_code, notes, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		o.ID, o.Number, o.UserID, o.Status, o.SubtotalCents, o.DiscountCents,
		o.ShippingCents, o.TaxCents, o.TotalCents,
		o.ShippingAddressID, o.BillingAddressID, o.CouponCode, o.Notes, o.CreatedAt)
	if err != nil {
		return err
	}

	for _, l := range lines {
		_, err = tx.Exec(ctx, `
			INSERT INTO order_lines(id, order_id, product_id, product_name, qty,
			                        unit_price_cents, total_cents)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			l.ID, l.OrderID, l.ProductID, l.ProductName, l.Qty, l.UnitPriceCents, l.TotalCents)
		if err != nil {
			return err
		}
	}

	if usage != nil {
		_, err = tx.Exec(ctx, `
			INSERT INTO coupon_usages(id, coupon_id, user_id, order_id,
			                          discount_cents, order_total_cents, used_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			usage.ID, usage.CouponID, usage.UserID, usage.OrderID,
			usage.DiscountCents, usage.OrderTotalCents, usage.UsedAt)
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

func (s *PgStore) Get(ctx context.Context, id string) (Order, error) {
	var o Order
	err := s.DB.QueryRow(ctx, `
		SELECT id, number, user_id, status, subtotal_cents, discount_cents,
		       shipping_cents, tax_cents, total_cents,
		       shipping_address_id, billing_address_id, coupon_code, notes, created_at
		FROM orders WHERE id=$1`, id).
		Scan(&o.ID, &o.Number, &o.UserID, &o.Status, &o.SubtotalCents, &o.DiscountCents,
			&o.ShippingCents, &o.TaxCents, &o.TotalCents,
			&o.ShippingAddressID, &o.BillingAddressID, &o.CouponCode, &o.Notes, &o.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	if err != nil {
		return Order{}, err
	}
	return o, nil
}
