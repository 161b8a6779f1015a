package cart

import (
	"context"
	"time"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/coupon"
)

// Store: kontrak read yang dibutuhkan snapshot reader.
type Store interface {
	GetCart(ctx context.Context, id string) (Cart, error)
	Lines(ctx context.Context, cartID string) ([]Line, error)
}

// Snapshot: potret isi cart + total pada satu titik waktu. Reader tidak
// pegang lock apa pun; mutasi konkuren ke cart cuma bikin snapshot berikutnya
// beda, bukan bikin yang ini korup.
type Snapshot struct {
	CartID        string    `json:"cart_id"`
	Lines         []Line    `json:"lines"`
	SubtotalCents int64     `json:"subtotal_cents"`
	DiscountCents int64     `json:"discount_cents"`
	CouponReason  string    `json:"coupon_reason,omitempty"` // terisi kalau preview coupon gagal
	CapturedAt    time.Time `json:"captured_at"`
}

type Reader struct {
	Carts   Store
	Coupons *coupon.Evaluator
}

// Totals: hitung subtotal dari line cart + preview diskon kalau couponCode
// diisi. Dipakai query "view cart totals" dan internal orchestrator.
func (r *Reader) Totals(ctx context.Context, cartID, userID, couponCode string) (Snapshot, error) {
	c, err := r.Carts.GetCart(ctx, cartID)
	if err != nil {
		return Snapshot{}, err
	}
	if c.UserID != userID {
		return Snapshot{}, ErrForbidden
	}

	lines, err := r.Carts.Lines(ctx, cartID)
	if err != nil {
		return Snapshot{}, err
	}

	snap := Snapshot{CartID: cartID, Lines: lines, CapturedAt: time.Now().UTC()}
	for _, l := range lines {
		snap.SubtotalCents += l.UnitPriceCents * int64(l.Qty)
	}

	if couponCode != "" {
		res, err := r.Coupons.Validate(ctx, couponCode, snap.SubtotalCents, userID)
		if err != nil {
			return Snapshot{}, err
		}
		if res.Valid {
			snap.DiscountCents = res.DiscountCents
		} else {
			snap.CouponReason = res.Reason
		}
	}
	return snap, nil
}
