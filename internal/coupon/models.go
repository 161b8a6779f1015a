package coupon

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("coupon not found")

type DiscountType string

const (
	DiscountPercentage DiscountType = "PERCENTAGE"
	DiscountFixed      DiscountType = "FIXED"
)

type Coupon struct {
	ID    string
	Code  string
	Type  DiscountType
	Value int64 // persen utk PERCENTAGE, cents utk FIXED

	MinPurchaseCents int64 // 0 = tanpa minimum
	MaxDiscountCents int64 // cap utk PERCENTAGE; 0 = tanpa cap
	UsageLimit       int   // global cap; 0 = unlimited
	UsedCount        int
	SingleUse        bool // max sekali per user

	StartAt time.Time
	EndAt   time.Time
	Active  bool
}

// Usage: append-only, ditulis tepat sekali per order yang pakai coupon.
type Usage struct {
	ID              string
	CouponID        string
	UserID          string
	OrderID         string
	DiscountCents   int64
	OrderTotalCents int64
	UsedAt          time.Time
}

// DiscountFor: hitung diskon utk subtotal tertentu. Hasil selalu di-clamp ke
// [0, subtotal] — diskon tidak boleh bikin total payable negatif.
func (c Coupon) DiscountFor(subtotalCents int64) int64 {
	var d int64
	switch c.Type {
	case DiscountPercentage:
		d = subtotalCents * c.Value / 100
		if c.MaxDiscountCents > 0 && d > c.MaxDiscountCents {
			d = c.MaxDiscountCents
		}
	default:
		d = c.Value
	}
	if d < 0 {
		d = 0
	}
	if d > subtotalCents {
		d = subtotalCents
	}
	return d
}
