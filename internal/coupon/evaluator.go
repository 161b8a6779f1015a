package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Reason strings: dikembalikan apa adanya ke client, jadi harus spesifik.
const (
	ReasonNotFound     = "coupon not found"
	ReasonInactive     = "coupon is not active"
	ReasonNotStarted   = "coupon is not valid yet"
	ReasonExpired      = "coupon has expired"
	ReasonAlreadyUsed  = "coupon already used"
	ReasonLimitReached = "coupon usage limit reached"
)

// Store: akses read utk evaluator (evaluator tidak pernah nulis).
type Store interface {
	GetByCode(ctx context.Context, code string) (Coupon, error)
	UsageCountForUser(ctx context.Context, couponID, userID string) (int, error)
}

type Result struct {
	Valid         bool
	Reason        string
	DiscountCents int64
	Coupon        Coupon
}

// Evaluator: validasi + hitung diskon, tanpa side effect. Boleh dipanggil
// berkali-kali (preview lalu commit) tanpa mengubah state apa pun.
type Evaluator struct {
	Store Store
	Now   func() time.Time // nil = time.Now
}

func (e *Evaluator) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Evaluator) Validate(ctx context.Context, code string, subtotalCents int64, userID string) (Result, error) {
	c, err := e.Store.GetByCode(ctx, code)
	if errors.Is(err, ErrNotFound) {
		return Result{Reason: ReasonNotFound}, nil
	}
	if err != nil {
		return Result{}, err
	}

	now := e.now()
	switch {
	case !c.Active:
		return Result{Reason: ReasonInactive}, nil
	case now.Before(c.StartAt):
		return Result{Reason: ReasonNotStarted}, nil
	case now.After(c.EndAt):
		return Result{Reason: ReasonExpired}, nil
	}

	if c.MinPurchaseCents > 0 && subtotalCents < c.MinPurchaseCents {
		return Result{Reason: fmt.Sprintf("minimum purchase of %d required", c.MinPurchaseCents)}, nil
	}

	if c.SingleUse {
		n, err := e.Store.UsageCountForUser(ctx, c.ID, userID)
		if err != nil {
			return Result{}, err
		}
		if n > 0 {
			return Result{Reason: ReasonAlreadyUsed}, nil
		}
	}

	if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
		return Result{Reason: ReasonLimitReached}, nil
	}

	return Result{Valid: true, DiscountCents: c.DiscountFor(subtotalCents), Coupon: c}, nil
}
