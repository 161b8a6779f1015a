package coupon

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgStore struct{ DB *pgxpool.Pool }

func (s *PgStore) GetByCode(ctx context.Context, code string) (Coupon, error) {
	var c Coupon
	err := s.DB.QueryRow(ctx, `
		SELECT id, code, discount_type, value_cents, min_purchase_cents,
		       max_discount_cents, usage_limit, used_count, single_use,
		       start_at, end_at, active
		FROM coupons WHERE code=$1`, code).
		Scan(&c.ID, &c.Code, &c.Type, &c.Value, &c.MinPurchaseCents,
			&c.MaxDiscountCents, &c.UsageLimit, &c.UsedCount, &c.SingleUse,
			&c.StartAt, &c.EndAt, &c.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Coupon{}, ErrNotFound
	}
	if err != nil {
		return Coupon{}, err
	}
	return c, nil
}

func (s *PgStore) UsageCountForUser(ctx context.Context, couponID, userID string) (int, error) {
	var n int
	err := s.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM coupon_usages WHERE coupon_id=$1 AND user_id=$2`,
		couponID, userID).Scan(&n)
	return n, err
}

// TryConsume: increment used_count conditional, supaya dua order yang pakai
// coupon yang sama dekat limit tidak saling lost-update. false = limit habis.
func (s *PgStore) TryConsume(ctx context.Context, couponID string) (bool, error) {
	ct, err := s.DB.Exec(ctx, `
		UPDATE coupons SET used_count = used_count + 1
		WHERE id=$1 AND (usage_limit = 0 OR used_count < usage_limit)`, couponID)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

// ReleaseUse: kompensasi TryConsume kalau order-nya batal dibuat.
func (s *PgStore) ReleaseUse(ctx context.Context, couponID string) error {
	_, err := s.DB.Exec(ctx, `
		UPDATE coupons SET used_count = used_count - 1
		WHERE id=$1 AND used_count > 0`, couponID)
	return err
}
