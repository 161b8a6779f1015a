package redisx

import "time"

const (
	// Cache status order: order_status:{order_id} -> {"status": "...", "number": "..."}
	KeyOrderStatus = "order_status:%s"

	// Cache preview total cart: cart_totals:{cart_id}:{coupon_code} (coupon boleh kosong)
	KeyCartTotals = "cart_totals:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLCartTotals  = 30 * time.Second
	TTLDedup       = 48 * time.Hour
)
