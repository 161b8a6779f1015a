package events

import (
	"encoding/json"
	"time"
)

const (
	EventOrderCompleted       = "OrderCompleted"
	EventStockAdjustRequested = "StockAdjustRequested"
	EventStockAdjusted        = "StockAdjusted"
	EventStockAdjustRejected  = "StockAdjustRejected"
)

type Envelope struct {
	EventID       string          `json:"event_id"`      // uuid
	EventType     string          `json:"event_type"`    // salah satu const di atas
	EventVersion  int             `json:"event_version"` // 1
	OccurredAt    time.Time       `json:"occurred_at"`   // RFC3339
	Producer      string          `json:"producer"`      // e.g., "checkout-api"
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order_id / product_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- Payload tipe per event ----

type OrderLineExport struct {
	ProductID      string `json:"product_id"`
	ProductName    string `json:"product_name"`
	Qty            int    `json:"qty"`
	UnitPriceCents int64  `json:"unit_price_cents"`
}

// OrderCompletedPayload diekspor ke boundary ERP; pipeline sync-nya di luar
// repo ini, kita cuma publish.
type OrderCompletedPayload struct {
	OrderID       string            `json:"order_id"`
	OrderNumber   string            `json:"order_number"`
	UserID        string            `json:"user_id"`
	Lines         []OrderLineExport `json:"lines"`
	SubtotalCents int64             `json:"subtotal_cents"`
	DiscountCents int64             `json:"discount_cents"`
	ShippingCents int64             `json:"shipping_cents"`
	TaxCents      int64             `json:"tax_cents"`
	TotalCents    int64             `json:"total_cents"`
	CouponCode    string            `json:"coupon_code,omitempty"`
}

// StockAdjustRequestedPayload: restock/koreksi stok dari sisi admin/ERP.
// Delta boleh negatif (koreksi turun), apply-nya tetap conditional update.
type StockAdjustRequestedPayload struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason,omitempty"` // e.g., RESTOCK, CORRECTION
}

type StockAdjustedPayload struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
	Available int    `json:"available"`
	Version   int64  `json:"version"`
}

type StockAdjustRejectedPayload struct {
	ProductID string `json:"product_id"`
	Delta     int    `json:"delta"`
	Reason    string `json:"reason"` // e.g., WOULD_GO_NEGATIVE, NOT_FOUND
}
