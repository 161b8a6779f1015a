package order

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("order not found")

type Status string

const (
	StatusCreated   Status = "CREATED"
	StatusPaid      Status = "PAID"
	StatusShipped   Status = "SHIPPED"
	StatusCompleted Status = "COMPLETED"
	StatusCancelled Status = "CANCELLED"
)

// Order: immutable setelah dibuat kecuali transisi status (itu urusan
// service lain). Nama & harga product di-snapshot ke line waktu purchase,
// jadi edit katalog belakangan tidak mengubah order lama.
type Order struct {
	ID                string
	Number            string // unik, human-facing
	UserID            string
	Status            Status
	SubtotalCents     int64
	DiscountCents     int64
	ShippingCents     int64
	TaxCents          int64
	TotalCents        int64
	ShippingAddressID string
	BillingAddressID  string
	CouponCode        string
	Notes             string
	CreatedAt         time.Time
}

type Line struct {
	ID             string
	OrderID        string
	ProductID      string
	ProductName    string
	Qty            int
	UnitPriceCents int64
	TotalCents     int64
}
