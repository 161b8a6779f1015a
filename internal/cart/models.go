package cart

import (
	"errors"
	"time"
)

var (
	ErrNotFound  = errors.New("cart not found")
	ErrForbidden = errors.New("cart owned by another user")
)

// Cart: dimiliki user (atau anonymous session id). Checkout sukses cuma
// mengosongkan line-nya, cart-nya sendiri tidak dihapus; cart idle
// dinonaktifkan oleh sweeper.
type Cart struct {
	ID        string
	UserID    string
	Active    bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Line: qty + unit price yang di-capture waktu add-to-cart. Harga ini yang
// dipakai pricing checkout, bukan harga katalog live (hindari price drift
// di tengah checkout).
type Line struct {
	ID             string
	CartID         string
	ProductID      string
	Qty            int
	UnitPriceCents int64
}
