package catalog

import (
	"errors"
	"time"
)

var ErrNotFound = errors.New("product not found")

// Product: dibaca checkout cuma utk cek active + snapshot nama. Display price
// tidak dipakai utk pricing (pricing pakai harga yang ke-capture di cart line).
type Product struct {
	ID         string
	SKU        string
	Name       string
	PriceCents int64
	Active     bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
