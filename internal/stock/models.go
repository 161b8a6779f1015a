package stock

import (
	"errors"
	"sort"
	"time"
)

var ErrNotFound = errors.New("stock record not found")

// Record: counter stok per product. Semua mutasi lewat conditional update
// (available/version check), tidak ada path lain yang boleh nulis langsung.
type Record struct {
	ProductID string
	Available int
	Reserved  int
	Sold      int
	Version   int64
	UpdatedAt time.Time
}

// ItemQty: satu baris permintaan reservasi (transient, tidak dipersist).
type ItemQty struct {
	ProductID string `json:"product_id"`
	Qty       int    `json:"qty"`
}

// Shortfall: detail item yang gagal di-reserve.
type Shortfall struct {
	ProductID string `json:"product_id"`
	Required  int    `json:"required"`
	Available int    `json:"available"`
}

// SortItems: urutan attempt harus deterministik (by product id) supaya dua
// multi-reserve yang overlap tidak saling deadlock/livelock.
func SortItems(items []ItemQty) []ItemQty {
	out := make([]ItemQty, len(items))
	copy(out, items)
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
