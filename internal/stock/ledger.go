package stock

import "context"

// Ledger: satu-satunya pintu perubahan available/reserved/sold saat checkout.
// Kontrak penting:
//   - Reserve/ReserveAll: stok kurang = hasil normal (false), bukan error.
//   - ReserveAll: all-or-nothing; kalau ada satu item gagal, item yang sudah
//     sukses di call yang sama dilepas lagi sebelum return.
//   - Semua operasi conditional (quantity/version check), loser dari race
//     cuma lihat state terkini, counter tidak pernah korup.
type Ledger interface {
	// Reserve satu item: available -= qty, reserved += qty, syarat available >= qty.
	Reserve(ctx context.Context, productID string, qty int) (bool, error)

	// ReserveAll: reserve semua item atau tidak sama sekali.
	ReserveAll(ctx context.Context, items []ItemQty) (bool, []Shortfall, error)

	// ReleaseAll: kompensasi reservasi yang sudah sukses (checkout gagal/cancel).
	ReleaseAll(ctx context.Context, items []ItemQty) error

	// CommitSold: konversi reserved -> sold saat order berhasil dibuat.
	CommitSold(ctx context.Context, items []ItemQty) error

	// Adjust: restock/koreksi admin, delta boleh negatif. ok=false kalau
	// hasilnya bikin available negatif.
	Adjust(ctx context.Context, productID string, delta int) (Record, bool, error)

	Get(ctx context.Context, productID string) (Record, error)
}
