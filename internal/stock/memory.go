package stock

import (
	"context"
	"sync"
	"time"
)

// MemLedger: implementasi Ledger in-memory dengan semantik sama persis
// dengan PgLedger (conditional check-and-update per record). Dipakai di test
// dan mode dev tanpa Postgres.
type MemLedger struct {
	mu sync.Mutex
	m  map[string]*Record
}

func NewMemLedger() *MemLedger {
	return &MemLedger{m: make(map[string]*Record)}
}

// Seed: set stok awal sebuah product (available penuh, reserved/sold nol).
func (l *MemLedger) Seed(productID string, available int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.m[productID] = &Record{ProductID: productID, Available: available, UpdatedAt: time.Now()}
}

func (l *MemLedger) Reserve(ctx context.Context, productID string, qty int) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reserveLocked(productID, qty), nil
}

func (l *MemLedger) reserveLocked(productID string, qty int) bool {
	rec, ok := l.m[productID]
	if !ok || qty <= 0 || rec.Available < qty {
		return false
	}
	rec.Available -= qty
	rec.Reserved += qty
	rec.Version++
	rec.UpdatedAt = time.Now()
	return true
}

func (l *MemLedger) ReserveAll(ctx context.Context, items []ItemQty) (bool, []Shortfall, error) {
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	sorted := SortItems(items)
	var done []ItemQty
	var shorts []Shortfall
	for _, it := range sorted {
		if l.reserveLocked(it.ProductID, it.Qty) {
			done = append(done, it)
			continue
		}
		var avail int
		if rec, ok := l.m[it.ProductID]; ok {
			avail = rec.Available
		}
		shorts = append(shorts, Shortfall{ProductID: it.ProductID, Required: it.Qty, Available: avail})
	}
	if len(shorts) > 0 {
		// lepas lagi yang terlanjur sukses di call ini
		for _, it := range done {
			l.releaseLocked(it.ProductID, it.Qty)
		}
		return false, shorts, nil
	}
	return true, nil, nil
}

func (l *MemLedger) releaseLocked(productID string, qty int) {
	rec, ok := l.m[productID]
	if !ok || rec.Reserved < qty {
		return
	}
	rec.Available += qty
	rec.Reserved -= qty
	rec.Version++
	rec.UpdatedAt = time.Now()
}

func (l *MemLedger) ReleaseAll(ctx context.Context, items []ItemQty) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, it := range SortItems(items) {
		l.releaseLocked(it.ProductID, it.Qty)
	}
	return nil
}

func (l *MemLedger) CommitSold(ctx context.Context, items []ItemQty) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, it := range SortItems(items) {
		rec, ok := l.m[it.ProductID]
		if !ok || rec.Reserved < it.Qty {
			return ErrNotFound
		}
		rec.Reserved -= it.Qty
		rec.Sold += it.Qty
		rec.Version++
		rec.UpdatedAt = time.Now()
	}
	return nil
}

func (l *MemLedger) Adjust(ctx context.Context, productID string, delta int) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.m[productID]
	if !ok {
		return Record{}, false, ErrNotFound
	}
	if rec.Available+delta < 0 {
		return *rec, false, nil
	}
	rec.Available += delta
	rec.Version++
	rec.UpdatedAt = time.Now()
	return *rec, true, nil
}

func (l *MemLedger) Get(ctx context.Context, productID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	rec, ok := l.m[productID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return *rec, nil
}
