package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/address"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/cart"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/catalog"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/coupon"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/order"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/stock"
	"go.uber.org/zap"
)

// ---- fakes (gaya in-memory store, mutex-guarded) ----

type fakeCarts struct {
	mu      sync.Mutex
	carts   map[string]cart.Cart
	lines   map[string][]cart.Line
	cleared map[string]bool
}

func (f *fakeCarts) GetCart(_ context.Context, id string) (cart.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[id]
	if !ok {
		return cart.Cart{}, cart.ErrNotFound
	}
	return c, nil
}

func (f *fakeCarts) Lines(_ context.Context, cartID string) ([]cart.Line, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lines[cartID], nil
}

func (f *fakeCarts) ClearLines(_ context.Context, cartID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines[cartID] = nil
	f.cleared[cartID] = true
	return nil
}

type fakeAddresses struct{ addrs map[string]address.Address }

func (f *fakeAddresses) GetAddress(_ context.Context, id string) (address.Address, error) {
	a, ok := f.addrs[id]
	if !ok {
		return address.Address{}, address.ErrNotFound
	}
	return a, nil
}

type fakeProducts struct{ prods map[string]catalog.Product }

func (f *fakeProducts) GetProduct(_ context.Context, id string) (catalog.Product, error) {
	p, ok := f.prods[id]
	if !ok {
		return catalog.Product{}, catalog.ErrNotFound
	}
	return p, nil
}

type createdOrder struct {
	order order.Order
	lines []order.Line
	usage *coupon.Usage
}

type fakeOrders struct {
	mu         sync.Mutex
	created    []createdOrder
	seq        int
	failCreate error
	numberHook func(ctx context.Context) error
}

func (f *fakeOrders) NextOrderNumber(ctx context.Context) (string, error) {
	if f.numberHook != nil {
		if err := f.numberHook(ctx); err != nil {
			return "", err
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	return "ORD-TEST-" + string(rune('A'+f.seq-1)), nil
}

func (f *fakeOrders) Create(_ context.Context, o order.Order, lines []order.Line, usage *coupon.Usage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	f.created = append(f.created, createdOrder{order: o, lines: lines, usage: usage})
	return nil
}

type fakeCoupons struct {
	mu        sync.Mutex
	byCode    map[string]*coupon.Coupon
	usages    map[string]int // couponID:userID
	consumeOK bool
	consumed  int
	released  int
}

func (f *fakeCoupons) GetByCode(_ context.Context, code string) (coupon.Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.byCode[code]
	if !ok {
		return coupon.Coupon{}, coupon.ErrNotFound
	}
	return *c, nil
}

func (f *fakeCoupons) UsageCountForUser(_ context.Context, couponID, userID string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usages[couponID+":"+userID], nil
}

func (f *fakeCoupons) TryConsume(_ context.Context, couponID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.consumeOK {
		return false, nil
	}
	for _, c := range f.byCode {
		if c.ID == couponID {
			if c.UsageLimit > 0 && c.UsedCount >= c.UsageLimit {
				return false, nil
			}
			c.UsedCount++
			f.consumed++
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCoupons) ReleaseUse(_ context.Context, couponID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.byCode {
		if c.ID == couponID && c.UsedCount > 0 {
			c.UsedCount--
			f.released++
		}
	}
	return nil
}

// ---- harness ----

type env struct {
	carts   *fakeCarts
	orders  *fakeOrders
	coupons *fakeCoupons
	ledger  *stock.MemLedger
	svc     *Service
}

// newEnv: cart1 milik u1 berisi p1 x2 @100000, stok p1 = 10, address a1
// milik u1, coupon SAVE10 (10%, min purchase 100000).
func newEnv() *env {
	carts := &fakeCarts{
		carts: map[string]cart.Cart{
			"cart1": {ID: "cart1", UserID: "u1", Active: true},
			"cart2": {ID: "cart2", UserID: "u2", Active: true},
			"empty": {ID: "empty", UserID: "u1", Active: true},
		},
		lines: map[string][]cart.Line{
			"cart1": {{ID: "l1", CartID: "cart1", ProductID: "p1", Qty: 2, UnitPriceCents: 100000}},
			"cart2": {{ID: "l2", CartID: "cart2", ProductID: "p1", Qty: 1, UnitPriceCents: 100000}},
		},
		cleared: map[string]bool{},
	}
	addrs := &fakeAddresses{addrs: map[string]address.Address{
		"a1": {ID: "a1", UserID: "u1"},
		"a2": {ID: "a2", UserID: "u2"},
	}}
	prods := &fakeProducts{prods: map[string]catalog.Product{
		"p1": {ID: "p1", Name: "Sepatu Lari", PriceCents: 100000, Active: true},
		"px": {ID: "px", Name: "Arsip", Active: false},
	}}
	ledger := stock.NewMemLedger()
	ledger.Seed("p1", 10)

	orders := &fakeOrders{}
	coupons := &fakeCoupons{
		byCode: map[string]*coupon.Coupon{
			"SAVE10": {
				ID: "c1", Code: "SAVE10", Type: coupon.DiscountPercentage, Value: 10,
				MinPurchaseCents: 100000,
				StartAt:          time.Now().Add(-time.Hour),
				EndAt:            time.Now().Add(time.Hour),
				Active:           true,
			},
			"GONE": {
				ID: "c2", Code: "GONE", Type: coupon.DiscountPercentage, Value: 10,
				StartAt: time.Now().Add(-2 * time.Hour),
				EndAt:   time.Now().Add(-time.Hour),
				Active:  true,
			},
		},
		usages:    map[string]int{},
		consumeOK: true,
	}

	return &env{
		carts: carts, orders: orders, coupons: coupons, ledger: ledger,
		svc: &Service{
			Carts:     carts,
			Addresses: addrs,
			Products:  prods,
			Orders:    orders,
			Coupons:   &coupon.Evaluator{Store: coupons},
			CouponTx:  coupons,
			Ledger:    ledger,
			Log:       zap.NewNop(),
		},
	}
}

func baseReq() Request {
	return Request{
		CartID:            "cart1",
		ShippingAddressID: "a1",
		ShippingCents:     30000,
		TaxRate:           0.09,
	}
}

func (e *env) stockP1(t *testing.T) stock.Record {
	t.Helper()
	rec, err := e.ledger.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get stock: %v", err)
	}
	return rec
}

func wantCode(t *testing.T, err error, code Code) *Failure {
	t.Helper()
	f, ok := AsFailure(err)
	if !ok {
		t.Fatalf("error %v is not a Failure", err)
	}
	if f.Code != code {
		t.Fatalf("code %s, want %s (msg: %s)", f.Code, code, f.Message)
	}
	return f
}

// ---- scenarios ----

func TestCheckoutEndToEnd(t *testing.T) {
	e := newEnv()
	res, err := e.svc.Checkout(context.Background(), "u1", baseReq())
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	sum := res.Summary
	if sum.SubtotalCents != 200000 || sum.TaxCents != 18000 || sum.TotalCents != 248000 {
		t.Fatalf("summary: %+v", sum)
	}
	if sum.DiscountCents != 0 || sum.ShippingCents != 30000 {
		t.Fatalf("summary: %+v", sum)
	}

	rec := e.stockP1(t)
	if rec.Available != 8 || rec.Reserved != 0 || rec.Sold != 2 {
		t.Fatalf("stock: %+v", rec)
	}

	if len(e.orders.created) != 1 {
		t.Fatalf("orders created: %d", len(e.orders.created))
	}
	co := e.orders.created[0]
	if len(co.lines) != 1 || co.lines[0].ProductName != "Sepatu Lari" || co.lines[0].Qty != 2 {
		t.Fatalf("lines: %+v", co.lines)
	}
	if co.order.Number == "" || co.order.BillingAddressID != "a1" {
		t.Fatalf("order: %+v", co.order)
	}
	if co.usage != nil {
		t.Fatalf("usage for couponless order: %+v", co.usage)
	}
	if !e.carts.cleared["cart1"] {
		t.Fatal("cart not cleared")
	}
}

func TestCheckoutWithCoupon(t *testing.T) {
	e := newEnv()
	req := baseReq()
	req.CouponCode = "SAVE10"

	res, err := e.svc.Checkout(context.Background(), "u1", req)
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}

	sum := res.Summary
	// 200000 - 20000 + 30000 + tax(9% dari 180000 = 16200) = 226200
	if sum.DiscountCents != 20000 || sum.TaxCents != 16200 || sum.TotalCents != 226200 {
		t.Fatalf("summary: %+v", sum)
	}

	co := e.orders.created[0]
	if co.usage == nil {
		t.Fatal("coupon usage not recorded")
	}
	if co.usage.OrderID != co.order.ID || co.usage.DiscountCents != 20000 || co.usage.OrderTotalCents != 226200 {
		t.Fatalf("usage: %+v", co.usage)
	}
	if e.coupons.byCode["SAVE10"].UsedCount != 1 {
		t.Fatalf("used count: %d", e.coupons.byCode["SAVE10"].UsedCount)
	}
}

func TestCheckoutValidationFailures(t *testing.T) {
	cases := []struct {
		name string
		user string
		mut  func(*env, *Request)
		code Code
	}{
		{"cart not found", "u1", func(_ *env, r *Request) { r.CartID = "nope" }, CodeCartNotFound},
		{"cart owned by other", "u2", func(_ *env, _ *Request) {}, CodeAccessDenied},
		{"empty cart", "u1", func(_ *env, r *Request) { r.CartID = "empty" }, CodeEmptyCart},
		{"address not found", "u1", func(_ *env, r *Request) { r.ShippingAddressID = "nope" }, CodeAddressNotFound},
		{"address owned by other", "u1", func(_ *env, r *Request) { r.ShippingAddressID = "a2" }, CodeAccessDenied},
		{"billing not found", "u1", func(_ *env, r *Request) { r.BillingAddressID = "nope" }, CodeInvalidBillingAddress},
		{"billing owned by other", "u1", func(_ *env, r *Request) { r.BillingAddressID = "a2" }, CodeInvalidBillingAddress},
		{"product missing", "u1", func(e *env, _ *Request) {
			e.carts.lines["cart1"][0].ProductID = "ghost"
		}, CodeProductUnavailable},
		{"product inactive", "u1", func(e *env, _ *Request) {
			e.carts.lines["cart1"][0].ProductID = "px"
		}, CodeProductUnavailable},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := newEnv()
			req := baseReq()
			tc.mut(e, &req)

			_, err := e.svc.Checkout(context.Background(), tc.user, req)
			wantCode(t, err, tc.code)

			// gagal validasi = belum ada reservasi sama sekali
			rec := e.stockP1(t)
			if rec.Available != 10 || rec.Reserved != 0 || rec.Sold != 0 {
				t.Fatalf("stock touched: %+v", rec)
			}
			if len(e.orders.created) != 0 {
				t.Fatal("order created on failed checkout")
			}
		})
	}
}

func TestCheckoutInsufficientStock(t *testing.T) {
	e := newEnv()
	e.ledger.Seed("p1", 1) // cart minta 2

	_, err := e.svc.Checkout(context.Background(), "u1", baseReq())
	f := wantCode(t, err, CodeInsufficientStock)
	if len(f.Shortfalls) != 1 || f.Shortfalls[0].Required != 2 || f.Shortfalls[0].Available != 1 {
		t.Fatalf("shortfalls: %+v", f.Shortfalls)
	}

	rec := e.stockP1(t)
	if rec.Available != 1 || rec.Reserved != 0 {
		t.Fatalf("stock: %+v", rec)
	}
	if len(e.orders.created) != 0 {
		t.Fatal("order created")
	}
}

// Coupon ditolak SETELAH reserve sukses: reservasi wajib dilepas.
func TestCheckoutInvalidCouponReleasesReservation(t *testing.T) {
	e := newEnv()
	req := baseReq()
	req.CouponCode = "GONE"

	_, err := e.svc.Checkout(context.Background(), "u1", req)
	wantCode(t, err, CodeInvalidCoupon)

	rec := e.stockP1(t)
	if rec.Available != 10 || rec.Reserved != 0 || rec.Sold != 0 {
		t.Fatalf("reservation leaked: %+v", rec)
	}
	if e.carts.cleared["cart1"] {
		t.Fatal("cart cleared on failure")
	}
}

// Race di limit: evaluator lolos tapi TryConsume kalah -> InvalidCoupon + release.
func TestCheckoutCouponConsumeRace(t *testing.T) {
	e := newEnv()
	e.coupons.consumeOK = false
	req := baseReq()
	req.CouponCode = "SAVE10"

	_, err := e.svc.Checkout(context.Background(), "u1", req)
	wantCode(t, err, CodeInvalidCoupon)

	rec := e.stockP1(t)
	if rec.Available != 10 || rec.Reserved != 0 {
		t.Fatalf("reservation leaked: %+v", rec)
	}
}

// Storage gagal waktu commit: release stok + balikin used_count coupon.
func TestCheckoutPersistenceFailureRollsBack(t *testing.T) {
	e := newEnv()
	e.orders.failCreate = errors.New("disk on fire")
	req := baseReq()
	req.CouponCode = "SAVE10"

	_, err := e.svc.Checkout(context.Background(), "u1", req)
	wantCode(t, err, CodePersistenceFailure)

	rec := e.stockP1(t)
	if rec.Available != 10 || rec.Reserved != 0 || rec.Sold != 0 {
		t.Fatalf("reservation leaked: %+v", rec)
	}
	if e.coupons.byCode["SAVE10"].UsedCount != 0 {
		t.Fatalf("coupon count leaked: %d", e.coupons.byCode["SAVE10"].UsedCount)
	}
	if e.carts.cleared["cart1"] {
		t.Fatal("cart cleared on failure")
	}
}

// Retry setelah gagal: attempt gagal tidak ninggalin state tersembunyi.
func TestCheckoutIdempotentRetry(t *testing.T) {
	e := newEnv()
	e.orders.failCreate = errors.New("transient")

	_, err := e.svc.Checkout(context.Background(), "u1", baseReq())
	wantCode(t, err, CodePersistenceFailure)

	// kondisi pulih, ulang persis request yang sama
	e.orders.failCreate = nil
	res, err := e.svc.Checkout(context.Background(), "u1", baseReq())
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if res.Summary.TotalCents != 248000 {
		t.Fatalf("summary: %+v", res.Summary)
	}
	rec := e.stockP1(t)
	if rec.Available != 8 || rec.Reserved != 0 || rec.Sold != 2 {
		t.Fatalf("stock: %+v", rec)
	}
	if len(e.orders.created) != 1 {
		t.Fatalf("orders: %d", len(e.orders.created))
	}
}

// Cancel setelah reserve, sebelum commit: release tetap jalan walau ctx mati.
func TestCheckoutCancelAfterReserveReleases(t *testing.T) {
	e := newEnv()
	ctx, cancel := context.WithCancel(context.Background())
	e.orders.numberHook = func(ctx context.Context) error {
		cancel()
		return ctx.Err()
	}

	_, err := e.svc.Checkout(ctx, "u1", baseReq())
	wantCode(t, err, CodePersistenceFailure)

	rec := e.stockP1(t)
	if rec.Available != 10 || rec.Reserved != 0 {
		t.Fatalf("reservation leaked after cancel: %+v", rec)
	}
}

// Dua checkout rebutan stok terakhir: tepat satu Completed, satu InsufficientStock.
func TestCheckoutConcurrentExhaustion(t *testing.T) {
	e := newEnv()
	e.ledger.Seed("p1", 1)

	// cart1 (u1) minta 2 -> ubah jadi 1 biar seimbang dengan cart2 (u2)
	e.carts.lines["cart1"][0].Qty = 1

	type outcome struct {
		res *Result
		err error
	}
	results := make(chan outcome, 2)
	var wg sync.WaitGroup
	run := func(user string, req Request) {
		defer wg.Done()
		res, err := e.svc.Checkout(context.Background(), user, req)
		results <- outcome{res, err}
	}
	req2 := baseReq()
	req2.CartID = "cart2"
	req2.ShippingAddressID = "a2"
	wg.Add(2)
	go run("u1", baseReq())
	go run("u2", req2)
	wg.Wait()
	close(results)

	var completed, insufficient int
	for o := range results {
		switch {
		case o.err == nil:
			completed++
		default:
			wantCode(t, o.err, CodeInsufficientStock)
			insufficient++
		}
	}
	if completed != 1 || insufficient != 1 {
		t.Fatalf("completed=%d insufficient=%d", completed, insufficient)
	}

	rec := e.stockP1(t)
	if rec.Available != 0 || rec.Reserved != 0 || rec.Sold != 1 {
		t.Fatalf("stock: %+v", rec)
	}
	if len(e.orders.created) != 1 {
		t.Fatalf("orders: %d", len(e.orders.created))
	}
}

func TestTaxAndTotalComputation(t *testing.T) {
	cases := []struct {
		name                              string
		subtotal, discount, shipping      int64
		rate                              float64
		wantTax, wantTotal                int64
	}{
		{"no coupon", 200000, 0, 30000, 0.09, 18000, 248000},
		{"with coupon", 200000, 20000, 30000, 0.09, 16200, 226200},
		{"discount equals subtotal", 200000, 200000, 30000, 0.09, 0, 30000},
		{"zero rate", 200000, 0, 0, 0, 0, 200000},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tax := TaxCents(tc.subtotal, tc.discount, tc.rate)
			if tax != tc.wantTax {
				t.Fatalf("tax %d, want %d", tax, tc.wantTax)
			}
			total := TotalCents(tc.subtotal, tc.discount, tc.shipping, tax)
			if total != tc.wantTotal {
				t.Fatalf("total %d, want %d", total, tc.wantTotal)
			}
		})
	}
}
