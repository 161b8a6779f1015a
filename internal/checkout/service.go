package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/address"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/cart"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/catalog"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/coupon"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/events"
	kafkax "github.com/ariefcatur/go-storefront-checkout.git/internal/kafka"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/order"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/stock"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type Request struct {
	CartID            string
	ShippingAddressID string
	BillingAddressID  string // kosong = pakai shipping address
	ShippingCents     int64
	TaxRate           float64
	CouponCode        string
	Notes             string
}

type Summary struct {
	SubtotalCents int64        `json:"subtotal_cents"`
	DiscountCents int64        `json:"discount_cents"`
	ShippingCents int64        `json:"shipping_cents"`
	TaxCents      int64        `json:"tax_cents"`
	TotalCents    int64        `json:"total_cents"`
	Lines         []order.Line `json:"lines"`
}

type Result struct {
	Order   order.Order `json:"order"`
	Summary Summary     `json:"summary"`
}

// Service: orchestrator checkout. Alurnya Validating -> Reserving -> Pricing
// -> Committing -> Completed; gagal di state mana pun berakhir Failed dengan
// kode dari failure.go. Setelah reserve sukses, SEMUA exit path (termasuk
// cancel & panic) wajib melepas reservasi sampai order benar-benar ke-commit.
type Service struct {
	Carts     CartStore
	Addresses AddressStore
	Products  ProductStore
	Orders    OrderStore
	Coupons   *coupon.Evaluator
	CouponTx  CouponTxStore
	Ledger    stock.Ledger

	Producer    *kafkax.Producer // checkout.completed; nil = tidak publish
	ServiceName string
	Log         *zap.Logger
}

func (s *Service) advance(cur *State, next State) {
	if !CanTransition(*cur, next) {
		panic(fmt.Sprintf("illegal checkout transition %s -> %s", *cur, next))
	}
	*cur = next
}

func (s *Service) Checkout(ctx context.Context, userID string, req Request) (*Result, error) {
	st := StateValidating
	log := s.Log.With(zap.String("cart_id", req.CartID), zap.String("user_id", userID))

	// ---- Validating ----
	c, err := s.Carts.GetCart(ctx, req.CartID)
	if errors.Is(err, cart.ErrNotFound) {
		return nil, fail(st, CodeCartNotFound, "cart %s not found", req.CartID)
	}
	if err != nil {
		return nil, storeErr(st, err)
	}
	if c.UserID != userID {
		return nil, fail(st, CodeAccessDenied, "cart does not belong to user")
	}

	lines, err := s.Carts.Lines(ctx, req.CartID)
	if err != nil {
		return nil, storeErr(st, err)
	}
	if len(lines) == 0 {
		return nil, fail(st, CodeEmptyCart, "cart is empty")
	}

	ship, err := s.Addresses.GetAddress(ctx, req.ShippingAddressID)
	if errors.Is(err, address.ErrNotFound) {
		return nil, fail(st, CodeAddressNotFound, "shipping address not found")
	}
	if err != nil {
		return nil, storeErr(st, err)
	}
	if ship.UserID != userID {
		return nil, fail(st, CodeAccessDenied, "shipping address does not belong to user")
	}

	billingID := req.BillingAddressID
	if billingID == "" {
		billingID = ship.ID // default ke shipping
	} else if billingID != ship.ID {
		bill, err := s.Addresses.GetAddress(ctx, billingID)
		if errors.Is(err, address.ErrNotFound) {
			return nil, fail(st, CodeInvalidBillingAddress, "billing address not found")
		}
		if err != nil {
			return nil, storeErr(st, err)
		}
		if bill.UserID != userID {
			return nil, fail(st, CodeInvalidBillingAddress, "billing address does not belong to user")
		}
	}

	// cek semua product paralel; nama di-capture utk snapshot order line
	names := make([]string, len(lines))
	g, gctx := errgroup.WithContext(ctx)
	for i, l := range lines {
		g.Go(func() error {
			p, err := s.Products.GetProduct(gctx, l.ProductID)
			if errors.Is(err, catalog.ErrNotFound) {
				return fail(st, CodeProductUnavailable, "product %s not found", l.ProductID)
			}
			if err != nil {
				return storeErr(st, err)
			}
			if !p.Active {
				return fail(st, CodeProductUnavailable, "product %s is not active", l.ProductID)
			}
			names[i] = p.Name
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// ---- Reserving ----
	s.advance(&st, StateReserving)
	items := make([]stock.ItemQty, 0, len(lines))
	for _, l := range lines {
		items = append(items, stock.ItemQty{ProductID: l.ProductID, Qty: l.Qty})
	}
	ok, shorts, err := s.Ledger.ReserveAll(ctx, items)
	if err != nil {
		return nil, storeErr(st, err)
	}
	if !ok {
		return nil, &Failure{
			Code: CodeInsufficientStock, State: st,
			Message:    "insufficient stock for one or more items",
			Shortfalls: shorts,
		}
	}

	// Dari sini stok ter-reserve. Release wajib jalan di setiap exit path
	// sebelum commit; pakai context tanpa cancel supaya cancel/timeout
	// request tidak bikin reservasi nyangkut.
	committed := false
	defer func() {
		if committed {
			return
		}
		if rerr := s.Ledger.ReleaseAll(context.WithoutCancel(ctx), items); rerr != nil {
			log.Error("release reservation", zap.Error(rerr))
		}
	}()

	// ---- Pricing ----
	s.advance(&st, StatePricing)
	var subtotal int64
	for _, l := range lines {
		subtotal += l.UnitPriceCents * int64(l.Qty)
	}

	var discount int64
	var cpn coupon.Coupon
	couponApplied := false
	if req.CouponCode != "" {
		res, err := s.Coupons.Validate(ctx, req.CouponCode, subtotal, userID)
		if err != nil {
			return nil, storeErr(st, err)
		}
		if !res.Valid {
			return nil, fail(st, CodeInvalidCoupon, "%s", res.Reason)
		}
		discount = res.DiscountCents
		cpn = res.Coupon
		couponApplied = true
	}

	tax := TaxCents(subtotal, discount, req.TaxRate)
	total := TotalCents(subtotal, discount, req.ShippingCents, tax)

	// ---- Committing ----
	s.advance(&st, StateCommitting)
	if couponApplied {
		// re-check limit secara atomik; evaluator tadi cuma baca
		ok, err := s.CouponTx.TryConsume(ctx, cpn.ID)
		if err != nil {
			return nil, storeErr(st, err)
		}
		if !ok {
			return nil, fail(st, CodeInvalidCoupon, "%s", coupon.ReasonLimitReached)
		}
	}
	releaseCoupon := func() {
		if couponApplied {
			if cerr := s.CouponTx.ReleaseUse(context.WithoutCancel(ctx), cpn.ID); cerr != nil {
				log.Error("release coupon use", zap.Error(cerr), zap.String("coupon_id", cpn.ID))
			}
		}
	}

	num, err := s.Orders.NextOrderNumber(ctx)
	if err != nil {
		releaseCoupon()
		return nil, storeErr(st, err)
	}

	now := time.Now().UTC()
	o := order.Order{
		ID: uuid.NewString(), Number: num, UserID: userID, Status: order.StatusCreated,
		SubtotalCents: subtotal, DiscountCents: discount,
		ShippingCents: req.ShippingCents, TaxCents: tax, TotalCents: total,
		ShippingAddressID: ship.ID, BillingAddressID: billingID,
		CouponCode: req.CouponCode, Notes: req.Notes, CreatedAt: now,
	}
	olines := make([]order.Line, 0, len(lines))
	for i, l := range lines {
		olines = append(olines, order.Line{
			ID: uuid.NewString(), OrderID: o.ID,
			ProductID: l.ProductID, ProductName: names[i], Qty: l.Qty,
			UnitPriceCents: l.UnitPriceCents,
			TotalCents:     l.UnitPriceCents * int64(l.Qty),
		})
	}
	var usage *coupon.Usage
	if couponApplied {
		usage = &coupon.Usage{
			ID: uuid.NewString(), CouponID: cpn.ID, UserID: userID, OrderID: o.ID,
			DiscountCents: discount, OrderTotalCents: total, UsedAt: now,
		}
	}

	if err := s.Orders.Create(ctx, o, olines, usage); err != nil {
		releaseCoupon()
		return nil, storeErr(st, err)
	}

	// Order sudah ke-commit: reservasi jadi milik order, jangan di-release
	// lagi walau step berikutnya error.
	committed = true
	if err := s.Ledger.CommitSold(context.WithoutCancel(ctx), items); err != nil {
		return nil, storeErr(st, fmt.Errorf("order %s created but stock finalize failed: %w", o.Number, err))
	}

	if err := s.Carts.ClearLines(context.WithoutCancel(ctx), req.CartID); err != nil {
		// order sudah jadi; cart yang belum kebersihan bukan alasan gagal
		log.Warn("clear cart lines", zap.Error(err))
	}

	s.advance(&st, StateCompleted)
	log.Info("checkout completed",
		zap.String("order_number", o.Number), zap.Int64("total_cents", total))
	s.publishCompleted(o, olines)

	return &Result{Order: o, Summary: Summary{
		SubtotalCents: subtotal, DiscountCents: discount,
		ShippingCents: req.ShippingCents, TaxCents: tax, TotalCents: total,
		Lines: olines,
	}}, nil
}

// publishCompleted: ekspor order ke boundary ERP (fire-and-forget).
func (s *Service) publishCompleted(o order.Order, lines []order.Line) {
	if s.Producer == nil {
		return
	}
	exp := make([]events.OrderLineExport, 0, len(lines))
	for _, l := range lines {
		exp = append(exp, events.OrderLineExport{
			ProductID: l.ProductID, ProductName: l.ProductName,
			Qty: l.Qty, UnitPriceCents: l.UnitPriceCents,
		})
	}
	ev := events.Envelope{
		EventID:       uuid.NewString(),
		EventType:     events.EventOrderCompleted,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      s.ServiceName,
		CorrelationID: o.ID,
		Payload: kafkax.MustMarshal(events.OrderCompletedPayload{
			OrderID: o.ID, OrderNumber: o.Number, UserID: o.UserID, Lines: exp,
			SubtotalCents: o.SubtotalCents, DiscountCents: o.DiscountCents,
			ShippingCents: o.ShippingCents, TaxCents: o.TaxCents, TotalCents: o.TotalCents,
			CouponCode: o.CouponCode,
		}),
	}
	s.Producer.Publish(events.PartitionKey(o.ID), kafkax.MustMarshal(ev))
}
