package checkout

import (
	"context"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/address"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/cart"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/catalog"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/coupon"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/order"
)

// Kontrak sempit ke kolaborator di luar core. Implementasi produksi =
// Pg* repo; test pakai fake in-memory.

type CartStore interface {
	GetCart(ctx context.Context, id string) (cart.Cart, error)
	Lines(ctx context.Context, cartID string) ([]cart.Line, error)
	ClearLines(ctx context.Context, cartID string) error
}

type AddressStore interface {
	GetAddress(ctx context.Context, id string) (address.Address, error)
}

type ProductStore interface {
	GetProduct(ctx context.Context, id string) (catalog.Product, error)
}

type OrderStore interface {
	NextOrderNumber(ctx context.Context) (string, error)
	// Create: order + line + coupon usage (boleh nil) harus satu commit.
	Create(ctx context.Context, o order.Order, lines []order.Line, usage *coupon.Usage) error
}

// CouponTxStore: sisi tulis coupon (counter used_count). Sisi baca lewat
// coupon.Evaluator.
type CouponTxStore interface {
	TryConsume(ctx context.Context, couponID string) (bool, error)
	ReleaseUse(ctx context.Context, couponID string) error
}
