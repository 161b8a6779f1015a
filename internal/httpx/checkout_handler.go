package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/cart"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/checkout"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/order"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/redisx"
	"github.com/ariefcatur/go-storefront-checkout.git/internal/stock"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type OrderGetter interface {
	Get(ctx context.Context, id string) (order.Order, error)
}

type CheckoutHandler struct {
	Svc    *checkout.Service
	Reader *cart.Reader
	Orders OrderGetter
	Ledger stock.Ledger
	Redis  *redis.Client
}

type CheckoutReq struct {
	CartID            string  `json:"cart_id"`
	ShippingAddressID string  `json:"shipping_address_id"`
	BillingAddressID  string  `json:"billing_address_id,omitempty"`
	ShippingCents     int64   `json:"shipping_cents"`
	TaxRate           float64 `json:"tax_rate"`
	CouponCode        string  `json:"coupon_code,omitempty"`
	Notes             string  `json:"notes,omitempty"`
}

type AdjustStockReq struct {
	Delta int `json:"delta"`
}

func (h *CheckoutHandler) Register(r *chi.Mux) {
	r.Post("/checkout", h.doCheckout)
	r.Get("/carts/{id}/totals", h.cartTotals)
	r.Get("/orders/{id}", h.getOrder)
	r.Post("/admin/stock/{productID}", h.adjustStock)
}

// auth/OTP di luar scope; layer depan naruh user id di header.
func userID(r *http.Request) string { return r.Header.Get("X-User-ID") }

// httpStatus: mapping kode failure -> HTTP status.
var httpStatus = map[checkout.Code]int{
	checkout.CodeCartNotFound:          http.StatusNotFound,
	checkout.CodeAccessDenied:          http.StatusForbidden,
	checkout.CodeEmptyCart:             http.StatusUnprocessableEntity,
	checkout.CodeAddressNotFound:       http.StatusNotFound,
	checkout.CodeInvalidBillingAddress: http.StatusUnprocessableEntity,
	checkout.CodeProductUnavailable:    http.StatusConflict,
	checkout.CodeInsufficientStock:     http.StatusConflict,
	checkout.CodeInvalidCoupon:         http.StatusUnprocessableEntity,
	checkout.CodePersistenceFailure:    http.StatusInternalServerError,
}

func (h *CheckoutHandler) doCheckout(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing X-User-ID")
		return
	}
	var req CheckoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json")
		return
	}
	if req.CartID == "" || req.ShippingAddressID == "" {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "missing fields")
		return
	}
	if req.ShippingCents < 0 || req.TaxRate < 0 {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "negative shipping or tax rate")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	res, err := h.Svc.Checkout(ctx, uid, checkout.Request{
		CartID:            req.CartID,
		ShippingAddressID: req.ShippingAddressID,
		BillingAddressID:  req.BillingAddressID,
		ShippingCents:     req.ShippingCents,
		TaxRate:           req.TaxRate,
		CouponCode:        req.CouponCode,
		Notes:             req.Notes,
	})
	if err != nil {
		if f, ok := checkout.AsFailure(err); ok {
			code := httpStatus[f.Code]
			if code == 0 {
				code = http.StatusInternalServerError
			}
			writeJSON(w, code, f)
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}

	// cache status awal biar GET /orders/{id} cepat
	statusKey := fmt.Sprintf(redisx.KeyOrderStatus, res.Order.ID)
	_ = h.Redis.Set(ctx, statusKey,
		fmt.Sprintf(`{"status":%q,"number":%q}`, res.Order.Status, res.Order.Number),
		redisx.TTLStatusCache).Err()

	writeJSON(w, http.StatusCreated, res)
}

func (h *CheckoutHandler) cartTotals(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHENTICATED", "missing X-User-ID")
		return
	}
	cartID := chi.URLParam(r, "id")
	code := r.URL.Query().Get("coupon")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// preview di-cache sebentar; key ikut coupon code
	key := fmt.Sprintf(redisx.KeyCartTotals, cartID, code)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	snap, err := h.Reader.Totals(ctx, cartID, uid, code)
	if errors.Is(err, cart.ErrNotFound) {
		writeError(w, http.StatusNotFound, "CART_NOT_FOUND", "cart not found")
		return
	}
	if errors.Is(err, cart.ErrForbidden) {
		writeError(w, http.StatusForbidden, "ACCESS_DENIED", "cart does not belong to user")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}

	b, _ := json.Marshal(snap)
	_ = h.Redis.Set(ctx, key, b, redisx.TTLCartTotals).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *CheckoutHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	// 2) fallback DB
	o, err := h.Orders.Get(ctx, orderID)
	if errors.Is(err, order.ErrNotFound) {
		writeError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	b, _ := json.Marshal(map[string]any{"status": o.Status, "number": o.Number})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

// adjustStock: jalur edit stok admin; lewat Ledger.Adjust (CAS), bukan
// overwrite, jadi aman barengan dengan checkout yang lagi reserve.
func (h *CheckoutHandler) adjustStock(w http.ResponseWriter, r *http.Request) {
	productID := chi.URLParam(r, "productID")
	var req AdjustStockReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid json")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	rec, ok, err := h.Ledger.Adjust(ctx, productID, req.Delta)
	if errors.Is(err, stock.ErrNotFound) {
		writeError(w, http.StatusNotFound, "STOCK_NOT_FOUND", "no stock record for product")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "INTERNAL", err.Error())
		return
	}
	if !ok {
		writeError(w, http.StatusConflict, "WOULD_GO_NEGATIVE", "adjustment would make available stock negative")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"product_id": rec.ProductID,
		"available":  rec.Available,
		"reserved":   rec.Reserved,
		"sold":       rec.Sold,
		"version":    rec.Version,
	})
}
