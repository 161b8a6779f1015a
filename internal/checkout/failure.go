package checkout

import (
	"errors"
	"fmt"

	"github.com/ariefcatur/go-storefront-checkout.git/internal/stock"
)

type Code string

const (
	CodeCartNotFound          Code = "CART_NOT_FOUND"
	CodeAccessDenied          Code = "ACCESS_DENIED"
	CodeEmptyCart             Code = "EMPTY_CART"
	CodeAddressNotFound       Code = "ADDRESS_NOT_FOUND"
	CodeInvalidBillingAddress Code = "INVALID_BILLING_ADDRESS"
	CodeProductUnavailable    Code = "PRODUCT_UNAVAILABLE"
	CodeInsufficientStock     Code = "INSUFFICIENT_STOCK"
	CodeInvalidCoupon         Code = "INVALID_COUPON"
	CodePersistenceFailure    Code = "PERSISTENCE_FAILURE"
)

// Failure: hasil gagal yang terstruktur (tag + pesan + detail), bukan error
// bebas. Semua kode di atas adalah outcome normal checkout, bukan crash.
type Failure struct {
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	State      State             `json:"state"` // state waktu gagal
	Shortfalls []stock.Shortfall `json:"shortfalls,omitempty"`

	err error // penyebab asli utk PERSISTENCE_FAILURE
}

func (f *Failure) Error() string {
	return fmt.Sprintf("checkout %s: %s", f.Code, f.Message)
}

func (f *Failure) Unwrap() error { return f.err }

func fail(st State, code Code, format string, args ...any) *Failure {
	return &Failure{Code: code, Message: fmt.Sprintf(format, args...), State: st}
}

// storeErr: error storage tak terduga di tengah flow; trigger rollback sesuai
// state-nya, lalu keluar sebagai PERSISTENCE_FAILURE.
func storeErr(st State, err error) *Failure {
	return &Failure{Code: CodePersistenceFailure, Message: err.Error(), State: st, err: err}
}

// AsFailure: helper utk layer HTTP.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}
