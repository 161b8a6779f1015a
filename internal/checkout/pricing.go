package checkout

import "math"

// TaxCents: pajak dihitung atas (subtotal - diskon). Diskon sudah di-clamp
// ke [0, subtotal] oleh evaluator, taxable dijaga >= 0 di sini juga.
func TaxCents(subtotalCents, discountCents int64, rate float64) int64 {
	taxable := subtotalCents - discountCents
	if taxable < 0 {
		taxable = 0
	}
	return int64(math.Round(float64(taxable) * rate))
}

func TotalCents(subtotalCents, discountCents, shippingCents, taxCents int64) int64 {
	return subtotalCents - discountCents + shippingCents + taxCents
}
