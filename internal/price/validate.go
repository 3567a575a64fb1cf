package price

// Price category boundaries in euro.
const (
	midCategoryFloor     = 50.0
	premiumCategoryFloor = 200.0
)

// Normalize swaps inverted bounds so min <= max always holds.
func Normalize(in Intent) Intent {
	if in.MinPrice != nil && in.MaxPrice != nil && *in.MinPrice > *in.MaxPrice {
		in.MinPrice, in.MaxPrice = in.MaxPrice, in.MinPrice
	}
	return in
}

// ValidateRange reports whether min/max form a usable filter: no
// negative bound and min <= max when both are set. Nil bounds are
// always acceptable.
func ValidateRange(min, max *float64) bool {
	if min != nil && *min < 0 {
		return false
	}
	if max != nil && *max < 0 {
		return false
	}
	if min != nil && max != nil && *min > *max {
		return false
	}
	return true
}

// PriceCategory buckets a price into budget, midden or premium.
func PriceCategory(price float64) string {
	switch {
	case price < midCategoryFloor:
		return "budget"
	case price < premiumCategoryFloor:
		return "midden"
	default:
		return "premium"
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
