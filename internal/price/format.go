package price

import "fmt"

// Confidence label thresholds for user-facing messages.
const (
	highConfidenceFloor   = 0.8
	mediumConfidenceFloor = 0.5
)

func confidenceLabel(c float64) string {
	switch {
	case c > highConfidenceFloor:
		return "hoog"
	case c > mediumConfidenceFloor:
		return "gemiddeld"
	default:
		return "laag"
	}
}

// FormatMessage renders a Dutch description of the detected filter for
// the storefront. An intent without bounds always yields the fixed
// no-filter message.
func FormatMessage(in Intent) string {
	if !in.HasBounds() {
		return "Geen prijsfilter toegepast"
	}
	label := confidenceLabel(in.Confidence)
	switch {
	case in.MinPrice != nil && in.MaxPrice != nil:
		return fmt.Sprintf("Zoeken naar producten tussen €%.2f en €%.2f (vertrouwen: %s)", *in.MinPrice, *in.MaxPrice, label)
	case in.MinPrice != nil:
		return fmt.Sprintf("Zoeken naar producten vanaf €%.2f (vertrouwen: %s)", *in.MinPrice, label)
	default:
		return fmt.Sprintf("Zoeken naar producten tot €%.2f (vertrouwen: %s)", *in.MaxPrice, label)
	}
}
