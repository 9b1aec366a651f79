package models

import (
	"fmt"

	"tradehub/internal/errs"
)

// TierPrice is one band of a tiered price schedule. MaxQty 0 means the band has no upper bound.
type TierPrice struct {
	MinQty int     `json:"minQty" bson:"minQty"`
	MaxQty int     `json:"maxQty" bson:"maxQty"`
	Price  float64 `json:"price" bson:"price"`
}

func (t TierPrice) covers(qty int) bool {
	return qty >= t.MinQty && (t.MaxQty == 0 || qty <= t.MaxQty)
}

// ValidateTiers checks that tiers are non-empty, ascending and non-overlapping,
// and that only the last tier is open-ended.
func ValidateTiers(tiers []TierPrice) error {
	if len(tiers) == 0 {
		return errs.Validation("Validation failed", map[string]string{
			"tieredPricing": "at least one price tier is required",
		})
	}
	for i, t := range tiers {
		field := fmt.Sprintf("tieredPricing[%d]", i)
		switch {
		case t.MinQty < 1:
			return errs.Validation("Validation failed", map[string]string{field: "minQty must be at least 1"})
		case t.Price <= 0:
			return errs.Validation("Validation failed", map[string]string{field: "price must be greater than 0"})
		case t.MaxQty != 0 && t.MaxQty < t.MinQty:
			return errs.Validation("Validation failed", map[string]string{field: "maxQty must not be below minQty"})
		case t.MaxQty == 0 && i != len(tiers)-1:
			return errs.Validation("Validation failed", map[string]string{field: "only the last tier may be open-ended"})
		}
		if i > 0 && t.MinQty <= tiers[i-1].MaxQty {
			return errs.Validation("Validation failed", map[string]string{field: "tiers must be ascending and must not overlap"})
		}
	}
	return nil
}

// PriceForQuantity scans tiers for the first band containing qty.
// Quantities above every band are charged the last band's price; quantities
// below the first band or inside a gap between bands are rejected.
func PriceForQuantity(tiers []TierPrice, qty int) (float64, error) {
	if qty <= 0 {
		return 0, errs.New(errs.ErrValidation, "quantity must be greater than 0")
	}
	if len(tiers) == 0 {
		return 0, errs.New(errs.ErrValidation, "product has no price tiers")
	}
	for _, t := range tiers {
		if t.covers(qty) {
			return t.Price, nil
		}
	}

	last := tiers[len(tiers)-1]
	if last.MaxQty != 0 && qty > last.MaxQty {
		return last.Price, nil
	}
	if qty < tiers[0].MinQty {
		return 0, errs.New(errs.ErrValidation, "quantity %d is below the minimum tier of %d", qty, tiers[0].MinQty)
	}
	return 0, errs.New(errs.ErrValidation, "no price tier covers quantity %d", qty)
}
