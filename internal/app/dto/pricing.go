package dto

import (
	"innkeep/internal/domain/conflict"
	"innkeep/internal/domain/pricing"
)

type Price struct {
	Currency            string `json:"currency"`
	UnitPriceCents      int64  `json:"unit_price_cents"`
	Units               int    `json:"units"`
	DiscountType        string `json:"discount_type"`
	DiscountPercent     int    `json:"discount_percent"`
	OriginalTotalCents  int64  `json:"original_total_cents"`
	DiscountAmountCents int64  `json:"discount_amount_cents"`
	FinalTotalCents     int64  `json:"final_total_cents"`
	FinalTotal          string `json:"final_total"`
}

func MapPrice(r pricing.Result) Price {
	return Price{
		Currency:            r.FinalTotal.Currency,
		UnitPriceCents:      r.UnitPrice.Amount,
		Units:               r.Units,
		DiscountType:        string(r.DiscountType),
		DiscountPercent:     r.DiscountPercent,
		OriginalTotalCents:  r.OriginalTotal.Amount,
		DiscountAmountCents: r.DiscountAmount.Amount,
		FinalTotalCents:     r.FinalTotal.Amount,
		FinalTotal:          r.FinalTotal.Major(),
	}
}

type Assessment struct {
	conflict.Assessment
	CanProceed bool `json:"can_proceed"`
}

func MapAssessment(a conflict.Assessment) Assessment {
	return Assessment{Assessment: a, CanProceed: a.CanProceed()}
}

type Quote struct {
	PropertyID string     `json:"property_id"`
	Mode       string     `json:"mode"`
	Range      Range      `json:"range"`
	Price      Price      `json:"price"`
	Assessment Assessment `json:"assessment"`
}
