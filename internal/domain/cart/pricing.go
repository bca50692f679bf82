package cart

import "fmt"

// Shipping methods and their flat costs in cents. An unrecognized method is
// priced as standard.
const (
	ShippingStandard = "standard"
	ShippingExpress  = "express"
)

var shippingCosts = map[string]float64{
	ShippingStandard: 1000,
	ShippingExpress:  2500,
}

// couponRules maps promotional codes to their percentage of subtotal.
var couponRules = map[string]float64{
	"SANTE10":   10,
	"BIENVENUE": 5,
}

// Totals is the priced view of a cart. ReimbursableAmount is informational:
// insurance reimbursement happens after checkout and never reduces Total.
type Totals struct {
	Subtotal           float64 `json:"subtotal"`
	ShippingCost       float64 `json:"shipping_cost"`
	Discount           float64 `json:"discount"`
	Total              float64 `json:"total"`
	ReimbursableAmount float64 `json:"reimbursable_amount"`
}

// ValidateCoupon checks a code against the coupon table.
func ValidateCoupon(code string) error {
	if _, ok := couponRules[code]; !ok {
		return fmt.Errorf("%w: %s", ErrInvalidCoupon, code)
	}
	return nil
}

// ShippingCost returns the flat cost for a shipping method.
func ShippingCost(method string) float64 {
	if cost, ok := shippingCosts[method]; ok {
		return cost
	}
	return shippingCosts[ShippingStandard]
}

// ComputeTotals prices a line-item collection against the current shipping
// and coupon selection. Pure: no I/O, no mutation.
//
//	total = max(0, subtotal + shipping - discount)
//
// An unknown coupon code contributes no discount; rejecting it is the
// caller's concern (see ValidateCoupon).
func ComputeTotals(items []LineItem, shippingMethod, couponCode string) Totals {
	var subtotal, reimbursable float64
	for _, it := range items {
		subtotal += it.Product.UnitPrice * float64(it.Quantity)
		reimbursable += it.Product.ReimbursableAmount(it.Quantity)
	}

	shipping := ShippingCost(shippingMethod)

	var discount float64
	if pct, ok := couponRules[couponCode]; ok {
		discount = subtotal * pct / 100
	}

	total := subtotal + shipping - discount
	if total < 0 {
		total = 0
	}

	return Totals{
		Subtotal:           subtotal,
		ShippingCost:       shipping,
		Discount:           discount,
		Total:              total,
		ReimbursableAmount: reimbursable,
	}
}
