package cart

import (
	"errors"

	"github.com/healthhub/portal/internal/domain/catalog"
	"github.com/healthhub/portal/internal/domain/prescription"
)

var (
	// ErrInvalidCoupon marks an unknown coupon code. Non-fatal: the cart is
	// left untouched and no discount applies.
	ErrInvalidCoupon = errors.New("invalid coupon code")
	// ErrPrescriptionExpired is returned when the selected prescription can no
	// longer gate a purchase.
	ErrPrescriptionExpired = errors.New("prescription expired")
	// ErrOutOfStock blocks adding a product that is not currently available.
	ErrOutOfStock = errors.New("product out of stock")
	// ErrNoPendingRequest is returned when resolving or cancelling a
	// prescription selection while none is in progress.
	ErrNoPendingRequest = errors.New("no prescription selection in progress")
	// ErrSelectionInProgress blocks a second gated add while one is already
	// awaiting resolution.
	ErrSelectionInProgress = errors.New("prescription selection already in progress")
)

// LineItem is one cart entry. The product is embedded at add time so pricing
// stays stable for the session even if the catalog changes underneath.
// Quantity is always at least 1; a drop to zero removes the line instead.
type LineItem struct {
	Product      catalog.Product            `json:"product"`
	Quantity     int                        `json:"quantity"`
	Prescription *prescription.Prescription `json:"prescription,omitempty"`
}

// ShippingInfo is the delivery address block collected at checkout.
type ShippingInfo struct {
	FullName   string `json:"full_name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone,omitempty"`
}

// Snapshot is the full persisted cart state.
type Snapshot struct {
	Items          []LineItem    `json:"items"`
	ShippingMethod string        `json:"shipping_method,omitempty"`
	CouponCode     string        `json:"coupon_code,omitempty"`
	ShippingInfo   *ShippingInfo `json:"shipping_info,omitempty"`
}

// Persisted record keys. Each is an independent record; there is no
// atomicity across them.
const (
	KeyCart           = "cart"
	KeyShippingMethod = "shippingMethod"
	KeyCouponCode     = "couponCode"
	KeyShippingInfo   = "shippingInfo"
)
