package catalog

import (
	"time"

	"github.com/google/uuid"
)

// InsuranceCoverage describes how an insurance policy nominally covers a
// product. Informational at cart stage: reimbursement happens downstream of
// checkout and never reduces the payable total here.
type InsuranceCoverage struct {
	Eligible           bool     `db:"insurance_eligible" json:"eligible"`
	CoveragePercentage *float64 `db:"coverage_percentage" json:"coverage_percentage,omitempty"`
	RequiresVoucher    *bool    `db:"requires_voucher" json:"requires_voucher,omitempty"`
}

// Product maps to the product table (pharmacy and parapharmacy catalog).
// The cart subsystem only reads products; ownership stays with the catalog.
// Monetary amounts are expressed in cents.
type Product struct {
	ID                   uuid.UUID          `db:"id" json:"id"`
	Name                 string             `db:"name" json:"name"`
	Description          *string            `db:"description" json:"description,omitempty"`
	UnitPrice            float64            `db:"unit_price" json:"unit_price"`
	Category             string             `db:"category" json:"category"`
	RequiresPrescription bool               `db:"requires_prescription" json:"requires_prescription"`
	InStock              bool               `db:"in_stock" json:"in_stock"`
	Coverage             *InsuranceCoverage `db:"-" json:"insurance_coverage,omitempty"`
	CreatedAt            time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `db:"updated_at" json:"updated_at"`
}

// ReimbursableAmount returns the amount a policy would nominally reimburse
// for quantity units of the product. Zero when the product is not eligible.
func (p *Product) ReimbursableAmount(quantity int) float64 {
	if p.Coverage == nil || !p.Coverage.Eligible || p.Coverage.CoveragePercentage == nil {
		return 0
	}
	return p.UnitPrice * float64(quantity) * *p.Coverage.CoveragePercentage / 100
}
