package prescription

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusCompleted = "completed"
)

// Attachment is the uploaded document backing a prescription. Uploaded
// prescriptions start out unverified; a pharmacist flips Verified after
// review.
type Attachment struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	BlobID      string `json:"blob_id"`
	Verified    bool   `json:"verified"`
}

// Prescription maps to the prescription table.
type Prescription struct {
	ID             uuid.UUID   `db:"id" json:"id"`
	PatientID      string      `db:"patient_id" json:"patient_id"`
	ProfessionalID *string     `db:"professional_id" json:"professional_id,omitempty"`
	IssuedAt       time.Time   `db:"issued_at" json:"issued_at"`
	ExpiresAt      *time.Time  `db:"expires_at" json:"expires_at,omitempty"`
	Status         string      `db:"status" json:"status"`
	Medications    []string    `db:"medications" json:"medications"`
	Attachment     *Attachment `db:"-" json:"attachment,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// Usable reports whether the prescription can gate a purchase at the given
// instant. A stored "active" status is not trusted on its own: an active
// prescription whose expiry date has passed is unusable.
func (p *Prescription) Usable(now time.Time) bool {
	if p.Status != StatusActive {
		return false
	}
	if p.ExpiresAt != nil && !now.Before(*p.ExpiresAt) {
		return false
	}
	return true
}
