package prescription

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrPrescriptionNotFound is returned when a prescription id does not exist.
var ErrPrescriptionNotFound = errors.New("prescription not found")

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	GetByID(ctx context.Context, id uuid.UUID) (*Prescription, error)
	Update(ctx context.Context, p *Prescription) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByPatient(ctx context.Context, patientID, status string, limit, offset int) ([]*Prescription, int, error)
}
