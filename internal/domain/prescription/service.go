package prescription

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/healthhub/portal/internal/platform/blobstore"
)

// DefaultValidity is how long an uploaded prescription stays usable when the
// document itself does not carry an expiry date.
const DefaultValidity = 90 * 24 * time.Hour

type Service struct {
	prescriptions PrescriptionRepository
	blobs         blobstore.BlobStore
	now           func() time.Time
}

func NewService(prescriptions PrescriptionRepository, blobs blobstore.BlobStore) *Service {
	return &Service{
		prescriptions: prescriptions,
		blobs:         blobs,
		now:           time.Now,
	}
}

var validStatuses = map[string]bool{
	StatusActive: true, StatusExpired: true, StatusCompleted: true,
}

// Create registers a prescription issued by a health professional.
func (s *Service) Create(ctx context.Context, p *Prescription) error {
	if p.PatientID == "" {
		return fmt.Errorf("patient_id is required")
	}
	if len(p.Medications) == 0 {
		return fmt.Errorf("at least one medication is required")
	}
	if p.IssuedAt.IsZero() {
		p.IssuedAt = s.now().UTC()
	}
	if p.Status == "" {
		p.Status = StatusActive
	}
	if !validStatuses[p.Status] {
		return fmt.Errorf("invalid status: %s", p.Status)
	}
	if p.ExpiresAt == nil {
		exp := p.IssuedAt.Add(DefaultValidity)
		p.ExpiresAt = &exp
	}
	return s.prescriptions.Create(ctx, p)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	return s.prescriptions.GetByID(ctx, id)
}

// ListByPatient returns a patient's prescriptions, newest first. With
// usableOnly set, only prescriptions that can gate a purchase right now are
// returned; stale "active" rows past their expiry are filtered out.
func (s *Service) ListByPatient(ctx context.Context, patientID string, usableOnly bool, limit, offset int) ([]*Prescription, int, error) {
	status := ""
	if usableOnly {
		status = StatusActive
	}
	items, total, err := s.prescriptions.ListByPatient(ctx, patientID, status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	if !usableOnly {
		return items, total, nil
	}
	now := s.now()
	usable := items[:0]
	for _, p := range items {
		if p.Usable(now) {
			usable = append(usable, p)
		}
	}
	return usable, len(usable), nil
}

// Upload stores a patient-provided prescription document and synthesizes a
// prescription record from it. The document goes through the attachment
// policy first; nothing is recorded if the file is rejected. Uploaded
// prescriptions are active immediately but stay unverified until a
// pharmacist reviews them.
func (s *Service) Upload(ctx context.Context, patientID, fileName, contentType string, size int64, content io.Reader, medications []string) (*Prescription, error) {
	if err := blobstore.ValidateUpload(fileName, contentType, size); err != nil {
		return nil, err
	}

	meta, err := s.blobs.Upload(ctx, blobstore.BlobMetadata{
		FileName:    fileName,
		ContentType: contentType,
		PatientID:   patientID,
		Category:    "prescription",
	}, content)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	exp := now.Add(DefaultValidity)
	p := &Prescription{
		PatientID:   patientID,
		IssuedAt:    now,
		ExpiresAt:   &exp,
		Status:      StatusActive,
		Medications: medications,
		Attachment: &Attachment{
			FileName:    meta.FileName,
			ContentType: meta.ContentType,
			Size:        meta.Size,
			BlobID:      meta.ID,
		},
	}
	if err := s.prescriptions.Create(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Verify marks an uploaded prescription's attachment as reviewed.
func (s *Service) Verify(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Attachment == nil {
		return nil, fmt.Errorf("prescription has no attachment to verify")
	}
	p.Attachment.Verified = true
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// MarkCompleted records that the prescription has been fully dispensed.
func (s *Service) MarkCompleted(ctx context.Context, id uuid.UUID) (*Prescription, error) {
	p, err := s.prescriptions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Status = StatusCompleted
	if err := s.prescriptions.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}
