package prescription

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// memoryRepo is an in-memory PrescriptionRepository used in dev mode and tests.
type memoryRepo struct {
	mu            sync.RWMutex
	prescriptions map[uuid.UUID]*Prescription
}

func NewMemoryRepo() PrescriptionRepository {
	return &memoryRepo{prescriptions: make(map[uuid.UUID]*Prescription)}
}

func (r *memoryRepo) Create(_ context.Context, p *Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.New()
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	r.prescriptions[p.ID] = &cp
	return nil
}

func (r *memoryRepo) GetByID(_ context.Context, id uuid.UUID) (*Prescription, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.prescriptions[id]
	if !ok {
		return nil, ErrPrescriptionNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *memoryRepo) Update(_ context.Context, p *Prescription) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prescriptions[p.ID]; !ok {
		return ErrPrescriptionNotFound
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	r.prescriptions[p.ID] = &cp
	return nil
}

func (r *memoryRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.prescriptions[id]; !ok {
		return ErrPrescriptionNotFound
	}
	delete(r.prescriptions, id)
	return nil
}

func (r *memoryRepo) ListByPatient(_ context.Context, patientID, status string, limit, offset int) ([]*Prescription, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*Prescription
	for _, p := range r.prescriptions {
		if p.PatientID != patientID {
			continue
		}
		if status != "" && p.Status != status {
			continue
		}
		cp := *p
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].IssuedAt.After(matched[j].IssuedAt) })

	total := len(matched)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return matched[offset:end], total, nil
}
