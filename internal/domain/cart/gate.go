package cart

import (
	"sync"
	"time"

	"github.com/healthhub/portal/internal/domain/catalog"
	"github.com/healthhub/portal/internal/domain/prescription"
)

// PendingRequest is a gated add waiting for the patient to pick a
// prescription. It holds everything needed to complete the add once a usable
// prescription is attached.
type PendingRequest struct {
	Product  catalog.Product `json:"product"`
	Quantity int             `json:"quantity"`
}

// Gate is the regulatory check in front of the cart. Adding a product that
// requires a prescription never goes straight into the cart: the add is
// parked here until the patient selects a usable prescription (Resolve) or
// backs out (Cancel). At most one add can be in flight per patient.
//
// The gate is session state, not persisted: a reload drops the pending add,
// never a half-gated cart line.
type Gate struct {
	mu      sync.Mutex
	pending *PendingRequest
	now     func() time.Time
}

func NewGate() *Gate {
	return &Gate{now: time.Now}
}

// Request parks a gated add. Fails if another add is already awaiting
// resolution.
func (g *Gate) Request(product catalog.Product, quantity int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending != nil {
		return ErrSelectionInProgress
	}
	g.pending = &PendingRequest{Product: product, Quantity: quantity}
	return nil
}

// Pending returns the add awaiting resolution, or nil when the gate is idle.
func (g *Gate) Pending() *PendingRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return nil
	}
	cp := *g.pending
	return &cp
}

// Resolve completes the parked add with the selected prescription. An
// expired or otherwise unusable prescription fails the resolution but keeps
// the add parked, so the patient can pick another prescription without
// restarting the flow.
func (g *Gate) Resolve(p *prescription.Prescription) (*PendingRequest, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return nil, ErrNoPendingRequest
	}
	if p == nil || !p.Usable(g.now()) {
		return nil, ErrPrescriptionExpired
	}
	req := g.pending
	g.pending = nil
	return req, nil
}

// Cancel abandons the parked add and returns the gate to idle.
func (g *Gate) Cancel() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.pending == nil {
		return ErrNoPendingRequest
	}
	g.pending = nil
	return nil
}
