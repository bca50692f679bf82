package cart

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthhub/portal/internal/platform/kvstore"
)

// Store is the ordered line-item collection for one patient, mirrored to the
// record store after every mutation. Memory is authoritative during the
// session: a persistence failure is retried once, then the store keeps
// serving from memory in degraded mode and re-attempts on the next mutation.
type Store struct {
	mu        sync.Mutex
	patientID string
	records   kvstore.Store
	log       zerolog.Logger

	items    []LineItem
	degraded bool
}

// NewStore builds the store and recovers the persisted collection. A missing
// or unreadable record starts the session with an empty cart; the failure is
// logged, never surfaced.
func NewStore(ctx context.Context, patientID string, records kvstore.Store, log zerolog.Logger) *Store {
	s := &Store{
		patientID: patientID,
		records:   records,
		log:       log,
	}
	if err := kvstore.LoadJSON(ctx, records, patientID, KeyCart, &s.items); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
		log.Warn().Err(err).Str("patient_id", patientID).Msg("cart recovery failed, starting empty")
	}
	return s
}

// Items returns a copy of the collection in insertion order.
func (s *Store) Items() []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyItems()
}

func (s *Store) copyItems() []LineItem {
	out := make([]LineItem, len(s.items))
	copy(out, s.items)
	return out
}

// Degraded reports whether the last mutation could not be persisted.
func (s *Store) Degraded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.degraded
}

// Upsert adds a line item, merging quantities when the product is already in
// the cart. The incoming prescription, if any, replaces the stored one.
func (s *Store) Upsert(ctx context.Context, item LineItem) []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	merged := false
	for i := range s.items {
		if s.items[i].Product.ID == item.Product.ID {
			s.items[i].Quantity += item.Quantity
			if item.Prescription != nil {
				s.items[i].Prescription = item.Prescription
			}
			merged = true
			break
		}
	}
	if !merged {
		s.items = append(s.items, item)
	}

	s.persist(ctx)
	return s.copyItems()
}

// SetQuantity updates a line's quantity. A quantity of zero or less removes
// the line; quantity below one never survives in the cart.
func (s *Store) SetQuantity(ctx context.Context, productID uuid.UUID, quantity int) []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	if quantity <= 0 {
		s.removeLocked(productID)
	} else {
		for i := range s.items {
			if s.items[i].Product.ID == productID {
				s.items[i].Quantity = quantity
				break
			}
		}
	}

	s.persist(ctx)
	return s.copyItems()
}

// Remove deletes a line. Removing an absent product is a no-op.
func (s *Store) Remove(ctx context.Context, productID uuid.UUID) []LineItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.removeLocked(productID)
	s.persist(ctx)
	return s.copyItems()
}

func (s *Store) removeLocked(productID uuid.UUID) {
	for i := range s.items {
		if s.items[i].Product.ID == productID {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return
		}
	}
}

// Clear empties the collection and drops the persisted shipping and coupon
// selections along with the cart record.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = nil
	s.persist(ctx)
	for _, key := range []string{KeyShippingMethod, KeyCouponCode} {
		if err := s.records.Delete(ctx, s.patientID, key); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
			s.log.Warn().Err(err).Str("patient_id", s.patientID).Str("key", key).Msg("clearing persisted selection failed")
		}
	}
}

// persist mirrors the collection to the record store. One immediate retry,
// then the store flags itself degraded and the session continues in memory.
// Must be called with s.mu held.
func (s *Store) persist(ctx context.Context) {
	err := kvstore.SaveJSON(ctx, s.records, s.patientID, KeyCart, s.items)
	if err != nil {
		err = kvstore.SaveJSON(ctx, s.records, s.patientID, KeyCart, s.items)
	}
	if err != nil {
		if !s.degraded {
			s.log.Warn().Err(err).Str("patient_id", s.patientID).Msg("cart persistence unavailable, serving from memory")
		}
		s.degraded = true
		return
	}
	if s.degraded {
		s.log.Info().Str("patient_id", s.patientID).Msg("cart persistence recovered")
	}
	s.degraded = false
}
