package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthhub/portal/internal/domain/catalog"
	"github.com/healthhub/portal/internal/domain/prescription"
	"github.com/healthhub/portal/internal/platform/events"
	"github.com/healthhub/portal/internal/platform/kvstore"
)

// AddResult is the outcome of an add. For regulated products the add does
// not land in Items yet: Pending carries the parked request and the patient
// must resolve or cancel the prescription selection.
type AddResult struct {
	Items   []LineItem      `json:"items"`
	Pending *PendingRequest `json:"pending,omitempty"`
}

// State is the full client-facing view of a patient's cart.
type State struct {
	Snapshot Snapshot        `json:"snapshot"`
	Totals   Totals          `json:"totals"`
	Pending  *PendingRequest `json:"pending,omitempty"`
	Degraded bool            `json:"degraded"`
}

// session is one patient's live cart: the mirrored line-item store, the
// prescription gate, and the persisted selections reloaded at construction.
type session struct {
	store          *Store
	gate           *Gate
	shippingMethod string
	couponCode     string
	shippingInfo   *ShippingInfo
}

// Service is the cart facade used by the HTTP layer. It owns one session per
// patient, lazily recovered from the record store on first touch.
type Service struct {
	products      catalog.ProductRepository
	prescriptions prescription.PrescriptionRepository
	records       kvstore.Store
	publisher     events.Publisher
	log           zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*session
}

func NewService(
	products catalog.ProductRepository,
	prescriptions prescription.PrescriptionRepository,
	records kvstore.Store,
	publisher events.Publisher,
	log zerolog.Logger,
) *Service {
	if publisher == nil {
		publisher = events.Nop{}
	}
	return &Service{
		products:      products,
		prescriptions: prescriptions,
		records:       records,
		publisher:     publisher,
		log:           log,
		sessions:      make(map[string]*session),
	}
}

// session returns the patient's live cart, recovering items, shipping
// method, coupon and shipping info from the record store on first touch.
func (s *Service) session(ctx context.Context, patientID string) *session {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sess, ok := s.sessions[patientID]; ok {
		return sess
	}

	sess := &session{
		store: NewStore(ctx, patientID, s.records, s.log),
		gate:  NewGate(),
	}
	for key, dst := range map[string]interface{}{
		KeyShippingMethod: &sess.shippingMethod,
		KeyCouponCode:     &sess.couponCode,
		KeyShippingInfo:   &sess.shippingInfo,
	} {
		if err := kvstore.LoadJSON(ctx, s.records, patientID, key, dst); err != nil && !errors.Is(err, kvstore.ErrNotFound) {
			s.log.Warn().Err(err).Str("patient_id", patientID).Str("key", key).Msg("selection recovery failed, using default")
		}
	}
	s.sessions[patientID] = sess
	return sess
}

// AddToCart puts a product in the cart. Regulated products do not enter the
// cart here: the add is parked on the gate and the returned Pending tells
// the client to start the prescription selection flow.
func (s *Service) AddToCart(ctx context.Context, patientID string, productID uuid.UUID, quantity int) (*AddResult, error) {
	if quantity < 1 {
		quantity = 1
	}

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if !product.InStock {
		return nil, fmt.Errorf("%w: %s", ErrOutOfStock, product.Name)
	}

	sess := s.session(ctx, patientID)

	if product.RequiresPrescription {
		if err := sess.gate.Request(*product, quantity); err != nil {
			return nil, err
		}
		return &AddResult{Items: sess.store.Items(), Pending: sess.gate.Pending()}, nil
	}

	items := sess.store.Upsert(ctx, LineItem{Product: *product, Quantity: quantity})
	s.notify(ctx, patientID, "item_added", items)
	return &AddResult{Items: items}, nil
}

// ResolvePrescriptionSelection completes a parked add with the selected
// prescription. The prescription must belong to the patient and still be
// usable; an expired selection fails but leaves the add parked so another
// prescription can be picked.
func (s *Service) ResolvePrescriptionSelection(ctx context.Context, patientID string, prescriptionID uuid.UUID) ([]LineItem, error) {
	sess := s.session(ctx, patientID)
	if sess.gate.Pending() == nil {
		return nil, ErrNoPendingRequest
	}

	p, err := s.prescriptions.GetByID(ctx, prescriptionID)
	if err != nil {
		return nil, err
	}
	if p.PatientID != patientID {
		return nil, prescription.ErrPrescriptionNotFound
	}

	req, err := sess.gate.Resolve(p)
	if err != nil {
		return nil, err
	}

	items := sess.store.Upsert(ctx, LineItem{Product: req.Product, Quantity: req.Quantity, Prescription: p})
	s.notify(ctx, patientID, "item_added", items)
	return items, nil
}

// CancelPrescriptionSelection abandons the parked add. The cart is untouched.
func (s *Service) CancelPrescriptionSelection(ctx context.Context, patientID string) error {
	return s.session(ctx, patientID).gate.Cancel()
}

// UpdateQuantity sets a line's quantity. Zero or negative removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, patientID string, productID uuid.UUID, quantity int) ([]LineItem, error) {
	sess := s.session(ctx, patientID)
	items := sess.store.SetQuantity(ctx, productID, quantity)
	s.notify(ctx, patientID, "quantity_updated", items)
	return items, nil
}

// RemoveFromCart deletes a line. Idempotent.
func (s *Service) RemoveFromCart(ctx context.Context, patientID string, productID uuid.UUID) ([]LineItem, error) {
	sess := s.session(ctx, patientID)
	items := sess.store.Remove(ctx, productID)
	s.notify(ctx, patientID, "item_removed", items)
	return items, nil
}

// ApplyCoupon validates and applies a promotional code. An unknown code is
// non-fatal: the cart and any previously applied coupon stay untouched and
// ErrInvalidCoupon is returned alongside the unchanged totals.
func (s *Service) ApplyCoupon(ctx context.Context, patientID, code string) (Totals, error) {
	sess := s.session(ctx, patientID)

	if err := ValidateCoupon(code); err != nil {
		return s.totals(sess), err
	}

	sess.couponCode = code
	s.saveSelection(ctx, patientID, KeyCouponCode, code)
	s.notify(ctx, patientID, "coupon_applied", sess.store.Items())
	return s.totals(sess), nil
}

// SetShippingMethod records the shipping selection. Unknown methods are kept
// as given and priced as standard.
func (s *Service) SetShippingMethod(ctx context.Context, patientID, method string) (Totals, error) {
	sess := s.session(ctx, patientID)
	sess.shippingMethod = method
	s.saveSelection(ctx, patientID, KeyShippingMethod, method)
	s.notify(ctx, patientID, "shipping_updated", sess.store.Items())
	return s.totals(sess), nil
}

// SetShippingInfo records the delivery address.
func (s *Service) SetShippingInfo(ctx context.Context, patientID string, info ShippingInfo) error {
	if info.FullName == "" || info.Address == "" || info.City == "" || info.PostalCode == "" {
		return fmt.Errorf("full_name, address, city and postal_code are required")
	}
	sess := s.session(ctx, patientID)
	sess.shippingInfo = &info
	s.saveSelection(ctx, patientID, KeyShippingInfo, info)
	return nil
}

// Totals prices the current cart.
func (s *Service) Totals(ctx context.Context, patientID string) Totals {
	return s.totals(s.session(ctx, patientID))
}

func (s *Service) totals(sess *session) Totals {
	return ComputeTotals(sess.store.Items(), sess.shippingMethod, sess.couponCode)
}

// State returns the full cart view: snapshot, totals, any pending
// prescription selection, and whether persistence is degraded.
func (s *Service) State(ctx context.Context, patientID string) State {
	sess := s.session(ctx, patientID)
	return State{
		Snapshot: Snapshot{
			Items:          sess.store.Items(),
			ShippingMethod: sess.shippingMethod,
			CouponCode:     sess.couponCode,
			ShippingInfo:   sess.shippingInfo,
		},
		Totals:   s.totals(sess),
		Pending:  sess.gate.Pending(),
		Degraded: sess.store.Degraded(),
	}
}

// ClearCart empties the cart and the persisted shipping and coupon
// selections, typically after checkout completion.
func (s *Service) ClearCart(ctx context.Context, patientID string) error {
	sess := s.session(ctx, patientID)
	sess.store.Clear(ctx)
	sess.shippingMethod = ""
	sess.couponCode = ""
	s.notify(ctx, patientID, "cleared", nil)
	return nil
}

// saveSelection persists one selection record. Selections follow the same
// degradation stance as the cart record: a write failure is logged and the
// in-memory value keeps serving the session.
func (s *Service) saveSelection(ctx context.Context, patientID, key string, value interface{}) {
	if err := kvstore.SaveJSON(ctx, s.records, patientID, key, value); err != nil {
		s.log.Warn().Err(err).Str("patient_id", patientID).Str("key", key).Msg("selection persistence failed")
	}
}

// notify publishes a cart change so connected clients can refresh badges.
func (s *Service) notify(ctx context.Context, patientID, changeType string, items []LineItem) {
	count := 0
	for _, it := range items {
		count += it.Quantity
	}
	data, _ := json.Marshal(map[string]int{"item_count": count})
	if err := s.publisher.Publish(ctx, events.Event{
		Topic:     events.TopicCartUpdated,
		PatientID: patientID,
		Type:      changeType,
		Data:      data,
	}); err != nil {
		s.log.Warn().Err(err).Str("patient_id", patientID).Msg("cart notification failed")
	}
}
