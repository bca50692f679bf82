package cart

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/healthhub/portal/internal/domain/catalog"
	"github.com/healthhub/portal/internal/platform/kvstore"
)

func lineFor(name string, price float64, qty int) LineItem {
	return LineItem{
		Product:  catalog.Product{ID: uuid.New(), Name: name, UnitPrice: price},
		Quantity: qty,
	}
}

func newTestStore(t *testing.T) (*Store, *kvstore.Memory) {
	t.Helper()
	mem := kvstore.NewMemory()
	return NewStore(context.Background(), "p1", mem, zerolog.Nop()), mem
}

func TestStore_UpsertMergesQuantities(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	li := lineFor("Doliprane 1000mg", 250, 1)
	s.Upsert(ctx, li)
	items := s.Upsert(ctx, LineItem{Product: li.Product, Quantity: 2})

	if len(items) != 1 {
		t.Fatalf("expected 1 line, got %d", len(items))
	}
	if items[0].Quantity != 3 {
		t.Errorf("expected merged quantity 3, got %d", items[0].Quantity)
	}
}

func TestStore_SetQuantityZeroRemoves(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	li := lineFor("Doliprane 1000mg", 250, 2)
	s.Upsert(ctx, li)

	items := s.SetQuantity(ctx, li.Product.ID, 0)
	if len(items) != 0 {
		t.Errorf("quantity 0 must remove the line, got %d lines", len(items))
	}

	s.Upsert(ctx, li)
	items = s.SetQuantity(ctx, li.Product.ID, -3)
	if len(items) != 0 {
		t.Errorf("negative quantity must remove the line, got %d lines", len(items))
	}
}

func TestStore_RemoveIdempotent(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	li := lineFor("Doliprane 1000mg", 250, 1)
	s.Upsert(ctx, li)

	if items := s.Remove(ctx, li.Product.ID); len(items) != 0 {
		t.Fatalf("expected empty cart, got %d lines", len(items))
	}
	if items := s.Remove(ctx, li.Product.ID); len(items) != 0 {
		t.Errorf("second remove must be a no-op, got %d lines", len(items))
	}
}

func TestStore_PersistsAndRecovers(t *testing.T) {
	mem := kvstore.NewMemory()
	ctx := context.Background()

	s := NewStore(ctx, "p1", mem, zerolog.Nop())
	li := lineFor("Doliprane 1000mg", 250, 2)
	s.Upsert(ctx, li)

	recovered := NewStore(ctx, "p1", mem, zerolog.Nop())
	items := recovered.Items()
	if len(items) != 1 {
		t.Fatalf("expected recovered cart with 1 line, got %d", len(items))
	}
	if items[0].Product.Name != "Doliprane 1000mg" || items[0].Quantity != 2 {
		t.Errorf("unexpected recovered line: %+v", items[0])
	}
}

func TestStore_DegradesOnPersistFailureAndRecovers(t *testing.T) {
	s, mem := newTestStore(t)
	ctx := context.Background()

	mem.SetSaveErr(errors.New("connection refused"))
	li := lineFor("Doliprane 1000mg", 250, 1)
	items := s.Upsert(ctx, li)

	// The mutation still lands in memory.
	if len(items) != 1 {
		t.Fatalf("expected 1 line despite persistence failure, got %d", len(items))
	}
	if !s.Degraded() {
		t.Error("store should report degraded persistence")
	}

	// Backend comes back: next mutation persists and clears the flag.
	mem.SetSaveErr(nil)
	s.Upsert(ctx, lineFor("Thermomètre frontal", 2490, 1))
	if s.Degraded() {
		t.Error("store should recover once persistence succeeds")
	}

	var persisted []LineItem
	if err := kvstore.LoadJSON(ctx, mem, "p1", KeyCart, &persisted); err != nil {
		t.Fatalf("load persisted cart: %v", err)
	}
	if len(persisted) != 2 {
		t.Errorf("expected 2 persisted lines, got %d", len(persisted))
	}
}

func TestStore_ClearDropsSelections(t *testing.T) {
	s, mem := newTestStore(t)
	ctx := context.Background()

	s.Upsert(ctx, lineFor("Doliprane 1000mg", 250, 1))
	kvstore.SaveJSON(ctx, mem, "p1", KeyShippingMethod, ShippingExpress)
	kvstore.SaveJSON(ctx, mem, "p1", KeyCouponCode, "SANTE10")

	s.Clear(ctx)

	if items := s.Items(); len(items) != 0 {
		t.Errorf("expected empty cart, got %d lines", len(items))
	}
	if _, err := mem.Load(ctx, "p1", KeyShippingMethod); !errors.Is(err, kvstore.ErrNotFound) {
		t.Errorf("shipping method should be cleared, got %v", err)
	}
	if _, err := mem.Load(ctx, "p1", KeyCouponCode); !errors.Is(err, kvstore.ErrNotFound) {
		t.Errorf("coupon should be cleared, got %v", err)
	}
}
