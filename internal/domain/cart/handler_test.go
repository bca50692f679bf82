package cart

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/healthhub/portal/internal/domain/prescription"
	"github.com/healthhub/portal/internal/platform/auth"
)

func newHandlerFixture(t *testing.T) (*Handler, *fixture) {
	t.Helper()
	f := newFixture(t)
	return NewHandler(f.svc), f
}

func patientContext(e *echo.Echo, method, target, body string, patientID string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	req = req.WithContext(auth.WithIdentity(req.Context(), patientID, "patient"))
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestHandler_AddItem(t *testing.T) {
	h, f := newHandlerFixture(t)
	p := f.addProduct(t, "Doliprane 1000mg", 250, false, true)

	e := echo.New()
	c, rec := patientContext(e, http.MethodPost, "/", `{"product_id":"`+p.ID.String()+`","quantity":2}`, "p1")

	if err := h.AddItem(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var result AddResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(result.Items) != 1 || result.Items[0].Quantity != 2 {
		t.Errorf("unexpected result: %+v", result)
	}
}

func TestHandler_AddItem_GatedReturnsAccepted(t *testing.T) {
	h, f := newHandlerFixture(t)
	p := f.addProduct(t, "Amoxicilline 500mg", 890, true, true)

	e := echo.New()
	c, rec := patientContext(e, http.MethodPost, "/", `{"product_id":"`+p.ID.String()+`"}`, "p1")

	if err := h.AddItem(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusAccepted {
		t.Fatalf("expected 202 for gated add, got %d", rec.Code)
	}
	var result AddResult
	if err := json.Unmarshal(rec.Body.Bytes(), &result); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if result.Pending == nil {
		t.Error("expected pending prescription selection")
	}
}

func TestHandler_AddItem_OutOfStockConflict(t *testing.T) {
	h, f := newHandlerFixture(t)
	p := f.addProduct(t, "Crème solaire SPF50", 1490, false, false)

	e := echo.New()
	c, _ := patientContext(e, http.MethodPost, "/", `{"product_id":"`+p.ID.String()+`"}`, "p1")

	err := h.AddItem(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusConflict {
		t.Errorf("expected 409, got %v", err)
	}
}

func TestHandler_ApplyCoupon_InvalidUnprocessable(t *testing.T) {
	h, _ := newHandlerFixture(t)

	e := echo.New()
	c, _ := patientContext(e, http.MethodPost, "/", `{"code":"GARBAGE"}`, "p1")

	err := h.ApplyCoupon(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %v", err)
	}
}

func TestHandler_ResolveSelection(t *testing.T) {
	h, f := newHandlerFixture(t)
	ctx := context.Background()
	p := f.addProduct(t, "Amoxicilline 500mg", 890, true, true)
	exp := time.Now().Add(24 * time.Hour)
	rx := &prescription.Prescription{
		PatientID: "p1", Status: prescription.StatusActive,
		IssuedAt: time.Now(), ExpiresAt: &exp, Medications: []string{"Amoxicilline"},
	}
	if err := f.prescriptions.Create(ctx, rx); err != nil {
		t.Fatalf("create prescription: %v", err)
	}
	if _, err := f.svc.AddToCart(ctx, "p1", p.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	e := echo.New()
	c, rec := patientContext(e, http.MethodPost, "/", `{"prescription_id":"`+rx.ID.String()+`"}`, "p1")

	if err := h.ResolveSelection(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestHandler_GetState(t *testing.T) {
	h, f := newHandlerFixture(t)
	p := f.addProduct(t, "Doliprane 1000mg", 250, false, true)
	if _, err := f.svc.AddToCart(context.Background(), "p1", p.ID, 1); err != nil {
		t.Fatalf("add: %v", err)
	}

	e := echo.New()
	c, rec := patientContext(e, http.MethodGet, "/", "", "p1")

	if err := h.GetState(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var state State
	if err := json.Unmarshal(rec.Body.Bytes(), &state); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(state.Snapshot.Items) != 1 {
		t.Errorf("unexpected state: %+v", state.Snapshot)
	}
	if state.Totals.Total != 250+1000 {
		t.Errorf("unexpected total: %v", state.Totals.Total)
	}
}
