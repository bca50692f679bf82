package prescription

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/healthhub/portal/internal/platform/auth"
	"github.com/healthhub/portal/internal/platform/blobstore"
)

func newTestHandler(t *testing.T) (*Handler, PrescriptionRepository) {
	t.Helper()
	repo := NewMemoryRepo()
	return NewHandler(NewService(repo, blobstore.NewInMemoryBlobStore())), repo
}

func ctxWithPatient(e *echo.Echo, req *http.Request, rec *httptest.ResponseRecorder, patientID string) echo.Context {
	req = req.WithContext(auth.WithIdentity(req.Context(), patientID, "patient"))
	return e.NewContext(req, rec)
}

func TestHandler_ListMine_ScopedToPatient(t *testing.T) {
	h, repo := newTestHandler(t)
	ctx := context.Background()
	repo.Create(ctx, &Prescription{PatientID: "p1", Status: StatusActive, IssuedAt: time.Now(), Medications: []string{"a"}})
	repo.Create(ctx, &Prescription{PatientID: "p2", Status: StatusActive, IssuedAt: time.Now(), Medications: []string{"b"}})

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := ctxWithPatient(e, req, rec, "p1")

	if err := h.ListMine(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var resp struct {
		Data  []*Prescription `json:"data"`
		Total int             `json:"total"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.Total != 1 {
		t.Fatalf("expected 1 prescription, got %d", resp.Total)
	}
	if resp.Data[0].PatientID != "p1" {
		t.Errorf("leaked another patient's prescription: %+v", resp.Data[0])
	}
}

func TestHandler_Get_OtherPatientHidden(t *testing.T) {
	h, repo := newTestHandler(t)
	p := &Prescription{PatientID: "p2", Status: StatusActive, IssuedAt: time.Now(), Medications: []string{"a"}}
	repo.Create(context.Background(), p)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := ctxWithPatient(e, req, rec, "p1")
	c.SetParamNames("id")
	c.SetParamValues(p.ID.String())

	err := h.Get(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusNotFound {
		t.Errorf("expected 404 for another patient's prescription, got %v", err)
	}
}

func multipartUpload(t *testing.T, fileName, contentType, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	hdr.Set("Content-Type", contentType)
	part, err := w.CreatePart(hdr)
	if err != nil {
		t.Fatalf("create part: %v", err)
	}
	part.Write([]byte(content))
	w.WriteField("medications", "Ventoline 100µg")
	w.Close()
	return &buf, w.FormDataContentType()
}

func TestHandler_Upload(t *testing.T) {
	h, _ := newTestHandler(t)

	body, contentType := multipartUpload(t, "ordonnance.pdf", "application/pdf", "%PDF-1.4 fake")
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := ctxWithPatient(e, req, rec, "p1")

	if err := h.Upload(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var p Prescription
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.PatientID != "p1" {
		t.Errorf("expected patient p1, got %s", p.PatientID)
	}
	if len(p.Medications) != 1 {
		t.Errorf("expected medications to be parsed, got %v", p.Medications)
	}
}

func TestHandler_Upload_RejectedType(t *testing.T) {
	h, _ := newTestHandler(t)

	body, contentType := multipartUpload(t, "notes.txt", "text/plain", "hello")
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	c := ctxWithPatient(e, req, rec, "p1")

	err := h.Upload(c)
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %v", err)
	}
}
