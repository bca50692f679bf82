package prescription

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthhub/portal/internal/platform/auth"
	"github.com/healthhub/portal/internal/platform/blobstore"
	"github.com/healthhub/portal/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	patientGroup := api.Group("", auth.RequireRole("patient"))
	patientGroup.GET("/prescriptions", h.ListMine)
	patientGroup.GET("/prescriptions/:id", h.Get)
	patientGroup.POST("/prescriptions/upload", h.Upload)

	staffGroup := api.Group("", auth.RequireRole("professional", "pharmacist"))
	staffGroup.POST("/prescriptions", h.Create)
	staffGroup.POST("/prescriptions/:id/verify", h.Verify)
	staffGroup.POST("/prescriptions/:id/complete", h.Complete)
}

func (h *Handler) ListMine(c echo.Context) error {
	patientID := auth.UserIDFromContext(c.Request().Context())
	pg := pagination.FromContext(c)

	usableOnly := false
	if v := c.QueryParam("usable"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid usable")
		}
		usableOnly = b
	}

	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, usableOnly, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	// Patients only ever see their own prescriptions.
	if p.PatientID != auth.UserIDFromContext(c.Request().Context()) {
		return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
	}
	return c.JSON(http.StatusOK, p)
}

// Upload accepts a multipart form with a "file" part and an optional
// comma-separated "medications" field.
func (h *Handler) Upload(c echo.Context) error {
	patientID := auth.UserIDFromContext(c.Request().Context())

	fh, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	src, err := fh.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	defer src.Close()

	var medications []string
	if v := c.FormValue("medications"); v != "" {
		for _, m := range strings.Split(v, ",") {
			if m = strings.TrimSpace(m); m != "" {
				medications = append(medications, m)
			}
		}
	}

	p, err := h.svc.Upload(c.Request().Context(), patientID,
		fh.Filename, fh.Header.Get(echo.HeaderContentType), fh.Size, src, medications)
	if err != nil {
		if errors.Is(err, blobstore.ErrInvalidAttachment) {
			return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Create(c echo.Context) error {
	var p Prescription
	if err := c.Bind(&p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	professionalID := auth.UserIDFromContext(c.Request().Context())
	p.ProfessionalID = &professionalID
	if err := h.svc.Create(c.Request().Context(), &p); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Verify(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Verify(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Complete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.MarkCompleted(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, ErrPrescriptionNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "prescription not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}
