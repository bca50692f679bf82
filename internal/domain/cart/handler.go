package cart

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthhub/portal/internal/domain/catalog"
	"github.com/healthhub/portal/internal/domain/prescription"
	"github.com/healthhub/portal/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/cart", auth.RequireRole("patient"))
	g.GET("", h.GetState)
	g.DELETE("", h.Clear)
	g.GET("/totals", h.GetTotals)
	g.POST("/items", h.AddItem)
	g.PUT("/items/:productId", h.UpdateQuantity)
	g.DELETE("/items/:productId", h.RemoveItem)
	g.POST("/coupon", h.ApplyCoupon)
	g.PUT("/shipping-method", h.SetShippingMethod)
	g.PUT("/shipping-info", h.SetShippingInfo)
	g.POST("/prescription-selection/resolve", h.ResolveSelection)
	g.POST("/prescription-selection/cancel", h.CancelSelection)
}

func patientID(c echo.Context) string {
	return auth.UserIDFromContext(c.Request().Context())
}

// httpError maps domain errors to HTTP status codes.
func httpError(err error) *echo.HTTPError {
	switch {
	case errors.Is(err, catalog.ErrProductNotFound),
		errors.Is(err, prescription.ErrPrescriptionNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrOutOfStock),
		errors.Is(err, ErrNoPendingRequest),
		errors.Is(err, ErrSelectionInProgress):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidCoupon),
		errors.Is(err, ErrPrescriptionExpired):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}

func (h *Handler) GetState(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.State(c.Request().Context(), patientID(c)))
}

func (h *Handler) GetTotals(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Totals(c.Request().Context(), patientID(c)))
}

type addItemRequest struct {
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

func (h *Handler) AddItem(c echo.Context) error {
	var req addItemRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.ProductID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "product_id is required")
	}

	result, err := h.svc.AddToCart(c.Request().Context(), patientID(c), req.ProductID, req.Quantity)
	if err != nil {
		return httpError(err)
	}
	if result.Pending != nil {
		// Parked behind the prescription gate, not in the cart yet.
		return c.JSON(http.StatusAccepted, result)
	}
	return c.JSON(http.StatusCreated, result)
}

type updateQuantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) UpdateQuantity(c echo.Context) error {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}
	var req updateQuantityRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	items, err := h.svc.UpdateQuantity(c.Request().Context(), patientID(c), productID, req.Quantity)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) RemoveItem(c echo.Context) error {
	productID, err := uuid.Parse(c.Param("productId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	items, err := h.svc.RemoveFromCart(c.Request().Context(), patientID(c), productID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": items})
}

type applyCouponRequest struct {
	Code string `json:"code"`
}

func (h *Handler) ApplyCoupon(c echo.Context) error {
	var req applyCouponRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	totals, err := h.svc.ApplyCoupon(c.Request().Context(), patientID(c), req.Code)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, totals)
}

type setShippingMethodRequest struct {
	Method string `json:"method"`
}

func (h *Handler) SetShippingMethod(c echo.Context) error {
	var req setShippingMethodRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	totals, err := h.svc.SetShippingMethod(c.Request().Context(), patientID(c), req.Method)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, totals)
}

func (h *Handler) SetShippingInfo(c echo.Context) error {
	var info ShippingInfo
	if err := c.Bind(&info); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SetShippingInfo(c.Request().Context(), patientID(c), info); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

type resolveSelectionRequest struct {
	PrescriptionID uuid.UUID `json:"prescription_id"`
}

func (h *Handler) ResolveSelection(c echo.Context) error {
	var req resolveSelectionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.PrescriptionID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "prescription_id is required")
	}

	items, err := h.svc.ResolvePrescriptionSelection(c.Request().Context(), patientID(c), req.PrescriptionID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"items": items})
}

func (h *Handler) CancelSelection(c echo.Context) error {
	if err := h.svc.CancelPrescriptionSelection(c.Request().Context(), patientID(c)); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Clear(c echo.Context) error {
	if err := h.svc.ClearCart(c.Request().Context(), patientID(c)); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}
