package vitals

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/healthtrack/healthtrack/internal/domain/apperr"
	"github.com/healthtrack/healthtrack/internal/platform/auth"
	"github.com/healthtrack/healthtrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group, authn echo.MiddlewareFunc) {
	secured := api.Group("", authn)
	secured.POST("/patients/:patientId/readings", h.AddReading)
	secured.GET("/patients/:patientId/readings", h.ListByPatient)
	secured.GET("/readings/:id", h.GetReading)
	secured.PUT("/readings/:id", h.UpdateReading)
	secured.DELETE("/readings/:id", h.DeleteReading)
}

// patientMayAccess reports whether the caller may touch records belonging to
// patientID. Doctors may touch any; patients only their own.
func patientMayAccess(c echo.Context, patientID string) bool {
	role, _ := c.Get("auth_role").(string)
	if role != auth.RolePatient {
		return true
	}
	subject, _ := c.Get("auth_subject").(string)
	return subject == patientID
}

type readingRequest struct {
	Systolic   int     `json:"systolic"`
	Diastolic  int     `json:"diastolic"`
	SugarLevel int     `json:"sugarLevel"`
	HeartRate  int     `json:"heartRate"`
	Weight     float64 `json:"weight"`
}

func (h *Handler) AddReading(c echo.Context) error {
	patientID := c.Param("patientId")
	if !patientMayAccess(c, patientID) {
		return echo.NewHTTPError(http.StatusForbidden, "cannot record readings for another patient")
	}

	var req readingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	r := Reading{
		PatientID:  patientID,
		Systolic:   req.Systolic,
		Diastolic:  req.Diastolic,
		SugarLevel: req.SugarLevel,
		HeartRate:  req.HeartRate,
		Weight:     req.Weight,
	}
	if err := h.svc.AddReading(c.Request().Context(), &r); err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *Handler) ListByPatient(c echo.Context) error {
	patientID := c.Param("patientId")
	if !patientMayAccess(c, patientID) {
		return echo.NewHTTPError(http.StatusForbidden, "cannot access another patient's readings")
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListByPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// loadOwned fetches a reading and enforces that the caller may access its
// owner's records.
func (h *Handler) loadOwned(c echo.Context) (*Reading, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid reading id")
	}
	r, err := h.svc.GetReading(c.Request().Context(), id)
	if err != nil {
		return nil, echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	if !patientMayAccess(c, r.PatientID) {
		return nil, echo.NewHTTPError(http.StatusForbidden, "cannot access another patient's reading")
	}
	return r, nil
}

func (h *Handler) GetReading(c echo.Context) error {
	r, err := h.loadOwned(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

func (h *Handler) UpdateReading(c echo.Context) error {
	r, err := h.loadOwned(c)
	if err != nil {
		return err
	}

	var req readingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	updated, err := h.svc.UpdateReading(c.Request().Context(), r.ID, &Reading{
		Systolic:   req.Systolic,
		Diastolic:  req.Diastolic,
		SugarLevel: req.SugarLevel,
		HeartRate:  req.HeartRate,
		Weight:     req.Weight,
	})
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

func (h *Handler) DeleteReading(c echo.Context) error {
	r, err := h.loadOwned(c)
	if err != nil {
		return err
	}
	if err := h.svc.DeleteReading(c.Request().Context(), r.ID); err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
