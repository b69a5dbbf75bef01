package notification

import (
	"net/http"
	"time"

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

	doctorOnly := secured.Group("", auth.RequireRole(auth.RoleDoctor))
	doctorOnly.POST("/notifications", h.Create)
	doctorOnly.GET("/notifications/:id", h.Get)

	secured.GET("/patients/:patientId/notifications", h.ListForPatient)
	secured.POST("/patients/:patientId/notifications/:id/read", h.AcknowledgeRead, auth.RequireRole(auth.RolePatient))
}

type createRequest struct {
	Title        string            `json:"title"`
	Message      string            `json:"message"`
	Category     string            `json:"category"`
	Priority     string            `json:"priority"`
	Recipients   []string          `json:"recipients"`
	ScheduledFor *time.Time        `json:"scheduledFor"`
	Metadata     map[string]string `json:"metadata"`
}

func (h *Handler) Create(c echo.Context) error {
	var req createRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	issuerPhone, _ := c.Get("auth_subject").(string)

	n, err := h.svc.Create(c.Request().Context(), CreateInput{
		Title:        req.Title,
		Message:      req.Message,
		Category:     req.Category,
		Priority:     req.Priority,
		Recipients:   req.Recipients,
		ScheduledFor: req.ScheduledFor,
		Metadata:     req.Metadata,
		IssuerPhone:  issuerPhone,
	})
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}
	n, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, n)
}

func (h *Handler) ListForPatient(c echo.Context) error {
	patientID := c.Param("patientId")

	// Patients may only list their own notifications; doctors may list any.
	if role, _ := c.Get("auth_role").(string); role == auth.RolePatient {
		if subject, _ := c.Get("auth_subject").(string); subject != patientID {
			return echo.NewHTTPError(http.StatusForbidden, "cannot access another patient's notifications")
		}
	}

	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListForPatient(c.Request().Context(), patientID, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) AcknowledgeRead(c echo.Context) error {
	patientID := c.Param("patientId")

	if subject, _ := c.Get("auth_subject").(string); subject != patientID {
		return echo.NewHTTPError(http.StatusForbidden, "cannot acknowledge another patient's notification")
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid notification id")
	}
	if err := h.svc.AcknowledgeRead(c.Request().Context(), id, patientID); err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "read"})
}
