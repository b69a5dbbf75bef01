package identity

import (
	"errors"
	"net/http"

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

// RegisterRoutes wires the identity endpoints. Login and registration are
// public; everything else sits behind the token middleware.
func (h *Handler) RegisterRoutes(api *echo.Group, authn echo.MiddlewareFunc) {
	api.POST("/doctors", h.CreateDoctor)
	api.POST("/doctors/login", h.DoctorLogin)
	api.POST("/patients/register", h.RegisterPatient)
	api.POST("/patients/login", h.PatientLogin)

	secured := api.Group("", authn)

	doctorOnly := secured.Group("", auth.RequireRole(auth.RoleDoctor))
	doctorOnly.GET("/doctors", h.ListDoctors)
	doctorOnly.GET("/doctors/:phone", h.GetDoctor)
	doctorOnly.PUT("/doctors/:phone", h.UpdateDoctor)
	doctorOnly.DELETE("/doctors/:phone", h.DeactivateDoctor)
	doctorOnly.GET("/patients", h.ListPatients)

	secured.GET("/patients/:patientId", h.GetPatient)
	secured.POST("/patients/:patientId/push-token", h.SavePushToken)
}

// -- Doctor Handlers --

type createDoctorRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Clinic   string `json:"clinic"`
}

func (h *Handler) CreateDoctor(c echo.Context) error {
	var req createDoctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d := Doctor{
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
		Clinic: req.Clinic,
	}
	if err := h.svc.CreateDoctor(c.Request().Context(), &d, req.Password); err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, d)
}

type loginRequest struct {
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

func (h *Handler) DoctorLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d, token, err := h.svc.AuthenticateDoctor(c.Request().Context(), req.Phone, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"token":  token,
		"doctor": d,
	})
}

func (h *Handler) GetDoctor(c echo.Context) error {
	d, err := h.svc.GetDoctor(c.Request().Context(), c.Param("phone"))
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) ListDoctors(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListDoctors(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type updateDoctorRequest struct {
	Name   string `json:"name"`
	Email  string `json:"email"`
	Clinic string `json:"clinic"`
}

func (h *Handler) UpdateDoctor(c echo.Context) error {
	var req updateDoctorRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	d := Doctor{
		Phone:  c.Param("phone"),
		Name:   req.Name,
		Email:  req.Email,
		Clinic: req.Clinic,
	}
	if err := h.svc.UpdateDoctor(c.Request().Context(), &d); err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, d)
}

func (h *Handler) DeactivateDoctor(c echo.Context) error {
	if err := h.svc.DeactivateDoctor(c.Request().Context(), c.Param("phone")); err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// -- Patient Handlers --

type registerPatientRequest struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Age      int    `json:"age"`
	Gender   string `json:"gender"`
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var req registerPatientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p := Patient{
		Name:   req.Name,
		Phone:  req.Phone,
		Age:    req.Age,
		Gender: req.Gender,
	}
	if err := h.svc.RegisterPatient(c.Request().Context(), &p, req.Password); err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) PatientLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	p, token, err := h.svc.AuthenticatePatient(c.Request().Context(), req.Phone, req.Password)
	if err != nil {
		if errors.Is(err, ErrInvalidCredentials) {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"token":   token,
		"patient": p,
	})
}

func (h *Handler) GetPatient(c echo.Context) error {
	patientID := c.Param("patientId")

	// Patients may only read their own record; doctors may read any.
	if role, _ := c.Get("auth_role").(string); role == auth.RolePatient {
		if subject, _ := c.Get("auth_subject").(string); subject != patientID {
			return echo.NewHTTPError(http.StatusForbidden, "cannot access another patient's record")
		}
	}

	p, err := h.svc.GetPatient(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

type pushTokenRequest struct {
	PushToken string `json:"pushToken"`
}

func (h *Handler) SavePushToken(c echo.Context) error {
	patientID := c.Param("patientId")

	if role, _ := c.Get("auth_role").(string); role == auth.RolePatient {
		if subject, _ := c.Get("auth_subject").(string); subject != patientID {
			return echo.NewHTTPError(http.StatusForbidden, "cannot set another patient's push token")
		}
	}

	var req pushTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.SavePushToken(c.Request().Context(), patientID, req.PushToken); err != nil {
		return echo.NewHTTPError(apperr.HTTPStatus(err), err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "saved"})
}
