package growth

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/kidtrack/kidtrack/internal/platform/auth"
	"github.com/kidtrack/kidtrack/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/growth-standards", h.GetStandard)

	records := api.Group("", auth.RequireRole("user", "doctor", "admin"))
	records.POST("/growth-records", h.CreateRecord)
	records.GET("/growth-records/:id", h.GetRecord)
	records.PUT("/growth-records/:id", h.UpdateRecord)
	records.DELETE("/growth-records/:id", h.DeleteRecord)
	records.GET("/children/:id/growth-records", h.ListRecords)
	records.GET("/children/:id/assessment", h.Assess)
}

// httpError maps the package's sentinel errors onto client-facing statuses.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrRecordNotFound),
		errors.Is(err, ErrChildNotFound),
		errors.Is(err, ErrStandardNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidAge):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

// -- Record Handlers --

func (h *Handler) CreateRecord(c echo.Context) error {
	var rec Record
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateRecord(c.Request().Context(), &rec); err != nil {
		if errors.Is(err, ErrChildNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.GetRecord(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) UpdateRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var rec Record
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	rec.ID = id
	if err := h.svc.UpdateRecord(c.Request().Context(), &rec); err != nil {
		if errors.Is(err, ErrRecordNotFound) || errors.Is(err, ErrChildNotFound) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) DeleteRecord(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteRecord(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListRecords(c echo.Context) error {
	childID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid child id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.ListRecords(c.Request().Context(), childID, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

// -- Standard Handler --

func (h *Handler) GetStandard(c echo.Context) error {
	gender := c.QueryParam("gender")
	ageStr := c.QueryParam("age_months")
	m := MeasurementType(c.QueryParam("measurement_type"))
	if gender == "" || ageStr == "" || m == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "gender, age_months and measurement_type query parameters are required")
	}
	age, err := strconv.ParseFloat(ageStr, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid age_months")
	}
	row, err := h.svc.Standard(c.Request().Context(), gender, age, m)
	if err != nil {
		if errors.Is(err, ErrStandardNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, row)
}

// -- Assessment Handler --

func (h *Handler) Assess(c echo.Context) error {
	childID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid child id")
	}
	out, err := h.svc.Assess(c.Request().Context(), childID)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, out)
}
