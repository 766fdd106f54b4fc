package scheduling

import (
	"errors"
	"net/http"
	"time"

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
	api.GET("/schedules", h.ListSchedules)
	api.GET("/schedules/:id", h.GetSchedule)
	api.GET("/schedules/:id/slots", h.ListSlots)

	doctorGroup := api.Group("", auth.RequireRole("doctor"))
	doctorGroup.POST("/schedules", h.CreateSchedule)
	doctorGroup.PUT("/schedules/:id", h.UpdateSchedule)
	doctorGroup.DELETE("/schedules/:id", h.DeleteSchedule)
	doctorGroup.POST("/appointments/:id/complete", h.CompleteAppointment)

	userGroup := api.Group("", auth.RequireRole("user", "doctor"))
	userGroup.POST("/appointments", h.CreateAppointment)
	userGroup.GET("/appointments", h.ListAppointments)
	userGroup.GET("/appointments/:id", h.GetAppointment)
	userGroup.POST("/appointments/:id/cancel", h.CancelAppointment)
}

// httpError maps the package's sentinel errors onto client-facing statuses.
func httpError(err error) error {
	switch {
	case errors.Is(err, ErrScheduleNotFound),
		errors.Is(err, ErrAppointmentNotFound),
		errors.Is(err, ErrUserNotFound):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrInvalidSlot):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrDuplicateSchedule),
		errors.Is(err, ErrSlotTaken),
		errors.Is(err, ErrScheduleUnavailable),
		errors.Is(err, ErrAlreadyCancelled),
		errors.Is(err, ErrAlreadyCompleted):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	case errors.Is(err, ErrPastDate),
		errors.Is(err, ErrScheduleLeadTime),
		errors.Is(err, ErrScheduleLocked),
		errors.Is(err, ErrDailyCancellationLimit),
		errors.Is(err, ErrPastAppointment):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, ErrUnauthorized):
		return echo.NewHTTPError(http.StatusForbidden, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}

func requesterID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(auth.UserIDFromContext(c.Request().Context()))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusForbidden, "request is not bound to a user identity")
	}
	return id, nil
}

// -- Schedule Handlers --

func (h *Handler) CreateSchedule(c echo.Context) error {
	var sched Schedule
	if err := c.Bind(&sched); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.svc.CreateSchedule(c.Request().Context(), &sched); err != nil {
		if errors.Is(err, ErrDuplicateSchedule) || errors.Is(err, ErrScheduleLeadTime) || errors.Is(err, ErrUserNotFound) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, sched)
}

func (h *Handler) GetSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	sched, err := h.svc.GetSchedule(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) UpdateSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var sched Schedule
	if err := c.Bind(&sched); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	sched.ID = id
	if err := h.svc.UpdateSchedule(c.Request().Context(), &sched); err != nil {
		if errors.Is(err, ErrScheduleNotFound) || errors.Is(err, ErrScheduleLocked) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, sched)
}

func (h *Handler) DeleteSchedule(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteSchedule(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ListSchedules(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	if doctorID := c.QueryParam("doctor_id"); doctorID != "" {
		did, err := uuid.Parse(doctorID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		items, total, err := h.svc.ListSchedulesByDoctor(ctx, did, pg.Limit, pg.Offset)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	if date := c.QueryParam("work_date"); date != "" {
		d, err := time.Parse("2006-01-02", date)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid work_date, expected YYYY-MM-DD")
		}
		items, total, err := h.svc.ListSchedulesByDate(ctx, d, pg.Limit, pg.Offset)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	return echo.NewHTTPError(http.StatusBadRequest, "doctor_id or work_date query parameter is required")
}

func (h *Handler) ListSlots(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	slots, err := h.svc.Slots(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, slots)
}

// -- Appointment Handlers --

func (h *Handler) CreateAppointment(c echo.Context) error {
	var a Appointment
	if err := c.Bind(&a); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	uid, err := requesterID(c)
	if err != nil {
		return err
	}
	a.UserID = uid
	if err := h.svc.CreateAppointment(c.Request().Context(), &a); err != nil {
		if errors.Is(err, ErrScheduleNotFound) || errors.Is(err, ErrInvalidSlot) ||
			errors.Is(err, ErrPastDate) || errors.Is(err, ErrDailyCancellationLimit) ||
			errors.Is(err, ErrSlotTaken) || errors.Is(err, ErrScheduleUnavailable) ||
			errors.Is(err, ErrUserNotFound) {
			return httpError(err)
		}
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.GetAppointment(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	uid, err := requesterID(c)
	if err != nil {
		return err
	}
	a, err := h.svc.CancelAppointment(c.Request().Context(), id, uid)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) CompleteAppointment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	uid, err := requesterID(c)
	if err != nil {
		return err
	}
	var body struct {
		Note string `json:"note"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.CompleteAppointment(c.Request().Context(), id, uid, body.Note)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	pg := pagination.FromContext(c)
	ctx := c.Request().Context()

	if doctorID := c.QueryParam("doctor_id"); doctorID != "" {
		did, err := uuid.Parse(doctorID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor_id")
		}
		items, total, err := h.svc.ListAppointmentsByDoctor(ctx, did, pg.Limit, pg.Offset)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
	}
	uid, err := requesterID(c)
	if err != nil {
		return err
	}
	items, total, err := h.svc.ListAppointmentsByUser(ctx, uid, pg.Limit, pg.Offset)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}
