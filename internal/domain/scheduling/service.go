package scheduling

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrScheduleNotFound       = errors.New("schedule not found")
	ErrAppointmentNotFound    = errors.New("appointment not found")
	ErrUserNotFound           = errors.New("user not found")
	ErrDuplicateSchedule      = errors.New("doctor already has a schedule on this date")
	ErrScheduleLeadTime       = errors.New("schedule must be created at least 3 days before the work date")
	ErrScheduleLocked         = errors.New("schedule has appointments and cannot be deleted or time-modified")
	ErrScheduleUnavailable    = errors.New("schedule is not open for booking")
	ErrInvalidSlot            = errors.New("slot time is not a valid slot of this schedule")
	ErrPastDate               = errors.New("cannot book a schedule on a past date")
	ErrSlotTaken              = errors.New("slot is already booked")
	ErrDailyCancellationLimit = errors.New("only one cancellation per day is allowed")
	ErrUnauthorized           = errors.New("not authorized to act on this appointment")
	ErrAlreadyCancelled       = errors.New("appointment is already cancelled")
	ErrAlreadyCompleted       = errors.New("appointment is already completed")
	ErrPastAppointment        = errors.New("appointment work date has already elapsed")
)

// scheduleLeadDays is the minimum number of days between schedule creation
// and its work date.
const scheduleLeadDays = 3

type Service struct {
	schedules      ScheduleRepository
	appointments   AppointmentRepository
	users          UserDirectory
	tx             TxRunner
	meetingBaseURL string
	now            func() time.Time
}

func NewService(sched ScheduleRepository, appt AppointmentRepository, users UserDirectory, tx TxRunner, meetingBaseURL string) *Service {
	return &Service{
		schedules:      sched,
		appointments:   appt,
		users:          users,
		tx:             tx,
		meetingBaseURL: strings.TrimRight(meetingBaseURL, "/"),
		now:            time.Now,
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// -- Schedule --

func (s *Service) CreateSchedule(ctx context.Context, sched *Schedule) error {
	doctor, err := s.users.UserInfo(ctx, sched.DoctorID)
	if err != nil {
		return err
	}
	if doctor.Role != "doctor" {
		return fmt.Errorf("user %s is not a doctor", sched.DoctorID)
	}
	if sched.Status == "" {
		sched.Status = ScheduleAvailable
	}
	if err := validateScheduleTimes(sched); err != nil {
		return err
	}
	if dateOnly(sched.WorkDate).Before(dateOnly(s.now()).AddDate(0, 0, scheduleLeadDays)) {
		return ErrScheduleLeadTime
	}
	if _, err := s.schedules.GetByDoctorAndDate(ctx, sched.DoctorID, sched.WorkDate); err == nil {
		return ErrDuplicateSchedule
	} else if !errors.Is(err, ErrScheduleNotFound) {
		return err
	}
	return s.schedules.Create(ctx, sched)
}

func validateScheduleTimes(sched *Schedule) error {
	if !ValidScheduleStatus(sched.Status) {
		return fmt.Errorf("invalid schedule status: %s", sched.Status)
	}
	if sched.WorkDate.IsZero() || sched.StartTime.IsZero() || sched.EndTime.IsZero() {
		return fmt.Errorf("work_date, start_time and end_time are required")
	}
	if !sched.StartTime.Before(sched.EndTime) {
		return fmt.Errorf("start_time must be before end_time")
	}
	if sched.SlotMinutes <= 0 {
		return fmt.Errorf("slot_minutes must be positive")
	}
	if len(BuildSlots(sched, nil)) == 0 {
		return fmt.Errorf("the work window does not fit a single slot")
	}
	return nil
}

func (s *Service) GetSchedule(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return s.schedules.GetByID(ctx, id)
}

// UpdateSchedule applies changes to a schedule. Once any appointment
// references the schedule only its status may change; zero-valued time
// fields inherit the stored values.
func (s *Service) UpdateSchedule(ctx context.Context, sched *Schedule) error {
	existing, err := s.schedules.GetByID(ctx, sched.ID)
	if err != nil {
		return err
	}
	if sched.StartTime.IsZero() {
		sched.StartTime = existing.StartTime
	}
	if sched.EndTime.IsZero() {
		sched.EndTime = existing.EndTime
	}
	if sched.SlotMinutes == 0 {
		sched.SlotMinutes = existing.SlotMinutes
	}
	if sched.Status == "" {
		sched.Status = existing.Status
	}
	sched.DoctorID = existing.DoctorID
	sched.WorkDate = existing.WorkDate

	count, err := s.appointments.CountBySchedule(ctx, sched.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		timeModified := !sched.StartTime.Equal(existing.StartTime) ||
			!sched.EndTime.Equal(existing.EndTime) ||
			sched.SlotMinutes != existing.SlotMinutes
		if timeModified {
			return ErrScheduleLocked
		}
	}
	if err := validateScheduleTimes(sched); err != nil {
		return err
	}
	return s.schedules.Update(ctx, sched)
}

func (s *Service) DeleteSchedule(ctx context.Context, id uuid.UUID) error {
	if _, err := s.schedules.GetByID(ctx, id); err != nil {
		return err
	}
	count, err := s.appointments.CountBySchedule(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrScheduleLocked
	}
	return s.schedules.Delete(ctx, id)
}

func (s *Service) ListSchedulesByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Schedule, int, error) {
	return s.schedules.ListByDoctor(ctx, doctorID, limit, offset)
}

func (s *Service) ListSchedulesByDate(ctx context.Context, workDate time.Time, limit, offset int) ([]*Schedule, int, error) {
	return s.schedules.ListByDate(ctx, workDate, limit, offset)
}

// Slots recomputes the slot calendar for a schedule from current
// appointment state.
func (s *Service) Slots(ctx context.Context, scheduleID uuid.UUID) ([]TimeSlot, error) {
	sched, err := s.schedules.GetByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	appts, err := s.appointments.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	return BuildSlots(sched, appts), nil
}

// -- Appointment --

// CreateAppointment books a slot. All checks and the insert run in one
// transaction; the partial unique index on (schedule_id, slot_time) closes
// the race two concurrent bookings would otherwise hit.
func (s *Service) CreateAppointment(ctx context.Context, a *Appointment) error {
	user, err := s.users.UserInfo(ctx, a.UserID)
	if err != nil {
		return err
	}
	if user.Status != "active" {
		return fmt.Errorf("user account is not active")
	}
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		sched, err := s.schedules.GetByID(ctx, a.ScheduleID)
		if err != nil {
			return err
		}
		if sched.Status != ScheduleAvailable {
			return ErrScheduleUnavailable
		}
		if !validSlotTime(sched, a.SlotTime) {
			return ErrInvalidSlot
		}
		if dateOnly(sched.WorkDate).Before(dateOnly(s.now())) {
			return ErrPastDate
		}
		cancelled, err := s.appointments.CountCancelledOnWorkDate(ctx, a.UserID, sched.WorkDate)
		if err != nil {
			return err
		}
		if cancelled > 0 {
			return ErrDailyCancellationLimit
		}
		occupant, err := s.appointments.FindActiveBySlot(ctx, a.ScheduleID, a.SlotTime)
		if err != nil {
			return err
		}
		if occupant != nil {
			return ErrSlotTaken
		}
		a.ID = uuid.New()
		a.Status = AppointmentPending
		a.MeetingLink = fmt.Sprintf("%s/%s", s.meetingBaseURL, uuid.NewString())
		return s.appointments.Create(ctx, a)
	})
}

func (s *Service) GetAppointment(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

// CancelAppointment moves a pending appointment to its cancelled terminal
// state. Only the booking user or the schedule's doctor may cancel.
func (s *Service) CancelAppointment(ctx context.Context, id, requesterID uuid.UUID) (*Appointment, error) {
	var out *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		sched, err := s.schedules.GetByID(ctx, a.ScheduleID)
		if err != nil {
			return err
		}
		if requesterID != a.UserID && requesterID != sched.DoctorID {
			return ErrUnauthorized
		}
		switch a.Status {
		case AppointmentCancelled:
			return ErrAlreadyCancelled
		case AppointmentCompleted:
			return ErrAlreadyCompleted
		}
		if dateOnly(sched.WorkDate).Before(dateOnly(s.now())) {
			return ErrPastAppointment
		}
		cancelled, err := s.appointments.CountCancelledOnWorkDate(ctx, requesterID, sched.WorkDate)
		if err != nil {
			return err
		}
		if cancelled > 0 {
			return ErrDailyCancellationLimit
		}
		a.Status = AppointmentCancelled
		if err := s.appointments.Update(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

// CompleteAppointment moves a pending appointment to its completed terminal
// state. Only the schedule's doctor may complete, and may attach a note.
func (s *Service) CompleteAppointment(ctx context.Context, id, doctorID uuid.UUID, note string) (*Appointment, error) {
	var out *Appointment
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		a, err := s.appointments.GetByID(ctx, id)
		if err != nil {
			return err
		}
		sched, err := s.schedules.GetByID(ctx, a.ScheduleID)
		if err != nil {
			return err
		}
		if doctorID != sched.DoctorID {
			return ErrUnauthorized
		}
		switch a.Status {
		case AppointmentCancelled:
			return ErrAlreadyCancelled
		case AppointmentCompleted:
			return ErrAlreadyCompleted
		}
		a.Status = AppointmentCompleted
		if note != "" {
			a.Note = &note
		}
		if err := s.appointments.Update(ctx, a); err != nil {
			return err
		}
		out = a
		return nil
	})
	return out, err
}

func (s *Service) ListAppointmentsByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByUser(ctx, userID, limit, offset)
}

func (s *Service) ListAppointmentsByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return s.appointments.ListByDoctor(ctx, doctorID, limit, offset)
}
