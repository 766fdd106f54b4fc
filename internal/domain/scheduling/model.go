package scheduling

import (
	"time"

	"github.com/google/uuid"
)

// Schedule statuses.
const (
	ScheduleAvailable   = "available"
	ScheduleUnavailable = "unavailable"
	ScheduleCancelled   = "cancelled"
)

// Appointment statuses. Pending is the only non-terminal state.
const (
	AppointmentPending   = "pending"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"
)

func ValidScheduleStatus(s string) bool {
	return s == ScheduleAvailable || s == ScheduleUnavailable || s == ScheduleCancelled
}

// Schedule maps to the doctor_schedule table: one doctor's bookable window
// for a single work day. At most one schedule exists per (doctor, work day).
type Schedule struct {
	ID          uuid.UUID `db:"id" json:"id"`
	DoctorID    uuid.UUID `db:"doctor_id" json:"doctor_id"`
	WorkDate    time.Time `db:"work_date" json:"work_date"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
	EndTime     time.Time `db:"end_time" json:"end_time"`
	SlotMinutes int       `db:"slot_minutes" json:"slot_minutes"`
	Status      string    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

func (s *Schedule) SlotDuration() time.Duration {
	return time.Duration(s.SlotMinutes) * time.Minute
}

// Appointment maps to the appointment table: a booking against exactly one
// slot of one schedule. At most one non-cancelled appointment may occupy a
// (schedule, slot time) pair; a partial unique index enforces this.
type Appointment struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ScheduleID  uuid.UUID `db:"schedule_id" json:"schedule_id"`
	UserID      uuid.UUID `db:"user_id" json:"user_id"`
	ChildID     uuid.UUID `db:"child_id" json:"child_id"`
	SlotTime    time.Time `db:"slot_time" json:"slot_time"`
	Status      string    `db:"status" json:"status"`
	MeetingLink string    `db:"meeting_link" json:"meeting_link"`
	Description string    `db:"description" json:"description"`
	Note        *string   `db:"note" json:"note,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// TimeSlot is a derived view of one bookable unit of a schedule, recomputed
// on every read from current appointment state. IsCancelled marks a slot
// freed by a cancellation, as opposed to one that was never booked.
type TimeSlot struct {
	SlotTime      time.Time  `json:"slot_time"`
	Available     bool       `json:"available"`
	IsCancelled   bool       `json:"is_cancelled"`
	AppointmentID *uuid.UUID `json:"appointment_id,omitempty"`
}
