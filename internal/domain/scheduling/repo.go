package scheduling

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// ScheduleRepository persists doctor schedules.
type ScheduleRepository interface {
	Create(ctx context.Context, s *Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error)
	GetByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, workDate time.Time) (*Schedule, error)
	Update(ctx context.Context, s *Schedule) error
	Delete(ctx context.Context, id uuid.UUID) error
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Schedule, int, error)
	ListByDate(ctx context.Context, workDate time.Time, limit, offset int) ([]*Schedule, int, error)
}

// AppointmentRepository persists appointments.
type AppointmentRepository interface {
	Create(ctx context.Context, a *Appointment) error
	GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error)
	Update(ctx context.Context, a *Appointment) error
	ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*Appointment, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error)
	// FindActiveBySlot returns the non-cancelled appointment occupying
	// (scheduleID, slotTime), locking the row when running inside a
	// transaction. Returns nil, nil when the slot is open.
	FindActiveBySlot(ctx context.Context, scheduleID uuid.UUID, slotTime time.Time) (*Appointment, error)
	// CountBySchedule counts all appointments referencing a schedule,
	// cancelled ones included.
	CountBySchedule(ctx context.Context, scheduleID uuid.UUID) (int, error)
	// CountCancelledOnWorkDate counts the user's cancelled appointments
	// whose schedule falls on the given work date.
	CountCancelledOnWorkDate(ctx context.Context, userID uuid.UUID, workDate time.Time) (int, error)
}

// UserInfo is the slice of the user directory this package depends on.
type UserInfo struct {
	Role   string
	Status string
}

// UserDirectory resolves user role and status from the directory domain.
// Implementations return ErrUserNotFound when the user is absent.
type UserDirectory interface {
	UserInfo(ctx context.Context, id uuid.UUID) (*UserInfo, error)
}

// TxRunner executes fn inside one database transaction. The booking state
// machine runs its check-then-write sequences through it.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}
