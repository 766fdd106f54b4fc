package scheduling

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kidtrack/kidtrack/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

func resolveConn(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	if c := db.ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// PGTxRunner runs booking transactions on the connection pool.
type PGTxRunner struct{ pool *pgxpool.Pool }

func NewPGTxRunner(pool *pgxpool.Pool) *PGTxRunner { return &PGTxRunner{pool: pool} }

func (r *PGTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.InTx(ctx, r.pool, fn)
}

// =========== Schedule Repository ===========

type scheduleRepoPG struct{ pool *pgxpool.Pool }

func NewScheduleRepoPG(pool *pgxpool.Pool) ScheduleRepository { return &scheduleRepoPG{pool: pool} }

func (r *scheduleRepoPG) conn(ctx context.Context) queryable { return resolveConn(ctx, r.pool) }

const schedCols = `id, doctor_id, work_date, start_time, end_time, slot_minutes, status, created_at, updated_at`

func scanSchedule(row pgx.Row) (*Schedule, error) {
	var s Schedule
	err := row.Scan(&s.ID, &s.DoctorID, &s.WorkDate, &s.StartTime, &s.EndTime,
		&s.SlotMinutes, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrScheduleNotFound
	}
	return &s, err
}

func (r *scheduleRepoPG) Create(ctx context.Context, s *Schedule) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO doctor_schedule (id, doctor_id, work_date, start_time, end_time, slot_minutes, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		s.ID, s.DoctorID, s.WorkDate, s.StartTime, s.EndTime, s.SlotMinutes, s.Status)
	if isUniqueViolation(err) {
		return ErrDuplicateSchedule
	}
	return err
}

func (r *scheduleRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Schedule, error) {
	return scanSchedule(r.conn(ctx).QueryRow(ctx, `SELECT `+schedCols+` FROM doctor_schedule WHERE id = $1`, id))
}

func (r *scheduleRepoPG) GetByDoctorAndDate(ctx context.Context, doctorID uuid.UUID, workDate time.Time) (*Schedule, error) {
	return scanSchedule(r.conn(ctx).QueryRow(ctx, `
		SELECT `+schedCols+` FROM doctor_schedule
		WHERE doctor_id = $1 AND work_date = $2`, doctorID, workDate))
}

func (r *scheduleRepoPG) Update(ctx context.Context, s *Schedule) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE doctor_schedule SET start_time=$2, end_time=$3, slot_minutes=$4, status=$5, updated_at=NOW()
		WHERE id = $1`,
		s.ID, s.StartTime, s.EndTime, s.SlotMinutes, s.Status)
	if err == nil && tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return err
}

func (r *scheduleRepoPG) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM doctor_schedule WHERE id = $1`, id)
	if err == nil && tag.RowsAffected() == 0 {
		return ErrScheduleNotFound
	}
	return err
}

func (r *scheduleRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Schedule, int, error) {
	return r.list(ctx, `doctor_id = $1`, doctorID, limit, offset)
}

func (r *scheduleRepoPG) ListByDate(ctx context.Context, workDate time.Time, limit, offset int) ([]*Schedule, int, error) {
	return r.list(ctx, `work_date = $1`, workDate, limit, offset)
}

func (r *scheduleRepoPG) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*Schedule, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM doctor_schedule WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+schedCols+` FROM doctor_schedule WHERE `+where+`
		ORDER BY work_date, start_time LIMIT $2 OFFSET $3`, arg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Schedule
	for rows.Next() {
		s, err := scanSchedule(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, s)
	}
	return items, total, rows.Err()
}

// =========== Appointment Repository ===========

type appointmentRepoPG struct{ pool *pgxpool.Pool }

func NewAppointmentRepoPG(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepoPG{pool: pool}
}

func (r *appointmentRepoPG) conn(ctx context.Context) queryable { return resolveConn(ctx, r.pool) }

const apptCols = `id, schedule_id, user_id, child_id, slot_time, status, meeting_link, description, note, created_at, updated_at`

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(&a.ID, &a.ScheduleID, &a.UserID, &a.ChildID, &a.SlotTime,
		&a.Status, &a.MeetingLink, &a.Description, &a.Note, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrAppointmentNotFound
	}
	return &a, err
}

func (r *appointmentRepoPG) Create(ctx context.Context, a *Appointment) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO appointment (id, schedule_id, user_id, child_id, slot_time, status, meeting_link, description, note)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		a.ID, a.ScheduleID, a.UserID, a.ChildID, a.SlotTime, a.Status, a.MeetingLink, a.Description, a.Note)
	if isUniqueViolation(err) {
		return ErrSlotTaken
	}
	return err
}

func (r *appointmentRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	return scanAppointment(r.conn(ctx).QueryRow(ctx, `SELECT `+apptCols+` FROM appointment WHERE id = $1`, id))
}

func (r *appointmentRepoPG) Update(ctx context.Context, a *Appointment) error {
	tag, err := r.conn(ctx).Exec(ctx, `
		UPDATE appointment SET status=$2, note=$3, updated_at=NOW()
		WHERE id = $1`, a.ID, a.Status, a.Note)
	if err == nil && tag.RowsAffected() == 0 {
		return ErrAppointmentNotFound
	}
	return err
}

func (r *appointmentRepoPG) ListBySchedule(ctx context.Context, scheduleID uuid.UUID) ([]*Appointment, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointment WHERE schedule_id = $1 ORDER BY slot_time`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointments(rows)
}

func (r *appointmentRepoPG) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	return r.list(ctx, `user_id = $1`, userID, limit, offset)
}

func (r *appointmentRepoPG) ListByDoctor(ctx context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM appointment a
		JOIN doctor_schedule s ON s.id = a.schedule_id
		WHERE s.doctor_id = $1`, doctorID).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+prefixedApptCols("a")+` FROM appointment a
		JOIN doctor_schedule s ON s.id = a.schedule_id
		WHERE s.doctor_id = $1
		ORDER BY a.slot_time LIMIT $2 OFFSET $3`, doctorID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collectAppointments(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *appointmentRepoPG) list(ctx context.Context, where string, arg interface{}, limit, offset int) ([]*Appointment, int, error) {
	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE `+where, arg).Scan(&total); err != nil {
		return nil, 0, err
	}
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+apptCols+` FROM appointment WHERE `+where+`
		ORDER BY slot_time DESC LIMIT $2 OFFSET $3`, arg, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items, err := collectAppointments(rows)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (r *appointmentRepoPG) FindActiveBySlot(ctx context.Context, scheduleID uuid.UUID, slotTime time.Time) (*Appointment, error) {
	a, err := scanAppointment(r.conn(ctx).QueryRow(ctx, `
		SELECT `+apptCols+` FROM appointment
		WHERE schedule_id = $1 AND slot_time = $2 AND status <> 'cancelled'
		FOR UPDATE`, scheduleID, slotTime))
	if errors.Is(err, ErrAppointmentNotFound) {
		return nil, nil
	}
	return a, err
}

func (r *appointmentRepoPG) CountBySchedule(ctx context.Context, scheduleID uuid.UUID) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM appointment WHERE schedule_id = $1`, scheduleID).Scan(&n)
	return n, err
}

func (r *appointmentRepoPG) CountCancelledOnWorkDate(ctx context.Context, userID uuid.UUID, workDate time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*) FROM appointment a
		JOIN doctor_schedule s ON s.id = a.schedule_id
		WHERE a.user_id = $1 AND a.status = 'cancelled' AND s.work_date = $2`,
		userID, workDate).Scan(&n)
	return n, err
}

func collectAppointments(rows pgx.Rows) ([]*Appointment, error) {
	var items []*Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, a)
	}
	return items, rows.Err()
}

func prefixedApptCols(alias string) string {
	cols := []string{"id", "schedule_id", "user_id", "child_id", "slot_time", "status", "meeting_link", "description", "note", "created_at", "updated_at"}
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = alias + "." + c
	}
	return strings.Join(out, ", ")
}
