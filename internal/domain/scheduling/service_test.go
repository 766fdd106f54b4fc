package scheduling

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// -- Mock Repositories --

type mockScheduleRepo struct {
	scheds map[uuid.UUID]*Schedule
}

func newMockScheduleRepo() *mockScheduleRepo {
	return &mockScheduleRepo{scheds: make(map[uuid.UUID]*Schedule)}
}

func (m *mockScheduleRepo) Create(_ context.Context, s *Schedule) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.CreatedAt = time.Now()
	s.UpdatedAt = time.Now()
	m.scheds[s.ID] = s
	return nil
}

func (m *mockScheduleRepo) GetByID(_ context.Context, id uuid.UUID) (*Schedule, error) {
	s, ok := m.scheds[id]
	if !ok {
		return nil, ErrScheduleNotFound
	}
	cp := *s
	return &cp, nil
}

func (m *mockScheduleRepo) GetByDoctorAndDate(_ context.Context, doctorID uuid.UUID, workDate time.Time) (*Schedule, error) {
	for _, s := range m.scheds {
		if s.DoctorID == doctorID && dateOnly(s.WorkDate).Equal(dateOnly(workDate)) {
			cp := *s
			return &cp, nil
		}
	}
	return nil, ErrScheduleNotFound
}

func (m *mockScheduleRepo) Update(_ context.Context, s *Schedule) error {
	if _, ok := m.scheds[s.ID]; !ok {
		return ErrScheduleNotFound
	}
	m.scheds[s.ID] = s
	return nil
}

func (m *mockScheduleRepo) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := m.scheds[id]; !ok {
		return ErrScheduleNotFound
	}
	delete(m.scheds, id)
	return nil
}

func (m *mockScheduleRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Schedule, int, error) {
	var out []*Schedule
	for _, s := range m.scheds {
		if s.DoctorID == doctorID {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

func (m *mockScheduleRepo) ListByDate(_ context.Context, workDate time.Time, limit, offset int) ([]*Schedule, int, error) {
	var out []*Schedule
	for _, s := range m.scheds {
		if dateOnly(s.WorkDate).Equal(dateOnly(workDate)) {
			out = append(out, s)
		}
	}
	return out, len(out), nil
}

type mockApptRepo struct {
	appts  map[uuid.UUID]*Appointment
	scheds *mockScheduleRepo
}

func newMockApptRepo(scheds *mockScheduleRepo) *mockApptRepo {
	return &mockApptRepo{appts: make(map[uuid.UUID]*Appointment), scheds: scheds}
}

func (m *mockApptRepo) Create(_ context.Context, a *Appointment) error {
	for _, other := range m.appts {
		if other.ScheduleID == a.ScheduleID && other.SlotTime.Equal(a.SlotTime) && other.Status != AppointmentCancelled {
			return ErrSlotTaken
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = time.Now()
	m.appts[a.ID] = a
	return nil
}

func (m *mockApptRepo) GetByID(_ context.Context, id uuid.UUID) (*Appointment, error) {
	a, ok := m.appts[id]
	if !ok {
		return nil, ErrAppointmentNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *mockApptRepo) Update(_ context.Context, a *Appointment) error {
	if _, ok := m.appts[a.ID]; !ok {
		return ErrAppointmentNotFound
	}
	m.appts[a.ID] = a
	return nil
}

func (m *mockApptRepo) ListBySchedule(_ context.Context, scheduleID uuid.UUID) ([]*Appointment, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if a.ScheduleID == scheduleID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockApptRepo) ListByUser(_ context.Context, userID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (m *mockApptRepo) ListByDoctor(_ context.Context, doctorID uuid.UUID, limit, offset int) ([]*Appointment, int, error) {
	var out []*Appointment
	for _, a := range m.appts {
		if s, ok := m.scheds.scheds[a.ScheduleID]; ok && s.DoctorID == doctorID {
			out = append(out, a)
		}
	}
	return out, len(out), nil
}

func (m *mockApptRepo) FindActiveBySlot(_ context.Context, scheduleID uuid.UUID, slotTime time.Time) (*Appointment, error) {
	for _, a := range m.appts {
		if a.ScheduleID == scheduleID && a.SlotTime.Equal(slotTime) && a.Status != AppointmentCancelled {
			cp := *a
			return &cp, nil
		}
	}
	return nil, nil
}

func (m *mockApptRepo) CountBySchedule(_ context.Context, scheduleID uuid.UUID) (int, error) {
	n := 0
	for _, a := range m.appts {
		if a.ScheduleID == scheduleID {
			n++
		}
	}
	return n, nil
}

func (m *mockApptRepo) CountCancelledOnWorkDate(_ context.Context, userID uuid.UUID, workDate time.Time) (int, error) {
	n := 0
	for _, a := range m.appts {
		s, ok := m.scheds.scheds[a.ScheduleID]
		if ok && a.UserID == userID && a.Status == AppointmentCancelled && dateOnly(s.WorkDate).Equal(dateOnly(workDate)) {
			n++
		}
	}
	return n, nil
}

type mockUserDirectory struct {
	users map[uuid.UUID]*UserInfo
}

func newMockUserDirectory() *mockUserDirectory {
	return &mockUserDirectory{users: make(map[uuid.UUID]*UserInfo)}
}

func (m *mockUserDirectory) UserInfo(_ context.Context, id uuid.UUID) (*UserInfo, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return u, nil
}

type mockTxRunner struct{}

func (mockTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// -- Fixtures --

var testToday = time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC)

type fixture struct {
	svc    *Service
	scheds *mockScheduleRepo
	appts  *mockApptRepo
	users  *mockUserDirectory
	doctor uuid.UUID
	user   uuid.UUID
}

func newFixture() *fixture {
	scheds := newMockScheduleRepo()
	appts := newMockApptRepo(scheds)
	users := newMockUserDirectory()
	svc := NewService(scheds, appts, users, mockTxRunner{}, "https://meet.kidtrack.dev/")
	svc.now = func() time.Time { return testToday }

	f := &fixture{svc: svc, scheds: scheds, appts: appts, users: users,
		doctor: uuid.New(), user: uuid.New()}
	users.users[f.doctor] = &UserInfo{Role: "doctor", Status: "active"}
	users.users[f.user] = &UserInfo{Role: "user", Status: "active"}
	return f
}

func (f *fixture) schedule(t *testing.T, daysAhead int) *Schedule {
	t.Helper()
	day := dateOnly(testToday).AddDate(0, 0, daysAhead)
	sched := &Schedule{
		DoctorID:    f.doctor,
		WorkDate:    day,
		StartTime:   day.Add(8 * time.Hour),
		EndTime:     day.Add(12 * time.Hour),
		SlotMinutes: 30,
	}
	if err := f.svc.CreateSchedule(context.Background(), sched); err != nil {
		t.Fatalf("CreateSchedule: %v", err)
	}
	return sched
}

func (f *fixture) book(t *testing.T, sched *Schedule, userID uuid.UUID, slot time.Time) *Appointment {
	t.Helper()
	a := &Appointment{ScheduleID: sched.ID, UserID: userID, ChildID: uuid.New(), SlotTime: slot}
	if err := f.svc.CreateAppointment(context.Background(), a); err != nil {
		t.Fatalf("CreateAppointment: %v", err)
	}
	return a
}

// -- Schedule Tests --

func TestCreateScheduleLeadTime(t *testing.T) {
	f := newFixture()
	day := dateOnly(testToday).AddDate(0, 0, 2)
	sched := &Schedule{
		DoctorID:    f.doctor,
		WorkDate:    day,
		StartTime:   day.Add(8 * time.Hour),
		EndTime:     day.Add(12 * time.Hour),
		SlotMinutes: 30,
	}
	if err := f.svc.CreateSchedule(context.Background(), sched); !errors.Is(err, ErrScheduleLeadTime) {
		t.Errorf("err = %v, want ErrScheduleLeadTime", err)
	}
}

func TestCreateScheduleDuplicate(t *testing.T) {
	f := newFixture()
	first := f.schedule(t, 7)

	dup := &Schedule{
		DoctorID:    f.doctor,
		WorkDate:    first.WorkDate,
		StartTime:   first.WorkDate.Add(13 * time.Hour),
		EndTime:     first.WorkDate.Add(17 * time.Hour),
		SlotMinutes: 30,
	}
	if err := f.svc.CreateSchedule(context.Background(), dup); !errors.Is(err, ErrDuplicateSchedule) {
		t.Errorf("err = %v, want ErrDuplicateSchedule", err)
	}
}

func TestCreateScheduleRequiresDoctor(t *testing.T) {
	f := newFixture()
	day := dateOnly(testToday).AddDate(0, 0, 7)
	sched := &Schedule{
		DoctorID:    f.user,
		WorkDate:    day,
		StartTime:   day.Add(8 * time.Hour),
		EndTime:     day.Add(12 * time.Hour),
		SlotMinutes: 30,
	}
	err := f.svc.CreateSchedule(context.Background(), sched)
	if err == nil || !strings.Contains(err.Error(), "not a doctor") {
		t.Errorf("err = %v, want role rejection", err)
	}
}

func TestScheduleImmutableUnderBookings(t *testing.T) {
	f := newFixture()
	sched := f.schedule(t, 7)
	f.book(t, sched, f.user, sched.StartTime)

	// Time modification must fail once a booking exists.
	upd := &Schedule{ID: sched.ID, SlotMinutes: 60}
	if err := f.svc.UpdateSchedule(context.Background(), upd); !errors.Is(err, ErrScheduleLocked) {
		t.Errorf("time update err = %v, want ErrScheduleLocked", err)
	}
	if err := f.svc.DeleteSchedule(context.Background(), sched.ID); !errors.Is(err, ErrScheduleLocked) {
		t.Errorf("delete err = %v, want ErrScheduleLocked", err)
	}

	// Status-only updates stay allowed.
	statusOnly := &Schedule{ID: sched.ID, Status: ScheduleCancelled}
	if err := f.svc.UpdateSchedule(context.Background(), statusOnly); err != nil {
		t.Errorf("status update err = %v, want nil", err)
	}
}

func TestDeleteScheduleWithoutBookings(t *testing.T) {
	f := newFixture()
	sched := f.schedule(t, 7)
	if err := f.svc.DeleteSchedule(context.Background(), sched.ID); err != nil {
		t.Errorf("DeleteSchedule: %v", err)
	}
}

// -- Appointment Tests --

func TestCreateAppointment(t *testing.T) {
	f := newFixture()
	sched := f.schedule(t, 7)

	a := f.book(t, sched, f.user, sched.StartTime)
	if a.Status != AppointmentPending {
		t.Errorf("status = %q, want pending", a.Status)
	}
	if !strings.HasPrefix(a.MeetingLink, "https://meet.kidtrack.dev/") {
		t.Errorf("meeting link = %q", a.MeetingLink)
	}

	slots, err := f.svc.Slots(context.Background(), sched.ID)
	if err != nil {
		t.Fatalf("Slots: %v", err)
	}
	if slots[0].Available {
		t.Error("booked slot still listed as available")
	}
}

func TestCreateAppointmentInvalidSlot(t *testing.T) {
	f := newFixture()
	sched := f.schedule(t, 7)

	a := &Appointment{ScheduleID: sched.ID, UserID: f.user, ChildID: uuid.New(),
		SlotTime: sched.StartTime.Add(10 * time.Minute)}
	if err := f.svc.CreateAppointment(context.Background(), a); !errors.Is(err, ErrInvalidSlot) {
		t.Errorf("err = %v, want ErrInvalidSlot", err)
	}
}

func TestCreateAppointmentScheduleMissing(t *testing.T) {
	f := newFixture()
	a := &Appointment{ScheduleID: uuid.New(), UserID: f.user, ChildID: uuid.New(), SlotTime: testToday}
	if err := f.svc.CreateAppointment(context.Background(), a); !errors.Is(err, ErrScheduleNotFound) {
		t.Errorf("err = %v, want ErrScheduleNotFound", err)
	}
}

func TestCreateAppointmentPastDate(t *testing.T) {
	f := newFixture()
	sched := f.schedule(t, 7)

	// Time passes beyond the work date.
	f.svc.now = func() time.Time { return sched.WorkDate.AddDate(0, 0, 1) }
	a := &Appointment{ScheduleID: sched.ID, UserID: f.user, ChildID: uuid.New(), SlotTime: sched.StartTime}
	if err := f.svc.CreateAppointment(context.Background(), a); !errors.Is(err, ErrPastDate) {
		t.Errorf("err = %v, want ErrPastDate", err)
	}
}

func TestDoubleBookingRejected(t *testing.T) {
	f := newFixture()
	sched := f.schedule(t, 7)
	f.book(t, sched, f.user, sched.StartTime)

	other := uuid.New()
	f.users.users[other] = &UserInfo{Role: "user", Status: "active"}
	second := &Appointment{ScheduleID: sched.ID, UserID: other, ChildID: uuid.New(), SlotTime: sched.StartTime}
	if err := f.svc.CreateAppointment(context.Background(), second); !errors.Is(err, ErrSlotTaken) {
		t.Errorf("err = %v, want ErrSlotTaken", err)
	}
}

func TestCancelledSlotRebookable(t *testing.T) {
	f := newFixture()
	sched := f.schedule(t, 7)
	first := f.book(t, sched, f.user, sched.StartTime)

	if _, err := f.svc.CancelAppointment(context.Background(), first.ID, f.user); err != nil {
		t.Fatalf("CancelAppointment: %v", err)
	}

	// A different user can claim the freed slot.
	other := uuid.New()
	f.users.users[other] = &UserInfo{Role: "user", Status: "active"}
	second := &Appointment{ScheduleID: sched.ID, UserID: other, ChildID: uuid.New(), SlotTime: sched.StartTime}
	if err := f.svc.CreateAppointment(context.Background(), second); err != nil {
		t.Errorf("rebooking freed slot: %v", err)
	}
}

func TestDailyCancellationLimit(t *testing.T) {
	f := newFixture()
	sched := f.schedule(t, 7)
	first := f.book(t, sched, f.user, sched.StartTime)

	if _, err := f.svc.CancelAppointment(context.Background(), first.ID, f.user); err != nil {
		t.Fatalf("CancelAppointment: %v", err)
	}

	// Same user, same work date: rebooking after a cancellation is blocked.
	retry := &Appointment{ScheduleID: sched.ID, UserID: f.user, ChildID: uuid.New(),
		SlotTime: sched.StartTime.Add(30 * time.Minute)}
	if err := f.svc.CreateAppointment(context.Background(), retry); !errors.Is(err, ErrDailyCancellationLimit) {
		t.Errorf("err = %v, want ErrDailyCancellationLimit", err)
	}

	// A different work date is fine.
	next := f.schedule(t, 8)
	ok := &Appointment{ScheduleID: next.ID, UserID: f.user, ChildID: uuid.New(), SlotTime: next.StartTime}
	if err := f.svc.CreateAppointment(context.Background(), ok); err != nil {
		t.Errorf("next-day booking err = %v, want nil", err)
	}
}

func TestCancelAuthorization(t *testing.T) {
	f := newFixture()
	sched := f.schedule(t, 7)
	a := f.book(t, sched, f.user, sched.StartTime)

	stranger := uuid.New()
	if _, err := f.svc.CancelAppointment(context.Background(), a.ID, stranger); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("stranger cancel err = %v, want ErrUnauthorized", err)
	}

	// The schedule's doctor may cancel.
	if _, err := f.svc.CancelAppointment(context.Background(), a.ID, f.doctor); err != nil {
		t.Errorf("doctor cancel err = %v, want nil", err)
	}
}

func TestCancelTerminalStates(t *testing.T) {
	f := newFixture()
	sched := f.schedule(t, 7)
	a := f.book(t, sched, f.user, sched.StartTime)

	if _, err := f.svc.CancelAppointment(context.Background(), a.ID, f.user); err != nil {
		t.Fatalf("first cancel: %v", err)
	}
	if _, err := f.svc.CancelAppointment(context.Background(), a.ID, f.user); !errors.Is(err, ErrAlreadyCancelled) {
		t.Errorf("second cancel err = %v, want ErrAlreadyCancelled", err)
	}

	b := f.book(t, sched, f.doctor, sched.StartTime.Add(30*time.Minute))
	if _, err := f.svc.CompleteAppointment(context.Background(), b.ID, f.doctor, "done"); err != nil {
		t.Fatalf("complete: %v", err)
	}
	if _, err := f.svc.CancelAppointment(context.Background(), b.ID, f.doctor); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("cancel completed err = %v, want ErrAlreadyCompleted", err)
	}
}

func TestCancelPastAppointment(t *testing.T) {
	f := newFixture()
	sched := f.schedule(t, 7)
	a := f.book(t, sched, f.user, sched.StartTime)

	f.svc.now = func() time.Time { return sched.WorkDate.AddDate(0, 0, 1) }
	if _, err := f.svc.CancelAppointment(context.Background(), a.ID, f.user); !errors.Is(err, ErrPastAppointment) {
		t.Errorf("err = %v, want ErrPastAppointment", err)
	}
}

func TestCompleteAppointment(t *testing.T) {
	f := newFixture()
	sched := f.schedule(t, 7)
	a := f.book(t, sched, f.user, sched.StartTime)

	if _, err := f.svc.CompleteAppointment(context.Background(), a.ID, f.user, ""); !errors.Is(err, ErrUnauthorized) {
		t.Errorf("non-doctor complete err = %v, want ErrUnauthorized", err)
	}

	done, err := f.svc.CompleteAppointment(context.Background(), a.ID, f.doctor, "routine checkup")
	if err != nil {
		t.Fatalf("CompleteAppointment: %v", err)
	}
	if done.Status != AppointmentCompleted {
		t.Errorf("status = %q, want completed", done.Status)
	}
	if done.Note == nil || *done.Note != "routine checkup" {
		t.Errorf("note = %v, want recorded", done.Note)
	}

	if _, err := f.svc.CompleteAppointment(context.Background(), a.ID, f.doctor, ""); !errors.Is(err, ErrAlreadyCompleted) {
		t.Errorf("repeat complete err = %v, want ErrAlreadyCompleted", err)
	}
}
