package scheduling

import "time"

// BuildSlots generates the ordered slot sequence for a schedule and marks
// availability against the given appointments. The walk starts at the
// schedule's start time and keeps a slot only when it finishes on or before
// the end time; a partial trailing slot is dropped. A slot is available when
// no appointment occupies it or the occupying appointment is cancelled; the
// cancelled case additionally sets IsCancelled so callers can tell a freed
// slot from a never-booked one.
func BuildSlots(s *Schedule, appts []*Appointment) []TimeSlot {
	d := s.SlotDuration()
	if d <= 0 {
		return nil
	}

	var slots []TimeSlot
	for t := s.StartTime; !t.Add(d).After(s.EndTime); t = t.Add(d) {
		slot := TimeSlot{SlotTime: t, Available: true}
		for _, a := range appts {
			if !a.SlotTime.Equal(t) {
				continue
			}
			if a.Status == AppointmentCancelled {
				slot.IsCancelled = true
				continue
			}
			id := a.ID
			slot.Available = false
			slot.IsCancelled = false
			slot.AppointmentID = &id
			break
		}
		slots = append(slots, slot)
	}
	return slots
}

// validSlotTime reports whether t is one of the schedule's generated slot
// start times.
func validSlotTime(s *Schedule, t time.Time) bool {
	d := s.SlotDuration()
	if d <= 0 {
		return false
	}
	for st := s.StartTime; !st.Add(d).After(s.EndTime); st = st.Add(d) {
		if st.Equal(t) {
			return true
		}
	}
	return false
}
