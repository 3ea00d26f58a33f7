package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// fakeRepo is an in-memory Repository for exercising the scheduling core
// without Postgres.
type fakeRepo struct {
	staff        []StaffMember
	patients     map[uuid.UUID]Patient
	availability map[uuid.UUID][]AvailabilityWindow
	timeOff      map[uuid.UUID][]TimeOffPeriod
	requirements []VisitRequirement
	assignments  []CareAssignment
	preferences  map[uuid.UUID]PatientPreference
	plans        map[uuid.UUID]*SchedulePlan
	appointments []Appointment

	savedPlan         *SchedulePlan
	savedAppointments []Appointment
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		patients:     make(map[uuid.UUID]Patient),
		availability: make(map[uuid.UUID][]AvailabilityWindow),
		timeOff:      make(map[uuid.UUID][]TimeOffPeriod),
		preferences:  make(map[uuid.UUID]PatientPreference),
		plans:        make(map[uuid.UUID]*SchedulePlan),
	}
}

func (r *fakeRepo) ListStaff(ctx context.Context) ([]StaffMember, error) {
	return r.staff, nil
}

func (r *fakeRepo) GetStaffByID(ctx context.Context, id uuid.UUID) (*StaffMember, error) {
	for _, s := range r.staff {
		if s.ID == id {
			cp := s
			return &cp, nil
		}
	}
	return nil, ErrStaffNotFound
}

func (r *fakeRepo) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	p, ok := r.patients[id]
	if !ok {
		return nil, ErrPatientNotFound
	}
	return &p, nil
}

func (r *fakeRepo) ListAvailabilityByStaff(ctx context.Context, staffID uuid.UUID) ([]AvailabilityWindow, error) {
	return r.availability[staffID], nil
}

func (r *fakeRepo) IsStaffOnTimeOff(ctx context.Context, staffID uuid.UUID, date time.Time) (bool, error) {
	date = Date(date)
	for _, p := range r.timeOff[staffID] {
		if !p.Approved {
			continue
		}
		if !date.Before(Date(p.StartDate)) && !date.After(Date(p.EndDate)) {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeRepo) ListActiveRequirements(ctx context.Context) ([]VisitRequirement, error) {
	var out []VisitRequirement
	for _, req := range r.requirements {
		if req.IsActive {
			out = append(out, req)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListAssignmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]CareAssignment, error) {
	var out []CareAssignment
	for _, a := range r.assignments {
		if a.PatientID == patientID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListAssignmentsByStaff(ctx context.Context, staffID uuid.UUID) ([]CareAssignment, error) {
	var out []CareAssignment
	for _, a := range r.assignments {
		if a.StaffID == staffID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) GetPatientPreference(ctx context.Context, patientID uuid.UUID) (*PatientPreference, error) {
	p, ok := r.preferences[patientID]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *fakeRepo) GetPlanByID(ctx context.Context, id uuid.UUID) (*SchedulePlan, error) {
	p, ok := r.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (r *fakeRepo) GetPlanByWeekAndStatus(ctx context.Context, weekStart time.Time, status PlanStatus) (*SchedulePlan, error) {
	for _, p := range r.plans {
		if p.WeekStartDate.Equal(Date(weekStart)) && p.Status == status {
			cp := *p
			return &cp, nil
		}
	}
	return nil, ErrPlanNotFound
}

func (r *fakeRepo) ListAppointmentsByPlan(ctx context.Context, planID uuid.UUID) ([]Appointment, error) {
	var out []Appointment
	for _, a := range r.appointments {
		if a.PlanID != nil && *a.PlanID == planID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListAppointmentsByStaffBetween(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	var out []Appointment
	for _, a := range r.appointments {
		if a.StaffID != staffID {
			continue
		}
		if a.ScheduledAt.Before(to) && a.EndTime().After(from) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListAppointmentsByPatientAndStaff(ctx context.Context, patientID, staffID uuid.UUID) ([]Appointment, error) {
	var out []Appointment
	for _, a := range r.appointments {
		if a.PatientID == patientID && a.StaffID == staffID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *fakeRepo) SavePlan(ctx context.Context, plan *SchedulePlan, appointments []Appointment) error {
	cp := *plan
	r.plans[plan.ID] = &cp
	r.appointments = append(r.appointments, appointments...)
	r.savedPlan = &cp
	r.savedAppointments = appointments
	return nil
}

func (r *fakeRepo) ConfirmPlan(ctx context.Context, planID uuid.UUID, at time.Time) (*SchedulePlan, error) {
	p, ok := r.plans[planID]
	if !ok || p.Status != PlanDraft {
		return nil, ErrPlanNotFound
	}
	p.Status = PlanConfirmed
	p.ConfirmedAt = &at
	for i := range r.appointments {
		if r.appointments[i].PlanID != nil && *r.appointments[i].PlanID == planID {
			r.appointments[i].Status = StatusConfirmed
			r.appointments[i].IsLocked = true
		}
	}
	cp := *p
	return &cp, nil
}

// noopLocker runs the callback directly; lock contention is not under test.
type noopLocker struct{}

func (noopLocker) WithWeekLock(ctx context.Context, weekStart time.Time, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// testNow is a Thursday, so the following Monday is a valid plan week.
var testNow = time.Date(2026, time.March, 5, 9, 0, 0, 0, time.UTC)

// nextWeekMonday is the Monday after testNow.
var nextWeekMonday = time.Date(2026, time.March, 9, 0, 0, 0, 0, time.UTC)

func newTestService(repo *fakeRepo) *Service {
	svc := NewService(repo, noopLocker{}, DefaultPolicy(), zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc
}

// weekdayWindows gives a staff member the standard Monday..Friday window.
func weekdayWindows(staffID uuid.UUID, start, end TimeOfDay) []AvailabilityWindow {
	var out []AvailabilityWindow
	for day := 1; day <= 5; day++ {
		out = append(out, AvailabilityWindow{
			ID:          uuid.New(),
			StaffID:     staffID,
			DayOfWeek:   day,
			StartTime:   start,
			EndTime:     end,
			IsAvailable: true,
		})
	}
	return out
}

func ptrTime(t TimeOfDay) *TimeOfDay { return &t }

func ptrStr(s string) *string { return &s }

func requireNoErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
