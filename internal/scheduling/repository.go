package scheduling

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrStaffNotFound   = errors.New("staff member not found")
	ErrPatientNotFound = errors.New("patient not found")
	ErrPlanNotFound    = errors.New("schedule plan not found")
)

// Repository contains all DB interactions needed by the scheduling core.
// Reference data (staff, availability, time off, requirements, assignments,
// preferences) is read-only here; only plans and appointments are written.
type Repository interface {
	ListStaff(ctx context.Context) ([]StaffMember, error)
	GetStaffByID(ctx context.Context, id uuid.UUID) (*StaffMember, error)
	GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error)

	ListAvailabilityByStaff(ctx context.Context, staffID uuid.UUID) ([]AvailabilityWindow, error)

	// IsStaffOnTimeOff reports whether an approved time-off period covers date.
	IsStaffOnTimeOff(ctx context.Context, staffID uuid.UUID, date time.Time) (bool, error)

	ListActiveRequirements(ctx context.Context) ([]VisitRequirement, error)
	ListAssignmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]CareAssignment, error)
	ListAssignmentsByStaff(ctx context.Context, staffID uuid.UUID) ([]CareAssignment, error)

	// GetPatientPreference returns nil without error when the patient has no
	// preference record.
	GetPatientPreference(ctx context.Context, patientID uuid.UUID) (*PatientPreference, error)

	GetPlanByID(ctx context.Context, id uuid.UUID) (*SchedulePlan, error)
	GetPlanByWeekAndStatus(ctx context.Context, weekStart time.Time, status PlanStatus) (*SchedulePlan, error)
	ListAppointmentsByPlan(ctx context.Context, planID uuid.UUID) ([]Appointment, error)

	ListAppointmentsByStaffBetween(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]Appointment, error)
	ListAppointmentsByPatientAndStaff(ctx context.Context, patientID, staffID uuid.UUID) ([]Appointment, error)

	// SavePlan atomically replaces any existing DRAFT plan for the week with
	// the given plan and its generated appointments. Either everything lands
	// or nothing does.
	SavePlan(ctx context.Context, plan *SchedulePlan, appointments []Appointment) error

	// ConfirmPlan atomically moves a DRAFT plan to CONFIRMED and locks every
	// appointment under it.
	ConfirmPlan(ctx context.Context, planID uuid.UUID, at time.Time) (*SchedulePlan, error)
}
