package scheduling

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleDoctor Role = "DOCTOR"
	RoleNurse  Role = "NURSE"
)

type AppointmentStatus string

const (
	StatusScheduled   AppointmentStatus = "SCHEDULED"
	StatusConfirmed   AppointmentStatus = "CONFIRMED"
	StatusInProgress  AppointmentStatus = "IN_PROGRESS"
	StatusCompleted   AppointmentStatus = "COMPLETED"
	StatusCancelled   AppointmentStatus = "CANCELLED"
	StatusRescheduled AppointmentStatus = "RESCHEDULED"
)

type AppointmentType string

const (
	TypeHomeVisit        AppointmentType = "HOME_VISIT"
	TypeHospitalVisit    AppointmentType = "HOSPITAL_VISIT"
	TypeTeleconsultation AppointmentType = "TELECONSULTATION"
	TypeOfficeWork       AppointmentType = "OFFICE_WORK"
)

type VisitPriority string

const (
	PriorityUrgent  VisitPriority = "URGENT"
	PriorityHigh    VisitPriority = "HIGH"
	PriorityRoutine VisitPriority = "ROUTINE"
)

// priorityRank orders priorities for placement: urgent visits are placed first.
func priorityRank(p VisitPriority) int {
	switch p {
	case PriorityUrgent:
		return 0
	case PriorityHigh:
		return 1
	default:
		return 2
	}
}

type PlanStatus string

const (
	PlanDraft     PlanStatus = "DRAFT"
	PlanConfirmed PlanStatus = "CONFIRMED"
)

type RecurringFrequency string

const (
	FrequencyWeekly   RecurringFrequency = "WEEKLY"
	FrequencyBiweekly RecurringFrequency = "BIWEEKLY"
	FrequencyMonthly  RecurringFrequency = "MONTHLY"
)

// TimeOfDay is a clock time expressed as minutes since midnight. Schedules
// only ever deal in whole minutes, so this avoids dragging full timestamps
// through the block arithmetic.
type TimeOfDay int

func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(hour*60 + minute)
}

func TimeOfDayFrom(t time.Time) TimeOfDay {
	return TimeOfDay(t.Hour()*60 + t.Minute())
}

func (t TimeOfDay) Hour() int { return int(t) / 60 }

func (t TimeOfDay) Minute() int { return int(t) % 60 }

// At anchors the clock time on the given date.
func (t TimeOfDay) At(date time.Time) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, date.Location())
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

type StaffMember struct {
	ID        uuid.UUID
	Name      string
	Role      Role
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Patient struct {
	ID        uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AvailabilityWindow is one recurring working window for a staff member.
// DayOfWeek follows time.Weekday numbering: 0=Sunday .. 6=Saturday.
type AvailabilityWindow struct {
	ID          uuid.UUID
	StaffID     uuid.UUID
	DayOfWeek   int
	StartTime   TimeOfDay
	EndTime     TimeOfDay
	IsAvailable bool
}

// TimeOffPeriod is an approved or pending leave interval. Only approved
// periods block scheduling.
type TimeOffPeriod struct {
	ID        uuid.UUID
	StaffID   uuid.UUID
	StartDate time.Time
	EndDate   time.Time
	Approved  bool
}

// VisitRequirement describes how often and how long a patient must be
// visited each week. One requirement expands into VisitsPerWeek independent
// visit requests per planning run.
type VisitRequirement struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	Priority           VisitPriority
	VisitsPerWeek      int
	DurationMinutes    int
	VisitType          AppointmentType
	PreferredTimeStart *TimeOfDay
	PreferredTimeEnd   *TimeOfDay
	Location           *string
	Notes              *string
	IsActive           bool
}

type CareAssignment struct {
	ID        uuid.UUID
	PatientID uuid.UUID
	StaffID   uuid.UUID
	IsPrimary bool
}

type PatientPreference struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	PreferredDayOfWeek *int // 0=Sunday .. 6=Saturday
	PreferredTimeStart *TimeOfDay
	PreferredTimeEnd   *TimeOfDay
	AvoidMornings      bool
	AvoidEvenings      bool
	PreferredLocation  *string
	Notes              *string
}

type SchedulePlan struct {
	ID            uuid.UUID
	WeekStartDate time.Time // always a Monday
	Status        PlanStatus
	CreatedAt     time.Time
	ConfirmedAt   *time.Time
}

type Appointment struct {
	ID                 uuid.UUID
	PatientID          uuid.UUID
	StaffID            uuid.UUID
	ScheduledAt        time.Time
	DurationMinutes    int
	Type               AppointmentType
	Status             AppointmentStatus
	Notes              *string
	Location           *string
	PlanID             *uuid.UUID
	IsGenerated        bool
	IsLocked           bool
	RecurringGroupID   *string
	RecurringFrequency *RecurringFrequency
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

func (a Appointment) EndTime() time.Time {
	return a.ScheduledAt.Add(time.Duration(a.DurationMinutes) * time.Minute)
}

// AlternativeTime is an ephemeral, independently bookable slot suggestion
// returned when a requested appointment conflicts. Never persisted.
type AlternativeTime struct {
	ScheduledAt time.Time
	Reason      string
	IsPreferred bool
	Confidence  float64
}

type AvailabilityResult struct {
	IsAvailable  bool
	Conflicts    []string
	Alternatives []AlternativeTime
}

type ValidationResult struct {
	Valid  bool
	Errors []string
}

// SuggestedAppointment is a proposed gap-fill visit derived from a patient's
// visit history. Read-only output, never persisted by the engine.
type SuggestedAppointment struct {
	PatientID       uuid.UUID
	PatientName     string
	ScheduledAt     time.Time
	DurationMinutes int
	Type            AppointmentType
	Notes           *string
	Location        *string
	Reason          string
	IsFromRecurring bool
	RecurringGroup  *string
}

type UnscheduledPatient struct {
	PatientID     uuid.UUID
	PatientName   string
	Frequency     RecurringFrequency
	LastVisitDate *time.Time
	Reason        string
}

type SuggestionResult struct {
	StaffID             uuid.UUID
	StaffName           string
	PeriodStart         time.Time
	PeriodEnd           time.Time
	Suggestions         []SuggestedAppointment
	AlreadyScheduled    []Appointment
	UnscheduledPatients []UnscheduledPatient
}

// StaffPlanSummary aggregates one staff member's share of a generated plan.
type StaffPlanSummary struct {
	StaffID      uuid.UUID
	StaffName    string
	VisitCount   int
	OfficeCount  int
	TotalMinutes int
}

// Date truncates t to midnight in UTC. All schedule dates are normalised
// through this so they compare and hash consistently.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
