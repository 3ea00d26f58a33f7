package api

import (
	"time"

	"github.com/google/uuid"
)

const dateLayout = "2006-01-02"

type GeneratePlanRequest struct {
	WeekStartDate string `json:"week_start_date"` // YYYY-MM-DD, must be a Monday
}

type PlanResponse struct {
	ID            uuid.UUID  `json:"id"`
	WeekStartDate string     `json:"week_start_date"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ConfirmedAt   *time.Time `json:"confirmed_at,omitempty"`
}

type GeneratePlanResponse struct {
	Plan       PlanResponse `json:"plan"`
	Advisories []string     `json:"advisories"`
}

type StaffSummaryResponse struct {
	StaffID      uuid.UUID `json:"staff_id"`
	StaffName    string    `json:"staff_name"`
	VisitCount   int       `json:"visit_count"`
	OfficeCount  int       `json:"office_count"`
	TotalMinutes int       `json:"total_minutes"`
}

type PlanDetailResponse struct {
	Plan           PlanResponse           `json:"plan"`
	StaffSummaries []StaffSummaryResponse `json:"staff_summaries"`
}

type CheckAvailabilityRequest struct {
	StaffID         string `json:"staff_id"`
	PatientID       string `json:"patient_id"`
	ScheduledAt     string `json:"scheduled_at"` // RFC 3339
	DurationMinutes int    `json:"duration_minutes"`
}

type AlternativeTimeResponse struct {
	ScheduledAt time.Time `json:"scheduled_at"`
	Reason      string    `json:"reason"`
	IsPreferred bool      `json:"is_preferred"`
	Confidence  float64   `json:"confidence"`
}

type AvailabilityResponse struct {
	IsAvailable  bool                      `json:"is_available"`
	Conflicts    []string                  `json:"conflicts"`
	Alternatives []AlternativeTimeResponse `json:"alternatives"`
}

type ValidateAppointmentRequest struct {
	StaffID         string `json:"staff_id"`
	PatientID       string `json:"patient_id"`
	ScheduledAt     string `json:"scheduled_at"`
	DurationMinutes int    `json:"duration_minutes"`
}

type ValidationResponse struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

type AppointmentResponse struct {
	ID              uuid.UUID  `json:"id"`
	PatientID       uuid.UUID  `json:"patient_id"`
	StaffID         uuid.UUID  `json:"staff_id"`
	ScheduledAt     time.Time  `json:"scheduled_at"`
	DurationMinutes int        `json:"duration_minutes"`
	Type            string     `json:"type"`
	Status          string     `json:"status"`
	Notes           *string    `json:"notes,omitempty"`
	Location        *string    `json:"location,omitempty"`
	PlanID          *uuid.UUID `json:"plan_id,omitempty"`
	IsGenerated     bool       `json:"is_generated"`
	IsLocked        bool       `json:"is_locked"`
}

type SuggestedAppointmentResponse struct {
	PatientID       uuid.UUID `json:"patient_id"`
	PatientName     string    `json:"patient_name"`
	ScheduledAt     time.Time `json:"scheduled_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Type            string    `json:"type"`
	Notes           *string   `json:"notes,omitempty"`
	Location        *string   `json:"location,omitempty"`
	Reason          string    `json:"reason"`
	IsFromRecurring bool      `json:"is_from_recurring"`
}

type UnscheduledPatientResponse struct {
	PatientID     uuid.UUID  `json:"patient_id"`
	PatientName   string     `json:"patient_name"`
	Frequency     string     `json:"recommended_frequency"`
	LastVisitDate *time.Time `json:"last_visit_date,omitempty"`
	Reason        string     `json:"reason"`
}

type SuggestionResponse struct {
	StaffID             uuid.UUID                      `json:"staff_id"`
	StaffName           string                         `json:"staff_name"`
	PeriodStart         string                         `json:"period_start"`
	PeriodEnd           string                         `json:"period_end"`
	Suggestions         []SuggestedAppointmentResponse `json:"suggestions"`
	AlreadyScheduled    []AppointmentResponse          `json:"already_scheduled"`
	UnscheduledPatients []UnscheduledPatientResponse   `json:"unscheduled_patients"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
