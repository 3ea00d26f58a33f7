package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/deepencare/homecare-scheduler/internal/scheduling"
)

func planResponse(p *scheduling.SchedulePlan) PlanResponse {
	return PlanResponse{
		ID:            p.ID,
		WeekStartDate: p.WeekStartDate.Format(dateLayout),
		Status:        string(p.Status),
		CreatedAt:     p.CreatedAt,
		ConfirmedAt:   p.ConfirmedAt,
	}
}

func appointmentResponse(a scheduling.Appointment) AppointmentResponse {
	return AppointmentResponse{
		ID:              a.ID,
		PatientID:       a.PatientID,
		StaffID:         a.StaffID,
		ScheduledAt:     a.ScheduledAt,
		DurationMinutes: a.DurationMinutes,
		Type:            string(a.Type),
		Status:          string(a.Status),
		Notes:           a.Notes,
		Location:        a.Location,
		PlanID:          a.PlanID,
		IsGenerated:     a.IsGenerated,
		IsLocked:        a.IsLocked,
	}
}

func generatePlanHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req GeneratePlanRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		weekStart, err := time.Parse(dateLayout, req.WeekStartDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_week_start_date", "week_start_date must be YYYY-MM-DD")
			return
		}

		plan, advisories, err := svc.GenerateWeeklyPlan(r.Context(), weekStart)
		if err != nil {
			handlePlanError(w, err)
			return
		}
		if advisories == nil {
			advisories = []string{}
		}

		writeJSON(w, http.StatusCreated, GeneratePlanResponse{
			Plan:       planResponse(plan),
			Advisories: advisories,
		})
	}
}

func confirmPlanHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_plan_id", "id must be a valid UUID")
			return
		}

		plan, err := svc.ConfirmPlan(r.Context(), id)
		if err != nil {
			handlePlanError(w, err)
			return
		}

		writeJSON(w, http.StatusOK, planResponse(plan))
	}
}

func getPlanHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_plan_id", "id must be a valid UUID")
			return
		}

		plan, summaries, err := svc.GetPlanSummary(r.Context(), id)
		if err != nil {
			handlePlanError(w, err)
			return
		}

		resp := PlanDetailResponse{
			Plan:           planResponse(plan),
			StaffSummaries: make([]StaffSummaryResponse, 0, len(summaries)),
		}
		for _, sum := range summaries {
			resp.StaffSummaries = append(resp.StaffSummaries, StaffSummaryResponse{
				StaffID:      sum.StaffID,
				StaffName:    sum.StaffName,
				VisitCount:   sum.VisitCount,
				OfficeCount:  sum.OfficeCount,
				TotalMinutes: sum.TotalMinutes,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func checkAvailabilityHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CheckAvailabilityRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		staffID, patientID, scheduledAt, ok := parseBookingParams(w, req.StaffID, req.PatientID, req.ScheduledAt, req.DurationMinutes)
		if !ok {
			return
		}

		result, err := svc.CheckAvailability(r.Context(), staffID, patientID, scheduledAt, req.DurationMinutes)
		if err != nil {
			handlePlanError(w, err)
			return
		}

		resp := AvailabilityResponse{
			IsAvailable:  result.IsAvailable,
			Conflicts:    result.Conflicts,
			Alternatives: make([]AlternativeTimeResponse, 0, len(result.Alternatives)),
		}
		if resp.Conflicts == nil {
			resp.Conflicts = []string{}
		}
		for _, alt := range result.Alternatives {
			resp.Alternatives = append(resp.Alternatives, AlternativeTimeResponse{
				ScheduledAt: alt.ScheduledAt,
				Reason:      alt.Reason,
				IsPreferred: alt.IsPreferred,
				Confidence:  alt.Confidence,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func validateAppointmentHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ValidateAppointmentRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid_request_body", "could not parse JSON")
			return
		}

		staffID, patientID, scheduledAt, ok := parseBookingParams(w, req.StaffID, req.PatientID, req.ScheduledAt, req.DurationMinutes)
		if !ok {
			return
		}

		result, err := svc.ValidateAppointment(r.Context(), staffID, patientID, scheduledAt, req.DurationMinutes)
		if err != nil {
			handlePlanError(w, err)
			return
		}
		if result.Errors == nil {
			result.Errors = []string{}
		}
		writeJSON(w, http.StatusOK, ValidationResponse{Valid: result.Valid, Errors: result.Errors})
	}
}

func suggestionsHandler(svc *scheduling.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		staffID, err := uuid.Parse(chi.URLParam(r, "id"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_staff_id", "id must be a valid UUID")
			return
		}

		start, err := time.Parse(dateLayout, r.URL.Query().Get("start"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_start_date", "start must be YYYY-MM-DD")
			return
		}
		end, err := time.Parse(dateLayout, r.URL.Query().Get("end"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_end_date", "end must be YYYY-MM-DD")
			return
		}

		result, err := svc.SuggestAppointments(r.Context(), staffID, start, end)
		if err != nil {
			handlePlanError(w, err)
			return
		}

		resp := SuggestionResponse{
			StaffID:             result.StaffID,
			StaffName:           result.StaffName,
			PeriodStart:         result.PeriodStart.Format(dateLayout),
			PeriodEnd:           result.PeriodEnd.Format(dateLayout),
			Suggestions:         make([]SuggestedAppointmentResponse, 0, len(result.Suggestions)),
			AlreadyScheduled:    make([]AppointmentResponse, 0, len(result.AlreadyScheduled)),
			UnscheduledPatients: make([]UnscheduledPatientResponse, 0, len(result.UnscheduledPatients)),
		}
		for _, sug := range result.Suggestions {
			resp.Suggestions = append(resp.Suggestions, SuggestedAppointmentResponse{
				PatientID:       sug.PatientID,
				PatientName:     sug.PatientName,
				ScheduledAt:     sug.ScheduledAt,
				DurationMinutes: sug.DurationMinutes,
				Type:            string(sug.Type),
				Notes:           sug.Notes,
				Location:        sug.Location,
				Reason:          sug.Reason,
				IsFromRecurring: sug.IsFromRecurring,
			})
		}
		for _, appt := range result.AlreadyScheduled {
			resp.AlreadyScheduled = append(resp.AlreadyScheduled, appointmentResponse(appt))
		}
		for _, up := range result.UnscheduledPatients {
			resp.UnscheduledPatients = append(resp.UnscheduledPatients, UnscheduledPatientResponse{
				PatientID:     up.PatientID,
				PatientName:   up.PatientName,
				Frequency:     string(up.Frequency),
				LastVisitDate: up.LastVisitDate,
				Reason:        up.Reason,
			})
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func parseBookingParams(w http.ResponseWriter, staffID, patientID, scheduledAt string, durationMinutes int) (uuid.UUID, uuid.UUID, time.Time, bool) {
	sID, err := uuid.Parse(staffID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_staff_id", "staff_id must be a valid UUID")
		return uuid.Nil, uuid.Nil, time.Time{}, false
	}
	pID, err := uuid.Parse(patientID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_patient_id", "patient_id must be a valid UUID")
		return uuid.Nil, uuid.Nil, time.Time{}, false
	}
	at, err := time.Parse(time.RFC3339, scheduledAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid_scheduled_at", "scheduled_at must be RFC 3339")
		return uuid.Nil, uuid.Nil, time.Time{}, false
	}
	if durationMinutes <= 0 {
		writeError(w, http.StatusBadRequest, "invalid_duration", "duration_minutes must be positive")
		return uuid.Nil, uuid.Nil, time.Time{}, false
	}
	return sID, pID, at, true
}

func handlePlanError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, scheduling.ErrNotMonday):
		writeError(w, http.StatusBadRequest, "week_start_not_monday", err.Error())
	case errors.Is(err, scheduling.ErrWeekNotFuture):
		writeError(w, http.StatusBadRequest, "week_not_future", err.Error())
	case errors.Is(err, scheduling.ErrInvalidPeriod):
		writeError(w, http.StatusBadRequest, "invalid_period", err.Error())
	case errors.Is(err, scheduling.ErrPlanNotFound):
		writeError(w, http.StatusNotFound, "plan_not_found", err.Error())
	case errors.Is(err, scheduling.ErrStaffNotFound):
		writeError(w, http.StatusNotFound, "staff_not_found", err.Error())
	case errors.Is(err, scheduling.ErrPatientNotFound):
		writeError(w, http.StatusNotFound, "patient_not_found", err.Error())
	case errors.Is(err, scheduling.ErrPlanAlreadyConfirmed):
		writeError(w, http.StatusConflict, "plan_already_confirmed", err.Error())
	case errors.Is(err, scheduling.ErrPlanNotDraft):
		writeError(w, http.StatusConflict, "plan_not_draft", err.Error())
	case errors.Is(err, scheduling.ErrGenerationInProgress):
		writeError(w, http.StatusConflict, "plan_generation_in_progress", "plan generation already running for this week, please retry shortly")
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}
