package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ValidateAppointment runs the hard pre-booking checks: care-assignment
// membership, availability, approved time off, and overlap with existing
// bookings. Errors accumulate; the result is never a failure of the call.
func (s *Service) ValidateAppointment(ctx context.Context, staffID, patientID uuid.UUID, scheduledAt time.Time, durationMinutes int) (*ValidationResult, error) {
	var errs []string

	assignments, err := s.repo.ListAssignmentsByStaff(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("list care assignments: %w", err)
	}
	assigned := false
	for _, a := range assignments {
		if a.PatientID == patientID {
			assigned = true
			break
		}
	}
	if !assigned {
		errs = append(errs, "Staff is not assigned to this patient")
	}

	start := TimeOfDayFrom(scheduledAt)
	end := start + TimeOfDay(durationMinutes)
	windows, err := s.repo.ListAvailabilityByStaff(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	available := false
	for _, w := range windowsForDay(windows, int(scheduledAt.Weekday())) {
		if start >= w.StartTime && end <= w.EndTime {
			available = true
			break
		}
	}
	if !available {
		errs = append(errs, "Staff is not available at this time")
	}

	onTimeOff, err := s.repo.IsStaffOnTimeOff(ctx, staffID, Date(scheduledAt))
	if err != nil {
		return nil, fmt.Errorf("check time off: %w", err)
	}
	if onTimeOff {
		errs = append(errs, "Staff is on approved time off for this date")
	}

	scheduledEnd := scheduledAt.Add(time.Duration(durationMinutes) * time.Minute)
	existing, err := s.repo.ListAppointmentsByStaffBetween(ctx, staffID,
		scheduledAt.Add(-30*time.Minute), scheduledEnd.Add(30*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	for _, appt := range existing {
		if appt.Status == StatusCancelled || appt.Status == StatusRescheduled {
			continue
		}
		if scheduledAt.Before(appt.EndTime()) && scheduledEnd.After(appt.ScheduledAt) {
			errs = append(errs, "Staff already has an appointment at this time")
			break
		}
	}

	return &ValidationResult{Valid: len(errs) == 0, Errors: errs}, nil
}
