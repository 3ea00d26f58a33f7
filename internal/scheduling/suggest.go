package scheduling

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Due thresholds: minimum days since the last visit before the next one of
// that cadence is proposed.
var dueAfterDays = map[RecurringFrequency]int{
	FrequencyWeekly:   5,
	FrequencyBiweekly: 12,
	FrequencyMonthly:  25,
}

type visitPattern struct {
	frequency      RecurringFrequency
	duration       int
	visitType      AppointmentType
	notes          *string
	location       *string
	recurringGroup *string
	lastVisit      *time.Time
}

// SuggestAppointments inspects each assigned patient's visit history, infers
// a cadence, and proposes the next needed appointment inside the date range.
// Read-only: nothing is persisted, and a patient that cannot be placed is
// reported rather than erred on.
func (s *Service) SuggestAppointments(ctx context.Context, staffID uuid.UUID, startDate, endDate time.Time) (*SuggestionResult, error) {
	startDate, endDate = Date(startDate), Date(endDate)
	if startDate.After(endDate) {
		return nil, ErrInvalidPeriod
	}

	staff, err := s.repo.GetStaffByID(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("load staff: %w", err)
	}

	assignments, err := s.repo.ListAssignmentsByStaff(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("list care assignments: %w", err)
	}
	sort.Slice(assignments, func(i, j int) bool {
		return bytes.Compare(assignments[i].PatientID[:], assignments[j].PatientID[:]) < 0
	})

	periodEnd := endDate.AddDate(0, 0, 1)
	existing, err := s.repo.ListAppointmentsByStaffBetween(ctx, staffID, startDate, periodEnd)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	scheduled := existing[:0:0]
	for _, a := range existing {
		if a.Status != StatusCancelled {
			scheduled = append(scheduled, a)
		}
	}

	windows, err := s.repo.ListAvailabilityByStaff(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}

	// Occupied intervals accumulate freshly emitted suggestions so two
	// patients are never proposed into the same slot.
	type interval struct{ start, end time.Time }
	occupied := make([]interval, 0, len(scheduled))
	for _, a := range scheduled {
		occupied = append(occupied, interval{a.ScheduledAt, a.EndTime()})
	}
	scheduledFor := make(map[uuid.UUID]bool)
	for _, a := range scheduled {
		scheduledFor[a.PatientID] = true
	}

	result := &SuggestionResult{
		StaffID:          staffID,
		StaffName:        staff.Name,
		PeriodStart:      startDate,
		PeriodEnd:        endDate,
		AlreadyScheduled: scheduled,
	}

	now := s.now()
	for _, asgn := range assignments {
		if scheduledFor[asgn.PatientID] {
			continue
		}

		patient, err := s.repo.GetPatientByID(ctx, asgn.PatientID)
		if err != nil {
			return nil, fmt.Errorf("load patient: %w", err)
		}

		history, err := s.repo.ListAppointmentsByPatientAndStaff(ctx, asgn.PatientID, staffID)
		if err != nil {
			return nil, fmt.Errorf("load visit history: %w", err)
		}
		pattern := inferVisitPattern(history)

		if pattern.lastVisit != nil {
			elapsed := int(now.Sub(*pattern.lastVisit).Hours() / 24)
			if elapsed < dueAfterDays[pattern.frequency] {
				continue
			}
		}

		slot, found, err := s.findSuggestionSlot(ctx, staffID, startDate, endDate, windows, pattern.duration, func(start, end time.Time) bool {
			for _, occ := range occupied {
				if start.Before(occ.end) && end.After(occ.start) {
					return false
				}
			}
			return true
		})
		if err != nil {
			return nil, err
		}
		if !found {
			result.UnscheduledPatients = append(result.UnscheduledPatients, UnscheduledPatient{
				PatientID:     asgn.PatientID,
				PatientName:   patient.Name,
				Frequency:     pattern.frequency,
				LastVisitDate: pattern.lastVisit,
				Reason:        "No available slot in the requested period",
			})
			continue
		}

		end := slot.Add(time.Duration(pattern.duration) * time.Minute)
		occupied = append(occupied, interval{slot, end})
		result.Suggestions = append(result.Suggestions, SuggestedAppointment{
			PatientID:       asgn.PatientID,
			PatientName:     patient.Name,
			ScheduledAt:     slot,
			DurationMinutes: pattern.duration,
			Type:            pattern.visitType,
			Notes:           pattern.notes,
			Location:        pattern.location,
			Reason:          suggestionReason(pattern),
			IsFromRecurring: pattern.recurringGroup != nil,
			RecurringGroup:  pattern.recurringGroup,
		})
	}

	sort.Slice(result.Suggestions, func(i, j int) bool {
		return result.Suggestions[i].ScheduledAt.Before(result.Suggestions[j].ScheduledAt)
	})
	return result, nil
}

// findSuggestionSlot scans the range day by day, 30-minute steps inside the
// staff member's availability windows, for the first slot accepted by free.
func (s *Service) findSuggestionSlot(ctx context.Context, staffID uuid.UUID, startDate, endDate time.Time, windows []AvailabilityWindow, durationMinutes int, free func(start, end time.Time) bool) (time.Time, bool, error) {
	for date := startDate; !date.After(endDate); date = date.AddDate(0, 0, 1) {
		onTimeOff, err := s.repo.IsStaffOnTimeOff(ctx, staffID, date)
		if err != nil {
			return time.Time{}, false, fmt.Errorf("check time off: %w", err)
		}
		if onTimeOff {
			continue
		}
		for _, w := range windowsForDay(windows, int(date.Weekday())) {
			for slot := w.StartTime; slot+TimeOfDay(durationMinutes) <= w.EndTime; slot += alternativeStepMin {
				start := slot.At(date)
				end := start.Add(time.Duration(durationMinutes) * time.Minute)
				if free(start, end) {
					return start, true, nil
				}
			}
		}
	}
	return time.Time{}, false, nil
}

// inferVisitPattern derives a patient's cadence and visit shape from their
// non-cancelled history with this staff member. An open recurring-series tag
// wins; otherwise the mean interval between consecutive visits is bucketed
// (<=10d weekly, <=21d biweekly, else monthly). No history defaults to a
// weekly 30-minute home visit, due immediately.
func inferVisitPattern(history []Appointment) visitPattern {
	active := history[:0:0]
	for _, a := range history {
		if a.Status != StatusCancelled {
			active = append(active, a)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return active[i].ScheduledAt.Before(active[j].ScheduledAt)
	})

	pattern := visitPattern{
		frequency: FrequencyWeekly,
		duration:  30,
		visitType: TypeHomeVisit,
	}
	if len(active) == 0 {
		return pattern
	}

	recent := active[len(active)-1]
	last := recent.ScheduledAt
	pattern.lastVisit = &last
	pattern.duration = recent.DurationMinutes
	pattern.visitType = recent.Type
	pattern.notes = recent.Notes
	pattern.location = recent.Location

	// Most recent recurring-series tag, scanning newest first.
	for i := len(active) - 1; i >= 0; i-- {
		if active[i].RecurringGroupID != nil {
			pattern.recurringGroup = active[i].RecurringGroupID
			if active[i].RecurringFrequency != nil {
				pattern.frequency = *active[i].RecurringFrequency
			}
			return pattern
		}
	}

	if len(active) >= 2 {
		span := active[len(active)-1].ScheduledAt.Sub(active[0].ScheduledAt)
		meanDays := span.Hours() / 24 / float64(len(active)-1)
		switch {
		case meanDays <= 10:
			pattern.frequency = FrequencyWeekly
		case meanDays <= 21:
			pattern.frequency = FrequencyBiweekly
		default:
			pattern.frequency = FrequencyMonthly
		}
	}
	return pattern
}

func suggestionReason(p visitPattern) string {
	var freq string
	switch p.frequency {
	case FrequencyWeekly:
		freq = "Weekly"
	case FrequencyBiweekly:
		freq = "Biweekly"
	default:
		freq = "Monthly"
	}
	var kind string
	switch p.visitType {
	case TypeTeleconsultation:
		kind = "teleconsultation"
	case TypeHospitalVisit:
		kind = "hospital visit"
	default:
		kind = "home visit"
	}
	if p.recurringGroup != nil {
		return fmt.Sprintf("%s %s (recurring series)", freq, kind)
	}
	return fmt.Sprintf("%s %s", freq, kind)
}
