package scheduling

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
)

const (
	alternativeSearchDays = 7
	alternativeStepMin    = 30
	maxAlternatives       = 5
)

// CheckAvailability validates one proposed appointment against staff hours,
// time off, existing bookings and patient preferences. Conflicts accumulate
// independently; when any exist, scored alternatives over the next week are
// returned, each guaranteed to re-validate conflict-free.
func (s *Service) CheckAvailability(ctx context.Context, staffID, patientID uuid.UUID, scheduledAt time.Time, durationMinutes int) (*AvailabilityResult, error) {
	conflicts, err := s.findConflicts(ctx, staffID, patientID, scheduledAt, durationMinutes)
	if err != nil {
		return nil, err
	}

	result := &AvailabilityResult{
		IsAvailable: len(conflicts) == 0,
		Conflicts:   conflicts,
	}
	if !result.IsAvailable {
		alts, err := s.findAlternatives(ctx, staffID, patientID, scheduledAt, durationMinutes)
		if err != nil {
			return nil, err
		}
		result.Alternatives = alts
	}
	return result, nil
}

func (s *Service) findConflicts(ctx context.Context, staffID, patientID uuid.UUID, proposed time.Time, durationMinutes int) ([]string, error) {
	var conflicts []string

	start := TimeOfDayFrom(proposed)
	end := start + TimeOfDay(durationMinutes)

	windows, err := s.repo.ListAvailabilityByStaff(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	dayWindows := windowsForDay(windows, int(proposed.Weekday()))
	if len(dayWindows) == 0 {
		conflicts = append(conflicts, fmt.Sprintf("Staff not available on %s", proposed.Weekday()))
	} else {
		inRange := false
		for _, w := range dayWindows {
			if start >= w.StartTime && end <= w.EndTime {
				inRange = true
				break
			}
		}
		if !inRange {
			conflicts = append(conflicts, "Time outside staff working hours")
		}
	}

	onTimeOff, err := s.repo.IsStaffOnTimeOff(ctx, staffID, Date(proposed))
	if err != nil {
		return nil, fmt.Errorf("check time off: %w", err)
	}
	if onTimeOff {
		conflicts = append(conflicts, "Staff on time-off")
	}

	proposedEnd := proposed.Add(time.Duration(durationMinutes) * time.Minute)
	existing, err := s.repo.ListAppointmentsByStaffBetween(ctx, staffID,
		proposed.Add(-30*time.Minute), proposedEnd.Add(30*time.Minute))
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	for _, appt := range existing {
		if appt.Status == StatusCancelled {
			continue
		}
		// Half-open interval overlap.
		if proposed.Before(appt.EndTime()) && proposedEnd.After(appt.ScheduledAt) {
			conflicts = append(conflicts, fmt.Sprintf(
				"Conflict with existing appointment at %s",
				appt.ScheduledAt.Format("2006-01-02 15:04")))
		}
	}

	pref, err := s.repo.GetPatientPreference(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load patient preference: %w", err)
	}
	if pref != nil {
		if pref.AvoidMornings && proposed.Hour() < 12 {
			conflicts = append(conflicts, "Patient prefers to avoid mornings")
		}
		if pref.AvoidEvenings && proposed.Hour() >= 17 {
			conflicts = append(conflicts, "Patient prefers to avoid evenings")
		}
		if pref.PreferredDayOfWeek != nil && int(proposed.Weekday()) != *pref.PreferredDayOfWeek {
			conflicts = append(conflicts, fmt.Sprintf(
				"Patient prefers %s", time.Weekday(*pref.PreferredDayOfWeek)))
		}
		if pref.PreferredTimeStart != nil && pref.PreferredTimeEnd != nil {
			if start < *pref.PreferredTimeStart || end > *pref.PreferredTimeEnd {
				conflicts = append(conflicts, fmt.Sprintf(
					"Patient prefers time between %s and %s",
					pref.PreferredTimeStart, pref.PreferredTimeEnd))
			}
		}
	}

	return conflicts, nil
}

// findAlternatives probes 30-minute candidate starts inside the staff
// member's availability windows over the following week. Every accepted
// candidate re-ran the full conflict check, so anything returned is
// independently bookable.
func (s *Service) findAlternatives(ctx context.Context, staffID, patientID uuid.UUID, requested time.Time, durationMinutes int) ([]AlternativeTime, error) {
	pref, err := s.repo.GetPatientPreference(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("load patient preference: %w", err)
	}
	windows, err := s.repo.ListAvailabilityByStaff(ctx, staffID)
	if err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}

	var alternatives []AlternativeTime
	baseDate := Date(requested)

	for offset := 0; offset <= alternativeSearchDays; offset++ {
		if len(alternatives) >= maxAlternatives {
			break
		}
		searchDate := baseDate.AddDate(0, 0, offset)

		onTimeOff, err := s.repo.IsStaffOnTimeOff(ctx, staffID, searchDate)
		if err != nil {
			return nil, fmt.Errorf("check time off: %w", err)
		}
		if onTimeOff {
			continue
		}

		for _, w := range windowsForDay(windows, int(searchDate.Weekday())) {
			if len(alternatives) >= maxAlternatives {
				break
			}
			for slot := w.StartTime; slot+TimeOfDay(durationMinutes) <= w.EndTime && len(alternatives) < maxAlternatives; slot += alternativeStepMin {
				candidate := slot.At(searchDate)

				conflicts, err := s.findConflicts(ctx, staffID, patientID, candidate, durationMinutes)
				if err != nil {
					return nil, err
				}
				if len(conflicts) > 0 {
					continue
				}

				preferred := isPreferredTime(candidate, pref)
				reason := "Available slot"
				if preferred {
					reason = "Matches patient preferences"
				}
				alternatives = append(alternatives, AlternativeTime{
					ScheduledAt: candidate,
					Reason:      reason,
					IsPreferred: preferred,
					Confidence:  confidence(candidate, requested, pref, preferred),
				})
			}
		}
	}

	sort.SliceStable(alternatives, func(i, j int) bool {
		a, b := alternatives[i], alternatives[j]
		if a.IsPreferred != b.IsPreferred {
			return a.IsPreferred
		}
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.ScheduledAt.Before(b.ScheduledAt)
	})
	if len(alternatives) > maxAlternatives {
		alternatives = alternatives[:maxAlternatives]
	}
	return alternatives, nil
}

func isPreferredTime(at time.Time, pref *PatientPreference) bool {
	if pref == nil {
		return false
	}
	t := TimeOfDayFrom(at)
	if pref.PreferredDayOfWeek != nil && int(at.Weekday()) != *pref.PreferredDayOfWeek {
		return false
	}
	if pref.PreferredTimeStart != nil && pref.PreferredTimeEnd != nil {
		if t < *pref.PreferredTimeStart || t+alternativeStepMin > *pref.PreferredTimeEnd {
			return false
		}
	}
	if pref.AvoidMornings && at.Hour() < 12 {
		return false
	}
	if pref.AvoidEvenings && at.Hour() >= 17 {
		return false
	}
	return true
}

// confidence scores an alternative: 0.5 base, +0.3 for matching patient
// preferences, -0.02 per hour of distance from the requested time capped at
// 0.2, clamped to [0,1].
func confidence(candidate, requested time.Time, pref *PatientPreference, preferred bool) float64 {
	c := 0.5
	if pref != nil && preferred {
		c += 0.3
	}

	diff := candidate.Sub(requested)
	if diff < 0 {
		diff = -diff
	}
	penalty := float64(int(diff.Hours())) * 0.02
	if penalty > 0.2 {
		penalty = 0.2
	}
	c -= penalty

	if c < 0 {
		c = 0
	}
	if c > 1 {
		c = 1
	}
	return c
}

func windowsForDay(windows []AvailabilityWindow, dayOfWeek int) []AvailabilityWindow {
	var out []AvailabilityWindow
	for _, w := range windows {
		if w.DayOfWeek == dayOfWeek && w.IsAvailable {
			out = append(out, w)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime < out[j].StartTime })
	return out
}
