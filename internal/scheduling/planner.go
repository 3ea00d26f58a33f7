package scheduling

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	redisclient "github.com/deepencare/homecare-scheduler/internal/redis"
)

// visitRequest is one concrete visit to place, expanded from a
// VisitRequirement (one per visitsPerWeek).
type visitRequest struct {
	requirementID  uuid.UUID
	patientID      uuid.UUID
	patientName    string
	priority       VisitPriority
	duration       int
	visitType      AppointmentType
	preferredStart *TimeOfDay
	preferredEnd   *TimeOfDay
	location       *string
	notes          *string
	primaryStaffID *uuid.UUID
}

// staffWeek tracks one staff member's schedule across the plan week.
type staffWeek struct {
	staff  StaffMember
	dayOff time.Weekday
	days   map[time.Time]*DaySchedule
}

func (w *staffWeek) totalWorkMinutes() int {
	total := 0
	for _, d := range w.days {
		total += d.WorkMinutes()
	}
	return total
}

func (w *staffWeek) totalVisitMinutes() int {
	total := 0
	for _, d := range w.days {
		total += d.VisitMinutes()
	}
	return total
}

// GenerateWeeklyPlan builds a full week of visit and office assignments for
// every staff member and persists it as a DRAFT plan, replacing any previous
// draft for the same week. The returned advisory strings describe best-effort
// compromises (UNSCHEDULED, REASSIGNED, OVERLOADED, WARNING); they never fail
// the run.
func (s *Service) GenerateWeeklyPlan(ctx context.Context, weekStart time.Time) (*SchedulePlan, []string, error) {
	weekStart = Date(weekStart)
	if weekStart.Weekday() != time.Monday {
		return nil, nil, fmt.Errorf("%w: got %s", ErrNotMonday, weekStart.Weekday())
	}
	if !weekStart.After(mondayOf(s.now())) {
		return nil, nil, ErrWeekNotFuture
	}

	var (
		plan       *SchedulePlan
		advisories []string
	)
	err := s.locker.WithWeekLock(ctx, weekStart, func(lockCtx context.Context) error {
		var genErr error
		plan, advisories, genErr = s.generate(lockCtx, weekStart)
		return genErr
	})
	if err != nil {
		if errors.Is(err, redisclient.ErrLockNotAcquired) {
			return nil, nil, ErrGenerationInProgress
		}
		return nil, nil, err
	}
	return plan, advisories, nil
}

// EnsureDraftPlan generates a draft plan for weekStart unless one already
// exists. Regeneration replaces the draft under a new ID, so a found draft is
// returned as-is; the bool reports whether generation ran.
func (s *Service) EnsureDraftPlan(ctx context.Context, weekStart time.Time) (*SchedulePlan, []string, bool, error) {
	existing, err := s.repo.GetPlanByWeekAndStatus(ctx, Date(weekStart), PlanDraft)
	if err == nil {
		return existing, nil, false, nil
	}
	if !errors.Is(err, ErrPlanNotFound) {
		return nil, nil, false, fmt.Errorf("check draft plan: %w", err)
	}
	plan, advisories, err := s.GenerateWeeklyPlan(ctx, weekStart)
	return plan, advisories, true, err
}

func (s *Service) generate(ctx context.Context, weekStart time.Time) (*SchedulePlan, []string, error) {
	if _, err := s.repo.GetPlanByWeekAndStatus(ctx, weekStart, PlanConfirmed); err == nil {
		return nil, nil, ErrPlanAlreadyConfirmed
	} else if !errors.Is(err, ErrPlanNotFound) {
		return nil, nil, fmt.Errorf("check confirmed plan: %w", err)
	}

	plan := &SchedulePlan{
		ID:            uuid.New(),
		WeekStartDate: weekStart,
		Status:        PlanDraft,
		CreatedAt:     s.now(),
	}
	var advisories []string

	allStaff, err := s.repo.ListStaff(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list staff: %w", err)
	}
	if len(allStaff) == 0 {
		advisories = append(advisories, "No staff members found")
		if err := s.repo.SavePlan(ctx, plan, nil); err != nil {
			return nil, nil, fmt.Errorf("save plan: %w", err)
		}
		return plan, advisories, nil
	}

	weekDays := make([]time.Time, 7)
	for i := range weekDays {
		weekDays[i] = weekStart.AddDate(0, 0, i)
	}

	// Step 0: per-staff skeletons with a rotating deterministic day off.
	schedules, err := s.buildSkeletons(ctx, allStaff, weekStart, weekDays)
	if err != nil {
		return nil, nil, err
	}

	// Step 1: every working date starts as one elastic office block.
	for _, w := range schedules {
		for _, date := range weekDays {
			day, ok := w.days[date]
			if !ok {
				continue
			}
			start, end := s.policy.dayWindow(date)
			day.AddOffice(start, end)
		}
	}
	s.log.Info().Int("staff", len(schedules)).Msg("office skeleton generated")

	// Step 2: expand requirements into visit requests and order them.
	requests, err := s.expandRequirements(ctx, &advisories)
	if err != nil {
		return nil, nil, err
	}
	s.sortRequests(requests)
	s.log.Info().Int("visits", len(requests)).Msg("visit requests expanded and ordered")

	// Steps 3-4: place each request, primary staff first, least loaded next.
	for _, req := range requests {
		if !s.tryPlaceVisit(req, schedules, weekDays, &advisories) {
			advisories = append(advisories, fmt.Sprintf(
				"UNSCHEDULED: %s (%s, %s) - no feasible slot found",
				req.patientName, req.priority, req.visitType))
		}
	}

	// Step 5: level workloads against the weekly floor and cap.
	for _, w := range schedules {
		s.levelWorkload(w, weekDays, &advisories)
	}

	appointments := s.collectAppointments(plan, schedules, weekDays)
	if err := s.repo.SavePlan(ctx, plan, appointments); err != nil {
		return nil, nil, fmt.Errorf("save plan: %w", err)
	}

	s.log.Info().
		Str("plan_id", plan.ID.String()).
		Time("week_start", weekStart).
		Int("appointments", len(appointments)).
		Int("advisories", len(advisories)).
		Msg("weekly plan generated")

	return plan, advisories, nil
}

// buildSkeletons computes each staff member's working dates: the plan week
// minus the rotating day off minus approved time off. Weekend dates are only
// opened for a limited number of staff per day, lowest id first.
func (s *Service) buildSkeletons(ctx context.Context, allStaff []StaffMember, weekStart time.Time, weekDays []time.Time) ([]*staffWeek, error) {
	schedules := make([]*staffWeek, 0, len(allStaff))
	for _, staff := range allStaff {
		w := &staffWeek{
			staff:  staff,
			dayOff: determineDayOff(staff.ID, weekStart),
			days:   make(map[time.Time]*DaySchedule),
		}
		for _, date := range weekDays {
			if isWeekend(date) {
				continue
			}
			if date.Weekday() == w.dayOff {
				continue
			}
			off, err := s.repo.IsStaffOnTimeOff(ctx, staff.ID, date)
			if err != nil {
				return nil, fmt.Errorf("check time off: %w", err)
			}
			if off {
				continue
			}
			w.days[date] = NewDaySchedule()
		}
		schedules = append(schedules, w)
	}

	for _, date := range weekDays {
		if !isWeekend(date) {
			continue
		}
		eligible := make([]*staffWeek, 0, len(schedules))
		for _, w := range schedules {
			if w.dayOff == date.Weekday() {
				continue
			}
			off, err := s.repo.IsStaffOnTimeOff(ctx, w.staff.ID, date)
			if err != nil {
				return nil, fmt.Errorf("check time off: %w", err)
			}
			if off {
				continue
			}
			eligible = append(eligible, w)
		}
		sort.Slice(eligible, func(i, j int) bool {
			return bytes.Compare(eligible[i].staff.ID[:], eligible[j].staff.ID[:]) < 0
		})
		if len(eligible) > s.policy.MaxWeekendOfficeStaff {
			eligible = eligible[:s.policy.MaxWeekendOfficeStaff]
		}
		for _, w := range eligible {
			w.days[date] = NewDaySchedule()
		}
	}

	return schedules, nil
}

func (s *Service) expandRequirements(ctx context.Context, advisories *[]string) ([]visitRequest, error) {
	requirements, err := s.repo.ListActiveRequirements(ctx)
	if err != nil {
		return nil, fmt.Errorf("list visit requirements: %w", err)
	}

	var requests []visitRequest
	for _, req := range requirements {
		patient, err := s.repo.GetPatientByID(ctx, req.PatientID)
		if err != nil {
			if errors.Is(err, ErrPatientNotFound) {
				*advisories = append(*advisories, fmt.Sprintf(
					"UNSCHEDULED: requirement %s skipped - patient %s not found",
					req.ID, req.PatientID))
				continue
			}
			return nil, fmt.Errorf("load patient: %w", err)
		}

		assignments, err := s.repo.ListAssignmentsByPatient(ctx, req.PatientID)
		if err != nil {
			return nil, fmt.Errorf("list care assignments: %w", err)
		}
		var primaryStaffID *uuid.UUID
		for _, asgn := range assignments {
			if asgn.IsPrimary {
				id := asgn.StaffID
				primaryStaffID = &id
				break
			}
		}

		for i := 0; i < req.VisitsPerWeek; i++ {
			requests = append(requests, visitRequest{
				requirementID:  req.ID,
				patientID:      req.PatientID,
				patientName:    patient.Name,
				priority:       req.Priority,
				duration:       req.DurationMinutes,
				visitType:      req.VisitType,
				preferredStart: req.PreferredTimeStart,
				preferredEnd:   req.PreferredTimeEnd,
				location:       req.Location,
				notes:          req.Notes,
				primaryStaffID: primaryStaffID,
			})
		}
	}
	return requests, nil
}

// sortRequests orders placement: urgent first, then narrower preferred
// windows, then patient id as the final deterministic tie-break.
func (s *Service) sortRequests(requests []visitRequest) {
	sort.SliceStable(requests, func(i, j int) bool {
		a, b := requests[i], requests[j]
		if ra, rb := priorityRank(a.priority), priorityRank(b.priority); ra != rb {
			return ra < rb
		}
		if wa, wb := s.windowWidth(a), s.windowWidth(b); wa != wb {
			return wa < wb
		}
		return bytes.Compare(a.patientID[:], b.patientID[:]) < 0
	})
}

// windowWidth measures a request's preferred window; no preference counts as
// a full day, sorting last within its priority.
func (s *Service) windowWidth(req visitRequest) int {
	if req.preferredStart == nil || req.preferredEnd == nil {
		return s.policy.MaxDailyMinutes
	}
	return int(*req.preferredEnd - *req.preferredStart)
}

func (s *Service) tryPlaceVisit(req visitRequest, schedules []*staffWeek, weekDays []time.Time, advisories *[]string) bool {
	primary, fallback := s.buildStaffOrder(req, schedules)

	for _, w := range primary {
		if date, start, ok := s.findSlot(req, w, weekDays); ok {
			s.placeVisit(req, w, date, start)
			return true
		}
	}

	for _, w := range fallback {
		if date, start, ok := s.findSlot(req, w, weekDays); ok {
			s.placeVisit(req, w, date, start)
			*advisories = append(*advisories, fmt.Sprintf(
				"REASSIGNED: %s assigned to %s (not primary staff)",
				req.patientName, w.staff.Name))
			return true
		}
	}

	return false
}

// buildStaffOrder splits candidates into the preferred ordering and the
// reassignment fallback. With a primary staff assigned, only the primary is
// preferred; everyone else is a fallback ordered by current load. Without
// one there is no preference to violate, so all staff are preferred,
// least loaded first.
func (s *Service) buildStaffOrder(req visitRequest, schedules []*staffWeek) (primary, fallback []*staffWeek) {
	others := make([]*staffWeek, 0, len(schedules))
	for _, w := range schedules {
		if req.primaryStaffID != nil && w.staff.ID == *req.primaryStaffID {
			primary = append(primary, w)
			continue
		}
		others = append(others, w)
	}
	sort.SliceStable(others, func(i, j int) bool {
		return others[i].totalWorkMinutes() < others[j].totalWorkMinutes()
	})

	if req.primaryStaffID == nil || len(primary) == 0 {
		return others, nil
	}
	return primary, others
}

// findSlot scans the staff member's working dates in week order for the
// first feasible placement.
func (s *Service) findSlot(req visitRequest, w *staffWeek, weekDays []time.Time) (time.Time, TimeOfDay, bool) {
	totalNeeded := req.duration + s.policy.TravelBufferMinutes
	urgent := req.priority == PriorityUrgent

	for _, date := range weekDays {
		day, ok := w.days[date]
		if !ok {
			continue
		}

		// Weekends take urgent visits only.
		if isWeekend(date) && !urgent {
			continue
		}
		if !urgent && day.VisitCount() >= s.policy.MaxDailyVisits {
			continue
		}
		if day.VisitMinutes()+totalNeeded > s.policy.dayCapacity(date) {
			continue
		}
		if w.totalVisitMinutes()+totalNeeded > s.policy.MaxWeeklyMinutes {
			continue
		}

		if start, ok := day.FindVisitStart(req.preferredStart, req.preferredEnd, totalNeeded); ok {
			return date, start, true
		}
	}
	return time.Time{}, 0, false
}

func (s *Service) placeVisit(req visitRequest, w *staffWeek, date time.Time, start TimeOfDay) {
	_, dayEnd := s.policy.dayWindow(date)
	w.days[date].PlaceVisit(start, VisitPlacement{
		RequirementID:   req.requirementID,
		PatientID:       req.patientID,
		PatientName:     req.patientName,
		VisitType:       req.visitType,
		DurationMinutes: req.duration,
		Notes:           req.notes,
		Location:        req.location,
		Priority:        req.priority,
	}, s.policy.TravelBufferMinutes, dayEnd, s.policy.OfficeSplitMinMinutes)
}

// levelWorkload trims schedules over the weekly hard cap and fills
// underloaded ones with office time, then records advisories for anything
// still out of band.
func (s *Service) levelWorkload(w *staffWeek, weekDays []time.Time, advisories *[]string) {
	total := w.totalWorkMinutes()
	if total > s.policy.MaxWeeklyMinutes {
		excess := total - s.policy.MaxWeeklyMinutes
		// Trim office time from the latest dates backward; visits are never removed.
		for i := len(weekDays) - 1; i >= 0 && excess > 0; i-- {
			day, ok := w.days[weekDays[i]]
			if !ok {
				continue
			}
			excess -= day.TrimOffice(excess, s.policy.OfficeSplitMinMinutes)
		}
		total = w.totalWorkMinutes()
		if total > s.policy.MaxWeeklyMinutes {
			*advisories = append(*advisories, fmt.Sprintf(
				"OVERLOADED: %s has %dmin (max %dmin) after trimming",
				w.staff.Name, total, s.policy.MaxWeeklyMinutes))
		}
	}

	if total < s.policy.MinWeeklyMinutes {
		deficit := s.policy.MinWeeklyMinutes - total
		filled := 0
		for _, date := range weekDays {
			if filled >= deficit {
				break
			}
			day, ok := w.days[date]
			if !ok {
				continue
			}
			dayRemaining := s.policy.dayCapacity(date) - day.WorkMinutes()
			if dayRemaining <= 0 {
				continue
			}

			workStart, workEnd := s.policy.dayWindow(date)
			for _, gap := range day.Gaps(workStart, workEnd) {
				if filled >= deficit {
					break
				}
				gapMinutes := int(gap[1] - gap[0])
				if gapMinutes < s.policy.OfficeSplitMinMinutes {
					continue
				}
				fill := gapMinutes
				if dayRemaining < fill {
					fill = dayRemaining
				}
				if deficit-filled < fill {
					fill = deficit - filled
				}
				if fill < s.policy.OfficeSplitMinMinutes {
					continue
				}
				day.AddOffice(gap[0], gap[0]+TimeOfDay(fill))
				filled += fill
				dayRemaining -= fill
			}
		}
	}

	if final := w.totalWorkMinutes(); final < s.policy.MinWeeklyMinutes {
		*advisories = append(*advisories, fmt.Sprintf(
			"WARNING: %s has %dmin (%dh%02dm) below %dh soft target. Day off: %s",
			w.staff.Name, final, final/60, final%60,
			s.policy.MinWeeklyMinutes/60, w.dayOff))
	}
}

// collectAppointments turns the surviving blocks into appointment records.
// Travel buffers and short office slivers are not persisted; office blocks
// reference the staff member as their own patient.
func (s *Service) collectAppointments(plan *SchedulePlan, schedules []*staffWeek, weekDays []time.Time) []Appointment {
	now := s.now()
	officeNotes := "Office work"
	officeLocation := "Office"

	var appointments []Appointment
	for _, w := range schedules {
		for _, date := range weekDays {
			day, ok := w.days[date]
			if !ok {
				continue
			}
			for _, block := range day.Blocks() {
				switch {
				case block.Type == BlockTravel:
					continue
				case block.Type == BlockOffice && block.DurationMinutes() < s.policy.OfficePersistMinMinutes:
					continue
				}

				appt := Appointment{
					ID:              uuid.New(),
					StaffID:         w.staff.ID,
					ScheduledAt:     block.Start.At(date),
					DurationMinutes: block.DurationMinutes(),
					Status:          StatusScheduled,
					PlanID:          &plan.ID,
					IsGenerated:     true,
					CreatedAt:       now,
					UpdatedAt:       now,
				}
				if block.Type == BlockVisit {
					appt.PatientID = block.Visit.PatientID
					appt.Type = block.Visit.VisitType
					appt.Notes = block.Visit.Notes
					appt.Location = block.Visit.Location
				} else {
					appt.PatientID = w.staff.ID
					appt.Type = TypeOfficeWork
					appt.Notes = &officeNotes
					appt.Location = &officeLocation
				}
				appointments = append(appointments, appt)
			}
		}
	}
	return appointments
}

// determineDayOff rotates each staff member's weekly day off as a pure
// function of (week, staff id): dayOff = weekdays[(weekIndex + hash) mod 7]
// with weeks counted from a fixed reference Monday. Reproducible for a given
// week and staff pair, no randomness involved.
func determineDayOff(staffID uuid.UUID, weekStart time.Time) time.Weekday {
	weekIndex := int(weekStart.Sub(dayOffEpoch) / (7 * 24 * time.Hour))
	sum := 0
	for _, b := range staffID {
		sum += int(b)
	}
	staffHash := ((sum*31+17)%7 + 7) % 7
	dayIndex := ((weekIndex+staffHash)%7 + 7) % 7 // 0=Monday .. 6=Sunday
	return time.Weekday((dayIndex + 1) % 7)
}
