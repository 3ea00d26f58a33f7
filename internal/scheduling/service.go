package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	redisclient "github.com/deepencare/homecare-scheduler/internal/redis"
)

var (
	ErrNotMonday            = errors.New("week start date must be a Monday")
	ErrWeekNotFuture        = errors.New("cannot generate plan for current or past week")
	ErrPlanAlreadyConfirmed = errors.New("a confirmed plan already exists for this week")
	ErrPlanNotDraft         = errors.New("only DRAFT plans can be confirmed")
	ErrGenerationInProgress = errors.New("plan generation already in progress for this week")
	ErrInvalidPeriod        = errors.New("start date must not be after end date")
)

type Service struct {
	repo   Repository
	locker redisclient.Locker
	policy Policy
	log    zerolog.Logger

	// now is swappable so week validation is testable without a real clock.
	now func() time.Time
}

func NewService(repo Repository, locker redisclient.Locker, policy Policy, log zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		locker: locker,
		policy: policy,
		log:    log,
		now:    time.Now,
	}
}

// ConfirmPlan transitions a DRAFT plan to CONFIRMED and locks every
// appointment under it. This is the only state transition after generation.
func (s *Service) ConfirmPlan(ctx context.Context, planID uuid.UUID) (*SchedulePlan, error) {
	plan, err := s.repo.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, fmt.Errorf("load plan: %w", err)
	}
	if plan.Status != PlanDraft {
		return nil, ErrPlanNotDraft
	}

	confirmed, err := s.repo.ConfirmPlan(ctx, planID, s.now())
	if err != nil {
		return nil, fmt.Errorf("confirm plan: %w", err)
	}

	s.log.Info().
		Str("plan_id", planID.String()).
		Time("week_start", confirmed.WeekStartDate).
		Msg("plan confirmed")

	return confirmed, nil
}

// GetPlanSummary returns a plan together with per-staff appointment counts.
func (s *Service) GetPlanSummary(ctx context.Context, planID uuid.UUID) (*SchedulePlan, []StaffPlanSummary, error) {
	plan, err := s.repo.GetPlanByID(ctx, planID)
	if err != nil {
		return nil, nil, fmt.Errorf("load plan: %w", err)
	}

	appts, err := s.repo.ListAppointmentsByPlan(ctx, planID)
	if err != nil {
		return nil, nil, fmt.Errorf("list plan appointments: %w", err)
	}

	byStaff := make(map[uuid.UUID]*StaffPlanSummary)
	for _, a := range appts {
		sum, ok := byStaff[a.StaffID]
		if !ok {
			sum = &StaffPlanSummary{StaffID: a.StaffID}
			byStaff[a.StaffID] = sum
		}
		if a.Type == TypeOfficeWork {
			sum.OfficeCount++
		} else {
			sum.VisitCount++
		}
		sum.TotalMinutes += a.DurationMinutes
	}

	summaries := make([]StaffPlanSummary, 0, len(byStaff))
	for staffID, sum := range byStaff {
		staff, err := s.repo.GetStaffByID(ctx, staffID)
		if err == nil {
			sum.StaffName = staff.Name
		}
		summaries = append(summaries, *sum)
	}
	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].StaffID.String() < summaries[j].StaffID.String()
	})

	return plan, summaries, nil
}

// mondayOf returns the Monday of the week containing t, at UTC midnight.
func mondayOf(t time.Time) time.Time {
	d := Date(t)
	offset := (int(d.Weekday()) + 6) % 7 // Monday=0 .. Sunday=6
	return d.AddDate(0, 0, -offset)
}
