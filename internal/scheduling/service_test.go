package scheduling

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestConfirmPlan(t *testing.T) {
	t.Run("confirms a draft plan", func(t *testing.T) {
		repo := newFakeRepo()
		staff := addStaff(repo, "Alice")
		patient := addPatient(repo, "Carol")
		addRequirement(repo, patient.ID, PriorityRoutine, 1, 60)
		assignPrimary(repo, patient.ID, staff.ID)

		svc := newTestService(repo)
		plan, _, err := svc.GenerateWeeklyPlan(context.Background(), nextWeekMonday)
		requireNoErr(t, err)

		confirmed, err := svc.ConfirmPlan(context.Background(), plan.ID)
		requireNoErr(t, err)

		if confirmed.Status != PlanConfirmed {
			t.Errorf("status = %s, want CONFIRMED", confirmed.Status)
		}
		if confirmed.ConfirmedAt == nil || !confirmed.ConfirmedAt.Equal(testNow) {
			t.Error("confirmed_at not set from the service clock")
		}
		for _, a := range repo.appointments {
			if a.PlanID != nil && *a.PlanID == plan.ID {
				if a.Status != StatusConfirmed || !a.IsLocked {
					t.Errorf("appointment %s not locked: status %s locked %v", a.ID, a.Status, a.IsLocked)
				}
			}
		}
	})

	t.Run("unknown plan", func(t *testing.T) {
		svc := newTestService(newFakeRepo())
		_, err := svc.ConfirmPlan(context.Background(), uuid.New())
		if !errors.Is(err, ErrPlanNotFound) {
			t.Fatalf("got %v, want ErrPlanNotFound", err)
		}
	})

	t.Run("double confirm", func(t *testing.T) {
		repo := newFakeRepo()
		svc := newTestService(repo)
		plan, _, err := svc.GenerateWeeklyPlan(context.Background(), nextWeekMonday)
		requireNoErr(t, err)

		_, err = svc.ConfirmPlan(context.Background(), plan.ID)
		requireNoErr(t, err)

		_, err = svc.ConfirmPlan(context.Background(), plan.ID)
		if !errors.Is(err, ErrPlanNotDraft) {
			t.Fatalf("got %v, want ErrPlanNotDraft", err)
		}
	})
}

func TestGetPlanSummary(t *testing.T) {
	repo := newFakeRepo()
	staff := addStaff(repo, "Alice")
	patient := addPatient(repo, "Carol")
	addRequirement(repo, patient.ID, PriorityRoutine, 2, 60)
	assignPrimary(repo, patient.ID, staff.ID)

	svc := newTestService(repo)
	plan, _, err := svc.GenerateWeeklyPlan(context.Background(), nextWeekMonday)
	requireNoErr(t, err)

	got, summaries, err := svc.GetPlanSummary(context.Background(), plan.ID)
	requireNoErr(t, err)

	if got.ID != plan.ID {
		t.Errorf("plan id = %s, want %s", got.ID, plan.ID)
	}
	if len(summaries) != 1 {
		t.Fatalf("got %d staff summaries, want 1", len(summaries))
	}
	sum := summaries[0]
	if sum.StaffID != staff.ID || sum.StaffName != "Alice" {
		t.Errorf("summary staff = %s %q", sum.StaffID, sum.StaffName)
	}
	if sum.VisitCount != 2 {
		t.Errorf("visit count = %d, want 2", sum.VisitCount)
	}
	if sum.OfficeCount == 0 {
		t.Error("office blocks expected in the summary")
	}

	wantTotal := 0
	for _, a := range repo.savedAppointments {
		wantTotal += a.DurationMinutes
	}
	if sum.TotalMinutes != wantTotal {
		t.Errorf("total minutes = %d, want %d", sum.TotalMinutes, wantTotal)
	}
}

func TestGetPlanSummaryUnknownPlan(t *testing.T) {
	svc := newTestService(newFakeRepo())
	_, _, err := svc.GetPlanSummary(context.Background(), uuid.New())
	if !errors.Is(err, ErrPlanNotFound) {
		t.Fatalf("got %v, want ErrPlanNotFound", err)
	}
}
