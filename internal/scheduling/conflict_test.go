package scheduling

import (
	"context"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
)

// checkFixture is a staff member working 08:00-16:00 Monday through Friday
// and a patient with no preference record.
func checkFixture() (*fakeRepo, StaffMember, Patient) {
	repo := newFakeRepo()
	staff := addStaff(repo, "Alice")
	patient := addPatient(repo, "Carol")
	repo.availability[staff.ID] = weekdayWindows(staff.ID, NewTimeOfDay(8, 0), NewTimeOfDay(16, 0))
	return repo, staff, patient
}

// monday10 is a Monday 10:00 inside the plan horizon.
var monday10 = time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)

func TestCheckAvailabilityNoConflicts(t *testing.T) {
	repo, staff, patient := checkFixture()
	svc := newTestService(repo)

	result, err := svc.CheckAvailability(context.Background(), staff.ID, patient.ID, monday10, 60)
	requireNoErr(t, err)

	if !result.IsAvailable {
		t.Fatalf("expected available, conflicts: %v", result.Conflicts)
	}
	if len(result.Alternatives) != 0 {
		t.Errorf("no alternatives expected for a clean slot, got %d", len(result.Alternatives))
	}
}

func TestCheckAvailabilityAccumulatesConflicts(t *testing.T) {
	repo, staff, patient := checkFixture()

	// Overlapping booking and approved time off on the same date: both
	// conflicts must be reported, not just the first.
	addTimeOff(repo, staff.ID, Date(monday10), Date(monday10))
	repo.appointments = append(repo.appointments, Appointment{
		ID:              uuid.New(),
		PatientID:       uuid.New(),
		StaffID:         staff.ID,
		ScheduledAt:     monday10.Add(30 * time.Minute),
		DurationMinutes: 60,
		Type:            TypeHomeVisit,
		Status:          StatusScheduled,
	})

	svc := newTestService(repo)
	result, err := svc.CheckAvailability(context.Background(), staff.ID, patient.ID, monday10, 60)
	requireNoErr(t, err)

	if result.IsAvailable {
		t.Fatal("expected conflicts")
	}
	if len(result.Conflicts) < 2 {
		t.Fatalf("expected at least 2 accumulated conflicts, got %v", result.Conflicts)
	}
}

func TestCheckAvailabilityIsDeterministic(t *testing.T) {
	repo, staff, patient := checkFixture()
	addTimeOff(repo, staff.ID, Date(monday10), Date(monday10))
	repo.appointments = append(repo.appointments, Appointment{
		ID:              uuid.New(),
		PatientID:       uuid.New(),
		StaffID:         staff.ID,
		ScheduledAt:     monday10.Add(30 * time.Minute),
		DurationMinutes: 60,
		Type:            TypeHomeVisit,
		Status:          StatusScheduled,
	})

	svc := newTestService(repo)
	first, err := svc.CheckAvailability(context.Background(), staff.ID, patient.ID, monday10, 60)
	requireNoErr(t, err)
	second, err := svc.CheckAvailability(context.Background(), staff.ID, patient.ID, monday10, 60)
	requireNoErr(t, err)

	// Read-only check: identical input yields identical conflicts and
	// identically ordered alternatives.
	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ between calls:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestCheckAvailabilityConflictMessages(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(repo *fakeRepo, staff StaffMember, patient Patient)
		at      time.Time
		wantSub string
	}{
		{
			name:    "no window that day",
			setup:   func(repo *fakeRepo, staff StaffMember, patient Patient) {},
			at:      monday10.AddDate(0, 0, 5), // Saturday
			wantSub: "Staff not available on Saturday",
		},
		{
			name:    "outside working hours",
			setup:   func(repo *fakeRepo, staff StaffMember, patient Patient) {},
			at:      time.Date(2026, time.March, 9, 15, 30, 0, 0, time.UTC),
			wantSub: "Time outside staff working hours",
		},
		{
			name: "time off",
			setup: func(repo *fakeRepo, staff StaffMember, patient Patient) {
				addTimeOff(repo, staff.ID, Date(monday10), Date(monday10))
			},
			at:      monday10,
			wantSub: "Staff on time-off",
		},
		{
			name: "existing booking",
			setup: func(repo *fakeRepo, staff StaffMember, patient Patient) {
				repo.appointments = append(repo.appointments, Appointment{
					ID: uuid.New(), PatientID: uuid.New(), StaffID: staff.ID,
					ScheduledAt: monday10, DurationMinutes: 60,
					Type: TypeHomeVisit, Status: StatusScheduled,
				})
			},
			at:      monday10,
			wantSub: "Conflict with existing appointment at 2026-03-09 10:00",
		},
		{
			name: "cancelled booking ignored",
			setup: func(repo *fakeRepo, staff StaffMember, patient Patient) {
				repo.appointments = append(repo.appointments, Appointment{
					ID: uuid.New(), PatientID: uuid.New(), StaffID: staff.ID,
					ScheduledAt: monday10, DurationMinutes: 60,
					Type: TypeHomeVisit, Status: StatusCancelled,
				})
			},
			at:      monday10,
			wantSub: "",
		},
		{
			name: "avoids mornings",
			setup: func(repo *fakeRepo, staff StaffMember, patient Patient) {
				repo.preferences[patient.ID] = PatientPreference{
					ID: uuid.New(), PatientID: patient.ID, AvoidMornings: true,
				}
			},
			at:      monday10,
			wantSub: "Patient prefers to avoid mornings",
		},
		{
			name: "preferred day mismatch",
			setup: func(repo *fakeRepo, staff StaffMember, patient Patient) {
				day := int(time.Wednesday)
				repo.preferences[patient.ID] = PatientPreference{
					ID: uuid.New(), PatientID: patient.ID, PreferredDayOfWeek: &day,
				}
			},
			at:      monday10,
			wantSub: "Patient prefers Wednesday",
		},
		{
			name: "preferred time window mismatch",
			setup: func(repo *fakeRepo, staff StaffMember, patient Patient) {
				repo.preferences[patient.ID] = PatientPreference{
					ID: uuid.New(), PatientID: patient.ID,
					PreferredTimeStart: ptrTime(NewTimeOfDay(13, 0)),
					PreferredTimeEnd:   ptrTime(NewTimeOfDay(15, 0)),
				}
			},
			at:      monday10,
			wantSub: "Patient prefers time between 13:00 and 15:00",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			repo, staff, patient := checkFixture()
			tc.setup(repo, staff, patient)
			svc := newTestService(repo)

			result, err := svc.CheckAvailability(context.Background(), staff.ID, patient.ID, tc.at, 60)
			requireNoErr(t, err)

			if tc.wantSub == "" {
				if !result.IsAvailable {
					t.Fatalf("expected no conflicts, got %v", result.Conflicts)
				}
				return
			}
			found := false
			for _, c := range result.Conflicts {
				if strings.Contains(c, tc.wantSub) {
					found = true
				}
			}
			if !found {
				t.Errorf("conflicts %v missing %q", result.Conflicts, tc.wantSub)
			}
		})
	}
}

func TestCheckAvailabilityAlternatives(t *testing.T) {
	repo, staff, patient := checkFixture()

	// Requested slot overlaps an existing booking; day itself stays open.
	repo.appointments = append(repo.appointments, Appointment{
		ID: uuid.New(), PatientID: uuid.New(), StaffID: staff.ID,
		ScheduledAt: monday10, DurationMinutes: 60,
		Type: TypeHomeVisit, Status: StatusScheduled,
	})

	svc := newTestService(repo)
	result, err := svc.CheckAvailability(context.Background(), staff.ID, patient.ID, monday10, 60)
	requireNoErr(t, err)

	if result.IsAvailable {
		t.Fatal("expected conflict")
	}
	if len(result.Alternatives) == 0 {
		t.Fatal("expected alternatives")
	}
	if len(result.Alternatives) > 5 {
		t.Errorf("got %d alternatives, cap is 5", len(result.Alternatives))
	}

	for i, alt := range result.Alternatives {
		// Each alternative must itself be bookable.
		recheck, err := svc.CheckAvailability(context.Background(), staff.ID, patient.ID, alt.ScheduledAt, 60)
		requireNoErr(t, err)
		if !recheck.IsAvailable {
			t.Errorf("alternative %s is not independently bookable: %v", alt.ScheduledAt, recheck.Conflicts)
		}
		if alt.Confidence < 0 || alt.Confidence > 1 {
			t.Errorf("confidence %f out of [0,1]", alt.Confidence)
		}
		if i > 0 {
			prev := result.Alternatives[i-1]
			if !prev.IsPreferred && alt.IsPreferred {
				t.Error("preferred alternatives must sort before non-preferred")
			}
			if prev.IsPreferred == alt.IsPreferred && prev.Confidence < alt.Confidence {
				t.Error("alternatives must sort by descending confidence within a preference tier")
			}
		}
	}
}

func TestCheckAvailabilityScenarios(t *testing.T) {
	newRepo := func() (*fakeRepo, StaffMember, Patient) {
		repo := newFakeRepo()
		staff := addStaff(repo, "Alice")
		patient := addPatient(repo, "Carol")
		repo.availability[staff.ID] = weekdayWindows(staff.ID, NewTimeOfDay(9, 0), NewTimeOfDay(16, 0))
		return repo, staff, patient
	}

	t.Run("overlap offers slots outside the booking", func(t *testing.T) {
		repo, staff, patient := newRepo()
		booked := time.Date(2026, time.March, 9, 10, 0, 0, 0, time.UTC)
		repo.appointments = append(repo.appointments, Appointment{
			ID: uuid.New(), PatientID: uuid.New(), StaffID: staff.ID,
			ScheduledAt: booked, DurationMinutes: 30,
			Type: TypeHomeVisit, Status: StatusScheduled,
		})

		svc := newTestService(repo)
		result, err := svc.CheckAvailability(context.Background(), staff.ID, patient.ID,
			booked.Add(15*time.Minute), 30)
		requireNoErr(t, err)

		if result.IsAvailable {
			t.Fatal("10:15 request over a 10:00-10:30 booking must conflict")
		}
		if len(result.Alternatives) == 0 {
			t.Fatal("expected alternatives")
		}
		bookedEnd := booked.Add(30 * time.Minute)
		for _, alt := range result.Alternatives {
			altEnd := alt.ScheduledAt.Add(30 * time.Minute)
			if alt.ScheduledAt.Before(bookedEnd) && altEnd.After(booked) {
				t.Errorf("alternative %s overlaps the existing booking", alt.ScheduledAt)
			}
		}
	})

	t.Run("after hours offers slots inside working hours", func(t *testing.T) {
		repo, staff, patient := newRepo()
		svc := newTestService(repo)

		result, err := svc.CheckAvailability(context.Background(), staff.ID, patient.ID,
			time.Date(2026, time.March, 9, 18, 0, 0, 0, time.UTC), 30)
		requireNoErr(t, err)

		if result.IsAvailable {
			t.Fatal("18:00 request against 09:00-16:00 hours must conflict")
		}
		if len(result.Alternatives) == 0 {
			t.Fatal("expected alternatives")
		}
		for _, alt := range result.Alternatives {
			start := TimeOfDayFrom(alt.ScheduledAt)
			if start < NewTimeOfDay(9, 0) || start+30 > NewTimeOfDay(16, 0) {
				t.Errorf("alternative %s falls outside working hours", alt.ScheduledAt)
			}
		}
	})

	t.Run("morning avoider conflicts even when staff is free", func(t *testing.T) {
		repo, staff, patient := newRepo()
		repo.preferences[patient.ID] = PatientPreference{
			ID: uuid.New(), PatientID: patient.ID, AvoidMornings: true,
		}
		svc := newTestService(repo)

		result, err := svc.CheckAvailability(context.Background(), staff.ID, patient.ID,
			time.Date(2026, time.March, 9, 9, 0, 0, 0, time.UTC), 30)
		requireNoErr(t, err)

		if result.IsAvailable {
			t.Fatal("morning slot for a morning-avoiding patient must conflict")
		}
		found := false
		for _, c := range result.Conflicts {
			if strings.Contains(c, "avoid mornings") {
				found = true
			}
		}
		if !found {
			t.Errorf("conflicts %v missing the preference conflict", result.Conflicts)
		}
	})
}

func TestConfidenceScoring(t *testing.T) {
	pref := &PatientPreference{}

	tests := []struct {
		name      string
		candidate time.Time
		pref      *PatientPreference
		preferred bool
		want      float64
	}{
		{"base score at requested time", monday10, nil, false, 0.5},
		{"preference bonus", monday10, pref, true, 0.8},
		{"distance penalty", monday10.Add(5 * time.Hour), nil, false, 0.4},
		{"penalty capped", monday10.AddDate(0, 0, 7), nil, false, 0.3},
		{"bonus and cap together", monday10.AddDate(0, 0, 7), pref, true, 0.6},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := confidence(tc.candidate, monday10, tc.pref, tc.preferred)
			if diff := got - tc.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("confidence = %f, want %f", got, tc.want)
			}
		})
	}
}

func TestIsPreferredTime(t *testing.T) {
	day := int(time.Monday)
	pref := &PatientPreference{
		PreferredDayOfWeek: &day,
		PreferredTimeStart: ptrTime(NewTimeOfDay(10, 0)),
		PreferredTimeEnd:   ptrTime(NewTimeOfDay(12, 0)),
	}

	tests := []struct {
		name string
		at   time.Time
		pref *PatientPreference
		want bool
	}{
		{"nil preference", monday10, nil, false},
		{"inside window on preferred day", monday10, pref, true},
		{"wrong day", monday10.AddDate(0, 0, 1), pref, false},
		{"slot end leaves the window", time.Date(2026, time.March, 9, 11, 45, 0, 0, time.UTC), pref, false},
		{"morning avoided", monday10, &PatientPreference{AvoidMornings: true}, false},
		{"evening avoided", time.Date(2026, time.March, 9, 17, 30, 0, 0, time.UTC), &PatientPreference{AvoidEvenings: true}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := isPreferredTime(tc.at, tc.pref); got != tc.want {
				t.Errorf("isPreferredTime = %v, want %v", got, tc.want)
			}
		})
	}
}
