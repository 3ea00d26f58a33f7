package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/deepencare/homecare-scheduler/internal/db"
	"github.com/deepencare/homecare-scheduler/internal/scheduling"
)

const schema = `
CREATE TABLE IF NOT EXISTS staff_members (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	role TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS patients (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS availability_windows (
	id UUID PRIMARY KEY,
	staff_id UUID NOT NULL REFERENCES staff_members(id),
	day_of_week INT NOT NULL,
	start_minutes INT NOT NULL,
	end_minutes INT NOT NULL,
	is_available BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS time_off_periods (
	id UUID PRIMARY KEY,
	staff_id UUID NOT NULL REFERENCES staff_members(id),
	start_date DATE NOT NULL,
	end_date DATE NOT NULL,
	approved BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS visit_requirements (
	id UUID PRIMARY KEY,
	patient_id UUID NOT NULL REFERENCES patients(id),
	priority TEXT NOT NULL,
	visits_per_week INT NOT NULL,
	duration_minutes INT NOT NULL,
	visit_type TEXT NOT NULL,
	preferred_start_minutes INT,
	preferred_end_minutes INT,
	location TEXT,
	notes TEXT,
	is_active BOOLEAN NOT NULL DEFAULT true
);

CREATE TABLE IF NOT EXISTS care_assignments (
	id UUID PRIMARY KEY,
	patient_id UUID NOT NULL REFERENCES patients(id),
	staff_id UUID NOT NULL REFERENCES staff_members(id),
	is_primary BOOLEAN NOT NULL DEFAULT false
);

CREATE TABLE IF NOT EXISTS patient_preferences (
	id UUID PRIMARY KEY,
	patient_id UUID NOT NULL UNIQUE REFERENCES patients(id),
	preferred_day_of_week INT,
	preferred_start_minutes INT,
	preferred_end_minutes INT,
	avoid_mornings BOOLEAN NOT NULL DEFAULT false,
	avoid_evenings BOOLEAN NOT NULL DEFAULT false,
	preferred_location TEXT,
	notes TEXT
);

CREATE TABLE IF NOT EXISTS schedule_plans (
	id UUID PRIMARY KEY,
	week_start_date DATE NOT NULL,
	status TEXT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	confirmed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS appointments (
	id UUID PRIMARY KEY,
	patient_id UUID NOT NULL,
	staff_id UUID NOT NULL,
	scheduled_at TIMESTAMPTZ NOT NULL,
	duration_minutes INT NOT NULL,
	type TEXT NOT NULL,
	status TEXT NOT NULL,
	notes TEXT,
	location TEXT,
	plan_id UUID REFERENCES schedule_plans(id),
	is_generated BOOLEAN NOT NULL DEFAULT false,
	is_locked BOOLEAN NOT NULL DEFAULT false,
	recurring_group_id TEXT,
	recurring_frequency TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_appointments_staff_time ON appointments (staff_id, scheduled_at);
CREATE INDEX IF NOT EXISTS idx_appointments_plan ON appointments (plan_id);
CREATE INDEX IF NOT EXISTS idx_plans_week ON schedule_plans (week_start_date, status);
`

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if _, err := pool.Exec(context.Background(), schema); err != nil {
		log.Fatalf("create schema: %v", err)
	}

	staffIDs, err := seedStaff(context.Background(), pool, 12)
	if err != nil {
		log.Fatalf("seed staff: %v", err)
	}
	patientIDs, err := seedPatients(context.Background(), pool, 80)
	if err != nil {
		log.Fatalf("seed patients: %v", err)
	}
	if err := seedAvailability(context.Background(), pool, staffIDs); err != nil {
		log.Fatalf("seed availability: %v", err)
	}
	if err := seedTimeOff(context.Background(), pool, staffIDs); err != nil {
		log.Fatalf("seed time off: %v", err)
	}
	if err := seedCarePlans(context.Background(), pool, staffIDs, patientIDs); err != nil {
		log.Fatalf("seed care plans: %v", err)
	}
	if err := seedVisitHistory(context.Background(), pool, staffIDs, patientIDs); err != nil {
		log.Fatalf("seed visit history: %v", err)
	}

	log.Println("seed complete")
}

func seedStaff(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d staff members", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		role := scheduling.RoleNurse
		if i%4 == 0 {
			role = scheduling.RoleDoctor
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO staff_members (id, name, role, created_at, updated_at)
			VALUES ($1, $2, $3, now(), now())
		`, id, gofakeit.Name(), role)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	log.Println("staff seeded")
	return ids, nil
}

func seedPatients(ctx context.Context, pool *pgxpool.Pool, count int) ([]uuid.UUID, error) {
	log.Printf("seeding %d patients", count)

	tx, err := pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	ids := make([]uuid.UUID, 0, count)
	for i := 0; i < count; i++ {
		id := uuid.New()
		_, err := tx.Exec(ctx, `
			INSERT INTO patients (id, name, created_at, updated_at)
			VALUES ($1, $2, now(), now())
		`, id, gofakeit.Name())
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	log.Println("patients seeded")
	return ids, nil
}

// seedAvailability gives every staff member standard weekday windows and a
// third of them weekend windows, matching the office hours the planner uses.
func seedAvailability(ctx context.Context, pool *pgxpool.Pool, staffIDs []uuid.UUID) error {
	log.Println("seeding availability windows")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	insert := func(staffID uuid.UUID, day, start, end int) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO availability_windows (id, staff_id, day_of_week, start_minutes, end_minutes, is_available)
			VALUES ($1, $2, $3, $4, $5, true)
		`, uuid.New(), staffID, day, start, end)
		return err
	}

	for i, staffID := range staffIDs {
		for day := 1; day <= 5; day++ { // Monday..Friday
			if err := insert(staffID, day, 8*60, 16*60); err != nil {
				return err
			}
		}
		if i%3 == 0 {
			for _, day := range []int{0, 6} { // Sunday, Saturday
				if err := insert(staffID, day, 10*60, 15*60); err != nil {
					return err
				}
			}
		}
	}

	return tx.Commit(ctx)
}

func seedTimeOff(ctx context.Context, pool *pgxpool.Pool, staffIDs []uuid.UUID) error {
	log.Println("seeding time off periods")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// A couple of staff get an approved week off starting in two weeks.
	for i, staffID := range staffIDs {
		if i%6 != 0 {
			continue
		}
		start := time.Now().UTC().AddDate(0, 0, 14)
		_, err := tx.Exec(ctx, `
			INSERT INTO time_off_periods (id, staff_id, start_date, end_date, approved)
			VALUES ($1, $2, $3, $4, true)
		`, uuid.New(), staffID, start, start.AddDate(0, 0, 6))
		if err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// seedCarePlans creates a visit requirement, a primary care assignment, and
// (for some patients) a preference record.
func seedCarePlans(ctx context.Context, pool *pgxpool.Pool, staffIDs, patientIDs []uuid.UUID) error {
	log.Println("seeding requirements, assignments, preferences")

	priorities := []scheduling.VisitPriority{
		scheduling.PriorityUrgent,
		scheduling.PriorityHigh,
		scheduling.PriorityHigh,
		scheduling.PriorityRoutine,
		scheduling.PriorityRoutine,
		scheduling.PriorityRoutine,
	}
	durations := []int{30, 45, 60, 90}

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for i, patientID := range patientIDs {
		priority := priorities[gofakeit.Number(0, len(priorities)-1)]
		duration := durations[gofakeit.Number(0, len(durations)-1)]
		visits := gofakeit.Number(1, 3)

		var prefStart, prefEnd *int
		if gofakeit.Bool() {
			s := gofakeit.Number(8, 13) * 60
			e := s + 120
			prefStart, prefEnd = &s, &e
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO visit_requirements (
				id, patient_id, priority, visits_per_week, duration_minutes, visit_type,
				preferred_start_minutes, preferred_end_minutes, location, notes, is_active
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, true)
		`, uuid.New(), patientID, priority, visits, duration, scheduling.TypeHomeVisit,
			prefStart, prefEnd, gofakeit.Address().Street, gofakeit.Sentence(6))
		if err != nil {
			return err
		}

		primary := staffIDs[i%len(staffIDs)]
		_, err = tx.Exec(ctx, `
			INSERT INTO care_assignments (id, patient_id, staff_id, is_primary)
			VALUES ($1, $2, $3, true)
		`, uuid.New(), patientID, primary)
		if err != nil {
			return err
		}
		if gofakeit.Bool() {
			secondary := staffIDs[(i+1)%len(staffIDs)]
			_, err = tx.Exec(ctx, `
				INSERT INTO care_assignments (id, patient_id, staff_id, is_primary)
				VALUES ($1, $2, $3, false)
			`, uuid.New(), patientID, secondary)
			if err != nil {
				return err
			}
		}

		if i%4 == 0 {
			day := gofakeit.Number(1, 5)
			_, err = tx.Exec(ctx, `
				INSERT INTO patient_preferences (
					id, patient_id, preferred_day_of_week, preferred_start_minutes,
					preferred_end_minutes, avoid_mornings, avoid_evenings, preferred_location, notes
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			`, uuid.New(), patientID, day, 9*60, 12*60,
				gofakeit.Bool(), gofakeit.Bool(), nil, nil)
			if err != nil {
				return err
			}
		}
	}

	return tx.Commit(ctx)
}

// seedVisitHistory backfills completed visits over the past eight weeks so
// the suggestion engine has cadence data to infer from.
func seedVisitHistory(ctx context.Context, pool *pgxpool.Pool, staffIDs, patientIDs []uuid.UUID) error {
	log.Println("seeding visit history")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	now := time.Now().UTC()
	for i, patientID := range patientIDs {
		if i%2 != 0 {
			continue
		}
		staffID := staffIDs[i%len(staffIDs)]
		intervalDays := []int{7, 14, 28}[gofakeit.Number(0, 2)]
		visitAt := now.AddDate(0, 0, -56)
		for visitAt.Before(now) {
			at := time.Date(visitAt.Year(), visitAt.Month(), visitAt.Day(),
				gofakeit.Number(9, 14), 0, 0, 0, time.UTC)
			_, err := tx.Exec(ctx, `
				INSERT INTO appointments (
					id, patient_id, staff_id, scheduled_at, duration_minutes, type, status,
					notes, location, plan_id, is_generated, is_locked,
					recurring_group_id, recurring_frequency, created_at, updated_at
				) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL, false, false, NULL, NULL, now(), now())
			`, uuid.New(), patientID, staffID, at, 45,
				scheduling.TypeHomeVisit, scheduling.StatusCompleted,
				nil, gofakeit.Address().Street)
			if err != nil {
				return err
			}
			visitAt = visitAt.AddDate(0, 0, intervalDays)
		}
	}

	return tx.Commit(ctx)
}
