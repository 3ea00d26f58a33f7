package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanStaff(row pgx.Row) (*StaffMember, error) {
	var m StaffMember
	err := row.Scan(&m.ID, &m.Name, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStaffNotFound
		}
		return nil, err
	}
	return &m, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	err := row.Scan(&p.ID, &p.Name, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}
	return &p, nil
}

func scanPlan(row pgx.Row) (*SchedulePlan, error) {
	var p SchedulePlan
	var confirmedAt *time.Time
	err := row.Scan(&p.ID, &p.WeekStartDate, &p.Status, &p.CreatedAt, &confirmedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPlanNotFound
		}
		return nil, err
	}
	p.WeekStartDate = Date(p.WeekStartDate)
	p.ConfirmedAt = confirmedAt
	return &p, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	var freq *string
	err := row.Scan(
		&a.ID,
		&a.PatientID,
		&a.StaffID,
		&a.ScheduledAt,
		&a.DurationMinutes,
		&a.Type,
		&a.Status,
		&a.Notes,
		&a.Location,
		&a.PlanID,
		&a.IsGenerated,
		&a.IsLocked,
		&a.RecurringGroupID,
		&freq,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if freq != nil {
		f := RecurringFrequency(*freq)
		a.RecurringFrequency = &f
	}
	return &a, nil
}

const appointmentColumns = `
	id, patient_id, staff_id, scheduled_at, duration_minutes, type, status,
	notes, location, plan_id, is_generated, is_locked,
	recurring_group_id, recurring_frequency, created_at, updated_at`

// Interface methods

func (r *PgRepository) ListStaff(ctx context.Context) ([]StaffMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, name, role, created_at, updated_at
		FROM staff_members
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []StaffMember
	for rows.Next() {
		m, err := scanStaff(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *m)
	}
	return result, rows.Err()
}

func (r *PgRepository) GetStaffByID(ctx context.Context, id uuid.UUID) (*StaffMember, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, role, created_at, updated_at
		FROM staff_members
		WHERE id = $1
	`, id)
	return scanStaff(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) ListAvailabilityByStaff(ctx context.Context, staffID uuid.UUID) ([]AvailabilityWindow, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, staff_id, day_of_week, start_minutes, end_minutes, is_available
		FROM availability_windows
		WHERE staff_id = $1
		ORDER BY day_of_week, start_minutes
	`, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []AvailabilityWindow
	for rows.Next() {
		var w AvailabilityWindow
		var start, end int
		if err := rows.Scan(&w.ID, &w.StaffID, &w.DayOfWeek, &start, &end, &w.IsAvailable); err != nil {
			return nil, err
		}
		w.StartTime = TimeOfDay(start)
		w.EndTime = TimeOfDay(end)
		result = append(result, w)
	}
	return result, rows.Err()
}

func (r *PgRepository) IsStaffOnTimeOff(ctx context.Context, staffID uuid.UUID, date time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM time_off_periods
			WHERE staff_id = $1
			  AND approved
			  AND start_date <= $2
			  AND end_date >= $2
		)
	`, staffID, Date(date)).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PgRepository) ListActiveRequirements(ctx context.Context) ([]VisitRequirement, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, patient_id, priority, visits_per_week, duration_minutes, visit_type,
		       preferred_start_minutes, preferred_end_minutes, location, notes, is_active
		FROM visit_requirements
		WHERE is_active
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []VisitRequirement
	for rows.Next() {
		var req VisitRequirement
		var prefStart, prefEnd *int
		err := rows.Scan(
			&req.ID, &req.PatientID, &req.Priority, &req.VisitsPerWeek,
			&req.DurationMinutes, &req.VisitType,
			&prefStart, &prefEnd, &req.Location, &req.Notes, &req.IsActive,
		)
		if err != nil {
			return nil, err
		}
		if prefStart != nil {
			t := TimeOfDay(*prefStart)
			req.PreferredTimeStart = &t
		}
		if prefEnd != nil {
			t := TimeOfDay(*prefEnd)
			req.PreferredTimeEnd = &t
		}
		result = append(result, req)
	}
	return result, rows.Err()
}

func (r *PgRepository) listAssignments(ctx context.Context, column string, id uuid.UUID) ([]CareAssignment, error) {
	rows, err := r.pool.Query(ctx, fmt.Sprintf(`
		SELECT id, patient_id, staff_id, is_primary
		FROM care_assignments
		WHERE %s = $1
		ORDER BY id
	`, column), id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []CareAssignment
	for rows.Next() {
		var a CareAssignment
		if err := rows.Scan(&a.ID, &a.PatientID, &a.StaffID, &a.IsPrimary); err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

func (r *PgRepository) ListAssignmentsByPatient(ctx context.Context, patientID uuid.UUID) ([]CareAssignment, error) {
	return r.listAssignments(ctx, "patient_id", patientID)
}

func (r *PgRepository) ListAssignmentsByStaff(ctx context.Context, staffID uuid.UUID) ([]CareAssignment, error) {
	return r.listAssignments(ctx, "staff_id", staffID)
}

func (r *PgRepository) GetPatientPreference(ctx context.Context, patientID uuid.UUID) (*PatientPreference, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, patient_id, preferred_day_of_week, preferred_start_minutes,
		       preferred_end_minutes, avoid_mornings, avoid_evenings,
		       preferred_location, notes
		FROM patient_preferences
		WHERE patient_id = $1
	`, patientID)

	var p PatientPreference
	var prefStart, prefEnd *int
	err := row.Scan(
		&p.ID, &p.PatientID, &p.PreferredDayOfWeek, &prefStart, &prefEnd,
		&p.AvoidMornings, &p.AvoidEvenings, &p.PreferredLocation, &p.Notes,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if prefStart != nil {
		t := TimeOfDay(*prefStart)
		p.PreferredTimeStart = &t
	}
	if prefEnd != nil {
		t := TimeOfDay(*prefEnd)
		p.PreferredTimeEnd = &t
	}
	return &p, nil
}

func (r *PgRepository) GetPlanByID(ctx context.Context, id uuid.UUID) (*SchedulePlan, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, week_start_date, status, created_at, confirmed_at
		FROM schedule_plans
		WHERE id = $1
	`, id)
	return scanPlan(row)
}

func (r *PgRepository) GetPlanByWeekAndStatus(ctx context.Context, weekStart time.Time, status PlanStatus) (*SchedulePlan, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, week_start_date, status, created_at, confirmed_at
		FROM schedule_plans
		WHERE week_start_date = $1 AND status = $2
	`, Date(weekStart), status)
	return scanPlan(row)
}

func (r *PgRepository) ListAppointmentsByPlan(ctx context.Context, planID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE plan_id = $1
		ORDER BY scheduled_at
	`, planID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointmentRows(rows)
}

func (r *PgRepository) ListAppointmentsByStaffBetween(ctx context.Context, staffID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE staff_id = $1
		  AND scheduled_at < $3
		  AND scheduled_at + (duration_minutes * interval '1 minute') > $2
		ORDER BY scheduled_at
	`, staffID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointmentRows(rows)
}

func (r *PgRepository) ListAppointmentsByPatientAndStaff(ctx context.Context, patientID, staffID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE patient_id = $1 AND staff_id = $2
		ORDER BY scheduled_at
	`, patientID, staffID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAppointmentRows(rows)
}

func collectAppointmentRows(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}
	return result, rows.Err()
}

// SavePlan replaces any existing DRAFT plan for the week and inserts the new
// plan plus its appointments in one transaction.
func (r *PgRepository) SavePlan(ctx context.Context, plan *SchedulePlan, appointments []Appointment) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		DELETE FROM appointments
		WHERE plan_id IN (
			SELECT id FROM schedule_plans
			WHERE week_start_date = $1 AND status = 'DRAFT'
		)
	`, plan.WeekStartDate)
	if err != nil {
		return fmt.Errorf("delete draft appointments: %w", err)
	}
	_, err = tx.Exec(ctx, `
		DELETE FROM schedule_plans
		WHERE week_start_date = $1 AND status = 'DRAFT'
	`, plan.WeekStartDate)
	if err != nil {
		return fmt.Errorf("delete draft plan: %w", err)
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO schedule_plans (id, week_start_date, status, created_at, confirmed_at)
		VALUES ($1, $2, $3, $4, $5)
	`, plan.ID, plan.WeekStartDate, plan.Status, plan.CreatedAt, plan.ConfirmedAt)
	if err != nil {
		return fmt.Errorf("insert plan: %w", err)
	}

	for _, a := range appointments {
		var freq *string
		if a.RecurringFrequency != nil {
			f := string(*a.RecurringFrequency)
			freq = &f
		}
		_, err := tx.Exec(ctx, `
			INSERT INTO appointments (`+appointmentColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		`,
			a.ID, a.PatientID, a.StaffID, a.ScheduledAt, a.DurationMinutes,
			a.Type, a.Status, a.Notes, a.Location, a.PlanID,
			a.IsGenerated, a.IsLocked, a.RecurringGroupID, freq,
			a.CreatedAt, a.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert appointment: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// ConfirmPlan locks the plan's appointments and flips the plan status in one
// transaction. The status guard keeps a concurrent double-confirm from
// racing past the service-level check.
func (r *PgRepository) ConfirmPlan(ctx context.Context, planID uuid.UUID, at time.Time) (*SchedulePlan, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		UPDATE appointments
		SET status = 'CONFIRMED',
		    is_locked = true,
		    updated_at = $2
		WHERE plan_id = $1
	`, planID, at)
	if err != nil {
		return nil, fmt.Errorf("lock appointments: %w", err)
	}

	row := tx.QueryRow(ctx, `
		UPDATE schedule_plans
		SET status = 'CONFIRMED',
		    confirmed_at = $2
		WHERE id = $1
		  AND status = 'DRAFT'
		RETURNING id, week_start_date, status, created_at, confirmed_at
	`, planID, at)
	plan, err := scanPlan(row)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return plan, nil
}
