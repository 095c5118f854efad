package schedule

import (
	"context"
	"encoding/json"
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

func scanDentist(row pgx.Row) (*Dentist, error) {
	var d Dentist
	var hoursJSON []byte

	err := row.Scan(
		&d.ID,
		&d.Name,
		&d.Active,
		&hoursJSON,
		&d.CreatedAt,
		&d.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrDentistNotFound
		}
		return nil, err
	}

	if len(hoursJSON) > 0 {
		if err := json.Unmarshal(hoursJSON, &d.Hours); err != nil {
			return nil, fmt.Errorf("decode working hours: %w", err)
		}
	}
	return &d, nil
}

func scanPatient(row pgx.Row) (*Patient, error) {
	var p Patient
	var email *string

	err := row.Scan(
		&p.ID,
		&p.Name,
		&email,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPatientNotFound
		}
		return nil, err
	}

	p.Email = email
	return &p, nil
}

func scanTreatment(row pgx.Row) (*Treatment, error) {
	var t Treatment

	err := row.Scan(
		&t.ID,
		&t.Name,
		&t.DurationMinutes,
		&t.Active,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTreatmentNotFound
		}
		return nil, err
	}

	return &t, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment

	err := row.Scan(
		&a.ID,
		&a.DentistID,
		&a.PatientID,
		&a.TreatmentID,
		&a.StartTime,
		&a.EndTime,
		&a.Status,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrAppointmentNotFound
		}
		return nil, err
	}

	return &a, nil
}

func scanBlockedPeriod(row pgx.Row) (*BlockedPeriod, error) {
	var b BlockedPeriod

	err := row.Scan(
		&b.ID,
		&b.DentistID,
		&b.StartTime,
		&b.EndTime,
		&b.Reason,
		&b.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockedPeriodNotFound
		}
		return nil, err
	}

	return &b, nil
}

// Interface methods

func (r *PgRepository) GetDentistByID(ctx context.Context, id uuid.UUID) (*Dentist, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, active, working_hours, created_at, updated_at
		FROM dentists
		WHERE id = $1
	`, id)
	return scanDentist(row)
}

func (r *PgRepository) GetPatientByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, email, created_at, updated_at
		FROM patients
		WHERE id = $1
	`, id)
	return scanPatient(row)
}

func (r *PgRepository) GetTreatmentByID(ctx context.Context, id uuid.UUID) (*Treatment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, name, duration_minutes, active, created_at, updated_at
		FROM treatments
		WHERE id = $1
	`, id)
	return scanTreatment(row)
}

func (r *PgRepository) ListOccupied(ctx context.Context, dentistID uuid.UUID, from, to time.Time) ([]Occupied, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, 'appointment' AS kind, start_time, end_time
		FROM appointments
		WHERE dentist_id = $1
		  AND status IN ('scheduled', 'completed')
		  AND start_time < $3 AND end_time > $2
		UNION ALL
		SELECT id, 'blocked_period' AS kind, start_time, end_time
		FROM blocked_periods
		WHERE dentist_id = $1
		  AND start_time < $3 AND end_time > $2
		ORDER BY start_time
	`, dentistID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []Occupied
	for rows.Next() {
		var occ Occupied
		var kind string
		if err := rows.Scan(&occ.ID, &kind, &occ.Start, &occ.End); err != nil {
			return nil, err
		}
		occ.Kind = OccupiedKind(kind)
		result = append(result, occ)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, dentist_id, patient_id, treatment_id, start_time, end_time, status, created_at, updated_at
		FROM appointments
		WHERE id = $1
	`, id)
	return scanAppointment(row)
}

func (r *PgRepository) CreateAppointment(ctx context.Context, dentistID, patientID, treatmentID uuid.UUID, start, end time.Time) (*Appointment, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO appointments (id, dentist_id, patient_id, treatment_id, start_time, end_time, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, 'scheduled', now(), now())
		RETURNING id, dentist_id, patient_id, treatment_id, start_time, end_time, status, created_at, updated_at
	`, id, dentistID, patientID, treatmentID, start, end)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentTime(ctx context.Context, id uuid.UUID, start, end time.Time) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET start_time = $2,
		    end_time = $3,
		    updated_at = now()
		WHERE id = $1
		  AND status = 'scheduled'
		RETURNING id, dentist_id, patient_id, treatment_id, start_time, end_time, status, created_at, updated_at
	`, id, start, end)

	return scanAppointment(row)
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $2,
		    updated_at = now()
		WHERE id = $1
		  AND status = $3
		RETURNING id, dentist_id, patient_id, treatment_id, start_time, end_time, status, created_at, updated_at
	`, id, to, from)

	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsInRange(ctx context.Context, dentistID uuid.UUID, from, to time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, dentist_id, patient_id, treatment_id, start_time, end_time, status, created_at, updated_at
		FROM appointments
		WHERE dentist_id = $1
		  AND start_time < $3 AND end_time > $2
		ORDER BY start_time
	`, dentistID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointments(ctx context.Context, f AppointmentFilter) ([]Appointment, error) {
	query := `
		SELECT id, dentist_id, patient_id, treatment_id, start_time, end_time, status, created_at, updated_at
		FROM appointments
		WHERE 1=1`
	args := []any{}

	if f.DentistID != nil {
		args = append(args, *f.DentistID)
		query += fmt.Sprintf(" AND dentist_id = $%d", len(args))
	}
	if f.PatientID != nil {
		args = append(args, *f.PatientID)
		query += fmt.Sprintf(" AND patient_id = $%d", len(args))
	}
	if f.Status != nil {
		args = append(args, *f.Status)
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}

	args = append(args, f.Limit)
	query += fmt.Sprintf(" ORDER BY start_time LIMIT $%d", len(args))
	args = append(args, f.Offset)
	query += fmt.Sprintf(" OFFSET $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PgRepository) GetBlockedPeriodByID(ctx context.Context, id uuid.UUID) (*BlockedPeriod, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT id, dentist_id, start_time, end_time, reason, created_at
		FROM blocked_periods
		WHERE id = $1
	`, id)
	return scanBlockedPeriod(row)
}

func (r *PgRepository) CreateBlockedPeriod(ctx context.Context, dentistID uuid.UUID, iv Interval, reason string) (*BlockedPeriod, error) {
	id := uuid.New()

	row := r.pool.QueryRow(ctx, `
		INSERT INTO blocked_periods (id, dentist_id, start_time, end_time, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, now())
		RETURNING id, dentist_id, start_time, end_time, reason, created_at
	`, id, dentistID, iv.Start, iv.End, reason)

	return scanBlockedPeriod(row)
}

func (r *PgRepository) DeleteBlockedPeriod(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM blocked_periods
		WHERE id = $1
	`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrBlockedPeriodNotFound
	}
	return nil
}

func (r *PgRepository) ListBlockedPeriodsInRange(ctx context.Context, dentistID uuid.UUID, from, to time.Time) ([]BlockedPeriod, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, dentist_id, start_time, end_time, reason, created_at
		FROM blocked_periods
		WHERE dentist_id = $1
		  AND start_time < $3 AND end_time > $2
		ORDER BY start_time
	`, dentistID, from, to)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []BlockedPeriod
	for rows.Next() {
		b, err := scanBlockedPeriod(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *b)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, subject_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.SubjectID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	var result []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *a)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
