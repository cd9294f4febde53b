package appointment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	counselorColumns   = `id, name, email, phone, site, calendar_access_token, calendar_refresh_token, calendar_token_expiry, created_at, updated_at`
	studentColumns     = `id, name, email, code, site, created_at, updated_at`
	appointmentColumns = `id, student_id, counselor_id, reason, appt_date, appt_time, modality, meet_link, calendar_event_id, status, prior_appointment_id, created_at, updated_at`
	outcomeColumns     = `appointment_id, referral_area, presumptive_diagnosis, contact_medium, recommendations, observations, follow_up_requested, created_at, updated_at`
)

const pgUniqueViolation = "23505"

type PgRepository struct {
	pool *pgxpool.Pool
}

func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

// Helpers

func scanCounselor(row pgx.Row) (*Counselor, error) {
	var c Counselor
	err := row.Scan(
		&c.ID,
		&c.Name,
		&c.Email,
		&c.Phone,
		&c.Site,
		&c.CalendarAccessToken,
		&c.CalendarRefreshToken,
		&c.CalendarTokenExpiry,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrCounselorNotFound
		}
		return nil, err
	}
	return &c, nil
}

func scanStudent(row pgx.Row) (*Student, error) {
	var s Student
	err := row.Scan(&s.ID, &s.Name, &s.Email, &s.Code, &s.Site, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrStudentNotFound
		}
		return nil, err
	}
	return &s, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID,
		&a.StudentID,
		&a.CounselorID,
		&a.Reason,
		&a.Date,
		&a.Time,
		&a.Modality,
		&a.MeetLink,
		&a.CalendarEventID,
		&a.Status,
		&a.PriorAppointmentID,
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

func scanOutcome(row pgx.Row) (*Outcome, error) {
	var o Outcome
	err := row.Scan(
		&o.AppointmentID,
		&o.ReferralArea,
		&o.PresumptiveDiagnosis,
		&o.ContactMedium,
		&o.Recommendations,
		&o.Observations,
		&o.FollowUpRequested,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOutcomeNotFound
		}
		return nil, err
	}
	return &o, nil
}

func collectAppointments(rows pgx.Rows) ([]Appointment, error) {
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// mapConstraintError turns unique violations on the appointment indexes into
// domain errors.
func mapConstraintError(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgUniqueViolation {
		return err
	}
	switch pgErr.ConstraintName {
	case "appointments_slot_pending_uniq":
		return ErrSlotTaken
	case "appointments_student_pending_uniq":
		return ErrPendingAppointmentExists
	case "appointments_prior_uniq":
		return ErrAlreadySuperseded
	}
	return err
}

// dateOnly drops the clock and location so pgx encodes the intended calendar day.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Interface methods

func (r *PgRepository) GetStudentByID(ctx context.Context, id uuid.UUID) (*Student, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+studentColumns+` FROM students WHERE id = $1`, id)
	return scanStudent(row)
}

func (r *PgRepository) GetCounselorByID(ctx context.Context, id uuid.UUID) (*Counselor, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+counselorColumns+` FROM counselors WHERE id = $1`, id)
	return scanCounselor(row)
}

func (r *PgRepository) listCounselors(ctx context.Context, query string, args ...any) ([]Counselor, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query counselors: %w", err)
	}
	defer rows.Close()

	var out []Counselor
	for rows.Next() {
		c, err := scanCounselor(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

// ListCounselors returns counselors at site, or all counselors when site is empty.
func (r *PgRepository) ListCounselors(ctx context.Context, site string) ([]Counselor, error) {
	return r.listCounselors(ctx, `
		SELECT `+counselorColumns+`
		FROM counselors
		WHERE $1 = '' OR lower(site) = lower($1)
		ORDER BY name
	`, site)
}

func (r *PgRepository) ListCounselorsWithRefreshToken(ctx context.Context) ([]Counselor, error) {
	return r.listCounselors(ctx, `
		SELECT `+counselorColumns+`
		FROM counselors
		WHERE calendar_refresh_token IS NOT NULL AND calendar_refresh_token <> ''
		ORDER BY id
	`)
}

func (r *PgRepository) UpdateCounselorCredential(ctx context.Context, id uuid.UUID, accessToken string, refreshToken *string, expiry *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE counselors
		SET calendar_access_token = $2,
		    calendar_refresh_token = COALESCE($3, calendar_refresh_token),
		    calendar_token_expiry = $4,
		    updated_at = now()
		WHERE id = $1
	`, id, accessToken, refreshToken, expiry)
	if err != nil {
		return fmt.Errorf("update counselor credential: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrCounselorNotFound
	}
	return nil
}

func (r *PgRepository) CreateScheduleBlock(ctx context.Context, block ScheduleBlock) (*ScheduleBlock, error) {
	var out ScheduleBlock
	var weekday int16
	err := r.pool.QueryRow(ctx, `
		INSERT INTO schedule_blocks (counselor_id, weekday, start_time, end_time)
		VALUES ($1, $2, $3, $4)
		RETURNING id, counselor_id, weekday, start_time, end_time, created_at
	`, block.CounselorID, int16(block.Weekday), block.StartTime, block.EndTime).Scan(
		&out.ID, &out.CounselorID, &weekday, &out.StartTime, &out.EndTime, &out.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert schedule block: %w", err)
	}
	out.Weekday = time.Weekday(weekday)
	return &out, nil
}

func (r *PgRepository) ListScheduleBlocks(ctx context.Context, counselorID uuid.UUID, weekday time.Weekday) ([]ScheduleBlock, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, counselor_id, weekday, start_time, end_time, created_at
		FROM schedule_blocks
		WHERE counselor_id = $1 AND weekday = $2
		ORDER BY start_time
	`, counselorID, int16(weekday))
	if err != nil {
		return nil, fmt.Errorf("query schedule blocks: %w", err)
	}
	defer rows.Close()

	var out []ScheduleBlock
	for rows.Next() {
		var b ScheduleBlock
		var wd int16
		if err := rows.Scan(&b.ID, &b.CounselorID, &wd, &b.StartTime, &b.EndTime, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan schedule block: %w", err)
		}
		b.Weekday = time.Weekday(wd)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *PgRepository) GetAppointmentByID(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

// GetSuccessor returns the live appointment that follows id. Cancelled
// successors are skipped.
func (r *PgRepository) GetSuccessor(ctx context.Context, id uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE prior_appointment_id = $1 AND status <> $2
	`, id, StatusCancelled)
	return scanAppointment(row)
}

func (r *PgRepository) GetPendingForStudent(ctx context.Context, studentID uuid.UUID) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE student_id = $1 AND status = $2
	`, studentID, StatusPending)
	return scanAppointment(row)
}

func (r *PgRepository) ListAppointmentsByStudent(ctx context.Context, studentID uuid.UUID) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE student_id = $1
		ORDER BY appt_date DESC, appt_time DESC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("query appointments by student: %w", err)
	}
	return collectAppointments(rows)
}

func (r *PgRepository) ListAppointmentsByCounselorDate(ctx context.Context, counselorID uuid.UUID, date time.Time) ([]Appointment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE counselor_id = $1 AND appt_date = $2
		ORDER BY appt_time
	`, counselorID, dateOnly(date))
	if err != nil {
		return nil, fmt.Errorf("query appointments by counselor: %w", err)
	}
	return collectAppointments(rows)
}

const insertAppointmentSQL = `
	INSERT INTO appointments (student_id, counselor_id, reason, appt_date, appt_time, modality, status, prior_appointment_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	RETURNING ` + appointmentColumns

func insertArgs(a NewAppointment) []any {
	return []any{a.StudentID, a.CounselorID, a.Reason, dateOnly(a.Date), a.Time, a.Modality, a.Status, a.PriorAppointmentID}
}

func (r *PgRepository) CreateAppointment(ctx context.Context, appt NewAppointment) (*Appointment, error) {
	created, err := scanAppointment(r.pool.QueryRow(ctx, insertAppointmentSQL, insertArgs(appt)...))
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return created, nil
}

func (r *PgRepository) SupersedeAppointment(ctx context.Context, prevID uuid.UUID, from AppointmentStatus, next NewAppointment) (*Appointment, error) {
	var created *Appointment
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx, `
			UPDATE appointments
			SET status = $3, updated_at = now()
			WHERE id = $1 AND status = $2
		`, prevID, from, StatusRescheduled)
		if err != nil {
			return fmt.Errorf("supersede appointment: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return ErrAppointmentNotFound
		}

		created, err = scanAppointment(tx.QueryRow(ctx, insertAppointmentSQL, insertArgs(next)...))
		if err != nil {
			return mapConstraintError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *PgRepository) UpdateAppointmentStatus(ctx context.Context, id uuid.UUID, from, to AppointmentStatus) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET status = $3, updated_at = now()
		WHERE id = $1 AND status = $2
		RETURNING `+appointmentColumns, id, from, to)

	updated, err := scanAppointment(row)
	if err != nil {
		return nil, mapConstraintError(err)
	}
	return updated, nil
}

func (r *PgRepository) SetCalendarEvent(ctx context.Context, id uuid.UUID, eventID, meetLink *string) (*Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE appointments
		SET calendar_event_id = $2, meet_link = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+appointmentColumns, id, eventID, meetLink)
	return scanAppointment(row)
}

func (r *PgRepository) RecordOutcome(ctx context.Context, id uuid.UUID, from, to AppointmentStatus, outcome Outcome) (*Appointment, *Outcome, error) {
	var appt *Appointment
	var saved *Outcome
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var err error
		appt, err = scanAppointment(tx.QueryRow(ctx, `
			UPDATE appointments
			SET status = $3, updated_at = now()
			WHERE id = $1 AND status = $2
			RETURNING `+appointmentColumns, id, from, to))
		if err != nil {
			return err
		}

		saved, err = scanOutcome(tx.QueryRow(ctx, `
			INSERT INTO appointment_outcomes (
				appointment_id, referral_area, presumptive_diagnosis, contact_medium,
				recommendations, observations, follow_up_requested
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (appointment_id) DO UPDATE SET
				referral_area = EXCLUDED.referral_area,
				presumptive_diagnosis = EXCLUDED.presumptive_diagnosis,
				contact_medium = EXCLUDED.contact_medium,
				recommendations = EXCLUDED.recommendations,
				observations = EXCLUDED.observations,
				follow_up_requested = EXCLUDED.follow_up_requested,
				updated_at = now()
			RETURNING `+outcomeColumns,
			id, outcome.ReferralArea, outcome.PresumptiveDiagnosis, outcome.ContactMedium,
			outcome.Recommendations, outcome.Observations, outcome.FollowUpRequested))
		if err != nil {
			return fmt.Errorf("upsert outcome: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return appt, saved, nil
}

func (r *PgRepository) GetOutcome(ctx context.Context, appointmentID uuid.UUID) (*Outcome, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+outcomeColumns+` FROM appointment_outcomes WHERE appointment_id = $1`, appointmentID)
	return scanOutcome(row)
}

func (r *PgRepository) InsertEvent(ctx context.Context, ev EventLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO event_logs (event_type, appointment_id, payload, created_at)
		VALUES ($1, $2, $3, COALESCE($4, now()))
	`, ev.EventType, ev.AppointmentID, ev.Payload, nullableTime(ev.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert event log: %w", err)
	}

	return nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
