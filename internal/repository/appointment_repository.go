package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/health-records-service/internal/domain"
)

// AppointmentRepository defines persistence access for appointments.
type AppointmentRepository interface {
	Create(ctx context.Context, appointment *domain.Appointment) error
	// Update rewrites the appointment's mutable fields. It never touches
	// status; the state machine moves only through TransitionStatus.
	Update(ctx context.Context, appointment *domain.Appointment) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.Appointment, error)
	List(ctx context.Context) ([]domain.Appointment, error)
	ListByPatient(ctx context.Context, patientID int64) ([]domain.Appointment, error)
	ListByDoctor(ctx context.Context, doctorID int64) ([]domain.Appointment, error)
	ListByDateRange(ctx context.Context, start, end time.Time) ([]domain.Appointment, error)
	ListByPatientAndDateRange(ctx context.Context, patientID int64, start, end time.Time) ([]domain.Appointment, error)
	ListByDoctorAndDateRange(ctx context.Context, doctorID int64, start, end time.Time) ([]domain.Appointment, error)
	// TransitionStatus performs the compare-and-swap at the heart of the
	// state machine: the row moves from one status to another as a single
	// conditional write. It returns false when the appointment was not in
	// the expected status, so concurrent transitions on the same id yield
	// exactly one winner. A non-nil notes value is written with the status.
	TransitionStatus(ctx context.Context, id int64, from, to domain.AppointmentStatus, notes *string) (bool, error)
}

type appointmentRepository struct {
	pool *pgxpool.Pool
}

// NewAppointmentRepository returns a Postgres-backed implementation.
func NewAppointmentRepository(pool *pgxpool.Pool) AppointmentRepository {
	return &appointmentRepository{pool: pool}
}

const appointmentColumns = `id, patient_id, doctor_id, title, description, notes, status,
        starts_at, video_consultation, meeting_link, created_at, updated_at`

func scanAppointment(row pgx.Row, a *domain.Appointment) error {
	return row.Scan(
		&a.ID,
		&a.PatientID,
		&a.DoctorID,
		&a.Title,
		&a.Description,
		&a.Notes,
		&a.Status,
		&a.StartsAt,
		&a.VideoConsultation,
		&a.MeetingLink,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
}

func (r *appointmentRepository) Create(ctx context.Context, a *domain.Appointment) error {
	const query = `
        INSERT INTO appointments (patient_id, doctor_id, title, description, notes, status,
            starts_at, video_consultation, meeting_link)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		a.PatientID,
		a.DoctorID,
		a.Title,
		a.Description,
		a.Notes,
		a.Status,
		a.StartsAt,
		a.VideoConsultation,
		a.MeetingLink,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

func (r *appointmentRepository) Update(ctx context.Context, a *domain.Appointment) error {
	const query = `
        UPDATE appointments SET patient_id=$1, doctor_id=$2, title=$3, description=$4, notes=$5,
            starts_at=$6, video_consultation=$7, meeting_link=$8, updated_at=NOW()
        WHERE id=$9`

	cmd, err := r.pool.Exec(ctx, query,
		a.PatientID,
		a.DoctorID,
		a.Title,
		a.Description,
		a.Notes,
		a.StartsAt,
		a.VideoConsultation,
		a.MeetingLink,
		a.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM appointments WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *appointmentRepository) GetByID(ctx context.Context, id int64) (*domain.Appointment, error) {
	var a domain.Appointment
	if err := scanAppointment(r.pool.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id=$1`, id), &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *appointmentRepository) List(ctx context.Context) ([]domain.Appointment, error) {
	return r.query(ctx, `SELECT `+appointmentColumns+` FROM appointments ORDER BY starts_at`)
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID int64) ([]domain.Appointment, error) {
	return r.query(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE patient_id=$1 ORDER BY starts_at`, patientID)
}

func (r *appointmentRepository) ListByDoctor(ctx context.Context, doctorID int64) ([]domain.Appointment, error) {
	return r.query(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE doctor_id=$1 ORDER BY starts_at`, doctorID)
}

func (r *appointmentRepository) ListByDateRange(ctx context.Context, start, end time.Time) ([]domain.Appointment, error) {
	return r.query(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE starts_at BETWEEN $1 AND $2 ORDER BY starts_at`, start, end)
}

func (r *appointmentRepository) ListByPatientAndDateRange(ctx context.Context, patientID int64, start, end time.Time) ([]domain.Appointment, error) {
	return r.query(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE patient_id=$1 AND starts_at BETWEEN $2 AND $3 ORDER BY starts_at`, patientID, start, end)
}

func (r *appointmentRepository) ListByDoctorAndDateRange(ctx context.Context, doctorID int64, start, end time.Time) ([]domain.Appointment, error) {
	return r.query(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE doctor_id=$1 AND starts_at BETWEEN $2 AND $3 ORDER BY starts_at`, doctorID, start, end)
}

func (r *appointmentRepository) TransitionStatus(ctx context.Context, id int64, from, to domain.AppointmentStatus, notes *string) (bool, error) {
	const query = `
        UPDATE appointments SET status=$1, notes=COALESCE($2, notes), updated_at=NOW()
        WHERE id=$3 AND status=$4`

	cmd, err := r.pool.Exec(ctx, query, to, notes, id, from)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() > 0, nil
}

func (r *appointmentRepository) query(ctx context.Context, sql string, args ...any) ([]domain.Appointment, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	appointments := []domain.Appointment{}
	for rows.Next() {
		var a domain.Appointment
		if err := scanAppointment(rows, &a); err != nil {
			return nil, err
		}
		appointments = append(appointments, a)
	}
	return appointments, rows.Err()
}
