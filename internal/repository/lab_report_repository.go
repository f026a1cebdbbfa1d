package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/health-records-service/internal/domain"
)

// LabReportRepository defines persistence access for lab reports.
type LabReportRepository interface {
	Create(ctx context.Context, report *domain.LabReport) error
	Update(ctx context.Context, report *domain.LabReport) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.LabReport, error)
	List(ctx context.Context) ([]domain.LabReport, error)
	ListByPatient(ctx context.Context, patientID int64) ([]domain.LabReport, error)
	ListByDoctor(ctx context.Context, doctorID int64) ([]domain.LabReport, error)
	ListByMedicalRecord(ctx context.Context, recordID int64) ([]domain.LabReport, error)
}

type labReportRepository struct {
	pool *pgxpool.Pool
}

// NewLabReportRepository returns a Postgres-backed implementation.
func NewLabReportRepository(pool *pgxpool.Pool) LabReportRepository {
	return &labReportRepository{pool: pool}
}

const labReportColumns = `id, medical_record_id, patient_id, doctor_id, test_name, test_results,
        file_path, file_name, file_type, file_size, test_date, report_date, created_at, updated_at`

func scanLabReport(row pgx.Row, r *domain.LabReport) error {
	return row.Scan(
		&r.ID,
		&r.MedicalRecordID,
		&r.PatientID,
		&r.DoctorID,
		&r.TestName,
		&r.TestResults,
		&r.FilePath,
		&r.FileName,
		&r.FileType,
		&r.FileSize,
		&r.TestDate,
		&r.ReportDate,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
}

func (r *labReportRepository) Create(ctx context.Context, report *domain.LabReport) error {
	const query = `
        INSERT INTO lab_reports (medical_record_id, patient_id, doctor_id, test_name, test_results,
            file_path, file_name, file_type, file_size, test_date, report_date)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		report.MedicalRecordID,
		report.PatientID,
		report.DoctorID,
		report.TestName,
		report.TestResults,
		report.FilePath,
		report.FileName,
		report.FileType,
		report.FileSize,
		report.TestDate,
		report.ReportDate,
	).Scan(&report.ID, &report.CreatedAt, &report.UpdatedAt)
}

func (r *labReportRepository) Update(ctx context.Context, report *domain.LabReport) error {
	const query = `
        UPDATE lab_reports SET medical_record_id=$1, test_name=$2, test_results=$3,
            file_path=$4, file_name=$5, file_type=$6, file_size=$7,
            test_date=$8, report_date=$9, updated_at=NOW()
        WHERE id=$10`

	cmd, err := r.pool.Exec(ctx, query,
		report.MedicalRecordID,
		report.TestName,
		report.TestResults,
		report.FilePath,
		report.FileName,
		report.FileType,
		report.FileSize,
		report.TestDate,
		report.ReportDate,
		report.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *labReportRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM lab_reports WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *labReportRepository) GetByID(ctx context.Context, id int64) (*domain.LabReport, error) {
	var report domain.LabReport
	if err := scanLabReport(r.pool.QueryRow(ctx, `SELECT `+labReportColumns+` FROM lab_reports WHERE id=$1`, id), &report); err != nil {
		return nil, err
	}
	return &report, nil
}

func (r *labReportRepository) List(ctx context.Context) ([]domain.LabReport, error) {
	return r.query(ctx, `SELECT `+labReportColumns+` FROM lab_reports ORDER BY report_date DESC`)
}

func (r *labReportRepository) ListByPatient(ctx context.Context, patientID int64) ([]domain.LabReport, error) {
	return r.query(ctx, `SELECT `+labReportColumns+` FROM lab_reports WHERE patient_id=$1 ORDER BY report_date DESC`, patientID)
}

func (r *labReportRepository) ListByDoctor(ctx context.Context, doctorID int64) ([]domain.LabReport, error) {
	return r.query(ctx, `SELECT `+labReportColumns+` FROM lab_reports WHERE doctor_id=$1 ORDER BY report_date DESC`, doctorID)
}

func (r *labReportRepository) ListByMedicalRecord(ctx context.Context, recordID int64) ([]domain.LabReport, error) {
	return r.query(ctx, `SELECT `+labReportColumns+` FROM lab_reports WHERE medical_record_id=$1 ORDER BY report_date DESC`, recordID)
}

func (r *labReportRepository) query(ctx context.Context, sql string, args ...any) ([]domain.LabReport, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reports := []domain.LabReport{}
	for rows.Next() {
		var report domain.LabReport
		if err := scanLabReport(rows, &report); err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, rows.Err()
}
