package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/health-records-service/internal/domain"
)

// MedicalRecordRepository defines persistence access for medical records and
// their prescription lines. Prescriptions are written with the record they
// belong to; the listing queries return records without them, GetByID loads
// the full aggregate.
type MedicalRecordRepository interface {
	Create(ctx context.Context, record *domain.MedicalRecord) error
	// Update rewrites the record's fields and replaces its prescription
	// lines with the ones on the given aggregate.
	Update(ctx context.Context, record *domain.MedicalRecord) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*domain.MedicalRecord, error)
	List(ctx context.Context) ([]domain.MedicalRecord, error)
	ListByPatient(ctx context.Context, patientID int64) ([]domain.MedicalRecord, error)
	ListByDoctor(ctx context.Context, doctorID int64) ([]domain.MedicalRecord, error)
}

type medicalRecordRepository struct {
	pool *pgxpool.Pool
}

// NewMedicalRecordRepository returns a Postgres-backed implementation.
func NewMedicalRecordRepository(pool *pgxpool.Pool) MedicalRecordRepository {
	return &medicalRecordRepository{pool: pool}
}

const medicalRecordColumns = `id, patient_id, doctor_id, diagnosis, treatment, notes, created_at, updated_at`

func scanMedicalRecord(row pgx.Row, r *domain.MedicalRecord) error {
	return row.Scan(
		&r.ID,
		&r.PatientID,
		&r.DoctorID,
		&r.Diagnosis,
		&r.Treatment,
		&r.Notes,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
}

func (r *medicalRecordRepository) Create(ctx context.Context, record *domain.MedicalRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        INSERT INTO medical_records (patient_id, doctor_id, diagnosis, treatment, notes)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	if err := tx.QueryRow(ctx, query,
		record.PatientID,
		record.DoctorID,
		record.Diagnosis,
		record.Treatment,
		record.Notes,
	).Scan(&record.ID, &record.CreatedAt, &record.UpdatedAt); err != nil {
		return err
	}

	if err := insertPrescriptions(ctx, tx, record); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (r *medicalRecordRepository) Update(ctx context.Context, record *domain.MedicalRecord) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	const query = `
        UPDATE medical_records SET patient_id=$1, doctor_id=$2, diagnosis=$3, treatment=$4, notes=$5, updated_at=NOW()
        WHERE id=$6`

	cmd, err := tx.Exec(ctx, query,
		record.PatientID,
		record.DoctorID,
		record.Diagnosis,
		record.Treatment,
		record.Notes,
		record.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}

	if _, err := tx.Exec(ctx, `DELETE FROM prescriptions WHERE medical_record_id=$1`, record.ID); err != nil {
		return err
	}
	if err := insertPrescriptions(ctx, tx, record); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func insertPrescriptions(ctx context.Context, tx pgx.Tx, record *domain.MedicalRecord) error {
	const query = `
        INSERT INTO prescriptions (medical_record_id, medication_name, dosage, instructions, start_date, end_date)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	for i := range record.Prescriptions {
		p := &record.Prescriptions[i]
		p.MedicalRecordID = record.ID
		if err := tx.QueryRow(ctx, query,
			record.ID,
			p.MedicationName,
			p.Dosage,
			p.Instructions,
			p.StartDate,
			p.EndDate,
		).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return err
		}
	}
	return nil
}

func (r *medicalRecordRepository) Delete(ctx context.Context, id int64) error {
	cmd, err := r.pool.Exec(ctx, `DELETE FROM medical_records WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *medicalRecordRepository) GetByID(ctx context.Context, id int64) (*domain.MedicalRecord, error) {
	var record domain.MedicalRecord
	if err := scanMedicalRecord(r.pool.QueryRow(ctx, `SELECT `+medicalRecordColumns+` FROM medical_records WHERE id=$1`, id), &record); err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, `
        SELECT id, medical_record_id, medication_name, dosage, instructions, start_date, end_date, created_at, updated_at
        FROM prescriptions WHERE medical_record_id=$1 ORDER BY id`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	record.Prescriptions = []domain.Prescription{}
	for rows.Next() {
		var p domain.Prescription
		if err := rows.Scan(&p.ID, &p.MedicalRecordID, &p.MedicationName, &p.Dosage,
			&p.Instructions, &p.StartDate, &p.EndDate, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		record.Prescriptions = append(record.Prescriptions, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return &record, nil
}

func (r *medicalRecordRepository) List(ctx context.Context) ([]domain.MedicalRecord, error) {
	return r.query(ctx, `SELECT `+medicalRecordColumns+` FROM medical_records ORDER BY created_at DESC`)
}

func (r *medicalRecordRepository) ListByPatient(ctx context.Context, patientID int64) ([]domain.MedicalRecord, error) {
	return r.query(ctx, `SELECT `+medicalRecordColumns+` FROM medical_records WHERE patient_id=$1 ORDER BY created_at DESC`, patientID)
}

func (r *medicalRecordRepository) ListByDoctor(ctx context.Context, doctorID int64) ([]domain.MedicalRecord, error) {
	return r.query(ctx, `SELECT `+medicalRecordColumns+` FROM medical_records WHERE doctor_id=$1 ORDER BY created_at DESC`, doctorID)
}

func (r *medicalRecordRepository) query(ctx context.Context, sql string, args ...any) ([]domain.MedicalRecord, error) {
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []domain.MedicalRecord{}
	for rows.Next() {
		var record domain.MedicalRecord
		if err := scanMedicalRecord(rows, &record); err != nil {
			return nil, err
		}
		records = append(records, record)
	}
	return records, rows.Err()
}
