package domain

import "time"

// MedicalRecord is the clinical aggregate for one encounter: a diagnosis
// written by a doctor for a patient, with optional treatment and notes.
// Prescription lines belong to exactly one record and live and die with it.
type MedicalRecord struct {
	ID            int64
	PatientID     int64
	DoctorID      int64
	Diagnosis     string
	Treatment     string
	Notes         string
	Prescriptions []Prescription
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Prescription is one medication line on a medical record.
type Prescription struct {
	ID              int64
	MedicalRecordID int64
	MedicationName  string
	Dosage          string
	Instructions    string
	StartDate       *time.Time
	EndDate         *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// LabReport is a test result for a patient. It may be attached to a medical
// record and may carry one uploaded result file; both are optional.
type LabReport struct {
	ID              int64
	MedicalRecordID *int64
	PatientID       int64
	DoctorID        int64
	TestName        string
	TestResults     string
	FilePath        string
	FileName        string
	FileType        string
	FileSize        int64
	TestDate        time.Time
	ReportDate      time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasFile reports whether a result file is stored for this report.
func (r *LabReport) HasFile() bool {
	return r.FilePath != ""
}
