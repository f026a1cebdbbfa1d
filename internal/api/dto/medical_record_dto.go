package dto

import (
	"time"

	"github.com/spec-kit/health-records-service/internal/domain"
)

// PrescriptionPayload is one medication line in a medical record payload.
type PrescriptionPayload struct {
	MedicationName string     `json:"medicationName"`
	Dosage         string     `json:"dosage,omitempty"`
	Instructions   string     `json:"instructions,omitempty"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
}

// MedicalRecordRequest is the create/update payload. DoctorID is ignored for
// doctor callers, who always author under their own id.
type MedicalRecordRequest struct {
	PatientID     int64                 `json:"patientId"`
	DoctorID      int64                 `json:"doctorId,omitempty"`
	Diagnosis     string                `json:"diagnosis"`
	Treatment     string                `json:"treatment,omitempty"`
	Notes         string                `json:"notes,omitempty"`
	Prescriptions []PrescriptionPayload `json:"prescriptions,omitempty"`
}

// PrescriptionResponse is the wire shape for a prescription line.
type PrescriptionResponse struct {
	ID             int64      `json:"id"`
	MedicationName string     `json:"medicationName"`
	Dosage         string     `json:"dosage,omitempty"`
	Instructions   string     `json:"instructions,omitempty"`
	StartDate      *time.Time `json:"startDate,omitempty"`
	EndDate        *time.Time `json:"endDate,omitempty"`
}

// MedicalRecordResponse is the wire shape for a medical record. Prescriptions
// are only populated on single-record reads.
type MedicalRecordResponse struct {
	ID            int64                  `json:"id"`
	PatientID     int64                  `json:"patientId"`
	DoctorID      int64                  `json:"doctorId"`
	Diagnosis     string                 `json:"diagnosis"`
	Treatment     string                 `json:"treatment,omitempty"`
	Notes         string                 `json:"notes,omitempty"`
	Prescriptions []PrescriptionResponse `json:"prescriptions,omitempty"`
	CreatedAt     time.Time              `json:"createdAt"`
	UpdatedAt     time.Time              `json:"updatedAt"`
}

// NewMedicalRecordResponse maps a domain record to its wire shape.
func NewMedicalRecordResponse(record *domain.MedicalRecord) MedicalRecordResponse {
	prescriptions := make([]PrescriptionResponse, 0, len(record.Prescriptions))
	for _, p := range record.Prescriptions {
		prescriptions = append(prescriptions, PrescriptionResponse{
			ID:             p.ID,
			MedicationName: p.MedicationName,
			Dosage:         p.Dosage,
			Instructions:   p.Instructions,
			StartDate:      p.StartDate,
			EndDate:        p.EndDate,
		})
	}
	return MedicalRecordResponse{
		ID:            record.ID,
		PatientID:     record.PatientID,
		DoctorID:      record.DoctorID,
		Diagnosis:     record.Diagnosis,
		Treatment:     record.Treatment,
		Notes:         record.Notes,
		Prescriptions: prescriptions,
		CreatedAt:     record.CreatedAt,
		UpdatedAt:     record.UpdatedAt,
	}
}

// NewMedicalRecordResponses maps a slice of domain records.
func NewMedicalRecordResponses(records []domain.MedicalRecord) []MedicalRecordResponse {
	out := make([]MedicalRecordResponse, 0, len(records))
	for i := range records {
		out = append(out, NewMedicalRecordResponse(&records[i]))
	}
	return out
}
