package dto

import (
	"time"

	"github.com/spec-kit/health-records-service/internal/domain"
)

// LabReportRequest is the create/update payload. DoctorID is ignored for
// doctor callers; files travel through the dedicated upload endpoint.
type LabReportRequest struct {
	MedicalRecordID *int64    `json:"medicalRecordId,omitempty"`
	PatientID       int64     `json:"patientId"`
	DoctorID        int64     `json:"doctorId,omitempty"`
	TestName        string    `json:"testName"`
	TestResults     string    `json:"testResults,omitempty"`
	TestDate        time.Time `json:"testDate"`
	ReportDate      time.Time `json:"reportDate,omitempty"`
}

// LabReportResponse is the wire shape for a lab report. The stored file is
// exposed through its metadata only; bytes come from the download endpoint.
type LabReportResponse struct {
	ID              int64     `json:"id"`
	MedicalRecordID *int64    `json:"medicalRecordId,omitempty"`
	PatientID       int64     `json:"patientId"`
	DoctorID        int64     `json:"doctorId"`
	TestName        string    `json:"testName"`
	TestResults     string    `json:"testResults,omitempty"`
	HasFile         bool      `json:"hasFile"`
	FileName        string    `json:"fileName,omitempty"`
	FileType        string    `json:"fileType,omitempty"`
	FileSize        int64     `json:"fileSize,omitempty"`
	TestDate        time.Time `json:"testDate"`
	ReportDate      time.Time `json:"reportDate"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// NewLabReportResponse maps a domain lab report to its wire shape.
func NewLabReportResponse(report *domain.LabReport) LabReportResponse {
	return LabReportResponse{
		ID:              report.ID,
		MedicalRecordID: report.MedicalRecordID,
		PatientID:       report.PatientID,
		DoctorID:        report.DoctorID,
		TestName:        report.TestName,
		TestResults:     report.TestResults,
		HasFile:         report.HasFile(),
		FileName:        report.FileName,
		FileType:        report.FileType,
		FileSize:        report.FileSize,
		TestDate:        report.TestDate,
		ReportDate:      report.ReportDate,
		CreatedAt:       report.CreatedAt,
		UpdatedAt:       report.UpdatedAt,
	}
}

// NewLabReportResponses maps a slice of domain lab reports.
func NewLabReportResponses(reports []domain.LabReport) []LabReportResponse {
	out := make([]LabReportResponse, 0, len(reports))
	for i := range reports {
		out = append(out, NewLabReportResponse(&reports[i]))
	}
	return out
}
