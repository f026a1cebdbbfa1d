package service

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/health-records-service/internal/domain"
	"github.com/spec-kit/health-records-service/internal/storage"
	apperrors "github.com/spec-kit/health-records-service/pkg/util/errorutil"
)

// fakeFileStore records saves and removals without touching disk.
type fakeFileStore struct {
	mu        sync.Mutex
	nextID    int
	stored    map[string]string
	removed   []string
	removeErr error
}

func newFakeFileStore() *fakeFileStore {
	return &fakeFileStore{stored: make(map[string]string)}
}

func (s *fakeFileStore) Save(header *multipart.FileHeader) (storage.StoredFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	path := fmt.Sprintf("stored-%d", s.nextID)
	s.stored[path] = header.Filename
	return storage.StoredFile{
		Path:        path,
		Name:        header.Filename,
		ContentType: "application/pdf",
		Size:        header.Size,
	}, nil
}

func (s *fakeFileStore) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.removeErr != nil {
		return s.removeErr
	}
	delete(s.stored, path)
	s.removed = append(s.removed, path)
	return nil
}

func (s *fakeFileStore) Resolve(path string) string {
	return "/var/uploads/" + path
}

type labReportFixture struct {
	users   *fakeUserRepo
	records *fakeMedicalRecordRepo
	reports *fakeLabReportRepo
	files   *fakeFileStore
	svc     *LabReportService

	patient *domain.User
	doctor  *domain.User
	admin   *domain.User
}

func newLabReportFixture(t *testing.T) *labReportFixture {
	t.Helper()
	users := newFakeUserRepo()
	records := newFakeMedicalRecordRepo()
	reports := newFakeLabReportRepo()
	files := newFakeFileStore()

	return &labReportFixture{
		users:   users,
		records: records,
		reports: reports,
		files:   files,
		svc:     NewLabReportService(reports, records, users, files, zap.NewNop()),
		patient: users.add(domain.User{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Role: domain.RolePatient}),
		doctor:  users.add(domain.User{FirstName: "Greg", LastName: "House", Email: "house@example.com", Role: domain.RoleDoctor}),
		admin:   users.add(domain.User{FirstName: "Ada", LastName: "Min", Email: "admin@example.com", Role: domain.RoleAdmin}),
	}
}

func (f *labReportFixture) reportInput() LabReportInput {
	return LabReportInput{
		PatientID: f.patient.ID,
		TestName:  "Complete Blood Count",
		TestDate:  time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC),
	}
}

func (f *labReportFixture) existingReport(t *testing.T) *domain.LabReport {
	t.Helper()
	report, err := f.svc.Create(context.Background(), f.doctor, f.reportInput())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return report
}

func (f *labReportFixture) upload(name string) *multipart.FileHeader {
	return &multipart.FileHeader{Filename: name, Size: 512}
}

func TestLabReportCreateDefaultsReportDate(t *testing.T) {
	f := newLabReportFixture(t)

	before := time.Now()
	report := f.existingReport(t)
	if report.DoctorID != f.doctor.ID {
		t.Fatalf("doctor id = %d; want %d", report.DoctorID, f.doctor.ID)
	}
	if report.ReportDate.Before(before) {
		t.Fatalf("report date %v not defaulted to now", report.ReportDate)
	}
	if report.HasFile() {
		t.Fatal("new report should have no file")
	}

	input := f.reportInput()
	input.ReportDate = time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC)
	report, err := f.svc.Create(context.Background(), f.doctor, input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !report.ReportDate.Equal(input.ReportDate) {
		t.Fatalf("report date = %v; want %v", report.ReportDate, input.ReportDate)
	}
}

func TestLabReportCreateValidation(t *testing.T) {
	f := newLabReportFixture(t)
	ctx := context.Background()

	if _, err := f.svc.Create(ctx, f.patient, f.reportInput()); !apperrors.IsCode(err, "ACCESS_DENIED") {
		t.Fatalf("patient create: %v", err)
	}

	input := f.reportInput()
	input.TestName = "  "
	if _, err := f.svc.Create(ctx, f.doctor, input); !apperrors.IsCode(err, "INVALID_ARGUMENT") {
		t.Fatalf("blank test name: %v", err)
	}

	input = f.reportInput()
	input.TestName = strings.Repeat("x", 101)
	if _, err := f.svc.Create(ctx, f.doctor, input); !apperrors.IsCode(err, "INVALID_ARGUMENT") {
		t.Fatalf("oversized test name: %v", err)
	}

	input = f.reportInput()
	input.TestDate = time.Time{}
	if _, err := f.svc.Create(ctx, f.doctor, input); !apperrors.IsCode(err, "INVALID_ARGUMENT") {
		t.Fatalf("zero test date: %v", err)
	}

	input = f.reportInput()
	input.PatientID = 9999
	if _, err := f.svc.Create(ctx, f.doctor, input); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("unknown patient: %v", err)
	}

	input = f.reportInput()
	input.PatientID = f.admin.ID
	if _, err := f.svc.Create(ctx, f.doctor, input); !apperrors.IsCode(err, "INVALID_ARGUMENT") {
		t.Fatalf("patient id naming an admin: %v", err)
	}

	// admins must name the authoring doctor
	if _, err := f.svc.Create(ctx, f.admin, f.reportInput()); !apperrors.IsCode(err, "INVALID_ARGUMENT") {
		t.Fatalf("admin create without doctor: %v", err)
	}

	unknownRecord := int64(9999)
	input = f.reportInput()
	input.MedicalRecordID = &unknownRecord
	if _, err := f.svc.Create(ctx, f.doctor, input); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("unknown medical record: %v", err)
	}
}

func TestLabReportAttachedToRecord(t *testing.T) {
	f := newLabReportFixture(t)
	ctx := context.Background()

	record := &domain.MedicalRecord{PatientID: f.patient.ID, DoctorID: f.doctor.ID, Diagnosis: "Anemia workup"}
	if err := f.records.Create(ctx, record); err != nil {
		t.Fatalf("record Create: %v", err)
	}

	input := f.reportInput()
	input.MedicalRecordID = &record.ID
	report, err := f.svc.Create(ctx, f.doctor, input)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if report.MedicalRecordID == nil || *report.MedicalRecordID != record.ID {
		t.Fatalf("medical record id = %v; want %d", report.MedicalRecordID, record.ID)
	}
}

func TestLabReportOwnership(t *testing.T) {
	f := newLabReportFixture(t)
	ctx := context.Background()
	report := f.existingReport(t)

	if _, err := f.svc.Get(ctx, f.patient, report.ID); err != nil {
		t.Fatalf("patient get: %v", err)
	}
	stranger := f.users.add(domain.User{FirstName: "Sam", LastName: "Smith", Email: "sam@example.com", Role: domain.RolePatient})
	if _, err := f.svc.Get(ctx, stranger, report.ID); !apperrors.IsCode(err, "ACCESS_DENIED") {
		t.Fatalf("stranger get: %v", err)
	}
	if _, err := f.svc.Get(ctx, f.admin, 9999); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("missing id: %v", err)
	}
}

func TestLabReportListScoping(t *testing.T) {
	f := newLabReportFixture(t)
	ctx := context.Background()
	f.existingReport(t)

	if _, err := f.svc.List(ctx, f.doctor); !apperrors.IsCode(err, "ACCESS_DENIED") {
		t.Fatalf("doctor List: %v", err)
	}
	all, err := f.svc.List(ctx, f.admin)
	if err != nil {
		t.Fatalf("admin List: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("admin reports = %d; want 1", len(all))
	}

	mine, err := f.svc.ListMine(ctx, f.doctor)
	if err != nil {
		t.Fatalf("doctor ListMine: %v", err)
	}
	if len(mine) != 1 {
		t.Fatalf("doctor reports = %d; want 1", len(mine))
	}

	if _, err := f.svc.ListByPatient(ctx, f.patient, f.patient.ID); !apperrors.IsCode(err, "ACCESS_DENIED") {
		t.Fatalf("patient ListByPatient: %v", err)
	}
	if _, err := f.svc.ListByPatient(ctx, f.doctor, 9999); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("unknown patient: %v", err)
	}
}

func TestLabReportUpdatePartial(t *testing.T) {
	f := newLabReportFixture(t)
	ctx := context.Background()
	report := f.existingReport(t)

	updated, err := f.svc.Update(ctx, f.doctor, report.ID, LabReportInput{
		TestResults: "WBC within normal range",
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if updated.TestResults != "WBC within normal range" {
		t.Fatalf("test results = %q", updated.TestResults)
	}
	if updated.TestName != report.TestName {
		t.Fatalf("test name changed: %q", updated.TestName)
	}
	if !updated.TestDate.Equal(report.TestDate) {
		t.Fatalf("test date changed: %v", updated.TestDate)
	}

	if _, err := f.svc.Update(ctx, f.patient, report.ID, LabReportInput{TestResults: "x"}); !apperrors.IsCode(err, "ACCESS_DENIED") {
		t.Fatalf("patient update: %v", err)
	}
}

func TestLabReportAttachFileReplacesOld(t *testing.T) {
	f := newLabReportFixture(t)
	ctx := context.Background()
	report := f.existingReport(t)

	attached, err := f.svc.AttachFile(ctx, f.doctor, report.ID, f.upload("cbc.pdf"))
	if err != nil {
		t.Fatalf("AttachFile: %v", err)
	}
	if !attached.HasFile() || attached.FileName != "cbc.pdf" {
		t.Fatalf("attached = %+v", attached)
	}
	firstPath := attached.FilePath

	replaced, err := f.svc.AttachFile(ctx, f.doctor, report.ID, f.upload("cbc-v2.pdf"))
	if err != nil {
		t.Fatalf("second AttachFile: %v", err)
	}
	if replaced.FilePath == firstPath {
		t.Fatal("file path not replaced")
	}
	if len(f.files.removed) != 1 || f.files.removed[0] != firstPath {
		t.Fatalf("removed = %v; want [%s]", f.files.removed, firstPath)
	}

	if _, err := f.svc.AttachFile(ctx, f.patient, report.ID, f.upload("x.pdf")); !apperrors.IsCode(err, "ACCESS_DENIED") {
		t.Fatalf("patient attach: %v", err)
	}
}

func TestLabReportDownload(t *testing.T) {
	f := newLabReportFixture(t)
	ctx := context.Background()
	report := f.existingReport(t)

	if _, _, err := f.svc.Download(ctx, f.patient, report.ID); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("download without file: %v", err)
	}

	if _, err := f.svc.AttachFile(ctx, f.doctor, report.ID, f.upload("cbc.pdf")); err != nil {
		t.Fatalf("AttachFile: %v", err)
	}
	downloaded, path, err := f.svc.Download(ctx, f.patient, report.ID)
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if downloaded.FileName != "cbc.pdf" {
		t.Fatalf("file name = %q", downloaded.FileName)
	}
	if !strings.HasPrefix(path, "/var/uploads/") {
		t.Fatalf("path = %q", path)
	}

	stranger := f.users.add(domain.User{FirstName: "Sam", LastName: "Smith", Email: "sam@example.com", Role: domain.RolePatient})
	if _, _, err := f.svc.Download(ctx, stranger, report.ID); !apperrors.IsCode(err, "ACCESS_DENIED") {
		t.Fatalf("stranger download: %v", err)
	}
}

func TestLabReportDeleteProceedsWhenFileRemovalFails(t *testing.T) {
	f := newLabReportFixture(t)
	ctx := context.Background()
	report := f.existingReport(t)

	if _, err := f.svc.AttachFile(ctx, f.doctor, report.ID, f.upload("cbc.pdf")); err != nil {
		t.Fatalf("AttachFile: %v", err)
	}
	f.files.removeErr = errors.New("disk unplugged")

	if err := f.svc.Delete(ctx, f.doctor, report.ID); err != nil {
		t.Fatalf("Delete with failing file removal: %v", err)
	}
	if _, err := f.svc.Get(ctx, f.admin, report.ID); !apperrors.IsCode(err, "NOT_FOUND") {
		t.Fatalf("report survived delete: %v", err)
	}
}

func TestLabReportDeleteRemovesFile(t *testing.T) {
	f := newLabReportFixture(t)
	ctx := context.Background()
	report := f.existingReport(t)

	attached, err := f.svc.AttachFile(ctx, f.doctor, report.ID, f.upload("cbc.pdf"))
	if err != nil {
		t.Fatalf("AttachFile: %v", err)
	}

	if err := f.svc.Delete(ctx, f.patient, report.ID); !apperrors.IsCode(err, "ACCESS_DENIED") {
		t.Fatalf("patient delete: %v", err)
	}
	if err := f.svc.Delete(ctx, f.doctor, report.ID); err != nil {
		t.Fatalf("doctor delete: %v", err)
	}
	if len(f.files.removed) != 1 || f.files.removed[0] != attached.FilePath {
		t.Fatalf("removed = %v; want [%s]", f.files.removed, attached.FilePath)
	}
}
