package service

import (
	"context"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/health-records-service/internal/domain"
)

// In-memory repository fakes. They mirror the store's observable behavior:
// pgx.ErrNoRows on misses and a genuinely conditional TransitionStatus so
// concurrency tests exercise the same single-winner guarantee.

type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int64
	users  map[int64]*domain.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[int64]*domain.User)}
}

func (f *fakeUserRepo) add(user domain.User) *domain.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = &user
	return &user
}

func (f *fakeUserRepo) Create(_ context.Context, user *domain.User) error {
	created := f.add(*user)
	user.ID = created.ID
	return nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *domain.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.users, id)
	return nil
}

func (f *fakeUserRepo) GetByID(_ context.Context, id int64) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user, ok := f.users[id]; ok {
		clone := *user
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if user.Email == email {
			clone := *user
			return &clone, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeUserRepo) List(_ context.Context) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.User, 0, len(f.users))
	for _, user := range f.users {
		out = append(out, *user)
	}
	return out, nil
}

func (f *fakeUserRepo) ListByRole(_ context.Context, role domain.Role) ([]domain.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.User
	for _, user := range f.users {
		if user.Role == role {
			out = append(out, *user)
		}
	}
	return out, nil
}

type fakeAppointmentRepo struct {
	mu           sync.Mutex
	nextID       int64
	appointments map[int64]*domain.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{appointments: make(map[int64]*domain.Appointment)}
}

func (f *fakeAppointmentRepo) Create(_ context.Context, appointment *domain.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	appointment.ID = f.nextID
	appointment.CreatedAt = time.Now()
	appointment.UpdatedAt = appointment.CreatedAt
	clone := *appointment
	f.appointments[appointment.ID] = &clone
	return nil
}

func (f *fakeAppointmentRepo) Update(_ context.Context, appointment *domain.Appointment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	existing, ok := f.appointments[appointment.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	clone := *appointment
	// the store's UPDATE does not touch status
	clone.Status = existing.Status
	clone.UpdatedAt = time.Now()
	f.appointments[appointment.ID] = &clone
	return nil
}

func (f *fakeAppointmentRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.appointments[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.appointments, id)
	return nil
}

func (f *fakeAppointmentRepo) GetByID(_ context.Context, id int64) (*domain.Appointment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if appointment, ok := f.appointments[id]; ok {
		clone := *appointment
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeAppointmentRepo) List(_ context.Context) ([]domain.Appointment, error) {
	return f.filter(func(*domain.Appointment) bool { return true }), nil
}

func (f *fakeAppointmentRepo) ListByPatient(_ context.Context, patientID int64) ([]domain.Appointment, error) {
	return f.filter(func(a *domain.Appointment) bool { return a.PatientID == patientID }), nil
}

func (f *fakeAppointmentRepo) ListByDoctor(_ context.Context, doctorID int64) ([]domain.Appointment, error) {
	return f.filter(func(a *domain.Appointment) bool { return a.DoctorID == doctorID }), nil
}

func (f *fakeAppointmentRepo) ListByDateRange(_ context.Context, start, end time.Time) ([]domain.Appointment, error) {
	return f.filter(func(a *domain.Appointment) bool { return inRange(a, start, end) }), nil
}

func (f *fakeAppointmentRepo) ListByPatientAndDateRange(_ context.Context, patientID int64, start, end time.Time) ([]domain.Appointment, error) {
	return f.filter(func(a *domain.Appointment) bool {
		return a.PatientID == patientID && inRange(a, start, end)
	}), nil
}

func (f *fakeAppointmentRepo) ListByDoctorAndDateRange(_ context.Context, doctorID int64, start, end time.Time) ([]domain.Appointment, error) {
	return f.filter(func(a *domain.Appointment) bool {
		return a.DoctorID == doctorID && inRange(a, start, end)
	}), nil
}

func (f *fakeAppointmentRepo) TransitionStatus(_ context.Context, id int64, from, to domain.AppointmentStatus, notes *string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	appointment, ok := f.appointments[id]
	if !ok || appointment.Status != from {
		return false, nil
	}
	appointment.Status = to
	if notes != nil {
		appointment.Notes = *notes
	}
	appointment.UpdatedAt = time.Now()
	return true, nil
}

func (f *fakeAppointmentRepo) filter(keep func(*domain.Appointment) bool) []domain.Appointment {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Appointment
	for _, appointment := range f.appointments {
		if keep(appointment) {
			out = append(out, *appointment)
		}
	}
	return out
}

func inRange(a *domain.Appointment, start, end time.Time) bool {
	return !a.StartsAt.Before(start) && !a.StartsAt.After(end)
}

type fakeMedicalRecordRepo struct {
	mu      sync.Mutex
	nextID  int64
	records map[int64]*domain.MedicalRecord
}

func newFakeMedicalRecordRepo() *fakeMedicalRecordRepo {
	return &fakeMedicalRecordRepo{records: make(map[int64]*domain.MedicalRecord)}
}

func (f *fakeMedicalRecordRepo) Create(_ context.Context, record *domain.MedicalRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	record.ID = f.nextID
	record.CreatedAt = time.Now()
	record.UpdatedAt = record.CreatedAt
	for i := range record.Prescriptions {
		record.Prescriptions[i].ID = int64(i + 1)
		record.Prescriptions[i].MedicalRecordID = record.ID
	}
	clone := cloneRecord(record)
	f.records[record.ID] = clone
	return nil
}

func (f *fakeMedicalRecordRepo) Update(_ context.Context, record *domain.MedicalRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[record.ID]; !ok {
		return pgx.ErrNoRows
	}
	for i := range record.Prescriptions {
		record.Prescriptions[i].ID = int64(i + 1)
		record.Prescriptions[i].MedicalRecordID = record.ID
	}
	clone := cloneRecord(record)
	clone.UpdatedAt = time.Now()
	f.records[record.ID] = clone
	return nil
}

func (f *fakeMedicalRecordRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.records, id)
	return nil
}

func (f *fakeMedicalRecordRepo) GetByID(_ context.Context, id int64) (*domain.MedicalRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if record, ok := f.records[id]; ok {
		return cloneRecord(record), nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeMedicalRecordRepo) List(_ context.Context) ([]domain.MedicalRecord, error) {
	return f.filter(func(*domain.MedicalRecord) bool { return true }), nil
}

func (f *fakeMedicalRecordRepo) ListByPatient(_ context.Context, patientID int64) ([]domain.MedicalRecord, error) {
	return f.filter(func(r *domain.MedicalRecord) bool { return r.PatientID == patientID }), nil
}

func (f *fakeMedicalRecordRepo) ListByDoctor(_ context.Context, doctorID int64) ([]domain.MedicalRecord, error) {
	return f.filter(func(r *domain.MedicalRecord) bool { return r.DoctorID == doctorID }), nil
}

func (f *fakeMedicalRecordRepo) filter(keep func(*domain.MedicalRecord) bool) []domain.MedicalRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.MedicalRecord
	for _, record := range f.records {
		if keep(record) {
			out = append(out, *cloneRecord(record))
		}
	}
	return out
}

func cloneRecord(record *domain.MedicalRecord) *domain.MedicalRecord {
	clone := *record
	clone.Prescriptions = append([]domain.Prescription(nil), record.Prescriptions...)
	return &clone
}

type fakeLabReportRepo struct {
	mu      sync.Mutex
	nextID  int64
	reports map[int64]*domain.LabReport
}

func newFakeLabReportRepo() *fakeLabReportRepo {
	return &fakeLabReportRepo{reports: make(map[int64]*domain.LabReport)}
}

func (f *fakeLabReportRepo) Create(_ context.Context, report *domain.LabReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	report.ID = f.nextID
	report.CreatedAt = time.Now()
	report.UpdatedAt = report.CreatedAt
	clone := *report
	f.reports[report.ID] = &clone
	return nil
}

func (f *fakeLabReportRepo) Update(_ context.Context, report *domain.LabReport) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reports[report.ID]; !ok {
		return pgx.ErrNoRows
	}
	clone := *report
	clone.UpdatedAt = time.Now()
	f.reports[report.ID] = &clone
	return nil
}

func (f *fakeLabReportRepo) Delete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reports[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(f.reports, id)
	return nil
}

func (f *fakeLabReportRepo) GetByID(_ context.Context, id int64) (*domain.LabReport, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if report, ok := f.reports[id]; ok {
		clone := *report
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeLabReportRepo) List(_ context.Context) ([]domain.LabReport, error) {
	return f.filter(func(*domain.LabReport) bool { return true }), nil
}

func (f *fakeLabReportRepo) ListByPatient(_ context.Context, patientID int64) ([]domain.LabReport, error) {
	return f.filter(func(r *domain.LabReport) bool { return r.PatientID == patientID }), nil
}

func (f *fakeLabReportRepo) ListByDoctor(_ context.Context, doctorID int64) ([]domain.LabReport, error) {
	return f.filter(func(r *domain.LabReport) bool { return r.DoctorID == doctorID }), nil
}

func (f *fakeLabReportRepo) ListByMedicalRecord(_ context.Context, recordID int64) ([]domain.LabReport, error) {
	return f.filter(func(r *domain.LabReport) bool {
		return r.MedicalRecordID != nil && *r.MedicalRecordID == recordID
	}), nil
}

func (f *fakeLabReportRepo) filter(keep func(*domain.LabReport) bool) []domain.LabReport {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.LabReport
	for _, report := range f.reports {
		if keep(report) {
			out = append(out, *report)
		}
	}
	return out
}

type fakeNotificationRepo struct {
	mu               sync.Mutex
	nextID           int64
	notifications    map[int64]*domain.Notification
	countUnreadCalls int
}

func newFakeNotificationRepo() *fakeNotificationRepo {
	return &fakeNotificationRepo{notifications: make(map[int64]*domain.Notification)}
}

func (f *fakeNotificationRepo) Create(_ context.Context, notification *domain.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	notification.ID = f.nextID
	notification.CreatedAt = time.Now()
	clone := *notification
	f.notifications[notification.ID] = &clone
	return nil
}

func (f *fakeNotificationRepo) GetByID(_ context.Context, id int64) (*domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if notification, ok := f.notifications[id]; ok {
		clone := *notification
		return &clone, nil
	}
	return nil, pgx.ErrNoRows
}

func (f *fakeNotificationRepo) ListByUser(_ context.Context, userID int64) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Notification
	for _, notification := range f.notifications {
		if notification.UserID == userID {
			out = append(out, *notification)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) ListUnreadByUser(_ context.Context, userID int64) ([]domain.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Notification
	for _, notification := range f.notifications {
		if notification.UserID == userID && !notification.Read {
			out = append(out, *notification)
		}
	}
	return out, nil
}

func (f *fakeNotificationRepo) CountUnread(_ context.Context, userID int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.countUnreadCalls++
	var count int64
	for _, notification := range f.notifications {
		if notification.UserID == userID && !notification.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationRepo) MarkRead(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	notification, ok := f.notifications[id]
	if !ok {
		return pgx.ErrNoRows
	}
	notification.Read = true
	return nil
}

func (f *fakeNotificationRepo) MarkAllRead(_ context.Context, userID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, notification := range f.notifications {
		if notification.UserID == userID {
			notification.Read = true
		}
	}
	return nil
}

func (f *fakeNotificationRepo) DeleteByAppointment(_ context.Context, appointmentID int64) ([]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var userIDs []int64
	for id, notification := range f.notifications {
		if notification.AppointmentID != nil && *notification.AppointmentID == appointmentID {
			userIDs = append(userIDs, notification.UserID)
			delete(f.notifications, id)
		}
	}
	return userIDs, nil
}
