package patient

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdoc/clinicdoc/internal/platform/apperror"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterPatient creates a patient from the ward registration form. The
// hospital number must be unique.
func (s *Service) RegisterPatient(ctx context.Context, p *Patient) error {
	p.HospitalNumber = strings.TrimSpace(p.HospitalNumber)
	if p.HospitalNumber == "" || p.FirstName == nil || *p.FirstName == "" || p.LastName == nil || *p.LastName == "" {
		return apperror.Validation("Hospital Number, First Name, and Last Name are required")
	}
	p.Status = StatusAdmit

	if err := s.repo.Create(ctx, p); err != nil {
		return apperror.FromStorage(err, "Patient not found", "Hospital Number already exists", "Failed to create patient")
	}
	return nil
}

// UpsertByHN creates the patient on first assessment submission, or
// overwrites the demographic fields when the HN is already registered.
func (s *Service) UpsertByHN(ctx context.Context, hn string, firstName, lastName *string, age *int, username string) error {
	p := &Patient{
		HospitalNumber: hn,
		FirstName:      firstName,
		LastName:       lastName,
		Age:            age,
		CreatedBy:      username,
	}
	if err := s.repo.Upsert(ctx, p); err != nil {
		return apperror.Persistence("เกิดข้อผิดพลาดในการบันทึกข้อมูล", err)
	}
	return nil
}

// TouchByHN updates only the demographic fields that were supplied. Used by
// the assessment edit path, which must not blank out fields the form left
// untouched.
func (s *Service) TouchByHN(ctx context.Context, hn string, firstName, lastName *string, age *int) error {
	p, err := s.repo.GetByHN(ctx, hn)
	if err != nil {
		return apperror.FromStorage(err, "ไม่พบข้อมูลผู้ป่วย", "", "เกิดข้อผิดพลาดในการอัพเดทข้อมูล")
	}
	if firstName != nil && *firstName != "" {
		p.FirstName = firstName
	}
	if lastName != nil && *lastName != "" {
		p.LastName = lastName
	}
	if age != nil && *age != 0 {
		p.Age = age
	}
	if err := s.repo.Update(ctx, p); err != nil {
		return apperror.Persistence("เกิดข้อผิดพลาดในการอัพเดทข้อมูล", err)
	}
	return nil
}

// ListPatients returns the ward list with each patient's current admission.
// status defaults to ADMIT; "ALL" lists everyone.
func (s *Service) ListPatients(ctx context.Context, search, status string) ([]*WithAdmissions, error) {
	if status == "" {
		status = StatusAdmit
	}
	patients, err := s.repo.List(ctx, ListFilter{Search: search, Status: status})
	if err != nil {
		return nil, apperror.Persistence("Failed to fetch patients", err)
	}
	if patients == nil {
		patients = []*WithAdmissions{}
	}
	return patients, nil
}

// GetPatientDetail returns the patient with their full admission history,
// progress notes included.
func (s *Service) GetPatientDetail(ctx context.Context, id uuid.UUID) (*WithAdmissions, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStorage(err, "Patient not found", "", "Failed to fetch patients")
	}

	admissions, err := s.repo.ListAdmissions(ctx, id, true)
	if err != nil {
		return nil, apperror.Persistence("Failed to fetch patients", err)
	}

	return &WithAdmissions{Patient: *p, Admissions: admissions}, nil
}

// PatientUpdate carries the patchable patient fields; nil means "leave as
// is".
type PatientUpdate struct {
	HospitalNumber *string `json:"hospitalNumber"`
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	Age            *int    `json:"age"`
	Status         *string `json:"status"`
}

func (s *Service) UpdatePatient(ctx context.Context, id uuid.UUID, upd PatientUpdate) (*Patient, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStorage(err, "Patient not found", "", "Failed to update patient")
	}

	if upd.HospitalNumber != nil {
		p.HospitalNumber = strings.TrimSpace(*upd.HospitalNumber)
	}
	if upd.FirstName != nil {
		p.FirstName = upd.FirstName
	}
	if upd.LastName != nil {
		p.LastName = upd.LastName
	}
	if upd.Age != nil {
		p.Age = upd.Age
	}
	if upd.Status != nil {
		if *upd.Status != StatusAdmit && *upd.Status != StatusDischarged {
			return nil, apperror.Validation("invalid status: " + *upd.Status)
		}
		p.Status = *upd.Status
	}

	if err := s.repo.Update(ctx, p); err != nil {
		return nil, apperror.FromStorage(err, "Patient not found", "Hospital Number already exists", "Failed to update patient")
	}
	return p, nil
}

func (s *Service) DeletePatient(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperror.Persistence("Failed to delete patient", err)
	}
	return nil
}

// SearchByHN looks a patient up by exact hospital number and attaches their
// outpatient visit history.
func (s *Service) SearchByHN(ctx context.Context, hn string) (*WithVisits, error) {
	hn = strings.TrimSpace(hn)
	if hn == "" {
		return nil, apperror.Validation("กรุณาระบุ HN")
	}

	p, err := s.repo.GetByHN(ctx, hn)
	if err != nil {
		return nil, apperror.FromStorage(err, "ไม่พบข้อมูลผู้ป่วย", "", "เกิดข้อผิดพลาดในการค้นหา")
	}

	visits, err := s.repo.VisitsByHN(ctx, hn)
	if err != nil {
		return nil, apperror.Persistence("เกิดข้อผิดพลาดในการค้นหา", err)
	}

	return &WithVisits{Patient: *p, Assessments: visits}, nil
}

// CreateAdmission opens a stay. The AN must be unique and the patient must
// not already have an open admission.
func (s *Service) CreateAdmission(ctx context.Context, a *Admission) error {
	if a.AdmissionNumber == "" || a.PatientID == uuid.Nil || a.BedNumber == "" {
		return apperror.Validation("Admission Number, Patient ID, and Bed Number are required")
	}
	if a.AdmissionDate.IsZero() {
		a.AdmissionDate = time.Now().UTC()
	}
	a.Status = StatusAdmit

	active, err := s.repo.ActiveAdmission(ctx, a.PatientID)
	if err != nil {
		return apperror.Persistence("Failed to create admission", err)
	}
	if active != nil {
		return apperror.Conflict("Patient already has an active admission")
	}

	if err := s.repo.CreateAdmission(ctx, a); err != nil {
		return apperror.FromStorage(err, "Patient not found", "Admission Number already exists", "Failed to create admission")
	}
	return nil
}

// AdmissionUpdate carries the patchable admission fields.
type AdmissionUpdate struct {
	AdmissionNumber *string    `json:"admissionNumber"`
	BedNumber       *string    `json:"bedNumber"`
	AdmissionDate   *time.Time `json:"admissionDate"`
	DischargeDate   *time.Time `json:"dischargeDate"`
	ChiefComplaint  *string    `json:"chiefComplaint"`
	HistoryPresent  *string    `json:"historyPresent"`
	PastMedicalHx   *string    `json:"pastMedicalHx"`
	FamilyHistory   *string    `json:"familyHistory"`
	SocialHistory   *string    `json:"socialHistory"`
	Allergies       *string    `json:"allergies"`
	Medications     *string    `json:"medications"`
	Lab             *string    `json:"lab"`
	Note            *string    `json:"note"`
}

// UpdateAdmission applies a partial update. Setting dischargeDate closes the
// stay; a stay can only be discharged once.
func (s *Service) UpdateAdmission(ctx context.Context, id uuid.UUID, upd AdmissionUpdate) (*Admission, error) {
	a, err := s.repo.GetAdmission(ctx, id)
	if err != nil {
		return nil, apperror.FromStorage(err, "Admission not found", "", "Failed to update admission")
	}

	if upd.AdmissionNumber != nil && *upd.AdmissionNumber != a.AdmissionNumber {
		taken, err := s.repo.AdmissionNumberTaken(ctx, *upd.AdmissionNumber, id)
		if err != nil {
			return nil, apperror.Persistence("Failed to update admission", err)
		}
		if taken {
			return nil, apperror.Conflict("Admission Number already exists")
		}
		a.AdmissionNumber = *upd.AdmissionNumber
	}

	if upd.DischargeDate != nil {
		if a.DischargeDate != nil {
			return nil, apperror.Conflict("Admission already discharged")
		}
		a.DischargeDate = upd.DischargeDate
		a.Status = StatusDischarged
	}

	if upd.BedNumber != nil {
		a.BedNumber = *upd.BedNumber
	}
	if upd.AdmissionDate != nil {
		a.AdmissionDate = *upd.AdmissionDate
	}
	if upd.ChiefComplaint != nil {
		a.ChiefComplaint = upd.ChiefComplaint
	}
	if upd.HistoryPresent != nil {
		a.HistoryPresent = upd.HistoryPresent
	}
	if upd.PastMedicalHx != nil {
		a.PastMedicalHx = upd.PastMedicalHx
	}
	if upd.FamilyHistory != nil {
		a.FamilyHistory = upd.FamilyHistory
	}
	if upd.SocialHistory != nil {
		a.SocialHistory = upd.SocialHistory
	}
	if upd.Allergies != nil {
		a.Allergies = upd.Allergies
	}
	if upd.Medications != nil {
		a.Medications = upd.Medications
	}
	if upd.Lab != nil {
		a.Lab = upd.Lab
	}
	if upd.Note != nil {
		a.Note = upd.Note
	}

	if err := s.repo.UpdateAdmission(ctx, a); err != nil {
		return nil, apperror.FromStorage(err, "Admission not found", "Admission Number already exists", "Failed to update admission")
	}

	notes, err := s.repo.ListNotes(ctx, a.ID)
	if err != nil {
		return nil, apperror.Persistence("Failed to update admission", err)
	}
	a.ProgressNotes = notes

	return a, nil
}

// CreateNote records a SOAP progress note on an admission.
func (s *Service) CreateNote(ctx context.Context, n *ProgressNote) error {
	if n.AdmissionID == uuid.Nil {
		return apperror.Validation("Admission ID is required")
	}
	if n.CreatedBy == "" {
		return apperror.Validation("Created By is required")
	}
	if err := s.repo.CreateNote(ctx, n); err != nil {
		return apperror.FromStorage(err, "Admission not found", "", "Failed to create progress note")
	}
	return nil
}

func (s *Service) GetNote(ctx context.Context, id uuid.UUID) (*ProgressNote, error) {
	n, err := s.repo.GetNote(ctx, id)
	if err != nil {
		return nil, apperror.FromStorage(err, "Progress note not found", "", "Failed to fetch progress notes")
	}
	return n, nil
}

func (s *Service) ListNotes(ctx context.Context, admissionID uuid.UUID) ([]*ProgressNote, error) {
	notes, err := s.repo.ListNotes(ctx, admissionID)
	if err != nil {
		return nil, apperror.Persistence("Failed to fetch progress notes", err)
	}
	if notes == nil {
		notes = []*ProgressNote{}
	}
	return notes, nil
}

func (s *Service) DeleteNote(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.DeleteNote(ctx, id); err != nil {
		return apperror.Persistence("Failed to delete progress note", err)
	}
	return nil
}
