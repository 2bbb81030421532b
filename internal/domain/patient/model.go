package patient

import (
	"time"

	"github.com/google/uuid"
)

// Patient status values. A patient is ADMIT while they occupy a bed and
// DISCHARGED afterwards.
const (
	StatusAdmit      = "ADMIT"
	StatusDischarged = "DISCHARGED"
)

type Patient struct {
	ID             uuid.UUID `json:"id"`
	HospitalNumber string    `json:"hospitalNumber"`
	FirstName      *string   `json:"firstName"`
	LastName       *string   `json:"lastName"`
	Age            *int      `json:"age"`
	Status         string    `json:"status"`
	CreatedBy      string    `json:"createdBy"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// Admission is one inpatient stay. The admission number (AN) is unique
// across the clinic; the clinical history fields are free text captured at
// admission time.
type Admission struct {
	ID              uuid.UUID  `json:"id"`
	AdmissionNumber string     `json:"admissionNumber"`
	PatientID       uuid.UUID  `json:"patientId"`
	BedNumber       string     `json:"bedNumber"`
	AdmissionDate   time.Time  `json:"admissionDate"`
	DischargeDate   *time.Time `json:"dischargeDate"`
	Status          string     `json:"status"`
	ChiefComplaint  *string    `json:"chiefComplaint"`
	HistoryPresent  *string    `json:"historyPresent"`
	PastMedicalHx   *string    `json:"pastMedicalHx"`
	FamilyHistory   *string    `json:"familyHistory"`
	SocialHistory   *string    `json:"socialHistory"`
	Allergies       *string    `json:"allergies"`
	Medications     *string    `json:"medications"`
	Lab             *string    `json:"lab"`
	Note            *string    `json:"note"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`

	// Loaded for detail reads, newest first.
	ProgressNotes []*ProgressNote `json:"progressNotes,omitempty"`
}

// Active reports whether the stay is still open.
func (a *Admission) Active() bool {
	return a.DischargeDate == nil
}

// VitalSigns recorded with a progress note. All fields optional; blood
// pressure stays a string ("120/80").
type VitalSigns struct {
	BP    *string  `json:"bp,omitempty"`
	HR    *float64 `json:"hr,omitempty"`
	RR    *float64 `json:"rr,omitempty"`
	Temp  *float64 `json:"temp,omitempty"`
	O2Sat *float64 `json:"o2sat,omitempty"`
}

// ProgressNote is a SOAP note on an admission. Notes are immutable once
// written: create, read and delete only.
type ProgressNote struct {
	ID          uuid.UUID   `json:"id"`
	AdmissionID uuid.UUID   `json:"admissionId"`
	Subjective  *string     `json:"subjective"`
	Objective   *string     `json:"objective"`
	Assessment  *string     `json:"assessment"`
	Plan        *string     `json:"plan"`
	VitalSigns  *VitalSigns `json:"vitalSigns"`
	Note        *string     `json:"note"`
	CreatedBy   string      `json:"createdBy"`
	CreatedAt   time.Time   `json:"createdAt"`
}

// WithAdmissions is the read model for the ward list and the patient detail
// view: the patient plus their admissions (current-only for the list, full
// history with notes for the detail).
type WithAdmissions struct {
	Patient
	Admissions []*Admission `json:"admissions"`
}

// VisitSummary is one outpatient assessment row attached to an HN lookup.
type VisitSummary struct {
	ID                uuid.UUID `json:"id"`
	AssessmentDate    time.Time `json:"assessmentDate"`
	PrimaryDiagnosis  *string   `json:"primaryDiagnosis"`
	CompliancePercent int       `json:"compliancePercent"`
	AssessedBy        string    `json:"assessedBy"`
}

// WithVisits is the read model for the HN search endpoint.
type WithVisits struct {
	Patient
	Assessments []*VisitSummary `json:"assessments"`
}
