package assessment

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Primary diagnosis codes.
const (
	DiagAsthma           = "ASTHMA"
	DiagCOPD             = "COPD"
	DiagACOD             = "ACOD"
	DiagBronchiectasis   = "BRONCHIECTASIS"
	DiagAllergicRhinitis = "ALLERGIC_RHINITIS"
	DiagGERD             = "GERD"
)

// Asthma control levels.
const (
	ControlWell         = "WELL"
	ControlPartly       = "PARTLY"
	ControlUncontrolled = "UNCONTROLLED"
)

// Compliance status codes.
const (
	ComplianceGood         = "GOOD_COMPLIANCE"
	ComplianceFirstUse     = "FIRST_USE"
	ComplianceCannotAssess = "CANNOT_ASSESS"
	ComplianceNon          = "NON_COMPLIANCE"
)

// Non-compliance reason tags.
const (
	ReasonLessThan = "LESS_THAN"
	ReasonMoreThan = "MORE_THAN"
)

// Remaining-medication status codes.
const (
	MedNoRemaining  = "NO_REMAINING"
	MedHasRemaining = "HAS_REMAINING"
)

// TriState is a boolean that distinguishes "not answered" from an explicit
// no. It marshals to JSON null/true/false and is stored as a nullable
// boolean column.
type TriState int

const (
	TriUnset TriState = iota
	TriTrue
	TriFalse
)

func (t TriState) MarshalJSON() ([]byte, error) {
	switch t {
	case TriTrue:
		return []byte("true"), nil
	case TriFalse:
		return []byte("false"), nil
	default:
		return []byte("null"), nil
	}
}

func (t *TriState) UnmarshalJSON(b []byte) error {
	switch string(b) {
	case "true":
		*t = TriTrue
	case "false":
		*t = TriFalse
	case "null":
		*t = TriUnset
	default:
		return fmt.Errorf("invalid boolean value: %s", b)
	}
	return nil
}

// Bool returns the nullable-boolean representation for storage.
func (t TriState) Bool() *bool {
	switch t {
	case TriTrue:
		v := true
		return &v
	case TriFalse:
		v := false
		return &v
	default:
		return nil
	}
}

// TriFromBool converts a nullable boolean read from storage.
func TriFromBool(b *bool) TriState {
	switch {
	case b == nil:
		return TriUnset
	case *b:
		return TriTrue
	default:
		return TriFalse
	}
}

// IsTrue reports whether the answer is an explicit yes.
func (t TriState) IsTrue() bool { return t == TriTrue }

// The four fixed inhaler technique steps, in presentation order.
var TechniqueStepOrder = []string{"prepare", "inhale", "rinse", "empty"}

// StepEntry records one device's result for one technique step.
type StepEntry struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

// TechniqueSteps is the step matrix: step name -> device -> result.
type TechniqueSteps map[string]map[string]StepEntry

// AsthmaData holds the asthma-specific assessment answers. Measurements stay
// free text exactly as entered on the form.
type AsthmaData struct {
	PEF          string `json:"pef"`
	PEFPercent   string `json:"pefPercent"`
	Day          string `json:"day"`
	Night        string `json:"night"`
	Rescue       string `json:"rescue"`
	ER           string `json:"er"`
	Admit        string `json:"admit"`
	ControlLevel string `json:"controlLevel"`
}

// COPDData holds the COPD-specific assessment answers.
type COPDData struct {
	MMRC           string `json:"mMRC"`
	CAT            string `json:"cat"`
	ExacerbPerYear string `json:"exacerbPerYear"`
	FEV1           string `json:"fev1"`
	SixMWD         string `json:"sixMWD"`
	Stage          string `json:"stage"`
}

// ARData holds the allergic rhinitis answers.
type ARData struct {
	Symptoms string `json:"symptoms"`
	Severity string `json:"severity"`
	Pattern  string `json:"pattern"`
}

// MedicationItem is one remaining-medication inventory row.
type MedicationItem struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
}

// PatientSummary is the patient slice attached to assessment reads.
type PatientSummary struct {
	HospitalNumber string  `json:"hospitalNumber"`
	FirstName      *string `json:"firstName"`
	LastName       *string `json:"lastName"`
	Age            *int    `json:"age"`
}

// Assessment is the structured outpatient clinical record.
type Assessment struct {
	ID             uuid.UUID `json:"id"`
	HospitalNumber string    `json:"hospitalNumber"`
	AssessmentDate time.Time `json:"assessmentDate"`
	AssessedBy     string    `json:"assessedBy"`

	Alcohol       TriState `json:"alcohol"`
	AlcoholAmount *string  `json:"alcoholAmount"`
	Smoking       TriState `json:"smoking"`
	SmokingAmount *string  `json:"smokingAmount"`

	PrimaryDiagnosis   *string  `json:"primaryDiagnosis"`
	SecondaryDiagnoses []string `json:"secondaryDiagnoses"`
	Note               *string  `json:"note"`

	AsthmaData *AsthmaData `json:"asthmaData"`
	COPDData   *COPDData   `json:"copdData"`
	ARData     *ARData     `json:"arData"`

	ComplianceStatus     *string  `json:"complianceStatus"`
	CompliancePercent    int      `json:"compliancePercent"`
	CannotAssessReason   *string  `json:"cannotAssessReason"`
	NonComplianceReasons []string `json:"nonComplianceReasons"`
	LessThanDetail       *string  `json:"lessThanDetail"`
	MoreThanDetail       *string  `json:"moreThanDetail"`
	NonComplianceOther   *string  `json:"nonComplianceOther"`

	HasSideEffects        TriState `json:"hasSideEffects"`
	SideEffects           []string `json:"sideEffects"`
	SideEffectsOther      *string  `json:"sideEffectsOther"`
	SideEffectsManagement *string  `json:"sideEffectsManagement"`
	DRPs                  *string  `json:"drps"`

	MedicationStatus   *string          `json:"medicationStatus"`
	UnopenedMedication bool             `json:"unopenedMedication"`
	Medications        []MedicationItem `json:"medications"`

	TechniqueCorrect TriState       `json:"techniqueCorrect"`
	InhalerDevices   []string       `json:"inhalerDevices"`
	TechniqueSteps   TechniqueSteps `json:"techniqueSteps"`
	SpacerType       *string        `json:"spacerType"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	Patient *PatientSummary `json:"patient,omitempty"`
}
