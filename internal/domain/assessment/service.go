package assessment

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/clinicdoc/clinicdoc/internal/platform/apperror"
)

// PatientDirectory is the slice of the patient service the assessment flow
// needs: demographics are upserted on submission and touched on edit.
type PatientDirectory interface {
	UpsertByHN(ctx context.Context, hn string, firstName, lastName *string, age *int, username string) error
	TouchByHN(ctx context.Context, hn string, firstName, lastName *string, age *int) error
}

// TxRunner runs fn inside a storage transaction carried on the context. A nil
// runner executes fn directly.
type TxRunner func(ctx context.Context, fn func(ctx context.Context) error) error

type Service struct {
	repo     Repository
	patients PatientDirectory
	inTx     TxRunner
}

func NewService(repo Repository, patients PatientDirectory, inTx TxRunner) *Service {
	return &Service{repo: repo, patients: patients, inTx: inTx}
}

func (s *Service) transact(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx == nil {
		return fn(ctx)
	}
	return s.inTx(ctx, fn)
}

// CreateRequest is the assessment submission payload. Patient demographics
// ride along and are upserted before the assessment row is written.
type CreateRequest struct {
	HospitalNumber string     `json:"hn"`
	FirstName      *string    `json:"firstName"`
	LastName       *string    `json:"lastName"`
	Age            *int       `json:"age"`
	AssessmentDate *time.Time `json:"assessmentDate"`

	Alcohol       TriState `json:"alcohol"`
	AlcoholAmount *string  `json:"alcoholAmount"`
	Smoking       TriState `json:"smoking"`
	SmokingAmount *string  `json:"smokingAmount"`

	PrimaryDiagnosis   string   `json:"primaryDiagnosis"`
	SecondaryDiagnoses []string `json:"secondaryDiagnoses"`
	Note               *string  `json:"note"`

	AsthmaData *AsthmaData `json:"asthmaData"`
	COPDData   *COPDData   `json:"copdData"`
	ARData     *ARData     `json:"arData"`

	ComplianceStatus     string   `json:"complianceStatus"`
	CompliancePercent    *int     `json:"compliancePercent"`
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

	MedicationStatus   string           `json:"medicationStatus"`
	UnopenedMedication bool             `json:"unopenedMedication"`
	Medications        []MedicationItem `json:"medications"`

	TechniqueCorrect TriState       `json:"techniqueCorrect"`
	TechniqueSteps   TechniqueSteps `json:"techniqueSteps"`
	SpacerType       *string        `json:"spacerType"`
}

// Create upserts the patient and writes the assessment in one transaction,
// then reloads the row so the response carries the stored patient.
func (s *Service) Create(ctx context.Context, req *CreateRequest, username string) (*Assessment, error) {
	hn := strings.TrimSpace(req.HospitalNumber)
	if hn == "" {
		return nil, apperror.Validation("กรุณาระบุ HN")
	}

	a := &Assessment{
		HospitalNumber: hn,
		AssessmentDate: time.Now().UTC(),
		AssessedBy:     username,

		Alcohol:       req.Alcohol,
		AlcoholAmount: req.AlcoholAmount,
		Smoking:       req.Smoking,
		SmokingAmount: req.SmokingAmount,

		SecondaryDiagnoses: orEmpty(req.SecondaryDiagnoses),
		Note:               req.Note,

		AsthmaData: req.AsthmaData,
		COPDData:   req.COPDData,
		ARData:     req.ARData,

		CannotAssessReason:   req.CannotAssessReason,
		NonComplianceReasons: orEmpty(req.NonComplianceReasons),
		LessThanDetail:       req.LessThanDetail,
		MoreThanDetail:       req.MoreThanDetail,
		NonComplianceOther:   req.NonComplianceOther,

		HasSideEffects:        req.HasSideEffects,
		SideEffects:           orEmpty(req.SideEffects),
		SideEffectsOther:      req.SideEffectsOther,
		SideEffectsManagement: req.SideEffectsManagement,
		DRPs:                  req.DRPs,

		UnopenedMedication: req.UnopenedMedication,
		Medications:        req.Medications,

		TechniqueCorrect: req.TechniqueCorrect,
		SpacerType:       req.SpacerType,
	}
	if req.AssessmentDate != nil && !req.AssessmentDate.IsZero() {
		a.AssessmentDate = *req.AssessmentDate
	}
	if req.PrimaryDiagnosis != "" {
		a.PrimaryDiagnosis = &req.PrimaryDiagnosis
	}
	if req.ComplianceStatus != "" {
		a.ComplianceStatus = &req.ComplianceStatus
	}
	if req.CompliancePercent != nil {
		a.CompliancePercent = *req.CompliancePercent
	}
	if req.MedicationStatus != "" {
		a.MedicationStatus = &req.MedicationStatus
	}
	if a.Medications == nil {
		a.Medications = []MedicationItem{}
	}
	a.TechniqueSteps, a.InhalerDevices = NormalizeTechnique(req.TechniqueSteps)

	err := s.transact(ctx, func(ctx context.Context) error {
		if err := s.patients.UpsertByHN(ctx, hn, req.FirstName, req.LastName, req.Age, username); err != nil {
			return err
		}
		if err := s.repo.Create(ctx, a); err != nil {
			return apperror.Persistence("เกิดข้อผิดพลาดในการบันทึกข้อมูล", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, a.ID)
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	a, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, apperror.FromStorage(err, "ไม่พบข้อมูลการประเมิน", "", "เกิดข้อผิดพลาดในการค้นหา")
	}
	return a, nil
}

// Report renders the stored assessment into the paste-ready summary text.
func (s *Service) Report(ctx context.Context, id uuid.UUID) (string, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return ReportText(a), nil
}

// ListRecent serves the management listing: newest first, capped at 100.
func (s *Service) ListRecent(ctx context.Context, search string) ([]*Assessment, error) {
	list, err := s.repo.List(ctx, ListFilter{Search: strings.TrimSpace(search), Limit: 100})
	if err != nil {
		return nil, apperror.Persistence("เกิดข้อผิดพลาดในการค้นหา", err)
	}
	return list, nil
}

// AdminQuery narrows and pages the admin table.
type AdminQuery struct {
	Search    string
	Diagnosis string
	DateFrom  string
	DateTo    string
	Limit     int
	Offset    int
}

// AdminList returns one page of the admin table plus the filtered total.
func (s *Service) AdminList(ctx context.Context, q AdminQuery) ([]*Assessment, int, error) {
	from, to, err := parseDateRange(q.DateFrom, q.DateTo)
	if err != nil {
		return nil, 0, err
	}
	f := ListFilter{
		Search:    strings.TrimSpace(q.Search),
		Diagnosis: q.Diagnosis,
		From:      from,
		To:        to,
		Limit:     q.Limit,
		Offset:    q.Offset,
	}
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, 0, apperror.Persistence("เกิดข้อผิดพลาดในการค้นหา", err)
	}
	f.Limit, f.Offset = 0, 0
	total, err := s.repo.Count(ctx, f)
	if err != nil {
		return nil, 0, apperror.Persistence("เกิดข้อผิดพลาดในการค้นหา", err)
	}
	return list, total, nil
}

// patchReader decodes optional keys from a partial-update body and remembers
// the first decode failure.
type patchReader struct {
	body map[string]json.RawMessage
	err  error
}

// field decodes key into dst and reports whether the key was present.
func (r *patchReader) field(key string, dst interface{}) bool {
	if r.err != nil {
		return false
	}
	raw, ok := r.body[key]
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		r.err = apperror.Validation("ข้อมูลไม่ถูกต้อง")
		return false
	}
	return true
}

// Update applies a partial-update body on top of the stored assessment.
// Absent keys preserve stored values; a present null clears the field. The
// selector fields (primaryDiagnosis, complianceStatus, medicationStatus) keep
// their stored value when the submitted one is empty, matching the form's
// placeholder option. techniqueSteps, when present, is re-normalized and the
// device list re-derived; when absent both survive untouched.
func (s *Service) Update(ctx context.Context, id uuid.UUID, body map[string]json.RawMessage, username string) (*Assessment, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	r := &patchReader{body: body}

	var date *time.Time
	if r.field("assessmentDate", &date) && date != nil && !date.IsZero() {
		a.AssessmentDate = *date
	}
	a.AssessedBy = username

	r.field("alcohol", &a.Alcohol)
	r.field("alcoholAmount", &a.AlcoholAmount)
	r.field("smoking", &a.Smoking)
	r.field("smokingAmount", &a.SmokingAmount)

	var diag *string
	if r.field("primaryDiagnosis", &diag) && diag != nil && *diag != "" {
		a.PrimaryDiagnosis = diag
	}
	if r.field("secondaryDiagnoses", &a.SecondaryDiagnoses) && a.SecondaryDiagnoses == nil {
		a.SecondaryDiagnoses = []string{}
	}
	r.field("note", &a.Note)

	r.field("asthmaData", &a.AsthmaData)
	r.field("copdData", &a.COPDData)
	r.field("arData", &a.ARData)

	var status *string
	if r.field("complianceStatus", &status) && status != nil && *status != "" {
		a.ComplianceStatus = status
	}
	var pct *int
	if r.field("compliancePercent", &pct) {
		a.CompliancePercent = 0
		if pct != nil {
			a.CompliancePercent = *pct
		}
	}
	r.field("cannotAssessReason", &a.CannotAssessReason)
	if r.field("nonComplianceReasons", &a.NonComplianceReasons) && a.NonComplianceReasons == nil {
		a.NonComplianceReasons = []string{}
	}
	r.field("lessThanDetail", &a.LessThanDetail)
	r.field("moreThanDetail", &a.MoreThanDetail)
	r.field("nonComplianceOther", &a.NonComplianceOther)

	r.field("hasSideEffects", &a.HasSideEffects)
	if r.field("sideEffects", &a.SideEffects) && a.SideEffects == nil {
		a.SideEffects = []string{}
	}
	r.field("sideEffectsOther", &a.SideEffectsOther)
	r.field("sideEffectsManagement", &a.SideEffectsManagement)
	r.field("drps", &a.DRPs)

	var medStatus *string
	if r.field("medicationStatus", &medStatus) && medStatus != nil && *medStatus != "" {
		a.MedicationStatus = medStatus
	}
	r.field("unopenedMedication", &a.UnopenedMedication)
	if r.field("medications", &a.Medications) && a.Medications == nil {
		a.Medications = []MedicationItem{}
	}

	r.field("techniqueCorrect", &a.TechniqueCorrect)
	var steps TechniqueSteps
	if r.field("techniqueSteps", &steps) {
		a.TechniqueSteps, a.InhalerDevices = NormalizeTechnique(steps)
	}
	r.field("spacerType", &a.SpacerType)

	var firstName, lastName *string
	var age *int
	r.field("firstName", &firstName)
	r.field("lastName", &lastName)
	r.field("age", &age)

	if r.err != nil {
		return nil, r.err
	}

	err = s.transact(ctx, func(ctx context.Context) error {
		if err := s.repo.Update(ctx, a); err != nil {
			return apperror.Persistence("เกิดข้อผิดพลาดในการบันทึกข้อมูล", err)
		}
		return s.patients.TouchByHN(ctx, a.HospitalNumber, firstName, lastName, age)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, a.ID)
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return apperror.Persistence("เกิดข้อผิดพลาดในการลบข้อมูล", err)
	}
	return nil
}

// BulkDelete removes the given assessments from the admin table.
func (s *Service) BulkDelete(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return apperror.Validation("กรุณาระบุ ID ที่ต้องการลบ")
	}
	if _, err := s.repo.DeleteMany(ctx, ids); err != nil {
		return apperror.Persistence("เกิดข้อผิดพลาดในการลบข้อมูล", err)
	}
	return nil
}

// Stats aggregates over assessments matching the optional diagnosis and
// date-range filters. Dates are calendar days; the upper bound is inclusive
// through end of day.
func (s *Service) Stats(ctx context.Context, diagnosis, dateFrom, dateTo string, now time.Time) (*StatsReport, error) {
	from, to, err := parseDateRange(dateFrom, dateTo)
	if err != nil {
		return nil, err
	}
	list, err := s.repo.List(ctx, ListFilter{Diagnosis: diagnosis, From: from, To: to})
	if err != nil {
		return nil, apperror.Persistence("เกิดข้อผิดพลาดในการค้นหา", err)
	}
	return Aggregate(list, now), nil
}

// AdminStats is the dashboard counter set, computed in storage rather than by
// loading every row.
type AdminStats struct {
	TotalAssessments   int            `json:"totalAssessments"`
	TotalPatients      int            `json:"totalPatients"`
	RecentAssessments  int            `json:"recentAssessments"`
	DiagnosisBreakdown map[string]int `json:"diagnosisBreakdown"`
}

func (s *Service) AdminStats(ctx context.Context, now time.Time) (*AdminStats, error) {
	stats := &AdminStats{}
	var err error
	if stats.TotalAssessments, err = s.repo.CountAll(ctx); err != nil {
		return nil, apperror.Persistence("เกิดข้อผิดพลาดในการค้นหา", err)
	}
	if stats.TotalPatients, err = s.repo.CountPatients(ctx); err != nil {
		return nil, apperror.Persistence("เกิดข้อผิดพลาดในการค้นหา", err)
	}
	if stats.RecentAssessments, err = s.repo.CountSince(ctx, now.Add(-7*24*time.Hour)); err != nil {
		return nil, apperror.Persistence("เกิดข้อผิดพลาดในการค้นหา", err)
	}
	if stats.DiagnosisBreakdown, err = s.repo.DiagnosisBreakdown(ctx); err != nil {
		return nil, apperror.Persistence("เกิดข้อผิดพลาดในการค้นหา", err)
	}
	return stats, nil
}

func parseDateRange(from, to string) (time.Time, time.Time, error) {
	var f, t time.Time
	if from != "" {
		d, err := time.Parse("2006-01-02", from)
		if err != nil {
			return f, t, apperror.Validation("รูปแบบวันที่ไม่ถูกต้อง")
		}
		f = d
	}
	if to != "" {
		d, err := time.Parse("2006-01-02", to)
		if err != nil {
			return f, t, apperror.Validation("รูปแบบวันที่ไม่ถูกต้อง")
		}
		t = d.Add(24*time.Hour - time.Millisecond)
	}
	return f, t, nil
}

func orEmpty(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
