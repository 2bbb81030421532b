package assessment

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/clinicdoc/clinicdoc/internal/platform/apperror"
)

type mockRepo struct {
	assessments map[uuid.UUID]*Assessment
	lastFilter  ListFilter
}

func newMockRepo() *mockRepo {
	return &mockRepo{assessments: map[uuid.UUID]*Assessment{}}
}

func (m *mockRepo) Create(_ context.Context, a *Assessment) error {
	a.ID = uuid.New()
	a.CreatedAt = time.Now().UTC()
	a.UpdatedAt = a.CreatedAt
	m.assessments[a.ID] = a
	return nil
}

func (m *mockRepo) GetByID(_ context.Context, id uuid.UUID) (*Assessment, error) {
	a, ok := m.assessments[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return a, nil
}

func (m *mockRepo) Update(_ context.Context, a *Assessment) error {
	if _, ok := m.assessments[a.ID]; !ok {
		return pgx.ErrNoRows
	}
	m.assessments[a.ID] = a
	return nil
}

func (m *mockRepo) Delete(_ context.Context, id uuid.UUID) error {
	delete(m.assessments, id)
	return nil
}

func (m *mockRepo) DeleteMany(_ context.Context, ids []uuid.UUID) (int64, error) {
	var n int64
	for _, id := range ids {
		if _, ok := m.assessments[id]; ok {
			delete(m.assessments, id)
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) List(_ context.Context, f ListFilter) ([]*Assessment, error) {
	m.lastFilter = f
	list := []*Assessment{}
	for _, a := range m.assessments {
		if f.Diagnosis != "" && (a.PrimaryDiagnosis == nil || *a.PrimaryDiagnosis != f.Diagnosis) {
			continue
		}
		list = append(list, a)
	}
	sort.Slice(list, func(i, j int) bool {
		return list[i].AssessmentDate.After(list[j].AssessmentDate)
	})
	if f.Offset > 0 {
		if f.Offset >= len(list) {
			list = []*Assessment{}
		} else {
			list = list[f.Offset:]
		}
	}
	if f.Limit > 0 && len(list) > f.Limit {
		list = list[:f.Limit]
	}
	return list, nil
}

func (m *mockRepo) Count(_ context.Context, f ListFilter) (int, error) {
	n := 0
	for _, a := range m.assessments {
		if f.Diagnosis != "" && (a.PrimaryDiagnosis == nil || *a.PrimaryDiagnosis != f.Diagnosis) {
			continue
		}
		n++
	}
	return n, nil
}

func (m *mockRepo) CountAll(context.Context) (int, error) { return len(m.assessments), nil }

func (m *mockRepo) CountPatients(context.Context) (int, error) {
	hns := map[string]bool{}
	for _, a := range m.assessments {
		hns[a.HospitalNumber] = true
	}
	return len(hns), nil
}

func (m *mockRepo) CountSince(_ context.Context, t time.Time) (int, error) {
	n := 0
	for _, a := range m.assessments {
		if !a.CreatedAt.Before(t) {
			n++
		}
	}
	return n, nil
}

func (m *mockRepo) DiagnosisBreakdown(context.Context) (map[string]int, error) {
	breakdown := map[string]int{}
	for _, a := range m.assessments {
		diag := ""
		if a.PrimaryDiagnosis != nil {
			diag = *a.PrimaryDiagnosis
		}
		breakdown[diag]++
	}
	return breakdown, nil
}

type upsertCall struct {
	hn                  string
	firstName, lastName *string
	age                 *int
	username            string
}

type touchCall struct {
	hn                  string
	firstName, lastName *string
	age                 *int
}

type mockDirectory struct {
	upserts   []upsertCall
	touches   []touchCall
	upsertErr error
}

func (m *mockDirectory) UpsertByHN(_ context.Context, hn string, firstName, lastName *string, age *int, username string) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts = append(m.upserts, upsertCall{hn, firstName, lastName, age, username})
	return nil
}

func (m *mockDirectory) TouchByHN(_ context.Context, hn string, firstName, lastName *string, age *int) error {
	m.touches = append(m.touches, touchCall{hn, firstName, lastName, age})
	return nil
}

func newTestService() (*Service, *mockRepo, *mockDirectory) {
	repo := newMockRepo()
	dir := &mockDirectory{}
	return NewService(repo, dir, nil), repo, dir
}

func wantKind(t *testing.T, err error, kind apperror.Kind) *apperror.Error {
	t.Helper()
	var appErr *apperror.Error
	if !errors.As(err, &appErr) || appErr.Kind != kind {
		t.Fatalf("err = %v, want kind %d", err, kind)
	}
	return appErr
}

func TestCreateRequiresHN(t *testing.T) {
	svc, _, _ := newTestService()

	for _, hn := range []string{"", "   "} {
		_, err := svc.Create(context.Background(), &CreateRequest{HospitalNumber: hn}, "nurse01")
		appErr := wantKind(t, err, apperror.KindValidation)
		if appErr.Message != "กรุณาระบุ HN" {
			t.Errorf("message = %q", appErr.Message)
		}
	}
}

func TestCreateUpsertsPatientAndAppliesDefaults(t *testing.T) {
	svc, repo, dir := newTestService()

	a, err := svc.Create(context.Background(), &CreateRequest{
		HospitalNumber: " HN001 ",
		FirstName:      str("สมชาย"),
		Age:            intp(62),
	}, "nurse01")
	if err != nil {
		t.Fatal(err)
	}

	if len(dir.upserts) != 1 {
		t.Fatalf("upserts = %d, want 1", len(dir.upserts))
	}
	up := dir.upserts[0]
	if up.hn != "HN001" || up.username != "nurse01" || up.firstName == nil || *up.firstName != "สมชาย" {
		t.Errorf("upsert call = %+v", up)
	}

	if a.ID == uuid.Nil {
		t.Error("id not assigned")
	}
	if a.HospitalNumber != "HN001" {
		t.Errorf("HN = %q, want trimmed", a.HospitalNumber)
	}
	if a.AssessedBy != "nurse01" {
		t.Errorf("AssessedBy = %q", a.AssessedBy)
	}
	if a.AssessmentDate.IsZero() {
		t.Error("assessment date not defaulted")
	}
	if a.CompliancePercent != 0 {
		t.Errorf("CompliancePercent = %d", a.CompliancePercent)
	}
	if a.PrimaryDiagnosis != nil {
		t.Errorf("empty diagnosis should store as nil, got %v", *a.PrimaryDiagnosis)
	}
	if a.SecondaryDiagnoses == nil || a.SideEffects == nil || a.NonComplianceReasons == nil || a.Medications == nil {
		t.Error("collection fields must default to empty, not nil")
	}
	for _, step := range TechniqueStepOrder {
		if a.TechniqueSteps[step] == nil {
			t.Errorf("step %q not normalized", step)
		}
	}
	if _, ok := repo.assessments[a.ID]; !ok {
		t.Error("assessment not stored")
	}
}

func TestCreateKeepsProvidedValues(t *testing.T) {
	svc, _, _ := newTestService()
	date := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)

	a, err := svc.Create(context.Background(), &CreateRequest{
		HospitalNumber:    "HN002",
		AssessmentDate:    &date,
		PrimaryDiagnosis:  DiagCOPD,
		ComplianceStatus:  ComplianceGood,
		CompliancePercent: intp(85),
		MedicationStatus:  MedHasRemaining,
		TechniqueSteps: TechniqueSteps{
			"prepare": {"MDI": {Status: "correct"}, "Ghost": {Status: "none"}},
		},
	}, "nurse01")
	if err != nil {
		t.Fatal(err)
	}

	if !a.AssessmentDate.Equal(date) {
		t.Errorf("AssessmentDate = %v", a.AssessmentDate)
	}
	if a.PrimaryDiagnosis == nil || *a.PrimaryDiagnosis != DiagCOPD {
		t.Errorf("PrimaryDiagnosis = %v", a.PrimaryDiagnosis)
	}
	if a.CompliancePercent != 85 {
		t.Errorf("CompliancePercent = %d", a.CompliancePercent)
	}
	if len(a.InhalerDevices) != 1 || a.InhalerDevices[0] != "MDI" {
		t.Errorf("InhalerDevices = %v, want derived [MDI]", a.InhalerDevices)
	}
}

func TestCreateAbortsWhenUpsertFails(t *testing.T) {
	repo := newMockRepo()
	dir := &mockDirectory{upsertErr: errors.New("db down")}
	svc := NewService(repo, dir, nil)

	_, err := svc.Create(context.Background(), &CreateRequest{HospitalNumber: "HN001"}, "nurse01")
	if err == nil {
		t.Fatal("expected error")
	}
	if len(repo.assessments) != 0 {
		t.Error("assessment must not be written when the patient upsert fails")
	}
}

func TestCreateRunsInsideTxRunner(t *testing.T) {
	repo := newMockRepo()
	dir := &mockDirectory{}
	calls := 0
	runner := func(ctx context.Context, fn func(ctx context.Context) error) error {
		calls++
		return fn(ctx)
	}
	svc := NewService(repo, dir, runner)

	if _, err := svc.Create(context.Background(), &CreateRequest{HospitalNumber: "HN001"}, "nurse01"); err != nil {
		t.Fatal(err)
	}
	if calls != 1 {
		t.Errorf("tx runner calls = %d, want 1", calls)
	}
}

func seedAssessment(repo *mockRepo) *Assessment {
	a := &Assessment{
		ID:               uuid.New(),
		HospitalNumber:   "HN001",
		AssessmentDate:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		AssessedBy:       "nurse01",
		PrimaryDiagnosis: str(DiagAsthma),
		Note:             str("keep me"),
		TechniqueCorrect: TriFalse,
		InhalerDevices:   []string{"MDI"},
		TechniqueSteps: TechniqueSteps{
			"prepare": {"MDI": {Status: "correct"}},
			"inhale":  {},
			"rinse":   {},
			"empty":   {},
		},
		SecondaryDiagnoses:   []string{},
		NonComplianceReasons: []string{},
		SideEffects:          []string{},
		Medications:          []MedicationItem{},
		CreatedAt:            time.Now().UTC(),
	}
	repo.assessments[a.ID] = a
	return a
}

func rawBody(t *testing.T, body string) map[string]json.RawMessage {
	t.Helper()
	var m map[string]json.RawMessage
	if err := json.Unmarshal([]byte(body), &m); err != nil {
		t.Fatal(err)
	}
	return m
}

func TestUpdatePreservesAbsentKeys(t *testing.T) {
	svc, repo, dir := newTestService()
	seeded := seedAssessment(repo)

	a, err := svc.Update(context.Background(), seeded.ID, rawBody(t, `{"compliancePercent": 55}`), "nurse02")
	if err != nil {
		t.Fatal(err)
	}

	if a.CompliancePercent != 55 {
		t.Errorf("CompliancePercent = %d", a.CompliancePercent)
	}
	if a.Note == nil || *a.Note != "keep me" {
		t.Errorf("absent note key must preserve value, got %v", a.Note)
	}
	if a.PrimaryDiagnosis == nil || *a.PrimaryDiagnosis != DiagAsthma {
		t.Errorf("diagnosis changed: %v", a.PrimaryDiagnosis)
	}
	if len(a.InhalerDevices) != 1 || a.InhalerDevices[0] != "MDI" {
		t.Errorf("devices must survive when techniqueSteps absent: %v", a.InhalerDevices)
	}
	if a.AssessedBy != "nurse02" {
		t.Errorf("AssessedBy = %q, want session user", a.AssessedBy)
	}
	if len(dir.touches) != 1 || dir.touches[0].hn != "HN001" {
		t.Errorf("touches = %+v", dir.touches)
	}
}

func TestUpdatePresentNullClears(t *testing.T) {
	svc, repo, _ := newTestService()
	seeded := seedAssessment(repo)

	a, err := svc.Update(context.Background(), seeded.ID, rawBody(t, `{"note": null}`), "nurse01")
	if err != nil {
		t.Fatal(err)
	}
	if a.Note != nil {
		t.Errorf("present null must clear note, got %v", *a.Note)
	}
}

func TestUpdateEmptySelectorKeepsStored(t *testing.T) {
	svc, repo, _ := newTestService()
	seeded := seedAssessment(repo)

	a, err := svc.Update(context.Background(), seeded.ID, rawBody(t, `{"primaryDiagnosis": "", "complianceStatus": ""}`), "nurse01")
	if err != nil {
		t.Fatal(err)
	}
	if a.PrimaryDiagnosis == nil || *a.PrimaryDiagnosis != DiagAsthma {
		t.Errorf("empty selector must keep stored diagnosis, got %v", a.PrimaryDiagnosis)
	}
}

func TestUpdateTechniqueStepsRederivesDevices(t *testing.T) {
	svc, repo, _ := newTestService()
	seeded := seedAssessment(repo)

	body := rawBody(t, `{"techniqueSteps": {"inhale": {"Turbuhaler": {"status": "incorrect", "note": "x"}}}}`)
	a, err := svc.Update(context.Background(), seeded.ID, body, "nurse01")
	if err != nil {
		t.Fatal(err)
	}
	if len(a.InhalerDevices) != 1 || a.InhalerDevices[0] != "Turbuhaler" {
		t.Errorf("devices = %v, want re-derived [Turbuhaler]", a.InhalerDevices)
	}
	if len(a.TechniqueSteps["prepare"]) != 0 {
		t.Errorf("old steps must be replaced: %v", a.TechniqueSteps["prepare"])
	}
}

func TestUpdateTouchesPatientDemographics(t *testing.T) {
	svc, repo, dir := newTestService()
	seeded := seedAssessment(repo)

	_, err := svc.Update(context.Background(), seeded.ID, rawBody(t, `{"firstName": "สมหญิง", "age": 70}`), "nurse01")
	if err != nil {
		t.Fatal(err)
	}
	if len(dir.touches) != 1 {
		t.Fatalf("touches = %d", len(dir.touches))
	}
	touch := dir.touches[0]
	if touch.firstName == nil || *touch.firstName != "สมหญิง" || touch.age == nil || *touch.age != 70 {
		t.Errorf("touch call = %+v", touch)
	}
}

func TestUpdateNotFound(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Update(context.Background(), uuid.New(), rawBody(t, `{}`), "nurse01")
	appErr := wantKind(t, err, apperror.KindNotFound)
	if appErr.Message != "ไม่พบข้อมูลการประเมิน" {
		t.Errorf("message = %q", appErr.Message)
	}
}

func TestDeleteMissingAssessment(t *testing.T) {
	svc, _, _ := newTestService()
	wantKind(t, svc.Delete(context.Background(), uuid.New()), apperror.KindNotFound)
}

func TestBulkDelete(t *testing.T) {
	svc, repo, _ := newTestService()
	first := seedAssessment(repo)
	second := seedAssessment(repo)

	err := svc.BulkDelete(context.Background(), []uuid.UUID{first.ID, second.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(repo.assessments) != 0 {
		t.Errorf("assessments left: %d", len(repo.assessments))
	}
}

func TestBulkDeleteRequiresIDs(t *testing.T) {
	svc, _, _ := newTestService()

	appErr := wantKind(t, svc.BulkDelete(context.Background(), nil), apperror.KindValidation)
	if appErr.Message != "กรุณาระบุ ID ที่ต้องการลบ" {
		t.Errorf("message = %q", appErr.Message)
	}
}

func TestStatsDateRangeBounds(t *testing.T) {
	svc, repo, _ := newTestService()

	_, err := svc.Stats(context.Background(), DiagAsthma, "2025-06-01", "2025-06-30", time.Now())
	if err != nil {
		t.Fatal(err)
	}

	f := repo.lastFilter
	if f.Diagnosis != DiagAsthma {
		t.Errorf("diagnosis filter = %q", f.Diagnosis)
	}
	if !f.From.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("From = %v", f.From)
	}
	wantTo := time.Date(2025, 6, 30, 23, 59, 59, 999000000, time.UTC)
	if !f.To.Equal(wantTo) {
		t.Errorf("To = %v, want %v", f.To, wantTo)
	}
}

func TestStatsInvalidDate(t *testing.T) {
	svc, _, _ := newTestService()

	_, err := svc.Stats(context.Background(), "", "June 1st", "", time.Now())
	wantKind(t, err, apperror.KindValidation)
}

func TestListRecentCapsAtHundred(t *testing.T) {
	svc, repo, _ := newTestService()
	for i := 0; i < 120; i++ {
		seedAssessment(repo)
	}

	list, err := svc.ListRecent(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 100 {
		t.Errorf("len = %d, want 100", len(list))
	}
	if repo.lastFilter.Limit != 100 {
		t.Errorf("limit = %d", repo.lastFilter.Limit)
	}
}

func TestAdminListPages(t *testing.T) {
	svc, repo, _ := newTestService()
	for i := 0; i < 5; i++ {
		seedAssessment(repo)
	}

	list, total, err := svc.AdminList(context.Background(), AdminQuery{Limit: 2, Offset: 4})
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 {
		t.Errorf("total = %d", total)
	}
	if len(list) != 1 {
		t.Errorf("page len = %d, want the single trailing row", len(list))
	}
}

func TestAdminListFiltersByDiagnosis(t *testing.T) {
	svc, repo, _ := newTestService()
	a := seedAssessment(repo)
	a.PrimaryDiagnosis = str(DiagCOPD)
	seedAssessment(repo)

	list, total, err := svc.AdminList(context.Background(), AdminQuery{Diagnosis: DiagCOPD, Limit: 50})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(list) != 1 {
		t.Errorf("total = %d, page = %d, want 1/1", total, len(list))
	}
}

func TestAdminStats(t *testing.T) {
	svc, repo, _ := newTestService()
	a := seedAssessment(repo)
	a.PrimaryDiagnosis = str(DiagCOPD)
	b := seedAssessment(repo)
	b.CreatedAt = time.Now().UTC().AddDate(0, 0, -30)

	stats, err := svc.AdminStats(context.Background(), time.Now().UTC())
	if err != nil {
		t.Fatal(err)
	}
	if stats.TotalAssessments != 2 {
		t.Errorf("TotalAssessments = %d", stats.TotalAssessments)
	}
	if stats.RecentAssessments != 1 {
		t.Errorf("RecentAssessments = %d, want only the fresh row", stats.RecentAssessments)
	}
	if stats.DiagnosisBreakdown[DiagCOPD] != 1 {
		t.Errorf("breakdown = %v", stats.DiagnosisBreakdown)
	}
}

func intp(n int) *int { return &n }
