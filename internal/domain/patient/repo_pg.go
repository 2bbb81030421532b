package patient

import (
	"context"
	"errors"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicdoc/clinicdoc/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const patCols = `id, hospital_number, first_name, last_name, age, status, created_by, created_at, updated_at`

const admCols = `id, admission_number, patient_id, bed_number, admission_date, discharge_date, status,
	chief_complaint, history_present, past_medical_hx, family_history, social_history,
	allergies, medications, lab, note, created_at, updated_at`

const noteCols = `id, admission_id, subjective, objective, assessment, plan, vital_signs, note, created_by, created_at`

func (r *repoPG) Create(ctx context.Context, p *Patient) error {
	p.ID = uuid.New()
	if p.Status == "" {
		p.Status = StatusAdmit
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, hospital_number, first_name, last_name, age, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.HospitalNumber, p.FirstName, p.LastName, p.Age, p.Status, p.CreatedBy,
	)
	return err
}

// Upsert inserts the patient or, when the hospital number already exists,
// overwrites the demographic fields with the submitted values.
func (r *repoPG) Upsert(ctx context.Context, p *Patient) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	if p.Status == "" {
		p.Status = StatusAdmit
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO patient (id, hospital_number, first_name, last_name, age, status, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (hospital_number) DO UPDATE SET
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			age = EXCLUDED.age,
			updated_at = NOW()`,
		p.ID, p.HospitalNumber, p.FirstName, p.LastName, p.Age, p.Status, p.CreatedBy,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patCols+` FROM patient WHERE id = $1`, id))
}

func (r *repoPG) GetByHN(ctx context.Context, hn string) (*Patient, error) {
	return scanPatient(r.conn(ctx).QueryRow(ctx, `SELECT `+patCols+` FROM patient WHERE hospital_number = $1`, hn))
}

func (r *repoPG) Update(ctx context.Context, p *Patient) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE patient SET
			hospital_number=$2, first_name=$3, last_name=$4, age=$5, status=$6, updated_at=NOW()
		WHERE id = $1`,
		p.ID, p.HospitalNumber, p.FirstName, p.LastName, p.Age, p.Status,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM patient WHERE id = $1`, id)
	return err
}

// List returns patients ordered by most recent activity, each with their
// current (un-discharged) admission attached when one exists.
func (r *repoPG) List(ctx context.Context, f ListFilter) ([]*WithAdmissions, error) {
	query := `SELECT ` + patCols + ` FROM patient WHERE 1=1`
	args := []interface{}{}

	if f.Status != "" && f.Status != "ALL" {
		args = append(args, f.Status)
		query += ` AND status = $1`
	}
	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		query += ` AND (hospital_number ILIKE $` + strconv.Itoa(n) +
			` OR first_name ILIKE $` + strconv.Itoa(n) +
			` OR last_name ILIKE $` + strconv.Itoa(n) + `)`
	}
	query += ` ORDER BY updated_at DESC`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*WithAdmissions
	var ids []uuid.UUID
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, &WithAdmissions{Patient: *p, Admissions: []*Admission{}})
		ids = append(ids, p.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) == 0 {
		return result, nil
	}

	admRows, err := r.conn(ctx).Query(ctx, `
		SELECT DISTINCT ON (patient_id) `+admCols+`
		FROM admission
		WHERE patient_id = ANY($1) AND discharge_date IS NULL
		ORDER BY patient_id, admission_date DESC`, ids)
	if err != nil {
		return nil, err
	}
	defer admRows.Close()

	current := make(map[uuid.UUID]*Admission)
	for admRows.Next() {
		a, err := scanAdmission(admRows)
		if err != nil {
			return nil, err
		}
		current[a.PatientID] = a
	}
	if err := admRows.Err(); err != nil {
		return nil, err
	}

	for _, p := range result {
		if a, ok := current[p.ID]; ok {
			p.Admissions = append(p.Admissions, a)
		}
	}
	return result, nil
}

func (r *repoPG) VisitsByHN(ctx context.Context, hn string) ([]*VisitSummary, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, assessment_date, primary_diagnosis, compliance_percent, assessed_by
		FROM assessment
		WHERE hospital_number = $1
		ORDER BY assessment_date DESC`, hn)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	visits := []*VisitSummary{}
	for rows.Next() {
		v := &VisitSummary{}
		if err := rows.Scan(&v.ID, &v.AssessmentDate, &v.PrimaryDiagnosis, &v.CompliancePercent, &v.AssessedBy); err != nil {
			return nil, err
		}
		visits = append(visits, v)
	}
	return visits, rows.Err()
}

func (r *repoPG) CreateAdmission(ctx context.Context, a *Admission) error {
	a.ID = uuid.New()
	if a.Status == "" {
		a.Status = StatusAdmit
	}
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO admission (
			id, admission_number, patient_id, bed_number, admission_date, discharge_date, status,
			chief_complaint, history_present, past_medical_hx, family_history, social_history,
			allergies, medications, lab, note
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		a.ID, a.AdmissionNumber, a.PatientID, a.BedNumber, a.AdmissionDate, a.DischargeDate, a.Status,
		a.ChiefComplaint, a.HistoryPresent, a.PastMedicalHx, a.FamilyHistory, a.SocialHistory,
		a.Allergies, a.Medications, a.Lab, a.Note,
	)
	return err
}

func (r *repoPG) GetAdmission(ctx context.Context, id uuid.UUID) (*Admission, error) {
	return scanAdmission(r.conn(ctx).QueryRow(ctx, `SELECT `+admCols+` FROM admission WHERE id = $1`, id))
}

// ActiveAdmission returns the open stay for a patient, or nil when there is
// none.
func (r *repoPG) ActiveAdmission(ctx context.Context, patientID uuid.UUID) (*Admission, error) {
	a, err := scanAdmission(r.conn(ctx).QueryRow(ctx, `
		SELECT `+admCols+` FROM admission
		WHERE patient_id = $1 AND discharge_date IS NULL
		ORDER BY admission_date DESC LIMIT 1`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (r *repoPG) UpdateAdmission(ctx context.Context, a *Admission) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE admission SET
			admission_number=$2, bed_number=$3, admission_date=$4, discharge_date=$5, status=$6,
			chief_complaint=$7, history_present=$8, past_medical_hx=$9, family_history=$10,
			social_history=$11, allergies=$12, medications=$13, lab=$14, note=$15, updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.AdmissionNumber, a.BedNumber, a.AdmissionDate, a.DischargeDate, a.Status,
		a.ChiefComplaint, a.HistoryPresent, a.PastMedicalHx, a.FamilyHistory,
		a.SocialHistory, a.Allergies, a.Medications, a.Lab, a.Note,
	)
	return err
}

func (r *repoPG) ListAdmissions(ctx context.Context, patientID uuid.UUID, withNotes bool) ([]*Admission, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+admCols+` FROM admission
		WHERE patient_id = $1
		ORDER BY admission_date DESC`, patientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	admissions := []*Admission{}
	var ids []uuid.UUID
	for rows.Next() {
		a, err := scanAdmission(rows)
		if err != nil {
			return nil, err
		}
		admissions = append(admissions, a)
		ids = append(ids, a.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if !withNotes || len(ids) == 0 {
		return admissions, nil
	}

	noteRows, err := r.conn(ctx).Query(ctx, `
		SELECT `+noteCols+` FROM progress_note
		WHERE admission_id = ANY($1)
		ORDER BY created_at DESC`, ids)
	if err != nil {
		return nil, err
	}
	defer noteRows.Close()

	byAdmission := make(map[uuid.UUID][]*ProgressNote)
	for noteRows.Next() {
		n, err := scanNote(noteRows)
		if err != nil {
			return nil, err
		}
		byAdmission[n.AdmissionID] = append(byAdmission[n.AdmissionID], n)
	}
	if err := noteRows.Err(); err != nil {
		return nil, err
	}

	for _, a := range admissions {
		a.ProgressNotes = byAdmission[a.ID]
		if a.ProgressNotes == nil {
			a.ProgressNotes = []*ProgressNote{}
		}
	}
	return admissions, nil
}

func (r *repoPG) AdmissionNumberTaken(ctx context.Context, an string, excludeID uuid.UUID) (bool, error) {
	var exists bool
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM admission WHERE admission_number = $1 AND id <> $2
		)`, an, excludeID).Scan(&exists)
	return exists, err
}

func (r *repoPG) CreateNote(ctx context.Context, n *ProgressNote) error {
	n.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO progress_note (id, admission_id, subjective, objective, assessment, plan, vital_signs, note, created_by)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		n.ID, n.AdmissionID, n.Subjective, n.Objective, n.Assessment, n.Plan, n.VitalSigns, n.Note, n.CreatedBy,
	)
	return err
}

func (r *repoPG) GetNote(ctx context.Context, id uuid.UUID) (*ProgressNote, error) {
	return scanNote(r.conn(ctx).QueryRow(ctx, `SELECT `+noteCols+` FROM progress_note WHERE id = $1`, id))
}

func (r *repoPG) ListNotes(ctx context.Context, admissionID uuid.UUID) ([]*ProgressNote, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+noteCols+` FROM progress_note
		WHERE admission_id = $1
		ORDER BY created_at DESC`, admissionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []*ProgressNote{}
	for rows.Next() {
		n, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

func (r *repoPG) DeleteNote(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM progress_note WHERE id = $1`, id)
	return err
}

func scanPatient(row pgx.Row) (*Patient, error) {
	p := &Patient{}
	err := row.Scan(&p.ID, &p.HospitalNumber, &p.FirstName, &p.LastName, &p.Age,
		&p.Status, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func scanAdmission(row pgx.Row) (*Admission, error) {
	a := &Admission{}
	err := row.Scan(&a.ID, &a.AdmissionNumber, &a.PatientID, &a.BedNumber,
		&a.AdmissionDate, &a.DischargeDate, &a.Status,
		&a.ChiefComplaint, &a.HistoryPresent, &a.PastMedicalHx, &a.FamilyHistory,
		&a.SocialHistory, &a.Allergies, &a.Medications, &a.Lab, &a.Note,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}

func scanNote(row pgx.Row) (*ProgressNote, error) {
	n := &ProgressNote{}
	err := row.Scan(&n.ID, &n.AdmissionID, &n.Subjective, &n.Objective,
		&n.Assessment, &n.Plan, &n.VitalSigns, &n.Note, &n.CreatedBy, &n.CreatedAt)
	if err != nil {
		return nil, err
	}
	return n, nil
}
