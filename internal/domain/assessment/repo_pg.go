package assessment

import (
	"context"
	"strconv"
	"time"

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

// asmCols is the aliased column list shared by every read; reads join the
// patient table so responses carry current demographics.
const asmCols = `a.id, a.hospital_number, a.assessment_date, a.assessed_by,
	a.alcohol, a.alcohol_amount, a.smoking, a.smoking_amount,
	a.primary_diagnosis, a.secondary_diagnoses, a.note,
	a.asthma_data, a.copd_data, a.ar_data,
	a.compliance_status, a.compliance_percent, a.cannot_assess_reason,
	a.non_compliance_reasons, a.less_than_detail, a.more_than_detail, a.non_compliance_other,
	a.has_side_effects, a.side_effects, a.side_effects_other, a.side_effects_management, a.drps,
	a.medication_status, a.unopened_medication, a.medications,
	a.technique_correct, a.inhaler_devices, a.technique_steps, a.spacer_type,
	a.created_at, a.updated_at,
	p.hospital_number, p.first_name, p.last_name, p.age`

const asmFrom = ` FROM assessment a LEFT JOIN patient p ON p.hospital_number = a.hospital_number`

func (r *repoPG) Create(ctx context.Context, a *Assessment) error {
	a.ID = uuid.New()
	_, err := r.conn(ctx).Exec(ctx, `
		INSERT INTO assessment (
			id, hospital_number, assessment_date, assessed_by,
			alcohol, alcohol_amount, smoking, smoking_amount,
			primary_diagnosis, secondary_diagnoses, note,
			asthma_data, copd_data, ar_data,
			compliance_status, compliance_percent, cannot_assess_reason,
			non_compliance_reasons, less_than_detail, more_than_detail, non_compliance_other,
			has_side_effects, side_effects, side_effects_other, side_effects_management, drps,
			medication_status, unopened_medication, medications,
			technique_correct, inhaler_devices, technique_steps, spacer_type
		) VALUES (
			$1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,
			$18,$19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33
		)`,
		a.ID, a.HospitalNumber, a.AssessmentDate, a.AssessedBy,
		a.Alcohol.Bool(), a.AlcoholAmount, a.Smoking.Bool(), a.SmokingAmount,
		a.PrimaryDiagnosis, a.SecondaryDiagnoses, a.Note,
		a.AsthmaData, a.COPDData, a.ARData,
		a.ComplianceStatus, a.CompliancePercent, a.CannotAssessReason,
		a.NonComplianceReasons, a.LessThanDetail, a.MoreThanDetail, a.NonComplianceOther,
		a.HasSideEffects.Bool(), a.SideEffects, a.SideEffectsOther, a.SideEffectsManagement, a.DRPs,
		a.MedicationStatus, a.UnopenedMedication, a.Medications,
		a.TechniqueCorrect.Bool(), a.InhalerDevices, a.TechniqueSteps, a.SpacerType,
	)
	return err
}

func (r *repoPG) GetByID(ctx context.Context, id uuid.UUID) (*Assessment, error) {
	return scanAssessment(r.conn(ctx).QueryRow(ctx, `SELECT `+asmCols+asmFrom+` WHERE a.id = $1`, id))
}

func (r *repoPG) Update(ctx context.Context, a *Assessment) error {
	_, err := r.conn(ctx).Exec(ctx, `
		UPDATE assessment SET
			assessment_date=$2, assessed_by=$3,
			alcohol=$4, alcohol_amount=$5, smoking=$6, smoking_amount=$7,
			primary_diagnosis=$8, secondary_diagnoses=$9, note=$10,
			asthma_data=$11, copd_data=$12, ar_data=$13,
			compliance_status=$14, compliance_percent=$15, cannot_assess_reason=$16,
			non_compliance_reasons=$17, less_than_detail=$18, more_than_detail=$19, non_compliance_other=$20,
			has_side_effects=$21, side_effects=$22, side_effects_other=$23, side_effects_management=$24, drps=$25,
			medication_status=$26, unopened_medication=$27, medications=$28,
			technique_correct=$29, inhaler_devices=$30, technique_steps=$31, spacer_type=$32,
			updated_at=NOW()
		WHERE id = $1`,
		a.ID, a.AssessmentDate, a.AssessedBy,
		a.Alcohol.Bool(), a.AlcoholAmount, a.Smoking.Bool(), a.SmokingAmount,
		a.PrimaryDiagnosis, a.SecondaryDiagnoses, a.Note,
		a.AsthmaData, a.COPDData, a.ARData,
		a.ComplianceStatus, a.CompliancePercent, a.CannotAssessReason,
		a.NonComplianceReasons, a.LessThanDetail, a.MoreThanDetail, a.NonComplianceOther,
		a.HasSideEffects.Bool(), a.SideEffects, a.SideEffectsOther, a.SideEffectsManagement, a.DRPs,
		a.MedicationStatus, a.UnopenedMedication, a.Medications,
		a.TechniqueCorrect.Bool(), a.InhalerDevices, a.TechniqueSteps, a.SpacerType,
	)
	return err
}

func (r *repoPG) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.conn(ctx).Exec(ctx, `DELETE FROM assessment WHERE id = $1`, id)
	return err
}

func (r *repoPG) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `DELETE FROM assessment WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// listWhere renders the shared filter clause for List and Count.
func listWhere(f ListFilter) (string, []interface{}) {
	clause := ` WHERE 1=1`
	args := []interface{}{}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := strconv.Itoa(len(args))
		clause += ` AND (a.hospital_number ILIKE $` + n +
			` OR p.first_name ILIKE $` + n +
			` OR p.last_name ILIKE $` + n + `)`
	}
	if f.Diagnosis != "" {
		args = append(args, f.Diagnosis)
		clause += ` AND a.primary_diagnosis = $` + strconv.Itoa(len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		clause += ` AND a.assessment_date >= $` + strconv.Itoa(len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		clause += ` AND a.assessment_date <= $` + strconv.Itoa(len(args))
	}
	return clause, args
}

func (r *repoPG) List(ctx context.Context, f ListFilter) ([]*Assessment, error) {
	where, args := listWhere(f)
	query := `SELECT ` + asmCols + asmFrom + where + ` ORDER BY a.assessment_date DESC`
	if f.Limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(f.Limit)
	}
	if f.Offset > 0 {
		query += ` OFFSET ` + strconv.Itoa(f.Offset)
	}

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := []*Assessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *repoPG) Count(ctx context.Context, f ListFilter) (int, error) {
	where, args := listWhere(f)
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*)`+asmFrom+where, args...).Scan(&n)
	return n, err
}

func (r *repoPG) CountAll(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM assessment`).Scan(&n)
	return n, err
}

func (r *repoPG) CountPatients(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM patient`).Scan(&n)
	return n, err
}

func (r *repoPG) CountSince(ctx context.Context, t time.Time) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM assessment WHERE created_at >= $1`, t).Scan(&n)
	return n, err
}

func (r *repoPG) DiagnosisBreakdown(ctx context.Context) (map[string]int, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT COALESCE(primary_diagnosis, ''), COUNT(*)
		FROM assessment
		GROUP BY 1`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	breakdown := map[string]int{}
	for rows.Next() {
		var diag string
		var count int
		if err := rows.Scan(&diag, &count); err != nil {
			return nil, err
		}
		breakdown[diag] = count
	}
	return breakdown, rows.Err()
}

func scanAssessment(row pgx.Row) (*Assessment, error) {
	a := &Assessment{}
	var alcohol, smoking, hasSideEffects, techniqueCorrect *bool
	var patHN, patFirst, patLast *string
	var patAge *int

	err := row.Scan(&a.ID, &a.HospitalNumber, &a.AssessmentDate, &a.AssessedBy,
		&alcohol, &a.AlcoholAmount, &smoking, &a.SmokingAmount,
		&a.PrimaryDiagnosis, &a.SecondaryDiagnoses, &a.Note,
		&a.AsthmaData, &a.COPDData, &a.ARData,
		&a.ComplianceStatus, &a.CompliancePercent, &a.CannotAssessReason,
		&a.NonComplianceReasons, &a.LessThanDetail, &a.MoreThanDetail, &a.NonComplianceOther,
		&hasSideEffects, &a.SideEffects, &a.SideEffectsOther, &a.SideEffectsManagement, &a.DRPs,
		&a.MedicationStatus, &a.UnopenedMedication, &a.Medications,
		&techniqueCorrect, &a.InhalerDevices, &a.TechniqueSteps, &a.SpacerType,
		&a.CreatedAt, &a.UpdatedAt,
		&patHN, &patFirst, &patLast, &patAge)
	if err != nil {
		return nil, err
	}

	a.Alcohol = TriFromBool(alcohol)
	a.Smoking = TriFromBool(smoking)
	a.HasSideEffects = TriFromBool(hasSideEffects)
	a.TechniqueCorrect = TriFromBool(techniqueCorrect)

	if a.SecondaryDiagnoses == nil {
		a.SecondaryDiagnoses = []string{}
	}
	if a.NonComplianceReasons == nil {
		a.NonComplianceReasons = []string{}
	}
	if a.SideEffects == nil {
		a.SideEffects = []string{}
	}
	if a.InhalerDevices == nil {
		a.InhalerDevices = []string{}
	}
	if a.Medications == nil {
		a.Medications = []MedicationItem{}
	}

	if patHN != nil {
		a.Patient = &PatientSummary{
			HospitalNumber: *patHN,
			FirstName:      patFirst,
			LastName:       patLast,
			Age:            patAge,
		}
	}
	return a, nil
}
