package assessment

import (
	"math"
	"time"
)

// AsthmaControlCounts buckets assessments by asthma control level.
type AsthmaControlCounts struct {
	WellControlled   int `json:"wellControlled"`
	PartlyControlled int `json:"partlyControlled"`
	Uncontrolled     int `json:"uncontrolled"`
	NotApplicable    int `json:"notApplicable"`
}

// COPDStageCounts buckets assessments by COPD stage.
type COPDStageCounts struct {
	StageA        int `json:"stageA"`
	StageB        int `json:"stageB"`
	StageE        int `json:"stageE"`
	NotApplicable int `json:"notApplicable"`
}

// ComplianceRangeCounts buckets assessments by compliance percentage.
type ComplianceRangeCounts struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Fair      int `json:"fair"`
	Poor      int `json:"poor"`
}

// TechniqueCounts buckets assessments by the overall technique verdict.
type TechniqueCounts struct {
	Correct     int `json:"correct"`
	Incorrect   int `json:"incorrect"`
	NotAssessed int `json:"notAssessed"`
}

// Stats is the aggregate section of a statistics report.
type Stats struct {
	TotalAssessments         int                   `json:"totalAssessments"`
	TotalPatients            int                   `json:"totalPatients"`
	RecentAssessments        int                   `json:"recentAssessments"`
	AsthmaControl            AsthmaControlCounts   `json:"asthmaControl"`
	COPDStage                COPDStageCounts       `json:"copdStage"`
	ComplianceRanges         ComplianceRangeCounts `json:"complianceRanges"`
	AvgComplianceByDiagnosis map[string]float64    `json:"avgComplianceByDiagnosis"`
	SideEffectsPrevalence    map[string]int        `json:"sideEffectsPrevalence"`
	TechniqueCorrectness     TechniqueCounts       `json:"techniqueCorrectness"`
}

// Percentages is the derived-rate section of a statistics report.
type Percentages struct {
	SideEffectsRate      float64 `json:"sideEffectsRate"`
	TechniqueCorrectRate float64 `json:"techniqueCorrectRate"`
}

// StatsReport is the aggregated view over a set of assessments.
type StatsReport struct {
	Stats       Stats       `json:"stats"`
	Percentages Percentages `json:"percentages"`
}

// Aggregate computes summary statistics over a set of assessments. The now
// argument anchors the recent-activity window. The input is typically already
// filtered by date range and diagnosis.
func Aggregate(list []*Assessment, now time.Time) *StatsReport {
	report := &StatsReport{
		Stats: Stats{
			TotalAssessments:         len(list),
			AvgComplianceByDiagnosis: map[string]float64{},
			SideEffectsPrevalence:    map[string]int{},
		},
	}

	patients := make(map[string]bool)
	recentCutoff := now.Add(-7 * 24 * time.Hour)
	complianceSum := make(map[string]int)
	complianceCount := make(map[string]int)
	sideEffectsPresent := 0

	for _, a := range list {
		patients[a.HospitalNumber] = true
		if !a.CreatedAt.Before(recentCutoff) {
			report.Stats.RecentAssessments++
		}

		diag := ""
		if a.PrimaryDiagnosis != nil {
			diag = *a.PrimaryDiagnosis
		}

		// A recorded control level or stage buckets the assessment
		// regardless of diagnosis; otherwise a matching diagnosis with
		// no answer counts as not applicable.
		controlLevel := ""
		if a.AsthmaData != nil {
			controlLevel = a.AsthmaData.ControlLevel
		}
		switch controlLevel {
		case ControlWell:
			report.Stats.AsthmaControl.WellControlled++
		case ControlPartly:
			report.Stats.AsthmaControl.PartlyControlled++
		case ControlUncontrolled:
			report.Stats.AsthmaControl.Uncontrolled++
		default:
			if diag == DiagAsthma {
				report.Stats.AsthmaControl.NotApplicable++
			}
		}

		stage := ""
		if a.COPDData != nil {
			stage = a.COPDData.Stage
		}
		switch stage {
		case "A":
			report.Stats.COPDStage.StageA++
		case "B":
			report.Stats.COPDStage.StageB++
		case "E":
			report.Stats.COPDStage.StageE++
		default:
			if diag == DiagCOPD {
				report.Stats.COPDStage.NotApplicable++
			}
		}

		switch {
		case a.CompliancePercent >= 80:
			report.Stats.ComplianceRanges.Excellent++
		case a.CompliancePercent >= 60:
			report.Stats.ComplianceRanges.Good++
		case a.CompliancePercent >= 40:
			report.Stats.ComplianceRanges.Fair++
		default:
			report.Stats.ComplianceRanges.Poor++
		}

		if diag != "" {
			complianceSum[diag] += a.CompliancePercent
			complianceCount[diag]++
		}

		if a.HasSideEffects == TriTrue {
			sideEffectsPresent++
			for _, tag := range a.SideEffects {
				report.Stats.SideEffectsPrevalence[tag]++
			}
		}

		switch a.TechniqueCorrect {
		case TriTrue:
			report.Stats.TechniqueCorrectness.Correct++
		case TriFalse:
			report.Stats.TechniqueCorrectness.Incorrect++
		default:
			report.Stats.TechniqueCorrectness.NotAssessed++
		}
	}

	report.Stats.TotalPatients = len(patients)

	for diag, count := range complianceCount {
		report.Stats.AvgComplianceByDiagnosis[diag] = round1(float64(complianceSum[diag]) / float64(count))
	}

	if len(list) > 0 {
		report.Percentages.SideEffectsRate = round1(float64(sideEffectsPresent) / float64(len(list)) * 100)
	}
	// Not-assessed rows stay out of the technique denominator.
	assessed := report.Stats.TechniqueCorrectness.Correct + report.Stats.TechniqueCorrectness.Incorrect
	if assessed > 0 {
		report.Percentages.TechniqueCorrectRate = round1(float64(report.Stats.TechniqueCorrectness.Correct) / float64(assessed) * 100)
	}

	return report
}

func round1(x float64) float64 {
	return math.Round(x*10) / 10
}
