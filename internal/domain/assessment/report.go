package assessment

import (
	"fmt"
	"strings"
)

// ReportText renders an assessment into the fixed-template summary text the
// clinic pastes into its external charting system. The function is pure:
// missing data degrades to "-", "ไม่มี" or 0, never an error.
func ReportText(a *Assessment) string {
	var b strings.Builder

	b.WriteString("Asthma/COPD ambulatory: " + orDash(a.AssessedBy) + "\n")
	b.WriteString("Dx: " + diagnosisLine(a) + "\n")
	b.WriteString("Level of controlled: " + controlLine(a) + "\n")
	b.WriteString("Note/Risk factor: " + orDash(deref(a.Note)) + "\n")
	b.WriteString("AR: " + arLine(a) + "\n")
	b.WriteString("เทคนิคพ่นยา: " + techniqueLine(a) + "\n")
	b.WriteString(fmt.Sprintf("Patient Compliance: %d%%", a.CompliancePercent) + complianceReasonSuffix(a) + "\n")
	b.WriteString("ADR: " + adrLine(a) + "\n")
	b.WriteString("Other: " + orDash(deref(a.DRPs)) + "\n")
	b.WriteString("ยาเหลือ: " + medicationLine(a))

	return b.String()
}

func diagnosisLine(a *Assessment) string {
	if a.PrimaryDiagnosis == nil || *a.PrimaryDiagnosis == "" {
		return "-"
	}
	return diagnosisLabel(*a.PrimaryDiagnosis)
}

// controlLine prefers the asthma control level; a COPD stage is used when no
// control level exists.
func controlLine(a *Assessment) string {
	if a.AsthmaData != nil && a.AsthmaData.ControlLevel != "" {
		switch a.AsthmaData.ControlLevel {
		case ControlWell:
			return "Well controlled (0 ข้อ)"
		case ControlPartly:
			return "Partly controlled (1-2 ข้อ)"
		default:
			return "Uncontrolled (3-4 ข้อ)"
		}
	}
	if a.COPDData != nil && a.COPDData.Stage != "" {
		return "Stage " + a.COPDData.Stage
	}
	return "-"
}

func arLine(a *Assessment) string {
	if a.ARData == nil {
		return "-"
	}
	line := orDash(a.ARData.Symptoms)

	var qualifiers []string
	if a.ARData.Severity != "" {
		qualifiers = append(qualifiers, a.ARData.Severity)
	}
	if a.ARData.Pattern != "" {
		qualifiers = append(qualifiers, a.ARData.Pattern)
	}
	if len(qualifiers) > 0 {
		line += " (" + strings.Join(qualifiers, ", ") + ")"
	}
	return line
}

// techniqueLine summarizes the step matrix per device. An overall "correct"
// verdict lists every device with the all-correct phrase; otherwise each
// device renders its incorrect-step notes.
func techniqueLine(a *Assessment) string {
	devices := matrixDevices(a.TechniqueSteps)

	if a.TechniqueCorrect.IsTrue() {
		if len(devices) == 0 {
			return "ถูกต้องทุกขั้นตอน"
		}
		results := make([]string, 0, len(devices))
		for _, device := range devices {
			results = append(results, device+": ถูกต้องทุกขั้นตอน")
		}
		return strings.Join(results, ", ")
	}

	if len(devices) == 0 {
		return "-"
	}

	results := make([]string, 0, len(devices))
	for _, device := range devices {
		hasAnyStatus := false
		allCorrect := true
		var incorrectNotes []string

		for _, step := range TechniqueStepOrder {
			entry, ok := a.TechniqueSteps[step][device]
			if !ok {
				continue
			}
			hasAnyStatus = true
			if entry.Status == "incorrect" {
				allCorrect = false
				if note := strings.TrimSpace(entry.Note); note != "" {
					incorrectNotes = append(incorrectNotes, note)
				}
			}
		}

		switch {
		case !hasAnyStatus:
			results = append(results, device+": -")
		case allCorrect:
			results = append(results, device+": ถูกต้องทุกขั้นตอน")
		case len(incorrectNotes) > 0:
			results = append(results, device+": "+strings.Join(incorrectNotes, ", "))
		default:
			results = append(results, device+": มีข้อผิดพลาด")
		}
	}
	return strings.Join(results, ", ")
}

// complianceReasonSuffix is appended to the compliance line when the
// under/over-use tags carry free-text details.
func complianceReasonSuffix(a *Assessment) string {
	var reasons []string
	if containsString(a.NonComplianceReasons, ReasonLessThan) && a.LessThanDetail != nil && *a.LessThanDetail != "" {
		reasons = append(reasons, "น้อยกว่า "+*a.LessThanDetail)
	}
	if containsString(a.NonComplianceReasons, ReasonMoreThan) && a.MoreThanDetail != nil && *a.MoreThanDetail != "" {
		reasons = append(reasons, "มากกว่า "+*a.MoreThanDetail)
	}
	if len(reasons) == 0 {
		return ""
	}
	return "\nเหตุผล: " + strings.Join(reasons, "; ")
}

// adrLine renders "ไม่มี" unless the answer is an explicit yes; the stored
// side-effect list and management note are ignored otherwise.
func adrLine(a *Assessment) string {
	if !a.HasSideEffects.IsTrue() {
		return "ไม่มี"
	}
	var parts []string
	for _, tag := range a.SideEffects {
		parts = append(parts, sideEffectLabel(tag))
	}
	if a.SideEffectsOther != nil && *a.SideEffectsOther != "" {
		parts = append(parts, *a.SideEffectsOther)
	}
	line := strings.Join(parts, ", ")
	if a.SideEffectsManagement != nil && *a.SideEffectsManagement != "" {
		line += " (การจัดการ: " + *a.SideEffectsManagement + ")"
	}
	return line
}

func medicationLine(a *Assessment) string {
	if a.MedicationStatus == nil || *a.MedicationStatus != MedHasRemaining {
		return "ไม่เหลือ"
	}
	if len(a.Medications) == 0 {
		return "มี"
	}
	items := make([]string, 0, len(a.Medications))
	for _, med := range a.Medications {
		items = append(items, fmt.Sprintf("%s (%s)", med.Name, med.Quantity))
	}
	return strings.Join(items, ", ")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func containsString(list []string, want string) bool {
	for _, s := range list {
		if s == want {
			return true
		}
	}
	return false
}
