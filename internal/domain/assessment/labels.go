package assessment

// diagnosisLabels maps diagnosis codes to the short labels used in report
// text. Codes without an entry render as themselves.
var diagnosisLabels = map[string]string{
	DiagAsthma:           "ASTHMA",
	DiagCOPD:             "COPD",
	DiagACOD:             "ACOD",
	DiagBronchiectasis:   "BRONCHIECTASIS",
	DiagAllergicRhinitis: "AR",
	DiagGERD:             "GERD",
}

// sideEffectLabels maps side-effect tags to the Thai labels used in report
// text. Unknown tags render as themselves.
var sideEffectLabels = map[string]string{
	"ORAL_CANDIDIASIS": "เชื้อราในปาก",
	"HOARSE_VOICE":     "เสียงแหบ",
	"PALPITATION":      "ใจสั่น",
}

func diagnosisLabel(code string) string {
	if label, ok := diagnosisLabels[code]; ok {
		return label
	}
	return code
}

func sideEffectLabel(tag string) string {
	if label, ok := sideEffectLabels[tag]; ok {
		return label
	}
	return tag
}
