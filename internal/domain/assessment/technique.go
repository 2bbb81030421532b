package assessment

import "sort"

// NormalizeTechnique cleans a submitted step matrix and derives the device
// list from it. Only entries whose status is exactly "correct" or
// "incorrect" survive; "none" placeholders from the form are dropped. Every
// fixed step is present in the output, as an empty map when nothing was
// recorded. The returned devices are exactly the devices that survived the
// filter, sorted for stable output.
//
// The devices list is always derived here and never trusted from input.
func NormalizeTechnique(steps TechniqueSteps) (TechniqueSteps, []string) {
	normalized := make(TechniqueSteps, len(TechniqueStepOrder))
	deviceSet := make(map[string]bool)

	for _, step := range TechniqueStepOrder {
		entries := make(map[string]StepEntry)
		for device, entry := range steps[step] {
			if entry.Status != "correct" && entry.Status != "incorrect" {
				continue
			}
			deviceSet[device] = true
			entries[device] = StepEntry{Status: entry.Status, Note: entry.Note}
		}
		normalized[step] = entries
	}

	devices := make([]string, 0, len(deviceSet))
	for device := range deviceSet {
		devices = append(devices, device)
	}
	sort.Strings(devices)

	return normalized, devices
}

// matrixDevices returns the devices appearing anywhere in the matrix, in
// fixed step order and sorted within each step.
func matrixDevices(steps TechniqueSteps) []string {
	seen := make(map[string]bool)
	var devices []string
	for _, step := range TechniqueStepOrder {
		keys := make([]string, 0, len(steps[step]))
		for device := range steps[step] {
			keys = append(keys, device)
		}
		sort.Strings(keys)
		for _, device := range keys {
			if !seen[device] {
				seen[device] = true
				devices = append(devices, device)
			}
		}
	}
	return devices
}
