package classify

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Condition of the tested shoulder, parsed from the filename.
const (
	ConditionNO      = "NO"   // non-operated control
	ConditionOPER    = "OPER" // operated
	ConditionUnknown = "Unknown"
)

// Treatment subgroup a sample belongs to.
const (
	SubgroupNON        = "NON"
	SubgroupTFL        = "TFL"
	SubgroupMSC        = "MSC"
	SubgroupUnassigned = "Unassigned"
)

var (
	subjectPattern = regexp.MustCompile(`^[A-Z]\d{1,2}$`)
	datePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
)

// Classify parses a data filename such as "SSP_2025-03-20_D1_OPER.csv" into
// (subject id, condition, subgroup). Group membership lists decide the
// subgroup for operated samples; non-operated samples always land in the
// control group. Unknown condition excludes the file from analysis; an
// unknown subject id alone does not.
func Classify(filename string, tflIDs, mscIDs []string) (sampleID, condition, subgroup string) {
	sampleID, condition = ParseFilename(filename)
	if sampleID == "" {
		sampleID = "Unknown"
	}

	subgroup = SubgroupUnassigned
	switch condition {
	case ConditionNO:
		subgroup = SubgroupNON
	case ConditionOPER:
		if contains(tflIDs, sampleID) {
			subgroup = SubgroupTFL
		} else if contains(mscIDs, sampleID) {
			subgroup = SubgroupMSC
		}
	}
	return sampleID, condition, subgroup
}

// ParseFilename extracts the subject id and test condition. The subject id
// is the first underscore-separated token shaped like one uppercase letter
// followed by 1-2 digits; empty when no token matches.
func ParseFilename(filename string) (subjectID, condition string) {
	condition = ConditionUnknown
	if strings.Contains(filename, "_NO") || strings.Contains(filename, "_NO.") {
		condition = ConditionNO
	} else if strings.Contains(filename, "_OPER") {
		condition = ConditionOPER
	}

	base := strings.TrimSuffix(filename, filepath.Ext(filename))
	for _, part := range strings.Split(base, "_") {
		if subjectPattern.MatchString(part) {
			subjectID = part
			break
		}
	}
	return subjectID, condition
}

// TestDate returns the embedded YYYY-MM-DD test date, or "" when the
// filename carries none.
func TestDate(filename string) string {
	parts := strings.Split(filename, "_")
	if len(parts) >= 2 && datePattern.MatchString(parts[1]) {
		return parts[1]
	}
	return ""
}

// SampleKey builds the relational sample key "<subject>_<condition>"
// (e.g. "D1_OPER"). Empty when either part is unknown.
func SampleKey(filename string) string {
	subjectID, condition := ParseFilename(filename)
	if subjectID == "" || condition == ConditionUnknown {
		return ""
	}
	return subjectID + "_" + condition
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
