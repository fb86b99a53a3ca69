package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/campsift/internal/domain/model"
)

// maxCampAge closes open-ended ranges: "Age 9+" means 9 through 18.
const maxCampAge = 18

var (
	gradeRangeRe = regexp.MustCompile(`(?i)\bgrades?\s+(k|\d{1,2})\s*(?:[-–—]|to)\s*(k|\d{1,2})\b`)
	ageRangeRe   = regexp.MustCompile(`(?i)\bages?\s+(\d{1,2})\s*(?:[-–—]|to)\s*(\d{1,2})\b`)
	agePlusRe    = regexp.MustCompile(`(?i)\bages?\s+(\d{1,2})\s*\+`)
	yearsRangeRe = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(?:[-–—]|to)\s*(\d{1,2})\s*years?\b`)
	bareRangeRe  = regexp.MustCompile(`^\s*(\d{1,2})\s*[-–—]\s*(\d{1,2})\s*$`)
)

// AgeGrade parses an eligibility requirement into either age shape or grade
// shape. Recognized forms: "Ages 5-12", "Grades K-5" (K is grade 0),
// "Age 9+", "6 to 10 years", and a bare "5-12".
//
// The shape is keyword-driven: "Grade(s)" forces grade shape, "Age(s)" and
// "years" force age shape. A bare numeric range parses as ages.
func AgeGrade(raw string) (model.AgeGradeRange, bool) {
	if strings.TrimSpace(raw) == "" {
		return model.AgeGradeRange{}, false
	}

	if m := gradeRangeRe.FindStringSubmatch(raw); m != nil {
		minGrade := gradeValue(m[1])
		maxGrade := gradeValue(m[2])
		if minGrade <= maxGrade {
			return model.AgeGradeRange{MinGrade: &minGrade, MaxGrade: &maxGrade}, true
		}
		return model.AgeGradeRange{}, false
	}

	if m := ageRangeRe.FindStringSubmatch(raw); m != nil {
		return ageRange(m[1], m[2])
	}

	if m := agePlusRe.FindStringSubmatch(raw); m != nil {
		minAge, _ := strconv.Atoi(m[1])
		maxAge := maxCampAge
		if minAge > maxAge {
			return model.AgeGradeRange{}, false
		}
		return model.AgeGradeRange{MinAge: &minAge, MaxAge: &maxAge}, true
	}

	if m := yearsRangeRe.FindStringSubmatch(raw); m != nil {
		return ageRange(m[1], m[2])
	}

	if m := bareRangeRe.FindStringSubmatch(raw); m != nil {
		return ageRange(m[1], m[2])
	}

	return model.AgeGradeRange{}, false
}

func ageRange(minText, maxText string) (model.AgeGradeRange, bool) {
	minAge, _ := strconv.Atoi(minText)
	maxAge, _ := strconv.Atoi(maxText)
	if minAge > maxAge {
		return model.AgeGradeRange{}, false
	}
	return model.AgeGradeRange{MinAge: &minAge, MaxAge: &maxAge}, true
}

// gradeValue maps "K" to grade 0.
func gradeValue(s string) int {
	if strings.EqualFold(s, "k") {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
