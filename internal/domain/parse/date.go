// Package parse provides pure field parsers for scraped session text.
//
// Every parser is total: unparseable input yields a typed "no result"
// (ok == false), never an error or a panic. Callers keep the raw text for
// diagnostics.
package parse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/okian/campsift/internal/domain/model"
)

// Flexible season bounds: "Summer YYYY" spans June 1 through August 31.
const (
	seasonStartMonth = time.June
	seasonStartDay   = 1
	seasonEndMonth   = time.August
	seasonEndDay     = 31
)

var (
	summerRe     = regexp.MustCompile(`(?i)^\s*summer\s+(\d{4})\s*$`)
	monthSpanRe  = regexp.MustCompile(`(?i)^\s*([a-z]+)\.?\s+(\d{1,2})\s*[-–—]\s*(\d{1,2})\s*,?\s*(\d{4})\s*$`)
	crossMonthRe = regexp.MustCompile(`(?i)^\s*([a-z]+)\.?\s+(\d{1,2})\s*[-–—]\s*([a-z]+)\.?\s+(\d{1,2})\s*,?\s*(\d{4})\s*$`)
	slashSpanRe  = regexp.MustCompile(`^\s*(\d{1,2})/(\d{1,2})/(\d{4})\s*[-–—]\s*(\d{1,2})/(\d{1,2})/(\d{4})\s*$`)
)

// DateRange parses a scraped date range. Accepted shapes:
//
//	"July 7-11, 2026"
//	"June 30 - July 4, 2026"
//	"06/15/2026 - 06/19/2026"
//	"Summer 2026" (flexible season, June 1 through August 31)
func DateRange(raw string) (model.DateRange, bool) {
	if strings.TrimSpace(raw) == "" {
		return model.DateRange{}, false
	}

	if m := summerRe.FindStringSubmatch(raw); m != nil {
		year, _ := strconv.Atoi(m[1])
		return model.DateRange{
			Start:    time.Date(year, seasonStartMonth, seasonStartDay, 0, 0, 0, 0, time.UTC),
			End:      time.Date(year, seasonEndMonth, seasonEndDay, 0, 0, 0, 0, time.UTC),
			Flexible: true,
		}, true
	}

	if m := monthSpanRe.FindStringSubmatch(raw); m != nil {
		month, ok := parseMonth(m[1])
		if ok {
			startDay, _ := strconv.Atoi(m[2])
			endDay, _ := strconv.Atoi(m[3])
			year, _ := strconv.Atoi(m[4])
			if !validDay(startDay) || !validDay(endDay) {
				return model.DateRange{}, false
			}
			return newRange(
				time.Date(year, month, startDay, 0, 0, 0, 0, time.UTC),
				time.Date(year, month, endDay, 0, 0, 0, 0, time.UTC),
			)
		}
	}

	if m := crossMonthRe.FindStringSubmatch(raw); m != nil {
		startMonth, okStart := parseMonth(m[1])
		endMonth, okEnd := parseMonth(m[3])
		if okStart && okEnd {
			startDay, _ := strconv.Atoi(m[2])
			endDay, _ := strconv.Atoi(m[4])
			year, _ := strconv.Atoi(m[5])
			if !validDay(startDay) || !validDay(endDay) {
				return model.DateRange{}, false
			}
			return newRange(
				time.Date(year, startMonth, startDay, 0, 0, 0, 0, time.UTC),
				time.Date(year, endMonth, endDay, 0, 0, 0, 0, time.UTC),
			)
		}
	}

	if m := slashSpanRe.FindStringSubmatch(raw); m != nil {
		sm, _ := strconv.Atoi(m[1])
		sd, _ := strconv.Atoi(m[2])
		sy, _ := strconv.Atoi(m[3])
		em, _ := strconv.Atoi(m[4])
		ed, _ := strconv.Atoi(m[5])
		ey, _ := strconv.Atoi(m[6])
		if sm >= 1 && sm <= 12 && em >= 1 && em <= 12 && validDay(sd) && validDay(ed) {
			return newRange(
				time.Date(sy, time.Month(sm), sd, 0, 0, 0, 0, time.UTC),
				time.Date(ey, time.Month(em), ed, 0, 0, 0, 0, time.UTC),
			)
		}
	}

	return model.DateRange{}, false
}

// newRange rejects spans whose normalized dates rolled over (e.g. June 45)
// or run backwards.
func newRange(start, end time.Time) (model.DateRange, bool) {
	if end.Before(start) {
		return model.DateRange{}, false
	}
	return model.DateRange{Start: start, End: end}, true
}

func validDay(d int) bool {
	return d >= 1 && d <= 31
}

// parseMonth accepts full and abbreviated English month names.
func parseMonth(name string) (time.Month, bool) {
	name = strings.TrimSuffix(strings.TrimSpace(name), ".")
	if t, err := time.Parse("January", name); err == nil {
		return t.Month(), true
	}
	if t, err := time.Parse("Jan", name); err == nil {
		return t.Month(), true
	}
	return 0, false
}
