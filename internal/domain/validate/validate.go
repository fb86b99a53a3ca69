// Package validate scores scraped session candidates for completeness and
// surfaces data quality problems without ever rejecting a record outright.
package validate

import (
	"fmt"
	"math"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/okian/campsift/internal/domain/model"
	"github.com/okian/campsift/internal/domain/parse"
)

// Required-field group names, in reporting order.
const (
	FieldStartDate   = "start_date"
	FieldEndDate     = "end_date"
	FieldDropOffTime = "drop_off_time"
	FieldPickUpTime  = "pick_up_time"
	FieldLocation    = "location"
	FieldAgeRange    = "age_range"
	FieldPrice       = "price"
)

// requiredFieldCount is the number of required-field groups checked for
// presence. The completeness score is the present fraction of these seven.
const requiredFieldCount = 7

// maxSessionSpanDays is the longest span a single non-flexible session is
// expected to cover. Longer spans are likely program overviews.
const maxSessionSpanDays = 21

// Location text shorter than this without a street or city token is treated
// as incomplete; text longer than maxSingleAddressLen with three or more
// commas is likely a list of venues.
const (
	minLocationLen      = 20
	maxSingleAddressLen = 100
	venueListCommaCount = 3
)

// placeholders are sentinel strings extractors emit for unknown values.
// Matched case-insensitively, so both `TBD` and `tbd` count as absent.
var placeholders = map[string]struct{}{
	"<unknown>": {},
	"unknown":   {},
	"tbd":       {},
	"n/a":       {},
	"null":      {},
	"undefined": {},
}

// genericLocations are placeholder venues that carry no address information.
var genericLocations = map[string]struct{}{
	"tbd":           {},
	"online":        {},
	"main location": {},
}

var streetTokenRe = regexp.MustCompile(`(?i)\d+\s+\w+|\b(st|street|ave|avenue|rd|road|blvd|boulevard|dr|drive|ln|lane|ct|court|way|plaza|park)\b`)

// FieldError is a non-fatal quality finding surfaced for operator review.
// It never by itself marks a field missing.
type FieldError struct {
	Field          string `json:"field"`
	Message        string `json:"error"`
	AttemptedValue string `json:"attempted_value,omitempty"`
}

// Result is the outcome of validating one candidate.
type Result struct {
	CompletenessScore int             `json:"completeness_score"`
	IsComplete        bool            `json:"is_complete"`
	MissingFields     []string        `json:"missing_fields"`
	Errors            []FieldError    `json:"errors"`
	Normalized        model.Candidate `json:"normalized"`
}

// Candidate validates and normalizes one scraped candidate. It never fails:
// a completely empty record is valid input and scores 0 with all seven
// required fields missing.
func Candidate(c model.Candidate) Result {
	res := Result{Normalized: c}

	present := 0
	present += normalizeDates(&res)
	present += normalizeTimes(&res)
	present += checkLocation(&res)
	present += normalizeAges(&res)
	present += normalizePrice(&res)
	checkRegistrationURL(&res)

	res.CompletenessScore = int(math.Round(float64(present) / requiredFieldCount * 100))
	res.IsComplete = len(res.MissingFields) == 0
	return res
}

// IsPlaceholder reports whether a scraped string is one of the sentinel
// "unknown" values, regardless of case.
func IsPlaceholder(s string) bool {
	_, ok := placeholders[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// textValue returns the usable content of a scraped string, treating
// placeholders as absent.
func textValue(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || IsPlaceholder(trimmed) {
		return "", false
	}
	return trimmed, true
}

// normalizeDates resolves the date range from parsed fields or raw text and
// returns how many of the start/end groups are present (0 or 2; a partial
// range counts the end only when both bounds resolved).
func normalizeDates(res *Result) int {
	c := &res.Normalized

	start, end := c.StartDate, c.EndDate
	flexible := c.FlexibleDates

	if start == nil || end == nil {
		if raw, ok := textValue(c.DateText); ok {
			if r, parsed := parse.DateRange(raw); parsed {
				// Extractor-provided bounds win; the text fills only
				// whichever bound is missing.
				if start == nil {
					start = &r.Start
				}
				if end == nil {
					end = &r.End
				}
				flexible = flexible || r.Flexible
			} else {
				res.Errors = append(res.Errors, FieldError{
					Field:          FieldStartDate,
					Message:        "date text could not be parsed into a calendar date",
					AttemptedValue: raw,
				})
			}
		}
	}

	present := 0
	if start != nil {
		present++
		c.StartDate = start
	} else {
		res.MissingFields = append(res.MissingFields, FieldStartDate)
	}
	if end != nil {
		present++
		c.EndDate = end
	} else {
		res.MissingFields = append(res.MissingFields, FieldEndDate)
	}
	c.FlexibleDates = flexible

	// The overview heuristic only runs on successfully parsed dates.
	if start != nil && end != nil && !flexible {
		if end.Sub(*start) > maxSessionSpanDays*24*time.Hour {
			res.Errors = append(res.Errors, FieldError{
				Field:   FieldEndDate,
				Message: fmt.Sprintf("date span exceeds %d days; likely a program overview, not a single session", maxSessionSpanDays),
			})
		}
	}

	return present
}

// normalizeTimes resolves drop-off and pick-up times, defaulting missing
// minutes to zero, and returns how many of the two groups are present.
func normalizeTimes(res *Result) int {
	c := &res.Normalized

	if c.DropOffHour == nil || c.PickUpHour == nil {
		if raw, ok := textValue(c.TimeText); ok {
			if start, end, parsed := parse.TimeRange(raw); parsed {
				if c.DropOffHour == nil {
					c.DropOffHour, c.DropOffMinute = intPtr(start.Hour), intPtr(start.Minute)
				}
				if c.PickUpHour == nil {
					c.PickUpHour, c.PickUpMinute = intPtr(end.Hour), intPtr(end.Minute)
				}
			}
		}
	}

	present := 0
	if c.DropOffHour != nil {
		present++
		if c.DropOffMinute == nil {
			c.DropOffMinute = intPtr(0)
		}
	} else {
		res.MissingFields = append(res.MissingFields, FieldDropOffTime)
	}
	if c.PickUpHour != nil {
		present++
		if c.PickUpMinute == nil {
			c.PickUpMinute = intPtr(0)
		}
	} else {
		res.MissingFields = append(res.MissingFields, FieldPickUpTime)
	}
	return present
}

// checkLocation decides location presence and flags suspicious values.
func checkLocation(res *Result) int {
	loc, ok := textValue(res.Normalized.Location)
	if !ok {
		res.MissingFields = append(res.MissingFields, FieldLocation)
		return 0
	}

	switch {
	case isGenericLocation(loc):
		res.Errors = append(res.Errors, FieldError{
			Field:          FieldLocation,
			Message:        "location is a generic placeholder",
			AttemptedValue: loc,
		})
	case len(loc) < minLocationLen && !streetTokenRe.MatchString(loc):
		res.Errors = append(res.Errors, FieldError{
			Field:          FieldLocation,
			Message:        "location looks incomplete",
			AttemptedValue: loc,
		})
	case strings.Count(loc, ",") >= venueListCommaCount && len(loc) > maxSingleAddressLen:
		res.Errors = append(res.Errors, FieldError{
			Field:          FieldLocation,
			Message:        "location is likely a list of venues, not a single address",
			AttemptedValue: loc,
		})
	}
	return 1
}

func isGenericLocation(loc string) bool {
	_, ok := genericLocations[strings.ToLower(loc)]
	return ok
}

// normalizeAges resolves the age/grade requirement. Any one of the four
// parsed fields satisfies the group; otherwise raw text is parsed.
func normalizeAges(res *Result) int {
	c := &res.Normalized

	ages := model.AgeGradeRange{MinAge: c.MinAge, MaxAge: c.MaxAge, MinGrade: c.MinGrade, MaxGrade: c.MaxGrade}
	if ages.IsZero() {
		if raw, ok := textValue(c.AgeText); ok {
			if r, parsed := parse.AgeGrade(raw); parsed {
				ages = r
			}
		}
	}

	if ages.IsZero() {
		res.MissingFields = append(res.MissingFields, FieldAgeRange)
		return 0
	}

	c.MinAge, c.MaxAge = ages.MinAge, ages.MaxAge
	c.MinGrade, c.MaxGrade = ages.MinGrade, ages.MaxGrade
	return 1
}

// normalizePrice resolves the price in cents. A price of exactly zero is a
// valid value (free camp) and counts as present; only an entirely unset
// price is missing.
func normalizePrice(res *Result) int {
	c := &res.Normalized

	if c.PriceCents == nil {
		if raw, ok := textValue(c.PriceText); ok {
			if cents, parsed := parse.Price(raw); parsed {
				c.PriceCents = intPtr(cents)
			}
		}
	}

	if c.PriceCents == nil {
		res.MissingFields = append(res.MissingFields, FieldPrice)
		return 0
	}
	return 1
}

// checkRegistrationURL flags malformed registration links. The URL is not a
// required field; a bad one only produces a quality error.
func checkRegistrationURL(res *Result) {
	raw, ok := textValue(res.Normalized.RegistrationURL)
	if !ok {
		return
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		res.Errors = append(res.Errors, FieldError{
			Field:          "registration_url",
			Message:        "registration URL is not a well-formed http(s) URL",
			AttemptedValue: raw,
		})
	}
}

func intPtr(v int) *int { return &v }
