package parse

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/okian/campsift/internal/domain/model"
)

const hoursPerMeridiem = 12

// Matches "9:00 AM - 3:00 PM" and compact forms like "9am-3pm" or "9-3pm".
// The start meridiem may be omitted; the end meridiem is required.
var timeRangeRe = regexp.MustCompile(`(?i)^\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)?\s*[-–—]\s*(\d{1,2})(?::(\d{2}))?\s*(am|pm)\s*$`)

// TimeRange parses a drop-off/pick-up time range, normalizing both ends to
// 24-hour hour/minute integers.
func TimeRange(raw string) (start, end model.TimeOfDay, ok bool) {
	m := timeRangeRe.FindStringSubmatch(raw)
	if m == nil {
		return model.TimeOfDay{}, model.TimeOfDay{}, false
	}

	startHour, _ := strconv.Atoi(m[1])
	startMinute := atoiOrZero(m[2])
	startMeridiem := strings.ToLower(m[3])
	endHour, _ := strconv.Atoi(m[4])
	endMinute := atoiOrZero(m[5])
	endMeridiem := strings.ToLower(m[6])

	if startHour < 1 || startHour > 12 || endHour < 1 || endHour > 12 ||
		startMinute > 59 || endMinute > 59 {
		return model.TimeOfDay{}, model.TimeOfDay{}, false
	}

	// "9-3pm" omits the start meridiem; inherit the end's, then pull the
	// start back twelve hours if that would run the range backwards.
	inherited := startMeridiem == ""
	if inherited {
		startMeridiem = endMeridiem
	}

	start = model.TimeOfDay{Hour: to24Hour(startHour, startMeridiem), Minute: startMinute}
	end = model.TimeOfDay{Hour: to24Hour(endHour, endMeridiem), Minute: endMinute}

	if inherited && (start.Hour > end.Hour || (start.Hour == end.Hour && start.Minute > end.Minute)) {
		start.Hour -= hoursPerMeridiem
		if start.Hour < 0 {
			return model.TimeOfDay{}, model.TimeOfDay{}, false
		}
	}

	return start, end, true
}

// to24Hour converts a 12-hour clock reading to a 24-hour hour.
func to24Hour(hour int, meridiem string) int {
	switch meridiem {
	case "pm":
		if hour < hoursPerMeridiem {
			return hour + hoursPerMeridiem
		}
	case "am":
		if hour == hoursPerMeridiem {
			return 0
		}
	}
	return hour
}

func atoiOrZero(s string) int {
	if s == "" {
		return 0
	}
	n, _ := strconv.Atoi(s)
	return n
}
