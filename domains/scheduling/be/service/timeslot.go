package service

import "time"

const (
	dateLayout  = "2006-01-02"
	clockLayout = "15:04"
)

// validDate accepts calendar dates in canonical "YYYY-MM-DD" form only; a
// round-trip through the layout rejects shorthand like "2026-6-1".
func validDate(s string) bool {
	t, err := time.Parse(dateLayout, s)
	return err == nil && t.Format(dateLayout) == s
}

// validClock accepts fixed-width "HH:MM" wall-clock strings. The fixed width
// is what makes lexicographic comparison equal chronological comparison.
func validClock(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse(clockLayout, s)
	return err == nil
}

// validateTimeslot accumulates field errors for a (date, start, end) triple.
func validateTimeslot(fields FieldErrors, date, startTime, endTime string) {
	if !validDate(date) {
		fields.add("date", "must be a calendar date in YYYY-MM-DD form")
	}
	if !validClock(startTime) {
		fields.add("startTime", "must be a time in HH:MM form")
	}
	if !validClock(endTime) {
		fields.add("endTime", "must be a time in HH:MM form")
	}
	if validClock(startTime) && validClock(endTime) && startTime >= endTime {
		fields.add("endTime", "must be after startTime")
	}
}
