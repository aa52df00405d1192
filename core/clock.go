package core

import "time"

// DateLayout is the layout of calendar dates stored and exchanged by the app.
const DateLayout = "2006-01-02"

// NowFunc is mockable.
var NowFunc = time.Now

// LocalDate returns the calendar date of t in loc.
func LocalDate(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(DateLayout)
}

// NextMidnight returns the first instant of the day after t, in loc.
func NextMidnight(t time.Time, loc *time.Location) time.Time {
	lt := t.In(loc)
	return time.Date(lt.Year(), lt.Month(), lt.Day()+1, 0, 0, 0, 0, loc)
}

// ParseDate parses a YYYY-MM-DD date in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}
