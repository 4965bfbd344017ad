// Package lima holds civil-day arithmetic for the America/Lima time zone,
// which every report and export in the system is keyed on.
package lima

import (
	"fmt"
	"regexp"
	"time"
	_ "time/tzdata"
)

const (
	DateLayout  = "2006-01-02"
	MonthLayout = "2006-01"
)

var (
	datePattern  = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	monthPattern = regexp.MustCompile(`^\d{4}-\d{2}$`)
)

// Location is America/Lima, falling back to a fixed UTC-5 zone (Peru has no DST).
var Location = loadLocation()

func loadLocation() *time.Location {
	loc, err := time.LoadLocation("America/Lima")
	if err != nil {
		return time.FixedZone("America/Lima", -5*60*60)
	}
	return loc
}

// DateOf returns the Lima civil date of t as YYYY-MM-DD.
func DateOf(t time.Time) string {
	return t.In(Location).Format(DateLayout)
}

// ValidDate reports whether s is a well-formed, existing YYYY-MM-DD date.
func ValidDate(s string) bool {
	if !datePattern.MatchString(s) {
		return false
	}
	_, err := time.ParseInLocation(DateLayout, s, Location)
	return err == nil
}

func ValidMonth(s string) bool {
	if !monthPattern.MatchString(s) {
		return false
	}
	_, err := time.ParseInLocation(MonthLayout, s, Location)
	return err == nil
}

// DayBounds returns the half-open UTC interval [start, end) covering the
// Lima civil day named by date.
func DayBounds(date string) (time.Time, time.Time, error) {
	day, err := time.ParseInLocation(DateLayout, date, Location)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid date %q: %w", date, err)
	}
	return day.UTC(), day.AddDate(0, 0, 1).UTC(), nil
}

// MonthRange returns the date strings bounding month as [YYYY-MM-01, next-01).
func MonthRange(month string) (string, string, error) {
	first, err := time.ParseInLocation(MonthLayout, month, Location)
	if err != nil {
		return "", "", fmt.Errorf("invalid month %q: %w", month, err)
	}
	return first.Format(DateLayout), first.AddDate(0, 1, 0).Format(DateLayout), nil
}

// AddDays shifts a YYYY-MM-DD date by n civil days.
func AddDays(date string, n int) (string, error) {
	day, err := time.ParseInLocation(DateLayout, date, Location)
	if err != nil {
		return "", fmt.Errorf("invalid date %q: %w", date, err)
	}
	return day.AddDate(0, 0, n).Format(DateLayout), nil
}

// DatesEndingAt lists count consecutive dates finishing at end, oldest first.
func DatesEndingAt(end string, count int) ([]string, error) {
	if count < 1 {
		return nil, fmt.Errorf("count must be positive")
	}
	first, err := AddDays(end, -(count - 1))
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, count)
	for i := 0; i < count; i++ {
		d, err := AddDays(first, i)
		if err != nil {
			return nil, err
		}
		dates = append(dates, d)
	}
	return dates, nil
}
