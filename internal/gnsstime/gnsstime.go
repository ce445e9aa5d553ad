// Package gnsstime provides conversions between the time systems used in
// GNSS processing: Modified Julian Date, GPS week and day of week, year and
// day of year, and the single-character hour encoding used in session names
// and hourly file conventions.
package gnsstime

import (
	"fmt"
	"time"
)

const (
	// GPSEpochMJD is January 6, 1980 expressed as a Modified Julian Date.
	GPSEpochMJD = 44244.0

	// MJDOffset converts between Julian Date and Modified Julian Date.
	MJDOffset = 2400000.5
)

// MJD returns the Modified Julian Date for t. The fractional part carries the
// time of day.
func MJD(t time.Time) float64 {
	t = t.UTC()
	year, month, day := t.Date()

	a := (14 - int(month)) / 12
	y := year + 4800 - a
	m := int(month) + 12*a - 3

	jdn := day + (153*m+2)/5 + 365*y + y/4 - y/100 + y/400 - 32045

	frac := (float64(t.Hour()) +
		float64(t.Minute())/60.0 +
		(float64(t.Second())+float64(t.Nanosecond())/1e9)/3600.0) / 24.0

	return float64(jdn) - MJDOffset + frac
}

// FromMJD converts a Modified Julian Date back to a UTC time, truncated to
// whole seconds.
func FromMJD(mjd float64) time.Time {
	jd := mjd + MJDOffset

	z := int(jd + 0.5)
	f := jd + 0.5 - float64(z)

	var a int
	if z < 2299161 {
		a = z
	} else {
		alpha := int((float64(z) - 1867216.25) / 36524.25)
		a = z + 1 + alpha - alpha/4
	}

	b := a + 1524
	c := int((float64(b) - 122.1) / 365.25)
	d := int(365.25 * float64(c))
	e := int(float64(b-d) / 30.6001)

	day := b - d - int(30.6001*float64(e))
	month := e - 1
	if e >= 14 {
		month = e - 13
	}
	year := c - 4716
	if month <= 2 {
		year = c - 4715
	}

	hoursFloat := f * 24.0
	hour := int(hoursFloat)
	minutesFloat := (hoursFloat - float64(hour)) * 60.0
	minute := int(minutesFloat)
	second := int((minutesFloat-float64(minute))*60.0 + 0.5)
	if second >= 60 {
		second = 59
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC)
}

// GPSWeek returns the GPS week number and day of week (Sunday=0) for t.
func GPSWeek(t time.Time) (week, dow int) {
	days := MJD(t) - GPSEpochMJD
	week = int(days / 7)
	dow = int(days) % 7
	return week, dow
}

// FromGPSWeek returns the UTC time at the start of the given GPS week, day of
// week and seconds into the day.
func FromGPSWeek(week, dow int, seconds float64) time.Time {
	mjd := GPSEpochMJD + float64(week*7+dow) + seconds/86400.0
	return FromMJD(mjd)
}

// DOY returns the day of year (1-366) for t.
func DOY(t time.Time) int {
	return t.UTC().YearDay()
}

// FromDOY returns the UTC midnight of the given year and day of year.
func FromDOY(year, doy int) time.Time {
	return time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, doy-1)
}

// HourAlpha converts an hour (0-23) to its session character 'a'-'x'.
func HourAlpha(hour int) (string, error) {
	if hour < 0 || hour > 23 {
		return "", fmt.Errorf("hour must be 0-23, got %d", hour)
	}
	return string(rune('a' + hour)), nil
}

// AlphaHour converts a session character 'a'-'x' (either case) back to an
// hour.
func AlphaHour(alpha string) (int, error) {
	if len(alpha) != 1 {
		return 0, fmt.Errorf("alpha must be a single character, got %q", alpha)
	}
	c := alpha[0]
	if c >= 'A' && c <= 'X' {
		c += 'a' - 'A'
	}
	if c < 'a' || c > 'x' {
		return 0, fmt.Errorf("alpha must be a-x, got %q", alpha)
	}
	return int(c - 'a'), nil
}

// YYDDD formats t as a 2-digit year followed by the 3-digit day of year.
func YYDDD(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%02d%03d", t.Year()%100, DOY(t))
}

// YYYYDDD formats t as a 4-digit year followed by the 3-digit day of year.
func YYYYDDD(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%04d%03d", t.Year(), DOY(t))
}
