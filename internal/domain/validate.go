package domain

import (
	"math"
	"strconv"
	"strings"
	"time"
)

// Ranges shared by both codecs.
const (
	LatitudeMin  = -90.0
	LatitudeMax  = 90.0
	LongitudeMin = -180.0
	LongitudeMax = 180.0

	WindDirectionMin = 0.0
	WindDirectionMax = 360.0
	WindSpeedMin     = 0.0
	CloudCoverMin    = 0
	CloudCoverMax    = 8

	TenthsMin  = 0
	TenthsMax  = 10
	PercentMin = 0.0
	PercentMax = 100.0
)

var (
	// timestampLayouts are tried in order for single-cell timestamps.
	timestampLayouts = []string{
		time.RFC3339Nano,
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006/01/02 15:04:05",
		"2006/01/02 15:04",
		"2006-01-02",
		"2006/01/02",
	}

	dateLayouts = []string{
		"2006-01-02",
		"2006/01/02",
		"20060102",
		"02.01.2006",
	}

	clockLayouts = []string{"15:04:05", "15:04"}
)

// RequireTimestamp parses a single-cell date/time value as UTC. Values without
// a zone are interpreted as UTC; values with an offset are converted.
func RequireTimestamp(field, raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, &FieldError{Field: field, Err: ErrMissingRequiredField}
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &FieldError{Field: field, Value: raw, Err: ErrMalformedTimestamp}
}

// RequireDateTime combines separate date and time-of-day values into one UTC
// timestamp. An empty time defaults to midnight. The date may also carry a
// full timestamp, in which case clock must be empty.
func RequireDateTime(dateField, date, timeField, clock string) (time.Time, error) {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" {
		return time.Time{}, &FieldError{Field: dateField, Err: ErrMissingRequiredField}
	}

	day, ok := parseDate(date)
	if !ok {
		if clock == "" {
			return RequireTimestamp(dateField, date)
		}
		return time.Time{}, &FieldError{Field: dateField, Value: date, Err: ErrMalformedTimestamp}
	}
	if clock == "" {
		return day, nil
	}

	offset, ok := parseClock(clock)
	if !ok {
		return time.Time{}, &FieldError{Field: timeField, Value: clock, Err: ErrMalformedTimestamp}
	}
	return day.Add(offset), nil
}

// RequireLatitude parses a latitude in decimal degrees within [-90, 90].
func RequireLatitude(field, raw string) (float64, error) {
	return requireBounded(field, raw, LatitudeMin, LatitudeMax)
}

// RequireLongitude parses a longitude in decimal degrees within [-180, 180].
func RequireLongitude(field, raw string) (float64, error) {
	return requireBounded(field, raw, LongitudeMin, LongitudeMax)
}

func requireBounded(field, raw string, lo, hi float64) (float64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, &FieldError{Field: field, Err: ErrMissingRequiredField}
	}
	v, ok := parseNumber(raw)
	if !ok {
		return 0, &FieldError{Field: field, Value: raw, Err: ErrMalformedNumber}
	}
	if v < lo || v > hi {
		return 0, &FieldError{Field: field, Value: raw, Err: ErrOutOfRange}
	}
	return v, nil
}

// OptionalNumber parses an unranged optional number. Empty or unparsable
// input yields nil.
func OptionalNumber(raw string) *float64 {
	v, ok := parseNumber(strings.TrimSpace(raw))
	if !ok {
		return nil
	}
	return &v
}

// OptionalBoundedNumber parses an optional number within [lo, hi]. Values
// outside the range are dropped, not reported.
func OptionalBoundedNumber(raw string, lo, hi float64) *float64 {
	v := OptionalNumber(raw)
	if v == nil || *v < lo || *v > hi {
		return nil
	}
	return v
}

// OptionalMinNumber parses an optional number that must be at least lo.
func OptionalMinNumber(raw string, lo float64) *float64 {
	v := OptionalNumber(raw)
	if v == nil || *v < lo {
		return nil
	}
	return v
}

// OptionalBoundedInt parses an optional integer within [lo, hi]. Integral
// decimals such as "5.0" are accepted; fractional values are dropped.
func OptionalBoundedInt(raw string, lo, hi int) *int {
	v := OptionalNumber(raw)
	if v == nil || *v != math.Trunc(*v) {
		return nil
	}
	n := int(*v)
	if n < lo || n > hi {
		return nil
	}
	return &n
}

// OptionalText trims a free-text value.
func OptionalText(raw string) string {
	return strings.TrimSpace(raw)
}

func parseNumber(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// parseClock converts a time of day into an offset from midnight. Accepts
// "15:04", "15:04:05" and bare HHMM digits ("1510", zero-padded from "930").
func parseClock(s string) (time.Duration, bool) {
	for _, layout := range clockLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second, true
		}
	}

	if len(s) < 3 || len(s) > 4 {
		return 0, false
	}
	if len(s) == 3 {
		s = "0" + s
	}
	hour, errH := strconv.Atoi(s[:2])
	mins, errM := strconv.Atoi(s[2:])
	if errH != nil || errM != nil || hour < 0 || hour > 23 || mins < 0 || mins > 59 {
		return 0, false
	}
	return time.Duration(hour)*time.Hour + time.Duration(mins)*time.Minute, true
}
