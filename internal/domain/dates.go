package domain

import (
	"fmt"
	"strings"
	"time"
)

const minPlausibleYear = 1900

// naTokens are spreadsheet placeholders for a missing value
var naTokens = map[string]struct{}{
	"nan":  {},
	"nat":  {},
	"none": {},
	"null": {},
}

var dateLayouts = []string{
	CanonicalLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
	"2006-1-2 15:04:05",
	"2006-1-2T15:04:05",
	"2006-1-2 15:04",
	"2006-1-2",
	"02-01-2006 15:04:05",
	"02-01-2006 15:04",
	"02-01-2006",
	"2-1-2006",
	"2006/01/02 15:04:05",
	"2006/01/02",
	"02/01/2006 15:04:05",
	"02/01/2006",
}

// NormalizeDate resolves a raw date string to a canonical Timestamp.
//
// Empty and placeholder values yield an absent Timestamp and no error.
// A trailing UTC offset is dropped, "00" months and days become "01", and
// anything that still does not parse, or parses to a year before 1900,
// fails with a *DateFormatError.
func NormalizeDate(raw string) (Timestamp, error) {
	value := strings.TrimSpace(raw)
	if IsAbsent(value) {
		return Timestamp{}, nil
	}

	value = fillZeroDateParts(stripOffset(value))

	parsed, ok := parseDate(value)
	if !ok {
		return Timestamp{}, &DateFormatError{Input: raw, Reason: "unrecognized date format"}
	}
	if parsed.Year() < minPlausibleYear {
		return Timestamp{}, &DateFormatError{Input: raw, Reason: fmt.Sprintf("implausible year %d", parsed.Year())}
	}

	return NewTimestamp(parsed), nil
}

// IsAbsent reports whether a trimmed cell value stands for a missing value
func IsAbsent(value string) bool {
	if value == "" {
		return true
	}
	_, ok := naTokens[strings.ToLower(value)]
	return ok
}

// stripOffset removes one trailing offset segment: "+HH:MM", or the last
// "-" segment when there are more than the two of a YYYY-MM-DD date.
func stripOffset(value string) string {
	if i := strings.IndexByte(value, '+'); i >= 0 {
		return strings.TrimSpace(value[:i])
	}
	if strings.Count(value, "-") > 2 {
		return strings.TrimSpace(value[:strings.LastIndexByte(value, '-')])
	}
	return strings.TrimSuffix(value, "Z")
}

// fillZeroDateParts replaces an unknown ("00") month or day with "01"
func fillZeroDateParts(value string) string {
	datePart, rest := value, ""
	if i := strings.IndexAny(value, " T"); i >= 0 {
		datePart, rest = value[:i], value[i:]
	}

	parts := strings.Split(datePart, "-")
	if len(parts) != 3 {
		return value
	}

	// year first (YYYY-MM-DD) or day first (DD-MM-YYYY)
	day := 2
	if len(parts[0]) != 4 {
		day = 0
	}
	for _, i := range []int{1, day} {
		if parts[i] == "00" {
			parts[i] = "01"
		}
	}
	return strings.Join(parts, "-") + rest
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
