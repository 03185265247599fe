package domain

import (
	"encoding/json"
	"time"
)

// CanonicalLayout is the canonical textual form of a normalized timestamp
const CanonicalLayout = "2006-01-02 15:04:05"

// Timestamp is a normalized date that is either valid or explicitly absent
type Timestamp struct {
	Time  time.Time
	Valid bool
}

// NewTimestamp returns a valid Timestamp for t
func NewTimestamp(t time.Time) Timestamp {
	return Timestamp{Time: t, Valid: true}
}

// String returns the canonical form, or "" when absent
func (t Timestamp) String() string {
	if !t.Valid {
		return ""
	}
	return t.Time.Format(CanonicalLayout)
}

// Within reports whether the timestamp falls in (ref-window, ref].
// Timestamps after ref are not recent.
func (t Timestamp) Within(ref time.Time, window time.Duration) bool {
	return t.Valid && t.Time.After(ref.Add(-window)) && !t.Time.After(ref)
}

// MarshalJSON encodes an absent timestamp as null
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(t.String())
}
