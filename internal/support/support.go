package support

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the calendar-day format used for every record date.
const DateLayout = "2006-01-02"

// Clock delivers the current time; extracted for deterministic testing.
type Clock interface {
	Now() time.Time
}

// IDGenerator produces unique identifiers for new records.
type IDGenerator interface {
	NewID() string
}

// ===== Clock =====

type systemClock struct {
	loc *time.Location
}

// NewSystemClock returns a Clock backed by time.Now, reporting times in loc (UTC when nil).
func NewSystemClock(loc *time.Location) Clock {
	if loc == nil {
		loc = time.UTC
	}
	return systemClock{loc: loc}
}

func (c systemClock) Now() time.Time {
	return time.Now().In(c.loc)
}

// Today returns the calendar day of the clock's current time, at midnight UTC.
func Today(c Clock) time.Time {
	return Day(c.Now())
}

// Day strips the time-of-day and zone from t, keeping its calendar value.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDay renders a calendar day as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDay parses a YYYY-MM-DD string.
func ParseDay(value string) (time.Time, error) {
	return time.Parse(DateLayout, value)
}

// ===== ID Generator =====

type uuidGenerator struct{}

// NewUUIDGenerator returns an IDGenerator that produces v7 UUIDs where available, falling back to v4.
func NewUUIDGenerator() IDGenerator {
	return uuidGenerator{}
}

func (uuidGenerator) NewID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}
