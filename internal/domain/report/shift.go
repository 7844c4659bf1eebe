package report

import (
	"strings"
	"time"

	"github.com/pos/backend/internal/domain/shared"
)

// ShiftBoundaryHour splits the business day: orders before 17:00 local time
// belong to the first shift.
const ShiftBoundaryHour = 17

// Shift is a shift bucket or filter.
type Shift string

const (
	ShiftAll Shift = "ALL"
	Shift1   Shift = "SHIFT1"
	Shift2   Shift = "SHIFT2"
)

// IsValid checks if the shift is a known filter value
func (s Shift) IsValid() bool {
	switch s {
	case ShiftAll, Shift1, Shift2:
		return true
	}
	return false
}

// Includes reports whether an order in the given shift passes this filter.
func (s Shift) Includes(orderShift Shift) bool {
	return s == ShiftAll || s == orderShift
}

// ParseShift parses a shift filter case-insensitively. Empty means ALL.
func ParseShift(raw string) (Shift, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ShiftAll, nil
	}
	s := Shift(strings.ToUpper(trimmed))
	if !s.IsValid() {
		return "", shared.NewInputError("unknown shift %q", raw)
	}
	return s, nil
}

// ShiftOf returns the shift of an order created at t, read in loc.
func ShiftOf(t time.Time, loc *time.Location) Shift {
	if loc != nil {
		t = t.In(loc)
	}
	if t.Hour() < ShiftBoundaryHour {
		return Shift1
	}
	return Shift2
}

// StartOfDay returns midnight of t's calendar day in loc.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// EndOfDay returns the last nanosecond of t's calendar day in loc.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DateKey formats a calendar day as YYYY-MM-DD.
func DateKey(t time.Time, loc *time.Location) string {
	if loc != nil {
		t = t.In(loc)
	}
	return t.Format(time.DateOnly)
}
