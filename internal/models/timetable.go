package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the calendar date format used for substitutions and absences.
const DateLayout = "2006-01-02"

// HalfYear selects one of the two independent timetables of the school year.
type HalfYear string

const (
	HalfYearFirst  HalfYear = "H1"
	HalfYearSecond HalfYear = "H2"
)

// ParseHalfYear validates a half-year selector.
func ParseHalfYear(raw string) (HalfYear, error) {
	switch hy := HalfYear(strings.ToUpper(strings.TrimSpace(raw))); hy {
	case HalfYearFirst, HalfYearSecond:
		return hy, nil
	default:
		return "", fmt.Errorf("unknown half-year %q", raw)
	}
}

// Shift is one of the two daily school sessions.
type Shift string

const (
	ShiftFirst  Shift = "FIRST"
	ShiftSecond Shift = "SECOND"
)

// Shifts lists both shifts in timetable order.
var Shifts = []Shift{ShiftFirst, ShiftSecond}

// Valid reports whether s is a known shift.
func (s Shift) Valid() bool {
	return s == ShiftFirst || s == ShiftSecond
}

// PeriodRange returns the inclusive period numbers allowed in the shift.
func (s Shift) PeriodRange() (int, int) {
	if s == ShiftSecond {
		return 0, 6
	}
	return 1, 7
}

// ValidPeriod reports whether period lies in the shift's range.
func (s Shift) ValidPeriod(period int) bool {
	lo, hi := s.PeriodRange()
	return period >= lo && period <= hi
}

// ISOWeekday maps t to 1 (Monday) .. 7 (Sunday).
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// ParseDate parses a calendar date in DateLayout.
func ParseDate(raw string) (time.Time, error) {
	return time.Parse(DateLayout, strings.TrimSpace(raw))
}

// WeekdayOf returns the ISO weekday of a calendar date string.
func WeekdayOf(date string) (int, error) {
	t, err := ParseDate(date)
	if err != nil {
		return 0, err
	}
	return ISOWeekday(t), nil
}
