package models

import (
	"fmt"
	"time"
)

// BellWeekdayDefault marks a bell slot that applies to every weekday without its own entry.
const BellWeekdayDefault = "default"

// BellSlot is a timed period boundary. Start and End use "15:04".
type BellSlot struct {
	PresetID  string `db:"preset_id" json:"preset_id,omitempty"`
	Shift     Shift  `db:"shift" json:"shift"`
	Period    int    `db:"period" json:"period"`
	Weekday   string `db:"weekday" json:"weekday"`
	Start     string `db:"start_time" json:"start"`
	End       string `db:"end_time" json:"end"`
	Cancelled bool   `db:"cancelled" json:"cancelled"`
}

// Minutes returns start and end as minutes since midnight.
func (b BellSlot) Minutes() (int, int, error) {
	start, err := ClockMinutes(b.Start)
	if err != nil {
		return 0, 0, err
	}
	end, err := ClockMinutes(b.End)
	if err != nil {
		return 0, 0, err
	}
	return start, end, nil
}

// ClockMinutes parses "15:04" into minutes since midnight.
func ClockMinutes(hhmm string) (int, error) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q", hhmm)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// BellPreset is a named complete set of bell slots.
type BellPreset struct {
	ID        string     `db:"id" json:"id"`
	Name      string     `db:"name" json:"name"`
	Active    bool       `db:"active" json:"active"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	Slots     []BellSlot `db:"-" json:"slots"`
}

// PeriodState is the live clock state.
type PeriodState string

const (
	PeriodNoSchool PeriodState = "no_school"
	PeriodInLesson PeriodState = "in_lesson"
	PeriodBreak    PeriodState = "break"
	PeriodIdle     PeriodState = "idle"
)

// PeriodStatus is derived from the bell schedule and the wall clock.
type PeriodStatus struct {
	State            PeriodState `json:"state"`
	Shift            Shift       `json:"shift,omitempty"`
	Period           *int        `json:"period,omitempty"`
	NextPeriod       *int        `json:"next_period,omitempty"`
	ElapsedMinutes   int         `json:"elapsed_minutes"`
	RemainingMinutes int         `json:"remaining_minutes,omitempty"`
	Progress         int         `json:"progress"`
	At               time.Time   `json:"at"`
}
