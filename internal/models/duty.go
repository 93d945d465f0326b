package models

import "github.com/lib/pq"

// DutyZone is a physical area that needs a supervising teacher per weekday and shift.
type DutyZone struct {
	ID           string         `db:"id" json:"id"`
	HalfYear     HalfYear       `db:"half_year" json:"half_year"`
	Name         string         `db:"name" json:"name"`
	Floor        string         `db:"floor" json:"floor"`
	Rooms        pq.StringArray `db:"rooms" json:"rooms"`
	DisplayOrder int            `db:"display_order" json:"display_order"`
}

// DutyRecord assigns a teacher to a zone for one weekday and shift.
type DutyRecord struct {
	ID        string   `db:"id" json:"id"`
	HalfYear  HalfYear `db:"half_year" json:"half_year"`
	ZoneID    string   `db:"zone_id" json:"zone_id"`
	Weekday   int      `db:"weekday" json:"weekday"`
	Shift     Shift    `db:"shift" json:"shift"`
	TeacherID string   `db:"teacher_id" json:"teacher_id"`
}

// DutyFilter selects roster records for bulk removal. Zero values match everything.
type DutyFilter struct {
	Weekday int    `json:"weekday,omitempty"`
	ZoneID  string `json:"zone_id,omitempty"`
	Shift   Shift  `json:"shift,omitempty"`
}

// Matches reports whether r is selected by the filter.
func (f DutyFilter) Matches(r DutyRecord) bool {
	if f.Weekday != 0 && r.Weekday != f.Weekday {
		return false
	}
	if f.ZoneID != "" && r.ZoneID != f.ZoneID {
		return false
	}
	if f.Shift != "" && r.Shift != f.Shift {
		return false
	}
	return true
}

// UnassignedZone reports a zone no qualified teacher could cover.
type UnassignedZone struct {
	ZoneID  string `json:"zone_id"`
	Weekday int    `json:"weekday"`
	Shift   Shift  `json:"shift"`
}

// DutyRoster is the output of the duty solver.
type DutyRoster struct {
	Records    []DutyRecord     `json:"records"`
	Unassigned []UnassignedZone `json:"unassigned"`
}

// DutyConflict flags a teacher supervising more than one zone at the same time.
type DutyConflict struct {
	TeacherID string   `json:"teacher_id"`
	Weekday   int      `json:"weekday"`
	Shift     Shift    `json:"shift"`
	ZoneIDs   []string `json:"zone_ids"`
}
