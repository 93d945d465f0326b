package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// ReasonMap stores absence reasons keyed by calendar date.
type ReasonMap map[string]string

// Value implements driver.Valuer.
func (m ReasonMap) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

// Scan implements sql.Scanner.
func (m *ReasonMap) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = ReasonMap{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("scan reason map: unsupported type %T", src)
	}
	out := ReasonMap{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &out); err != nil {
			return fmt.Errorf("scan reason map: %w", err)
		}
	}
	*m = out
	return nil
}

// Teacher is a member of staff who can teach lessons, substitute and supervise duty zones.
type Teacher struct {
	ID               string         `db:"id" json:"id"`
	HalfYear         HalfYear       `db:"half_year" json:"half_year"`
	Name             string         `db:"name" json:"name"`
	Subjects         pq.StringArray `db:"subjects" json:"subjects"`
	Shifts           pq.StringArray `db:"shifts" json:"shifts"`
	UnavailableDates pq.StringArray `db:"unavailable_dates" json:"unavailable_dates"`
	AbsenceReasons   ReasonMap      `db:"absence_reasons" json:"absence_reasons,omitempty"`
	BirthDate        *string        `db:"birth_date" json:"birth_date,omitempty"`
	NotifyAddress    *string        `db:"notify_address" json:"notify_address,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// HasSubject reports whether the teacher can teach subjectID.
func (t Teacher) HasSubject(subjectID string) bool {
	for _, s := range t.Subjects {
		if s == subjectID {
			return true
		}
	}
	return false
}

// HasShift reports whether the teacher is a member of shift.
func (t Teacher) HasShift(shift Shift) bool {
	for _, s := range t.Shifts {
		if strings.EqualFold(s, string(shift)) {
			return true
		}
	}
	return false
}

// IsAbsentOn reports whether date is one of the teacher's unavailable dates.
func (t Teacher) IsAbsentOn(date string) bool {
	for _, d := range t.UnavailableDates {
		if d == date {
			return true
		}
	}
	return false
}
