package models

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// ReplacementKind tags the outcome of an uncovered lesson.
type ReplacementKind string

const (
	ReplacementTeacher   ReplacementKind = "teacher"
	ReplacementConducted ReplacementKind = "conducted"
	ReplacementCancelled ReplacementKind = "cancelled"
)

// ReplacementOutcome is either a replacing teacher or one of the conducted/cancelled states.
type ReplacementOutcome struct {
	Kind      ReplacementKind `db:"replacement_kind" json:"kind"`
	TeacherID *string         `db:"replacement_teacher_id" json:"teacher_id,omitempty"`
}

// ReplaceWithTeacher builds a teacher outcome.
func ReplaceWithTeacher(id string) ReplacementOutcome {
	return ReplacementOutcome{Kind: ReplacementTeacher, TeacherID: &id}
}

// Conducted builds the "lesson happened as planned" outcome.
func Conducted() ReplacementOutcome {
	return ReplacementOutcome{Kind: ReplacementConducted}
}

// Cancelled builds the "lesson dropped for the day" outcome.
func Cancelled() ReplacementOutcome {
	return ReplacementOutcome{Kind: ReplacementCancelled}
}

// Teacher returns the replacing teacher id when the outcome names one.
func (o ReplacementOutcome) Teacher() (string, bool) {
	if o.Kind != ReplacementTeacher || o.TeacherID == nil {
		return "", false
	}
	return *o.TeacherID, true
}

// Validate checks that only the teacher kind carries an id.
func (o ReplacementOutcome) Validate() error {
	switch o.Kind {
	case ReplacementTeacher:
		if o.TeacherID == nil || strings.TrimSpace(*o.TeacherID) == "" {
			return errors.New("teacher replacement requires a teacher id")
		}
	case ReplacementConducted, ReplacementCancelled:
		if o.TeacherID != nil {
			return errors.New("conducted and cancelled outcomes cannot name a teacher")
		}
	default:
		return errors.New("unknown replacement kind")
	}
	return nil
}

// Substitution is a date-scoped overlay on one LessonSlot.
type Substitution struct {
	ID                 string   `db:"id" json:"id"`
	HalfYear           HalfYear `db:"half_year" json:"half_year"`
	Date               string   `db:"date" json:"date"`
	LessonID           string   `db:"lesson_id" json:"lesson_id"`
	OriginalTeacherID  string   `db:"original_teacher_id" json:"original_teacher_id"`
	ReplacementOutcome `json:"replacement"`
	ReplacementRoomID  *string        `db:"replacement_room_id" json:"replacement_room_id,omitempty"`
	Reason             *string        `db:"reason" json:"reason,omitempty"`
	Merger             bool           `db:"merger" json:"merger"`
	DeclinedTeacherIDs pq.StringArray `db:"declined_teacher_ids" json:"declined_teacher_ids,omitempty"`
	OverrideClassID    *string        `db:"override_class_id" json:"override_class_id,omitempty"`
	OverrideSubjectID  *string        `db:"override_subject_id" json:"override_subject_id,omitempty"`
}

// SubstitutionKey identifies the (date, lesson) a substitution overlays.
type SubstitutionKey struct {
	Date     string
	LessonID string
}

// Key returns the substitution's overlay key.
func (s Substitution) Key() SubstitutionKey {
	return SubstitutionKey{Date: s.Date, LessonID: s.LessonID}
}

// TeacherLoad counts substitutions performed by a teacher in a month.
type TeacherLoad struct {
	TeacherID   string `json:"teacher_id"`
	TeacherName string `json:"teacher_name"`
	Count       int    `json:"count"`
}
