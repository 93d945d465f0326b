package models

// LessonSlot is one recurring weekly timetable cell.
type LessonSlot struct {
	ID        string   `db:"id" json:"id"`
	HalfYear  HalfYear `db:"half_year" json:"half_year"`
	ClassID   string   `db:"class_id" json:"class_id"`
	SubjectID string   `db:"subject_id" json:"subject_id"`
	TeacherID string   `db:"teacher_id" json:"teacher_id"`
	RoomID    *string  `db:"room_id" json:"room_id,omitempty"`
	Weekday   int      `db:"weekday" json:"weekday"`
	Period    int      `db:"period" json:"period"`
	Shift     Shift    `db:"shift" json:"shift"`
	Track     string   `db:"track" json:"track"`
}

// SlotKey identifies a (weekday, period, shift) time slot.
type SlotKey struct {
	Weekday int   `json:"weekday"`
	Period  int   `json:"period"`
	Shift   Shift `json:"shift"`
}

// Key returns the lesson's time slot.
func (l LessonSlot) Key() SlotKey {
	return SlotKey{Weekday: l.Weekday, Period: l.Period, Shift: l.Shift}
}

// Room returns the room id or an empty string.
func (l LessonSlot) Room() string {
	if l.RoomID == nil {
		return ""
	}
	return *l.RoomID
}

// ConflictTag names the resource that collides.
type ConflictTag string

const (
	ConflictTeacher ConflictTag = "teacher"
	ConflictClass   ConflictTag = "class"
	ConflictRoom    ConflictTag = "room"
)

// LessonConflict lists the tags raised for one lesson.
type LessonConflict struct {
	LessonID string        `json:"lesson_id"`
	Slot     SlotKey       `json:"slot"`
	Tags     []ConflictTag `json:"tags"`
}
