package models

// ClassGroup is a class of students attending one shift.
type ClassGroup struct {
	ID                   string   `db:"id" json:"id"`
	HalfYear             HalfYear `db:"half_year" json:"half_year"`
	Name                 string   `db:"name" json:"name"`
	Shift                Shift    `db:"shift" json:"shift"`
	StudentCount         int      `db:"student_count" json:"student_count"`
	ExcludeFromConflicts bool     `db:"exclude_from_conflicts" json:"exclude_from_conflicts"`
}

// Room is a physical teaching space.
type Room struct {
	ID       string   `db:"id" json:"id"`
	HalfYear HalfYear `db:"half_year" json:"half_year"`
	Name     string   `db:"name" json:"name"`
	Capacity int      `db:"capacity" json:"capacity"`
	RoomType string   `db:"room_type" json:"room_type"`
}
