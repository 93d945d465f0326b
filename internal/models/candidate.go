package models

// RankedCandidate is one entry of the substitute ranking.
type RankedCandidate struct {
	TeacherID                string `json:"teacher_id"`
	TeacherName              string `json:"teacher_name"`
	IsAbsent                 bool   `json:"is_absent"`
	IsBusy                   bool   `json:"is_busy"`
	IsSpecialist             bool   `json:"is_specialist"`
	Score                    int    `json:"score"`
	MonthlySubstitutionCount int    `json:"monthly_substitution_count"`
	Declined                 bool   `json:"declined"`
	OneClick                 bool   `json:"one_click"`
}

// AdvisoryCode classifies a non-blocking warning.
type AdvisoryCode string

const (
	AdvisoryNoShift          AdvisoryCode = "teacher_without_shift"
	AdvisoryShiftMismatch    AdvisoryCode = "teacher_not_in_shift"
	AdvisoryRoomCapacity     AdvisoryCode = "room_capacity"
	AdvisoryRoomType         AdvisoryCode = "room_type_mismatch"
	AdvisoryAbsentTeacher    AdvisoryCode = "teacher_absent"
	AdvisoryLessonConflict   AdvisoryCode = "lesson_conflict"
	AdvisoryDutyDoubleBooked AdvisoryCode = "duty_double_booked"
)

// Advisory is a warning surfaced to the user; the write still happens.
type Advisory struct {
	Code    AdvisoryCode `json:"code"`
	Message string       `json:"message"`
}
